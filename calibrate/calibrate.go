// Package calibrate derives the pixels-per-millimeter scale factor
// from a reference object of known physical width placed in the scene.
package calibrate

import (
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"github.com/verdantlab/plantmon/vision"
)

// ReferenceWidthMM is the physical width of the reference object.
const ReferenceWidthMM = 10.0

// ReferenceRange matches the blue reference object.
var ReferenceRange = vision.ColorRange{
	Lower: vision.HSV{H: 90, S: 70, V: 50},
	Upper: vision.HSV{H: 130, S: 255, V: 255},
}

var boxColor = color.RGBA{R: 0, G: 0, B: 255, A: 0}

// Config holds the segmentation tuning and the reference geometry.
type Config struct {
	Segmentation vision.Config
	Range        vision.ColorRange
	WidthMM      float64
}

// DefaultConfig returns the reference-object tuning. The reference is
// a solid object, so no morphology pass is needed to find it.
func DefaultConfig() Config {
	return Config{
		Segmentation: vision.Config{MorphIterations: 0, MinAreaPixels: 0},
		Range:        ReferenceRange,
		WidthMM:      ReferenceWidthMM,
	}
}

// Calibrate locates the reference object in the frame and returns the
// derived pixels-per-millimeter factor, along with the contour used.
// A zero factor means the reference was not found. Repeated calls on
// the same frame return the same result; there is no hidden state.
func Calibrate(frame gocv.Mat, cfg Config) (float64, vision.Contour) {
	contours := vision.Segment(frame, cfg.Segmentation, cfg.Range)
	if len(contours) == 0 {
		return 0, vision.Contour{}
	}

	// Largest contour wins; first encountered wins ties.
	best := contours[0]
	for _, c := range contours[1:] {
		if c.Area > best.Area {
			best = c
		}
	}

	width := best.Rect.Dx()
	if width == 0 || cfg.WidthMM <= 0 {
		return 0, best
	}
	return float64(width) / cfg.WidthMM, best
}

// DrawReference draws the reference bounding box onto the frame for
// operator feedback. Display only, never part of the measurement path.
func DrawReference(frame *gocv.Mat, ref vision.Contour) {
	if ref.Rect.Empty() {
		return
	}
	gocv.Rectangle(frame, ref.Rect, boxColor, 2)
	gocv.PutText(frame, "Ref Object", ref.Rect.Min.Add(image.Pt(0, -10)), gocv.FontHersheySimplex, 0.5, boxColor, 2)
}

// DrawFailure overlays the calibration-fault message on the frame.
func DrawFailure(frame *gocv.Mat) {
	red := color.RGBA{R: 255, G: 0, B: 0, A: 0}
	gocv.PutText(frame, "Cannot find reference object!", image.Pt(20, 30), gocv.FontHersheySimplex, 0.7, red, 2)
}

// State tracks the locked calibration shared between the capture loop
// and the operator API. PixelsPerMM is strictly positive whenever
// Locked is true; an unlocked state forces recalibration each cycle.
type State struct {
	mu          sync.RWMutex
	pixelsPerMM float64
	locked      bool
}

// Lock records a successful calibration. Non-positive factors are
// ignored so the invariant on PixelsPerMM holds.
func (s *State) Lock(pixelsPerMM float64) {
	if pixelsPerMM <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pixelsPerMM = pixelsPerMM
	s.locked = true
}

// Reset clears the calibration, forcing recomputation on the next
// cycle. Used by the recalibrate request.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pixelsPerMM = 0
	s.locked = false
}

// Get returns the current factor and whether it is locked.
func (s *State) Get() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pixelsPerMM, s.locked
}

// Locked reports whether a calibration is in effect.
func (s *State) Locked() bool {
	_, locked := s.Get()
	return locked
}
