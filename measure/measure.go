// Package measure turns segmented foliage contours into physical
// plant metrics using a locked pixels-per-millimeter calibration.
package measure

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/verdantlab/plantmon/vision"
)

// Plant color ranges tuned for reddish-brown leaves. The secondary
// range is disabled (all-zero sentinel) but kept so dark red/purple
// foliage can be re-enabled without code changes.
var (
	PlantRangePrimary = vision.ColorRange{
		Lower: vision.HSV{H: 0, S: 30, V: 30},
		Upper: vision.HSV{H: 40, S: 255, V: 200},
	}
	PlantRangeSecondary = vision.ColorRange{}
)

var (
	aggregateColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	leafColor      = color.RGBA{R: 255, G: 255, B: 0, A: 0}
)

// Measurement is one cycle's plant metrics. All fields are
// non-negative and the value is immutable once produced.
type Measurement struct {
	HeightMM  float64
	LeafCount int
	AreaMM2   float64
}

// String formats the measurement the way it is displayed and
// persisted: two decimals for millimeter values, integer leaf count.
func (m Measurement) String() string {
	return fmt.Sprintf("height=%.2fmm leaves=%d area=%.2fmm^2", m.HeightMM, m.LeafCount, m.AreaMM2)
}

// Config holds the segmentation tuning and color ranges for foliage.
type Config struct {
	Segmentation vision.Config
	Ranges       []vision.ColorRange
}

// DefaultConfig returns the foliage tuning used by the monitor.
func DefaultConfig() Config {
	return Config{
		Segmentation: vision.DefaultConfig(),
		Ranges:       []vision.ColorRange{PlantRangePrimary, PlantRangeSecondary},
	}
}

// Measurer segments foliage and aggregates contours into metrics.
type Measurer struct {
	cfg Config
}

// New returns a Measurer with the given tuning.
func New(cfg Config) *Measurer {
	return &Measurer{cfg: cfg}
}

// Measure segments the frame and converts the surviving contours to
// millimeter metrics. pixelsPerMM must be positive; callers that are
// not calibrated must report a zero Measurement instead of calling
// this. The returned contours are handed back so the caller can draw
// them without re-segmenting.
func (m *Measurer) Measure(frame gocv.Mat, pixelsPerMM float64) (Measurement, []vision.Contour) {
	contours := vision.Segment(frame, m.cfg.Segmentation, m.cfg.Ranges...)
	return Aggregate(contours, pixelsPerMM), contours
}

// Aggregate converts contours to metrics. Height is the height of the
// bounding box around the union of all contour points, scaled
// linearly. Area is the contour-area sum scaled by the square of the
// calibration factor: area in mm^2 shrinks quadratically as
// pixels-per-mm grows.
func Aggregate(contours []vision.Contour, pixelsPerMM float64) Measurement {
	if len(contours) == 0 || pixelsPerMM <= 0 {
		return Measurement{}
	}
	union := vision.Union(contours)
	return Measurement{
		HeightMM:  float64(union.Dy()) / pixelsPerMM,
		LeafCount: len(contours),
		AreaMM2:   vision.TotalArea(contours) / (pixelsPerMM * pixelsPerMM),
	}
}

// Annotate draws one yellow box per leaf with a sequential L<n> label
// plus a green aggregate box. Operator display only; never feeds back
// into the numeric measurement.
func Annotate(frame *gocv.Mat, contours []vision.Contour) {
	if len(contours) == 0 {
		return
	}
	gocv.Rectangle(frame, vision.Union(contours), aggregateColor, 2)
	for i, c := range contours {
		gocv.Rectangle(frame, c.Rect, leafColor, 2)
		label := fmt.Sprintf("L%d", i+1)
		gocv.PutText(frame, label, c.Rect.Min.Add(image.Pt(0, -10)), gocv.FontHersheySimplex, 0.5, leafColor, 2)
	}
}
