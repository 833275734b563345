// Package vision implements color-based segmentation of camera frames.
//
// A frame is converted to HSV, thresholded against one or more color
// ranges, cleaned up with erosion/dilation, and reduced to a set of
// contours large enough to matter. Everything downstream of this
// package works on plain Go values so only the segmentation step
// touches OpenCV.
package vision

import (
	"image"

	"gocv.io/x/gocv"
)

// HSV is a point in OpenCV's HSV space (hue 0-179, sat/val 0-255).
type HSV struct {
	H uint8
	S uint8
	V uint8
}

// Scalar converts the triple to a gocv scalar for InRange.
func (c HSV) Scalar() gocv.Scalar {
	return gocv.NewScalar(float64(c.H), float64(c.S), float64(c.V), 0)
}

// ColorRange is an inclusive lower/upper HSV window. A range whose
// bounds are both all-zero is disabled and skipped during
// segmentation, matching the sentinel used in tuning configs.
type ColorRange struct {
	Lower HSV
	Upper HSV
}

// Active reports whether the range participates in segmentation.
func (r ColorRange) Active() bool {
	zero := HSV{}
	return r.Lower != zero || r.Upper != zero
}

// Contour is a connected region extracted from a mask, decoded into
// plain Go values. Read-only after extraction.
type Contour struct {
	Points []image.Point
	Area   float64
	Rect   image.Rectangle
}

// Config controls noise suppression and the minimum contour size.
type Config struct {
	// MorphIterations is the symmetric erode/dilate pass count.
	MorphIterations int
	// MinAreaPixels drops contours below this pixel area.
	MinAreaPixels float64
}

// DefaultConfig returns the tuning used by the monitor: three
// erode/dilate passes and a 100 px^2 noise floor.
func DefaultConfig() Config {
	return Config{
		MorphIterations: 3,
		MinAreaPixels:   100,
	}
}

// Segment thresholds a BGR frame against the active color ranges and
// returns the surviving contours. Masks from multiple active ranges
// are unioned before morphology. Segment never errors; an empty slice
// means nothing matched. The input frame is not modified.
func Segment(frame gocv.Mat, cfg Config, ranges ...ColorRange) []Contour {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()

	first := true
	for _, r := range ranges {
		if !r.Active() {
			continue
		}
		if first {
			gocv.InRangeWithScalar(hsv, r.Lower.Scalar(), r.Upper.Scalar(), &mask)
			first = false
			continue
		}
		next := gocv.NewMat()
		gocv.InRangeWithScalar(hsv, r.Lower.Scalar(), r.Upper.Scalar(), &next)
		gocv.BitwiseOr(mask, next, &mask)
		next.Close()
	}
	if first {
		// No active range configured.
		return nil
	}

	if cfg.MorphIterations > 0 {
		kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
		defer kernel.Close()
		for i := 0; i < cfg.MorphIterations; i++ {
			gocv.Erode(mask, &mask, kernel)
		}
		for i := 0; i < cfg.MorphIterations; i++ {
			gocv.Dilate(mask, &mask, kernel)
		}
	}

	return extractContours(mask, cfg.MinAreaPixels)
}

// extractContours pulls external contours out of a binary mask and
// decodes those above the area floor into plain Go values.
func extractContours(mask gocv.Mat, minArea float64) []Contour {
	found := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer found.Close()

	var contours []Contour
	for i := 0; i < found.Size(); i++ {
		pv := found.At(i)
		area := gocv.ContourArea(pv)
		if area <= minArea {
			continue
		}
		contours = append(contours, Contour{
			Points: pv.ToPoints(),
			Area:   area,
			Rect:   gocv.BoundingRect(pv),
		})
	}
	return contours
}

// Union returns the axis-aligned bounding box covering every point of
// every contour, or the zero rectangle for an empty input.
func Union(contours []Contour) image.Rectangle {
	var union image.Rectangle
	for _, c := range contours {
		if union.Empty() {
			union = c.Rect
		} else {
			union = union.Union(c.Rect)
		}
	}
	return union
}

// TotalArea sums the pixel area of all contours.
func TotalArea(contours []Contour) float64 {
	var total float64
	for _, c := range contours {
		total += c.Area
	}
	return total
}
