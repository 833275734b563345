// Package capture wraps the camera and owns the single-slot snapshot
// holder shared between the capture cycle and the sampling cycle.
package capture

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Source produces frames for the measurement cycle. Next returning
// false is a transient fault: callers keep retrying on later cycles
// rather than terminating.
type Source interface {
	Next(dst *gocv.Mat) bool
	Close() error
}

// Camera is a Source backed by a gocv video capture device or file.
type Camera struct {
	capture *gocv.VideoCapture
}

// OpenCamera opens the capture device with the given ID.
func OpenCamera(deviceID int) (*Camera, error) {
	vc, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, errors.Wrapf(err, "opening capture device %d", deviceID)
	}
	return &Camera{capture: vc}, nil
}

// OpenVideoFile opens a video file as the frame source, useful for
// replaying recorded growth sessions.
func OpenVideoFile(path string) (*Camera, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening video file %s", path)
	}
	return &Camera{capture: vc}, nil
}

// Next reads the next frame into dst. An empty read reports false so
// the caller retries next cycle.
func (c *Camera) Next(dst *gocv.Mat) bool {
	if ok := c.capture.Read(dst); !ok {
		return false
	}
	return !dst.Empty()
}

// Close releases the underlying device.
func (c *Camera) Close() error {
	return c.capture.Close()
}
