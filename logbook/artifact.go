package logbook

import (
	"fmt"
	"image/jpeg"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// thumbWidth is the pixel width of the preview written next to each
// full-size capture.
const thumbWidth = 320

// ArtifactSink writes chosen frames to disk and returns a durable
// image reference for the appended record. Names carry a millisecond
// timestamp plus a short UUID so rapid successive log events never
// collide.
type ArtifactSink struct {
	dir string
}

// NewArtifactSink creates the captures directory if needed.
func NewArtifactSink(dir string) (*ArtifactSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating captures dir %s", dir)
	}
	return &ArtifactSink{dir: dir}, nil
}

// Save writes the frame as a JPEG and a small preview thumbnail
// beside it, returning the full-size path. The thumbnail is
// best-effort; a failure there does not fail the save.
func (s *ArtifactSink) Save(frame gocv.Mat) (string, error) {
	name := fmt.Sprintf("plant_%s_%s.jpg",
		time.Now().Format("2006-01-02_15-04-05.000"),
		uuid.NewString()[:8])
	path := filepath.Join(s.dir, name)

	if ok := gocv.IMWrite(path, frame); !ok {
		return "", errors.Errorf("writing image %s", path)
	}
	if err := s.writeThumbnail(path, frame); err != nil {
		log.Printf("thumbnail for %s: %v", name, err)
	}
	return path, nil
}

func (s *ArtifactSink) writeThumbnail(fullPath string, frame gocv.Mat) error {
	img, err := frame.ToImage()
	if err != nil {
		return err
	}
	thumb := resize.Resize(thumbWidth, 0, img, resize.Lanczos3)

	thumbPath := strings.TrimSuffix(fullPath, ".jpg") + "_thumb.jpg"
	f, err := os.Create(thumbPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return jpeg.Encode(f, thumb, &jpeg.Options{Quality: 85})
}
