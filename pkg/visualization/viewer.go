package visualization

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"niftiview/internal/models"
	"niftiview/pkg/session"
	"niftiview/pkg/slicer"
)

// Options controls image output
type Options struct {
	// Format is png or jpeg
	Format string

	// JPEGQuality is used for jpeg output
	JPEGQuality int

	// Workers bounds concurrent slice rendering in SaveSliceSequence
	Workers int
}

// Viewer is the display surface for a session: it turns frames into images
// and writes them to disk.
type Viewer struct {
	session *session.Session
	opts    Options
}

// NewViewer creates a viewer over a session
func NewViewer(s *session.Session, opts Options) *Viewer {
	if opts.Format == "" {
		opts.Format = "png"
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 90
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Viewer{session: s, opts: opts}
}

// Render converts a frame into a grayscale image scaled by the frame's zoom.
// A zoom of 1 returns the frame pixels without copying.
func Render(f *models.Frame) *image.Gray {
	src := f.Gray()
	if f.Zoom <= 0 || f.Zoom == 1 {
		return src
	}

	w := max(int(math.Round(float64(f.Width)*f.Zoom)), 1)
	h := max(int(math.Round(float64(f.Height)*f.Zoom)), 1)
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// Current renders the session's current frame
func (v *Viewer) Current() (*image.Gray, *models.Frame, error) {
	f, err := v.session.CurrentFrame()
	if err != nil {
		return nil, nil, err
	}
	return Render(f), f, nil
}

// SaveFrame writes a frame as an image in the configured format
func (v *Viewer) SaveFrame(f *models.Frame, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	img := Render(f)
	switch strings.ToLower(v.opts.Format) {
	case "jpeg", "jpg":
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: v.opts.JPEGQuality})
	default:
		err = png.Encode(file, img)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", filename, err)
	}
	return file.Close()
}

// SaveSliceSequence renders every slice of a plane with the session's current
// window and zoom and writes them to outputDir. It returns the number of files written.
func (v *Viewer) SaveSliceSequence(p slicer.Plane, outputDir string) (int, error) {
	vol := v.session.Volume()
	if vol == nil {
		return 0, session.ErrNoVolume
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, err
	}

	count := slicer.SliceCount(vol.Dims, p)
	var g errgroup.Group
	g.SetLimit(v.opts.Workers)
	for pos := 0; pos < count; pos++ {
		g.Go(func() error {
			f, err := v.session.RenderSlice(p, pos)
			if err != nil {
				return err
			}
			return v.SaveFrame(f, filepath.Join(outputDir, v.sliceName(p, pos)))
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return count, nil
}

func (v *Viewer) sliceName(p slicer.Plane, pos int) string {
	ext := "png"
	if f := strings.ToLower(v.opts.Format); f == "jpeg" || f == "jpg" {
		ext = "jpg"
	}
	return fmt.Sprintf("slice_%s_%03d.%s", strings.ToLower(p.String()), pos+1, ext)
}
