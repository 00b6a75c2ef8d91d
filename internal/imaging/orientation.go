package imaging

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"regexp"
	"strconv"
)

// Four 90-degree steps cover a full revolution; more would loop.
const maxOrientationAttempts = 4

var reRotate = regexp.MustCompile(`Rotate: (\d+)`)

// CorrectOrientation detects text rotation with tesseract OSD and rotates
// the image in 90-degree steps until the detector reports zero, overwriting
// the file in place. A missing or failing detector is reported as an error
// for the caller to log; the file keeps its current orientation.
func (n *Normalizer) CorrectOrientation(ctx context.Context, imagePath string) error {
	img, err := decodeImageFile(imagePath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	rotated := false
	for attempt := 0; attempt < maxOrientationAttempts; attempt++ {
		out, _, err := n.runner.Run(ctx, n.cfg.TesseractPath, imagePath, "stdout", "--psm", "0")
		if err != nil {
			var execErr *exec.Error
			if errors.As(err, &execErr) {
				return fmt.Errorf("tesseract not available: %w", err)
			}
			// OSD failed mid-process; accept the current orientation.
			n.log.Warn("imaging.orientation.osd_error", "path", imagePath, "attempt", attempt+1, "error", err)
			break
		}

		angle, ok := parseRotation(out)
		if !ok {
			n.log.Warn("imaging.orientation.no_angle", "path", imagePath, "attempt", attempt+1)
			break
		}
		if angle == 0 {
			break
		}

		n.log.Info("imaging.orientation.rotating", "path", imagePath, "angle", angle, "attempt", attempt+1)
		img = rotate(img, angle)
		rotated = true
		if err := writeJPEG(imagePath, img); err != nil {
			return fmt.Errorf("write rotated image: %w", err)
		}
	}

	if rotated {
		n.log.Info("imaging.orientation.ok", "path", imagePath)
	}
	return nil
}

func parseRotation(osd []byte) (int, bool) {
	m := reRotate.FindSubmatch(osd)
	if m == nil {
		return 0, false
	}
	angle, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0, false
	}
	return angle, true
}

// rotate corrects a detected clockwise text rotation: 90 means the text
// reads sideways and the image must turn counter-clockwise, 270 clockwise.
func rotate(img image.Image, angle int) image.Image {
	switch angle {
	case 90:
		return rotate90CCW(img)
	case 180:
		return rotate180(img)
	case 270:
		return rotate90CW(img)
	default:
		return img
	}
}

func rotate90CW(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(b.Max.Y-1-y, x-b.Min.X, img.At(x, y))
		}
	}
	return dst
}

func rotate90CCW(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(y-b.Min.Y, b.Max.X-1-x, img.At(x, y))
		}
	}
	return dst
}

func rotate180(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(b.Max.X-1-x, b.Max.Y-1-y, img.At(x, y))
		}
	}
	return dst
}

func writeJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: qualityHigh}); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
