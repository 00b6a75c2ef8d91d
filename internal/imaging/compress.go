// Package imaging normalizes source documents (PDFs and raster images) into
// size-bounded, upright JPEGs ready for the extraction model.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"

	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/verifyhq/scorecard-verifier/constants"
	"github.com/verifyhq/scorecard-verifier/internal/common"
)

const (
	qualityHigh   = 85
	qualityMedium = 75
)

// scalePercents is the downscale ladder tried after both full-size encodes
// miss the target.
var scalePercents = []int{90, 75, 60, 50, 40, 30, 20}

// Config holds normalization tunables and external tool paths.
type Config struct {
	TargetSizeKB  int
	PdftoppmPath  string // empty disables PDF support
	TesseractPath string
	RasterDPI     int
}

// Normalizer converts a source document into a compressed JPEG and corrects
// its orientation in place.
type Normalizer struct {
	cfg    Config
	runner Runner
	log    *slog.Logger
}

func NewNormalizer(cfg Config, runner Runner, logger *slog.Logger) *Normalizer {
	if cfg.TargetSizeKB <= 0 {
		cfg.TargetSizeKB = 100
	}
	if cfg.TesseractPath == "" {
		cfg.TesseractPath = "tesseract"
	}
	if cfg.RasterDPI <= 0 {
		cfg.RasterDPI = 200
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{cfg: cfg, runner: runner, log: logger}
}

// Compress converts the source document into a JPEG under destDir, applying
// a waterfall of progressively more aggressive encodings until the target
// size is met. A missed target is not an error: the smallest attempt is
// persisted and reported in the status message. Errors are reserved for
// unsupported types, a missing PDF rasterizer, and unrecoverable I/O.
func (n *Normalizer) Compress(ctx context.Context, sourcePath, destDir string) (string, string, error) {
	baseName := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	ext := constants.NormalizeExt(filepath.Ext(sourcePath))

	var img image.Image
	var err error
	switch {
	case ext == "pdf":
		if n.cfg.PdftoppmPath == "" {
			return "", "SKIPPED: PDF rasterizer not configured.", fmt.Errorf("%w: pdftoppm path not configured", common.ErrNormalization)
		}
		img, err = n.rasterizeFirstPage(ctx, sourcePath)
		if err != nil {
			return "", fmt.Sprintf("PDF rasterization failed: %v", err), fmt.Errorf("%w: %v", common.ErrNormalization, err)
		}
	case constants.AllowedExt(ext):
		img, err = decodeImageFile(sourcePath)
		if err != nil {
			return "", fmt.Sprintf("decode failed: %v", err), fmt.Errorf("%w: %v", common.ErrNormalization, err)
		}
	default:
		return "", "Unsupported file type.", fmt.Errorf("%w: unsupported file type %q", common.ErrNormalization, ext)
	}

	return n.compressImage(img, baseName, destDir)
}

// compressImage runs the encoding waterfall and writes the winning (or
// best-effort) buffer to destDir/<base>.jpg.
func (n *Normalizer) compressImage(img image.Image, baseName, destDir string) (string, string, error) {
	targetBytes := n.cfg.TargetSizeKB * 1024
	finalPath := filepath.Join(destDir, baseName+".jpg")

	// JPEG has no alpha channel; flatten onto white first.
	img = flatten(img)

	var bestEffort []byte
	bestKB := -1.0

	consider := func(buf []byte) float64 {
		kb := float64(len(buf)) / 1024
		if bestKB < 0 || kb < bestKB {
			bestKB = kb
			bestEffort = append([]byte(nil), buf...)
		}
		return kb
	}

	// Attempt 1: high-quality full-size encode.
	buf, err := encodeJPEG(img, qualityHigh)
	if err != nil {
		return "", "", fmt.Errorf("%w: jpeg encode: %v", common.ErrNormalization, err)
	}
	kb := consider(buf)
	if len(buf) <= targetBytes {
		if err := os.WriteFile(finalPath, buf, 0o644); err != nil {
			return "", "", fmt.Errorf("%w: write output: %v", common.ErrNormalization, err)
		}
		return finalPath, fmt.Sprintf("Success with JPEG (Q=%d) at %.1f KB", qualityHigh, kb), nil
	}

	// Attempt 2: medium-quality full-size encode.
	buf, err = encodeJPEG(img, qualityMedium)
	if err != nil {
		return "", "", fmt.Errorf("%w: jpeg encode: %v", common.ErrNormalization, err)
	}
	kb = consider(buf)
	if len(buf) <= targetBytes {
		if err := os.WriteFile(finalPath, buf, 0o644); err != nil {
			return "", "", fmt.Errorf("%w: write output: %v", common.ErrNormalization, err)
		}
		return finalPath, fmt.Sprintf("Success with JPEG (Q=%d) at %.1f KB", qualityMedium, kb), nil
	}

	// Attempt 3: iterative downscale at medium quality.
	bounds := img.Bounds()
	for _, pct := range scalePercents {
		w := bounds.Dx() * pct / 100
		h := bounds.Dy() * pct / 100
		if w < 1 || h < 1 {
			continue
		}
		resized := resize(img, w, h)
		buf, err = encodeJPEG(resized, qualityMedium)
		if err != nil {
			return "", "", fmt.Errorf("%w: jpeg encode: %v", common.ErrNormalization, err)
		}
		kb = consider(buf)
		if len(buf) <= targetBytes {
			if err := os.WriteFile(finalPath, buf, 0o644); err != nil {
				return "", "", fmt.Errorf("%w: write output: %v", common.ErrNormalization, err)
			}
			return finalPath, fmt.Sprintf("Success with %d%% Resize (Q=%d) at %.1f KB", pct, qualityMedium, kb), nil
		}
	}

	// Target never met: keep the smallest encoding produced.
	if err := os.WriteFile(finalPath, bestEffort, 0o644); err != nil {
		return "", "", fmt.Errorf("%w: write output: %v", common.ErrNormalization, err)
	}
	n.log.Warn("imaging.compress.target_not_met",
		"file", baseName,
		"target_kb", n.cfg.TargetSizeKB,
		"best_effort_kb", bestKB,
	)
	return finalPath, fmt.Sprintf("FAILED target, but saved best effort at %.1f KB", bestKB), nil
}

func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	return img, err
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// flatten draws the image over a white background, dropping any alpha.
func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// resize scales with Catmull-Rom resampling.
func resize(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}
