package imaging

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// rasterizeFirstPage renders page 1 of a PDF to an in-memory image using the
// configured pdftoppm binary. The PDF is validated with pdfcpu first so a
// corrupt file fails before we shell out.
func (n *Normalizer) rasterizeFirstPage(ctx context.Context, pdfPath string) (image.Image, error) {
	if err := api.ValidateFile(pdfPath, nil); err != nil {
		return nil, fmt.Errorf("invalid pdf: %w", err)
	}
	if pages, err := api.PageCountFile(pdfPath); err == nil {
		n.log.Debug("imaging.pdf.page_count", "path", pdfPath, "pages", pages)
	}

	tmpDir, err := os.MkdirTemp("", "scv-raster-*")
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := os.RemoveAll(tmpDir); rerr != nil {
			n.log.Warn("imaging.pdf.tmp_cleanup_error", "dir", tmpDir, "error", rerr)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -jpeg -f 1 -l 1 <in.pdf> <tmp/page>
	_, errb, err := n.runner.Run(ctx, n.cfg.PdftoppmPath,
		"-r", fmt.Sprintf("%d", n.cfg.RasterDPI), "-jpeg", "-f", "1", "-l", "1", pdfPath, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w (%s)", err, truncate(string(errb), 512))
	}

	matches, _ := filepath.Glob(prefix + "-*.jpg")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no images")
	}
	return decodeImageFile(matches[0])
}
