package imaging

import (
	"context"
	"errors"
	"image"
	"os/exec"
	"path/filepath"
	"testing"
)

type scriptedRunner struct {
	outputs []string
	err     error
	calls   int
}

func (s *scriptedRunner) Run(_ context.Context, _ string, _ ...string) ([]byte, []byte, error) {
	s.calls++
	if s.err != nil {
		return nil, nil, s.err
	}
	i := s.calls - 1
	if i >= len(s.outputs) {
		i = len(s.outputs) - 1
	}
	return []byte(s.outputs[i]), nil, nil
}

func writeTestJPEG(t *testing.T, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gate_scorecard.jpg")
	if err := writeJPEG(path, noisyImage(w, h)); err != nil {
		t.Fatal(err)
	}
	return path
}

func dims(t *testing.T, path string) (int, int) {
	t.Helper()
	img, err := decodeImageFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestCorrectOrientationRotatesUntilUpright(t *testing.T) {
	path := writeTestJPEG(t, 60, 30)
	runner := &scriptedRunner{outputs: []string{
		"Page number: 0\nRotate: 90\nOrientation confidence: 12.3\n",
		"Rotate: 0\n",
	}}
	n := NewNormalizer(Config{}, runner, nil)

	if err := n.CorrectOrientation(context.Background(), path); err != nil {
		t.Fatalf("CorrectOrientation: %v", err)
	}
	w, h := dims(t, path)
	if w != 30 || h != 60 {
		t.Errorf("dimensions = %dx%d, want 30x60 after one 90-degree step", w, h)
	}
	if runner.calls != 2 {
		t.Errorf("detector invoked %d times, want 2", runner.calls)
	}
}

func TestCorrectOrientationAlreadyUpright(t *testing.T) {
	path := writeTestJPEG(t, 60, 30)
	runner := &scriptedRunner{outputs: []string{"Rotate: 0\n"}}
	n := NewNormalizer(Config{}, runner, nil)

	if err := n.CorrectOrientation(context.Background(), path); err != nil {
		t.Fatalf("CorrectOrientation: %v", err)
	}
	if w, h := dims(t, path); w != 60 || h != 30 {
		t.Errorf("upright image changed to %dx%d", w, h)
	}
	if runner.calls != 1 {
		t.Errorf("detector invoked %d times, want 1", runner.calls)
	}
}

func TestCorrectOrientationDetectorMissing(t *testing.T) {
	path := writeTestJPEG(t, 60, 30)
	runner := &scriptedRunner{err: &exec.Error{Name: "tesseract", Err: exec.ErrNotFound}}
	n := NewNormalizer(Config{}, runner, nil)

	if err := n.CorrectOrientation(context.Background(), path); err == nil {
		t.Fatal("missing detector binary must surface as an error")
	}
}

func TestCorrectOrientationOSDFailureIsNonFatal(t *testing.T) {
	path := writeTestJPEG(t, 60, 30)
	runner := &scriptedRunner{err: errors.New("exit status 1")}
	n := NewNormalizer(Config{}, runner, nil)

	if err := n.CorrectOrientation(context.Background(), path); err != nil {
		t.Fatalf("mid-process OSD failure must keep current orientation, got %v", err)
	}
	if w, h := dims(t, path); w != 60 || h != 30 {
		t.Errorf("image changed to %dx%d", w, h)
	}
}

func TestCorrectOrientationCapsIterations(t *testing.T) {
	path := writeTestJPEG(t, 60, 30)
	// Detector that always reports a rotation must not loop forever.
	runner := &scriptedRunner{outputs: []string{"Rotate: 180\n"}}
	n := NewNormalizer(Config{}, runner, nil)

	if err := n.CorrectOrientation(context.Background(), path); err != nil {
		t.Fatalf("CorrectOrientation: %v", err)
	}
	if runner.calls != maxOrientationAttempts {
		t.Errorf("detector invoked %d times, want cap of %d", runner.calls, maxOrientationAttempts)
	}
}

func TestRotateGeometry(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 2))
	if b := rotate90CW(src).Bounds(); b.Dx() != 2 || b.Dy() != 4 {
		t.Errorf("rotate90CW bounds = %v", b)
	}
	if b := rotate90CCW(src).Bounds(); b.Dx() != 2 || b.Dy() != 4 {
		t.Errorf("rotate90CCW bounds = %v", b)
	}
	if b := rotate180(src).Bounds(); b.Dx() != 4 || b.Dy() != 2 {
		t.Errorf("rotate180 bounds = %v", b)
	}
}

func TestParseRotation(t *testing.T) {
	if angle, ok := parseRotation([]byte("Rotate: 270\n")); !ok || angle != 270 {
		t.Errorf("got %d/%v", angle, ok)
	}
	if _, ok := parseRotation([]byte("no rotation info")); ok {
		t.Error("want no angle from unrelated output")
	}
}
