package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner simulates pdftoppm and tesseract without external binaries.
// For pdftoppm it writes the requested page images; for tesseract it returns
// text derived from the image filename.
type fakeRunner struct {
	pages       int
	pdftoppmErr error
	failPage    string // image basename whose recognition fails
	calls       []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, name)
	switch {
	case strings.Contains(name, "pdftoppm"):
		if f.pdftoppmErr != nil {
			return nil, []byte("rasterization failed"), f.pdftoppmErr
		}
		prefix := args[len(args)-1]
		for i := 1; i <= f.pages; i++ {
			if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, i), []byte("png"), 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case strings.Contains(name, "tesseract"):
		img := args[0]
		if f.failPage != "" && strings.HasSuffix(img, f.failPage) {
			return nil, []byte("empty page"), errors.New("recognition failed")
		}
		return []byte("text from " + img), nil, nil
	}
	return nil, nil, fmt.Errorf("unexpected binary %q", name)
}

func newTestEngine(r Runner) *Engine {
	e := NewEngine(Config{}, nil)
	e.runner = r
	return e
}

func TestRecognizePDFAllPages(t *testing.T) {
	runner := &fakeRunner{pages: 3}
	e := newTestEngine(runner)

	text, pages, err := e.RecognizePDF(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
	assert.Equal(t, 3, strings.Count(text, "text from"))
	assert.Equal(t, 2, strings.Count(text, "\f"), "pages separated by form feeds")
}

func TestRecognizePDFFailsWhenRasterizationFails(t *testing.T) {
	runner := &fakeRunner{pdftoppmErr: errors.New("no such file")}
	e := newTestEngine(runner)

	_, _, err := e.RecognizePDF(context.Background(), []byte("%PDF"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftoppm")
}

func TestRecognizePDFBadPageContributesNothing(t *testing.T) {
	runner := &fakeRunner{pages: 2, failPage: "page-1.png"}
	e := newTestEngine(runner)

	text, pages, err := e.RecognizePDF(context.Background(), []byte("%PDF"))
	require.NoError(t, err, "one bad page must not abort the document")
	assert.Equal(t, 2, pages)
	assert.Equal(t, 1, strings.Count(text, "text from"))
}

func TestRecognizePDFHonorsMaxPages(t *testing.T) {
	runner := &fakeRunner{pages: 5}
	e := NewEngine(Config{MaxPages: 2}, nil)
	e.runner = runner

	_, pages, err := e.RecognizePDF(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
}

func TestRecognizeImage(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestEngine(runner)

	text, err := e.RecognizeImage(context.Background(), []byte("png"), "png")
	require.NoError(t, err)
	assert.Contains(t, text, "image.png")
}

func TestTruncateCapsCapturedStderr(t *testing.T) {
	long := strings.Repeat("x", 600)
	assert.Equal(t, "short", truncate("short", 512))
	assert.Equal(t, long[:512]+"...(truncated)", truncate(long, 512))
}
