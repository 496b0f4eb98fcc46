package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/raster"
	"github.com/dunamismax/artifactkit/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ARTIFACTKIT_CONFIG", "")
	t.Setenv("ARTIFACTKIT_KV_BACKEND", "sqlite")
	t.Setenv("ARTIFACTKIT_KV_PATH", filepath.Join(dir, "state.db"))
	return dir
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 5), B: 120, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestHashText(t *testing.T) {
	isolate(t)

	code, out, _ := run(t, "hash", "--text", "abc")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad")
	assert.True(t, strings.HasPrefix(out, "SHA256"))
}

func TestHashFileAllAlgorithms(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "abc.txt")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	code, out, _ := run(t, "hash", "--alg", "md5,sha1", path)
	require.Equal(t, 0, code)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "900150983cd24fb0d6963f7d28e17f72")
	assert.Contains(t, lines[1], "a9993e364706816aba3e25717850c26c9cd0d89d")
}

func TestHashCompare(t *testing.T) {
	isolate(t)

	code, out, _ := run(t, "hash", "--text", "abc", "--compare",
		"BA7816BF8F01CFEA414140DE5DAE2223B00361A396177A9CB410FF61F20015AD")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "OK: digest matches")

	code, _, stderr := run(t, "hash", "--text", "abc", "--compare", "deadbeef")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, errDigestMismatch.Error())
}

func TestHashNeedsExactlyOneSource(t *testing.T) {
	isolate(t)

	code, _, stderr := run(t, "hash")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "either --text or one FILE")
}

func TestPassword(t *testing.T) {
	isolate(t)

	code, out, _ := run(t, "password", "--length", "20", "--count", "3", "--no-symbols")
	require.Equal(t, 0, code)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for _, l := range lines {
		assert.Len(t, l, 20)
		for _, r := range l {
			assert.True(t, r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9', "unexpected %q", r)
		}
	}
}

func TestPasswordRejectsEmptyCharset(t *testing.T) {
	isolate(t)

	code, _, _ := run(t, "password", "--no-upper", "--no-lower", "--no-digits", "--no-symbols")
	assert.Equal(t, 1, code)
}

func TestQRRoundTrip(t *testing.T) {
	dir := isolate(t)
	out := filepath.Join(dir, "code.png")

	code, _, stderr := run(t, "qr", "encode", "https://example.com/a", "-o", out, "--ecc", "H")
	require.Equal(t, 0, code, stderr)

	code, text, stderr := run(t, "qr", "decode", out)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "https://example.com/a", strings.TrimSpace(text))
}

func TestQREncodeTypedPayload(t *testing.T) {
	dir := isolate(t)
	out := filepath.Join(dir, "call.png")

	code, _, stderr := run(t, "qr", "encode", "--type", "phone", "--field", "number=+15550100", "-o", out)
	require.Equal(t, 0, code, stderr)
	code, text, stderr := run(t, "qr", "decode", out)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "tel:+15550100", strings.TrimSpace(text))

	code, _, stderr = run(t, "qr", "encode", "data", "--type", "url", "-o", out)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "either DATA or --type")
}

func TestQREncodeSVG(t *testing.T) {
	dir := isolate(t)
	out := filepath.Join(dir, "code.svg")

	code, _, stderr := run(t, "qr", "encode", "hello", "-o", out, "--fg", "#112233")
	require.Equal(t, 0, code, stderr)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
}

func TestQREncodeRejectsPDF(t *testing.T) {
	dir := isolate(t)

	code, _, _ := run(t, "qr", "encode", "hello", "-o", filepath.Join(dir, "code.pdf"))
	assert.Equal(t, 1, code)
}

func TestConvert(t *testing.T) {
	dir := isolate(t)
	in := filepath.Join(dir, "in.png")
	writePNG(t, in, 32, 24)
	out := filepath.Join(dir, "nested", "out.jpg")

	code, stdout, stderr := run(t, "convert", in, "-o", out, "--quality", "0.7")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "image/jpeg")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Greater(t, len(data), 2)
	assert.Equal(t, []byte{0xFF, 0xD8}, data[:2])
}

func TestConvertNeedsExtension(t *testing.T) {
	dir := isolate(t)
	in := filepath.Join(dir, "in.png")
	writePNG(t, in, 4, 4)

	code, _, stderr := run(t, "convert", in, "-o", filepath.Join(dir, "out"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "add an extension")
}

func TestPDF(t *testing.T) {
	dir := isolate(t)
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	writePNG(t, a, 40, 20)
	writePNG(t, b, 20, 40)
	out := filepath.Join(dir, "out.pdf")

	code, stdout, stderr := run(t, "pdf", "-o", out, "--page-size", "letter", a, b)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "2 pages")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestSaveAndListHistory(t *testing.T) {
	isolate(t)

	code, _, stderr := run(t, "--save", "hash", "--text", "abc")
	require.Equal(t, 0, code, stderr)
	code, _, stderr = run(t, "--save", "hash", "--text", "xyz")
	require.Equal(t, 0, code, stderr)

	code, out, stderr := run(t, "history", "list", "hashHistory", "--json")
	require.Equal(t, 0, code, stderr)
	var records []domain.HistoryRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)

	code, out, _ = run(t, "history", "list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "hashHistory")

	code, _, stderr = run(t, "history", "clear", "hashHistory")
	require.Equal(t, 0, code, stderr)
	code, out, _ = run(t, "history", "list", "hashHistory", "--json")
	require.Equal(t, 0, code)
	assert.NotContains(t, out, `"id"`)
}

func TestHistoryUnknownCollection(t *testing.T) {
	isolate(t)

	code, _, _ := run(t, "history", "list", "nope")
	assert.Equal(t, 1, code)
}

type oneFrameCamera struct{}

func (oneFrameCamera) Devices(context.Context) ([]source.Device, error) {
	return []source.Device{{ID: "0", Label: "front"}, {ID: "1", Label: "back camera"}}, nil
}

func (oneFrameCamera) Open(_ context.Context, id string) (source.Stream, error) {
	if id != "1" {
		return nil, errors.New("expected the back camera")
	}
	return oneFrameStream{}, nil
}

type oneFrameStream struct{}

func (oneFrameStream) Frame(context.Context) (*raster.Surface, error) { return raster.New(8, 6) }
func (oneFrameStream) Close() error                                   { return nil }

func TestCapture(t *testing.T) {
	dir := isolate(t)
	newCamera = func() source.Camera { return oneFrameCamera{} }
	t.Cleanup(func() { newCamera = source.DefaultCamera })
	out := filepath.Join(dir, "photo.png")

	code, _, stderr := run(t, "capture", "-o", out)
	require.Equal(t, 0, code, stderr)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestCaptureWithoutCamera(t *testing.T) {
	dir := isolate(t)
	newCamera = func() source.Camera { return nil }
	t.Cleanup(func() { newCamera = source.DefaultCamera })

	code, _, stderr := run(t, "capture", "-o", filepath.Join(dir, "photo.jpg"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, domain.ErrCameraUnavailable.Error())
}
