package qr

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/raster"
	qrcode "github.com/yeqown/go-qrcode/v2"
)

type ECC string

const (
	ECCLow      ECC = "L"
	ECCMedium   ECC = "M"
	ECCQuartile ECC = "Q"
	ECCHigh     ECC = "H"
)

const (
	QuietZone   = 4
	DefaultSize = 512
)

func (e ECC) level() (qrcode.EncodeOption, error) {
	switch strings.ToUpper(string(e)) {
	case "L":
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionLow), nil
	case "", "M":
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionMedium), nil
	case "Q":
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionQuart), nil
	case "H":
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionHighest), nil
	}
	return nil, fmt.Errorf("%w: error correction %q", domain.ErrInvalidParameters, e)
}

// Matrix is the module grid of a symbol without its quiet zone.
type Matrix struct {
	Size int
	dark []bool
}

func (m Matrix) Dark(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Size || y >= m.Size {
		return false
	}
	return m.dark[y*m.Size+x]
}

// matrixWriter captures the encoder output instead of drawing it.
type matrixWriter struct {
	out *Matrix
}

func (w matrixWriter) Write(mat qrcode.Matrix) error {
	size := mat.Width()
	w.out.Size = size
	w.out.dark = make([]bool, size*size)
	mat.Iterate(qrcode.IterDirection_ROW, func(x, y int, v qrcode.QRValue) {
		if x < size && y < size {
			w.out.dark[y*size+x] = v.IsSet()
		}
	})
	return nil
}

func (matrixWriter) Close() error { return nil }

func NewMatrix(data string, ecc ECC) (Matrix, error) {
	if data == "" {
		return Matrix{}, fmt.Errorf("%w: qr content is empty", domain.ErrInvalidParameters)
	}
	level, err := ecc.level()
	if err != nil {
		return Matrix{}, err
	}
	code, err := qrcode.NewWith(data, level)
	if err != nil {
		return Matrix{}, fmt.Errorf("%w: encode qr: %v", domain.ErrInvalidParameters, err)
	}
	var m Matrix
	if err := code.Save(matrixWriter{out: &m}); err != nil {
		return Matrix{}, fmt.Errorf("%w: encode qr: %v", domain.ErrExport, err)
	}
	return m, nil
}

type Options struct {
	ECC        ECC
	Size       int
	Foreground color.Color
	Background color.Color
}

func (o Options) withDefaults() Options {
	if o.Size == 0 {
		o.Size = DefaultSize
	}
	if o.Foreground == nil {
		o.Foreground = color.Black
	}
	if o.Background == nil {
		o.Background = color.White
	}
	return o
}

// layout returns the module size in pixels and the offset of the first module.
func (m Matrix) layout(size int) (int, int, error) {
	total := m.Size + 2*QuietZone
	module := size / total
	if module < 1 {
		return 0, 0, fmt.Errorf("%w: %dpx is too small for a %d-module code", domain.ErrInvalidParameters, size, m.Size)
	}
	return module, (size-module*total)/2 + QuietZone*module, nil
}

// Render draws the matrix onto a Size x Size surface with a quiet zone.
func (m Matrix) Render(opts Options) (*raster.Surface, error) {
	opts = opts.withDefaults()
	module, offset, err := m.layout(opts.Size)
	if err != nil {
		return nil, err
	}
	s, err := raster.Filled(opts.Size, opts.Size, opts.Background)
	if err != nil {
		return nil, err
	}
	fg := color.NRGBAModel.Convert(opts.Foreground).(color.NRGBA)
	for y := 0; y < m.Size; y++ {
		for x := 0; x < m.Size; x++ {
			if !m.Dark(x, y) {
				continue
			}
			for py := 0; py < module; py++ {
				for px := 0; px < module; px++ {
					s.Set(offset+x*module+px, offset+y*module+py, fg)
				}
			}
		}
	}
	return s, nil
}

// SVG renders the same matrix as vector rectangles, merging horizontal runs.
func (m Matrix) SVG(opts Options) (string, error) {
	opts = opts.withDefaults()
	module, offset, err := m.layout(opts.Size)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?><svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d" shape-rendering="crispEdges">`,
		opts.Size, opts.Size, opts.Size, opts.Size)
	fmt.Fprintf(&sb, `<rect width="%d" height="%d" fill="%s"/>`, opts.Size, opts.Size, hex(opts.Background))
	fmt.Fprintf(&sb, `<g fill="%s">`, hex(opts.Foreground))
	for y := 0; y < m.Size; y++ {
		for x := 0; x < m.Size; {
			if !m.Dark(x, y) {
				x++
				continue
			}
			run := 1
			for m.Dark(x+run, y) {
				run++
			}
			fmt.Fprintf(&sb, `<rect x="%d" y="%d" width="%d" height="%d"/>`,
				offset+x*module, offset+y*module, run*module, module)
			x += run
		}
	}
	sb.WriteString(`</g></svg>`)
	return sb.String(), nil
}

// Encode is NewMatrix followed by Render.
func Encode(data string, opts Options) (*raster.Surface, error) {
	m, err := NewMatrix(data, opts.ECC)
	if err != nil {
		return nil, err
	}
	return m.Render(opts)
}

func hex(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B)
}
