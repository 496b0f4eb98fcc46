package raster

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/dunamismax/artifactkit/internal/domain"
)

// ParseColor reads #rgb, #rrggbb or #rrggbbaa. The leading # is optional and
// "transparent" gives a zero colour.
func ParseColor(in string) (color.NRGBA, error) {
	s := strings.ToLower(strings.TrimSpace(in))
	if s == "transparent" {
		return color.NRGBA{}, nil
	}
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) == 6 {
		s += "ff"
	}
	if len(s) != 8 {
		return color.NRGBA{}, fmt.Errorf("%w: colour %q", domain.ErrInvalidParameters, in)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: colour %q", domain.ErrInvalidParameters, in)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
