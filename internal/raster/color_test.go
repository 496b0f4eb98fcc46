package raster

import (
	"errors"
	"image/color"
	"testing"

	"github.com/dunamismax/artifactkit/internal/domain"
)

func TestParseColor(t *testing.T) {
	cases := map[string]color.NRGBA{
		"#fff":        {R: 255, G: 255, B: 255, A: 255},
		"000000":      {A: 255},
		"#11223344":   {R: 0x11, G: 0x22, B: 0x33, A: 0x44},
		"transparent": {},
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		if err != nil {
			t.Fatalf("ParseColor(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseColor(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseColor("#12"); !errors.Is(err, domain.ErrInvalidParameters) {
		t.Fatalf("expected ErrInvalidParameters, got %v", err)
	}
}
