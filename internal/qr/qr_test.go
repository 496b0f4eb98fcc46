package qr

import (
	"context"
	"image/color"
	"strings"
	"testing"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, ecc := range []ECC{ECCLow, ECCMedium, ECCQuartile, ECCHigh} {
		t.Run(string(ecc), func(t *testing.T) {
			s, err := Encode("https://example.com", Options{ECC: ecc, Size: 400})
			require.NoError(t, err)
			assert.Equal(t, 400, s.Width)

			text, err := Decode(context.Background(), s)
			require.NoError(t, err)
			assert.Equal(t, "https://example.com", text)
		})
	}
}

func TestQuietZoneIsBackground(t *testing.T) {
	m, err := NewMatrix("hello", ECCMedium)
	require.NoError(t, err)
	s, err := m.Render(Options{Size: 300, Foreground: color.NRGBA{R: 200, A: 255}})
	require.NoError(t, err)

	module, offset, err := m.layout(300)
	require.NoError(t, err)
	for i := 0; i < offset; i++ {
		assert.Equal(t, uint8(255), s.At(i, i).G, "quiet zone pixel %d", i)
	}
	// finder pattern corner is always dark
	assert.True(t, m.Dark(0, 0))
	assert.Equal(t, color.NRGBA{R: 200, A: 255}, s.At(offset+module/2, offset+module/2))
}

func TestSVGUsesSameMatrix(t *testing.T) {
	m, err := NewMatrix("same", ECCLow)
	require.NoError(t, err)
	svg, err := m.SVG(Options{Size: 290})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(svg, "<?xml"))

	dark := 0
	for y := 0; y < m.Size; y++ {
		for x := 0; x < m.Size; x++ {
			if m.Dark(x, y) {
				dark++
			}
		}
	}
	assert.Greater(t, dark, 0)
	assert.LessOrEqual(t, strings.Count(svg, "<rect")-1, dark)
}

func TestEncodeRejectsBadInput(t *testing.T) {
	_, err := Encode("", Options{})
	require.ErrorIs(t, err, domain.ErrInvalidParameters)
	_, err = Encode("x", Options{ECC: "Z"})
	require.ErrorIs(t, err, domain.ErrInvalidParameters)
	_, err = Encode("x", Options{Size: 10})
	require.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestDecodeBlankIsNotFound(t *testing.T) {
	s, err := raster.Filled(200, 200, color.White)
	require.NoError(t, err)
	_, err = Decode(context.Background(), s)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPayloads(t *testing.T) {
	u, err := URL("example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", u)

	wifi, err := WiFi{SSID: "home;net", Password: "p:w"}.Payload()
	require.NoError(t, err)
	assert.Equal(t, `WIFI:T:WPA;S:home\;net;P:p\:w;;`, wifi)

	open, err := WiFi{SSID: "cafe", Security: "nopass", Hidden: true}.Payload()
	require.NoError(t, err)
	assert.Equal(t, "WIFI:T:nopass;S:cafe;H:true;;", open)

	card, err := VCard{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}.Payload()
	require.NoError(t, err)
	assert.Contains(t, card, "FN:Ada Lovelace")
	assert.Contains(t, card, "EMAIL:ada@example.com")

	mail, err := Email("a@b.c", "hi there", "")
	require.NoError(t, err)
	assert.Equal(t, "mailto:a@b.c?subject=hi%20there", mail)

	sms, err := SMS("+15550100", "ok")
	require.NoError(t, err)
	assert.Equal(t, "SMSTO:+15550100:ok", sms)

	_, err = Phone(" ")
	require.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestBuild(t *testing.T) {
	got, err := Build("wifi", map[string]string{"ssid": "home;net", "password": "pw", "hidden": "true"})
	require.NoError(t, err)
	assert.Equal(t, `WIFI:T:WPA;S:home\;net;P:pw;H:true;;`, got)

	got, err = Build("URL", map[string]string{"url": "example.com/x"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/x", got)

	got, err = Build("", map[string]string{"text": "plain"})
	require.NoError(t, err)
	assert.Equal(t, "plain", got)

	got, err = Build("vcard", map[string]string{"first_name": "Ada", "last_name": "Lovelace"})
	require.NoError(t, err)
	assert.Contains(t, got, "FN:Ada Lovelace")

	_, err = Build("wifi", map[string]string{"ssid": "x", "hidden": "maybe"})
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
	_, err = Build("fax", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
}
