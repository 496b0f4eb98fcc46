package password

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/dunamismax/artifactkit/internal/domain"
)

const (
	MinLength = 4
	MaxLength = 128
	MaxCount  = 50

	upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lower   = "abcdefghijklmnopqrstuvwxyz"
	digits  = "0123456789"
	symbols = "!@#$%^&*()-_=+[]{};:,.<>/?~"
	similar = "il1Lo0O"
	ambig   = "{}[]()/\\'\"`~,;:.<>"
)

type Options struct {
	Length           int  `json:"length"`
	Upper            bool `json:"upper"`
	Lower            bool `json:"lower"`
	Digits           bool `json:"digits"`
	Symbols          bool `json:"symbols"`
	ExcludeSimilar   bool `json:"exclude_similar"`
	ExcludeAmbiguous bool `json:"exclude_ambiguous"`
	Count            int  `json:"count"`
}

func DefaultOptions() Options {
	return Options{Length: 16, Upper: true, Lower: true, Digits: true, Symbols: true, Count: 1}
}

func (o Options) classes() []string {
	var out []string
	for _, c := range []struct {
		on  bool
		set string
	}{{o.Upper, upper}, {o.Lower, lower}, {o.Digits, digits}, {o.Symbols, symbols}} {
		if !c.on {
			continue
		}
		set := c.set
		if o.ExcludeSimilar {
			set = strip(set, similar)
		}
		if o.ExcludeAmbiguous {
			set = strip(set, ambig)
		}
		if set != "" {
			out = append(out, set)
		}
	}
	return out
}

func strip(set, remove string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(remove, r) {
			return -1
		}
		return r
	}, set)
}

// Generate returns Count passwords drawn from crypto/rand. Every selected
// character class appears at least once in each password.
func Generate(o Options) ([]string, error) {
	if o.Count == 0 {
		o.Count = 1
	}
	if o.Length < MinLength || o.Length > MaxLength {
		return nil, fmt.Errorf("%w: length %d outside [%d,%d]", domain.ErrInvalidParameters, o.Length, MinLength, MaxLength)
	}
	if o.Count < 1 || o.Count > MaxCount {
		return nil, fmt.Errorf("%w: count %d outside [1,%d]", domain.ErrInvalidParameters, o.Count, MaxCount)
	}
	classes := o.classes()
	if len(classes) == 0 {
		return nil, fmt.Errorf("%w: select at least one character set", domain.ErrInvalidParameters)
	}
	if len(classes) > o.Length {
		return nil, fmt.Errorf("%w: length %d is shorter than the %d selected sets", domain.ErrInvalidParameters, o.Length, len(classes))
	}
	pool := strings.Join(classes, "")

	out := make([]string, 0, o.Count)
	for i := 0; i < o.Count; i++ {
		pw := make([]byte, o.Length)
		for j, set := range classes {
			c, err := pick(set)
			if err != nil {
				return nil, err
			}
			pw[j] = c
		}
		for j := len(classes); j < o.Length; j++ {
			c, err := pick(pool)
			if err != nil {
				return nil, err
			}
			pw[j] = c
		}
		if err := shuffle(pw); err != nil {
			return nil, err
		}
		out = append(out, string(pw))
	}
	return out, nil
}

func randInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("read random: %w", err)
	}
	return int(v.Int64()), nil
}

func pick(set string) (byte, error) {
	i, err := randInt(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return err
		}
		b[i], b[j] = b[j], b[i]
	}
	return nil
}

type Strength struct {
	Score   int     `json:"score"` // 0..4
	Label   string  `json:"label"`
	Entropy float64 `json:"entropy_bits"`
}

var labels = [...]string{"very weak", "weak", "fair", "strong", "very strong"}

// Estimate scores a password by the entropy of the character sets it draws from.
func Estimate(pw string) Strength {
	if pw == "" {
		return Strength{Label: labels[0]}
	}
	pool := 0
	var hasUpper, hasLower, hasDigit, hasOther bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		default:
			hasOther = true
		}
	}
	if hasUpper {
		pool += 26
	}
	if hasLower {
		pool += 26
	}
	if hasDigit {
		pool += 10
	}
	if hasOther {
		pool += 33
	}
	bits := float64(len([]rune(pw))) * math.Log2(float64(pool))

	score := 0
	switch {
	case bits >= 100:
		score = 4
	case bits >= 72:
		score = 3
	case bits >= 50:
		score = 2
	case bits >= 28:
		score = 1
	}
	return Strength{Score: score, Label: labels[score], Entropy: math.Round(bits*10) / 10}
}
