package hashing

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/dunamismax/artifactkit/internal/domain"
)

type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
)

var Algorithms = []Algorithm{MD5, SHA1, SHA256, SHA512}

func ParseAlgorithm(in string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.ReplaceAll(strings.TrimSpace(in), "-", "")))
	switch a {
	case MD5, SHA1, SHA256, SHA512:
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown hash algorithm %q", domain.ErrInvalidParameters, in)
}

func (a Algorithm) new() hash.Hash {
	switch a {
	case MD5:
		return md5.New()
	case SHA1:
		return sha1.New()
	case SHA256:
		return sha256.New()
	default:
		return sha512.New()
	}
}

// Digests maps each algorithm to its lowercase hex digest.
type Digests map[Algorithm]string

// Sum hashes r once, feeding every selected algorithm.
func Sum(r io.Reader, algs ...Algorithm) (Digests, error) {
	if len(algs) == 0 {
		return nil, fmt.Errorf("%w: select at least one algorithm", domain.ErrInvalidParameters)
	}
	hashers := make(map[Algorithm]hash.Hash, len(algs))
	writers := make([]io.Writer, 0, len(algs))
	for _, a := range algs {
		if _, err := ParseAlgorithm(string(a)); err != nil {
			return nil, err
		}
		if _, dup := hashers[a]; dup {
			continue
		}
		h := a.new()
		hashers[a] = h
		writers = append(writers, h)
	}
	if _, err := io.Copy(io.MultiWriter(writers...), r); err != nil {
		return nil, fmt.Errorf("%w: read input: %v", domain.ErrAcquisition, err)
	}
	out := make(Digests, len(hashers))
	for a, h := range hashers {
		out[a] = hex.EncodeToString(h.Sum(nil))
	}
	return out, nil
}

func Text(text string, algs ...Algorithm) (Digests, error) {
	return Sum(strings.NewReader(text), algs...)
}

// Compare reports whether two hex digests match, ignoring case and
// surrounding whitespace, in constant time for equal lengths.
func Compare(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
