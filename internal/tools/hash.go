package tools

import (
	"context"
	"fmt"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/hashing"
	"github.com/dunamismax/artifactkit/internal/history"
	"github.com/dunamismax/artifactkit/internal/source"
)

type Hash struct {
	deps     Deps
	acquirer source.Acquirer
}

func NewHash(deps Deps, maxBytes int64) *Hash {
	return &Hash{deps: deps, acquirer: source.HashPreset(maxBytes)}
}

type HashResult struct {
	Source  string          `json:"source"`
	Size    int64           `json:"size"`
	Digests hashing.Digests `json:"digests"`
}

func parseAlgorithms(names []string) ([]hashing.Algorithm, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: select at least one algorithm", domain.ErrInvalidParameters)
	}
	algs := make([]hashing.Algorithm, 0, len(names))
	for _, n := range names {
		a, err := hashing.ParseAlgorithm(n)
		if err != nil {
			return nil, err
		}
		algs = append(algs, a)
	}
	return algs, nil
}

func (h *Hash) Text(ctx context.Context, text string, algorithms []string, save bool) (HashResult, error) {
	res, err := h.text(ctx, text, algorithms, save)
	return res, h.deps.done(ctx, "hash", err, "")
}

func (h *Hash) text(ctx context.Context, text string, algorithms []string, save bool) (HashResult, error) {
	algs, err := parseAlgorithms(algorithms)
	if err != nil {
		return HashResult{}, err
	}
	digests, err := hashing.Text(text, algs...)
	if err != nil {
		return HashResult{}, err
	}
	res := HashResult{Source: "text", Size: int64(len(text)), Digests: digests}
	if save {
		err = h.deps.save(ctx, history.HashHistory, domain.KindTextHash, map[string]any{
			"text":    text,
			"digests": digests,
		})
	}
	return res, err
}

// File acquires the upload under the hash size cap before reading any of it.
func (h *Hash) File(ctx context.Context, up source.Upload, algorithms []string, save bool) (HashResult, error) {
	res, err := h.file(ctx, up, algorithms, save)
	return res, h.deps.done(ctx, "hash", err, "")
}

func (h *Hash) file(ctx context.Context, up source.Upload, algorithms []string, save bool) (HashResult, error) {
	algs, err := parseAlgorithms(algorithms)
	if err != nil {
		return HashResult{}, err
	}
	asset, err := h.acquirer.Acquire(ctx, up)
	if err != nil {
		return HashResult{}, err
	}
	return h.asset(ctx, asset, algs, save)
}

// Asset hashes an already acquired input, such as a file opened by the CLI.
func (h *Hash) Asset(ctx context.Context, asset domain.RawAsset, algorithms []string, save bool) (HashResult, error) {
	algs, err := parseAlgorithms(algorithms)
	if err != nil {
		return HashResult{}, h.deps.done(ctx, "hash", err, "")
	}
	res, err := h.asset(ctx, asset, algs, save)
	return res, h.deps.done(ctx, "hash", err, "")
}

func (h *Hash) asset(ctx context.Context, asset domain.RawAsset, algs []hashing.Algorithm, save bool) (HashResult, error) {
	digests, err := hashing.Sum(asset.Reader(), algs...)
	if err != nil {
		return HashResult{}, err
	}
	res := HashResult{Source: asset.Filename, Size: asset.SizeBytes, Digests: digests}
	if save {
		err = h.deps.save(ctx, history.HashHistory, domain.KindFileHash, res)
	}
	return res, err
}

func (h *Hash) Acquirer() source.Acquirer { return h.acquirer }

func (h *Hash) Compare(a, b string) bool {
	return hashing.Compare(a, b)
}
