package history

import (
	"fmt"
	"sort"

	"github.com/dunamismax/artifactkit/internal/config"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/kv"
)

const (
	HashHistory      = "hashHistory"
	PasswordHistory  = "passwordHistory"
	DocumentBatches  = "documentBatches"
	ScanHistory      = "scanHistory"
	QRHistory        = "qrHistory"
	SignatureHistory = "signatureHistory"
	PhotoHistory     = "photoHistory"
	ConvertHistory   = "convertHistory"
)

// Collections opens one store per tool collection over the same backend.
type Collections struct {
	stores map[string]*Store
}

func NewCollections(store kv.Store, cfg config.HistoryConfig, opts ...Option) *Collections {
	c := &Collections{stores: make(map[string]*Store)}
	for _, key := range []string{HashHistory, PasswordHistory, DocumentBatches, QRHistory, SignatureHistory, PhotoHistory, ConvertHistory} {
		c.stores[key] = New(store, key, cfg.Capacity, opts...)
	}
	c.stores[ScanHistory] = New(store, ScanHistory, cfg.ScanCapacity, opts...)
	return c
}

func (c *Collections) Get(name string) (*Store, error) {
	s, ok := c.stores[name]
	if !ok {
		return nil, fmt.Errorf("%w: history collection %q", domain.ErrNotFound, name)
	}
	return s, nil
}

// MustGet is for the fixed collection names above.
func (c *Collections) MustGet(name string) *Store {
	s, err := c.Get(name)
	if err != nil {
		panic(err)
	}
	return s
}

func (c *Collections) Names() []string {
	out := make([]string, 0, len(c.stores))
	for k := range c.stores {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
