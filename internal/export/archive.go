package export

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/klauspost/compress/zip"
)

type archiveEntry struct {
	name string
	data []byte
}

// Archive collects already-encoded files into a ZIP. Duplicate names get a
// " (n)" suffix before the extension.
type Archive struct {
	entries []archiveEntry
	used    map[string]bool
	now     func() time.Time
}

func NewArchive() *Archive {
	return &Archive{used: make(map[string]bool), now: time.Now}
}

// Add stores data and returns the name it was stored under.
func (a *Archive) Add(name string, data []byte) string {
	name = strings.TrimLeft(path.Clean("/"+strings.ReplaceAll(name, "\\", "/")), "/")
	if name == "" || name == "." {
		name = "file"
	}
	unique := name
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; a.used[unique]; n++ {
		unique = fmt.Sprintf("%s (%d)%s", stem, n, ext)
	}
	a.used[unique] = true
	a.entries = append(a.entries, archiveEntry{name: unique, data: data})
	return unique
}

func (a *Archive) Len() int { return len(a.entries) }

func (a *Archive) Bytes() ([]byte, error) {
	if len(a.entries) == 0 {
		return nil, fmt.Errorf("%w: archive is empty", domain.ErrInvalidParameters)
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	modified := a.now()
	for _, e := range a.entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: zip %s: %v", domain.ErrExport, e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, fmt.Errorf("%w: zip %s: %v", domain.ErrExport, e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: close zip: %v", domain.ErrExport, err)
	}
	return buf.Bytes(), nil
}
