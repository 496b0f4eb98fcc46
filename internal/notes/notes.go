// Package notes stores per-site text notes, optionally sealed with a password.
package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/dunamismax/artifactkit/internal/config"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/kv"
	"github.com/dunamismax/artifactkit/internal/notify"
	"github.com/dunamismax/artifactkit/internal/pipeline"
	"github.com/dunamismax/artifactkit/internal/storage"
	"github.com/rs/zerolog"
)

const (
	keyPrefix          = "note:"
	maxSiteLength      = 128
	DefaultAutosave    = time.Second
	DefaultSyncTimeout = 10 * time.Second
)

// Note is the stored form. For protected notes Windows is empty and the
// content lives in EncryptedContent.
type Note struct {
	Windows             []string  `json:"windows,omitempty"`
	LastModified        time.Time `json:"last_modified"`
	IsPasswordProtected bool      `json:"is_password_protected"`
	EncryptedContent    string    `json:"encrypted_content,omitempty"`
}

type Options struct {
	AutosaveDelay time.Duration
	Sync          storage.ObjectStore
	SyncPrefix    string
	SyncTimeout   time.Duration
	Sink          notify.Sink
	Logger        zerolog.Logger
}

func OptionsFrom(cfg config.NotesConfig, sync storage.ObjectStore, sink notify.Sink, logger zerolog.Logger) Options {
	opts := Options{
		AutosaveDelay: cfg.AutosaveDelay,
		SyncPrefix:    cfg.SyncPrefix,
		SyncTimeout:   cfg.SyncTimeout,
		Sink:          sink,
		Logger:        logger,
	}
	if cfg.CloudSync {
		opts.Sync = sync
	}
	return opts
}

type Notepad struct {
	kv   kv.Store
	opts Options
	kdf  kdfParams
	now  func() time.Time

	mu        sync.Mutex
	pending   map[string]*pipeline.Debouncer
	syncGroup sync.WaitGroup
}

func New(store kv.Store, opts Options) *Notepad {
	if opts.AutosaveDelay <= 0 {
		opts.AutosaveDelay = DefaultAutosave
	}
	if opts.SyncTimeout <= 0 {
		opts.SyncTimeout = DefaultSyncTimeout
	}
	if strings.TrimSpace(opts.SyncPrefix) == "" {
		opts.SyncPrefix = "notes"
	}
	if opts.Sink == nil {
		opts.Sink = notify.Nop()
	}
	return &Notepad{
		kv:      store,
		opts:    opts,
		kdf:     defaultKDF,
		now:     time.Now,
		pending: make(map[string]*pipeline.Debouncer),
	}
}

func validSite(site string) (string, error) {
	site = strings.TrimSpace(site)
	if site == "" {
		return "", fmt.Errorf("%w: site is required", domain.ErrInvalidParameters)
	}
	if len(site) > maxSiteLength || strings.ContainsAny(site, " \t\r\n/") {
		return "", fmt.Errorf("%w: invalid site %q", domain.ErrInvalidParameters, site)
	}
	return site, nil
}

// Stored returns the note as persisted, without opening it.
func (n *Notepad) Stored(ctx context.Context, site string) (Note, bool, error) {
	site, err := validSite(site)
	if err != nil {
		return Note{}, false, err
	}
	raw, ok, err := n.kv.Get(ctx, keyPrefix+site)
	if err != nil || !ok {
		return Note{}, false, err
	}
	var note Note
	if err := json.Unmarshal([]byte(raw), &note); err != nil {
		return Note{}, false, fmt.Errorf("%w: note %s: %v", domain.ErrDecode, site, err)
	}
	return note, true, nil
}

// Load returns the note with its windows readable. A site without a note
// gets a single empty window.
func (n *Notepad) Load(ctx context.Context, site, password string) (Note, error) {
	note, ok, err := n.Stored(ctx, site)
	if err != nil {
		return Note{}, err
	}
	if !ok {
		return Note{Windows: []string{""}}, nil
	}
	if !note.IsPasswordProtected {
		if len(note.Windows) == 0 {
			note.Windows = []string{""}
		}
		return note, nil
	}
	if password == "" {
		return Note{}, fmt.Errorf("%w: note is password protected", domain.ErrInvalidParameters)
	}
	windows, err := unseal(note.EncryptedContent, password)
	if err != nil {
		return Note{}, err
	}
	note.Windows = windows
	note.EncryptedContent = ""
	return note, nil
}

// Save replaces the note. A non-empty password seals it; saving a protected
// note requires its current password.
func (n *Notepad) Save(ctx context.Context, site string, windows []string, password string) (Note, error) {
	site, err := validSite(site)
	if err != nil {
		return Note{}, err
	}
	existing, ok, err := n.Stored(ctx, site)
	if err != nil && !errors.Is(err, domain.ErrDecode) {
		return Note{}, err
	}
	if ok && existing.IsPasswordProtected {
		if password == "" {
			return Note{}, fmt.Errorf("%w: note is password protected", domain.ErrInvalidParameters)
		}
		if _, err := unseal(existing.EncryptedContent, password); err != nil {
			return Note{}, err
		}
	}
	return n.write(ctx, site, windows, password)
}

// SetPassword changes or removes (newPassword "") the note's password.
func (n *Notepad) SetPassword(ctx context.Context, site, oldPassword, newPassword string) (Note, error) {
	note, err := n.Load(ctx, site, oldPassword)
	if err != nil {
		return Note{}, err
	}
	return n.write(ctx, site, note.Windows, newPassword)
}

func (n *Notepad) write(ctx context.Context, site string, windows []string, password string) (Note, error) {
	if len(windows) == 0 {
		windows = []string{""}
	}
	note := Note{LastModified: n.now().UTC()}
	if password != "" {
		sealed, err := seal(windows, password, n.kdf)
		if err != nil {
			return Note{}, fmt.Errorf("seal note: %w", err)
		}
		note.IsPasswordProtected = true
		note.EncryptedContent = sealed
	} else {
		note.Windows = append([]string(nil), windows...)
	}

	raw, err := json.Marshal(note)
	if err != nil {
		return Note{}, err
	}
	if err := n.kv.Set(ctx, keyPrefix+site, string(raw)); err != nil {
		return Note{}, err
	}
	n.sync(site, raw)

	if note.IsPasswordProtected {
		note.Windows = append([]string(nil), windows...)
	}
	return note, nil
}

// Delete removes the note. Protected notes need the password.
func (n *Notepad) Delete(ctx context.Context, site, password string) error {
	site, err := validSite(site)
	if err != nil {
		return err
	}
	n.cancelAutosave(site)
	note, ok, err := n.Stored(ctx, site)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: note %s", domain.ErrNotFound, site)
	}
	if note.IsPasswordProtected {
		if password == "" {
			return fmt.Errorf("%w: note is password protected", domain.ErrInvalidParameters)
		}
		if _, err := unseal(note.EncryptedContent, password); err != nil {
			return err
		}
	}
	if err := n.kv.Remove(ctx, keyPrefix+site); err != nil {
		return err
	}
	n.unsync(site)
	return nil
}

// Autosave schedules a Save after the autosave delay; later calls for the
// same site replace the pending content.
func (n *Notepad) Autosave(site string, windows []string, password string) {
	windows = append([]string(nil), windows...)
	n.mu.Lock()
	d, ok := n.pending[site]
	if !ok {
		d = pipeline.NewDebouncer(n.opts.AutosaveDelay)
		n.pending[site] = d
	}
	n.mu.Unlock()

	d.Trigger(func() {
		ctx := context.Background()
		if _, err := n.Save(ctx, site, windows, password); err != nil {
			n.opts.Logger.Warn().Err(err).Str("site", site).Msg("autosave failed")
			_ = notify.Report(ctx, n.opts.Sink, err)
		}
	})
}

// Flush runs any pending autosave for site now.
func (n *Notepad) Flush(site string) bool {
	n.mu.Lock()
	d, ok := n.pending[site]
	n.mu.Unlock()
	return ok && d.Flush()
}

func (n *Notepad) cancelAutosave(site string) {
	n.mu.Lock()
	d, ok := n.pending[site]
	delete(n.pending, site)
	n.mu.Unlock()
	if ok {
		d.Stop()
	}
}

// Close flushes pending autosaves and waits for background syncs.
func (n *Notepad) Close() {
	n.mu.Lock()
	pending := make([]*pipeline.Debouncer, 0, len(n.pending))
	for _, d := range n.pending {
		pending = append(pending, d)
	}
	n.mu.Unlock()
	for _, d := range pending {
		d.Flush()
	}
	n.syncGroup.Wait()
}

func (n *Notepad) objectKey(site string) string {
	return path.Join(n.opts.SyncPrefix, site+".json")
}

// sync copies the stored note to object storage in the background. Failures
// never affect the local save.
func (n *Notepad) sync(site string, raw []byte) {
	if n.opts.Sync == nil {
		return
	}
	n.syncGroup.Add(1)
	go func() {
		defer n.syncGroup.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.opts.SyncTimeout)
		defer cancel()
		if err := n.opts.Sync.WriteObject(ctx, n.objectKey(site), raw, "application/json"); err != nil {
			n.opts.Logger.Warn().Err(err).Str("site", site).Msg("note sync failed")
			n.opts.Sink.Notify(ctx, notify.LevelInfo, "Saved locally, cloud sync is unavailable")
		}
	}()
}

func (n *Notepad) unsync(site string) {
	if n.opts.Sync == nil {
		return
	}
	n.syncGroup.Add(1)
	go func() {
		defer n.syncGroup.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.opts.SyncTimeout)
		defer cancel()
		if err := n.opts.Sync.DeleteObject(ctx, n.objectKey(site)); err != nil {
			n.opts.Logger.Warn().Err(err).Str("site", site).Msg("note sync delete failed")
		}
	}()
}
