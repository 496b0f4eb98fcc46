package tools

import (
	"context"
	"fmt"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/notes"
)

type Notepad struct {
	deps  Deps
	notes *notes.Notepad
}

func NewNotepad(deps Deps, n *notes.Notepad) *Notepad {
	return &Notepad{deps: deps, notes: n}
}

func (n *Notepad) available() error {
	if n.notes == nil {
		return fmt.Errorf("%w: notes are not configured", domain.ErrNotFound)
	}
	return nil
}

func (n *Notepad) Load(ctx context.Context, site, password string) (notes.Note, error) {
	if err := n.available(); err != nil {
		return notes.Note{}, n.deps.done(ctx, "notepad", err, "")
	}
	note, err := n.notes.Load(ctx, site, password)
	return note, n.deps.done(ctx, "notepad", err, "")
}

func (n *Notepad) Save(ctx context.Context, site string, windows []string, password string) (notes.Note, error) {
	if err := n.available(); err != nil {
		return notes.Note{}, n.deps.done(ctx, "notepad", err, "")
	}
	note, err := n.notes.Save(ctx, site, windows, password)
	return note, n.deps.done(ctx, "notepad", err, "Note saved")
}

func (n *Notepad) SetPassword(ctx context.Context, site, oldPassword, newPassword string) (notes.Note, error) {
	if err := n.available(); err != nil {
		return notes.Note{}, n.deps.done(ctx, "notepad", err, "")
	}
	note, err := n.notes.SetPassword(ctx, site, oldPassword, newPassword)
	return note, n.deps.done(ctx, "notepad", err, "Password updated")
}

func (n *Notepad) Delete(ctx context.Context, site, password string) error {
	if err := n.available(); err != nil {
		return n.deps.done(ctx, "notepad", err, "")
	}
	return n.deps.done(ctx, "notepad", n.notes.Delete(ctx, site, password), "Note deleted")
}
