package tools

import (
	"context"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/history"
	"github.com/dunamismax/artifactkit/internal/password"
)

type Passwords struct {
	deps Deps
}

func NewPasswords(deps Deps) *Passwords {
	return &Passwords{deps: deps}
}

type GeneratedPassword struct {
	Password string            `json:"password"`
	Strength password.Strength `json:"strength"`
}

func (p *Passwords) Generate(ctx context.Context, opts password.Options, save bool) ([]GeneratedPassword, error) {
	out, err := p.generate(ctx, opts, save)
	return out, p.deps.done(ctx, "password", err, "")
}

func (p *Passwords) generate(ctx context.Context, opts password.Options, save bool) ([]GeneratedPassword, error) {
	pws, err := password.Generate(opts)
	if err != nil {
		return nil, err
	}
	out := make([]GeneratedPassword, len(pws))
	for i, pw := range pws {
		out[i] = GeneratedPassword{Password: pw, Strength: password.Estimate(pw)}
	}
	if save {
		for _, g := range out {
			if err := p.deps.save(ctx, history.PasswordHistory, domain.KindPassword, g); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

func (p *Passwords) Strength(pw string) password.Strength {
	return password.Estimate(pw)
}
