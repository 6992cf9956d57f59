package roster

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Config tunes a Scanner. The zero value is usable.
type Config struct {
	// MaxConcurrentLookups bounds variant lookups per location; <= 0 uses DefaultMaxLookups.
	MaxConcurrentLookups int
	Logger               *zap.Logger
	// Servers overrides the canonical server table.
	Servers []Server
}

// Scanner runs the extraction and resolution pipeline for one recognized text.
type Scanner struct {
	norm     *Normalizer
	resolver *Resolver
	log      *zap.SugaredLogger
}

func NewScanner(dir Directory, cfg Config) *Scanner {
	lg := cfg.Logger
	if lg == nil {
		lg = zap.NewNop()
	}
	n := NewNormalizer(cfg.Servers)
	return &Scanner{
		norm:     n,
		resolver: NewResolver(dir, n, cfg.MaxConcurrentLookups, lg),
		log:      lg.Sugar(),
	}
}

// Normalizer exposes the scanner's server table.
func (s *Scanner) Normalizer() *Normalizer { return s.norm }

// Run extracts candidates from text and resolves them. An empty text returns ErrNoText;
// a cancelled ctx returns ctx.Err(). A text with no usable candidates yields an empty session.
func (s *Scanner) Run(ctx context.Context, text string, pinned *Identity) (*Session, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoText
	}
	if pinned != nil && pinned.Name == "" {
		pinned = nil
	}
	cands := Extract(text, pinned, s.norm)
	s.log.Infof("scan extracted candidates=%d pinned=%v", len(cands), pinned != nil)

	res, err := s.resolver.Resolve(ctx, cands)
	if err != nil {
		s.log.Infof("scan cancelled: %v", err)
		return nil, err
	}
	sess := NewSession(cands, res)
	sum := sess.Summary()
	s.log.Infof("scan done entries=%d pending=%d total=%.0f grade=%s",
		len(sum.Entries), len(sum.PendingSelections), sum.TotalPower, sum.Grade)
	return sess, nil
}
