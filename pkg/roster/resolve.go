package roster

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Directory looks characters up by name on one server. Implementations may return
// partial-name matches; the resolver applies its own acceptance rule.
type Directory interface {
	Lookup(ctx context.Context, name string, serverID int) ([]Entity, error)
}

// DefaultMaxLookups bounds concurrent variant lookups per location.
const DefaultMaxLookups = 4

// Resolver matches candidates against a Directory.
type Resolver struct {
	dir        Directory
	servers    *Normalizer
	maxLookups int
	log        *zap.SugaredLogger
}

// NewResolver builds a resolver. maxLookups <= 0 uses DefaultMaxLookups; log may be nil.
func NewResolver(dir Directory, servers *Normalizer, maxLookups int, log *zap.Logger) *Resolver {
	if servers == nil {
		servers = NewNormalizer(nil)
	}
	if maxLookups <= 0 {
		maxLookups = DefaultMaxLookups
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{dir: dir, servers: servers, maxLookups: maxLookups, log: log.Sugar()}
}

// Resolution is the outcome for one slot: an entry, plus a selection when ambiguous.
type Resolution struct {
	Entry   RosterEntry
	Pending *PendingSelection
}

// Resolve resolves every candidate concurrently. Slot i belongs to cands[i].
// It returns ctx.Err() when the scan was cancelled; lookup failures never surface here.
func (r *Resolver) Resolve(ctx context.Context, cands []ParsedCandidate) ([]Resolution, error) {
	out := make([]Resolution, len(cands))
	var g errgroup.Group
	for i, c := range cands {
		g.Go(func() error {
			out[i] = r.ResolveCandidate(ctx, i, c)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveCandidate resolves one candidate. It waits for every lookup it issued before deciding.
func (r *Resolver) ResolveCandidate(ctx context.Context, slot int, c ParsedCandidate) Resolution {
	entry := RosterEntry{
		SlotIndex: slot,
		Name:      c.Name,
		Location:  c.RawLocationToken,
		IsPinned:  c.IsPinned,
	}
	if len(c.PossibleLocations) == 1 {
		entry.Location = c.PossibleLocations[0]
	}
	if len(c.PossibleLocations) == 0 {
		r.log.Debugf("resolve slot=%d name=%s no location for token=%q", slot, c.Name, c.RawLocationToken)
		return Resolution{Entry: entry}
	}

	// the pinned identity is the user's own character: exact name only, never ambiguous
	variants := !c.IsPinned
	perLoc := make([][]ServerCandidate, len(c.PossibleLocations))
	var g errgroup.Group
	for i, loc := range c.PossibleLocations {
		g.Go(func() error {
			perLoc[i] = r.matchAt(ctx, c.Name, loc, variants)
			return nil
		})
	}
	_ = g.Wait()

	var hits []int
	for i, m := range perLoc {
		if len(m) > 0 {
			hits = append(hits, i)
		}
	}

	switch {
	case len(hits) == 0:
		r.log.Infof("resolve slot=%d name=%s locations=%v no match", slot, c.Name, c.PossibleLocations)
		return Resolution{Entry: entry}
	case len(hits) == 1 && (len(perLoc[hits[0]]) == 1 || c.IsPinned):
		opt := perLoc[hits[0]][0]
		entry.apply(opt.Location, *opt.Entity)
		entry.MatchedVariant = opt.MatchedVariant
		r.log.Infof("resolve slot=%d name=%s -> %s@%s variant=%q", slot, c.Name, opt.Entity.Name, opt.Location, opt.MatchedVariant)
		return Resolution{Entry: entry}
	}

	kind := NameChoice
	var options []ServerCandidate
	if len(hits) > 1 {
		kind = LocationChoice
	}
	for _, i := range hits {
		options = append(options, perLoc[i]...)
	}
	first := options[0]
	entry.apply(first.Location, *first.Entity)
	entry.MatchedVariant = first.MatchedVariant
	r.log.Infof("resolve slot=%d name=%s ambiguous kind=%s options=%d", slot, c.Name, kind, len(options))
	return Resolution{
		Entry: entry,
		Pending: &PendingSelection{
			SlotIndex:        slot,
			OriginalName:     c.Name,
			RawLocationToken: c.RawLocationToken,
			Kind:             kind,
			Options:          options,
		},
	}
}

// matchAt returns the accepted matches for name at one location: the exact match if any,
// otherwise every distinct variant match in generation order.
func (r *Resolver) matchAt(ctx context.Context, name, location string, variants bool) []ServerCandidate {
	srv, ok := r.servers.Lookup(location)
	if !ok {
		r.log.Warnf("resolve unknown location %q for %s", location, name)
		return nil
	}
	if e, ok := r.accept(ctx, name, srv); ok {
		return []ServerCandidate{{Location: srv.Name, Found: true, Entity: &e}}
	}
	if !variants {
		return nil
	}

	vs := GenerateVariants(name)
	if len(vs) == 0 {
		return nil
	}
	found := make([]*Entity, len(vs))
	var g errgroup.Group
	g.SetLimit(r.maxLookups)
	for i, v := range vs {
		g.Go(func() error {
			if e, ok := r.accept(ctx, v, srv); ok {
				found[i] = &e
			}
			return nil
		})
	}
	_ = g.Wait()

	var out []ServerCandidate
	seen := map[string]bool{}
	for i, e := range found {
		if e == nil {
			continue
		}
		k := EntityKey(*e)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, ServerCandidate{Location: srv.Name, Found: true, Entity: e, MatchedVariant: vs[i]})
	}
	return out
}

// accept runs one lookup and keeps the first result on the right server whose name
// has the query's rune length. Lookup errors count as no match.
func (r *Resolver) accept(ctx context.Context, name string, srv Server) (Entity, bool) {
	ents, err := r.dir.Lookup(ctx, name, srv.ID)
	if err != nil {
		r.log.Warnf("lookup name=%s server=%d failed: %v", name, srv.ID, err)
		return Entity{}, false
	}
	want := runeLen(name)
	for _, e := range ents {
		if e.ServerID != 0 && e.ServerID != srv.ID {
			continue
		}
		if runeLen(e.Name) != want {
			continue
		}
		if e.Server == "" {
			e.Server = srv.Name
		}
		return e, true
	}
	return Entity{}, false
}

// EntityKey is the identity used to merge and dedupe directory records.
func EntityKey(e Entity) string {
	if e.ID != "" {
		return "id:" + e.ID
	}
	return fmt.Sprintf("sv:%d|name:%s", e.ServerID, strings.ToLower(e.Name))
}
