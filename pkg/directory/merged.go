package directory

import (
	"context"
	"errors"
	"sort"

	"partyscan/pkg/roster"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Cache is a directory source that also accepts write-through results.
type Cache interface {
	roster.Directory
	Upsert(ctx context.Context, ents []roster.Entity) error
}

// Merged queries the local cache and the live source together and merges the results.
// Either source may be nil.
type Merged struct {
	local Cache
	live  roster.Directory
	log   *zap.SugaredLogger
}

func NewMerged(local Cache, live roster.Directory, log *zap.Logger) *Merged {
	if log == nil {
		log = zap.NewNop()
	}
	return &Merged{local: local, live: live, log: log.Sugar()}
}

// Lookup returns the union of both sources, deduplicated by EntityKey with the higher
// Confidence winning, ordered by power score. It fails only when every source failed.
func (m *Merged) Lookup(ctx context.Context, name string, serverID int) ([]roster.Entity, error) {
	var (
		localRes, liveRes []roster.Entity
		localErr, liveErr error
		g                 errgroup.Group
	)
	if m.local != nil {
		g.Go(func() error {
			localRes, localErr = m.local.Lookup(ctx, name, serverID)
			return nil
		})
	}
	if m.live != nil {
		g.Go(func() error {
			liveRes, liveErr = m.live.Lookup(ctx, name, serverID)
			return nil
		})
	}
	_ = g.Wait()

	if localErr != nil {
		m.log.Warnf("directory local name=%s server=%d: %v", name, serverID, localErr)
	}
	if liveErr != nil {
		m.log.Warnf("directory live name=%s server=%d: %v", name, serverID, liveErr)
	}
	if (m.local == nil || localErr != nil) && (m.live == nil || liveErr != nil) {
		if err := errors.Join(localErr, liveErr); err != nil {
			return nil, err
		}
	}

	if m.local != nil && len(liveRes) > 0 {
		if err := m.local.Upsert(ctx, liveRes); err != nil {
			m.log.Warnf("directory write-through name=%s: %v", name, err)
		}
	}
	return Merge(localRes, liveRes), nil
}

// Merge combines result sets keyed by roster.EntityKey. On a key collision the
// entity with the higher Confidence is kept; ties keep the earlier one.
func Merge(sets ...[]roster.Entity) []roster.Entity {
	idx := map[string]int{}
	var out []roster.Entity
	for _, set := range sets {
		for _, e := range set {
			k := roster.EntityKey(e)
			if i, ok := idx[k]; ok {
				if e.Confidence > out[i].Confidence {
					out[i] = e
				}
				continue
			}
			idx[k] = len(out)
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PowerScore > out[j].PowerScore })
	return out
}
