package directory

import (
	"context"
	"fmt"
	"strings"

	"partyscan/models"
	"partyscan/pkg/roster"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// cacheConfidence ranks cached rows below anything the live source returns.
const cacheConfidence = 0.5

const searchLimit = 20

// Store is the local character cache backed by postgres.
type Store struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewStore(db *gorm.DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, log: log.Sugar()}
}

// Lookup returns cached characters whose name contains name. serverID 0 searches every server.
func (s *Store) Lookup(ctx context.Context, name string, serverID int) ([]roster.Entity, error) {
	q := s.db.WithContext(ctx).Model(&models.Character{}).
		Where("name ILIKE ?", "%"+escapeLike(name)+"%")
	if serverID != 0 {
		q = q.Where("server_id = ?", serverID)
	}
	var rows []models.Character
	if err := q.Order("power_score DESC").Limit(searchLimit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("cache lookup %q: %w", name, err)
	}
	out := make([]roster.Entity, 0, len(rows))
	for _, r := range rows {
		out = append(out, entityFromRow(r))
	}
	return out, nil
}

// Upsert writes entities into the cache keyed by their external id. Entities without
// an id cannot be matched later and are skipped.
func (s *Store) Upsert(ctx context.Context, ents []roster.Entity) error {
	rows := make([]models.Character, 0, len(ents))
	for _, e := range ents {
		if e.ID == "" {
			s.log.Debugf("cache skip %s@%d: no character id", e.Name, e.ServerID)
			continue
		}
		rows = append(rows, rowFromEntity(e))
	}
	if len(rows) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "character_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "server_id", "server_name", "level", "class_name", "power_score", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("cache upsert %d rows: %w", len(rows), err)
	}
	return nil
}

func entityFromRow(r models.Character) roster.Entity {
	return roster.Entity{
		ID:         r.CharacterID,
		Name:       r.Name,
		Server:     r.ServerName,
		ServerID:   r.ServerID,
		Level:      r.Level,
		ClassName:  r.ClassName,
		PowerScore: r.PowerScore,
		Confidence: cacheConfidence,
	}
}

func rowFromEntity(e roster.Entity) models.Character {
	return models.Character{
		CharacterID: e.ID,
		Name:        e.Name,
		ServerID:    e.ServerID,
		ServerName:  e.Server,
		Level:       e.Level,
		ClassName:   e.ClassName,
		PowerScore:  e.PowerScore,
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
