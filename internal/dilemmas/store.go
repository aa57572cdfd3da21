package dilemmas

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the persistence boundary of the dilemmas feature.
type Store interface {
	ListDilemmas(ctx context.Context, tag string) ([]Dilemma, error)
	// GetDilemma returns ErrDilemmaNotFound when id is unknown.
	GetDilemma(ctx context.Context, id string) (*Dilemma, error)

	// LatestAIResponse returns (nil, nil) when the dilemma has no response yet.
	LatestAIResponse(ctx context.Context, dilemmaID string) (*AIResponse, error)
	// LatestAIResponses returns the current response of every dilemma that has one.
	LatestAIResponses(ctx context.Context) (map[string]AIResponse, error)
	InsertAIResponse(ctx context.Context, r *AIResponse) error
	AIResponseHistory(ctx context.Context, dilemmaID string, limit int) ([]AIResponse, error)

	UpsertUserResponse(ctx context.Context, r *UserResponse) error
	ListUserResponses(ctx context.Context, sessionID string) ([]UserResponse, error)
	CountUserResponsesByOption(ctx context.Context, dilemmaID string) (map[string]int, error)

	UpsertConsistencyScore(ctx context.Context, s *ConsistencyScore) error
	// GetConsistencyScore returns (nil, nil) when the session has no score.
	GetConsistencyScore(ctx context.Context, sessionID string) (*ConsistencyScore, error)
}

// GormStore is the Postgres Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(d *gorm.DB) *GormStore {
	return &GormStore{db: d}
}

func orderedOptions(tx *gorm.DB) *gorm.DB {
	return tx.Order("position ASC, option_id ASC")
}

func (s *GormStore) ListDilemmas(ctx context.Context, tag string) ([]Dilemma, error) {
	var out []Dilemma
	q := s.db.WithContext(ctx).Preload("Options", orderedOptions).Order("id")
	if tag != "" {
		q = q.Where("? = ANY(tags)", tag)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list dilemmas: %w", err)
	}
	return out, nil
}

func (s *GormStore) GetDilemma(ctx context.Context, id string) (*Dilemma, error) {
	var d Dilemma
	err := s.db.WithContext(ctx).Preload("Options", orderedOptions).First(&d, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrDilemmaNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get dilemma %s: %w", id, err)
	}
	return &d, nil
}

func (s *GormStore) LatestAIResponse(ctx context.Context, dilemmaID string) (*AIResponse, error) {
	var rows []AIResponse
	err := s.db.WithContext(ctx).
		Where("dilemma_id = ?", dilemmaID).
		Order("created_at DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("latest ai response for %s: %w", dilemmaID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *GormStore) LatestAIResponses(ctx context.Context) (map[string]AIResponse, error) {
	var rows []AIResponse
	err := s.db.WithContext(ctx).Raw(`
		SELECT DISTINCT ON (dilemma_id) *
		FROM dilemmas.ai_responses
		ORDER BY dilemma_id, created_at DESC
	`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("latest ai responses: %w", err)
	}

	out := make(map[string]AIResponse, len(rows))
	for _, r := range rows {
		out[r.DilemmaID] = r
	}
	return out, nil
}

func (s *GormStore) InsertAIResponse(ctx context.Context, r *AIResponse) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("insert ai response: %w", classifyPgError(err))
	}
	return nil
}

func (s *GormStore) AIResponseHistory(ctx context.Context, dilemmaID string, limit int) ([]AIResponse, error) {
	var out []AIResponse
	err := s.db.WithContext(ctx).
		Where("dilemma_id = ?", dilemmaID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("ai response history for %s: %w", dilemmaID, err)
	}
	return out, nil
}

// UpsertUserResponse writes r in a single INSERT ... ON CONFLICT statement and
// reloads the stored row into r.
func (s *GormStore) UpsertUserResponse(ctx context.Context, r *UserResponse) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	err := s.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "dilemma_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"option_id", "reasoning", "updated_at"}),
		},
		clause.Returning{},
	).Create(r).Error
	if err != nil {
		return fmt.Errorf("save user response: %w", classifyPgError(err))
	}
	return nil
}

func (s *GormStore) ListUserResponses(ctx context.Context, sessionID string) ([]UserResponse, error) {
	var out []UserResponse
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("dilemma_id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list user responses: %w", err)
	}
	return out, nil
}

func (s *GormStore) CountUserResponsesByOption(ctx context.Context, dilemmaID string) (map[string]int, error) {
	var rows []struct {
		OptionID string
		Count    int
	}
	err := s.db.WithContext(ctx).
		Model(&UserResponse{}).
		Select("option_id, COUNT(*) AS count").
		Where("dilemma_id = ?", dilemmaID).
		Group("option_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count user responses for %s: %w", dilemmaID, err)
	}

	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.OptionID] = r.Count
	}
	return out, nil
}

func (s *GormStore) UpsertConsistencyScore(ctx context.Context, cs *ConsistencyScore) error {
	if cs.ID == "" {
		cs.ID = uuid.NewString()
	}
	err := s.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"human_score", "ai_score", "updated_at"}),
		},
		clause.Returning{},
	).Create(cs).Error
	if err != nil {
		return fmt.Errorf("save consistency score: %w", classifyPgError(err))
	}
	return nil
}

func (s *GormStore) GetConsistencyScore(ctx context.Context, sessionID string) (*ConsistencyScore, error) {
	var cs ConsistencyScore
	err := s.db.WithContext(ctx).First(&cs, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get consistency score: %w", err)
	}
	return &cs, nil
}

// UpsertDilemma writes a dilemma and its options, keyed on the dilemma id and
// on (dilemma_id, option_id). Running it twice with the same input is a no-op
// apart from updated_at.
func (s *GormStore) UpsertDilemma(ctx context.Context, d *Dilemma) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description", "scenario", "tags", "updated_at"}),
		}).Create(d).Error; err != nil {
			return fmt.Errorf("upsert dilemma %s: %w", d.ID, err)
		}

		for i := range d.Options {
			o := &d.Options[i]
			o.DilemmaID = d.ID
			if o.ID == "" {
				o.ID = uuid.NewString()
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "dilemma_id"}, {Name: "option_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"position", "text", "description", "percentage"}),
			}).Create(o).Error; err != nil {
				return fmt.Errorf("upsert option %s/%s: %w", d.ID, o.OptionID, err)
			}
		}
		return nil
	})
}
