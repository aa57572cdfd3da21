package dilemmas

import (
	"fmt"

	"github.com/EmpoweredVote/EV-Dilemmas/internal/db"
	"gorm.io/gorm"
)

const schema = "dilemmas"

// Raw statements AutoMigrate cannot express. All are idempotent.
var setupStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_ai_responses_dilemma_created
		ON dilemmas.ai_responses (dilemma_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_dilemmas_tags
		ON dilemmas.dilemmas USING GIN (tags)`,
	`DO $$ BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'fk_user_responses_dilemma') THEN
			ALTER TABLE dilemmas.user_responses
				ADD CONSTRAINT fk_user_responses_dilemma
				FOREIGN KEY (dilemma_id) REFERENCES dilemmas.dilemmas(id);
		END IF;
	END $$`,
	`DO $$ BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'fk_ai_responses_dilemma') THEN
			ALTER TABLE dilemmas.ai_responses
				ADD CONSTRAINT fk_ai_responses_dilemma
				FOREIGN KEY (dilemma_id) REFERENCES dilemmas.dilemmas(id);
		END IF;
	END $$`,
	`DO $$ BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_consistency_scores_range') THEN
			ALTER TABLE dilemmas.consistency_scores
				ADD CONSTRAINT chk_consistency_scores_range
				CHECK (human_score BETWEEN 0 AND 100 AND ai_score BETWEEN 0 AND 100);
		END IF;
	END $$`,
}

// Init creates the dilemmas schema and its tables.
func Init(d *gorm.DB) error {
	if d == nil {
		d = db.DB
	}
	if err := db.EnsureSchema(d, schema); err != nil {
		return fmt.Errorf("create %s schema: %w", schema, err)
	}

	if err := d.AutoMigrate(&Dilemma{}, &Option{}, &UserResponse{}, &AIResponse{}, &ConsistencyScore{}); err != nil {
		return fmt.Errorf("auto-migrate %s tables: %w", schema, err)
	}

	for _, stmt := range setupStatements {
		if err := d.Exec(stmt).Error; err != nil {
			return fmt.Errorf("setup %s schema: %w", schema, err)
		}
	}
	return nil
}
