package dilemmas

import (
	"time"

	"github.com/EmpoweredVote/EV-Dilemmas/internal/ethics"
	"github.com/lib/pq"
)

type Dilemma struct {
	ID          string         `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `json:"description"`
	Scenario    string         `gorm:"type:text" json:"scenario"`
	Tags        pq.StringArray `gorm:"type:text[]" json:"tags"`
	Options     []Option       `gorm:"foreignKey:DilemmaID;constraint:OnDelete:CASCADE" json:"options"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Option is seed data and never changes through the API. OptionID is the
// public identifier, unique within its dilemma.
type Option struct {
	ID          string `gorm:"primaryKey" json:"-"`
	DilemmaID   string `gorm:"not null;uniqueIndex:idx_options_dilemma_option" json:"dilemma_id"`
	OptionID    string `gorm:"not null;uniqueIndex:idx_options_dilemma_option" json:"option_id"`
	Position    int    `gorm:"not null;default:0" json:"position"`
	Text        string `gorm:"not null" json:"text"`
	Description string `json:"description,omitempty"`
	Percentage  *int   `json:"percentage,omitempty"`
}

// UserResponse holds at most one row per (session, dilemma).
type UserResponse struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"not null;uniqueIndex:idx_user_responses_session_dilemma" json:"session_id"`
	DilemmaID string    `gorm:"not null;uniqueIndex:idx_user_responses_session_dilemma;index" json:"dilemma_id"`
	OptionID  string    `gorm:"not null" json:"option_id"`
	Reasoning string    `gorm:"type:text" json:"reasoning"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AIResponse is one entry of the append-only generation log. The current
// response of a dilemma is its newest row.
type AIResponse struct {
	ID               string           `gorm:"primaryKey" json:"id,omitempty"`
	DilemmaID        string           `gorm:"not null" json:"dilemma_id"`
	OptionID         string           `gorm:"not null" json:"option_id"`
	Reasoning        string           `gorm:"type:text" json:"reasoning"`
	Framework        ethics.Framework `gorm:"type:text;not null;default:'UNKNOWN'" json:"framework"`
	ConsistencyScore int              `gorm:"not null" json:"consistency_score"`
	Resolution       ethics.Strategy  `gorm:"type:text" json:"resolution,omitempty"`
	Model            string           `json:"model,omitempty"`
	CreatedAt        time.Time        `gorm:"not null" json:"created_at"`

	// Set on synthetic records returned when generation failed. Never stored.
	Fallback bool `gorm:"-" json:"fallback"`
}

// ConsistencyScore holds at most one row per session.
type ConsistencyScore struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	SessionID  string    `gorm:"not null;uniqueIndex" json:"session_id"`
	HumanScore int       `gorm:"not null" json:"human_score"`
	AIScore    int       `gorm:"column:ai_score;not null" json:"ai_score"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Dilemma) TableName() string {
	return "dilemmas.dilemmas"
}

func (Option) TableName() string {
	return "dilemmas.options"
}

func (UserResponse) TableName() string {
	return "dilemmas.user_responses"
}

func (AIResponse) TableName() string {
	return "dilemmas.ai_responses"
}

func (ConsistencyScore) TableName() string {
	return "dilemmas.consistency_scores"
}

// OptionByID returns the option with the given public id.
func (d *Dilemma) OptionByID(optionID string) (Option, bool) {
	for _, o := range d.Options {
		if o.OptionID == optionID {
			return o, true
		}
	}
	return Option{}, false
}

// DilemmaWithAI pairs a dilemma with its newest AI response, if any.
type DilemmaWithAI struct {
	Dilemma
	AIResponse *AIResponse `json:"ai_response"`
}
