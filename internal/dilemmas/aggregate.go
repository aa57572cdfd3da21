package dilemmas

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/EmpoweredVote/EV-Dilemmas/internal/ethics"
)

// CommunityPercentages returns round(100 * count / total) per chosen option.
// No responses yields an empty map. Values are rounded independently and need
// not sum to 100.
func (s *Service) CommunityPercentages(ctx context.Context, dilemmaID string) (map[string]int, error) {
	counts, err := s.store.CountUserResponsesByOption(ctx, dilemmaID)
	if err != nil {
		return nil, err
	}
	return percentages(counts), nil
}

func percentages(counts map[string]int) map[string]int {
	total := 0
	for _, c := range counts {
		total += c
	}
	out := make(map[string]int, len(counts))
	if total == 0 {
		return out
	}
	for optionID, c := range counts {
		out[optionID] = int(math.Round(100 * float64(c) / float64(total)))
	}
	return out
}

// ListDilemmas returns dilemmas, optionally filtered by tag, each with its
// current AI response or nil.
func (s *Service) ListDilemmas(ctx context.Context, tag string) ([]DilemmaWithAI, error) {
	ds, err := s.store.ListDilemmas(ctx, strings.TrimSpace(tag))
	if err != nil {
		return nil, err
	}
	latest, err := s.store.LatestAIResponses(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]DilemmaWithAI, len(ds))
	for i, d := range ds {
		out[i] = DilemmaWithAI{Dilemma: d}
		if r, ok := latest[d.ID]; ok {
			out[i].AIResponse = &r
		}
	}
	return out, nil
}

// FrameworkCount is one bucket of a FrameworkDistribution.
type FrameworkCount struct {
	ethics.FrameworkInfo
	Count int `json:"count"`
}

type FrameworkDistribution struct {
	Total      int              `json:"total"`
	Frameworks []FrameworkCount `json:"frameworks"`
}

// FrameworkDistribution counts the framework of every dilemma's current AI
// response. Dilemmas without a response count as UNKNOWN.
func (s *Service) FrameworkDistribution(ctx context.Context) (FrameworkDistribution, error) {
	ds, err := s.store.ListDilemmas(ctx, "")
	if err != nil {
		return FrameworkDistribution{}, err
	}
	latest, err := s.store.LatestAIResponses(ctx)
	if err != nil {
		return FrameworkDistribution{}, err
	}

	counts := make(map[ethics.Framework]int, len(ethics.AllFrameworks))
	for _, d := range ds {
		f := ethics.Unknown
		if r, ok := latest[d.ID]; ok && r.Framework.Valid() {
			f = r.Framework
		}
		counts[f]++
	}

	dist := FrameworkDistribution{Total: len(ds)}
	for _, f := range ethics.AllFrameworks {
		dist.Frameworks = append(dist.Frameworks, FrameworkCount{FrameworkInfo: ethics.Info(f), Count: counts[f]})
	}
	return dist, nil
}

// SaveUserResponse checks that the option belongs to the dilemma and upserts
// the session's answer.
func (s *Service) SaveUserResponse(ctx context.Context, r *UserResponse) error {
	d, err := s.store.GetDilemma(ctx, r.DilemmaID)
	if err != nil {
		return err
	}
	if _, ok := d.OptionByID(r.OptionID); !ok {
		return fmt.Errorf("%w: %q not in %s", ErrInvalidOption, r.OptionID, r.DilemmaID)
	}
	return s.store.UpsertUserResponse(ctx, r)
}

func validScore(v int) bool { return v >= 0 && v <= 100 }

func (s *Service) SaveConsistencyScore(ctx context.Context, cs *ConsistencyScore) error {
	if !validScore(cs.HumanScore) || !validScore(cs.AIScore) {
		return fmt.Errorf("%w: human=%d ai=%d", ErrInvalidScore, cs.HumanScore, cs.AIScore)
	}
	return s.store.UpsertConsistencyScore(ctx, cs)
}

// ComparisonEntry lines up a session's answer with the AI's current answer.
type ComparisonEntry struct {
	DilemmaID   string           `json:"dilemma_id"`
	UserOption  string           `json:"user_option_id"`
	AIOption    string           `json:"ai_option_id,omitempty"`
	AIFramework ethics.Framework `json:"ai_framework,omitempty"`
	Agrees      bool             `json:"agrees"`
}

type Comparison struct {
	SessionID string            `json:"session_id"`
	Answered  int               `json:"answered"`
	Compared  int               `json:"compared"`
	Agreement int               `json:"agreement_percentage"`
	Entries   []ComparisonEntry `json:"entries"`
}

// Compare lines up every answer of a session with the current AI response of
// the same dilemma. Dilemmas without an AI response are listed but excluded
// from the agreement percentage.
func (s *Service) Compare(ctx context.Context, sessionID string) (Comparison, error) {
	answers, err := s.store.ListUserResponses(ctx, sessionID)
	if err != nil {
		return Comparison{}, err
	}
	latest, err := s.store.LatestAIResponses(ctx)
	if err != nil {
		return Comparison{}, err
	}

	c := Comparison{SessionID: sessionID, Answered: len(answers), Entries: make([]ComparisonEntry, 0, len(answers))}
	agreed := 0
	for _, a := range answers {
		e := ComparisonEntry{DilemmaID: a.DilemmaID, UserOption: a.OptionID}
		if r, ok := latest[a.DilemmaID]; ok {
			e.AIOption = r.OptionID
			e.AIFramework = r.Framework
			e.Agrees = r.OptionID == a.OptionID
			c.Compared++
			if e.Agrees {
				agreed++
			}
		}
		c.Entries = append(c.Entries, e)
	}
	if c.Compared > 0 {
		c.Agreement = int(math.Round(100 * float64(agreed) / float64(c.Compared)))
	}
	return c, nil
}
