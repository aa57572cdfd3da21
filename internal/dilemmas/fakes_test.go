package dilemmas_test

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/EmpoweredVote/EV-Dilemmas/internal/dilemmas"
	"github.com/EmpoweredVote/EV-Dilemmas/internal/llm"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// memStore implements dilemmas.Store in memory with the same upsert and
// newest-row semantics as the Postgres store.
type memStore struct {
	mu       sync.Mutex
	dilemmas map[string]dilemmas.Dilemma
	ai       []dilemmas.AIResponse
	users    map[[2]string]dilemmas.UserResponse
	scores   map[string]dilemmas.ConsistencyScore

	inserts   int
	latestErr error
	insertErr error
}

func newMemStore(ds ...dilemmas.Dilemma) *memStore {
	s := &memStore{
		dilemmas: make(map[string]dilemmas.Dilemma),
		users:    make(map[[2]string]dilemmas.UserResponse),
		scores:   make(map[string]dilemmas.ConsistencyScore),
	}
	for _, d := range ds {
		s.dilemmas[d.ID] = d
	}
	return s
}

func (s *memStore) ListDilemmas(ctx context.Context, tag string) ([]dilemmas.Dilemma, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []dilemmas.Dilemma
	for _, d := range s.dilemmas {
		if tag != "" && !contains(d.Tags, tag) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func (s *memStore) GetDilemma(ctx context.Context, id string) (*dilemmas.Dilemma, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dilemmas[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dilemmas.ErrDilemmaNotFound, id)
	}
	return &d, nil
}

func (s *memStore) latest(dilemmaID string) (dilemmas.AIResponse, bool) {
	var best dilemmas.AIResponse
	found := false
	for _, r := range s.ai {
		if r.DilemmaID == dilemmaID && (!found || !r.CreatedAt.Before(best.CreatedAt)) {
			best, found = r, true
		}
	}
	return best, found
}

func (s *memStore) LatestAIResponse(ctx context.Context, dilemmaID string) (*dilemmas.AIResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latestErr != nil {
		return nil, s.latestErr
	}
	r, ok := s.latest(dilemmaID)
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *memStore) LatestAIResponses(ctx context.Context) (map[string]dilemmas.AIResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]dilemmas.AIResponse)
	for _, r := range s.ai {
		if latest, ok := s.latest(r.DilemmaID); ok {
			out[r.DilemmaID] = latest
		}
	}
	return out, nil
}

func (s *memStore) InsertAIResponse(ctx context.Context, r *dilemmas.AIResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserts++
	s.ai = append(s.ai, *r)
	return nil
}

func (s *memStore) AIResponseHistory(ctx context.Context, dilemmaID string, limit int) ([]dilemmas.AIResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []dilemmas.AIResponse
	for i := len(s.ai) - 1; i >= 0 && len(out) < limit; i-- {
		if s.ai[i].DilemmaID == dilemmaID {
			out = append(out, s.ai[i])
		}
	}
	return out, nil
}

func (s *memStore) UpsertUserResponse(ctx context.Context, r *dilemmas.UserResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{r.SessionID, r.DilemmaID}
	if existing, ok := s.users[key]; ok {
		r.ID = existing.ID
		r.CreatedAt = existing.CreatedAt
	} else if r.ID == "" {
		r.ID = uuid.NewString()
	}
	s.users[key] = *r
	return nil
}

func (s *memStore) ListUserResponses(ctx context.Context, sessionID string) ([]dilemmas.UserResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []dilemmas.UserResponse
	for _, r := range s.users {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DilemmaID < out[j].DilemmaID })
	return out, nil
}

func (s *memStore) CountUserResponsesByOption(ctx context.Context, dilemmaID string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int)
	for _, r := range s.users {
		if r.DilemmaID == dilemmaID {
			out[r.OptionID]++
		}
	}
	return out, nil
}

func (s *memStore) UpsertConsistencyScore(ctx context.Context, cs *dilemmas.ConsistencyScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.scores[cs.SessionID]; ok {
		cs.ID = existing.ID
	} else if cs.ID == "" {
		cs.ID = uuid.NewString()
	}
	s.scores[cs.SessionID] = *cs
	return nil
}

func (s *memStore) GetConsistencyScore(ctx context.Context, sessionID string) (*dilemmas.ConsistencyScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.scores[sessionID]
	if !ok {
		return nil, nil
	}
	return &cs, nil
}

func (s *memStore) insertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts
}

// mockCompleter is a testify mock of llm.Completer.
type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Name() string { return "mock" }

func (m *mockCompleter) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	args := m.Called(ctx, req)
	c, _ := args.Get(0).(*llm.Completion)
	return c, args.Error(1)
}

// funcCompleter adapts a function to llm.Completer.
type funcCompleter func(ctx context.Context, req llm.Request) (*llm.Completion, error)

func (f funcCompleter) Name() string { return "func" }

func (f funcCompleter) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	return f(ctx, req)
}

func trolley() dilemmas.Dilemma {
	return dilemmas.Dilemma{
		ID:          "trolley",
		Title:       "The Trolley Problem",
		Description: "A runaway trolley is heading toward five people.",
		Scenario:    "You stand next to a lever that diverts the trolley onto a side track with one person.",
		Tags:        []string{"classic"},
		Options: []dilemmas.Option{
			{DilemmaID: "trolley", OptionID: "pull", Position: 1, Text: "Pull the lever", Description: "One dies, five live"},
			{DilemmaID: "trolley", OptionID: "wait", Position: 2, Text: "Do nothing", Description: "Five die"},
		},
	}
}

func lifeboat() dilemmas.Dilemma {
	return dilemmas.Dilemma{
		ID:    "lifeboat",
		Title: "The Lifeboat",
		Tags:  []string{"survival"},
		Options: []dilemmas.Option{
			{DilemmaID: "lifeboat", OptionID: "stay", Position: 1, Text: "Stay"},
			{DilemmaID: "lifeboat", OptionID: "jump", Position: 2, Text: "Jump"},
			{DilemmaID: "lifeboat", OptionID: "vote", Position: 3, Text: "Hold a vote"},
		},
	}
}
