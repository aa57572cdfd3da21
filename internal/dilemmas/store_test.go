package dilemmas_test

import (
	"context"
	"testing"
	"time"

	"github.com/EmpoweredVote/EV-Dilemmas/internal/db"
	"github.com/EmpoweredVote/EV-Dilemmas/internal/dilemmas"
	"github.com/EmpoweredVote/EV-Dilemmas/internal/ethics"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// StoreIntegrationSuite runs GormStore and CachedStore against real Postgres
// and Redis containers.
type StoreIntegrationSuite struct {
	suite.Suite
	ctx         context.Context
	pgContainer *postgres.PostgresContainer
	rdContainer *tcredis.RedisContainer
	store       *dilemmas.GormStore
	redis       *redis.Client
}

func (s *StoreIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("dilemmas_test"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2*time.Minute),
		),
	)
	s.Require().NoError(err, "start postgres container")

	dsn, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	d, err := db.Connect(dsn)
	s.Require().NoError(err)
	s.Require().NoError(dilemmas.Init(d))
	s.Require().NoError(dilemmas.Init(d), "setup is idempotent")
	s.store = dilemmas.NewGormStore(d)

	s.rdContainer, err = tcredis.Run(s.ctx, "docker.io/redis:7-alpine")
	s.Require().NoError(err, "start redis container")
	redisURL, err := s.rdContainer.ConnectionString(s.ctx)
	s.Require().NoError(err)
	opts, err := redis.ParseURL(redisURL)
	s.Require().NoError(err)
	s.redis = redis.NewClient(opts)
	s.Require().NoError(s.redis.Ping(s.ctx).Err())
}

func (s *StoreIntegrationSuite) TearDownSuite() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	_ = db.Close()
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(s.ctx)
	}
	if s.rdContainer != nil {
		_ = s.rdContainer.Terminate(s.ctx)
	}
}

// seed stores a trolley dilemma under a fresh id.
func (s *StoreIntegrationSuite) seed() dilemmas.Dilemma {
	dl := trolley()
	dl.ID = "test-" + uuid.NewString()
	dl.Options[0].Percentage = new(int)
	*dl.Options[0].Percentage = 62
	s.Require().NoError(s.store.UpsertDilemma(s.ctx, &dl))
	s.Require().NoError(s.store.UpsertDilemma(s.ctx, &dl), "seeding is idempotent")
	return dl
}

func (s *StoreIntegrationSuite) TestGetDilemma() {
	dl := s.seed()

	got, err := s.store.GetDilemma(s.ctx, dl.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Options, 2)
	s.Equal("pull", got.Options[0].OptionID)
	s.Equal("wait", got.Options[1].OptionID)
	s.Require().NotNil(got.Options[0].Percentage)
	s.Equal(62, *got.Options[0].Percentage)
	s.Equal([]string{"classic"}, []string(got.Tags))

	tagged, err := s.store.ListDilemmas(s.ctx, "classic")
	s.Require().NoError(err)
	s.NotEmpty(tagged)

	_, err = s.store.GetDilemma(s.ctx, "missing-"+uuid.NewString())
	s.ErrorIs(err, dilemmas.ErrDilemmaNotFound)
}

func (s *StoreIntegrationSuite) TestUserResponseUpsert() {
	dl := s.seed()
	session := uuid.NewString()

	first := &dilemmas.UserResponse{SessionID: session, DilemmaID: dl.ID, OptionID: "pull", Reasoning: "a"}
	s.Require().NoError(s.store.UpsertUserResponse(s.ctx, first))
	second := &dilemmas.UserResponse{SessionID: session, DilemmaID: dl.ID, OptionID: "wait", Reasoning: "b"}
	s.Require().NoError(s.store.UpsertUserResponse(s.ctx, second))

	s.Equal(first.ID, second.ID, "the conflicting row is updated in place")

	rows, err := s.store.ListUserResponses(s.ctx, session)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal("wait", rows[0].OptionID)
	s.Equal("b", rows[0].Reasoning)

	counts, err := s.store.CountUserResponsesByOption(s.ctx, dl.ID)
	s.Require().NoError(err)
	s.Equal(map[string]int{"wait": 1}, counts)

	err = s.store.UpsertUserResponse(s.ctx, &dilemmas.UserResponse{SessionID: session, DilemmaID: "missing-" + uuid.NewString(), OptionID: "x"})
	s.ErrorIs(err, dilemmas.ErrDilemmaNotFound)
}

func (s *StoreIntegrationSuite) TestConsistencyScoreUpsert() {
	session := uuid.NewString()

	none, err := s.store.GetConsistencyScore(s.ctx, session)
	s.Require().NoError(err)
	s.Nil(none)

	s.Require().NoError(s.store.UpsertConsistencyScore(s.ctx, &dilemmas.ConsistencyScore{SessionID: session, HumanScore: 10, AIScore: 20}))
	s.Require().NoError(s.store.UpsertConsistencyScore(s.ctx, &dilemmas.ConsistencyScore{SessionID: session, HumanScore: 30, AIScore: 40}))

	got, err := s.store.GetConsistencyScore(s.ctx, session)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(30, got.HumanScore)
	s.Equal(40, got.AIScore)
}

func (s *StoreIntegrationSuite) TestAIResponseLog() {
	dl := s.seed()

	none, err := s.store.LatestAIResponse(s.ctx, dl.ID)
	s.Require().NoError(err)
	s.Nil(none)

	t0 := time.Now().UTC().Truncate(time.Millisecond)
	older := &dilemmas.AIResponse{DilemmaID: dl.ID, OptionID: "pull", Framework: ethics.Utilitarian, ConsistencyScore: 81, Resolution: ethics.StrategyMentioned, CreatedAt: t0}
	newer := &dilemmas.AIResponse{DilemmaID: dl.ID, OptionID: "wait", Framework: ethics.Deontological, ConsistencyScore: 99, Resolution: ethics.StrategyDeclared, CreatedAt: t0.Add(time.Second)}
	s.Require().NoError(s.store.InsertAIResponse(s.ctx, older))
	s.Require().NoError(s.store.InsertAIResponse(s.ctx, newer))

	latest, err := s.store.LatestAIResponse(s.ctx, dl.ID)
	s.Require().NoError(err)
	s.Require().NotNil(latest)
	s.Equal(newer.ID, latest.ID)
	s.Equal(ethics.Deontological, latest.Framework)
	s.Equal(ethics.StrategyDeclared, latest.Resolution)

	all, err := s.store.LatestAIResponses(s.ctx)
	s.Require().NoError(err)
	s.Equal(newer.ID, all[dl.ID].ID)

	history, err := s.store.AIResponseHistory(s.ctx, dl.ID, 10)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(newer.ID, history[0].ID)
	s.Equal(older.ID, history[1].ID)

	err = s.store.InsertAIResponse(s.ctx, &dilemmas.AIResponse{DilemmaID: "missing-" + uuid.NewString(), OptionID: "x", CreatedAt: t0})
	s.ErrorIs(err, dilemmas.ErrDilemmaNotFound)
}

func (s *StoreIntegrationSuite) TestCachedStore() {
	dl := s.seed()
	cached := dilemmas.NewCachedStore(s.store, s.redis, time.Minute, zap.NewNop())

	none, err := cached.LatestAIResponse(s.ctx, dl.ID)
	s.Require().NoError(err)
	s.Nil(none, "a missing response is not cached")

	r := &dilemmas.AIResponse{DilemmaID: dl.ID, OptionID: "pull", Framework: ethics.Relational, ConsistencyScore: 88, CreatedAt: time.Now().UTC()}
	s.Require().NoError(cached.InsertAIResponse(s.ctx, r))

	ttl, err := s.redis.TTL(s.ctx, "dilemmas:ai:latest:"+dl.ID).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))

	got, err := cached.LatestAIResponse(s.ctx, dl.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(r.ID, got.ID)
	s.Equal(ethics.Relational, got.Framework)
}

func (s *StoreIntegrationSuite) TestCachedStore_OlderRowNeverReplacesNewer() {
	dl := s.seed()
	cached := dilemmas.NewCachedStore(s.store, s.redis, time.Minute, zap.NewNop())

	t0 := time.Now().UTC().Truncate(time.Millisecond)
	older := &dilemmas.AIResponse{DilemmaID: dl.ID, OptionID: "pull", Framework: ethics.Utilitarian, ConsistencyScore: 81, CreatedAt: t0}
	newer := &dilemmas.AIResponse{DilemmaID: dl.ID, OptionID: "wait", Framework: ethics.Deontological, ConsistencyScore: 92, CreatedAt: t0.Add(time.Second)}
	s.Require().NoError(s.store.InsertAIResponse(s.ctx, older))
	s.Require().NoError(cached.InsertAIResponse(s.ctx, newer))

	// a read-through that loaded the older row before the insert finishes late
	dilemmas.CacheResponse(cached, s.ctx, older)

	got, err := cached.LatestAIResponse(s.ctx, dl.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(newer.ID, got.ID)
}

func (s *StoreIntegrationSuite) TestCachedStore_WritesFromAnotherProcessAreVisible() {
	dl := s.seed()
	server := dilemmas.NewCachedStore(s.store, s.redis, time.Minute, zap.NewNop())
	batch := dilemmas.NewCachedStore(dilemmas.NewGormStore(db.DB), s.redis, time.Minute, zap.NewNop())

	t0 := time.Now().UTC().Truncate(time.Millisecond)
	first := &dilemmas.AIResponse{DilemmaID: dl.ID, OptionID: "pull", Framework: ethics.Utilitarian, ConsistencyScore: 81, CreatedAt: t0}
	s.Require().NoError(s.store.InsertAIResponse(s.ctx, first))

	got, err := server.LatestAIResponse(s.ctx, dl.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(first.ID, got.ID, "read-through caches the first row")

	regenerated := &dilemmas.AIResponse{DilemmaID: dl.ID, OptionID: "wait", Framework: ethics.Deontological, ConsistencyScore: 97, CreatedAt: t0.Add(time.Second)}
	s.Require().NoError(batch.InsertAIResponse(s.ctx, regenerated))

	got, err = server.LatestAIResponse(s.ctx, dl.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(regenerated.ID, got.ID)

	all, err := s.store.LatestAIResponses(s.ctx)
	s.Require().NoError(err)
	s.Equal(got.ID, all[dl.ID].ID, "cached and uncached reads agree")
}

func TestStoreIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	suite.Run(t, new(StoreIntegrationSuite))
}
