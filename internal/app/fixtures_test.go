package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"certiflash/internal/domain"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)

// testCatalog declares modules in this order:
// core(8) small(3) hard(1) locked(1, 100 XP) empty(0) list(1).
func testCatalog(t *testing.T) domain.Catalog {
	t.Helper()
	modules := []domain.Module{
		{ID: "core", Title: "SageMaker Core"},
		{ID: "small", Title: "Small Pool"},
		{ID: "hard", Title: "Hard Only"},
		{ID: "locked", Title: "Locked", RequiredXP: 100},
		{ID: "empty", Title: "No Questions"},
		{ID: "list", Title: "List Answers"},
	}
	var questions []domain.Question
	for i := 1; i <= 8; i++ {
		questions = append(questions, domain.Question{
			ID: fmt.Sprintf("c%d", i), Type: domain.TypeTrueFalse, Prompt: "Core statement",
			Options: []string{"True", "False"}, CorrectAnswer: domain.Answer{"True"},
			Difficulty: domain.DifficultyMedium, ModuleID: "core",
		})
	}
	for i := 1; i <= 3; i++ {
		questions = append(questions, domain.Question{
			ID: fmt.Sprintf("s%d", i), Type: domain.TypeMCQ, Prompt: "Pick A",
			Options: []string{"A", "B"}, CorrectAnswer: domain.Answer{"A"},
			Difficulty: domain.DifficultyEasy, ModuleID: "small",
		})
	}
	questions = append(questions,
		domain.Question{
			ID: "h1", Type: domain.TypeFillBlank, Prompt: "Amazon ____ stores objects.",
			CorrectAnswer: domain.Answer{"S3"}, Explanation: "S3 is object storage.",
			Difficulty: domain.DifficultyHard, ModuleID: "hard",
		},
		domain.Question{
			ID: "x1", Type: domain.TypeMCQ, Prompt: "Locked", Options: []string{"Yes"},
			CorrectAnswer: domain.Answer{"Yes"}, Difficulty: domain.DifficultyEasy, ModuleID: "locked",
		},
		domain.Question{
			ID: "l1", Type: domain.TypeMatching, Prompt: "Match the service",
			CorrectAnswer: domain.Answer{"Canonical", "Alias"}, Difficulty: domain.DifficultyEasy, ModuleID: "list",
		},
	)
	c, err := domain.NewCatalog(modules, questions)
	require.NoError(t, err)
	return c
}

func newTestEngine(t *testing.T, saver LedgerSaver) *Engine {
	t.Helper()
	return NewEngine(testCatalog(t), saver, nil,
		WithClock(func() time.Time { return fixedNow }),
		WithRandSource(rand.NewSource(42)),
	)
}

func module(t *testing.T, e *Engine, id string) domain.Module {
	t.Helper()
	m, err := e.Catalog().Module(id)
	require.NoError(t, err)
	return m
}

type recordingSaver struct {
	mu    sync.Mutex
	saves []domain.Ledger
}

func (s *recordingSaver) Save(_ string, l domain.Ledger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, l.Clone())
}

func (s *recordingSaver) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

var errUnavailable = errors.New("store unavailable")

// fakeStore is a LedgerStore and CatalogStore whose failures can be switched on.
type fakeStore struct {
	mu       sync.Mutex
	ledgers  map[string]domain.Ledger
	catalog  *domain.Catalog
	writes   int
	failLoad bool
	failSave bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{ledgers: make(map[string]domain.Ledger)}
}

func (s *fakeStore) LoadLedger(_ context.Context, userID string) (domain.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLoad {
		return domain.Ledger{}, errUnavailable
	}
	l, ok := s.ledgers[userID]
	if !ok {
		return domain.Ledger{}, domain.ErrLedgerNotFound
	}
	return l.Clone(), nil
}

func (s *fakeStore) SaveLedger(_ context.Context, userID string, l domain.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errUnavailable
	}
	s.writes++
	s.ledgers[userID] = l.Clone()
	return nil
}

func (s *fakeStore) WatchLedger(context.Context, string) (<-chan domain.Ledger, func(), error) {
	ch := make(chan domain.Ledger)
	return ch, func() {}, nil
}

func (s *fakeStore) LoadCatalog(context.Context) (domain.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLoad {
		return domain.Catalog{}, errUnavailable
	}
	if s.catalog == nil {
		return domain.Catalog{}, domain.ErrCatalogNotFound
	}
	return *s.catalog, nil
}

func (s *fakeStore) SaveCatalogIfAbsent(_ context.Context, c domain.Catalog, _ time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return false, errUnavailable
	}
	if s.catalog != nil {
		return false, nil
	}
	s.catalog = &c
	return true, nil
}

func (s *fakeStore) stored(userID string) (domain.Ledger, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.ledgers[userID]
	return l, s.writes, ok
}
