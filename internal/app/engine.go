package app

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"certiflash/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionSize caps how many questions one session samples from a module.
const SessionSize = 5

// Engine runs quiz sessions against an immutable catalog and produces ledger updates.
type Engine struct {
	catalog domain.Catalog
	saver   LedgerSaver
	log     *zap.Logger
	now     func() time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithRandSource makes question sampling reproducible.
func WithRandSource(src rand.Source) EngineOption {
	return func(e *Engine) { e.rnd = rand.New(src) }
}

func NewEngine(catalog domain.Catalog, saver LedgerSaver, log *zap.Logger, opts ...EngineOption) *Engine {
	if saver == nil {
		saver = DiscardSaver{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		catalog: catalog,
		saver:   saver,
		log:     log,
		now:     time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog exposes the catalog the engine draws from.
func (e *Engine) Catalog() domain.Catalog {
	return e.catalog
}

// StartSession samples up to SessionSize questions of module for the user.
func (e *Engine) StartSession(userID string, module domain.Module, ledger domain.Ledger) (*Session, error) {
	if !domain.IsModuleUnlocked(module, ledger) {
		return nil, fmt.Errorf("%w: %s requires %d XP, have %d", domain.ErrLockedModule, module.ID, module.RequiredXP, ledger.XP)
	}
	pool := e.catalog.QuestionsForModule(module.ID)
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoQuestions, module.ID)
	}

	e.rndMu.Lock()
	perm := e.rnd.Perm(len(pool))
	e.rndMu.Unlock()

	n := SessionSize
	if len(pool) < n {
		n = len(pool)
	}
	picked := make([]domain.Question, n)
	for i := 0; i < n; i++ {
		picked[i] = pool[perm[i]]
	}

	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: e.now(),
		module:    module,
		questions: picked,
		state:     StateInProgress,
	}
	e.log.Debug("session started",
		zap.String("user", userID),
		zap.String("module", module.ID),
		zap.String("session", s.ID),
		zap.Int("questions", n),
	)
	return s, nil
}

// SelectAnswer records the candidate answer, replacing any previous one.
func (e *Engine) SelectAnswer(s *Session, answer string) error {
	switch {
	case s.state == StateComplete:
		return domain.ErrSessionComplete
	case s.resultShown:
		return domain.ErrResultShown
	}
	s.candidate = answer
	return nil
}

// SubmitAnswer scores the candidate answer and returns the updated ledger.
// Without a candidate, or with the result already shown, it is a no-op and the
// ledger is returned unchanged.
func (e *Engine) SubmitAnswer(s *Session, ledger domain.Ledger) (domain.Ledger, domain.AnswerResult, error) {
	if s.state == StateComplete {
		return ledger, domain.AnswerResult{}, domain.ErrSessionComplete
	}
	if s.resultShown || strings.TrimSpace(s.candidate) == "" {
		return ledger, domain.AnswerResult{}, domain.ErrNoAnswerSelected
	}

	q := s.Current()
	correct := matches(s.candidate, q.CorrectAnswer)

	xp, tokens := 0, 0
	if correct {
		xp = domain.XPForDifficulty(q.Difficulty)
		tokens = 1
	}

	now := e.now()
	next := ledger.Clone()
	next.XP += xp
	next.Tokens += tokens
	next.Level = domain.LevelForXP(next.XP)
	rec := next.QuestionHistory[q.ID]
	if correct {
		rec.Correct++
	} else {
		rec.Incorrect++
	}
	rec.LastAnswered = now
	next.QuestionHistory[q.ID] = rec
	next.LastActive = now
	next.Revision++

	s.resultShown = true
	s.lastCorrect = correct
	if correct {
		s.correctCount++
	}

	e.saver.Save(s.UserID, next)
	e.log.Debug("answer submitted",
		zap.String("user", s.UserID),
		zap.String("question", q.ID),
		zap.Bool("correct", correct),
		zap.Int("xp", next.XP),
	)

	return next, domain.AnswerResult{
		QuestionID:    q.ID,
		Correct:       correct,
		Explanation:   q.Explanation,
		CorrectAnswer: q.CorrectAnswer,
		XPAwarded:     xp,
		TokensAwarded: tokens,
	}, nil
}

// NextQuestion advances past a submitted question or completes the session.
func (e *Engine) NextQuestion(s *Session) (Progress, error) {
	if s.state == StateComplete {
		return s.progress(), domain.ErrSessionComplete
	}
	if !s.resultShown {
		return s.progress(), domain.ErrResultNotShown
	}
	if s.index+1 < len(s.questions) {
		s.index++
		s.candidate = ""
		s.resultShown = false
		s.lastCorrect = false
		return s.progress(), nil
	}
	s.state = StateComplete
	e.log.Debug("session complete",
		zap.String("user", s.UserID),
		zap.String("session", s.ID),
		zap.Int("correct", s.correctCount),
		zap.Int("total", len(s.questions)),
	)
	return s.progress(), nil
}

// Retry starts a freshly sampled session over the same module.
func (e *Engine) Retry(userID string, module domain.Module, ledger domain.Ledger) (*Session, error) {
	return e.StartSession(userID, module, ledger)
}

// AdvanceToNextModule starts a session on the module declared after current.
// It returns domain.ErrNoNextModule when current is the last module.
func (e *Engine) AdvanceToNextModule(userID string, current domain.Module, ledger domain.Ledger) (*Session, error) {
	next, err := e.catalog.ModuleAfter(current.ID)
	if err != nil {
		return nil, err
	}
	return e.StartSession(userID, next, ledger)
}

// matches compares against the canonical answer only: for list-valued answers
// the remaining entries are display-only.
func matches(candidate string, correct domain.Answer) bool {
	return normalize(candidate) == normalize(correct.Canonical())
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
