package app

import (
	"sync"

	"certiflash/internal/domain"
)

// ModuleStatus is a module as listed on the module grid.
type ModuleStatus struct {
	domain.Module
	Unlocked bool `json:"unlocked"`
	Mastery  int  `json:"mastery"`
}

// Player is the single thread of control for one user: it owns the user's
// ledger and active session and serializes every intent against them.
type Player struct {
	engine *Engine
	userID string

	mu      sync.Mutex
	ledger  domain.Ledger
	session *Session
}

func NewPlayer(engine *Engine, userID string, ledger domain.Ledger) *Player {
	return &Player{engine: engine, userID: userID, ledger: ledger.Clone()}
}

func (p *Player) UserID() string { return p.userID }

func (p *Player) Catalog() domain.Catalog { return p.engine.Catalog() }

// Ledger returns a copy of the current ledger.
func (p *Player) Ledger() domain.Ledger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ledger.Clone()
}

// Modules lists catalog modules with the user's unlock state and mastery.
func (p *Player) Modules() []ModuleStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	catalog := p.engine.Catalog()
	modules := catalog.Modules()
	out := make([]ModuleStatus, 0, len(modules))
	for _, m := range modules {
		out = append(out, ModuleStatus{
			Module:   m,
			Unlocked: domain.IsModuleUnlocked(m, p.ledger),
			Mastery:  domain.MasteryForModule(m.ID, p.ledger, catalog).Percent,
		})
	}
	return out
}

// Summary returns dashboard statistics for the current ledger.
func (p *Player) Summary() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Summarize(p.engine.Catalog(), p.ledger)
}

// Start begins a session on moduleID, discarding any active one.
func (p *Player) Start(moduleID string) (SessionView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	module, err := p.engine.Catalog().Module(moduleID)
	if err != nil {
		return SessionView{}, err
	}
	return p.begin(p.engine.StartSession(p.userID, module, p.ledger))
}

func (p *Player) Select(answer string) (SessionView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return SessionView{}, domain.ErrNoSession
	}
	if err := p.engine.SelectAnswer(p.session, answer); err != nil {
		return p.session.View(), err
	}
	return p.session.View(), nil
}

func (p *Player) Submit() (domain.AnswerResult, SessionView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return domain.AnswerResult{}, SessionView{}, domain.ErrNoSession
	}
	ledger, result, err := p.engine.SubmitAnswer(p.session, p.ledger)
	if err != nil {
		return domain.AnswerResult{}, p.session.View(), err
	}
	p.ledger = ledger
	return result, p.session.View(), nil
}

func (p *Player) Next() (Progress, SessionView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return Progress{State: StateIdle.String()}, SessionView{}, domain.ErrNoSession
	}
	progress, err := p.engine.NextQuestion(p.session)
	return progress, p.session.View(), err
}

// Retry restarts the current (or just completed) session's module.
func (p *Player) Retry() (SessionView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return SessionView{}, domain.ErrNoSession
	}
	return p.begin(p.engine.Retry(p.userID, p.session.Module(), p.ledger))
}

// NextModule moves on to the module after the current one. On
// domain.ErrNoNextModule the current session is left untouched.
func (p *Player) NextModule() (SessionView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return SessionView{}, domain.ErrNoSession
	}
	return p.begin(p.engine.AdvanceToNextModule(p.userID, p.session.Module(), p.ledger))
}

// Leave discards the active session.
func (p *Player) Leave() {
	p.mu.Lock()
	p.session = nil
	p.mu.Unlock()
}

// ReplaceLedger swaps in a ledger received from the store. Documents older than
// the in-memory revision are echoes of this player's own earlier writes and are
// ignored. It reports whether the ledger was replaced.
//
// Ordering relies entirely on the revision field. A writer outside this
// module that does not bump revision (or omits it, which decodes as 0) is
// ignored once this player has written at least once; such a writer must
// store a revision above the last one it read for its change to be picked up.
func (p *Player) ReplaceLedger(ledger domain.Ledger) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ledger.Revision < p.ledger.Revision {
		return false
	}
	p.ledger = ledger.Clone()
	return true
}

func (p *Player) begin(s *Session, err error) (SessionView, error) {
	if err != nil {
		return SessionView{}, err
	}
	p.session = s
	return s.View(), nil
}
