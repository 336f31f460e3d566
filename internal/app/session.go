package app

import (
	"time"

	"certiflash/internal/domain"
)

// State is the lifecycle of a quiz session.
type State int

const (
	StateIdle State = iota
	StateInProgress
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateInProgress:
		return "inProgress"
	case StateComplete:
		return "complete"
	default:
		return "idle"
	}
}

// Session is one bounded practice run over a module. It is not safe for
// concurrent use; Player serializes access.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time

	module       domain.Module
	questions    []domain.Question
	index        int
	candidate    string
	resultShown  bool
	lastCorrect  bool
	correctCount int
	state        State
}

func (s *Session) Module() domain.Module { return s.module }
func (s *Session) State() State          { return s.state }
func (s *Session) Index() int            { return s.index }
func (s *Session) Total() int            { return len(s.questions) }
func (s *Session) CorrectCount() int     { return s.correctCount }
func (s *Session) Candidate() string     { return s.candidate }
func (s *Session) ResultShown() bool     { return s.resultShown }
func (s *Session) LastCorrect() bool     { return s.lastCorrect }

// Current returns the question at the current index.
func (s *Session) Current() domain.Question {
	return s.questions[s.index]
}

// Questions returns the session's question ids in presentation order.
func (s *Session) Questions() []string {
	ids := make([]string, len(s.questions))
	for i, q := range s.questions {
		ids[i] = q.ID
	}
	return ids
}

// Progress is the position report returned when advancing.
type Progress struct {
	State        string `json:"state"`
	Index        int    `json:"index"`
	Total        int    `json:"total"`
	CorrectCount int    `json:"correctCount"`
}

func (s *Session) progress() Progress {
	return Progress{
		State:        s.state.String(),
		Index:        s.index,
		Total:        len(s.questions),
		CorrectCount: s.correctCount,
	}
}

// QuestionView is a question as shown before answering; it never carries the answer.
type QuestionView struct {
	ID         string              `json:"id"`
	Type       domain.QuestionType `json:"type"`
	Prompt     string              `json:"question"`
	Options    []string            `json:"options"`
	Difficulty domain.Difficulty   `json:"difficulty"`
	Category   string              `json:"category,omitempty"`
}

// SessionView is the render state handed to the presentation layer.
type SessionView struct {
	SessionID    string        `json:"sessionId"`
	ModuleID     string        `json:"moduleId"`
	ModuleTitle  string        `json:"moduleTitle"`
	State        string        `json:"state"`
	Index        int           `json:"index"`
	Total        int           `json:"total"`
	CorrectCount int           `json:"correctCount"`
	Question     *QuestionView `json:"question,omitempty"`
	Candidate    string        `json:"candidate"`
	ResultShown  bool          `json:"resultShown"`
	LastCorrect  bool          `json:"lastCorrect"`
}

// View snapshots the session for rendering.
func (s *Session) View() SessionView {
	v := SessionView{
		SessionID:    s.ID,
		ModuleID:     s.module.ID,
		ModuleTitle:  s.module.Title,
		State:        s.state.String(),
		Index:        s.index,
		Total:        len(s.questions),
		CorrectCount: s.correctCount,
		Candidate:    s.candidate,
		ResultShown:  s.resultShown,
		LastCorrect:  s.lastCorrect,
	}
	if s.state == StateInProgress {
		q := s.Current()
		v.Question = &QuestionView{
			ID:         q.ID,
			Type:       q.Type,
			Prompt:     q.Prompt,
			Options:    append([]string{}, q.Options...),
			Difficulty: q.Difficulty,
			Category:   q.Category,
		}
	}
	return v
}
