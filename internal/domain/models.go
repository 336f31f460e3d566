package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// QuestionType is the rendering kind of a question.
type QuestionType string

const (
	TypeMCQ       QuestionType = "mcq"
	TypeTrueFalse QuestionType = "trueFalse"
	TypeMatching  QuestionType = "matching" // declared by content authors, never rendered
	TypeFillBlank QuestionType = "fillBlank"
)

// Valid reports whether t is one of the declared question types.
func (t QuestionType) Valid() bool {
	switch t {
	case TypeMCQ, TypeTrueFalse, TypeMatching, TypeFillBlank:
		return true
	}
	return false
}

// Difficulty is ordinal and drives the XP award.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// Answer holds one acceptable answer or a list of them.
// The first element is the canonical answer used for scoring.
type Answer []string

// Canonical returns the answer used for equality checks.
func (a Answer) Canonical() string {
	if len(a) == 0 {
		return ""
	}
	return a[0]
}

// String joins all acceptable answers for display.
func (a Answer) String() string {
	return strings.Join(a, ", ")
}

// MarshalJSON writes a single answer as a plain string.
func (a Answer) MarshalJSON() ([]byte, error) {
	if len(a) == 1 {
		return json.Marshal(a[0])
	}
	return json.Marshal([]string(a))
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = Answer{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("correct answer must be a string or a list of strings: %w", err)
	}
	*a = Answer(many)
	return nil
}

func (a *Answer) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*a = Answer{node.Value}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := node.Decode(&many); err != nil {
			return err
		}
		*a = Answer(many)
		return nil
	default:
		return fmt.Errorf("line %d: correct answer must be a string or a list of strings", node.Line)
	}
}

// Question is a single catalog entry. Immutable once loaded.
type Question struct {
	ID            string       `json:"id" yaml:"id"`
	Type          QuestionType `json:"type" yaml:"type"`
	Prompt        string       `json:"question" yaml:"question"`
	Options       []string     `json:"options" yaml:"options"`
	CorrectAnswer Answer       `json:"correctAnswer" yaml:"correctAnswer"`
	Explanation   string       `json:"explanation" yaml:"explanation"`
	Difficulty    Difficulty   `json:"difficulty" yaml:"difficulty"`
	ModuleID      string       `json:"moduleId" yaml:"moduleId"`
	Category      string       `json:"category,omitempty" yaml:"category"`
	Tags          []string     `json:"tags,omitempty" yaml:"tags"`
}

// Module groups questions behind an XP gate.
type Module struct {
	ID             string   `json:"id" yaml:"id"`
	Title          string   `json:"title" yaml:"title"`
	Description    string   `json:"description" yaml:"description"`
	Icon           string   `json:"icon" yaml:"icon"`
	Color          string   `json:"color" yaml:"color"`
	QuestionsCount int      `json:"questionsCount" yaml:"questionsCount"` // descriptive only
	RequiredXP     int      `json:"requiredXP" yaml:"requiredXP"`
	Categories     []string `json:"categories,omitempty" yaml:"categories"`
}

// QuestionRecord is the per-question history kept in the ledger.
type QuestionRecord struct {
	Correct      int       `json:"correct"`
	Incorrect    int       `json:"incorrect"`
	LastAnswered time.Time `json:"lastAnswered"`
}

// Ledger is one user's cumulative progress.
type Ledger struct {
	XP               int                       `json:"xp"`
	Streak           int                       `json:"streak"`
	Tokens           int                       `json:"tokens"`
	Level            int                       `json:"level"`
	CompletedModules []string                  `json:"completedModules"`
	LastActive       time.Time                 `json:"lastActive"`
	QuestionHistory  map[string]QuestionRecord `json:"questionHistory"`
	Revision         int64                     `json:"revision"`
}

// AnswerResult is what the presentation layer shows after a submission.
type AnswerResult struct {
	QuestionID    string `json:"questionId"`
	Correct       bool   `json:"correct"`
	Explanation   string `json:"explanation"`
	CorrectAnswer Answer `json:"correctAnswer"`
	XPAwarded     int    `json:"xpAwarded"`
	TokensAwarded int    `json:"tokensAwarded"`
}
