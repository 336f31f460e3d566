package domain

import "errors"

var (
	// ErrLockedModule is returned when the ledger XP is below the module's gate.
	ErrLockedModule = errors.New("module is locked")
	// ErrNoQuestions is returned when the catalog has no questions for a module.
	ErrNoQuestions = errors.New("no questions for module")
	// ErrNoAnswerSelected is returned when submit is invoked without a candidate answer.
	ErrNoAnswerSelected = errors.New("no answer selected")
	// ErrResultShown indicates the current question was already submitted.
	ErrResultShown = errors.New("result already shown")
	// ErrResultNotShown indicates advancing before the current question was submitted.
	ErrResultNotShown = errors.New("result not shown yet")
	// ErrSessionComplete is returned for intents sent to a finished session.
	ErrSessionComplete = errors.New("quiz session complete")
	// ErrNoSession is returned when an intent needs an active session and none exists.
	ErrNoSession = errors.New("no active quiz session")
	// ErrNoNextModule signals that the current module is the last one.
	ErrNoNextModule = errors.New("no further module")
	// ErrModuleNotFound indicates an unknown module id.
	ErrModuleNotFound = errors.New("module not found")
	// ErrQuestionNotFound indicates an unknown question id.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrDuplicateQuestion is returned by catalog loading when two questions share an id.
	ErrDuplicateQuestion = errors.New("duplicate question id")
	// ErrDuplicateModule is returned by catalog loading when two modules share an id.
	ErrDuplicateModule = errors.New("duplicate module id")
	// ErrLedgerNotFound indicates the user has no stored ledger yet.
	ErrLedgerNotFound = errors.New("ledger not found")
	// ErrCatalogNotFound indicates the shared catalog document does not exist.
	ErrCatalogNotFound = errors.New("catalog not found")
	// ErrInvalidDocument is returned when a stored document fails validation.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrPersistenceWrite wraps failures of the durable store on ledger writes.
	ErrPersistenceWrite = errors.New("persistence write failed")
)
