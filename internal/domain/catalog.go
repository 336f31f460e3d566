package domain

import "fmt"

// Catalog is the immutable set of modules and questions.
type Catalog struct {
	modules    []Module
	questions  []Question
	moduleIdx  map[string]int
	questionIx map[string]int
}

// NewCatalog validates and indexes catalog content.
// Duplicate ids are rejected instead of shadowing earlier entries, and
// question types and difficulties must be one of the declared values.
func NewCatalog(modules []Module, questions []Question) (Catalog, error) {
	c := Catalog{
		modules:    append([]Module(nil), modules...),
		questions:  append([]Question(nil), questions...),
		moduleIdx:  make(map[string]int, len(modules)),
		questionIx: make(map[string]int, len(questions)),
	}
	for i, m := range c.modules {
		if m.ID == "" {
			return Catalog{}, fmt.Errorf("module at position %d: empty id", i)
		}
		if _, ok := c.moduleIdx[m.ID]; ok {
			return Catalog{}, fmt.Errorf("%w: %s", ErrDuplicateModule, m.ID)
		}
		c.moduleIdx[m.ID] = i
	}
	for i, q := range c.questions {
		if q.ID == "" {
			return Catalog{}, fmt.Errorf("question at position %d: empty id", i)
		}
		if _, ok := c.questionIx[q.ID]; ok {
			return Catalog{}, fmt.Errorf("%w: %s", ErrDuplicateQuestion, q.ID)
		}
		if len(q.CorrectAnswer) == 0 {
			return Catalog{}, fmt.Errorf("question %s: missing correct answer", q.ID)
		}
		if !q.Type.Valid() {
			return Catalog{}, fmt.Errorf("%w: question %s: unknown type %q", ErrInvalidDocument, q.ID, q.Type)
		}
		if !q.Difficulty.Valid() {
			return Catalog{}, fmt.Errorf("%w: question %s: unknown difficulty %q", ErrInvalidDocument, q.ID, q.Difficulty)
		}
		c.questionIx[q.ID] = i
	}
	return c, nil
}

// Modules returns modules in declaration order.
func (c Catalog) Modules() []Module {
	return append([]Module(nil), c.modules...)
}

// Questions returns every question in declaration order.
func (c Catalog) Questions() []Question {
	return append([]Question(nil), c.questions...)
}

func (c Catalog) Module(id string) (Module, error) {
	i, ok := c.moduleIdx[id]
	if !ok {
		return Module{}, fmt.Errorf("%w: %s", ErrModuleNotFound, id)
	}
	return c.modules[i], nil
}

func (c Catalog) Question(id string) (Question, error) {
	i, ok := c.questionIx[id]
	if !ok {
		return Question{}, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
	}
	return c.questions[i], nil
}

// QuestionsForModule returns the questions tagged with moduleID, in declaration order.
func (c Catalog) QuestionsForModule(moduleID string) []Question {
	var out []Question
	for _, q := range c.questions {
		if q.ModuleID == moduleID {
			out = append(out, q)
		}
	}
	return out
}

// ModuleAfter returns the module declared right after moduleID.
func (c Catalog) ModuleAfter(moduleID string) (Module, error) {
	i, ok := c.moduleIdx[moduleID]
	if !ok {
		return Module{}, fmt.Errorf("%w: %s", ErrModuleNotFound, moduleID)
	}
	if i+1 >= len(c.modules) {
		return Module{}, ErrNoNextModule
	}
	return c.modules[i+1], nil
}

// Len reports the number of questions in the catalog.
func (c Catalog) Len() int {
	return len(c.questions)
}
