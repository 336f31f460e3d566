package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func sampleCatalog(t *testing.T) Catalog {
	t.Helper()
	c, err := NewCatalog(
		[]Module{{ID: "a", RequiredXP: 0}, {ID: "b", RequiredXP: 50}},
		[]Question{
			{ID: "a-1", ModuleID: "a", Type: TypeMCQ, Difficulty: DifficultyEasy, CorrectAnswer: Answer{"x"}},
			{ID: "b-1", ModuleID: "b", Type: TypeFillBlank, Difficulty: DifficultyHard, CorrectAnswer: Answer{"S3", "Amazon S3"}},
			{ID: "a-2", ModuleID: "a", Type: TypeTrueFalse, Difficulty: DifficultyMedium, CorrectAnswer: Answer{"Vrai"}},
		},
	)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewCatalog([]Module{{ID: "a"}}, []Question{
		{ID: "q", ModuleID: "a", Type: TypeMCQ, Difficulty: DifficultyEasy, CorrectAnswer: Answer{"x"}},
		{ID: "q", ModuleID: "a", Type: TypeMCQ, Difficulty: DifficultyEasy, CorrectAnswer: Answer{"y"}},
	})
	if !errors.Is(err, ErrDuplicateQuestion) {
		t.Fatalf("expected duplicate question error, got %v", err)
	}

	_, err = NewCatalog([]Module{{ID: "a"}, {ID: "a"}}, nil)
	if !errors.Is(err, ErrDuplicateModule) {
		t.Fatalf("expected duplicate module error, got %v", err)
	}
}

func TestNewCatalogRejectsUnknownTypeAndDifficulty(t *testing.T) {
	tests := []struct {
		name string
		q    Question
	}{
		{"capitalized difficulty", Question{ID: "q", ModuleID: "a", Type: TypeMCQ, Difficulty: "Hard", CorrectAnswer: Answer{"x"}}},
		{"missing difficulty", Question{ID: "q", ModuleID: "a", Type: TypeMCQ, CorrectAnswer: Answer{"x"}}},
		{"unknown type", Question{ID: "q", ModuleID: "a", Type: "essay", Difficulty: DifficultyEasy, CorrectAnswer: Answer{"x"}}},
	}
	for _, tt := range tests {
		if _, err := NewCatalog([]Module{{ID: "a"}}, []Question{tt.q}); !errors.Is(err, ErrInvalidDocument) {
			t.Errorf("%s: expected invalid document, got %v", tt.name, err)
		}
	}
}

func TestQuestionsForModuleKeepsDeclarationOrder(t *testing.T) {
	c := sampleCatalog(t)
	qs := c.QuestionsForModule("a")
	if len(qs) != 2 || qs[0].ID != "a-1" || qs[1].ID != "a-2" {
		t.Fatalf("unexpected pool %+v", qs)
	}
	if len(c.QuestionsForModule("missing")) != 0 {
		t.Fatalf("expected empty pool for unknown module")
	}
}

func TestModuleAfter(t *testing.T) {
	c := sampleCatalog(t)
	next, err := c.ModuleAfter("a")
	if err != nil || next.ID != "b" {
		t.Fatalf("expected b after a, got %+v %v", next, err)
	}
	if _, err := c.ModuleAfter("b"); !errors.Is(err, ErrNoNextModule) {
		t.Fatalf("expected no next module, got %v", err)
	}
	if _, err := c.ModuleAfter("zzz"); !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("expected module not found, got %v", err)
	}
}

func TestAnswerDecoding(t *testing.T) {
	var q Question
	if err := json.Unmarshal([]byte(`{"id":"q","correctAnswer":"S3"}`), &q); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if q.CorrectAnswer.Canonical() != "S3" {
		t.Fatalf("expected S3, got %q", q.CorrectAnswer.Canonical())
	}

	if err := yaml.Unmarshal([]byte("id: q\ncorrectAnswer: [Feature, Feature Store]\n"), &q); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if q.CorrectAnswer.Canonical() != "Feature" || len(q.CorrectAnswer) != 2 {
		t.Fatalf("expected list answer, got %v", q.CorrectAnswer)
	}

	raw, _ := json.Marshal(Answer{"only"})
	if string(raw) != `"only"` {
		t.Fatalf("single answers should encode as a string, got %s", raw)
	}
}

func TestCatalogDocumentRoundTrip(t *testing.T) {
	c := sampleCatalog(t)
	raw, err := EncodeCatalog(c, time.Now())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeCatalog(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Len() != c.Len() || len(decoded.Modules()) != 2 {
		t.Fatalf("catalog lost content")
	}
	q, err := decoded.Question("b-1")
	if err != nil || q.CorrectAnswer.Canonical() != "S3" {
		t.Fatalf("expected list answer preserved, got %+v %v", q, err)
	}
}

func TestDecodeCatalogRejectsInvalidDocuments(t *testing.T) {
	bad := `{"modules":[{"id":"a","requiredXP":0}],"questions":[{"id":"q","type":"essay","question":"?","correctAnswer":"x","difficulty":"easy","moduleId":"a"}]}`
	if _, err := DecodeCatalog([]byte(bad)); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected invalid document for unknown type, got %v", err)
	}

	dup := `{"modules":[{"id":"a","requiredXP":0}],"questions":[` +
		`{"id":"q","type":"mcq","question":"?","correctAnswer":"x","difficulty":"easy","moduleId":"a"},` +
		`{"id":"q","type":"mcq","question":"?","correctAnswer":"y","difficulty":"easy","moduleId":"a"}]}`
	if _, err := DecodeCatalog([]byte(dup)); !errors.Is(err, ErrDuplicateQuestion) {
		t.Fatalf("expected duplicate question, got %v", err)
	}
}

func TestDecodeLedger(t *testing.T) {
	raw := `{"xp":250,"streak":2,"tokens":14,"level":1,"completedModules":[],"lastActive":"2026-01-01T00:00:00Z",` +
		`"questionHistory":{"a-1":{"correct":2,"incorrect":1,"lastAnswered":"2026-01-01T00:00:00Z"}},"revision":3}`
	l, err := DecodeLedger([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if l.Level != 3 {
		t.Fatalf("expected level recomputed to 3, got %d", l.Level)
	}
	if l.QuestionHistory["a-1"].Correct != 2 || l.Revision != 3 {
		t.Fatalf("unexpected ledger %+v", l)
	}

	for _, bad := range []string{
		`{"xp":-5,"tokens":0,"questionHistory":{}}`,
		`{"xp":"lots","tokens":0,"questionHistory":{}}`,
		`{"tokens":0,"questionHistory":{}}`,
		`not json`,
	} {
		if _, err := DecodeLedger([]byte(bad)); !errors.Is(err, ErrInvalidDocument) {
			t.Errorf("DecodeLedger(%s) = %v, want ErrInvalidDocument", bad, err)
		}
	}
}

func TestEncodeLedgerFillsEmptyCollections(t *testing.T) {
	raw, err := EncodeLedger(Ledger{XP: 5, Tokens: 1, Level: 1})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(raw), `"questionHistory":{}`) {
		t.Fatalf("expected empty history object, got %s", raw)
	}
}
