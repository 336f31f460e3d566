package content

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"certiflash/internal/domain"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	modules := c.Modules()
	if len(modules) != 4 {
		t.Fatalf("expected 4 modules, got %d", len(modules))
	}
	if modules[0].ID != "sagemaker-core" || modules[0].RequiredXP != 0 {
		t.Fatalf("unexpected first module %+v", modules[0])
	}
	if c.Len() != 23 {
		t.Fatalf("expected 23 questions, got %d", c.Len())
	}
	if n := len(c.QuestionsForModule("sagemaker-core")); n != 8 {
		t.Fatalf("expected 8 sagemaker questions, got %d", n)
	}

	q, err := c.Question("data-1")
	if err != nil {
		t.Fatalf("question: %v", err)
	}
	if q.Type != domain.TypeFillBlank || q.CorrectAnswer.Canonical() != "S3" || len(q.Options) != 0 {
		t.Fatalf("unexpected fill-in question %+v", q)
	}
}

func TestLoadFileRejectsDuplicateIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := []byte(`modules:
  - id: m
    requiredXP: 0
questions:
  - id: q1
    type: mcq
    question: one
    correctAnswer: a
    difficulty: easy
    moduleId: m
  - id: q1
    type: mcq
    question: two
    correctAnswer: b
    difficulty: easy
    moduleId: m
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(path); !errors.Is(err, domain.ErrDuplicateQuestion) {
		t.Fatalf("expected duplicate question error, got %v", err)
	}
}

func TestLoadFileRejectsUnknownDifficulty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := []byte(`modules:
  - id: m
    requiredXP: 0
questions:
  - id: q1
    type: mcq
    question: one
    options: [a, b]
    correctAnswer: a
    difficulty: Hard
    moduleId: m
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(path); !errors.Is(err, domain.ErrInvalidDocument) {
		t.Fatalf("expected invalid document for capitalized difficulty, got %v", err)
	}
}
