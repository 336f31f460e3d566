package logger

import "testing"

func TestNew(t *testing.T) {
	for _, env := range []string{"production", "local", ""} {
		log, err := New(env)
		if err != nil {
			t.Fatalf("New(%q): %v", env, err)
		}
		log.Info("logger ready")
	}
}
