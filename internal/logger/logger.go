package logger

import (
	"strings"

	"go.uber.org/zap"
)

// New builds a zap logger for the given environment.
// "production" yields JSON output at info level; anything else is the development console config.
func New(env string) (*zap.Logger, error) {
	switch strings.ToLower(env) {
	case "production", "prod":
		return zap.NewProduction()
	default:
		return zap.NewDevelopment()
	}
}
