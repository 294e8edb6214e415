package log

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// MigrationLogger adapts zerolog to goose's Logger interface
type MigrationLogger struct {
	logger *zerolog.Logger
}

func (g *MigrationLogger) Fatalf(format string, v ...interface{}) {
	g.logger.Fatal().Msgf(strings.TrimSuffix(format, "\n"), v...)
}

func (g *MigrationLogger) Printf(format string, v ...interface{}) {
	g.logger.Debug().Str("component", "goose").Msgf(strings.TrimSuffix(format, "\n"), v...)
}

func NewMigrationLoggerFromCtx(ctx context.Context) *MigrationLogger {
	return &MigrationLogger{
		logger: FromCtx(ctx),
	}
}
