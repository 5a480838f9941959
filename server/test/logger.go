package test

import (
	"github.com/voxhall/voxhall/server/logformatter"
	"github.com/voxhall/voxhall/server/logger"
)

// NewLogger returns a logger configured from VOXHALL_LOG so that test output
// stays quiet unless asked for.
func NewLogger() logger.Logger {
	return logger.NewFromEnv("VOXHALL_LOG").WithFormatter(logformatter.New())
}
