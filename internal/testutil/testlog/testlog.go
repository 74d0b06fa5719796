// Package testlog configures logging for tests.
package testlog

import (
	"testing"

	"github.com/badgeops/badgelink/internal/logging"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	logger := logging.Component("test")
	logger.Debug().Str("test", t.Name()).Msg("start")
}
