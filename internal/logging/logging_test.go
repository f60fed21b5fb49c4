package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestVerbosityLevels(t *testing.T) {
	cases := []struct {
		verbosity int
		quiet     bool
		level     zapcore.Level
	}{
		{0, false, zapcore.ErrorLevel},
		{1, false, zapcore.InfoLevel},
		{2, false, zapcore.DebugLevel},
		{3, false, zapcore.DebugLevel},
		{99, false, zapcore.DebugLevel},
		{-1, false, zapcore.ErrorLevel},
		{3, true, zapcore.ErrorLevel},
	}
	for _, tc := range cases {
		log, err := New(tc.verbosity, tc.quiet)
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(tc.level),
			"verbosity %d quiet %v should enable %v", tc.verbosity, tc.quiet, tc.level)
		if tc.level != zapcore.DebugLevel {
			assert.False(t, log.Core().Enabled(tc.level-1),
				"verbosity %d quiet %v should not enable %v", tc.verbosity, tc.quiet, tc.level-1)
		}
	}
}
