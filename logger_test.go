package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoggerFollowsLevel(t *testing.T) {
	t.Cleanup(func() { AtomicLevel.SetLevel(zapcore.InfoLevel) })

	var buf bytes.Buffer
	logger := NewLogger(zapcore.AddSync(&buf))

	require.Nil(t, SetLogLevel("warn"))
	logger.Infof("hidden %v", 1)
	logger.Warnf("shown %v", 2)
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "WARN shown 2")

	require.Nil(t, SetLogLevel("DEBUG"))
	logger.Debugf("exec: %v", "LOAD tpch")
	require.Contains(t, buf.String(), "DEBUG exec: LOAD tpch")
	require.Equal(t, 2, strings.Count(buf.String(), "\n"))

	require.Error(t, SetLogLevel("loud"))
	require.Equal(t, zapcore.DebugLevel, AtomicLevel.Level())
}
