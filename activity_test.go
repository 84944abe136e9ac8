package dashboard

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureLogger struct {
	nopLogger
	lines []string
}

func (c *captureLogger) Info(format string, args ...any) {
	c.lines = append(c.lines, fmt.Sprint(append([]any{format}, args...)...))
}

func TestLoggerActivitySink(t *testing.T) {
	logger := &captureLogger{}
	sink := LoggerActivitySink(logger)

	require.NoError(t, sink.Record(context.Background(), ActivityEvent{
		EventType: ActivityEventSignUp,
		Email:     "a@b.com",
		Success:   true,
	}))

	require.Len(t, logger.lines, 1)
	assert.Contains(t, logger.lines[0], string(ActivityEventSignUp))
	assert.Contains(t, logger.lines[0], "a@b.com")
}

func TestActivitySinkFunc_Nil(t *testing.T) {
	var f ActivitySinkFunc
	assert.NoError(t, f.Record(context.Background(), ActivityEvent{}))
	assert.IsType(t, noopActivitySink{}, normalizeActivitySink(nil))
}
