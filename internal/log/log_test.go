package log

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelInfo)
	defer SetOutput(nil)

	Debug("hidden line", "k", "v")
	Info("meeting parsed", "course", "CS 101", "day", "Mon")
	Error("block skipped", errors.New("bad range"), "block", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden line")
	assert.Contains(t, out, "meeting parsed")
	assert.Contains(t, out, "course=")
	assert.Contains(t, out, "CS 101")
	assert.Contains(t, out, "bad range")

	buf.Reset()
	SetLevel(LevelDebug)
	Debug("visible line")
	assert.Contains(t, buf.String(), "visible line")
	SetLevel(LevelInfo)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelError, ParseLevel(" ERROR "))
	assert.Equal(t, LevelInfo, ParseLevel(""))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}
