package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebug_SilentUnlessVerbose(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr); SetVerbose(false) })

	SetVerbose(false)
	Debug("hidden %d", 1)
	assert.Empty(t, buf.String())

	SetVerbose(true)
	Debug("shown %d", 2)
	assert.Contains(t, buf.String(), "[DEBUG] shown 2")
}

func TestStage_LogsHeaderAndDuration(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetVerbose(false) })
	SetVerbose(true)

	done := Stage("embedding")
	done()

	out := buf.String()
	assert.Contains(t, out, "=== embedding ===")
	assert.Contains(t, out, "embedding done in")
}

func TestStage_NoopWhenQuiet(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	done := Stage("loading")
	done()
	assert.Empty(t, buf.String())
}
