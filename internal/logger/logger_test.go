package logger

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T, isVerbose bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(isVerbose)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	captureOutput(t, false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestDebug_WhenVerbose(t *testing.T) {
	buf := captureOutput(t, true)

	Debug("test message %s", "arg")

	assert.Equal(t, "[DEBUG] test message arg\n", buf.String())
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	buf := captureOutput(t, false)

	Debug("test message")

	assert.Zero(t, buf.Len())
}

func TestSection(t *testing.T) {
	buf := captureOutput(t, true)

	Section("Repositories")

	assert.Equal(t, "\n=== Repositories ===\n", buf.String())
}

func TestInfo(t *testing.T) {
	buf := captureOutput(t, true)

	Info("harvested %d repositories", 42)

	assert.Equal(t, "[INFO] harvested 42 repositories\n", buf.String())
}

func TestWarn(t *testing.T) {
	buf := captureOutput(t, true)

	Warn("rate limit low")

	assert.Equal(t, "[WARN] rate limit low\n", buf.String())
}

func TestError_PrintsWithoutVerbose(t *testing.T) {
	buf := captureOutput(t, false)

	Error("fetch %s: %v", "octo/cat", "not found")

	assert.Equal(t, "[ERROR] fetch octo/cat: not found\n", buf.String())
}

func TestConcurrentAccess(t *testing.T) {
	buf := captureOutput(t, true)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Debug("concurrent %d", i)
			_ = IsVerbose()
		}()
	}
	wg.Wait()

	mu.RLock()
	defer mu.RUnlock()
	assert.Equal(t, 10, bytes.Count(buf.Bytes(), []byte("[DEBUG]")))
}
