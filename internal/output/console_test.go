package output

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleChunksAreVerbatimAndOrdered(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Begin("/proj/src/app.js")
	start := buf.Len()
	c.Chunk("Look")
	c.Chunk("s good")
	c.Chunk(".")
	c.Done()

	out := buf.String()
	assert.Contains(t, out[:start], "AI Feedback for app.js")
	assert.Equal(t, "Looks good.\n\n", out[start:])
}

func TestConsoleErrorIsMarked(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Error("Error processing file", errors.New("boom"))
	c.Error("Watcher error", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "✖ Error processing file: boom")
	assert.Contains(t, lines[1], "✖ Watcher error")
}

func TestConsoleStatusAndDetail(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Status("File changed: src/a.js")
	c.Detail("Watching directory", "/proj")

	out := buf.String()
	assert.Contains(t, out, "File changed: src/a.js")
	assert.Contains(t, out, "Watching directory:")
	assert.Contains(t, out, "/proj")
}

func TestConsoleConcurrentWritesKeepLines(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Info("tick")
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, strings.Count(buf.String(), "tick\n"))
}
