package feedback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yubzen/hedgehog/internal/config"
	"github.com/yubzen/hedgehog/internal/providers"
	"github.com/yubzen/hedgehog/internal/watch"
)

type call struct {
	op   string
	text string
	err  error
}

type recordingSink struct {
	mu    sync.Mutex
	calls []call
}

func (s *recordingSink) add(c call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

func (s *recordingSink) Status(msg string)           { s.add(call{op: "status", text: msg}) }
func (s *recordingSink) Error(msg string, err error) { s.add(call{op: "error", text: msg, err: err}) }
func (s *recordingSink) Begin(path string)           { s.add(call{op: "begin", text: path}) }
func (s *recordingSink) Chunk(text string)           { s.add(call{op: "chunk", text: text}) }
func (s *recordingSink) Done()                       { s.add(call{op: "done"}) }

func (s *recordingSink) ops(names ...string) []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []call
	for _, c := range s.calls {
		for _, n := range names {
			if c.op == n {
				out = append(out, c)
			}
		}
	}
	return out
}

type fakeStreamer struct {
	chunks []string
	err    error
	reqs   []providers.StreamRequest
}

func (f *fakeStreamer) Stream(_ context.Context, req providers.StreamRequest, onToken providers.TokenCallback) error {
	f.reqs = append(f.reqs, req)
	for _, c := range f.chunks {
		onToken(c)
	}
	return f.err
}

func newTestPipeline(t *testing.T, root string, streamer providers.Streamer, sink Sink) *Pipeline {
	t.Helper()
	return New(config.Watch{
		Root:         root,
		Model:        "anthropic/claude-3.7-sonnet",
		SystemPrompt: "be helpful",
	}, streamer, sink, nil)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRunStreamsChunksInOrderThenDone(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	path := filepath.Join(root, "src", "a.js")
	writeFile(t, path, "const a = 1;\n")

	sink := &recordingSink{}
	streamer := &fakeStreamer{chunks: []string{"Look", "s good", "."}}
	newTestPipeline(t, root, streamer, sink).Run(context.Background(), watch.Event{Kind: watch.KindChanged, Path: path})

	tail := sink.ops("chunk", "done", "error")
	require.Len(t, tail, 4)
	assert.Equal(t, call{op: "chunk", text: "Look"}, tail[0])
	assert.Equal(t, call{op: "chunk", text: "s good"}, tail[1])
	assert.Equal(t, call{op: "chunk", text: "."}, tail[2])
	assert.Equal(t, call{op: "done"}, tail[3])

	status := sink.ops("status")
	require.Len(t, status, 1)
	assert.Equal(t, "File changed: "+path, status[0].text)

	require.Len(t, streamer.reqs, 1)
	req := streamer.reqs[0]
	assert.Equal(t, MaxTokens, req.MaxTokens)
	assert.Equal(t, "be helpful", req.SystemPrompt)
	assert.Equal(t, "anthropic/claude-3.7-sonnet", req.Model)
	assert.Contains(t, req.Prompt, "File: src/a.js\nContent:\n```js\nconst a = 1;\n\n```\n")
}

func TestRunReadFailureReportsOnceAndSkipsModel(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	sink := &recordingSink{}
	streamer := &fakeStreamer{chunks: []string{"never"}}

	newTestPipeline(t, root, streamer, sink).Run(context.Background(), watch.Event{Kind: watch.KindChanged, Path: filepath.Join(root, "gone.js")})

	errs := sink.ops("error")
	require.Len(t, errs, 1)
	var readErr *ReadError
	assert.True(t, errors.As(errs[0].err, &readErr))
	assert.ErrorIs(t, errs[0].err, os.ErrNotExist)
	assert.Empty(t, streamer.reqs)
	assert.Empty(t, sink.ops("begin", "chunk", "done"))
}

func TestRunInvocationFailureKeepsPartialOutput(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	path := filepath.Join(root, "main.go")
	writeFile(t, path, "package main\n")

	sink := &recordingSink{}
	boom := &providers.StatusError{ProviderName: "replicate", StatusCode: 500, Body: "boom"}
	streamer := &fakeStreamer{chunks: []string{"Partial"}, err: boom}
	newTestPipeline(t, root, streamer, sink).Run(context.Background(), watch.Event{Kind: watch.KindAdded, Path: path})

	tail := sink.ops("chunk", "done", "error")
	require.Len(t, tail, 2)
	assert.Equal(t, call{op: "chunk", text: "Partial"}, tail[0])
	assert.Equal(t, "error", tail[1].op)

	var invErr *InvocationError
	require.True(t, errors.As(tail[1].err, &invErr))
	var statusErr *providers.StatusError
	assert.True(t, errors.As(tail[1].err, &statusErr))
	assert.Equal(t, "File added: "+path, sink.ops("status")[0].text)
}

func TestRunRedactsSecretsWhenEnabled(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	path := filepath.Join(root, "cfg.py")
	writeFile(t, path, "key = \"sk-abcdefghijklmnopqrstuvwxyz\"\n")

	streamer := &fakeStreamer{}
	p := newTestPipeline(t, root, streamer, &recordingSink{})
	p.RedactSecrets = true
	p.Run(context.Background(), watch.Event{Kind: watch.KindChanged, Path: path})

	require.Len(t, streamer.reqs, 1)
	assert.NotContains(t, streamer.reqs[0].Prompt, "sk-abcdefghijklmnopqrstuvwxyz")
	assert.Contains(t, streamer.reqs[0].Prompt, "[REDACTED_KEY]")
}

func TestRunWithoutStreamerReportsError(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{}
	New(config.Watch{Model: "m"}, nil, sink, nil).Run(context.Background(), watch.Event{Path: "/x.go"})
	assert.Len(t, sink.ops("error"), 1)
}

func TestNewRequest(t *testing.T) {
	t.Parallel()
	req := NewRequest("/proj", "/proj/src/a.js", "let x;")
	assert.Equal(t, "src/a.js", req.RelativePath)
	assert.Equal(t, "js", req.Language)
	assert.True(t, strings.HasPrefix(req.Prompt, "\nFile: src/a.js\nContent:\n```js\nlet x;\n```\n\n"))
	assert.True(t, strings.HasSuffix(req.Prompt, "4. Any other helpful insights\n"))
}

func TestFenceGrowsPastContentBackticks(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no backticks", "x := 1", "```"},
		{"inline code", "see `x`", "```"},
		{"triple", "doc := \"```go\\n```\"", "````"},
		{"five", "`````", "``````"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fence(tt.content))
		})
	}

	req := NewRequest("/proj", "/proj/README.md", "```sh\nmake\n```")
	assert.Contains(t, req.Prompt, "````md\n```sh\nmake\n```\n````\n")
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "streaming", StageStreaming.String())
	assert.Equal(t, "failed", StageFailed.String())
}

func TestRunCancelledBeforeStartIsSilent(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	path := filepath.Join(root, "a.go")
	writeFile(t, path, "package a\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &recordingSink{}
	streamer := &fakeStreamer{}
	newTestPipeline(t, root, streamer, sink).Run(ctx, watch.Event{Kind: watch.KindChanged, Path: path})

	assert.Empty(t, sink.ops("status", "error", "begin"))
	assert.Empty(t, streamer.reqs)
}

func TestRunCancelledMidStreamClosesWithoutError(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	path := filepath.Join(root, "a.go")
	writeFile(t, path, "package a\n")

	sink := &recordingSink{}
	streamer := &fakeStreamer{chunks: []string{"Par"}, err: fmt.Errorf("stream: %w", context.Canceled)}
	newTestPipeline(t, root, streamer, sink).Run(context.Background(), watch.Event{Kind: watch.KindChanged, Path: path})

	assert.Empty(t, sink.ops("error"))
	assert.Len(t, sink.ops("done"), 1)
}

func TestIsCancelled(t *testing.T) {
	assert.True(t, IsCancelled(context.Canceled))
	assert.True(t, IsCancelled(fmt.Errorf("wrapped: %w", context.Canceled)))
	assert.True(t, IsCancelled(ErrCancelled))
	assert.False(t, IsCancelled(errors.New("boom")))
	assert.False(t, IsCancelled(nil))
}

func TestRunWithoutLoggerUsesDiscard(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	path := filepath.Join(root, "a.go")
	writeFile(t, path, "package a\n")

	sink := &recordingSink{}
	p := &Pipeline{
		Root:     root,
		Model:    "anthropic/claude-3.7-sonnet",
		Streamer: &fakeStreamer{chunks: []string{"ok"}},
		Sink:     sink,
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NotPanics(t, func() {
		p.Run(context.Background(), watch.Event{Kind: watch.KindChanged, Path: path})
		p.Run(ctx, watch.Event{Kind: watch.KindChanged, Path: path})
	})
	assert.Len(t, sink.ops("done"), 1)
	assert.Empty(t, sink.ops("error"))
}
