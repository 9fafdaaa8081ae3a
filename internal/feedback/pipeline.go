// Package feedback turns one settled file change into a streamed model
// review.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/yubzen/hedgehog/internal/config"
	"github.com/yubzen/hedgehog/internal/logging"
	"github.com/yubzen/hedgehog/internal/providers"
	"github.com/yubzen/hedgehog/internal/scrub"
	"github.com/yubzen/hedgehog/internal/watch"
)

// MaxTokens caps every model response regardless of input size.
const MaxTokens = 4096

// Sink receives everything a dispatch shows the user.
type Sink interface {
	Status(msg string)
	Error(msg string, err error)
	Begin(path string)
	Chunk(text string)
	Done()
}

type Stage int

const (
	StageIdle Stage = iota
	StageReading
	StagePrompting
	StageStreaming
	StageCompleted
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageReading:
		return "reading"
	case StagePrompting:
		return "prompting"
	case StageStreaming:
		return "streaming"
	case StageCompleted:
		return "completed"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

var ErrPipelineNotReady = errors.New("feedback pipeline is not initialized")

var readFile = os.ReadFile

type Pipeline struct {
	Root          string
	Model         string
	SystemPrompt  string
	RedactSecrets bool
	Streamer      providers.Streamer
	Sink          Sink
	Logger        *slog.Logger
}

func New(w config.Watch, streamer providers.Streamer, sink Sink, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pipeline{
		Root:          w.Root,
		Model:         w.Model,
		SystemPrompt:  w.SystemPrompt,
		RedactSecrets: w.RedactSecrets,
		Streamer:      streamer,
		Sink:          sink,
		Logger:        logger,
	}
}

func (p *Pipeline) Validate() error {
	if p == nil || p.Sink == nil {
		return ErrPipelineNotReady
	}
	if p.Streamer == nil {
		return errors.New("feedback pipeline model client is not configured")
	}
	if strings.TrimSpace(p.Model) == "" {
		return errors.New("feedback pipeline model is empty")
	}
	return nil
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return logging.Discard()
	}
	return p.Logger
}

// Run performs one dispatch for ev. It never fails outward: every problem
// is reported to the sink.
func (p *Pipeline) Run(ctx context.Context, ev watch.Event) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := p.Validate(); err != nil {
		if p != nil && p.Sink != nil {
			p.Sink.Error("Error processing file", err)
		}
		return
	}
	stage, err := p.run(ctx, ev)
	if err == nil {
		return
	}
	if IsCancelled(err) {
		p.logger().Debug("dispatch cancelled", "path", ev.Path, "stage", stage)
		return
	}
	switch stage {
	case StageReading:
		p.Sink.Error("Error processing file", err)
	default:
		p.Sink.Error("Error getting AI feedback", err)
	}
}

func (p *Pipeline) run(ctx context.Context, ev watch.Event) (Stage, error) {
	log := p.logger().With("dispatch", uuid.NewString(), "path", ev.Path)
	stage := StageIdle
	enter := func(next Stage) {
		log.Debug("dispatch stage", "from", stage, "to", next)
		stage = next
	}

	if err := ctx.Err(); err != nil {
		return StageIdle, normalizeCancellationErr(err)
	}
	p.Sink.Status(fmt.Sprintf("File %s: %s", ev.Kind, ev.Path))

	enter(StageReading)
	raw, err := readFile(ev.Path)
	if err != nil {
		enter(StageFailed)
		return StageReading, &ReadError{Path: ev.Path, Err: err}
	}

	enter(StagePrompting)
	content := string(raw)
	if p.RedactSecrets {
		var n int
		content, n = scrub.Redact(content)
		if n > 0 {
			log.Debug("redacted secrets", "count", n)
		}
	}
	req := NewRequest(p.Root, ev.Path, content)

	enter(StageStreaming)
	log.Debug("sending request", "model", p.Model, "bytes", len(req.Prompt))
	p.Sink.Begin(ev.Path)
	err = p.Streamer.Stream(ctx, providers.StreamRequest{
		Model:        p.Model,
		Prompt:       req.Prompt,
		SystemPrompt: p.SystemPrompt,
		MaxTokens:    MaxTokens,
	}, p.Sink.Chunk)
	if err != nil {
		enter(StageFailed)
		if IsCancelled(err) {
			p.Sink.Done()
			return StageStreaming, ErrCancelled
		}
		return StageStreaming, &InvocationError{Model: p.Model, Err: err}
	}

	p.Sink.Done()
	enter(StageCompleted)
	log.Debug("completed feedback")
	return StageCompleted, nil
}
