package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Options configures a Source.
type Options struct {
	Root string
	// Ignore is consulted before a directory is subscribed to and before a
	// file event is emitted. Nil ignores nothing.
	Ignore func(path string) bool
	// StabilityThreshold is how long a file's size and mtime must stay
	// unchanged before its event is emitted. Zero emits on the next poll.
	StabilityThreshold time.Duration
	PollInterval       time.Duration
	// ReportExisting emits KindAdded for every file found by the initial
	// walk, before KindReady.
	ReportExisting bool
	EventBuffer    int
}

// Source turns fsnotify notifications for a directory tree into settled
// Events. Run must be called exactly once.
type Source struct {
	opts    Options
	events  chan Event
	fsw     *fsnotify.Watcher
	pending map[string]*settling
	// known holds every file seen since Run started, so a Create over an
	// existing path (an editor's rename-into-place save) reads as a change.
	known map[string]struct{}
}

type settling struct {
	kind    Kind
	size    int64
	modTime time.Time
	since   time.Time
}

var (
	statFile = os.Stat
	now      = time.Now
)

var errNoRoot = errors.New("watch root is empty")

func NewSource(opts Options) (*Source, error) {
	if opts.Root == "" {
		return nil, errNoRoot
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	if opts.Ignore == nil {
		opts.Ignore = func(string) bool { return false }
	}
	return &Source{
		opts:    opts,
		events:  make(chan Event, opts.EventBuffer),
		pending: make(map[string]*settling),
		known:   make(map[string]struct{}),
	}, nil
}

// Events is closed when Run returns.
func (s *Source) Events() <-chan Event {
	return s.events
}

// Run walks the tree, emits KindReady, and then forwards settled changes
// until ctx is cancelled.
func (s *Source) Run(ctx context.Context) error {
	defer close(s.events)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()
	s.fsw = fsw

	if err := fsw.Add(s.opts.Root); err != nil {
		return &Error{Path: s.opts.Root, Err: err}
	}
	if !s.walk(ctx, s.opts.Root, false) {
		return nil
	}
	if !s.emit(ctx, Event{Kind: KindReady}) {
		return nil
	}

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !s.handle(ctx, event) {
				return nil
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			if !s.emit(ctx, Event{Kind: KindError, Err: &Error{Err: err}}) {
				return nil
			}
		case <-ticker.C:
			if !s.settle(ctx) {
				return nil
			}
		}
	}
}

// walk subscribes to every non-ignored directory below dir. On the initial
// scan files are only remembered, or emitted as KindAdded with
// ReportExisting. In directories created while running they settle as
// KindAdded.
func (s *Source) walk(ctx context.Context, dir string, created bool) bool {
	alive := true
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			alive = s.emit(ctx, Event{Kind: KindError, Err: &Error{Path: path, Err: err}})
			if !alive {
				return filepath.SkipAll
			}
			return nil
		}
		if path == dir {
			return nil
		}
		if s.opts.Ignore(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := s.fsw.Add(path); err != nil {
				alive = s.emit(ctx, Event{Kind: KindError, Err: &Error{Path: path, Err: err}})
				if !alive {
					return filepath.SkipAll
				}
			}
			return nil
		}
		s.known[path] = struct{}{}
		if created {
			s.track(path, KindAdded)
			return nil
		}
		if s.opts.ReportExisting {
			alive = s.emit(ctx, Event{Kind: KindAdded, Path: path})
			if !alive {
				return filepath.SkipAll
			}
		}
		return nil
	})
	return alive
}

func (s *Source) handle(ctx context.Context, event fsnotify.Event) bool {
	path := event.Name
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		delete(s.pending, path)
		return true
	case event.Has(fsnotify.Create):
		if s.opts.Ignore(path) {
			return true
		}
		info, err := statFile(path)
		if err != nil {
			return true
		}
		if info.IsDir() {
			if err := s.fsw.Add(path); err != nil {
				return s.emit(ctx, Event{Kind: KindError, Err: &Error{Path: path, Err: err}})
			}
			return s.walk(ctx, path, true)
		}
		kind := KindAdded
		if _, ok := s.known[path]; ok {
			kind = KindChanged
		}
		s.known[path] = struct{}{}
		s.track(path, kind)
	case event.Has(fsnotify.Write):
		if s.opts.Ignore(path) {
			return true
		}
		s.known[path] = struct{}{}
		s.track(path, KindChanged)
	}
	return true
}

// track starts (or restarts) the settle window for path. A file that was
// created and then written before settling is still reported as added.
func (s *Source) track(path string, kind Kind) {
	info, err := statFile(path)
	if err != nil || info.IsDir() {
		return
	}
	if prev, ok := s.pending[path]; ok {
		kind = prev.kind
	}
	s.pending[path] = &settling{
		kind:    kind,
		size:    info.Size(),
		modTime: info.ModTime(),
		since:   now(),
	}
}

// settle emits every pending path whose size and mtime have not moved for
// the stability threshold.
func (s *Source) settle(ctx context.Context) bool {
	t := now()
	for path, p := range s.pending {
		info, err := statFile(path)
		if err != nil {
			delete(s.pending, path)
			continue
		}
		if info.Size() != p.size || !info.ModTime().Equal(p.modTime) {
			p.size = info.Size()
			p.modTime = info.ModTime()
			p.since = t
			continue
		}
		if t.Sub(p.since) < s.opts.StabilityThreshold {
			continue
		}
		delete(s.pending, path)
		if !s.emit(ctx, Event{Kind: p.kind, Path: path}) {
			return false
		}
	}
	return true
}

func (s *Source) emit(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
