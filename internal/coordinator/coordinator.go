// Package coordinator decides which watch events become feedback dispatches
// and when they start.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/yubzen/hedgehog/internal/config"
	"github.com/yubzen/hedgehog/internal/logging"
	"github.com/yubzen/hedgehog/internal/watch"
)

type Filter interface {
	Qualifies(path string) bool
}

// Dispatcher performs one dispatch. It must not panic and reports its own
// failures.
type Dispatcher interface {
	Run(ctx context.Context, ev watch.Event)
}

type Reporter interface {
	Error(msg string, err error)
}

type Options struct {
	Filter     Filter
	Dispatcher Dispatcher
	Reporter   Reporter
	Window     time.Duration
	Mode       config.DebounceMode
	Overlap    config.OverlapPolicy
	// AcceptInitial dispatches adds reported before ready, for sources
	// that report existing files.
	AcceptInitial bool
	Logger        *slog.Logger
	// OnReady runs on the coordinator goroutine when the source finishes its
	// initial scan.
	OnReady func()
}

// Coordinator owns every pending timer on the goroutine running Run.
// Timers post generation-tagged fires back to that goroutine, so a fire
// from a superseded timer is recognised and dropped.
type Coordinator struct {
	opts  Options
	log   *slog.Logger
	fires chan fire
	ended chan struct{}
	quit  chan struct{}
	wg    sync.WaitGroup

	// loop-owned
	slots   map[string]*slot
	gen     uint64
	ready   bool
	running bool
	waiting *watch.Event
}

type slot struct {
	ev    watch.Event
	gen   uint64
	timer *time.Timer
}

type fire struct {
	key string
	gen uint64
}

var (
	errNoFilter     = errors.New("coordinator filter is nil")
	errNoDispatcher = errors.New("coordinator dispatcher is nil")
)

func New(opts Options) (*Coordinator, error) {
	if opts.Filter == nil {
		return nil, errNoFilter
	}
	if opts.Dispatcher == nil {
		return nil, errNoDispatcher
	}
	if opts.Window <= 0 {
		opts.Window = config.DefaultDebounce
	}
	if opts.Mode == "" {
		opts.Mode = config.DebounceGlobal
	}
	if opts.Overlap == "" {
		opts.Overlap = config.OverlapAllow
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Coordinator{
		opts:  opts,
		log:   log,
		fires: make(chan fire),
		ended: make(chan struct{}),
		quit:  make(chan struct{}),
		slots: make(map[string]*slot),
	}, nil
}

// Run consumes events until ctx is cancelled or events is closed. Pending
// timers are cancelled on return; dispatches already started keep running
// under ctx. Run must be called once.
func (c *Coordinator) Run(ctx context.Context, events <-chan watch.Event) error {
	defer close(c.quit)
	defer c.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.handle(ev)
		case f := <-c.fires:
			s, ok := c.slots[f.key]
			if !ok || s.gen != f.gen {
				c.log.Debug("dropping superseded dispatch", "gen", f.gen)
				continue
			}
			delete(c.slots, f.key)
			c.start(ctx, s.ev)
		case <-c.ended:
			c.running = false
			if c.waiting != nil {
				ev := *c.waiting
				c.waiting = nil
				c.start(ctx, ev)
			}
		}
	}
}

// Wait blocks until every started dispatch has returned.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) handle(ev watch.Event) {
	switch ev.Kind {
	case watch.KindReady:
		c.ready = true
		if c.opts.OnReady != nil {
			c.opts.OnReady()
		}
	case watch.KindError:
		c.log.Debug("watch error", "err", ev.Err)
		if c.opts.Reporter != nil {
			c.opts.Reporter.Error("Watcher error", ev.Err)
		}
	case watch.KindAdded:
		if !c.ready && !c.opts.AcceptInitial {
			c.log.Debug("ignoring add before ready", "path", ev.Path)
			return
		}
		c.consider(ev)
	case watch.KindChanged:
		c.consider(ev)
	}
}

func (c *Coordinator) consider(ev watch.Event) {
	if !c.opts.Filter.Qualifies(ev.Path) {
		c.log.Debug("skipping (extension not in watch list or ignored)", "path", ev.Path)
		return
	}
	c.schedule(ev)
}

func (c *Coordinator) key(path string) string {
	if c.opts.Mode == config.DebouncePerPath {
		return path
	}
	return ""
}

// schedule replaces the pending dispatch for ev's slot and restarts its
// window.
func (c *Coordinator) schedule(ev watch.Event) {
	key := c.key(ev.Path)
	if old, ok := c.slots[key]; ok {
		old.timer.Stop()
		c.log.Debug("superseding pending dispatch", "old", old.ev.Path, "new", ev.Path)
	}
	c.gen++
	f := fire{key: key, gen: c.gen}
	c.slots[key] = &slot{
		ev:  ev,
		gen: f.gen,
		timer: time.AfterFunc(c.opts.Window, func() {
			select {
			case c.fires <- f:
			case <-c.quit:
			}
		}),
	}
}

func (c *Coordinator) start(ctx context.Context, ev watch.Event) {
	if c.opts.Overlap == config.OverlapSerialize {
		if c.running {
			if c.waiting != nil {
				c.log.Debug("replacing waiting dispatch", "old", c.waiting.Path, "new", ev.Path)
			}
			c.waiting = &ev
			return
		}
		c.running = true
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.opts.Dispatcher.Run(ctx, ev)
		if c.opts.Overlap == config.OverlapSerialize {
			select {
			case c.ended <- struct{}{}:
			case <-c.quit:
			}
		}
	}()
}

func (c *Coordinator) stopTimers() {
	for key, s := range c.slots {
		s.timer.Stop()
		delete(c.slots, key)
	}
}
