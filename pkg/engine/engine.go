// Package engine ties the connection manager, the reconciler and the layout
// simulation together.
//
// Every mutation of the merged graph or the simulation runs on a single
// event loop ([Engine.Run]): snapshot delivery, purges, parameter and filter
// changes, drag and zoom, the fade sweep and the layout ticks. Results leave
// the loop through a [broadcast.Hub]: layout frames on
// [broadcast.TopicFrames] while the simulation is moving, and connection
// notifications on [broadcast.TopicNotifications].
//
// The engine is the manager's [connection.Sink]. A stream's Deliver call
// waits until the loop has merged the snapshot, so delivery order per
// controller is preserved end to end.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/4ry1337/openvis/pkg/broadcast"
	"github.com/4ry1337/openvis/pkg/connection"
	"github.com/4ry1337/openvis/pkg/errors"
	"github.com/4ry1337/openvis/pkg/layout"
	"github.com/4ry1337/openvis/pkg/observability"
	"github.com/4ry1337/openvis/pkg/reconcile"
	"github.com/4ry1337/openvis/pkg/source"
	"github.com/4ry1337/openvis/pkg/store"
	"github.com/4ry1337/openvis/pkg/topology"
)

// Engine defaults.
const (
	DefaultFrameRate      = 60
	DefaultSweepInterval  = 250 * time.Millisecond
	DefaultParamsDebounce = 500 * time.Millisecond
	DefaultHistory        = 50
)

// ErrClosed is returned by operations on a closed engine.
var ErrClosed = errors.New(errors.ErrCodeInternal, "engine is closed")

// DisconnectPolicy selects what happens to a controller's nodes when it is
// disconnected.
type DisconnectPolicy string

const (
	// PurgeImmediately removes the partition as soon as the stream stops.
	PurgeImmediately DisconnectPolicy = "immediate"
	// FadeOut lets the partition fade for the fade window first.
	FadeOut DisconnectPolicy = "fade"
)

// ParseDisconnectPolicy parses a policy name. The empty string selects
// PurgeImmediately.
func ParseDisconnectPolicy(s string) (DisconnectPolicy, error) {
	switch DisconnectPolicy(s) {
	case "", PurgeImmediately:
		return PurgeImmediately, nil
	case FadeOut:
		return FadeOut, nil
	}
	return "", fmt.Errorf("unknown disconnect policy %q (want immediate or fade)", s)
}

// Config configures an Engine.
type Config struct {
	Source     source.Source     // required
	Hub        *broadcast.Hub    // defaults to a new hub
	Store      store.Store       // defaults to a store that persists nothing
	Connection connection.Config // Source, Store, Clock and Logger are filled in
	Layout     layout.Config     // zero Params and Filter select the defaults
	FadeWindow time.Duration     // defaults to reconcile.DefaultFadeWindow
	Disconnect DisconnectPolicy  // defaults to PurgeImmediately

	FrameRate      int           // frames per second while moving; defaults to DefaultFrameRate
	SweepInterval  time.Duration // fade sweep period; defaults to DefaultSweepInterval
	ParamsDebounce time.Duration // defaults to DefaultParamsDebounce
	History        int           // notifications kept for Notifications; defaults to DefaultHistory

	Clock  clock.WithTicker // defaults to the real clock
	Logger *log.Logger
}

// Stats summarizes the engine state.
type Stats struct {
	Session     string       `json:"session"`
	Nodes       int          `json:"nodes"`
	Links       int          `json:"links"`
	Fading      int          `json:"fading"`
	State       layout.State `json:"state"`
	Alpha       float64      `json:"alpha"`
	Controllers int          `json:"controllers"`
	Dropped     uint64       `json:"dropped"` // hub messages discarded for slow subscribers
}

// Engine is safe for concurrent use. Mutations are serialized on the loop
// started by Run; calls made before Run starts wait for it.
type Engine struct {
	cfg     Config
	id      string
	log     *log.Logger
	hub     *broadcast.Hub
	store   store.Store
	manager *connection.Manager

	// owned by the loop
	rec   *reconcile.Reconciler
	sim   *layout.Simulation
	dirty bool

	ops     chan request
	quit    chan struct{}
	exited  chan struct{}
	running atomic.Bool
	closing sync.Once

	saveMu sync.Mutex
	saves  sync.WaitGroup
	closed bool

	histMu  sync.Mutex
	history []connection.Notification
}

// New creates an engine and loads persisted params and filters. Load
// failures are logged and the defaults are kept.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Source == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "engine needs a snapshot source")
	}
	policy, err := ParseDisconnectPolicy(string(cfg.Disconnect))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid engine config")
	}
	cfg.Disconnect = policy
	if cfg.Layout.Drop != "" {
		if _, err := layout.ParseDropBehavior(string(cfg.Layout.Drop)); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid engine config")
		}
	}
	if cfg.Layout.Params != (layout.Params{}) {
		if err := cfg.Layout.Params.Validate(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid layout params")
		}
	}
	if cfg.Hub == nil {
		cfg.Hub = broadcast.NewHub(0)
	}
	if cfg.Store == nil {
		cfg.Store = store.NewNull()
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = DefaultFrameRate
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.ParamsDebounce <= 0 {
		cfg.ParamsDebounce = DefaultParamsDebounce
	}
	if cfg.History <= 0 {
		cfg.History = DefaultHistory
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	e := &Engine{
		cfg:    cfg,
		id:     uuid.NewString(),
		log:    cfg.Logger,
		hub:    cfg.Hub,
		store:  cfg.Store,
		rec:    reconcile.New(reconcile.Config{FadeWindow: cfg.FadeWindow, Clock: cfg.Clock}),
		ops:    make(chan request),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
	}

	lc := cfg.Layout
	if p, ok, err := store.LoadParams(ctx, e.store); err != nil {
		e.log.Warn("could not load layout params", "err", err)
	} else if ok {
		lc.Params = p
	}
	e.sim = layout.New(lc)
	// Set after New: a saved filter hiding every type is the zero Filter,
	// which New would replace with the default.
	if f, ok, err := store.LoadFilter(ctx, e.store); err != nil {
		e.log.Warn("could not load filter", "err", err)
	} else if ok {
		e.sim.SetFilter(f)
	}

	cc := cfg.Connection
	cc.Source = cfg.Source
	cc.Store = cfg.Store
	cc.Clock = cfg.Clock
	cc.Logger = cfg.Logger
	e.manager = connection.New(cc, e)
	return e, nil
}

// ID returns the session id of this engine.
func (e *Engine) ID() string { return e.id }

// Hub returns the hub frames and notifications are published on.
func (e *Engine) Hub() *broadcast.Hub { return e.hub }

// Manager returns the connection manager feeding the engine.
func (e *Engine) Manager() *connection.Manager { return e.manager }

// =============================================================================
// Event loop
// =============================================================================

// Run drives the engine until ctx is done or Close is called. It also runs
// the manager's background retry loop.
func (e *Engine) Run(ctx context.Context) {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	defer close(e.exited)
	select {
	case <-e.quit:
		return
	default:
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var retries sync.WaitGroup
	retries.Add(1)
	go func() {
		defer retries.Done()
		e.manager.Run(ctx)
	}()
	defer retries.Wait()

	frames := e.cfg.Clock.NewTicker(time.Second / time.Duration(e.cfg.FrameRate))
	defer frames.Stop()
	sweeps := e.cfg.Clock.NewTicker(e.cfg.SweepInterval)
	defer sweeps.Stop()

	var debounce clock.Timer
	var saveC <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	e.log.Debug("engine started", "session", e.id, "fps", e.cfg.FrameRate)
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.quit:
			return
		case req := <-e.ops:
			before := e.sim.Params()
			req.fn()
			if e.sim.Params() != before {
				if debounce == nil {
					debounce = e.cfg.Clock.NewTimer(e.cfg.ParamsDebounce)
				} else {
					if !debounce.Stop() {
						select {
						case <-debounce.C():
						default:
						}
					}
					debounce.Reset(e.cfg.ParamsDebounce)
				}
				saveC = debounce.C()
			}
			close(req.done)
		case <-saveC:
			saveC = nil
			p := e.sim.Params()
			e.persist("params", func(ctx context.Context) error {
				return store.SaveParams(ctx, e.store, p)
			})
		case <-frames.C():
			e.frame()
		case <-sweeps.C():
			e.sweep()
		}
	}
}

type request struct {
	fn   func()
	done chan struct{}
}

// do runs fn on the loop and waits for it.
func (e *Engine) do(fn func()) error {
	done := make(chan struct{})
	select {
	case e.ops <- request{fn: fn, done: done}:
	case <-e.quit:
		return ErrClosed
	case <-e.exited:
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-e.exited:
		return ErrClosed
	}
}

// frame advances the simulation one tick and publishes a frame when
// anything moved or changed.
func (e *Engine) frame() {
	start := time.Now()
	moved := e.sim.Tick()
	if moved {
		observability.Layout().OnTick(e.sim.Alpha(), time.Since(start))
	}
	if !moved && !e.dirty {
		return
	}
	e.dirty = false
	f := e.sim.Frame(e.rec.IsFading)
	observability.Layout().OnFrame(len(f.Nodes), len(f.Links))
	e.hub.Publish(broadcast.TopicFrames, f)
}

func (e *Engine) sweep() {
	if purged := e.rec.Sweep(); len(purged) > 0 {
		e.log.Debug("purged faded nodes", "count", len(purged))
		e.setGraph("sweep")
	}
}

func (e *Engine) setGraph(cause string) {
	e.sim.SetGraph(e.rec.Graph())
	observability.Layout().OnReheat(cause)
	e.dirty = true
}

// persist saves outside the loop so the loop never waits on the store.
func (e *Engine) persist(what string, save func(context.Context) error) {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()
	if e.closed {
		e.log.Debug("engine closed, not saving", "what", what)
		return
	}
	e.saves.Add(1)
	go func() {
		defer e.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := save(ctx); err != nil {
			e.log.Warn("could not save preferences", "what", what, "err", err)
		}
	}()
}

// =============================================================================
// connection.Sink
// =============================================================================

var _ connection.Sink = (*Engine)(nil)

// Deliver merges a snapshot from url and waits until it is applied.
func (e *Engine) Deliver(url string, snap topology.Snapshot) {
	err := e.do(func() {
		if _, changed := e.rec.Apply(url, snap); changed {
			e.setGraph("topology")
		}
	})
	if err != nil {
		e.log.Debug("snapshot dropped", "url", url, "err", err)
	}
}

// Purge removes url's partition according to the disconnect policy.
func (e *Engine) Purge(url string) {
	err := e.do(func() {
		switch e.cfg.Disconnect {
		case FadeOut:
			if ids := e.rec.Fade(url); len(ids) > 0 {
				e.dirty = true
			}
		default:
			if e.rec.Purge(url) > 0 {
				e.setGraph("disconnect")
			}
		}
	})
	if err != nil {
		e.log.Debug("purge dropped", "url", url, "err", err)
	}
}

// Notify publishes n and keeps it in the recent history.
func (e *Engine) Notify(n connection.Notification) {
	e.histMu.Lock()
	e.history = append(e.history, n)
	if over := len(e.history) - e.cfg.History; over > 0 {
		e.history = append(e.history[:0:0], e.history[over:]...)
	}
	e.histMu.Unlock()
	e.hub.Publish(broadcast.TopicNotifications, n)
}

// Notifications returns the most recent notifications, oldest first.
func (e *Engine) Notifications() []connection.Notification {
	e.histMu.Lock()
	defer e.histMu.Unlock()
	return append([]connection.Notification(nil), e.history...)
}

// =============================================================================
// Controllers
// =============================================================================

// Connect registers and connects a controller.
func (e *Engine) Connect(ctx context.Context, url string, interval time.Duration) error {
	return e.manager.Connect(ctx, url, interval)
}

// Disconnect stops a controller and removes its nodes.
func (e *Engine) Disconnect(url string) error { return e.manager.Disconnect(url) }

// Retry reconnects a failed controller.
func (e *Engine) Retry(ctx context.Context, url string) error { return e.manager.Retry(ctx, url) }

// Probe checks url once without registering it.
func (e *Engine) Probe(ctx context.Context, url string) error {
	url = errors.NormalizeURL(url)
	if err := errors.ValidateURL(url); err != nil {
		return err
	}
	timeout := e.cfg.Connection.ProbeTimeout
	if timeout <= 0 {
		timeout = connection.DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return e.cfg.Source.Probe(ctx, url)
}

// Controllers lists the registered controllers.
func (e *Engine) Controllers() []connection.Controller { return e.manager.Controllers() }

// =============================================================================
// Layout controls
// =============================================================================

// Params returns the active force parameters.
func (e *Engine) Params() (layout.Params, error) {
	var p layout.Params
	err := e.do(func() { p = e.sim.Params() })
	return p, err
}

// SetParams validates and applies p. The params are saved once they stop
// changing for the debounce period.
func (e *Engine) SetParams(p layout.Params) error {
	if err := p.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid layout params")
	}
	var applyErr error
	if err := e.do(func() { applyErr = e.sim.SetParams(p) }); err != nil {
		return err
	}
	return applyErr
}

// Filter returns the active visibility filter.
func (e *Engine) Filter() (layout.Filter, error) {
	var f layout.Filter
	err := e.do(func() { f = e.sim.Filter() })
	return f, err
}

// SetFilter applies and saves f. Physics is not affected.
func (e *Engine) SetFilter(f layout.Filter) error {
	err := e.do(func() {
		e.sim.SetFilter(f)
		e.dirty = true
	})
	if err != nil {
		return err
	}
	e.persist("filter", func(ctx context.Context) error { return store.SaveFilter(ctx, e.store, f) })
	return nil
}

// Reset restores the default params and filter and saves them.
func (e *Engine) Reset() error {
	p, f := layout.DefaultParams(), layout.DefaultFilter()
	var applyErr error
	err := e.do(func() {
		applyErr = e.sim.SetParams(p)
		e.sim.SetFilter(f)
		e.dirty = true
	})
	if err != nil {
		return err
	}
	if applyErr != nil {
		return applyErr
	}
	e.persist("defaults", func(ctx context.Context) error {
		if err := store.SaveParams(ctx, e.store, p); err != nil {
			return err
		}
		return store.SaveFilter(ctx, e.store, f)
	})
	return nil
}

// DragStart pins node id where it is and heats the simulation.
func (e *Engine) DragStart(id string) error {
	return e.interact(func() error { return e.sim.DragStart(id) })
}

// DragMove moves the dragged node to the screen point (x, y).
func (e *Engine) DragMove(id string, x, y float64) error {
	return e.interact(func() error {
		sx, sy := e.sim.Transform().Invert(x, y)
		return e.sim.DragMove(id, sx, sy)
	})
}

// DragEnd drops the dragged node.
func (e *Engine) DragEnd(id string) error {
	return e.interact(func() error { return e.sim.DragEnd(id) })
}

// Unpin frees a node left pinned by an earlier drop.
func (e *Engine) Unpin(id string) error {
	return e.interact(func() error { return e.sim.Unpin(id) })
}

// Zoom replaces the pan/zoom transform. The scale is clamped.
func (e *Engine) Zoom(t layout.Transform) (layout.Transform, error) {
	var out layout.Transform
	err := e.interact(func() error {
		e.sim.Zoom(t)
		out = e.sim.Transform()
		return nil
	})
	return out, err
}

// ZoomBy scales by factor around the screen point (cx, cy).
func (e *Engine) ZoomBy(factor, cx, cy float64) (layout.Transform, error) {
	var out layout.Transform
	err := e.interact(func() error {
		e.sim.Zoom(e.sim.Transform().ZoomAt(factor, cx, cy))
		out = e.sim.Transform()
		return nil
	})
	return out, err
}

// Pan moves the view by (dx, dy) screen units.
func (e *Engine) Pan(dx, dy float64) (layout.Transform, error) {
	var out layout.Transform
	err := e.interact(func() error {
		e.sim.Zoom(e.sim.Transform().Pan(dx, dy))
		out = e.sim.Transform()
		return nil
	})
	return out, err
}

func (e *Engine) interact(fn func() error) error {
	var opErr error
	err := e.do(func() {
		opErr = fn()
		e.dirty = true
	})
	if err != nil {
		return err
	}
	if opErr != nil {
		return errors.New(errors.ErrCodeInvalidInput, "%s", opErr)
	}
	return nil
}

// =============================================================================
// Views
// =============================================================================

// Frame renders the current state without advancing the simulation.
func (e *Engine) Frame() (layout.Frame, error) {
	var f layout.Frame
	err := e.do(func() { f = e.sim.Frame(e.rec.IsFading) })
	return f, err
}

// Graph returns a copy of the merged graph with current positions.
func (e *Engine) Graph() (topology.Graph, error) {
	var g topology.Graph
	err := e.do(func() { g = cloneGraph(e.rec.Graph()) })
	return g, err
}

// Stats summarizes the engine.
func (e *Engine) Stats() (Stats, error) {
	var s Stats
	err := e.do(func() {
		g := e.rec.Graph()
		s = Stats{
			Session: e.id,
			Nodes:   len(g.Nodes),
			Links:   len(g.Links),
			Fading:  e.rec.FadingCount(),
			State:   e.sim.State(),
			Alpha:   e.sim.Alpha(),
		}
	})
	s.Controllers = len(e.manager.Controllers())
	s.Dropped = e.hub.Dropped()
	return s, err
}

func cloneGraph(g topology.Graph) topology.Graph {
	out := topology.Graph{
		Nodes: make([]*topology.Node, len(g.Nodes)),
		Links: make([]*topology.Link, len(g.Links)),
	}
	for i, n := range g.Nodes {
		c := *n
		if n.FX != nil {
			x := *n.FX
			c.FX = &x
		}
		if n.FY != nil {
			y := *n.FY
			c.FY = &y
		}
		out.Nodes[i] = &c
	}
	for i, l := range g.Links {
		c := *l
		out.Links[i] = &c
	}
	return out
}

// =============================================================================
// Teardown
// =============================================================================

// Close stops every stream, the loop, the simulation and pending saves.
// The hub is shut down too, which ends every subscription. Close is safe to
// call more than once.
func (e *Engine) Close() {
	e.closing.Do(func() {
		close(e.quit)
		e.manager.Close()
		if e.running.Load() {
			<-e.exited
		}
		e.sim.Stop()
		e.saveMu.Lock()
		e.closed = true
		e.saveMu.Unlock()
		e.saves.Wait()
		e.hub.Shutdown()
		e.log.Debug("engine stopped", "session", e.id)
	})
}
