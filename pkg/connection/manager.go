// Package connection manages the lifecycle of controller connections.
//
// A [Manager] keeps one record per controller URL and drives it through
//
//	connecting -> connected | unreachable
//	connected  -> error            (fatal stream error)
//	unreachable, error -> connecting   (Retry)
//	any        -> disconnected     (Disconnect; the record is removed)
//
// Unreachable controllers are probed again by a background loop ([Manager.Run])
// every RetryPeriod. Controllers in the error state are never retried
// automatically; they need an explicit Retry.
//
// Each connected controller has one pump goroutine that forwards stream events
// to the [Sink] synchronously, so snapshots from one URL arrive in order.
package connection

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"k8s.io/utils/clock"

	"github.com/4ry1337/openvis/pkg/errors"
	"github.com/4ry1337/openvis/pkg/observability"
	"github.com/4ry1337/openvis/pkg/source"
	"github.com/4ry1337/openvis/pkg/store"
)

// Manager defaults.
const (
	DefaultProbeTimeout = 5 * time.Second
	DefaultRetryPeriod  = 30 * time.Second
)

// Config configures a Manager.
type Config struct {
	Source          source.Source    // required
	Store           store.Store      // defaults to a store that persists nothing
	ProbeTimeout    time.Duration    // defaults to DefaultProbeTimeout
	RetryPeriod     time.Duration    // defaults to DefaultRetryPeriod
	DefaultInterval time.Duration    // defaults to source.DefaultInterval
	Clock           clock.WithTicker // defaults to the real clock
	Logger          *log.Logger
}

// Manager owns the controller records. It is safe for concurrent use.
type Manager struct {
	cfg  Config
	sink Sink
	log  *log.Logger

	ctx    context.Context // parent of every stream
	cancel context.CancelFunc

	mu      sync.Mutex
	records map[string]*record
	nextGen uint64 // last generation handed out; never reused across records
	closed  bool
	persist sync.Mutex
}

type record struct {
	ctrl Controller
	gen  uint64 // unique per connect attempt across the Manager
	pump *pump
}

// pump forwards one stream's events to the sink.
type pump struct {
	stream  source.Stream
	mu      sync.Mutex // held while delivering
	stopped bool
	done    chan struct{}
}

// New creates a Manager delivering to sink.
func New(cfg Config, sink Sink) *Manager {
	if cfg.Store == nil {
		cfg.Store = store.NewNull()
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.RetryPeriod <= 0 {
		cfg.RetryPeriod = DefaultRetryPeriod
	}
	if cfg.DefaultInterval <= 0 {
		cfg.DefaultInterval = source.DefaultInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:     cfg,
		sink:    sink,
		log:     cfg.Logger,
		ctx:     ctx,
		cancel:  cancel,
		records: make(map[string]*record),
	}
}

// =============================================================================
// Operations
// =============================================================================

// Connect registers url and connects to it. An interval of zero selects the
// default polling interval.
//
// If the probe fails the record stays registered as unreachable for the
// background retry loop, and the probe error is returned.
func (m *Manager) Connect(ctx context.Context, url string, interval time.Duration) error {
	url = errors.NormalizeURL(url)
	if err := errors.ValidateURL(url); err != nil {
		return err
	}
	if interval == 0 {
		interval = m.cfg.DefaultInterval
	}
	if err := errors.ValidateInterval(int(interval.Milliseconds())); err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New(errors.ErrCodeInternal, "connection manager is closed")
	}
	if rec, ok := m.records[url]; ok && rec.ctrl.Status != StatusDisconnected {
		m.mu.Unlock()
		return errors.New(errors.ErrCodeAlreadyConnected, "already connected to %s", url)
	}
	rec := &record{ctrl: Controller{URL: url, Interval: interval}}
	m.records[url] = rec
	n := m.transition(rec, StatusConnecting, nil)
	gen := rec.gen
	m.mu.Unlock()
	m.notify(n)

	return m.connect(ctx, url, gen, false)
}

// Retry reconnects a controller that is unreachable or in the error state.
func (m *Manager) Retry(ctx context.Context, url string) error {
	return m.retry(ctx, errors.NormalizeURL(url), false)
}

func (m *Manager) retry(ctx context.Context, url string, background bool) error {
	m.mu.Lock()
	rec, ok := m.records[url]
	if !ok {
		m.mu.Unlock()
		return errors.New(errors.ErrCodeNotConnected, "no controller registered at %s", url)
	}
	switch rec.ctrl.Status {
	case StatusUnreachable, StatusError:
	default:
		status := rec.ctrl.Status
		m.mu.Unlock()
		return errors.New(errors.ErrCodeInvalidInput, "cannot retry %s while %s", url, status)
	}
	n := m.transition(rec, StatusConnecting, nil)
	gen := rec.gen
	m.mu.Unlock()
	m.notify(n)

	return m.connect(ctx, url, gen, background)
}

// Disconnect stops the controller's stream, removes its record and purges
// its partition from the sink. No snapshot from url is delivered after
// Disconnect returns.
func (m *Manager) Disconnect(url string) error {
	url = errors.NormalizeURL(url)

	m.mu.Lock()
	rec, ok := m.records[url]
	if !ok {
		m.mu.Unlock()
		return errors.New(errors.ErrCodeNotConnected, "no controller registered at %s", url)
	}
	delete(m.records, url)
	p := rec.pump
	rec.pump = nil
	n := m.transition(rec, StatusDisconnected, nil)
	m.mu.Unlock()

	if p != nil {
		p.stop()
	}
	m.save()
	m.sink.Purge(url)
	m.notify(n)
	return nil
}

// RetryUnreachable probes every unreachable controller once and reconnects
// the ones that answer. It returns the number reconnected.
func (m *Manager) RetryUnreachable(ctx context.Context) int {
	var urls []string
	m.mu.Lock()
	for url, rec := range m.records {
		if rec.ctrl.Status == StatusUnreachable {
			urls = append(urls, url)
		}
	}
	m.mu.Unlock()
	slices.Sort(urls)

	n := 0
	for _, url := range urls {
		if ctx.Err() != nil {
			break
		}
		if err := m.probe(ctx, url); err != nil {
			m.log.Debug("controller still unreachable", "url", url, "err", err)
			continue
		}
		if err := m.retry(ctx, url, true); err == nil {
			n++
		}
	}
	return n
}

// Run retries unreachable controllers every RetryPeriod until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := m.cfg.Clock.NewTicker(m.cfg.RetryPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.ctx.Done():
			return
		case <-ticker.C():
			m.RetryUnreachable(ctx)
		}
	}
}

// Restore reconnects every controller saved in the store. Individual
// failures are logged and leave the controller unreachable for the retry
// loop.
func (m *Manager) Restore(ctx context.Context) error {
	saved, err := store.LoadControllers(ctx, m.cfg.Store)
	if err != nil {
		return err
	}
	for _, c := range saved {
		interval := time.Duration(c.Interval) * time.Millisecond
		if err := m.Connect(ctx, c.URL, interval); err != nil {
			m.log.Warn("restore failed", "url", c.URL, "err", err)
		}
	}
	return nil
}

// Controllers returns the registered controllers sorted by URL.
func (m *Manager) Controllers() []Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Controller, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec.ctrl)
	}
	slices.SortFunc(out, func(a, b Controller) int { return strings.Compare(a.URL, b.URL) })
	return out
}

// Status returns the status of url and whether it is registered.
func (m *Manager) Status(url string) (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[errors.NormalizeURL(url)]
	if !ok {
		return StatusDisconnected, false
	}
	return rec.ctrl.Status, true
}

// Close stops every stream. Records are dropped without touching the store
// or the sink, so saved controllers are restored on the next start.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	var pumps []*pump
	for _, rec := range m.records {
		if rec.pump != nil {
			pumps = append(pumps, rec.pump)
			rec.pump = nil
		}
	}
	m.records = make(map[string]*record)
	m.mu.Unlock()

	m.cancel()
	for _, p := range pumps {
		p.stop()
	}
}

// =============================================================================
// Connect sequence
// =============================================================================

func (m *Manager) probe(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()
	start := time.Now()
	err := m.cfg.Source.Probe(ctx, url)
	observability.Connection().OnProbe(ctx, url, time.Since(start), err)
	return err
}

// connect runs probe and open for the record registered under gen. If the
// record was disconnected or restarted meanwhile, the attempt is abandoned.
func (m *Manager) connect(ctx context.Context, url string, gen uint64, background bool) error {
	if err := m.probe(ctx, url); err != nil {
		if !m.fail(url, gen, StatusUnreachable, err) {
			return errors.New(errors.ErrCodeNotConnected, "%s was disconnected while connecting", url)
		}
		m.save()
		return err
	}

	m.mu.Lock()
	rec, ok := m.records[url]
	if !ok || rec.gen != gen {
		m.mu.Unlock()
		return errors.New(errors.ErrCodeNotConnected, "%s was disconnected while connecting", url)
	}
	interval := rec.ctrl.Interval
	m.mu.Unlock()

	stream, err := m.cfg.Source.Open(m.ctx, url, interval)
	if err != nil {
		if !m.fail(url, gen, StatusError, err) {
			return errors.New(errors.ErrCodeNotConnected, "%s was disconnected while connecting", url)
		}
		m.save()
		return err
	}

	p := &pump{stream: stream, done: make(chan struct{})}
	m.mu.Lock()
	rec, ok = m.records[url]
	if !ok || rec.gen != gen || m.closed {
		m.mu.Unlock()
		stream.Close()
		return errors.New(errors.ErrCodeNotConnected, "%s was disconnected while connecting", url)
	}
	rec.pump = p
	message := "Connected to " + url
	if background {
		message = "Reconnected to " + url
	}
	n := m.transitionWith(rec, StatusConnected, nil, LevelSuccess, message)
	m.mu.Unlock()

	go m.run(url, gen, p)
	m.save()
	m.notify(n)
	return nil
}

// fail moves the record to status with err, unless it changed generation.
func (m *Manager) fail(url string, gen uint64, status Status, err error) bool {
	m.mu.Lock()
	rec, ok := m.records[url]
	if !ok || rec.gen != gen {
		m.mu.Unlock()
		return false
	}
	n := m.transition(rec, status, err)
	m.mu.Unlock()
	m.notify(n)
	return true
}

// run is the pump goroutine for one stream.
func (m *Manager) run(url string, gen uint64, p *pump) {
	defer close(p.done)
	defer p.stream.Close()
	logger := m.log.With("url", url)

	for ev := range p.stream.Events() {
		p.mu.Lock()
		if p.stopped {
			p.mu.Unlock()
			continue
		}
		switch ev.Kind {
		case source.EventTopology:
			observability.Connection().OnSnapshot(url, len(ev.Snapshot.Nodes), len(ev.Snapshot.Links))
			m.sink.Deliver(url, *ev.Snapshot)
		case source.EventError:
			if m.streamError(url, gen, ev.Err, logger) {
				// The deferred Close ends the stream.
				p.stopped = true
				p.mu.Unlock()
				return
			}
		}
		p.mu.Unlock()
	}
}

// streamError handles one error event and reports whether it was fatal.
func (m *Manager) streamError(url string, gen uint64, se *source.StreamError, logger *log.Logger) bool {
	fatal := se.Fatal()
	observability.Connection().OnStreamError(url, string(se.Code), fatal)
	if !fatal {
		logger.Warn("stream error", "code", se.Code, "msg", se.Message)
		m.notify(Notification{Level: LevelWarning, URL: url, Code: se.Code, Message: se.Message})
		return false
	}

	m.mu.Lock()
	rec, ok := m.records[url]
	if !ok || rec.gen != gen {
		m.mu.Unlock()
		return true
	}
	rec.pump = nil
	n := m.transition(rec, StatusError, se)
	m.mu.Unlock()
	m.save()
	m.notify(n)
	return true
}

func (p *pump) stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.stream.Close()
	<-p.done
}

// =============================================================================
// State bookkeeping
// =============================================================================

// transition changes the record status, logs it and returns the notification
// to emit once m.mu is released. It must be called with m.mu held.
func (m *Manager) transition(rec *record, to Status, cause error) Notification {
	level, message := LevelInfo, ""
	switch to {
	case StatusConnecting:
		message = "Connecting to " + rec.ctrl.URL
	case StatusConnected:
		level, message = LevelSuccess, "Connected to "+rec.ctrl.URL
	case StatusUnreachable, StatusError:
		level, message = LevelError, userMessage(cause)
	case StatusDisconnected:
		message = "Disconnected from " + rec.ctrl.URL
	}
	return m.transitionWith(rec, to, cause, level, message)
}

func (m *Manager) transitionWith(rec *record, to Status, cause error, level Level, message string) Notification {
	from := rec.ctrl.Status
	rec.ctrl.Status = to
	rec.ctrl.Since = m.cfg.Clock.Now()
	rec.ctrl.LastError = ""
	var code errors.Code
	if cause != nil {
		rec.ctrl.LastError = userMessage(cause)
		code = codeOf(cause)
	}
	if to == StatusConnecting {
		m.nextGen++
		rec.gen = m.nextGen
	}

	observability.Connection().OnStatusChange(rec.ctrl.URL, string(from), string(to))
	logger := m.log.With("url", rec.ctrl.URL, "status", to)
	if level == LevelError {
		logger.Error(message, "code", code)
	} else {
		logger.Info(message)
	}
	return Notification{Level: level, URL: rec.ctrl.URL, Status: to, Code: code, Message: message}
}

func userMessage(err error) string {
	if se, ok := err.(*source.StreamError); ok {
		return se.Message
	}
	return errors.UserMessage(err)
}

func codeOf(err error) errors.Code {
	if se, ok := err.(*source.StreamError); ok {
		return se.Code
	}
	if code := errors.GetCode(err); code != "" {
		return code
	}
	return errors.ErrCodeInternal
}

func (m *Manager) notify(n Notification) {
	n.Time = m.cfg.Clock.Now()
	m.sink.Notify(n)
}

// save persists the controller list. Failures are logged only.
func (m *Manager) save() {
	m.persist.Lock()
	defer m.persist.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	list := make([]store.SavedController, 0, len(m.records))
	for _, rec := range m.records {
		list = append(list, store.SavedController{
			URL:      rec.ctrl.URL,
			Interval: int(rec.ctrl.Interval.Milliseconds()),
		})
	}
	m.mu.Unlock()
	slices.SortFunc(list, func(a, b store.SavedController) int { return strings.Compare(a.URL, b.URL) })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.SaveControllers(ctx, m.cfg.Store, list); err != nil {
		m.log.Warn("failed to persist controllers", "err", err)
	}
}
