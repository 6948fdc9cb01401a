// Package file replays topology snapshots stored as JSON files.
//
// Each controller URL maps to a directory under the replay root named after
// the URL host (with ':' replaced by '_'), so http://ctrl-a:8080 reads from
// <root>/ctrl-a_8080. The directory holds snapshot files in the wire format
// ({"nodes": [...], "links": [...]}); they are emitted in lexical order, one
// per poll interval, starting over after the last.
package file

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"k8s.io/utils/clock"

	"github.com/4ry1337/openvis/pkg/errors"
	"github.com/4ry1337/openvis/pkg/source"
	"github.com/4ry1337/openvis/pkg/topology"
)

// Source replays snapshot files from a root directory.
type Source struct {
	root   string
	clock  clock.WithTicker
	logger *log.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithClock sets the clock driving the replay interval.
func WithClock(c clock.WithTicker) Option { return func(s *Source) { s.clock = c } }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(s *Source) { s.logger = l } }

// New creates a replay source rooted at dir.
func New(dir string, opts ...Option) *Source {
	s := &Source{root: dir, clock: clock.RealClock{}, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ source.Source = (*Source)(nil)

// Dir returns the directory replayed for url.
func (s *Source) Dir(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", errors.New(errors.ErrCodeInvalidURL, "cannot map %q to a replay directory", rawURL)
	}
	return filepath.Join(s.root, strings.ReplaceAll(u.Host, ":", "_")), nil
}

// Probe succeeds when the replay directory exists and holds at least one
// snapshot file.
func (s *Source) Probe(ctx context.Context, rawURL string) error {
	_, err := s.files(rawURL)
	return err
}

// Open replays the directory for rawURL, one file per interval.
func (s *Source) Open(ctx context.Context, rawURL string, interval time.Duration) (source.Stream, error) {
	files, err := s.files(rawURL)
	if err != nil {
		return nil, err
	}
	r := &replay{files: files}
	return source.Poll(ctx, r.next, source.PollConfig{
		Interval: interval,
		Clock:    s.clock,
		Logger:   s.logger.With("replay", rawURL),
	}), nil
}

func (s *Source) files(rawURL string) ([]string, error) {
	dir, err := s.Dir(rawURL)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnreachable, err, "no replay data for %s", rawURL)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, errors.New(errors.ErrCodeUnreachable, "no snapshot files in %s", dir)
	}
	slices.Sort(files)
	return files, nil
}

type replay struct {
	mu    sync.Mutex
	files []string
	pos   int
}

func (r *replay) next(ctx context.Context) (topology.Snapshot, error) {
	r.mu.Lock()
	path := r.files[r.pos]
	r.pos = (r.pos + 1) % len(r.files)
	r.mu.Unlock()
	return Load(path)
}

// Load reads and validates one snapshot file.
func Load(path string) (topology.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return topology.Snapshot{}, errors.Wrap(errors.ErrCodeFetch, err, "read %s", filepath.Base(path))
	}
	var snap topology.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return topology.Snapshot{}, errors.Wrap(errors.ErrCodeValidation, err, "decode %s", filepath.Base(path))
	}
	if err := snap.Validate(); err != nil {
		return topology.Snapshot{}, errors.Wrap(errors.ErrCodeValidation, err, "invalid snapshot in %s", filepath.Base(path))
	}
	return snap, nil
}
