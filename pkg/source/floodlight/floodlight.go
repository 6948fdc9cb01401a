// Package floodlight reads topology snapshots from a Floodlight SDN
// controller over its REST API.
//
// A snapshot is assembled from three endpoints fetched in parallel:
//
//	/wm/core/controller/switches/json   connected switches
//	/wm/topology/links/json             inter-switch links
//	/wm/device/                         learned hosts
//
// The result always contains one controller node linked to every switch,
// plus host nodes linked to the switch of their first attachment point.
package floodlight

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/4ry1337/openvis/pkg/errors"
	"github.com/4ry1337/openvis/pkg/httputil"
	"github.com/4ry1337/openvis/pkg/source"
	"github.com/4ry1337/openvis/pkg/topology"
)

// Kind identifies the controller flavour in controller metadata.
const Kind = "floodlight"

// Source talks to Floodlight controllers. It is safe for concurrent use.
type Source struct {
	client    *httputil.Client
	clock     clock.WithTicker
	logger    *log.Logger
	maxErrors int
}

// Option configures a Source.
type Option func(*Source)

// WithClient replaces the HTTP client.
func WithClient(c *httputil.Client) Option { return func(s *Source) { s.client = c } }

// WithClock sets the clock driving the poll interval.
func WithClock(c clock.WithTicker) Option { return func(s *Source) { s.clock = c } }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(s *Source) { s.logger = l } }

// WithMaxErrors sets how many consecutive fetch failures end a stream.
func WithMaxErrors(n int) Option { return func(s *Source) { s.maxErrors = n } }

// New creates a Floodlight source.
func New(opts ...Option) *Source {
	s := &Source{
		client:    httputil.NewClient(),
		clock:     clock.RealClock{},
		logger:    log.Default(),
		maxErrors: source.DefaultMaxErrors,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ source.Source = (*Source)(nil)

// Probe checks the controller's health endpoint. An unhealthy report is
// treated the same as no answer.
func (s *Source) Probe(ctx context.Context, url string) error {
	var h health
	if err := s.client.GetJSON(ctx, url+healthPath, &h); err != nil {
		return s.classify(err, url)
	}
	if !h.Healthy {
		return errors.New(errors.ErrCodeUnreachable, "Floodlight controller at %s reports unhealthy", url)
	}
	return nil
}

// Open starts polling url every interval.
func (s *Source) Open(ctx context.Context, url string, interval time.Duration) (source.Stream, error) {
	if err := errors.ValidateURL(url); err != nil {
		return nil, err
	}
	return source.Poll(ctx, func(ctx context.Context) (topology.Snapshot, error) {
		return s.Fetch(ctx, url)
	}, source.PollConfig{
		Interval:  interval,
		MaxErrors: s.maxErrors,
		Clock:     s.clock,
		Logger:    s.logger.With("controller", url),
	}), nil
}

// Fetch retrieves one snapshot from the controller at url.
func (s *Source) Fetch(ctx context.Context, url string) (topology.Snapshot, error) {
	var (
		switches []switchInfo
		links    []linkInfo
		devs     devices
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.client.GetJSON(ctx, url+switchesPath, &switches); err != nil {
			return s.classify(err, url)
		}
		return validationError(validateSwitches(switches))
	})
	g.Go(func() error {
		if err := s.client.GetJSON(ctx, url+linksPath, &links); err != nil {
			return s.classify(err, url)
		}
		return validationError(validateLinks(links))
	})
	g.Go(func() error {
		if err := s.client.GetJSON(ctx, url+devicesPath, &devs); err != nil {
			return s.classify(err, url)
		}
		return validationError(validateDevices(&devs))
	})
	if err := g.Wait(); err != nil {
		return topology.Snapshot{}, err
	}

	snap := buildSnapshot(url, switches, links, devs.Devices)
	s.logger.Debug("fetched snapshot", "controller", url,
		"switches", len(switches), "links", len(links), "hosts", len(devs.Devices))
	return snap, nil
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(errors.ErrCodeValidation, "%s", err)
}

// buildSnapshot converts the three endpoint responses into controller-local
// nodes and links.
func buildSnapshot(url string, switches []switchInfo, links []linkInfo, hosts []device) topology.Snapshot {
	ctrl := topology.Node{
		ID:    ControllerID,
		Type:  topology.TypeController,
		Label: "Controller",
		Details: &topology.ControllerDetails{
			Metadata: topology.ControllerMetadata{URL: url, Kind: Kind},
			Metrics: topology.ControllerMetrics{
				Switches: len(switches),
				Links:    len(links),
				Hosts:    len(hosts),
			},
		},
	}
	snap := topology.Snapshot{
		Nodes: make([]topology.Node, 0, 1+len(switches)+len(hosts)),
		Links: make([]topology.Link, 0, len(switches)+len(links)+len(hosts)),
	}
	snap.Nodes = append(snap.Nodes, ctrl)

	for _, sw := range switches {
		id := sw.ID()
		if id == "" {
			continue
		}
		snap.Nodes = append(snap.Nodes, topology.Node{
			ID:   id,
			Type: topology.TypeSwitch,
			Details: &topology.SwitchDetails{Metadata: topology.SwitchMetadata{
				DPID:            id,
				InetAddress:     sw.InetAddress,
				OpenFlowVersion: sw.OpenFlowVersion,
				ConnectedSince:  sw.ConnectedSince,
			}},
		})
		snap.Links = append(snap.Links, topology.Link{SourceID: ControllerID, TargetID: id})
	}

	for _, l := range links {
		snap.Links = append(snap.Links, topology.Link{
			SourceID: l.SrcSwitch,
			TargetID: l.DstSwitch,
			Metadata: &topology.LinkMetadata{
				SrcPort:   l.SrcPort,
				DstPort:   l.DstPort,
				Type:      l.Type,
				Direction: l.Direction,
			},
			Metrics: &topology.LinkMetrics{Latency: l.Latency},
		})
	}

	for _, d := range hosts {
		if len(d.MAC) == 0 || d.MAC[0] == "" {
			continue
		}
		mac := d.MAC[0]
		aps := make([]topology.AttachmentPoint, len(d.AttachmentPoint))
		for i, ap := range d.AttachmentPoint {
			aps[i] = topology.AttachmentPoint{Switch: ap.Switch, Port: ap.Port}
		}
		host := topology.Node{
			ID:   mac,
			Type: topology.TypeHost,
			Details: &topology.HostDetails{
				Metadata: topology.HostMetadata{
					MAC:              d.MAC,
					IPv4:             d.IPv4,
					IPv6:             d.IPv6,
					VLAN:             d.VLAN,
					AttachmentPoints: aps,
				},
				Metrics: topology.HostMetrics{LastSeen: d.LastSeen},
			},
		}
		if len(d.IPv4) > 0 {
			host.Label = d.IPv4[0]
		}
		snap.Nodes = append(snap.Nodes, host)

		if len(aps) > 0 {
			link := topology.Link{SourceID: mac, TargetID: aps[0].Switch}
			if port, err := strconv.Atoi(aps[0].Port); err == nil {
				link.Metadata = &topology.LinkMetadata{DstPort: port}
			}
			snap.Links = append(snap.Links, link)
		}
	}
	return snap
}

// classify maps a transport failure onto a coded error with a message
// suitable for showing to the operator.
func (s *Source) classify(err error, url string) error {
	var (
		statusErr *httputil.StatusError
		netErr    net.Error
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case stderrors.Is(err, context.Canceled):
		return err
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.As(err, &netErr) && netErr.Timeout():
		return errors.Wrap(errors.ErrCodeTimeout, err,
			"Floodlight request timed out after %s. Controller may be unresponsive at %s", s.client.Timeout(), url)
	case stderrors.As(err, &statusErr):
		switch {
		case statusErr.StatusCode == http.StatusNotFound:
			return errors.Wrap(errors.ErrCodeEndpointNotFound, err,
				"Floodlight endpoint not found at %s. This may be an unsupported Floodlight version", statusErr.URL)
		case statusErr.StatusCode == http.StatusServiceUnavailable:
			return errors.Wrap(errors.ErrCodeUnreachable, err,
				"Floodlight controller at %s is unavailable", url)
		case statusErr.StatusCode >= 500:
			return errors.Wrap(errors.ErrCodeNetwork, err,
				"Floodlight controller at %s returned an internal error (%d)", url, statusErr.StatusCode)
		default:
			return errors.Wrap(errors.ErrCodeNetwork, err,
				"Floodlight controller at %s returned status %d", url, statusErr.StatusCode)
		}
	case stderrors.As(err, &syntaxErr), stderrors.As(err, &typeErr):
		return errors.Wrap(errors.ErrCodeValidation, err, "invalid response from Floodlight at %s", url)
	default:
		return errors.Wrap(errors.ErrCodeNetwork, err,
			"Cannot connect to Floodlight controller at %s. Check the URL and that the controller is running", url)
	}
}
