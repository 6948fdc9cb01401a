package server

import (
	"net/http"
	"time"

	"github.com/4ry1337/openvis/pkg/buildinfo"
	"github.com/4ry1337/openvis/pkg/connection"
	"github.com/4ry1337/openvis/pkg/errors"
	"github.com/4ry1337/openvis/pkg/layout"
	"github.com/4ry1337/openvis/pkg/render/nodelink"
)

// =============================================================================
// Request and response bodies
// =============================================================================

type connectRequest struct {
	URL      string `json:"url" validate:"required"`
	Interval int    `json:"interval" validate:"gte=0"` // milliseconds, 0 for the default
}

type urlRequest struct {
	URL string `json:"url" validate:"required"`
}

type dragRequest struct {
	ID    string  `json:"id" validate:"required"`
	Phase string  `json:"phase" validate:"required,oneof=start move end"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type idRequest struct {
	ID string `json:"id" validate:"required"`
}

type transformRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k" validate:"gt=0"`
}

type zoomRequest struct {
	Factor float64 `json:"factor" validate:"gt=0"`
	CX     float64 `json:"cx"`
	CY     float64 `json:"cy"`
}

type panRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type controllerView struct {
	URL       string            `json:"url"`
	Interval  int64             `json:"interval"` // milliseconds
	Status    connection.Status `json:"status"`
	LastError string            `json:"last_error,omitempty"`
	Since     time.Time         `json:"since"`
}

func viewOf(c connection.Controller) controllerView {
	return controllerView{
		URL:       c.URL,
		Interval:  c.Interval.Milliseconds(),
		Status:    c.Status,
		LastError: c.LastError,
		Since:     c.Since,
	}
}

// =============================================================================
// Views
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"session": s.engine.ID(),
		"version": buildinfo.Version,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, buildinfo.Get())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats()
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.engine.Graph()
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, g)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	f, err := s.engine.Frame()
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, f)
}

func (s *Server) handleGraphSVG(w http.ResponseWriter, r *http.Request) {
	f, err := s.engine.Frame()
	if err != nil {
		s.respondError(w, err)
		return
	}
	dot := nodelink.ToDOT(f, nodelink.Options{Detailed: r.URL.Query().Get("detailed") == "1"})
	svg, err := nodelink.RenderSVG(r.Context(), dot)
	if err != nil {
		s.respondError(w, errors.Wrap(errors.ErrCodeInternal, err, "render graph"))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(svg)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.Notifications())
}

// =============================================================================
// Controllers
// =============================================================================

func (s *Server) handleListControllers(w http.ResponseWriter, r *http.Request) {
	ctrls := s.engine.Controllers()
	out := make([]controllerView, len(ctrls))
	for i, c := range ctrls {
		out[i] = viewOf(c)
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	interval := time.Duration(req.Interval) * time.Millisecond
	if err := s.engine.Connect(r.Context(), req.URL, interval); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondController(w, http.StatusCreated, req.URL)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		s.respondError(w, errors.New(errors.ErrCodeInvalidInput, "missing url query parameter"))
		return
	}
	if err := s.engine.Disconnect(url); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.engine.Retry(r.Context(), req.URL); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondController(w, http.StatusOK, req.URL)
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.engine.Probe(r.Context(), req.URL); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"healthy": true})
}

func (s *Server) respondController(w http.ResponseWriter, status int, url string) {
	url = errors.NormalizeURL(url)
	for _, c := range s.engine.Controllers() {
		if c.URL == url {
			s.respondJSON(w, status, viewOf(c))
			return
		}
	}
	// Disconnected again in the meantime.
	s.respondError(w, errors.New(errors.ErrCodeNotConnected, "no controller registered at %s", url))
}

// =============================================================================
// Layout controls
// =============================================================================

func (s *Server) handleGetParams(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Params()
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleSetParams(w http.ResponseWriter, r *http.Request) {
	var p layout.Params
	if err := s.decode(w, r, &p); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.engine.SetParams(p); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleGetFilter(w http.ResponseWriter, r *http.Request) {
	f, err := s.engine.Filter()
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, f)
}

func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	var f layout.Filter
	if err := s.decode(w, r, &f); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.engine.SetFilter(f); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, f)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Reset(); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"params": layout.DefaultParams(),
		"filter": layout.DefaultFilter(),
	})
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	var err error
	switch req.Phase {
	case "start":
		err = s.engine.DragStart(req.ID)
	case "move":
		err = s.engine.DragMove(req.ID, req.X, req.Y)
	case "end":
		err = s.engine.DragEnd(req.ID)
	}
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnpin(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.engine.Unpin(req.ID); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetTransform(w http.ResponseWriter, r *http.Request) {
	var req transformRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondTransform(w)(s.engine.Zoom(layout.Transform{X: req.X, Y: req.Y, K: req.K}))
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondTransform(w)(s.engine.ZoomBy(req.Factor, req.CX, req.CY))
}

func (s *Server) handlePan(w http.ResponseWriter, r *http.Request) {
	var req panRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondTransform(w)(s.engine.Pan(req.DX, req.DY))
}

func (s *Server) respondTransform(w http.ResponseWriter) func(layout.Transform, error) {
	return func(t layout.Transform, err error) {
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, t)
	}
}
