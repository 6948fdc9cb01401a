package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/4ry1337/openvis/pkg/broadcast"
	"github.com/4ry1337/openvis/pkg/errors"
)

// eventName maps hub topics to SSE event names.
var eventName = map[string]string{
	broadcast.TopicFrames:        "frame",
	broadcast.TopicNotifications: "notification",
}

// handleEvents streams frames and notifications as server-sent events.
//
// The first event is "hello" carrying the session id, followed by the
// current frame so a new client does not wait for the next tick.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, errors.New(errors.ErrCodeInternal, "streaming not supported"))
		return
	}

	ctx := r.Context()
	hub := s.engine.Hub()
	frames, err := hub.Subscribe(ctx, broadcast.TopicFrames)
	if err != nil {
		s.respondError(w, errors.Wrap(errors.ErrCodeInternal, err, "subscribe"))
		return
	}
	defer frames.Unsubscribe()
	notes, err := hub.Subscribe(ctx, broadcast.TopicNotifications)
	if err != nil {
		s.respondError(w, errors.Wrap(errors.ErrCodeInternal, err, "subscribe"))
		return
	}
	defer notes.Unsubscribe()

	if s.metrics != nil {
		s.metrics.SSEClients.Inc()
		defer s.metrics.SSEClients.Dec()
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "hello", map[string]string{"session": s.engine.ID()}); err != nil {
		return
	}
	if f, err := s.engine.Frame(); err == nil {
		if err := writeEvent(w, "frame", f); err != nil {
			return
		}
	}
	flusher.Flush()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		var msg broadcast.Message
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
			continue
		case m, ok := <-frames.C():
			if !ok {
				return
			}
			msg = m
		case m, ok := <-notes.C():
			if !ok {
				return
			}
			msg = m
		}
		if err := writeEvent(w, eventName[msg.Topic], msg.Payload); err != nil {
			s.log.Debug("event stream closed", "err", err)
			return
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
