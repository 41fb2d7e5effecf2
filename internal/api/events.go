package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/studybunny/carrot/internal/domain"
)

// ─── Live Event Stream ──────────────────────────────────────────────────────
// GET /api/events delivers wallet events as Server-Sent Events:
//
//	event: balance_changed
//	data: {"type":"balance_changed","severity":"success","message":"+0.10 CC earned! ...","balance":"0.10",...}
//
// A slow client misses events rather than stalling the wallet.

// eventBuffer is the per-client queue depth.
const eventBuffer = 32

// keepAlive is how often an idle stream gets a comment line.
var keepAlive = 25 * time.Second

type streamEvent struct {
	Type          domain.EventType `json:"type"`
	Severity      domain.Severity  `json:"severity,omitempty"`
	Message       string           `json:"message,omitempty"`
	Balance       string           `json:"balance"`
	AchievementID string           `json:"achievement_id,omitempty"`
	Timestamp     int64            `json:"timestamp"`
}

func toStreamEvent(e domain.Event) streamEvent {
	return streamEvent{
		Type:          e.Type,
		Severity:      e.Severity,
		Message:       e.Message,
		Balance:       domain.FormatAmount(e.Balance),
		AchievementID: e.AchievementID,
		Timestamp:     e.At.Unix(),
	}
}

// handleEvents serves the live event feed via Server-Sent Events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch, unsub := s.wallet.Subscribe(eventBuffer)
	defer unsub()

	// Current balance first so a fresh client can render immediately.
	hello := streamEvent{
		Type:      domain.EventBalanceChanged,
		Balance:   domain.FormatAmount(s.wallet.Balance()),
		Timestamp: time.Now().Unix(),
	}
	if err := writeSSE(w, hello); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case e, ok := <-ch:
			if !ok {
				return
			}
			if err := writeSSE(w, toStreamEvent(e)); err != nil {
				s.log.Debug().Err(err).Msg("event stream closed")
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, e streamEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
	return err
}
