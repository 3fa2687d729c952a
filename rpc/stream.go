package rpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"questchain/core/events"
	"questchain/observability/metrics"
)

const (
	wsWriteTimeout = 10 * time.Second
	streamBuffer   = 128
)

// handleEventStream upgrades to a websocket and pushes feed records as JSON
// text frames. The optional backlog query replays that many recent records
// first; type filters by event type.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	feed := s.runtime.Feed()
	if feed == nil {
		writeError(w, http.StatusServiceUnavailable, "event feed unavailable")
		return
	}
	eventType := strings.TrimSpace(r.URL.Query().Get("type"))
	backlog := 0
	if raw := r.URL.Query().Get("backlog"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid backlog")
			return
		}
		backlog = n
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	defer metrics.Contracts().StreamOpened()()

	// Clients never send; CloseRead cancels ctx once the peer goes away.
	ctx := conn.CloseRead(r.Context())
	if err := streamEvents(ctx, conn, feed, eventType, backlog); err != nil {
		if status := websocket.CloseStatus(err); status == -1 && ctx.Err() == nil {
			s.logger.Debug("event stream ended", slog.String("request_id", RequestID(r.Context())), slog.Any("error", err))
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func streamEvents(ctx context.Context, conn *websocket.Conn, feed *events.Feed, eventType string, backlog int) error {
	// Subscribe before reading the backlog so nothing published in between
	// is lost; seq dedupes the overlap.
	updates, cancel := feed.Subscribe(streamBuffer)
	defer cancel()

	var last uint64
	if backlog > 0 {
		recent := feed.Recent(backlog, eventType)
		for i := len(recent) - 1; i >= 0; i-- {
			if err := writeRecord(ctx, conn, recent[i]); err != nil {
				return err
			}
			last = recent[i].Seq
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-updates:
			if !ok {
				return nil
			}
			if rec.Seq <= last {
				continue
			}
			if eventType != "" && (rec.Event == nil || rec.Event.Type != eventType) {
				continue
			}
			if err := writeRecord(ctx, conn, rec); err != nil {
				return err
			}
		}
	}
}

func writeRecord(ctx context.Context, conn *websocket.Conn, rec events.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
