package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"ad-studio/internal/studio"
)

const eventWriteTimeout = 10 * time.Second

// Events streams a snapshot over a websocket after every session transition.
// The first message is the current snapshot.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	updates, cancel := sess.Subscribe()
	defer cancel()

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("failed to accept websocket", "err", err, "session_id", sess.ID())
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			h.logger.Debug("failed to close websocket", "err", closeErr, "session_id", sess.ID())
		}
	}()

	// CloseRead discards client messages and cancels ctx when the peer goes away.
	ctx := ws.CloseRead(r.Context())

	if err := writeSnapshot(ctx, ws, sess.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := writeSnapshot(ctx, ws, snap); err != nil {
				h.logger.Debug("websocket write failed", "err", err, "session_id", sess.ID())
				return
			}
		}
	}
}

func writeSnapshot(ctx context.Context, ws *websocket.Conn, snap studio.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
