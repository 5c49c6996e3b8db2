package api

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"

	"github.com/voocel/pilot/logx"
)

// handleEvents streams activity entries over a websocket. Slow readers fall
// behind the feed's ring buffer rather than stalling the executor.
func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.opts.Activity == nil {
		writeError(w, http.StatusServiceUnavailable, "activity feed is not configured")
		return
	}

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer func() {
		_ = c.Close(websocket.StatusInternalError, "server closing")
	}()

	ctx := r.Context()
	stream, err := s.opts.Activity.Subscribe(ctx)
	if err != nil {
		_ = c.Close(websocket.StatusGoingAway, "activity feed closed")
		return
	}

	for {
		select {
		case <-ctx.Done():
			_ = c.Close(websocket.StatusNormalClosure, "")
			return
		case entry, ok := <-stream:
			if !ok {
				_ = c.Close(websocket.StatusNormalClosure, "")
				return
			}
			data, err := json.Marshal(entry)
			if err != nil {
				logx.Log.Warn().Err(err).Msg("dropping unmarshalable activity entry")
				continue
			}
			if err := c.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}
}
