package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// handleSessionWS drives a session over a websocket: the client sends
// SessionAction messages and receives a SessionEvent after every change,
// including changes made through the REST routes or another connection.
func handleSessionWS(logger *slog.Logger, sessions *Sessions, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := sessions.Do(id, nil); err != nil {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "session_id", id, "error", err)
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithTimeout(r.Context(), time.Hour)
		defer cancel()

		view, ch, err := sessions.Follow(id, broker)
		if err != nil {
			conn.Close(websocket.StatusPolicyViolation, "session expired")
			return
		}
		defer broker.Unsubscribe(id, ch)
		if err := wsjson.Write(ctx, conn, SessionEvent{Type: "state", Session: &view}); err != nil {
			return
		}

		replies := make(chan SessionEvent, 4)
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			defer close(replies)
			reply := func(body ErrorResponse) error {
				select {
				case replies <- SessionEvent{Type: "error", Error: &body}:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			for {
				_, data, err := conn.Read(gctx)
				if err != nil {
					return err
				}
				var a SessionAction
				if err := json.Unmarshal(data, &a); err != nil {
					if err := reply(ErrorResponse{Message: "invalid message"}); err != nil {
						return err
					}
					continue
				}

				_, err = sessions.Act(id, a.Action, a.apply, broker)
				if errors.Is(err, ErrNotFound) {
					return err
				}
				if err != nil {
					_, body := errorResponse(err)
					if err := reply(body); err != nil {
						return err
					}
				}
			}
		})

		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case data := <-ch:
					if err := conn.Write(gctx, websocket.MessageText, data); err != nil {
						return err
					}
				case ev, ok := <-replies:
					if !ok {
						return nil
					}
					data, _ := json.Marshal(ev)
					if err := conn.Write(gctx, websocket.MessageText, data); err != nil {
						return err
					}
				}
			}
		})

		err = g.Wait()
		switch {
		case errors.Is(err, ErrNotFound):
			conn.Close(websocket.StatusPolicyViolation, "session expired")
		case websocket.CloseStatus(err) == websocket.StatusNormalClosure:
			conn.Close(websocket.StatusNormalClosure, "")
		default:
			logger.Debug("websocket ended", "session_id", id, "error", err)
		}
	}
}
