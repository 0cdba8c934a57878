package daemon

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"scribe/internal/api"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/workflow"
)

const (
	eventWriteWait = 10 * time.Second
	pongWait       = 60 * time.Second
)

// handleJobEvents upgrades to a websocket and streams the job's events. The
// first message is a snapshot of the stored status; buffered events newer
// than ?since= follow, then live events until the job reaches a terminal
// status or the client disconnects.
func (s *apiServer) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	since, _ := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
	if since <= 0 {
		since = s.events.LastSeq()
	}
	status, err := s.jobs.GetStatus(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.readPump(conn, cancel)

	if err := s.streamJobEvents(ctx, conn, id, since, status); err != nil {
		s.logger.Debug("event stream ended", logging.String(logging.FieldJobID, id), logging.Error(err))
	}
}

// readPump drains client frames so control messages are processed, and
// cancels the stream once the peer goes away.
func (s *apiServer) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (s *apiServer) streamJobEvents(ctx context.Context, conn *websocket.Conn, id string, since int64, snapshot api.JobStatus) error {
	seq := since
	if err := writeEvent(conn, snapshotEvent(snapshot)); err != nil {
		return err
	}
	if queue.Status(snapshot.Status).IsTerminal() {
		return closeStream(conn)
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		changed := s.events.Changed()
		for _, event := range s.events.Since(seq, id) {
			seq = event.Seq
			if err := writeEvent(conn, event); err != nil {
				return err
			}
			if event.Status.IsTerminal() {
				return closeStream(conn)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventWriteWait)); err != nil {
				return err
			}
			// Pending jobs cancelled through the API reach a terminal status
			// without a worker publishing an event.
			current, err := s.jobs.GetStatus(ctx, id)
			if err != nil {
				return err
			}
			if queue.Status(current.Status).IsTerminal() {
				if err := writeEvent(conn, snapshotEvent(current)); err != nil {
					return err
				}
				return closeStream(conn)
			}
		}
	}
}

func snapshotEvent(status api.JobStatus) workflow.Event {
	message := status.Progress.Message
	if status.Error != "" {
		message = status.Error
	}
	return workflow.Event{
		Timestamp: time.Now().UTC(),
		JobID:     status.ID,
		Type:      workflow.EventTypeStatus,
		Status:    queue.Status(status.Status),
		Message:   message,
		Percent:   status.Progress.Percent,
	}
}

func writeEvent(conn *websocket.Conn, event workflow.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
	return conn.WriteJSON(event)
}

func closeStream(conn *websocket.Conn) error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished")
	return conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(eventWriteWait))
}
