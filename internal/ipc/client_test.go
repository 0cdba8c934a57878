package ipc

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"scribe/internal/api"
	"scribe/internal/queue"
	"scribe/internal/workflow"
)

func TestClientSendsTokenAndDecodesJobs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.Equal(t, "/api/jobs", r.URL.Path)
		require.Equal(t, []string{"pending", "failed"}, r.URL.Query()["status"])
		_ = json.NewEncoder(w).Encode(api.JobListResponse{Jobs: []api.Job{{ID: "a"}, {ID: "b"}}})
	}))
	defer srv.Close()

	jobs, err := Dial(srv.URL+"/", "tok").ListJobs(context.Background(), []string{"pending", "failed"})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
}

func TestClientDecodesErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: `job "x" not found`, Kind: "not_found"})
	}))
	defer srv.Close()

	_, err := Dial(srv.URL, "").JobStatus(context.Background(), "x")
	require.Error(t, err)
	require.True(t, IsNotFound(err))
	require.Contains(t, err.Error(), "not found")

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "not_found", apiErr.Kind)
}

func TestClientExportReturnsFileMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "vtt", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "text/vtt")
		w.Header().Set("Content-Disposition", `attachment; filename="talk.vtt"`)
		_, _ = w.Write([]byte("WEBVTT\n\n"))
	}))
	defer srv.Close()

	file, err := Dial(srv.URL, "").Export(context.Background(), "job-1", "vtt")
	require.NoError(t, err)
	require.Equal(t, "text/vtt", file.ContentType)
	require.Equal(t, "talk.vtt", file.FileName)
	require.Equal(t, "WEBVTT\n\n", string(file.Data))
}

func TestClientReportsDaemonDown(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	_, err = Dial("http://"+addr, "").Status(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "connect to daemon")
}

func TestWatchEventsUntilClose(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/jobs/job-1/events", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		_ = conn.WriteJSON(workflow.Event{Seq: 1, JobID: "job-1", Type: workflow.EventTypeProgress, Status: queue.StatusProcessing, Percent: 50})
		_ = conn.WriteJSON(workflow.Event{Seq: 2, JobID: "job-1", Type: workflow.EventTypeResult, Status: queue.StatusCompleted, Percent: 100})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
	}))
	defer srv.Close()

	var seen []workflow.Event
	err := Dial(srv.URL, "").WatchEvents(context.Background(), "job-1", func(event workflow.Event) error {
		seen = append(seen, event)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 2)
	require.Equal(t, queue.StatusCompleted, seen[1].Status)
}
