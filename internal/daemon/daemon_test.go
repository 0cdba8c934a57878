package daemon

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"scribe/internal/api"
	"scribe/internal/queue"
)

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestDaemonStartStop(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, f.daemon.Start(ctx))
	status := f.daemon.Status(ctx)
	require.True(t, status.Running)
	require.True(t, status.Workflow.Running)
	require.Equal(t, f.cfg.LockPath(), status.LockFilePath)
	require.Equal(t, "test", status.Version)
	require.NotEmpty(t, status.Dependencies)

	require.Error(t, f.daemon.Start(ctx), "second start should fail")

	f.daemon.Stop()
	require.False(t, f.daemon.Status(ctx).Running)
}

func TestSecondInstanceRefusedByLock(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, f.daemon.Start(ctx))

	other, err := New(Options{
		Config:   f.cfg,
		Store:    f.store,
		Workflow: f.daemon.workflow,
		Jobs:     f.daemon.jobs,
	})
	require.NoError(t, err)
	err = other.Start(ctx)
	require.ErrorContains(t, err, "already running")
}

func TestDaemonProcessesSubmittedJob(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, f.daemon.Start(ctx))

	base := "http://" + f.daemon.Address()
	client := &http.Client{Timeout: 5 * time.Second}

	var created api.CreateJobResponse
	resp := doJSON(t, client, http.MethodPost, base+"/api/jobs", api.CreateJobRequest{SourceRef: f.source}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var status api.JobStatus
	require.Eventually(t, func() bool {
		doJSON(t, client, http.MethodGet, base+"/api/jobs/"+created.ID+"/status", nil, &status)
		return queue.Status(status.Status).IsTerminal()
	}, 10*time.Second, 25*time.Millisecond)
	require.Equal(t, string(queue.StatusCompleted), status.Status, status.Error)
	require.NotNil(t, status.WordCount)
	require.Equal(t, 3, *status.WordCount)

	exported, err := client.Get(base + "/api/jobs/" + created.ID + "/export?format=txt")
	require.NoError(t, err)
	defer exported.Body.Close()
	body, err := io.ReadAll(exported.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, exported.StatusCode)
	require.Contains(t, string(body), "Hello there.")

	var daemonStatus api.DaemonStatus
	doJSON(t, client, http.MethodGet, base+"/api/status", nil, &daemonStatus)
	require.True(t, daemonStatus.Running)
	require.Equal(t, 1, daemonStatus.Workflow.QueueStats["completed"])
}
