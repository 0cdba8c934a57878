package workflow

import (
	"context"
	"maps"

	"scribe/internal/logging"
	"scribe/internal/queue"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running    bool
	Workers    int
	Engine     string
	LastError  string
	LastJobID  string
	ActiveJobs map[string]string
	QueueStats map[queue.Status]int
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running:    m.running,
		Workers:    m.workers,
		Engine:     m.adapter.Name(),
		LastJobID:  m.lastJobID,
		ActiveJobs: maps.Clone(m.active),
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		logging.NewComponentLogger(m.logger, "workflow-manager").Warn("failed to read queue stats", logging.Error(err))
	}
	summary.QueueStats = stats
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(id string) {
	m.mu.Lock()
	m.lastJobID = id
	m.mu.Unlock()
}

func (m *Manager) trackActive(worker, jobID string) {
	m.mu.Lock()
	if jobID == "" {
		delete(m.active, worker)
	} else {
		m.active[worker] = jobID
	}
	m.mu.Unlock()
}
