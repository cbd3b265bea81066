// Package application runs the dual-eye report pipeline: parallel image
// analysis, a barrier, and parallel per-eye synthesis.
package application

import (
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// Session carries the caller identity of one run. It is passed explicitly
// to Orchestrator.Run; the pipeline reads no ambient session state.
type Session struct {
	// RunID identifies the run in logs and results.
	RunID string
	// User is the authenticated caller, if any.
	User string
	// Labels are free-form tags copied into log records.
	Labels map[string]string
}

// NewSession creates a session with a fresh random RunID.
func NewSession(user string, labels map[string]string) Session {
	return Session{RunID: uuid.NewString(), User: user, Labels: labels}
}

// logAttrs renders the session as a slog group.
func (s Session) logAttrs() slog.Attr {
	attrs := []any{slog.String("run_id", s.RunID)}
	if s.User != "" {
		attrs = append(attrs, slog.String("user", s.User))
	}
	for k, v := range s.Labels {
		attrs = append(attrs, slog.String(k, v))
	}
	return slog.Group("session", attrs...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
