package application

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	a := NewSession("dr.silva", map[string]string{"clinic": "centro"})
	b := NewSession("dr.silva", nil)

	_, err := uuid.Parse(a.RunID)
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, "dr.silva", a.User)
	assert.Equal(t, "centro", a.Labels["clinic"])
}

func TestSession_LogAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	s := Session{RunID: "r1", User: "u", Labels: map[string]string{"clinic": "centro"}}
	logger.Info("x", s.logAttrs())

	assert.Contains(t, buf.String(), `"session":{"run_id":"r1","user":"u","clinic":"centro"}`)

	buf.Reset()
	logger.Info("x", Session{RunID: "r2"}.logAttrs())
	assert.Contains(t, buf.String(), `"session":{"run_id":"r2"}`)
}
