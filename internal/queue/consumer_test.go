package queue

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/miboda/internal/config"
)

func TestHandleAppendsAuditLines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	c := &Consumer{Cfg: config.QueueConfig{LogDir: dir}, Log: slog.Default()}
	at := time.Date(2026, 5, 2, 15, 4, 5, 0, time.UTC)

	for _, ev := range []AccountEvent{
		{Type: UserCreated, UserID: "u-1", Email: "novia@miboda.co", ActorID: "a-1", OccurredAt: at},
		{Type: StatusEvent(false), UserID: "u-1", ActorID: "a-1", OccurredAt: at},
	} {
		body, err := json.Marshal(ev)
		require.NoError(t, err)
		require.NoError(t, c.Handle(body))
	}

	raw, err := os.ReadFile(filepath.Join(dir, AuditFile))
	require.NoError(t, err)
	assert.Equal(t,
		"[2026-05-02T15:04:05Z] user.created | user_id=u-1 | email=novia@miboda.co | actor_id=a-1\n"+
			"[2026-05-02T15:04:05Z] user.suspended | user_id=u-1 | email=- | actor_id=a-1\n",
		string(raw))
}

func TestHandleRejectsBadMessages(t *testing.T) {
	c := &Consumer{Cfg: config.QueueConfig{LogDir: t.TempDir()}, Log: slog.Default()}
	assert.Error(t, c.Handle([]byte("{")))
	assert.Error(t, c.Handle([]byte(`{"type":"user.created"}`)))
}

func TestStatusEvent(t *testing.T) {
	assert.Equal(t, UserActivated, StatusEvent(true))
	assert.Equal(t, UserSuspended, StatusEvent(false))
}
