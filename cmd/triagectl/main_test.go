package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/bi-triage-agent/internal/auth"
	"github.com/spec-kit/bi-triage-agent/internal/bootstrap"
	"github.com/spec-kit/bi-triage-agent/internal/config"
	"github.com/spec-kit/bi-triage-agent/internal/domain"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// useTempStore points the configuration at a fresh sqlite file.
func useTempStore(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STORE_DRIVER", config.DriverSQLite)
	t.Setenv("SQL_DSN", "file:"+filepath.Join(dir, "triage.db")+"?_busy_timeout=5000")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("KNOWLEDGE_BASE_FILE", "")
	t.Setenv("TICKET_CACHE_SIZE", "0")
}

func seedTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ctx := context.Background()
	cfg, err := config.Load()
	require.NoError(t, err)
	backend, err := bootstrap.Open(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer backend.Close()
	services, err := bootstrap.NewServices(cfg, backend, zap.NewNop())
	require.NoError(t, err)

	conv := services.Conversations
	start, err := conv.Start(ctx, "u-9", "Sam")
	require.NoError(t, err)
	id := start.Conversation.ID
	q, err := conv.SelectType(ctx, id, "automation")
	require.NoError(t, err)
	for i := 0; i < q.TotalQuestions; i++ {
		_, err = conv.Respond(ctx, id, "nightly export to the finance share")
		require.NoError(t, err)
	}
	_, err = conv.SubmitImpactTimeline(ctx, id, domain.ImpactTimeline{Impact: "manual work", Timeline: "next month"})
	require.NoError(t, err)
	res, err := conv.Confirm(ctx, id, true)
	require.NoError(t, err)
	return res.Ticket
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "triagectl dev")
}

func TestHashPasswordFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pw")
	require.NoError(t, os.WriteFile(path, []byte("hunter2-hunter2\n"), 0o600))

	out, err := run(t, "hash-password", "--password-file", path, "--cost", "4")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.NoError(t, auth.ComparePassword(hash, "hunter2-hunter2"))

	require.NoError(t, os.WriteFile(path, []byte("short"), 0o600))
	_, err = run(t, "hash-password", "--password-file", path)
	assert.Error(t, err)
}

func TestTicketCommands(t *testing.T) {
	useTempStore(t)
	ticket := seedTicket(t)

	out, err := run(t, "tickets", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NUMBER")
	assert.Contains(t, out, ticket.TicketNumber)

	out, err = run(t, "tickets", "get", strings.ToLower(ticket.TicketNumber))
	require.NoError(t, err)
	assert.Contains(t, out, "Automation")

	_, err = run(t, "tickets", "update", ticket.ID)
	assert.Error(t, err, "an update without flags is rejected")

	out, err = run(t, "tickets", "update", ticket.ID, "--status", "On Hold", "--owner", "Kim", "--actor", "ops")
	require.NoError(t, err)
	assert.Contains(t, out, "On Hold")
	assert.Contains(t, out, "Kim")

	_, err = run(t, "tickets", "update", ticket.ID, "--start", "2026-05-10", "--end", "2026-05-01")
	assert.Error(t, err)

	out, err = run(t, "tickets", "history", ticket.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "status")
	assert.Contains(t, out, "ticket_owner")

	out, err = run(t, "tickets", "list", "--status", "New")
	require.NoError(t, err)
	assert.NotContains(t, out, ticket.TicketNumber)
}

func TestMaintenanceCommands(t *testing.T) {
	useTempStore(t)

	out, err := run(t, "kb", "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 5 knowledge base entries")

	out, err = run(t, "conversations", "purge", "--older-than", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 0 stale conversations")

	_, err = run(t, "conversations", "purge", "--older-than", "0s")
	assert.Error(t, err)
}
