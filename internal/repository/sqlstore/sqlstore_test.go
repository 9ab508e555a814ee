package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/spec-kit/bi-triage-agent/internal/domain"
	"github.com/spec-kit/bi-triage-agent/internal/repository"
)

func testStore(t *testing.T) *repository.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, Migrate(db))
	return New(db)
}

func sampleTicket(id, number, conversationID string, created time.Time) *domain.Ticket {
	return &domain.Ticket{
		ID:              id,
		TicketNumber:    number,
		ConversationID:  conversationID,
		CreatedDate:     created,
		RequesterName:   "Dana",
		RequesterID:     "u-1",
		RequestType:     "Troubleshooting",
		Summary:         "dashboard export broken",
		Impact:          "blocks reporting",
		Priority:        domain.PriorityP1,
		Difficulty:      domain.DifficultyMedium,
		Status:          domain.TicketStatusNew,
		Links:           "",
		RawConversation: `{"id":"c"}`,
		UpdatedAt:       created,
	}
}

func TestConversationRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	conv := &domain.Conversation{
		ID:          "c-1",
		UserID:      "u-1",
		UserName:    "Dana",
		SessionID:   "s-1",
		State:       domain.StateCollectingDetails,
		RequestType: "reporting",
		Responses:   map[string]string{"question_0": "sales dashboard"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, store.Conversations.Save(ctx, conv))

	conv.QuestionIndex = 1
	conv.Responses["question_1"] = "warehouse"
	require.NoError(t, store.Conversations.Save(ctx, conv))

	got, err := store.Conversations.Get(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.QuestionIndex)
	assert.Equal(t, domain.StateCollectingDetails, got.State)
	assert.Equal(t, map[string]string{"question_0": "sales dashboard", "question_1": "warehouse"}, got.Responses)

	_, err = store.Conversations.Get(ctx, "missing")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestConversationDeleteStaleKeepsCompleted(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	old := time.Now().UTC().Add(-48 * time.Hour)
	fresh := time.Now().UTC()

	for _, c := range []*domain.Conversation{
		{ID: "stale", UserID: "u", State: domain.StateImpactTimeline, CreatedAt: old, UpdatedAt: old},
		{ID: "done", UserID: "u", State: domain.StateCompleted, CreatedAt: old, UpdatedAt: old},
		{ID: "fresh", UserID: "u", State: domain.StateCollectingDetails, CreatedAt: fresh, UpdatedAt: fresh},
	} {
		require.NoError(t, store.Conversations.Save(ctx, c))
	}

	removed, err := store.Conversations.DeleteStale(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = store.Conversations.Get(ctx, "stale")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.Conversations.Get(ctx, "done")
	assert.NoError(t, err)
	_, err = store.Conversations.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestTicketCreateAndLookups(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.Tickets.Create(ctx, sampleTicket("t-1", "BI-000001", "c-1", now)))

	byNumber, err := store.Tickets.GetByNumber(ctx, "BI-000001")
	require.NoError(t, err)
	assert.Equal(t, "t-1", byNumber.ID)
	assert.Equal(t, domain.TicketStatusNew, byNumber.Status)
	assert.Nil(t, byNumber.TicketOwner)

	byConv, err := store.Tickets.GetByConversationID(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "BI-000001", byConv.TicketNumber)

	_, err = store.Tickets.GetByNumber(ctx, "BI-999999")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTicketUniqueNumber(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Tickets.Create(ctx, sampleTicket("t-1", "BI-000001", "c-1", now)))
	err := store.Tickets.Create(ctx, sampleTicket("t-2", "BI-000001", "c-2", now))
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestTicketListOpenAndUpdate(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.Tickets.Create(ctx, sampleTicket("t-1", "BI-000001", "c-1", base)))
	require.NoError(t, store.Tickets.Create(ctx, sampleTicket("t-2", "BI-000002", "c-2", base.Add(time.Minute))))

	closed, err := store.Tickets.GetByID(ctx, "t-1")
	require.NoError(t, err)
	owner := "bi-analyst"
	closed.Status = domain.TicketStatusClosed
	closed.TicketOwner = &owner
	closed.UpdatedAt = base.Add(2 * time.Minute)
	require.NoError(t, store.Tickets.Update(ctx, closed))

	open, err := store.Tickets.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "t-2", open[0].ID)

	all, err := store.Tickets.List(ctx, repository.TicketFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "t-2", all[0].ID, "newest first")
	require.NotNil(t, all[1].TicketOwner)
	assert.Equal(t, "bi-analyst", *all[1].TicketOwner)

	err = store.Tickets.Update(ctx, &domain.Ticket{ID: "nope", Status: domain.TicketStatusNew})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestHistoryAndKnowledge(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.History.Create(ctx, &domain.TicketHistory{
		ID: "h-1", TicketID: "t-1", ChangedBy: "admin", Field: domain.FieldStatus,
		OldValue: "New", NewValue: "In Progress", CreatedAt: now,
	}))
	entries, err := store.History.ListByTicket(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.FieldStatus, entries[0].Field)

	require.NoError(t, store.Knowledge.Upsert(ctx, &domain.KnowledgeBaseEntry{ID: "kb-b", Title: "B", Keywords: "b", Position: 1, CreatedAt: now}))
	require.NoError(t, store.Knowledge.Upsert(ctx, &domain.KnowledgeBaseEntry{ID: "kb-a", Title: "A", Keywords: "a", Position: 0, CreatedAt: now}))
	require.NoError(t, store.Knowledge.Upsert(ctx, &domain.KnowledgeBaseEntry{ID: "kb-b", Title: "B2", Keywords: "b", Position: 1, CreatedAt: now}))

	kb, err := store.Knowledge.List(ctx)
	require.NoError(t, err)
	require.Len(t, kb, 2)
	assert.Equal(t, "kb-a", kb[0].ID)
	assert.Equal(t, "B2", kb[1].Title)
}
