package workflow

import (
	"context"
	"testing"

	"backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkApproveSkipsIneligibleAndContinues(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	eligible1 := seedIndent(t, store, models.StatusPendingAS3, models.TypeNormalMTC, requestor)
	rejected := seedIndent(t, store, models.StatusRejected, models.TypeNormalMTC, requestor)
	eligible2 := seedIndent(t, store, models.StatusPendingAS3, models.TypeSelfDrive, otherUser)

	res := engine.BulkApprove(ctx, as3, []string{eligible1.ID, rejected.ID, eligible2.ID})

	assert.Equal(t, 2, res.Approved)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Items, 3)

	assert.True(t, res.Items[0].Approved)
	assert.Empty(t, res.Items[0].Reason)
	assert.False(t, res.Items[1].Approved)
	assert.NotEmpty(t, res.Items[1].Reason)
	assert.True(t, res.Items[2].Approved)

	for _, id := range []string{eligible1.ID, eligible2.ID} {
		ind, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPendingS3, ind.Status)
	}
	untouched, err := store.Load(ctx, rejected.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, untouched.Status)
	assert.Empty(t, untouched.ApprovalLogs)
}

func TestBulkApproveMarksLedgerEntries(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()
	ind := seedIndent(t, store, models.StatusPendingAS3, models.TypeNormalMTC, requestor)

	res := engine.BulkApprove(ctx, as3, []string{ind.ID})
	require.Equal(t, 1, res.Approved)

	got, err := store.Load(ctx, ind.ID)
	require.NoError(t, err)
	require.Len(t, got.ApprovalLogs, 1)
	assert.True(t, got.ApprovalLogs[0].Bulk)

	// A single approval of the same shape does not carry the marker.
	single := seedIndent(t, store, models.StatusPendingAS3, models.TypeNormalMTC, requestor)
	_, err = engine.Approve(ctx, as3, single.ID, ApproveOptions{})
	require.NoError(t, err)
	got, err = store.Load(ctx, single.ID)
	require.NoError(t, err)
	require.Len(t, got.ApprovalLogs, 1)
	assert.False(t, got.ApprovalLogs[0].Bulk)
}

func TestBulkApproveMissingIndentIsSkipped(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ind := seedIndent(t, store, models.StatusPendingAS3, models.TypeNormalMTC, requestor)

	res := engine.BulkApprove(context.Background(), as3, []string{uuid.NewString(), ind.ID})
	assert.Equal(t, 1, res.Approved)
	assert.Equal(t, 1, res.Skipped)
}
