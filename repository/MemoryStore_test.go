package repository

import (
	"context"
	"testing"

	"backend/models"
	"backend/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreConditionalSave(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ind := &models.Indent{ID: uuid.NewString(), Status: models.StatusPendingAS3, RequestorID: 7}
	require.NoError(t, store.Create(ctx, ind))
	assert.Equal(t, int64(1), ind.SerialNumber)

	ind.Status = models.StatusPendingS3
	require.NoError(t, store.Save(ctx, ind, models.StatusPendingAS3))

	// A second writer still holding the old status loses.
	stale := &models.Indent{ID: ind.ID, Status: models.StatusRejected}
	err := store.Save(ctx, stale, models.StatusPendingAS3)
	assert.ErrorIs(t, err, workflow.ErrStatusConflict)

	got, err := store.Load(ctx, ind.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingS3, got.Status)

	err = store.Save(ctx, &models.Indent{ID: uuid.NewString()}, models.StatusDraft)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestMemoryStoreLoadReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ind := &models.Indent{
		ID:           uuid.NewString(),
		Status:       models.StatusPendingS3,
		ApprovalLogs: []models.ApprovalLogEntry{{Stage: models.RoleApproverAS3, Decision: models.DecisionApproved}},
	}
	require.NoError(t, store.Create(ctx, ind))

	first, err := store.Load(ctx, ind.ID)
	require.NoError(t, err)
	first.ApprovalLogs[0].Stage = models.RoleApproverMTC
	first.Status = models.StatusCancelled

	second, err := store.Load(ctx, ind.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingS3, second.Status)
	assert.Equal(t, models.RoleApproverAS3, second.ApprovalLogs[0].Stage)
}

func TestMemoryStoreListFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	mk := func(status models.IndentStatus, typ models.IndentType, requestor int) {
		require.NoError(t, store.Create(ctx, &models.Indent{
			ID: uuid.NewString(), Status: status, TypeOfIndent: typ, RequestorID: requestor,
		}))
	}
	mk(models.StatusPendingAS3, models.TypeNormalMTC, 7)
	mk(models.StatusApproved, models.TypeSelfDrive, 7)
	mk(models.StatusPendingAS3, models.TypeNormalMTC, 8)

	out, err := store.List(ctx, workflow.ListFilter{RequestorID: 7})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	out, err = store.List(ctx, workflow.ListFilter{Statuses: []models.IndentStatus{models.StatusApproved}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, models.TypeSelfDrive, out[0].TypeOfIndent)

	out, err = store.List(ctx, workflow.ListFilter{ExcludeTypes: []models.IndentType{models.TypeSelfDrive}})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	// Results come back in serial order.
	out, err = store.List(ctx, workflow.ListFilter{})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.True(t, out[0].SerialNumber < out[1].SerialNumber && out[1].SerialNumber < out[2].SerialNumber)
}
