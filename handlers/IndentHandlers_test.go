package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backend/models"
	"backend/repository"
	"backend/workflow"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testRequestor = workflow.Actor{UserID: 7, Name: "CPL Tan", Role: models.RoleRequestor}
	testAS3       = workflow.Actor{UserID: 12, Name: "CPT Ong", Role: models.RoleApproverAS3}
	testMTC       = workflow.Actor{UserID: 14, Name: "2WO Lee", Role: models.RoleApproverMTC}
)

// newTestRouter wires the indent routes against an in-memory store, with the
// identity middleware replaced by a stub that injects the given actor.
func newTestRouter(actor workflow.Actor) (*gin.Engine, *workflow.Engine, *repository.MemoryStore) {
	gin.SetMode(gin.TestMode)
	store := repository.NewMemoryStore()
	engine := workflow.NewEngine(store, nil)

	r := gin.New()
	api := r.Group("/api")
	api.Use(func(c *gin.Context) {
		c.Set(contextActorKey, actor)
		c.Next()
	})
	api.POST("/indents", CreateIndent(engine, nil))
	api.GET("/indents", ListIndents(engine))
	api.POST("/indents/bulk-approve", BulkApproveIndents(engine))
	api.GET("/indents/:id", GetIndent(engine))
	api.PUT("/indents/:id", UpdateIndent(engine, nil))
	api.DELETE("/indents/:id", DeleteDraft(engine))
	api.POST("/indents/:id/submit", SubmitIndent(engine))
	api.POST("/indents/:id/approve", ApproveIndent(engine))
	api.POST("/indents/:id/reject", RejectIndent(engine))
	api.POST("/indents/:id/cancel", CancelIndent(engine))
	return r, engine, store
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createIndentPayload() gin.H {
	return gin.H{
		"type_of_indent": "NORMAL_MTC",
		"start_time":     time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC),
		"end_time":       time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC),
		"start_location": "Sembawang Camp",
		"end_location":   "Nee Soon Camp",
	}
}

func TestCreateIndentReturnsCreated(t *testing.T) {
	r, _, _ := newTestRouter(testRequestor)

	w := doJSON(t, r, http.MethodPost, "/api/indents", createIndentPayload())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var ind models.Indent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ind))
	assert.Equal(t, models.StatusDraft, ind.Status)
	assert.NotEmpty(t, ind.ID)
	assert.Equal(t, int64(1), ind.SerialNumber)
}

func TestCreateIndentDirectSubmit(t *testing.T) {
	r, _, _ := newTestRouter(testRequestor)

	payload := createIndentPayload()
	payload["submit"] = true
	w := doJSON(t, r, http.MethodPost, "/api/indents", payload)
	require.Equal(t, http.StatusCreated, w.Code)

	var ind models.Indent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ind))
	assert.Equal(t, models.StatusPendingAS3, ind.Status)
}

func TestCreateIndentRejectsMissingFields(t *testing.T) {
	r, _, _ := newTestRouter(testRequestor)

	payload := createIndentPayload()
	delete(payload, "end_location")
	w := doJSON(t, r, http.MethodPost, "/api/indents", payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateIndentForbiddenForApprovers(t *testing.T) {
	r, _, _ := newTestRouter(testAS3)

	w := doJSON(t, r, http.MethodPost, "/api/indents", createIndentPayload())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestApproveEndpointStatusMapping(t *testing.T) {
	r, engine, store := newTestRouter(testAS3)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	ind := &models.Indent{
		ID: "c0b1a2d3-0000-4000-8000-000000000001", Status: models.StatusPendingAS3,
		RequestorID: 7, TypeOfIndent: models.TypeNormalMTC,
	}
	require.NoError(t, store.Create(ctx, ind))
	_ = engine

	// Approve with no body at all.
	req := httptest.NewRequest(http.MethodPost, "/api/indents/"+ind.ID+"/approve", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got models.Indent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.StatusPendingS3, got.Status)

	// Second approval by the same role now conflicts.
	w = doJSON(t, r, http.MethodPost, "/api/indents/"+ind.ID+"/approve", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Unknown indent is a 404.
	w = doJSON(t, r, http.MethodPost, "/api/indents/c0b1a2d3-0000-4000-8000-00000000dead/approve", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApproveMTCWithoutOperatorIsBadRequest(t *testing.T) {
	r, _, store := newTestRouter(testMTC)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	ind := &models.Indent{
		ID: "c0b1a2d3-0000-4000-8000-000000000002", Status: models.StatusPendingMTC,
		RequestorID: 7, TypeOfIndent: models.TypeNormalMTC,
	}
	require.NoError(t, store.Create(ctx, ind))

	w := doJSON(t, r, http.MethodPost, "/api/indents/"+ind.ID+"/approve", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/indents/"+ind.ID+"/approve",
		gin.H{"transport_operator": "SGT Lee"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got models.Indent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Equal(t, "SGT Lee", got.TransportOperator)
}

func TestRejectEndpointRequiresReason(t *testing.T) {
	r, _, store := newTestRouter(testAS3)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	ind := &models.Indent{
		ID: "c0b1a2d3-0000-4000-8000-000000000003", Status: models.StatusPendingAS3,
		RequestorID: 7, TypeOfIndent: models.TypeNormalMTC,
	}
	require.NoError(t, store.Create(ctx, ind))

	w := doJSON(t, r, http.MethodPost, "/api/indents/"+ind.ID+"/reject", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/indents/"+ind.ID+"/reject",
		gin.H{"reason": "route clashes with exercise"})
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Indent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.StatusRejected, got.Status)
}

func TestBulkApproveEndpoint(t *testing.T) {
	r, _, store := newTestRouter(testAS3)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	var ids []string
	for i, status := range []models.IndentStatus{models.StatusPendingAS3, models.StatusRejected, models.StatusPendingAS3} {
		ind := &models.Indent{
			ID:     fmt.Sprintf("c0b1a2d3-0000-4000-8000-00000000001%d", i),
			Status: status, RequestorID: 7, TypeOfIndent: models.TypeNormalMTC,
		}
		require.NoError(t, store.Create(ctx, ind))
		ids = append(ids, ind.ID)
	}

	w := doJSON(t, r, http.MethodPost, "/api/indents/bulk-approve", gin.H{"indent_ids": ids})
	require.Equal(t, http.StatusOK, w.Code)

	var res workflow.BulkResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Approved)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Items, 3)
	assert.False(t, res.Items[1].Approved)

	w = doJSON(t, r, http.MethodPost, "/api/indents/bulk-approve", gin.H{"indent_ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListIndentsCarriesEligibility(t *testing.T) {
	r, _, store := newTestRouter(testAS3)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	require.NoError(t, store.Create(ctx, &models.Indent{
		ID: "c0b1a2d3-0000-4000-8000-000000000020", Status: models.StatusPendingAS3,
		RequestorID: 7, TypeOfIndent: models.TypeNormalMTC,
	}))
	// Drafts stay private to their owner.
	require.NoError(t, store.Create(ctx, &models.Indent{
		ID: "c0b1a2d3-0000-4000-8000-000000000021", Status: models.StatusDraft,
		RequestorID: 7, TypeOfIndent: models.TypeNormalMTC,
	}))

	w := doJSON(t, r, http.MethodGet, "/api/indents", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var items []struct {
		models.Indent
		Eligibility workflow.Eligibility `json:"eligibility"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.True(t, items[0].Eligibility.CanApprove)
	assert.False(t, items[0].Eligibility.CanCancel)
}

func TestGetIndentInvisibleIsNotFound(t *testing.T) {
	r, _, store := newTestRouter(testMTC)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	// Still with AS3, so outside the MTC queue.
	ind := &models.Indent{
		ID: "c0b1a2d3-0000-4000-8000-000000000030", Status: models.StatusPendingAS3,
		RequestorID: 7, TypeOfIndent: models.TypeNormalMTC,
	}
	require.NoError(t, store.Create(ctx, ind))

	w := doJSON(t, r, http.MethodGet, "/api/indents/"+ind.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteDraftEndpoint(t *testing.T) {
	r, _, store := newTestRouter(testRequestor)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	draft := &models.Indent{
		ID: "c0b1a2d3-0000-4000-8000-000000000040", Status: models.StatusDraft,
		RequestorID: testRequestor.UserID, TypeOfIndent: models.TypeNormalMTC,
	}
	require.NoError(t, store.Create(ctx, draft))

	w := doJSON(t, r, http.MethodDelete, "/api/indents/"+draft.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	pending := &models.Indent{
		ID: "c0b1a2d3-0000-4000-8000-000000000041", Status: models.StatusPendingAS3,
		RequestorID: testRequestor.UserID, TypeOfIndent: models.TypeNormalMTC,
	}
	require.NoError(t, store.Create(ctx, pending))

	w = doJSON(t, r, http.MethodDelete, "/api/indents/"+pending.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSubmitAndCancelEndpoints(t *testing.T) {
	r, _, store := newTestRouter(testRequestor)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	ind := &models.Indent{
		ID: "c0b1a2d3-0000-4000-8000-000000000050", Status: models.StatusDraft,
		RequestorID: testRequestor.UserID, TypeOfIndent: models.TypeNormalMTC,
	}
	require.NoError(t, store.Create(ctx, ind))

	w := doJSON(t, r, http.MethodPost, "/api/indents/"+ind.ID+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Indent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.StatusPendingAS3, got.Status)

	w = doJSON(t, r, http.MethodPost, "/api/indents/"+ind.ID+"/cancel",
		gin.H{"reason": "exercise postponed"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.Equal(t, "exercise postponed", got.CancellationReason)
}
