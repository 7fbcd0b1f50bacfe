package workflow

import (
	"context"
	"errors"
	"time"

	"backend/models"

	"github.com/google/uuid"
)

// Actor is the resolved identity performing an operation. The engine never
// authenticates; it authorizes against whatever identity the caller resolved.
type Actor struct {
	UserID int
	Name   string
	Role   models.Role
}

// Engine is the single source of truth for indent status transitions. Every
// caller (HTTP handlers, the bulk coordinator, the cron digest) goes through
// it; nothing else is allowed to change an indent's status or ledger.
type Engine struct {
	store    Store
	notifier Notifier
	now      func() time.Time
}

// NewEngine wires the engine with its persistence and notification
// collaborators. notifier may be nil (notifications disabled).
func NewEngine(store Store, notifier Notifier) *Engine {
	return &Engine{store: store, notifier: notifier, now: time.Now}
}

// CreateIndentInput is the validated payload for creating an indent.
type CreateIndentInput struct {
	TypeOfIndent  models.IndentType
	StartTime     time.Time
	EndTime       time.Time
	StartLocation string
	EndLocation   string
	Waypoints     []string
	Reason        string
	// SubmitNow skips the DRAFT stage and files the indent straight into
	// the AS3 queue.
	SubmitNow bool
}

// UpdateIndentInput is the validated payload for editing an existing indent.
type UpdateIndentInput struct {
	TypeOfIndent  models.IndentType
	StartTime     time.Time
	EndTime       time.Time
	StartLocation string
	EndLocation   string
	Waypoints     []string
	Reason        string
}

// ApproveOptions carries per-call extras for Approve. TransportOperator must
// be supplied at the MTC stage when the indent does not already carry one.
type ApproveOptions struct {
	TransportOperator string
	bulk              bool
}

func validTypeOfIndent(t models.IndentType) bool {
	switch t {
	case models.TypeNormalMTC, models.TypeAdhocMTC, models.TypeSelfDrive,
		models.TypeInCampTO, models.TypeMonthlyBulk:
		return true
	}
	return false
}

func validateRequestFields(t models.IndentType, start, end time.Time, startLoc, endLoc string) error {
	if !validTypeOfIndent(t) {
		return validation("unknown type_of_indent %q", t)
	}
	if start.IsZero() || end.IsZero() {
		return validation("start_time and end_time are required")
	}
	if !end.After(start) {
		return validation("end_time must be after start_time")
	}
	if startLoc == "" || endLoc == "" {
		return validation("start_location and end_location are required")
	}
	return nil
}

// Create files a new indent for the acting requestor, in DRAFT or, when
// SubmitNow is set, directly in the AS3 queue. The store assigns the serial
// number.
func (e *Engine) Create(ctx context.Context, actor Actor, in CreateIndentInput) (*models.Indent, error) {
	if actor.Role != models.RoleRequestor {
		return nil, unauthorized("only requestors may create indents")
	}
	if err := validateRequestFields(in.TypeOfIndent, in.StartTime, in.EndTime, in.StartLocation, in.EndLocation); err != nil {
		return nil, err
	}

	status := models.StatusDraft
	if in.SubmitNow {
		status = models.StatusPendingAS3
	}
	now := e.now()
	ind := &models.Indent{
		ID:            uuid.NewString(),
		Status:        status,
		RequestorID:   actor.UserID,
		RequestorName: actor.Name,
		TypeOfIndent:  in.TypeOfIndent,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		StartLocation: in.StartLocation,
		EndLocation:   in.EndLocation,
		Waypoints:     in.Waypoints,
		Reason:        in.Reason,
		ApprovalLogs:  []models.ApprovalLogEntry{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.store.Create(ctx, ind); err != nil {
		return nil, infrastructure(err, "failed to create indent")
	}
	return ind, nil
}

// Get loads an indent and enforces the viewer's visibility rules.
func (e *Engine) Get(ctx context.Context, actor Actor, id string) (*models.Indent, error) {
	ind, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !Visible(ind, actor) {
		return nil, notFound(id)
	}
	return ind, nil
}

// Submit moves an owner's DRAFT into the AS3 queue. No ledger entry is
// written; the ledger records decisions, not submissions.
func (e *Engine) Submit(ctx context.Context, actor Actor, id string) (*models.Indent, error) {
	ind, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if ind.Status != models.StatusDraft {
		return nil, invalidTransition("cannot submit indent in status %s", ind.Status)
	}
	if actor.Role != models.RoleRequestor || !ind.OwnedBy(actor.UserID) {
		return nil, unauthorized("only the owning requestor may submit a draft")
	}
	ind.Status = models.StatusPendingAS3
	if err := e.save(ctx, ind, models.StatusDraft); err != nil {
		return nil, err
	}
	return ind, nil
}

// Approve applies the current stage holder's approval and advances the
// pipeline:
//
//	AS3 @ PENDING_AS3            -> PENDING_S3
//	S3  @ PENDING_S3             -> APPROVED for internal movements,
//	                                PENDING_MTC otherwise
//	MTC @ PENDING_MTC            -> APPROVED (transport operator required)
//	owner @ PENDING_REQUESTOR    -> the status recorded before the edit
//
// One APPROVED ledger entry is appended for every successful call.
func (e *Engine) Approve(ctx context.Context, actor Actor, id string, opts ApproveOptions) (*models.Indent, error) {
	ind, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := ind.Status
	next, err := e.applyApproval(ind, actor, opts)
	if err != nil {
		return nil, err
	}

	entry := models.ApprovalLogEntry{
		Stage:        actor.Role,
		Decision:     models.DecisionApproved,
		Timestamp:    e.now(),
		ApproverID:   actor.UserID,
		ApproverName: actor.Name,
		Bulk:         opts.bulk,
	}
	ind.ApprovalLogs = append(ind.ApprovalLogs, entry)
	if actor.Role.IsApprover() && !containsRole(ind.ApproverSkipList, actor.Role) {
		// Recorded so a re-approval loop could skip stages that already
		// signed off. No transition rule consults it yet.
		ind.ApproverSkipList = append(ind.ApproverSkipList, actor.Role)
	}
	ind.Status = next

	if err := e.save(ctx, ind, prev); err != nil {
		return nil, err
	}
	if next == models.StatusApproved {
		e.notifyDecision(ind, models.DecisionApproved, actor)
	}
	return ind, nil
}

// applyApproval checks eligibility, enforces stage preconditions and mutates
// the non-status fields the approval touches. It returns the next status.
func (e *Engine) applyApproval(ind *models.Indent, actor Actor, opts ApproveOptions) (models.IndentStatus, error) {
	holder, ok := models.StageHolder(ind.Status)
	if !ok {
		return "", invalidTransition("cannot approve indent in status %s", ind.Status)
	}
	if actor.Role != holder {
		return "", unauthorized("role %s does not hold stage %s", actor.Role, ind.Status)
	}

	switch actor.Role {
	case models.RoleApproverAS3:
		return models.StatusPendingS3, nil

	case models.RoleApproverS3:
		if ind.TypeOfIndent.IsInternalMovement() {
			return models.StatusApproved, nil
		}
		return models.StatusPendingMTC, nil

	case models.RoleApproverMTC:
		operator := ind.TransportOperator
		if opts.TransportOperator != "" {
			operator = opts.TransportOperator
		}
		if operator == "" {
			return "", validation("transport operator is required for MTC approval")
		}
		ind.TransportOperator = operator
		return models.StatusApproved, nil

	case models.RoleRequestor:
		if !ind.OwnedBy(actor.UserID) {
			return "", unauthorized("only the owning requestor may acknowledge an edit")
		}
		next := ind.PreviousStatus
		if !next.IsPending() || next == models.StatusPendingRequestor {
			// No usable prior position recorded; restart at the first
			// pending stage.
			next = models.StatusPendingAS3
		}
		ind.PreviousStatus = ""
		ind.EditorRole = ""
		return next, nil
	}
	return "", unauthorized("role %s cannot approve", actor.Role)
}

// Reject terminates the pipeline from any pending stage. Eligibility matches
// Approve minus the MTC transport-operator precondition; the reason is
// mandatory and is written into the ledger entry. There is no way back from
// REJECTED.
func (e *Engine) Reject(ctx context.Context, actor Actor, id, reason string) (*models.Indent, error) {
	if reason == "" {
		return nil, validation("rejection reason is required")
	}
	ind, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	holder, ok := models.StageHolder(ind.Status)
	if !ok {
		return nil, invalidTransition("cannot reject indent in status %s", ind.Status)
	}
	if actor.Role != holder {
		return nil, unauthorized("role %s does not hold stage %s", actor.Role, ind.Status)
	}
	if actor.Role == models.RoleRequestor && !ind.OwnedBy(actor.UserID) {
		return nil, unauthorized("only the owning requestor may act on this indent")
	}

	prev := ind.Status
	ind.ApprovalLogs = append(ind.ApprovalLogs, models.ApprovalLogEntry{
		Stage:        actor.Role,
		Decision:     models.DecisionRejected,
		Timestamp:    e.now(),
		ApproverID:   actor.UserID,
		ApproverName: actor.Name,
		Reason:       reason,
	})
	ind.Status = models.StatusRejected
	if err := e.save(ctx, ind, prev); err != nil {
		return nil, err
	}
	e.notifyDecision(ind, models.DecisionRejected, actor)
	return ind, nil
}

// Update edits an indent's request fields. An owner edit keeps the pipeline
// position; an approver edit parks the indent in PENDING_REQUESTOR with the
// prior status recorded, so the owner must acknowledge before the pipeline
// resumes.
func (e *Engine) Update(ctx context.Context, actor Actor, id string, in UpdateIndentInput) (*models.Indent, error) {
	if err := validateRequestFields(in.TypeOfIndent, in.StartTime, in.EndTime, in.StartLocation, in.EndLocation); err != nil {
		return nil, err
	}
	ind, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := ind.Status

	switch {
	case actor.Role == models.RoleRequestor:
		if !ind.OwnedBy(actor.UserID) {
			return nil, unauthorized("only the owning requestor may edit this indent")
		}
		if ind.Status == models.StatusCancelled || ind.Status == models.StatusRejected {
			return nil, invalidTransition("cannot edit indent in status %s", ind.Status)
		}

	case actor.Role.IsApprover():
		if ind.Status == models.StatusDraft {
			return nil, invalidTransition("approvers cannot edit drafts")
		}
		if ind.Status.IsTerminal() {
			return nil, invalidTransition("cannot edit indent in status %s", ind.Status)
		}
		if ind.Status != models.StatusPendingRequestor {
			// Keep the original pipeline position across repeated edits.
			ind.PreviousStatus = ind.Status
		}
		ind.EditorRole = actor.Role
		ind.Status = models.StatusPendingRequestor

	default:
		return nil, unauthorized("role %s cannot edit indents", actor.Role)
	}

	ind.TypeOfIndent = in.TypeOfIndent
	ind.StartTime = in.StartTime
	ind.EndTime = in.EndTime
	ind.StartLocation = in.StartLocation
	ind.EndLocation = in.EndLocation
	ind.Waypoints = in.Waypoints
	ind.Reason = in.Reason

	if err := e.save(ctx, ind, prev); err != nil {
		return nil, err
	}
	return ind, nil
}

// Cancel is the owner's withdrawal. It is legal from any non-terminal status,
// requires a reason and deliberately writes no ledger entry; the reason lives
// in cancellation_reason instead.
func (e *Engine) Cancel(ctx context.Context, actor Actor, id, reason string) (*models.Indent, error) {
	ind, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleRequestor || !ind.OwnedBy(actor.UserID) {
		return nil, unauthorized("only the owning requestor may cancel an indent")
	}
	if ind.Status.IsTerminal() {
		return nil, invalidTransition("cannot cancel indent in status %s", ind.Status)
	}
	if reason == "" {
		return nil, validation("cancellation reason is required")
	}

	prev := ind.Status
	ind.Status = models.StatusCancelled
	ind.CancellationReason = reason
	if err := e.save(ctx, ind, prev); err != nil {
		return nil, err
	}
	return ind, nil
}

// DeleteDraft removes an owner's DRAFT outright. This is the only operation
// that deletes a record; everything else terminates logically.
func (e *Engine) DeleteDraft(ctx context.Context, actor Actor, id string) error {
	ind, err := e.load(ctx, id)
	if err != nil {
		return err
	}
	if ind.Status != models.StatusDraft {
		return invalidTransition("only drafts can be deleted, indent is %s", ind.Status)
	}
	if actor.Role != models.RoleRequestor || !ind.OwnedBy(actor.UserID) {
		return unauthorized("only the owning requestor may delete a draft")
	}
	if err := e.store.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound(id)
		}
		return infrastructure(err, "failed to delete draft")
	}
	return nil
}

// List returns the indents visible to the actor, optionally narrowed to a
// status.
func (e *Engine) List(ctx context.Context, actor Actor, status models.IndentStatus) ([]models.Indent, error) {
	f := ListFilter{}
	if status != "" {
		f.Statuses = []models.IndentStatus{status}
	}
	all, err := e.store.List(ctx, f)
	if err != nil {
		return nil, infrastructure(err, "failed to list indents")
	}
	return FilterVisible(all, actor), nil
}

func (e *Engine) load(ctx context.Context, id string) (*models.Indent, error) {
	if id == "" {
		return nil, validation("indent id is required")
	}
	ind, err := e.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound(id)
		}
		return nil, infrastructure(err, "failed to load indent")
	}
	return ind, nil
}

func (e *Engine) save(ctx context.Context, ind *models.Indent, expected models.IndentStatus) error {
	ind.UpdatedAt = e.now()
	err := e.store.Save(ctx, ind, expected)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStatusConflict):
		return invalidTransition("indent %s was modified concurrently, re-fetch and retry", ind.ID)
	case errors.Is(err, ErrNotFound):
		return notFound(ind.ID)
	default:
		return infrastructure(err, "failed to save indent")
	}
}

func (e *Engine) notifyDecision(ind *models.Indent, decision models.Decision, actor Actor) {
	if e.notifier == nil {
		return
	}
	e.notifier.IndentDecided(ind, decision, actor.Name)
}

func containsRole(roles []models.Role, r models.Role) bool {
	for _, x := range roles {
		if x == r {
			return true
		}
	}
	return false
}
