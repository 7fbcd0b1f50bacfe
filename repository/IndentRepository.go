package repository

import (
	"context"
	"database/sql"
	"fmt"

	"backend/models"
	"backend/workflow"

	"github.com/lib/pq"
)

// SQL constants for indent persistence
const (
	// createIndentTablesSQL creates the indent tables if they don't exist.
	// serial_number comes from the table's own sequence so it is monotonic
	// and never reused.
	createIndentTablesSQL = `
		CREATE TABLE IF NOT EXISTS indents (
			id                  UUID PRIMARY KEY,
			serial_number       BIGSERIAL,
			status              VARCHAR(32) NOT NULL,
			requestor_id        INTEGER NOT NULL,
			requestor_name      TEXT NOT NULL DEFAULT '',
			type_of_indent      VARCHAR(32) NOT NULL,
			start_time          TIMESTAMPTZ NOT NULL,
			end_time            TIMESTAMPTZ NOT NULL,
			start_location      TEXT NOT NULL,
			end_location        TEXT NOT NULL,
			waypoints           TEXT[] NOT NULL DEFAULT '{}',
			transport_operator  TEXT NOT NULL DEFAULT '',
			reason              TEXT NOT NULL DEFAULT '',
			cancellation_reason TEXT NOT NULL DEFAULT '',
			editor_role         VARCHAR(32) NOT NULL DEFAULT '',
			previous_status     VARCHAR(32) NOT NULL DEFAULT '',
			approver_skip_list  TEXT[] NOT NULL DEFAULT '{}',
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_indents_status ON indents(status);
		CREATE INDEX IF NOT EXISTS idx_indents_requestor ON indents(requestor_id);
		CREATE TABLE IF NOT EXISTS approval_logs (
			id            SERIAL PRIMARY KEY,
			indent_id     UUID NOT NULL REFERENCES indents(id) ON DELETE CASCADE,
			log_index     INTEGER NOT NULL,
			stage         VARCHAR(32) NOT NULL,
			decision      VARCHAR(16) NOT NULL,
			approver_id   INTEGER NOT NULL,
			approver_name TEXT NOT NULL,
			reason        TEXT NOT NULL DEFAULT '',
			bulk          BOOLEAN NOT NULL DEFAULT FALSE,
			decided_at    TIMESTAMPTZ NOT NULL,
			UNIQUE (indent_id, log_index)
		);`

	// insertIndentSQL inserts a new indent; the serial number and create
	// timestamps come back from the database.
	insertIndentSQL = `
		INSERT INTO indents (id, status, requestor_id, requestor_name, type_of_indent,
			start_time, end_time, start_location, end_location, waypoints, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING serial_number, created_at, updated_at`

	// selectIndentSQL retrieves one indent by id.
	selectIndentSQL = `
		SELECT id, serial_number, status, requestor_id, requestor_name, type_of_indent,
			start_time, end_time, start_location, end_location, waypoints,
			transport_operator, reason, cancellation_reason, editor_role,
			previous_status, approver_skip_list, created_at, updated_at
		FROM indents
		WHERE id = $1`

	// selectApprovalLogsSQL retrieves the ledger in append order.
	selectApprovalLogsSQL = `
		SELECT stage, decision, decided_at, approver_id, approver_name, reason, bulk
		FROM approval_logs
		WHERE indent_id = $1
		ORDER BY log_index ASC`

	// updateIndentSQL is the conditional write: the row only changes when its
	// status still matches the status the transition was computed from.
	updateIndentSQL = `
		UPDATE indents
		SET status = $1, type_of_indent = $2, start_time = $3, end_time = $4,
			start_location = $5, end_location = $6, waypoints = $7,
			transport_operator = $8, reason = $9, cancellation_reason = $10,
			editor_role = $11, previous_status = $12, approver_skip_list = $13,
			updated_at = $14
		WHERE id = $15 AND status = $16`

	// countApprovalLogsSQL counts already persisted ledger entries so only
	// newly appended ones are inserted.
	countApprovalLogsSQL = `SELECT COUNT(*) FROM approval_logs WHERE indent_id = $1`

	// insertApprovalLogSQL appends one ledger entry.
	insertApprovalLogSQL = `
		INSERT INTO approval_logs (indent_id, log_index, stage, decision, approver_id, approver_name, reason, bulk, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	// deleteIndentSQL removes a draft; the ledger rows cascade.
	deleteIndentSQL = `DELETE FROM indents WHERE id = $1`

	// indentExistsSQL distinguishes "gone" from "status moved" after a
	// conditional write touches zero rows.
	indentExistsSQL = `SELECT EXISTS (SELECT 1 FROM indents WHERE id = $1)`
)

// IndentRepository implements workflow.Store on Postgres. The status write is
// a compare-and-swap on the status column inside a transaction that also
// carries the new ledger rows, so a lost concurrent update can never leave a
// ledger entry without its status change.
type IndentRepository struct {
	db *sql.DB
}

// NewIndentRepository wires the repository to an open database handle.
func NewIndentRepository(db *sql.DB) *IndentRepository {
	return &IndentRepository{db: db}
}

// EnsureSchema creates the indent tables if they don't exist.
func (r *IndentRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, createIndentTablesSQL)
	if err != nil {
		return fmt.Errorf("failed to ensure indent tables: %v", err)
	}
	return nil
}

func (r *IndentRepository) Create(ctx context.Context, ind *models.Indent) error {
	err := r.db.QueryRowContext(ctx, insertIndentSQL,
		ind.ID, ind.Status, ind.RequestorID, ind.RequestorName, ind.TypeOfIndent,
		ind.StartTime, ind.EndTime, ind.StartLocation, ind.EndLocation,
		pq.Array(ind.Waypoints), ind.Reason,
	).Scan(&ind.SerialNumber, &ind.CreatedAt, &ind.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert indent: %v", err)
	}
	return nil
}

func (r *IndentRepository) Load(ctx context.Context, id string) (*models.Indent, error) {
	ind, err := scanIndent(r.db.QueryRowContext(ctx, selectIndentSQL, id))
	if err == sql.ErrNoRows {
		return nil, workflow.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load indent %s: %v", id, err)
	}
	if err := r.loadLogs(ctx, ind); err != nil {
		return nil, err
	}
	return ind, nil
}

func (r *IndentRepository) loadLogs(ctx context.Context, ind *models.Indent) error {
	rows, err := r.db.QueryContext(ctx, selectApprovalLogsSQL, ind.ID)
	if err != nil {
		return fmt.Errorf("failed to load approval logs for %s: %v", ind.ID, err)
	}
	defer rows.Close()

	ind.ApprovalLogs = []models.ApprovalLogEntry{}
	for rows.Next() {
		var e models.ApprovalLogEntry
		if err := rows.Scan(&e.Stage, &e.Decision, &e.Timestamp, &e.ApproverID,
			&e.ApproverName, &e.Reason, &e.Bulk); err != nil {
			return fmt.Errorf("failed to scan approval log: %v", err)
		}
		ind.ApprovalLogs = append(ind.ApprovalLogs, e)
	}
	return rows.Err()
}

// Save persists the indent conditionally on its expected prior status. New
// ledger entries (anything beyond what the approval_logs table already holds)
// are inserted in the same transaction.
func (r *IndentRepository) Save(ctx context.Context, ind *models.Indent, expected models.IndentStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, updateIndentSQL,
		ind.Status, ind.TypeOfIndent, ind.StartTime, ind.EndTime,
		ind.StartLocation, ind.EndLocation, pq.Array(ind.Waypoints),
		ind.TransportOperator, ind.Reason, ind.CancellationReason,
		string(ind.EditorRole), string(ind.PreviousStatus),
		pq.Array(rolesToStrings(ind.ApproverSkipList)), ind.UpdatedAt,
		ind.ID, expected,
	)
	if err != nil {
		return fmt.Errorf("failed to update indent %s: %v", ind.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %v", err)
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, indentExistsSQL, ind.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check indent %s: %v", ind.ID, err)
		}
		if !exists {
			return workflow.ErrNotFound
		}
		return workflow.ErrStatusConflict
	}

	var persisted int
	if err := tx.QueryRowContext(ctx, countApprovalLogsSQL, ind.ID).Scan(&persisted); err != nil {
		return fmt.Errorf("failed to count approval logs: %v", err)
	}
	for i := persisted; i < len(ind.ApprovalLogs); i++ {
		e := ind.ApprovalLogs[i]
		if _, err := tx.ExecContext(ctx, insertApprovalLogSQL,
			ind.ID, i, e.Stage, e.Decision, e.ApproverID, e.ApproverName,
			e.Reason, e.Bulk, e.Timestamp); err != nil {
			return fmt.Errorf("failed to append approval log: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit indent %s: %v", ind.ID, err)
	}
	return nil
}

func (r *IndentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, deleteIndentSQL, id)
	if err != nil {
		return fmt.Errorf("failed to delete indent %s: %v", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %v", err)
	}
	if affected == 0 {
		return workflow.ErrNotFound
	}
	return nil
}

func (r *IndentRepository) List(ctx context.Context, f workflow.ListFilter) ([]models.Indent, error) {
	query := `
		SELECT id, serial_number, status, requestor_id, requestor_name, type_of_indent,
			start_time, end_time, start_location, end_location, waypoints,
			transport_operator, reason, cancellation_reason, editor_role,
			previous_status, approver_skip_list, created_at, updated_at
		FROM indents`
	var (
		clauses []string
		args    []interface{}
	)
	if f.RequestorID != 0 {
		args = append(args, f.RequestorID)
		clauses = append(clauses, fmt.Sprintf("requestor_id = $%d", len(args)))
	}
	if len(f.Statuses) > 0 {
		args = append(args, pq.Array(statusesToStrings(f.Statuses)))
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(f.ExcludeTypes) > 0 {
		args = append(args, pq.Array(typesToStrings(f.ExcludeTypes)))
		clauses = append(clauses, fmt.Sprintf("NOT (type_of_indent = ANY($%d))", len(args)))
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY serial_number ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list indents: %v", err)
	}
	defer rows.Close()

	var out []models.Indent
	for rows.Next() {
		ind, err := scanIndent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan indent: %v", err)
		}
		out = append(out, *ind)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := r.loadLogs(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIndent(row rowScanner) (*models.Indent, error) {
	var (
		ind       models.Indent
		waypoints pq.StringArray
		skipList  pq.StringArray
		editor    string
		previous  string
	)
	err := row.Scan(&ind.ID, &ind.SerialNumber, &ind.Status, &ind.RequestorID,
		&ind.RequestorName, &ind.TypeOfIndent, &ind.StartTime, &ind.EndTime,
		&ind.StartLocation, &ind.EndLocation, &waypoints, &ind.TransportOperator,
		&ind.Reason, &ind.CancellationReason, &editor, &previous, &skipList,
		&ind.CreatedAt, &ind.UpdatedAt)
	if err != nil {
		return nil, err
	}
	ind.Waypoints = waypoints
	ind.EditorRole = models.Role(editor)
	ind.PreviousStatus = models.IndentStatus(previous)
	ind.ApproverSkipList = stringsToRoles(skipList)
	return &ind, nil
}

func rolesToStrings(roles []models.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func stringsToRoles(ss []string) []models.Role {
	if len(ss) == 0 {
		return nil
	}
	out := make([]models.Role, len(ss))
	for i, s := range ss {
		out[i] = models.Role(s)
	}
	return out
}

func statusesToStrings(ss []models.IndentStatus) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}

func typesToStrings(ts []models.IndentType) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return out
}
