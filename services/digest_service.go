package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"backend/models"
)

// SQL constants for the daily digest
const (
	// selectPendingBySQL lists indents waiting at one stage, oldest first.
	selectPendingSQL = `
		SELECT serial_number, start_location, end_location, start_time
		FROM indents
		WHERE status = $1
		ORDER BY serial_number ASC`

	// selectApproversSQL lists the users holding a role, with their emails.
	selectApproversSQL = `
		SELECT email, first_name
		FROM users
		WHERE role_name = $1 AND email <> ''`
)

// DigestService emails each approver group a morning summary of the indents
// waiting in their queue. Driven by the cron schedule in main.
type DigestService struct {
	db    *sql.DB
	email *EmailService
}

func NewDigestService(db *sql.DB, email *EmailService) *DigestService {
	return &DigestService{db: db, email: email}
}

// Run builds and sends the digest for every approval stage. Failures for one
// stage or recipient are logged and do not stop the rest.
func (ds *DigestService) Run(ctx context.Context) {
	stages := []struct {
		role   models.Role
		status models.IndentStatus
	}{
		{models.RoleApproverAS3, models.StatusPendingAS3},
		{models.RoleApproverS3, models.StatusPendingS3},
		{models.RoleApproverMTC, models.StatusPendingMTC},
	}
	for _, st := range stages {
		if err := ds.runStage(ctx, st.role, st.status); err != nil {
			log.Printf("digest: stage %s: %v", st.role, err)
		}
	}
}

func (ds *DigestService) runStage(ctx context.Context, role models.Role, status models.IndentStatus) error {
	rows, err := ds.db.QueryContext(ctx, selectPendingSQL, status)
	if err != nil {
		return fmt.Errorf("failed to list pending indents: %v", err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var (
			serial    int64
			startLoc  string
			endLoc    string
			startTime sql.NullTime
		)
		if err := rows.Scan(&serial, &startLoc, &endLoc, &startTime); err != nil {
			return fmt.Errorf("failed to scan pending indent: %v", err)
		}
		when := ""
		if startTime.Valid {
			when = startTime.Time.Format("02 Jan 15:04")
		}
		lines = append(lines, fmt.Sprintf(
			"<tr><td>#%d</td><td>%s &rarr; %s</td><td>%s</td></tr>",
			serial, startLoc, endLoc, when))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}

	body := fmt.Sprintf(`
<html><body>
<p>Good morning,</p>
<p>%d indent(s) are waiting for your decision:</p>
<table border="1" cellpadding="4">
<tr><th>Serial</th><th>Route</th><th>Start</th></tr>
%s
</table>
</body></html>`, len(lines), strings.Join(lines, "\n"))

	subject := fmt.Sprintf("%d pending transport indent(s)", len(lines))

	approvers, err := ds.db.QueryContext(ctx, selectApproversSQL, role)
	if err != nil {
		return fmt.Errorf("failed to list approvers: %v", err)
	}
	defer approvers.Close()

	for approvers.Next() {
		var email, name string
		if err := approvers.Scan(&email, &name); err != nil {
			return fmt.Errorf("failed to scan approver: %v", err)
		}
		if err := ds.email.Send(email, subject, body); err != nil {
			log.Printf("digest: failed to email %s: %v", email, err)
		}
	}
	return approvers.Err()
}
