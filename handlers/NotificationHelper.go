package handlers

import (
	"database/sql"
	"fmt"
	"log"

	"backend/models"
	"backend/services"
)

// DecisionNotifier implements workflow.Notifier. It emails the requestor and
// pushes to their device when an indent reaches APPROVED or REJECTED.
// Delivery runs on its own goroutine and never reports back into the
// transition.
type DecisionNotifier struct {
	db    *sql.DB
	email *services.EmailService
	fcm   *services.FCMService
}

// NewDecisionNotifier wires the notifier. fcm may be nil when push is not
// configured.
func NewDecisionNotifier(db *sql.DB, email *services.EmailService, fcm *services.FCMService) *DecisionNotifier {
	return &DecisionNotifier{db: db, email: email, fcm: fcm}
}

// IndentDecided satisfies workflow.Notifier.
func (n *DecisionNotifier) IndentDecided(ind *models.Indent, decision models.Decision, actorName string) {
	// Copy what the goroutine needs; the engine may keep mutating ind.
	data := models.EmailData{
		SerialNumber: ind.SerialNumber,
		Status:       string(decision),
		Route:        ind.StartLocation + " - " + ind.EndLocation,
		ActorName:    actorName,
	}
	if len(ind.ApprovalLogs) > 0 {
		data.Reason = ind.ApprovalLogs[len(ind.ApprovalLogs)-1].Reason
	}
	requestorID := ind.RequestorID

	go func() {
		var email, firstName string
		err := n.db.QueryRow(`SELECT email, first_name FROM users WHERE id = $1`, requestorID).
			Scan(&email, &firstName)
		if err != nil {
			log.Printf("notify: failed to resolve requestor %d: %v", requestorID, err)
			return
		}
		data.RecipientName = firstName

		if n.email != nil && n.email.Configured() && email != "" {
			if err := n.email.SendIndentDecisionEmail(email, data); err != nil {
				log.Printf("notify: failed to email %s: %v", email, err)
			}
		}
		if n.fcm != nil {
			title := fmt.Sprintf("Indent #%d %s", data.SerialNumber, data.Status)
			n.fcm.SendToUser(requestorID, title, data.Route, map[string]string{
				"indent_id": ind.ID,
				"status":    data.Status,
			})
		}
	}()
}
