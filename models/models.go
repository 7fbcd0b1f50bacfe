package models

import (
	"time"

	_ "github.com/lib/pq"
)

// IndentStatus is the pipeline position of an indent. An indent moves
// DRAFT -> PENDING_AS3 -> PENDING_S3 -> PENDING_MTC -> APPROVED, with
// REJECTED and CANCELLED as absorbing side exits and PENDING_REQUESTOR as the
// re-entry loop after an approver edit.
type IndentStatus string

const (
	StatusDraft            IndentStatus = "DRAFT"
	StatusPendingRequestor IndentStatus = "PENDING_REQUESTOR"
	StatusPendingAS3       IndentStatus = "PENDING_AS3"
	StatusPendingS3        IndentStatus = "PENDING_S3"
	StatusPendingMTC       IndentStatus = "PENDING_MTC"
	StatusApproved         IndentStatus = "APPROVED"
	StatusRejected         IndentStatus = "REJECTED"
	StatusCancelled        IndentStatus = "CANCELLED"
)

// IsTerminal reports whether the approval pipeline is finished for this
// status. Terminal records are never routed again.
func (s IndentStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// IsPending reports whether the indent is waiting on somebody's decision.
func (s IndentStatus) IsPending() bool {
	switch s {
	case StatusPendingRequestor, StatusPendingAS3, StatusPendingS3, StatusPendingMTC:
		return true
	}
	return false
}

// Role identifies who is acting on an indent.
type Role string

const (
	RoleRequestor   Role = "REQUESTOR"
	RoleApproverAS3 Role = "APPROVER_AS3"
	RoleApproverS3  Role = "APPROVER_S3"
	RoleApproverMTC Role = "APPROVER_MTC"
)

// IsApprover reports whether the role sits in the approval chain.
func (r Role) IsApprover() bool {
	return r == RoleApproverAS3 || r == RoleApproverS3 || r == RoleApproverMTC
}

// PendingStage returns the status a given approver role is responsible for.
// The second return is false for roles without a fixed stage (requestor).
func (r Role) PendingStage() (IndentStatus, bool) {
	switch r {
	case RoleApproverAS3:
		return StatusPendingAS3, true
	case RoleApproverS3:
		return StatusPendingS3, true
	case RoleApproverMTC:
		return StatusPendingMTC, true
	}
	return "", false
}

// StageHolder returns the role that currently holds a pending status.
func StageHolder(s IndentStatus) (Role, bool) {
	switch s {
	case StatusPendingAS3:
		return RoleApproverAS3, true
	case StatusPendingS3:
		return RoleApproverS3, true
	case StatusPendingMTC:
		return RoleApproverMTC, true
	case StatusPendingRequestor:
		return RoleRequestor, true
	}
	return "", false
}

// IndentType is the movement category. It decides routing out of the S3
// stage: internal movements never touch MTC resources.
type IndentType string

const (
	TypeNormalMTC   IndentType = "NORMAL_MTC"
	TypeAdhocMTC    IndentType = "ADHOC_MTC"
	TypeSelfDrive   IndentType = "SELF_DRIVE"
	TypeInCampTO    IndentType = "INCAMP_TO"
	TypeMonthlyBulk IndentType = "MONTHLY_BULK"
)

// IsInternalMovement reports whether the movement is exempt from MTC
// resourcing (self-drive or in-camp transport operator).
func (t IndentType) IsInternalMovement() bool {
	return t == TypeSelfDrive || t == TypeInCampTO
}

// Decision is the outcome recorded in one approval log entry.
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

// Indent represents one vehicle movement request and its approval history.
type Indent struct {
	ID                 string             `json:"id" example:"a2b4c6d8-0e1f-4a2b-8c3d-5e6f7a8b9c0d"`
	SerialNumber       int64              `json:"serial_number" example:"1042"`
	Status             IndentStatus       `json:"status" example:"PENDING_AS3"`
	RequestorID        int                `json:"requestor_id" example:"7"`
	RequestorName      string             `json:"requestor_name,omitempty" example:"CPL Tan"`
	TypeOfIndent       IndentType         `json:"type_of_indent" example:"NORMAL_MTC"`
	StartTime          time.Time          `json:"start_time" example:"2024-03-04T08:00:00Z"`
	EndTime            time.Time          `json:"end_time" example:"2024-03-04T12:30:00Z"`
	StartLocation      string             `json:"start_location" example:"Sembawang Camp"`
	EndLocation        string             `json:"end_location" example:"Nee Soon Camp"`
	Waypoints          []string           `json:"waypoints,omitempty"`
	TransportOperator  string             `json:"transport_operator,omitempty" example:"SGT Lee"`
	Reason             string             `json:"reason,omitempty" example:"Stores collection"`
	CancellationReason string             `json:"cancellation_reason,omitempty"`
	EditorRole         Role               `json:"editor_role,omitempty"`
	PreviousStatus     IndentStatus       `json:"previous_status,omitempty"`
	ApproverSkipList   []Role             `json:"approver_skip_list,omitempty"`
	ApprovalLogs       []ApprovalLogEntry `json:"approval_logs"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// OwnedBy reports whether the given user created this indent.
func (i *Indent) OwnedBy(userID int) bool {
	return i.RequestorID == userID
}

// HasApprovalFrom reports whether a role already has an APPROVED entry in the
// ledger. Feeds the approver skip list kept on the record.
func (i *Indent) HasApprovalFrom(role Role) bool {
	for _, e := range i.ApprovalLogs {
		if e.Stage == role && e.Decision == DecisionApproved {
			return true
		}
	}
	return false
}

// ApprovalLogEntry is one immutable decision in an indent's ledger. Entries
// are only ever appended, in chronological order.
type ApprovalLogEntry struct {
	Stage        Role      `json:"stage" example:"APPROVER_AS3"`
	Decision     Decision  `json:"decision" example:"APPROVED"`
	Timestamp    time.Time `json:"timestamp"`
	ApproverID   int       `json:"approver_id" example:"12"`
	ApproverName string    `json:"approver_name" example:"MAJ Koh"`
	Reason       string    `json:"reason,omitempty"`
	Bulk         bool      `json:"bulk,omitempty"`
}

// User mirrors the users table. Passwords and credentials live with the
// identity provider, not here.
type User struct {
	ID        int       `json:"id" example:"7"`
	Email     string    `json:"email" example:"user@example.com"`
	FirstName string    `json:"first_name" example:"Wei Ming"`
	LastName  string    `json:"last_name" example:"Tan"`
	RoleName  Role      `json:"role_name" example:"REQUESTOR"`
	Unit      string    `json:"unit,omitempty" example:"30 SCE"`
	PhoneNo   string    `json:"phone_no,omitempty" example:"91234567"`
	FCMToken  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName is the human-facing name recorded in approval log entries.
func (u User) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type ErrorResponse struct {
	Error string `json:"error" example:"indent not found"`
}

type MessageResponse struct {
	Message string `json:"message" example:"draft deleted"`
}

// EmailData carries the substitution values for notification templates.
type EmailData struct {
	RecipientName string
	SerialNumber  int64
	Status        string
	Route         string
	ActorName     string
	Reason        string
}
