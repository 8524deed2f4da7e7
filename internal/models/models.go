// Package models defines the core data structures for rsvpd.
//
// It includes types for users, events, participants, conversation state, and
// collected documents, which are shared across modules.
package models

import (
	"errors"
	"time"
)

// Step identifies the current position of a participant's conversation
// within the RSVP state machine.
type Step string

const (
	// StepAwaitingRSVP means the participant has not yet answered Yes/No/Maybe.
	StepAwaitingRSVP Step = "awaiting_rsvp"
	// StepAwaitingGuestCount means the RSVP is Yes and the guest count is pending.
	StepAwaitingGuestCount Step = "awaiting_guest_count"
	// StepAwaitingNotes means the guest count is recorded and notes are pending.
	StepAwaitingNotes Step = "awaiting_notes"
	// StepAwaitingDocName means the document sub-flow is collecting an attendee name.
	StepAwaitingDocName Step = "awaiting_doc_name"
	// StepAwaitingDocRole means the document sub-flow is collecting the attendee's relationship role.
	StepAwaitingDocRole Step = "awaiting_doc_role"
	// StepAwaitingDocType means the document sub-flow is collecting the document type.
	StepAwaitingDocType Step = "awaiting_doc_type"
	// StepAwaitingDocUpload means the document sub-flow is waiting for an attachment.
	StepAwaitingDocUpload Step = "awaiting_doc_upload"
	// StepAwaitingMoreDocs means the sub-flow is asking whether to add another document.
	StepAwaitingMoreDocs Step = "awaiting_more_docs"
	// StepCompleted is terminal; it can be reopened by an update or upload request.
	StepCompleted Step = "completed"
)

// IsValidStep checks if the given step belongs to the closed state set.
func IsValidStep(s Step) bool {
	switch s {
	case StepAwaitingRSVP, StepAwaitingGuestCount, StepAwaitingNotes,
		StepAwaitingDocName, StepAwaitingDocRole, StepAwaitingDocType,
		StepAwaitingDocUpload, StepAwaitingMoreDocs, StepCompleted:
		return true
	default:
		return false
	}
}

// InDocumentFlow reports whether the step belongs to the document collection sub-flow.
func (s Step) InDocumentFlow() bool {
	switch s {
	case StepAwaitingDocName, StepAwaitingDocRole, StepAwaitingDocType,
		StepAwaitingDocUpload, StepAwaitingMoreDocs:
		return true
	default:
		return false
	}
}

// RSVPStatus is the participant's attendance answer. Empty means not yet set.
type RSVPStatus string

const (
	RSVPYes   RSVPStatus = "Yes"
	RSVPNo    RSVPStatus = "No"
	RSVPMaybe RSVPStatus = "Maybe"
)

// IsValidRSVPStatus checks if the given status is one of the accepted answers.
func IsValidRSVPStatus(s RSVPStatus) bool {
	switch s {
	case RSVPYes, RSVPNo, RSVPMaybe:
		return true
	default:
		return false
	}
}

// Role classifies the attendee a document belongs to, relative to the participant.
type Role string

const (
	RoleSelf   Role = "Self"
	RoleSpouse Role = "Spouse"
	RoleChild  Role = "Child"
	RoleFriend Role = "Friend"
	RoleFamily Role = "Family"
	RoleOther  Role = "Other"
)

// IsValidRole checks if the given role belongs to the fixed role enum.
func IsValidRole(r Role) bool {
	switch r {
	case RoleSelf, RoleSpouse, RoleChild, RoleFriend, RoleFamily, RoleOther:
		return true
	default:
		return false
	}
}

// DocumentType is the fixed list of accepted identity document types.
type DocumentType string

const (
	DocumentTypeNationalID       DocumentType = "National ID"
	DocumentTypePassport         DocumentType = "Passport"
	DocumentTypeDriversLicense   DocumentType = "Driver's License"
	DocumentTypeBirthCertificate DocumentType = "Birth Certificate"
	DocumentTypeOther            DocumentType = "Other"
)

// DocumentTypes lists the accepted document types in menu order.
var DocumentTypes = []DocumentType{
	DocumentTypeNationalID,
	DocumentTypePassport,
	DocumentTypeDriversLicense,
	DocumentTypeBirthCertificate,
	DocumentTypeOther,
}

// IsValidDocumentType checks if the given type is one of the accepted entries.
func IsValidDocumentType(dt DocumentType) bool {
	for _, t := range DocumentTypes {
		if dt == t {
			return true
		}
	}
	return false
}

// Error variables for better error handling and testability
var (
	ErrEmptyPhoneNumber = errors.New("phone number cannot be empty")
	ErrEmptyFullName    = errors.New("full name cannot be empty")
	ErrEmptyEventID     = errors.New("event id cannot be empty")
	ErrEmptyEventName   = errors.New("event name cannot be empty")
	ErrInvalidStep      = errors.New("invalid conversation step")
)

// User owns events; mirrors the dashboard account that uploads participant lists.
type User struct {
	ID        string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is a gathering with a participant list and optional outbound campaigns.
type Event struct {
	ID        string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"event_name"`
	Date      time.Time `json:"event_date"`
	CSVURL    string    `json:"uploaded_csv,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Participant is one invitee of an event. Created during bulk import and
// immutable afterwards; the phone number is the messaging channel address.
type Participant struct {
	ID          string    `json:"participant_id"`
	EventID     string    `json:"event_id"`
	UserID      string    `json:"user_id,omitempty"`
	FullName    string    `json:"full_name"`
	PhoneNumber string    `json:"phone_number"`
	Email       string    `json:"email,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks the minimum fields required to import a participant.
func (p *Participant) Validate() error {
	if p.FullName == "" {
		return ErrEmptyFullName
	}
	if p.PhoneNumber == "" {
		return ErrEmptyPhoneNumber
	}
	if p.EventID == "" {
		return ErrEmptyEventID
	}
	return nil
}

// ConversationState is the per-participant record of the RSVP conversation.
// GuestCount zero means not yet collected; RSVPStatus empty means not yet set.
// The Doc* fields are scratch state for the document entry currently being
// collected and are cleared when a document record is finalized.
type ConversationState struct {
	ParticipantID string       `json:"participant_id"`
	EventID       string       `json:"event_id"`
	Step          Step         `json:"step"`
	RSVPStatus    RSVPStatus   `json:"rsvp_status,omitempty"`
	GuestCount    int          `json:"guest_count,omitempty"`
	Notes         string       `json:"notes,omitempty"`
	DocName       string       `json:"doc_name,omitempty"`
	DocRole       Role         `json:"doc_role,omitempty"`
	DocType       DocumentType `json:"doc_type,omitempty"`
	LastUpdated   time.Time    `json:"last_updated"`
}

// NewConversationState creates a fresh conversation record for a participant.
func NewConversationState(p Participant) ConversationState {
	return ConversationState{
		ParticipantID: p.ID,
		EventID:       p.EventID,
		Step:          StepAwaitingRSVP,
		LastUpdated:   time.Now(),
	}
}

// ClearRSVP resets the RSVP fields for a new cycle while keeping the row.
// Previously recorded documents are intentionally untouched.
func (c *ConversationState) ClearRSVP() {
	c.Step = StepAwaitingRSVP
	c.RSVPStatus = ""
	c.GuestCount = 0
	c.Notes = ""
	c.ClearDocScratch()
}

// ClearDocScratch resets the in-progress document entry fields.
func (c *ConversationState) ClearDocScratch() {
	c.DocName = ""
	c.DocRole = ""
	c.DocType = ""
}

// DocumentRecord is one collected document entry. DocumentURL is empty while
// the upload is pending ("send later"). Records are append-only.
type DocumentRecord struct {
	ID            string       `json:"upload_id"`
	ParticipantID string       `json:"participant_id"`
	AttendeeName  string       `json:"attendee_name"`
	Role          Role         `json:"role"`
	DocumentType  DocumentType `json:"document_type"`
	DocumentURL   string       `json:"document_url,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Uploaded reports whether the document attachment has been received.
func (d *DocumentRecord) Uploaded() bool {
	return d.DocumentURL != ""
}

// CallBatch tracks one outbound voice campaign submission for an event.
// At most one non-terminal batch may exist per event at a time.
type CallBatch struct {
	ID        string    `json:"batch_id"`
	EventID   string    `json:"event_id"`
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Call batch status values reported by the calling provider.
const (
	CallBatchStatusPending    = "pending"
	CallBatchStatusInProgress = "in_progress"
	CallBatchStatusCompleted  = "completed"
	CallBatchStatusFailed     = "failed"
	CallBatchStatusCancelled  = "cancelled"
)

// IsTerminalCallBatchStatus reports whether a batch has finished and a new
// submission for the same event is allowed.
func IsTerminalCallBatchStatus(status string) bool {
	switch status {
	case CallBatchStatusCompleted, CallBatchStatusFailed, CallBatchStatusCancelled:
		return true
	default:
		return false
	}
}

// Receipt records the outcome of an outbound send for observability.
type Receipt struct {
	To     string `json:"to"`
	Status string `json:"status"`
	Time   int64  `json:"time"`
}

// Receipt status values.
const (
	ReceiptStatusSent   = "sent"
	ReceiptStatusFailed = "failed"
)
