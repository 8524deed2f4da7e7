package store

import (
	"database/sql"

	"github.com/evinta/rsvpd/internal/models"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// nilIfEmpty returns nil for empty strings so they store as NULL.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nilIfZero returns nil for zero ints so "not collected" stores as NULL.
func nilIfZero(n int) interface{} {
	if n == 0 {
		return nil
	}
	return n
}

func scanEvent(r rowScanner) (*models.Event, error) {
	var e models.Event
	var csvURL sql.NullString
	if err := r.Scan(&e.ID, &e.UserID, &e.Name, &e.Date, &csvURL, &e.Status, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.CSVURL = csvURL.String
	return &e, nil
}

func scanParticipant(r rowScanner) (*models.Participant, error) {
	var p models.Participant
	var userID, email sql.NullString
	if err := r.Scan(&p.ID, &p.EventID, &userID, &p.FullName, &p.PhoneNumber, &email, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.UserID = userID.String
	p.Email = email.String
	return &p, nil
}

func scanConversation(r rowScanner) (*models.ConversationState, error) {
	var cs models.ConversationState
	var step string
	var rsvpStatus, notes, docName, docRole, docType sql.NullString
	var guestCount sql.NullInt64
	if err := r.Scan(&cs.ParticipantID, &cs.EventID, &step, &rsvpStatus, &guestCount, &notes, &docName, &docRole, &docType, &cs.LastUpdated); err != nil {
		return nil, err
	}
	cs.Step = models.Step(step)
	cs.RSVPStatus = models.RSVPStatus(rsvpStatus.String)
	cs.GuestCount = int(guestCount.Int64)
	cs.Notes = notes.String
	cs.DocName = docName.String
	cs.DocRole = models.Role(docRole.String)
	cs.DocType = models.DocumentType(docType.String)
	return &cs, nil
}

func scanDocument(r rowScanner) (*models.DocumentRecord, error) {
	var d models.DocumentRecord
	var role, docType string
	var url sql.NullString
	if err := r.Scan(&d.ID, &d.ParticipantID, &d.AttendeeName, &role, &docType, &url, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Role = models.Role(role)
	d.DocumentType = models.DocumentType(docType)
	d.DocumentURL = url.String
	return &d, nil
}

func scanCallBatch(r rowScanner) (*models.CallBatch, error) {
	var b models.CallBatch
	if err := r.Scan(&b.ID, &b.EventID, &b.JobID, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}
