// Package store provides storage backends for rsvpd.
//
// It includes SQLite and PostgreSQL implementations behind a common Store
// interface, plus an in-memory implementation for tests and ephemeral runs.
// The external store is the authority for conversation state: handlers re-read
// state at the start of each inbound event rather than trusting any in-process
// cache.
package store

import (
	"errors"
	"strings"

	"github.com/evinta/rsvpd/internal/models"
)

// ErrNotFound is returned by lookups that require the row to exist.
var ErrNotFound = errors.New("record not found")

// Store is the persistence contract shared by all backends. Lookups that can
// legitimately miss return (nil, nil).
type Store interface {
	// Users
	AddUser(u models.User) error
	GetUser(id string) (*models.User, error)
	ListUsers() ([]models.User, error)

	// Events
	AddEvent(e models.Event) error
	GetEvent(id string) (*models.Event, error)
	ListEventsByUser(userID string) ([]models.Event, error)
	UpdateEventStatus(id, status string) error

	// Participants
	AddParticipants(ps []models.Participant) error
	ListParticipantsByEvent(eventID string) ([]models.Participant, error)
	GetParticipant(id string) (*models.Participant, error)
	GetParticipantByPhone(phone string) (*models.Participant, error)

	// Conversation state
	GetConversation(participantID string) (*models.ConversationState, error)
	SaveConversation(cs models.ConversationState) error

	// Documents (append-only; update only fills in a pending upload)
	AddDocument(d models.DocumentRecord) error
	ListDocuments(participantID string) ([]models.DocumentRecord, error)
	UpdateDocument(d models.DocumentRecord) error

	// Call batches
	AddCallBatch(b models.CallBatch) error
	GetCallBatchByEvent(eventID string) (*models.CallBatch, error)
	ListActiveCallBatches() ([]models.CallBatch, error)
	UpdateCallBatchStatus(id, status string) error

	// Receipts
	AddReceipt(r models.Receipt) error
	GetReceipts() ([]models.Receipt, error)

	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithSQLiteDSN sets a SQLite file path as the store DSN.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithPostgresDSN sets a PostgreSQL connection string as the store DSN.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType inspects a DSN and reports "postgres" or "sqlite".
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}
