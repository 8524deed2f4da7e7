package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/evinta/rsvpd/internal/models"
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at the DSN path and
// applies migrations.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	cfg := Opts{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		cfg.DSN = "rsvpd.db"
	}

	db, err := sql.Open("sqlite3", cfg.DSN+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent webhook deliveries.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply sqlite migrations: %w", err)
	}

	slog.Info("SQLiteStore initialized", "dsn", cfg.DSN)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AddUser(u models.User) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO users (user_id, name, email, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add user: %w", err)
	}
	slog.Debug("SQLiteStore AddUser", "userID", u.ID)
	return nil
}

func (s *SQLiteStore) GetUser(id string) (*models.User, error) {
	row := s.db.QueryRow(`SELECT user_id, name, email, created_at FROM users WHERE user_id = ?`, id)
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (s *SQLiteStore) ListUsers() ([]models.User, error) {
	rows, err := s.db.Query(`SELECT user_id, name, email, created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()
	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) AddEvent(e models.Event) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO events (event_id, user_id, event_name, event_date, uploaded_csv, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Name, e.Date, nilIfEmpty(e.CSVURL), e.Status, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add event: %w", err)
	}
	slog.Debug("SQLiteStore AddEvent", "eventID", e.ID)
	return nil
}

func (s *SQLiteStore) GetEvent(id string) (*models.Event, error) {
	row := s.db.QueryRow(`SELECT event_id, user_id, event_name, event_date, uploaded_csv, status, created_at FROM events WHERE event_id = ?`, id)
	e, err := scanEvent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) ListEventsByUser(userID string) ([]models.Event, error) {
	rows, err := s.db.Query(`SELECT event_id, user_id, event_name, event_date, uploaded_csv, status, created_at FROM events WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()
	var events []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) UpdateEventStatus(id, status string) error {
	res, err := s.db.Exec(`UPDATE events SET status = ? WHERE event_id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) AddParticipants(ps []models.Participant) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO participants (participant_id, event_id, user_id, full_name, phone_number, email, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare participant insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range ps {
		if _, err := stmt.Exec(p.ID, p.EventID, nilIfEmpty(p.UserID), p.FullName, p.PhoneNumber, nilIfEmpty(p.Email), p.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert participant %s: %w", p.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit participants: %w", err)
	}
	slog.Debug("SQLiteStore AddParticipants", "count", len(ps))
	return nil
}

func (s *SQLiteStore) ListParticipantsByEvent(eventID string) ([]models.Participant, error) {
	rows, err := s.db.Query(`SELECT participant_id, event_id, user_id, full_name, phone_number, email, created_at FROM participants WHERE event_id = ? ORDER BY created_at`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()
	var ps []models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		ps = append(ps, *p)
	}
	return ps, rows.Err()
}

func (s *SQLiteStore) GetParticipant(id string) (*models.Participant, error) {
	row := s.db.QueryRow(`SELECT participant_id, event_id, user_id, full_name, phone_number, email, created_at FROM participants WHERE participant_id = ?`, id)
	p, err := scanParticipant(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) GetParticipantByPhone(phone string) (*models.Participant, error) {
	row := s.db.QueryRow(`SELECT participant_id, event_id, user_id, full_name, phone_number, email, created_at FROM participants WHERE phone_number = ? ORDER BY created_at DESC LIMIT 1`, phone)
	p, err := scanParticipant(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get participant by phone: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) GetConversation(participantID string) (*models.ConversationState, error) {
	row := s.db.QueryRow(`SELECT participant_id, event_id, step, rsvp_status, guest_count, notes, doc_name, doc_role, doc_type, last_updated FROM conversation_results WHERE participant_id = ?`, participantID)
	cs, err := scanConversation(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return cs, nil
}

func (s *SQLiteStore) SaveConversation(cs models.ConversationState) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO conversation_results (participant_id, event_id, step, rsvp_status, guest_count, notes, doc_name, doc_role, doc_type, last_updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cs.ParticipantID, cs.EventID, string(cs.Step),
		nilIfEmpty(string(cs.RSVPStatus)), nilIfZero(cs.GuestCount), nilIfEmpty(cs.Notes),
		nilIfEmpty(cs.DocName), nilIfEmpty(string(cs.DocRole)), nilIfEmpty(string(cs.DocType)),
		cs.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	slog.Debug("SQLiteStore SaveConversation", "participantID", cs.ParticipantID, "step", cs.Step)
	return nil
}

func (s *SQLiteStore) AddDocument(d models.DocumentRecord) error {
	_, err := s.db.Exec(`INSERT INTO uploads (upload_id, participant_id, attendee_name, role, document_type, document_url, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ParticipantID, d.AttendeeName, string(d.Role), string(d.DocumentType), nilIfEmpty(d.DocumentURL), d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}
	slog.Debug("SQLiteStore AddDocument", "uploadID", d.ID, "participantID", d.ParticipantID)
	return nil
}

func (s *SQLiteStore) ListDocuments(participantID string) ([]models.DocumentRecord, error) {
	rows, err := s.db.Query(`SELECT upload_id, participant_id, attendee_name, role, document_type, document_url, created_at FROM uploads WHERE participant_id = ? ORDER BY created_at`, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()
	var docs []models.DocumentRecord
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) UpdateDocument(d models.DocumentRecord) error {
	res, err := s.db.Exec(`UPDATE uploads SET attendee_name = ?, role = ?, document_type = ?, document_url = ? WHERE upload_id = ?`,
		d.AttendeeName, string(d.Role), string(d.DocumentType), nilIfEmpty(d.DocumentURL), d.ID)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) AddCallBatch(b models.CallBatch) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO call_batches (batch_id, event_id, job_id, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.EventID, b.JobID, b.Status, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to add call batch: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetCallBatchByEvent(eventID string) (*models.CallBatch, error) {
	row := s.db.QueryRow(`SELECT batch_id, event_id, job_id, status, created_at, updated_at FROM call_batches WHERE event_id = ? ORDER BY created_at DESC LIMIT 1`, eventID)
	b, err := scanCallBatch(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get call batch: %w", err)
	}
	return b, nil
}

func (s *SQLiteStore) ListActiveCallBatches() ([]models.CallBatch, error) {
	rows, err := s.db.Query(`SELECT batch_id, event_id, job_id, status, created_at, updated_at FROM call_batches WHERE status NOT IN (?, ?, ?)`,
		models.CallBatchStatusCompleted, models.CallBatchStatusFailed, models.CallBatchStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to list active call batches: %w", err)
	}
	defer rows.Close()
	var batches []models.CallBatch
	for rows.Next() {
		b, err := scanCallBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call batch: %w", err)
		}
		batches = append(batches, *b)
	}
	return batches, rows.Err()
}

func (s *SQLiteStore) UpdateCallBatchStatus(id, status string) error {
	res, err := s.db.Exec(`UPDATE call_batches SET status = ?, updated_at = ? WHERE batch_id = ?`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update call batch status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) AddReceipt(r models.Receipt) error {
	_, err := s.db.Exec(`INSERT INTO receipts (recipient, status, time) VALUES (?, ?, ?)`, r.To, r.Status, r.Time)
	if err != nil {
		return fmt.Errorf("failed to add receipt: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetReceipts() ([]models.Receipt, error) {
	rows, err := s.db.Query(`SELECT recipient, status, time FROM receipts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get receipts: %w", err)
	}
	defer rows.Close()
	var receipts []models.Receipt
	for rows.Next() {
		var r models.Receipt
		if err := rows.Scan(&r.To, &r.Status, &r.Time); err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
