package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/evinta/rsvpd/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore is a Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to PostgreSQL using the DSN and applies migrations.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	cfg := Opts{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres store requires a DSN")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply postgres migrations: %w", err)
	}

	slog.Info("PostgresStore initialized")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AddUser(u models.User) error {
	_, err := s.db.Exec(`INSERT INTO users (user_id, name, email, created_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email`,
		u.ID, u.Name, u.Email, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add user: %w", err)
	}
	slog.Debug("PostgresStore AddUser", "userID", u.ID)
	return nil
}

func (s *PostgresStore) GetUser(id string) (*models.User, error) {
	row := s.db.QueryRow(`SELECT user_id, name, email, created_at FROM users WHERE user_id = $1`, id)
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) ListUsers() ([]models.User, error) {
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

func (s *PostgresStore) AddEvent(e models.Event) error {
	_, err := s.db.Exec(`INSERT INTO events (event_id, user_id, event_name, event_date, uploaded_csv, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO UPDATE SET event_name = EXCLUDED.event_name, event_date = EXCLUDED.event_date, uploaded_csv = EXCLUDED.uploaded_csv, status = EXCLUDED.status`,
		e.ID, e.UserID, e.Name, e.Date, nilIfEmpty(e.CSVURL), e.Status, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add event: %w", err)
	}
	slog.Debug("PostgresStore AddEvent", "eventID", e.ID)
	return nil
}

func (s *PostgresStore) GetEvent(id string) (*models.Event, error) {
	row := s.db.QueryRow(`SELECT event_id, user_id, event_name, event_date, uploaded_csv, status, created_at FROM events WHERE event_id = $1`, id)
	e, err := scanEvent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) ListEventsByUser(userID string) ([]models.Event, error) {
	rows, err := s.db.Query(`SELECT event_id, user_id, event_name, event_date, uploaded_csv, status, created_at FROM events WHERE user_id = $1 ORDER BY created_at`, userID)
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

func (s *PostgresStore) UpdateEventStatus(id, status string) error {
	res, err := s.db.Exec(`UPDATE events SET status = $1 WHERE event_id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AddParticipants(ps []models.Participant) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO participants (participant_id, event_id, user_id, full_name, phone_number, email, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id, phone_number) DO NOTHING`)
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
	slog.Debug("PostgresStore AddParticipants", "count", len(ps))
	return nil
}

func (s *PostgresStore) ListParticipantsByEvent(eventID string) ([]models.Participant, error) {
	rows, err := s.db.Query(`SELECT participant_id, event_id, user_id, full_name, phone_number, email, created_at FROM participants WHERE event_id = $1 ORDER BY created_at`, eventID)
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

func (s *PostgresStore) GetParticipant(id string) (*models.Participant, error) {
	row := s.db.QueryRow(`SELECT participant_id, event_id, user_id, full_name, phone_number, email, created_at FROM participants WHERE participant_id = $1`, id)
	p, err := scanParticipant(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetParticipantByPhone(phone string) (*models.Participant, error) {
	row := s.db.QueryRow(`SELECT participant_id, event_id, user_id, full_name, phone_number, email, created_at FROM participants WHERE phone_number = $1 ORDER BY created_at DESC LIMIT 1`, phone)
	p, err := scanParticipant(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get participant by phone: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetConversation(participantID string) (*models.ConversationState, error) {
	row := s.db.QueryRow(`SELECT participant_id, event_id, step, rsvp_status, guest_count, notes, doc_name, doc_role, doc_type, last_updated FROM conversation_results WHERE participant_id = $1`, participantID)
	cs, err := scanConversation(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return cs, nil
}

func (s *PostgresStore) SaveConversation(cs models.ConversationState) error {
	_, err := s.db.Exec(`INSERT INTO conversation_results (participant_id, event_id, step, rsvp_status, guest_count, notes, doc_name, doc_role, doc_type, last_updated) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (participant_id) DO UPDATE SET event_id = EXCLUDED.event_id, step = EXCLUDED.step, rsvp_status = EXCLUDED.rsvp_status, guest_count = EXCLUDED.guest_count, notes = EXCLUDED.notes, doc_name = EXCLUDED.doc_name, doc_role = EXCLUDED.doc_role, doc_type = EXCLUDED.doc_type, last_updated = EXCLUDED.last_updated`,
		cs.ParticipantID, cs.EventID, string(cs.Step),
		nilIfEmpty(string(cs.RSVPStatus)), nilIfZero(cs.GuestCount), nilIfEmpty(cs.Notes),
		nilIfEmpty(cs.DocName), nilIfEmpty(string(cs.DocRole)), nilIfEmpty(string(cs.DocType)),
		cs.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	slog.Debug("PostgresStore SaveConversation", "participantID", cs.ParticipantID, "step", cs.Step)
	return nil
}

func (s *PostgresStore) AddDocument(d models.DocumentRecord) error {
	_, err := s.db.Exec(`INSERT INTO uploads (upload_id, participant_id, attendee_name, role, document_type, document_url, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.ParticipantID, d.AttendeeName, string(d.Role), string(d.DocumentType), nilIfEmpty(d.DocumentURL), d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}
	slog.Debug("PostgresStore AddDocument", "uploadID", d.ID, "participantID", d.ParticipantID)
	return nil
}

func (s *PostgresStore) ListDocuments(participantID string) ([]models.DocumentRecord, error) {
	rows, err := s.db.Query(`SELECT upload_id, participant_id, attendee_name, role, document_type, document_url, created_at FROM uploads WHERE participant_id = $1 ORDER BY created_at`, participantID)
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

func (s *PostgresStore) UpdateDocument(d models.DocumentRecord) error {
	res, err := s.db.Exec(`UPDATE uploads SET attendee_name = $1, role = $2, document_type = $3, document_url = $4 WHERE upload_id = $5`,
		d.AttendeeName, string(d.Role), string(d.DocumentType), nilIfEmpty(d.DocumentURL), d.ID)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AddCallBatch(b models.CallBatch) error {
	_, err := s.db.Exec(`INSERT INTO call_batches (batch_id, event_id, job_id, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (batch_id) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		b.ID, b.EventID, b.JobID, b.Status, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to add call batch: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCallBatchByEvent(eventID string) (*models.CallBatch, error) {
	row := s.db.QueryRow(`SELECT batch_id, event_id, job_id, status, created_at, updated_at FROM call_batches WHERE event_id = $1 ORDER BY created_at DESC LIMIT 1`, eventID)
	b, err := scanCallBatch(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get call batch: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) ListActiveCallBatches() ([]models.CallBatch, error) {
	rows, err := s.db.Query(`SELECT batch_id, event_id, job_id, status, created_at, updated_at FROM call_batches WHERE status NOT IN ($1, $2, $3)`,
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

func (s *PostgresStore) UpdateCallBatchStatus(id, status string) error {
	res, err := s.db.Exec(`UPDATE call_batches SET status = $1, updated_at = $2 WHERE batch_id = $3`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update call batch status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AddReceipt(r models.Receipt) error {
	_, err := s.db.Exec(`INSERT INTO receipts (recipient, status, time) VALUES ($1, $2, $3)`, r.To, r.Status, r.Time)
	if err != nil {
		return fmt.Errorf("failed to add receipt: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetReceipts() ([]models.Receipt, error) {
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
