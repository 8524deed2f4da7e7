package voice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/evinta/rsvpd/internal/models"
)

// ErrBatchInFlight is returned when a fresh submission is attempted while a
// prior batch for the same event is still outstanding.
var ErrBatchInFlight = fmt.Errorf("a call batch for this event is still in flight")

// Dialer is the slice of the provider client the campaign manager needs.
type Dialer interface {
	CreateBatchCall(ctx context.Context, name string, recipients []Recipient) (string, error)
	GetBatchInfo(ctx context.Context, jobID string) (*BatchInfo, error)
}

// BatchStore is the slice of the persistence layer the campaign manager needs.
type BatchStore interface {
	GetEvent(id string) (*models.Event, error)
	ListParticipantsByEvent(eventID string) ([]models.Participant, error)
	AddCallBatch(b models.CallBatch) error
	GetCallBatchByEvent(eventID string) (*models.CallBatch, error)
	ListActiveCallBatches() ([]models.CallBatch, error)
	UpdateCallBatchStatus(id, status string) error
}

// DefaultSyncSchedule polls outstanding batches every two minutes.
const DefaultSyncSchedule = "@every 2m"

// CampaignManager triggers calling campaigns per event and syncs their status.
// Submission is single-flight per event: a non-terminal batch row blocks a
// fresh submission until the provider reports it finished.
type CampaignManager struct {
	store  BatchStore
	dialer Dialer
	cron   *cron.Cron
}

// NewCampaignManager wires the manager; call StartStatusSync to begin polling.
func NewCampaignManager(store BatchStore, dialer Dialer) *CampaignManager {
	return &CampaignManager{store: store, dialer: dialer}
}

// TriggerEventCalls submits one calling batch covering every participant of
// the event. It returns ErrBatchInFlight when a prior batch is outstanding.
func (m *CampaignManager) TriggerEventCalls(ctx context.Context, eventID string) (*models.CallBatch, error) {
	event, err := m.store.GetEvent(eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("event %s not found", eventID)
	}

	prior, err := m.store.GetCallBatchByEvent(eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to check prior batches: %w", err)
	}
	if prior != nil && !models.IsTerminalCallBatchStatus(prior.Status) {
		slog.Info("voice campaign blocked by in-flight batch", "eventID", eventID, "batchID", prior.ID, "status", prior.Status)
		return nil, ErrBatchInFlight
	}

	participants, err := m.store.ListParticipantsByEvent(eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	if len(participants) == 0 {
		return nil, fmt.Errorf("event %s has no participants", eventID)
	}
	recipients := make([]Recipient, 0, len(participants))
	for _, p := range participants {
		recipients = append(recipients, Recipient{PhoneNumber: p.PhoneNumber})
	}

	jobID, err := m.dialer.CreateBatchCall(ctx, event.Name, recipients)
	if err != nil {
		return nil, fmt.Errorf("failed to submit call batch: %w", err)
	}

	now := time.Now()
	batch := models.CallBatch{
		ID:        uuid.New().String(),
		EventID:   eventID,
		JobID:     jobID,
		Status:    models.CallBatchStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.AddCallBatch(batch); err != nil {
		// The provider accepted the batch but the row is lost; surfacing the
		// error lets the operator reconcile by job id from the logs.
		slog.Error("voice batch submitted but not recorded", "eventID", eventID, "jobID", jobID, "error", err)
		return nil, fmt.Errorf("failed to record call batch: %w", err)
	}
	slog.Info("voice campaign triggered", "eventID", eventID, "batchID", batch.ID, "jobID", jobID, "recipients", len(recipients))
	return &batch, nil
}

// StartStatusSync begins the background poll that reconciles stored batch
// statuses with the provider. The returned stop function halts the schedule.
func (m *CampaignManager) StartStatusSync(schedule string) (func(), error) {
	if schedule == "" {
		schedule = DefaultSyncSchedule
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, m.SyncStatuses); err != nil {
		return nil, fmt.Errorf("failed to schedule status sync: %w", err)
	}
	c.Start()
	m.cron = c
	slog.Info("voice status sync started", "schedule", schedule)
	return func() { c.Stop() }, nil
}

// SyncStatuses polls the provider once for every non-terminal batch.
func (m *CampaignManager) SyncStatuses() {
	batches, err := m.store.ListActiveCallBatches()
	if err != nil {
		slog.Error("voice status sync failed to list batches", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), DefaultHTTPTimeout)
	defer cancel()

	for _, b := range batches {
		info, err := m.dialer.GetBatchInfo(ctx, b.JobID)
		if err != nil {
			slog.Warn("voice status sync fetch failed", "batchID", b.ID, "jobID", b.JobID, "error", err)
			continue
		}
		if info.Status == "" || info.Status == b.Status {
			continue
		}
		if err := m.store.UpdateCallBatchStatus(b.ID, info.Status); err != nil {
			slog.Error("voice status sync update failed", "batchID", b.ID, "error", err)
			continue
		}
		slog.Info("voice batch status updated", "batchID", b.ID, "from", b.Status, "to", info.Status)
	}
}
