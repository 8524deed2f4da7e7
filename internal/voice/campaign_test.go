package voice

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/evinta/rsvpd/internal/models"
	"github.com/evinta/rsvpd/internal/store"
)

// fakeDialer records submissions and serves canned statuses.
type fakeDialer struct {
	submissions int
	recipients  int
	status      string
	submitErr   error
}

func (f *fakeDialer) CreateBatchCall(ctx context.Context, name string, recipients []Recipient) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submissions++
	f.recipients = len(recipients)
	return fmt.Sprintf("job-%d", f.submissions), nil
}

func (f *fakeDialer) GetBatchInfo(ctx context.Context, jobID string) (*BatchInfo, error) {
	return &BatchInfo{ID: jobID, Status: f.status}, nil
}

func seedEvent(t *testing.T, st *store.InMemoryStore, participants int) string {
	t.Helper()
	eventID := "e1"
	if err := st.AddEvent(models.Event{ID: eventID, UserID: "u1", Name: "Spring Gala", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("failed to seed event: %v", err)
	}
	var ps []models.Participant
	for i := 0; i < participants; i++ {
		ps = append(ps, models.Participant{
			ID: fmt.Sprintf("p%d", i), EventID: eventID,
			FullName: "Guest", PhoneNumber: fmt.Sprintf("1555000%04d", i), CreatedAt: time.Now(),
		})
	}
	if err := st.AddParticipants(ps); err != nil {
		t.Fatalf("failed to seed participants: %v", err)
	}
	return eventID
}

func TestTriggerEventCalls(t *testing.T) {
	st := store.NewInMemoryStore()
	eventID := seedEvent(t, st, 3)
	dialer := &fakeDialer{}
	m := NewCampaignManager(st, dialer)

	batch, err := m.TriggerEventCalls(context.Background(), eventID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch.Status != models.CallBatchStatusPending || batch.JobID != "job-1" {
		t.Errorf("batch = %+v", batch)
	}
	if dialer.recipients != 3 {
		t.Errorf("submitted %d recipients, want 3", dialer.recipients)
	}
	stored, _ := st.GetCallBatchByEvent(eventID)
	if stored == nil || stored.ID != batch.ID {
		t.Error("batch row not persisted")
	}
}

func TestTriggerEventCallsSingleFlight(t *testing.T) {
	st := store.NewInMemoryStore()
	eventID := seedEvent(t, st, 1)
	dialer := &fakeDialer{}
	m := NewCampaignManager(st, dialer)

	if _, err := m.TriggerEventCalls(context.Background(), eventID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A second submission while the first is non-terminal is refused.
	if _, err := m.TriggerEventCalls(context.Background(), eventID); !errors.Is(err, ErrBatchInFlight) {
		t.Errorf("second trigger error = %v, want ErrBatchInFlight", err)
	}
	if dialer.submissions != 1 {
		t.Errorf("provider called %d times, want 1", dialer.submissions)
	}

	// Once the batch is terminal, a fresh submission is allowed.
	first, _ := st.GetCallBatchByEvent(eventID)
	if err := st.UpdateCallBatchStatus(first.ID, models.CallBatchStatusCompleted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.TriggerEventCalls(context.Background(), eventID); err != nil {
		t.Errorf("trigger after terminal batch failed: %v", err)
	}
	if dialer.submissions != 2 {
		t.Errorf("provider called %d times, want 2", dialer.submissions)
	}
}

func TestTriggerEventCallsValidation(t *testing.T) {
	st := store.NewInMemoryStore()
	m := NewCampaignManager(st, &fakeDialer{})

	if _, err := m.TriggerEventCalls(context.Background(), "missing"); err == nil {
		t.Error("missing event should fail")
	}

	if err := st.AddEvent(models.Event{ID: "empty", UserID: "u1", Name: "Empty", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.TriggerEventCalls(context.Background(), "empty"); err == nil {
		t.Error("event without participants should fail")
	}
}

func TestTriggerEventCallsProviderFailureLeavesNoRow(t *testing.T) {
	st := store.NewInMemoryStore()
	eventID := seedEvent(t, st, 1)
	m := NewCampaignManager(st, &fakeDialer{submitErr: fmt.Errorf("provider down")})

	if _, err := m.TriggerEventCalls(context.Background(), eventID); err == nil {
		t.Fatal("provider failure should surface")
	}
	if b, _ := st.GetCallBatchByEvent(eventID); b != nil {
		t.Error("no batch row should exist after a failed submission")
	}
}

func TestSyncStatuses(t *testing.T) {
	st := store.NewInMemoryStore()
	eventID := seedEvent(t, st, 1)
	dialer := &fakeDialer{status: "in_progress"}
	m := NewCampaignManager(st, dialer)

	if _, err := m.TriggerEventCalls(context.Background(), eventID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.SyncStatuses()
	batch, _ := st.GetCallBatchByEvent(eventID)
	if batch.Status != models.CallBatchStatusInProgress {
		t.Errorf("status = %q, want in_progress after sync", batch.Status)
	}

	dialer.status = "completed"
	m.SyncStatuses()
	batch, _ = st.GetCallBatchByEvent(eventID)
	if batch.Status != models.CallBatchStatusCompleted {
		t.Errorf("status = %q, want completed after sync", batch.Status)
	}

	// Terminal batches are no longer polled.
	active, _ := st.ListActiveCallBatches()
	if len(active) != 0 {
		t.Errorf("got %d active batches, want 0", len(active))
	}
}
