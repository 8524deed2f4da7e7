package importer

import (
	"strings"
	"testing"
)

func TestParseCSVDetectsColumnAliases(t *testing.T) {
	csvData := "Full Name,Phone No,Email Address\nAsha Rao,+1 (555) 123-4567,asha@example.com\nRavi Rao,15559876543,\n"
	result, err := ParseCSV(strings.NewReader(csvData), "e1", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Participants) != 2 {
		t.Fatalf("got %d participants, want 2", len(result.Participants))
	}
	p := result.Participants[0]
	if p.FullName != "Asha Rao" {
		t.Errorf("FullName = %q", p.FullName)
	}
	if p.PhoneNumber != "15551234567" {
		t.Errorf("PhoneNumber = %q, want digits-only canonical form", p.PhoneNumber)
	}
	if p.Email != "asha@example.com" {
		t.Errorf("Email = %q", p.Email)
	}
	if p.EventID != "e1" || p.UserID != "u1" {
		t.Errorf("event/user not propagated: %+v", p)
	}
	if p.ID == "" {
		t.Error("participant id should be generated")
	}
}

func TestParseCSVSkipsInvalidAndDuplicateRows(t *testing.T) {
	csvData := "name,phone\nAsha Rao,15551234567\n,15550000000\nNo Phone,\nAsha Again,1-555-123-4567\n"
	result, err := ParseCSV(strings.NewReader(csvData), "e1", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Participants) != 1 {
		t.Errorf("got %d participants, want 1", len(result.Participants))
	}
	if result.Skipped != 3 {
		t.Errorf("skipped = %d, want 3 (missing name, missing phone, duplicate)", result.Skipped)
	}
}

func TestParseCSVRequiresNameAndPhoneColumns(t *testing.T) {
	csvData := "email,city\na@example.com,Toronto\n"
	if _, err := ParseCSV(strings.NewReader(csvData), "e1", "u1"); err == nil {
		t.Error("missing required columns should be fatal")
	}
}

func TestParseCSVEmptyInput(t *testing.T) {
	if _, err := ParseCSV(strings.NewReader(""), "e1", "u1"); err == nil {
		t.Error("empty input should fail on the missing header")
	}
}
