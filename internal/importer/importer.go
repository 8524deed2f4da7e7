// Package importer parses uploaded participant spreadsheets.
//
// The CSV header is matched case-insensitively against a set of accepted
// column aliases, so dashboards exporting "Full Name" or "phoneno" both work
// without configuration.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evinta/rsvpd/internal/models"
)

// Accepted header aliases per field, matched after lowercasing and stripping
// spaces, underscores, and dashes.
var (
	nameAliases  = []string{"name", "fullname", "participantname", "guestname"}
	phoneAliases = []string{"phone", "phoneno", "phonenumber", "mobile", "mobileno", "whatsapp", "contact"}
	emailAliases = []string{"email", "emailaddress", "mail"}
)

// Result summarizes one import run.
type Result struct {
	Participants []models.Participant
	Skipped      int
}

// ParseCSV reads participant rows for an event from CSV data. Rows missing a
// name or phone number are skipped, not fatal; a missing required column is.
func ParseCSV(r io.Reader, eventID, userID string) (*Result, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	nameIdx := findColumn(header, nameAliases)
	phoneIdx := findColumn(header, phoneAliases)
	emailIdx := findColumn(header, emailAliases)
	if nameIdx < 0 || phoneIdx < 0 {
		return nil, fmt.Errorf("CSV must contain name and phone columns, got header %v", header)
	}

	seen := make(map[string]bool)
	result := &Result{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		p := models.Participant{
			ID:          uuid.New().String(),
			EventID:     eventID,
			UserID:      userID,
			FullName:    strings.TrimSpace(field(record, nameIdx)),
			PhoneNumber: canonicalDigits(field(record, phoneIdx)),
			Email:       strings.TrimSpace(field(record, emailIdx)),
			CreatedAt:   time.Now(),
		}
		if p.Validate() != nil || seen[p.PhoneNumber] {
			result.Skipped++
			continue
		}
		seen[p.PhoneNumber] = true
		result.Participants = append(result.Participants, p)
	}

	slog.Info("CSV import parsed", "eventID", eventID, "participants", len(result.Participants), "skipped", result.Skipped)
	return result, nil
}

// findColumn locates the first header cell matching any alias.
func findColumn(header []string, aliases []string) int {
	for i, cell := range header {
		normalized := normalizeHeader(cell)
		for _, alias := range aliases {
			if normalized == alias {
				return i
			}
		}
	}
	return -1
}

func normalizeHeader(cell string) string {
	s := strings.ToLower(strings.TrimSpace(cell))
	s = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
	return s
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// canonicalDigits strips everything but digits so stored numbers match the
// canonical form used by the messaging gateway.
func canonicalDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
