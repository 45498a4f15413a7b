// Package importer stores the empires a user picked out of an uploaded
// design file as pending submissions.
package importer

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/empire-exchange/internal/clausewitz"
	"github.com/talgya/empire-exchange/internal/persistence"
)

// Store receives imported empires.
type Store interface {
	SaveEmpire(rec *persistence.EmpireRecord) error
}

// Report describes the outcome of one upload.
type Report struct {
	ID        string   `json:"id"`
	Attempted []string `json:"attempted"`
	Stored    []string `json:"stored"`
	Invalid   []string `json:"invalid"`
	Missing   []string `json:"missing"`

	lines []string
}

// String renders the report as the plain-text upload response.
func (r *Report) String() string {
	var sb strings.Builder
	sb.WriteString("Attempt Upload " + strings.Join(r.Attempted, ", ") + ".\n\n")
	for _, l := range r.lines {
		sb.WriteString(l + "\n")
	}
	return sb.String()
}

func (r *Report) addf(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

// Import parses text and stores every top-level empire whose declared name
// is in wanted, attributed to author. Selection values may still carry the
// quotes the core parser leaves on declaration names.
func Import(store Store, text, author string, wanted []string) (*Report, error) {
	tree, err := clausewitz.ParseUserEmpires(text)
	if err != nil {
		return nil, fmt.Errorf("parse upload: %w", err)
	}

	report := &Report{ID: uuid.NewString()}
	want := make(map[string]bool, len(wanted))
	for _, w := range wanted {
		name := strings.Trim(strings.TrimSpace(w), `"`)
		if name == "" || want[name] {
			continue
		}
		want[name] = true
		report.Attempted = append(report.Attempted, name)
	}

	found := map[string]bool{}
	for _, entry := range tree {
		if entry.Bare || !want[entry.Key] || found[entry.Key] {
			continue
		}
		found[entry.Key] = true

		if entry.Value.Kind != clausewitz.KindObject {
			continue
		}

		design := append(clausewitz.Object{}, entry.Value.Obj...)
		if !clausewitz.IsValidEmpire(design) {
			report.Invalid = append(report.Invalid, entry.Key)
			report.addf("%s does not appear to be a valid empire?", entry.Key)
			continue
		}

		rec := prepare(design, author)
		if err := store.SaveEmpire(rec); err != nil {
			return nil, fmt.Errorf("store %s: %w", entry.Key, err)
		}

		report.Stored = append(report.Stored, entry.Key)
		report.addf("Stored %s (%s)", entry.Key, humanize.Bytes(uint64(rec.Size)))
	}

	for _, name := range report.Attempted {
		if !found[name] {
			report.Missing = append(report.Missing, name)
			report.addf("%s was not found in the upload", name)
		}
	}

	slog.Info("upload imported",
		"upload_id", report.ID,
		"author", author,
		"stored", len(report.Stored),
		"invalid", len(report.Invalid),
		"missing", len(report.Missing),
	)
	return report, nil
}

// prepare rewrites the spawn settings so the design appears as a normal
// empire in anyone's game, and serialises it.
func prepare(design clausewitz.Object, author string) *persistence.EmpireRecord {
	if strings.HasPrefix(design.GetString("initializer"), "custom_starting_init_") {
		design.Set("initializer", clausewitz.StringValue(""))
	}
	design.Set("spawn_enabled", clausewitz.StringValue("always"))
	design.Set("spawn_as_fallen", clausewitz.BoolValue(false))
	design.Set("author", clausewitz.StringValue(author))

	key := design.GetString("key")
	body := fmt.Sprintf("\"%s\"={\n%s}\n", key, clausewitz.Format(design, 1))

	return &persistence.EmpireRecord{
		ID:         uuid.NewString(),
		Author:     author,
		Name:       key,
		Status:     persistence.StatusPending,
		Ethics:     clausewitz.EthicTags(design),
		Bio:        design.GetObject("species").GetString("species_bio"),
		Body:       body,
		Size:       int64(len(body)),
		UploadedAt: time.Now().Unix(),
	}
}
