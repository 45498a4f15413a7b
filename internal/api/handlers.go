package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/empire-exchange/internal/accounts"
	"github.com/talgya/empire-exchange/internal/clausewitz"
	"github.com/talgya/empire-exchange/internal/empire"
	"github.com/talgya/empire-exchange/internal/importer"
	"github.com/talgya/empire-exchange/internal/modpack"
	"github.com/talgya/empire-exchange/internal/persistence"
)

const defaultEmpireCount = 10

// empireSummary is one row of a listing.
type empireSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Author      string   `json:"author"`
	Status      string   `json:"status"`
	Ethics      []string `json:"ethics"`
	Bio         string   `json:"bio"`
	Size        string   `json:"size"`
	Uploaded    string   `json:"uploaded"`
	UploadedAgo string   `json:"uploaded_ago"`
}

func summarize(recs []persistence.EmpireRecord) []empireSummary {
	out := make([]empireSummary, 0, len(recs))
	for _, r := range recs {
		uploaded := r.Uploaded()
		out = append(out, empireSummary{
			ID:          r.ID,
			Name:        r.Name,
			Author:      r.Author,
			Status:      string(r.Status),
			Ethics:      r.Ethics,
			Bio:         r.Bio,
			Size:        humanize.Bytes(uint64(r.Size)),
			Uploaded:    uploaded.Format(time.RFC3339),
			UploadedAgo: humanize.Time(uploaded),
		})
	}
	return out
}

func (s *Server) handleUsername(w http.ResponseWriter, r *http.Request, user string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, user)
}

func (s *Server) handleSourcesList(w http.ResponseWriter, r *http.Request, user string) {
	writeJSON(w, s.Config.Sources)
}

// handleSource serves GET /ajax/{source}.
func (s *Server) handleSource(w http.ResponseWriter, r *http.Request, user string) {
	name := strings.TrimPrefix(r.URL.Path, "/ajax/")
	src, ok := s.Config.Source(name)
	if !ok {
		http.Error(w, "unknown source", http.StatusNotFound)
		return
	}
	s.writeListing(w, persistence.Status(src.Status))
}

func (s *Server) handleStatusList(status persistence.Status) userHandler {
	return func(w http.ResponseWriter, r *http.Request, user string) {
		s.writeListing(w, status)
	}
}

func (s *Server) writeListing(w http.ResponseWriter, status persistence.Status) {
	recs, err := s.Store.ListEmpires(status)
	if err != nil {
		slog.Error("list empires", "status", status, "error", err)
		http.Error(w, "listing unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, summarize(recs))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, user string) {
	counts, err := s.Store.CountByStatus()
	if err != nil {
		slog.Error("count empires", "error", err)
		http.Error(w, "status unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"approved": counts[persistence.StatusApproved],
		"pending":  counts[persistence.StatusPending],
		"sources":  len(s.Config.Sources),
	})
}

// readUpload returns the text of an upload sent either as the multipart
// "file" field or as the raw request body.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.Config.Upload.MaxBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(s.Config.Upload.MaxBytes); err != nil {
			return "", err
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			return "", err
		}
		defer f.Close()
		raw, err := io.ReadAll(f)
		if err != nil {
			return "", err
		}
		return clausewitz.DecodeUpload(raw), nil
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", http.ErrMissingFile
	}
	return clausewitz.DecodeUpload(raw), nil
}

// uploadError maps a readUpload failure to a response.
func (s *Server) uploadError(w http.ResponseWriter, err error) {
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig):
		http.Error(w, fmt.Sprintf("upload larger than %s", humanize.Bytes(uint64(tooBig.Limit))), http.StatusRequestEntityTooLarge)
	case errors.Is(err, http.ErrMissingFile):
		http.Error(w, "no file uploaded", http.StatusUnsupportedMediaType)
	default:
		http.Error(w, "unreadable upload", http.StatusBadRequest)
	}
}

// handlePreview lists the empires found in an uploaded design file so the
// user can pick which to share.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request, user string) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	text, err := s.readUpload(w, r)
	if err != nil {
		s.uploadError(w, err)
		return
	}
	writeJSON(w, empire.Parse(text))
}

// handleUpload stores the selected empires of an uploaded design file.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, user string) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		http.Error(w, "expected a multipart form with file and select fields", http.StatusUnsupportedMediaType)
		return
	}
	text, err := s.readUpload(w, r)
	if err != nil {
		s.uploadError(w, err)
		return
	}

	selected := r.MultipartForm.Value["select"]
	if len(selected) == 0 {
		http.Error(w, "no empires selected", http.StatusUnsupportedMediaType)
		return
	}

	report, err := importer.Import(s.Store, text, accounts.SanitizeName(user), selected)
	if err != nil {
		slog.Error("import upload", "user", user, "error", err)
		http.Error(w, "upload failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Refresh", "5; url=/")
	w.WriteHeader(http.StatusCreated)
	io.WriteString(w, report.String())
	io.WriteString(w, "\nPage will refresh in 5 seconds...\n")
}

// handleGenerate builds and streams a mod pack of randomly picked empires.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request, user string) {
	q := r.URL.Query()

	count := defaultEmpireCount
	if v := q.Get("empire_count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "empire_count must be a positive integer", http.StatusBadRequest)
			return
		}
		count = n
	}
	allBalanced := q.Get("all_balanced") != ""
	includePending := allBalanced || q.Get("include_unmoderated") != ""
	balance := allBalanced || q.Get("balance_authors") != ""

	recs, err := s.Store.ListForDownload(includePending)
	if err != nil {
		slog.Error("list for download", "error", err)
		http.Error(w, "download unavailable", http.StatusInternalServerError)
		return
	}
	if allBalanced {
		count = len(recs)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	picked := modpack.Select(recs, count, balance, rng)

	pack, err := modpack.Build(s.packOpts, picked)
	if err != nil {
		slog.Error("build mod pack", "error", err)
		http.Error(w, "download unavailable", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := pack.WriteZip(&buf); err != nil {
		slog.Error("write mod pack", "error", err)
		http.Error(w, "download unavailable", http.StatusInternalServerError)
		return
	}

	slog.Info("mod pack generated", "user", user, "empires", len(picked), "size", humanize.Bytes(uint64(buf.Len())))

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="empires-mod.zip"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}

// empireDetail is a listing row plus the stored design text.
type empireDetail struct {
	empireSummary
	Body string `json:"body"`
}

// handleEmpire serves GET /api/v1/empire/{id}.
func (s *Server) handleEmpire(w http.ResponseWriter, r *http.Request, user string) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/empire/")
	if id == "" {
		http.Error(w, "missing empire id", http.StatusNotFound)
		return
	}

	rec, err := s.Store.Empire(id)
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		http.Error(w, "empire not found", http.StatusNotFound)
		return
	case err != nil:
		slog.Error("get empire", "id", id, "error", err)
		http.Error(w, "empire unavailable", http.StatusInternalServerError)
		return
	}

	writeJSON(w, empireDetail{
		empireSummary: summarize([]persistence.EmpireRecord{*rec})[0],
		Body:          rec.Body,
	})
}

// handleModeration serves POST /api/v1/moderation/{id}/{approve|reject}.
// Rejecting deletes the empire.
func (s *Server) handleModeration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/moderation/")
	id, action, ok := strings.Cut(rest, "/")
	if !ok || id == "" {
		http.Error(w, "expected /api/v1/moderation/{id}/{approve|reject}", http.StatusNotFound)
		return
	}

	var err error
	switch action {
	case "approve":
		err = s.Store.SetStatus(id, persistence.StatusApproved)
	case "reject":
		err = s.Store.DeleteEmpire(id)
	default:
		http.Error(w, fmt.Sprintf("unknown action %q", action), http.StatusNotFound)
		return
	}

	switch {
	case errors.Is(err, persistence.ErrNotFound):
		http.Error(w, "empire not found", http.StatusNotFound)
		return
	case err != nil:
		slog.Error("moderate empire", "id", id, "action", action, "error", err)
		http.Error(w, "moderation failed", http.StatusInternalServerError)
		return
	}

	slog.Info("empire moderated", "id", id, "action", action)
	writeJSON(w, map[string]string{"id": id, "action": action})
}
