// Package persistence provides SQLite-based storage for accounts and
// uploaded empire designs.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Status is the moderation state of an uploaded empire.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

// Valid reports whether s is a known moderation state.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved
}

// EmpireRecord is one stored empire design.
type EmpireRecord struct {
	ID         string   `db:"id" json:"id"`
	Author     string   `db:"author" json:"author"`
	Name       string   `db:"name" json:"name"`
	Status     Status   `db:"status" json:"status"`
	EthicsJSON string   `db:"ethics_json" json:"-"`
	Ethics     []string `db:"-" json:"ethics"`
	Bio        string   `db:"bio" json:"bio"`
	Body       string   `db:"body" json:"-"`
	Size       int64    `db:"size" json:"size"`
	UploadedAt int64    `db:"uploaded_at" json:"-"`
}

// Uploaded returns the upload time.
func (r *EmpireRecord) Uploaded() time.Time {
	return time.Unix(r.UploadedAt, 0).UTC()
}

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		name TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS empires (
		id TEXT PRIMARY KEY,
		author TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		ethics_json TEXT NOT NULL,
		bio TEXT NOT NULL,
		body TEXT NOT NULL,
		size INTEGER NOT NULL,
		uploaded_at INTEGER NOT NULL,
		UNIQUE (author, name)
	);

	CREATE INDEX IF NOT EXISTS idx_empires_status ON empires(status);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// CreateUser stores a new account.
func (db *DB) CreateUser(name, passwordHash string) error {
	_, err := db.conn.Exec(
		"INSERT INTO users (name, password_hash, created_at) VALUES (?, ?, ?)",
		name, passwordHash, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert user %s: %w", name, err)
	}
	return nil
}

// UserHash returns the stored password hash for name.
func (db *DB) UserHash(name string) (string, error) {
	var hash string
	err := db.conn.Get(&hash, "SELECT password_hash FROM users WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return hash, err
}

// SaveEmpire inserts rec, or replaces the author's existing empire of the
// same name. A replaced empire keeps its ID and goes back to rec.Status.
// On return rec.ID holds the stored ID.
func (db *DB) SaveEmpire(rec *EmpireRecord) error {
	ethics, err := json.Marshal(nonNil(rec.Ethics))
	if err != nil {
		return fmt.Errorf("encode ethics: %w", err)
	}
	rec.EthicsJSON = string(ethics)

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.NamedExec(`INSERT INTO empires
		(id, author, name, status, ethics_json, bio, body, size, uploaded_at)
		VALUES (:id, :author, :name, :status, :ethics_json, :bio, :body, :size, :uploaded_at)
		ON CONFLICT (author, name) DO UPDATE SET
			status = excluded.status,
			ethics_json = excluded.ethics_json,
			bio = excluded.bio,
			body = excluded.body,
			size = excluded.size,
			uploaded_at = excluded.uploaded_at`, rec)
	if err != nil {
		return fmt.Errorf("upsert empire %s/%s: %w", rec.Author, rec.Name, err)
	}

	if err := tx.Get(&rec.ID, "SELECT id FROM empires WHERE author = ? AND name = ?", rec.Author, rec.Name); err != nil {
		return fmt.Errorf("read back empire id: %w", err)
	}

	return tx.Commit()
}

const empireColumns = "id, author, name, status, ethics_json, bio, body, size, uploaded_at"

// ListEmpires returns every empire in the given state, oldest upload first.
func (db *DB) ListEmpires(status Status) ([]EmpireRecord, error) {
	var recs []EmpireRecord
	err := db.conn.Select(&recs,
		"SELECT "+empireColumns+" FROM empires WHERE status = ? ORDER BY uploaded_at, author, name",
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s empires: %w", status, err)
	}
	return hydrate(recs)
}

// ListForDownload returns the approved empires, plus pending ones when
// includePending is set.
func (db *DB) ListForDownload(includePending bool) ([]EmpireRecord, error) {
	var recs []EmpireRecord
	err := db.conn.Select(&recs,
		"SELECT "+empireColumns+" FROM empires WHERE status = ? OR (? AND status = ?) ORDER BY author, name",
		StatusApproved, includePending, StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list downloadable empires: %w", err)
	}
	return hydrate(recs)
}

// Empire returns a single empire by ID.
func (db *DB) Empire(id string) (*EmpireRecord, error) {
	var rec EmpireRecord
	err := db.conn.Get(&rec, "SELECT "+empireColumns+" FROM empires WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get empire %s: %w", id, err)
	}
	if err := decodeEthics(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SetStatus moves an empire between moderation states.
func (db *DB) SetStatus(id string, status Status) error {
	res, err := db.conn.Exec("UPDATE empires SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("set status of %s: %w", id, err)
	}
	if err := expectOneRow(res); err != nil {
		return err
	}
	slog.Info("empire status changed", "id", id, "status", status)
	return nil
}

// DeleteEmpire removes an empire.
func (db *DB) DeleteEmpire(id string) error {
	res, err := db.conn.Exec("DELETE FROM empires WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete empire %s: %w", id, err)
	}
	if err := expectOneRow(res); err != nil {
		return err
	}
	slog.Info("empire deleted", "id", id)
	return nil
}

// CountByStatus returns how many empires are in each state.
func (db *DB) CountByStatus() (map[Status]int, error) {
	var rows []struct {
		Status Status `db:"status"`
		N      int    `db:"n"`
	}
	if err := db.conn.Select(&rows, "SELECT status, COUNT(*) AS n FROM empires GROUP BY status"); err != nil {
		return nil, fmt.Errorf("count empires: %w", err)
	}

	counts := map[Status]int{StatusPending: 0, StatusApproved: 0}
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func hydrate(recs []EmpireRecord) ([]EmpireRecord, error) {
	for i := range recs {
		if err := decodeEthics(&recs[i]); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

func decodeEthics(rec *EmpireRecord) error {
	rec.Ethics = []string{}
	if rec.EthicsJSON == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(rec.EthicsJSON), &rec.Ethics); err != nil {
		return fmt.Errorf("decode ethics of %s: %w", rec.ID, err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
