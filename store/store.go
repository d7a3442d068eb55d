// Package store caches instances and sketches and keeps the history of
// verification verdicts in a SQLite database.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/rfielding/sketchcheck/features"
	"github.com/rfielding/sketchcheck/sketch"
	"github.com/rfielding/sketchcheck/verify"
)

var ErrNotFound = errors.New("store: not found")

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS instances (
	name       TEXT PRIMARY KEY,
	digest     TEXT NOT NULL,
	payload    BLOB NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS sketches (
	name       TEXT PRIMARY KEY,
	digest     TEXT NOT NULL,
	body       TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS verdicts (
	id           TEXT PRIMARY KEY,
	instance     TEXT NOT NULL,
	sketch       TEXT NOT NULL,
	oracle       TEXT NOT NULL,
	passed       INTEGER NOT NULL,
	reason       TEXT NOT NULL,
	ground_rules INTEGER NOT NULL,
	laws         BLOB NOT NULL,
	duration_ns  INTEGER NOT NULL,
	created_ns   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS verdicts_created ON verdicts (created_ns);
`

// Store is a SQLite-backed artifact cache. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "sketchcheck.db"
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps writes serialized and an in-memory database
	// shared.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PutInstance stores inst under its name and returns the content digest.
func (s *Store) PutInstance(ctx context.Context, inst *features.Instance) (string, error) {
	if inst.Name() == "" {
		return "", errors.New("store: instance has no name")
	}
	payload, err := json.Marshal(inst.Document())
	if err != nil {
		return "", fmt.Errorf("encode instance: %w", err)
	}
	d := digest(payload)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO instances (name, digest, payload, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET digest = excluded.digest, payload = excluded.payload, updated_at = excluded.updated_at`,
		inst.Name(), d, payload, s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("put instance %s: %w", inst.Name(), err)
	}
	return d, nil
}

// GetInstance loads a stored instance.
func (s *Store) GetInstance(ctx context.Context, name string) (*features.Instance, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM instances WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: instance %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get instance %s: %w", name, err)
	}
	var doc features.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode instance %s: %w", name, err)
	}
	return doc.Instance()
}

// PutSketch stores s in the line format under name and returns the content
// digest.
func (s *Store) PutSketch(ctx context.Context, name string, sk sketch.Sketch) (string, error) {
	body, err := sk.MarshalText()
	if err != nil {
		return "", fmt.Errorf("encode sketch: %w", err)
	}
	d := digest(body)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sketches (name, digest, body, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET digest = excluded.digest, body = excluded.body, updated_at = excluded.updated_at`,
		name, d, string(body), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("put sketch %s: %w", name, err)
	}
	return d, nil
}

// GetSketch loads a stored sketch.
func (s *Store) GetSketch(ctx context.Context, name string) (sketch.Sketch, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM sketches WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return sketch.Sketch{}, fmt.Errorf("%w: sketch %s", ErrNotFound, name)
	}
	if err != nil {
		return sketch.Sketch{}, fmt.Errorf("get sketch %s: %w", name, err)
	}
	var sk sketch.Sketch
	if err := sk.UnmarshalText([]byte(body)); err != nil {
		return sketch.Sketch{}, fmt.Errorf("decode sketch %s: %w", name, err)
	}
	return sk, nil
}

// Verdict is one recorded verification outcome.
type Verdict struct {
	ID          string
	Instance    string
	Sketch      string
	Oracle      string
	Passed      bool
	Reason      string
	GroundRules int
	Laws        []verify.LawResult
	Duration    time.Duration
	CreatedAt   time.Time
}

// NewVerdict summarizes a report for the history.
func NewVerdict(sketchName, oracleName string, r *verify.Report) Verdict {
	return Verdict{
		Instance:    r.Instance,
		Sketch:      sketchName,
		Oracle:      oracleName,
		Passed:      r.Passed,
		Reason:      r.Reason,
		GroundRules: r.GroundRules,
		Laws:        r.Laws,
		Duration:    r.Duration,
	}
}

func (v Verdict) String() string {
	status := "PASS"
	if !v.Passed {
		status = "FAIL"
	}
	parts := []string{v.CreatedAt.Local().Format(time.DateTime), status, v.Sketch, v.Instance, v.Oracle}
	if v.Reason != "" {
		parts = append(parts, v.Reason)
	}
	return strings.Join(parts, "  ")
}

// RecordVerdict appends v to the history, assigning its ID and time.
func (s *Store) RecordVerdict(ctx context.Context, v Verdict) (Verdict, error) {
	v.ID = uuid.NewString()
	v.CreatedAt = s.now().UTC()
	laws, err := json.Marshal(v.Laws)
	if err != nil {
		return Verdict{}, fmt.Errorf("encode laws: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO verdicts (id, instance, sketch, oracle, passed, reason, ground_rules, laws, duration_ns, created_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Instance, v.Sketch, v.Oracle, v.Passed, v.Reason, v.GroundRules, laws,
		int64(v.Duration), v.CreatedAt.UnixNano())
	if err != nil {
		return Verdict{}, fmt.Errorf("record verdict: %w", err)
	}
	return v, nil
}

// History returns the most recent verdicts first. A limit of zero or less
// returns all of them.
func (s *Store) History(ctx context.Context, limit int) (out []Verdict, err error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, instance, sketch, oracle, passed, reason, ground_rules, laws, duration_ns, created_ns
		FROM verdicts ORDER BY created_ns DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select verdicts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			v        Verdict
			laws     []byte
			duration int64
			created  int64
		)
		if err := rows.Scan(&v.ID, &v.Instance, &v.Sketch, &v.Oracle, &v.Passed, &v.Reason,
			&v.GroundRules, &laws, &duration, &created); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if err := json.Unmarshal(laws, &v.Laws); err != nil {
			return nil, fmt.Errorf("decode laws of %s: %w", v.ID, err)
		}
		v.Duration = time.Duration(duration)
		v.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, v)
	}
	return out, rows.Err()
}
