package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/a11yscan/internal/model"
)

// DBFileName is the name of the database file inside the data directory.
const DBFileName = "a11yscan.db"

var (
	// ErrNotFound is returned when no audit has the requested id.
	ErrNotFound = errors.New("audit not found")

	// ErrCorrupted is returned when a stored response no longer matches
	// its digest.
	ErrCorrupted = errors.New("stored audit does not match its digest")
)

// tsLayout is fixed width so that stored timestamps sort lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// AuditDB provides SQLite-based storage for audit responses.
type AuditDB struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// Options configures AuditDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates an AuditDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*AuditDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &AuditDB{
		db:     db,
		dbPath: dbPath,
		now:    time.Now,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// Path returns the database file path.
func (adb *AuditDB) Path() string {
	return adb.dbPath
}

// Close closes the database connection.
func (adb *AuditDB) Close() error {
	return adb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (adb *AuditDB) createTables() error {
	schema := `
	-- Audits store complete responses as JSON
	CREATE TABLE IF NOT EXISTS audits (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		engine TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		score INTEGER NOT NULL,
		violations INTEGER NOT NULL,
		impact_summary TEXT,
		digest TEXT NOT NULL,
		response_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_audits_url ON audits(url);
	CREATE INDEX IF NOT EXISTS idx_audits_timestamp ON audits(timestamp);

	-- One row per violation reported by a successful engine
	CREATE TABLE IF NOT EXISTS audit_violations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		audit_id TEXT NOT NULL REFERENCES audits(id) ON DELETE CASCADE,
		engine TEXT NOT NULL,
		rule_id TEXT,
		criterion TEXT NOT NULL,
		level TEXT NOT NULL,
		impact TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_violations_audit ON audit_violations(audit_id);
	CREATE INDEX IF NOT EXISTS idx_violations_criterion ON audit_violations(criterion);
	`

	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// Digest returns the hex SHA3-256 digest of a stored response body.
func Digest(body []byte) string {
	sum := sha3.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Save stores resp and returns its new id. It implements the orchestrator's
// result sink.
func (adb *AuditDB) Save(ctx context.Context, resp *model.Response) (string, error) {
	if resp == nil || (resp.Audit == nil && resp.Comparative == nil) {
		return "", errors.New("nothing to save: empty response")
	}

	id := uuid.NewString()
	stored := *resp
	stored.ID = id
	body, err := json.Marshal(&stored)
	if err != nil {
		return "", fmt.Errorf("failed to serialize response: %w", err)
	}
	impactJSON, _ := json.Marshal(impactSummary(resp)) //nolint:errcheck,errchkjson // map of ints; Marshal won't fail

	ts := resp.Timestamp()
	if ts.IsZero() {
		ts = adb.now()
	}

	tx, err := adb.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO audits (id, url, engine, timestamp, score, violations, impact_summary, digest, response_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		resp.URL(),
		resp.EngineLabel(),
		ts.UTC().Format(tsLayout),
		resp.HeadlineScore(),
		resp.HeadlineViolations(),
		string(impactJSON),
		Digest(body),
		string(body),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save audit: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO audit_violations (audit_id, engine, rule_id, criterion, level, impact)
	VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare violation insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range successfulResults(resp) {
		for _, v := range res.Violations {
			if _, err := stmt.ExecContext(ctx, id, string(res.Engine), v.RuleID, v.Criterion, string(v.Level), string(v.Impact)); err != nil {
				return "", fmt.Errorf("failed to save violation: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit audit: %w", err)
	}
	return id, nil
}

func successfulResults(resp *model.Response) []*model.AuditResult {
	if resp.Audit != nil {
		return []*model.AuditResult{resp.Audit}
	}
	var out []*model.AuditResult
	for _, r := range resp.Comparative.SuccessfulRuns() {
		out = append(out, r.Result)
	}
	return out
}

func impactSummary(resp *model.Response) map[string]int {
	sum := make(map[string]int, len(model.Impacts))
	for _, i := range model.Impacts {
		sum[string(i)] = 0
	}
	for _, res := range successfulResults(resp) {
		for impact, n := range res.ViolationsByImpact {
			sum[string(impact)] += n
		}
	}
	return sum
}

// Get retrieves an audit by id and checks its digest.
func (adb *AuditDB) Get(ctx context.Context, id string) (*model.Response, error) {
	var body, digest string
	err := adb.db.QueryRowContext(ctx, `SELECT response_json, digest FROM audits WHERE id = ?`, id).Scan(&body, &digest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit: %w", err)
	}
	if Digest([]byte(body)) != digest {
		return nil, fmt.Errorf("%w: %s", ErrCorrupted, id)
	}

	var resp model.Response
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse audit: %w", err)
	}
	return &resp, nil
}

// AuditMetadata contains summary information about a stored audit.
// It is used for listings without loading the full response.
type AuditMetadata struct {
	ID            string         `json:"id"`
	URL           string         `json:"url"`
	Engine        string         `json:"engine"`
	Timestamp     time.Time      `json:"timestamp"`
	Score         int            `json:"score"`
	Violations    int            `json:"violations"`
	ImpactSummary map[string]int `json:"impactSummary"`
	Digest        string         `json:"digest"`
}

const metadataColumns = `id, url, engine, timestamp, score, violations, impact_summary, digest`

// History returns the audits of url, newest first. limit <= 0 means no limit.
func (adb *AuditDB) History(ctx context.Context, url string, limit int) ([]AuditMetadata, error) {
	query := `SELECT ` + metadataColumns + ` FROM audits WHERE url = ? ORDER BY timestamp DESC, rowid DESC`
	args := []any{url}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return adb.queryMetadata(ctx, query, args...)
}

// Recent returns the latest audits of every URL, newest first.
func (adb *AuditDB) Recent(ctx context.Context, limit int) ([]AuditMetadata, error) {
	query := `SELECT ` + metadataColumns + ` FROM audits ORDER BY timestamp DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return adb.queryMetadata(ctx, query, args...)
}

func (adb *AuditDB) queryMetadata(ctx context.Context, query string, args ...any) ([]AuditMetadata, error) {
	rows, err := adb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audits: %w", err)
	}
	defer rows.Close()

	results := []AuditMetadata{}
	for rows.Next() {
		var meta AuditMetadata
		var timestamp string
		var impactJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.URL, &meta.Engine, &timestamp, &meta.Score, &meta.Violations, &impactJSON, &meta.Digest); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.Timestamp = parseTimestamp(timestamp)

		meta.ImpactSummary = make(map[string]int)
		if impactJSON.Valid && impactJSON.String != "" {
			if err := json.Unmarshal([]byte(impactJSON.String), &meta.ImpactSummary); err != nil {
				meta.ImpactSummary = make(map[string]int)
			}
		}
		results = append(results, meta)
	}
	return results, rows.Err()
}

// ListURLs returns every audited URL in alphabetical order.
func (adb *AuditDB) ListURLs(ctx context.Context) ([]string, error) {
	rows, err := adb.db.QueryContext(ctx, `SELECT DISTINCT url FROM audits ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// CriterionCount is how often a criterion was violated.
type CriterionCount struct {
	Criterion string `json:"criterion"`
	Level     string `json:"level"`
	Count     int    `json:"count"`
}

// TopCriteria returns the most violated criteria across the audits of url.
func (adb *AuditDB) TopCriteria(ctx context.Context, url string, limit int) ([]CriterionCount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := adb.db.QueryContext(ctx, `
	SELECT v.criterion, v.level, COUNT(*) AS n
	FROM audit_violations v JOIN audits a ON a.id = v.audit_id
	WHERE a.url = ?
	GROUP BY v.criterion, v.level
	ORDER BY n DESC, v.criterion
	LIMIT ?
	`, url, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query criteria: %w", err)
	}
	defer rows.Close()

	var out []CriterionCount
	for rows.Next() {
		var c CriterionCount
		if err := rows.Scan(&c.Criterion, &c.Level, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan criterion: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// EngineRunsSince returns the number of engine runs stored since the given
// time. A comparative audit counts one run per engine.
func (adb *AuditDB) EngineRunsSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := adb.db.QueryRowContext(ctx, `
	SELECT COALESCE(SUM(CASE WHEN engine = ? THEN ? ELSE 1 END), 0)
	FROM audits WHERE timestamp >= ?
	`, string(model.SelectAll), len(model.Engines), since.UTC().Format(tsLayout)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count engine runs: %w", err)
	}
	return n, nil
}

// ScoreDelta returns the score change between the two newest entries of a
// history as returned by History. ok is false with fewer than two entries.
func ScoreDelta(history []AuditMetadata) (delta int, ok bool) {
	if len(history) < 2 {
		return 0, false
	}
	return history[0].Score - history[1].Score, true
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	tsLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, it returns the zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
