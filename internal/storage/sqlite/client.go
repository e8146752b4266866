package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/fieldmate/backend/internal/domain"
	"github.com/fieldmate/backend/internal/storage/models"
	"github.com/fieldmate/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS gap_records (
		id TEXT PRIMARY KEY,
		query_fingerprint TEXT UNIQUE NOT NULL,
		query_text TEXT NOT NULL,
		vendor TEXT,
		equipment TEXT,
		symptom TEXT,
		frequency INTEGER NOT NULL DEFAULT 1,
		priority INTEGER NOT NULL,
		first_seen_at INTEGER NOT NULL,
		last_seen_at INTEGER NOT NULL,
		resolved INTEGER NOT NULL DEFAULT 0,
		resolved_at INTEGER,
		resolution_refs TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_gaps_resolved ON gap_records(resolved);
	CREATE INDEX IF NOT EXISTS idx_gaps_priority ON gap_records(priority);
	CREATE INDEX IF NOT EXISTS idx_gaps_last_seen ON gap_records(last_seen_at);

	CREATE TABLE IF NOT EXISTS request_log (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		channel TEXT,
		query_text TEXT NOT NULL,
		route TEXT NOT NULL,
		coverage_level TEXT NOT NULL,
		confidence REAL,
		item_count INTEGER,
		escalated INTEGER DEFAULT 0,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_requests_user ON request_log(user_id);
	CREATE INDEX IF NOT EXISTS idx_requests_created ON request_log(created_at);
	CREATE INDEX IF NOT EXISTS idx_requests_route ON request_log(route);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// UpsertGap inserts a new gap record or atomically increments the existing
// record for the same fingerprint. A single ON CONFLICT statement, not
// read-then-write, so concurrent writers for one fingerprint cannot lose
// updates or duplicate rows. Returns the stored record and whether it was
// newly created.
func (c *Client) UpsertGap(ctx context.Context, repair domain.RepairRequest) (*models.GapRecord, bool, error) {
	now := time.Now()

	query := `
		INSERT INTO gap_records (
			id, query_fingerprint, query_text, vendor, equipment, symptom,
			frequency, priority, first_seen_at, last_seen_at, resolved
		)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?, 0)
		ON CONFLICT(query_fingerprint) DO UPDATE SET
			frequency = frequency + 1,
			priority = MIN(100, MAX(priority, excluded.priority)),
			last_seen_at = excluded.last_seen_at
		RETURNING id, query_fingerprint, query_text, vendor, equipment, symptom,
			frequency, priority, first_seen_at, last_seen_at, resolved,
			resolved_at, resolution_refs
	`

	row := c.db.QueryRowContext(
		ctx,
		query,
		uuid.New().String(),
		repair.Fingerprint,
		repair.QueryText,
		repair.VendorHint,
		repair.EquipmentHint,
		repair.SymptomHint,
		repair.Priority,
		now.Unix(),
		now.Unix(),
	)

	record, err := scanGapRecord(row)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert gap record: %w", err)
	}

	created := record.Frequency == 1

	logger.Info("Gap recorded",
		zap.String("gap_id", record.ID),
		zap.String("fingerprint", record.QueryFingerprint),
		zap.Int("frequency", record.Frequency),
		zap.Int("priority", record.Priority),
		zap.Bool("created", created),
	)

	return record, created, nil
}

// MarkResolved is idempotent: resolving an already-resolved record changes
// nothing, including resolved_at.
func (c *Client) MarkResolved(ctx context.Context, id string, resolutionRefs []string) error {
	refsJSON, _ := json.Marshal(resolutionRefs)

	query := `
		UPDATE gap_records
		SET resolved = 1, resolved_at = ?, resolution_refs = ?
		WHERE id = ? AND resolved = 0
	`

	result, err := c.db.ExecContext(ctx, query, time.Now().Unix(), string(refsJSON), id)
	if err != nil {
		return fmt.Errorf("failed to mark gap resolved: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected > 0 {
		logger.Info("Gap resolved",
			zap.String("gap_id", id),
			zap.Int("resolution_refs", len(resolutionRefs)),
		)
	}

	return nil
}

// Frequency reports how many times a fingerprint has been recorded; zero for
// unseen fingerprints. Used by the gap detector's priority bonus.
func (c *Client) Frequency(ctx context.Context, fingerprint string) int {
	var frequency int
	err := c.db.QueryRowContext(
		ctx,
		`SELECT frequency FROM gap_records WHERE query_fingerprint = ?`,
		fingerprint,
	).Scan(&frequency)

	if err != nil {
		if err != sql.ErrNoRows {
			logger.Warn("Failed to read gap frequency", zap.Error(err))
		}
		return 0
	}
	return frequency
}

func (c *Client) GetGapByID(ctx context.Context, id string) (*models.GapRecord, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, query_fingerprint, query_text, vendor, equipment, symptom,
			frequency, priority, first_seen_at, last_seen_at, resolved,
			resolved_at, resolution_refs
		FROM gap_records WHERE id = ?
	`, id)

	record, err := scanGapRecord(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get gap record: %w", err)
	}
	return record, nil
}

// ListGaps returns gap records filtered by resolution state, highest
// priority first. A nil filter returns everything.
func (c *Client) ListGaps(ctx context.Context, resolved *bool, limit int) ([]models.GapRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, query_fingerprint, query_text, vendor, equipment, symptom,
			frequency, priority, first_seen_at, last_seen_at, resolved,
			resolved_at, resolution_refs
		FROM gap_records
	`
	args := []interface{}{}

	if resolved != nil {
		query += ` WHERE resolved = ?`
		resolvedInt := 0
		if *resolved {
			resolvedInt = 1
		}
		args = append(args, resolvedInt)
	}

	query += ` ORDER BY priority DESC, last_seen_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list gap records: %w", err)
	}
	defer rows.Close()

	var records []models.GapRecord
	for rows.Next() {
		record, err := scanGapRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gap record: %w", err)
		}
		records = append(records, *record)
	}

	return records, rows.Err()
}

func (c *Client) InsertRequestRecord(record *models.RequestRecord) error {
	query := `
		INSERT INTO request_log (id, user_id, channel, query_text, route,
			coverage_level, confidence, item_count, escalated, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	escalated := 0
	if record.Escalated {
		escalated = 1
	}

	_, err := c.db.Exec(
		query,
		record.ID,
		record.UserID,
		record.Channel,
		record.QueryText,
		record.Route,
		record.CoverageLevel,
		record.Confidence,
		record.ItemCount,
		escalated,
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert request record: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGapRecord(row rowScanner) (*models.GapRecord, error) {
	var record models.GapRecord
	var firstSeen, lastSeen int64
	var resolved int
	var resolvedAt sql.NullInt64
	var refsJSON sql.NullString

	err := row.Scan(
		&record.ID,
		&record.QueryFingerprint,
		&record.QueryText,
		&record.Vendor,
		&record.Equipment,
		&record.Symptom,
		&record.Frequency,
		&record.Priority,
		&firstSeen,
		&lastSeen,
		&resolved,
		&resolvedAt,
		&refsJSON,
	)
	if err != nil {
		return nil, err
	}

	record.FirstSeenAt = time.Unix(firstSeen, 0)
	record.LastSeenAt = time.Unix(lastSeen, 0)
	record.Resolved = resolved == 1
	if resolvedAt.Valid {
		t := time.Unix(resolvedAt.Int64, 0)
		record.ResolvedAt = &t
	}
	if refsJSON.Valid && refsJSON.String != "" {
		json.Unmarshal([]byte(refsJSON.String), &record.ResolutionRefs)
	}

	return &record, nil
}
