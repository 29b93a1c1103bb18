// Package sqlitearchive stores an exported event collection in a SQLite
// database instead of a record-stream file. An archive holds exactly one
// collection plus its optional manifest; storing replaces the previous
// content, loading reconstructs a queryable Manager.
//
// The full event is kept as its JSON wire form next to a few indexed
// scalar columns, so a round trip through the archive is lossless.
package sqlitearchive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite" // driver import

	"github.com/tascord/spanner/capture"
)

var (
	// ErrEmptyPath is returned when Open is given an empty database path.
	ErrEmptyPath = errors.New("empty archive path supplied")

	// ErrCorruptArchive is returned when the stored manifest disagrees
	// with the event rows actually present, or a row cannot be decoded.
	ErrCorruptArchive = errors.New("archive content is corrupt")
)

const (
	logMsgArchiveStored = "event collection archived"
	logMsgArchiveLoaded = "event collection loaded from archive"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

const schema = `
CREATE TABLE IF NOT EXISTS events (
	sequence_number INTEGER NOT NULL,
	occurred_at     TEXT    NOT NULL,
	level           TEXT    NOT NULL,
	target          TEXT    NOT NULL,
	message         TEXT    NOT NULL,
	payload         BLOB    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_sequence ON events (sequence_number);
CREATE TABLE IF NOT EXISTS manifest (
	id      INTEGER PRIMARY KEY CHECK (id = 1),
	payload BLOB NOT NULL
);
`

// Archive is a SQLite-backed container for one exported event collection.
type Archive struct {
	db     *sql.DB
	logger capture.Logger
}

// Option defines a functional option for configuring an Archive.
type Option func(*Archive) error

// WithLogger sets the logger for archive diagnostics.
func WithLogger(logger capture.Logger) Option {
	return func(a *Archive) error {
		a.logger = logger
		return nil
	}
}

// Open opens or creates an archive database at the given path and ensures
// its schema exists.
func Open(path string, options ...Option) (*Archive, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening archive database: %w", err)
	}

	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating archive schema: %w", err)
	}

	archive := &Archive{
		db:     db,
		logger: noop{},
	}

	for _, option := range options {
		if err = option(archive); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return archive, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Store replaces the archive content with the given events and optional
// manifest, atomically. A manifest whose EventCount disagrees with the
// events is rejected before anything is written.
func (a *Archive) Store(ctx context.Context, events capture.Events, manifest *capture.ExportManifest) error {
	if manifest != nil && manifest.EventCount != len(events) {
		return fmt.Errorf("%w: manifest declares %d, storing %d",
			ErrCorruptArchive, manifest.EventCount, len(events))
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning archive transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("clearing archived events: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM manifest`); err != nil {
		return fmt.Errorf("clearing archived manifest: %w", err)
	}

	insert, err := tx.PrepareContext(ctx,
		`INSERT INTO events (sequence_number, occurred_at, level, target, message, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing event insert: %w", err)
	}
	defer func() { _ = insert.Close() }()

	for _, event := range events {
		payload, marshalErr := jsonAPI.Marshal(event)
		if marshalErr != nil {
			return fmt.Errorf("encoding event %d: %w", event.SequenceNumber, marshalErr)
		}

		_, err = insert.ExecContext(ctx,
			int64(event.SequenceNumber),
			event.Timestamp.Format(time.RFC3339Nano),
			event.Level.String(),
			event.Target,
			event.Message,
			payload,
		)
		if err != nil {
			return fmt.Errorf("inserting event %d: %w", event.SequenceNumber, err)
		}
	}

	if manifest != nil {
		payload, marshalErr := jsonAPI.Marshal(manifest)
		if marshalErr != nil {
			return fmt.Errorf("encoding manifest: %w", marshalErr)
		}

		if _, err = tx.ExecContext(ctx, `INSERT INTO manifest (id, payload) VALUES (1, ?)`, payload); err != nil {
			return fmt.Errorf("inserting manifest: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing archive transaction: %w", err)
	}

	a.logger.Info(logMsgArchiveStored, "event_count", len(events))

	return nil
}

// Load reads the archived collection back as a Manager. A stored manifest
// whose declared count disagrees with the rows present fails the load.
func (a *Archive) Load(ctx context.Context) (*capture.Manager, error) {
	manifest, err := a.loadManifest(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT payload FROM events ORDER BY sequence_number ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying archived events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events capture.Events
	for rows.Next() {
		var payload []byte
		if err = rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning archived event: %w", err)
		}

		var event capture.Event
		if err = jsonAPI.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("%w: undecodable event row: %v", ErrCorruptArchive, err)
		}

		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating archived events: %w", err)
	}

	if manifest != nil && manifest.EventCount != len(events) {
		return nil, fmt.Errorf("%w: manifest declares %d events, found %d",
			ErrCorruptArchive, manifest.EventCount, len(events))
	}

	a.logger.Info(logMsgArchiveLoaded, "event_count", len(events))

	return capture.NewManager(events, manifest), nil
}

func (a *Archive) loadManifest(ctx context.Context) (*capture.ExportManifest, error) {
	var payload []byte

	err := a.db.QueryRowContext(ctx, `SELECT payload FROM manifest WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying archived manifest: %w", err)
	}

	var manifest capture.ExportManifest
	if err = jsonAPI.Unmarshal(payload, &manifest); err != nil {
		return nil, fmt.Errorf("%w: undecodable manifest: %v", ErrCorruptArchive, err)
	}

	return &manifest, nil
}

type noop struct{}

func (noop) Debug(string, ...any) {}
func (noop) Info(string, ...any)  {}
func (noop) Warn(string, ...any)  {}
func (noop) Error(string, ...any) {}
