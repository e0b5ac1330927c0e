// Package docstore keeps schema-less JSON documents grouped by collection in a
// single SQL table. Postgres is used in deployments and SQLite for local runs.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const defaultTimeout = 5 * time.Second

var tracer = otel.Tracer("github.com/TheRealTwizzy/poker-api/internal/docstore")

// Config describes how to reach the backing database.
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// Timeout bounds every single store operation.
	Timeout time.Duration
}

// Store is a document store backed by a SQL database. A nil *Store is the
// unconfigured store and fails every operation with ErrUnavailable.
type Store struct {
	db      *sqlx.DB
	dialect dialect
	timeout time.Duration
	now     func() time.Time
	newID   func() string
}

// Open connects to cfg.URL, verifies the connection and ensures the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	d, dsn, err := parseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("docstore: open %s: %w", d.driver, err)
	}
	if d.driver == sqliteDialect.driver {
		// In-memory databases live on a single connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
	}
	// Recycling the only connection of an in-memory database drops its data.
	if cfg.ConnMaxLifetime > 0 && !isMemoryDSN(d, dsn) {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	s := &Store{
		db:      db,
		dialect: d,
		timeout: cfg.Timeout,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.New().String() },
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}

	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("docstore: ensure schema: %w", err)
	}
	return s, nil
}

// Driver reports the database driver name, or "" for the unconfigured store.
func (s *Store) Driver() string {
	if s == nil {
		return ""
	}
	return s.dialect.driver
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("docstore: ping %s: %w", s.dialect.driver, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// CreateDocument stores fields in collection and returns the new id. The
// stored body gets created_at and updated_at timestamps.
func (s *Store) CreateDocument(ctx context.Context, collection string, fields map[string]any) (id string, err error) {
	if s == nil || s.db == nil {
		return "", ErrUnavailable
	}
	ctx, span := s.startSpan(ctx, "docstore.CreateDocument", collection)
	defer func() { endSpan(span, err) }()

	if !validName(collection) {
		return "", &WriteError{Collection: collection, Err: errInvalidName}
	}

	now := s.now()
	body := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		body[k] = v
	}
	body["created_at"] = now.Format(time.RFC3339Nano)
	body["updated_at"] = now.Format(time.RFC3339Nano)

	payload, err := json.Marshal(body)
	if err != nil {
		return "", &WriteError{Collection: collection, Err: err}
	}

	id = s.newID()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO documents (id, collection, body, created_at)
		VALUES (?, ?, ?, ?)
	`), id, collection, string(payload), now)
	if err != nil {
		return "", &WriteError{Collection: collection, Err: err}
	}
	return id, nil
}

type documentRow struct {
	ID   string `db:"id"`
	Body []byte `db:"body"`
}

// GetDocuments returns up to limit documents of collection whose top-level
// fields equal every entry of filter, in insertion order. A limit <= 0
// returns all matches. No match is an empty result, not an error.
func (s *Store) GetDocuments(ctx context.Context, collection string, filter map[string]any, limit int) (docs []Document, err error) {
	if s == nil || s.db == nil {
		return nil, ErrUnavailable
	}
	ctx, span := s.startSpan(ctx, "docstore.GetDocuments", collection)
	defer func() { endSpan(span, err) }()

	if !validName(collection) {
		return nil, &ReadError{Collection: collection, Err: errInvalidName}
	}

	var query strings.Builder
	query.WriteString("SELECT id, body FROM documents WHERE collection = ?")
	args := []any{collection}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !validName(key) {
			return nil, &ReadError{Collection: collection, Err: fmt.Errorf("filter key %q: %w", key, errInvalidName)}
		}
		value, err := s.dialect.filterText(filter[key])
		if err != nil {
			return nil, &ReadError{Collection: collection, Err: fmt.Errorf("filter key %q: %w", key, err)}
		}
		query.WriteString(" AND ")
		query.WriteString(s.dialect.fieldEquals(key))
		args = append(args, value)
	}
	query.WriteString(" ORDER BY seq")
	if limit > 0 {
		query.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query.String()), args...); err != nil {
		return nil, &ReadError{Collection: collection, Err: err}
	}

	docs = make([]Document, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeDocument(row.ID, row.Body)
		if err != nil {
			return nil, &ReadError{Collection: collection, Err: fmt.Errorf("decode %s: %w", row.ID, err)}
		}
		docs = append(docs, doc)
	}
	span.SetAttributes(attribute.Int("docstore.results", len(docs)))
	return docs, nil
}

// ListCollections returns the names of all non-empty collections, sorted.
func (s *Store) ListCollections(ctx context.Context) (names []string, err error) {
	if s == nil || s.db == nil {
		return nil, ErrUnavailable
	}
	ctx, span := s.startSpan(ctx, "docstore.ListCollections", "")
	defer func() { endSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	names = []string{}
	if err := s.db.SelectContext(ctx, &names, `
		SELECT DISTINCT collection
		FROM documents
		ORDER BY collection
	`); err != nil {
		return nil, &ReadError{Err: err}
	}
	return names, nil
}

func (s *Store) startSpan(ctx context.Context, name string, collection string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("db.system", s.dialect.driver)}
	if collection != "" {
		attrs = append(attrs, attribute.String("docstore.collection", collection))
	}
	return tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
