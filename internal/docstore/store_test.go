package docstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"
)

// openTestStore opens a fresh in-memory SQLite store.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{URL: "sqlite::memory:", Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNilStoreIsUnavailable(t *testing.T) {
	var s *Store
	ctx := context.Background()

	if _, err := s.CreateDocument(ctx, "purchase", map[string]any{"a": 1}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("CreateDocument: expected ErrUnavailable, got %v", err)
	}
	if _, err := s.GetDocuments(ctx, "leaderboard", nil, 10); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("GetDocuments: expected ErrUnavailable, got %v", err)
	}
	if _, err := s.ListCollections(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("ListCollections: expected ErrUnavailable, got %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Ping: expected ErrUnavailable, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.Driver() != "" {
		t.Fatalf("expected empty driver, got %q", s.Driver())
	}
}

func TestCreateAndGetDocuments(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreateDocument(ctx, "purchase", map[string]any{"username": "nova", "package_id": "boost"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	docs, err := s.GetDocuments(ctx, "purchase", nil, 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	doc := docs[0]
	if doc.ID() != id {
		t.Fatalf("expected id %q, got %q", id, doc.ID())
	}
	if doc["username"] != "nova" || doc["package_id"] != "boost" {
		t.Fatalf("unexpected body: %v", doc)
	}
	if _, ok := doc["created_at"].(string); !ok {
		t.Fatalf("expected created_at timestamp, got %v", doc["created_at"])
	}
	if _, ok := doc["updated_at"].(string); !ok {
		t.Fatalf("expected updated_at timestamp, got %v", doc["updated_at"])
	}
}

func TestGetDocumentsEmptyIsNotError(t *testing.T) {
	s := openTestStore(t)
	docs, err := s.GetDocuments(context.Background(), "leaderboard", nil, 50)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no documents, got %d", len(docs))
	}
}

func TestGetDocumentsFilterAndLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seed := []map[string]any{
		{"username": "nova", "chips": 125000, "vip": true},
		{"username": "blaze", "chips": 98000, "vip": false},
		{"username": "nova", "chips": 1, "vip": false},
		{"username": "astra", "chips": 76500, "vip": true},
	}
	for _, fields := range seed {
		if _, err := s.CreateDocument(ctx, "profile", fields); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if _, err := s.CreateDocument(ctx, "leaderboard", map[string]any{"username": "nova"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		name   string
		filter map[string]any
		limit  int
		want   []string
	}{
		{"all in insertion order", nil, 0, []string{"nova", "blaze", "nova", "astra"}},
		{"limit", nil, 2, []string{"nova", "blaze"}},
		{"string match", map[string]any{"username": "nova"}, 0, []string{"nova", "nova"}},
		{"string match limited", map[string]any{"username": "nova"}, 1, []string{"nova"}},
		{"int match", map[string]any{"chips": 98000}, 0, []string{"blaze"}},
		{"bool match", map[string]any{"vip": true}, 0, []string{"nova", "astra"}},
		{"combined", map[string]any{"username": "nova", "vip": false}, 0, []string{"nova"}},
		{"no match", map[string]any{"username": "echo"}, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := s.GetDocuments(ctx, "profile", tt.filter, tt.limit)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			var got []string
			for _, doc := range docs {
				name, _ := doc.String("username", "")
				got = append(got, name)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetDocumentsKeepsNumbersExact(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if _, err := s.CreateDocument(ctx, "leaderboard", map[string]any{"chips": int64(9007199254740993)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	docs, err := s.GetDocuments(ctx, "leaderboard", nil, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	chips, err := docs[0].Int("chips", 0)
	if err != nil {
		t.Fatalf("int: %v", err)
	}
	if chips != 9007199254740993 {
		t.Fatalf("expected exact integer, got %d", chips)
	}
}

func TestListCollections(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	names, err := s.ListCollections(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected no collections, got %v", names)
	}

	for _, c := range []string{"purchase", "leaderboard", "purchase"} {
		if _, err := s.CreateDocument(ctx, c, map[string]any{"k": "v"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	names, err = s.ListCollections(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"leaderboard", "purchase"}) {
		t.Fatalf("unexpected collections: %v", names)
	}
}

func TestInvalidNamesAreRejected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateDocument(ctx, "bad name", map[string]any{})
	var werr *WriteError
	if !errors.As(err, &werr) {
		t.Fatalf("expected WriteError, got %v", err)
	}

	_, err = s.GetDocuments(ctx, "profile", map[string]any{"x') OR 1=1 --": "a"}, 1)
	var rerr *ReadError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected ReadError, got %v", err)
	}

	_, err = s.GetDocuments(ctx, "profile", map[string]any{"tags": []string{"a"}}, 1)
	if !errors.As(err, &rerr) {
		t.Fatalf("expected ReadError for unsupported filter value, got %v", err)
	}
}

func TestWriteErrorWrapsDriverError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateDocument(ctx, "purchase", map[string]any{"bad": make(chan int)})
	var werr *WriteError
	if !errors.As(err, &werr) {
		t.Fatalf("expected WriteError, got %v", err)
	}
	if werr.Collection != "purchase" {
		t.Fatalf("unexpected collection %q", werr.Collection)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	_, err = s.CreateDocument(ctx, "purchase", map[string]any{"a": 1})
	if !errors.As(err, &werr) || werr.Unwrap() == nil {
		t.Fatalf("expected wrapped WriteError after close, got %v", err)
	}
	_, err = s.GetDocuments(ctx, "purchase", nil, 1)
	var rerr *ReadError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected ReadError after close, got %v", err)
	}
}

func TestDeterministicIDsAndClock(t *testing.T) {
	s := openTestStore(t)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	n := 0
	s.now = func() time.Time { return fixed }
	s.newID = func() string { n++; return fmt.Sprintf("doc-%d", n) }

	id, err := s.CreateDocument(context.Background(), "purchase", map[string]any{"username": "sol"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != "doc-1" {
		t.Fatalf("expected doc-1, got %q", id)
	}
	docs, err := s.GetDocuments(context.Background(), "purchase", map[string]any{"username": "sol"}, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if docs[0]["created_at"] != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected created_at %v", docs[0]["created_at"])
	}
}

func TestMemoryStoreOutlivesConnMaxLifetime(t *testing.T) {
	s, err := Open(context.Background(), Config{URL: "sqlite::memory:", ConnMaxLifetime: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	if _, err := s.CreateDocument(ctx, "leaderboard", map[string]any{"username": "nova", "chips": 1}); err != nil {
		t.Fatalf("create: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	docs, err := s.GetDocuments(ctx, "leaderboard", nil, 0)
	if err != nil {
		t.Fatalf("get after lifetime elapsed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected stored document to survive, got %d", len(docs))
	}
}

func TestIsMemoryDSN(t *testing.T) {
	tests := []struct {
		d    dialect
		dsn  string
		want bool
	}{
		{sqliteDialect, ":memory:", true},
		{sqliteDialect, "file::memory:?cache=shared", true},
		{sqliteDialect, "file:poker?mode=memory", true},
		{sqliteDialect, "/var/lib/poker.db", false},
		{postgresDialect, "postgres://localhost/poker", false},
	}
	for _, tt := range tests {
		if got := isMemoryDSN(tt.d, tt.dsn); got != tt.want {
			t.Fatalf("isMemoryDSN(%s, %q) = %v, want %v", tt.d.driver, tt.dsn, got, tt.want)
		}
	}
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		raw     string
		driver  string
		dsn     string
		wantErr bool
	}{
		{"postgres://u:p@localhost:5432/poker?sslmode=disable", "postgres", "postgres://u:p@localhost:5432/poker?sslmode=disable", false},
		{"postgresql://localhost/poker", "postgres", "postgresql://localhost/poker", false},
		{"sqlite::memory:", "sqlite", ":memory:", false},
		{"sqlite:///var/lib/poker.db", "sqlite", "/var/lib/poker.db", false},
		{"file:poker.db?cache=shared", "sqlite", "file:poker.db?cache=shared", false},
		{"sqlite://", "", "", true},
		{"mongodb://localhost", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			d, dsn, err := parseURL(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.driver != tt.driver || dsn != tt.dsn {
				t.Fatalf("got (%s, %s), want (%s, %s)", d.driver, dsn, tt.driver, tt.dsn)
			}
		})
	}
}

func TestPostgresFieldPredicate(t *testing.T) {
	if got := postgresDialect.fieldEquals("username"); got != "body ->> 'username' = ?" {
		t.Fatalf("unexpected predicate %q", got)
	}
	text, err := postgresDialect.filterText(true)
	if err != nil || text != "true" {
		t.Fatalf("unexpected bool text %q (%v)", text, err)
	}
	text, err = sqliteDialect.filterText(true)
	if err != nil || text != "1" {
		t.Fatalf("unexpected sqlite bool text %q (%v)", text, err)
	}
}
