package docstore

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validName(name string) bool {
	return namePattern.MatchString(name)
}

type dialect struct {
	driver string
	schema []string
	// fieldEquals returns a predicate comparing a top-level body field with
	// one bind parameter.
	fieldEquals func(key string) string
	boolText    func(v bool) string
}

var postgresDialect = dialect{
	driver: "postgres",
	schema: []string{
		`
		CREATE TABLE IF NOT EXISTS documents (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			collection TEXT NOT NULL,
			body JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		`,
		`
		CREATE INDEX IF NOT EXISTS documents_collection_seq_idx
			ON documents (collection, seq);
		`,
	},
	fieldEquals: func(key string) string {
		return "body ->> '" + key + "' = ?"
	},
	boolText: strconv.FormatBool,
}

var sqliteDialect = dialect{
	driver: "sqlite",
	schema: []string{
		`
		CREATE TABLE IF NOT EXISTS documents (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			collection TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		`,
		`
		CREATE INDEX IF NOT EXISTS documents_collection_seq_idx
			ON documents (collection, seq);
		`,
	},
	fieldEquals: func(key string) string {
		return "CAST(json_extract(body, '$." + key + "') AS TEXT) = ?"
	},
	// json_extract yields 1/0 for JSON booleans.
	boolText: func(v bool) string {
		if v {
			return "1"
		}
		return "0"
	},
}

// parseURL maps a DATABASE_URL onto a dialect and a driver DSN.
func parseURL(raw string) (dialect, string, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return postgresDialect, raw, nil
	case raw == "sqlite::memory:":
		return sqliteDialect, ":memory:", nil
	case strings.HasPrefix(raw, "sqlite://"):
		path := strings.TrimPrefix(raw, "sqlite://")
		if path == "" {
			return dialect{}, "", fmt.Errorf("docstore: sqlite url has no path")
		}
		return sqliteDialect, path, nil
	case strings.HasPrefix(raw, "file:"):
		return sqliteDialect, raw, nil
	default:
		return dialect{}, "", fmt.Errorf("docstore: unsupported database url scheme")
	}
}

func isMemoryDSN(d dialect, dsn string) bool {
	if d.driver != sqliteDialect.driver {
		return false
	}
	return dsn == ":memory:" || strings.HasPrefix(dsn, "file::memory:") || strings.Contains(dsn, "mode=memory")
}

// filterText renders a filter value the way the dialect's field predicate
// renders the stored JSON value.
func (d dialect) filterText(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return d.boolText(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	default:
		return "", fmt.Errorf("unsupported filter value type %T", value)
	}
}
