package datastore

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rail-defect-map/pkg/dataset"
)

// SQLConfig holds connection details for SQL-backed sources. Driver names
// follow database/sql registrations: "sqlite", "genji", "duckdb" (behind
// the duckdb build tag) or "pgx" (PostgreSQL).
type SQLConfig struct {
	Driver  string
	Conn    string // raw DSN for network drivers; overrides the parts below
	Host    string
	Port    int
	User    string
	Pass    string
	Name    string
	SSLMode string
}

// dsn assembles the driver-specific connection string. path is the file
// path for embedded engines.
func (c SQLConfig) dsn(path string) string {
	switch normalizeDriver(c.Driver) {
	case "pgx":
		if strings.TrimSpace(c.Conn) != "" {
			return c.Conn
		}
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "prefer"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			c.User, c.Pass, c.Host, c.Port, c.Name, sslMode)
	default:
		// sqlite / genji / duckdb: the file is created on first open,
		// but for a read-only loader an absent file is a load error
		// caught by the first query.
		return path
	}
}

func normalizeDriver(driver string) string {
	return strings.ToLower(strings.TrimSpace(driver))
}

// openSQL opens the connection and applies the pooling discipline the
// embedded engines need: one physical connection, never recycled, so no
// two statements ever race on the same file.
func openSQL(cfg SQLConfig, path string) (*sql.DB, error) {
	driver := normalizeDriver(cfg.Driver)
	switch driver {
	case "sqlite", "genji", "duckdb", "pgx":
	case "":
		return nil, fmt.Errorf("sql source: driver not set")
	default:
		return nil, fmt.Errorf("sql source: unsupported driver %q", cfg.Driver)
	}

	db, err := sql.Open(driver, cfg.dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	switch driver {
	case "sqlite", "genji", "duckdb":
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	default:
		db.SetConnMaxIdleTime(5 * time.Minute)
	}
	return db, nil
}

// loadSQL reads an entire table into a dataset, preserving the table's
// column order as the schema. Everything is stringified on the way in so
// the rest of the dashboard sees the same shape regardless of source.
func loadSQL(src Source) (dataset.Dataset, error) {
	if strings.TrimSpace(src.Table) == "" {
		return dataset.Dataset{}, fmt.Errorf("sql source: table not set")
	}
	if !validTableName(src.Table) {
		return dataset.Dataset{}, fmt.Errorf("sql source: invalid table name %q", src.Table)
	}

	db, err := openSQL(src.SQL, src.Path)
	if err != nil {
		return dataset.Dataset{}, err
	}
	defer db.Close()

	rows, err := db.Query(`SELECT * FROM ` + quoteIdent(src.Table))
	if err != nil {
		return dataset.Dataset{}, fmt.Errorf("query %s: %w", src.Table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return dataset.Dataset{}, fmt.Errorf("columns of %s: %w", src.Table, err)
	}

	var out [][]string
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return dataset.Dataset{}, fmt.Errorf("scan %s: %w", src.Table, err)
		}
		record := make([]string, len(columns))
		for i, v := range values {
			record[i] = cellString(v)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return dataset.Dataset{}, fmt.Errorf("read %s: %w", src.Table, err)
	}

	return dataset.Dataset{Columns: append([]string(nil), columns...), Rows: out}, nil
}

// cellString renders one scanned value the way the CSV loader would have.
// NULL becomes the empty cell, which downstream treats as a missing value.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// validTableName accepts plain identifiers only. Table names come from
// operator configuration, not user input, but keeping the check here means
// nobody has to remember that when wiring a new deployment.
func validTableName(name string) bool {
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return name != ""
}

func quoteIdent(name string) string { return `"` + name + `"` }
