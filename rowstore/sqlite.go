package rowstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/caredata-io/school-health-module-encryption/types"
)

// identifierPattern restricts table and column names interpolated into
// SQL. Values always go through placeholders.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DefaultKeyColumn is the primary-key column assumed when none is
// configured.
const DefaultKeyColumn = "id"

// SQLiteStore is a RowStore and SchemaProvider backed by a SQLite
// database file.
type SQLiteStore struct {
	db        *sql.DB
	keyColumn string
	logger    zerolog.Logger
}

// NewSQLiteStore opens (or creates) the database at path. keyColumn
// names the primary-key column shared by all tables; empty selects
// DefaultKeyColumn.
func NewSQLiteStore(path, keyColumn string) (*SQLiteStore, error) {
	if keyColumn == "" {
		keyColumn = DefaultKeyColumn
	}
	if !identifierPattern.MatchString(keyColumn) {
		return nil, &types.ValidationError{Reason: fmt.Sprintf("invalid key column name: %s", keyColumn)}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer; modernc sqlite is not safe for concurrent writes
	// over one connection pool.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return &SQLiteStore{
		db:        db,
		keyColumn: keyColumn,
		logger:    log.With().Str("component", "rowstore-sqlite").Logger(),
	}, nil
}

func validateIdentifiers(names ...string) error {
	for _, name := range names {
		if !identifierPattern.MatchString(name) {
			return &types.ValidationError{Reason: fmt.Sprintf("invalid identifier: %s", name)}
		}
	}
	return nil
}

// SelectWhereColumnNotNull returns (pk, value) pairs for rows holding
// a non-null value in the column, ordered by primary key.
func (s *SQLiteStore) SelectWhereColumnNotNull(ctx context.Context, table, column string) ([]types.Row, error) {
	if err := validateIdentifiers(table, column); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT %s, %s FROM %s WHERE %s IS NOT NULL ORDER BY %s",
		s.keyColumn, column, table, column, s.keyColumn,
	)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select rows: %w", err)
	}
	defer rows.Close()

	var out []types.Row
	for rows.Next() {
		var row types.Row
		if err := rows.Scan(&row.Key, &row.Value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return out, nil
}

// UpdateColumnByKey sets the column for one row; nil stores NULL
func (s *SQLiteStore) UpdateColumnByKey(ctx context.Context, table, column, key string, value *string) error {
	if err := validateIdentifiers(table, column); err != nil {
		return err
	}

	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?", table, column, s.keyColumn)
	result, err := s.db.ExecContext(ctx, query, value, key)
	if err != nil {
		return fmt.Errorf("failed to update row: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return types.ErrRecordNotFound
	}
	return nil
}

// Tables returns user table names, sorted
func (s *SQLiteStore) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Columns returns the columns of a table via table_info
func (s *SQLiteStore) Columns(ctx context.Context, table string) ([]types.ColumnInfo, error) {
	if err := validateIdentifiers(table); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to read table info: %w", err)
	}
	defer rows.Close()

	var columns []types.ColumnInfo
	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}
		columns = append(columns, types.ColumnInfo{Name: name, Type: colType})
	}
	if len(columns) == 0 {
		return nil, types.ErrColumnNotFound
	}
	return columns, rows.Err()
}

// Close releases the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
