package document

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lumascope/entgraph/internal/entity"
	"github.com/lumascope/entgraph/internal/record"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on entities.type
const currentSchemaVersion = 1

// Store provides durable storage for serialized documents.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path, applying
// required pragmas and migrations. Idempotent.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	slog.Debug("document store opened", "path", path)
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return runMigrations(db)
}

func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 adds the type index for databases created before v1.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(type)`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// Save writes the document's full serialized form: the document row plus
// one entity row per top-level item and connection, replacing any
// previous rows for the same document uuid.
func (s *Store) Save(ctx context.Context, doc *Document) error {
	rec := doc.WriteToRecord()
	docUUID, err := rec.UUID()
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	modified, err := rec.Modified()
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	title, _ := rec[FieldTitle].(string)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (uuid, title, modified) VALUES (?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET title = excluded.title, modified = excluded.modified
	`, docUUID, title, modified.UTC().Format(record.TimeFormat)); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE document_uuid = ?`, docUUID); err != nil {
		return fmt.Errorf("save document: %w", err)
	}

	insert := func(kind string, elems []any) error {
		for i, elem := range elems {
			entityRec, ok := record.AsRecord(elem)
			if !ok {
				return &record.ReadError{Key: kind, Message: fmt.Sprintf("expected nested record, got %T", elem)}
			}
			entityUUID, err := entityRec.UUID()
			if err != nil {
				return err
			}
			entityType, err := entityRec.Type()
			if err != nil {
				return err
			}
			blob, err := record.MarshalCanonical(entityRec)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO entities (document_uuid, kind, position, uuid, type, record)
				VALUES (?, ?, ?, ?, ?, ?)
			`, docUUID, kind, i, entityUUID, entityType, string(blob)); err != nil {
				return err
			}
		}
		return nil
	}
	items, _ := rec[FieldItems].([]any)
	if err := insert("item", items); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	connections, _ := rec[FieldConnections].([]any)
	if err := insert("connection", connections); err != nil {
		return fmt.Errorf("save document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	slog.Debug("document saved", "uuid", docUUID, "items", len(items), "connections", len(connections))
	return nil
}

// LoadRecord reassembles a document's serialized record from its rows.
func (s *Store) LoadRecord(ctx context.Context, id uuid.UUID) (record.Record, error) {
	var title, modified string
	err := s.db.QueryRowContext(ctx,
		`SELECT title, modified FROM documents WHERE uuid = ?`, id.String(),
	).Scan(&title, &modified)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("load document: %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}

	rec := record.Record{
		record.KeyType:     DocumentType,
		record.KeyUUID:     id.String(),
		record.KeyModified: modified,
		FieldTitle:         title,
	}
	for _, kind := range []string{"item", "connection"} {
		elems, err := s.loadEntities(ctx, id, kind)
		if err != nil {
			return nil, err
		}
		switch kind {
		case "item":
			rec[FieldItems] = elems
		case "connection":
			rec[FieldConnections] = elems
		}
	}
	return rec, nil
}

func (s *Store) loadEntities(ctx context.Context, id uuid.UUID, kind string) ([]any, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record FROM entities
		WHERE document_uuid = ? AND kind = ?
		ORDER BY position
	`, id.String(), kind)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	defer rows.Close()

	elems := []any{}
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("load document: %w", err)
		}
		entityRec, err := record.UnmarshalRecord([]byte(blob))
		if err != nil {
			return nil, err
		}
		elems = append(elems, map[string]any(entityRec))
	}
	return elems, rows.Err()
}

// Load reconstructs a live document into the given entity context.
func (s *Store) Load(ctx context.Context, ectx *entity.Context, id uuid.UUID) (*Document, error) {
	rec, err := s.LoadRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	return Read(ectx, rec)
}

// Info describes a stored document.
type Info struct {
	UUID     string `json:"uuid" yaml:"uuid"`
	Title    string `json:"title" yaml:"title"`
	Modified string `json:"modified" yaml:"modified"`
	Items    int    `json:"items" yaml:"items"`
}

// List returns the stored documents ordered by modification time.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.uuid, d.title, d.modified,
		       (SELECT COUNT(*) FROM entities e WHERE e.document_uuid = d.uuid AND e.kind = 'item')
		FROM documents d
		ORDER BY d.modified DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var info Info
		if err := rows.Scan(&info.UUID, &info.Title, &info.Modified, &info.Items); err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}
