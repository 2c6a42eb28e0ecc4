// Package sqlite provides the durable chat store backed by an
// embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/deepread-labs/deepread-core/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/deepread-labs/deepread-core/internal/core/domain"
	"github.com/deepread-labs/deepread-core/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ChatStore = (*Store)(nil)

// Store is the SQLite-backed chat and document store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a store at the specified data directory.
// If dataDir is empty, defaults to ~/.deepread/data/deepread.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".deepread", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "deepread.db")

	// WAL mode keeps readers unblocked while the synchronizer writes
	// snapshot updates.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// InsertMessage appends one message to a document's history and
// returns it with its server-assigned identity and insertion sequence.
func (s *Store) InsertMessage(ctx context.Context, documentID, userID string, role domain.Role, content string) (*domain.Message, error) {
	if userID == "" {
		return nil, domain.ErrSessionInvalid
	}

	id := uuid.NewString()
	createdAt := time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, document_id, user_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, documentID, userID, string(role), content, createdAt)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading insert id: %w", err)
	}

	return &domain.Message{
		ID:         id,
		DocumentID: documentID,
		Role:       role,
		Content:    content,
		CreatedAt:  createdAt,
		Seq:        seq,
		State:      domain.StatePersisted,
	}, nil
}

// ListMessages returns a document's history in insertion order.
func (s *Store) ListMessages(ctx context.Context, documentID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, document_id, role, content, created_at
		FROM messages
		WHERE document_id = ?
		ORDER BY seq
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var role string
		if err := rows.Scan(&msg.Seq, &msg.ID, &msg.DocumentID, &role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.Role = domain.Role(role)
		msg.State = domain.StatePersisted
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return messages, nil
}

// DeleteMessages removes a document's entire history.
func (s *Store) DeleteMessages(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}
	return nil
}

// SaveDocument stores or updates document metadata.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.DocumentMetadata) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, file_name, file_size_bytes, page_count, language, word_count, storage_path, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_name = excluded.file_name,
			file_size_bytes = excluded.file_size_bytes,
			page_count = excluded.page_count,
			language = excluded.language,
			word_count = excluded.word_count,
			storage_path = excluded.storage_path
	`, doc.ID, doc.FileName, doc.FileSizeBytes, doc.PageCount, doc.Language, doc.WordCount,
		doc.StoragePath, doc.UploadedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves document metadata by id.
func (s *Store) GetDocument(ctx context.Context, documentID string) (*domain.DocumentMetadata, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, file_name, file_size_bytes, page_count, language, word_count, storage_path, uploaded_at
		FROM documents WHERE id = ?
	`, documentID)

	var doc domain.DocumentMetadata
	if err := row.Scan(&doc.ID, &doc.FileName, &doc.FileSizeBytes, &doc.PageCount,
		&doc.Language, &doc.WordCount, &doc.StoragePath, &doc.UploadedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return &doc, nil
}

// UpdateDocumentProcessing writes the latest reconciled snapshot onto
// the document row. Metadata fields are only overwritten once known.
func (s *Store) UpdateDocumentProcessing(ctx context.Context, documentID string, snap domain.DocumentSnapshot) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents SET
			text_extracted = ?,
			embeddings_built = ?,
			ai_ready = ?,
			current_chunk = ?,
			total_chunks = ?,
			processing_error = ?,
			page_count = CASE WHEN ? > 0 THEN ? ELSE page_count END,
			language = CASE WHEN ? != '' THEN ? ELSE language END,
			word_count = CASE WHEN ? > 0 THEN ? ELSE word_count END
		WHERE id = ?
	`, snap.Status.TextExtracted, snap.Status.EmbeddingsBuilt, snap.Status.AIReady,
		snap.Status.CurrentChunk, snap.Status.TotalChunks, snap.Status.Error,
		snap.PageCount, snap.PageCount,
		snap.Language, snap.Language,
		snap.WordCount, snap.WordCount,
		documentID)
	if err != nil {
		return fmt.Errorf("updating document processing: %w", err)
	}
	return nil
}
