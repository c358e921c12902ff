package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/lib/pq"
	"github.com/siherrmann/ragpipe/helper"
	loadSql "github.com/siherrmann/ragpipe/sql"
)

// DocumentsDBHandlerFunctions defines the interface for the document
// change-detection cache used by the ingestion path.
type DocumentsDBHandlerFunctions interface {
	IsChanged(path string) (bool, error)
	Record(path string, chunkCount int, chunkIDs []string) error
	Count() (int, error)
	Clear() error
}

// DocumentsDBHandler tracks which files have been indexed and whether their
// content changed since, keyed by a content hash.
type DocumentsDBHandler struct {
	db *helper.Database
}

// NewDocumentsDBHandler creates a new documents database handler.
// It loads the document record SQL functions and ensures the table exists.
// If force is true, it will reload the SQL functions even if they already exist.
func NewDocumentsDBHandler(db *helper.Database, force bool) (*DocumentsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	handler := &DocumentsDBHandler{db: db}

	err := loadSql.LoadDocumentsSql(handler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load documents sql", err)
	}

	err = handler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized DocumentsDBHandler")

	return handler, nil
}

// CreateTable creates the 'document_records' table if it does not exist.
func (h *DocumentsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_documents();`)
	if err != nil {
		return helper.NewError("initialize document_records table", err)
	}

	h.db.Logger.Info("Checked/created table document_records")

	return nil
}

// IsChanged reports whether the file at path is new or its content differs
// from the recorded hash. Unreadable files count as changed.
func (h *DocumentsDBHandler) IsChanged(path string) (bool, error) {
	currentHash, err := hashFile(path)
	if err != nil {
		return true, nil
	}

	var storedHash string
	row := h.db.Instance.QueryRow(`SELECT content_hash FROM select_document_record($1)`, path)
	if err := row.Scan(&storedHash); err != nil {
		// No record yet means the file was never indexed.
		return true, nil
	}

	return storedHash != currentHash, nil
}

// Record stores the current content hash and chunk assignment for a file.
func (h *DocumentsDBHandler) Record(path string, chunkCount int, chunkIDs []string) error {
	contentHash, err := hashFile(path)
	if err != nil {
		return helper.NewError("hash file", err)
	}

	_, err = h.db.Instance.Exec(
		`SELECT upsert_document_record($1, $2, $3, $4)`,
		path,
		contentHash,
		chunkCount,
		pq.Array(chunkIDs),
	)
	if err != nil {
		return helper.NewError("exec", err)
	}

	return nil
}

// Count returns the number of recorded documents.
func (h *DocumentsDBHandler) Count() (int, error) {
	var count int
	err := h.db.Instance.QueryRow(`SELECT count_document_records()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

// Clear removes all document records, forcing a full reprocess on the next
// ingestion run.
func (h *DocumentsDBHandler) Clear() error {
	_, err := h.db.Instance.Exec(`SELECT clear_document_records()`)
	if err != nil {
		return helper.NewError("exec", err)
	}
	h.db.Logger.Info("Cleared document records")
	return nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
