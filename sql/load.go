package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed init.sql
var initSQL string

//go:embed chunks.sql
var chunksSQL string

//go:embed documents.sql
var documentsSQL string

// Function lists for verification
var ChunksFunctions = []string{
	"init_chunks",
	"insert_chunk",
	"select_chunks_by_similarity",
	"select_all_chunks",
	"count_chunks",
	"delete_chunks_by_source",
	"clear_chunks",
}

var DocumentsFunctions = []string{
	"init_documents",
	"upsert_document_record",
	"select_document_record",
	"count_document_records",
	"clear_document_records",
}

// Init creates the extensions ragpipe depends on (pgvector, pgcrypto).
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("failed to create extensions: %w", err)
	}
	return nil
}

// LoadChunksSql loads the chunk SQL functions. If force is false and all
// functions already exist, loading is skipped.
func LoadChunksSql(db *sql.DB, force bool) error {
	return loadFunctions(db, chunksSQL, ChunksFunctions, force)
}

// LoadDocumentsSql loads the document record SQL functions. If force is false
// and all functions already exist, loading is skipped.
func LoadDocumentsSql(db *sql.DB, force bool) error {
	return loadFunctions(db, documentsSQL, DocumentsFunctions, force)
}

func loadFunctions(db *sql.DB, script string, functions []string, force bool) error {
	if !force {
		allExist := true
		for _, fn := range functions {
			exists, err := functionExists(db, fn)
			if err != nil {
				return err
			}
			if !exists {
				allExist = false
				break
			}
		}
		if allExist {
			return nil
		}
	}

	_, err := db.Exec(script)
	if err != nil {
		return fmt.Errorf("failed to load sql functions: %w", err)
	}

	for _, fn := range functions {
		exists, err := functionExists(db, fn)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("function %v missing after load", fn)
		}
	}

	return nil
}

func functionExists(db *sql.DB, name string) (bool, error) {
	var exists bool
	err := db.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM pg_proc WHERE proname = $1)`,
		name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check function %v: %w", name, err)
	}
	return exists, nil
}
