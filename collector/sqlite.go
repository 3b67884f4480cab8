package collector

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pevans/eptexts/document"
)

// SQLiteSink exports the records of a run to a SQLite database. The
// documents table is recreated on every write; nothing is carried over from
// earlier runs.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the database at path.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

const documentsSchema = `
DROP TABLE IF EXISTS documents;
CREATE TABLE documents (
	position INTEGER PRIMARY KEY,
	run_id TEXT NOT NULL,
	source TEXT NOT NULL,
	inter_institutional_code TEXT NOT NULL,
	document_reference TEXT NOT NULL,
	title TEXT NOT NULL,
	legal_document_type TEXT NOT NULL,
	pdf_link TEXT NOT NULL,
	docx_link TEXT NOT NULL,
	published_date TEXT NOT NULL,
	first_parsed_date TEXT NOT NULL,
	exported_at TEXT NOT NULL
);
`

// Write replaces the documents table with the records of result, in order.
// Duplicate entries are kept as they were scraped.
func (s *SQLiteSink) Write(result *Result) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(documentsSchema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	stmt, err := tx.Prepare(`
	INSERT INTO documents (
		position, run_id, source, inter_institutional_code, document_reference,
		title, legal_document_type, pdf_link, docx_link, published_date,
		first_parsed_date, exported_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	exportedAt := time.Now().UTC().Format(time.RFC3339)
	for i, rec := range result.Records {
		_, err := stmt.Exec(
			i+1,
			result.RunID.String(),
			rec.Source,
			rec.InterInstitutionalCode,
			rec.DocumentReference,
			rec.Title,
			rec.LegalDocumentType,
			rec.PDFLink,
			rec.DocxLink,
			rec.PublishedDate,
			rec.FirstParsedDate,
			exportedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert record %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit export: %w", err)
	}
	return nil
}

// List returns the exported records in their original order.
func (s *SQLiteSink) List() ([]document.Record, error) {
	rows, err := s.db.Query(`
	SELECT source, inter_institutional_code, document_reference, title,
		legal_document_type, pdf_link, docx_link, published_date, first_parsed_date
	FROM documents ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var records []document.Record
	for rows.Next() {
		var rec document.Record
		if err := rows.Scan(
			&rec.Source,
			&rec.InterInstitutionalCode,
			&rec.DocumentReference,
			&rec.Title,
			&rec.LegalDocumentType,
			&rec.PDFLink,
			&rec.DocxLink,
			&rec.PublishedDate,
			&rec.FirstParsedDate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
