// Package sqlite is the embedded, file-backed Document Store. One process at
// a time may hold the file: the connection runs in EXCLUSIVE locking mode and
// a second opener fails with vectorstore.ErrStoreInUse.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"healthqa/internal/domain"
	"healthqa/internal/vectorstore"
)

// Storage implements vectorstore.Storage on a single SQLite file.
type Storage struct {
	path       string
	collection string

	mu        sync.Mutex
	db        *sql.DB
	dimension int
}

func NewStorage(path, collection string) *Storage {
	return &Storage{path: path, collection: collection}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS collections (
        name TEXT PRIMARY KEY,
        dimension INTEGER NOT NULL,
        created_at TEXT NOT NULL,
        opened_at TEXT
    );`,
	`CREATE TABLE IF NOT EXISTS documents (
        id TEXT PRIMARY KEY,
        collection TEXT NOT NULL,
        content TEXT NOT NULL,
        question TEXT NOT NULL,
        doctor_title TEXT NOT NULL,
        doctor_speciality TEXT NOT NULL,
        vector BLOB NOT NULL
    );`,
	`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);`,
}

func (s *Storage) connect(ctx context.Context) error {
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
	dsn := s.path + "?_pragma=locking_mode(EXCLUSIVE)&_pragma=busy_timeout(0)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}
	// one connection: the exclusive lock lives on it
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return classify(err)
	}
	s.db = db
	return nil
}

// Reset wipes the whole file and recreates an empty collection.
func (s *Storage) Reset(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := s.connect(ctx); err != nil {
		return err
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{`DROP TABLE IF EXISTS documents;`, `DROP TABLE IF EXISTS collections;`} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		for _, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		now := time.Now().UTC().Format(time.RFC3339)
		_, err := tx.ExecContext(ctx, `INSERT INTO collections(name, dimension, created_at, opened_at) VALUES(?,?,?,?)`,
			s.collection, dimension, now, now)
		return err
	})
	if err != nil {
		s.closeLocked()
		return err
	}
	s.dimension = dimension
	return nil
}

// Open attaches to an existing file and takes the exclusive lock.
func (s *Storage) Open(ctx context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", vectorstore.ErrStoreNotFound, s.path)
		}
		return err
	}
	if err := s.connect(ctx); err != nil {
		return err
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var dim int
		err := tx.QueryRowContext(ctx, `SELECT dimension FROM collections WHERE name=?`, s.collection).Scan(&dim)
		if errors.Is(err, sql.ErrNoRows) || isMissingTable(err) {
			return fmt.Errorf("%w: collection %s in %s", vectorstore.ErrStoreNotFound, s.collection, s.path)
		}
		if err != nil {
			return err
		}
		if dim != dimension {
			return fmt.Errorf("%w: collection has %d, want %d", vectorstore.ErrDimension, dim, dimension)
		}
		// the write makes the connection keep its exclusive lock
		_, err = tx.ExecContext(ctx, `UPDATE collections SET opened_at=? WHERE name=?`,
			time.Now().UTC().Format(time.RFC3339), s.collection)
		return err
	})
	if err != nil {
		s.closeLocked()
		return err
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Write(ctx context.Context, docs []domain.Document, vectors [][]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return vectorstore.ErrNotOpen
	}
	if err := vectorstore.CheckBatch(docs, vectors, s.dimension); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO documents
            (id, collection, content, question, doctor_title, doctor_speciality, vector)
            VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, d := range docs {
			id := d.ID
			if id == "" {
				id = uuid.NewString()
			}
			_, err := stmt.ExecContext(ctx, id, s.collection, d.Content,
				d.Meta.Question, d.Meta.DoctorTitle, d.Meta.DoctorSpeciality, encodeVector(vectors[i]))
			if err != nil {
				return fmt.Errorf("insert document %d: %w", i, err)
			}
		}
		return nil
	})
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, vectorstore.ErrNotOpen
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE collection=?`, s.collection).Scan(&n)
	return n, err
}

// Search scans every vector, keeps the topK rowids, then loads only those rows.
func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, vectorstore.ErrNotOpen
	}
	if topK <= 0 {
		topK = 3
	}
	rows, err := s.db.QueryContext(ctx, `SELECT rowid, vector FROM documents WHERE collection=?`, s.collection)
	if err != nil {
		return nil, err
	}
	best := vectorstore.NewTopK(topK)
	var buf []float64
	for rows.Next() {
		var rowid int64
		var blob []byte
		if err := rows.Scan(&rowid, &blob); err != nil {
			rows.Close()
			return nil, err
		}
		buf = decodeVector(blob, buf[:0])
		best.Push(domain.SearchResult{
			Document: domain.Document{ID: strconv.FormatInt(rowid, 10)},
			Score:    vectorstore.Cosine(vector, buf),
		})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	results := best.Results()
	for i := range results {
		doc, err := s.loadByRowID(ctx, results[i].Document.ID)
		if err != nil {
			return nil, err
		}
		results[i].Document = doc
	}
	return results, nil
}

func (s *Storage) loadByRowID(ctx context.Context, key string) (domain.Document, error) {
	var d domain.Document
	rowid, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return d, err
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT id, content, question, doctor_title, doctor_speciality FROM documents WHERE rowid=?`, rowid,
	).Scan(&d.ID, &d.Content, &d.Meta.Question, &d.Meta.DoctorTitle, &d.Meta.DoctorSpeciality)
	return d, err
}

func (s *Storage) Sample(ctx context.Context, n int) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, vectorstore.ErrNotOpen
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, question, doctor_title, doctor_speciality FROM documents
         WHERE collection=? ORDER BY rowid LIMIT ?`, s.collection, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.Content, &d.Meta.Question, &d.Meta.DoctorTitle, &d.Meta.DoctorSpeciality); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Close releases the file and its lock.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Storage) closeLocked() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.dimension = 0
	return err
}

func (s *Storage) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return classify(err)
	}
	return classify(tx.Commit())
}

// classify maps SQLite lock contention to vectorstore.ErrStoreInUse.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se *sqlitedrv.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %v", vectorstore.ErrStoreInUse, err)
		}
	}
	if strings.Contains(err.Error(), "database is locked") {
		return fmt.Errorf("%w: %v", vectorstore.ErrStoreInUse, err)
	}
	return err
}

func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

func encodeVector(v []float64) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(float32(f)))
	}
	return buf
}

func decodeVector(b []byte, dst []float64) []float64 {
	for i := 0; i+4 <= len(b); i += 4 {
		dst = append(dst, float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i:]))))
	}
	return dst
}
