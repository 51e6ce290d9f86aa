package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gocid "github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/nao1215/newscrawl/internal/database"
)

// LocalFileName is the SQLite file used by LocalStore.
const LocalFileName = "content.db"

// LocalStore keeps units in SQLite and addresses them with CIDv1.
// Single blobs use the raw codec over a SHA-256 multihash of their bytes.
// Directories use the dag-json codec over a manifest linking each name to
// its file CID, so identical content always yields the same CID.
type LocalStore struct {
	db *sql.DB
}

// NewLocalStore opens or creates the local content store in dir.
func NewLocalStore(dir string) (*LocalStore, error) {
	db, err := database.OpenSQLite(dir, LocalFileName, database.DefaultOptions())
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS blobs (
		cid TEXT NOT NULL,
		name TEXT NOT NULL,
		content_type TEXT,
		data BLOB NOT NULL,
		timestamp TEXT NOT NULL,
		PRIMARY KEY (cid, name)
	);
	`
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create blob table: %w", err)
	}
	return &LocalStore{db: db}, nil
}

// Close closes the underlying database.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// Put implements Store.
func (s *LocalStore) Put(ctx context.Context, blobs ...Blob) (string, error) {
	if len(blobs) == 0 {
		return "", ErrNoBlobs
	}

	if len(blobs) == 1 {
		c, err := FileCID(blobs[0].Data)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrUpload, err)
		}
		if err := insertBlob(ctx, s.db, c, "", blobs[0]); err != nil {
			return "", err
		}
		return c, nil
	}

	manifest, err := directoryManifest(blobs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpload, err)
	}
	dir, err := directoryCID(manifest)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpload, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpload, err)
	}
	defer func() { _ = tx.Rollback() }()

	rows := append([]Blob{{ContentType: ContentTypeJSON, Data: manifest}}, blobs...)
	for _, b := range rows {
		if err := insertBlob(ctx, tx, dir, b.Name, b); err != nil {
			return "", err
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpload, err)
	}
	return dir, nil
}

// Get implements Store. For a directory it returns the manifest.
func (s *LocalStore) Get(ctx context.Context, cid string) ([]byte, error) {
	return s.GetFile(ctx, cid, "")
}

// GetFile implements Store.
func (s *LocalStore) GetFile(ctx context.Context, cid, name string) ([]byte, error) {
	if _, err := gocid.Decode(cid); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCID, cid)
	}

	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM blobs WHERE cid = ? AND name = ?`, cid, name,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, cid, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertBlob(ctx context.Context, db execer, cid, name string, b Blob) error {
	_, err := db.ExecContext(ctx, `
	INSERT INTO blobs (cid, name, content_type, data, timestamp)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(cid, name) DO NOTHING
	`, cid, name, b.ContentType, b.Data, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpload, err)
	}
	return nil
}

// FileCID returns the CIDv1 (raw codec, SHA-256) of data.
func FileCID(data []byte) (string, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	return gocid.NewCidV1(gocid.Raw, sum).String(), nil
}

// link is the dag-json encoding of a CID reference.
type link struct {
	CID string `json:"/"`
}

// directoryManifest maps every blob name to a link to its file CID.
// encoding/json sorts map keys, which keeps the manifest canonical.
func directoryManifest(blobs []Blob) ([]byte, error) {
	entries := make(map[string]link, len(blobs))
	for _, b := range blobs {
		if b.Name == "" {
			return nil, errors.New("directory entries need a name")
		}
		if _, dup := entries[b.Name]; dup {
			return nil, fmt.Errorf("duplicate entry %q", b.Name)
		}
		c, err := FileCID(b.Data)
		if err != nil {
			return nil, err
		}
		entries[b.Name] = link{CID: c}
	}
	return json.Marshal(entries)
}

func directoryCID(manifest []byte) (string, error) {
	sum, err := multihash.Sum(manifest, multihash.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	return gocid.NewCidV1(gocid.DagJSON, sum).String(), nil
}
