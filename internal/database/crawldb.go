package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/newscrawl/internal/model"
)

// FileName is the SQLite file holding node history.
const FileName = "newscrawl.db"

// CrawlDB stores the node's local history: enriched articles, round CIDs,
// submitted proofs, audit verdicts and round reports.
type CrawlDB struct {
	db *sql.DB
}

// Open opens or creates the CrawlDB in dbDir.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	db, err := OpenSQLite(dbDir, FileName, opts)
	if err != nil {
		return nil, err
	}

	cdb := &CrawlDB{db: db}
	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	-- Articles enriched during a round
	CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		round INTEGER NOT NULL,
		link TEXT NOT NULL,
		title TEXT,
		description TEXT,
		author TEXT,
		release_date TEXT,
		content_hash TEXT,
		cid TEXT,
		timestamp TEXT NOT NULL,
		UNIQUE(round, link)
	);

	CREATE INDEX IF NOT EXISTS idx_articles_round ON articles(round);
	CREATE INDEX IF NOT EXISTS idx_articles_link ON articles(link);

	-- Uploaded article lists, one per round
	CREATE TABLE IF NOT EXISTS cids (
		round INTEGER PRIMARY KEY,
		article_list_cid TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);

	-- Signed submissions, one per round
	CREATE TABLE IF NOT EXISTS proofs (
		round INTEGER PRIMARY KEY,
		submission_cid TEXT NOT NULL,
		value TEXT NOT NULL,
		node_pubkey TEXT NOT NULL,
		node_signature TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);

	-- Votes cast on other nodes' submissions
	CREATE TABLE IF NOT EXISTS audits (
		id TEXT PRIMARY KEY,
		round INTEGER NOT NULL,
		submission_cid TEXT NOT NULL,
		vote INTEGER NOT NULL,
		reason TEXT,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audits_round ON audits(round);

	-- Complete round reports as JSON
	CREATE TABLE IF NOT EXISTS round_reports (
		id TEXT PRIMARY KEY,
		round INTEGER NOT NULL,
		locale TEXT NOT NULL,
		report_json TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_round ON round_reports(round);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// InsertArticle inserts or updates the record for (round, link).
func (cdb *CrawlDB) InsertArticle(ctx context.Context, round int, a *model.ArticleRecord) error {
	query := `
	INSERT INTO articles (round, link, title, description, author, release_date, content_hash, cid, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(round, link) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		author = excluded.author,
		release_date = excluded.release_date,
		content_hash = excluded.content_hash,
		cid = excluded.cid,
		timestamp = excluded.timestamp
	`

	_, err := cdb.db.ExecContext(ctx, query,
		round,
		a.Link,
		a.Title,
		a.Description,
		a.Author,
		a.ReleaseDate,
		a.ContentHash,
		a.CID,
		formatTimestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

// ArticlesForRound returns the stored records of round in insertion order.
func (cdb *CrawlDB) ArticlesForRound(ctx context.Context, round int) ([]model.ArticleRecord, error) {
	query := `
	SELECT link, title, description, author, release_date, content_hash, cid
	FROM articles
	WHERE round = ?
	ORDER BY id
	`

	rows, err := cdb.db.QueryContext(ctx, query, round)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var results []model.ArticleRecord
	for rows.Next() {
		var a model.ArticleRecord
		var title, desc, author, date, hash, cid sql.NullString
		if err := rows.Scan(&a.Link, &title, &desc, &author, &date, &hash, &cid); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		a.Title, a.Description, a.Author = title.String, desc.String, author.String
		a.ReleaseDate, a.ContentHash, a.CID = date.String, hash.String, cid.String
		results = append(results, a)
	}
	return results, rows.Err()
}

// SaveRound records the article list CID of a round. A later save for the
// same round replaces the earlier one.
func (cdb *CrawlDB) SaveRound(ctx context.Context, r model.Round) error {
	query := `
	INSERT INTO cids (round, article_list_cid, timestamp)
	VALUES (?, ?, ?)
	ON CONFLICT(round) DO UPDATE SET
		article_list_cid = excluded.article_list_cid,
		timestamp = excluded.timestamp
	`

	if _, err := cdb.db.ExecContext(ctx, query, r.Round, r.ArticleListCID, formatTimestamp(r.Timestamp)); err != nil {
		return fmt.Errorf("failed to save round: %w", err)
	}
	return nil
}

// LatestRound returns the highest-numbered round with an article list CID,
// or nil when there is none. Insertion order does not matter.
func (cdb *CrawlDB) LatestRound(ctx context.Context) (*model.Round, error) {
	query := `
	SELECT round, article_list_cid, timestamp FROM cids
	WHERE article_list_cid != ''
	ORDER BY round DESC
	LIMIT 1
	`

	var r model.Round
	var ts string
	err := cdb.db.QueryRowContext(ctx, query).Scan(&r.Round, &r.ArticleListCID, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest round: %w", err)
	}
	r.Timestamp = parseTimestamp(ts)
	return &r, nil
}

// Rounds returns every recorded round, highest first.
func (cdb *CrawlDB) Rounds(ctx context.Context) ([]model.Round, error) {
	query := `
	SELECT round, article_list_cid, timestamp FROM cids
	WHERE article_list_cid != ''
	ORDER BY round DESC
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	var results []model.Round
	for rows.Next() {
		var r model.Round
		var ts string
		if err := rows.Scan(&r.Round, &r.ArticleListCID, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		r.Timestamp = parseTimestamp(ts)
		results = append(results, r)
	}
	return results, rows.Err()
}

// Proof is a stored submission together with its own CID.
type Proof struct {
	Round         int              `json:"round"`
	SubmissionCID string           `json:"submission_cid"`
	Submission    model.Submission `json:"submission"`
	Timestamp     time.Time        `json:"timestamp"`
}

// SaveProof records the submission made for round.
func (cdb *CrawlDB) SaveProof(ctx context.Context, p Proof) error {
	query := `
	INSERT INTO proofs (round, submission_cid, value, node_pubkey, node_signature, timestamp)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(round) DO UPDATE SET
		submission_cid = excluded.submission_cid,
		value = excluded.value,
		node_pubkey = excluded.node_pubkey,
		node_signature = excluded.node_signature,
		timestamp = excluded.timestamp
	`

	_, err := cdb.db.ExecContext(ctx, query,
		p.Round,
		p.SubmissionCID,
		p.Submission.Value,
		p.Submission.NodePubKey,
		p.Submission.NodeSignature,
		formatTimestamp(p.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to save proof: %w", err)
	}
	return nil
}

// Proofs returns every stored submission, highest round first.
func (cdb *CrawlDB) Proofs(ctx context.Context) ([]Proof, error) {
	query := `
	SELECT round, submission_cid, value, node_pubkey, node_signature, timestamp
	FROM proofs
	ORDER BY round DESC
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query proofs: %w", err)
	}
	defer rows.Close()

	var results []Proof
	for rows.Next() {
		var p Proof
		var ts string
		err := rows.Scan(&p.Round, &p.SubmissionCID, &p.Submission.Value,
			&p.Submission.NodePubKey, &p.Submission.NodeSignature, &ts)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proof: %w", err)
		}
		p.Timestamp = parseTimestamp(ts)
		results = append(results, p)
	}
	return results, rows.Err()
}

// SaveVerdict records an audit vote.
func (cdb *CrawlDB) SaveVerdict(ctx context.Context, v model.Verdict) error {
	query := `
	INSERT INTO audits (id, round, submission_cid, vote, reason, timestamp)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO NOTHING
	`

	vote := 0
	if v.Vote {
		vote = 1
	}
	_, err := cdb.db.ExecContext(ctx, query, v.ID, v.Round, v.SubmissionCID, vote, v.Reason, formatTimestamp(v.AuditedAt))
	if err != nil {
		return fmt.Errorf("failed to save verdict: %w", err)
	}
	return nil
}

// Verdicts returns the votes cast in round, or in every round when round is negative.
func (cdb *CrawlDB) Verdicts(ctx context.Context, round int) ([]model.Verdict, error) {
	query := `
	SELECT id, round, submission_cid, vote, reason, timestamp
	FROM audits
	WHERE 1=1
	`
	args := make([]any, 0, 1)
	if round >= 0 {
		query += " AND round = ?"
		args = append(args, round)
	}
	query += " ORDER BY timestamp DESC"

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query verdicts: %w", err)
	}
	defer rows.Close()

	var results []model.Verdict
	for rows.Next() {
		var v model.Verdict
		var vote int
		var reason sql.NullString
		var ts string
		if err := rows.Scan(&v.ID, &v.Round, &v.SubmissionCID, &vote, &reason, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}
		v.Vote = vote == 1
		v.Reason = reason.String
		v.AuditedAt = parseTimestamp(ts)
		results = append(results, v)
	}
	return results, rows.Err()
}

// SaveRoundReport stores a complete round report as JSON.
func (cdb *CrawlDB) SaveRoundReport(ctx context.Context, report *model.RoundReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	query := `
	INSERT INTO round_reports (id, round, locale, report_json, timestamp)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		report_json = excluded.report_json,
		timestamp = excluded.timestamp
	`

	_, err = cdb.db.ExecContext(ctx, query,
		report.ID,
		report.Round,
		report.Locale.String(),
		string(reportJSON),
		formatTimestamp(report.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save round report: %w", err)
	}
	return nil
}

// RoundReport returns the most recent report for round, or nil when none exists.
func (cdb *CrawlDB) RoundReport(ctx context.Context, round int) (*model.RoundReport, error) {
	query := `
	SELECT report_json FROM round_reports
	WHERE round = ?
	ORDER BY timestamp DESC
	LIMIT 1
	`

	var reportJSON string
	err := cdb.db.QueryRowContext(ctx, query, round).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round report: %w", err)
	}

	var report model.RoundReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}
