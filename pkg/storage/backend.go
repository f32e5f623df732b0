package storage

import (
	"database/sql"
	"errors"
	"sync"
	"time"

	"wordfreq/pkg/common"

	_ "modernc.org/sqlite"
)

// Run 是一次完整 Top-K 计算的结果
type Run struct {
	ID        int64
	CreatedAt time.Time
	Input     string
	K         int
	Chunks    int
	Records   int64
	Results   []common.WordCount
}

var ErrRunNotFound = errors.New("run not found")

type ResultStore interface {
	SaveRun(run Run) (int64, error)
	LoadRun(id int64) (Run, error)
	LatestRun() (Run, error)
	Close() error
}

type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.WrapIO("open", path, err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at INTEGER NOT NULL,
		input      TEXT    NOT NULL,
		k          INTEGER NOT NULL,
		chunks     INTEGER NOT NULL,
		records    INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS results (
		run_id INTEGER NOT NULL REFERENCES runs(id),
		rank   INTEGER NOT NULL,
		word   TEXT    NOT NULL,
		count  INTEGER NOT NULL,
		PRIMARY KEY (run_id, rank)
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, common.WrapIO("init", path, err)
	}

	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
	`); err != nil {
		db.Close()
		return nil, common.WrapIO("pragma", path, err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveRun stores the run and its ranked results in one transaction and
// returns the new run id.
func (s *SQLiteStore) SaveRun(run Run) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}

	res, err := tx.Exec("INSERT INTO runs (created_at, input, k, chunks, records) VALUES (?, ?, ?, ?, ?)",
		run.CreatedAt.UnixNano(), run.Input, run.K, run.Chunks, run.Records)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, err
	}

	stmt, err := tx.Prepare("INSERT INTO results (run_id, rank, word, count) VALUES (?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	for i, wc := range run.Results {
		if _, err := stmt.Exec(id, i+1, wc.Word, wc.Count); err != nil {
			tx.Rollback()
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *SQLiteStore) LoadRun(id int64) (Run, error) {
	row := s.db.QueryRow("SELECT id, created_at, input, k, chunks, records FROM runs WHERE id = ?", id)
	return s.scanRun(row)
}

func (s *SQLiteStore) LatestRun() (Run, error) {
	row := s.db.QueryRow("SELECT id, created_at, input, k, chunks, records FROM runs ORDER BY id DESC LIMIT 1")
	return s.scanRun(row)
}

func (s *SQLiteStore) scanRun(row *sql.Row) (Run, error) {
	var (
		run Run
		ts  int64
	)
	err := row.Scan(&run.ID, &ts, &run.Input, &run.K, &run.Chunks, &run.Records)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, err
	}
	run.CreatedAt = time.Unix(0, ts)

	rows, err := s.db.Query("SELECT word, count FROM results WHERE run_id = ? ORDER BY rank ASC", run.ID)
	if err != nil {
		return Run{}, err
	}
	defer rows.Close()

	run.Results = []common.WordCount{}
	for rows.Next() {
		var wc common.WordCount
		if err := rows.Scan(&wc.Word, &wc.Count); err != nil {
			return Run{}, err
		}
		run.Results = append(run.Results, wc)
	}
	return run, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
