package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"fuelbill/internal"
)

const timeLayout = time.RFC3339Nano

// DB is the run journal. It stores run metadata only, never bill rows.
type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrapf(err, "create journal dir for %s", path)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "open journal %s", path)
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, eris.Wrap(err, "enable wal")
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  inputPath TEXT NOT NULL,
  outputPath TEXT,
  inputHash TEXT,
  headerRow INTEGER NOT NULL DEFAULT 0,
  columnMapJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  status TEXT NOT NULL,
  error TEXT,
  startedAt TEXT NOT NULL,
  finishedAt TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_inputHash ON runs(inputHash);
CREATE INDEX IF NOT EXISTS idx_runs_startedAt ON runs(startedAt);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return eris.Wrap(err, "init journal schema")
}

func (d *DB) InsertRun(run internal.RunRecord) error {
	columnsJSON, _ := json.Marshal(nonNilInts(run.ColumnMap))
	countsJSON, _ := json.Marshal(nonNilInts(run.Counts))
	timings := run.DurationsMs
	if timings == nil {
		timings = map[string]float64{}
	}
	timingsJSON, _ := json.Marshal(timings)

	_, err := d.conn.Exec(`
INSERT INTO runs (
  id, inputPath, outputPath, inputHash, headerRow,
  columnMapJson, countsJson, timingsJson, status, error, startedAt, finishedAt
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		run.ID, run.InputPath, run.OutputPath, run.InputHash, run.HeaderRow,
		string(columnsJSON), string(countsJSON), string(timingsJSON),
		string(run.Status), run.Error,
		run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
	)
	return eris.Wrapf(err, "insert run %s", run.ID)
}

// ListRuns returns the most recent runs first.
func (d *DB) ListRuns(limit int) ([]internal.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.conn.Query(`
SELECT id, inputPath, outputPath, inputHash, headerRow, columnMapJson, countsJson, timingsJson,
       status, error, startedAt, finishedAt
FROM runs
ORDER BY startedAt DESC, createdAt DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "list runs")
	}
	defer rows.Close()

	out := make([]internal.RunRecord, 0)
	for rows.Next() {
		var (
			run                                  internal.RunRecord
			outputPath, inputHash, errText       sql.NullString
			columnsJSON, countsJSON, timingsJSON string
			status, startedAt, finishedAt        string
		)
		if err := rows.Scan(&run.ID, &run.InputPath, &outputPath, &inputHash, &run.HeaderRow,
			&columnsJSON, &countsJSON, &timingsJSON, &status, &errText, &startedAt, &finishedAt); err != nil {
			return nil, eris.Wrap(err, "scan run")
		}
		run.OutputPath = outputPath.String
		run.InputHash = inputHash.String
		run.Error = errText.String
		run.Status = internal.RunStatus(status)
		_ = json.Unmarshal([]byte(columnsJSON), &run.ColumnMap)
		_ = json.Unmarshal([]byte(countsJSON), &run.Counts)
		_ = json.Unmarshal([]byte(timingsJSON), &run.DurationsMs)
		run.StartedAt, _ = time.Parse(timeLayout, startedAt)
		run.FinishedAt, _ = time.Parse(timeLayout, finishedAt)
		out = append(out, run)
	}
	return out, eris.Wrap(rows.Err(), "iterate runs")
}

// HasProcessed reports whether a successful run already consumed content
// with this hash.
func (d *DB) HasProcessed(inputHash string) (bool, error) {
	if inputHash == "" {
		return false, nil
	}
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(1) FROM runs WHERE inputHash = ? AND status = ?`, inputHash, string(internal.RunOK)).Scan(&n)
	if err != nil {
		return false, eris.Wrap(err, "lookup processed hash")
	}
	return n > 0, nil
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return eris.Wrapf(err, "set metadata %s", key)
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "get metadata %s", key)
	}
	return &value, nil
}

func nonNilInts(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
