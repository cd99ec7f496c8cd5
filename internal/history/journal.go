package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Journal is a local sqlite log of every bubble the view appended to a
// transcript, including optimistic user turns whose delivery failed.
type Journal struct {
	db         *sql.DB
	ftsEnabled bool
	mu         sync.Mutex
}

func Open(path string, reset bool) (*Journal, error) {
	if reset {
		_ = os.Remove(path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	j := &Journal{db: db}
	if err := j.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) initSchema() error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS entries (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			workspace_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			status TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_entries_workspace ON entries(workspace_id, seq);`,
	}
	for _, stmt := range stmts {
		if _, err := j.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return j.ensureFTSTable()
}

func (j *Journal) ensureFTSTable() error {
	var sqlDef string
	err := j.db.QueryRow(`SELECT sql FROM sqlite_master WHERE name = 'entries_fts'`).Scan(&sqlDef)
	if err == nil {
		lower := strings.ToLower(sqlDef)
		j.ftsEnabled = strings.Contains(lower, "virtual table") && strings.Contains(lower, "fts5")
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("inspect entries_fts table: %w", err)
	}

	_, err = j.db.Exec(`CREATE VIRTUAL TABLE entries_fts USING fts5(
		workspace_id UNINDEXED,
		content
	);`)
	if err == nil {
		j.ftsEnabled = true
		return nil
	}
	if !strings.Contains(strings.ToLower(err.Error()), "no such module: fts5") {
		return fmt.Errorf("create entries_fts: %w", err)
	}

	// sqlite builds without FTS5 search entries with LIKE instead.
	j.ftsEnabled = false
	return nil
}

// Record appends e. Empty ID and zero TS are filled in.
func (j *Journal) Record(ctx context.Context, e Entry) (Entry, error) {
	if strings.TrimSpace(e.WorkspaceID) == "" {
		return e, fmt.Errorf("record entry: workspace id is empty")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.TS.IsZero() {
		e.TS = time.Now()
	}
	if e.Status == "" {
		e.Status = StatusDelivered
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return e, fmt.Errorf("begin record tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO entries(id, workspace_id, ts, role, content, status)
		VALUES(?, ?, ?, ?, ?, ?)
	`, e.ID, e.WorkspaceID, e.TS.UnixMilli(), e.Role, e.Content, string(e.Status))
	if err != nil {
		return e, fmt.Errorf("insert entry: %w", err)
	}
	if j.ftsEnabled {
		seq, err := res.LastInsertId()
		if err != nil {
			return e, fmt.Errorf("entry rowid: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO entries_fts(rowid, workspace_id, content) VALUES(?, ?, ?)`,
			seq, e.WorkspaceID, e.Content); err != nil {
			return e, fmt.Errorf("insert fts entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return e, fmt.Errorf("commit record: %w", err)
	}
	return e, nil
}

// SetStatus updates the delivery status of a recorded entry.
func (j *Journal) SetStatus(ctx context.Context, id string, status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	res, err := j.db.ExecContext(ctx, `UPDATE entries SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update entry status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update entry status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update entry status: %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (j *Journal) Entries(ctx context.Context, workspaceID string) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, workspace_id, ts, role, content, status
		FROM entries
		WHERE workspace_id = ?
		ORDER BY seq
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, 64)
	for rows.Next() {
		var e Entry
		var ts int64
		var status string
		if err := rows.Scan(&e.ID, &e.WorkspaceID, &ts, &e.Role, &e.Content, &status); err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}
		e.TS = time.UnixMilli(ts)
		e.Status = Status(status)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

// Search ranks workspaces by how many journal entries match query.
func (j *Journal) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	var rows *sql.Rows
	var err error
	if j.ftsEnabled {
		rows, err = j.searchFTS(ctx, query, limit)
		if err != nil {
			rows, err = j.searchLike(ctx, query, limit)
		}
	} else {
		rows, err = j.searchLike(ctx, query, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Hit
	for rows.Next() {
		var h Hit
		var ts int64
		if err := rows.Scan(&h.WorkspaceID, &h.Matches, &ts, &h.Preview); err != nil {
			return nil, fmt.Errorf("scan hit row: %w", err)
		}
		h.LastTS = time.UnixMilli(ts)
		h.Preview = trimPreview(h.Preview)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hits: %w", err)
	}
	return out, nil
}

func (j *Journal) searchFTS(ctx context.Context, query string, limit int) (*sql.Rows, error) {
	ftsQuery := buildFTSQuery(query)
	if ftsQuery == "" {
		return nil, fmt.Errorf("empty fts query")
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT g.workspace_id, g.score, g.last_ts, p.content
		FROM (
			SELECT e.workspace_id, COUNT(*) AS score, MAX(e.ts) AS last_ts, MAX(e.seq) AS last_seq
			FROM entries_fts f
			JOIN entries e ON e.seq = f.rowid
			WHERE entries_fts MATCH ?
			GROUP BY e.workspace_id
		) g
		JOIN entries p ON p.seq = g.last_seq
		ORDER BY g.score DESC, g.last_ts DESC
		LIMIT ?
	`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("fts query failed: %w", err)
	}
	return rows, nil
}

func (j *Journal) searchLike(ctx context.Context, query string, limit int) (*sql.Rows, error) {
	terms := tokenizeSearchTerms(query)
	if len(terms) == 0 {
		terms = []string{strings.ToLower(query)}
	}

	var b strings.Builder
	b.WriteString(`
		SELECT g.workspace_id, g.score, g.last_ts, p.content
		FROM (
			SELECT e.workspace_id, COUNT(*) AS score, MAX(e.ts) AS last_ts, MAX(e.seq) AS last_seq
			FROM entries e
			WHERE `)
	args := make([]any, 0, len(terms)+1)
	for idx, term := range terms {
		if idx > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString("LOWER(e.content) LIKE ?")
		args = append(args, "%"+term+"%")
	}
	b.WriteString(`
			GROUP BY e.workspace_id
		) g
		JOIN entries p ON p.seq = g.last_seq
		ORDER BY g.score DESC, g.last_ts DESC
		LIMIT ?
	`)
	args = append(args, limit)
	rows, err := j.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("like query failed: %w", err)
	}
	return rows, nil
}

func buildFTSQuery(raw string) string {
	parts := tokenizeSearchTerms(raw)
	quoted := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ReplaceAll(p, `"`, "")
		if p == "" {
			continue
		}
		quoted = append(quoted, fmt.Sprintf(`"%s"*`, p))
	}
	return strings.Join(quoted, " AND ")
}

func tokenizeSearchTerms(raw string) []string {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "`\"'.,:;!?()[]{}<>|")
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func trimPreview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= 100 {
		return s
	}
	return string(r[:97]) + "..."
}
