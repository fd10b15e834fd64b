package ticket

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/deskbot-io/deskbot/pkg/protocol"
)

// SQLiteStore implements Store using a local SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	ids *IDSource
	loc *time.Location
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(path string, loc *time.Location) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ticket store: open: %w", err)
	}

	// WAL for concurrent reads from the API server
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ticket store: wal: %w", err)
	}

	if loc == nil {
		loc = time.Local
	}
	s := &SQLiteStore{db: db, ids: NewIDSource(loc), loc: loc}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tickets (
			id          TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			requester   TEXT NOT NULL,
			client      TEXT NOT NULL,
			status      TEXT NOT NULL,
			created_at  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS ticket_comments (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			ticket_id   TEXT NOT NULL REFERENCES tickets(id),
			author      TEXT NOT NULL,
			body        TEXT NOT NULL,
			highlighted INTEGER NOT NULL DEFAULT 0,
			created_at  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_comments_ticket ON ticket_comments(ticket_id);
		CREATE INDEX IF NOT EXISTS idx_tickets_client_status ON tickets(client, status);
	`)
	if err != nil {
		return fmt.Errorf("ticket store: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Create(ctx context.Context, requester, description, client string) (string, error) {
	if description == "" {
		description = "Sem descrição"
	}
	id := s.ids.Next()
	now := time.Now().In(s.loc)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tickets (id, description, requester, client, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, description, requester, client, string(protocol.TicketInProgress), now.Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("ticket store: create: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) Description(ctx context.Context, id string) (string, error) {
	var desc string
	err := s.db.QueryRowContext(ctx, `SELECT description FROM tickets WHERE id = ?`, id).Scan(&desc)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("ticket %q not found", id)
	}
	if err != nil {
		return "", fmt.Errorf("ticket store: description: %w", err)
	}
	return desc, nil
}

func (s *SQLiteStore) UpdateFields(ctx context.Context, id string, fields Fields) error {
	query := "UPDATE tickets SET id = id"
	var args []any
	if fields.Description != nil {
		query += ", description = ?"
		args = append(args, *fields.Description)
	}
	if fields.Status != nil {
		query += ", status = ?"
		args = append(args, string(*fields.Status))
	}
	if len(args) == 0 {
		return nil
	}
	query += " WHERE id = ?"
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ticket store: update: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("ticket %q not found", id)
	}
	return nil
}

func (s *SQLiteStore) AppendComment(ctx context.Context, id, author, text string, highlighted bool) error {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("ticket store: append comment: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("ticket %q not found", id)
	}

	flag := 0
	if highlighted {
		flag = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ticket_comments (ticket_id, author, body, highlighted, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, author, text, flag, time.Now().In(s.loc).Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("ticket store: append comment: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListOpen(ctx context.Context, client string) ([]protocol.TicketRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description FROM tickets
		WHERE client = ? AND status = ?
		ORDER BY id
	`, client, string(protocol.TicketInProgress))
	if err != nil {
		return nil, fmt.Errorf("ticket store: list open: %w", err)
	}
	defer rows.Close()

	var refs []protocol.TicketRef
	for rows.Next() {
		var ref protocol.TicketRef
		var desc string
		if err := rows.Scan(&ref.ID, &desc); err != nil {
			return nil, fmt.Errorf("ticket store: list scan: %w", err)
		}
		ref.ShortDescription = shorten(desc)
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (s *SQLiteStore) History(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT author, body, highlighted, created_at FROM ticket_comments
		WHERE ticket_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("ticket store: history: %w", err)
	}
	defer rows.Close()

	var blocks []string
	for rows.Next() {
		var author, body, createdAt string
		var highlighted int
		if err := rows.Scan(&author, &body, &highlighted, &createdAt); err != nil {
			return nil, fmt.Errorf("ticket store: history scan: %w", err)
		}

		ts := createdAt
		if parsed, err := time.Parse(time.RFC3339, createdAt); err == nil {
			ts = parsed.In(s.loc).Format("02/01 15:04")
		}
		if highlighted != 0 {
			blocks = append(blocks,
				fmt.Sprintf("🤖 Resumo IA (%s)\n%s\n━━━━━━━━━━━━━━━━", ts, body))
		} else {
			blocks = append(blocks,
				fmt.Sprintf("💬 %s - %s:\n%s", ts, author, body))
		}
	}
	return blocks, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
