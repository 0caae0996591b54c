// Package store backs the directory and message store with sqlite. The app
// layer only sees the core interfaces, so remote collaborators can replace
// this wiring without touching the realtime core.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/parley-im/parley/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS groups (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS group_members (
	group_id TEXT NOT NULL REFERENCES groups(id),
	user_id  TEXT NOT NULL,
	PRIMARY KEY (group_id, user_id)
);
CREATE TABLE IF NOT EXISTS channels (
	id       TEXT PRIMARY KEY,
	group_id TEXT NOT NULL REFERENCES groups(id),
	name     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id          TEXT PRIMARY KEY,
	channel_id  TEXT NOT NULL REFERENCES channels(id),
	sender_id   TEXT NOT NULL,
	sender_name TEXT NOT NULL,
	kind        TEXT NOT NULL,
	body        TEXT NOT NULL DEFAULT '',
	media_ref   TEXT NOT NULL DEFAULT '',
	sent_at     DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_channel_time ON messages(channel_id, sent_at);
`

// Store implements core.MessageStore and core.Directory over one sqlite
// database.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	log.Info().Str("module", "store").Str("path", path).Msg("sqlite store opened")
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle for seeding fixtures.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Persist(ctx context.Context, ch domain.ChannelID, sender domain.UserID, senderName string, payload domain.MessagePayload) (domain.Message, error) {
	rec := domain.Message{
		ID:             domain.MessageID(uuid.NewString()),
		ChannelID:      ch,
		SenderID:       sender,
		SenderName:     senderName,
		MessagePayload: payload,
		SentAt:         time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, channel_id, sender_id, sender_name, kind, body, media_ref, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rec.ID), string(ch), string(sender), senderName, string(rec.Kind), rec.Text, rec.MediaRef, rec.SentAt)
	if err != nil {
		return domain.Message{}, fmt.Errorf("persist message: %w", err)
	}
	return rec, nil
}

// Recent returns the newest limit messages in chronological order.
func (s *Store) Recent(ctx context.Context, ch domain.ChannelID, limit int) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, channel_id, sender_id, sender_name, kind, body, media_ref, sent_at
		 FROM messages WHERE channel_id = ?
		 ORDER BY sent_at DESC, id DESC LIMIT ?`,
		string(ch), limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.SenderID, &m.SenderName, &m.Kind, &m.Text, &m.MediaRef, &m.SentAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Newest-first from the query; flip to chronological for the client.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) GroupOf(ctx context.Context, ch domain.ChannelID) (domain.GroupID, error) {
	var group string
	err := s.db.QueryRowContext(ctx, `SELECT group_id FROM channels WHERE id = ?`, string(ch)).Scan(&group)
	if err != nil {
		return "", fmt.Errorf("group of channel %s: %w", ch, err)
	}
	return domain.GroupID(group), nil
}

func (s *Store) IsMember(ctx context.Context, group domain.GroupID, user domain.UserID) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM group_members WHERE group_id = ? AND user_id = ?`,
		string(group), string(user)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("membership of %s in %s: %w", user, group, err)
	}
	return n > 0, nil
}

func (s *Store) MembersOf(ctx context.Context, group domain.GroupID) ([]domain.UserID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM group_members WHERE group_id = ?`, string(group))
	if err != nil {
		return nil, fmt.Errorf("members of %s: %w", group, err)
	}
	defer rows.Close()

	var out []domain.UserID
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		out = append(out, domain.UserID(uid))
	}
	return out, rows.Err()
}
