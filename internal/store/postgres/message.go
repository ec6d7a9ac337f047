package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parlorchat/parlor/internal/domain"
)

// Messages persists messages for every surface kind in one table keyed by
// (surface_kind, surface_id).
type Messages struct {
	pool *pgxpool.Pool
}

// List returns one page in ascending id order. The page is anchored at the
// newest end: an optional LastID bound selects messages strictly older than
// it, so repeated calls walk backwards through history. Search filters by
// content containment, case-insensitive.
func (s *Messages) List(ctx context.Context, kind domain.SurfaceKind, surfaceID int64, q domain.MessageQuery) ([]domain.Message, error) {
	sql := `
		SELECT id, author_id, content, sent_at, edited
		FROM messages
		WHERE surface_kind = $1 AND surface_id = $2`
	args := []any{kind, surfaceID}

	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		sql += fmt.Sprintf(" AND content ILIKE $%d", len(args))
	}
	if q.LastID > 0 {
		args = append(args, q.LastID)
		sql += fmt.Sprintf(" AND id < $%d", len(args))
	}
	args = append(args, q.PageSize)
	sql += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.AuthorID, &m.Content, &m.SentAt, &m.Edited); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	// Fetched newest-first for the keyset bound; delivered oldest-first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *Messages) Insert(ctx context.Context, kind domain.SurfaceKind, surfaceID int64, msg domain.Message) (domain.Message, error) {
	var out domain.Message
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (surface_kind, surface_id, author_id, content, sent_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, author_id, content, sent_at, edited
	`, kind, surfaceID, msg.AuthorID, msg.Content).Scan(&out.ID, &out.AuthorID, &out.Content, &out.SentAt, &out.Edited)
	if err != nil {
		return domain.Message{}, fmt.Errorf("insert message: %w", mapErr(err))
	}
	return out, nil
}

// Update rewrites a message's content. Scoped by author in the WHERE
// clause: another user's message behaves as not-found.
func (s *Messages) Update(ctx context.Context, kind domain.SurfaceKind, surfaceID, authorID int64, msg domain.Message) (domain.Message, error) {
	var out domain.Message
	err := s.pool.QueryRow(ctx, `
		UPDATE messages SET content = $5, edited = TRUE
		WHERE surface_kind = $1 AND surface_id = $2 AND id = $3 AND author_id = $4
		RETURNING id, author_id, content, sent_at, edited
	`, kind, surfaceID, msg.ID, authorID, msg.Content).Scan(&out.ID, &out.AuthorID, &out.Content, &out.SentAt, &out.Edited)
	if err != nil {
		return domain.Message{}, fmt.Errorf("update message: %w", mapErr(err))
	}
	return out, nil
}

// Delete removes a message, author-scoped like Update.
func (s *Messages) Delete(ctx context.Context, kind domain.SurfaceKind, surfaceID, authorID, messageID int64) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM messages
		WHERE surface_kind = $1 AND surface_id = $2 AND id = $3 AND author_id = $4
	`, kind, surfaceID, messageID, authorID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete message: %w", domain.ErrNotFound)
	}
	return nil
}
