package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parlorchat/parlor/internal/domain"
)

type Channels struct {
	pool *pgxpool.Pool
}

func (s *Channels) Get(ctx context.Context, id int64) (domain.Channel, error) {
	var ch domain.Channel
	err := s.pool.QueryRow(ctx, `
		SELECT id, server_id, name FROM channels WHERE id = $1
	`, id).Scan(&ch.ID, &ch.ServerID, &ch.Name)
	if err != nil {
		return domain.Channel{}, fmt.Errorf("get channel: %w", mapErr(err))
	}
	return ch, nil
}

func (s *Channels) Insert(ctx context.Context, ch domain.Channel) (domain.Channel, error) {
	var out domain.Channel
	err := s.pool.QueryRow(ctx, `
		INSERT INTO channels (server_id, name) VALUES ($1, $2)
		RETURNING id, server_id, name
	`, ch.ServerID, ch.Name).Scan(&out.ID, &out.ServerID, &out.Name)
	if err != nil {
		return domain.Channel{}, fmt.Errorf("insert channel: %w", mapErr(err))
	}
	return out, nil
}

func (s *Channels) Update(ctx context.Context, ch domain.Channel) (domain.Channel, error) {
	var out domain.Channel
	err := s.pool.QueryRow(ctx, `
		UPDATE channels SET name = $3 WHERE id = $1 AND server_id = $2
		RETURNING id, server_id, name
	`, ch.ID, ch.ServerID, ch.Name).Scan(&out.ID, &out.ServerID, &out.Name)
	if err != nil {
		return domain.Channel{}, fmt.Errorf("update channel: %w", mapErr(err))
	}
	return out, nil
}

func (s *Channels) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete channel: %w", domain.ErrNotFound)
	}
	return nil
}
