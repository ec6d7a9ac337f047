package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parlorchat/parlor/internal/domain"
)

type Servers struct {
	pool *pgxpool.Pool
}

// Insert creates a server and the owner's subscription in one transaction,
// so a server can never exist without its owner subscribed.
func (s *Servers) Insert(ctx context.Context, name string, ownerID int64) (domain.Server, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Server{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var srv domain.Server
	if err := tx.QueryRow(ctx, `
		INSERT INTO servers (name) VALUES ($1)
		RETURNING id, name
	`, name).Scan(&srv.ID, &srv.Name); err != nil {
		return domain.Server{}, fmt.Errorf("insert server: %w", mapErr(err))
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO subscriptions (user_id, server_id) VALUES ($1, $2)
	`, ownerID, srv.ID); err != nil {
		return domain.Server{}, fmt.Errorf("insert owner subscription: %w", mapErr(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Server{}, fmt.Errorf("commit: %w", err)
	}
	return srv, nil
}

func (s *Servers) Get(ctx context.Context, id int64) (domain.Server, error) {
	var srv domain.Server
	err := s.pool.QueryRow(ctx, `
		SELECT id, name FROM servers WHERE id = $1
	`, id).Scan(&srv.ID, &srv.Name)
	if err != nil {
		return domain.Server{}, fmt.Errorf("get server: %w", mapErr(err))
	}
	return srv, nil
}

func (s *Servers) Update(ctx context.Context, srv domain.Server) (domain.Server, error) {
	var out domain.Server
	err := s.pool.QueryRow(ctx, `
		UPDATE servers SET name = $2 WHERE id = $1
		RETURNING id, name
	`, srv.ID, srv.Name).Scan(&out.ID, &out.Name)
	if err != nil {
		return domain.Server{}, fmt.Errorf("update server: %w", mapErr(err))
	}
	return out, nil
}

func (s *Servers) IsSubscribed(ctx context.Context, userID, serverID int64) (bool, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(1) FROM subscriptions WHERE user_id = $1 AND server_id = $2
	`, userID, serverID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check subscription: %w", err)
	}
	return count == 1, nil
}

func (s *Servers) InsertSubscription(ctx context.Context, userID, serverID int64) (domain.Subscription, error) {
	var sub domain.Subscription
	err := s.pool.QueryRow(ctx, `
		INSERT INTO subscriptions (user_id, server_id) VALUES ($1, $2)
		RETURNING id, user_id, server_id
	`, userID, serverID).Scan(&sub.ID, &sub.UserID, &sub.ServerID)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("insert subscription: %w", mapErr(err))
	}
	return sub, nil
}

func (s *Servers) DeleteSubscription(ctx context.Context, serverID, subscriptionID int64) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM subscriptions WHERE id = $1 AND server_id = $2
	`, subscriptionID, serverID)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete subscription: %w", domain.ErrNotFound)
	}
	return nil
}
