package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parlorchat/parlor/internal/domain"
)

// Invitations persists server invitations. Server name is denormalized at
// insert so listing a user's invitations needs no join.
type Invitations struct {
	pool *pgxpool.Pool
}

func (s *Invitations) Get(ctx context.Context, id int64) (domain.Invitation, error) {
	var inv domain.Invitation
	err := s.pool.QueryRow(ctx, `
		SELECT id, server_id, server_name, sender_id, receiver_id, accepted, sent_at
		FROM invitations WHERE id = $1
	`, id).Scan(&inv.ID, &inv.ServerID, &inv.ServerName, &inv.SenderID, &inv.ReceiverID, &inv.Accepted, &inv.SentAt)
	if err != nil {
		return domain.Invitation{}, fmt.Errorf("get invitation: %w", mapErr(err))
	}
	return inv, nil
}

func (s *Invitations) Insert(ctx context.Context, inv domain.Invitation) (domain.Invitation, error) {
	var out domain.Invitation
	err := s.pool.QueryRow(ctx, `
		INSERT INTO invitations (server_id, server_name, sender_id, receiver_id, sent_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, server_id, server_name, sender_id, receiver_id, accepted, sent_at
	`, inv.ServerID, inv.ServerName, inv.SenderID, inv.ReceiverID).
		Scan(&out.ID, &out.ServerID, &out.ServerName, &out.SenderID, &out.ReceiverID, &out.Accepted, &out.SentAt)
	if err != nil {
		return domain.Invitation{}, fmt.Errorf("insert invitation: %w", mapErr(err))
	}
	return out, nil
}

func (s *Invitations) ListForUser(ctx context.Context, userID int64) ([]domain.Invitation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, server_id, server_name, sender_id, receiver_id, accepted, sent_at
		FROM invitations
		WHERE receiver_id = $1 AND resolved_at IS NULL
		ORDER BY sent_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	var invs []domain.Invitation
	for rows.Next() {
		var inv domain.Invitation
		if err := rows.Scan(&inv.ID, &inv.ServerID, &inv.ServerName, &inv.SenderID, &inv.ReceiverID, &inv.Accepted, &inv.SentAt); err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		invs = append(invs, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invs, nil
}

func (s *Invitations) HasPending(ctx context.Context, serverID, receiverID int64) (bool, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(1) FROM invitations
		WHERE server_id = $1 AND receiver_id = $2 AND resolved_at IS NULL
	`, serverID, receiverID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check pending invitation: %w", err)
	}
	return count > 0, nil
}

// Resolve records the accept/decline decision. Resolving twice behaves as
// not-found since the first resolution stamps resolved_at.
func (s *Invitations) Resolve(ctx context.Context, id int64, accepted bool) (domain.Invitation, error) {
	var inv domain.Invitation
	err := s.pool.QueryRow(ctx, `
		UPDATE invitations SET accepted = $2, resolved_at = now()
		WHERE id = $1 AND resolved_at IS NULL
		RETURNING id, server_id, server_name, sender_id, receiver_id, accepted, sent_at
	`, id, accepted).Scan(&inv.ID, &inv.ServerID, &inv.ServerName, &inv.SenderID, &inv.ReceiverID, &inv.Accepted, &inv.SentAt)
	if err != nil {
		return domain.Invitation{}, fmt.Errorf("resolve invitation: %w", mapErr(err))
	}
	return inv, nil
}
