package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parlorchat/parlor/internal/domain"
)

type PrivateGroups struct {
	pool *pgxpool.Pool
}

func (s *PrivateGroups) Get(ctx context.Context, id int64) (domain.PrivateGroup, error) {
	var pg domain.PrivateGroup
	err := s.pool.QueryRow(ctx, `
		SELECT id, name FROM private_groups WHERE id = $1
	`, id).Scan(&pg.ID, &pg.Name)
	if err != nil {
		return domain.PrivateGroup{}, fmt.Errorf("get private group: %w", mapErr(err))
	}
	return pg, nil
}

func (s *PrivateGroups) IsMember(ctx context.Context, userID, groupID int64) (bool, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(1) FROM private_group_members
		WHERE user_id = $1 AND private_group_id = $2
	`, userID, groupID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check private group membership: %w", err)
	}
	return count == 1, nil
}
