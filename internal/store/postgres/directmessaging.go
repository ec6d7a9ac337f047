package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parlorchat/parlor/internal/domain"
)

// DirectThreads persists one-to-one threads. A unique index on the ordered
// pair (LEAST, GREATEST) guarantees at most one thread per unordered pair
// even under concurrent creation.
type DirectThreads struct {
	pool *pgxpool.Pool
}

func (s *DirectThreads) Get(ctx context.Context, id int64) (domain.DirectMessaging, error) {
	var dm domain.DirectMessaging
	err := s.pool.QueryRow(ctx, `
		SELECT id, first_participant_id, second_participant_id
		FROM direct_messagings WHERE id = $1
	`, id).Scan(&dm.ID, &dm.FirstParticipantID, &dm.SecondParticipantID)
	if err != nil {
		return domain.DirectMessaging{}, fmt.Errorf("get direct messaging: %w", mapErr(err))
	}
	return dm, nil
}

func (s *DirectThreads) FindByParticipants(ctx context.Context, firstID, secondID int64) (domain.DirectMessaging, error) {
	var dm domain.DirectMessaging
	err := s.pool.QueryRow(ctx, `
		SELECT id, first_participant_id, second_participant_id
		FROM direct_messagings
		WHERE LEAST(first_participant_id, second_participant_id) = LEAST($1::bigint, $2::bigint)
		  AND GREATEST(first_participant_id, second_participant_id) = GREATEST($1::bigint, $2::bigint)
	`, firstID, secondID).Scan(&dm.ID, &dm.FirstParticipantID, &dm.SecondParticipantID)
	if err != nil {
		return domain.DirectMessaging{}, fmt.Errorf("find direct messaging: %w", mapErr(err))
	}
	return dm, nil
}

func (s *DirectThreads) Insert(ctx context.Context, firstID, secondID int64) (domain.DirectMessaging, error) {
	var dm domain.DirectMessaging
	err := s.pool.QueryRow(ctx, `
		INSERT INTO direct_messagings (first_participant_id, second_participant_id)
		VALUES ($1, $2)
		RETURNING id, first_participant_id, second_participant_id
	`, firstID, secondID).Scan(&dm.ID, &dm.FirstParticipantID, &dm.SecondParticipantID)
	if err != nil {
		return domain.DirectMessaging{}, fmt.Errorf("insert direct messaging: %w", mapErr(err))
	}
	return dm, nil
}
