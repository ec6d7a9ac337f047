package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parlorchat/parlor/internal/domain"
)

type Users struct {
	pool *pgxpool.Pool
}

func (s *Users) Get(ctx context.Context, id int64) (domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_name, first_name, last_name FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.UserName, &u.FirstName, &u.LastName)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", mapErr(err))
	}
	return u, nil
}

func (s *Users) Update(ctx context.Context, u domain.User) (domain.User, error) {
	var out domain.User
	err := s.pool.QueryRow(ctx, `
		UPDATE users SET user_name = $2, first_name = $3, last_name = $4
		WHERE id = $1
		RETURNING id, user_name, first_name, last_name
	`, u.ID, u.UserName, u.FirstName, u.LastName).Scan(&out.ID, &out.UserName, &out.FirstName, &out.LastName)
	if err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", mapErr(err))
	}
	return out, nil
}

func (s *Users) FindByUserName(ctx context.Context, userName string) (domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_name, first_name, last_name FROM users WHERE user_name = $1
	`, userName).Scan(&u.ID, &u.UserName, &u.FirstName, &u.LastName)
	if err != nil {
		return domain.User{}, fmt.Errorf("find user by name: %w", mapErr(err))
	}
	return u, nil
}
