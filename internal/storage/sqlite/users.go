package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hucha/internal/core"
)

func (r *Repository) GetUserByToken(ctx context.Context, token string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, token FROM users WHERE token = ?`, token).
		Scan(&u.ID, &u.Name, &u.Token)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by token: %w", err)
	}
	return u, nil
}

func (r *Repository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (name, token) VALUES (?, ?) RETURNING id`, u.Name, u.Token).
		Scan(&u.ID)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, token FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Token); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
