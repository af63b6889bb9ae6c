package db

import (
	"context"

	"komunitas/pendataan/internal/model"
)

func (s *Store) CreateAccount(ctx context.Context, account model.Account) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, account.ID, account.Email, account.PasswordHash, string(account.Role), account.CreatedAt)
	return mapError(err)
}

func (s *Store) GetAccount(ctx context.Context, id string) (model.Account, error) {
	return getAccount(ctx, s.pool, `WHERE id = $1`, id)
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (model.Account, error) {
	return getAccount(ctx, s.pool, `WHERE email = $1`, email)
}

func getAccount(ctx context.Context, q querier, where string, arg string) (model.Account, error) {
	var account model.Account
	var role string
	row := q.QueryRow(ctx, `
		SELECT id, email, password_hash, role, created_at
		FROM accounts
		`+where, arg)
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&role,
		&account.CreatedAt,
	)
	account.Role = model.Role(role)
	return account, mapError(err)
}
