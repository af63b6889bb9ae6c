package sqlite

import (
	"context"

	"komunitas/pendataan/internal/model"
)

func (s *Store) CreateAccount(ctx context.Context, account model.Account) error {
	return mapError(s.db.WithContext(ctx).Create(&account).Error)
}

func (s *Store) GetAccount(ctx context.Context, id string) (model.Account, error) {
	var account model.Account
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	return account, mapError(err)
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (model.Account, error) {
	var account model.Account
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&account).Error
	return account, mapError(err)
}
