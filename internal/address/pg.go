package address

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct{ DB *pgxpool.Pool }

func (s *PgStore) GetAddress(ctx context.Context, id string) (Address, error) {
	var a Address
	err := s.DB.QueryRow(ctx, `
		SELECT id, user_id, recipient, phone, street, city, province, postal_code
		FROM addresses WHERE id=$1`, id).
		Scan(&a.ID, &a.UserID, &a.Recipient, &a.Phone, &a.Street, &a.City, &a.Province, &a.PostalCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return Address{}, ErrNotFound
	}
	if err != nil {
		return Address{}, err
	}
	return a, nil
}
