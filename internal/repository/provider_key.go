package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/berndkaliwes-ai/Docker-lsg/internal/domain"
)

type ProviderKeyRepository struct {
	db *sql.DB
}

func NewProviderKeyRepository(db *sql.DB) *ProviderKeyRepository {
	return &ProviderKeyRepository{db: db}
}

func (r *ProviderKeyRepository) List(ctx context.Context) ([]domain.ProviderKey, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, provider_name, encrypted_key, created_at, updated_at
		FROM provider_keys
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []domain.ProviderKey
	for rows.Next() {
		var key domain.ProviderKey
		if err := rows.Scan(&key.ID, &key.ProviderName, &key.EncryptedKey, &key.CreatedAt, &key.UpdatedAt); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (r *ProviderKeyRepository) Upsert(ctx context.Context, provider, encrypted string) (domain.ProviderKey, error) {
	now := time.Now().UTC()
	var existing domain.ProviderKey
	err := r.db.QueryRowContext(ctx, `
		SELECT id, provider_name, encrypted_key, created_at, updated_at
		FROM provider_keys
		WHERE provider_name = $1
	`, provider).Scan(&existing.ID, &existing.ProviderName, &existing.EncryptedKey, &existing.CreatedAt, &existing.UpdatedAt)

	if err == sql.ErrNoRows {
		existing = domain.ProviderKey{
			ID:           uuid.NewString(),
			ProviderName: provider,
			EncryptedKey: encrypted,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO provider_keys (id, provider_name, encrypted_key, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`, existing.ID, existing.ProviderName, existing.EncryptedKey, existing.CreatedAt, existing.UpdatedAt)
		return existing, err
	}

	if err != nil {
		return domain.ProviderKey{}, err
	}

	existing.EncryptedKey = encrypted
	existing.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		UPDATE provider_keys
		SET encrypted_key = $1, updated_at = $2
		WHERE id = $3
	`, existing.EncryptedKey, existing.UpdatedAt, existing.ID)
	return existing, err
}

func (r *ProviderKeyRepository) Delete(ctx context.Context, provider string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM provider_keys WHERE provider_name = $1`, provider)
	return err
}

func (r *ProviderKeyRepository) GetByProvider(ctx context.Context, provider string) (domain.ProviderKey, error) {
	var key domain.ProviderKey
	err := r.db.QueryRowContext(ctx, `
		SELECT id, provider_name, encrypted_key, created_at, updated_at
		FROM provider_keys
		WHERE provider_name = $1
	`, provider).Scan(&key.ID, &key.ProviderName, &key.EncryptedKey, &key.CreatedAt, &key.UpdatedAt)
	return key, err
}
