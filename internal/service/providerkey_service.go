package service

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/berndkaliwes-ai/Docker-lsg/internal/domain"
	"github.com/berndkaliwes-ai/Docker-lsg/internal/repository"
)

// ProviderKeyService stores speech-to-text API keys AES-GCM-encrypted
// in the ledger. The cipher key is derived from the configured
// encryption secret with SHA-256.
type ProviderKeyService struct {
	repo *repository.ProviderKeyRepository
	key  []byte
}

func NewProviderKeyService(repo *repository.ProviderKeyRepository, encryptionKey string) *ProviderKeyService {
	hashed := sha256.Sum256([]byte(encryptionKey))
	return &ProviderKeyService{
		repo: repo,
		key:  hashed[:],
	}
}

func (s *ProviderKeyService) List(ctx context.Context) ([]domain.ProviderKey, error) {
	return s.repo.List(ctx)
}

func (s *ProviderKeyService) Upsert(ctx context.Context, provider, plaintext string) (domain.ProviderKey, error) {
	encrypted, err := s.encrypt(plaintext)
	if err != nil {
		return domain.ProviderKey{}, err
	}
	return s.repo.Upsert(ctx, provider, encrypted)
}

func (s *ProviderKeyService) Delete(ctx context.Context, provider string) error {
	return s.repo.Delete(ctx, provider)
}

func (s *ProviderKeyService) GetDecrypted(ctx context.Context, provider string) (string, error) {
	record, err := s.repo.GetByProvider(ctx, provider)
	if err != nil {
		return "", err
	}
	return s.decrypt(record.EncryptedKey)
}

func (s *ProviderKeyService) encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (s *ProviderKeyService) decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// KeyResolver feeds decrypted provider keys to the transcriber, falling
// back to the environment-configured key. With a custom base URL and no
// key at all it resolves to empty, since local STT servers accept
// anonymous requests.
type KeyResolver struct {
	keys       *ProviderKeyService
	fallback   string
	allowEmpty bool
}

func NewKeyResolver(keys *ProviderKeyService, fallback string, allowEmpty bool) *KeyResolver {
	return &KeyResolver{keys: keys, fallback: fallback, allowEmpty: allowEmpty}
}

func (r *KeyResolver) Resolve(ctx context.Context, provider string) (string, error) {
	if r.keys != nil {
		key, err := r.keys.GetDecrypted(ctx, provider)
		if err == nil && key != "" {
			return key, nil
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
	}
	if r.fallback != "" {
		return r.fallback, nil
	}
	if r.allowEmpty {
		return "", nil
	}
	return "", fmt.Errorf("%w: %s", ErrMissingAPIKey, provider)
}
