package generation

import (
	"context"
	"fmt"
	"strings"

	"z-novel-copilot/internal/domain/repository"
	"z-novel-copilot/internal/domain/service"
	apperrors "z-novel-copilot/pkg/errors"
)

// Decrypter API Key 解密
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// ProviderCredentials 基于 providers 表的凭据解析
type ProviderCredentials struct {
	repo            repository.ProviderRepository
	keys            Decrypter
	defaultProvider string
}

// NewProviderCredentials 创建凭据解析器；providerID 为空时使用 defaultProvider
func NewProviderCredentials(repo repository.ProviderRepository, keys Decrypter, defaultProvider string) *ProviderCredentials {
	return &ProviderCredentials{repo: repo, keys: keys, defaultProvider: defaultProvider}
}

// Resolve 实现 service.CredentialResolver
func (p *ProviderCredentials) Resolve(ctx context.Context, providerID string) (*service.ResolvedProvider, error) {
	id := strings.TrimSpace(providerID)
	if id == "" {
		id = p.defaultProvider
	}

	provider, err := p.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "Failed to load provider")
	}
	if provider == nil {
		return nil, apperrors.New(apperrors.CodeProviderNotFound, fmt.Sprintf("Provider with id %s not found", id))
	}

	var credential string
	if provider.APIKeyCipher != "" {
		credential, err = p.keys.Decrypt(provider.APIKeyCipher)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeCredentialInvalid, "Failed to decrypt API key")
		}
	}

	return &service.ResolvedProvider{
		ProviderID: provider.ID,
		Type:       provider.Type,
		Endpoint:   provider.BaseURL,
		Credential: credential,
		Model:      provider.Model,
		MaxTokens:  provider.MaxTokens,
	}, nil
}
