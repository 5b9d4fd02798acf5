package generation

import (
	"context"
	"errors"
	"testing"

	"z-novel-copilot/internal/domain/entity"
	apperrors "z-novel-copilot/pkg/errors"
)

type stubProviders map[string]*entity.Provider

func (s stubProviders) GetByID(_ context.Context, id string) (*entity.Provider, error) {
	return s[id], nil
}

func (s stubProviders) List(context.Context) ([]*entity.Provider, error) { return nil, nil }

func (s stubProviders) Upsert(context.Context, *entity.Provider) error { return nil }

type reverseDecrypter struct{ fail bool }

func (d reverseDecrypter) Decrypt(ciphertext string) (string, error) {
	if d.fail {
		return "", errors.New("bad box")
	}
	r := []rune(ciphertext)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r), nil
}

func TestProviderCredentials_Resolve(t *testing.T) {
	providers := stubProviders{
		"openai": {ID: "openai", Type: entity.ProviderOpenAI, BaseURL: "https://example.test/v1", Model: "m1", APIKeyCipher: "yek", MaxTokens: 1024},
		"local":  {ID: "local", Type: entity.ProviderOpenAI, Model: "m2"},
	}
	creds := NewProviderCredentials(providers, reverseDecrypter{}, "openai")

	got, err := creds.Resolve(context.Background(), " ")
	if err != nil {
		t.Fatalf("Resolve(default) error: %v", err)
	}
	if got.ProviderID != "openai" || got.Credential != "key" || got.Endpoint != "https://example.test/v1" || got.MaxTokens != 1024 {
		t.Fatalf("resolved = %+v", got)
	}

	got, err = creds.Resolve(context.Background(), "local")
	if err != nil || got.Credential != "" {
		t.Fatalf("Resolve(local) = %+v, %v", got, err)
	}
}

func TestProviderCredentials_Errors(t *testing.T) {
	providers := stubProviders{"openai": {ID: "openai", Type: entity.ProviderOpenAI, APIKeyCipher: "x"}}

	_, err := NewProviderCredentials(providers, reverseDecrypter{}, "openai").Resolve(context.Background(), "nope")
	if !apperrors.IsCode(err, apperrors.CodeProviderNotFound) {
		t.Fatalf("unknown provider error = %v", err)
	}

	_, err = NewProviderCredentials(providers, reverseDecrypter{fail: true}, "openai").Resolve(context.Background(), "openai")
	if !apperrors.IsCode(err, apperrors.CodeCredentialInvalid) {
		t.Fatalf("decrypt failure error = %v", err)
	}
}
