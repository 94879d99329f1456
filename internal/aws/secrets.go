package aws

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Secrets resolves Secrets Manager values and caches them for the process lifetime.
type Secrets struct {
	client SecretsAPI
	mu     sync.RWMutex
	cache  map[string]string
}

func NewSecrets(client SecretsAPI) *Secrets {
	return &Secrets{client: client, cache: map[string]string{}}
}

// Get returns the string value of the secret identified by name or ARN.
func (s *Secrets) Get(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	if v, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return v, nil
	}
	s.mu.RUnlock()

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: &name})
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}

	s.mu.Lock()
	s.cache[name] = *out.SecretString
	s.mu.Unlock()
	return *out.SecretString, nil
}
