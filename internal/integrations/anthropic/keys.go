package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// KeySource yields the provider API key.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// Getter is satisfied by paramstore.Client.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// StaticKey is a key supplied directly, usually from ANTHROPIC_API_KEY.
type StaticKey string

func (k StaticKey) APIKey(context.Context) (string, error) {
	key := strings.TrimSpace(string(k))
	if key == "" {
		return "", errors.New("anthropic: API key is empty")
	}
	return key, nil
}

// ParamStoreKey loads the key from SSM on first use and caches it for the
// life of the process. Failed loads are not cached.
type ParamStoreKey struct {
	getter Getter
	name   string

	group singleflight.Group
	mu    sync.RWMutex
	key   string
}

func NewParamStoreKey(getter Getter, name string) (*ParamStoreKey, error) {
	if getter == nil {
		return nil, errors.New("anthropic: paramstore getter must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("anthropic: key parameter name must not be empty")
	}
	return &ParamStoreKey{getter: getter, name: name}, nil
}

func (p *ParamStoreKey) APIKey(ctx context.Context) (string, error) {
	p.mu.RLock()
	key := p.key
	p.mu.RUnlock()
	if key != "" {
		return key, nil
	}

	v, err, _ := p.group.Do(p.name, func() (any, error) {
		p.mu.RLock()
		cached := p.key
		p.mu.RUnlock()
		if cached != "" {
			return cached, nil
		}

		raw, err := p.getter.GetParameter(ctx, p.name)
		if err != nil {
			return "", fmt.Errorf("anthropic: fetch key from paramstore: %w", err)
		}
		key, err := parseStoredKey(raw)
		if err != nil {
			return "", err
		}
		p.mu.Lock()
		p.key = key
		p.mu.Unlock()
		return key, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

type tokenPayload struct {
	Token string `json:"token"`
}

// parseStoredKey accepts either {"token":"..."} or the bare key.
func parseStoredKey(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") {
		var tp tokenPayload
		if err := json.Unmarshal([]byte(raw), &tp); err != nil {
			return "", fmt.Errorf("anthropic: unmarshal paramstore key value as JSON: %w", err)
		}
		raw = strings.TrimSpace(tp.Token)
	}
	if raw == "" {
		return "", errors.New("anthropic: API key is empty")
	}
	return raw, nil
}
