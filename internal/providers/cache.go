package providers

import (
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/anirudhshenoy/nanobot/internal/routing"
)

// noAuthPrefix marks model ids that may construct a client without an API
// key (credentials resolved out of band).
const noAuthPrefix = "bedrock/"

// Cache memoizes backend clients keyed by (provider, model). Clients are
// stateless wrappers around immutable configuration, so entries are never
// evicted or refreshed within a process lifetime. Safe for concurrent use;
// concurrent first uses of the same key construct a single client.
type Cache struct {
	dir             ProviderDirectory
	defaultProvider string
	logger          *slog.Logger

	mu      sync.RWMutex
	clients map[string]Backend
	group   singleflight.Group
}

// NewCache creates a client cache over the given directory. defaultProvider
// is the last-resort provider name when neither the target nor the model
// resolves to one.
func NewCache(dir ProviderDirectory, defaultProvider string, logger *slog.Logger) *Cache {
	return &Cache{
		dir:             dir,
		defaultProvider: defaultProvider,
		logger:          logger.With("component", "client-cache"),
		clients:         make(map[string]Backend),
	}
}

// Get resolves or lazily constructs the client for a target. Returns nil when
// no usable provider configuration exists for it.
func (c *Cache) Get(target routing.Target) Backend {
	providerName := c.resolveProviderName(target)
	if providerName == "" {
		return nil
	}

	key := providerName + "/" + target.Model

	c.mu.RLock()
	client, ok := c.clients[key]
	c.mu.RUnlock()
	if ok {
		return client
	}

	v, _, _ := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		existing, ok := c.clients[key]
		c.mu.RUnlock()
		if ok {
			return existing, nil
		}

		built := c.build(providerName, target.Model)
		if built == nil {
			return nil, nil
		}

		c.mu.Lock()
		c.clients[key] = built
		c.mu.Unlock()
		return built, nil
	})

	if v == nil {
		return nil
	}
	return v.(Backend)
}

func (c *Cache) resolveProviderName(target routing.Target) string {
	if target.Provider != "" {
		return NormalizeName(target.Provider)
	}
	if name := c.dir.ProviderName(target.Model); name != "" {
		return name
	}
	return c.defaultProvider
}

func (c *Cache) build(providerName, model string) Backend {
	settings, ok := c.dir.ProviderByName(providerName)
	if !ok {
		c.logger.Warn("no configuration for provider", "provider", providerName, "model", model)
		return nil
	}
	if settings.APIKey == "" && !strings.HasPrefix(model, noAuthPrefix) {
		c.logger.Warn("provider has no API key", "provider", providerName, "model", model)
		return nil
	}

	settings.APIBase = c.dir.APIBaseForProvider(providerName, model)
	client := NewClient(providerName, model, settings)

	c.logger.Debug("backend client constructed",
		"provider", providerName,
		"model", model,
	)
	return client
}

// Size returns the number of cached clients.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clients)
}
