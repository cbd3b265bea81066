package llm

// The Registry routes "provider/model" specs to lazily created clients.
//
//	registry, err := llm.NewRegistry(llm.RegistryConfig{
//	    DefaultProvider: "openai",
//	    Providers:       llm.DefaultProviders,
//	})
//	client, err := registry.GetClient("openai/gpt-4o")
//	client, err := registry.GetClient("openai") // provider default model

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ahrav/go-eyereport/internal/ports"
)

// Registry manages clients for multiple providers with shared default
// middleware and timeout. It implements ports.ClientResolver.
type Registry struct {
	// providers maps provider names to their configuration.
	providers map[string]ProviderConfig
	// clients maps "provider/model" keys to their clients.
	clients map[string]ports.LLMClient
	// defaultProvider is used by GetDefaultClient.
	defaultProvider   string
	defaultMiddleware []Middleware
	defaultTimeout    time.Duration
	mu                sync.RWMutex
}

var _ ports.ClientResolver = (*Registry)(nil)

// ProviderConfig holds provider-specific configuration.
type ProviderConfig struct {
	// Type specifies the provider implementation type (openai, anthropic, google).
	Type string
	// EnvVar names the environment variable holding the API key.
	EnvVar string
	// DefaultModel is used when a spec names only the provider.
	DefaultModel string
	// SupportedModels lists the image-capable models this provider serves.
	// An empty list disables validation.
	SupportedModels []string
	// BaseURL overrides the default API endpoint for the provider.
	BaseURL string
	// Middleware specifies provider-specific middleware.
	Middleware []Middleware
}

// RegistryConfig holds configuration for the provider registry.
type RegistryConfig struct {
	// Providers defines the available providers and their configurations.
	Providers map[string]ProviderConfig
	// DefaultProvider specifies which provider to use when no provider is specified.
	DefaultProvider string
	// DefaultTimeout sets the default request timeout for all providers.
	DefaultTimeout time.Duration
	// DefaultMiddleware specifies default middleware applied to all providers.
	DefaultMiddleware []Middleware
}

// DefaultProviders lists the providers with vision-capable chat models.
var DefaultProviders = map[string]ProviderConfig{
	"openai": {
		Type:         "openai",
		EnvVar:       "OPENAI_API_KEY",
		DefaultModel: "gpt-4o",
		SupportedModels: []string{
			"gpt-4.1", "gpt-4.1-mini", "gpt-4.1-nano",
			"gpt-4o", "gpt-4o-mini",
			"gpt-4-turbo",
			"o4-mini", "o3", "o1",
		},
	},
	"anthropic": {
		Type:         "anthropic",
		EnvVar:       "ANTHROPIC_API_KEY",
		DefaultModel: "claude-sonnet-4-20250514",
		SupportedModels: []string{
			"claude-opus-4-20250514", "claude-sonnet-4-20250514",
			"claude-3-7-sonnet-20250219",
			"claude-3-5-sonnet-20241022", "claude-3-5-haiku-20241022",
		},
	},
	"google": {
		Type:         "google",
		EnvVar:       "GOOGLE_API_KEY",
		DefaultModel: "gemini-2.5-flash",
		SupportedModels: []string{
			"gemini-2.5-pro", "gemini-2.5-flash", "gemini-2.5-flash-lite",
			"gemini-2.0-flash", "gemini-2.0-flash-lite",
			"gemini-1.5-pro", "gemini-1.5-flash",
		},
	},
}

// NewRegistry creates a new provider registry.
func NewRegistry(config RegistryConfig) (*Registry, error) {
	if config.DefaultProvider == "" {
		return nil, fmt.Errorf("default provider cannot be empty")
	}

	if _, exists := config.Providers[config.DefaultProvider]; !exists {
		return nil, fmt.Errorf("default provider %q not found in providers configuration", config.DefaultProvider)
	}

	return &Registry{
		providers:         config.Providers,
		clients:           make(map[string]ports.LLMClient),
		defaultProvider:   config.DefaultProvider,
		defaultMiddleware: config.DefaultMiddleware,
		defaultTimeout:    config.DefaultTimeout,
	}, nil
}

// GetDefaultClient returns a client for the default provider's default model.
func (r *Registry) GetDefaultClient() (ports.LLMClient, error) {
	return r.GetClient(r.defaultProvider)
}

// GetClient retrieves a client by "provider" or "provider/model" spec.
// Clients are created on first use and cached.
func (r *Registry) GetClient(spec string) (ports.LLMClient, error) {
	if spec == "" {
		return nil, fmt.Errorf("provider specification cannot be empty; use GetDefaultClient() for default provider")
	}

	provider, model := r.parseSpec(spec)
	key := buildCacheKey(provider, model)

	r.mu.RLock()
	if client, exists := r.clients[key]; exists {
		r.mu.RUnlock()
		return client, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if client, exists := r.clients[key]; exists {
		return client, nil
	}

	client, err := r.createClient(provider, model)
	if err != nil {
		return nil, err
	}

	r.clients[key] = client
	return client, nil
}

// RegisterClient builds a client from explicit configuration and caches it
// under spec, bypassing environment lookup.
func (r *Registry) RegisterClient(spec string, config ClientConfig) error {
	if spec == "" {
		return fmt.Errorf("client name cannot be empty")
	}

	provider, model := r.parseSpec(spec)
	if config.Model == "" {
		config.Model = model
	}

	providerConfig, exists := r.providers[provider]
	if !exists {
		return fmt.Errorf("unknown provider %q", provider)
	}
	if config.BaseURL == "" {
		config.BaseURL = providerConfig.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = r.defaultTimeout
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	config.Middleware = r.middlewareFor(providerConfig, config.Middleware...)
	client, err := NewClient(providerConfig.Type, config)
	if err != nil {
		return fmt.Errorf("failed to create client %q: %w", spec, err)
	}

	r.clients[buildCacheKey(provider, config.Model)] = client
	return nil
}

// SetClient caches an already-built client under spec. It is how tests and
// custom providers plug into model routing.
func (r *Registry) SetClient(spec string, client ports.LLMClient) {
	provider, model := r.parseSpec(spec)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[buildCacheKey(provider, model)] = client
}

// UpdateDefaultMiddleware appends middleware for clients created after the call.
func (r *Registry) UpdateDefaultMiddleware(middleware ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultMiddleware = append(r.defaultMiddleware, middleware...)
}

// SetDefaultTimeout sets the timeout for clients created after the call.
func (r *Registry) SetDefaultTimeout(timeout time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultTimeout = timeout
}

// ValidateSpec checks that spec names a known provider and, when the
// provider restricts models, a supported one.
func (r *Registry) ValidateSpec(spec string) error {
	provider, model := r.parseSpec(spec)
	providerConfig, ok := r.providers[provider]
	if !ok {
		return fmt.Errorf("unknown provider %q", provider)
	}
	if len(providerConfig.SupportedModels) > 0 && !slices.Contains(providerConfig.SupportedModels, model) {
		return fmt.Errorf("model %q is not supported by provider %q; supported models: %v",
			model, provider, providerConfig.SupportedModels)
	}
	return nil
}

// parseSpec splits "provider/model"; a bare provider takes its default model.
func (r *Registry) parseSpec(spec string) (provider, model string) {
	provider, model, found := strings.Cut(spec, "/")
	if !found {
		if providerConfig, ok := r.providers[provider]; ok {
			model = providerConfig.DefaultModel
		}
	}
	return provider, model
}

func buildCacheKey(provider, model string) string {
	if model == "" {
		return provider
	}
	return provider + "/" + model
}

// createClient reads the API key from the environment and builds a client.
// Callers hold r.mu.
func (r *Registry) createClient(provider, model string) (ports.LLMClient, error) {
	if err := r.ValidateSpec(buildCacheKey(provider, model)); err != nil {
		return nil, err
	}
	providerConfig := r.providers[provider]

	apiKey := os.Getenv(providerConfig.EnvVar)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable not set for provider %q", providerConfig.EnvVar, provider)
	}

	return NewClient(providerConfig.Type, ClientConfig{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    providerConfig.BaseURL,
		Timeout:    r.defaultTimeout,
		Middleware: r.middlewareFor(providerConfig),
	})
}

func (r *Registry) middlewareFor(pc ProviderConfig, extra ...Middleware) []Middleware {
	mw := make([]Middleware, 0, len(r.defaultMiddleware)+len(pc.Middleware)+len(extra))
	mw = append(mw, r.defaultMiddleware...)
	mw = append(mw, pc.Middleware...)
	return append(mw, extra...)
}
