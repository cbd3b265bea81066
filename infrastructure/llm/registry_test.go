package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(RegistryConfig{
		DefaultProvider: "openai",
		Providers:       DefaultProviders,
		DefaultTimeout:  30 * time.Second,
	})
	require.NoError(t, err)
	return r
}

func TestNewRegistry(t *testing.T) {
	_, err := NewRegistry(RegistryConfig{Providers: DefaultProviders})
	assert.Error(t, err)

	_, err = NewRegistry(RegistryConfig{DefaultProvider: "missing", Providers: DefaultProviders})
	assert.Error(t, err)

	r := testRegistry(t)
	assert.NotNil(t, r)
}

func TestRegistry_GetClientFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	r := testRegistry(t)

	client, err := r.GetClient("openai/gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", client.GetModel())

	again, err := r.GetClient("openai/gpt-4o-mini")
	require.NoError(t, err)
	assert.Same(t, client, again)

	def, err := r.GetDefaultClient()
	require.NoError(t, err)
	assert.Equal(t, DefaultProviders["openai"].DefaultModel, def.GetModel())
}

func TestRegistry_GetClientErrors(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	r := testRegistry(t)

	tests := []struct {
		spec    string
		wantErr string
	}{
		{spec: "", wantErr: "cannot be empty"},
		{spec: "mistral/large", wantErr: `unknown provider "mistral"`},
		{spec: "openai/gpt-3.5-turbo", wantErr: "is not supported"},
		{spec: "anthropic", wantErr: "ANTHROPIC_API_KEY environment variable not set"},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			_, err := r.GetClient(tt.spec)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRegistry_SetClient(t *testing.T) {
	r := testRegistry(t)
	mock := NewMockCoreLLM()
	mock.Model = "gpt-4o"
	r.SetClient("openai/gpt-4o", NewClientFromCore(mock))

	client, err := r.GetClient("openai/gpt-4o")
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), userRequest("x"))
	require.NoError(t, err)
	assert.Equal(t, "test response", resp.Text)
	assert.Equal(t, 1, mock.GetCallCount())
}

func TestRegistry_RegisterClient(t *testing.T) {
	r := testRegistry(t)

	require.NoError(t, r.RegisterClient("anthropic/claude-3-5-haiku-20241022", ClientConfig{APIKey: "abc"}))

	client, err := r.GetClient("anthropic/claude-3-5-haiku-20241022")
	require.NoError(t, err)
	assert.Equal(t, "claude-3-5-haiku-20241022", client.GetModel())

	assert.Error(t, r.RegisterClient("nope/x", ClientConfig{APIKey: "abc"}))
	assert.Error(t, r.RegisterClient("", ClientConfig{APIKey: "abc"}))
}

func TestRegistry_ValidateSpec(t *testing.T) {
	r := testRegistry(t)
	assert.NoError(t, r.ValidateSpec("openai/gpt-4o"))
	assert.NoError(t, r.ValidateSpec("anthropic"))
	assert.Error(t, r.ValidateSpec("openai/davinci"))
	assert.Error(t, r.ValidateSpec("unknown/model"))
}
