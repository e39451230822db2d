package embedding

import "context"

// MockProvider is a configurable mock for testing code that needs
// embeddings. Set EmbedFunc to control behavior in tests.
type MockProvider struct {
	// EmbedFunc is called when Embed is invoked. If nil, returns a zero
	// vector of Dims length.
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)

	// Dims is returned by Dimensions. Defaults to 384.
	Dims int

	// ModelName is returned by Model. Defaults to "mock-embedding".
	ModelName string

	// EmbedCalls counts Embed invocations for verification.
	EmbedCalls int
}

// NewMockProvider creates a new mock with sensible defaults.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Dims:      384,
		ModelName: "mock-embedding",
	}
}

// Embed implements Provider.
func (m *MockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	m.EmbedCalls++
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return make([]float32, m.Dims), nil
}

// Dimensions implements Provider.
func (m *MockProvider) Dimensions() int {
	return m.Dims
}

// Model implements Provider.
func (m *MockProvider) Model() string {
	return m.ModelName
}

// Ensure MockProvider implements Provider at compile time.
var _ Provider = (*MockProvider)(nil)
