package llm

import (
	"context"

	"github.com/sayandkrishna/querypilot/pkg/models"
)

// MockChatClient is a configurable mock for testing the generator.
// Set CompleteFunc to control behavior in tests.
type MockChatClient struct {
	// CompleteFunc is called when Complete is invoked. If nil, returns
	// an empty JSON object.
	CompleteFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	// CompleteCalls counts Complete invocations for verification.
	CompleteCalls int
}

// NewMockChatClient creates a new mock with sensible defaults.
func NewMockChatClient() *MockChatClient {
	return &MockChatClient{ModelName: "mock-model"}
}

// Complete implements ChatClient.
func (m *MockChatClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.CompleteCalls++
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, systemPrompt, userPrompt)
	}
	return "{}", nil
}

// Model implements ChatClient.
func (m *MockChatClient) Model() string {
	return m.ModelName
}

// MockGenerator is a configurable Generator for pipeline tests.
type MockGenerator struct {
	// GenerateSQLFunc is called when GenerateSQL is invoked. If nil,
	// returns an empty query.
	GenerateSQLFunc func(ctx context.Context, question string, snapshot *models.SchemaSnapshot, history []models.HistoryTurn) (*GeneratedQuery, error)

	// GenerateSQLCalls counts invocations for verification.
	GenerateSQLCalls int
}

// GenerateSQL implements Generator.
func (m *MockGenerator) GenerateSQL(ctx context.Context, question string, snapshot *models.SchemaSnapshot, history []models.HistoryTurn) (*GeneratedQuery, error) {
	m.GenerateSQLCalls++
	if m.GenerateSQLFunc != nil {
		return m.GenerateSQLFunc(ctx, question, snapshot, history)
	}
	return &GeneratedQuery{}, nil
}

// Ensure mocks implement their interfaces at compile time.
var (
	_ ChatClient = (*MockChatClient)(nil)
	_ Generator  = (*MockGenerator)(nil)
)
