package handlers

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sayandkrishna/querypilot/pkg/auth"
	"github.com/sayandkrishna/querypilot/pkg/models"
	"github.com/sayandkrishna/querypilot/pkg/pipeline"
)

// authenticated attaches validated claims to a request, bypassing the
// middleware in handler unit tests.
func authenticated(r *http.Request, userID uuid.UUID) *http.Request {
	claims := &auth.Claims{
		Username:         "tester",
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String()},
	}
	return r.WithContext(context.WithValue(r.Context(), auth.ClaimsKey, claims))
}

type mockUserRepo struct {
	CreateFunc        func(ctx context.Context, user *models.User) error
	GetByUsernameFunc func(ctx context.Context, username string) (*models.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, nil
}

type mockDBConfigRepo struct {
	SaveFunc   func(ctx context.Context, cfg *models.DatabaseConfig) error
	GetFunc    func(ctx context.Context, userID uuid.UUID, name string) (*models.DatabaseConfig, error)
	ListFunc   func(ctx context.Context, userID uuid.UUID) ([]*models.DatabaseConfig, error)
	DeleteFunc func(ctx context.Context, userID uuid.UUID, name string) error
}

func (m *mockDBConfigRepo) Save(ctx context.Context, cfg *models.DatabaseConfig) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, cfg)
	}
	return nil
}

func (m *mockDBConfigRepo) Get(ctx context.Context, userID uuid.UUID, name string) (*models.DatabaseConfig, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID, name)
	}
	return &models.DatabaseConfig{UserID: userID, Name: name}, nil
}

func (m *mockDBConfigRepo) List(ctx context.Context, userID uuid.UUID) ([]*models.DatabaseConfig, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockDBConfigRepo) Delete(ctx context.Context, userID uuid.UUID, name string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID, name)
	}
	return nil
}

type mockConversationRepo struct {
	CreateFunc         func(ctx context.Context, conv *models.Conversation) error
	GetByIDFunc        func(ctx context.Context, userID uuid.UUID, conversationID int64) (*models.Conversation, error)
	ListByUserFunc     func(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error)
	AddMessageFunc     func(ctx context.Context, msg *models.Message) error
	RecentMessagesFunc func(ctx context.Context, conversationID int64, n int) ([]*models.Message, error)

	Added []*models.Message
}

func (m *mockConversationRepo) Create(ctx context.Context, conv *models.Conversation) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, conv)
	}
	conv.ID = 1
	return nil
}

func (m *mockConversationRepo) GetByID(ctx context.Context, userID uuid.UUID, conversationID int64) (*models.Conversation, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, userID, conversationID)
	}
	return &models.Conversation{ID: conversationID, UserID: userID}, nil
}

func (m *mockConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockConversationRepo) AddMessage(ctx context.Context, msg *models.Message) error {
	m.Added = append(m.Added, msg)
	if m.AddMessageFunc != nil {
		return m.AddMessageFunc(ctx, msg)
	}
	return nil
}

func (m *mockConversationRepo) RecentMessages(ctx context.Context, conversationID int64, n int) ([]*models.Message, error) {
	if m.RecentMessagesFunc != nil {
		return m.RecentMessagesFunc(ctx, conversationID, n)
	}
	return nil, nil
}

type mockAsker struct {
	AskFunc  func(ctx context.Context, userID uuid.UUID, dbName, question string, history []models.HistoryTurn) (*pipeline.Result, error)
	AskCalls int
}

func (m *mockAsker) Ask(ctx context.Context, userID uuid.UUID, dbName, question string, history []models.HistoryTurn) (*pipeline.Result, error) {
	m.AskCalls++
	if m.AskFunc != nil {
		return m.AskFunc(ctx, userID, dbName, question, history)
	}
	return &pipeline.Result{Success: true, Source: pipeline.SourceLLM, SQLQuery: "SELECT 1"}, nil
}

type mockTargets struct {
	SnapshotFunc func(ctx context.Context, cfg *models.DatabaseConfig) (*models.SchemaSnapshot, error)
}

func (m *mockTargets) Snapshot(ctx context.Context, cfg *models.DatabaseConfig) (*models.SchemaSnapshot, error) {
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc(ctx, cfg)
	}
	return &models.SchemaSnapshot{}, nil
}

func (m *mockTargets) Execute(ctx context.Context, cfg *models.DatabaseConfig, sqlQuery string, args ...any) (*models.QueryResult, error) {
	return &models.QueryResult{Success: true}, nil
}

type mockInvalidator struct {
	Calls []string
}

func (m *mockInvalidator) Invalidate(userID, dbName string) {
	m.Calls = append(m.Calls, userID+":"+dbName)
}
