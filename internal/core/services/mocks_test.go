package services

import (
	"context"
	"path/filepath"
	"testing"

	"diglab-api/internal/adapters/persistence/models"
	"diglab-api/internal/adapters/storage"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) Create(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepo) GetByLabNumber(ctx context.Context, lab string) (*models.Order, error) {
	args := m.Called(ctx, lab)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *mockOrderRepo) ExistsByLabNumber(ctx context.Context, lab string) (bool, error) {
	args := m.Called(ctx, lab)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrderRepo) ListRecent(ctx context.Context, limit int) ([]*models.Order, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Order), args.Error(1)
}

func (m *mockOrderRepo) SetRequisitionPath(ctx context.Context, id uint, path string) error {
	args := m.Called(ctx, id, path)
	return args.Error(0)
}

func (m *mockOrderRepo) SetResultsPath(ctx context.Context, id uint, path string) error {
	args := m.Called(ctx, id, path)
	return args.Error(0)
}

func (m *mockOrderRepo) ReplaceResults(ctx context.Context, orderID uint, rows []models.OrderResult, anyOverridden bool) error {
	args := m.Called(ctx, orderID, rows, anyOverridden)
	return args.Error(0)
}

type mockPersonRepo struct {
	mock.Mock
}

func (m *mockPersonRepo) Create(ctx context.Context, person *models.Person) error {
	args := m.Called(ctx, person)
	return args.Error(0)
}

func (m *mockPersonRepo) GetByPersonnummer(ctx context.Context, pnr string) (*models.Person, error) {
	args := m.Called(ctx, pnr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Person), args.Error(1)
}

func (m *mockPersonRepo) ExistsByPersonnummer(ctx context.Context, pnr string) (bool, error) {
	args := m.Called(ctx, pnr)
	return args.Bool(0), args.Error(1)
}

func (m *mockPersonRepo) UpdateContact(ctx context.Context, pnr string, fields map[string]interface{}) error {
	args := m.Called(ctx, pnr, fields)
	return args.Error(0)
}

func (m *mockPersonRepo) Search(ctx context.Context, query string, limit int) ([]*models.Person, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Person), args.Error(1)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserRepo) ExistsByWorkerID(ctx context.Context, workerID string) (bool, error) {
	args := m.Called(ctx, workerID)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) UpdatePasswordHash(ctx context.Context, id uint, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

func (m *mockUserRepo) List(ctx context.Context, offset, limit int) ([]*models.User, int64, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.User), args.Get(1).(int64), args.Error(2)
}

// fakeDocClient stands in for the document collaborator.
type fakeDocClient struct {
	generateFunc func(req GenerateFormRequest) ([]byte, string, error)
	finalizeFunc func(req FinalizeFormRequest) ([]byte, string, error)
	analyzeFunc  func(filename, contentType string, file []byte) (*AnalyzeResponse, error)
}

func (f *fakeDocClient) GenerateForm(ctx context.Context, req GenerateFormRequest) ([]byte, string, error) {
	if f.generateFunc == nil {
		return []byte("%PDF-1.4"), "application/pdf", nil
	}
	return f.generateFunc(req)
}

func (f *fakeDocClient) FinalizeForm(ctx context.Context, req FinalizeFormRequest) ([]byte, string, error) {
	if f.finalizeFunc == nil {
		return []byte("%PDF-1.4"), "application/pdf", nil
	}
	return f.finalizeFunc(req)
}

func (f *fakeDocClient) Analyze(ctx context.Context, filename, contentType string, file []byte) (*AnalyzeResponse, error) {
	if f.analyzeFunc == nil {
		return &AnalyzeResponse{}, nil
	}
	return f.analyzeFunc(filename, contentType, file)
}

func newTestStore(t *testing.T) *storage.DocumentStore {
	t.Helper()
	base := t.TempDir()
	store, err := storage.NewDocumentStore(filepath.Join(base, "forms"), filepath.Join(base, "formsResults"))
	require.NoError(t, err)
	return store
}
