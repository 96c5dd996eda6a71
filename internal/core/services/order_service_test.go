package services

import (
	"context"
	"errors"
	"testing"

	"diglab-api/internal/adapters/persistence/models"
	"diglab-api/internal/core/domain"
	"diglab-api/internal/pkg/labnumber"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testPerson() *models.Person {
	return &models.Person{
		ID:           1,
		Personnummer: "01010112345",
		FirstName:    "Ola",
		LastName:     "Nordmann",
	}
}

func validCreateInput() *CreateOrderInput {
	return &CreateOrderInput{
		Personnummer: "01010112345",
		Date:         "2025-04-17",
		Time:         "09:30",
		Diagnoses:    []string{"Chlamydia trachomatis"},
	}
}

func TestCreateOrder(t *testing.T) {
	orderRepo := new(mockOrderRepo)
	personRepo := new(mockPersonRepo)
	var generated GenerateFormRequest
	docs := &fakeDocClient{
		generateFunc: func(req GenerateFormRequest) ([]byte, string, error) {
			generated = req
			return []byte("%PDF-1.4 form"), "application/pdf", nil
		},
	}
	svc := NewOrderService(orderRepo, personRepo, newTestStore(t), docs)

	personRepo.On("GetByPersonnummer", mock.Anything, "01010112345").Return(testPerson(), nil)
	orderRepo.On("Create", mock.Anything, mock.MatchedBy(func(o *models.Order) bool {
		return labnumber.Valid(o.LabNumber)
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Order).ID = 10
	}).Return(nil)
	orderRepo.On("SetRequisitionPath", mock.Anything, uint(10), mock.Anything).Return(nil)

	out, err := svc.CreateOrder(context.Background(), validCreateInput())
	require.NoError(t, err)
	require.Equal(t, []byte("%PDF-1.4 form"), out.PDF)
	require.Equal(t, "LAB-20250417-", out.Order.LabNumber[:13])
	require.Equal(t, "Ola Nordmann", out.Order.Name)

	// The QR payload is the lab number, nothing more
	require.Equal(t, out.Order.LabNumber, generated.QRData)
	require.Equal(t, "01010112345", generated.Personnummer)
	orderRepo.AssertExpectations(t)
}

func TestCreateOrderValidation(t *testing.T) {
	svc := NewOrderService(new(mockOrderRepo), new(mockPersonRepo), newTestStore(t), &fakeDocClient{})

	tests := []struct {
		name    string
		mutate  func(*CreateOrderInput)
		wantErr error
	}{
		{"short personnummer", func(in *CreateOrderInput) { in.Personnummer = "0101011234" }, domain.ErrInvalidPersonnummer},
		{"non-digit personnummer", func(in *CreateOrderInput) { in.Personnummer = "0101011234x" }, domain.ErrInvalidPersonnummer},
		{"bad date", func(in *CreateOrderInput) { in.Date = "17.04.2025" }, domain.ErrInvalidOrderDate},
		{"bad time", func(in *CreateOrderInput) { in.Time = "9:30am" }, domain.ErrInvalidOrderTime},
		{"no diagnoses", func(in *CreateOrderInput) { in.Diagnoses = nil }, domain.ErrNoDiagnoses},
		{"blank diagnoses", func(in *CreateOrderInput) { in.Diagnoses = []string{"  ", ""} }, domain.ErrNoDiagnoses},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validCreateInput()
			tt.mutate(in)
			_, err := svc.CreateOrder(context.Background(), in)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateOrderPersonNotFound(t *testing.T) {
	orderRepo := new(mockOrderRepo)
	personRepo := new(mockPersonRepo)
	svc := NewOrderService(orderRepo, personRepo, newTestStore(t), &fakeDocClient{})

	personRepo.On("GetByPersonnummer", mock.Anything, "01010112345").Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.CreateOrder(context.Background(), validCreateInput())
	require.ErrorIs(t, err, domain.ErrPersonNotFound)
	orderRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateOrderRetriesOnCollision(t *testing.T) {
	orderRepo := new(mockOrderRepo)
	personRepo := new(mockPersonRepo)
	svc := NewOrderService(orderRepo, personRepo, newTestStore(t), &fakeDocClient{})

	personRepo.On("GetByPersonnummer", mock.Anything, "01010112345").Return(testPerson(), nil)
	orderRepo.On("Create", mock.Anything, mock.Anything).Return(gorm.ErrDuplicatedKey).Twice()
	orderRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	orderRepo.On("SetRequisitionPath", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := svc.CreateOrder(context.Background(), validCreateInput())
	require.NoError(t, err)
	orderRepo.AssertNumberOfCalls(t, "Create", 3)
}

func TestCreateOrderGivesUpAfterRetries(t *testing.T) {
	orderRepo := new(mockOrderRepo)
	personRepo := new(mockPersonRepo)
	svc := NewOrderService(orderRepo, personRepo, newTestStore(t), &fakeDocClient{})

	personRepo.On("GetByPersonnummer", mock.Anything, "01010112345").Return(testPerson(), nil)
	orderRepo.On("Create", mock.Anything, mock.Anything).Return(gorm.ErrDuplicatedKey)

	_, err := svc.CreateOrder(context.Background(), validCreateInput())
	require.ErrorIs(t, err, domain.ErrLabNumberConflict)
}

func TestCreateOrderUpstreamFailureKeepsOrder(t *testing.T) {
	orderRepo := new(mockOrderRepo)
	personRepo := new(mockPersonRepo)
	docs := &fakeDocClient{
		generateFunc: func(req GenerateFormRequest) ([]byte, string, error) {
			return nil, "", &domain.UpstreamError{Status: 502, Body: "renderer down"}
		},
	}
	svc := NewOrderService(orderRepo, personRepo, newTestStore(t), docs)

	personRepo.On("GetByPersonnummer", mock.Anything, "01010112345").Return(testPerson(), nil)
	orderRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := svc.CreateOrder(context.Background(), validCreateInput())
	ue, ok := domain.AsUpstream(err)
	require.True(t, ok)
	require.Equal(t, 502, ue.Status)
	require.Equal(t, "renderer down", ue.Body)

	// The order was persisted before the PDF call; no rollback happens
	orderRepo.AssertNumberOfCalls(t, "Create", 1)
	orderRepo.AssertNotCalled(t, "SetRequisitionPath", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrderEmptyPdfIsUpstreamFailure(t *testing.T) {
	orderRepo := new(mockOrderRepo)
	personRepo := new(mockPersonRepo)
	docs := &fakeDocClient{
		generateFunc: func(req GenerateFormRequest) ([]byte, string, error) {
			return nil, "application/pdf", nil
		},
	}
	svc := NewOrderService(orderRepo, personRepo, newTestStore(t), docs)

	personRepo.On("GetByPersonnummer", mock.Anything, "01010112345").Return(testPerson(), nil)
	orderRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := svc.CreateOrder(context.Background(), validCreateInput())
	_, ok := domain.AsUpstream(err)
	require.True(t, ok)

	// The order itself still stands
	orderRepo.AssertNumberOfCalls(t, "Create", 1)
	orderRepo.AssertNotCalled(t, "SetRequisitionPath", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetOrderNotFound(t *testing.T) {
	orderRepo := new(mockOrderRepo)
	svc := NewOrderService(orderRepo, new(mockPersonRepo), newTestStore(t), &fakeDocClient{})

	orderRepo.On("GetByLabNumber", mock.Anything, "LAB-20250417-8F2A1C3B").Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.GetOrder(context.Background(), "lab-20250417-8f2a1c3b")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	// Malformed lab numbers never reach the repository
	_, err = svc.GetOrder(context.Background(), "not-a-lab-number")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
	orderRepo.AssertNumberOfCalls(t, "GetByLabNumber", 1)
}

func TestListRecentClampsTake(t *testing.T) {
	orderRepo := new(mockOrderRepo)
	svc := NewOrderService(orderRepo, new(mockPersonRepo), newTestStore(t), &fakeDocClient{})

	orderRepo.On("ListRecent", mock.Anything, 100).Return([]*models.Order{}, nil).Once()
	_, err := svc.ListRecent(context.Background(), 5000)
	require.NoError(t, err)

	orderRepo.On("ListRecent", mock.Anything, 20).Return([]*models.Order{}, nil).Once()
	_, err = svc.ListRecent(context.Background(), 0)
	require.NoError(t, err)

	orderRepo.AssertExpectations(t)
}

func storedOrder(lab string) *models.Order {
	pnr := "01010112345"
	return &models.Order{
		ID:           10,
		LabNumber:    lab,
		Name:         "Ola Nordmann",
		Personnummer: &pnr,
		Date:         "2025-04-17",
		Time:         "09:30",
		Diagnoses:    []string{"Chlamydia trachomatis", "Neisseria gonorrhoeae"},
	}
}

func TestFinalize(t *testing.T) {
	const lab = "LAB-20250417-8F2A1C3B"

	orderRepo := new(mockOrderRepo)
	store := newTestStore(t)
	var finalized FinalizeFormRequest
	docs := &fakeDocClient{
		finalizeFunc: func(req FinalizeFormRequest) ([]byte, string, error) {
			finalized = req
			return []byte("%PDF-1.4 results"), "application/pdf", nil
		},
	}
	svc := NewOrderService(orderRepo, new(mockPersonRepo), store, docs)

	var savedRows []models.OrderResult
	var savedOverridden bool
	orderRepo.On("GetByLabNumber", mock.Anything, lab).Return(storedOrder(lab), nil)
	orderRepo.On("ReplaceResults", mock.Anything, uint(10), mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			savedRows = args.Get(2).([]models.OrderResult)
			savedOverridden = args.Bool(3)
		}).Return(nil)
	orderRepo.On("SetResultsPath", mock.Anything, uint(10), mock.Anything).Return(nil)

	rows := []FinalizeRowInput{
		{Diagnosis: "Chlamydia trachomatis", Auto: "positive", Final: "NEGATIVE"},
		{Diagnosis: "Neisseria gonorrhoeae", Auto: "negative"},
		{Diagnosis: "Mycoplasma genitalium"},
	}

	_, savedPdf, err := svc.Finalize(context.Background(), lab, rows)
	require.NoError(t, err)
	require.True(t, savedPdf)

	require.Len(t, savedRows, 3)

	// Explicit final differing from auto marks the row overridden
	require.Equal(t, domain.MarkPositive, savedRows[0].Auto)
	require.Equal(t, domain.MarkNegative, savedRows[0].Final)
	require.True(t, savedRows[0].Overridden)

	// Blank final inherits auto
	require.Equal(t, domain.MarkNegative, savedRows[1].Final)
	require.False(t, savedRows[1].Overridden)

	// Blank marks collapse to NONE
	require.Equal(t, domain.MarkNone, savedRows[2].Auto)
	require.Equal(t, domain.MarkNone, savedRows[2].Final)
	require.False(t, savedRows[2].Overridden)

	require.True(t, savedOverridden)

	require.Equal(t, lab, finalized.Labnummer)
	require.Len(t, finalized.Results, 3)

	// The stamped PDF ends up in the results store
	data, err := store.Read(lab, "results")
	require.NoError(t, err)
	require.Equal(t, []byte("%PDF-1.4 results"), data)
}

func TestFinalizeCallerOverrideFlagSticks(t *testing.T) {
	const lab = "LAB-20250417-8F2A1C3B"

	orderRepo := new(mockOrderRepo)
	svc := NewOrderService(orderRepo, new(mockPersonRepo), newTestStore(t), &fakeDocClient{})

	var savedRows []models.OrderResult
	orderRepo.On("GetByLabNumber", mock.Anything, lab).Return(storedOrder(lab), nil)
	orderRepo.On("ReplaceResults", mock.Anything, uint(10), mock.Anything, true).
		Run(func(args mock.Arguments) {
			savedRows = args.Get(2).([]models.OrderResult)
		}).Return(nil)
	orderRepo.On("SetResultsPath", mock.Anything, uint(10), mock.Anything).Return(nil)

	rows := []FinalizeRowInput{
		{Diagnosis: "Chlamydia trachomatis", Auto: "positive", Final: "positive", Overridden: true},
	}

	_, _, err := svc.Finalize(context.Background(), lab, rows)
	require.NoError(t, err)
	require.True(t, savedRows[0].Overridden)
}

func TestFinalizePdfFailureIsNotFatal(t *testing.T) {
	const lab = "LAB-20250417-8F2A1C3B"

	orderRepo := new(mockOrderRepo)
	docs := &fakeDocClient{
		finalizeFunc: func(req FinalizeFormRequest) ([]byte, string, error) {
			return nil, "", errors.New("renderer unreachable")
		},
	}
	svc := NewOrderService(orderRepo, new(mockPersonRepo), newTestStore(t), docs)

	orderRepo.On("GetByLabNumber", mock.Anything, lab).Return(storedOrder(lab), nil)
	orderRepo.On("ReplaceResults", mock.Anything, uint(10), mock.Anything, false).Return(nil)

	details, savedPdf, err := svc.Finalize(context.Background(), lab, []FinalizeRowInput{
		{Diagnosis: "Chlamydia trachomatis", Auto: "negative"},
	})
	require.NoError(t, err)
	require.False(t, savedPdf)
	require.NotNil(t, details)
	orderRepo.AssertNotCalled(t, "SetResultsPath", mock.Anything, mock.Anything, mock.Anything)
}

func TestFinalizeRejectsNonPdfResponse(t *testing.T) {
	const lab = "LAB-20250417-8F2A1C3B"

	orderRepo := new(mockOrderRepo)
	store := newTestStore(t)
	docs := &fakeDocClient{
		finalizeFunc: func(req FinalizeFormRequest) ([]byte, string, error) {
			return []byte("<html>renderer error page</html>"), "text/html", nil
		},
	}
	svc := NewOrderService(orderRepo, new(mockPersonRepo), store, docs)

	orderRepo.On("GetByLabNumber", mock.Anything, lab).Return(storedOrder(lab), nil)
	orderRepo.On("ReplaceResults", mock.Anything, uint(10), mock.Anything, false).Return(nil)

	_, savedPdf, err := svc.Finalize(context.Background(), lab, []FinalizeRowInput{
		{Diagnosis: "Chlamydia trachomatis", Auto: "negative"},
	})
	require.NoError(t, err)
	require.False(t, savedPdf)

	// The HTML never reaches the results slot
	_, err = store.Read(lab, "results")
	require.ErrorIs(t, err, domain.ErrDocumentNotFound)
	orderRepo.AssertNotCalled(t, "SetResultsPath", mock.Anything, mock.Anything, mock.Anything)
}

func TestFinalizeRejectsEmptyPdf(t *testing.T) {
	const lab = "LAB-20250417-8F2A1C3B"

	orderRepo := new(mockOrderRepo)
	docs := &fakeDocClient{
		finalizeFunc: func(req FinalizeFormRequest) ([]byte, string, error) {
			return nil, "application/pdf", nil
		},
	}
	svc := NewOrderService(orderRepo, new(mockPersonRepo), newTestStore(t), docs)

	orderRepo.On("GetByLabNumber", mock.Anything, lab).Return(storedOrder(lab), nil)
	orderRepo.On("ReplaceResults", mock.Anything, uint(10), mock.Anything, false).Return(nil)

	_, savedPdf, err := svc.Finalize(context.Background(), lab, []FinalizeRowInput{
		{Diagnosis: "Chlamydia trachomatis", Auto: "negative"},
	})
	require.NoError(t, err)
	require.False(t, savedPdf)
	orderRepo.AssertNotCalled(t, "SetResultsPath", mock.Anything, mock.Anything, mock.Anything)
}

func TestFetchDocument(t *testing.T) {
	const lab = "LAB-20250417-8F2A1C3B"

	orderRepo := new(mockOrderRepo)
	store := newTestStore(t)
	svc := NewOrderService(orderRepo, new(mockPersonRepo), store, &fakeDocClient{})

	orderRepo.On("GetByLabNumber", mock.Anything, lab).Return(storedOrder(lab), nil)

	// Nothing stored yet
	_, _, err := svc.FetchDocument(context.Background(), lab, false)
	require.ErrorIs(t, err, domain.ErrDocumentNotFound)

	// Requisition only: served by default, but prefer=results stays
	// not-found until a results PDF has been written
	_, err = store.SaveRequisition(lab, []byte("form"))
	require.NoError(t, err)

	data, _, err := svc.FetchDocument(context.Background(), lab, false)
	require.NoError(t, err)
	require.Equal(t, []byte("form"), data)

	_, _, err = svc.FetchDocument(context.Background(), lab, true)
	require.ErrorIs(t, err, domain.ErrDocumentNotFound)

	// Once results exist they win on both paths
	_, err = store.SaveResults(lab, []byte("results"))
	require.NoError(t, err)

	data, _, err = svc.FetchDocument(context.Background(), lab, true)
	require.NoError(t, err)
	require.Equal(t, []byte("results"), data)

	data, _, err = svc.FetchDocument(context.Background(), lab, false)
	require.NoError(t, err)
	require.Equal(t, []byte("results"), data)
}
