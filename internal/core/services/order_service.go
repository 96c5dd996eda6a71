package services

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"diglab-api/internal/adapters/persistence/models"
	"diglab-api/internal/adapters/persistence/repositories"
	"diglab-api/internal/adapters/storage"
	"diglab-api/internal/core/domain"
	"diglab-api/internal/pkg/labnumber"
	"diglab-api/internal/pkg/pagination"

	"gorm.io/gorm"
)

// labNumberRetries bounds regeneration attempts on a unique collision.
const labNumberRetries = 5

// OrderService handles lab order business logic
type OrderService struct {
	orderRepo  repositories.OrderRepository
	personRepo repositories.PersonRepository
	store      *storage.DocumentStore
	docs       DocumentClient
}

// NewOrderService creates a new order service
func NewOrderService(
	orderRepo repositories.OrderRepository,
	personRepo repositories.PersonRepository,
	store *storage.DocumentStore,
	docs DocumentClient,
) *OrderService {
	return &OrderService{
		orderRepo:  orderRepo,
		personRepo: personRepo,
		store:      store,
		docs:       docs,
	}
}

// CreateOrderInput represents order creation input
type CreateOrderInput struct {
	Personnummer string   `json:"personnummer" validate:"required"`
	Date         string   `json:"date" validate:"required"`
	Time         string   `json:"time" validate:"required"`
	Diagnoses    []string `json:"diagnoses" validate:"required,min=1"`
}

// CreateOrderOutput carries the persisted order plus its requisition PDF.
type CreateOrderOutput struct {
	Order *models.Order
	PDF   []byte
}

// FinalizeRowInput is one incoming result row for finalization.
type FinalizeRowInput struct {
	Diagnosis  string `json:"diagnosis"`
	Auto       string `json:"auto"`
	Final      string `json:"final"`
	Overridden bool   `json:"overridden"`
}

// CreateOrder registers a new lab order, generates its requisition PDF
// through the document service and stores the PDF on disk. The order
// row is committed before the PDF call so a collaborator outage never
// loses the registration.
func (s *OrderService) CreateOrder(ctx context.Context, input *CreateOrderInput) (*CreateOrderOutput, error) {
	// 1. Validate input
	if !pnrPattern.MatchString(input.Personnummer) {
		return nil, domain.ErrInvalidPersonnummer
	}
	orderDate, err := time.Parse("2006-01-02", input.Date)
	if err != nil {
		return nil, domain.ErrInvalidOrderDate
	}
	if _, err := time.Parse("15:04", input.Time); err != nil {
		return nil, domain.ErrInvalidOrderTime
	}
	diagnoses := make([]string, 0, len(input.Diagnoses))
	for _, d := range input.Diagnoses {
		if d = strings.TrimSpace(d); d != "" {
			diagnoses = append(diagnoses, d)
		}
	}
	if len(diagnoses) == 0 {
		return nil, domain.ErrNoDiagnoses
	}

	// 2. Look up the ordering person
	person, err := s.personRepo.GetByPersonnummer(ctx, input.Personnummer)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPersonNotFound
		}
		return nil, err
	}

	// 3. Persist with a fresh lab number, retrying on the rare collision
	pnr := person.Personnummer
	order := &models.Order{
		Name:         person.FullName(),
		Personnummer: &pnr,
		Date:         input.Date,
		Time:         input.Time,
		Diagnoses:    diagnoses,
	}
	for attempt := 0; ; attempt++ {
		order.LabNumber = labnumber.New(orderDate)
		err = s.orderRepo.Create(ctx, order)
		if err == nil {
			break
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < labNumberRetries {
			log.Printf("⚠️ Lab number collision on %s, regenerating", order.LabNumber)
			continue
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrLabNumberConflict
		}
		return nil, err
	}

	log.Printf("✅ Order created: %s for %s", order.LabNumber, person.Personnummer)

	// 4. Generate the requisition PDF
	pdf, _, err := s.docs.GenerateForm(ctx, GenerateFormRequest{
		Name:         order.Name,
		Date:         order.Date,
		Time:         order.Time,
		Diagnoses:    diagnoses,
		Personnummer: person.Personnummer,
		Labnummer:    order.LabNumber,
		QRData:       order.LabNumber,
	})
	if err != nil {
		return nil, err
	}
	if len(pdf) == 0 {
		// 2xx with no body is still a collaborator failure
		return nil, &domain.UpstreamError{Status: http.StatusBadGateway, Body: "document service returned an empty requisition PDF"}
	}

	// 5. Store the PDF; failures here must not undo the order
	path, err := s.store.SaveRequisition(order.LabNumber, pdf)
	if err != nil {
		log.Printf("⚠️ Failed to store requisition for %s: %v", order.LabNumber, err)
	} else if err := s.orderRepo.SetRequisitionPath(ctx, order.ID, path); err != nil {
		log.Printf("⚠️ Failed to record requisition path for %s: %v", order.LabNumber, err)
	}

	return &CreateOrderOutput{Order: order, PDF: pdf}, nil
}

// GetOrder returns the order details for a lab number.
func (s *OrderService) GetOrder(ctx context.Context, lab string) (*models.OrderDetails, error) {
	order, err := s.findOrder(ctx, lab)
	if err != nil {
		return nil, err
	}
	return order.ToDetails(), nil
}

// ListRecent returns the most recently created orders, newest first.
func (s *OrderService) ListRecent(ctx context.Context, take int) ([]*models.OrderListItem, error) {
	orders, err := s.orderRepo.ListRecent(ctx, pagination.Clamp(take))
	if err != nil {
		return nil, err
	}
	items := make([]*models.OrderListItem, len(orders))
	for i, o := range orders {
		items[i] = o.ToListItem()
	}
	return items, nil
}

// FetchDocument returns a PDF for the order, serving the stamped
// results document when one exists and the requisition otherwise.
// preferResults demands the results document: no fallback, not found
// until a results PDF has been written.
func (s *OrderService) FetchDocument(ctx context.Context, lab string, preferResults bool) ([]byte, string, error) {
	order, err := s.findOrder(ctx, lab)
	if err != nil {
		return nil, "", err
	}

	kinds := []storage.Kind{storage.KindResults, storage.KindRequisition}
	if preferResults {
		kinds = kinds[:1]
	}
	for _, kind := range kinds {
		data, err := s.store.Read(order.LabNumber, kind)
		if err == nil {
			return data, order.LabNumber, nil
		}
		if !errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, "", err
		}
	}
	return nil, "", domain.ErrDocumentNotFound
}

// Finalize replaces the order's result set wholesale and asks the
// document service for a stamped results PDF. PDF generation is best
// effort; the returned flag reports whether it was stored.
func (s *OrderService) Finalize(ctx context.Context, lab string, rows []FinalizeRowInput) (*models.OrderDetails, bool, error) {
	order, err := s.findOrder(ctx, lab)
	if err != nil {
		return nil, false, err
	}

	// 1. Normalize the incoming rows
	results := make([]models.OrderResult, len(rows))
	anyOverridden := false
	for i, row := range rows {
		auto := domain.ParseMark(row.Auto)
		final := auto
		if !domain.IsBlank(row.Final) {
			final = domain.ParseMark(row.Final)
		}
		overridden := row.Overridden || final != auto
		if overridden {
			anyOverridden = true
		}
		results[i] = models.OrderResult{
			Diagnosis:  strings.TrimSpace(row.Diagnosis),
			Auto:       auto,
			Final:      final,
			Overridden: overridden,
		}
	}

	// 2. Replace the stored result set
	if err := s.orderRepo.ReplaceResults(ctx, order.ID, results, anyOverridden); err != nil {
		return nil, false, err
	}

	log.Printf("✅ Order finalized: %s (%d results, overridden=%t)", order.LabNumber, len(results), anyOverridden)

	// 3. Generate and store the stamped PDF, best effort
	savedPdf := s.storeResultsPdf(ctx, order, results)

	// 4. Reload for the response
	updated, err := s.orderRepo.GetByLabNumber(ctx, order.LabNumber)
	if err != nil {
		return nil, savedPdf, err
	}
	return updated.ToDetails(), savedPdf, nil
}

func (s *OrderService) storeResultsPdf(ctx context.Context, order *models.Order, results []models.OrderResult) bool {
	payload := FinalizeFormRequest{Labnummer: order.LabNumber}
	for _, r := range results {
		payload.Results = append(payload.Results, FinalizeFormResult{
			Diagnosis: r.Diagnosis,
			Final:     string(r.Final),
			Auto:      string(r.Auto),
		})
	}

	pdf, contentType, err := s.docs.FinalizeForm(ctx, payload)
	if err != nil {
		log.Printf("⚠️ Results PDF generation failed for %s: %v", order.LabNumber, err)
		return false
	}
	// only a real PDF gets filed in the results slot
	if len(pdf) == 0 || !strings.Contains(contentType, "application/pdf") {
		log.Printf("⚠️ Results PDF for %s rejected: %d bytes of %q", order.LabNumber, len(pdf), contentType)
		return false
	}

	paths, err := s.store.SaveResults(order.LabNumber, pdf)
	if err != nil {
		log.Printf("⚠️ Failed to store results PDF for %s: %v", order.LabNumber, err)
		return false
	}
	if err := s.orderRepo.SetResultsPath(ctx, order.ID, paths[0]); err != nil {
		log.Printf("⚠️ Failed to record results path for %s: %v", order.LabNumber, err)
	}
	return true
}

func (s *OrderService) findOrder(ctx context.Context, lab string) (*models.Order, error) {
	lab = strings.ToUpper(strings.TrimSpace(lab))
	if !labnumber.Valid(lab) {
		return nil, domain.ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByLabNumber(ctx, lab)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}
