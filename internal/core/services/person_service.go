package services

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"

	"diglab-api/internal/adapters/persistence/models"
	"diglab-api/internal/adapters/persistence/repositories"
	"diglab-api/internal/core/domain"

	"gorm.io/gorm"
)

// pnrPattern matches an 11 digit Norwegian personnummer.
var pnrPattern = regexp.MustCompile(`^\d{11}$`)

// PersonService handles the person registry
type PersonService struct {
	personRepo repositories.PersonRepository
}

// NewPersonService creates a new person service
func NewPersonService(personRepo repositories.PersonRepository) *PersonService {
	return &PersonService{personRepo: personRepo}
}

// CreatePersonInput represents person registration input
type CreatePersonInput struct {
	Personnummer string  `json:"personnummer" validate:"required"`
	FirstName    string  `json:"firstName" validate:"required"`
	MiddleName   *string `json:"middleName"`
	LastName     string  `json:"lastName" validate:"required"`
	AddressLine1 *string `json:"addressLine1"`
	AddressLine2 *string `json:"addressLine2"`
	PostalCode   *string `json:"postalCode"`
	City         *string `json:"city"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	DateOfBirth  *string `json:"dateOfBirth"`
}

// UpdateContactInput carries the mutable contact fields. Only fields
// present in the request are touched; identity fields never change.
type UpdateContactInput struct {
	AddressLine1 *string `json:"addressLine1"`
	AddressLine2 *string `json:"addressLine2"`
	PostalCode   *string `json:"postalCode"`
	City         *string `json:"city"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
}

// Create registers a person keyed by personnummer.
func (s *PersonService) Create(ctx context.Context, input *CreatePersonInput) (*models.Person, error) {
	pnr := strings.TrimSpace(input.Personnummer)
	if !pnrPattern.MatchString(pnr) {
		return nil, domain.ErrInvalidPersonnummer
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, domain.ErrInvalidInput
	}

	exists, err := s.personRepo.ExistsByPersonnummer(ctx, pnr)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrPersonAlreadyExists
	}

	person := &models.Person{
		Personnummer: pnr,
		FirstName:    strings.TrimSpace(input.FirstName),
		MiddleName:   input.MiddleName,
		LastName:     strings.TrimSpace(input.LastName),
		AddressLine1: input.AddressLine1,
		AddressLine2: input.AddressLine2,
		PostalCode:   input.PostalCode,
		City:         input.City,
		Email:        input.Email,
		Phone:        input.Phone,
		DateOfBirth:  input.DateOfBirth,
	}
	if err := s.personRepo.Create(ctx, person); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrPersonAlreadyExists
		}
		return nil, err
	}

	log.Printf("✅ Person registered: %s", person.Personnummer)
	return person, nil
}

// GetByPersonnummer looks up a person by their personnummer.
func (s *PersonService) GetByPersonnummer(ctx context.Context, pnr string) (*models.Person, error) {
	pnr = strings.TrimSpace(pnr)
	if !pnrPattern.MatchString(pnr) {
		return nil, domain.ErrInvalidPersonnummer
	}
	person, err := s.personRepo.GetByPersonnummer(ctx, pnr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPersonNotFound
		}
		return nil, err
	}
	return person, nil
}

// UpdateContact patches contact details for an existing person.
func (s *PersonService) UpdateContact(ctx context.Context, pnr string, input *UpdateContactInput) (*models.Person, error) {
	pnr = strings.TrimSpace(pnr)
	if !pnrPattern.MatchString(pnr) {
		return nil, domain.ErrInvalidPersonnummer
	}

	fields := map[string]interface{}{}
	if input.AddressLine1 != nil {
		fields["address_line1"] = *input.AddressLine1
	}
	if input.AddressLine2 != nil {
		fields["address_line2"] = *input.AddressLine2
	}
	if input.PostalCode != nil {
		fields["postal_code"] = *input.PostalCode
	}
	if input.City != nil {
		fields["city"] = *input.City
	}
	if input.Email != nil {
		fields["email"] = *input.Email
	}
	if input.Phone != nil {
		fields["phone"] = *input.Phone
	}

	if len(fields) > 0 {
		if err := s.personRepo.UpdateContact(ctx, pnr, fields); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domain.ErrPersonNotFound
			}
			return nil, err
		}
	}

	return s.GetByPersonnummer(ctx, pnr)
}

// Search finds persons by personnummer or name prefix.
func (s *PersonService) Search(ctx context.Context, query string, limit int) ([]*models.Person, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*models.Person{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.personRepo.Search(ctx, query, limit)
}
