package repositories

import (
	"context"
	"time"

	"diglab-api/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// personRepository implements PersonRepository interface
type personRepository struct {
	db *gorm.DB
}

// NewPersonRepository creates a new person repository
func NewPersonRepository(db *gorm.DB) PersonRepository {
	return &personRepository{db: db}
}

// Create creates a new person
func (r *personRepository) Create(ctx context.Context, person *models.Person) error {
	return r.db.WithContext(ctx).Create(person).Error
}

// GetByPersonnummer gets a person by national id
func (r *personRepository) GetByPersonnummer(ctx context.Context, pnr string) (*models.Person, error) {
	var person models.Person
	err := r.db.WithContext(ctx).Where("personnummer = ?", pnr).First(&person).Error
	if err != nil {
		return nil, err
	}
	return &person, nil
}

// ExistsByPersonnummer checks if a national id is registered
func (r *personRepository) ExistsByPersonnummer(ctx context.Context, pnr string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Person{}).Where("personnummer = ?", pnr).Count(&count).Error
	return count > 0, err
}

// UpdateContact updates only the contact/address fields of a person.
// Identity fields stay immutable after registration.
func (r *personRepository) UpdateContact(ctx context.Context, pnr string, fields map[string]interface{}) error {
	allowed := map[string]bool{
		"address_line1": true,
		"address_line2": true,
		"postal_code":   true,
		"city":          true,
		"email":         true,
		"phone":         true,
	}
	updates := map[string]interface{}{}
	for k, v := range fields {
		if allowed[k] {
			updates[k] = v
		}
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at_utc"] = time.Now().UTC()

	result := r.db.WithContext(ctx).Model(&models.Person{}).
		Where("personnummer = ?", pnr).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Search finds persons by name or national id prefix
func (r *personRepository) Search(ctx context.Context, query string, limit int) ([]*models.Person, error) {
	var persons []*models.Person
	pattern := query + "%"
	err := r.db.WithContext(ctx).
		Where("personnummer LIKE ? OR first_name LIKE ? OR last_name LIKE ?", pattern, pattern, pattern).
		Order("last_name, first_name").
		Limit(limit).
		Find(&persons).Error
	if err != nil {
		return nil, err
	}
	return persons, nil
}
