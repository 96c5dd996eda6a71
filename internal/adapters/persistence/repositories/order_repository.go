package repositories

import (
	"context"

	"diglab-api/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// orderRepository implements OrderRepository interface
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create creates a new order. Returns gorm.ErrDuplicatedKey when the
// lab number collides so the workflow can retry generation.
func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// GetByLabNumber gets an order with its result rows
func (r *orderRepository) GetByLabNumber(ctx context.Context, lab string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Results").
		Where("lab_number = ?", lab).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ExistsByLabNumber checks if a lab number is taken
func (r *orderRepository) ExistsByLabNumber(ctx context.Context, lab string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("lab_number = ?", lab).Count(&count).Error
	return count > 0, err
}

// ListRecent lists the most recently created orders, newest first
func (r *orderRepository) ListRecent(ctx context.Context, limit int) ([]*models.Order, error) {
	var orders []*models.Order
	err := r.db.WithContext(ctx).
		Order("created_at_utc DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// SetRequisitionPath records where the requisition PDF was written
func (r *orderRepository) SetRequisitionPath(ctx context.Context, id uint, path string) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Update("requisition_pdf_path", path).Error
}

// SetResultsPath records where the results PDF was written
func (r *orderRepository) SetResultsPath(ctx context.Context, id uint, path string) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"results_pdf_path": path,
			"results_saved":    true,
		}).Error
}

// ReplaceResults discards all result rows for the order and inserts the
// supplied set, updating the order-level override flag in the same
// transaction. Finalize is overwriting, not additive.
func (r *orderRepository) ReplaceResults(ctx context.Context, orderID uint, rows []models.OrderResult, anyOverridden bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderResult{}).Error; err != nil {
			return err
		}
		for i := range rows {
			rows[i].ID = 0
			rows[i].OrderID = orderID
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Order{}).
			Where("id = ?", orderID).
			Update("any_overridden", anyOverridden).Error
	})
}
