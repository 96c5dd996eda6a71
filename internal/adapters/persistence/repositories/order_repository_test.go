package repositories

import (
	"context"
	"testing"
	"time"

	"diglab-api/internal/adapters/persistence/models"
	"diglab-api/internal/core/domain"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func makeOrder(lab string, createdAt time.Time) *models.Order {
	pnr := "01010112345"
	return &models.Order{
		LabNumber:    lab,
		Name:         "Ola Nordmann",
		Personnummer: &pnr,
		Date:         "2025-04-17",
		Time:         "09:30",
		Diagnoses:    []string{"Chlamydia trachomatis"},
		CreatedAtUtc: createdAt,
	}
}

func TestOrderCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order := makeOrder("LAB-20250417-AAAAAAAA", time.Now())
	require.NoError(t, repo.Create(ctx, order))
	require.NotZero(t, order.ID)

	got, err := repo.GetByLabNumber(ctx, "LAB-20250417-AAAAAAAA")
	require.NoError(t, err)
	require.Equal(t, order.ID, got.ID)
	require.Equal(t, []string{"Chlamydia trachomatis"}, []string(got.Diagnoses))

	_, err = repo.GetByLabNumber(ctx, "LAB-20250417-BBBBBBBB")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOrderCreateDuplicateLabNumber(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, makeOrder("LAB-20250417-AAAAAAAA", time.Now())))

	err := repo.Create(ctx, makeOrder("LAB-20250417-AAAAAAAA", time.Now()))
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestOrderExistsByLabNumber(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	exists, err := repo.ExistsByLabNumber(ctx, "LAB-20250417-AAAAAAAA")
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, repo.Create(ctx, makeOrder("LAB-20250417-AAAAAAAA", time.Now())))

	exists, err = repo.ExistsByLabNumber(ctx, "LAB-20250417-AAAAAAAA")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestOrderListRecent(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	labs := []string{
		"LAB-20250415-AAAAAAAA",
		"LAB-20250416-BBBBBBBB",
		"LAB-20250417-CCCCCCCC",
	}
	for i, lab := range labs {
		require.NoError(t, repo.Create(ctx, makeOrder(lab, base.Add(time.Duration(i)*time.Minute))))
	}

	orders, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, "LAB-20250417-CCCCCCCC", orders[0].LabNumber)
	require.Equal(t, "LAB-20250416-BBBBBBBB", orders[1].LabNumber)
}

func TestOrderReplaceResults(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order := makeOrder("LAB-20250417-AAAAAAAA", time.Now())
	require.NoError(t, repo.Create(ctx, order))

	first := []models.OrderResult{
		{Diagnosis: "Chlamydia trachomatis", Auto: domain.MarkPositive, Final: domain.MarkPositive},
	}
	require.NoError(t, repo.ReplaceResults(ctx, order.ID, first, false))

	got, err := repo.GetByLabNumber(ctx, order.LabNumber)
	require.NoError(t, err)
	require.Len(t, got.Results, 1)
	require.False(t, got.AnyOverridden)

	// A second finalize replaces the set wholesale
	second := []models.OrderResult{
		{Diagnosis: "Chlamydia trachomatis", Auto: domain.MarkPositive, Final: domain.MarkNegative, Overridden: true},
		{Diagnosis: "Neisseria gonorrhoeae", Auto: domain.MarkNone, Final: domain.MarkNone},
	}
	require.NoError(t, repo.ReplaceResults(ctx, order.ID, second, true))

	got, err = repo.GetByLabNumber(ctx, order.LabNumber)
	require.NoError(t, err)
	require.Len(t, got.Results, 2)
	require.True(t, got.AnyOverridden)

	var count int64
	require.NoError(t, db.Model(&models.OrderResult{}).Count(&count).Error)
	require.EqualValues(t, 2, count, "old rows must be gone")
}

func TestOrderReplaceResultsEmptySet(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order := makeOrder("LAB-20250417-AAAAAAAA", time.Now())
	require.NoError(t, repo.Create(ctx, order))

	rows := []models.OrderResult{
		{Diagnosis: "Chlamydia trachomatis", Auto: domain.MarkPositive, Final: domain.MarkPositive},
	}
	require.NoError(t, repo.ReplaceResults(ctx, order.ID, rows, false))
	require.NoError(t, repo.ReplaceResults(ctx, order.ID, nil, false))

	got, err := repo.GetByLabNumber(ctx, order.LabNumber)
	require.NoError(t, err)
	require.Empty(t, got.Results)
}

func TestOrderSetPaths(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order := makeOrder("LAB-20250417-AAAAAAAA", time.Now())
	require.NoError(t, repo.Create(ctx, order))

	require.NoError(t, repo.SetRequisitionPath(ctx, order.ID, "storage/forms/DigLab-LAB-20250417-AAAAAAAA.pdf"))
	require.NoError(t, repo.SetResultsPath(ctx, order.ID, "storage/formsResults/DigLab-LAB-20250417-AAAAAAAA-results.pdf"))

	got, err := repo.GetByLabNumber(ctx, order.LabNumber)
	require.NoError(t, err)
	require.NotNil(t, got.RequisitionPdfPath)
	require.NotNil(t, got.ResultsPdfPath)
	require.True(t, got.ResultsSaved)
}
