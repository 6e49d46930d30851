package services

import (
	"context"
	"testing"
	"time"

	"catalog-service/internal/catalog"
	"catalog-service/internal/filters"
	"catalog-service/internal/models"
	"catalog-service/internal/transfer"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueryService(repo *memoryRepository) *ProductQueryService {
	attrs := staticAttributes{set: catalog.Set{"color": colorAttr}}
	builder := filters.NewBuilder(attrs, quietLogger())
	return NewProductQueryService(repo, builder, Limits{Default: 20, Max: 100}, Limits{Default: 1000, Max: 5000}, quietLogger())
}

func TestList_PaginationAndSort(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestQueryService(repo)

	result, err := svc.List(context.Background(), "tenant-1", ListQuery{Page: 3, Limit: 500, SortBy: "sku", SortOrder: "ASC"})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Page)
	assert.Equal(t, 100, result.Limit)

	q := repo.lastQuery
	assert.Equal(t, "sku", q.SortColumn)
	assert.False(t, q.SortDesc)
	assert.Equal(t, 200, q.Offset)
	assert.Equal(t, 100, q.Limit)
	assert.True(t, q.Count)
	assert.True(t, q.Preload)

	result, err = svc.List(context.Background(), "tenant-1", ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 20, result.Limit)
	assert.Equal(t, "created_at", repo.lastQuery.SortColumn)
	assert.True(t, repo.lastQuery.SortDesc)
}

func TestList_PassesFiltersToRepository(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestQueryService(repo)

	_, err := svc.List(context.Background(), "tenant-1", ListQuery{
		Structural: filters.Structural{Status: "active"},
		Attributes: map[string]string{"color": "red", "unknown": "x"},
	})
	require.NoError(t, err)

	sql, args, err := repo.lastQuery.Where.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "products.status = ?")
	assert.Contains(t, sql, "EXISTS (SELECT 1 FROM product_attribute_values pav")
	assert.Equal(t, []interface{}{"ACTIVE", colorAttr.ID.String(), "red%", "red%"}, args)
}

func TestList_RejectsUnknownSort(t *testing.T) {
	svc := newTestQueryService(newMemoryRepository())

	_, err := svc.List(context.Background(), "tenant-1", ListQuery{SortBy: "price"})
	var filterErr *filters.InvalidFilterError
	require.ErrorAs(t, err, &filterErr)
	assert.Equal(t, "sortBy", filterErr.Field)

	_, err = svc.List(context.Background(), "tenant-1", ListQuery{SortOrder: "sideways"})
	require.ErrorAs(t, err, &filterErr)
	assert.Equal(t, "sortOrder", filterErr.Field)
}

func TestSelect_UsesExportLimits(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestQueryService(repo)

	result, err := svc.Select(context.Background(), "tenant-1", ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1000, result.Limit)

	result, err = svc.Select(context.Background(), "tenant-1", ListQuery{Limit: 9000})
	require.NoError(t, err)
	assert.Equal(t, 5000, result.Limit)
}

func TestExport(t *testing.T) {
	repo := newMemoryRepository()
	export := NewExportService(newTestQueryService(repo), quietLogger())
	export.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	_, err := export.Export(context.Background(), "tenant-1", models.ImportFormatCSV, ListQuery{})
	assert.ErrorIs(t, err, transfer.ErrNothingToExport)

	_, err = export.Export(context.Background(), "tenant-1", models.ImportFormat("pdf"), ListQuery{})
	assert.ErrorIs(t, err, transfer.ErrUnsupportedFormat)

	repo.listed = []models.Product{{ID: uuid.New(), SKU: "A", Name: "A", Type: models.ProductTypeSimple, Status: models.ProductStatusDraft}}
	result, err := export.Export(context.Background(), "tenant-1", models.ImportFormatCSV, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, "products_export_20240102_030405.csv", result.File.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", result.File.ContentType)
	assert.Equal(t, int64(1), result.Total)
	assert.Contains(t, string(result.File.Body), ",A,A,")
}
