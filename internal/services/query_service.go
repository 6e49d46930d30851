package services

import (
	"context"
	"strings"

	"catalog-service/internal/filters"
	"catalog-service/internal/models"
	"catalog-service/internal/repository"
	"github.com/sirupsen/logrus"
)

// Limits bounds the page size of a selection.
type Limits struct {
	Default int
	Max     int
}

// ListQuery is a product selection as received from a request.
type ListQuery struct {
	Page       int
	Limit      int
	SortBy     string
	SortOrder  string
	Structural filters.Structural
	Attributes map[string]string
}

// ListResult is one page of products.
type ListResult struct {
	Products []models.Product
	Total    int64
	Page     int
	Limit    int
}

var sortColumns = map[string]string{
	"createdat": "created_at",
	"updatedat": "updated_at",
	"sku":       "sku",
	"name":      "name",
	"type":      "type",
	"status":    "status",
}

// ProductQueryService selects products for listing and export. Both share one
// filter and sort implementation and differ only in their page limits.
type ProductQueryService struct {
	repo    repository.ProductRepository
	builder *filters.Builder
	list    Limits
	export  Limits
	logger  *logrus.Entry
}

func NewProductQueryService(repo repository.ProductRepository, builder *filters.Builder, list, export Limits, logger *logrus.Logger) *ProductQueryService {
	return &ProductQueryService{
		repo:    repo,
		builder: builder,
		list:    list,
		export:  export,
		logger:  logger.WithField("component", "product-query"),
	}
}

// List returns a page of products with their relations for the listing API.
func (s *ProductQueryService) List(ctx context.Context, tenantID string, q ListQuery) (*ListResult, error) {
	return s.query(ctx, tenantID, q, s.list)
}

// Select returns the products of an export using the export page limits.
func (s *ProductQueryService) Select(ctx context.Context, tenantID string, q ListQuery) (*ListResult, error) {
	return s.query(ctx, tenantID, q, s.export)
}

func (s *ProductQueryService) query(ctx context.Context, tenantID string, q ListQuery, limits Limits) (*ListResult, error) {
	column, desc, err := sortOrder(q.SortBy, q.SortOrder)
	if err != nil {
		return nil, err
	}

	where, err := s.builder.Build(ctx, tenantID, q.Structural, q.Attributes)
	if err != nil {
		return nil, err
	}

	page, limit := paginate(q.Page, q.Limit, limits)
	products, total, err := s.repo.ListProducts(ctx, tenantID, repository.ProductQuery{
		Where:      where,
		SortColumn: column,
		SortDesc:   desc,
		Offset:     (page - 1) * limit,
		Limit:      limit,
		Count:      true,
		Preload:    true,
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"tenantID":   tenantID,
		"filters":    len(where),
		"total":      total,
		"page":       page,
		"limit":      limit,
		"attributes": len(q.Attributes),
	}).Debug("Selected products")

	return &ListResult{Products: products, Total: total, Page: page, Limit: limit}, nil
}

func sortOrder(sortBy, order string) (string, bool, error) {
	column := "created_at"
	if sortBy = strings.TrimSpace(sortBy); sortBy != "" {
		c, ok := sortColumns[strings.ToLower(sortBy)]
		if !ok {
			return "", false, &filters.InvalidFilterError{Field: "sortBy", Message: "must be one of createdAt, updatedAt, sku, name, type, status"}
		}
		column = c
	}

	switch strings.ToLower(strings.TrimSpace(order)) {
	case "", "desc":
		return column, true, nil
	case "asc":
		return column, false, nil
	}
	return "", false, &filters.InvalidFilterError{Field: "sortOrder", Message: "must be asc or desc"}
}

func paginate(page, limit int, limits Limits) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = limits.Default
	}
	if limits.Max > 0 && limit > limits.Max {
		limit = limits.Max
	}
	return page, limit
}
