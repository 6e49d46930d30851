package services

import (
	"context"
	"time"

	"catalog-service/internal/models"
	"catalog-service/internal/transfer"
	"github.com/sirupsen/logrus"
)

// ExportResult is a serialized export with the page it covers.
type ExportResult struct {
	File  *transfer.ExportFile
	Rows  int
	Total int64
	Page  int
	Limit int
}

type ExportService struct {
	query  *ProductQueryService
	now    func() time.Time
	logger *logrus.Entry
}

func NewExportService(query *ProductQueryService, logger *logrus.Logger) *ExportService {
	return &ExportService{
		query:  query,
		now:    time.Now,
		logger: logger.WithField("component", "product-export"),
	}
}

// Export selects products with the same filters as the listing API and
// serializes them. No matches is transfer.ErrNothingToExport.
func (s *ExportService) Export(ctx context.Context, tenantID string, format models.ImportFormat, q ListQuery) (*ExportResult, error) {
	if _, err := transfer.ParseFormat(string(format)); err != nil {
		return nil, err
	}

	result, err := s.query.Select(ctx, tenantID, q)
	if err != nil {
		return nil, err
	}

	file, err := transfer.Serialize(format, result.Products, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"tenantID": tenantID,
		"format":   format,
		"rows":     len(result.Products),
		"total":    result.Total,
		"bytes":    len(file.Body),
	}).Info("Product export generated")

	return &ExportResult{File: file, Rows: len(result.Products), Total: result.Total, Page: result.Page, Limit: result.Limit}, nil
}
