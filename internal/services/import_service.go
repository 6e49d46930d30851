package services

import (
	"context"
	"errors"
	"fmt"

	"catalog-service/internal/catalog"
	"catalog-service/internal/eav"
	"catalog-service/internal/models"
	"catalog-service/internal/repository"
	"catalog-service/internal/transfer"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// AttributeSnapshotter provides the attribute definitions of a tenant.
type AttributeSnapshotter interface {
	Snapshot(ctx context.Context, tenantID string) (catalog.Set, error)
}

// ProductEvents receives notifications of committed imports.
type ProductEvents interface {
	PublishProductCreated(ctx context.Context, product *models.Product, actorID string) error
	PublishProductUpdated(ctx context.Context, product, oldProduct *models.Product, changedFields []string, actorID string) error
}

// ValidationFailedError is returned when no record of a batch passed
// validation. Nothing was written.
type ValidationFailedError struct {
	Errors []models.InvalidRecord
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("all %d records failed validation", len(e.Errors))
}

// ImportService runs the import pipeline: detect, decode, normalize, validate
// and commit each valid record in its own transaction.
type ImportService struct {
	repo      repository.ProductRepository
	catalog   AttributeSnapshotter
	validator *transfer.Validator
	events    ProductEvents
	logger    *logrus.Entry
}

// NewImportService creates the import pipeline. events may be nil.
func NewImportService(repo repository.ProductRepository, attributes AttributeSnapshotter, productEvents ProductEvents, logger *logrus.Logger) *ImportService {
	return &ImportService{
		repo:      repo,
		catalog:   attributes,
		validator: transfer.NewValidator(),
		events:    productEvents,
		logger:    logger.WithField("component", "product-import"),
	}
}

// Import processes one uploaded file. Format and decoding problems are
// returned as errors; per-record problems are reported in the result.
func (s *ImportService) Import(ctx context.Context, tenantID, actorID, filename string, data []byte) (*models.ImportReport, error) {
	format, err := transfer.DetectFormat(filename, data)
	if err != nil {
		return nil, err
	}

	raw, err := transfer.Decode(format, data)
	if errors.Is(err, transfer.ErrNotArray) {
		return nil, &ValidationFailedError{Errors: transfer.RootError(err)}
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, transfer.ErrEmptyFile
	}

	valid, invalid := s.validator.Validate(transfer.NormalizeAll(raw))
	if len(valid) == 0 {
		return nil, &ValidationFailedError{Errors: invalid}
	}

	attrs, err := s.catalog.Snapshot(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attributes: %w", err)
	}

	summary := models.ImportSummary{
		Total:   len(raw),
		Skipped: len(invalid),
		Errors:  make([]models.ImportRecordError, 0),
	}
	for _, rec := range valid {
		created, err := s.commit(ctx, tenantID, actorID, attrs, rec)
		if err != nil {
			code := classify(err)
			s.logger.WithFields(logrus.Fields{
				"tenantID": tenantID,
				"sku":      rec.SKU,
				"index":    rec.Index,
				"code":     code,
			}).WithError(err).Warn("Failed to import product")
			summary.Failed++
			summary.Errors = append(summary.Errors, models.ImportRecordError{
				SKU:   rec.SKU,
				Index: rec.Index,
				Code:  code,
				Error: err.Error(),
			})
			continue
		}
		summary.Successful++
		if created {
			summary.Created++
		} else {
			summary.Updated++
		}
	}
	s.repo.InvalidateProductLists(ctx, tenantID)

	s.logger.WithFields(logrus.Fields{
		"tenantID":   tenantID,
		"format":     format,
		"total":      summary.Total,
		"created":    summary.Created,
		"updated":    summary.Updated,
		"failed":     summary.Failed,
		"skipped":    summary.Skipped,
		"successful": summary.Successful,
	}).Info("Product import finished")

	return &models.ImportReport{Summary: summary, ValidationErrors: invalid}, nil
}

// commit writes one record in its own transaction and reports whether the
// product was created.
func (s *ImportService) commit(ctx context.Context, tenantID, actorID string, attrs catalog.Set, rec transfer.Record) (bool, error) {
	var (
		created  bool
		product  *models.Product
		previous *models.Product
		changed  []string
	)
	log := s.logger.WithFields(logrus.Fields{"tenantID": tenantID, "sku": rec.SKU, "index": rec.Index})

	err := s.repo.WithTransaction(ctx, func(repo repository.ProductRepository) error {
		existing, err := repo.FindProductBySKU(ctx, tenantID, rec.SKU)
		switch {
		case err == nil:
			snapshot := *existing
			previous = &snapshot
			changed = applyScalars(existing, rec, actorID)
			if err := repo.UpdateProduct(ctx, existing); err != nil {
				return fmt.Errorf("failed to update product: %w", err)
			}
			product = existing
		case repository.IsNotFound(err):
			product = newProduct(tenantID, actorID, rec)
			if err := repo.CreateProduct(ctx, product); err != nil {
				return fmt.Errorf("failed to create product: %w", err)
			}
			created = true
		default:
			return fmt.Errorf("failed to look up product: %w", err)
		}

		if rec.ReplaceAssets {
			assets, err := resolveAssets(ctx, repo, tenantID, rec.Assets, log)
			if err != nil {
				return err
			}
			if err := repo.ReplaceAssets(ctx, product.ID, assets); err != nil {
				return fmt.Errorf("failed to replace assets: %w", err)
			}
			changed = append(changed, "assets")
		}
		if rec.ReplaceCategories {
			categories, err := resolveCategories(ctx, repo, tenantID, rec.Categories, log)
			if err != nil {
				return err
			}
			if err := repo.ReplaceCategories(ctx, product.ID, categories); err != nil {
				return fmt.Errorf("failed to replace categories: %w", err)
			}
			changed = append(changed, "categories")
		}
		if rec.ReplaceAttributes {
			values := resolveAttributeValues(attrs, rec.Attributes, log)
			if err := repo.ReplaceAttributeValues(ctx, product.ID, values); err != nil {
				return fmt.Errorf("failed to replace attribute values: %w", err)
			}
			changed = append(changed, "attributes")
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if s.events != nil {
		if created {
			_ = s.events.PublishProductCreated(ctx, product, actorID)
		} else {
			_ = s.events.PublishProductUpdated(ctx, product, previous, changed, actorID)
		}
	}
	return created, nil
}

func newProduct(tenantID, actorID string, rec transfer.Record) *models.Product {
	product := &models.Product{
		TenantID:    tenantID,
		SKU:         rec.SKU,
		Name:        rec.Name,
		Description: rec.Description,
		Type:        models.ProductType(rec.ProductType),
		Status:      models.ProductStatus(rec.Status),
	}
	if product.Status == "" {
		product.Status = models.ProductStatusDraft
	}
	if rec.AssignedTo != "" {
		assignedTo := rec.AssignedTo
		product.AssignedTo = &assignedTo
	}
	if id, err := uuid.Parse(rec.AttributeSetID); err == nil {
		product.AttributeSetID = &id
	}
	if actorID != "" {
		product.CreatedBy = &actorID
		product.UpdatedBy = &actorID
	}
	return product
}

// applyScalars copies the record's scalar fields onto an existing product.
// Optional fields the record leaves empty keep their stored value.
func applyScalars(p *models.Product, rec transfer.Record, actorID string) []string {
	changed := []string{}
	set := func(field string, differs bool) {
		if differs {
			changed = append(changed, field)
		}
	}

	set("name", p.Name != rec.Name)
	p.Name = rec.Name
	set("productType", string(p.Type) != rec.ProductType)
	p.Type = models.ProductType(rec.ProductType)

	if rec.Description != nil {
		set("description", p.Description == nil || *p.Description != *rec.Description)
		p.Description = rec.Description
	}
	if rec.Status != "" {
		set("status", string(p.Status) != rec.Status)
		p.Status = models.ProductStatus(rec.Status)
	}
	if rec.AssignedTo != "" {
		set("assignedTo", p.AssignedTo == nil || *p.AssignedTo != rec.AssignedTo)
		assignedTo := rec.AssignedTo
		p.AssignedTo = &assignedTo
	}
	if id, err := uuid.Parse(rec.AttributeSetID); err == nil {
		set("attributeSetId", p.AttributeSetID == nil || *p.AttributeSetID != id)
		p.AttributeSetID = &id
	}
	if p.DeletedAt != nil && p.DeletedAt.Valid {
		set("deletedAt", true)
		p.DeletedAt = nil
	}
	if actorID != "" {
		p.UpdatedBy = &actorID
	}
	return changed
}

func resolveAssets(ctx context.Context, repo repository.ProductRepository, tenantID string, refs []transfer.AssetRef, log *logrus.Entry) ([]models.ProductAsset, error) {
	type key struct {
		assetID uuid.UUID
		role    string
	}
	seen := make(map[key]bool, len(refs))
	out := make([]models.ProductAsset, 0, len(refs))

	for i, ref := range refs {
		asset, err := findOrCreateAsset(ctx, repo, tenantID, ref)
		if err != nil {
			return nil, err
		}
		if asset == nil {
			log.WithField("asset", i).Debug("Skipping unresolvable asset reference")
			continue
		}
		k := key{asset.ID, ref.Type}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, models.ProductAsset{AssetID: asset.ID, Type: ref.Type, Position: ref.Position})
	}
	return out, nil
}

// findOrCreateAsset returns nil when an asset id does not resolve. A URL that
// is not known yet is created.
func findOrCreateAsset(ctx context.Context, repo repository.ProductRepository, tenantID string, ref transfer.AssetRef) (*models.Asset, error) {
	if ref.AssetID != "" {
		id, err := uuid.Parse(ref.AssetID)
		if err != nil {
			return nil, nil
		}
		asset, err := repo.FindAssetByID(ctx, tenantID, id)
		if repository.IsNotFound(err) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up asset: %w", err)
		}
		return asset, nil
	}
	if ref.URL == "" {
		return nil, nil
	}

	asset, err := repo.FindAssetByURL(ctx, tenantID, ref.URL)
	if err == nil {
		return asset, nil
	}
	if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("failed to look up asset: %w", err)
	}

	url, assetType := ref.URL, ref.Type
	asset = &models.Asset{TenantID: tenantID, URL: &url, Type: &assetType}
	if ref.FilePath != "" {
		filePath := ref.FilePath
		asset.FilePath = &filePath
	}
	if ref.MimeType != "" {
		mimeType := ref.MimeType
		asset.MimeType = &mimeType
	}
	if err := repo.CreateAsset(ctx, asset); err != nil {
		return nil, fmt.Errorf("failed to create asset: %w", err)
	}
	return asset, nil
}

func resolveCategories(ctx context.Context, repo repository.ProductRepository, tenantID string, refs []transfer.CategoryRef, log *logrus.Entry) ([]models.ProductCategory, error) {
	seen := make(map[uuid.UUID]bool, len(refs))
	out := make([]models.ProductCategory, 0, len(refs))

	for _, ref := range refs {
		id, err := uuid.Parse(ref.CategoryID)
		if err != nil {
			log.WithField("categoryId", ref.CategoryID).Debug("Skipping malformed category id")
			continue
		}
		if seen[id] {
			continue
		}
		exists, err := repo.CategoryExists(ctx, tenantID, id)
		if err != nil {
			return nil, fmt.Errorf("failed to look up category: %w", err)
		}
		if !exists {
			log.WithField("categoryId", ref.CategoryID).Debug("Skipping unknown category")
			continue
		}
		seen[id] = true
		out = append(out, models.ProductCategory{CategoryID: id, Position: ref.Position})
	}
	return out, nil
}

func resolveAttributeValues(attrs catalog.Set, inputs []transfer.AttributeInput, log *logrus.Entry) []models.ProductAttributeValue {
	type key struct {
		attributeID uuid.UUID
		storeView   uuid.UUID
	}
	seen := make(map[key]bool, len(inputs))
	out := make([]models.ProductAttributeValue, 0, len(inputs))

	for _, in := range inputs {
		attr := attrs.Get(in.Code)
		if attr == nil {
			log.WithField("attributeCode", in.Code).Debug("Skipping unknown attribute")
			continue
		}

		var storeView *uuid.UUID
		if in.StoreViewID != "" {
			id, err := uuid.Parse(in.StoreViewID)
			if err != nil {
				log.WithField("storeViewId", in.StoreViewID).Debug("Skipping value with malformed store view")
				continue
			}
			storeView = &id
		}

		value, err := eav.ParseForAttribute(attr, in.Value)
		if err != nil {
			log.WithField("attributeCode", in.Code).WithError(err).Debug("Skipping attribute value")
			continue
		}

		k := key{attributeID: attr.ID}
		if storeView != nil {
			k.storeView = *storeView
		}
		if seen[k] {
			continue
		}
		seen[k] = true

		row := models.ProductAttributeValue{AttributeID: attr.ID, StoreViewID: storeView}
		eav.Apply(&row, value)
		out = append(out, row)
	}
	return out
}

func classify(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return models.ImportErrorDuplicate
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.ImportErrorDuplicate
	}
	return models.ImportErrorCommitFailed
}
