package repository

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"catalog-service/internal/models"
	sq "github.com/Masterminds/squirrel"
	"github.com/Tesseract-Nexus/go-shared/cache"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Cache TTL constants
const (
	ProductListCacheTTL    = 2 * time.Minute // Product list cache (shorter due to frequent changes)
	CategoryExistsCacheTTL = 1 * time.Minute
)

// ErrNotFound is returned when a looked up row does not exist for the tenant.
var ErrNotFound = gorm.ErrRecordNotFound

// ProductQuery selects a page of products. Where is built by the filters
// package and may reference the products table by name.
type ProductQuery struct {
	Where      sq.Sqlizer
	SortColumn string
	SortDesc   bool
	Offset     int
	Limit      int
	// Count also returns the total number of matches.
	Count bool
	// Preload loads attribute values, assets and categories.
	Preload bool
}

// ProductRepository is the persistence used by the query, import and export
// services.
type ProductRepository interface {
	// WithTransaction runs fn against a repository bound to one transaction.
	WithTransaction(ctx context.Context, fn func(repo ProductRepository) error) error

	ListAttributes(ctx context.Context, tenantID string) ([]models.Attribute, error)
	ListProducts(ctx context.Context, tenantID string, q ProductQuery) ([]models.Product, int64, error)
	FindProductBySKU(ctx context.Context, tenantID, sku string) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error

	ReplaceAssets(ctx context.Context, productID uuid.UUID, assets []models.ProductAsset) error
	ReplaceCategories(ctx context.Context, productID uuid.UUID, categories []models.ProductCategory) error
	ReplaceAttributeValues(ctx context.Context, productID uuid.UUID, values []models.ProductAttributeValue) error

	FindAssetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Asset, error)
	FindAssetByURL(ctx context.Context, tenantID, url string) (*models.Asset, error)
	CreateAsset(ctx context.Context, asset *models.Asset) error
	CategoryExists(ctx context.Context, tenantID string, id uuid.UUID) (bool, error)

	InvalidateProductLists(ctx context.Context, tenantID string)
}

type ProductsRepository struct {
	db    *gorm.DB
	redis *redis.Client
	cache *cache.CacheLayer
}

var _ ProductRepository = (*ProductsRepository)(nil)

func NewProductsRepository(db *gorm.DB, redis *redis.Client) *ProductsRepository {
	repo := &ProductsRepository{
		db:    db,
		redis: redis,
	}

	// Initialize CacheLayer with the existing Redis client
	if redis != nil {
		cacheConfig := cache.CacheConfig{
			L1Enabled:  true,
			L1MaxItems: 5000,
			L1TTL:      30 * time.Second,
			DefaultTTL: ProductListCacheTTL,
			KeyPrefix:  "tesseract:catalog:",
		}
		repo.cache = cache.NewCacheLayerFromClient(redis, cacheConfig)
	}

	return repo
}

// generateListCacheKey creates a deterministic cache key for list queries
func generateListCacheKey(tenantID string, prefix string, params interface{}) string {
	data, _ := json.Marshal(params)
	hash := md5.Sum(data)
	return fmt.Sprintf("%s:%s:%s", prefix, tenantID, hex.EncodeToString(hash[:]))
}

// InvalidateProductLists drops every cached product list of the tenant
func (r *ProductsRepository) InvalidateProductLists(ctx context.Context, tenantID string) {
	if r.cache == nil {
		return
	}
	_ = r.cache.DeletePattern(ctx, fmt.Sprintf("products:list:%s:*", tenantID))
}

func (r *ProductsRepository) WithTransaction(ctx context.Context, fn func(repo ProductRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ProductsRepository{db: tx, redis: r.redis, cache: r.cache})
	})
}

// ListAttributes returns the tenant's attribute definitions ordered by code
func (r *ProductsRepository) ListAttributes(ctx context.Context, tenantID string) ([]models.Attribute, error) {
	var attrs []models.Attribute
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("code ASC").
		Find(&attrs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attributes: %w", err)
	}
	return attrs, nil
}

// ListProducts returns one page of matching products with caching
func (r *ProductsRepository) ListProducts(ctx context.Context, tenantID string, q ProductQuery) ([]models.Product, int64, error) {
	whereSQL, whereArgs, err := toSQL(q.Where)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build product filter: %w", err)
	}

	if r.cache != nil {
		type listResult struct {
			Products []models.Product `json:"products"`
			Total    int64            `json:"total"`
		}
		cacheKey := generateListCacheKey(tenantID, "products:list", map[string]interface{}{
			"where":   whereSQL,
			"args":    whereArgs,
			"sort":    q.SortColumn,
			"desc":    q.SortDesc,
			"offset":  q.Offset,
			"limit":   q.Limit,
			"count":   q.Count,
			"preload": q.Preload,
		})
		var result listResult
		err := r.cache.GetOrSetJSON(ctx, cacheKey, &result, ProductListCacheTTL, func() (any, error) {
			products, total, err := r.listProducts(ctx, tenantID, whereSQL, whereArgs, q)
			if err != nil {
				return nil, err
			}
			return &listResult{Products: products, Total: total}, nil
		})
		if err != nil {
			return nil, 0, err
		}
		return result.Products, result.Total, nil
	}

	return r.listProducts(ctx, tenantID, whereSQL, whereArgs, q)
}

func (r *ProductsRepository) listProducts(ctx context.Context, tenantID, whereSQL string, whereArgs []interface{}, q ProductQuery) ([]models.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).Where("products.tenant_id = ?", tenantID)
	if whereSQL != "" {
		query = query.Where(whereSQL, whereArgs...)
	}

	var total int64
	if q.Count {
		if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			return nil, 0, fmt.Errorf("failed to count products: %w", err)
		}
	}

	sortColumn := q.SortColumn
	if sortColumn == "" {
		sortColumn = "created_at"
	}
	direction := "ASC"
	if q.SortDesc {
		direction = "DESC"
	}
	query = query.Order(fmt.Sprintf("products.%s %s", sortColumn, direction)).Order("products.id ASC")

	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if q.Preload {
		query = preloadRelations(query)
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	if !q.Count {
		total = int64(len(products))
	}
	return products, total, nil
}

func preloadRelations(query *gorm.DB) *gorm.DB {
	return query.
		Preload("AttributeValues", func(db *gorm.DB) *gorm.DB {
			return db.Order("product_attribute_values.attribute_id ASC, product_attribute_values.store_view_id ASC")
		}).
		Preload("AttributeValues.Attribute").
		Preload("Assets", func(db *gorm.DB) *gorm.DB {
			return db.Order("product_assets.position ASC")
		}).
		Preload("Assets.Asset").
		Preload("Categories", func(db *gorm.DB) *gorm.DB {
			return db.Order("product_categories.position ASC")
		}).
		Preload("Categories.Category").
		Preload("Categories.Category.Translations")
}

// FindProductBySKU looks up a product including soft-deleted rows, so that an
// import can restore it instead of hitting the unique index.
func (r *ProductsRepository) FindProductBySKU(ctx context.Context, tenantID, sku string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Unscoped().
		Where("tenant_id = ? AND sku = ?", tenantID, sku).
		Take(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct inserts the product row only. Relations are written with the
// Replace methods.
func (r *ProductsRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	now := time.Now()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	product.CreatedAt = now
	product.UpdatedAt = now
	if product.Status == "" {
		product.Status = models.ProductStatusDraft
	}
	return r.db.WithContext(ctx).Omit("AttributeValues", "Assets", "Categories").Create(product).Error
}

// UpdateProduct overwrites the scalar columns and restores a soft-deleted row
func (r *ProductsRepository) UpdateProduct(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Unscoped().Model(&models.Product{}).
		Where("id = ? AND tenant_id = ?", product.ID, product.TenantID).
		Updates(map[string]interface{}{
			"name":             product.Name,
			"description":      product.Description,
			"type":             product.Type,
			"status":           product.Status,
			"assigned_to":      product.AssignedTo,
			"attribute_set_id": product.AttributeSetID,
			"updated_at":       product.UpdatedAt,
			"updated_by":       product.UpdatedBy,
			"deleted_at":       nil, // Restore if soft-deleted
		}).Error
}

func (r *ProductsRepository) ReplaceAssets(ctx context.Context, productID uuid.UUID, assets []models.ProductAsset) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("product_id = ?", productID).Delete(&models.ProductAsset{}).Error; err != nil {
		return fmt.Errorf("failed to clear product assets: %w", err)
	}
	if len(assets) == 0 {
		return nil
	}
	for i := range assets {
		assets[i].ProductID = productID
	}
	return db.Omit("Asset").Create(&assets).Error
}

func (r *ProductsRepository) ReplaceCategories(ctx context.Context, productID uuid.UUID, categories []models.ProductCategory) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("product_id = ?", productID).Delete(&models.ProductCategory{}).Error; err != nil {
		return fmt.Errorf("failed to clear product categories: %w", err)
	}
	if len(categories) == 0 {
		return nil
	}
	for i := range categories {
		categories[i].ProductID = productID
	}
	return db.Omit("Category").Create(&categories).Error
}

func (r *ProductsRepository) ReplaceAttributeValues(ctx context.Context, productID uuid.UUID, values []models.ProductAttributeValue) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("product_id = ?", productID).Delete(&models.ProductAttributeValue{}).Error; err != nil {
		return fmt.Errorf("failed to clear product attribute values: %w", err)
	}
	if len(values) == 0 {
		return nil
	}
	for i := range values {
		values[i].ProductID = productID
	}
	return db.Omit("Attribute").Create(&values).Error
}

func (r *ProductsRepository) FindAssetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Asset, error) {
	var asset models.Asset
	if err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).Take(&asset).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *ProductsRepository) FindAssetByURL(ctx context.Context, tenantID, url string) (*models.Asset, error) {
	var asset models.Asset
	if err := r.db.WithContext(ctx).Where("tenant_id = ? AND url = ?", tenantID, url).Take(&asset).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *ProductsRepository) CreateAsset(ctx context.Context, asset *models.Asset) error {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	asset.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Create(asset).Error
}

// CategoryExists reports whether the category belongs to the tenant with caching
func (r *ProductsRepository) CategoryExists(ctx context.Context, tenantID string, id uuid.UUID) (bool, error) {
	count := func() (bool, error) {
		var n int64
		err := r.db.WithContext(ctx).Model(&models.Category{}).
			Where("tenant_id = ? AND id = ?", tenantID, id).
			Count(&n).Error
		return n > 0, err
	}

	if r.cache != nil {
		var exists bool
		cacheKey := fmt.Sprintf("category:exists:%s:%s", tenantID, id.String())
		err := r.cache.GetOrSetJSON(ctx, cacheKey, &exists, CategoryExistsCacheTTL, func() (any, error) {
			return count()
		})
		if err != nil {
			return false, err
		}
		return exists, nil
	}
	return count()
}

func toSQL(where sq.Sqlizer) (string, []interface{}, error) {
	if where == nil {
		return "", nil, nil
	}
	if and, ok := where.(sq.And); ok && len(and) == 0 {
		return "", nil, nil
	}
	return where.ToSql()
}

// IsNotFound reports whether err means the row does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
