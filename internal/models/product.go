package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductType classifies how a product is sold
type ProductType string

const (
	ProductTypeSimple       ProductType = "SIMPLE"
	ProductTypeConfigurable ProductType = "CONFIGURABLE"
	ProductTypeBundle       ProductType = "BUNDLE"
	ProductTypeGrouped      ProductType = "GROUPED"
	ProductTypeVirtual      ProductType = "VIRTUAL"
	ProductTypeDownloadable ProductType = "DOWNLOADABLE"
)

// ProductTypes lists every accepted product type in display order
var ProductTypes = []ProductType{
	ProductTypeSimple,
	ProductTypeConfigurable,
	ProductTypeBundle,
	ProductTypeGrouped,
	ProductTypeVirtual,
	ProductTypeDownloadable,
}

// ProductStatus represents the workflow status of a product
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "DRAFT"
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusInactive ProductStatus = "INACTIVE"
	ProductStatusArchived ProductStatus = "ARCHIVED"
)

// Asset role used when an import row does not name one
const DefaultAssetType = "image"

// Product is the EAV entity. Scalar columns are fixed; everything else lives
// in AttributeValues.
type Product struct {
	ID              uuid.UUID               `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID        string                  `json:"tenantId" gorm:"not null;index:idx_products_tenant_id;index:idx_products_tenant_sku,unique;index:idx_products_tenant_type"`
	SKU             string                  `json:"sku" gorm:"not null;size:64;index:idx_products_tenant_sku,unique"`
	Name            string                  `json:"name" gorm:"not null;size:255"`
	Description     *string                 `json:"description,omitempty" gorm:"type:text"`
	Type            ProductType             `json:"type" gorm:"not null;default:'SIMPLE';index:idx_products_tenant_type"`
	Status          ProductStatus           `json:"status" gorm:"not null;default:'DRAFT';index"`
	AssignedTo      *string                 `json:"assignedTo,omitempty" gorm:"index"`
	AttributeSetID  *uuid.UUID              `json:"attributeSetId,omitempty" gorm:"type:uuid"`
	AttributeValues []ProductAttributeValue `json:"attributeValues,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Assets          []ProductAsset          `json:"assets,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Categories      []ProductCategory       `json:"categories,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time               `json:"createdAt"`
	UpdatedAt       time.Time               `json:"updatedAt"`
	DeletedAt       *gorm.DeletedAt         `json:"deletedAt,omitempty" gorm:"index"`
	CreatedBy       *string                 `json:"createdBy,omitempty"`
	UpdatedBy       *string                 `json:"updatedBy,omitempty"`
}

// Category is a node of the tenant's category tree. Names live in translations.
type Category struct {
	ID           uuid.UUID             `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID     string                `json:"tenantId" gorm:"column:tenant_id;not null;index"`
	ParentID     *uuid.UUID            `json:"parentId,omitempty" gorm:"type:uuid;column:parent_id"`
	Position     int                   `json:"position" gorm:"not null;default:0"`
	Translations []CategoryTranslation `json:"translations,omitempty" gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// CategoryTranslation holds the per-store-view name and slug of a category
type CategoryTranslation struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CategoryID  uuid.UUID  `json:"categoryId" gorm:"type:uuid;not null;index"`
	StoreViewID *uuid.UUID `json:"storeViewId,omitempty" gorm:"type:uuid"`
	Name        string     `json:"name" gorm:"not null"`
	Slug        string     `json:"slug" gorm:"not null"`
}

// ProductCategory links a product to a category
type ProductCategory struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID  uuid.UUID `json:"productId" gorm:"type:uuid;not null;uniqueIndex:idx_product_categories_unique"`
	CategoryID uuid.UUID `json:"categoryId" gorm:"type:uuid;not null;uniqueIndex:idx_product_categories_unique;index"`
	Position   int       `json:"position" gorm:"not null;default:0"`
	Category   *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}

// Asset is a stored file or an external URL
type Asset struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID  string    `json:"tenantId" gorm:"not null;index:idx_assets_tenant_url"`
	FilePath  *string   `json:"filePath,omitempty"`
	MimeType  *string   `json:"mimeType,omitempty"`
	URL       *string   `json:"url,omitempty" gorm:"type:text;index:idx_assets_tenant_url"`
	Type      *string   `json:"type,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProductAsset attaches an asset to a product under a role. The same asset
// may be attached more than once with different roles.
type ProductAsset struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID uuid.UUID `json:"productId" gorm:"type:uuid;not null;uniqueIndex:idx_product_assets_unique"`
	AssetID   uuid.UUID `json:"assetId" gorm:"type:uuid;not null;uniqueIndex:idx_product_assets_unique"`
	Type      string    `json:"type" gorm:"not null;default:'image';uniqueIndex:idx_product_assets_unique"`
	Position  int       `json:"position" gorm:"not null;default:0"`
	Asset     *Asset    `json:"asset,omitempty" gorm:"foreignKey:AssetID"`
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// TableName returns the table name for the Category model
func (Category) TableName() string {
	return "categories"
}

func (CategoryTranslation) TableName() string {
	return "category_translations"
}

func (ProductCategory) TableName() string {
	return "product_categories"
}

func (Asset) TableName() string {
	return "assets"
}

func (ProductAsset) TableName() string {
	return "product_assets"
}
