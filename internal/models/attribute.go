package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DataType is the storage type of an attribute and picks the value column
type DataType string

const (
	DataTypeString  DataType = "STRING"
	DataTypeText    DataType = "TEXT"
	DataTypeInt     DataType = "INT"
	DataTypeDecimal DataType = "DECIMAL"
	DataTypeBoolean DataType = "BOOLEAN"
	DataTypeJSON    DataType = "JSON"
)

// InputType is how an attribute is edited. DATE changes filter semantics.
type InputType string

const (
	InputTypeText        InputType = "TEXT"
	InputTypeSelect      InputType = "SELECT"
	InputTypeMultiselect InputType = "MULTISELECT"
	InputTypeDate        InputType = "DATE"
	InputTypeMedia       InputType = "MEDIA"
)

// Attribute is a tenant-defined product property. Code is immutable once
// values reference it.
type Attribute struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID     string    `json:"tenantId" gorm:"not null;uniqueIndex:idx_attributes_tenant_code"`
	Code         string    `json:"code" gorm:"not null;size:100;uniqueIndex:idx_attributes_tenant_code"`
	Label        string    `json:"label" gorm:"not null"`
	DataType     DataType  `json:"dataType" gorm:"not null;default:'STRING'"`
	InputType    InputType `json:"inputType" gorm:"not null;default:'TEXT'"`
	IsFilterable bool      `json:"isFilterable" gorm:"not null;default:false"`
	IsGlobal     bool      `json:"isGlobal" gorm:"not null;default:true"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ProductAttributeValue stores one attribute value of a product, optionally
// scoped to a store view. Exactly one Value* column is non-null; use the eav
// package to read or write them.
type ProductAttributeValue struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID    uuid.UUID      `json:"productId" gorm:"type:uuid;not null;uniqueIndex:idx_pav_product_attribute_store"`
	AttributeID  uuid.UUID      `json:"attributeId" gorm:"type:uuid;not null;uniqueIndex:idx_pav_product_attribute_store;index"`
	StoreViewID  *uuid.UUID     `json:"storeViewId,omitempty" gorm:"type:uuid;uniqueIndex:idx_pav_product_attribute_store"`
	ValueString  *string        `json:"valueString,omitempty" gorm:"size:255;index"`
	ValueText    *string        `json:"valueText,omitempty" gorm:"type:text"`
	ValueInt     *int64         `json:"valueInt,omitempty"`
	ValueDecimal *float64       `json:"valueDecimal,omitempty" gorm:"type:numeric(20,6)"`
	ValueBoolean *bool          `json:"valueBoolean,omitempty"`
	ValueJSON    datatypes.JSON `json:"valueJson,omitempty" gorm:"column:value_json;type:jsonb"`
	Attribute    *Attribute     `json:"attribute,omitempty" gorm:"foreignKey:AttributeID"`
}

func (Attribute) TableName() string {
	return "attributes"
}

func (ProductAttributeValue) TableName() string {
	return "product_attribute_values"
}
