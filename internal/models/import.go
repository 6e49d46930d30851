package models

// ImportFormat is a supported transfer file format
type ImportFormat string

const (
	ImportFormatJSON ImportFormat = "json"
	ImportFormatXML  ImportFormat = "xml"
	ImportFormatCSV  ImportFormat = "csv"
)

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // string, uuid, enum, json
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity  string                 `json:"entity"`
	Version string                 `json:"version"`
	Columns []ImportTemplateColumn `json:"columns"`
}

// FieldError is a single validation failure of one record
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// InvalidRecord is a record rejected before commit
type InvalidRecord struct {
	Index  int          `json:"index"`
	SKU    string       `json:"sku,omitempty"`
	Errors []FieldError `json:"errors"`
}

// ImportRecordError is a record that passed validation but failed to commit
type ImportRecordError struct {
	SKU   string `json:"sku"`
	Index int    `json:"index"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// ImportSummary counts the outcome of an import batch
type ImportSummary struct {
	Total      int                 `json:"total"`
	Successful int                 `json:"successful"`
	Failed     int                 `json:"failed"`
	Created    int                 `json:"created"`
	Updated    int                 `json:"updated"`
	Skipped    int                 `json:"skipped"`
	Errors     []ImportRecordError `json:"errors"`
}

// ImportReport is the payload returned by an import request
type ImportReport struct {
	Summary          ImportSummary   `json:"summary"`
	ValidationErrors []InvalidRecord `json:"validationErrors"`
}

// Commit error codes
const (
	ImportErrorDuplicate    = "DUPLICATE"
	ImportErrorCommitFailed = "COMMIT_FAILED"
)

// ProductImportColumns returns the column definitions for product import
func ProductImportColumns() []ImportTemplateColumn {
	return []ImportTemplateColumn{
		{Name: "sku", Description: "Unique product SKU (upsert key)", Required: true, Type: "string", Example: "TSH-BLU-001"},
		{Name: "name", Description: "Product name", Required: true, Type: "string", Example: "Blue Cotton T-Shirt"},
		{Name: "productType", Description: "SIMPLE, CONFIGURABLE, BUNDLE, GROUPED, VIRTUAL or DOWNLOADABLE", Required: true, Type: "enum", Example: "SIMPLE"},
		{Name: "description", Description: "Product description", Required: false, Type: "string", Example: ""},
		{Name: "status", Description: "DRAFT, ACTIVE, INACTIVE or ARCHIVED (defaults to DRAFT)", Required: false, Type: "enum", Example: "DRAFT"},
		{Name: "assignedTo", Description: "User the product is assigned to", Required: false, Type: "string", Example: ""},
		{Name: "attributeSetId", Description: "Attribute set UUID", Required: false, Type: "uuid", Example: ""},
		{Name: "assets", Description: "JSON array of {assetId|url, type, position}; an empty cell keeps existing assets", Required: false, Type: "json", Example: `[{"url":"https://cdn.example.com/tsh.jpg","type":"image","position":0}]`},
		{Name: "categories", Description: "JSON array of {categoryId, position}; an empty cell keeps existing categories", Required: false, Type: "json", Example: `[{"categoryId":"6f1c0d9e-3b1a-4c55-9d55-2a3a1f0c1b2e","position":0}]`},
		{Name: "attributes", Description: "JSON array of {attributeCode, storeViewId, value}; an empty cell keeps existing values", Required: false, Type: "json", Example: `[{"attributeCode":"color","value":"blue"}]`},
	}
}

// ProductImportTemplate returns the template definition for products
func ProductImportTemplate() ImportTemplate {
	return ImportTemplate{
		Entity:  "products",
		Version: "2.0",
		Columns: ProductImportColumns(),
	}
}
