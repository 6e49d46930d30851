package transfer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"time"

	"catalog-service/internal/eav"
	"catalog-service/internal/models"
	"github.com/google/uuid"
)

// ProductDocument is the export shape of a product with its relations. The
// same document is written as JSON and XML and can be imported again.
type ProductDocument struct {
	XMLName         xml.Name            `json:"-" xml:"product"`
	ID              uuid.UUID           `json:"id" xml:"id"`
	SKU             string              `json:"sku" xml:"sku"`
	Name            string              `json:"name" xml:"name"`
	Description     *string             `json:"description" xml:"description,omitempty"`
	ProductType     string              `json:"productType" xml:"productType"`
	Status          string              `json:"status" xml:"status"`
	AssignedTo      *string             `json:"assignedTo" xml:"assignedTo,omitempty"`
	AttributeSetID  *uuid.UUID          `json:"attributeSetId" xml:"attributeSetId,omitempty"`
	CreatedAt       time.Time           `json:"createdAt" xml:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt" xml:"updatedAt"`
	Assets          []AssetDocument     `json:"productAssets" xml:"productAssets>productAsset"`
	Categories      []CategoryDocument  `json:"productCategories" xml:"productCategories>productCategory"`
	AttributeValues []AttributeDocument `json:"productAttributeValues" xml:"productAttributeValues>productAttributeValue"`
}

type AssetDocument struct {
	AssetID  uuid.UUID      `json:"assetId" xml:"assetId"`
	Type     string         `json:"type" xml:"type"`
	Position int            `json:"position" xml:"position"`
	Asset    *AssetResource `json:"asset" xml:"asset,omitempty"`
}

type AssetResource struct {
	ID       uuid.UUID `json:"id" xml:"id"`
	URL      *string   `json:"url" xml:"url,omitempty"`
	FilePath *string   `json:"filePath" xml:"filePath,omitempty"`
	MimeType *string   `json:"mimeType" xml:"mimeType,omitempty"`
	Type     *string   `json:"type" xml:"type,omitempty"`
}

type CategoryDocument struct {
	CategoryID uuid.UUID         `json:"categoryId" xml:"categoryId"`
	Position   int               `json:"position" xml:"position"`
	Category   *CategoryResource `json:"category" xml:"category,omitempty"`
}

type CategoryResource struct {
	ID           uuid.UUID             `json:"id" xml:"id"`
	ParentID     *uuid.UUID            `json:"parentId" xml:"parentId,omitempty"`
	Translations []TranslationDocument `json:"translations" xml:"translations>translation"`
}

type TranslationDocument struct {
	StoreViewID *uuid.UUID `json:"storeViewId" xml:"storeViewId,omitempty"`
	Name        string     `json:"name" xml:"name"`
	Slug        string     `json:"slug" xml:"slug"`
}

// AttributeDocument carries the value natively in JSON and as text in XML.
type AttributeDocument struct {
	AttributeID   uuid.UUID       `json:"attributeId" xml:"attributeId"`
	AttributeCode string          `json:"attributeCode" xml:"attributeCode"`
	DataType      models.DataType `json:"dataType" xml:"dataType"`
	StoreViewID   *uuid.UUID      `json:"storeViewId" xml:"storeViewId,omitempty"`
	Value         interface{}     `json:"value" xml:"-"`
	ValueText     *string         `json:"-" xml:"value,omitempty"`
}

type productsXML struct {
	XMLName  xml.Name          `xml:"products"`
	Products []ProductDocument `xml:"product"`
}

// ExportFile is a serialized export ready to be sent or written.
type ExportFile struct {
	Format      models.ImportFormat
	ContentType string
	Filename    string
	Body        []byte
}

// BuildDocuments maps loaded products to export documents. Products must be
// loaded with their attribute, asset and category relations.
func BuildDocuments(products []models.Product) []ProductDocument {
	docs := make([]ProductDocument, len(products))
	for i := range products {
		docs[i] = buildDocument(&products[i])
	}
	return docs
}

func buildDocument(p *models.Product) ProductDocument {
	doc := ProductDocument{
		ID:              p.ID,
		SKU:             p.SKU,
		Name:            p.Name,
		Description:     p.Description,
		ProductType:     string(p.Type),
		Status:          string(p.Status),
		AssignedTo:      p.AssignedTo,
		AttributeSetID:  p.AttributeSetID,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		Assets:          make([]AssetDocument, 0, len(p.Assets)),
		Categories:      make([]CategoryDocument, 0, len(p.Categories)),
		AttributeValues: make([]AttributeDocument, 0, len(p.AttributeValues)),
	}

	for _, pa := range p.Assets {
		ad := AssetDocument{AssetID: pa.AssetID, Type: pa.Type, Position: pa.Position}
		if pa.Asset != nil {
			ad.Asset = &AssetResource{
				ID:       pa.Asset.ID,
				URL:      pa.Asset.URL,
				FilePath: pa.Asset.FilePath,
				MimeType: pa.Asset.MimeType,
				Type:     pa.Asset.Type,
			}
		}
		doc.Assets = append(doc.Assets, ad)
	}

	for _, pc := range p.Categories {
		cd := CategoryDocument{CategoryID: pc.CategoryID, Position: pc.Position}
		if pc.Category != nil {
			res := &CategoryResource{
				ID:           pc.Category.ID,
				ParentID:     pc.Category.ParentID,
				Translations: make([]TranslationDocument, 0, len(pc.Category.Translations)),
			}
			for _, t := range pc.Category.Translations {
				res.Translations = append(res.Translations, TranslationDocument{
					StoreViewID: t.StoreViewID,
					Name:        t.Name,
					Slug:        t.Slug,
				})
			}
			cd.Category = res
		}
		doc.Categories = append(doc.Categories, cd)
	}

	for i := range p.AttributeValues {
		pav := &p.AttributeValues[i]
		ad := AttributeDocument{AttributeID: pav.AttributeID, StoreViewID: pav.StoreViewID}
		if pav.Attribute != nil {
			ad.AttributeCode = pav.Attribute.Code
			ad.DataType = pav.Attribute.DataType
			if v, err := eav.FromRow(pav.Attribute.DataType, pav); err == nil {
				ad.Value = eav.Native(v)
				s := eav.Format(v)
				ad.ValueText = &s
			}
		}
		doc.AttributeValues = append(doc.AttributeValues, ad)
	}
	return doc
}

// Filename returns the download name of an export taken at now.
func Filename(format models.ImportFormat, now time.Time) string {
	return fmt.Sprintf("products_export_%s.%s", now.UTC().Format("20060102_150405"), format)
}

// Serialize encodes products in the requested format. An empty result is
// ErrNothingToExport.
func Serialize(format models.ImportFormat, products []models.Product, now time.Time) (*ExportFile, error) {
	if len(products) == 0 {
		return nil, ErrNothingToExport
	}
	docs := BuildDocuments(products)

	var (
		body []byte
		err  error
	)
	switch format {
	case models.ImportFormatJSON:
		body, err = json.MarshalIndent(docs, "", "  ")
	case models.ImportFormatXML:
		body, err = encodeXML(docs)
	case models.ImportFormatCSV:
		body, err = encodeCSV(docs)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s export: %w", format, err)
	}

	return &ExportFile{
		Format:      format,
		ContentType: ContentType(format),
		Filename:    Filename(format, now),
		Body:        body,
	}, nil
}

func encodeXML(docs []ProductDocument) ([]byte, error) {
	out, err := xml.MarshalIndent(productsXML{Products: docs}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

type assetCell struct {
	AssetID  uuid.UUID `json:"assetId"`
	URL      *string   `json:"url,omitempty"`
	Type     string    `json:"type"`
	Position int       `json:"position"`
}

type categoryCell struct {
	CategoryID uuid.UUID `json:"categoryId"`
	Position   int       `json:"position"`
}

type attributeCell struct {
	AttributeCode string      `json:"attributeCode"`
	StoreViewID   *uuid.UUID  `json:"storeViewId,omitempty"`
	Value         interface{} `json:"value"`
}

// csvColumns are the export columns. The import template columns are a subset.
var csvColumns = []string{
	"id", "sku", "name", "description", "productType", "status", "assignedTo",
	"attributeSetId", "createdAt", "updatedAt", "assets", "categories", "attributes",
}

// encodeCSV writes one row per product. Relations are JSON arrays in their
// own cells.
func encodeCSV(docs []ProductDocument) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvColumns); err != nil {
		return nil, err
	}

	for _, doc := range docs {
		assets := make([]assetCell, 0, len(doc.Assets))
		for _, a := range doc.Assets {
			cell := assetCell{AssetID: a.AssetID, Type: a.Type, Position: a.Position}
			if a.Asset != nil {
				cell.URL = a.Asset.URL
			}
			assets = append(assets, cell)
		}
		categories := make([]categoryCell, 0, len(doc.Categories))
		for _, c := range doc.Categories {
			categories = append(categories, categoryCell{CategoryID: c.CategoryID, Position: c.Position})
		}
		attributes := make([]attributeCell, 0, len(doc.AttributeValues))
		for _, a := range doc.AttributeValues {
			attributes = append(attributes, attributeCell{AttributeCode: a.AttributeCode, StoreViewID: a.StoreViewID, Value: a.Value})
		}

		cells := map[string]interface{}{
			"assets":     assets,
			"categories": categories,
			"attributes": attributes,
		}
		row := make([]string, len(csvColumns))
		for i, col := range csvColumns {
			switch col {
			case "id":
				row[i] = doc.ID.String()
			case "sku":
				row[i] = doc.SKU
			case "name":
				row[i] = doc.Name
			case "productType":
				row[i] = doc.ProductType
			case "description":
				row[i] = deref(doc.Description)
			case "status":
				row[i] = doc.Status
			case "assignedTo":
				row[i] = deref(doc.AssignedTo)
			case "attributeSetId":
				if doc.AttributeSetID != nil {
					row[i] = doc.AttributeSetID.String()
				}
			case "createdAt":
				row[i] = doc.CreatedAt.UTC().Format(time.RFC3339)
			case "updatedAt":
				row[i] = doc.UpdatedAt.UTC().Format(time.RFC3339)
			default:
				v, ok := cells[col]
				if !ok {
					continue
				}
				cell, err := json.Marshal(v)
				if err != nil {
					return nil, err
				}
				row[i] = string(cell)
			}
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
