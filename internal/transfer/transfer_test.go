package transfer

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"catalog-service/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestDetectFormat(t *testing.T) {
	format, err := DetectFormat("products.JSON", []byte(`[{"sku":"A"}]`))
	require.NoError(t, err)
	assert.Equal(t, models.ImportFormatJSON, format)

	format, err = DetectFormat("export.csv", []byte(`<?xml version="1.0" encoding="UTF-8"?><products><product><sku>A</sku></product></products>`))
	require.NoError(t, err)
	assert.Equal(t, models.ImportFormatXML, format, "content wins over extension")

	_, err = DetectFormat("products.txt", []byte(`[]`))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = DetectFormat("products", []byte(`[]`))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, models.ImportFormatCSV, format)

	_, err = ParseFormat("xlsx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecode_JSON(t *testing.T) {
	records, err := Decode(models.ImportFormatJSON, []byte("\xEF\xBB\xBF"+`[{"sku":"A","position":3}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	rec := records[0].(map[string]interface{})
	assert.Equal(t, "A", rec["sku"])
	assert.Equal(t, json.Number("3"), rec["position"])

	_, err = Decode(models.ImportFormatJSON, []byte(`{"sku":"A"}`))
	assert.ErrorIs(t, err, ErrNotArray)

	_, err = Decode(models.ImportFormatJSON, []byte(`[{"sku":`))
	var formatErr *FormatError
	assert.ErrorAs(t, err, &formatErr)

	_, err = Decode(models.ImportFormatJSON, []byte("  \n"))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestDecode_XML(t *testing.T) {
	data := `<?xml version="1.0"?>
<products>
  <product><sku>A</sku><name>First</name></product>
  <product><sku>B</sku><name>Second</name></product>
</products>`
	records, err := Decode(models.ImportFormatXML, []byte(data))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "A", records[0].(map[string]interface{})["sku"])
	assert.Equal(t, "B", records[1].(map[string]interface{})["sku"])

	records, err = Decode(models.ImportFormatXML, []byte(`<products><product><sku>A</sku></product></products>`))
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = Decode(models.ImportFormatXML, []byte(`<products><product>`))
	var formatErr *FormatError
	assert.ErrorAs(t, err, &formatErr)
}

func TestDecode_CSV(t *testing.T) {
	data := "sku *,name *,productType\nA, First ,SIMPLE\n,,\nB,Second,VIRTUAL\n"
	records, err := Decode(models.ImportFormatCSV, []byte(data))
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0].(map[string]interface{})
	assert.Equal(t, "A", first["sku"])
	assert.Equal(t, "First", first["name"])
	assert.Equal(t, "SIMPLE", first["productType"])
	assert.Equal(t, "B", records[1].(map[string]interface{})["sku"])
}

func TestNormalize_ScalarFields(t *testing.T) {
	rec := Normalize(4, map[string]interface{}{
		"SKU":         " TSH-1 ",
		"Name":        "Shirt",
		"type":        "simple",
		"status":      "active",
		"description": "Soft",
	})

	assert.Equal(t, 4, rec.Index)
	assert.Equal(t, "TSH-1", rec.SKU)
	assert.Equal(t, "Shirt", rec.Name)
	assert.Equal(t, "SIMPLE", rec.ProductType)
	assert.Equal(t, "ACTIVE", rec.Status)
	require.NotNil(t, rec.Description)
	assert.Equal(t, "Soft", *rec.Description)
	assert.False(t, rec.ReplaceAssets)
	assert.False(t, rec.ReplaceCategories)
	assert.False(t, rec.ReplaceAttributes)
}

func TestNormalize_AbsentAndEmptyRelations(t *testing.T) {
	rec := Normalize(0, map[string]interface{}{
		"sku":        "A",
		"assets":     "",
		"categories": nil,
		"attributes": []interface{}{},
	})

	assert.False(t, rec.ReplaceAssets, "empty cell leaves assets alone")
	assert.False(t, rec.ReplaceCategories, "null leaves categories alone")
	assert.True(t, rec.ReplaceAttributes, "empty list clears attributes")
	assert.Empty(t, rec.Attributes)
}

func TestNormalize_FlattenedKeysWinOverNested(t *testing.T) {
	rec := Normalize(0, map[string]interface{}{
		"sku":           "A",
		"assets":        `[{"url":"https://cdn.example.com/a.jpg"}]`,
		"productAssets": []interface{}{map[string]interface{}{"assetId": uuid.NewString()}},
	})

	require.True(t, rec.ReplaceAssets)
	require.Len(t, rec.Assets, 1)
	assert.Equal(t, "https://cdn.example.com/a.jpg", rec.Assets[0].URL)
	assert.Empty(t, rec.Assets[0].AssetID)
	assert.Equal(t, models.DefaultAssetType, rec.Assets[0].Type)
	assert.Equal(t, 0, rec.Assets[0].Position)
}

func TestNormalize_NestedExportShape(t *testing.T) {
	categoryID := uuid.NewString()
	rec := Normalize(0, map[string]interface{}{
		"sku": "A",
		"productAssets": []interface{}{
			map[string]interface{}{
				"type":     "thumbnail",
				"position": json.Number("2"),
				"asset":    map[string]interface{}{"url": "https://cdn.example.com/t.jpg"},
			},
		},
		"productCategories": []interface{}{
			map[string]interface{}{"category": map[string]interface{}{"id": categoryID}},
		},
		"productAttributeValues": []interface{}{
			map[string]interface{}{"attribute": map[string]interface{}{"code": "color"}, "valueString": "red"},
		},
	})

	require.Len(t, rec.Assets, 1)
	assert.Equal(t, "https://cdn.example.com/t.jpg", rec.Assets[0].URL)
	assert.Equal(t, "thumbnail", rec.Assets[0].Type)
	assert.Equal(t, 2, rec.Assets[0].Position)

	require.Len(t, rec.Categories, 1)
	assert.Equal(t, categoryID, rec.Categories[0].CategoryID)

	require.Len(t, rec.Attributes, 1)
	assert.Equal(t, "color", rec.Attributes[0].Code)
	assert.Equal(t, "red", rec.Attributes[0].Value)
}

func TestNormalize_XMLWrapperElements(t *testing.T) {
	rec := Normalize(0, map[string]interface{}{
		"sku": "A",
		"productAttributeValues": map[string]interface{}{
			"productAttributeValue": map[string]interface{}{"attributeCode": "color", "value": "red"},
		},
	})

	require.True(t, rec.ReplaceAttributes)
	require.Len(t, rec.Attributes, 1)
	assert.Equal(t, "color", rec.Attributes[0].Code)
	assert.Equal(t, "red", rec.Attributes[0].Value)
}

func TestValidator_ReportsFieldErrors(t *testing.T) {
	v := NewValidator()
	records := NormalizeAll([]interface{}{
		map[string]interface{}{"sku": "OK-1", "name": "Fine", "productType": "SIMPLE"},
		map[string]interface{}{"name": "No SKU", "productType": "GADGET", "attributeSetId": "nope"},
		map[string]interface{}{"sku": "BAD-CELL", "name": "x", "productType": "SIMPLE", "assets": "not json"},
		"just a string",
	})

	valid, invalid := v.Validate(records)
	require.Len(t, valid, 1)
	assert.Equal(t, "OK-1", valid[0].SKU)
	require.Len(t, invalid, 3)

	assert.Equal(t, 1, invalid[0].Index)
	assert.Contains(t, invalid[0].Errors, models.FieldError{Field: "sku", Message: "sku is required"})
	assert.Contains(t, invalid[0].Errors, models.FieldError{
		Field:   "productType",
		Message: "productType must be one of: SIMPLE, CONFIGURABLE, BUNDLE, GROUPED, VIRTUAL, DOWNLOADABLE",
	})
	assert.Contains(t, invalid[0].Errors, models.FieldError{Field: "attributeSetId", Message: "attributeSetId must be a valid UUID"})

	assert.Equal(t, 2, invalid[1].Index)
	assert.Equal(t, "BAD-CELL", invalid[1].SKU)
	assert.Contains(t, invalid[1].Errors, models.FieldError{Field: "assets", Message: "must be a JSON array"})

	assert.Equal(t, 3, invalid[2].Index)
	assert.Equal(t, "record", invalid[2].Errors[0].Field)
}

func TestValidator_RelationEntriesNeedIdentifiers(t *testing.T) {
	errs := NewValidator().Check(Normalize(0, map[string]interface{}{
		"sku": "A", "name": "A", "productType": "SIMPLE",
		"assets":     []interface{}{map[string]interface{}{"type": "image"}},
		"attributes": []interface{}{map[string]interface{}{"value": "red"}},
	}))

	assert.Equal(t, []models.FieldError{
		{Field: "assets[0]", Message: "assetId or url is required"},
		{Field: "attributes[0]", Message: "attributeCode is required"},
	}, errs)
}

func sampleProduct() models.Product {
	desc := "Soft cotton"
	url := "https://cdn.example.com/tsh.jpg"
	color := "blue"
	weight := 0.25
	colorAttr := &models.Attribute{ID: uuid.New(), Code: "color", DataType: models.DataTypeString}
	weightAttr := &models.Attribute{ID: uuid.New(), Code: "weight", DataType: models.DataTypeDecimal}
	specsAttr := &models.Attribute{ID: uuid.New(), Code: "specs", DataType: models.DataTypeJSON}
	assetID := uuid.New()
	categoryID := uuid.New()
	productID := uuid.New()

	return models.Product{
		ID:          productID,
		SKU:         "TSH-BLU-001",
		Name:        "Blue Shirt",
		Description: &desc,
		Type:        models.ProductTypeSimple,
		Status:      models.ProductStatusActive,
		CreatedAt:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
		Assets: []models.ProductAsset{{
			ProductID: productID, AssetID: assetID, Type: "image", Position: 0,
			Asset: &models.Asset{ID: assetID, URL: &url},
		}},
		Categories: []models.ProductCategory{{
			ProductID: productID, CategoryID: categoryID, Position: 1,
			Category: &models.Category{ID: categoryID, Translations: []models.CategoryTranslation{{Name: "Shirts", Slug: "shirts"}}},
		}},
		AttributeValues: []models.ProductAttributeValue{
			{ProductID: productID, AttributeID: colorAttr.ID, ValueString: &color, Attribute: colorAttr},
			{ProductID: productID, AttributeID: weightAttr.ID, ValueDecimal: &weight, Attribute: weightAttr},
			{ProductID: productID, AttributeID: specsAttr.ID, ValueJSON: datatypes.JSON(`{"fit":"slim"}`), Attribute: specsAttr},
		},
	}
}

func TestSerialize_NothingToExport(t *testing.T) {
	_, err := Serialize(models.ImportFormatJSON, nil, time.Now())
	assert.ErrorIs(t, err, ErrNothingToExport)
}

func TestSerialize_JSON(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	file, err := Serialize(models.ImportFormatJSON, []models.Product{sampleProduct()}, now)
	require.NoError(t, err)

	assert.Equal(t, "products_export_20240506_070809.json", file.Filename)
	assert.Equal(t, "application/json; charset=utf-8", file.ContentType)

	var docs []map[string]interface{}
	require.NoError(t, json.Unmarshal(file.Body, &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "TSH-BLU-001", docs[0]["sku"])
	assert.Equal(t, "SIMPLE", docs[0]["productType"])

	values := docs[0]["productAttributeValues"].([]interface{})
	require.Len(t, values, 3)
	assert.Equal(t, "blue", values[0].(map[string]interface{})["value"])
	assert.Equal(t, 0.25, values[1].(map[string]interface{})["value"])
	assert.Equal(t, map[string]interface{}{"fit": "slim"}, values[2].(map[string]interface{})["value"])

	assets := docs[0]["productAssets"].([]interface{})
	asset := assets[0].(map[string]interface{})["asset"].(map[string]interface{})
	assert.Equal(t, "https://cdn.example.com/tsh.jpg", asset["url"])
}

func TestSerialize_XML(t *testing.T) {
	file, err := Serialize(models.ImportFormatXML, []models.Product{sampleProduct()}, time.Now())
	require.NoError(t, err)

	body := string(file.Body)
	assert.True(t, strings.HasPrefix(body, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, body, "<products>")
	assert.Contains(t, body, "<sku>TSH-BLU-001</sku>")
	assert.Contains(t, body, "<productAttributeValues>")
	assert.Contains(t, body, "<value>0.25</value>")
	assert.Contains(t, body, "<slug>shirts</slug>")
	assert.NotContains(t, body, "<assignedTo>")
}

func TestExportImportRoundTrip(t *testing.T) {
	product := sampleProduct()

	for _, format := range []models.ImportFormat{models.ImportFormatJSON, models.ImportFormatXML, models.ImportFormatCSV} {
		t.Run(string(format), func(t *testing.T) {
			file, err := Serialize(format, []models.Product{product}, time.Now())
			require.NoError(t, err)

			raw, err := Decode(format, file.Body)
			require.NoError(t, err)
			valid, invalid := NewValidator().Validate(NormalizeAll(raw))
			require.Empty(t, invalid)
			require.Len(t, valid, 1)

			rec := valid[0]
			assert.Equal(t, product.SKU, rec.SKU)
			assert.Equal(t, product.Name, rec.Name)
			assert.Equal(t, "SIMPLE", rec.ProductType)
			assert.Equal(t, "ACTIVE", rec.Status)
			require.NotNil(t, rec.Description)
			assert.Equal(t, *product.Description, *rec.Description)

			require.True(t, rec.ReplaceAssets)
			require.Len(t, rec.Assets, 1)
			assert.Equal(t, product.Assets[0].AssetID.String(), rec.Assets[0].AssetID)
			assert.Equal(t, "image", rec.Assets[0].Type)

			require.True(t, rec.ReplaceCategories)
			require.Len(t, rec.Categories, 1)
			assert.Equal(t, product.Categories[0].CategoryID.String(), rec.Categories[0].CategoryID)
			assert.Equal(t, 1, rec.Categories[0].Position)

			require.True(t, rec.ReplaceAttributes)
			require.Len(t, rec.Attributes, 3)
			assert.Equal(t, "color", rec.Attributes[0].Code)
			assert.Equal(t, "weight", rec.Attributes[1].Code)
			assert.Equal(t, "specs", rec.Attributes[2].Code)
		})
	}
}
