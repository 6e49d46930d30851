package transfer

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"catalog-service/internal/models"
)

// Record is the canonical import shape every format is normalized into.
type Record struct {
	Index          int    `json:"-"`
	SKU            string `json:"sku" validate:"required,max=64"`
	Name           string `json:"name" validate:"required,max=255"`
	ProductType    string `json:"productType" validate:"required,oneof=SIMPLE CONFIGURABLE BUNDLE GROUPED VIRTUAL DOWNLOADABLE"`
	Status         string `json:"status" validate:"omitempty,oneof=DRAFT ACTIVE INACTIVE ARCHIVED"`
	AssignedTo     string `json:"assignedTo" validate:"omitempty,max=255"`
	AttributeSetID string `json:"attributeSetId" validate:"omitempty,uuid"`
	Description    *string

	// A collection is replaced only when its key was present in the input.
	// An absent key leaves the stored rows alone; an empty list clears them.
	Assets            []AssetRef
	Categories        []CategoryRef
	Attributes        []AttributeInput
	ReplaceAssets     bool
	ReplaceCategories bool
	ReplaceAttributes bool

	problems []models.FieldError
}

// AssetRef points at an existing asset by id, or at a URL that is looked up
// or created.
type AssetRef struct {
	AssetID  string
	URL      string
	FilePath string
	MimeType string
	Type     string
	Position int
}

type CategoryRef struct {
	CategoryID string
	Position   int
}

// AttributeInput is an attribute value still in decoded form. It is coerced
// once the attribute's data type is known.
type AttributeInput struct {
	Code        string
	StoreViewID string
	Value       interface{}
}

// Relation keys. The flattened key is checked first.
var (
	assetKeys     = [2]string{"assets", "productassets"}
	categoryKeys  = [2]string{"categories", "productcategories"}
	attributeKeys = [2]string{"attributes", "productattributevalues"}
)

// Normalize converts one decoded record. Shape problems are kept on the
// record and reported by the validator.
func Normalize(index int, raw interface{}) Record {
	rec := Record{Index: index}

	obj, ok := raw.(map[string]interface{})
	if !ok {
		rec.problems = append(rec.problems, models.FieldError{Field: "record", Message: "record must be an object"})
		return rec
	}
	fields := lowerKeys(obj)

	rec.SKU = text(fields["sku"])
	rec.Name = text(fields["name"])
	rec.ProductType = strings.ToUpper(firstText(fields, "producttype", "type"))
	rec.Status = strings.ToUpper(text(fields["status"]))
	rec.AssignedTo = text(fields["assignedto"])
	rec.AttributeSetID = text(fields["attributesetid"])
	if desc := text(fields["description"]); desc != "" {
		rec.Description = &desc
	}

	if items, present, err := relation(fields, assetKeys); err != nil {
		rec.problems = append(rec.problems, models.FieldError{Field: assetKeys[0], Message: err.Error()})
	} else if present {
		rec.ReplaceAssets = true
		rec.Assets = make([]AssetRef, 0, len(items))
		for i, item := range items {
			if entry, ok := entryFields(item); ok {
				rec.Assets = append(rec.Assets, assetRef(entry, i))
			}
		}
	}

	if items, present, err := relation(fields, categoryKeys); err != nil {
		rec.problems = append(rec.problems, models.FieldError{Field: categoryKeys[0], Message: err.Error()})
	} else if present {
		rec.ReplaceCategories = true
		rec.Categories = make([]CategoryRef, 0, len(items))
		for i, item := range items {
			if entry, ok := entryFields(item); ok {
				rec.Categories = append(rec.Categories, CategoryRef{
					CategoryID: firstText(entry, "categoryid", "category.id"),
					Position:   position(entry["position"], i),
				})
			}
		}
	}

	if items, present, err := relation(fields, attributeKeys); err != nil {
		rec.problems = append(rec.problems, models.FieldError{Field: attributeKeys[0], Message: err.Error()})
	} else if present {
		rec.ReplaceAttributes = true
		rec.Attributes = make([]AttributeInput, 0, len(items))
		for _, item := range items {
			if entry, ok := entryFields(item); ok {
				rec.Attributes = append(rec.Attributes, attributeInput(entry))
			}
		}
	}

	return rec
}

// NormalizeAll normalizes a decoded batch keeping input order.
func NormalizeAll(raw []interface{}) []Record {
	records := make([]Record, len(raw))
	for i, r := range raw {
		records[i] = Normalize(i, r)
	}
	return records
}

func assetRef(entry map[string]interface{}, i int) AssetRef {
	ref := AssetRef{
		AssetID:  firstText(entry, "assetid", "asset.id"),
		URL:      firstText(entry, "url", "asset.url"),
		FilePath: firstText(entry, "filepath", "asset.filepath"),
		MimeType: firstText(entry, "mimetype", "asset.mimetype"),
		Type:     text(entry["type"]),
		Position: position(entry["position"], i),
	}
	if ref.Type == "" {
		ref.Type = models.DefaultAssetType
	}
	return ref
}

func attributeInput(entry map[string]interface{}) AttributeInput {
	in := AttributeInput{
		Code:        firstText(entry, "attributecode", "attribute.code"),
		StoreViewID: text(entry["storeviewid"]),
	}
	if v, ok := entry["value"]; ok {
		in.Value = xmlText(v)
		return in
	}
	for _, col := range []string{"valuestring", "valuetext", "valueint", "valuedecimal", "valueboolean", "valuejson"} {
		if v, ok := entry[col]; ok && v != nil {
			in.Value = xmlText(v)
			return in
		}
	}
	return in
}

// relation finds a child collection under its flattened or nested key. A
// missing key, JSON null or an empty cell counts as absent.
func relation(fields map[string]interface{}, keys [2]string) ([]interface{}, bool, error) {
	for _, key := range keys {
		v, ok := fields[key]
		if !ok || blank(v) {
			continue
		}
		items, err := asList(v)
		if err != nil {
			return nil, false, err
		}
		return items, true, nil
	}
	return nil, false, nil
}

func asList(v interface{}) ([]interface{}, error) {
	switch t := v.(type) {
	case []interface{}:
		return t, nil
	case string:
		dec := json.NewDecoder(strings.NewReader(t))
		dec.UseNumber()
		var items []interface{}
		if err := dec.Decode(&items); err != nil {
			return nil, errors.New("must be a JSON array")
		}
		return items, nil
	case map[string]interface{}:
		if items, ok := unwrapXMLList(t); ok {
			return items, nil
		}
		return []interface{}{t}, nil
	}
	return nil, errors.New("must be a list")
}

func entryFields(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, false
	}
	return lowerKeys(m), true
}

// firstText returns the first non-empty value among keys. A dotted key reads
// a nested object, e.g. "attribute.code".
func firstText(fields map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if parent, child, nested := strings.Cut(key, "."); nested {
			if m, ok := fields[parent].(map[string]interface{}); ok {
				if s := text(lowerKeys(m)[child]); s != "" {
					return s
				}
			}
			continue
		}
		if s := text(fields[key]); s != "" {
			return s
		}
	}
	return ""
}

func text(v interface{}) string {
	switch t := xmlText(v).(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// xmlText unwraps an element that carried attributes, which mxj decodes as
// {"-attr": ..., "#text": ...}.
func xmlText(v interface{}) interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		if t, ok := m["#text"]; ok {
			return t
		}
	}
	return v
}

func position(v interface{}, fallback int) int {
	if s := text(v); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

func blank(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func lowerKeys(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}
