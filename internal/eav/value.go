// Package eav holds the typed attribute value and the codec that maps it to
// and from the product_attribute_values storage columns.
package eav

import (
	"encoding/json"
	"strconv"

	"catalog-service/internal/models"
)

// Value is a typed attribute value. The concrete type is the tag; there is one
// per models.DataType.
type Value interface {
	DataType() models.DataType
	isValue()
}

type (
	String  string
	Text    string
	Int     int64
	Decimal float64
	Bool    bool
	JSON    json.RawMessage
)

func (String) DataType() models.DataType  { return models.DataTypeString }
func (Text) DataType() models.DataType    { return models.DataTypeText }
func (Int) DataType() models.DataType     { return models.DataTypeInt }
func (Decimal) DataType() models.DataType { return models.DataTypeDecimal }
func (Bool) DataType() models.DataType    { return models.DataTypeBoolean }
func (JSON) DataType() models.DataType    { return models.DataTypeJSON }

func (String) isValue()  {}
func (Text) isValue()    {}
func (Int) isValue()     {}
func (Decimal) isValue() {}
func (Bool) isValue()    {}
func (JSON) isValue()    {}

// Native returns the value as a plain Go value suitable for encoding/json.
func Native(v Value) interface{} {
	switch t := v.(type) {
	case String:
		return string(t)
	case Text:
		return string(t)
	case Int:
		return int64(t)
	case Decimal:
		return float64(t)
	case Bool:
		return bool(t)
	case JSON:
		return json.RawMessage(t)
	}
	return nil
}

// Format renders the value as text. Parse(v.DataType(), Format(v)) yields v
// again, which is what the XML and CSV encoders rely on.
func Format(v Value) string {
	switch t := v.(type) {
	case String:
		return string(t)
	case Text:
		return string(t)
	case Int:
		return strconv.FormatInt(int64(t), 10)
	case Decimal:
		return strconv.FormatFloat(float64(t), 'f', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(t))
	case JSON:
		return string(t)
	}
	return ""
}
