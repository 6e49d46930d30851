package eav

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"catalog-service/internal/models"
	"gorm.io/datatypes"
)

// MaxStringLength is the width of the value_string column
const MaxStringLength = 255

// ISODate is the layout DATE attributes are stored with
const ISODate = "2006-01-02"

var (
	ErrNullValue       = errors.New("attribute value is null")
	ErrUnknownDataType = errors.New("unknown attribute data type")
)

// CoercionError reports a raw value that does not fit the attribute's data type
type CoercionError struct {
	DataType models.DataType
	Raw      interface{}
	Reason   string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot use %v as %s: %s", e.Raw, e.DataType, e.Reason)
}

// Column returns the storage column holding values of the given data type.
func Column(dt models.DataType) (string, error) {
	switch dt {
	case models.DataTypeString:
		return "value_string", nil
	case models.DataTypeText:
		return "value_text", nil
	case models.DataTypeInt:
		return "value_int", nil
	case models.DataTypeDecimal:
		return "value_decimal", nil
	case models.DataTypeBoolean:
		return "value_boolean", nil
	case models.DataTypeJSON:
		return "value_json", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDataType, dt)
}

// ParseForAttribute coerces a decoded import value for attr. DATE inputs are
// normalized to an ISO date before the data type coercion.
func ParseForAttribute(attr *models.Attribute, raw interface{}) (Value, error) {
	if attr.InputType == models.InputTypeDate {
		s, ok := raw.(string)
		if !ok {
			return nil, &CoercionError{DataType: attr.DataType, Raw: raw, Reason: "date must be a string"}
		}
		date, err := NormalizeDate(s)
		if err != nil {
			return nil, &CoercionError{DataType: attr.DataType, Raw: raw, Reason: err.Error()}
		}
		raw = date
	}
	return Parse(attr.DataType, raw)
}

// NormalizeDate accepts an ISO date or an RFC 3339 timestamp and returns the
// ISO date.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(ISODate, s); err == nil {
		return t.Format(ISODate), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(ISODate), nil
	}
	return "", fmt.Errorf("%q is not an ISO date", s)
}

// Parse coerces a value produced by a JSON, XML or CSV decoder into the
// tagged value for dt. Strings are parsed, numbers and booleans converted.
func Parse(dt models.DataType, raw interface{}) (Value, error) {
	if raw == nil {
		return nil, ErrNullValue
	}
	switch dt {
	case models.DataTypeString:
		s, err := scalarText(dt, raw)
		if err != nil {
			return nil, err
		}
		if utf8.RuneCountInString(s) > MaxStringLength {
			return nil, &CoercionError{DataType: dt, Raw: raw, Reason: fmt.Sprintf("longer than %d characters", MaxStringLength)}
		}
		return String(s), nil
	case models.DataTypeText:
		s, err := scalarText(dt, raw)
		if err != nil {
			return nil, err
		}
		return Text(s), nil
	case models.DataTypeInt:
		return parseInt(raw)
	case models.DataTypeDecimal:
		return parseDecimal(raw)
	case models.DataTypeBoolean:
		return parseBool(raw)
	case models.DataTypeJSON:
		return parseJSON(raw)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDataType, dt)
}

// Apply writes v into row, clearing every other value column.
func Apply(row *models.ProductAttributeValue, v Value) {
	row.ValueString = nil
	row.ValueText = nil
	row.ValueInt = nil
	row.ValueDecimal = nil
	row.ValueBoolean = nil
	row.ValueJSON = nil

	switch t := v.(type) {
	case String:
		s := string(t)
		row.ValueString = &s
	case Text:
		s := string(t)
		row.ValueText = &s
	case Int:
		i := int64(t)
		row.ValueInt = &i
	case Decimal:
		f := float64(t)
		row.ValueDecimal = &f
	case Bool:
		b := bool(t)
		row.ValueBoolean = &b
	case JSON:
		row.ValueJSON = datatypes.JSON(t)
	}
}

// FromRow reads the column matching dt. Other columns are ignored.
func FromRow(dt models.DataType, row *models.ProductAttributeValue) (Value, error) {
	switch dt {
	case models.DataTypeString:
		if row.ValueString == nil {
			return nil, ErrNullValue
		}
		return String(*row.ValueString), nil
	case models.DataTypeText:
		if row.ValueText == nil {
			return nil, ErrNullValue
		}
		return Text(*row.ValueText), nil
	case models.DataTypeInt:
		if row.ValueInt == nil {
			return nil, ErrNullValue
		}
		return Int(*row.ValueInt), nil
	case models.DataTypeDecimal:
		if row.ValueDecimal == nil {
			return nil, ErrNullValue
		}
		return Decimal(*row.ValueDecimal), nil
	case models.DataTypeBoolean:
		if row.ValueBoolean == nil {
			return nil, ErrNullValue
		}
		return Bool(*row.ValueBoolean), nil
	case models.DataTypeJSON:
		if len(row.ValueJSON) == 0 {
			return nil, ErrNullValue
		}
		return JSON(row.ValueJSON), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDataType, dt)
}

func scalarText(dt models.DataType, raw interface{}) (string, error) {
	switch t := raw.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case bool:
		return strconv.FormatBool(t), nil
	}
	return "", &CoercionError{DataType: dt, Raw: raw, Reason: "expected a scalar"}
}

func parseInt(raw interface{}) (Value, error) {
	dt := models.DataTypeInt
	switch t := raw.(type) {
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return nil, &CoercionError{DataType: dt, Raw: raw, Reason: "not an integer"}
		}
		return Int(i), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, &CoercionError{DataType: dt, Raw: raw, Reason: "not an integer"}
		}
		return integralFloat(f, raw)
	case float64:
		return integralFloat(t, raw)
	case int:
		return Int(t), nil
	case int64:
		return Int(t), nil
	}
	return nil, &CoercionError{DataType: dt, Raw: raw, Reason: "not an integer"}
}

func integralFloat(f float64, raw interface{}) (Value, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, &CoercionError{DataType: models.DataTypeInt, Raw: raw, Reason: "not an integer"}
	}
	return Int(int64(f)), nil
}

func parseDecimal(raw interface{}) (Value, error) {
	dt := models.DataTypeDecimal
	var f float64
	var err error
	switch t := raw.(type) {
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	case json.Number:
		f, err = t.Float64()
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	default:
		err = errors.New("unsupported type")
	}
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, &CoercionError{DataType: dt, Raw: raw, Reason: "not a decimal number"}
	}
	return Decimal(f), nil
}

func parseBool(raw interface{}) (Value, error) {
	dt := models.DataTypeBoolean
	switch t := raw.(type) {
	case bool:
		return Bool(t), nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "t", "1", "yes", "y":
			return Bool(true), nil
		case "false", "f", "0", "no", "n":
			return Bool(false), nil
		}
	case json.Number:
		switch t.String() {
		case "1":
			return Bool(true), nil
		case "0":
			return Bool(false), nil
		}
	case float64:
		if t == 1 || t == 0 {
			return Bool(t == 1), nil
		}
	}
	return nil, &CoercionError{DataType: dt, Raw: raw, Reason: "not a boolean"}
}

func parseJSON(raw interface{}) (Value, error) {
	if s, ok := raw.(string); ok {
		trimmed := bytes.TrimSpace([]byte(s))
		if len(trimmed) > 0 && json.Valid(trimmed) {
			return JSON(trimmed), nil
		}
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, &CoercionError{DataType: models.DataTypeJSON, Raw: raw, Reason: err.Error()}
	}
	return JSON(b), nil
}
