package filters

import (
	"strings"

	"catalog-service/internal/eav"
	"catalog-service/internal/models"
	sq "github.com/Masterminds/squirrel"
)

// strategy builds the value predicate for one data type.
type strategy interface {
	scalar(raw string) (sq.Sqlizer, bool)
	multi(values []interface{}) (sq.Sqlizer, bool)
}

var strategies = map[models.DataType]strategy{
	models.DataTypeString:  prefixStrategy{},
	models.DataTypeText:    prefixStrategy{},
	models.DataTypeInt:     equalityStrategy{dataType: models.DataTypeInt},
	models.DataTypeDecimal: equalityStrategy{dataType: models.DataTypeDecimal},
	models.DataTypeBoolean: equalityStrategy{dataType: models.DataTypeBoolean},
	models.DataTypeJSON:    containmentStrategy{},
}

// prefixStrategy matches a case-insensitive prefix in either text column. A
// list of values is the union of the single-value matches.
type prefixStrategy struct{}

func (prefixStrategy) scalar(raw string) (sq.Sqlizer, bool) {
	return prefixMatch(raw), true
}

func (s prefixStrategy) multi(values []interface{}) (sq.Sqlizer, bool) {
	or := sq.Or{}
	for _, v := range values {
		text, err := eav.Parse(models.DataTypeText, v)
		if err != nil || strings.TrimSpace(eav.Format(text)) == "" {
			continue
		}
		or = append(or, prefixMatch(eav.Format(text)))
	}
	if len(or) == 0 {
		return nil, false
	}
	return or, true
}

func prefixMatch(value string) sq.Sqlizer {
	pattern := escapeLike(value) + "%"
	return sq.Or{
		sq.ILike{"pav.value_string": pattern},
		sq.ILike{"pav.value_text": pattern},
	}
}

// equalityStrategy compares the typed column. Elements that fail coercion are
// dropped from a list.
type equalityStrategy struct {
	dataType models.DataType
}

func (s equalityStrategy) scalar(raw string) (sq.Sqlizer, bool) {
	v, err := eav.Parse(s.dataType, raw)
	if err != nil {
		return nil, false
	}
	return sq.Eq{s.column(): eav.Native(v)}, true
}

func (s equalityStrategy) multi(values []interface{}) (sq.Sqlizer, bool) {
	in := make([]interface{}, 0, len(values))
	for _, raw := range values {
		v, err := eav.Parse(s.dataType, raw)
		if err != nil {
			continue
		}
		in = append(in, eav.Native(v))
	}
	if len(in) == 0 {
		return nil, false
	}
	return sq.Eq{s.column(): in}, true
}

func (s equalityStrategy) column() string {
	col, _ := eav.Column(s.dataType)
	return "pav." + col
}

// containmentStrategy matches JSON values that contain the filter document.
type containmentStrategy struct{}

func (containmentStrategy) scalar(raw string) (sq.Sqlizer, bool) {
	v, err := eav.Parse(models.DataTypeJSON, raw)
	if err != nil {
		return nil, false
	}
	return sq.Expr("pav.value_json @> ?::jsonb", eav.Format(v)), true
}

func (containmentStrategy) multi(values []interface{}) (sq.Sqlizer, bool) {
	or := sq.Or{}
	for _, raw := range values {
		v, err := eav.Parse(models.DataTypeJSON, raw)
		if err != nil {
			continue
		}
		or = append(or, sq.Expr("pav.value_json @> ?::jsonb", eav.Format(v)))
	}
	if len(or) == 0 {
		return nil, false
	}
	return or, true
}

// dateRange parses "from:to", "from" or ":to" into an inclusive range on the
// ISO date stored in the string column. Either bound may be empty but not
// both.
func dateRange(attr *models.Attribute, raw string) (sq.Sqlizer, bool) {
	from, to, hasSep := strings.Cut(raw, ":")
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if !hasSep {
		to = ""
	}

	col, err := eav.Column(attr.DataType)
	if err != nil {
		return nil, false
	}
	col = "pav." + col

	bounds := sq.And{}
	if from != "" {
		date, err := eav.NormalizeDate(from)
		if err != nil {
			return nil, false
		}
		bounds = append(bounds, sq.GtOrEq{col: date})
	}
	if to != "" {
		date, err := eav.NormalizeDate(to)
		if err != nil {
			return nil, false
		}
		bounds = append(bounds, sq.LtOrEq{col: date})
	}

	switch len(bounds) {
	case 0:
		return nil, false
	case 1:
		return bounds[0], true
	}
	return bounds, true
}
