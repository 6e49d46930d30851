// Package filters turns attribute and structural product filters into a
// squirrel predicate over the products table.
package filters

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"catalog-service/internal/catalog"
	"catalog-service/internal/models"
	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Resolver maps attribute codes to definitions. Unknown codes are absent from
// the returned set.
type Resolver interface {
	Resolve(ctx context.Context, tenantID string, codes []string) (catalog.Set, error)
}

// Structural holds the filters on fixed product columns.
type Structural struct {
	Type       string
	Status     string
	CategoryID string
	AssignedTo string
	Search     string
}

// InvalidFilterError is returned for a structural filter that can never be
// valid, such as a malformed category id.
type InvalidFilterError struct {
	Field   string
	Message string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid %s filter: %s", e.Field, e.Message)
}

// Builder builds product predicates. It holds no per-request state.
type Builder struct {
	resolver Resolver
	logger   *logrus.Entry
}

func NewBuilder(resolver Resolver, logger *logrus.Logger) *Builder {
	return &Builder{
		resolver: resolver,
		logger:   logger.WithField("component", "filter-builder"),
	}
}

// Build returns the conjunction of the structural filters and one existence
// check per resolvable attribute code. Unknown codes and values that cannot be
// coerced to the attribute's type add nothing.
func (b *Builder) Build(ctx context.Context, tenantID string, structural Structural, attributes map[string]string) (sq.And, error) {
	where, err := structuralPredicates(structural)
	if err != nil {
		return nil, err
	}
	if len(attributes) == 0 {
		return where, nil
	}

	codes := make([]string, 0, len(attributes))
	for code := range attributes {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	resolved, err := b.resolver.Resolve(ctx, tenantID, codes)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve attribute filters: %w", err)
	}

	for _, code := range codes {
		attr := resolved.Get(code)
		if attr == nil {
			b.logger.WithFields(logrus.Fields{"tenantID": tenantID, "code": code}).Debug("Ignoring filter on unknown attribute")
			continue
		}
		pred, ok := AttributePredicate(attr, attributes[code])
		if !ok {
			b.logger.WithFields(logrus.Fields{"tenantID": tenantID, "code": code, "value": attributes[code]}).Debug("Ignoring filter value that does not fit the attribute type")
			continue
		}
		exists, err := existsForAttribute(attr, pred)
		if err != nil {
			return nil, err
		}
		where = append(where, exists)
	}
	return where, nil
}

// AttributePredicate builds the value predicate for one attribute against the
// pav alias. DATE inputs are dispatched before the data type strategy. The
// second result is false when the filter should be dropped.
func AttributePredicate(attr *models.Attribute, raw string) (sq.Sqlizer, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	if attr.InputType == models.InputTypeDate {
		return dateRange(attr, raw)
	}

	strategy, ok := strategies[attr.DataType]
	if !ok {
		return nil, false
	}

	if values, isArray := decodeArray(raw); isArray {
		if len(values) == 0 {
			return nil, false
		}
		return strategy.multi(values)
	}
	return strategy.scalar(raw)
}

func existsForAttribute(attr *models.Attribute, pred sq.Sqlizer) (sq.Sqlizer, error) {
	sql, args, err := sq.Select("1").
		From("product_attribute_values pav").
		Where("pav.product_id = products.id").
		Where(sq.Eq{"pav.attribute_id": attr.ID.String()}).
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build filter for attribute %s: %w", attr.Code, err)
	}
	return sq.Expr("EXISTS ("+sql+")", args...), nil
}

func structuralPredicates(f Structural) (sq.And, error) {
	where := sq.And{}
	if v := strings.TrimSpace(f.Type); v != "" {
		where = append(where, sq.Eq{"products.type": strings.ToUpper(v)})
	}
	if v := strings.TrimSpace(f.Status); v != "" {
		where = append(where, sq.Eq{"products.status": strings.ToUpper(v)})
	}
	if v := strings.TrimSpace(f.AssignedTo); v != "" {
		where = append(where, sq.Eq{"products.assigned_to": v})
	}
	if v := strings.TrimSpace(f.CategoryID); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, &InvalidFilterError{Field: "categoryId", Message: "must be a UUID"}
		}
		where = append(where, sq.Expr(
			"EXISTS (SELECT 1 FROM product_categories pc WHERE pc.product_id = products.id AND pc.category_id = ?)",
			id.String(),
		))
	}
	if v := strings.TrimSpace(f.Search); v != "" {
		where = append(where, sq.ILike{"products.sku": "%" + escapeLike(v) + "%"})
	}
	return where, nil
}

// decodeArray reports whether raw is a JSON array literal. Numbers are kept
// as json.Number so integer filters do not lose precision.
func decodeArray(raw string) ([]interface{}, bool) {
	if !strings.HasPrefix(raw, "[") {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var values []interface{}
	if err := dec.Decode(&values); err != nil {
		return nil, false
	}
	return values, true
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
