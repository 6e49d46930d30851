package services

import (
	"context"
	"errors"

	"catalog-service/internal/catalog"
	"catalog-service/internal/models"
	"catalog-service/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memoryRepository keeps one tenant's rows in maps. WithTransaction restores
// the previous state when fn fails.
type memoryRepository struct {
	state     memoryState
	failOn    map[string]error // sku -> error returned after the product row is written
	lastQuery repository.ProductQuery
	listed    []models.Product
	writes    int
}

type memoryState struct {
	products   map[string]*models.Product
	assets     map[uuid.UUID]*models.Asset
	categories map[uuid.UUID]bool
	pAssets    map[uuid.UUID][]models.ProductAsset
	pCats      map[uuid.UUID][]models.ProductCategory
	pValues    map[uuid.UUID][]models.ProductAttributeValue
}

var _ repository.ProductRepository = (*memoryRepository)(nil)

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		state: memoryState{
			products:   map[string]*models.Product{},
			assets:     map[uuid.UUID]*models.Asset{},
			categories: map[uuid.UUID]bool{},
			pAssets:    map[uuid.UUID][]models.ProductAsset{},
			pCats:      map[uuid.UUID][]models.ProductCategory{},
			pValues:    map[uuid.UUID][]models.ProductAttributeValue{},
		},
		failOn: map[string]error{},
	}
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		products:   make(map[string]*models.Product, len(s.products)),
		assets:     make(map[uuid.UUID]*models.Asset, len(s.assets)),
		categories: make(map[uuid.UUID]bool, len(s.categories)),
		pAssets:    make(map[uuid.UUID][]models.ProductAsset, len(s.pAssets)),
		pCats:      make(map[uuid.UUID][]models.ProductCategory, len(s.pCats)),
		pValues:    make(map[uuid.UUID][]models.ProductAttributeValue, len(s.pValues)),
	}
	for k, v := range s.products {
		p := *v
		out.products[k] = &p
	}
	for k, v := range s.assets {
		a := *v
		out.assets[k] = &a
	}
	for k, v := range s.categories {
		out.categories[k] = v
	}
	for k, v := range s.pAssets {
		out.pAssets[k] = append([]models.ProductAsset(nil), v...)
	}
	for k, v := range s.pCats {
		out.pCats[k] = append([]models.ProductCategory(nil), v...)
	}
	for k, v := range s.pValues {
		out.pValues[k] = append([]models.ProductAttributeValue(nil), v...)
	}
	return out
}

func (m *memoryRepository) WithTransaction(ctx context.Context, fn func(repo repository.ProductRepository) error) error {
	saved := m.state.clone()
	savedWrites := m.writes
	if err := fn(m); err != nil {
		m.state = saved
		m.writes = savedWrites
		return err
	}
	return nil
}

func (m *memoryRepository) ListAttributes(ctx context.Context, tenantID string) ([]models.Attribute, error) {
	return nil, nil
}

func (m *memoryRepository) ListProducts(ctx context.Context, tenantID string, q repository.ProductQuery) ([]models.Product, int64, error) {
	m.lastQuery = q
	return m.listed, int64(len(m.listed)), nil
}

func (m *memoryRepository) FindProductBySKU(ctx context.Context, tenantID, sku string) (*models.Product, error) {
	p, ok := m.state.products[sku]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memoryRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	cp := *product
	m.state.products[product.SKU] = &cp
	m.writes++
	return m.failOn[product.SKU]
}

func (m *memoryRepository) UpdateProduct(ctx context.Context, product *models.Product) error {
	if _, ok := m.state.products[product.SKU]; !ok {
		return errors.New("update of unknown product")
	}
	cp := *product
	m.state.products[product.SKU] = &cp
	m.writes++
	return m.failOn[product.SKU]
}

func (m *memoryRepository) ReplaceAssets(ctx context.Context, productID uuid.UUID, assets []models.ProductAsset) error {
	m.state.pAssets[productID] = assets
	m.writes++
	return nil
}

func (m *memoryRepository) ReplaceCategories(ctx context.Context, productID uuid.UUID, categories []models.ProductCategory) error {
	m.state.pCats[productID] = categories
	m.writes++
	return nil
}

func (m *memoryRepository) ReplaceAttributeValues(ctx context.Context, productID uuid.UUID, values []models.ProductAttributeValue) error {
	m.state.pValues[productID] = values
	m.writes++
	return nil
}

func (m *memoryRepository) FindAssetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Asset, error) {
	a, ok := m.state.assets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

func (m *memoryRepository) FindAssetByURL(ctx context.Context, tenantID, url string) (*models.Asset, error) {
	for _, a := range m.state.assets {
		if a.URL != nil && *a.URL == url {
			return a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryRepository) CreateAsset(ctx context.Context, asset *models.Asset) error {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	m.state.assets[asset.ID] = asset
	m.writes++
	return nil
}

func (m *memoryRepository) CategoryExists(ctx context.Context, tenantID string, id uuid.UUID) (bool, error) {
	return m.state.categories[id], nil
}

func (m *memoryRepository) InvalidateProductLists(ctx context.Context, tenantID string) {}

func (m *memoryRepository) product(sku string) *models.Product {
	return m.state.products[sku]
}

type staticAttributes struct {
	set catalog.Set
}

func (s staticAttributes) Snapshot(ctx context.Context, tenantID string) (catalog.Set, error) {
	return s.set, nil
}

func (s staticAttributes) Resolve(ctx context.Context, tenantID string, codes []string) (catalog.Set, error) {
	out := catalog.Set{}
	for _, code := range codes {
		if attr := s.set.Get(code); attr != nil {
			out[code] = attr
		}
	}
	return out, nil
}

type recordedEvent struct {
	kind    string
	sku     string
	changed []string
}

type recordingEvents struct {
	events []recordedEvent
}

func (r *recordingEvents) PublishProductCreated(ctx context.Context, product *models.Product, actorID string) error {
	r.events = append(r.events, recordedEvent{kind: "created", sku: product.SKU})
	return nil
}

func (r *recordingEvents) PublishProductUpdated(ctx context.Context, product, oldProduct *models.Product, changedFields []string, actorID string) error {
	r.events = append(r.events, recordedEvent{kind: "updated", sku: product.SKU, changed: changedFields})
	return nil
}
