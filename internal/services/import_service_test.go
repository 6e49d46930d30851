package services

import (
	"context"
	"errors"
	"testing"

	"catalog-service/internal/catalog"
	"catalog-service/internal/models"
	"catalog-service/internal/transfer"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	colorAttr  = &models.Attribute{ID: uuid.New(), Code: "color", DataType: models.DataTypeString, InputType: models.InputTypeSelect}
	weightAttr = &models.Attribute{ID: uuid.New(), Code: "weight", DataType: models.DataTypeDecimal, InputType: models.InputTypeText}
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestImportService(repo *memoryRepository, events ProductEvents) *ImportService {
	attrs := staticAttributes{set: catalog.Set{"color": colorAttr, "weight": weightAttr}}
	return NewImportService(repo, attrs, events, quietLogger())
}

func valuesOf(t *testing.T, repo *memoryRepository, sku string) []models.ProductAttributeValue {
	t.Helper()
	p := repo.product(sku)
	require.NotNil(t, p, sku)
	return repo.state.pValues[p.ID]
}

func TestImport_CreatesThenUpdatesAndReplacesAttributeValues(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestImportService(repo, nil)
	ctx := context.Background()

	first := `[
		{"sku":"TSH-1","name":"Shirt","productType":"SIMPLE","attributes":[{"attributeCode":"color","value":"red"},{"attributeCode":"weight","value":"0.2"}]},
		{"sku":"TSH-2","name":"Shirt 2","productType":"SIMPLE"}
	]`
	report, err := svc.Import(ctx, "tenant-1", "user-1", "products.json", []byte(first))
	require.NoError(t, err)
	assert.Equal(t, models.ImportSummary{Total: 2, Successful: 2, Created: 2, Errors: []models.ImportRecordError{}}, report.Summary)
	assert.Empty(t, report.ValidationErrors)
	assert.Equal(t, models.ProductStatusDraft, repo.product("TSH-1").Status)
	require.Len(t, valuesOf(t, repo, "TSH-1"), 2)

	second := `[{"sku":"TSH-1","name":"Shirt v2","productType":"SIMPLE","status":"ACTIVE","attributes":[{"attributeCode":"color","value":"blue"}]}]`
	report, err = svc.Import(ctx, "tenant-1", "user-1", "products.json", []byte(second))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.Updated)
	assert.Equal(t, 0, report.Summary.Created)

	product := repo.product("TSH-1")
	assert.Equal(t, "Shirt v2", product.Name)
	assert.Equal(t, models.ProductStatusActive, product.Status)

	values := valuesOf(t, repo, "TSH-1")
	require.Len(t, values, 1, "attribute values are replaced, not merged")
	assert.Equal(t, colorAttr.ID, values[0].AttributeID)
	require.NotNil(t, values[0].ValueString)
	assert.Equal(t, "blue", *values[0].ValueString)
}

func TestImport_AbsentCollectionIsLeftUntouched(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestImportService(repo, nil)
	ctx := context.Background()

	_, err := svc.Import(ctx, "tenant-1", "", "p.json", []byte(`[{"sku":"A","name":"A","productType":"SIMPLE","attributes":[{"attributeCode":"color","value":"red"}]}]`))
	require.NoError(t, err)

	_, err = svc.Import(ctx, "tenant-1", "", "p.json", []byte(`[{"sku":"A","name":"A2","productType":"SIMPLE"}]`))
	require.NoError(t, err)
	assert.Len(t, valuesOf(t, repo, "A"), 1)

	_, err = svc.Import(ctx, "tenant-1", "", "p.json", []byte(`[{"sku":"A","name":"A3","productType":"SIMPLE","attributes":[]}]`))
	require.NoError(t, err)
	assert.Empty(t, valuesOf(t, repo, "A"))
}

func TestImport_AllInvalidWritesNothing(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestImportService(repo, nil)

	_, err := svc.Import(context.Background(), "tenant-1", "", "p.json", []byte(`[{"name":"no sku","productType":"SIMPLE"},{"sku":"X","name":"bad type","productType":"WIDGET"}]`))
	var failed *ValidationFailedError
	require.ErrorAs(t, err, &failed)
	assert.Len(t, failed.Errors, 2)
	assert.Equal(t, 0, failed.Errors[0].Index)
	assert.Equal(t, 1, failed.Errors[1].Index)
	assert.Zero(t, repo.writes)
}

func TestImport_NonArrayInputIsOneValidationError(t *testing.T) {
	svc := newTestImportService(newMemoryRepository(), nil)

	_, err := svc.Import(context.Background(), "tenant-1", "", "p.json", []byte(`{"sku":"A"}`))
	var failed *ValidationFailedError
	require.ErrorAs(t, err, &failed)
	require.Len(t, failed.Errors, 1)
	assert.Equal(t, "root", failed.Errors[0].Errors[0].Field)
}

func TestImport_PartialValidationSkipsInvalidRecords(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestImportService(repo, nil)

	report, err := svc.Import(context.Background(), "tenant-1", "", "p.json", []byte(`[{"sku":"A","name":"A","productType":"SIMPLE"},{"sku":"B","productType":"SIMPLE"}]`))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Summary.Total)
	assert.Equal(t, 1, report.Summary.Successful)
	assert.Equal(t, 1, report.Summary.Skipped)
	require.Len(t, report.ValidationErrors, 1)
	assert.Equal(t, "B", report.ValidationErrors[0].SKU)
}

func TestImport_UnknownReferencesAreSkipped(t *testing.T) {
	repo := newMemoryRepository()
	knownCategory := uuid.New()
	repo.state.categories[knownCategory] = true
	svc := newTestImportService(repo, nil)

	data := `[{"sku":"A","name":"A","productType":"SIMPLE",
		"attributes":[{"attributeCode":"nonexistent","value":"x"},{"attributeCode":"weight","value":"heavy"},{"attributeCode":"color","value":"red"},{"attributeCode":"color","value":"green"}],
		"categories":[{"categoryId":"` + knownCategory.String() + `"},{"categoryId":"` + uuid.NewString() + `"},{"categoryId":"nope"}],
		"assets":[{"assetId":"` + uuid.NewString() + `"}]
	}]`
	report, err := svc.Import(context.Background(), "tenant-1", "", "p.json", []byte(data))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.Successful)

	product := repo.product("A")
	values := repo.state.pValues[product.ID]
	require.Len(t, values, 1, "unknown code and uncoercible value skipped, duplicate keeps first")
	assert.Equal(t, "red", *values[0].ValueString)

	categories := repo.state.pCats[product.ID]
	require.Len(t, categories, 1)
	assert.Equal(t, knownCategory, categories[0].CategoryID)

	assert.Empty(t, repo.state.pAssets[product.ID])
}

func TestImport_AssetsByURLAreCreatedOnce(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestImportService(repo, nil)

	csv := "sku,name,productType,assets\n" +
		`A,A,SIMPLE,"[{""url"":""https://cdn.example.com/a.jpg"",""type"":""image""},{""url"":""https://cdn.example.com/a.jpg"",""type"":""thumbnail"",""position"":1}]"` + "\n" +
		`B,B,SIMPLE,"[{""url"":""https://cdn.example.com/a.jpg""}]"` + "\n"
	report, err := svc.Import(context.Background(), "tenant-1", "", "products.csv", []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Summary.Created)

	require.Len(t, repo.state.assets, 1)
	a := repo.state.pAssets[repo.product("A").ID]
	require.Len(t, a, 2)
	assert.Equal(t, "image", a[0].Type)
	assert.Equal(t, "thumbnail", a[1].Type)
	assert.Equal(t, a[0].AssetID, a[1].AssetID)
	assert.Len(t, repo.state.pAssets[repo.product("B").ID], 1)
}

func TestImport_CommitFailureRollsBackOnlyThatRecord(t *testing.T) {
	repo := newMemoryRepository()
	repo.failOn["B"] = &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	repo.failOn["C"] = errors.New("connection reset")
	svc := newTestImportService(repo, nil)

	report, err := svc.Import(context.Background(), "tenant-1", "", "p.json", []byte(`[
		{"sku":"A","name":"A","productType":"SIMPLE"},
		{"sku":"B","name":"B","productType":"SIMPLE"},
		{"sku":"C","name":"C","productType":"SIMPLE"}
	]`))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.Successful)
	assert.Equal(t, 2, report.Summary.Failed)
	require.Len(t, report.Summary.Errors, 2)
	assert.Equal(t, models.ImportRecordError{SKU: "B", Index: 1, Code: models.ImportErrorDuplicate, Error: report.Summary.Errors[0].Error}, report.Summary.Errors[0])
	assert.Equal(t, models.ImportErrorCommitFailed, report.Summary.Errors[1].Code)
	assert.Contains(t, report.Summary.Errors[1].Error, "connection reset")

	assert.NotNil(t, repo.product("A"))
	assert.Nil(t, repo.product("B"))
	assert.Nil(t, repo.product("C"))
}

func TestImport_RestoresSoftDeletedProduct(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestImportService(repo, nil)
	ctx := context.Background()

	_, err := svc.Import(ctx, "tenant-1", "", "p.json", []byte(`[{"sku":"A","name":"A","productType":"SIMPLE"}]`))
	require.NoError(t, err)
	deleted := repo.product("A")
	deleted.DeletedAt = &gorm.DeletedAt{Time: deleted.CreatedAt, Valid: true}

	report, err := svc.Import(ctx, "tenant-1", "", "p.json", []byte(`[{"sku":"A","name":"A","productType":"SIMPLE"}]`))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.Updated)
	assert.Nil(t, repo.product("A").DeletedAt)
}

func TestImport_PublishesEventsAfterCommit(t *testing.T) {
	repo := newMemoryRepository()
	events := &recordingEvents{}
	svc := newTestImportService(repo, events)
	ctx := context.Background()

	_, err := svc.Import(ctx, "tenant-1", "u", "p.json", []byte(`[{"sku":"A","name":"A","productType":"SIMPLE"}]`))
	require.NoError(t, err)
	_, err = svc.Import(ctx, "tenant-1", "u", "p.json", []byte(`[{"sku":"A","name":"Renamed","productType":"SIMPLE","attributes":[]}]`))
	require.NoError(t, err)

	require.Len(t, events.events, 2)
	assert.Equal(t, "created", events.events[0].kind)
	assert.Equal(t, recordedEvent{kind: "updated", sku: "A", changed: []string{"name", "attributes"}}, events.events[1])
}

func TestImport_RequestLevelErrors(t *testing.T) {
	svc := newTestImportService(newMemoryRepository(), nil)
	ctx := context.Background()

	_, err := svc.Import(ctx, "tenant-1", "", "products.xlsx", []byte("PK"))
	assert.ErrorIs(t, err, transfer.ErrUnsupportedFormat)

	_, err = svc.Import(ctx, "tenant-1", "", "products.json", []byte(" "))
	assert.ErrorIs(t, err, transfer.ErrEmptyFile)

	_, err = svc.Import(ctx, "tenant-1", "", "products.json", []byte("[]"))
	assert.ErrorIs(t, err, transfer.ErrEmptyFile)

	_, err = svc.Import(ctx, "tenant-1", "", "products.json", []byte(`[{"sku":`))
	var formatErr *transfer.FormatError
	assert.ErrorAs(t, err, &formatErr)
}
