package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"catalog-service/internal/filters"
	"catalog-service/internal/models"
	"catalog-service/internal/services"
	"catalog-service/internal/transfer"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ProductsHandler struct {
	query  *services.ProductQueryService
	export *services.ExportService
	logger *logrus.Entry
}

func NewProductsHandler(query *services.ProductQueryService, export *services.ExportService, logger *logrus.Logger) *ProductsHandler {
	return &ProductsHandler{
		query:  query,
		export: export,
		logger: logger.WithField("component", "products-handler"),
	}
}

// GetProducts lists products with structural and attribute filters
// @Summary List products
// @Description Lists products. attributes is a JSON object of attribute code to filter value
// @Tags products
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Param sortBy query string false "createdAt, updatedAt, sku, name, type or status"
// @Param sortOrder query string false "asc or desc"
// @Param search query string false "SKU substring"
// @Param type query string false "Product type"
// @Param status query string false "Product status"
// @Param categoryId query string false "Category ID"
// @Param assignedTo query string false "Assignee"
// @Param attributes query string false "Attribute filters, e.g. {\"color\":[\"red\",\"blue\"]}"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products [get]
func (h *ProductsHandler) GetProducts(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	q, err := parseListQuery(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ATTRIBUTES", err.Error(), nil)
		return
	}

	result, err := h.query.List(c.Request.Context(), tenantID, q)
	if err != nil {
		h.logger.WithField("tenantID", tenantID).WithError(err).Error("Failed to list products")
		respondServiceError(c, err, "FETCH_FAILED", "Failed to retrieve products")
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success:    true,
		StatusCode: http.StatusOK,
		Message:    "Products retrieved successfully",
		Data:       transfer.BuildDocuments(result.Products),
		Meta:       models.NewPaginationInfo(result.Page, result.Limit, result.Total),
	})
}

// ExportProducts streams the selected products as a JSON, XML or CSV file
// @Summary Export products
// @Description Exports the products matching the listing filters
// @Tags products
// @Produce json,xml,text/csv
// @Param format query string false "json, xml or csv" default(json)
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(1000)
// @Param attributes query string false "Attribute filters as a JSON object"
// @Success 200 {file} file
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products/export [get]
func (h *ProductsHandler) ExportProducts(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	format, err := transfer.ParseFormat(c.DefaultQuery("format", "json"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "UNSUPPORTED_FORMAT", "format must be json, xml or csv", nil)
		return
	}

	q, err := parseListQuery(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ATTRIBUTES", err.Error(), nil)
		return
	}

	result, err := h.export.Export(c.Request.Context(), tenantID, format, q)
	if err != nil {
		h.logger.WithFields(logrus.Fields{"tenantID": tenantID, "format": format}).WithError(err).Warn("Product export failed")
		respondServiceError(c, err, "EXPORT_FAILED", "Failed to export products")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.File.Filename))
	c.Header("X-Total-Count", strconv.FormatInt(result.Total, 10))
	c.Header("X-Page", strconv.Itoa(result.Page))
	c.Header("X-Limit", strconv.Itoa(result.Limit))
	c.Data(http.StatusOK, result.File.ContentType, result.File.Body)
}

// parseListQuery reads the shared listing and export parameters. Invalid
// page numbers fall back to defaults; a malformed attributes object is an error.
func parseListQuery(c *gin.Context) (services.ListQuery, error) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	attributes, err := filters.ParseAttributeParam(c.Query("attributes"))
	if err != nil {
		return services.ListQuery{}, err
	}

	return services.ListQuery{
		Page:      page,
		Limit:     limit,
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
		Structural: filters.Structural{
			Type:       c.Query("type"),
			Status:     c.Query("status"),
			CategoryID: c.Query("categoryId"),
			AssignedTo: c.Query("assignedTo"),
			Search:     c.Query("search"),
		},
		Attributes: attributes,
	}, nil
}
