package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"

	"catalog-service/internal/models"
	"catalog-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// DefaultMaxUploadBytes caps an import upload when no limit is configured.
const DefaultMaxUploadBytes int64 = 50 << 20

type ImportHandler struct {
	imports        *services.ImportService
	maxUploadBytes int64
	logger         *logrus.Entry
}

func NewImportHandler(imports *services.ImportService, maxUploadBytes int64, logger *logrus.Logger) *ImportHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &ImportHandler{
		imports:        imports,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.WithField("component", "import-handler"),
	}
}

// GetImportTemplate returns the import template definition or file
// @Summary Get import template
// @Tags import
// @Produce json,text/csv
// @Param format query string false "json, csv or xlsx" default(json)
// @Success 200 {object} models.APIResponse
// @Router /products/import/template [get]
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	template := models.ProductImportTemplate()

	switch c.DefaultQuery("format", "json") {
	case "csv":
		h.generateCSVTemplate(c, template)
	case "xlsx":
		h.generateXLSXTemplate(c, template)
	default:
		c.JSON(http.StatusOK, models.APIResponse{
			Success:    true,
			StatusCode: http.StatusOK,
			Message:    "Import template",
			Data:       template,
		})
	}
}

// generateCSVTemplate writes the header row only
func (h *ImportHandler) generateCSVTemplate(c *gin.Context, template models.ImportTemplate) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="products_import_template.csv"`)

	headers := make([]string, len(template.Columns))
	for i, col := range template.Columns {
		headers[i] = col.Name
	}

	writer := csv.NewWriter(c.Writer)
	if err := writer.Write(headers); err != nil {
		h.logger.WithError(err).Warn("Failed to write CSV template")
	}
	writer.Flush()
}

// generateXLSXTemplate builds a workbook with a header row and an
// instructions sheet. Spreadsheets must be saved as CSV before upload.
func (h *ImportHandler) generateXLSXTemplate(c *gin.Context, template models.ImportTemplate) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Products"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})

	// Header names must stay exact for the CSV decoder, so required columns
	// are marked by colour only.
	for i, col := range template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col.Name)
		style := headerStyle
		if col.Required {
			style = requiredStyle
		}
		f.SetCellStyle(sheetName, cell, cell, style)

		colName, _ := excelize.ColumnNumberToName(i + 1)
		width := 20.0
		if col.Type == "json" {
			width = 45
		}
		f.SetColWidth(sheetName, colName, colName, width)
	}

	const instructions = "Instructions"
	f.NewSheet(instructions)
	f.SetCellValue(instructions, "A1", "Product Import Instructions")
	f.SetCellValue(instructions, "A3", "Save this sheet as CSV (UTF-8) before uploading. JSON and XML files are also accepted.")
	f.SetCellValue(instructions, "A4", "Products are matched by sku: existing products are updated, new ones are created.")
	f.SetCellValue(instructions, "A5", "The assets, categories and attributes cells hold JSON arrays.")
	f.SetCellValue(instructions, "A6", "An empty relation cell keeps the stored relations; [] removes them all.")
	f.SetCellValue(instructions, "A7", "Orange headers are required columns.")

	f.SetCellValue(instructions, "A9", "Column")
	f.SetCellValue(instructions, "B9", "Description")
	f.SetCellValue(instructions, "C9", "Required")
	f.SetCellValue(instructions, "D9", "Type")
	f.SetCellValue(instructions, "E9", "Example")
	for i, col := range template.Columns {
		row := i + 10
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		f.SetCellValue(instructions, fmt.Sprintf("A%d", row), col.Name)
		f.SetCellValue(instructions, fmt.Sprintf("B%d", row), col.Description)
		f.SetCellValue(instructions, fmt.Sprintf("C%d", row), required)
		f.SetCellValue(instructions, fmt.Sprintf("D%d", row), col.Type)
		f.SetCellValue(instructions, fmt.Sprintf("E%d", row), col.Example)
	}
	f.SetColWidth(instructions, "A", "A", 25)
	f.SetColWidth(instructions, "B", "B", 70)
	f.SetColWidth(instructions, "C", "D", 15)
	f.SetColWidth(instructions, "E", "E", 60)

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="products_import_template.xlsx"`)
	if err := f.Write(c.Writer); err != nil {
		h.logger.WithError(err).Warn("Failed to write XLSX template")
	}
}

// ImportProducts upserts products from an uploaded JSON, XML or CSV file
// @Summary Import products
// @Description Upserts products by SKU. Each record commits in its own transaction
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "JSON, XML or CSV file"
// @Success 200 {object} models.APIResponse{data=models.ImportReport}
// @Failure 400 {object} models.ErrorResponse
// @Failure 413 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products/import [post]
func (h *ImportHandler) ImportProducts(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	actorID := c.GetString("user_id")

	if c.Request.ContentLength > h.maxUploadBytes {
		h.tooLarge(c)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.tooLarge(c)
			return
		}
		respondError(c, http.StatusBadRequest, "FILE_REQUIRED", "Please upload a JSON, XML or CSV file in the file field", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, "READ_FAILED", "Failed to read the uploaded file", nil)
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		h.tooLarge(c)
		return
	}

	report, err := h.imports.Import(c.Request.Context(), tenantID, actorID, header.Filename, data)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"tenantID": tenantID,
			"filename": header.Filename,
		}).WithError(err).Warn("Product import rejected")
		respondServiceError(c, err, "IMPORT_FAILED", "Failed to import products")
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success:    true,
		StatusCode: http.StatusOK,
		Message:    fmt.Sprintf("Imported %d of %d products", report.Summary.Successful, report.Summary.Total),
		Data:       report,
	})
}

func (h *ImportHandler) tooLarge(c *gin.Context) {
	respondError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
		fmt.Sprintf("The upload exceeds the %d byte limit", h.maxUploadBytes), nil)
}
