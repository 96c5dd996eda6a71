package handlers

import (
	"errors"
	"io"

	"diglab-api/internal/core/domain"
	"diglab-api/internal/core/services"
	"diglab-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ScanHandler handles scanned document intake
type ScanHandler struct {
	scanService *services.ScanService
}

// NewScanHandler creates a new scan handler
func NewScanHandler(scanService *services.ScanService) *ScanHandler {
	return &ScanHandler{scanService: scanService}
}

// Analyze accepts an uploaded scan and files it under its lab number
// @Summary Analyze scanned document
// @Description Upload a scanned results document for analysis and filing
// @Tags Scan
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Scanned PDF or image"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 415 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /scan/analyze [post]
func (h *ScanHandler) Analyze(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "A file upload named 'file' is required")
	}
	if fileHeader.Size > services.MaxScanFileSize {
		return response.BadRequest(c, "File exceeds the 20 MB limit")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return response.BadRequest(c, "Could not read uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return response.BadRequest(c, "Could not read uploaded file")
	}

	input := &services.ScanInput{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}

	result, err := h.scanService.Analyze(c.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedContent):
			return response.UnsupportedMediaType(c, "Only PDF and image uploads are accepted")
		case errors.Is(err, domain.ErrFileTooLarge):
			return response.BadRequest(c, "File exceeds the 20 MB limit")
		case errors.Is(err, domain.ErrNoLabNumber):
			return response.UnprocessableEntity(c, "No lab number could be determined from the scan")
		default:
			if ue, ok := domain.AsUpstream(err); ok {
				return response.Upstream(c, ue.Status, ue.Body)
			}
			return response.InternalServerError(c, "Failed to analyze scan")
		}
	}

	return response.Success(c, "Scan analyzed successfully", result)
}
