package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"diglab-api/internal/core/domain"
)

// PyConfig holds the collaborator document service configuration.
type PyConfig struct {
	BaseURL string
	Timeout time.Duration
}

// GenerateFormRequest is the payload for /generate-form.
type GenerateFormRequest struct {
	Name         string   `json:"name"`
	Date         string   `json:"date"`
	Time         string   `json:"time"`
	Diagnoses    []string `json:"diagnoses"`
	Personnummer string   `json:"personnummer"`
	Labnummer    string   `json:"labnummer"`
	QRData       string   `json:"qr_data"`
}

// FinalizeFormResult is one result row sent to /finalize-form.
type FinalizeFormResult struct {
	Diagnosis string `json:"diagnosis"`
	Final     string `json:"final"`
	Auto      string `json:"auto"`
}

// FinalizeFormRequest is the payload for /finalize-form.
type FinalizeFormRequest struct {
	Labnummer string               `json:"labnummer"`
	Results   []FinalizeFormResult `json:"results"`
}

// AnalyzeResponse is the JSON returned by /analyze.
type AnalyzeResponse struct {
	Labnummer string          `json:"labnummer"`
	Result    string          `json:"result"`
	Found     bool            `json:"found"`
	Marks     json.RawMessage `json:"marks"`

	// Raw holds the analyzer response verbatim for pass-through.
	Raw map[string]interface{} `json:"-"`
}

// DocumentClient is the collaborator service used for PDF generation
// and scan analysis.
type DocumentClient interface {
	GenerateForm(ctx context.Context, req GenerateFormRequest) ([]byte, string, error)
	FinalizeForm(ctx context.Context, req FinalizeFormRequest) ([]byte, string, error)
	Analyze(ctx context.Context, filename, contentType string, file []byte) (*AnalyzeResponse, error)
}

// PyService talks to the Python document collaborator over HTTP.
type PyService struct {
	config PyConfig
	client *http.Client
}

// NewPyService creates a new collaborator client.
func NewPyService(config PyConfig) *PyService {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &PyService{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// GenerateForm requests a requisition PDF. It returns the PDF bytes
// and the response content type.
func (s *PyService) GenerateForm(ctx context.Context, req GenerateFormRequest) ([]byte, string, error) {
	return s.postJSON(ctx, "/generate-form", req)
}

// FinalizeForm requests a stamped results PDF for the given lab number.
func (s *PyService) FinalizeForm(ctx context.Context, req FinalizeFormRequest) ([]byte, string, error) {
	return s.postJSON(ctx, "/finalize-form", req)
}

func (s *PyService) postJSON(ctx context.Context, path string, payload interface{}) ([]byte, string, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.BaseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("document service request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read document service response failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &domain.UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	return body, resp.Header.Get("Content-Type"), nil
}

// Analyze uploads a scanned document for analysis and returns the
// parsed analyzer verdict.
func (s *PyService) Analyze(ctx context.Context, filename, contentType string, file []byte) (*AnalyzeResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(map[string][]string)
	h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename)}
	h["Content-Type"] = []string{contentType}
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(file); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.BaseURL+"/analyze", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyzer request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read analyzer response failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	var analyzed AnalyzeResponse
	if err := json.Unmarshal(body, &analyzed); err != nil {
		return nil, fmt.Errorf("parse analyzer response failed: %w", err)
	}
	if err := json.Unmarshal(body, &analyzed.Raw); err != nil {
		return nil, fmt.Errorf("parse analyzer response failed: %w", err)
	}

	return &analyzed, nil
}
