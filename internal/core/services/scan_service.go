package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"diglab-api/internal/adapters/persistence/repositories"
	"diglab-api/internal/adapters/storage"
	"diglab-api/internal/core/domain"
	"diglab-api/internal/pkg/labnumber"
)

// MaxScanFileSize caps uploaded scan files at 20 MB.
const MaxScanFileSize = 20 << 20

// ScanService handles scanned document intake and analysis
type ScanService struct {
	orderRepo repositories.OrderRepository
	store     *storage.DocumentStore
	docs      DocumentClient
}

// NewScanService creates a new scan service
func NewScanService(orderRepo repositories.OrderRepository, store *storage.DocumentStore, docs DocumentClient) *ScanService {
	return &ScanService{
		orderRepo: orderRepo,
		store:     store,
		docs:      docs,
	}
}

// ScanInput represents one uploaded scan file
type ScanInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SavedScan reports where the analyzed document was stored.
type SavedScan struct {
	Dir   string   `json:"dir"`
	Paths []string `json:"paths"`
}

// ScanOutput is the analysis response returned to the client.
type ScanOutput struct {
	LabNumber string                 `json:"labNumber"`
	Analyzer  map[string]interface{} `json:"analyzer"`
	Saved     *SavedScan             `json:"saved"`
}

// Analyze forwards an uploaded scan to the analyzer, determines which
// order it belongs to and files the document under that lab number.
func (s *ScanService) Analyze(ctx context.Context, input *ScanInput) (*ScanOutput, error) {
	// 1. Gate on content type and size before calling out
	if !acceptedScanType(input.ContentType) {
		return nil, domain.ErrUnsupportedContent
	}
	if len(input.Data) > MaxScanFileSize {
		return nil, domain.ErrFileTooLarge
	}

	// 2. Run the analyzer
	analyzed, err := s.docs.Analyze(ctx, input.Filename, input.ContentType, input.Data)
	if err != nil {
		return nil, err
	}

	// 3. Work out the lab number: analyzer field, then any lab-shaped
	// token in the analyzer payload, then the filename itself
	lab, ok := extractLabNumber(analyzed, input.Filename)
	if !ok {
		return nil, domain.ErrNoLabNumber
	}

	// 4. The scan may arrive before its order was registered here;
	// file it either way so nothing gets lost
	exists, err := s.orderRepo.ExistsByLabNumber(ctx, lab)
	if err != nil {
		return nil, err
	}
	if !exists {
		log.Printf("⚠️ Scan for unknown order %s, filing anyway", lab)
	}

	// 5. Store the document under the lab number
	paths, err := s.store.SaveResults(lab, input.Data)
	if err != nil {
		return nil, err
	}
	if exists {
		if order, err := s.orderRepo.GetByLabNumber(ctx, lab); err == nil {
			if err := s.orderRepo.SetResultsPath(ctx, order.ID, paths[0]); err != nil {
				log.Printf("⚠️ Failed to record results path for %s: %v", lab, err)
			}
		}
	}

	log.Printf("✅ Scan analyzed and filed: %s (%s)", lab, input.Filename)

	return &ScanOutput{
		LabNumber: lab,
		Analyzer:  analyzed.Raw,
		Saved: &SavedScan{
			Dir:   s.store.ResultsDir(),
			Paths: paths,
		},
	}, nil
}

// acceptedScanType allows PDFs and any image format.
func acceptedScanType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct == "application/pdf" || strings.HasPrefix(ct, "image/")
}

// extractLabNumber resolves the lab number from the analyzer response,
// falling back to scanning its raw payload and finally the filename.
func extractLabNumber(analyzed *AnalyzeResponse, filename string) (string, bool) {
	if labnumber.Valid(strings.ToUpper(strings.TrimSpace(analyzed.Labnummer))) {
		return strings.ToUpper(strings.TrimSpace(analyzed.Labnummer)), true
	}
	if raw, err := json.Marshal(analyzed.Raw); err == nil {
		if lab, ok := labnumber.Extract(string(raw)); ok {
			return lab, true
		}
	}
	return labnumber.Extract(filename)
}
