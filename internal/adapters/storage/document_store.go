package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"diglab-api/internal/core/domain"
)

// Kind identifies which of the two per-order PDFs is meant.
type Kind string

const (
	KindRequisition Kind = "requisition"
	KindResults     Kind = "results"
)

// DocumentStore resolves (lab number, kind) pairs to files on disk.
// Filenames drifted across revisions, so lookups walk an ordered list
// of candidate names and take the first that exists. A missing file is
// a normal outcome until the corresponding generation step has run.
type DocumentStore struct {
	formsDir       string
	formResultsDir string
}

// NewDocumentStore creates the store and eagerly creates both
// directories from the injected configuration.
func NewDocumentStore(formsDir, formResultsDir string) (*DocumentStore, error) {
	for _, dir := range []string{formsDir, formResultsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
		}
	}
	return &DocumentStore{
		formsDir:       formsDir,
		formResultsDir: formResultsDir,
	}, nil
}

// ResultsDir returns the directory results PDFs are written to.
func (s *DocumentStore) ResultsDir() string {
	return s.formResultsDir
}

// candidates returns lookup paths in preference order, newest naming
// convention first.
func (s *DocumentStore) candidates(lab string, kind Kind) []string {
	switch kind {
	case KindResults:
		return []string{
			filepath.Join(s.formResultsDir, "DigLab-"+lab+"-results.pdf"),
			filepath.Join(s.formResultsDir, lab+"-results.pdf"),
			filepath.Join(s.formResultsDir, lab+".pdf"),
		}
	default:
		return []string{
			filepath.Join(s.formsDir, "DigLab-"+lab+".pdf"),
			filepath.Join(s.formsDir, lab+".pdf"),
		}
	}
}

// Resolve returns the path of the first existing candidate for the
// given document, or false when none exists yet.
func (s *DocumentStore) Resolve(lab string, kind Kind) (string, bool) {
	for _, p := range s.candidates(lab, kind) {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// Read loads the document bytes, or ErrDocumentNotFound when absent.
func (s *DocumentStore) Read(lab string, kind Kind) ([]byte, error) {
	p, ok := s.Resolve(lab, kind)
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return os.ReadFile(p)
}

// SaveRequisition writes the requisition PDF under the canonical name,
// overwriting any previous generation.
func (s *DocumentStore) SaveRequisition(lab string, data []byte) (string, error) {
	p := filepath.Join(s.formsDir, "DigLab-"+lab+".pdf")
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", err
	}
	return p, nil
}

// SaveResults writes the results PDF under the canonical name plus a
// plain <LAB>.pdf alias kept for older lookups.
func (s *DocumentStore) SaveResults(lab string, data []byte) ([]string, error) {
	canonical := filepath.Join(s.formResultsDir, "DigLab-"+lab+"-results.pdf")
	alias := filepath.Join(s.formResultsDir, lab+".pdf")

	if err := os.WriteFile(canonical, data, 0o644); err != nil {
		return nil, err
	}
	if err := os.WriteFile(alias, data, 0o644); err != nil {
		return nil, err
	}
	return []string{canonical, alias}, nil
}
