package storage

import (
	"os"
	"path/filepath"
	"testing"

	"diglab-api/internal/core/domain"

	"github.com/stretchr/testify/require"
)

const testLab = "LAB-20250417-8F2A1C3B"

func newTestStore(t *testing.T) *DocumentStore {
	t.Helper()
	base := t.TempDir()
	store, err := NewDocumentStore(filepath.Join(base, "forms"), filepath.Join(base, "formsResults"))
	require.NoError(t, err)
	return store
}

func TestNewDocumentStoreCreatesDirs(t *testing.T) {
	base := t.TempDir()
	forms := filepath.Join(base, "forms")
	results := filepath.Join(base, "formsResults")

	_, err := NewDocumentStore(forms, results)
	require.NoError(t, err)
	require.DirExists(t, forms)
	require.DirExists(t, results)
}

func TestSaveAndReadRequisition(t *testing.T) {
	store := newTestStore(t)

	path, err := store.SaveRequisition(testLab, []byte("%PDF-1.4 requisition"))
	require.NoError(t, err)
	require.Equal(t, "DigLab-"+testLab+".pdf", filepath.Base(path))

	data, err := store.Read(testLab, KindRequisition)
	require.NoError(t, err)
	require.Equal(t, []byte("%PDF-1.4 requisition"), data)
}

func TestSaveResultsWritesAlias(t *testing.T) {
	store := newTestStore(t)

	paths, err := store.SaveResults(testLab, []byte("%PDF-1.4 results"))
	require.NoError(t, err)
	require.Len(t, paths, 2)
	require.Equal(t, "DigLab-"+testLab+"-results.pdf", filepath.Base(paths[0]))
	require.Equal(t, testLab+".pdf", filepath.Base(paths[1]))

	for _, p := range paths {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		require.Equal(t, []byte("%PDF-1.4 results"), data)
	}
}

func TestReadMissingDocument(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Read(testLab, KindRequisition)
	require.ErrorIs(t, err, domain.ErrDocumentNotFound)

	_, err = store.Read(testLab, KindResults)
	require.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestResolvePrefersCanonicalName(t *testing.T) {
	store := newTestStore(t)

	// Older installs wrote the plain name; the canonical one wins when
	// both exist
	legacy := filepath.Join(store.formsDir, testLab+".pdf")
	require.NoError(t, os.WriteFile(legacy, []byte("old"), 0o644))

	p, ok := store.Resolve(testLab, KindRequisition)
	require.True(t, ok)
	require.Equal(t, legacy, p)

	_, err := store.SaveRequisition(testLab, []byte("new"))
	require.NoError(t, err)

	p, ok = store.Resolve(testLab, KindRequisition)
	require.True(t, ok)
	require.Equal(t, "DigLab-"+testLab+".pdf", filepath.Base(p))
}

func TestResolveResultsFallbackOrder(t *testing.T) {
	store := newTestStore(t)

	plain := filepath.Join(store.formResultsDir, testLab+".pdf")
	require.NoError(t, os.WriteFile(plain, []byte("scanned"), 0o644))

	p, ok := store.Resolve(testLab, KindResults)
	require.True(t, ok)
	require.Equal(t, plain, p)

	data, err := store.Read(testLab, KindResults)
	require.NoError(t, err)
	require.Equal(t, []byte("scanned"), data)
}

func TestSaveOverwrites(t *testing.T) {
	store := newTestStore(t)

	_, err := store.SaveResults(testLab, []byte("first"))
	require.NoError(t, err)
	_, err = store.SaveResults(testLab, []byte("second"))
	require.NoError(t, err)

	data, err := store.Read(testLab, KindResults)
	require.NoError(t, err)
	require.Equal(t, []byte("second"), data)
}
