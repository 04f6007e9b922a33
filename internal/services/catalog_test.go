package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeCatalogFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "documents.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := writeCatalogFile(t, `{
		"math-2024": {"id": "f2", "name": "Maths 2024", "driveUrl": "https://drive.example/m", "tokensRequired": 3, "category": "Maths", "year": "2024"},
		"bio-2023": {"id": "f1", "name": "Biology 2023", "driveUrl": "https://drive.example/b", "tokensRequired": 1}
	}`)

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	docs := catalog.List()
	if len(docs) != 2 || docs[0].Key != "bio-2023" || docs[1].Key != "math-2024" {
		t.Fatalf("expected documents sorted by key, got %+v", docs)
	}

	doc, err := catalog.Get("math-2024")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.TokensRequired != 3 || doc.FileID != "f2" || doc.DriveURL != "https://drive.example/m" {
		t.Fatalf("unexpected document %+v", doc)
	}
	if _, err := catalog.Get("nope"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestLoadCatalogValidates(t *testing.T) {
	cases := map[string]string{
		"missing url": `{"x": {"tokensRequired": 1}}`,
		"zero price":  `{"x": {"driveUrl": "https://d", "tokensRequired": 0}}`,
		"bad json":    `{`,
	}
	for name, body := range cases {
		if _, err := LoadCatalog(writeCatalogFile(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadCatalogDefault(t *testing.T) {
	catalog, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("load default: %v", err)
	}
	if _, err := catalog.Get("agric-paper-1"); err != nil {
		t.Fatalf("expected built-in document: %v", err)
	}
}
