package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/example/docstore/internal/models"
)

var ErrDocumentNotFound = errors.New("document not found")

// Catalog is the read-only set of purchasable documents.
type Catalog struct {
	docs map[string]models.Document
}

type catalogEntry struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	DriveURL       string `json:"driveUrl"`
	TokensRequired int64  `json:"tokensRequired"`
	Category       string `json:"category"`
	Year           string `json:"year"`
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	return NewCatalog([]models.Document{
		{
			Key:            "agric-paper-1",
			FileID:         "1Mky5kBJX84sssm9DAGrtMpPG6WpcClDN",
			Name:           "AGRICULTURE PAPER 1.pdf",
			DriveURL:       "https://drive.google.com/uc?id=1Mky5kBJX84sssm9DAGrtMpPG6WpcClDN&export=download",
			TokensRequired: 1,
			Category:       "Agriculture",
			Year:           "2024",
		},
	})
}

func NewCatalog(docs []models.Document) *Catalog {
	c := &Catalog{docs: make(map[string]models.Document, len(docs))}
	for _, d := range docs {
		c.docs[d.Key] = d
	}
	return c
}

// LoadCatalog reads a JSON object of key -> document. An empty path yields
// the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var entries map[string]catalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	docs := make([]models.Document, 0, len(entries))
	for key, e := range entries {
		if e.DriveURL == "" {
			return nil, fmt.Errorf("catalog entry %q: driveUrl is required", key)
		}
		if e.TokensRequired < 1 {
			return nil, fmt.Errorf("catalog entry %q: tokensRequired must be at least 1", key)
		}
		docs = append(docs, models.Document{
			Key:            key,
			FileID:         e.ID,
			Name:           e.Name,
			DriveURL:       e.DriveURL,
			TokensRequired: e.TokensRequired,
			Category:       e.Category,
			Year:           e.Year,
		})
	}
	return NewCatalog(docs), nil
}

// Get looks up a document by its catalog key.
func (c *Catalog) Get(key string) (models.Document, error) {
	doc, ok := c.docs[key]
	if !ok {
		return models.Document{}, ErrDocumentNotFound
	}
	return doc, nil
}

// List returns every document ordered by key.
func (c *Catalog) List() []models.Document {
	out := make([]models.Document, 0, len(c.docs))
	for _, d := range c.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
