package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"platewise/internal/models"
)

// MenuFile is the on-disk menu document written by the menu collector
type MenuFile struct {
	Date       string            `json:"date,omitempty"`
	ScrapedAt  string            `json:"scraped_at,omitempty"`
	TotalItems int               `json:"total_items,omitempty"`
	Foods      []models.FoodItem `json:"foods"`
}

// Decode reads a menu document and builds a catalog from it
func Decode(r io.Reader, source string) (*Catalog, error) {
	var doc MenuFile
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode menu data: %w", err)
	}
	return New(doc.Foods, source)
}

// LoadFile reads the menu document at path
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open menu data: %w", err)
	}
	defer f.Close()

	return Decode(f, path)
}

// WriteFile stores items as a menu document at path
func WriteFile(path string, items []models.FoodItem) error {
	now := time.Now()
	doc := MenuFile{
		Date:       now.Format("2006-01-02"),
		ScrapedAt:  now.Format(time.RFC3339),
		TotalItems: len(items),
		Foods:      items,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal menu data: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write menu data: %w", err)
	}
	return nil
}
