package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"openobservatory/internal/models"
	"openobservatory/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed catalog.yaml
var catalogYAML []byte

// CatalogEntry is one celestial body of the built-in catalog.
type CatalogEntry struct {
	Name         string `yaml:"name"`
	Image        string `yaml:"image"`
	ValidityTime int    `yaml:"validity_time"`
}

type catalogFile struct {
	Bodies []CatalogEntry `yaml:"bodies"`
}

// ParseCatalog decodes and validates a catalog document.
func ParseCatalog(data []byte) ([]CatalogEntry, error) {
	var doc catalogFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	seen := make(map[string]struct{}, len(doc.Bodies))
	for i := range doc.Bodies {
		entry := &doc.Bodies[i]
		entry.Name = validation.NormalizeCelestialBodyName(entry.Name)
		if err := validation.ValidateCelestialBodyName(entry.Name); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		if err := validation.ValidateValidityTime(entry.ValidityTime); err != nil {
			return nil, fmt.Errorf("catalog entry %q: %w", entry.Name, err)
		}
		key := strings.ToLower(entry.Name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("catalog entry %q is listed twice", entry.Name)
		}
		seen[key] = struct{}{}
	}
	return doc.Bodies, nil
}

// BuiltInCatalog returns the embedded celestial body catalog.
func BuiltInCatalog() ([]CatalogEntry, error) {
	return ParseCatalog(catalogYAML)
}

// Catalog upserts entries by case-insensitive name. Existing bodies keep
// their ID so observations referencing them survive a re-seed.
func Catalog(db *gorm.DB, entries []CatalogEntry) ([]models.CelestialBody, error) {
	bodies := make([]models.CelestialBody, 0, len(entries))
	for _, entry := range entries {
		var body models.CelestialBody
		err := db.Transaction(func(tx *gorm.DB) error {
			findErr := tx.Where("LOWER(name) = LOWER(?)", entry.Name).First(&body).Error
			switch {
			case errors.Is(findErr, gorm.ErrRecordNotFound):
				body = models.CelestialBody{
					Name:         entry.Name,
					Image:        entry.Image,
					ValidityTime: entry.ValidityTime,
				}
				return tx.Create(&body).Error
			case findErr != nil:
				return findErr
			}
			body.Image = entry.Image
			body.ValidityTime = entry.ValidityTime
			return tx.Model(&body).Updates(map[string]any{
				"image":         entry.Image,
				"validity_time": entry.ValidityTime,
			}).Error
		})
		if err != nil {
			return nil, fmt.Errorf("seed celestial body %s: %w", entry.Name, err)
		}
		bodies = append(bodies, body)
	}
	return bodies, nil
}
