package db

import (
	_ "embed"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/meinhoongagan/doctors-portal/models"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// DefaultCatalog returns the built-in appointment option catalog.
func DefaultCatalog() ([]models.AppointmentOption, error) {
	var options []models.AppointmentOption
	if err := yaml.Unmarshal(defaultCatalog, &options); err != nil {
		return nil, fmt.Errorf("parse built-in catalog: %w", err)
	}
	return options, nil
}

// LoadCatalog decodes a YAML list of appointment options.
func LoadCatalog(r io.Reader) ([]models.AppointmentOption, error) {
	var options []models.AppointmentOption
	if err := yaml.NewDecoder(r).Decode(&options); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for i, o := range options {
		if o.Name == "" {
			return nil, fmt.Errorf("catalog entry %d has no name", i)
		}
		if len(o.Slots) == 0 {
			return nil, fmt.Errorf("catalog entry %q has no slots", o.Name)
		}
	}
	return options, nil
}
