package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// List groups used by the catalogue.
const (
	GroupCommon   = "common"
	GroupExpanded = "expanded"
)

//go:embed lists.toml
var defaultCatalogue []byte

// ListEntry is one predefined list in the catalogue.
type ListEntry struct {
	URL   string `toml:"url" validate:"required,url"`
	Group string `toml:"group" validate:"omitempty,oneof=common expanded"`
}

// Catalogue is the predefined set of lists processed in batch mode.
type Catalogue struct {
	Lists []ListEntry `toml:"list" validate:"required,min=1,dive"`
}

var validate = validator.New()

// LoadCatalogue reads a TOML catalogue from path, or the built-in catalogue
// when path is empty.
func LoadCatalogue(path string) (*Catalogue, error) {
	data := defaultCatalogue
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalogue %s: %w", path, err)
		}
		data = raw
	}
	return ParseCatalogue(data)
}

// ParseCatalogue decodes and validates a TOML catalogue.
func ParseCatalogue(data []byte) (*Catalogue, error) {
	var cat Catalogue
	if err := toml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}
	for i := range cat.Lists {
		if cat.Lists[i].Group == "" {
			cat.Lists[i].Group = GroupCommon
		}
	}
	if err := validate.Struct(&cat); err != nil {
		return nil, fmt.Errorf("invalid catalogue: %w", err)
	}
	return &cat, nil
}

// URLs returns the common lists, followed by the expanded lists when
// includeExpanded is set.
func (c *Catalogue) URLs(includeExpanded bool) []string {
	urls := make([]string, 0, len(c.Lists))
	for _, l := range c.Lists {
		if l.Group == GroupCommon {
			urls = append(urls, l.URL)
		}
	}
	if includeExpanded {
		for _, l := range c.Lists {
			if l.Group == GroupExpanded {
				urls = append(urls, l.URL)
			}
		}
	}
	return urls
}

// LoadDotEnv loads variables from an env file without overriding the
// process environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
