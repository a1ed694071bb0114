// Package catalog loads the tracked conference list and selects the
// conferences currently recruiting reviewers.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
)

// Catalog is the immutable, ordered set of tracked conferences.
type Catalog struct {
	conferences []discovery.Conference
}

type catalogFile struct {
	Conferences []discovery.Conference `yaml:"conferences"`
}

// Load reads and validates the catalog at path. Any failure is fatal to a run
// and wraps discovery.ErrCatalogUnavailable.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", discovery.ErrCatalogUnavailable, path, err)
	}
	cat, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", discovery.ErrCatalogUnavailable, path, err)
	}
	return cat, nil
}

// Parse decodes and validates catalog YAML.
func Parse(raw []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(file.Conferences)
}

// New validates records and builds a Catalog. Short names are upper-cased and
// must be unique.
func New(conferences []discovery.Conference) (*Catalog, error) {
	validate := validator.New()
	seen := make(map[string]int, len(conferences))
	out := make([]discovery.Conference, 0, len(conferences))
	var errs []error
	for i, conf := range conferences {
		conf.Short = discovery.NormalizeShort(conf.Short)
		conf.Domain = strings.ToLower(strings.TrimSpace(conf.Domain))
		if err := validate.Struct(conf); err != nil {
			errs = append(errs, fmt.Errorf("conference %d (%q): %w", i, conf.Short, err))
			continue
		}
		if prev, dup := seen[conf.Short]; dup {
			errs = append(errs, fmt.Errorf("conference %d: duplicate short name %q (first at %d)", i, conf.Short, prev))
			continue
		}
		seen[conf.Short] = i
		out = append(out, conf)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &Catalog{conferences: out}, nil
}

// All returns a copy of every conference in catalog order.
func (c *Catalog) All() []discovery.Conference {
	return append([]discovery.Conference(nil), c.conferences...)
}

// Len reports the number of conferences.
func (c *Catalog) Len() int {
	return len(c.conferences)
}

// Lookup finds a conference by short name.
func (c *Catalog) Lookup(short string) (discovery.Conference, bool) {
	short = discovery.NormalizeShort(short)
	for _, conf := range c.conferences {
		if conf.Short == short {
			return conf, true
		}
	}
	return discovery.Conference{}, false
}
