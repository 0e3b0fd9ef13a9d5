package metadata

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/fetchsql/pkg/core"
)

// catalogEntity is one entity of a catalog file.
type catalogEntity struct {
	core.Entity `yaml:",inline"`
	Attributes  []core.Attribute `yaml:"attributes"`
}

type catalogFile struct {
	Entities []catalogEntity `yaml:"entities"`
}

// Catalog is an in-memory metadata provider loaded from YAML:
//
//	entities:
//	  - name: account
//	    display_name: Account
//	    primary_key: accountid
//	    attributes:
//	      - name: name
//	        type: string
type Catalog struct {
	entities   []core.Entity
	attributes map[string][]core.Attribute // keyed by lower-case entity name
}

var _ core.MetadataProvider = (*Catalog)(nil)

// LoadCatalog reads a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	cat, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// ParseCatalog decodes catalog YAML. Entities and attributes are sorted by
// logical name; duplicate entity names are rejected.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	cat := &Catalog{attributes: make(map[string][]core.Attribute, len(file.Entities))}
	for i, e := range file.Entities {
		if e.LogicalName == "" {
			return nil, fmt.Errorf("catalog entity %d has no name", i+1)
		}
		key := strings.ToLower(e.LogicalName)
		if _, dup := cat.attributes[key]; dup {
			return nil, fmt.Errorf("catalog entity %q is defined more than once", e.LogicalName)
		}
		attrs := append([]core.Attribute{}, e.Attributes...)
		sortAttributes(attrs)
		cat.attributes[key] = attrs
		cat.entities = append(cat.entities, e.Entity)
	}
	sortEntities(cat.entities)
	return cat, nil
}

// ListEntities returns every entity of the catalog.
func (c *Catalog) ListEntities(_ context.Context) ([]core.Entity, error) {
	return append([]core.Entity(nil), c.entities...), nil
}

// ListAttributes returns the attributes of entity, matched case-insensitively.
func (c *Catalog) ListAttributes(_ context.Context, entity string) ([]core.Attribute, error) {
	attrs, ok := c.attributes[strings.ToLower(entity)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownEntity, entity)
	}
	return append([]core.Attribute(nil), attrs...), nil
}

func sortEntities(entities []core.Entity) {
	sort.Slice(entities, func(i, j int) bool {
		return entities[i].LogicalName < entities[j].LogicalName
	})
}

func sortAttributes(attrs []core.Attribute) {
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].LogicalName < attrs[j].LogicalName
	})
}
