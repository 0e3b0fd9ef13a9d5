// Package suggest turns a detected completion context into concrete
// suggestions by asking a metadata provider for entity and attribute names.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/fetchsql/pkg/completion"
	"github.com/leapstack-labs/fetchsql/pkg/core"
)

// ItemKind classifies a suggestion.
type ItemKind string

// ItemKind values.
const (
	KindKeyword   ItemKind = "keyword"
	KindEntity    ItemKind = "entity"
	KindAttribute ItemKind = "attribute"
	KindTable     ItemKind = "table" // alias or entity usable as a qualifier
	KindElement   ItemKind = "element"
	KindValue     ItemKind = "value"
)

// Item is one suggestion.
type Item struct {
	Label  string   `json:"label"`
	Kind   ItemKind `json:"kind"`
	Detail string   `json:"detail,omitempty"`
}

// Suggest lists the suggestions valid for c, filtered by c.Prefix
// (case-insensitive). A nil provider yields keyword and schema suggestions
// only. Attributes of an entity the provider does not know are skipped
// rather than reported.
func Suggest(ctx context.Context, provider core.MetadataProvider, c completion.Context) ([]Item, error) {
	var items []Item

	for _, kw := range c.Keywords {
		items = append(items, Item{Label: kw, Kind: KindKeyword})
	}

	switch c.Kind {
	case completion.EntityName:
		entities, err := listEntities(ctx, provider)
		if err != nil {
			return nil, err
		}
		items = append(items, entities...)

	case completion.ColumnList, completion.WhereAttribute, completion.AttributeName:
		attrs, err := listAttributes(ctx, provider, c.Entity)
		if err != nil {
			return nil, err
		}
		items = append(items, attrs...)
		if c.Qualifier == "" && len(c.Scope) > 1 {
			items = append(items, qualifiers(c.Scope)...)
		}

	case completion.XMLElement:
		for _, v := range c.Values {
			items = append(items, Item{Label: v, Kind: KindElement})
		}

	case completion.XMLAttribute:
		for _, v := range c.Values {
			items = append(items, Item{Label: v, Kind: KindAttribute, Detail: c.Element})
		}

	case completion.XMLAttributeValue:
		for _, v := range c.Values {
			items = append(items, Item{Label: v, Kind: KindValue, Detail: c.Element + "@" + c.Attribute})
		}
	}

	return filter(items, c.Prefix), nil
}

func listEntities(ctx context.Context, provider core.MetadataProvider) ([]Item, error) {
	if provider == nil {
		return nil, nil
	}
	entities, err := provider.ListEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	items := make([]Item, 0, len(entities))
	for _, e := range entities {
		items = append(items, Item{Label: e.LogicalName, Kind: KindEntity, Detail: e.DisplayName})
	}
	return items, nil
}

func listAttributes(ctx context.Context, provider core.MetadataProvider, entity string) ([]Item, error) {
	if provider == nil || entity == "" {
		return nil, nil
	}
	attrs, err := provider.ListAttributes(ctx, entity)
	if err != nil {
		if errors.Is(err, core.ErrUnknownEntity) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list attributes of %s: %w", entity, err)
	}
	items := make([]Item, 0, len(attrs))
	for _, a := range attrs {
		detail := a.Type
		if a.DisplayName != "" {
			detail = strings.TrimSpace(a.DisplayName + " " + a.Type)
		}
		items = append(items, Item{Label: a.LogicalName, Kind: KindAttribute, Detail: detail})
	}
	return items, nil
}

func qualifiers(scope []completion.ScopeEntry) []Item {
	items := make([]Item, 0, len(scope))
	for _, s := range scope {
		label := s.Alias
		if label == "" {
			label = s.Entity
		}
		items = append(items, Item{Label: label + ".", Kind: KindTable, Detail: s.Entity})
	}
	return items
}

// filter keeps the items starting with prefix, ignoring case. Keywords
// come first and table qualifiers last; the provider's order is kept
// otherwise.
func filter(items []Item, prefix string) []Item {
	p := strings.ToLower(prefix)
	out := items[:0]
	for _, it := range items {
		if strings.HasPrefix(strings.ToLower(it.Label), p) {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i].Kind) < rank(out[j].Kind)
	})
	return out
}

func rank(k ItemKind) int {
	switch k {
	case KindKeyword:
		return 0
	case KindTable:
		return 2
	default:
		return 1
	}
}
