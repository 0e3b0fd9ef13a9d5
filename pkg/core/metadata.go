package core

import (
	"context"
	"errors"
)

// ErrUnknownEntity is returned by providers when attributes are requested
// for an entity they do not know.
var ErrUnknownEntity = errors.New("unknown entity")

// Entity describes a queryable table on the remote platform.
type Entity struct {
	LogicalName string `json:"logical_name" yaml:"name"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name"`
	PrimaryKey  string `json:"primary_key,omitempty" yaml:"primary_key"`
}

// Attribute describes a column of an entity.
type Attribute struct {
	LogicalName string `json:"logical_name" yaml:"name"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name"`
	Type        string `json:"type,omitempty" yaml:"type"`
}

// MetadataProvider supplies entity and attribute names to the completion
// use case. The translation core never calls it; hosts combine its answers
// with a detected suggestion context.
type MetadataProvider interface {
	ListEntities(ctx context.Context) ([]Entity, error)
	ListAttributes(ctx context.Context, entity string) ([]Attribute, error)
}
