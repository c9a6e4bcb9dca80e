// Package store persists compositions, templates and characters.
package store

import (
	"context"

	"skitbot/config"
	"skitbot/types"
)

// Store is the record store behind the pipeline and the read-only API.
// Lookups of missing records return a common.NotFoundError.
type Store interface {
	CreateComposition(ctx context.Context, c *types.Composition) error
	GetComposition(ctx context.Context, id string) (*types.Composition, error)
	// UpdateComposition merges u into the stored record and returns the result.
	UpdateComposition(ctx context.Context, id string, u types.CompositionUpdate) (*types.Composition, error)
	// ListCompositions returns up to limit compositions, newest first.
	ListCompositions(ctx context.Context, limit int) ([]types.Composition, error)

	// SaveTemplate creates or replaces a template and its character list.
	SaveTemplate(ctx context.Context, t *types.Template) error
	GetTemplate(ctx context.Context, id string) (*types.Template, error)
	GetTemplateByName(ctx context.Context, name string) (*types.Template, error)
	ListTemplates(ctx context.Context) ([]types.Template, error)
	DeleteTemplate(ctx context.Context, id string) error

	CreateCharacter(ctx context.Context, c *types.Character) error
	GetCharacter(ctx context.Context, id string) (*types.Character, error)
	GetCharacterByName(ctx context.Context, name string) (*types.Character, error)
	ListCharacters(ctx context.Context) ([]types.Character, error)
	// UpdateCharacter replaces a stored character. The name cannot change.
	UpdateCharacter(ctx context.Context, c *types.Character) error
	// DeleteCharacter removes the character and drops it from every template cast.
	DeleteCharacter(ctx context.Context, id string) error
}

// ClampLimit applies the default and maximum list sizes.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return config.DefaultListLimit
	}
	if limit > config.MaxListLimit {
		return config.MaxListLimit
	}
	return limit
}
