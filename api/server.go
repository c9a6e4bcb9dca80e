// Package api exposes compositions, the template catalog and TTS voices over HTTP.
package api

import (
	"context"
	"net/http"

	"skitbot/catalog"
	"skitbot/common"
	"skitbot/orchestrator"
	"skitbot/speech"
	"skitbot/types"

	"github.com/gin-gonic/gin"
)

// Compositions starts and reads composition jobs.
type Compositions interface {
	StartComposition(ctx context.Context, req orchestrator.StartRequest) (*types.Composition, error)
	GetComposition(ctx context.Context, id string) (*types.Composition, error)
	ListCompositions(ctx context.Context, limit int) ([]types.Composition, error)
	Regenerate(ctx context.Context, id string, req orchestrator.RegenerateRequest) (*types.Composition, error)
}

// Catalog is the read-only view of templates and characters.
type Catalog interface {
	GetTemplate(ctx context.Context, id string) (*types.Template, error)
	ListTemplates(ctx context.Context) ([]types.Template, error)
	GetCharacter(ctx context.Context, id string) (*types.Character, error)
	ListCharacters(ctx context.Context) ([]types.Character, error)
}

// CatalogManager creates, changes and deletes templates and characters.
type CatalogManager interface {
	CreateTemplate(ctx context.Context, in catalog.TemplateInput) (*types.Template, error)
	UpdateTemplate(ctx context.Context, id string, u catalog.TemplateUpdate) (*types.Template, error)
	DeleteTemplate(ctx context.Context, id string) error
	AddCharacters(ctx context.Context, templateID string, ids []string) (*types.Template, error)
	RemoveCharacters(ctx context.Context, templateID string, ids []string) (*types.Template, error)
	CreateCharacter(ctx context.Context, in catalog.CharacterInput) (*types.Character, error)
	UpdateCharacter(ctx context.Context, id string, u catalog.CharacterUpdate) (*types.Character, error)
	DeleteCharacter(ctx context.Context, id string) error
}

// VoiceLister lists the voices of the speech provider.
type VoiceLister interface {
	Voices(ctx context.Context) ([]speech.Voice, error)
}

// Presigner turns a stored object URL into a time-limited download URL.
type Presigner interface {
	PresignURL(ctx context.Context, objectURL string) (string, error)
}

// Deps wires the router. Presigner and Manager are optional; without a
// Manager the catalog is read-only.
type Deps struct {
	Compositions Compositions
	Catalog      Catalog
	Manager      CatalogManager
	Voices       VoiceLister
	Presigner    Presigner
	// GinLog enables gin's request logger.
	GinLog bool
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())
	if deps.GinLog {
		r.Use(gin.Logger())
	}

	RegisterHealthRoutes(r)
	RegisterCompositionRoutes(r, deps.Compositions, deps.Presigner)
	RegisterCatalogRoutes(r, deps.Catalog, deps.Manager)
	RegisterVoiceRoutes(r, deps.Voices)
	return r
}

// RegisterHealthRoutes registers the liveness endpoint.
func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
}

// respondError maps the error taxonomy onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case common.IsValidation(err):
		status = http.StatusBadRequest
	case common.IsNotFound(err):
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"success": false, "error": common.ErrorMessage(err)})
}

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}
