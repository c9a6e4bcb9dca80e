package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"skitbot/catalog"
	"skitbot/common"
	"skitbot/types"

	"github.com/gin-gonic/gin"
)

// maxUploadBytes bounds a single template video or character image.
const maxUploadBytes = 512 << 20

// CastBody names the characters to add to or remove from a template.
type CastBody struct {
	CharacterIDs []string `json:"character_ids" binding:"required"`
}

type catalogHandlers struct {
	catalog Catalog
	manager CatalogManager
}

// RegisterCatalogRoutes registers template and character endpoints. Write
// routes are only registered when manager is set.
func RegisterCatalogRoutes(r *gin.Engine, reader Catalog, manager CatalogManager) {
	h := &catalogHandlers{catalog: reader, manager: manager}

	templates := r.Group("/api/templates")
	templates.GET("", h.listTemplates)
	templates.GET("/:id", h.getTemplate)

	characters := r.Group("/api/characters")
	characters.GET("", h.listCharacters)
	characters.GET("/:id", h.getCharacter)

	if manager == nil {
		return
	}
	templates.POST("", h.createTemplate)
	templates.PUT("/:id", h.updateTemplate)
	templates.DELETE("/:id", h.deleteTemplate)
	templates.POST("/:id/characters", h.addCharacters)
	templates.DELETE("/:id/characters", h.removeCharacters)

	characters.POST("", h.createCharacter)
	characters.PUT("/:id", h.updateCharacter)
	characters.DELETE("/:id", h.deleteCharacter)
}

func (h *catalogHandlers) listTemplates(c *gin.Context) {
	list, err := h.catalog.ListTemplates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

func (h *catalogHandlers) getTemplate(c *gin.Context) {
	tmpl, err := h.catalog.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, tmpl)
}

func (h *catalogHandlers) listCharacters(c *gin.Context) {
	list, err := h.catalog.ListCharacters(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

func (h *catalogHandlers) getCharacter(c *gin.Context) {
	ch, err := h.catalog.GetCharacter(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, ch)
}

func (h *catalogHandlers) createTemplate(c *gin.Context) {
	video, err := formUpload(c, "video")
	if err != nil {
		respondError(c, err)
		return
	}
	tmpl, err := h.manager.CreateTemplate(c.Request.Context(), catalog.TemplateInput{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Video:       video,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, tmpl)
}

func (h *catalogHandlers) updateTemplate(c *gin.Context) {
	video, err := formUpload(c, "video")
	if err != nil {
		respondError(c, err)
		return
	}
	tmpl, err := h.manager.UpdateTemplate(c.Request.Context(), c.Param("id"), catalog.TemplateUpdate{
		Name:        optionalForm(c, "name"),
		Description: optionalForm(c, "description"),
		Video:       video,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, tmpl)
}

func (h *catalogHandlers) deleteTemplate(c *gin.Context) {
	if err := h.manager.DeleteTemplate(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Template deleted"})
}

func (h *catalogHandlers) addCharacters(c *gin.Context) {
	var body CastBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, common.NewValidationError("invalid request body: %v", err))
		return
	}
	tmpl, err := h.manager.AddCharacters(c.Request.Context(), c.Param("id"), body.CharacterIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, tmpl)
}

func (h *catalogHandlers) removeCharacters(c *gin.Context) {
	var body CastBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, common.NewValidationError("invalid request body: %v", err))
		return
	}
	tmpl, err := h.manager.RemoveCharacters(c.Request.Context(), c.Param("id"), body.CharacterIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, tmpl)
}

func (h *catalogHandlers) createCharacter(c *gin.Context) {
	image, err := formUpload(c, "image")
	if err != nil {
		respondError(c, err)
		return
	}
	pos, err := formPosition(c)
	if err != nil {
		respondError(c, err)
		return
	}
	ch, err := h.manager.CreateCharacter(c.Request.Context(), catalog.CharacterInput{
		Name:        c.PostForm("name"),
		DisplayName: c.PostForm("display_name"),
		VoiceID:     c.PostForm("voice_id"),
		Position:    pos,
		Image:       image,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, ch)
}

func (h *catalogHandlers) updateCharacter(c *gin.Context) {
	image, err := formUpload(c, "image")
	if err != nil {
		respondError(c, err)
		return
	}
	pos, err := formPosition(c)
	if err != nil {
		respondError(c, err)
		return
	}
	ch, err := h.manager.UpdateCharacter(c.Request.Context(), c.Param("id"), catalog.CharacterUpdate{
		DisplayName: optionalForm(c, "display_name"),
		VoiceID:     optionalForm(c, "voice_id"),
		Position:    pos,
		Image:       image,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, ch)
}

func (h *catalogHandlers) deleteCharacter(c *gin.Context) {
	if err := h.manager.DeleteCharacter(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Character deleted"})
}

// formUpload reads an optional multipart file. A missing field yields nil.
func formUpload(c *gin.Context, field string) (*catalog.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, common.NewValidationError("invalid %s upload: %v", field, err)
	}
	if fh.Size > maxUploadBytes {
		return nil, common.NewValidationError("%s exceeds %d MB", field, maxUploadBytes>>20)
	}
	data, err := readUpload(fh)
	if err != nil {
		return nil, common.NewValidationError("failed to read %s upload: %v", field, err)
	}
	return &catalog.Upload{Filename: fh.Filename, Data: data}, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func optionalForm(c *gin.Context, field string) *string {
	v, ok := c.GetPostForm(field)
	if !ok {
		return nil
	}
	return &v
}

// formPosition builds a position from position_x, position_y, scale and
// anchor. Fields that are absent take the default placement. With none of
// them present the result is nil.
func formPosition(c *gin.Context) (*types.Position, error) {
	pos := catalog.DefaultCharacterPosition
	seen := false
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"position_x", &pos.X},
		{"position_y", &pos.Y},
		{"scale", &pos.Scale},
	} {
		raw, ok := c.GetPostForm(f.name)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, common.NewValidationError("%s must be a number", f.name)
		}
		*f.dst = v
		seen = true
	}
	if anchor, ok := c.GetPostForm("anchor"); ok {
		pos.Anchor = types.Anchor(anchor)
		seen = true
	}
	if !seen {
		return nil, nil
	}
	return &pos, nil
}

// RegisterVoiceRoutes registers the TTS voice listing.
func RegisterVoiceRoutes(r *gin.Engine, voices VoiceLister) {
	r.GET("/api/voices", func(c *gin.Context) {
		list, err := voices.Voices(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, http.StatusOK, list)
	})
}
