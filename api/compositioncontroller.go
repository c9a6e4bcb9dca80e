package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"skitbot/common"
	"skitbot/orchestrator"
	"skitbot/types"

	"github.com/gin-gonic/gin"
)

// RegisterCompositionRoutes registers the composition job endpoints and their
// /api/generate aliases.
func RegisterCompositionRoutes(r *gin.Engine, svc Compositions, presigner Presigner) {
	h := &compositionHandler{svc: svc, presigner: presigner}

	g := r.Group("/api/compositions")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.status)
	g.GET("/:id/status", h.status)
	g.GET("/:id/download", h.download)
	g.POST("/:id/regenerate", h.regenerate)

	alias := r.Group("/api/generate")
	alias.POST("", h.generate)
	alias.GET("/:id", h.status)
}

type compositionHandler struct {
	svc       Compositions
	presigner Presigner
}

// RegenerateBody is the request body of a regenerate call. Both fields are optional.
type RegenerateBody struct {
	Delays           []float64              `json:"delays"`
	SubtitlePosition types.SubtitlePosition `json:"subtitle_position"`
}

// StatusResponse is the polling view of a composition.
type StatusResponse struct {
	ID           string                  `json:"id"`
	Status       types.CompositionStatus `json:"status"`
	Progress     int                     `json:"progress"`
	Title        string                  `json:"title"`
	Script       []types.DialogueLine    `json:"script"`
	OutputURL    string                  `json:"output_url,omitempty"`
	SubtitlesURL string                  `json:"subtitles_url,omitempty"`
	Error        string                  `json:"error,omitempty"`
}

func statusOf(c *types.Composition) StatusResponse {
	return StatusResponse{
		ID:           c.ID,
		Status:       c.Status,
		Progress:     c.Progress,
		Title:        c.Title,
		Script:       c.GeneratedScript,
		OutputURL:    c.OutputURL,
		SubtitlesURL: c.SubtitlesURL,
		Error:        c.Error,
	}
}

func (h *compositionHandler) start(c *gin.Context) (*types.Composition, bool) {
	var req types.CompositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, common.NewValidationError("invalid request body: %v", err))
		return nil, false
	}
	comp, err := h.svc.StartComposition(c.Request.Context(), orchestrator.StartRequest{
		TemplateID:       req.TemplateID,
		Plot:             req.Plot,
		Title:            req.Title,
		SubtitlePosition: req.SubtitlePosition,
	})
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return comp, true
}

// create starts a composition and returns the full pending record.
func (h *compositionHandler) create(c *gin.Context) {
	comp, ok := h.start(c)
	if !ok {
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data":    comp,
		"message": "Composition started! Check status for progress.",
	})
}

// generate is the compact variant of create.
func (h *compositionHandler) generate(c *gin.Context) {
	comp, ok := h.start(c)
	if !ok {
		return
	}
	respondOK(c, http.StatusAccepted, gin.H{
		"id":      comp.ID,
		"status":  comp.Status,
		"message": "AI is generating the script...",
	})
}

func (h *compositionHandler) list(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, common.NewValidationError("limit must be an integer, got %q", raw))
			return
		}
		limit = n
	}
	comps, err := h.svc.ListCompositions(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, comps)
}

func (h *compositionHandler) status(c *gin.Context) {
	comp, err := h.svc.GetComposition(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, statusOf(comp))
}

func (h *compositionHandler) download(c *gin.Context) {
	comp, err := h.svc.GetComposition(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if comp.Status != types.StatusCompleted {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":  false,
			"error":    "Composition not completed. Current status: " + string(comp.Status),
			"status":   comp.Status,
			"progress": comp.Progress,
		})
		return
	}
	if comp.OutputURL == "" {
		respondError(c, common.NewNotFoundError("output", comp.ID))
		return
	}

	data := gin.H{
		"download_url":  comp.OutputURL,
		"subtitles_url": comp.SubtitlesURL,
	}
	if h.presigner != nil {
		signed, err := h.presigner.PresignURL(c.Request.Context(), comp.OutputURL)
		if err != nil {
			log.Printf("[api] ⚠️ presign failed for %s: %v", comp.ID, err)
		} else {
			data["presigned_url"] = signed
		}
	}
	respondOK(c, http.StatusOK, data)
}

func (h *compositionHandler) regenerate(c *gin.Context) {
	var body RegenerateBody
	// An empty body keeps the stored delays and position. Chunked requests
	// report an unknown length, so an empty one only shows up as io.EOF.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			respondError(c, common.NewValidationError("invalid request body: %v", err))
			return
		}
	}
	comp, err := h.svc.Regenerate(c.Request.Context(), c.Param("id"), orchestrator.RegenerateRequest{
		Delays:           body.Delays,
		SubtitlePosition: body.SubtitlePosition,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusAccepted, gin.H{
		"id":       comp.ID,
		"status":   comp.Status,
		"progress": comp.Progress,
		"message":  "Regenerating video with existing audio files... Check status for progress.",
	})
}
