// Package catalog manages templates, characters and their uploaded assets.
package catalog

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"skitbot/common"
	"skitbot/config"
	"skitbot/store"
	"skitbot/types"
	"skitbot/video"

	"github.com/google/uuid"
)

// ObjectStore keeps uploaded template videos and character images.
type ObjectStore interface {
	Put(ctx context.Context, data []byte, folder, filename, contentType string) (string, error)
	Delete(ctx context.Context, objectURL string) error
}

// Prober reads stream metadata from a local file.
type Prober interface {
	Probe(ctx context.Context, ref string) (*video.Metadata, error)
}

// DefaultCharacterPosition places new characters that are created without one.
var DefaultCharacterPosition = types.Position{X: 50, Y: 75, Scale: 0.25, Anchor: types.AnchorBottomLeft}

// Upload is a file received from a client.
type Upload struct {
	Filename string
	Data     []byte
}

func (u *Upload) empty() bool {
	return u == nil || len(u.Data) == 0
}

// TemplateInput creates a template. Video is required.
type TemplateInput struct {
	Name        string
	Description string
	Video       *Upload
}

// TemplateUpdate changes a template. Nil fields are left alone.
type TemplateUpdate struct {
	Name        *string
	Description *string
	Video       *Upload
}

// CharacterInput creates a character. Image is required; Position is optional.
type CharacterInput struct {
	Name        string
	DisplayName string
	VoiceID     string
	Position    *types.Position
	Image       *Upload
}

// CharacterUpdate changes a character. Nil fields are left alone.
type CharacterUpdate struct {
	DisplayName *string
	VoiceID     *string
	Position    *types.Position
	Image       *Upload
}

// Service is the read and write side of the template catalog.
type Service struct {
	store   store.Store
	objects ObjectStore
	prober  Prober
	tempDir string
	now     func() time.Time
}

// New creates a Service. Uploaded videos are staged under tempDir for
// inspection; an empty tempDir uses the system default.
func New(s store.Store, objects ObjectStore, prober Prober, tempDir string) (*Service, error) {
	switch {
	case s == nil:
		return nil, fmt.Errorf("catalog: record store is required")
	case objects == nil:
		return nil, fmt.Errorf("catalog: object store is required")
	case prober == nil:
		return nil, fmt.Errorf("catalog: prober is required")
	}
	return &Service{store: s, objects: objects, prober: prober, tempDir: tempDir, now: time.Now}, nil
}

func (s *Service) ListTemplates(ctx context.Context) ([]types.Template, error) {
	return s.store.ListTemplates(ctx)
}

func (s *Service) GetTemplate(ctx context.Context, id string) (*types.Template, error) {
	return s.store.GetTemplate(ctx, id)
}

func (s *Service) ListCharacters(ctx context.Context) ([]types.Character, error) {
	return s.store.ListCharacters(ctx)
}

// GetCharacter looks a character up by id, then by name.
func (s *Service) GetCharacter(ctx context.Context, idOrName string) (*types.Character, error) {
	ch, err := s.store.GetCharacter(ctx, idOrName)
	if err == nil || !common.IsNotFound(err) {
		return ch, err
	}
	if byName, nameErr := s.store.GetCharacterByName(ctx, normalizeName(idOrName)); nameErr == nil {
		return byName, nil
	}
	return nil, err
}

// CreateTemplate uploads the video, reads its duration, size and frame rate,
// and stores a template with an empty cast.
func (s *Service) CreateTemplate(ctx context.Context, in TemplateInput) (*types.Template, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, common.NewValidationError("template name is required")
	}
	if in.Video.empty() {
		return nil, common.NewValidationError("video file is required")
	}

	tmpl := &types.Template{Name: name, Description: strings.TrimSpace(in.Description)}
	if err := s.attachVideo(ctx, tmpl, in.Video); err != nil {
		return nil, err
	}
	if err := s.store.SaveTemplate(ctx, tmpl); err != nil {
		s.discard(ctx, tmpl.VideoURL)
		return nil, err
	}
	log.Printf("🎞️ Template created: %s (%s, %.1fs)", tmpl.Name, tmpl.ID, tmpl.Duration)
	return tmpl, nil
}

// UpdateTemplate applies u. A new video replaces the old one, which is removed
// from storage after the record is saved.
func (s *Service) UpdateTemplate(ctx context.Context, id string, u TemplateUpdate) (*types.Template, error) {
	tmpl, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return nil, common.NewValidationError("template name cannot be empty")
		}
		tmpl.Name = name
	}
	if u.Description != nil {
		tmpl.Description = strings.TrimSpace(*u.Description)
	}

	oldVideo := ""
	if !u.Video.empty() {
		oldVideo = tmpl.VideoURL
		if err := s.attachVideo(ctx, tmpl, u.Video); err != nil {
			return nil, err
		}
	}
	if err := s.store.SaveTemplate(ctx, tmpl); err != nil {
		if oldVideo != "" {
			s.discard(ctx, tmpl.VideoURL)
		}
		return nil, err
	}
	if oldVideo != "" {
		s.discard(ctx, oldVideo)
	}
	return tmpl, nil
}

// DeleteTemplate removes the template record and its video.
func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	tmpl, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTemplate(ctx, id); err != nil {
		return err
	}
	s.discard(ctx, tmpl.VideoURL)
	log.Printf("🗑️ Template deleted: %s", id)
	return nil
}

// AddCharacters adds ids to the template's cast. Every id must exist;
// characters already in the cast are skipped.
func (s *Service) AddCharacters(ctx context.Context, templateID string, ids []string) (*types.Template, error) {
	if len(ids) == 0 {
		return nil, common.NewValidationError("character_ids must not be empty")
	}
	tmpl, err := s.store.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, id := range ids {
		if slices.ContainsFunc(tmpl.Characters, func(c types.Character) bool { return c.ID == id }) {
			continue
		}
		ch, err := s.store.GetCharacter(ctx, id)
		if common.IsNotFound(err) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		tmpl.Characters = append(tmpl.Characters, *ch)
	}
	if len(missing) > 0 {
		return nil, common.NewValidationError("some characters not found: %s", strings.Join(missing, ", "))
	}

	if err := s.store.SaveTemplate(ctx, tmpl); err != nil {
		return nil, err
	}
	return s.store.GetTemplate(ctx, templateID)
}

// RemoveCharacters drops ids from the template's cast. Unknown ids are ignored.
func (s *Service) RemoveCharacters(ctx context.Context, templateID string, ids []string) (*types.Template, error) {
	if len(ids) == 0 {
		return nil, common.NewValidationError("character_ids must not be empty")
	}
	tmpl, err := s.store.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	tmpl.Characters = slices.DeleteFunc(tmpl.Characters, func(c types.Character) bool {
		return slices.Contains(ids, c.ID)
	})
	if err := s.store.SaveTemplate(ctx, tmpl); err != nil {
		return nil, err
	}
	return s.store.GetTemplate(ctx, templateID)
}

// CreateCharacter uploads the image and stores the character. Names are
// stored lowercased.
func (s *Service) CreateCharacter(ctx context.Context, in CharacterInput) (*types.Character, error) {
	name := normalizeName(in.Name)
	switch {
	case name == "":
		return nil, common.NewValidationError("character name is required")
	case strings.TrimSpace(in.DisplayName) == "":
		return nil, common.NewValidationError("display_name is required")
	case strings.TrimSpace(in.VoiceID) == "":
		return nil, common.NewValidationError("voice_id is required")
	case in.Image.empty():
		return nil, common.NewValidationError("image file is required")
	}
	pos := DefaultCharacterPosition
	if in.Position != nil {
		pos = *in.Position
	}
	if err := validatePosition(pos); err != nil {
		return nil, err
	}
	if _, err := s.store.GetCharacterByName(ctx, name); err == nil {
		return nil, common.NewValidationError("character %q already exists", name)
	}

	imageURL, err := s.upload(ctx, in.Image, config.FolderCharacters, "image")
	if err != nil {
		return nil, err
	}
	ch := &types.Character{
		Name:        name,
		DisplayName: strings.TrimSpace(in.DisplayName),
		VoiceID:     strings.TrimSpace(in.VoiceID),
		ImageURL:    imageURL,
		Position:    pos,
	}
	if err := s.store.CreateCharacter(ctx, ch); err != nil {
		s.discard(ctx, imageURL)
		return nil, err
	}
	log.Printf("🧑 Character created: %s (%s)", ch.Name, ch.ID)
	return ch, nil
}

// UpdateCharacter applies u. A new image replaces the old one.
func (s *Service) UpdateCharacter(ctx context.Context, id string, u CharacterUpdate) (*types.Character, error) {
	ch, err := s.store.GetCharacter(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.DisplayName != nil {
		if strings.TrimSpace(*u.DisplayName) == "" {
			return nil, common.NewValidationError("display_name cannot be empty")
		}
		ch.DisplayName = strings.TrimSpace(*u.DisplayName)
	}
	if u.VoiceID != nil {
		if strings.TrimSpace(*u.VoiceID) == "" {
			return nil, common.NewValidationError("voice_id cannot be empty")
		}
		ch.VoiceID = strings.TrimSpace(*u.VoiceID)
	}
	if u.Position != nil {
		if err := validatePosition(*u.Position); err != nil {
			return nil, err
		}
		ch.Position = *u.Position
	}

	oldImage := ""
	if !u.Image.empty() {
		imageURL, err := s.upload(ctx, u.Image, config.FolderCharacters, "image")
		if err != nil {
			return nil, err
		}
		oldImage, ch.ImageURL = ch.ImageURL, imageURL
	}
	if err := s.store.UpdateCharacter(ctx, ch); err != nil {
		if oldImage != "" {
			s.discard(ctx, ch.ImageURL)
		}
		return nil, err
	}
	if oldImage != "" {
		s.discard(ctx, oldImage)
	}
	return ch, nil
}

// DeleteCharacter removes the character from the catalog and every cast.
func (s *Service) DeleteCharacter(ctx context.Context, id string) error {
	ch, err := s.store.GetCharacter(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteCharacter(ctx, id); err != nil {
		return err
	}
	s.discard(ctx, ch.ImageURL)
	log.Printf("🗑️ Character deleted: %s (%s)", ch.Name, id)
	return nil
}

// attachVideo inspects the upload, stores it and records its metadata on tmpl.
func (s *Service) attachVideo(ctx context.Context, tmpl *types.Template, v *Upload) error {
	meta, err := s.inspect(ctx, v)
	if err != nil {
		return err
	}
	videoURL, err := s.upload(ctx, v, config.FolderTemplates, "video")
	if err != nil {
		return err
	}
	tmpl.VideoURL = videoURL
	tmpl.Duration = meta.Duration
	tmpl.Dimensions = types.Dimensions{Width: meta.Width, Height: meta.Height}
	tmpl.FrameRate = meta.FrameRate
	return nil
}

// inspect stages the upload on disk so ffprobe can read it without a
// round trip through the bucket.
func (s *Service) inspect(ctx context.Context, v *Upload) (*video.Metadata, error) {
	f, err := os.CreateTemp(s.tempDir, "template-*"+filepath.Ext(v.Filename))
	if err != nil {
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(v.Data); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}

	meta, err := s.prober.Probe(ctx, f.Name())
	if err != nil {
		if common.IsProvider(err) {
			return nil, err
		}
		return nil, common.NewProviderError("ffprobe", "probe", err)
	}
	if meta.Duration <= 0 {
		return nil, common.NewValidationError("uploaded video has no duration")
	}
	return meta, nil
}

func (s *Service) upload(ctx context.Context, u *Upload, folder, prefix string) (string, error) {
	ext := extension(u.Filename)
	filename := fmt.Sprintf("%s_%d_%s.%s", prefix, s.now().UnixMilli(), uuid.NewString()[:8], ext)
	return s.objects.Put(ctx, u.Data, folder, filename, prefix+"/"+ext)
}

// discard removes an asset. Failures are logged, never returned.
func (s *Service) discard(ctx context.Context, objectURL string) {
	if objectURL == "" {
		return
	}
	if err := s.objects.Delete(ctx, objectURL); err != nil {
		log.Printf("⚠️ Failed to delete %s: %v", objectURL, err)
	}
}

func extension(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return "bin"
	}
	return ext
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func validatePosition(p types.Position) error {
	switch {
	case p.X < 0 || p.X > 100 || p.Y < 0 || p.Y > 100:
		return common.NewValidationError("position x and y must be between 0 and 100")
	case p.Scale <= 0 || p.Scale > 1:
		return common.NewValidationError("position scale must be in (0, 1]")
	case !p.Anchor.Valid():
		return common.NewValidationError("invalid anchor %q", p.Anchor)
	}
	return nil
}
