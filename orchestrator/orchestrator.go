// Package orchestrator runs compositions through script generation, speech
// synthesis, compositing, captioning and upload.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"skitbot/common"
	"skitbot/script"
	"skitbot/speech"
	"skitbot/store"
	"skitbot/subtitles"
	"skitbot/timing"
	"skitbot/types"
	"skitbot/video"
)

// ScriptWriter produces dialogue for a plot and cast.
type ScriptWriter interface {
	GenerateScript(ctx context.Context, plot string, roster []types.Character, targetSeconds float64) (*script.Script, error)
	GenerateTitle(ctx context.Context, plot string) string
}

// SpeechSynthesizer renders one line into an audio file under dir.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, dir, text, voiceID string, settings *speech.VoiceSettings) (*speech.Result, error)
}

// MediaEngine is the compositing backend.
type MediaEngine interface {
	Probe(ctx context.Context, ref string) (*video.Metadata, error)
	ApplyOverlays(ctx context.Context, workDir, videoPath string, segments []types.VideoSegment) (string, error)
	MixAudio(ctx context.Context, workDir, videoPath string, segments []types.AudioSegment) (string, error)
	BurnSubtitles(ctx context.Context, workDir, videoPath, captionPath string, preset subtitles.Preset) (string, error)
	Finalize(ctx context.Context, inputPath, outputPath string, quality video.Quality) error
}

// ObjectStore keeps uploaded artifacts addressed by URL.
type ObjectStore interface {
	Put(ctx context.Context, data []byte, folder, filename, contentType string) (string, error)
	Get(ctx context.Context, objectURL string) ([]byte, error)
	Delete(ctx context.Context, objectURL string) error
}

// Notifier is told about compositions that reach a terminal state.
type Notifier interface {
	Publish(ctx context.Context, event types.CompositionEvent) error
}

// Deps are the collaborators of a Service. Notifier is optional.
type Deps struct {
	Store    store.Store
	Scripts  ScriptWriter
	Speech   SpeechSynthesizer
	Media    MediaEngine
	Objects  ObjectStore
	Notifier Notifier
}

// Options tune a Service.
type Options struct {
	// ProcessingDir holds one scratch directory per pipeline run.
	ProcessingDir string
	Quality       video.Quality
	Estimator     timing.Estimator
	Subtitles     subtitles.ASSOptions
}

// StartRequest asks for a new composition. Title and SubtitlePosition are optional.
type StartRequest struct {
	TemplateID       string
	Plot             string
	Title            string
	SubtitlePosition types.SubtitlePosition
}

// RegenerateRequest re-renders a composition from its stored speech.
// Delays overwrite line delays by index; nil keeps the stored ones.
type RegenerateRequest struct {
	Delays           []float64
	SubtitlePosition types.SubtitlePosition
}

// Service owns the background pipeline of every composition it starts.
type Service struct {
	store    store.Store
	scripts  ScriptWriter
	speech   SpeechSynthesizer
	media    MediaEngine
	objects  ObjectStore
	notifier Notifier
	opts     Options

	wg     sync.WaitGroup
	mu     sync.Mutex
	active map[string]struct{}
	now    func() time.Time
}

// New creates a Service.
func New(deps Deps, opts Options) (*Service, error) {
	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("orchestrator: record store is required")
	case deps.Scripts == nil:
		return nil, fmt.Errorf("orchestrator: script writer is required")
	case deps.Speech == nil:
		return nil, fmt.Errorf("orchestrator: speech synthesizer is required")
	case deps.Media == nil:
		return nil, fmt.Errorf("orchestrator: media engine is required")
	case deps.Objects == nil:
		return nil, fmt.Errorf("orchestrator: object store is required")
	}
	if opts.ProcessingDir == "" {
		opts.ProcessingDir = "processing"
	}
	if opts.Quality == "" {
		opts.Quality = video.QualityHigh
	}
	if opts.Estimator.WordsPerSecond <= 0 {
		opts.Estimator = timing.NewEstimator(0, timing.DefaultPause)
	}
	return &Service{
		store:    deps.Store,
		scripts:  deps.Scripts,
		speech:   deps.Speech,
		media:    deps.Media,
		objects:  deps.Objects,
		notifier: deps.Notifier,
		opts:     opts,
		active:   make(map[string]struct{}),
		now:      time.Now,
	}, nil
}

// StartComposition validates the request, records a pending composition and
// runs the pipeline in the background. The returned record is the initial state;
// progress is observed through GetComposition.
func (s *Service) StartComposition(ctx context.Context, req StartRequest) (*types.Composition, error) {
	req.TemplateID = strings.TrimSpace(req.TemplateID)
	req.Plot = strings.TrimSpace(req.Plot)
	if req.TemplateID == "" {
		return nil, common.NewValidationError("template_id is required")
	}
	if req.Plot == "" {
		return nil, common.NewValidationError("plot is required")
	}
	if req.SubtitlePosition != "" && !req.SubtitlePosition.Valid() {
		return nil, common.NewValidationError("invalid subtitle_position %q (want top, center or bottom)", req.SubtitlePosition)
	}

	tmpl, err := s.store.GetTemplate(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}
	if len(tmpl.Characters) == 0 {
		return nil, common.NewValidationError("template %s has no characters assigned", tmpl.ID)
	}
	for _, ch := range tmpl.Characters {
		if ch.VoiceID == "" || ch.ImageURL == "" {
			return nil, common.NewValidationError("character %s needs both a voice and an image", ch.Name)
		}
	}

	comp := &types.Composition{
		TemplateID:       tmpl.ID,
		Title:            strings.TrimSpace(req.Title),
		Plot:             req.Plot,
		SubtitlePosition: req.SubtitlePosition.OrDefault(),
		Status:           types.StatusPending,
	}
	if err := s.store.CreateComposition(ctx, comp); err != nil {
		return nil, fmt.Errorf("failed to create composition: %w", err)
	}
	s.claim(comp.ID)

	log.Printf("[composition %s] accepted for template %q with %d character(s)", comp.ID, tmpl.Name, len(tmpl.Characters))
	s.wg.Add(1)
	go s.run(comp.Clone(), tmpl)
	return comp.Clone(), nil
}

// GetComposition returns the current record.
func (s *Service) GetComposition(ctx context.Context, id string) (*types.Composition, error) {
	return s.store.GetComposition(ctx, id)
}

// ListCompositions returns recent compositions, newest first.
func (s *Service) ListCompositions(ctx context.Context, limit int) ([]types.Composition, error) {
	return s.store.ListCompositions(ctx, limit)
}

// Wait blocks until every background run has finished or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// claim marks id as owned by a background run. It returns false when a run
// already owns it.
func (s *Service) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.active[id]; busy {
		return false
	}
	s.active[id] = struct{}{}
	return true
}

func (s *Service) release(id string) {
	s.mu.Lock()
	delete(s.active, id)
	s.mu.Unlock()
}

func ptr[T any](v T) *T { return &v }
