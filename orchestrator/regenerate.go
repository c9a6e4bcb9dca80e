package orchestrator

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"skitbot/common"
	"skitbot/config"
	"skitbot/timing"
	"skitbot/types"
)

// Regenerate re-renders a composition from the speech stored by an earlier
// run, optionally with new line delays and caption position. Script writing
// and speech synthesis are not repeated. Requests for compositions without
// stored speech, or with a run still in flight, are rejected before any change.
func (s *Service) Regenerate(ctx context.Context, id string, req RegenerateRequest) (*types.Composition, error) {
	if req.SubtitlePosition != "" && !req.SubtitlePosition.Valid() {
		return nil, common.NewValidationError("invalid subtitle_position %q (want top, center or bottom)", req.SubtitlePosition)
	}

	comp, err := s.store.GetComposition(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(comp.GeneratedScript) == 0 {
		return nil, common.NewValidationError("composition %s has no script to regenerate from", id)
	}
	for i, line := range comp.GeneratedScript {
		if line.SpeechURL == "" {
			return nil, common.NewValidationError("composition %s is missing speech files (line %d has none); generate it again instead", id, i)
		}
	}

	tmpl, err := s.store.GetTemplate(ctx, comp.TemplateID)
	if err != nil {
		return nil, err
	}

	if !s.claim(id) {
		return nil, common.NewValidationError("composition %s is already being processed", id)
	}

	lines := comp.Clone().GeneratedScript
	timing.ApplyDelays(lines, req.Delays)
	timing.Recompute(lines)

	position := comp.SubtitlePosition.OrDefault()
	if req.SubtitlePosition != "" {
		position = req.SubtitlePosition
	}
	previous := []string{comp.OutputURL, comp.SubtitlesURL}

	updated, err := s.store.UpdateComposition(ctx, id, types.CompositionUpdate{
		SubtitlePosition: ptr(position),
		GeneratedScript:  lines,
		Status:           ptr(types.StatusCompositing),
		Progress:         ptr(config.ProgressRegenerateStart),
		OutputURL:        ptr(""),
		SubtitlesURL:     ptr(""),
		Error:            ptr(""),
	})
	if err != nil {
		s.release(id)
		return nil, err
	}

	log.Printf("[composition %s] regenerating %d line(s) with subtitles at %s", id, len(lines), position)
	s.wg.Add(1)
	go s.rerun(updated.Clone(), tmpl, previous)
	return updated, nil
}

func (s *Service) rerun(comp *types.Composition, tmpl *types.Template, previous []string) {
	defer s.wg.Done()
	defer s.release(comp.ID)

	ctx := context.Background()
	for _, u := range previous {
		if u == "" {
			continue
		}
		if err := s.objects.Delete(ctx, u); err != nil {
			log.Printf("[composition %s] could not delete previous artifact %s: %v", comp.ID, u, err)
		}
	}

	workDir, err := s.makeWorkDir(comp.ID)
	if err != nil {
		s.fail(ctx, comp.ID, err)
		return
	}
	defer s.cleanup(comp.ID, workDir)

	paths, err := s.fetchSpeech(ctx, comp, workDir)
	if err != nil {
		s.fail(ctx, comp.ID, err)
		return
	}

	suffix := fmt.Sprintf("regen_%d", s.now().Unix())
	if err := s.composite(ctx, comp, tmpl, comp.GeneratedScript, paths, workDir, suffix); err != nil {
		s.fail(ctx, comp.ID, err)
	}
}

// fetchSpeech downloads the stored audio of every line into workDir.
func (s *Service) fetchSpeech(ctx context.Context, comp *types.Composition, workDir string) ([]string, error) {
	dir := filepath.Join(workDir, "audio")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audio dir: %w", err)
	}
	paths := make([]string, len(comp.GeneratedScript))
	for i, line := range comp.GeneratedScript {
		data, err := s.objects.Get(ctx, line.SpeechURL)
		if err != nil {
			return nil, err
		}
		paths[i] = filepath.Join(dir, fmt.Sprintf("line_%d.mp3", i))
		if err := os.WriteFile(paths[i], data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write speech for line %d: %w", i, err)
		}
	}
	return paths, nil
}
