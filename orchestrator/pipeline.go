package orchestrator

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"skitbot/common"
	"skitbot/config"
	"skitbot/subtitles"
	"skitbot/timing"
	"skitbot/types"
	"skitbot/video"

	"github.com/google/uuid"
)

// run is the background unit of work for a new composition. It never returns
// an error; the outcome is written to the record.
func (s *Service) run(comp *types.Composition, tmpl *types.Template) {
	defer s.wg.Done()
	defer s.release(comp.ID)

	ctx := context.Background()
	workDir, err := s.makeWorkDir(comp.ID)
	if err != nil {
		s.fail(ctx, comp.ID, err)
		return
	}
	defer s.cleanup(comp.ID, workDir)

	if err := s.generate(ctx, comp, tmpl, workDir); err != nil {
		s.fail(ctx, comp.ID, err)
	}
}

func (s *Service) generate(ctx context.Context, comp *types.Composition, tmpl *types.Template, workDir string) error {
	if err := s.advance(ctx, comp.ID, types.StatusGeneratingScript, config.ProgressScriptStarted); err != nil {
		return err
	}

	target := tmpl.Duration
	if target <= 0 {
		target = config.DefaultTargetDuration
	}
	generated, err := s.scripts.GenerateScript(ctx, comp.Plot, tmpl.Characters, target)
	if err != nil {
		return err
	}

	title := comp.Title
	if title == "" {
		title = generated.Title
	}
	if title == "" {
		title = s.scripts.GenerateTitle(ctx, comp.Plot)
	}
	comp.Title = title

	lines := make([]types.DialogueLine, len(generated.Lines))
	for i, l := range generated.Lines {
		lines[i] = types.DialogueLine{CharacterID: l.CharacterID, Text: l.Text, Delay: l.Delay}
	}
	s.opts.Estimator.Estimate(lines)
	if _, err := s.store.UpdateComposition(ctx, comp.ID, types.CompositionUpdate{
		Title:           ptr(title),
		GeneratedScript: lines,
		Progress:        ptr(config.ProgressScriptDone),
	}); err != nil {
		return err
	}
	log.Printf("[composition %s] script ready: %q, %d line(s)", comp.ID, title, len(lines))

	audioPaths, err := s.synthesizeLines(ctx, comp.ID, tmpl, lines, workDir)
	if err != nil {
		return err
	}

	return s.composite(ctx, comp, tmpl, lines, audioPaths, workDir, "")
}

// synthesizeLines renders every line in script order, uploads the speech for
// later regeneration and settles exact timing once all durations are known.
func (s *Service) synthesizeLines(ctx context.Context, id string, tmpl *types.Template, lines []types.DialogueLine, workDir string) ([]string, error) {
	if err := s.advance(ctx, id, types.StatusGeneratingAudio, config.ProgressScriptDone); err != nil {
		return nil, err
	}

	cast := castByID(tmpl.Characters)
	audioDir := filepath.Join(workDir, "audio")
	paths := make([]string, len(lines))
	for i := range lines {
		ch, ok := cast[lines[i].CharacterID]
		if !ok {
			return nil, fmt.Errorf("line %d references character %s which is not in template %s", i, lines[i].CharacterID, tmpl.ID)
		}

		res, err := s.speech.Synthesize(ctx, audioDir, lines[i].Text, ch.VoiceID, nil)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(res.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read speech for line %d: %w", i, err)
		}
		speechURL, err := s.objects.Put(ctx, data, config.FolderAudio, fmt.Sprintf("%s_line_%d.mp3", id, i), "audio/mpeg")
		if err != nil {
			return nil, err
		}

		lines[i].Duration = res.Duration
		lines[i].SpeechURL = speechURL
		paths[i] = res.Path

		progress := config.ProgressScriptDone + (config.ProgressAudioDone-config.ProgressScriptDone)*(i+1)/len(lines)
		if _, err := s.store.UpdateComposition(ctx, id, types.CompositionUpdate{
			GeneratedScript: lines,
			Progress:        ptr(progress),
		}); err != nil {
			return nil, err
		}
		log.Printf("[composition %s] line %d/%d voiced by %s (%.2fs, cached=%t)", id, i+1, len(lines), ch.Name, res.Duration, res.Cached)
	}

	timing.Recompute(lines)
	if _, err := s.store.UpdateComposition(ctx, id, types.CompositionUpdate{GeneratedScript: lines}); err != nil {
		return nil, err
	}
	return paths, nil
}

// composite runs overlay, audio mix, captions, finalize and upload. suffix is
// appended to output names so regenerated artifacts never reuse old keys.
func (s *Service) composite(ctx context.Context, comp *types.Composition, tmpl *types.Template, lines []types.DialogueLine, audioPaths []string, workDir, suffix string) error {
	id := comp.ID
	if err := s.advance(ctx, id, types.StatusCompositing, config.ProgressAudioDone); err != nil {
		return err
	}

	overlaid, err := s.media.ApplyOverlays(ctx, workDir, tmpl.VideoURL, videoSegments(lines, tmpl.Characters))
	if err != nil {
		return err
	}
	if err := s.progress(ctx, id, config.ProgressOverlaysDone); err != nil {
		return err
	}

	mixed, err := s.media.MixAudio(ctx, workDir, overlaid, audioSegments(lines, audioPaths))
	if err != nil {
		return err
	}
	if err := s.progress(ctx, id, config.ProgressAudioMixed); err != nil {
		return err
	}

	if err := s.advance(ctx, id, types.StatusAddingSubtitles, config.ProgressAudioMixed); err != nil {
		return err
	}
	cues := subtitles.Cues(lines)
	preset := subtitles.PresetFor(comp.SubtitlePosition)
	assPath := filepath.Join(workDir, "captions.ass")
	if err := os.WriteFile(assPath, []byte(subtitles.ASS(cues, preset, s.assOptions(ctx, tmpl))), 0o644); err != nil {
		return fmt.Errorf("failed to write caption file: %w", err)
	}
	subtitled, err := s.media.BurnSubtitles(ctx, workDir, mixed, assPath, preset)
	if err != nil {
		return err
	}
	if err := s.progress(ctx, id, config.ProgressSubtitlesDone); err != nil {
		return err
	}

	if err := s.advance(ctx, id, types.StatusUploading, config.ProgressUploading); err != nil {
		return err
	}
	finalPath := filepath.Join(workDir, "final.mp4")
	if err := s.media.Finalize(ctx, subtitled, finalPath, s.opts.Quality); err != nil {
		return err
	}
	data, err := os.ReadFile(finalPath)
	if err != nil {
		return fmt.Errorf("failed to read final video: %w", err)
	}
	outputURL, err := s.objects.Put(ctx, data, config.FolderCompositions, s.videoFilename(comp.Title, suffix), "video/mp4")
	if err != nil {
		return err
	}
	subtitlesURL, err := s.objects.Put(ctx, []byte(subtitles.SRT(cues)), config.FolderSubtitles, withSuffix(id, suffix)+".srt", "text/plain")
	if err != nil {
		return err
	}

	done, err := s.store.UpdateComposition(ctx, id, types.CompositionUpdate{
		Status:       ptr(types.StatusCompleted),
		Progress:     ptr(config.ProgressCompleted),
		OutputURL:    ptr(outputURL),
		SubtitlesURL: ptr(subtitlesURL),
		Error:        ptr(""),
	})
	if err != nil {
		return err
	}
	log.Printf("[composition %s] ✅ completed: %s", id, outputURL)
	s.notify(ctx, done)
	return nil
}

// assOptions sizes the caption canvas from the template, probing the video
// when the template carries no dimensions.
func (s *Service) assOptions(ctx context.Context, tmpl *types.Template) subtitles.ASSOptions {
	opts := s.opts.Subtitles
	opts.Width, opts.Height = tmpl.Dimensions.Width, tmpl.Dimensions.Height
	if opts.Width > 0 && opts.Height > 0 {
		return opts
	}
	if meta, err := s.media.Probe(ctx, tmpl.VideoURL); err == nil {
		opts.Width, opts.Height = meta.Width, meta.Height
	}
	return opts
}

func (s *Service) advance(ctx context.Context, id string, status types.CompositionStatus, progress int) error {
	_, err := s.store.UpdateComposition(ctx, id, types.CompositionUpdate{Status: ptr(status), Progress: ptr(progress)})
	if err == nil {
		log.Printf("[composition %s] %s (%d%%)", id, status, progress)
	}
	return err
}

func (s *Service) progress(ctx context.Context, id string, progress int) error {
	_, err := s.store.UpdateComposition(ctx, id, types.CompositionUpdate{Progress: ptr(progress)})
	return err
}

// fail records err on the composition. Progress is left where the run stopped.
func (s *Service) fail(ctx context.Context, id string, err error) {
	msg := common.ErrorMessage(err)
	log.Printf("[composition %s] ❌ failed: %s", id, msg)
	comp, uerr := s.store.UpdateComposition(ctx, id, types.CompositionUpdate{
		Status: ptr(types.StatusFailed),
		Error:  ptr(msg),
	})
	if uerr != nil {
		log.Printf("[composition %s] could not record failure: %v", id, uerr)
		return
	}
	s.notify(ctx, comp)
}

func (s *Service) notify(ctx context.Context, comp *types.Composition) {
	if s.notifier == nil || comp == nil {
		return
	}
	event := types.CompositionEvent{
		ID:           comp.ID,
		Status:       comp.Status,
		Progress:     comp.Progress,
		OutputURL:    comp.OutputURL,
		SubtitlesURL: comp.SubtitlesURL,
		Error:        comp.Error,
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		log.Printf("[composition %s] failed to publish %s event: %v", comp.ID, comp.Status, err)
	}
}

func (s *Service) makeWorkDir(id string) (string, error) {
	dir := filepath.Join(s.opts.ProcessingDir, fmt.Sprintf("%s_%d", id, s.now().UnixMilli()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create processing dir: %w", err)
	}
	return dir, nil
}

func (s *Service) cleanup(id, dir string) {
	if err := os.RemoveAll(dir); err != nil {
		log.Printf("[composition %s] failed to remove scratch dir %s: %v", id, dir, err)
	}
}

func castByID(chars []types.Character) map[string]types.Character {
	m := make(map[string]types.Character, len(chars))
	for _, c := range chars {
		m[c.ID] = c
	}
	return m
}

// videoSegments shows each speaker's image for the duration of their line.
func videoSegments(lines []types.DialogueLine, roster []types.Character) []types.VideoSegment {
	cast := castByID(roster)
	segs := make([]types.VideoSegment, 0, len(lines))
	for _, l := range lines {
		ch := cast[l.CharacterID]
		segs = append(segs, types.VideoSegment{
			CharacterID: l.CharacterID,
			ImagePath:   ch.ImageURL,
			Position:    ch.Placement(),
			StartTime:   l.StartTime,
			EndTime:     l.StartTime + l.Duration,
		})
	}
	return segs
}

func audioSegments(lines []types.DialogueLine, paths []string) []types.AudioSegment {
	segs := make([]types.AudioSegment, 0, len(lines))
	for i, l := range lines {
		segs = append(segs, types.AudioSegment{
			CharacterID: l.CharacterID,
			Text:        l.Text,
			AudioPath:   paths[i],
			StartTime:   l.StartTime,
			Duration:    l.Duration,
		})
	}
	return segs
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases title and keeps only ASCII letters and digits joined by underscores.
func slugify(title string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "_"), "_")
	if len(slug) > 50 {
		slug = strings.TrimRight(slug[:50], "_")
	}
	if slug == "" {
		return "composition"
	}
	return slug
}

func withSuffix(name, suffix string) string {
	if suffix == "" {
		return name
	}
	return name + "_" + suffix
}

func (s *Service) videoFilename(title, suffix string) string {
	return fmt.Sprintf("%s_%d_%s.mp4", withSuffix(slugify(title), suffix), s.now().UnixMilli(), uuid.NewString()[:8])
}

var _ MediaEngine = (*video.Compositor)(nil)
