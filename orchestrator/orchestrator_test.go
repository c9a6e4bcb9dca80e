package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"skitbot/common"
	"skitbot/config"
	"skitbot/script"
	"skitbot/speech"
	"skitbot/store"
	"skitbot/subtitles"
	"skitbot/types"
	"skitbot/video"
)

type fakeScripts struct {
	mu          sync.Mutex
	script      *script.Script
	err         error
	title       string
	scriptCalls int
	titleCalls  int
}

func (f *fakeScripts) GenerateScript(ctx context.Context, plot string, roster []types.Character, targetSeconds float64) (*script.Script, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scriptCalls++
	if f.err != nil {
		return nil, f.err
	}
	out := *f.script
	out.Lines = append([]script.Line(nil), f.script.Lines...)
	return &out, nil
}

func (f *fakeScripts) GenerateTitle(ctx context.Context, plot string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titleCalls++
	return f.title
}

type fakeSpeech struct {
	mu        sync.Mutex
	durations map[string]float64
	err       error
	voices    []string
}

func (f *fakeSpeech) Synthesize(ctx context.Context, dir, text, voiceID string, settings *speech.VoiceSettings) (*speech.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.voices = append(f.voices, voiceID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, fmt.Sprintf("speech_%d.mp3", len(f.voices)))
	if err := os.WriteFile(path, []byte("audio:"+text), 0o644); err != nil {
		return nil, err
	}
	d, ok := f.durations[text]
	if !ok {
		d = 1
	}
	return &speech.Result{Path: path, Duration: d}, nil
}

func (f *fakeSpeech) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.voices)
}

type fakeMedia struct {
	mu       sync.Mutex
	ops      []string
	overlays [][]types.VideoSegment
	mixes    [][]types.AudioSegment
	presets  []subtitles.Preset
	captions []string
	failOn   string
}

func (f *fakeMedia) record(op string) error {
	f.ops = append(f.ops, op)
	if f.failOn == op {
		return common.NewProviderError("ffmpeg", op, errors.New("exit status 1"))
	}
	return nil
}

func (f *fakeMedia) write(dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	return path, os.WriteFile(path, []byte(name), 0o644)
}

func (f *fakeMedia) Probe(ctx context.Context, ref string) (*video.Metadata, error) {
	return &video.Metadata{Width: 1080, Height: 1920, HasAudio: true}, nil
}

func (f *fakeMedia) ApplyOverlays(ctx context.Context, workDir, videoPath string, segments []types.VideoSegment) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overlays = append(f.overlays, segments)
	if err := f.record("overlay"); err != nil {
		return "", err
	}
	return f.write(workDir, "overlay.mp4")
}

func (f *fakeMedia) MixAudio(ctx context.Context, workDir, videoPath string, segments []types.AudioSegment) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, seg := range segments {
		if _, err := os.Stat(seg.AudioPath); err != nil {
			return "", fmt.Errorf("audio segment missing: %w", err)
		}
	}
	f.mixes = append(f.mixes, segments)
	if err := f.record("mix"); err != nil {
		return "", err
	}
	return f.write(workDir, "mixed.mp4")
}

func (f *fakeMedia) BurnSubtitles(ctx context.Context, workDir, videoPath, captionPath string, preset subtitles.Preset) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(captionPath)
	if err != nil {
		return "", err
	}
	f.captions = append(f.captions, string(data))
	f.presets = append(f.presets, preset)
	if err := f.record("subtitles"); err != nil {
		return "", err
	}
	return f.write(workDir, "subtitled.mp4")
}

func (f *fakeMedia) Finalize(ctx context.Context, inputPath, outputPath string, quality video.Quality) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("finalize:" + string(quality)); err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte("final video"), 0o644)
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	putErr  error
}

func newFakeObjects() *fakeObjects { return &fakeObjects{objects: map[string][]byte{}} }

func (f *fakeObjects) Put(ctx context.Context, data []byte, folder, filename, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	u := "mem://" + folder + "/" + filename
	f.objects[u] = append([]byte(nil), data...)
	return u, nil
}

func (f *fakeObjects) Get(ctx context.Context, objectURL string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[objectURL]
	if !ok {
		return nil, common.NewProviderError("s3", "get", errors.New("NoSuchKey"))
	}
	return data, nil
}

func (f *fakeObjects) Delete(ctx context.Context, objectURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, objectURL)
	delete(f.objects, objectURL)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []types.CompositionEvent
}

func (f *fakeNotifier) Publish(ctx context.Context, event types.CompositionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type harness struct {
	svc      *Service
	store    *store.MemoryStore
	scripts  *fakeScripts
	speech   *fakeSpeech
	media    *fakeMedia
	objects  *fakeObjects
	notifier *fakeNotifier
	tmpl     *types.Template
	workDir  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	h := &harness{
		store: store.NewMemoryStore(),
		scripts: &fakeScripts{script: &script.Script{
			Title: "Time Machine",
			Lines: []script.Line{
				{CharacterID: "", CharacterName: "stewie", Text: "I built a time machine.", Delay: 0},
				{CharacterID: "", CharacterName: "peter", Text: "Can it get beer?", Delay: 0.5},
			},
		}},
		speech:   &fakeSpeech{durations: map[string]float64{"I built a time machine.": 1.0, "Can it get beer?": 2.0}},
		media:    &fakeMedia{},
		objects:  newFakeObjects(),
		notifier: &fakeNotifier{},
		workDir:  t.TempDir(),
	}

	stewie := &types.Character{Name: "stewie", DisplayName: "Stewie Griffin", VoiceID: "v-stewie", ImageURL: "https://img/stewie.png",
		Position: types.Position{X: 15, Y: 75, Scale: 0.25, Anchor: types.AnchorBottomLeft}}
	peter := &types.Character{Name: "peter", DisplayName: "Peter Griffin", VoiceID: "v-peter", ImageURL: "https://img/peter.png"}
	for _, c := range []*types.Character{stewie, peter} {
		if err := h.store.CreateCharacter(ctx, c); err != nil {
			t.Fatalf("CreateCharacter error: %v", err)
		}
	}
	h.scripts.script.Lines[0].CharacterID = stewie.ID
	h.scripts.script.Lines[1].CharacterID = peter.ID

	h.tmpl = &types.Template{Name: "parkour", VideoURL: "https://videos/parkour.mp4", Duration: 30,
		Dimensions: types.Dimensions{Width: 1080, Height: 1920}, Characters: []types.Character{*stewie, *peter}}
	if err := h.store.SaveTemplate(ctx, h.tmpl); err != nil {
		t.Fatalf("SaveTemplate error: %v", err)
	}

	svc, err := New(Deps{
		Store:    h.store,
		Scripts:  h.scripts,
		Speech:   h.speech,
		Media:    h.media,
		Objects:  h.objects,
		Notifier: h.notifier,
	}, Options{ProcessingDir: h.workDir})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	h.svc = svc
	return h
}

func (h *harness) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.svc.Wait(ctx); err != nil {
		t.Fatalf("pipeline did not finish: %v", err)
	}
}

func (h *harness) start(t *testing.T, req StartRequest) *types.Composition {
	t.Helper()
	if req.TemplateID == "" {
		req.TemplateID = h.tmpl.ID
	}
	if req.Plot == "" {
		req.Plot = "stewie builds a time machine"
	}
	comp, err := h.svc.StartComposition(context.Background(), req)
	if err != nil {
		t.Fatalf("StartComposition error: %v", err)
	}
	h.wait(t)
	got, err := h.svc.GetComposition(context.Background(), comp.ID)
	if err != nil {
		t.Fatalf("GetComposition error: %v", err)
	}
	return got
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestStartCompositionEndToEnd(t *testing.T) {
	h := newHarness(t)
	comp := h.start(t, StartRequest{SubtitlePosition: types.SubtitleTop})

	if comp.Status != types.StatusCompleted {
		t.Fatalf("Status = %s (error %q); want completed", comp.Status, comp.Error)
	}
	if comp.Progress != 100 {
		t.Fatalf("Progress = %d; want 100", comp.Progress)
	}
	if comp.Title != "Time Machine" {
		t.Fatalf("Title = %q; want script title", comp.Title)
	}
	if len(comp.GeneratedScript) != 2 {
		t.Fatalf("len(GeneratedScript) = %d; want 2", len(comp.GeneratedScript))
	}

	// exact timing: start = cumulative delay + duration of earlier lines
	l0, l1 := comp.GeneratedScript[0], comp.GeneratedScript[1]
	if !approx(l0.StartTime, 0) || !approx(l0.Duration, 1.0) {
		t.Fatalf("line 0 = %+v; want start 0 duration 1", l0)
	}
	if !approx(l1.StartTime, 1.5) || !approx(l1.Duration, 2.0) {
		t.Fatalf("line 1 = %+v; want start 1.5 duration 2", l1)
	}
	for i, l := range comp.GeneratedScript {
		want := fmt.Sprintf("mem://audio/%s_line_%d.mp3", comp.ID, i)
		if l.SpeechURL != want {
			t.Fatalf("line %d SpeechURL = %q; want %q", i, l.SpeechURL, want)
		}
	}

	wantOps := []string{"overlay", "mix", "subtitles", "finalize:high"}
	if strings.Join(h.media.ops, ",") != strings.Join(wantOps, ",") {
		t.Fatalf("media ops = %v; want %v", h.media.ops, wantOps)
	}
	if len(h.media.overlays[0]) != 2 || len(h.media.mixes[0]) != 2 {
		t.Fatalf("segments = %d overlays, %d audio; want 2 each", len(h.media.overlays[0]), len(h.media.mixes[0]))
	}
	if seg := h.media.overlays[0][1]; seg.Position != types.DefaultPosition || !approx(seg.StartTime, 1.5) || !approx(seg.EndTime, 3.5) {
		t.Fatalf("peter overlay = %+v; want default position over [1.5, 3.5]", seg)
	}
	if h.media.presets[0].Alignment != 8 {
		t.Fatalf("burn-in alignment = %d; want top preset", h.media.presets[0].Alignment)
	}
	if !strings.Contains(h.media.captions[0], "PlayResX: 1080") {
		t.Fatalf("caption canvas not sized from template:\n%s", h.media.captions[0])
	}

	if !strings.HasPrefix(comp.OutputURL, "mem://compositions/time_machine_") || !strings.HasSuffix(comp.OutputURL, ".mp4") {
		t.Fatalf("OutputURL = %q", comp.OutputURL)
	}
	if want := "mem://subtitles/" + comp.ID + ".srt"; comp.SubtitlesURL != want {
		t.Fatalf("SubtitlesURL = %q; want %q", comp.SubtitlesURL, want)
	}
	srt := string(h.objects.objects[comp.SubtitlesURL])
	if !strings.HasPrefix(srt, "0\n00:00:00,000 --> 00:00:01,000\n") {
		t.Fatalf("SRT =\n%s", srt)
	}

	if len(h.notifier.events) != 1 || h.notifier.events[0].Status != types.StatusCompleted {
		t.Fatalf("events = %+v; want one completed event", h.notifier.events)
	}
	if voices := h.speech.voices; len(voices) != 2 || voices[0] != "v-stewie" || voices[1] != "v-peter" {
		t.Fatalf("voices = %v; want script order", voices)
	}

	entries, _ := os.ReadDir(h.workDir)
	if len(entries) != 0 {
		t.Fatalf("scratch dir not cleaned: %d entries left", len(entries))
	}
}

func TestStartCompositionValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	empty := &types.Template{Name: "empty", VideoURL: "https://videos/empty.mp4"}
	if err := h.store.SaveTemplate(ctx, empty); err != nil {
		t.Fatalf("SaveTemplate error: %v", err)
	}

	tests := []struct {
		name    string
		req     StartRequest
		checkFn func(error) bool
	}{
		{"no characters", StartRequest{TemplateID: empty.ID, Plot: "p"}, common.IsValidation},
		{"missing template", StartRequest{TemplateID: "nope", Plot: "p"}, common.IsNotFound},
		{"missing plot", StartRequest{TemplateID: h.tmpl.ID, Plot: "  "}, common.IsValidation},
		{"missing template id", StartRequest{Plot: "p"}, common.IsValidation},
		{"bad subtitle position", StartRequest{TemplateID: h.tmpl.ID, Plot: "p", SubtitlePosition: "left"}, common.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp, err := h.svc.StartComposition(ctx, tt.req)
			if err == nil || !tt.checkFn(err) {
				t.Fatalf("StartComposition = %v, %v; want rejection", comp, err)
			}
		})
	}

	list, _ := h.store.ListCompositions(ctx, 0)
	if len(list) != 0 {
		t.Fatalf("rejected requests created %d composition(s)", len(list))
	}
}

func TestStartCompositionReturnsPending(t *testing.T) {
	h := newHarness(t)
	comp, err := h.svc.StartComposition(context.Background(), StartRequest{TemplateID: h.tmpl.ID, Plot: "plot"})
	if err != nil {
		t.Fatalf("StartComposition error: %v", err)
	}
	h.wait(t)
	if comp.Status != types.StatusPending || comp.Progress != 0 || comp.ID == "" {
		t.Fatalf("initial record = %+v; want pending at 0", comp)
	}
	if comp.SubtitlePosition != types.SubtitleBottom {
		t.Fatalf("SubtitlePosition = %q; want bottom", comp.SubtitlePosition)
	}
}

func TestTitleFallback(t *testing.T) {
	h := newHarness(t)
	h.scripts.script.Title = ""
	h.scripts.title = "Backup Title"
	comp := h.start(t, StartRequest{})
	if comp.Title != "Backup Title" || h.scripts.titleCalls != 1 {
		t.Fatalf("Title = %q after %d title call(s); want generated fallback", comp.Title, h.scripts.titleCalls)
	}

	h2 := newHarness(t)
	comp = h2.start(t, StartRequest{Title: "Given"})
	if comp.Title != "Given" || h2.scripts.titleCalls != 0 {
		t.Fatalf("Title = %q; want caller title without generation", comp.Title)
	}
}

func TestFailureKeepsProgress(t *testing.T) {
	tests := []struct {
		name         string
		setup        func(h *harness)
		wantProgress int
		wantErr      string
	}{
		{
			name:         "script provider",
			setup:        func(h *harness) { h.scripts.err = common.NewProviderError("fake", "generate script", errors.New("quota exceeded")) },
			wantProgress: config.ProgressScriptStarted,
			wantErr:      "quota exceeded",
		},
		{
			name:         "speech provider",
			setup:        func(h *harness) { h.speech.err = common.NewProviderError("elevenlabs", "synthesize", errors.New("voice not found")) },
			wantProgress: config.ProgressScriptDone,
			wantErr:      "voice not found",
		},
		{
			name:         "audio mix",
			setup:        func(h *harness) { h.media.failOn = "mix" },
			wantProgress: config.ProgressOverlaysDone,
			wantErr:      "ffmpeg mix",
		},
		{
			name:         "upload",
			setup:        func(h *harness) { h.objects.putErr = errors.New("bucket gone") },
			wantProgress: config.ProgressScriptDone,
			wantErr:      "bucket gone",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.setup(h)
			comp := h.start(t, StartRequest{})
			if comp.Status != types.StatusFailed {
				t.Fatalf("Status = %s; want failed", comp.Status)
			}
			if comp.Progress != tt.wantProgress {
				t.Fatalf("Progress = %d; want %d", comp.Progress, tt.wantProgress)
			}
			if !strings.Contains(comp.Error, tt.wantErr) {
				t.Fatalf("Error = %q; want it to mention %q", comp.Error, tt.wantErr)
			}
			if comp.OutputURL != "" {
				t.Fatalf("OutputURL = %q on failure", comp.OutputURL)
			}
			if len(h.notifier.events) != 1 || h.notifier.events[0].Status != types.StatusFailed {
				t.Fatalf("events = %+v; want one failed event", h.notifier.events)
			}
			entries, _ := os.ReadDir(h.workDir)
			if len(entries) != 0 {
				t.Fatalf("scratch dir not cleaned after failure")
			}
		})
	}
}

func TestRegenerateRequiresSpeech(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	comp := &types.Composition{
		TemplateID: h.tmpl.ID,
		Plot:       "p",
		Status:     types.StatusFailed,
		Progress:   30,
		Error:      "boom",
		GeneratedScript: []types.DialogueLine{
			{CharacterID: "a", Text: "one", Duration: 1, SpeechURL: "mem://audio/x_line_0.mp3"},
			{CharacterID: "b", Text: "two", Duration: 1},
		},
	}
	if err := h.store.CreateComposition(ctx, comp); err != nil {
		t.Fatalf("CreateComposition error: %v", err)
	}

	if _, err := h.svc.Regenerate(ctx, comp.ID, RegenerateRequest{}); !common.IsValidation(err) {
		t.Fatalf("Regenerate error = %v; want validation error", err)
	}
	got, _ := h.store.GetComposition(ctx, comp.ID)
	if got.Status != types.StatusFailed || got.Progress != 30 || got.Error != "boom" {
		t.Fatalf("record changed by rejected regenerate: %+v", got)
	}

	if _, err := h.svc.Regenerate(ctx, "missing", RegenerateRequest{}); !common.IsNotFound(err) {
		t.Fatalf("Regenerate(missing) error = %v; want not found", err)
	}
}

func TestRegenerateWithoutDelaysKeepsTiming(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.start(t, StartRequest{})
	synthesized := h.speech.calls()

	updated, err := h.svc.Regenerate(ctx, first.ID, RegenerateRequest{})
	if err != nil {
		t.Fatalf("Regenerate error: %v", err)
	}
	if updated.Status != types.StatusCompositing || updated.Progress != config.ProgressRegenerateStart || updated.Error != "" {
		t.Fatalf("Regenerate returned %+v; want compositing at %d", updated, config.ProgressRegenerateStart)
	}
	h.wait(t)

	got, _ := h.store.GetComposition(ctx, first.ID)
	if got.Status != types.StatusCompleted {
		t.Fatalf("Status = %s (error %q); want completed", got.Status, got.Error)
	}
	for i := range got.GeneratedScript {
		if !approx(got.GeneratedScript[i].StartTime, first.GeneratedScript[i].StartTime) {
			t.Fatalf("line %d start moved from %v to %v", i, first.GeneratedScript[i].StartTime, got.GeneratedScript[i].StartTime)
		}
	}
	if h.speech.calls() != synthesized || h.scripts.scriptCalls != 1 {
		t.Fatalf("regenerate re-ran synthesis (%d calls) or scripting (%d calls)", h.speech.calls(), h.scripts.scriptCalls)
	}
	if !strings.Contains(got.OutputURL, "_regen_") || got.OutputURL == first.OutputURL {
		t.Fatalf("OutputURL = %q; want a fresh regen name", got.OutputURL)
	}
	if !strings.HasPrefix(got.SubtitlesURL, "mem://subtitles/"+first.ID+"_regen_") {
		t.Fatalf("SubtitlesURL = %q", got.SubtitlesURL)
	}
	deleted := strings.Join(h.objects.deleted, ",")
	if !strings.Contains(deleted, first.OutputURL) || !strings.Contains(deleted, first.SubtitlesURL) {
		t.Fatalf("deleted = %v; want previous artifacts removed", h.objects.deleted)
	}
}

func TestRegenerateWithPartialDelays(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.start(t, StartRequest{})

	if _, err := h.svc.Regenerate(ctx, first.ID, RegenerateRequest{Delays: []float64{1.0}, SubtitlePosition: types.SubtitleCenter}); err != nil {
		t.Fatalf("Regenerate error: %v", err)
	}
	h.wait(t)

	got, _ := h.store.GetComposition(ctx, first.ID)
	l0, l1 := got.GeneratedScript[0], got.GeneratedScript[1]
	if !approx(l0.Delay, 1.0) || !approx(l0.StartTime, 1.0) {
		t.Fatalf("line 0 = %+v; want delay and start 1.0", l0)
	}
	// second line keeps its 0.5 delay: 1.0 + 1.0 duration + 0.5
	if !approx(l1.Delay, 0.5) || !approx(l1.StartTime, 2.5) {
		t.Fatalf("line 1 = %+v; want delay 0.5 start 2.5", l1)
	}
	if got.SubtitlePosition != types.SubtitleCenter {
		t.Fatalf("SubtitlePosition = %q; want center", got.SubtitlePosition)
	}
	if last := h.media.presets[len(h.media.presets)-1]; last.Alignment != 5 {
		t.Fatalf("burn-in alignment = %d; want center preset", last.Alignment)
	}
	mix := h.media.mixes[len(h.media.mixes)-1]
	if !approx(mix[1].StartTime, 2.5) {
		t.Fatalf("mixed line 1 start = %v; want 2.5", mix[1].StartTime)
	}
}

func TestRegenerateRejectsActiveComposition(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.start(t, StartRequest{})
	opsBefore := len(h.media.ops)

	// Another run owns the composition.
	if !h.svc.claim(first.ID) {
		t.Fatalf("claim on a finished composition failed")
	}
	_, err := h.svc.Regenerate(ctx, first.ID, RegenerateRequest{Delays: []float64{2}})
	if !common.IsValidation(err) || !strings.Contains(err.Error(), "already being processed") {
		t.Fatalf("Regenerate while owned error = %v; want validation", err)
	}

	got, _ := h.store.GetComposition(ctx, first.ID)
	if got.Status != types.StatusCompleted || got.Progress != 100 || got.OutputURL != first.OutputURL {
		t.Fatalf("composition = %s %d%% %q; want untouched completed record", got.Status, got.Progress, got.OutputURL)
	}
	if len(h.media.ops) != opsBefore {
		t.Fatalf("media ops = %v; want no work for a rejected regenerate", h.media.ops[opsBefore:])
	}

	h.svc.release(first.ID)
	if _, err := h.svc.Regenerate(ctx, first.ID, RegenerateRequest{}); err != nil {
		t.Fatalf("Regenerate after release error: %v", err)
	}
	h.wait(t)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Time Machine!", "time_machine"},
		{"  ", "composition"},
		{"Ünïcode - Test", "n_code_test"},
		{strings.Repeat("a", 80), strings.Repeat("a", 50)},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Fatalf("slugify(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}
