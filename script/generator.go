package script

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"

	"skitbot/common"
	"skitbot/config"
	"skitbot/types"

	"github.com/invopop/jsonschema"
)

// Line is one generated dialogue line resolved against the roster.
type Line struct {
	CharacterID   string
	CharacterName string
	Text          string
	Delay         float64
}

// Script is a generated dialogue.
type Script struct {
	Title string
	Lines []Line
}

type rawLine struct {
	CharacterName string  `json:"characterName" jsonschema_description:"The name of the speaking character, exactly as listed"`
	Text          string  `json:"text" jsonschema_description:"What the character says, under 15 words"`
	Delay         float64 `json:"delay" jsonschema_description:"Seconds of pause before this line; 0 for the first line"`
}

type rawScript struct {
	Title     string    `json:"title" jsonschema_description:"A short, catchy title for the video"`
	Dialogues []rawLine `json:"dialogues" jsonschema_description:"The dialogue lines in speaking order"`
}

func generateSchema[T any]() interface{} {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

var scriptSchema = generateSchema[rawScript]()

// Generator writes dialogue scripts through a Completer.
type Generator struct {
	completer Completer
}

// NewGenerator creates a Generator.
func NewGenerator(completer Completer) *Generator {
	return &Generator{completer: completer}
}

// GenerateScript asks the model for a dialogue about plot spoken by roster.
// Every returned speaker must resolve to a roster entry, otherwise the whole
// script is rejected.
func (g *Generator) GenerateScript(ctx context.Context, plot string, roster []types.Character, targetSeconds float64) (*Script, error) {
	if len(roster) == 0 {
		return nil, common.NewValidationError("no characters available for script")
	}
	if targetSeconds <= 0 {
		targetSeconds = config.DefaultTargetDuration
	}

	schemaJSON, _ := json.Marshal(scriptSchema)
	prompt := buildScriptPrompt(plot, roster, targetSeconds, string(schemaJSON))
	provider := g.completer.Name()

	text, err := g.completer.Complete(ctx, Request{Prompt: prompt, SchemaName: "dialogue_script", Schema: scriptSchema})
	if err != nil {
		return nil, common.NewProviderError(provider, "generate script", err)
	}

	block, ok := ExtractJSONObject(text)
	if !ok {
		return nil, common.NewProviderError(provider, "generate script", fmt.Errorf("no JSON object in response"))
	}
	var raw rawScript
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return nil, common.NewProviderError(provider, "generate script", fmt.Errorf("failed to parse script JSON: %w", err))
	}
	if len(raw.Dialogues) == 0 {
		return nil, common.NewProviderError(provider, "generate script", fmt.Errorf("script contains no dialogue"))
	}

	script := &Script{Title: strings.TrimSpace(raw.Title), Lines: make([]Line, 0, len(raw.Dialogues))}
	for i, d := range raw.Dialogues {
		ch, ok := ResolveCharacter(d.CharacterName, roster)
		if !ok {
			return nil, common.NewProviderError(provider, "generate script",
				fmt.Errorf("line %d uses unknown character %q", i, d.CharacterName))
		}
		text := strings.TrimSpace(d.Text)
		if text == "" {
			return nil, common.NewProviderError(provider, "generate script", fmt.Errorf("line %d is empty", i))
		}
		script.Lines = append(script.Lines, Line{
			CharacterID:   ch.ID,
			CharacterName: ch.Name,
			Text:          text,
			Delay:         clampDelay(d.Delay),
		})
	}

	log.Printf("[script] generated %d dialogue lines via %s", len(script.Lines), provider)
	return script, nil
}

// GenerateTitle returns a short title for plot, or the fallback title on any failure.
func (g *Generator) GenerateTitle(ctx context.Context, plot string) string {
	prompt := fmt.Sprintf("Generate a short, catchy video title (max %d words) for this content: %q. Return only the title, no quotes or explanation.",
		config.MaxTitleWords, plot)
	text, err := g.completer.Complete(ctx, Request{Prompt: prompt})
	if err != nil {
		log.Printf("[script] title generation failed: %v", err)
		return config.FallbackTitle
	}
	title := cleanTitle(text)
	if title == "" {
		return config.FallbackTitle
	}
	return title
}

func cleanTitle(text string) string {
	title := strings.TrimSpace(strings.SplitN(strings.TrimSpace(text), "\n", 2)[0])
	title = strings.Trim(title, "\"'`“”‘’ ")
	words := strings.Fields(title)
	if len(words) > config.MaxTitleWords {
		words = words[:config.MaxTitleWords]
	}
	return strings.Join(words, " ")
}

func clampDelay(d float64) float64 {
	if math.IsNaN(d) || d < 0 {
		return 0
	}
	return math.Min(d, config.MaxLineDelay)
}

// ResolveCharacter matches a model-returned speaker name to the roster.
// A case-insensitive exact match on name or display name wins; otherwise the
// first character whose display name contains (or is contained in) the
// returned name, or whose name is contained in the returned name, is used.
func ResolveCharacter(name string, roster []types.Character) (types.Character, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return types.Character{}, false
	}
	for _, c := range roster {
		if strings.ToLower(c.Name) == n || (c.DisplayName != "" && strings.ToLower(c.DisplayName) == n) {
			return c, true
		}
	}
	for _, c := range roster {
		display := strings.ToLower(c.DisplayName)
		short := strings.ToLower(c.Name)
		if display != "" && (strings.Contains(display, n) || strings.Contains(n, display)) {
			return c, true
		}
		if short != "" && strings.Contains(n, short) {
			return c, true
		}
	}
	return types.Character{}, false
}

func buildScriptPrompt(plot string, roster []types.Character, targetSeconds float64, schema string) string {
	var cast strings.Builder
	for _, c := range roster {
		display := c.DisplayName
		if display == "" {
			display = c.Name
		}
		fmt.Fprintf(&cast, "- %s (%s)\n", c.Name, display)
	}

	return fmt.Sprintf(`You are a script writer for short-form video content. Write a dialogue script based on the following.

Plot: %s

Characters (use the name before the parentheses as characterName):
%s
Target length: about %.0f seconds of speech.

Rules:
- Create %d-%d dialogue lines total
- Keep each line SHORT (under %d words) so it is easy to listen to
- Only use the characters listed above
- Make it entertaining, with a clear back-and-forth
- Give each line a natural pause before it, in seconds:
  * 0.1-0.3 for quick replies and interruptions
  * 0.3-0.6 for normal conversation
  * 0.6-1.0 for thoughtful or surprised reactions
  * 1.0-1.5 for dramatic pauses
  * The first line has delay 0

Respond with only a JSON object matching this schema:
%s

Example:
{
  "title": "Video title",
  "dialogues": [
    { "characterName": "%s", "text": "What they say", "delay": 0 },
    { "characterName": "%s", "text": "Their response", "delay": 0.4 }
  ]
}`,
		plot, cast.String(), targetSeconds,
		config.MinScriptLines, config.MaxScriptLines, config.MaxWordsPerLine,
		schema, roster[0].Name, roster[len(roster)-1].Name)
}
