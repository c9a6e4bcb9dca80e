package store

import (
	"context"
	"log"

	"skitbot/common"
	"skitbot/types"
)

// SeedAssets points the demo records at real media. Empty fields keep the
// placeholder values.
type SeedAssets struct {
	TemplateVideoURL string
	PeterImageURL    string
	StewieImageURL   string
	PeterVoiceID     string
	StewieVoiceID    string
}

// DemoCharacters returns the two demo characters.
func DemoCharacters(a SeedAssets) []types.Character {
	return []types.Character{
		{
			Name:        "stewie",
			DisplayName: "Stewie Griffin",
			VoiceID:     orDefault(a.StewieVoiceID, "stewie_voice_id"),
			ImageURL:    orDefault(a.StewieImageURL, "https://placeholder.com/stewie.png"),
			Position:    types.Position{X: 15, Y: 75, Scale: 0.25, Anchor: types.AnchorBottomLeft},
		},
		{
			Name:        "peter",
			DisplayName: "Peter Griffin",
			VoiceID:     orDefault(a.PeterVoiceID, "peter_voice_id"),
			ImageURL:    orDefault(a.PeterImageURL, "https://placeholder.com/peter.png"),
			Position:    types.Position{X: 85, Y: 75, Scale: 0.3, Anchor: types.AnchorBottomRight},
		},
	}
}

// DemoTemplate returns the gameplay template without its cast.
func DemoTemplate(a SeedAssets) types.Template {
	return types.Template{
		Name:        "Minecraft Parkour",
		Description: "Satisfying Minecraft parkour gameplay footage",
		VideoURL:    orDefault(a.TemplateVideoURL, "https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4"),
		Duration:    60,
		Dimensions:  types.Dimensions{Width: 1920, Height: 1080},
		FrameRate:   30,
	}
}

// Seed creates the demo characters and template if they are missing and
// returns the template. Running it twice leaves one copy of each record.
func Seed(ctx context.Context, s Store, a SeedAssets) (*types.Template, error) {
	cast := make([]types.Character, 0, 2)
	for _, ch := range DemoCharacters(a) {
		existing, err := s.GetCharacterByName(ctx, ch.Name)
		switch {
		case err == nil:
			log.Printf("[seed] character exists: %s", existing.DisplayName)
			cast = append(cast, *existing)
			continue
		case !common.IsNotFound(err):
			return nil, err
		}

		if err := s.CreateCharacter(ctx, &ch); err != nil {
			return nil, err
		}
		log.Printf("[seed] created character: %s (%s)", ch.DisplayName, ch.ID)
		cast = append(cast, ch)
	}

	tmpl := DemoTemplate(a)
	existing, err := s.GetTemplateByName(ctx, tmpl.Name)
	switch {
	case err == nil:
		existing.Characters = cast
		if err := s.SaveTemplate(ctx, existing); err != nil {
			return nil, err
		}
		log.Printf("[seed] template exists: %s (%s), cast refreshed", existing.Name, existing.ID)
		return existing, nil
	case !common.IsNotFound(err):
		return nil, err
	}

	tmpl.Characters = cast
	if err := s.SaveTemplate(ctx, &tmpl); err != nil {
		return nil, err
	}
	log.Printf("[seed] created template: %s (%s)", tmpl.Name, tmpl.ID)
	return &tmpl, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
