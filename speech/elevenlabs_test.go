package speech

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestElevenLabsSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/text-to-speech/voice123" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "secret" {
			t.Errorf("missing api key header")
		}
		var req ttsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.ModelID != DefaultElevenLabsModel || req.Text != "Hello there" || req.VoiceSettings != DefaultVoiceSettings {
			t.Errorf("unexpected body %+v", req)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3mp3data"))
	}))
	defer srv.Close()

	el, err := NewElevenLabs(ElevenLabsConfig{APIKey: "secret", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewElevenLabs: %v", err)
	}
	body, err := el.Synthesize(context.Background(), "Hello there", "voice123", DefaultVoiceSettings)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "ID3mp3data" {
		t.Fatalf("body = %q", data)
	}
}

func TestElevenLabsErrorCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`))
	}))
	defer srv.Close()

	el, _ := NewElevenLabs(ElevenLabsConfig{APIKey: "bad", BaseURL: srv.URL})
	_, err := el.Synthesize(context.Background(), "x", "v", DefaultVoiceSettings)
	if err == nil || !strings.Contains(err.Error(), "Invalid API key") || !strings.Contains(err.Error(), "401") {
		t.Fatalf("error = %v", err)
	}
}

func TestElevenLabsVoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voices" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"voices":[{"voice_id":"a1","name":"Peter"},{"voice_id":"b2","name":"Stewie"}]}`))
	}))
	defer srv.Close()

	el, _ := NewElevenLabs(ElevenLabsConfig{APIKey: "k", BaseURL: srv.URL})
	voices, err := el.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	if len(voices) != 2 || voices[1] != (Voice{ID: "b2", Name: "Stewie"}) {
		t.Fatalf("voices = %+v", voices)
	}
}

func TestNewElevenLabsRequiresKey(t *testing.T) {
	if _, err := NewElevenLabs(ElevenLabsConfig{}); err == nil {
		t.Fatalf("expected error for missing key")
	}
}
