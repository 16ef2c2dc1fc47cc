package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/reminisce-ai/reminisce/internal/domain"
)

// ─── Gemini multimodal text generation ──────────────────────────────────────

// GeminiConfig configures the Gemini REST client shared by the story adapter
// and the soundscape caption stage.
type GeminiConfig struct {
	APIKey  string
	BaseURL string        // default https://generativelanguage.googleapis.com
	Model   string        // default gemini-1.5-flash
	Timeout time.Duration // default 60s
}

// DefaultGeminiConfig returns production defaults (API key still required).
func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{
		BaseURL: "https://generativelanguage.googleapis.com",
		Model:   "gemini-1.5-flash",
		Timeout: 60 * time.Second,
	}
}

// Gemini is a minimal generateContent client: one prompt plus one inline
// image in, text out.
type Gemini struct {
	cfg    GeminiConfig
	client *http.Client
}

// NewGemini creates the client. An empty API key is a valid, reportable
// unconfigured state.
func NewGemini(cfg GeminiConfig) *Gemini {
	def := DefaultGeminiConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	return &Gemini{cfg: cfg, client: &http.Client{}}
}

// Configured reports whether an API key is present.
func (g *Gemini) Configured() bool { return g.cfg.APIKey != "" }

// Describe sends the prompt and image to the model and returns the
// generated text.
func (g *Gemini) Describe(ctx context.Context, prompt string, imageBytes []byte) (string, error) {
	if !g.Configured() {
		return "", Errf(KindUnconfigured, "text generation is not configured; a Google API key is required")
	}

	mime := http.DetectContentType(imageBytes)
	if !strings.HasPrefix(mime, "image/") {
		return "", Errf(KindBadInput, "payload is not a recognizable image (detected %s)", mime)
	}

	payload := map[string]any{
		"contents": []map[string]any{{
			"parts": []map[string]any{
				{"text": prompt},
				{"inline_data": map[string]string{
					"mime_type": mime,
					"data":      base64.StdEncoding.EncodeToString(imageBytes),
				}},
			},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", Errf(KindUnavailable, "build request: %v", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.cfg.BaseURL, g.cfg.Model, g.cfg.APIKey)
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", Errf(KindUnavailable, "build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyTransport(err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &Error{Kind: KindRejected, Status: resp.StatusCode, Detail: rejectionMessage(raw)}
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Candidates) == 0 {
		return "", Errf(KindRejected, "provider returned an unreadable response")
	}
	var sb strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", Errf(KindRejected, "provider returned an empty result")
	}
	return text, nil
}

// ─── Story adapter ──────────────────────────────────────────────────────────

// DefaultStoryPrompt is the narrative template sent with the photograph.
const DefaultStoryPrompt = "Look at this old family photograph. You are someone " +
	"living inside that moment, or a spirit quietly observing it. Write a short, " +
	"nostalgic, emotional story. Imagine the feelings of the people, the " +
	"atmosphere of the place, the words left unspoken. Guess the era from the " +
	"clothes, the setting and the quality of the photograph (the 70s, the 80s) " +
	"and weave that detail into the story. Keep it warm and touching."

// Story generates a narrative for a photograph via Gemini.
type Story struct {
	gemini *Gemini
	prompt string
}

// NewStory creates the story adapter. An empty prompt selects the default
// narrative template.
func NewStory(gemini *Gemini, prompt string) *Story {
	if prompt == "" {
		prompt = DefaultStoryPrompt
	}
	return &Story{gemini: gemini, prompt: prompt}
}

// Kind implements domain.Adapter.
func (s *Story) Kind() domain.GenerationKind { return domain.KindStory }

// Execute implements domain.Adapter.
func (s *Story) Execute(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	text, err := s.gemini.Describe(ctx, s.prompt, req.Image)
	if err != nil {
		return nil, err
	}
	return &domain.GenerationResult{Kind: domain.KindStory, Story: text}, nil
}

var _ domain.Adapter = (*Story)(nil)
