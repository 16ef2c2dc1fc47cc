package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/reminisce-ai/reminisce/internal/domain"
)

// ─── Stability AI image-to-image ────────────────────────────────────────────

// StabilityConfig configures the image-restyle adapter. Prompt template and
// diffusion parameters are configuration, not hard-coded literals.
type StabilityConfig struct {
	APIKey         string
	BaseURL        string        // default https://api.stability.ai
	Engine         string        // default stable-diffusion-v1-6
	PromptTemplate string        // %s is replaced with the caller's style text
	ImageStrength  float64       // default 0.5
	CFGScale       int           // default 7
	Steps          int           // default 30
	MaxEdge        int           // downsample bound, default 1536
	Timeout        time.Duration // default 90s
}

// DefaultStabilityConfig returns production defaults (API key still required).
func DefaultStabilityConfig() StabilityConfig {
	return StabilityConfig{
		BaseURL:        "https://api.stability.ai",
		Engine:         "stable-diffusion-v1-6",
		PromptTemplate: "A photo in the artistic style of %s, high quality, detailed.",
		ImageStrength:  0.5,
		CFGScale:       7,
		Steps:          30,
		MaxEdge:        DefaultMaxEdge,
		Timeout:        90 * time.Second,
	}
}

// Stability restyles a photograph via the Stability AI image-to-image API.
type Stability struct {
	cfg    StabilityConfig
	client *http.Client
}

// NewStability creates the image-restyle adapter. An empty API key yields a
// constructible "unconfigured" adapter that fails without attempting I/O.
func NewStability(cfg StabilityConfig) *Stability {
	def := DefaultStabilityConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Engine == "" {
		cfg.Engine = def.Engine
	}
	if cfg.PromptTemplate == "" {
		cfg.PromptTemplate = def.PromptTemplate
	}
	if cfg.ImageStrength == 0 {
		cfg.ImageStrength = def.ImageStrength
	}
	if cfg.CFGScale == 0 {
		cfg.CFGScale = def.CFGScale
	}
	if cfg.Steps == 0 {
		cfg.Steps = def.Steps
	}
	if cfg.MaxEdge == 0 {
		cfg.MaxEdge = def.MaxEdge
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	return &Stability{cfg: cfg, client: &http.Client{}}
}

// Kind implements domain.Adapter.
func (s *Stability) Kind() domain.GenerationKind { return domain.KindRestyleImage }

// Execute sends the photo and style text to the image-to-image endpoint and
// returns the re-rendered image bytes.
func (s *Stability) Execute(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	if s.cfg.APIKey == "" {
		return nil, Errf(KindUnconfigured, "image restyling is not configured; a Stability AI API key is required")
	}

	imageBytes, err := Downsample(req.Image, s.cfg.MaxEdge)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("init_image", "init_image.png")
	if err != nil {
		return nil, Errf(KindUnavailable, "build request: %v", err)
	}
	if _, err := fw.Write(imageBytes); err != nil {
		return nil, Errf(KindUnavailable, "build request: %v", err)
	}
	fields := map[string]string{
		"image_strength":          strconv.FormatFloat(s.cfg.ImageStrength, 'f', -1, 64),
		"init_image_mode":         "IMAGE_STRENGTH",
		"text_prompts[0][text]":   fmt.Sprintf(s.cfg.PromptTemplate, req.StylePrompt),
		"text_prompts[0][weight]": "1",
		"cfg_scale":               strconv.Itoa(s.cfg.CFGScale),
		"samples":                 "1",
		"steps":                   strconv.Itoa(s.cfg.Steps),
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, Errf(KindUnavailable, "build request: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, Errf(KindUnavailable, "build request: %v", err)
	}

	url := fmt.Sprintf("%s/v1/generation/%s/image-to-image", s.cfg.BaseURL, s.cfg.Engine)
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, Errf(KindUnavailable, "build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: KindRejected, Status: resp.StatusCode, Detail: rejectionMessage(raw)}
	}

	var parsed struct {
		Artifacts []struct {
			Base64 string `json:"base64"`
		} `json:"artifacts"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Artifacts) == 0 {
		return nil, Errf(KindRejected, "provider returned an unreadable response")
	}
	out, err := base64.StdEncoding.DecodeString(parsed.Artifacts[0].Base64)
	if err != nil {
		return nil, Errf(KindRejected, "provider returned malformed image data")
	}

	return &domain.GenerationResult{Kind: domain.KindRestyleImage, Image: out}, nil
}

// rejectionMessage extracts the provider's error message from a non-200
// response body, falling back to the raw text.
func rejectionMessage(raw []byte) string {
	var withMessage struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &withMessage); err == nil && withMessage.Message != "" {
		return withMessage.Message
	}
	var withError struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &withError); err == nil && withError.Error.Message != "" {
		return withError.Error.Message
	}
	return string(raw)
}

var _ domain.Adapter = (*Stability)(nil)
