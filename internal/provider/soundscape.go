package provider

import (
	"context"

	"github.com/reminisce-ai/reminisce/internal/domain"
)

// ─── Soundscape adapter ─────────────────────────────────────────────────────
// Two-stage pipeline inside one adapter: (a) ask the text model for a short
// poetic reading of the photograph, (b) synthesize that text to speech.
// A failure at either stage is a single provider error; the intermediate
// caption is never surfaced to the caller — only the derived audio is.

// DefaultSoundscapePrompt is the caption template for stage (a).
const DefaultSoundscapePrompt = "Look at this old photograph and read it through " +
	"a poet's eyes. Combine the atmosphere of the moment, its emotion and the " +
	"sounds one might hear into a short, poetic passage. For example: 'Whispers " +
	"of the past drift by... the creak of a wooden floor, distant laughter, and " +
	"heartbeats folded into the silence of the room...' Produce only that " +
	"literary text."

// Soundscape turns a photograph into synthesized spoken audio.
type Soundscape struct {
	gemini *Gemini
	tts    *TTS
	prompt string
}

// NewSoundscape creates the soundscape adapter. An empty prompt selects the
// default caption template.
func NewSoundscape(gemini *Gemini, tts *TTS, prompt string) *Soundscape {
	if prompt == "" {
		prompt = DefaultSoundscapePrompt
	}
	return &Soundscape{gemini: gemini, tts: tts, prompt: prompt}
}

// Kind implements domain.Adapter.
func (s *Soundscape) Kind() domain.GenerationKind { return domain.KindSoundscape }

// Execute implements domain.Adapter.
func (s *Soundscape) Execute(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	caption, err := s.gemini.Describe(ctx, s.prompt, req.Image)
	if err != nil {
		return nil, err
	}
	audio, err := s.tts.Synthesize(ctx, caption)
	if err != nil {
		return nil, err
	}
	return &domain.GenerationResult{Kind: domain.KindSoundscape, Audio: audio}, nil
}

var _ domain.Adapter = (*Soundscape)(nil)
