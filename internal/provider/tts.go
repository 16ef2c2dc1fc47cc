package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// ─── Speech synthesis ───────────────────────────────────────────────────────

// ttsChunkRunes is the per-request text limit of the synthesis endpoint.
// Longer passages are split on whitespace and the MP3 fragments
// concatenated; MPEG audio streams are frame-delimited, so simple
// concatenation yields a playable file.
const ttsChunkRunes = 200

// TTSConfig configures the speech-synthesis client.
type TTSConfig struct {
	BaseURL  string        // default https://translate.google.com/translate_tts
	Language string        // BCP-47-ish language code, default "en"
	Timeout  time.Duration // per fragment, default 30s
}

// DefaultTTSConfig returns production defaults. The endpoint is keyless.
func DefaultTTSConfig() TTSConfig {
	return TTSConfig{
		BaseURL:  "https://translate.google.com/translate_tts",
		Language: "en",
		Timeout:  30 * time.Second,
	}
}

// TTS synthesizes spoken audio (MP3) from text.
type TTS struct {
	cfg    TTSConfig
	client *http.Client
}

// NewTTS creates the speech-synthesis client.
func NewTTS(cfg TTSConfig) *TTS {
	def := DefaultTTSConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Language == "" {
		cfg.Language = def.Language
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	return &TTS{cfg: cfg, client: &http.Client{}}
}

// Synthesize converts text to MP3 audio bytes.
func (t *TTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	chunks := splitChunks(text, ttsChunkRunes)
	if len(chunks) == 0 {
		return nil, Errf(KindBadInput, "nothing to synthesize")
	}

	var audio bytes.Buffer
	for i, chunk := range chunks {
		frag, err := t.fetchFragment(ctx, chunk, i, len(chunks))
		if err != nil {
			return nil, err
		}
		audio.Write(frag)
	}
	return audio.Bytes(), nil
}

func (t *TTS) fetchFragment(ctx context.Context, text string, idx, total int) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", t.cfg.Language)
	q.Set("q", text)
	q.Set("idx", strconv.Itoa(idx))
	q.Set("total", strconv.Itoa(total))
	q.Set("textlen", strconv.Itoa(utf8.RuneCountInString(text)))

	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, Errf(KindUnavailable, "build request: %v", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &Error{
			Kind:   KindRejected,
			Status: resp.StatusCode,
			Detail: fmt.Sprintf("speech synthesis refused fragment %d/%d: %s", idx+1, total, rejectionMessage(raw)),
		}
	}
	frag, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}
	return frag, nil
}

// splitChunks breaks text into pieces of at most maxRunes runes, splitting
// on whitespace where possible. A single word longer than the limit is
// hard-split.
func splitChunks(text string, maxRunes int) []string {
	var chunks []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, string(current))
			current = nil
		}
	}
	for _, field := range strings.Fields(text) {
		word := []rune(field)
		if len(word) > maxRunes {
			flush()
			for len(word) > maxRunes {
				chunks = append(chunks, string(word[:maxRunes]))
				word = word[maxRunes:]
			}
			current = append(current, word...)
			continue
		}
		if len(current) > 0 && len(current)+1+len(word) > maxRunes {
			flush()
		}
		if len(current) > 0 {
			current = append(current, ' ')
		}
		current = append(current, word...)
	}
	flush()
	return chunks
}
