package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/reminisce-ai/reminisce/internal/domain"
	"github.com/reminisce-ai/reminisce/internal/gateway"
	"github.com/reminisce-ai/reminisce/internal/identity"
	"github.com/reminisce-ai/reminisce/internal/infra/sqlite"
	"github.com/reminisce-ai/reminisce/internal/provider"
)

// recordingAdapter is a stub provider that remembers what it received.
type recordingAdapter struct {
	kind     domain.GenerationKind
	result   *domain.GenerationResult
	err      error
	calls    int
	lastSeen []byte
}

func (a *recordingAdapter) Kind() domain.GenerationKind { return a.kind }

func (a *recordingAdapter) Execute(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	a.calls++
	a.lastSeen = req.Image
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

type harness struct {
	srv      *httptest.Server
	db       *sqlite.DB
	adapters map[domain.GenerationKind]*recordingAdapter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := identity.DefaultConfig()
	cfg.SigningKey = []byte("test-key")
	ident, err := identity.New(db, cfg)
	if err != nil {
		t.Fatal(err)
	}

	adapters := map[domain.GenerationKind]*recordingAdapter{
		domain.KindRestyleImage: {
			kind:   domain.KindRestyleImage,
			result: &domain.GenerationResult{Kind: domain.KindRestyleImage, Image: []byte("styled-bytes")},
		},
		domain.KindStory: {
			kind:   domain.KindStory,
			result: &domain.GenerationResult{Kind: domain.KindStory, Story: "It was the summer of 1974..."},
		},
		domain.KindSoundscape: {
			kind:   domain.KindSoundscape,
			result: &domain.GenerationResult{Kind: domain.KindSoundscape, Audio: []byte("mp3-bytes")},
		},
	}
	gw, err := gateway.New(ident, db, zerolog.Nop(),
		adapters[domain.KindRestyleImage], adapters[domain.KindStory], adapters[domain.KindSoundscape])
	if err != nil {
		t.Fatal(err)
	}

	server := NewServer(ident, db, gw, zerolog.Nop())
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return &harness{srv: srv, db: db, adapters: adapters}
}

func (h *harness) postJSON(t *testing.T, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPost, h.srv.URL+path, bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (h *harness) register(t *testing.T, username, password string) string {
	t.Helper()
	resp, _ := h.postJSON(t, "/register", "", map[string]string{"username": username, "password": password})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register status = %d", resp.StatusCode)
	}

	form := url.Values{"username": {username}, "password": {password}}
	tokResp, err := http.Post(h.srv.URL+"/token", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatal(err)
	}
	defer tokResp.Body.Close()
	if tokResp.StatusCode != http.StatusOK {
		t.Fatalf("token status = %d", tokResp.StatusCode)
	}
	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	json.NewDecoder(tokResp.Body).Decode(&tok)
	if tok.TokenType != "bearer" {
		t.Fatalf("token_type = %q, want bearer", tok.TokenType)
	}
	return tok.AccessToken
}

func encodedImage() string {
	return base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\nfake"))
}

// ─── Health & version ───────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Get(h.srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf(`status = %q, want "ok"`, body["status"])
	}
}

// ─── Account flow ───────────────────────────────────────────────────────────

func TestRegister_StartsWithTenCredits(t *testing.T) {
	h := newHarness(t)
	resp, body := h.postJSON(t, "/register", "", map[string]string{"username": "elif", "password": "sepia1950"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["username"] != "elif" {
		t.Errorf("username = %v", body["username"])
	}
	if body["credits"] != float64(10) {
		t.Errorf("credits = %v, want 10", body["credits"])
	}
	if body["is_active"] != true {
		t.Errorf("is_active = %v, want true", body["is_active"])
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	h := newHarness(t)
	h.register(t, "elif", "sepia1950")

	resp, body := h.postJSON(t, "/register", "", map[string]string{"username": "elif", "password": "other"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body["detail"] == "" {
		t.Error("expected a detail message")
	}
}

func TestToken_BadCredentials(t *testing.T) {
	h := newHarness(t)
	h.register(t, "elif", "sepia1950")

	form := url.Values{"username": {"elif"}, "password": {"wrong"}}
	resp, err := http.Post(h.srv.URL+"/token", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestUsersMe(t *testing.T) {
	h := newHarness(t)
	token := h.register(t, "elif", "sepia1950")

	req, _ := http.NewRequest(http.MethodGet, h.srv.URL+"/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body userResponse
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Username != "elif" || body.Credits != 10 {
		t.Errorf("body = %+v", body)
	}
}

func TestUsersMe_NoToken(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Get(h.srv.URL + "/users/me")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestBuyCredits(t *testing.T) {
	h := newHarness(t)
	token := h.register(t, "elif", "sepia1950")

	resp, body := h.postJSON(t, "/buy_credits?credits_to_add=15", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["new_credits"] != float64(25) {
		t.Errorf("new_credits = %v, want 25", body["new_credits"])
	}
	if body["message"] != "15 credits added." {
		t.Errorf("message = %v", body["message"])
	}
}

func TestBuyCredits_NonPositive(t *testing.T) {
	h := newHarness(t)
	token := h.register(t, "elif", "sepia1950")

	for _, q := range []string{"0", "-3", "abc", ""} {
		resp, _ := h.postJSON(t, "/buy_credits?credits_to_add="+q, token, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("credits_to_add=%q: status = %d, want 400", q, resp.StatusCode)
		}
	}

	balance, _ := h.db.GetBalance("elif")
	if balance != 10 {
		t.Errorf("balance = %d, want unchanged 10", balance)
	}
}

// ─── Generation scenarios ───────────────────────────────────────────────────

func TestGenerateStory_SucceedsAndDebits(t *testing.T) {
	h := newHarness(t)
	token := h.register(t, "elif", "sepia1950")

	resp, body := h.postJSON(t, "/generate_story", token, map[string]string{
		"image_bytes_base64": encodedImage(),
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	story, _ := body["story"].(string)
	if story == "" {
		t.Error("story is empty")
	}

	balance, _ := h.db.GetBalance("elif")
	if balance != 9 {
		t.Errorf("balance = %d, want 9", balance)
	}
}

func TestGenerateArtisticImage_RoundTripsPayload(t *testing.T) {
	h := newHarness(t)
	token := h.register(t, "elif", "sepia1950")

	original := []byte("\x89PNG\r\n\x1a\noriginal-photo-bytes")
	resp, body := h.postJSON(t, "/generate_artistic_image", token, map[string]string{
		"image_bytes_base64": base64.StdEncoding.EncodeToString(original),
		"style_prompt":       "Monet",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}

	// The adapter received exactly the bytes the client encoded.
	if !bytes.Equal(h.adapters[domain.KindRestyleImage].lastSeen, original) {
		t.Error("transport round-trip altered the image payload")
	}

	// And the response image decodes back to what the adapter produced.
	decoded, err := base64.StdEncoding.DecodeString(body["image_base64"].(string))
	if err != nil {
		t.Fatal(err)
	}
	if string(decoded) != "styled-bytes" {
		t.Errorf("decoded = %q", decoded)
	}
}

func TestGenerateSoundscape_ReturnsAudio(t *testing.T) {
	h := newHarness(t)
	token := h.register(t, "elif", "sepia1950")

	resp, body := h.postJSON(t, "/generate_soundscape", token, map[string]string{
		"image_bytes_base64": encodedImage(),
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	decoded, err := base64.StdEncoding.DecodeString(body["audio_base64"].(string))
	if err != nil || len(decoded) == 0 {
		t.Errorf("audio_base64 invalid: %v", err)
	}
}

func TestGenerate_ZeroCredits402(t *testing.T) {
	h := newHarness(t)
	token := h.register(t, "elif", "sepia1950")
	if _, err := h.db.AdjustBalance("elif", -10, domain.TxSpend, "drain"); err != nil {
		t.Fatal(err)
	}

	resp, _ := h.postJSON(t, "/generate_artistic_image", token, map[string]string{
		"image_bytes_base64": encodedImage(),
		"style_prompt":       "Monet",
	})
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", resp.StatusCode)
	}

	balance, _ := h.db.GetBalance("elif")
	if balance != 0 {
		t.Errorf("balance = %d, want 0", balance)
	}
}

func TestGenerate_UnconfiguredProvider(t *testing.T) {
	h := newHarness(t)
	token := h.register(t, "elif", "sepia1950")

	restyle := h.adapters[domain.KindRestyleImage]
	restyle.err = provider.Errf(provider.KindUnconfigured, "image restyling is not configured")

	resp, body := h.postJSON(t, "/generate_artistic_image", token, map[string]string{
		"image_bytes_base64": encodedImage(),
		"style_prompt":       "Monet",
	})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if detail, _ := body["detail"].(string); detail == "" {
		t.Error("expected a detail message")
	}

	balance, _ := h.db.GetBalance("elif")
	if balance != 10 {
		t.Errorf("balance = %d, want unchanged 10", balance)
	}
}

func TestGenerate_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        *provider.Error
		wantStatus int
	}{
		{"timeout", &provider.Error{Kind: provider.KindTimeout, Detail: "slow"}, http.StatusGatewayTimeout},
		{"unavailable", &provider.Error{Kind: provider.KindUnavailable, Detail: "down"}, http.StatusServiceUnavailable},
		{"rejected with status", &provider.Error{Kind: provider.KindRejected, Detail: "nope", Status: 429}, http.StatusTooManyRequests},
		{"rejected without status", &provider.Error{Kind: provider.KindRejected, Detail: "nope"}, http.StatusBadGateway},
		{"bad input", &provider.Error{Kind: provider.KindBadInput, Detail: "not an image"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			token := h.register(t, "elif", "sepia1950")
			h.adapters[domain.KindStory].err = tt.err

			resp, _ := h.postJSON(t, "/generate_story", token, map[string]string{
				"image_bytes_base64": encodedImage(),
			})
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			balance, _ := h.db.GetBalance("elif")
			if balance != 10 {
				t.Errorf("balance = %d, want unchanged 10", balance)
			}
		})
	}
}

func TestGenerate_MalformedBase64(t *testing.T) {
	h := newHarness(t)
	token := h.register(t, "elif", "sepia1950")

	resp, _ := h.postJSON(t, "/generate_story", token, map[string]string{
		"image_bytes_base64": "!!!not-base64!!!",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if h.adapters[domain.KindStory].calls != 0 {
		t.Error("adapter called despite malformed payload")
	}
}

func TestGenerate_NoToken401(t *testing.T) {
	h := newHarness(t)
	resp, _ := h.postJSON(t, "/generate_story", "", map[string]string{
		"image_bytes_base64": encodedImage(),
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestBalanceNeverNegativeAcrossMixedOps(t *testing.T) {
	h := newHarness(t)
	token := h.register(t, "elif", "sepia1950")

	for i := 0; i < 12; i++ { // more attempts than credits
		h.postJSON(t, "/generate_story", token, map[string]string{
			"image_bytes_base64": encodedImage(),
		})
		balance, _ := h.db.GetBalance("elif")
		if balance < 0 {
			t.Fatalf("observed negative balance %d after %d ops", balance, i+1)
		}
	}
	balance, _ := h.db.GetBalance("elif")
	if balance != 0 {
		t.Errorf("final balance = %d, want 0", balance)
	}

	// A top-up works after exhaustion.
	resp, _ := h.postJSON(t, fmt.Sprintf("/buy_credits?credits_to_add=%d", 3), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("buy_credits status = %d", resp.StatusCode)
	}
}
