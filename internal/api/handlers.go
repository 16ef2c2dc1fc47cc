package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/reminisce-ai/reminisce/internal/domain"
	"github.com/reminisce-ai/reminisce/internal/infra/observability"
)

// ─── Request/Response shapes ────────────────────────────────────────────────

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Credits  int64  `json:"credits"`
	IsActive bool   `json:"is_active"`
}

type generateRequest struct {
	ImageBytesBase64 string `json:"image_bytes_base64"`
	StylePrompt      string `json:"style_prompt,omitempty"`
}

func toUserResponse(a *domain.Account) userResponse {
	return userResponse{ID: a.ID, Username: a.Username, Credits: a.Credits, IsActive: a.IsActive}
}

// ─── Account handlers ───────────────────────────────────────────────────────

// handleRegister creates a new account with the starting balance.
// POST /register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	acc, err := s.identity.Register(req.Username, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.log.Info().Str("user", acc.Username).Msg("account registered")
	writeJSON(w, http.StatusOK, toUserResponse(acc))
}

// handleToken exchanges form credentials for a bearer token.
// POST /token (form fields username, password)
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	token, err := s.identity.Authenticate(r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// handleMe returns the calling account.
// GET /users/me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	acc, err := s.identity.Resolve(bearerToken(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(acc))
}

// handleBuyCredits adds credits to the calling account (simulated purchase).
// POST /buy_credits?credits_to_add=N
func (s *Server) handleBuyCredits(w http.ResponseWriter, r *http.Request) {
	acc, err := s.identity.Resolve(bearerToken(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	n, err := strconv.ParseInt(r.URL.Query().Get("credits_to_add"), 10, 64)
	if err != nil || n <= 0 {
		writeError(w, http.StatusBadRequest, "credit amount must be a positive integer")
		return
	}

	newBalance, err := s.ledger.AdjustBalance(acc.Username, n, domain.TxPurchase, "credit purchase")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	observability.CreditsPurchased.Add(float64(n))
	s.log.Info().Str("user", acc.Username).Int64("added", n).Int64("balance", newBalance).Msg("credits purchased")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     fmt.Sprintf("%d credits added.", n),
		"new_credits": newBalance,
	})
}

// ─── Generation handlers ────────────────────────────────────────────────────

// handleGenerate returns the handler for one generation kind. The body
// carries the photo as base64; the gateway owns authn, the credit check,
// dispatch, and settlement.
func (s *Server) handleGenerate(kind domain.GenerationKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		imageBytes, err := base64.StdEncoding.DecodeString(req.ImageBytesBase64)
		if err != nil || len(imageBytes) == 0 {
			writeError(w, http.StatusBadRequest, "image_bytes_base64 is not valid base64 image data")
			return
		}

		result, err := s.gateway.Generate(r.Context(), bearerToken(r), domain.GenerationRequest{
			Kind:        kind,
			Image:       imageBytes,
			StylePrompt: req.StylePrompt,
		})
		if err != nil {
			s.fail(w, r, err)
			return
		}

		switch kind {
		case domain.KindRestyleImage:
			writeJSON(w, http.StatusOK, map[string]string{
				"image_base64": base64.StdEncoding.EncodeToString(result.Image),
			})
		case domain.KindStory:
			writeJSON(w, http.StatusOK, map[string]string{
				"story": result.Story,
			})
		case domain.KindSoundscape:
			writeJSON(w, http.StatusOK, map[string]string{
				"audio_base64": base64.StdEncoding.EncodeToString(result.Audio),
			})
		}
	}
}

// fail maps an error to its HTTP status and writes the detail body.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	}
	writeError(w, status, detail)
}
