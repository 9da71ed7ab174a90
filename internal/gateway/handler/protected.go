package handler

import (
	"net/http"
	"strconv"
	"strings"

	"zentra/internal/apperr"
	"zentra/internal/gateway/entity"
	"zentra/internal/gateway/middleware"
	"zentra/internal/gateway/service/advisor"
)

type submitAnswersRequest struct {
	Answers  entity.Answers `json:"answers"`
	Metadata map[string]any `json:"metadata"`
}

func (h *Handler) SubmitAnswers(w http.ResponseWriter, r *http.Request) {
	ident, err := middleware.CallerIdentity(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in submitAnswersRequest
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.advisor.SubmitAnswers(r.Context(), ident.UserID, in.Answers, in.Metadata)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Answers saved successfully",
		"user_id":  res.UserID,
		"upserted": res.Upserted,
	})
}

func (h *Handler) Onboard(w http.ResponseWriter, r *http.Request) {
	ident, err := middleware.CallerIdentity(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in entity.ProfileUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(in.Email) == "" {
		in.Email = ident.Email
	}
	res, err := h.advisor.Onboard(r.Context(), ident.UserID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "User onboarded successfully",
		"user_id":  res.UserID,
		"upserted": res.Upserted,
	})
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	ident, err := middleware.CallerIdentity(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.advisor.Profile(r.Context(), ident)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	ident, err := middleware.CallerIdentity(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	recs, err := h.advisor.Recommend(r.Context(), ident.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

type saveCardRequest struct {
	CardID string `json:"card_id"`
	Name   string `json:"name"`
}

func (h *Handler) SaveCard(w http.ResponseWriter, r *http.Request) {
	ident, err := middleware.CallerIdentity(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in saveCardRequest
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.advisor.SaveCard(r.Context(), ident.UserID, advisor.SaveCardRequest{CardID: in.CardID, Name: in.Name})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Card saved successfully",
		"saved_card": res.SavedCard,
		"plan":       res.Plan,
	})
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ident, err := middleware.CallerIdentity(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in chatRequest
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	reply, err := h.advisor.Chat(r.Context(), ident.UserID, in.Message)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (h *Handler) SavedCards(w http.ResponseWriter, r *http.Request) {
	ident, err := middleware.CallerIdentity(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := advisor.SavedCardsQuery{
		CardID:       strings.TrimSpace(r.URL.Query().Get("card_id")),
		IncludePlans: true,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("include_plans")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, r, apperr.InvalidArgument("include_plans must be true or false"))
			return
		}
		q.IncludePlans = v
	}
	cards, err := h.advisor.SavedCards(r.Context(), ident.UserID, q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved_cards": cards})
}
