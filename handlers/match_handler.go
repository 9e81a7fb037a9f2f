package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

// ListMatches godoc
// @Summary Retos de una pirámide
// @Tags matches
// @Produce json
// @Param pyramidID path int true "Pyramid ID"
// @Param status query string false "Estados separados por comas (pending,accepted,played,rejected,cancelled)"
// @Success 200 {object} map[string]interface{} "matches"
// @Router /pyramids/{pyramidID}/matches [get]
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	pyramidID, err := getIDFromURL(r, "pyramidID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	statuses, err := parseStatuses(r.URL.Query().Get("status"))
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.ListMatches(r.Context(), pyramidID, statuses...)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"matches": matches})
}

func parseStatuses(raw string) ([]models.MatchStatus, error) {
	if raw == "" {
		return nil, nil
	}
	var statuses []models.MatchStatus
	for _, s := range strings.Split(raw, ",") {
		status := models.MatchStatus(strings.TrimSpace(s))
		switch status {
		case models.MatchStatusPending, models.MatchStatusAccepted, models.MatchStatusPlayed,
			models.MatchStatusRejected, models.MatchStatusCancelled:
			statuses = append(statuses, status)
		default:
			return nil, fmt.Errorf("unknown match status %q", s)
		}
	}
	return statuses, nil
}

// GetMatch godoc
// @Summary Obtener un reto
// @Tags matches
// @Produce json
// @Param matchID path int true "Match ID"
// @Success 200 {object} map[string]interface{} "match"
// @Failure 404 {object} map[string]interface{} "El reto no existe"
// @Router /matches/{matchID} [get]
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"match": match})
}

// ChallengeableSlots godoc
// @Summary Posiciones que el equipo del usuario puede retar
// @Tags matches
// @Produce json
// @Param pyramidID path int true "Pyramid ID"
// @Success 200 {object} map[string]interface{} "slots"
// @Security BearerAuth
// @Router /pyramids/{pyramidID}/challengeable [get]
func (h *MatchHandler) ChallengeableSlots(w http.ResponseWriter, r *http.Request) {
	pyramidID, err := getIDFromURL(r, "pyramidID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	slots, err := h.matchService.ChallengeableSlots(r.Context(), actor, pyramidID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"slots": slots})
}

// CreateMatch godoc
// @Summary Retar a un equipo
// @Tags matches
// @Accept json
// @Produce json
// @Param pyramidID path int true "Pyramid ID"
// @Param input body object true "{\"defender_team_id\": 7}"
// @Success 201 {object} map[string]interface{} "match"
// @Failure 409 {object} map[string]interface{} "Ya existe un reto abierto"
// @Failure 422 {object} map[string]interface{} "Reto no permitido"
// @Security BearerAuth
// @Router /pyramids/{pyramidID}/matches [post]
func (h *MatchHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	pyramidID, err := getIDFromURL(r, "pyramidID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	var input struct {
		DefenderTeamID int `json:"defender_team_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.DefenderTeamID <= 0 {
		badRequestResponse(w, r, errors.New("defender_team_id is required"))
		return
	}

	match, err := h.matchService.CreateMatch(r.Context(), actor, pyramidID, input.DefenderTeamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusCreated, jsonResponse{"match": match})
}

// AcceptMatch godoc
// @Summary Aceptar un reto
// @Tags matches
// @Produce json
// @Param matchID path int true "Match ID"
// @Success 200 {object} map[string]interface{} "match"
// @Security BearerAuth
// @Router /matches/{matchID}/accept [post]
func (h *MatchHandler) AcceptMatch(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.matchService.AcceptMatch)
}

// RejectMatch godoc
// @Summary Rechazar un reto
// @Description Tras el aviso de límite semanal, el equipo confirma el rechazo con override=true.
// @Tags matches
// @Produce json
// @Param matchID path int true "Match ID"
// @Param override query bool false "Confirmar el rechazo pese al límite semanal"
// @Success 200 {object} map[string]interface{} "match"
// @Failure 422 {object} map[string]interface{} "Límite semanal alcanzado"
// @Security BearerAuth
// @Router /matches/{matchID}/reject [post]
func (h *MatchHandler) RejectMatch(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, actor services.Actor, matchID int) (*models.Match, error) {
		return h.matchService.RejectMatch(ctx, actor, matchID, queryBool(r, "override"))
	})
}

// CancelMatch godoc
// @Summary Cancelar un reto
// @Tags matches
// @Produce json
// @Param matchID path int true "Match ID"
// @Success 200 {object} map[string]interface{} "match"
// @Security BearerAuth
// @Router /matches/{matchID}/cancel [post]
func (h *MatchHandler) CancelMatch(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.matchService.CancelMatch)
}

// CompleteMatch godoc
// @Summary Registrar el resultado de un reto
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path int true "Match ID"
// @Param input body object true "{\"winner_team_id\": 7}"
// @Success 200 {object} map[string]interface{} "match"
// @Security BearerAuth
// @Router /matches/{matchID}/complete [post]
func (h *MatchHandler) CompleteMatch(w http.ResponseWriter, r *http.Request) {
	var input struct {
		WinnerTeamID int `json:"winner_team_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.WinnerTeamID <= 0 {
		badRequestResponse(w, r, errors.New("winner_team_id is required"))
		return
	}
	h.transition(w, r, func(ctx context.Context, actor services.Actor, matchID int) (*models.Match, error) {
		return h.matchService.CompleteMatch(ctx, actor, matchID, input.WinnerTeamID)
	})
}

func (h *MatchHandler) transition(w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, actor services.Actor, matchID int) (*models.Match, error)) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	match, err := apply(r.Context(), actor, matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"match": match})
}

// UploadEvidence godoc
// @Summary Subir la hoja de resultado de un reto
// @Tags matches
// @Accept multipart/form-data
// @Produce json
// @Param matchID path int true "Match ID"
// @Param evidence formData file true "Imagen (jpeg, png, webp) o PDF"
// @Success 200 {object} map[string]interface{} "match"
// @Failure 400 {object} map[string]interface{} "Archivo inválido"
// @Security BearerAuth
// @Router /matches/{matchID}/evidence [post]
func (h *MatchHandler) UploadEvidence(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxEvidenceBytes+1<<20)
	if err := r.ParseMultipartForm(services.MaxEvidenceBytes); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			mapServiceErrorToHTTP(w, r, services.ErrEvidenceTooLarge)
			return
		}
		badRequestResponse(w, r, fmt.Errorf("failed to parse multipart form: %w", err))
		return
	}

	file, _, err := r.FormFile("evidence")
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to get evidence file from form: %w", err))
		return
	}
	defer file.Close()

	match, err := h.matchService.UploadEvidence(r.Context(), actor, matchID, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"match": match})
}
