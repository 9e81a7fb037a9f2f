package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/services"
)

type PositionHandler struct {
	positionService services.PositionService
}

func NewPositionHandler(ps services.PositionService) *PositionHandler {
	return &PositionHandler{positionService: ps}
}

type positionInput struct {
	TeamID int `json:"team_id"`
	Row    int `json:"row"`
	Col    int `json:"col"`
}

func (in positionInput) validate() error {
	if in.TeamID <= 0 {
		return errors.New("team_id is required")
	}
	if in.Row <= 0 || in.Col <= 0 {
		return errors.New("row and col must be positive")
	}
	return nil
}

// SetTeamInPosition godoc
// @Summary Colocar un equipo en una posición
// @Description Si la posición está ocupada, el equipo que la ocupaba sale de la pirámide y se cancelan sus retos abiertos.
// @Tags positions
// @Accept json
// @Produce json
// @Param pyramidID path int true "Pyramid ID"
// @Param input body positionInput true "Equipo y posición"
// @Success 201 {object} map[string]interface{} "position"
// @Failure 409 {object} map[string]interface{} "El equipo ya tiene posición"
// @Security BearerAuth
// @Router /pyramids/{pyramidID}/positions [post]
func (h *PositionHandler) SetTeamInPosition(w http.ResponseWriter, r *http.Request) {
	h.place(w, r, http.StatusCreated, h.positionService.SetTeamInPosition)
}

// MoveTeamPosition godoc
// @Summary Mover un equipo a una posición vacía
// @Tags positions
// @Accept json
// @Produce json
// @Param pyramidID path int true "Pyramid ID"
// @Param input body positionInput true "Equipo y nueva posición"
// @Success 200 {object} map[string]interface{} "position"
// @Failure 409 {object} map[string]interface{} "La posición ya está ocupada"
// @Security BearerAuth
// @Router /pyramids/{pyramidID}/positions/move [post]
func (h *PositionHandler) MoveTeamPosition(w http.ResponseWriter, r *http.Request) {
	h.place(w, r, http.StatusOK, h.positionService.MoveTeamPosition)
}

func (h *PositionHandler) place(w http.ResponseWriter, r *http.Request, status int,
	apply func(ctx context.Context, pyramidID, teamID int, slot models.Slot) (*models.Position, error)) {
	pyramidID, err := getIDFromURL(r, "pyramidID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input positionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := input.validate(); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	position, err := apply(r.Context(), pyramidID, input.TeamID, models.Slot{Row: input.Row, Col: input.Col})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, status, jsonResponse{"position": position})
}

// RemoveTeamFromPosition godoc
// @Summary Quitar un equipo de la pirámide
// @Tags positions
// @Param positionID path int true "Position ID"
// @Success 204 "Sin contenido"
// @Failure 404 {object} map[string]interface{} "La posición no existe"
// @Security BearerAuth
// @Router /positions/{positionID} [delete]
func (h *PositionHandler) RemoveTeamFromPosition(w http.ResponseWriter, r *http.Request) {
	positionID, err := getIDFromURL(r, "positionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.positionService.RemoveTeamFromPosition(r.Context(), positionID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
