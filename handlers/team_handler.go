package handlers

import (
	"net/http"

	"github.com/Dosada05/pyramid-ladder/services"
)

type TeamHandler struct {
	teamService services.TeamService
}

func NewTeamHandler(ts services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: ts}
}

// CreateTeam godoc
// @Summary Crear un equipo de dos jugadores
// @Tags teams
// @Accept json
// @Produce json
// @Param input body services.CreateTeamInput true "Jugadores y categoría"
// @Success 201 {object} map[string]interface{} "team"
// @Failure 409 {object} map[string]interface{} "El jugador ya pertenece a un equipo"
// @Security BearerAuth
// @Router /teams [post]
func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.CreateTeam(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusCreated, jsonResponse{"team": team})
}

// GetTeam godoc
// @Summary Obtener un equipo
// @Tags teams
// @Produce json
// @Param teamID path int true "Team ID"
// @Success 200 {object} map[string]interface{} "team"
// @Failure 404 {object} map[string]interface{} "El equipo no existe"
// @Security BearerAuth
// @Router /teams/{teamID} [get]
func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.GetTeam(r.Context(), teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"team": team})
}

// DeleteTeam godoc
// @Summary Eliminar un equipo
// @Description Elimina también sus posiciones y retos; cada salida de la pirámide queda en el historial.
// @Tags teams
// @Param teamID path int true "Team ID"
// @Success 204 "Sin contenido"
// @Security BearerAuth
// @Router /teams/{teamID} [delete]
func (h *TeamHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.teamService.DeleteTeam(r.Context(), teamID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
