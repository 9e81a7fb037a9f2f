package handlers

import (
	"net/http"

	"github.com/Dosada05/pyramid-ladder/services"
)

type PyramidHandler struct {
	pyramidService     services.PyramidService
	eligibilityService services.EligibilityService
	sweepService       services.SweepService
}

func NewPyramidHandler(ps services.PyramidService, es services.EligibilityService, ss services.SweepService) *PyramidHandler {
	return &PyramidHandler{
		pyramidService:     ps,
		eligibilityService: es,
		sweepService:       ss,
	}
}

// ListPyramids godoc
// @Summary Listar pirámides
// @Tags pyramids
// @Produce json
// @Param active query bool false "Solo pirámides activas"
// @Success 200 {object} map[string]interface{} "pyramids"
// @Router /pyramids [get]
func (h *PyramidHandler) ListPyramids(w http.ResponseWriter, r *http.Request) {
	pyramids, err := h.pyramidService.ListPyramids(r.Context(), queryBool(r, "active"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"pyramids": pyramids})
}

// GetPyramidView godoc
// @Summary Ver una pirámide con sus posiciones y retos abiertos
// @Tags pyramids
// @Produce json
// @Param pyramidID path int true "Pyramid ID"
// @Success 200 {object} map[string]interface{} "pyramid, positions, open_matches"
// @Failure 404 {object} map[string]interface{} "La pirámide no existe"
// @Router /pyramids/{pyramidID} [get]
func (h *PyramidHandler) GetPyramidView(w http.ResponseWriter, r *http.Request) {
	pyramidID, err := getIDFromURL(r, "pyramidID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.pyramidService.GetPyramidView(r.Context(), pyramidID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{
		"pyramid":      view.Pyramid,
		"positions":    view.Positions,
		"open_matches": view.OpenMatches,
	})
}

// ListHistory godoc
// @Summary Historial de posiciones de una pirámide (más reciente primero)
// @Tags pyramids
// @Produce json
// @Param pyramidID path int true "Pyramid ID"
// @Param limit query int false "Máximo de registros (por defecto 100)"
// @Success 200 {object} map[string]interface{} "history"
// @Failure 404 {object} map[string]interface{} "La pirámide no existe"
// @Router /pyramids/{pyramidID}/history [get]
func (h *PyramidHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	pyramidID, err := getIDFromURL(r, "pyramidID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	history, err := h.pyramidService.ListHistory(r.Context(), pyramidID, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"history": history})
}

// CreatePyramid godoc
// @Summary Crear una pirámide
// @Tags pyramids
// @Accept json
// @Produce json
// @Param input body services.CreatePyramidInput true "Datos de la pirámide"
// @Success 201 {object} map[string]interface{} "pyramid"
// @Failure 400 {object} map[string]interface{} "Datos inválidos"
// @Failure 403 {object} map[string]interface{} "Solo administradores"
// @Security BearerAuth
// @Router /pyramids [post]
func (h *PyramidHandler) CreatePyramid(w http.ResponseWriter, r *http.Request) {
	var input services.CreatePyramidInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	pyramid, err := h.pyramidService.CreatePyramid(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusCreated, jsonResponse{"pyramid": pyramid})
}

// UpdatePyramid godoc
// @Summary Actualizar una pirámide
// @Description Solo se cambian los campos enviados. No se puede reducir row_count por debajo de una fila ocupada.
// @Tags pyramids
// @Accept json
// @Produce json
// @Param pyramidID path int true "Pyramid ID"
// @Param input body services.UpdatePyramidInput true "Campos a cambiar"
// @Success 200 {object} map[string]interface{} "pyramid"
// @Failure 409 {object} map[string]interface{} "Filas ocupadas"
// @Security BearerAuth
// @Router /pyramids/{pyramidID} [patch]
func (h *PyramidHandler) UpdatePyramid(w http.ResponseWriter, r *http.Request) {
	pyramidID, err := getIDFromURL(r, "pyramidID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input services.UpdatePyramidInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	pyramid, err := h.pyramidService.UpdatePyramid(r.Context(), pyramidID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"pyramid": pyramid})
}

// SetCategories godoc
// @Summary Asignar las categorías de una pirámide
// @Tags pyramids
// @Accept json
// @Produce json
// @Param pyramidID path int true "Pyramid ID"
// @Param input body object true "{\"category_ids\": [1, 2]}"
// @Success 200 {object} map[string]interface{} "categories"
// @Security BearerAuth
// @Router /pyramids/{pyramidID}/categories [put]
func (h *PyramidHandler) SetCategories(w http.ResponseWriter, r *http.Request) {
	pyramidID, err := getIDFromURL(r, "pyramidID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		CategoryIDs []int `json:"category_ids"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	categories, err := h.pyramidService.SetCategories(r.Context(), pyramidID, input.CategoryIDs)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"categories": categories})
}

// ListEligibleTeams godoc
// @Summary Equipos que pueden jugar en la pirámide
// @Tags pyramids
// @Produce json
// @Param pyramidID path int true "Pyramid ID"
// @Param unplaced query bool false "Solo equipos sin posición"
// @Success 200 {object} map[string]interface{} "teams"
// @Security BearerAuth
// @Router /pyramids/{pyramidID}/eligible-teams [get]
func (h *PyramidHandler) ListEligibleTeams(w http.ResponseWriter, r *http.Request) {
	pyramidID, err := getIDFromURL(r, "pyramidID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	teams := h.eligibilityService.ListEligibleTeams
	if queryBool(r, "unplaced") {
		teams = h.eligibilityService.ListUnplacedEligibleTeams
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"teams": teams(r.Context(), pyramidID)})
}

// SweepRiskyTeams godoc
// @Summary Marcar equipos inactivos como en riesgo
// @Description Ejecuta la revisión semanal de actividad y notifica a los equipos marcados.
// @Tags pyramids
// @Produce json
// @Param pyramidID path int true "Pyramid ID"
// @Success 200 {object} map[string]interface{} "report"
// @Security BearerAuth
// @Router /pyramids/{pyramidID}/risky-sweep [post]
func (h *PyramidHandler) SweepRiskyTeams(w http.ResponseWriter, r *http.Request) {
	pyramidID, err := getIDFromURL(r, "pyramidID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	report, err := h.sweepService.CheckAndMarkRiskyTeams(r.Context(), pyramidID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"report": report})
}
