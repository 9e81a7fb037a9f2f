package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/pyramid-ladder/ladder"
	"github.com/Dosada05/pyramid-ladder/middleware"
	"github.com/Dosada05/pyramid-ladder/services"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err) // ошибка программиста: передан не указатель
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

// successResponse writes data with "success": true added.
func successResponse(w http.ResponseWriter, r *http.Request, status int, data jsonResponse) {
	env := jsonResponse{"success": true}
	for k, v := range data {
		env[k] = v
	}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write JSON response", slog.Any("error", err))
	}
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	env := jsonResponse{"success": false, "error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write error JSON response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "Internal server error",
		slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("error", err))
	errorResponse(w, r, http.StatusInternalServerError, "Ocurrió un error interno, inténtalo más tarde")
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request) {
	errorResponse(w, r, http.StatusUnauthorized, "Se requiere autenticación")
}

// errorMessages maps service and rule errors to a status and the message shown to
// users. More specific errors come first: a rule error is also wrapped in
// ErrChallengeNotAllowed.
var errorMessages = []struct {
	err     error
	status  int
	message string
}{
	// Правила вызова
	{ladder.ErrNotPositioned, http.StatusUnprocessableEntity, "Tu equipo no tiene posición en esta pirámide"},
	{ladder.ErrEmptySlot, http.StatusUnprocessableEntity, "La posición elegida está vacía"},
	{ladder.ErrSelfChallenge, http.StatusUnprocessableEntity, "Un equipo no puede retarse a sí mismo"},
	{ladder.ErrApexChallenge, http.StatusUnprocessableEntity, "El equipo en la cima no tiene a quién retar"},
	{ladder.ErrSameRowRight, http.StatusUnprocessableEntity, "En tu fila solo puedes retar a equipos a tu izquierda"},
	{ladder.ErrOutOfReach, http.StatusUnprocessableEntity, "Ese equipo está fuera de tu alcance"},
	{ladder.ErrOpenChallenge, http.StatusConflict, "Ya existe un reto abierto entre estos equipos"},
	{services.ErrChallengeNotAllowed, http.StatusUnprocessableEntity, "Reto no permitido"},

	// Бизнес-правила
	{services.ErrInvalidStatus, http.StatusUnprocessableEntity, "El estado del reto no permite esta acción"},
	{services.ErrInvalidWinner, http.StatusUnprocessableEntity, "El ganador debe ser uno de los equipos del reto"},
	{services.ErrRejectionLimitReached, http.StatusUnprocessableEntity, "El equipo ya rechazó el máximo de retos esta semana"},
	{services.ErrDefenderBusy, http.StatusConflict, "El equipo ya tiene un reto aceptado pendiente de jugar"},
	{services.ErrPyramidInactive, http.StatusUnprocessableEntity, "La pirámide no está activa"},
	{services.ErrNoTeam, http.StatusUnprocessableEntity, "No perteneces a ningún equipo"},
	{services.ErrEvidenceDisabled, http.StatusUnprocessableEntity, "La carga de evidencias no está habilitada"},

	// Валидация
	{services.ErrPyramidNameRequired, http.StatusBadRequest, "El nombre de la pirámide es obligatorio"},
	{services.ErrPyramidInvalidRows, http.StatusBadRequest, "La pirámide debe tener al menos una fila"},
	{services.ErrSlotOutOfGrid, http.StatusBadRequest, "La posición está fuera de la pirámide"},
	{services.ErrTeamSamePlayer, http.StatusBadRequest, "Un equipo necesita dos jugadores distintos"},
	{services.ErrEvidenceTooLarge, http.StatusBadRequest, "El archivo de evidencia es demasiado grande"},
	{services.ErrEvidenceType, http.StatusBadRequest, "La evidencia debe ser una imagen o un PDF"},
	{services.ErrValidationFailed, http.StatusBadRequest, "Datos inválidos"},

	// Конфликты
	{services.ErrSlotOccupied, http.StatusConflict, "La posición ya está ocupada"},
	{services.ErrTeamAlreadyPositioned, http.StatusConflict, "El equipo ya tiene una posición en esta pirámide"},
	{services.ErrPlayerAlreadyInTeam, http.StatusConflict, "El jugador ya pertenece a un equipo"},
	{services.ErrPyramidRowsInUse, http.StatusConflict, "Hay equipos en las filas que se quieren eliminar"},
	{services.ErrConcurrentUpdate, http.StatusConflict, "El reto cambió mientras se procesaba, vuelve a intentarlo"},

	{services.ErrForbiddenOperation, http.StatusForbidden, "No tienes permiso para realizar esta acción"},

	// Не найдено
	{services.ErrPyramidNotFound, http.StatusNotFound, "La pirámide no existe"},
	{services.ErrPositionNotFound, http.StatusNotFound, "La posición no existe"},
	{services.ErrTeamNotFound, http.StatusNotFound, "El equipo no existe"},
	{services.ErrPlayerNotFound, http.StatusNotFound, "El jugador no existe"},
	{services.ErrCategoryNotFound, http.StatusNotFound, "La categoría no existe"},
	{services.ErrMatchNotFound, http.StatusNotFound, "El reto no existe"},
	{services.ErrNotificationNotFound, http.StatusNotFound, "La notificación no existe"},
	{services.ErrNotFound, http.StatusNotFound, "Recurso no encontrado"},
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы.
// Unknown errors are logged and answered with a generic 500.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMessages {
		if errors.Is(err, m.err) {
			errorResponse(w, r, m.status, m.message)
			return
		}
	}
	serverErrorResponse(w, r, err)
}

// Общая вспомогательная функция для извлечения ID из URL
func getIDFromURL(r *http.Request, paramName string) (int, error) {
	idStr := chi.URLParam(r, paramName)
	if idStr == "" {
		return 0, fmt.Errorf("missing %s in URL path", paramName)
	}

	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format: %q", paramName, idStr)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid %s value: %d", paramName, id)
	}
	return id, nil
}

// queryInt reads an optional positive integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s query parameter: %q", name, raw)
	}
	return v, nil
}

func queryBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}

// currentActor reads the authenticated user and answers 401 when it is missing.
func currentActor(w http.ResponseWriter, r *http.Request) (services.Actor, bool) {
	actor, err := middleware.GetActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r)
		return services.Actor{}, false
	}
	return actor, true
}
