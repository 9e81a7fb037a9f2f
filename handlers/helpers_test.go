package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/pyramid-ladder/ladder"
	"github.com/Dosada05/pyramid-ladder/services"
)

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"rule error wins over wrapper", fmt.Errorf("%w: %w", services.ErrChallengeNotAllowed, ladder.ErrOutOfReach),
			http.StatusUnprocessableEntity, "Ese equipo está fuera de tu alcance"},
		{"open challenge is a conflict", fmt.Errorf("%w: %w", services.ErrChallengeNotAllowed, ladder.ErrOpenChallenge),
			http.StatusConflict, "Ya existe un reto abierto entre estos equipos"},
		{"wrapped not found", fmt.Errorf("%w: get match 3: %w", services.ErrMatchNotFound, errors.New("no rows")),
			http.StatusNotFound, "El reto no existe"},
		{"defender already accepted", fmt.Errorf("%w: team 3 must play match 9 first", services.ErrDefenderBusy),
			http.StatusConflict, "El equipo ya tiene un reto aceptado pendiente de jugar"},
		{"forbidden", services.ErrForbiddenOperation, http.StatusForbidden, "No tienes permiso para realizar esta acción"},
		{"validation", services.ErrTeamSamePlayer, http.StatusBadRequest, "Un equipo necesita dos jugadores distintos"},
		{"unknown", errors.New("pq: relation \"positions\" does not exist"),
			http.StatusInternalServerError, "Ocurrió un error interno, inténtalo más tarde"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.message, body["error"])
		})
	}
}

func TestReadJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	read := func(body string) error {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		return readJSON(httptest.NewRecorder(), req, &dst)
	}

	require.NoError(t, read(`{"name":"Liga"}`))
	assert.Equal(t, "Liga", dst.Name)
	assert.EqualError(t, read(``), "body must not be empty")
	assert.EqualError(t, read(`{"nombre":"x"}`), `body contains unknown key "nombre"`)
	assert.EqualError(t, read(`{"name":1}`), `body contains incorrect JSON type for field "name"`)
	assert.EqualError(t, read(`{"name":"a"}{"name":"b"}`), "body must only contain a single JSON value")
}

func TestSuccessResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	successResponse(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusCreated, jsonResponse{"id": 7})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"success": true, "id": 7}`, rec.Body.String())
}
