package handlers

import (
	"net/http"

	"github.com/Dosada05/pyramid-ladder/services"
)

type NotificationHandler struct {
	notificationService services.NotificationService
}

func NewNotificationHandler(ns services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: ns}
}

// ListNotifications godoc
// @Summary Notificaciones del usuario (más reciente primero)
// @Tags notifications
// @Produce json
// @Param unread query bool false "Solo no leídas"
// @Param limit query int false "Máximo de registros (por defecto 50, máximo 200)"
// @Success 200 {object} map[string]interface{} "notifications, unread_count"
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	notifications, err := h.notificationService.List(r.Context(), actor, queryBool(r, "unread"), limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	unread, err := h.notificationService.CountUnread(r.Context(), actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"notifications": notifications, "unread_count": unread})
}

// MarkViewed godoc
// @Summary Marcar una notificación como leída
// @Tags notifications
// @Param notificationID path int true "Notification ID"
// @Success 200 {object} map[string]interface{} "success"
// @Failure 404 {object} map[string]interface{} "La notificación no existe"
// @Security BearerAuth
// @Router /notifications/{notificationID}/viewed [post]
func (h *NotificationHandler) MarkViewed(w http.ResponseWriter, r *http.Request) {
	notificationID, err := getIDFromURL(r, "notificationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	if err := h.notificationService.MarkViewed(r.Context(), actor, notificationID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, nil)
}

// MarkMatchViewed godoc
// @Summary Marcar como leídas todas las notificaciones de un reto
// @Tags notifications
// @Param matchID path int true "Match ID"
// @Success 200 {object} map[string]interface{} "marked"
// @Security BearerAuth
// @Router /matches/{matchID}/notifications/viewed [post]
func (h *NotificationHandler) MarkMatchViewed(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	marked, err := h.notificationService.MarkMatchViewed(r.Context(), actor, matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"marked": marked})
}
