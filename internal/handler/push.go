package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dukerupert/famwell/internal/auth"
	"github.com/dukerupert/famwell/internal/push"
	"github.com/dukerupert/famwell/internal/store"
)

type PushHandler struct {
	pushStore *store.PushStore
	service   *push.Service
	logger    *slog.Logger
}

// NewPushHandler returns the push handler. svc is nil when VAPID keys are
// not configured.
func NewPushHandler(ps *store.PushStore, svc *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{pushStore: ps, service: svc, logger: logger}
}

type subscribeRequest struct {
	Endpoint   string `json:"endpoint"`
	P256dh     string `json:"p256dh"`
	Auth       string `json:"auth"`
	DeviceName string `json:"device_name"`
}

// Subscribe handles POST /api/push/subscribe
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req subscribeRequest
	if !decode(w, r, &req) {
		return
	}
	req.Endpoint = strings.TrimSpace(req.Endpoint)
	req.DeviceName = strings.TrimSpace(req.DeviceName)

	if req.Endpoint == "" || req.P256dh == "" || req.Auth == "" {
		writeError(w, http.StatusBadRequest, "endpoint, p256dh, and auth are required")
		return
	}
	if u, err := url.Parse(req.Endpoint); err != nil || u.Scheme != "https" || u.Host == "" {
		writeError(w, http.StatusBadRequest, "endpoint must be an https URL")
		return
	}

	sub, err := h.pushStore.CreateSubscription(userID, req.Endpoint, req.P256dh, req.Auth, req.DeviceName)
	if err != nil {
		writeStoreError(w, h.logger, "save subscription", err)
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

// Unsubscribe handles DELETE /api/push/subscriptions/{id}
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	deleted, err := h.pushStore.DeleteSubscription(id, auth.UserID(r.Context()))
	if err != nil {
		writeStoreError(w, h.logger, "delete subscription", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "subscription not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListSubscriptions handles GET /api/push/subscriptions
func (h *PushHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.pushStore.ListByUser(auth.UserID(r.Context()))
	if err != nil {
		writeStoreError(w, h.logger, "list subscriptions", err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(subs))
}

// GetVAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeError(w, http.StatusNotFound, "push notifications are not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}

// TestNotification handles POST /api/push/test. It ignores notification
// settings so a user can check a device.
func (h *PushHandler) TestNotification(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeError(w, http.StatusNotFound, "push notifications are not configured")
		return
	}

	subs, err := h.pushStore.ListByUser(auth.UserID(r.Context()))
	if err != nil {
		writeStoreError(w, h.logger, "list subscriptions", err)
		return
	}

	payload := push.Payload{
		Title: "Test Notification",
		Body:  "Push notifications are working!",
		URL:   "/settings",
		Tag:   "test",
	}

	sent := 0
	for _, sub := range subs {
		err := h.service.Send(&sub, payload)
		if errors.Is(err, push.ErrExpired) {
			if derr := h.pushStore.DeleteByEndpoint(sub.Endpoint); derr != nil {
				h.logger.Error("prune subscription", "error", derr)
			}
			continue
		}
		if err != nil {
			h.logger.Error("test push send", "error", err)
			continue
		}
		sent++
	}

	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}
