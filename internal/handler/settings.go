package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/famwell/internal/auth"
	"github.com/dukerupert/famwell/internal/export"
	"github.com/dukerupert/famwell/internal/store"
)

const (
	maxBioLen        = 500
	minPassphraseLen = 8
	archiveListLimit = 20
)

type SettingsHandler struct {
	settingsStore *store.SettingsStore
	userStore     *store.UserStore
	memberStore   *store.FamilyMemberStore
	exportStore   *store.ExportStore
	collector     *export.Collector
	archiver      *export.Archiver
	logger        *slog.Logger
}

func NewSettingsHandler(
	ss *store.SettingsStore,
	us *store.UserStore,
	es *store.ExportStore,
	collector *export.Collector,
	archiver *export.Archiver,
	logger *slog.Logger,
) *SettingsHandler {
	return &SettingsHandler{
		settingsStore: ss,
		userStore:     us,
		memberStore:   collector.Members,
		exportStore:   es,
		collector:     collector,
		archiver:      archiver,
		logger:        logger,
	}
}

// Get handles GET /api/settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsStore.Get(auth.UserID(r.Context()))
	if err != nil {
		writeStoreError(w, h.logger, "get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Update handles PUT /api/settings. Fields missing from the body keep their
// current values; mood_visibility entries are merged.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	settings, err := h.settingsStore.Get(userID)
	if err != nil {
		writeStoreError(w, h.logger, "get settings", err)
		return
	}
	if !decode(w, r, &settings) {
		return
	}
	settings.Bio = strings.TrimSpace(settings.Bio)
	if len(settings.Bio) > maxBioLen {
		writeError(w, http.StatusBadRequest, "bio is too long")
		return
	}
	for memberID := range settings.MoodVisibility {
		m, err := h.memberStore.GetByID(memberID)
		if err != nil {
			writeStoreError(w, h.logger, "get family member", err)
			return
		}
		if m == nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("mood_visibility: unknown member %d", memberID))
			return
		}
	}

	if err := h.settingsStore.Save(userID, settings); err != nil {
		writeStoreError(w, h.logger, "save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Export handles GET /api/settings/export: the user's data as a JSON
// download.
func (h *SettingsHandler) Export(w http.ResponseWriter, r *http.Request) {
	bundle, ok := h.bundle(w, r)
	if !ok {
		return
	}
	filename := fmt.Sprintf("famwell-export-%s.json", bundle.ExportedAt.Format("2006-01-02"))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	writeJSON(w, http.StatusOK, bundle)
}

// Archive handles POST /api/settings/export/archive. The export is
// encrypted with the given passphrase and stored in object storage.
func (h *SettingsHandler) Archive(w http.ResponseWriter, r *http.Request) {
	if !h.archiver.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "archive storage is not configured")
		return
	}
	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if !decode(w, r, &req) {
		return
	}
	if len(req.Passphrase) < minPassphraseLen {
		writeError(w, http.StatusBadRequest, "passphrase must be at least 8 characters")
		return
	}

	bundle, ok := h.bundle(w, r)
	if !ok {
		return
	}
	record, err := h.archiver.Archive(r.Context(), auth.UserID(r.Context()), bundle, req.Passphrase)
	if err != nil {
		writeStoreError(w, h.logger, "archive export", err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// ListArchives handles GET /api/settings/export/archives.
func (h *SettingsHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	records, err := h.exportStore.ListByUser(auth.UserID(r.Context()), archiveListLimit)
	if err != nil {
		writeStoreError(w, h.logger, "list archives", err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(records))
}

// OpenArchive handles POST /api/settings/export/archives/{id}/open. It
// returns the decrypted export.
func (h *SettingsHandler) OpenArchive(w http.ResponseWriter, r *http.Request) {
	if !h.archiver.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "archive storage is not configured")
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if !decode(w, r, &req) {
		return
	}

	bundle, err := h.archiver.Open(r.Context(), id, auth.UserID(r.Context()), req.Passphrase)
	if errors.Is(err, export.ErrDecrypt) {
		writeError(w, http.StatusBadRequest, "wrong passphrase")
		return
	}
	if err != nil {
		writeStoreError(w, h.logger, "open archive", err)
		return
	}
	if bundle == nil {
		writeError(w, http.StatusNotFound, "archive not found")
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

func (h *SettingsHandler) bundle(w http.ResponseWriter, r *http.Request) (*export.Bundle, bool) {
	user, err := h.userStore.GetByID(auth.UserID(r.Context()))
	if err != nil {
		writeStoreError(w, h.logger, "get user", err)
		return nil, false
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return nil, false
	}
	bundle, err := h.collector.Collect(user)
	if err != nil {
		writeStoreError(w, h.logger, "collect export", err)
		return nil, false
	}
	return bundle, true
}
