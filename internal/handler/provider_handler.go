// internal/handler/provider_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jkimani/textflow-backend/internal/apperrors"
	"github.com/jkimani/textflow-backend/internal/model"
	"github.com/jkimani/textflow-backend/internal/provider"
)

// ProviderHandler exposes the settings-flow surface: verifying stored
// credentials against the vendor and reading account health.
type ProviderHandler struct {
	Factory *provider.Factory
}

func (h *ProviderHandler) VerifyProvider(w http.ResponseWriter, r *http.Request) {
	tenantID, channel, ok := tenantChannelParams(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := h.Factory.VerifyProvider(r.Context(), tenantID, channel); err != nil {
		w.WriteHeader(factoryErrorStatus(err))
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
}

func (h *ProviderHandler) ProviderStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, channel, ok := tenantChannelParams(w, r)
	if !ok {
		return
	}

	p, err := h.Factory.GetProvider(tenantID, channel)
	if err != nil {
		http.Error(w, err.Error(), factoryErrorStatus(err))
		return
	}
	status, err := p.GetStatus(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func tenantChannelParams(w http.ResponseWriter, r *http.Request) (int, model.Channel, bool) {
	tenantID, err := strconv.Atoi(chi.URLParam(r, "tenantID"))
	if err != nil {
		http.Error(w, "invalid tenant id", http.StatusBadRequest)
		return 0, "", false
	}
	channel := model.Channel(chi.URLParam(r, "channel"))
	switch channel {
	case model.ChannelWhatsApp, model.ChannelSMS, model.ChannelEmail:
	default:
		http.Error(w, "invalid channel", http.StatusBadRequest)
		return 0, "", false
	}
	return tenantID, channel, true
}

func factoryErrorStatus(err error) int {
	var tenantNotFound *apperrors.ErrTenantNotFound
	var notConfigured *apperrors.ErrChannelNotConfigured
	var invalidCreds *apperrors.ErrInvalidCredentials
	var unsupported *apperrors.ErrUnsupportedChannel
	switch {
	case errors.As(err, &tenantNotFound):
		return http.StatusNotFound
	case errors.As(err, &notConfigured), errors.As(err, &unsupported):
		return http.StatusBadRequest
	case errors.As(err, &invalidCreds):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
