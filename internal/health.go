package internal

import (
	"context"
	"errors"
	"net/http"
	"time"

	"transport-vendor-api/internal/apierror"
	"transport-vendor-api/internal/models"
)

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
	Hint     string `json:"hint,omitempty"`
}

// health reports liveness and does a live round trip to the database.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		resp := healthResponse{Status: "degraded", Database: "disconnected", Error: err.Error()}
		var down *models.StoreUnavailableError
		if errors.As(err, &down) {
			resp.Hint = down.Hint
		}
		apierror.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	apierror.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Database: "connected"})
}
