package internal

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/hlog"

	"transport-vendor-api/internal/apierror"
	"transport-vendor-api/internal/models"
)

// writeError maps a store or validation error to its status and envelope.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr  *models.ValidationError
		dup   *models.DuplicateError
		down  *models.StoreUnavailableError
		pgErr *pgconn.PgError
	)
	log := hlog.FromRequest(r)

	switch {
	case errors.As(err, &verr):
		apierror.Write(w, http.StatusBadRequest, apierror.New(verr.Message))
	case errors.Is(err, models.ErrNotFound):
		apierror.Write(w, http.StatusNotFound, apierror.New("Vendor not found"))
	case errors.As(err, &dup):
		resp := apierror.New(dup.Error())
		resp.ExistingID = dup.ExistingID
		apierror.Write(w, http.StatusConflict, resp)
	case errors.As(err, &down):
		log.Error().Err(down.Err).Str("cause", down.Cause).Msg("database unavailable")
		if s.Metrics != nil {
			s.Metrics.ObserveStoreUnavailable(down.Cause)
		}
		resp := apierror.New("Database unavailable").WithDetails(down.Error())
		resp.Hint = down.Hint
		apierror.Write(w, http.StatusServiceUnavailable, resp)
	case errors.As(err, &pgErr):
		log.Error().Err(err).Str("sqlstate", pgErr.Code).Msg("database error")
		apierror.Write(w, http.StatusInternalServerError, apierror.New("Database error").WithDetails(pgErr.Message))
	default:
		log.Error().Err(err).Msg("unhandled error")
		apierror.Write(w, http.StatusInternalServerError, apierror.New("Internal server error"))
	}
}
