package internal

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"transport-vendor-api/internal/apierror"
	"transport-vendor-api/internal/models"
)

const maxBodyBytes = 1 << 20

func (s *Server) listVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := s.Store.List(r.Context(), parseListParams(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	apierror.WriteJSON(w, http.StatusOK, vendors)
}

func (s *Server) getVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		apierror.Write(w, http.StatusBadRequest, apierror.New("Invalid vendor id"))
		return
	}
	v, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	apierror.WriteJSON(w, http.StatusOK, v)
}

// decodeVendor reads a VendorInput. Notes in the body are ignored; they only
// change through the notes endpoint.
func decodeVendor(w http.ResponseWriter, r *http.Request) (models.VendorInput, bool) {
	var in models.VendorInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		apierror.Write(w, http.StatusBadRequest, apierror.New("Invalid JSON").WithDetails(err.Error()))
		return in, false
	}
	in.Notes = nil
	return in, true
}

func (s *Server) createVendor(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeVendor(w, r)
	if !ok {
		return
	}
	id, err := s.Store.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	hlog.FromRequest(r).Info().Int64("vendor_id", id).Msg("vendor created")
	apierror.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":      id,
		"message": "Vendor created successfully",
	})
}

func (s *Server) updateVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		apierror.Write(w, http.StatusBadRequest, apierror.New("Invalid vendor id"))
		return
	}
	in, ok := decodeVendor(w, r)
	if !ok {
		return
	}
	v, err := s.Store.Update(r.Context(), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	apierror.WriteJSON(w, http.StatusOK, v)
}

func (s *Server) deleteVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		apierror.Write(w, http.StatusBadRequest, apierror.New("Invalid vendor id"))
		return
	}
	if err := s.Store.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	hlog.FromRequest(r).Info().Int64("vendor_id", id).Msg("vendor deleted")
	apierror.WriteJSON(w, http.StatusOK, map[string]string{"message": "Vendor deleted successfully"})
}

func (s *Server) appendNote(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		apierror.Write(w, http.StatusBadRequest, apierror.New("Invalid vendor id"))
		return
	}
	var body struct {
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		apierror.Write(w, http.StatusBadRequest, apierror.New("Invalid JSON").WithDetails(err.Error()))
		return
	}
	notes, err := s.Store.AppendNote(r.Context(), id, body.Comment)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	apierror.WriteJSON(w, http.StatusOK, notes)
}
