package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/hlog"

	"transport-vendor-api/internal/apierror"
	"transport-vendor-api/pkg/importer"
)

// ImportObserver is told about every finished import.
type ImportObserver interface {
	ObserveImport(sum importer.Summary, err error)
}

// ImportsHandler handles spreadsheet uploads for vendor import
type ImportsHandler struct {
	Store    importer.Store
	MaxBytes int64
	Observer ImportObserver
}

// NewImportsHandler creates a new imports handler
func NewImportsHandler(st importer.Store) *ImportsHandler {
	return &ImportsHandler{
		Store:    st,
		MaxBytes: importer.MaxBytes,
	}
}

// UploadVendors imports the multipart "file" field. A dry_run=true form value
// validates the rows without inserting them.
func (h *ImportsHandler) UploadVendors(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	// room for the multipart framing around a file of MaxBytes
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes+1<<20)

	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		apierror.Write(w, http.StatusBadRequest, apierror.New("No file uploaded").
			WithDetails("content-type must be multipart/form-data"))
		return
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierror.Write(w, http.StatusBadRequest, apierror.New("File too large").
				WithDetails("maximum upload size is 5 MB"))
			return
		}
		apierror.Write(w, http.StatusBadRequest, apierror.New("Invalid upload").WithDetails(err.Error()))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apierror.Write(w, http.StatusBadRequest, apierror.New("No file uploaded"))
		return
	}
	defer file.Close()

	if header.Size > h.MaxBytes {
		apierror.Write(w, http.StatusBadRequest, apierror.New("File too large").
			WithDetails("maximum upload size is 5 MB"))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		apierror.Write(w, http.StatusBadRequest, apierror.New("Invalid upload").WithDetails(err.Error()))
		return
	}

	sum, err := importer.ImportVendors(r.Context(), h.Store, data, header.Filename, header.Header.Get("Content-Type"), importer.Options{
		DryRun: r.FormValue("dry_run") == "true",
		Logger: *log,
	})
	if h.Observer != nil {
		h.Observer.ObserveImport(sum, err)
	}

	var invalid *importer.InvalidFileError
	switch {
	case errors.Is(err, importer.ErrEmptyFile):
		apierror.Write(w, http.StatusBadRequest, apierror.New("File is empty"))
		return
	case errors.As(err, &invalid):
		apierror.Write(w, http.StatusBadRequest, apierror.New(invalid.Reason))
		return
	case err != nil:
		log.Error().Err(err).Str("filename", header.Filename).Msg("vendor import failed")
		apierror.Write(w, http.StatusInternalServerError, apierror.New("Import failed").WithDetails(err.Error()))
		return
	}

	apierror.WriteJSON(w, http.StatusOK, sum)
}

// DownloadTemplate serves the sample import workbook.
func (h *ImportsHandler) DownloadTemplate(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := importer.WriteTemplate(&buf); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("build import template")
		apierror.Write(w, http.StatusInternalServerError, apierror.New("Failed to generate template"))
		return
	}
	w.Header().Set("Content-Type", importer.MediaTypeXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="`+importer.TemplateFilename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}
