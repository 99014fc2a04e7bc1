package apiserver

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gorilla/mux"
	"github.com/gowso/bizsites/pkg/backend"
	"github.com/gowso/bizsites/pkg/db"
	"github.com/gowso/bizsites/pkg/lookup"
	"github.com/gowso/bizsites/pkg/model"
	"github.com/gowso/bizsites/pkg/version"
	"github.com/sirupsen/logrus"
)

const msgBusinessNotFound = "Business not found"

type handler struct {
	backend backend.Backend
}

func newHandler(b backend.Backend) *handler {
	return &handler{
		backend: b,
	}
}

func (h *handler) root(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, version.Get())
}

func (h *handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
}

func (h *handler) provision(w http.ResponseWriter, r *http.Request) {
	summary, err := h.backend.Provision(r.Context())
	if errors.Is(err, backend.ErrRunInProgress) {
		writeError(w, http.StatusConflict, err)
		return
	} else if err != nil {
		h.writeProvisionError(w, err)
		return
	}

	writeSuccess(w, summary)
}

// writeProvisionError answers a run that could not start or aborted before processing rows. Details and the stack
// are only exposed in development.
func (h *handler) writeProvisionError(w http.ResponseWriter, err error) {
	logrus.Errorf("provisioning run aborted: %v", err)

	resp := model.ProvisionErrorResponse{
		Error: "Provisioning failed: " + err.Error(),
	}
	var cfgErr *model.ConfigurationError
	if errors.As(err, &cfgErr) {
		resp.Error = "Configuration error: " + err.Error()
		resp.EnvStatus = h.backend.EnvStatus()
	}
	if h.backend.IsDevelopment() {
		resp.Details = err.Error()
		resp.Stack = string(debug.Stack())
	}

	writeJSON(w, http.StatusInternalServerError, resp)
}

func (h *handler) business(w http.ResponseWriter, r *http.Request) {
	setSecurityHeaders(w)

	query := r.URL.Query()
	resp, key, err := h.backend.Lookup(r.Context(), query.Get("business"), query.Get("subdomain"))
	switch {
	case errors.Is(err, lookup.ErrInvalidKey):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, lookup.ErrNotFound):
		writeJSON(w, http.StatusNotFound, model.NotFoundResponse{
			Error:        msgBusinessNotFound,
			QueriedValue: key,
		})
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		w.Header().Set("Cache-Control", "public, max-age=300")
		writeSuccess(w, resp)
	}
}

func (h *handler) sites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.backend.Sites(r.Context())
	if errors.Is(err, backend.ErrLedgerDisabled) {
		writeError(w, http.StatusNotFound, err)
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, sites)
}

func (h *handler) site(w http.ResponseWriter, r *http.Request) {
	site, err := h.backend.Site(r.Context(), mux.Vars(r)["label"])
	if errors.Is(err, backend.ErrLedgerDisabled) || errors.Is(err, db.ErrSiteNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, site)
}

// page serves the business page for a {label}.{domain} host.
func (h *handler) page(w http.ResponseWriter, r *http.Request) {
	setSecurityHeaders(w)

	doc, err := h.backend.RenderHost(r.Context(), r.Host)
	if errors.Is(err, lookup.ErrNotFound) || errors.Is(err, lookup.ErrInvalidKey) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(msgBusinessNotFound))
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write([]byte(doc))
}

func setSecurityHeaders(w http.ResponseWriter) {
	header := w.Header()
	header.Set("Content-Security-Policy", "default-src 'self'; frame-src 'self' https://www.google.com")
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("X-Frame-Options", "SAMEORIGIN")
	header.Set("X-XSS-Protection", "1; mode=block")
}
