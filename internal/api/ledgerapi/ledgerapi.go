// Package ledgerapi exposes the ledger over the public REST surface.
package ledgerapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BearBump/TrackLedger/internal/codegen"
	"github.com/BearBump/TrackLedger/internal/models"
	"github.com/BearBump/TrackLedger/internal/services/ledger"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

type API struct {
	svc *ledger.Service
}

func New(svc *ledger.Service) *API {
	return &API{svc: svc}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/api/create", a.handleCreate)
	r.Post("/api/add", a.handleAdd)
	r.Get("/api/track/{code}", a.handleTrack)
	r.Get("/api/share-link", a.handleShareLink)
	r.Get("/api/shared", a.handleShared)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	return r
}

type createRequest struct {
	PIN         string `json:"pin"`
	InitialText string `json:"initialText"`
}

type addRequest struct {
	PIN  string `json:"pin"`
	Code string `json:"code"`
	Text string `json:"text"`
}

type historyResponse struct {
	Code    string                `json:"code"`
	Updates []models.HistoryEntry `json:"updates"`
}

type addResponse struct {
	OK      bool                  `json:"ok"`
	Updates []models.HistoryEntry `json:"updates"`
}

type shareLinkResponse struct {
	URL     string `json:"url"`
	FullURL string `json:"fullUrl"`
	Token   string `json:"token"`
}

func (a *API) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec, err := a.svc.Create(r.Context(), req.PIN, req.InitialText)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Code: rec.Code, Updates: rec.Updates})
}

func (a *API) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec, err := a.svc.AppendUpdate(r.Context(), req.PIN, req.Code, req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, addResponse{OK: true, Updates: rec.Updates})
}

func (a *API) handleTrack(w http.ResponseWriter, r *http.Request) {
	rec, err := a.svc.GetHistory(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Code: rec.Code, Updates: rec.Updates})
}

func (a *API) handleShareLink(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	tok, err := a.svc.IssueLink(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// The legacy front end expects key=value segments joined by "/" after a
	// literal "?", not standard query syntax. Kept byte-exact.
	path := "/api/shared?trackingcode=" + code + "/token=" + tok
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	writeJSON(w, http.StatusOK, shareLinkResponse{
		URL:     path,
		FullURL: scheme + "://" + r.Host + path,
		Token:   tok,
	})
}

func (a *API) handleShared(w http.ResponseWriter, r *http.Request) {
	code, tok := sharedParams(r.URL.RawQuery)
	rec, err := a.svc.RedeemLink(r.Context(), code, tok)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Code: rec.Code, Updates: rec.Updates})
}

// sharedParams reads trackingcode and token from the raw query, accepting
// both the legacy "/"-joined segments and standard "&" syntax.
func sharedParams(rawQuery string) (code, tok string) {
	parts := strings.FieldsFunc(rawQuery, func(r rune) bool {
		return r == '/' || r == '&'
	})
	for _, part := range parts {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch k {
		case "trackingcode":
			code = v
		case "token":
			tok = v
		}
	}
	return code, tok
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidPIN):
		writeError(w, http.StatusForbidden, "Invalid PIN")
	case errors.Is(err, ledger.ErrForbidden):
		writeError(w, http.StatusForbidden, "invalid share token")
	case errors.Is(err, ledger.ErrBadCodeFormat), errors.Is(err, ledger.ErrEmptyText):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, "code not found")
	case errors.Is(err, codegen.ErrExhausted):
		writeError(w, http.StatusInternalServerError, "code generation exhausted")
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
