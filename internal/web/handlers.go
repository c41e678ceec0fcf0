package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/lanequote/internal/errors"
	"github.com/hpungsan/lanequote/internal/ops"
	"github.com/hpungsan/lanequote/internal/quote"
)

const (
	maxJSONBytes   = 1 << 20
	maxUploadBytes = 20 << 20
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	svc *ops.Service
}

// HandleQuote handles POST /quotes. ?format=html returns the rendered
// document instead of the JSON result.
func (h *Handlers) HandleQuote(w http.ResponseWriter, r *http.Request) {
	var input ops.QuoteInput
	if err := decodeJSON(w, r, &input); err != nil {
		renderError(w, err)
		return
	}

	result, err := h.svc.Quote(r.Context(), input)
	if err != nil {
		renderError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "html" {
		if result.Document == nil {
			renderJSON(w, http.StatusUnprocessableEntity, result)
			return
		}
		renderAttachment(w, "text/html; charset=utf-8", result.Document.Name, []byte(result.Document.HTML))
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleBatch handles POST /batches: a multipart upload with the workbook in
// the "file" part. The priced workbook is returned unless ?format=json.
func (h *Handlers) HandleBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		renderError(w, errors.NewInvalidRequest(fmt.Sprintf("invalid upload: %v", err)))
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, header, err := r.FormFile("file")
	if err != nil {
		renderError(w, errors.NewInvalidRequest("file is required"))
		return
	}
	defer file.Close()

	save, err := parseBoolParam(r.FormValue("save"))
	if err != nil {
		renderError(w, errors.NewInvalidRequest("save must be a boolean"))
		return
	}

	result, err := h.svc.Batch(r.Context(), ops.BatchInput{
		Workbook:   file,
		FileName:   header.Filename,
		Currency:   r.FormValue("currency"),
		PreparedBy: r.FormValue("prepared_by"),
		Client: quote.Client{
			Type:        r.FormValue("client_type"),
			Company:     r.FormValue("client_company"),
			ContactName: r.FormValue("contact_name"),
			Email:       r.FormValue("contact_email"),
			Phone:       r.FormValue("contact_phone"),
		},
		Save: save,
	})
	if err != nil {
		renderError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		renderJSON(w, http.StatusOK, result)
		return
	}
	renderAttachment(w, xlsxContentType, result.WorkbookName, result.Workbook)
}

// HandleTerms handles GET /terms?from=&to=.
func (h *Handlers) HandleTerms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.svc.Terms(r.Context(), ops.TermsInput{
		FromCountry: q.Get("from"),
		ToCountry:   q.Get("to"),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleCurrencies handles GET /currencies.
func (h *Handlers) HandleCurrencies(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Currencies(r.Context())
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleRequests handles GET /requests?limit=&offset=.
func (h *Handlers) HandleRequests(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r, "limit")
	if err != nil {
		renderError(w, err)
		return
	}
	offset, err := parseIntParam(r, "offset")
	if err != nil {
		renderError(w, err)
		return
	}

	result, err := h.svc.Log(r.Context(), ops.LogInput{Limit: limit, Offset: offset})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

func parseIntParam(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.NewInvalidRequest(name + " must be an integer")
	}
	return v, nil
}

func parseBoolParam(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}
