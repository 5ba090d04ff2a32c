package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/marmos91/bucketfs/pkg/contents"
	"github.com/marmos91/bucketfs/pkg/namespace"
)

// Handler serves the contents API.
type Handler struct {
	manager      *contents.Manager
	maxBodyBytes int64
}

// NewHandler creates a Handler over manager.
func NewHandler(manager *contents.Manager, maxBodyBytes int64) *Handler {
	return &Handler{manager: manager, maxBodyBytes: maxBodyBytes}
}

// contentsPath extracts the API path after /api/contents. Encoded
// delimiters are accepted.
func contentsPath(r *http.Request) string {
	raw := strings.Trim(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// saveRequest is the body of PUT. Type is a pointer so a missing type can
// be told apart from "file".
type saveRequest struct {
	Type    *namespace.EntryType `json:"type"`
	Format  contents.Format      `json:"format"`
	Content any                  `json:"content"`
}

type renameRequest struct {
	Path string `json:"path"`
}

type createRequest struct {
	CopyFrom string               `json:"copy_from"`
	Type     *namespace.EntryType `json:"type"`
	Ext      string               `json:"ext"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	err := json.NewDecoder(body).Decode(v)
	if errors.Is(err, io.EOF) && optional {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: bad request body: %v", contents.ErrInvalidModel, err)
	}
	return nil
}

// Get handles GET /api/contents/*.
//
// Query parameters: content=0 omits content, type forces the model type,
// format selects text or base64 for files.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := contents.GetOptions{
		Content: q.Get("content") != "0",
		Format:  contents.Format(q.Get("format")),
	}
	if t := q.Get("type"); t != "" {
		parsed, err := namespace.ParseEntryType(t)
		if err != nil {
			writeError(w, fmt.Errorf("%w: %v", contents.ErrInvalidModel, err))
			return
		}
		opts.Type = &parsed
	}

	model, err := h.manager.Get(r.Context(), contentsPath(r), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model)
}

// Save handles PUT /api/contents/*. Responds 201 when the path did not
// exist before and 200 when it was overwritten.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	p := contentsPath(r)

	var req saveRequest
	if err := h.decode(w, r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	if req.Type == nil {
		writeError(w, fmt.Errorf("%w: no model type provided", contents.ErrInvalidModel))
		return
	}

	existed, err := h.exists(r, p)
	if err != nil {
		writeError(w, err)
		return
	}

	model, err := h.manager.Save(r.Context(), p, &contents.Model{Type: *req.Type, Format: req.Format, Content: req.Content})
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if !existed {
		status = http.StatusCreated
		w.Header().Set("Location", locationOf(model.Path))
	}
	writeJSON(w, status, model)
}

// Rename handles PATCH /api/contents/* with body {"path": "<new path>"}.
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := h.decode(w, r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	if strings.Trim(req.Path, "/") == "" {
		writeError(w, fmt.Errorf("%w: missing destination path", contents.ErrInvalidModel))
		return
	}

	if err := h.manager.Rename(r.Context(), contentsPath(r), req.Path); err != nil {
		writeError(w, err)
		return
	}

	model, err := h.manager.Get(r.Context(), req.Path, contents.GetOptions{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model)
}

// Create handles POST /api/contents/*, where the path is a directory.
// With copy_from the file is copied into it, otherwise an untitled
// entry of the requested type and extension is created.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	dir := contentsPath(r)

	var req createRequest
	if err := h.decode(w, r, &req, true); err != nil {
		writeError(w, err)
		return
	}

	var (
		model *contents.Model
		err   error
	)
	if req.CopyFrom != "" {
		model, err = h.manager.Copy(r.Context(), req.CopyFrom, dir)
	} else {
		model, err = h.manager.NewUntitled(r.Context(), dir, req.Type, req.Ext)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Location", locationOf(model.Path))
	writeJSON(w, http.StatusCreated, model)
}

// Delete handles DELETE /api/contents/*.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Delete(r.Context(), contentsPath(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) exists(r *http.Request, p string) (bool, error) {
	ok, err := h.manager.FileExists(r.Context(), p)
	if err != nil || ok {
		return ok, err
	}
	if strings.Trim(p, "/") == "" {
		return true, nil
	}
	return h.manager.DirExists(r.Context(), p)
}

func locationOf(p string) string {
	return "/api/contents/" + (&url.URL{Path: p}).EscapedPath()
}
