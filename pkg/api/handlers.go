package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/pchunk/pkg/archive"
	"github.com/ssargent/pchunk/pkg/codec"
	"github.com/ssargent/pchunk/pkg/container"
)

const contentTypePNG = "image/png"

// Server holds the API server state
type Server struct {
	store   ImageStore
	config  ServerConfig
	metrics *Metrics
}

// NewServer creates a new API server
func NewServer(store ImageStore, config ServerConfig, metrics *Metrics) *Server {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 32 << 20
	}
	return &Server{
		store:   store,
		config:  config,
		metrics: metrics,
	}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleInspect godoc
//
//	@Summary		Inspect a PNG
//	@Description	Decode the request body and report every selected chunk
//	@Tags			chunks
//	@Accept			octet-stream
//	@Produce		json
//	@Param			body	body		[]byte	true	"PNG file"
//	@Param			type	query		string	false	"Comma separated chunk types to keep"
//	@Param			index	query		string	false	"Comma separated record indices to keep"
//	@Param			limit	query		int		false	"Maximum number of chunks"
//	@Param			mode	query		string	false	"auto, strict or heuristic"
//	@Param			text	query		bool	false	"Decode tEXt, zTXt and iTXt chunks"
//	@Success		200		{object}	InspectResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		413		{object}	APIResponse
//	@Router			/inspect [post]
//	@Security		ApiKeyAuth
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	c, ok := s.decodeSelected(w, body, r.URL.Query())
	if !ok {
		return
	}

	sendSuccess(w, inspectResponse("", c, r.URL.Query()))
}

// handleRepair godoc
//
//	@Summary		Repair chunk CRCs
//	@Description	Decode the request body, recompute every CRC and return the rendered PNG
//	@Tags			chunks
//	@Accept			octet-stream
//	@Produce		png
//	@Param			body	body		[]byte	true	"PNG file"
//	@Success		200		{string}	byte
//	@Failure		400		{object}	APIResponse
//	@Router			/repair [post]
//	@Security		ApiKeyAuth
func (s *Server) handleRepair(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	c, ok := s.decodeSelected(w, body, r.URL.Query())
	if !ok {
		return
	}

	sendBinary(w, contentTypePNG, c.RepairAll().Render())
}

// handleUpload godoc
//
//	@Summary		Archive a PNG
//	@Description	Store the request body indexed by its chunk types; returns its id and chunk report
//	@Tags			images
//	@Accept			octet-stream
//	@Produce		json
//	@Param			body	body		[]byte	true	"PNG file"
//	@Param			text	query		bool	false	"Decode tEXt, zTXt and iTXt chunks"
//	@Success		200		{object}	InspectResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		500		{object}	APIResponse
//	@Router			/images [post]
//	@Security		ApiKeyAuth
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	crit, err := criteriaFromQuery(r.URL.Query())
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, ok := s.decode(w, body, r.URL.Query())
	if !ok {
		return
	}

	sel, err := c.Select(crit)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := s.store.Put(body, c.Types()...)
	s.metrics.RecordArchiveOperation("put", err == nil)
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to archive image: %v", err), http.StatusInternalServerError)
		return
	}

	sendSuccess(w, inspectResponse(id.String(), sel, r.URL.Query()))
}

// handleListImages godoc
//
//	@Summary		List archived images
//	@Description	List image ids oldest first, optionally only those holding a chunk type
//	@Tags			images
//	@Produce		json
//	@Param			type	query		string	false	"Chunk type the image must contain"
//	@Success		200		{array}		string
//	@Failure		400		{object}	APIResponse
//	@Failure		500		{object}	APIResponse
//	@Router			/images [get]
//	@Security		ApiKeyAuth
func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	var (
		ids []ksuid.KSUID
		err error
	)
	if name := r.URL.Query().Get("type"); name != "" {
		tag, perr := codec.ParseTag(name)
		if perr != nil {
			sendError(w, perr.Error(), http.StatusBadRequest)
			return
		}
		ids, err = s.store.ListByType(tag)
	} else {
		ids, err = s.store.List()
	}
	s.metrics.RecordArchiveOperation("list", err == nil)
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to list images: %v", err), http.StatusInternalServerError)
		return
	}

	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	sendSuccess(w, out)
}

// handleGetImage godoc
//
//	@Summary		Report an archived image
//	@Tags			images
//	@Produce		json
//	@Param			id		path		string	true	"Image id"
//	@Param			type	query		string	false	"Comma separated chunk types to keep"
//	@Param			index	query		string	false	"Comma separated record indices to keep"
//	@Param			limit	query		int		false	"Maximum number of chunks"
//	@Param			text	query		bool	false	"Decode tEXt, zTXt and iTXt chunks"
//	@Success		200		{object}	InspectResponse
//	@Failure		404		{object}	APIResponse
//	@Router			/images/{id} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	id, body, ok := s.fetch(w, r)
	if !ok {
		return
	}

	c, ok := s.decodeSelected(w, body, r.URL.Query())
	if !ok {
		return
	}

	sendSuccess(w, inspectResponse(id.String(), c, r.URL.Query()))
}

// handleGetRaw godoc
//
//	@Summary		Render an archived image
//	@Description	Render the selected chunks, optionally with every CRC recomputed
//	@Tags			images
//	@Produce		png
//	@Param			id		path		string	true	"Image id"
//	@Param			repair	query		bool	false	"Recompute CRCs"
//	@Success		200		{string}	byte
//	@Failure		404		{object}	APIResponse
//	@Router			/images/{id}/raw [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGetRaw(w http.ResponseWriter, r *http.Request) {
	_, body, ok := s.fetch(w, r)
	if !ok {
		return
	}

	c, ok := s.decodeSelected(w, body, r.URL.Query())
	if !ok {
		return
	}

	if repair, _ := strconv.ParseBool(r.URL.Query().Get("repair")); repair {
		c = c.RepairAll()
	}

	sendBinary(w, contentTypePNG, c.Render())
}

// handleGetChunk godoc
//
//	@Summary		Extract one chunk
//	@Description	Return the serialized chunk with the given record index
//	@Tags			images
//	@Produce		octet-stream
//	@Param			id		path		string	true	"Image id"
//	@Param			index	path		int		true	"Record index"
//	@Success		200		{string}	byte
//	@Failure		404		{object}	APIResponse
//	@Router			/images/{id}/chunks/{index} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGetChunk(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		sendError(w, "Invalid chunk index", http.StatusBadRequest)
		return
	}

	_, body, ok := s.fetch(w, r)
	if !ok {
		return
	}

	c, ok := s.decode(w, body, r.URL.Query())
	if !ok {
		return
	}

	sel, err := c.Select(container.Criteria{Indices: []int{index}})
	if err != nil || sel.Len() == 0 {
		sendError(w, fmt.Sprintf("Chunk %d not found", index), http.StatusNotFound)
		return
	}

	part := sel.Extract()[0]
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", part.Name))
	sendBinary(w, "application/octet-stream", part.Data)
}

// handleDeleteImage godoc
//
//	@Summary		Delete an archived image
//	@Tags			images
//	@Produce		json
//	@Param			id	path		string	true	"Image id"
//	@Success		200	{object}	map[string]string
//	@Failure		404	{object}	APIResponse
//	@Router			/images/{id} [delete]
//	@Security		ApiKeyAuth
func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	err := s.store.Delete(id)
	s.metrics.RecordArchiveOperation("delete", err == nil || errors.Is(err, archive.ErrNotFound))
	if errors.Is(err, archive.ErrNotFound) {
		sendError(w, "Image not found", http.StatusNotFound)
		return
	}
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to delete image: %v", err), http.StatusInternalServerError)
		return
	}

	sendSuccess(w, map[string]string{"message": "Image deleted successfully"})
}

// readBody reads the request body up to the configured limit
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return nil, false
		}
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

// fetch loads an archived container named by the {id} URL parameter
func (s *Server) fetch(w http.ResponseWriter, r *http.Request) (ksuid.KSUID, []byte, bool) {
	id, ok := parseID(w, r)
	if !ok {
		return id, nil, false
	}

	body, err := s.store.Get(id)
	s.metrics.RecordArchiveOperation("get", err == nil || errors.Is(err, archive.ErrNotFound))
	if errors.Is(err, archive.ErrNotFound) {
		sendError(w, "Image not found", http.StatusNotFound)
		return id, nil, false
	}
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to read image: %v", err), http.StatusInternalServerError)
		return id, nil, false
	}
	return id, body, true
}

func parseID(w http.ResponseWriter, r *http.Request) (ksuid.KSUID, bool) {
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "Invalid image id", http.StatusBadRequest)
		return ksuid.Nil, false
	}
	return id, true
}

// decode loads a container honoring the mode query parameter
func (s *Server) decode(w http.ResponseWriter, body []byte, q url.Values) (*container.Container, bool) {
	mode := s.config.Mode
	if m := q.Get("mode"); m != "" {
		var err error
		if mode, err = container.ParseMode(m); err != nil {
			sendError(w, err.Error(), http.StatusBadRequest)
			return nil, false
		}
	}

	c, err := container.LoadWith(body, container.Options{Mode: mode})
	s.metrics.RecordDecode(c, len(body), err)
	switch {
	case errors.Is(err, codec.ErrBadSignature):
		sendError(w, "Body is not a PNG file", http.StatusBadRequest)
		return nil, false
	case err != nil:
		sendError(w, fmt.Sprintf("Failed to decode image: %v", err), http.StatusUnprocessableEntity)
		return nil, false
	}
	return c, true
}

// decodeSelected decodes body and applies the selection query parameters
func (s *Server) decodeSelected(w http.ResponseWriter, body []byte, q url.Values) (*container.Container, bool) {
	crit, err := criteriaFromQuery(q)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	c, ok := s.decode(w, body, q)
	if !ok {
		return nil, false
	}

	sel, err := c.Select(crit)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return sel, true
}

// criteriaFromQuery reads type, index and limit; list values may be
// repeated or comma separated.
func criteriaFromQuery(q url.Values) (container.Criteria, error) {
	var crit container.Criteria

	for _, name := range splitList(q["type"]) {
		tag, err := codec.ParseTag(name)
		if err != nil {
			return crit, err
		}
		crit.Tags = append(crit.Tags, tag)
	}

	for _, v := range splitList(q["index"]) {
		i, err := strconv.Atoi(v)
		if err != nil {
			return crit, fmt.Errorf("invalid index %q", v)
		}
		crit.Indices = append(crit.Indices, i)
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return crit, fmt.Errorf("invalid limit %q", v)
		}
		crit.Limit = limit
	}

	return crit, nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// inspectResponse reports c; text chunks are decoded only with ?text=true.
func inspectResponse(id string, c *container.Container, q url.Values) InspectResponse {
	text, _ := strconv.ParseBool(q.Get("text"))
	return InspectResponse{
		ID:      id,
		Summary: c.Summary(),
		Chunks:  c.ReportWith(container.ReportOptions{Text: text}),
	}
}
