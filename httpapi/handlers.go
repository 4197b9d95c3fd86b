package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/optizone/rose/fsmanager"
)

const greeting = "Hello, world!"

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, greeting)
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseUUID(w, r)
	if !ok {
		return
	}

	stream, err := s.manager.Get(r.Context(), id, imageExt)
	if err != nil {
		s.writeError(w, r, "get", id, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	if _, err := io.Copy(w, stream); err != nil {
		s.log().Warn("httpapi: response write failed", "uuid", id, "err", err)
	}
}

func (s *Server) handlePostImage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseUUID(w, r)
	if !ok {
		return
	}

	body := r.Body
	if s.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	}

	if err := s.manager.Insert(r.Context(), id, imageExt, body); err != nil {
		s.writeError(w, r, "insert", id, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleForceLoadCache(w http.ResponseWriter, r *http.Request) {
	var pairs [][2]string
	if err := json.NewDecoder(r.Body).Decode(&pairs); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	items := make([]fsmanager.Item, 0, len(pairs))
	for _, pair := range pairs {
		id, err := uuid.Parse(pair[0])
		if err != nil {
			http.Error(w, "malformed uuid: "+pair[0], http.StatusBadRequest)
			return
		}
		items = append(items, fsmanager.Item{ID: id, Ext: pair[1]})
	}

	if err := s.manager.Preload(r.Context(), items); err != nil {
		s.writeError(w, r, "preload", uuid.Nil, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) parseUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := mux.Vars(r)["uuid"]
	id, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "malformed uuid: "+raw, http.StatusBadRequest)
		return uuid.UUID{}, false
	}
	return id, true
}

// writeError maps a core error to a status code and logs the operation.
// Status mapping goes through errors.Is, never string matching, so wrapped
// errors from the fsmanager layer resolve correctly.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, id uuid.UUID, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, fsmanager.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, fsmanager.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, fsmanager.ErrStreamAborted):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.log().Error("httpapi: operation failed", "op", op, "uuid", id, "err", err)
	}
	http.Error(w, err.Error(), status)
}
