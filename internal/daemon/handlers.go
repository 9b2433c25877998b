package daemon

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"lifelog/internal/api"
	"lifelog/internal/services"
)

// maxUploadBytes bounds multipart request bodies; individual video
// files are validated again by the storage layer on write.
const maxUploadBytes = 512 << 20

// ownerFromRequest reads the acting account from the X-Owner-ID
// header. Identity management itself lives outside this service.
func ownerFromRequest(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get("X-Owner-ID"))
	if raw == "" {
		return 0, errors.New("missing X-Owner-ID header")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid X-Owner-ID header")
	}
	return id, nil
}

// statusForError maps service error markers onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrTransient),
		errors.Is(err, services.ErrExternalTool),
		errors.Is(err, services.ErrEngineUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	s.writeError(w, statusForError(err), err.Error())
}

func (s *apiServer) handleEntries(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	switch r.Method {
	case http.MethodGet:
		page, err := s.entries.List(r.Context(), ownerID, listParamsFromQuery(r))
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, page)
	case http.MethodPost:
		var req api.CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		view, err := s.entries.Create(r.Context(), ownerID, req)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, view)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	req := createRequestFromForm(r)
	contentType := header.Header.Get("Content-Type")
	view, err := s.entries.Upload(r.Context(), ownerID, header.Filename, contentType, header.Size, file, req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, view)
}

func (s *apiServer) handleEntryByID(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/entries/")
	idStr, action, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid entry id")
		return
	}

	switch action {
	case "":
		s.handleEntry(w, r, id, ownerID)
	case "favorite":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		view, err := s.entries.ToggleFavorite(r.Context(), id, ownerID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, view)
	case "reprocess":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := s.entries.Reprocess(r.Context(), id, ownerID); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *apiServer) handleEntry(w http.ResponseWriter, r *http.Request, id, ownerID int64) {
	switch r.Method {
	case http.MethodGet:
		view, err := s.entries.Get(r.Context(), id, ownerID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, view)
	case http.MethodPut:
		var req api.UpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		view, err := s.entries.Update(r.Context(), id, ownerID, req)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, view)
	case http.MethodDelete:
		if err := s.entries.Delete(r.Context(), id, ownerID); err != nil {
			s.writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func listParamsFromQuery(r *http.Request) api.ListParams {
	q := r.URL.Query()
	params := api.ListParams{
		Mood:          strings.TrimSpace(q.Get("mood")),
		Tag:           strings.TrimSpace(q.Get("tag")),
		Since:         strings.TrimSpace(q.Get("since")),
		Until:         strings.TrimSpace(q.Get("until")),
		FavoritesOnly: q.Get("favorites") == "true",
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		params.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil {
		params.Offset = offset
	}
	return params
}

func createRequestFromForm(r *http.Request) api.CreateRequest {
	req := api.CreateRequest{
		Title:      strings.TrimSpace(r.FormValue("title")),
		Note:       strings.TrimSpace(r.FormValue("note")),
		Mood:       strings.TrimSpace(r.FormValue("mood")),
		Location:   strings.TrimSpace(r.FormValue("location")),
		Weather:    strings.TrimSpace(r.FormValue("weather")),
		RecordedAt: strings.TrimSpace(r.FormValue("recordedAt")),
	}
	if v := r.FormValue("moodIntensity"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.MoodIntensity = n
		}
	}
	if v := r.FormValue("isPrivate"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			req.IsPrivate = &b
		}
	}
	if raw := strings.TrimSpace(r.FormValue("manualTags")); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				req.ManualTags = append(req.ManualTags, tag)
			}
		}
	}
	return req
}
