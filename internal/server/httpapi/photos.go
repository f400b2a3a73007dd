package httpapi

import "net/http"

func (s *Server) uploadURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ContentType string `json:"contentType"`
	}
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	key, url, err := s.photos.PresignUpload(r.Context(), UserID(r.Context()), req.ContentType)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "url": url})
}

func (s *Server) downloadURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	url, err := s.photos.PresignDownload(r.Context(), UserID(r.Context()), req.Key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
