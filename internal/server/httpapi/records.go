package httpapi

import (
	"io"
	"net/http"
)

func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(r.Body)
}

// list serves GET /{collection} and, with ?id=, GET of a single record.
func (s *Server) list(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := UserID(r.Context())

		if r.URL.Query().Has("id") {
			rec, err := s.records.Get(r.Context(), userID, collection, r.URL.Query().Get("id"))
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, rec)
			return
		}

		recs, err := s.records.List(r.Context(), userID, collection)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{collection: recs})
	}
}

func (s *Server) create(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		rec, err := s.records.Create(r.Context(), UserID(r.Context()), collection, body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

func (s *Server) update(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		rec, err := s.records.Update(r.Context(), UserID(r.Context()), collection, body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) remove(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if err := s.records.Delete(r.Context(), UserID(r.Context()), collection, body); err != nil {
			s.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
