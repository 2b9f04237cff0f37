package http

import (
	"bytes"
	"net/http"

	log "github.com/sirupsen/logrus"

	"yatube/cache"
)

// bodyRecorder passes a response through while keeping a copy of it.
type bodyRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (br *bodyRecorder) WriteHeader(status int) {
	br.status = status
	br.ResponseWriter.WriteHeader(status)
}

func (br *bodyRecorder) Write(b []byte) (int, error) {
	br.body.Write(b)
	return br.ResponseWriter.Write(b)
}

// cachePage serves a stored copy of the page while it is fresh. Pages are keyed by
// their full request uri, so every page number is cached on its own. Only
// successful responses are stored. A failing store never fails the request.
func (s *Server) cachePage(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.pages == nil {
			next(w, r)
			return
		}
		key := r.URL.RequestURI()

		page, ok, err := s.pages.Get(r.Context(), key)
		if err != nil {
			log.WithError(err).WithField("key", key).Warn("reading page cache")
		}
		if ok {
			w.Header().Set("Content-Type", page.ContentType)
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(page.Status)
			w.Write(page.Body)
			return
		}

		rec := &bodyRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		if rec.status != http.StatusOK {
			return
		}
		page = &cache.Page{
			Status:      rec.status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		}
		if err := s.pages.Set(r.Context(), key, page); err != nil {
			log.WithError(err).WithField("key", key).Warn("writing page cache")
		}
	}
}
