package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"yatube/domain"
	"yatube/errs"
)

// registerGroupRoutes is a helper for registering all group routes.
func (s *Server) registerGroupRoutes(r *mux.Router) {
	r.HandleFunc("/group/{slug}/", s.handleGroupPosts).Methods("GET")
}

// handleGroupPosts handles the route "GET /group/:slug/".
// It returns the group and a page of its posts.
func (s *Server) handleGroupPosts(w http.ResponseWriter, r *http.Request) {
	// Fetch the group by the slug in the url.
	group, err := s.gs.BySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// Fetch the requested page of the group's posts.
	page, err := s.ps.Page(r.Context(), domain.PostFilter{GroupID: &group.ID}, pageNumber(r))
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, &feedResponse{Group: group, Page: page})
}
