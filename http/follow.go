package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"yatube/auth"
	"yatube/domain"
	"yatube/errs"
)

// registerFollowRoutes is a helper for registering all follow routes.
func (s *Server) registerFollowRoutes(r *mux.Router) {
	r.HandleFunc("/follow/", s.requireAuth(s.handleFollowIndex)).Methods("GET")
	r.HandleFunc("/profile/{username}/follow/", s.requireAuth(s.handleFollow)).Methods("GET")
	r.HandleFunc("/profile/{username}/unfollow/", s.requireAuth(s.handleUnfollow)).Methods("GET")
}

// handleFollowIndex handles the route "GET /follow/".
// It returns a page of posts written by the authors the authed user follows.
func (s *Server) handleFollowIndex(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	page, err := s.ps.Page(r.Context(), domain.PostFilter{FollowerID: &user.ID}, pageNumber(r))
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, &feedResponse{Page: page})
}

// handleFollow handles the route "GET /profile/:username/follow/".
// Following yourself is silently ignored, following twice changes nothing.
func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	// Fetch the author to be followed.
	author, err := s.us.ByUsername(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	if author.ID != user.ID {
		err = s.fs.Create(r.Context(), &domain.Follow{UserID: user.ID, AuthorID: author.ID})
		if err != nil {
			errs.ReturnError(w, r, err)
			return
		}
	}

	http.Redirect(w, r, profileURL(author.Username), http.StatusFound)
}

// handleUnfollow handles the route "GET /profile/:username/unfollow/".
// Unfollowing an author you don't follow changes nothing.
func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	// Fetch the author to be unfollowed.
	author, err := s.us.ByUsername(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	err = s.fs.Delete(r.Context(), &domain.Follow{UserID: user.ID, AuthorID: author.ID})
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	http.Redirect(w, r, profileURL(author.Username), http.StatusFound)
}
