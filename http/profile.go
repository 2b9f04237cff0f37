package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"yatube/auth"
	"yatube/domain"
	"yatube/errs"
)

// registerProfileRoutes is a helper for registering all profile routes.
func (s *Server) registerProfileRoutes(r *mux.Router) {
	r.HandleFunc("/profile/{username}/", s.handleProfile).Methods("GET")
}

// handleProfile handles the route "GET /profile/:username/". It returns the author
// with their counts, whether the authed user follows them, and a page of their posts.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Fetch the author by the username in the url.
	author, err := s.us.ByUsername(ctx, mux.Vars(r)["username"])
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// Count their posts, followers and followings.
	if author.PostCount, err = s.us.CountPosts(ctx, author.ID); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if author.FollowerCount, err = s.us.CountFollowers(ctx, author.ID); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if author.FollowingCount, err = s.us.CountFollowing(ctx, author.ID); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// Check whether the authed user follows the author.
	if user := auth.GetUser(ctx); user != nil && user.ID != author.ID {
		if author.AuthFollow, err = s.fs.Exists(ctx, user.ID, author.ID); err != nil {
			errs.ReturnError(w, r, err)
			return
		}
	}

	// Fetch the requested page of the author's posts.
	page, err := s.ps.Page(ctx, domain.PostFilter{AuthorID: &author.ID}, pageNumber(r))
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, &feedResponse{Author: author, Page: page})
}
