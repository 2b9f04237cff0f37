package http

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"yatube/auth"
	"yatube/domain"
	"yatube/errs"
)

// registerCommentRoutes is a helper for registering all comment routes.
func (s *Server) registerCommentRoutes(r *mux.Router) {
	r.HandleFunc("/posts/{post_id:[0-9]+}/comment/", s.requireAuth(s.handleAddComment)).Methods("GET", "POST")
}

// commentForm holds the fields of the comment form.
type commentForm struct {
	Text string `json:"text" validate:"required"`
	formErrors
}

// handleAddComment handles the route "GET|POST /posts/:post_id/comment/". A valid
// posted comment is saved, an invalid one is dropped. Either way the user goes back to the post.
func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	// Fetch the commented post.
	post, err := s.postFromURL(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	if r.Method != http.MethodPost {
		http.Redirect(w, r, postURL(post.ID), http.StatusFound)
		return
	}

	// Parse and validate the submitted form.
	if err := r.ParseForm(); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid form data."))
		return
	}
	form := &commentForm{Text: strings.TrimSpace(r.PostForm.Get("text"))}
	if s.validateForm(form, &form.formErrors) {
		comment := &domain.Comment{
			Text:     form.Text,
			PostID:   post.ID,
			AuthorID: user.ID,
		}
		if err := s.cs.Create(r.Context(), comment); err != nil && errs.ErrorCode(err) != errs.EINVALID {
			errs.ReturnError(w, r, err)
			return
		}
	}

	http.Redirect(w, r, postURL(post.ID), http.StatusFound)
}
