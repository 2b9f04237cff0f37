package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"

	"yatube/auth"
	"yatube/domain"
	"yatube/errs"
)

// registerPostRoutes is a helper for registering all post routes.
func (s *Server) registerPostRoutes(r *mux.Router) {
	r.HandleFunc("/", s.cachePage(s.handleIndex)).Methods("GET")
	r.HandleFunc("/posts/{post_id:[0-9]+}/", s.handlePostDetail).Methods("GET")
	r.HandleFunc("/create/", s.requireAuth(s.handleCreateForm)).Methods("GET")
	r.HandleFunc("/create/", s.requireAuth(s.handleCreatePost)).Methods("POST")
	r.HandleFunc("/posts/{post_id:[0-9]+}/edit/", s.requireAuth(s.handleEditPost)).Methods("GET", "POST")
}

// feedResponse is one page of posts, optionally with the group or author it belongs to.
type feedResponse struct {
	Group  *domain.Group `json:"group,omitempty"`
	Author *domain.User  `json:"author,omitempty"`
	Page   *domain.Page  `json:"page"`
}

// postDetailResponse is a single post with its comments and an empty comment form.
type postDetailResponse struct {
	Post     *domain.Post     `json:"post"`
	Comments []domain.Comment `json:"comments"`
	Form     *commentForm     `json:"form"`
}

const invalidChoice = "Select a valid choice. That choice is not one of the available choices."

// postForm holds the fields of the form for creating and editing posts.
// Image is the currently stored image, uploads come in as a multipart file.
type postForm struct {
	Text  string `json:"text" validate:"required"`
	Group *int   `json:"group"`
	Image string `json:"image,omitempty"`
	formErrors
}

// postFormResponse is the create or edit form with the groups to choose from.
type postFormResponse struct {
	Form      *postForm      `json:"form"`
	Groups    []domain.Group `json:"groups"`
	Post      *domain.Post   `json:"post,omitempty"`
	Edit      bool           `json:"edit,omitempty"`
	CSRFToken string         `json:"csrf_token,omitempty"`
}

// handleIndex handles the route "GET /". It returns a page of the feed of all posts.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := s.ps.Page(r.Context(), domain.PostFilter{}, pageNumber(r))
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, &feedResponse{Page: page})
}

// handlePostDetail handles the route "GET /posts/:post_id/".
// It returns the post, its comments and the author's number of posts.
func (s *Server) handlePostDetail(w http.ResponseWriter, r *http.Request) {
	// Fetch the post from the database.
	post, err := s.postFromURL(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// Count the author's posts.
	post.Author.PostCount, err = s.us.CountPosts(r.Context(), post.AuthorID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// Fetch the comments.
	comments, err := s.cs.ByPost(r.Context(), post.ID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, &postDetailResponse{Post: post, Comments: comments, Form: &commentForm{}})
}

// handleCreateForm handles the route "GET /create/". It returns an empty post form.
func (s *Server) handleCreateForm(w http.ResponseWriter, r *http.Request) {
	s.respondPostForm(w, r, &postForm{}, nil)
}

// handleCreatePost handles the route "POST /create/". On success the authed user is
// redirected to their profile, otherwise the form is returned with its errors.
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	// Parse and validate the submitted form.
	form, err := s.parsePostForm(w, r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if !form.valid() {
		s.respondPostForm(w, r, form, nil)
		return
	}

	// Store the uploaded image, if there is one.
	image, ok := s.saveUploadedImage(w, r, form, user, nil)
	if !ok {
		return
	}

	// Create the post.
	post := &domain.Post{
		Text:     form.Text,
		GroupID:  form.Group,
		AuthorID: user.ID,
		Image:    image,
	}
	if err := s.ps.Create(r.Context(), post); err != nil {
		s.discardImage(r, image)
		if errs.ErrorCode(err) == errs.EINVALID {
			form.addError(allFields, errs.ErrorMessage(err))
			s.respondPostForm(w, r, form, nil)
			return
		}
		errs.ReturnError(w, r, err)
		return
	}

	http.Redirect(w, r, profileURL(user.Username), http.StatusFound)
}

// handleEditPost handles the route "GET|POST /posts/:post_id/edit/".
// Only the author may edit a post, everybody else is sent to the post's page.
func (s *Server) handleEditPost(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	// Fetch the post from the database.
	post, err := s.postFromURL(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// Check if the post belongs to the authed user.
	if post.AuthorID != user.ID {
		http.Redirect(w, r, postURL(post.ID), http.StatusFound)
		return
	}

	// Return the bound form.
	if r.Method == http.MethodGet {
		form := &postForm{Text: post.Text, Group: post.GroupID, Image: post.Image}
		s.respondPostForm(w, r, form, post)
		return
	}

	// Parse and validate the submitted form.
	form, err := s.parsePostForm(w, r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	form.Image = post.Image
	if !form.valid() {
		s.respondPostForm(w, r, form, post)
		return
	}

	// Store a newly uploaded image, or drop the current one if asked to.
	oldImage := post.Image
	image, ok := s.saveUploadedImage(w, r, form, user, post)
	if !ok {
		return
	}
	if image != "" {
		post.Image = image
	} else if r.PostForm.Get("image-clear") != "" {
		post.Image = ""
	}

	// Update the post.
	post.Text = form.Text
	post.GroupID = form.Group
	if err := s.ps.Update(r.Context(), post); err != nil {
		s.discardImage(r, image)
		if errs.ErrorCode(err) == errs.EINVALID {
			form.addError(allFields, errs.ErrorMessage(err))
			s.respondPostForm(w, r, form, post)
			return
		}
		errs.ReturnError(w, r, err)
		return
	}
	if oldImage != post.Image {
		s.discardImage(r, oldImage)
	}

	http.Redirect(w, r, postURL(post.ID), http.StatusFound)
}

// maxPostBody caps the size of a submitted post form, an image of the largest
// allowed size plus room for the other fields.
const maxPostBody = domain.MaxUploadSize + 1<<20

// parsePostForm reads and validates the submitted post form. Field errors end up
// in the form, only unreadable or oversized requests produce an error.
func (s *Server) parsePostForm(w http.ResponseWriter, r *http.Request) (*postForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPostBody)
	err := r.ParseMultipartForm(1 << 20)
	if err == http.ErrNotMultipart {
		err = r.ParseForm()
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return nil, errs.Errorf(errs.EINVALID, "The upload is too large.")
	} else if err != nil {
		return nil, errs.Errorf(errs.EINVALID, "Invalid form data.")
	}

	form := &postForm{Text: strings.TrimSpace(r.PostForm.Get("text"))}
	s.validateForm(form, &form.formErrors)

	// The group is optional, but has to exist when given.
	if raw := r.PostForm.Get("group"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			form.addError("group", invalidChoice)
			return form, nil
		}
		_, err = s.gs.ByID(r.Context(), id)
		switch errs.ErrorCode(err) {
		case "":
			form.Group = &id
		case errs.ENOTFOUND:
			form.addError("group", invalidChoice)
		default:
			return nil, err
		}
	}
	return form, nil
}

// saveUploadedImage stores the image uploaded with the form and returns its path.
// It returns the empty string if nothing was uploaded. If it reports false, a
// response has already been written.
func (s *Server) saveUploadedImage(w http.ResponseWriter, r *http.Request, form *postForm, user *domain.User, post *domain.Post) (string, bool) {
	file, header, err := r.FormFile("image")
	if err == http.ErrMissingFile || err == http.ErrNotMultipart {
		return "", true
	}
	if err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid image upload."))
		return "", false
	}
	defer file.Close()

	img := &domain.Image{
		OwnerType: domain.OwnerTypePost,
		OwnerID:   user.ID,
		File:      file,
		Filename:  header.Filename,
	}
	if err := s.is.Create(img); err != nil {
		if errs.ErrorCode(err) == errs.EINVALID {
			form.addError("image", errs.ErrorMessage(err))
			s.respondPostForm(w, r, form, post)
			return "", false
		}
		errs.ReturnError(w, r, err)
		return "", false
	}
	return img.RelativePath(), true
}

// discardImage removes an image that is no longer referenced. Failures are only logged.
func (s *Server) discardImage(r *http.Request, image string) {
	if image == "" {
		return
	}
	if err := s.is.Delete(image); err != nil {
		errs.LogError(r, err)
	}
}

// respondPostForm returns the post form together with the groups to choose from.
// Passing the edited post marks the form as an edit form.
func (s *Server) respondPostForm(w http.ResponseWriter, r *http.Request, form *postForm, post *domain.Post) {
	groups, err := s.gs.All(r.Context())
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, &postFormResponse{
		Form:      form,
		Groups:    groups,
		Post:      post,
		Edit:      post != nil,
		CSRFToken: csrf.Token(r),
	})
}

// postFromURL fetches the post whose id is in the url.
func (s *Server) postFromURL(r *http.Request) (*domain.Post, error) {
	id, err := strconv.Atoi(mux.Vars(r)["post_id"])
	if err != nil {
		return nil, errs.Errorf(errs.ENOTFOUND, "The post does not exist.")
	}
	return s.ps.ByID(r.Context(), id)
}

func postURL(id int) string {
	return "/posts/" + strconv.Itoa(id) + "/"
}

func profileURL(username string) string {
	return "/profile/" + username + "/"
}
