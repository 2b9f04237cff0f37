package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"

	"yatube/auth"
	"yatube/domain"
	"yatube/errs"
)

// rememberCookie holds the remember token of the signed in user.
const rememberCookie = "remember_token"

// registerAuthRoutes is a helper for registering all auth routes.
func (s *Server) registerAuthRoutes(r *mux.Router) {
	r.HandleFunc("/auth/signup/", s.handleSignupForm).Methods("GET")
	r.HandleFunc("/auth/signup/", s.handleSignup).Methods("POST")
	r.HandleFunc("/auth/login/", s.handleLoginForm).Methods("GET")
	r.HandleFunc("/auth/login/", s.handleLogin).Methods("POST")
	r.HandleFunc("/auth/logout/", s.handleLogout).Methods("GET", "POST")
}

// signupForm holds the fields of the sign up form.
type signupForm struct {
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Username  string `json:"username" validate:"required,max=150"`
	Email     string `json:"email" validate:"omitempty,email"`
	Password1 string `json:"-" validate:"required,min=8"`
	Password2 string `json:"-" validate:"required,eqfield=Password1"`
	formErrors
}

// loginForm holds the fields of the login form. Next is where to go after signing in.
type loginForm struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"-" validate:"required"`
	Next     string `json:"next,omitempty"`
	formErrors
}

// formResponse is returned whenever a form is shown, empty or with errors.
type formResponse struct {
	Form      interface{} `json:"form"`
	CSRFToken string      `json:"csrf_token,omitempty"`
}

// handleSignupForm handles the route "GET /auth/signup/".
func (s *Server) handleSignupForm(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, &formResponse{Form: &signupForm{}, CSRFToken: csrf.Token(r)})
}

// handleSignup handles the route "POST /auth/signup/". It creates a new user,
// signs them in and redirects to the index.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	// Parse and validate the submitted form.
	if err := r.ParseForm(); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid form data."))
		return
	}
	form := &signupForm{
		FirstName: strings.TrimSpace(r.PostForm.Get("first_name")),
		LastName:  strings.TrimSpace(r.PostForm.Get("last_name")),
		Username:  strings.TrimSpace(r.PostForm.Get("username")),
		Email:     strings.TrimSpace(r.PostForm.Get("email")),
		Password1: r.PostForm.Get("password1"),
		Password2: r.PostForm.Get("password2"),
	}
	if !s.validateForm(form, &form.formErrors) {
		respond(w, r, http.StatusOK, &formResponse{Form: form, CSRFToken: csrf.Token(r)})
		return
	}

	// Create the user.
	user := &domain.User{
		Username:  form.Username,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Email:     form.Email,
		Password:  form.Password1,
	}
	err := s.us.Create(r.Context(), user)
	if code := errs.ErrorCode(err); code == errs.EINVALID || code == errs.ECONFLICT {
		form.addError(allFields, errs.ErrorMessage(err))
		respond(w, r, http.StatusOK, &formResponse{Form: form, CSRFToken: csrf.Token(r)})
		return
	} else if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// Sign the new user in.
	if err := s.signIn(w, r.Context(), user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleLoginForm handles the route "GET /auth/login/".
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	form := &loginForm{Next: r.URL.Query().Get("next")}
	respond(w, r, http.StatusOK, &formResponse{Form: form, CSRFToken: csrf.Token(r)})
}

// handleLogin handles the route "POST /auth/login/". It signs the user in
// and redirects to the page they came from.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	// Parse and validate the submitted form.
	if err := r.ParseForm(); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid form data."))
		return
	}
	form := &loginForm{
		Username: strings.TrimSpace(r.PostForm.Get("username")),
		Password: r.PostForm.Get("password"),
		Next:     r.Form.Get("next"),
	}
	if !s.validateForm(form, &form.formErrors) {
		respond(w, r, http.StatusOK, &formResponse{Form: form, CSRFToken: csrf.Token(r)})
		return
	}

	// Check the credentials.
	user, err := s.us.Authenticate(r.Context(), form.Username, form.Password)
	if errs.ErrorCode(err) == errs.EINVALID {
		form.addError(allFields, errs.ErrorMessage(err))
		respond(w, r, http.StatusOK, &formResponse{Form: form, CSRFToken: csrf.Token(r)})
		return
	} else if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	if err := s.signIn(w, r.Context(), user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	http.Redirect(w, r, safeNext(form.Next), http.StatusFound)
}

// handleLogout handles the route "GET|POST /auth/logout/". It invalidates the
// remember token of the signed in user and deletes the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     rememberCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})

	if user := auth.GetUser(r.Context()); user != nil {
		token, err := s.us.MakeRememberToken()
		if err != nil {
			errs.ReturnError(w, r, err)
			return
		}
		user.Remember = token
		if err := s.us.Update(r.Context(), user); err != nil {
			errs.ReturnError(w, r, err)
			return
		}
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// signIn sets the remember token of user as a cookie. A user without a
// token in memory gets a new one.
func (s *Server) signIn(w http.ResponseWriter, ctx context.Context, user *domain.User) error {
	if user.Remember == "" {
		token, err := s.us.MakeRememberToken()
		if err != nil {
			return err
		}
		user.Remember = token
		if err = s.us.Update(ctx, user); err != nil {
			return err
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     rememberCookie,
		Value:    user.Remember,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProd,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// The checkUser middleware looks up the user belonging to the remember token cookie
// and stores them in the request context. Requests without a valid cookie stay anonymous.
func (s *Server) checkUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(rememberCookie)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, err := s.us.ByRemember(r.Context(), cookie.Value)
		if err != nil {
			if errs.ErrorCode(err) != errs.ENOTFOUND {
				errs.LogError(r, err)
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.SetUser(r.Context(), user)))
	})
}

// requireAuth sends guests to the login page. After logging in they come back
// to the page they asked for.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) == nil {
			http.Redirect(w, r, loginURL(r), http.StatusFound)
			return
		}
		next(w, r)
	}
}

// loginURL is the login page with the current request as next.
func loginURL(r *http.Request) string {
	return "/auth/login/?next=" + url.QueryEscape(r.URL.RequestURI())
}

// safeNext returns next if it points to a page of this site, "/" otherwise.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") ||
		strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
