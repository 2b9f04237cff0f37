package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"yatube/cache"
	"yatube/crud"
	"yatube/domain"
	"yatube/errs"
)

// Options configures a Server beyond the services it talks to.
type Options struct {
	// IsProd marks cookies as secure.
	IsProd bool
	// CSRFKey enables csrf protection of unsafe requests when it's 32 bytes long.
	CSRFKey string
	// MediaDir is served below /media/.
	MediaDir string
	// Pages caches the index feed. Nil disables page caching.
	Pages cache.Store
}

// Server provides the http functionality of this app, namely routing,
// request handling, and middleware. It also performs authentication and
// authorization before handing things over to one of the services.
type Server struct {
	router   *mux.Router
	handler  http.Handler
	us       domain.UserService
	ps       domain.PostService
	gs       domain.GroupService
	cs       domain.CommentService
	fs       domain.FollowService
	is       domain.ImageService
	pages    cache.Store
	validate *validator.Validate
	isProd   bool
}

// NewServer returns a new instance of the server, registers all necessary
// routes and gives their handlers access to the app services passed in.
func NewServer(services *crud.Services, is domain.ImageService, opts Options) *Server {
	s := &Server{
		router:   mux.NewRouter().StrictSlash(true),
		us:       services.User,
		ps:       services.Post,
		gs:       services.Group,
		cs:       services.Comment,
		fs:       services.Follow,
		is:       is,
		pages:    opts.Pages,
		validate: newValidator(),
		isProd:   opts.IsProd,
	}

	// Register routes of the auth system.
	s.registerAuthRoutes(s.router)

	// Register routes of the blog.
	s.registerPostRoutes(s.router)
	s.registerGroupRoutes(s.router)
	s.registerProfileRoutes(s.router)
	s.registerCommentRoutes(s.router)
	s.registerFollowRoutes(s.router)

	// Uploaded images.
	if opts.MediaDir != "" {
		s.router.PathPrefix("/media/").
			Handler(http.StripPrefix("/media/", http.FileServer(mediaFS{http.Dir(opts.MediaDir)}))).
			Methods("GET")
	}
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errs.ReturnError(w, r, errs.Errorf(errs.ENOTFOUND, "Page not found."))
	})

	// Set up middleware that needs to run on every matched request.
	s.router.Use(logRequest, setContentTypeJSON, s.checkUser)

	// The csrf middleware has to see every request before the router does.
	s.handler = s.router
	if len(opts.CSRFKey) == 32 {
		s.handler = csrf.Protect([]byte(opts.CSRFKey), csrf.Secure(opts.IsProd), csrf.Path("/"))(s.router)
	} else if opts.CSRFKey != "" {
		log.Warn("csrf key must be 32 bytes long, csrf protection is disabled")
	}
	return s
}

// ServeHTTP makes the Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Run listens and serves on the specified port until ctx is cancelled.
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       time.Minute,
	}
	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// The setContentTypeJSON middleware sets the content type to "application/json".
// Media files keep the content type the file server picks for them.
func setContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/media/") {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// statusWriter remembers the status code written to a ResponseWriter.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

// The logRequest middleware tags every request with an id and logs it once it's done.
func logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		log.WithFields(log.Fields{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.RequestURI(),
			"status":     sw.status,
			"duration":   time.Since(start),
		}).Info("request")
	})
}

// respond writes v as the json body of a response with the given status.
func respond(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		errs.LogError(r, err)
	}
}

// pageNumber reads the page query parameter. Anything but a positive number means page 1.
func pageNumber(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
