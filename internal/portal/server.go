// Package portal serves the employee portal: login, the directory list,
// detail search, salary dashboard, city map and photo gallery.
package portal

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/phillip-england/empportal/internal/directory"
	"github.com/phillip-england/empportal/internal/middleware"
	"github.com/phillip-england/empportal/internal/security"
	"github.com/phillip-england/empportal/internal/session"
	"github.com/phillip-england/empportal/internal/source"
)

//go:embed templates/*.html assets/app.css
var templatesFS embed.FS

type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	SecureCookies   bool
	NumberLocale    string
}

// Deps are the collaborators a Server renders from.
type Deps struct {
	Users       *source.Cache
	Enricher    *directory.Enricher
	Auth        *security.Authenticator
	Sessions    *session.Store
	Logger      *zap.Logger
	PhotoClient *http.Client
}

type Server struct {
	cfg      Config
	users    *source.Cache
	enricher *directory.Enricher
	auth     *security.Authenticator
	sessions *session.Store
	logger   *zap.Logger
	photos   *photoProxy
	numbers  *numberFormatter
	router   *mux.Router
	handler  http.Handler

	loginTmpl   *template.Template
	listTmpl    *template.Template
	detailTmpl  *template.Template
	graphTmpl   *template.Template
	mapTmpl     *template.Template
	galleryTmpl *template.Template
}

const contentSecurityPolicy = "default-src 'self'; " +
	"style-src 'self' https://unpkg.com 'unsafe-inline'; " +
	"img-src 'self' data: https://unpkg.com https://*.tile.openstreetmap.org; " +
	"script-src 'self' https://unpkg.com 'unsafe-inline'; " +
	"connect-src 'self'; " +
	"frame-ancestors 'none'"

func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Users == nil || deps.Auth == nil {
		return nil, errors.New("portal needs a user cache and an authenticator")
	}
	if deps.Enricher == nil {
		deps.Enricher = directory.NewEnricher(nil)
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewStore(session.DefaultTTL)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.PhotoClient == nil {
		deps.PhotoClient = &http.Client{Timeout: 8 * time.Second}
	}

	numbers, err := newNumberFormatter(cfg.NumberLocale)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		users:    deps.Users,
		enricher: deps.Enricher,
		auth:     deps.Auth,
		sessions: deps.Sessions,
		logger:   deps.Logger,
		photos:   newPhotoProxy(deps.PhotoClient),
		numbers:  numbers,
	}

	funcs := s.numbers.funcMap()
	funcs["listPhoto"] = func(id int) string { return photoURL(id, listPhotoSize) }
	funcs["cardPhoto"] = func(id int) string { return photoURL(id, cardPhotoSize) }
	parse := func(page string) *template.Template {
		return template.Must(template.New(page).Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", "templates/"+page))
	}
	s.loginTmpl = parse("login.html")
	s.listTmpl = parse("list.html")
	s.detailTmpl = parse("details.html")
	s.graphTmpl = parse("graph.html")
	s.mapTmpl = parse("map.html")
	s.galleryTmpl = parse("photo.html")

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.StrictSlash(true)

	r.HandleFunc("/", s.loginPage).Methods(http.MethodGet)
	r.HandleFunc("/", s.login).Methods(http.MethodPost)
	r.HandleFunc("/login", s.loginPage).Methods(http.MethodGet)
	r.HandleFunc("/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	r.HandleFunc("/assets/app.css", s.appCSSFile).Methods(http.MethodGet)

	private := r.NewRoute().Subrouter()
	private.Use(s.requireSession)
	private.HandleFunc("/logout", s.logout).Methods(http.MethodPost)
	private.HandleFunc("/list", s.listPage).Methods(http.MethodGet)
	private.HandleFunc("/details", s.detailsPage).Methods(http.MethodGet)
	private.HandleFunc("/details/{id:[0-9]+}", s.detailsPage).Methods(http.MethodGet)
	private.HandleFunc("/graph", s.graphPage).Methods(http.MethodGet)
	private.HandleFunc("/map", s.mapPage).Methods(http.MethodGet)
	private.HandleFunc("/photo", s.photoPage).Methods(http.MethodGet)
	private.HandleFunc("/avatars/{id:[0-9]+}.png", s.avatarImage).Methods(http.MethodGet)
	private.HandleFunc("/photos/{id:[0-9]+}", s.photoImage).Methods(http.MethodGet)
	private.HandleFunc("/export/employees.xlsx", s.exportWorkbook).Methods(http.MethodGet)
	private.HandleFunc("/api/employees", s.employeesJSON).Methods(http.MethodGet)

	s.router = r
	s.handler = middleware.Chain(
		r,
		middleware.RequestID,
		middleware.RequestLogger(s.logger),
		middleware.Recover(s.logger),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: contentSecurityPolicy}),
	)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	readTimeout := s.cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 5 * time.Second
	}
	writeTimeout := s.cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := s.cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 5 * time.Second
	}

	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	sweepDone := make(chan struct{})
	go s.sweepSessions(sweepCtx, sweepDone)
	defer func() {
		stopSweep()
		<-sweepDone
	}()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("portal listening", zap.String("url", "http://localhost"+displayAddr(s.cfg.Addr)))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
}

func (s *Server) sweepSessions(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Sweep(); n > 0 {
				s.logger.Debug("expired sessions removed", zap.Int("count", n))
			}
		}
	}
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return addr
	}
	if _, port, ok := strings.Cut(addr, ":"); ok {
		return ":" + port
	}
	return addr
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"users":  s.users.Status().String(),
	})
}

func (s *Server) appCSSFile(w http.ResponseWriter, r *http.Request) {
	data, err := templatesFS.ReadFile("assets/app.css")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(data)
}
