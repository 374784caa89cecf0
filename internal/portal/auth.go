package portal

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/phillip-england/empportal/internal/session"
)

const (
	csrfFieldName   = "csrf_token"
	loginErrorParam = "error"
	invalidLoginMsg = "Invalid username or password"
)

type sessionKey struct{}

func sessionFrom(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(session.Session)
	return sess, ok
}

func (s *Server) currentSession(r *http.Request) (session.Session, bool) {
	cookie, err := r.Cookie(session.CookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return session.Session{}, false
	}
	sess, err := s.sessions.Lookup(cookie.Value)
	if err != nil {
		return session.Session{}, false
	}
	return sess, true
}

// requireSession guards every portal view behind a login.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.currentSession(r)
		if !ok {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentSession(r); ok {
		http.Redirect(w, r, "/list", http.StatusFound)
		return
	}
	data := pageData{Title: "Login", Error: r.URL.Query().Get(loginErrorParam)}
	s.render(w, r, s.loginTmpl, data)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/?error=Invalid+form+submission", http.StatusFound)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		http.Redirect(w, r, "/?error=Username+and+password+are+required", http.StatusFound)
		return
	}

	if err := s.auth.Check(username, password); err != nil {
		s.logger.Info("login rejected", zap.String("username", username))
		s.renderLoginError(w, r, username)
		return
	}

	sess, err := s.sessions.Create(username)
	if err != nil {
		s.logger.Error("create session failed", zap.Error(err))
		http.Error(w, "unable to start session", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})
	http.Redirect(w, r, "/list", http.StatusFound)
}

func (s *Server) renderLoginError(w http.ResponseWriter, r *http.Request, username string) {
	s.renderStatus(w, r, http.StatusUnauthorized, s.loginTmpl, pageData{Title: "Login", Error: invalidLoginMsg, Username: username})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	if err := checkCSRF(r, sess); err != nil {
		http.Error(w, "csrf validation failed", http.StatusForbidden)
		return
	}
	s.sessions.Delete(sess.ID)
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

func checkCSRF(r *http.Request, sess session.Session) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	token := strings.TrimSpace(r.PostFormValue(csrfFieldName))
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(sess.CSRFToken)) != 1 {
		return errors.New("csrf token mismatch")
	}
	return nil
}
