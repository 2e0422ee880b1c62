package webapp

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"visitsuite/internal/chat"
	"visitsuite/internal/config"
	"visitsuite/internal/middleware"
	"visitsuite/internal/photo"
	"visitsuite/internal/store"
)

//go:embed templates/login.html templates/employee_dashboard.html templates/admin_dashboard.html assets/app.css
var templatesFS embed.FS

type server struct {
	cfg        config.Config
	secret     []byte
	sessionTTL time.Duration

	visits *store.VisitStore
	issues *store.IssueStore
	photos *photo.Store

	loginTmpl    *template.Template
	employeeTmpl *template.Template
	adminTmpl    *template.Template

	now func() time.Time
}

type loginData struct {
	Error string
}

type dashboardData struct {
	Name         string
	Visits       []store.VisitRecord
	ChatResponse string
}

// Run serves the visit-logging app until ctx is canceled.
func Run(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s := newServer(cfg)
	if err := s.visits.Init(); err != nil {
		return fmt.Errorf("initialize visit log: %w", err)
	}

	csp := strings.Join([]string{
		"default-src 'self'",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data:",
		"frame-ancestors 'none'",
	}, "; ")

	handler := middleware.Chain(
		s.routes(),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: csp}),
		middleware.RequestID(),
		middleware.RequestLog(),
	)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("visitsuite listening on http://localhost%s", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func newServer(cfg config.Config) *server {
	return &server{
		cfg:          cfg,
		secret:       []byte(cfg.SecretKey),
		sessionTTL:   cfg.SessionTTL,
		visits:       store.NewVisitStore(cfg.VisitLogPath),
		issues:       store.NewIssueStore(cfg.IssueLogPath),
		photos:       photo.NewStore(cfg.UploadDir),
		loginTmpl:    template.Must(template.ParseFS(templatesFS, "templates/login.html")),
		employeeTmpl: template.Must(template.ParseFS(templatesFS, "templates/employee_dashboard.html")),
		adminTmpl:    template.Must(template.ParseFS(templatesFS, "templates/admin_dashboard.html")),
		now:          time.Now,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", http.HandlerFunc(s.home))
	mux.Handle("/login", http.HandlerFunc(s.loginRoute))
	mux.Handle("/logout", http.HandlerFunc(s.logout))
	mux.Handle("/health", http.HandlerFunc(s.health))
	mux.Handle("/employee_dashboard", http.HandlerFunc(s.employeeDashboard))
	mux.Handle("/admin_dashboard", http.HandlerFunc(s.adminDashboard))
	mux.Handle("/log_visit_form", http.HandlerFunc(s.logVisitForm))
	mux.Handle("/log_visit", http.HandlerFunc(s.logVisitJSON))
	mux.Handle("/update_visit", http.HandlerFunc(s.updateVisit))
	mux.Handle("/submit_issue", http.HandlerFunc(s.submitIssue))
	mux.Handle("/start_chat", http.HandlerFunc(s.startChat))
	mux.Handle("/download_report", http.HandlerFunc(s.downloadReport))
	mux.Handle("/assets/app.css", http.HandlerFunc(s.appCSSFile))
	return mux
}

func (s *server) home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.renderLogin(w, "")
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) loginRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderLogin(w, "")
	case http.MethodPost:
		s.login(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// login checks the submitted credentials against the static user map. A bad
// login re-renders the login view with an inline error and HTTP 200; there is
// no redirect on failure.
func (s *server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderLogin(w, "Invalid form submission")
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	cred, ok := s.cfg.Lookup(username)
	if !ok || !passwordsMatch(password, cred.Password) {
		s.renderLogin(w, "Invalid credentials")
		return
	}

	if err := s.issueSessionCookie(w, username, cred.Role); err != nil {
		http.Error(w, "unable to establish session", http.StatusInternalServerError)
		log.Printf("issue session cookie: %v", err)
		return
	}

	if cred.Role == config.RoleEmployee {
		http.Redirect(w, r, "/employee_dashboard", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/admin_dashboard", http.StatusFound)
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	expireSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *server) employeeDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := s.sessionFromRequest(r)
	if sess == nil || sess.Role != config.RoleEmployee {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	s.renderEmployeeDashboard(w, sess.User, "")
}

func (s *server) adminDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := s.sessionFromRequest(r)
	if sess == nil || sess.Role != config.RoleAdmin {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	data := dashboardData{Name: sess.User}
	if err := renderHTMLTemplate(w, s.adminTmpl, data); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
		log.Printf("admin dashboard render failed: %v", err)
	}
}

// logVisitForm handles the dashboard's multipart submission, photo included.
// The authorization check runs before any file or store is touched.
func (s *server) logVisitForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := s.sessionFromRequest(r)
	if sess == nil || sess.Role != config.RoleEmployee {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if err := r.ParseMultipartForm(12 << 20); err != nil {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form submission", http.StatusBadRequest)
			return
		}
	}

	now := s.now()
	photoName, err := s.storeUploadedPhoto(r, sess.User, now)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec := store.VisitRecord{
		EmployeeName: sess.User,
		Client:       r.FormValue("client"),
		Date:         r.FormValue("date"),
		Session:      r.FormValue("session"),
		Time:         now.Format("15:04:05"),
		Status:       r.FormValue("status"),
		Remarks:      r.FormValue("remarks"),
		Photo:        photoName,
	}
	if err := s.visits.Append(rec); err != nil {
		http.Error(w, "unable to log visit", http.StatusInternalServerError)
		log.Printf("append visit: %v", err)
		return
	}
	http.Redirect(w, r, "/employee_dashboard", http.StatusFound)
}

func (s *server) storeUploadedPhoto(r *http.Request, owner string, capturedAt time.Time) (string, error) {
	if r.MultipartForm == nil {
		return "", nil
	}
	file, _, err := r.FormFile("photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", errors.New("unable to read photo file")
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, 10<<20))
	if err != nil {
		return "", errors.New("unable to read photo file")
	}
	return s.photos.Save(owner, raw, capturedAt)
}

// logVisitJSON is the API variant of visit logging. It carries no session or
// photo fields; those cells stay blank on the appended row.
func (s *server) logVisitJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := s.sessionFromRequest(r)
	if sess == nil || sess.Role != config.RoleEmployee {
		writeError(w, http.StatusForbidden, "Unauthorized")
		return
	}

	body, err := decodeJSONBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec := store.VisitRecord{
		EmployeeName: sess.User,
		Client:       stringField(body, "client"),
		Date:         stringField(body, "date"),
		Time:         s.now().Format("15:04:05"),
		Status:       stringField(body, "status"),
		Remarks:      stringField(body, "remarks"),
	}
	if err := s.visits.Append(rec); err != nil {
		writeError(w, http.StatusInternalServerError, "unable to log visit")
		log.Printf("append visit: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Visit logged successfully"})
}

// updateVisit overwrites Status on every row matching the caller's username
// and the supplied date. Field presence is validated in the fixed order
// [date, status] before the store is touched.
func (s *server) updateVisit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := s.sessionFromRequest(r)
	if sess == nil || sess.Role != config.RoleEmployee {
		writeError(w, http.StatusForbidden, "Unauthorized")
		return
	}

	body, err := decodeJSONBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, field := range []string{"date", "status"} {
		if _, ok := body[field]; !ok {
			writeError(w, http.StatusBadRequest, "Missing field: "+field)
			return
		}
	}

	_, err = s.visits.UpdateStatus(sess.User, stringField(body, "date"), stringField(body, "status"))
	switch {
	case errors.Is(err, store.ErrMissingFile):
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "No data file found"})
	case errors.Is(err, store.ErrNoMatch):
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "No matching visit found"})
	case err != nil:
		writeError(w, http.StatusInternalServerError, "unable to update visit")
		log.Printf("update visit: %v", err)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Visit status updated successfully"})
	}
}

func (s *server) submitIssue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := s.sessionFromRequest(r)
	if sess == nil || sess.Role != config.RoleEmployee {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}

	rec := store.IssueRecord{
		Employee:  sess.User,
		Issue:     r.FormValue("issue_description"),
		Timestamp: s.now().Format("2006-01-02 15:04:05"),
	}
	if err := s.issues.Append(rec); err != nil {
		http.Error(w, "unable to submit issue", http.StatusInternalServerError)
		log.Printf("append issue: %v", err)
		return
	}
	http.Redirect(w, r, "/employee_dashboard", http.StatusFound)
}

// startChat renders the employee dashboard with the stub reply inline rather
// than redirecting, so the response string survives the round trip.
func (s *server) startChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := s.sessionFromRequest(r)
	if sess == nil || sess.Role != config.RoleEmployee {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}
	s.renderEmployeeDashboard(w, sess.User, chat.StartChat(r.FormValue("chat_query")))
}

func (s *server) downloadReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := s.sessionFromRequest(r)
	if sess == nil || sess.Role != config.RoleAdmin {
		writeError(w, http.StatusForbidden, "Unauthorized")
		return
	}

	data, err := s.visits.ExportBytes()
	if err != nil {
		if errors.Is(err, store.ErrMissingFile) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "No data file found"})
			return
		}
		writeError(w, http.StatusInternalServerError, "unable to export report")
		log.Printf("export report: %v", err)
		return
	}

	filename := filepath.Base(s.visits.Path())
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(data)
}

func (s *server) appCSSFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := templatesFS.ReadFile("assets/app.css")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(data)
}

func (s *server) renderLogin(w http.ResponseWriter, errorMessage string) {
	if err := renderHTMLTemplate(w, s.loginTmpl, loginData{Error: errorMessage}); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
		log.Printf("login render failed: %v", err)
	}
}

func (s *server) renderEmployeeDashboard(w http.ResponseWriter, user, chatResponse string) {
	visits, err := s.visits.ListByEmployee(user)
	if err != nil {
		log.Printf("list visits for %s: %v", user, err)
	}
	data := dashboardData{Name: user, Visits: visits, ChatResponse: chatResponse}
	if err := renderHTMLTemplate(w, s.employeeTmpl, data); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
		log.Printf("employee dashboard render failed: %v", err)
	}
}
