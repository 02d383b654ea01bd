package http

import (
	"bytes"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"smartspend/internal/core"
	"smartspend/internal/log"
	"smartspend/internal/services"
	"smartspend/internal/store"
	appweb "smartspend/web"
)

const (
	cookieCurrency = "smartspend_currency"
	cookieTheme    = "smartspend_theme"

	themeDark  = "dark"
	themeLight = "light"

	prefsMaxAge = 365 * 24 * 60 * 60
)

// Prefs are the per-browser display settings kept in cookies.
type Prefs struct {
	Currency core.Currency
	Theme    string
}

func (p Prefs) Dark() bool { return p.Theme != themeLight }

func (s *Server) prefs(r *http.Request) Prefs {
	p := Prefs{Currency: s.defaultCurrency, Theme: themeDark}
	if c, err := r.Cookie(cookieCurrency); err == nil && c.Value != "" {
		p.Currency = core.ParseCurrency(c.Value)
	}
	if c, err := r.Cookie(cookieTheme); err == nil && c.Value == themeLight {
		p.Theme = themeLight
	}
	return p
}

func setPrefCookie(w http.ResponseWriter, r *http.Request, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   prefsMaxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// backTo returns the same-origin page the request came from, or fallback.
func backTo(r *http.Request, fallback string) string {
	ref := r.Referer()
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) {
		return fallback
	}
	if !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return fallback
	}
	return u.Path
}

func parseTemplates() (*template.Template, error) {
	return template.New("smartspend").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

var templateFuncs = template.FuncMap{
	"money":      func(cur core.Currency, m core.Money) string { return cur.Format(m) },
	"date":       core.FormatDate,
	"categories": core.Categories,
	"selected": func(current string, c core.Category) bool {
		return strings.EqualFold(strings.TrimSpace(current), string(c))
	},
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	s.renderStatus(w, r, http.StatusOK, name, data)
}

// renderStatus executes a named template into a buffer so a failing
// template never leaves a half-written page.
func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		s.logger.WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			"error_type", log.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			"error", err, "template", name)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// classifyError maps service errors onto a status and a message safe to
// show to the user.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrMissingRequired), errors.Is(err, core.ErrEmptyTitle):
		return http.StatusUnprocessableEntity, services.MissingRequiredMessage
	case errors.Is(err, core.ErrInvalidAmount):
		return http.StatusUnprocessableEntity, "Amount must be a non-negative number"
	case errors.Is(err, core.ErrInvalidCategory):
		return http.StatusUnprocessableEntity, "Please choose one of the listed categories"
	case errors.Is(err, core.ErrInvalidDate):
		return http.StatusUnprocessableEntity, "Date must be in YYYY-MM-DD format"
	case errors.Is(err, core.ErrTitleTooLong):
		return http.StatusUnprocessableEntity, "Title is too long (max 120 characters)"
	case errors.Is(err, core.ErrDescriptionTooLong):
		return http.StatusUnprocessableEntity, "Description is too long (max 500 characters)"
	case errors.Is(err, errInvalidID):
		return http.StatusBadRequest, "Invalid expense id"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Expense not found"
	}
	return http.StatusInternalServerError, "Something went wrong, please try again"
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func itoa(n int) string { return strconv.Itoa(n) }

// exportFilename names the workbook after the day it was generated.
func exportFilename(now time.Time) string {
	return "smartspend-expenses-" + now.Format("2006-01-02") + ".xlsx"
}

// staticFS is the embedded static directory served under /static/.
func staticFS() (fs.FS, error) {
	return fs.Sub(appweb.StaticFS, "static")
}

func itoa64(n int64) string { return strconv.FormatInt(n, 10) }
