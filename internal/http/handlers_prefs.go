package http

import (
	"net/http"
	"strings"

	"smartspend/internal/core"
)

// handleSetCurrency stores the display currency. A missing value toggles
// between INR and USD, which is what the header button sends.
func (s *Server) handleSetCurrency(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	cur := s.prefs(r).Currency
	if v := strings.TrimSpace(r.PostForm.Get("currency")); v != "" {
		cur = core.ParseCurrency(v)
	} else if cur == core.USD {
		cur = core.INR
	} else {
		cur = core.USD
	}
	setPrefCookie(w, r, cookieCurrency, string(cur))
	s.logger.DebugContext(r.Context(), "Currency changed", "currency", cur)
	s.prefsChanged(w, r)
}

// handleSetTheme stores dark or light mode, toggling when no value is sent.
func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	var theme string
	switch strings.ToLower(strings.TrimSpace(r.PostForm.Get("theme"))) {
	case themeDark:
		theme = themeDark
	case themeLight:
		theme = themeLight
	default:
		if s.prefs(r).Dark() {
			theme = themeLight
		} else {
			theme = themeDark
		}
	}
	setPrefCookie(w, r, cookieTheme, theme)
	s.prefsChanged(w, r)
}

// prefsChanged re-renders the current page so every amount and the theme
// class pick up the new cookie.
func (s *Server) prefsChanged(w http.ResponseWriter, r *http.Request) {
	if isHTMX(r) {
		NewHTMXResponse().Refresh().Write(w)
		return
	}
	http.Redirect(w, r, backTo(r, "/dashboard"), http.StatusSeeOther)
}
