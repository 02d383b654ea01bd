// Package http serves the SmartSpend web UI and JSON API.
//
// This file holds the request parsing shared by the htmx form handlers and
// the JSON API: one body parser for both encodings, path IDs and prefs.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"smartspend/internal/core"
	"smartspend/internal/services"
)

const maxBodyBytes = 64 << 10

var errInvalidID = errors.New("invalid expense id")

// RequestBodyParser reads a JSON object or a form-encoded body once and
// exposes both through Get.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most maxBodyBytes of the request body.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	}
	return p
}

func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}
	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	if strings.Contains(p.contentType, "application/json") || body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.err = fmt.Errorf("decode json body: %w", err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(body)
	return p.err
}

// Get returns a sanitized value from whichever encoding was parsed.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseExpenseInput reads the expense fields from a form or JSON body.
func ParseExpenseInput(w http.ResponseWriter, r *http.Request) (services.ExpenseInput, error) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		return services.ExpenseInput{}, err
	}
	return services.ExpenseInput{
		Title:       p.Get("title"),
		Amount:      p.Get("amount"),
		Category:    p.Get("category"),
		Date:        p.Get("date"),
		Description: p.Get("description"),
	}, nil
}

// pathID reads the {id} wildcard of the matched route.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// requestCurrency lets the JSON API override the cookie with ?currency=.
func (s *Server) requestCurrency(r *http.Request) core.Currency {
	if v := strings.TrimSpace(r.URL.Query().Get("currency")); v != "" {
		return core.ParseCurrency(v)
	}
	return s.prefs(r).Currency
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
