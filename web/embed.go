// Package web holds the page templates and browser assets compiled into
// the smartspend binary.
package web

import "embed"

// TemplatesFS holds the html/template sources; every file only defines
// named templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the htmx glue script served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
