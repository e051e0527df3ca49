// Package web holds the storefront's embedded HTML templates and static
// assets.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Page names accepted by Renderer.Render.
const (
	PageHome           = "home"
	PageProduct        = "product"
	PageCart           = "cart"
	PageCheckout       = "checkout"
	PageLogin          = "login"
	PageRegister       = "register"
	PageForgotPassword = "forgot_password"
	PageAdmin          = "admin"
)

var pages = []string{
	PageHome, PageProduct, PageCart, PageCheckout,
	PageLogin, PageRegister, PageForgotPassword, PageAdmin,
}

// PageData is passed to every template. Content carries the page-specific
// view model.
type PageData struct {
	Title     string
	User      string
	IsAdmin   bool
	Notices   []string
	CSRFToken string
	Content   any
}

// Renderer executes the embedded page templates, each wrapped in the
// shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	layout, err := template.ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parsing layout template: %w", err)
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := layout.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning layout for %s: %w", name, err)
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes page into w. Output is buffered so that a template error
// never leaves a half-written response.
func (r *Renderer) Render(w io.Writer, page string, data PageData) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("rendering %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// StaticHandler serves the embedded stylesheet and, when imagesDir is
// non-empty, product images from disk under images/. It expects the
// "/static/" prefix to be stripped already.
func StaticHandler(imagesDir string) (http.Handler, error) {
	fsys, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("loading embedded static assets: %w", err)
	}
	embedded := http.FileServer(http.FS(fsys))

	var images http.Handler
	if imagesDir != "" {
		images = http.StripPrefix("/images", http.FileServer(http.Dir(imagesDir)))
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if strings.HasPrefix(clean, "images/") {
			if images == nil {
				http.NotFound(w, r)
				return
			}
			images.ServeHTTP(w, withPath(r, "/"+clean))
			return
		}
		if clean == "" || clean == "." {
			http.NotFound(w, r)
			return
		}
		embedded.ServeHTTP(w, withPath(r, "/"+clean))
	}), nil
}

// withPath returns a shallow copy of r with its URL path replaced.
func withPath(r *http.Request, p string) *http.Request {
	r2 := new(http.Request)
	*r2 = *r
	r2.URL = new(url.URL)
	*r2.URL = *r.URL
	r2.URL.Path = p
	r2.URL.RawPath = ""
	return r2
}
