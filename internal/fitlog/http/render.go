package http

import (
	"bytes"
	"embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strconv"
	"time"

	"github.com/billedfitness/bfl/internal/fitlog/domain"
	"github.com/billedfitness/bfl/internal/fitlog/service"
	"github.com/billedfitness/bfl/pkg/httpx"
	"github.com/billedfitness/bfl/pkg/slogx"
	"github.com/gorilla/csrf"
)

//go:embed templates
var templateFS embed.FS

const flashCookieName = "bfl_flash"

type FlashLevel string

const (
	FlashSuccess FlashLevel = "success"
	FlashInfo    FlashLevel = "info"
	FlashWarning FlashLevel = "warning"
	FlashDanger  FlashLevel = "danger"
)

type Flash struct {
	Level   FlashLevel `json:"l"`
	Message string     `json:"m"`
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	},
	"value": func(v url.Values, key any) string {
		return v.Get(fmt.Sprint(key))
	},
	"has": func(v url.Values, key, want string) bool {
		return slices.Contains(v[key], want)
	},
	"withReturn": func(target, returnTo string) string {
		if returnTo == "" {
			return target
		}
		return target + "?return_to=" + url.QueryEscape(returnTo)
	},
	"pageURL": func(base string, q url.Values, page int) string {
		out := url.Values{}
		for k, vs := range q {
			out[k] = vs
		}
		out.Set("page", strconv.Itoa(page))
		return base + "?" + out.Encode()
	},
	"levels":     func() []domain.ResistanceLevel { return domain.ResistanceLevels },
	"categories": func() []domain.Category { return domain.Categories },
	"str":        func(v any) string { return fmt.Sprint(v) },
}

// Renderer executes the embedded page templates inside the shared layout and
// carries the flash cookie between a redirect and the next page.
type Renderer struct {
	Secure bool

	pages map[string]*template.Template
}

func NewRenderer(secure bool) (*Renderer, error) {
	files, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(files))
	for _, f := range files {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", f)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		pages[path.Base(f)] = t
	}
	return &Renderer{Secure: secure, pages: pages}, nil
}

// Render writes page name with data plus the values every page needs.
func (v *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	t, ok := v.pages[name]
	if !ok {
		v.ServerError(w, r, fmt.Errorf("unknown template %q", name))
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = service.FormErrors(nil)
	}
	if u, ok := currentUser(r); ok {
		data["CurrentUser"] = u
	}
	data["Flashes"] = v.popFlashes(w, r)
	data["CSRFField"] = csrf.TemplateField(r)
	data["Path"] = r.URL.Path

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		slogx.FromContext(r.Context()).Error("template render failed", slog.String("template", name), slogx.Err(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (v *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	v.Render(w, r, http.StatusNotFound, "error.html", map[string]any{
		"Title":   "Page not found",
		"Message": "The page you requested does not exist.",
	})
}

// ServerError logs err with the request logger and renders a generic page.
func (v *Renderer) ServerError(w http.ResponseWriter, r *http.Request, err error) {
	slogx.FromContext(r.Context()).Error("request failed", slogx.Err(err))
	if _, ok := v.pages["error.html"]; !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	v.Render(w, r, http.StatusInternalServerError, "error.html", map[string]any{
		"Title":   "Something went wrong",
		"Message": "An unexpected error occurred. Please try again later.",
	})
}

// AddFlash queues a message for the next rendered page.
func (v *Renderer) AddFlash(w http.ResponseWriter, r *http.Request, level FlashLevel, msg string) {
	flashes := append(readFlashes(r), Flash{Level: level, Message: msg})
	raw, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HttpOnly: true,
		Secure:   v.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (v *Renderer) popFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	flashes := readFlashes(r)
	if len(flashes) > 0 {
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookieName,
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   v.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return flashes
}

func readFlashes(r *http.Request) []Flash {
	c, err := r.Cookie(flashCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(raw, &flashes); err != nil {
		return nil
	}
	return flashes
}
