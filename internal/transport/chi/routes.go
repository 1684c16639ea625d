package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ErrorHandlerFunc reports a parameter binding failure.
type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)

// Options configures Handler.
type Options struct {
	BaseRouter       chi.Router
	Middlewares      []func(http.Handler) http.Handler
	ErrorHandlerFunc ErrorHandlerFunc
}

// Handler mounts every API route of s on opts.BaseRouter (a new router if nil).
func Handler(s *Server, opts Options) http.Handler {
	r := opts.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	w := &wrapper{server: s, errorHandler: opts.ErrorHandlerFunc}
	if w.errorHandler == nil {
		w.errorHandler = func(rw http.ResponseWriter, _ *http.Request, err error) {
			writeError(rw, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		}
	}

	r.Group(func(r chi.Router) {
		r.Use(opts.Middlewares...)

		r.Get("/health", s.HealthCheck)
		r.Get("/metrics", s.Metrics)

		r.Route("/campaigns/{campaign}", func(r chi.Router) {
			r.Get("/entities", w.ListEntities)
			r.Post("/entities/batch", w.BatchUpsert)
			r.Post("/entities/batch/delete", w.BatchDelete)
			r.Get("/entities/{entityId}", w.GetEntity)
			r.Put("/entities/{entityId}", w.UpsertEntity)
			r.Delete("/entities/{entityId}", w.DeleteEntity)
			r.Get("/index", w.GetIndex)
			r.Post("/annotate", w.Annotate)
			r.Get("/preview/{entityType}/{entityId}", w.GetPreview)
		})
	})
	return r
}

// wrapper binds path and query parameters before calling the server.
type wrapper struct {
	server       *Server
	errorHandler ErrorHandlerFunc
}

func (w *wrapper) ListEntities(rw http.ResponseWriter, r *http.Request) {
	campaign, ok := w.pathParam(rw, r, "campaign")
	if !ok {
		return
	}
	var entityType *string
	if err := runtime.BindQueryParameter("form", true, false, "type", r.URL.Query(), &entityType); err != nil {
		w.errorHandler(rw, r, fmt.Errorf("invalid format for parameter type: %w", err))
		return
	}
	w.server.ListEntities(rw, r, campaign, entityType)
}

func (w *wrapper) UpsertEntity(rw http.ResponseWriter, r *http.Request) {
	campaign, entityID, ok := w.entityParams(rw, r)
	if !ok {
		return
	}
	w.server.UpsertEntity(rw, r, campaign, entityID)
}

func (w *wrapper) GetEntity(rw http.ResponseWriter, r *http.Request) {
	campaign, entityID, ok := w.entityParams(rw, r)
	if !ok {
		return
	}
	w.server.GetEntity(rw, r, campaign, entityID)
}

func (w *wrapper) DeleteEntity(rw http.ResponseWriter, r *http.Request) {
	campaign, entityID, ok := w.entityParams(rw, r)
	if !ok {
		return
	}
	w.server.DeleteEntity(rw, r, campaign, entityID)
}

func (w *wrapper) BatchUpsert(rw http.ResponseWriter, r *http.Request) {
	if campaign, ok := w.pathParam(rw, r, "campaign"); ok {
		w.server.BatchUpsert(rw, r, campaign)
	}
}

func (w *wrapper) BatchDelete(rw http.ResponseWriter, r *http.Request) {
	if campaign, ok := w.pathParam(rw, r, "campaign"); ok {
		w.server.BatchDelete(rw, r, campaign)
	}
}

func (w *wrapper) GetIndex(rw http.ResponseWriter, r *http.Request) {
	if campaign, ok := w.pathParam(rw, r, "campaign"); ok {
		w.server.GetIndex(rw, r, campaign)
	}
}

func (w *wrapper) Annotate(rw http.ResponseWriter, r *http.Request) {
	if campaign, ok := w.pathParam(rw, r, "campaign"); ok {
		w.server.Annotate(rw, r, campaign)
	}
}

func (w *wrapper) GetPreview(rw http.ResponseWriter, r *http.Request) {
	campaign, entityID, ok := w.entityParams(rw, r)
	if !ok {
		return
	}
	entityType, ok := w.pathParam(rw, r, "entityType")
	if !ok {
		return
	}
	w.server.GetPreview(rw, r, campaign, entityType, entityID)
}

func (w *wrapper) entityParams(rw http.ResponseWriter, r *http.Request) (campaign, entityID string, ok bool) {
	if campaign, ok = w.pathParam(rw, r, "campaign"); !ok {
		return "", "", false
	}
	if entityID, ok = w.pathParam(rw, r, "entityId"); !ok {
		return "", "", false
	}
	return campaign, entityID, true
}

func (w *wrapper) pathParam(rw http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		w.errorHandler(rw, r, fmt.Errorf("invalid format for parameter %s: %w", name, err))
		return "", false
	}
	return v, true
}
