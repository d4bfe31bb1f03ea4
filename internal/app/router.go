package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/storefront/internal/cart"
	"github.com/odyssey-erp/storefront/internal/catalog"
	"github.com/odyssey-erp/storefront/internal/checkout"
	"github.com/odyssey-erp/storefront/internal/device"
	"github.com/odyssey-erp/storefront/internal/observability"
	"github.com/odyssey-erp/storefront/internal/storefront"
	"github.com/odyssey-erp/storefront/jobs"
	"github.com/odyssey-erp/storefront/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger      *slog.Logger
	Config      *Config
	Metrics     *observability.Metrics
	Environment device.Environment

	StorefrontHandler *storefront.Handler
	CatalogHandler    *catalog.Handler
	CartHandler       *cart.Handler
	CheckoutHandler   *checkout.Handler
	DeviceHandler     *device.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with storefront defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.Environment != nil && !params.Environment.Online() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"offline"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.DeviceHandler != nil {
		r.Route("/api/device", func(r chi.Router) {
			// The event stream stays open for as long as the page does.
			params.DeviceHandler.MountStream(r)
			r.Group(func(r chi.Router) {
				r.Use(RequestTimeout(params.Config))
				params.DeviceHandler.MountRoutes(r)
			})
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(RequestTimeout(params.Config))

		r.Group(func(r chi.Router) {
			r.Use(OnlineGuard(params.Environment))
			if params.CatalogHandler != nil {
				r.Route("/api/products", params.CatalogHandler.MountRoutes)
			}
			if params.CartHandler != nil {
				r.Route("/api/cart", params.CartHandler.MountRoutes)
			}
			if params.CheckoutHandler != nil {
				r.Route("/api/checkout", params.CheckoutHandler.MountRoutes)
			}
		})

		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
		if params.StorefrontHandler != nil {
			params.StorefrontHandler.MountRoutes(r)
		}
	})

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler caches static assets in the browser for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
