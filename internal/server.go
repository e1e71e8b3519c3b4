package internal

import (
	"context"
	"embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"transport-vendor-api/internal/config"
	"transport-vendor-api/internal/handlers"
	"transport-vendor-api/internal/models"
)

//go:embed openapi
var openapiFS embed.FS

// VendorStore is what the HTTP layer needs from persistence.
type VendorStore interface {
	List(ctx context.Context, f models.ListFilter) ([]models.Vendor, error)
	Get(ctx context.Context, id int64) (*models.Vendor, error)
	Create(ctx context.Context, in models.VendorInput) (int64, error)
	Update(ctx context.Context, id int64, in models.VendorInput) (*models.Vendor, error)
	Delete(ctx context.Context, id int64) error
	AppendNote(ctx context.Context, id int64, comment string) ([]models.Note, error)
	FindDuplicate(ctx context.Context, name, transportName string, excludeID int64) (int64, bool, error)
	Ping(ctx context.Context) error
}

type Server struct {
	Router  *chi.Mux
	Store   VendorStore
	Metrics *Metrics

	cfg     *config.Config
	log     zerolog.Logger
	imports *handlers.ImportsHandler
}

// NewServer wires the routes. Every route is served both at the root and
// under /api.
func NewServer(cfg *config.Config, st VendorStore, log zerolog.Logger) *Server {
	s := &Server{
		Router:  chi.NewRouter(),
		Store:   st,
		cfg:     cfg,
		log:     log,
		imports: handlers.NewImportsHandler(st),
	}

	s.Router.Use(requestLogging(log)...)
	s.Router.Use(recoverer)
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableMetrics {
		s.Metrics = NewMetrics()
		s.imports.Observer = s.Metrics
		s.Router.Use(s.Metrics.Middleware())
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}
	s.mountDocs(s.Router)

	s.Router.Group(s.mountRoutes)
	s.Router.Route("/api", s.mountRoutes)
	return s
}

func (s *Server) mountRoutes(r chi.Router) {
	r.Get("/health", s.health)

	r.Get("/vendors", s.listVendors)
	r.Post("/vendors", s.createVendor)
	r.Get("/vendors/export-template", s.imports.DownloadTemplate)
	r.Post("/vendors/import", s.imports.UploadVendors)
	r.Get("/vendors/{id}", s.getVendor)
	r.Put("/vendors/{id}", s.updateVendor)
	r.Delete("/vendors/{id}", s.deleteVendor)
	r.Post("/vendors/{id}/notes", s.appendNote)
}

// mountDocs serves the OpenAPI spec and Swagger UI
func (s *Server) mountDocs(r chi.Router) {
	if !s.cfg.EnableSwagger {
		return
	}

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		data, err := openapiFS.ReadFile("openapi/openapi.yaml")
		if err != nil {
			http.Error(w, "Failed to read OpenAPI spec", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/x-yaml")
		_, _ = w.Write(data)
	})

	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(swaggerPage))
	})
}

const swaggerPage = `<!doctype html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Transport Vendor API - Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css">
    <style>
        body { margin: 0; background: #f7f7f7; }
        .swagger-ui .topbar { background: #1f2937; border-bottom: 3px solid #3b82f6; }
        .swagger-ui .topbar .download-url-wrapper { display: none; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            window.ui = SwaggerUIBundle({
                url: '/openapi.yaml',
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [SwaggerUIBundle.presets.apis],
                tryItOutEnabled: true
            });
        };
    </script>
</body>
</html>`
