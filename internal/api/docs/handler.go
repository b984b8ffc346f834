package docs

import (
	_ "embed"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

//go:embed swagger.yaml
var openAPI []byte

// Mount serves the OpenAPI document and Swagger UI under prefix.
func Mount(r chi.Router, prefix string) {
	specURL := path.Join(prefix, "swagger.yaml")

	r.Route(prefix, func(r chi.Router) {
		r.Get("/", http.RedirectHandler(path.Join(prefix, "index.html"), http.StatusFound).ServeHTTP)
		r.Get("/swagger.yaml", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/yaml")
			w.Header().Set("Cache-Control", "no-cache")
			w.Write(openAPI)
		})
		r.Get("/*", httpSwagger.Handler(
			httpSwagger.URL(specURL),
			httpSwagger.DeepLinking(true),
			httpSwagger.DocExpansion("list"),
			httpSwagger.DomID("swagger-ui"),
		))
	})
}
