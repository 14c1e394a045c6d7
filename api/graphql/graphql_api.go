package graphql

import (
	"net/http"

	gql "github.com/graph-gophers/graphql-go"
	"github.com/labstack/echo/v4"

	"cmms.GO/api"
	"cmms.GO/app"
	"cmms.GO/core/auth"
	"cmms.GO/graphqlserver"
)

func init() {
	api.RegisterRoute(RegisterGraphQLRoutes)
}

// RegisterGraphQLRoutes mounts /graphql behind the same auth and
// organization scoping as /api, and the playground page.
func RegisterGraphQLRoutes(e *echo.Echo, a *app.App) {
	schema, err := graphqlserver.NewSchema(a)
	if err != nil {
		panic("graphql schema: " + err.Error())
	}
	registerRoutes(e, schema, auth.Middleware(a.DB), api.Logger(a.Log), api.Organization())
}

// RegisterGraphQLRoutesWithSchema registers /graphql with a custom schema
// and middleware (for tests).
func RegisterGraphQLRoutesWithSchema(e *echo.Echo, schema *gql.Schema, mw ...echo.MiddlewareFunc) {
	registerRoutes(e, schema, mw...)
}

func registerRoutes(e *echo.Echo, schema *gql.Schema, mw ...echo.MiddlewareFunc) {
	h := echo.WrapHandler(graphqlserver.Handler(schema))
	e.POST("/graphql", h, mw...)
	e.GET("/graphql", h, mw...)
	e.GET("/graphql/playground", echo.WrapHandler(playgroundHandler()))
}

func playgroundHandler() http.Handler {
	html := `<!DOCTYPE html>
<html>
<head>
	<title>GraphQL Playground</title>
	<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/graphql-playground-react/build/static/css/index.css"/>
</head>
<body>
	<div id="root"/>
	<script src="https://cdn.jsdelivr.net/npm/graphql-playground-react/build/static/js/middleware.js"></script>
	<script>window.addEventListener('load', function() {
		GraphQLPlayground.init({ endpoint: '/graphql', headers: { 'X-Organization-ID': '1' } });
	})</script>
</body>
</html>`
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(html))
	})
}
