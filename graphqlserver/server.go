package graphqlserver

import (
	gql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"

	"cmms.GO/app"
	"cmms.GO/graphql"
	"cmms.GO/graphql/resolvers"
)

// NewSchema parses the base schema plus registered extensions. Query fields
// resolve on resolvers.Resolver.
func NewSchema(a *app.App) (*gql.Schema, error) {
	return gql.ParseSchema(graphql.Schema(), resolvers.New(a), gql.MaxDepth(8))
}

// Handler returns an http.Handler for GraphQL (relay format).
func Handler(schema *gql.Schema) *relay.Handler {
	return &relay.Handler{Schema: schema}
}
