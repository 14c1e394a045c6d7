package graphql

import (
	_ "embed"
)

//go:embed schema.graphqls
var schema string

// Schema returns the schema document. Custom fields are not added to Query;
// they are reached through _extension and graphql/registry.
func Schema() string {
	return schema
}
