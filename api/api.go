// Package api holds the OpenAPI document describing the HTTP surface.
package api

import _ "embed"

// OpenAPI is the OpenAPI 3 document served at /openapi.json.
//
//go:embed swagger/activities.swagger.json
var OpenAPI []byte
