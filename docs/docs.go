// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with `swag init -g cmd/skyflip/main.go -o docs`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/readyz": {
            "get": {
                "tags": ["health"],
                "summary": "Readiness check",
                "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}
            }
        },
        "/api/v1/flips": {
            "get": {
                "tags": ["flips"],
                "summary": "List persisted flip candidates",
                "parameters": [
                    {"type": "string", "description": "bazaar or auction", "name": "kind", "in": "query"},
                    {"type": "string", "description": "item id", "name": "item_id", "in": "query"},
                    {"type": "string", "description": "RFC3339 lower bound on created_at", "name": "since", "in": "query"},
                    {"type": "number", "description": "minimum edge ratio", "name": "min_edge", "in": "query"},
                    {"type": "integer", "description": "page size", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "offset", "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/flips/latest": {
            "get": {
                "tags": ["flips"],
                "summary": "Candidates of the most recent cycle that emitted any",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.apiResponse"}}
                }
            }
        },
        "/api/v1/sources": {
            "get": {
                "tags": ["sources"],
                "summary": "Last committed hash per sub-source",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/cycles": {
            "get": {
                "tags": ["cycles"],
                "summary": "Recent poll cycles",
                "parameters": [
                    {"type": "string", "description": "ok, partial or failed", "name": "status", "in": "query"},
                    {"type": "integer", "description": "page size", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "offset", "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/cycles/run": {
            "post": {
                "tags": ["cycles"],
                "summary": "Run one poll cycle now",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/handler.apiResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handler.apiResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "message": {"type": "string"},
                "data": {},
                "meta": {"type": "object", "additionalProperties": true}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "skyflip API",
	Description:      "Market snapshot ingestion and flip detection.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
