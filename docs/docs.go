// Package docs is generated by swag init; regenerate with go generate ./cmd/scraper.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
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
        "/api/collections/{collection}/market": {
            "get": {
                "tags": ["listings"],
                "summary": "Listed records of a collection",
                "parameters": [
                    {"type": "string", "description": "collection ticker", "name": "collection", "in": "path", "required": true},
                    {"type": "string", "description": "id|rank|price|viewed|latest", "name": "by", "in": "query"},
                    {"type": "string", "description": "asc|desc", "name": "order", "in": "query"},
                    {"type": "integer", "description": "page number, from 1", "name": "page", "in": "query"},
                    {"type": "integer", "description": "page size (max 100)", "name": "count", "in": "query"},
                    {"type": "string", "description": "market type (buy|bid)", "name": "type", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/collections/{collection}/all": {
            "get": {
                "tags": ["listings"],
                "summary": "All records of a collection",
                "parameters": [
                    {"type": "string", "description": "collection ticker", "name": "collection", "in": "path", "required": true},
                    {"type": "boolean", "description": "claim state", "name": "isClaimed", "in": "query"},
                    {"type": "string", "description": "element", "name": "stone", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/collections/{collection}/id/{id}": {
            "get": {
                "tags": ["listings"],
                "summary": "One record; counts a view",
                "parameters": [
                    {"type": "string", "name": "collection", "in": "path", "required": true},
                    {"type": "integer", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/collections/{collection}/floor/{element}": {
            "get": {
                "tags": ["listings"],
                "summary": "Cheapest listed record of an element",
                "parameters": [
                    {"type": "string", "name": "collection", "in": "path", "required": true},
                    {"type": "string", "name": "element", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/admin/scrape/{job}": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Run one scrape tick now",
                "parameters": [{"type": "string", "name": "job", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}
            }
        },
        "/api/admin/runs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Last run per job and collection",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "NFT Market API",
	Description:      "Reconciled marketplace listings and scraper controls.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
