// Package docs registers the OpenAPI document served under /swagger/.
// Keep it in sync with the handler annotations in internal/handler/http.
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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header",
            "description": "JWT Authorization header. Format: \"Bearer {token}\""
        }
    },
    "paths": {
        "/shorten": {
            "post": {
                "tags": ["Links"],
                "summary": "Create a short link",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/CreateLinkRequest"}}],
                "responses": {
                    "201": {"description": "Link created successfully", "schema": {"$ref": "#/definitions/LinkResponse"}},
                    "400": {"description": "Invalid request data or alias taken", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "429": {"description": "Anonymous limit reached", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/check/{slug}": {
            "get": {
                "tags": ["Links"],
                "summary": "Check custom alias availability",
                "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "slug", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/AvailabilityResponse"}}}
            }
        },
        "/{code}": {
            "get": {
                "tags": ["Redirect"],
                "summary": "Follow a short link",
                "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}],
                "responses": {
                    "302": {"description": "Redirect to the destination"},
                    "307": {"description": "Redirect to the unlock page"},
                    "404": {"description": "Unknown code", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "410": {"description": "Inactive, expired or out of clicks", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/unlock/{code}": {
            "get": {
                "tags": ["Redirect"],
                "summary": "Describe the unlock challenge of a link",
                "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Challenge"}}}
            },
            "post": {
                "tags": ["Redirect"],
                "summary": "Unlock a password protected link",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "code", "type": "string", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/UnlockRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/UnlockResponse"}},
                    "403": {"description": "Incorrect password", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "429": {"description": "Too many attempts", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/urls": {
            "get": {
                "tags": ["Links"],
                "summary": "List own links",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "offset", "type": "integer"},
                    {"in": "query", "name": "limit", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Authentication required"}}
            }
        },
        "/urls/{code}": {
            "put": {
                "tags": ["Links"],
                "summary": "Update an own link",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "code", "type": "string", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/UpdateLinkRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/LinkResponse"}}, "404": {"description": "Link not found"}}
            },
            "delete": {
                "tags": ["Links"],
                "summary": "Delete a link",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}],
                "responses": {"204": {"description": "Link deleted successfully"}, "404": {"description": "Link not found"}}
            }
        },
        "/urls/{code}/stats": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Click breakdown of an own link",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Link not found"}}
            }
        },
        "/analytics/dashboard": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Owner dashboard",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "query", "name": "range", "type": "string", "enum": ["24h", "7d", "30d", "90d"]}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/health": {"get": {"tags": ["Health"], "summary": "Liveness probe", "responses": {"200": {"description": "OK"}, "503": {"description": "Database unavailable"}}}},
        "/ready": {"get": {"tags": ["Health"], "summary": "Readiness probe", "responses": {"200": {"description": "OK"}, "503": {"description": "Not ready"}}}}
    },
    "definitions": {
        "ErrorResponse": {"type": "object", "properties": {"error": {"type": "string"}}},
        "AvailabilityResponse": {"type": "object", "properties": {"available": {"type": "boolean"}}},
        "Challenge": {"type": "object", "properties": {"code": {"type": "string"}, "password_required": {"type": "boolean"}}},
        "UnlockRequest": {"type": "object", "properties": {"password": {"type": "string"}}},
        "UnlockResponse": {"type": "object", "properties": {"destination": {"type": "string"}}},
        "CreateLinkRequest": {
            "type": "object",
            "properties": {
                "original_url": {"type": "string"},
                "custom_alias": {"type": "string"},
                "password": {"type": "string"},
                "expires_at": {"type": "string", "format": "date-time"},
                "max_clicks": {"type": "integer"}
            }
        },
        "UpdateLinkRequest": {
            "type": "object",
            "properties": {
                "original_url": {"type": "string"},
                "is_active": {"type": "boolean"},
                "expires_at": {"type": "string", "format": "date-time"},
                "max_clicks": {"type": "integer"}
            }
        },
        "LinkResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "short_code": {"type": "string"},
                "short_url": {"type": "string"},
                "original_url": {"type": "string"},
                "clicks": {"type": "integer"},
                "is_active": {"type": "boolean"},
                "password_protected": {"type": "boolean"},
                "expires_at": {"type": "string", "format": "date-time"},
                "max_clicks": {"type": "integer"},
                "created_at": {"type": "string", "format": "date-time"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "shawty API",
	Description:      "URL shortener with password protected links, click quotas and click analytics.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
