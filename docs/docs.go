// Package docs registers the OpenAPI document served at /swagger/*.
// Regenerate with `swag init -g cmd/api/main.go` after changing handler annotations.
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
        "/api/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Register a new user",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.registerRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.authResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Login",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.loginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.authResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Logout",
                "responses": {
                    "204": {"description": "No Content"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Current user",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.User"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/admin/users": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "List users",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.User"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/admin/users/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Get a user",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.User"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Update a user's name, email or role",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.updateUserRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.User"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/issues": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["issues"],
                "summary": "List issues, newest first",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "string", "name": "category", "in": "query"},
                    {"type": "string", "name": "user_id", "in": "query"},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.listIssuesResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["issues"],
                "summary": "Report an issue",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.createIssueRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Issue"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/issues/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["issues"],
                "summary": "Get an issue with its status history",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Issue"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/issues/{id}/status": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "tags": ["issues"],
                "summary": "Change an issue's status",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.updateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Issue"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/health": {
            "get": {"tags": ["health"], "summary": "Liveness probe", "responses": {"200": {"description": "OK"}}}
        },
        "/health/ready": {
            "get": {"tags": ["health"], "summary": "Readiness probe", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}
        }
    },
    "definitions": {
        "domain.User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "name": {"type": "string"},
                "role": {"type": "string", "enum": ["admin", "employee", "user"]},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.Location": {
            "type": "object",
            "properties": {
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "address": {"type": "string"}
            }
        },
        "domain.StatusChange": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "changed_by": {"type": "string"},
                "note": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "domain.Issue": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "category": {"type": "string", "enum": ["road", "lighting", "garbage", "infrastructure", "other"]},
                "status": {"type": "string", "enum": ["pending", "analyzing", "inProgress", "resolved"]},
                "location": {"$ref": "#/definitions/domain.Location"},
                "images": {"type": "array", "items": {"type": "string"}},
                "user_id": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"},
                "status_history": {"type": "array", "items": {"$ref": "#/definitions/domain.StatusChange"}}
            }
        },
        "domain.FieldError": {
            "type": "object",
            "properties": {"field": {"type": "string"}, "message": {"type": "string"}}
        },
        "handler.errorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "details": {"type": "array", "items": {"$ref": "#/definitions/domain.FieldError"}}
            }
        },
        "handler.registerRequest": {
            "type": "object",
            "required": ["email", "name", "password"],
            "properties": {
                "name": {"type": "string", "minLength": 2},
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 6},
                "role": {"type": "string", "enum": ["admin", "employee", "user"]}
            }
        },
        "handler.loginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "handler.authResponse": {
            "type": "object",
            "properties": {"user": {"$ref": "#/definitions/domain.User"}, "token": {"type": "string"}}
        },
        "handler.updateUserRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "minLength": 2},
                "email": {"type": "string"},
                "role": {"type": "string", "enum": ["admin", "employee", "user"]}
            }
        },
        "handler.locationRequest": {
            "type": "object",
            "required": ["latitude", "longitude"],
            "properties": {
                "latitude": {"type": "number", "maximum": 90, "minimum": -90},
                "longitude": {"type": "number", "maximum": 180, "minimum": -180},
                "address": {"type": "string", "maxLength": 255}
            }
        },
        "handler.createIssueRequest": {
            "type": "object",
            "required": ["category", "description", "location", "title"],
            "properties": {
                "title": {"type": "string", "maxLength": 100, "minLength": 3},
                "description": {"type": "string", "maxLength": 1000, "minLength": 10},
                "category": {"type": "string", "enum": ["road", "lighting", "garbage", "infrastructure", "other"]},
                "location": {"$ref": "#/definitions/handler.locationRequest"},
                "images": {"type": "array", "items": {"type": "string"}}
            }
        },
        "handler.updateStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["pending", "analyzing", "inProgress", "resolved"]},
                "note": {"type": "string", "maxLength": 500}
            }
        },
        "handler.paginationResponse": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "page": {"type": "integer"},
                "limit": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "handler.listIssuesResponse": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/domain.Issue"}},
                "pagination": {"$ref": "#/definitions/handler.paginationResponse"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the JWT.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Civic Reports API",
	Description:      "Citizen issue reporting with JWT sessions and role-based access.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
