// Package docs holds the Swagger 2.0 document served under /api/swagger.
// It is maintained by hand alongside the handler annotations; running
// `swag init -g cmd/server/main.go -o docs` replaces it with a generated copy.
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
        "/auth/login": {
            "post": {
                "description": "Authenticate with username and password and return a JWT",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "User login",
                "parameters": [
                    {"description": "Login credentials", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.LoginResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Revoke the current access token",
                "responses": {
                    "204": {"description": "No Content"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/users/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Create an account",
                "parameters": [
                    {"description": "New account", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.UserProfile"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/users/@me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Current user's profile and settings",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.SelfUser"}}
                }
            }
        },
        "/users/@me/push-subscriptions": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Register a browser push endpoint",
                "parameters": [
                    {"description": "PushSubscription JSON", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.PushSubscriptionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.PushSubscription"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "tags": ["users"],
                "summary": "Remove a browser push endpoint",
                "parameters": [
                    {"description": "Endpoint to remove", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.PushSubscriptionRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/users/{username}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Public profile of a user",
                "parameters": [
                    {"type": "string", "description": "Username", "name": "username", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.UserProfile"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "Delete an account and everything it owns",
                "parameters": [
                    {"type": "string", "description": "Username", "name": "username", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Update profile fields",
                "parameters": [
                    {"type": "string", "description": "Username", "name": "username", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.UpdateUserRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.SelfUser"}}
                }
            }
        },
        "/users/{username}/observations": {
            "get": {
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Observations reported by a user",
                "parameters": [
                    {"type": "string", "description": "Username", "name": "username", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.ObservationDetail"}}}
                }
            }
        },
        "/users/{username}/password": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "tags": ["users"],
                "summary": "Change password",
                "parameters": [
                    {"type": "string", "description": "Username", "name": "username", "in": "path", "required": true},
                    {"description": "Old and new password", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.UpdatePasswordRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/users/{username}/position": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "tags": ["users"],
                "summary": "Record the user's last known position",
                "parameters": [
                    {"type": "string", "description": "Username", "name": "username", "in": "path", "required": true},
                    {"description": "Coordinates", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.UpdatePositionRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/users/{username}/promote-admin": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Grant the ADMIN role",
                "parameters": [
                    {"type": "string", "description": "Username", "name": "username", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}}
                }
            }
        },
        "/users/{username}/demote-admin": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Revoke the ADMIN role",
                "parameters": [
                    {"type": "string", "description": "Username", "name": "username", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}}
                }
            }
        },
        "/celestial-bodies": {
            "get": {
                "produces": ["application/json"],
                "tags": ["celestial-bodies"],
                "summary": "List the celestial body catalog",
                "parameters": [
                    {"type": "integer", "default": 0, "description": "Zero-based page", "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "description": "Page size (1-100)", "name": "itemsPerPage", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Page-models_CelestialBody"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["celestial-bodies"],
                "summary": "Add a celestial body to the catalog",
                "parameters": [
                    {"description": "Celestial body", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.CreateCelestialBodyRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.CelestialBody"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/celestial-bodies/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["celestial-bodies"],
                "summary": "Get a celestial body",
                "parameters": [
                    {"type": "integer", "description": "Celestial body ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.CelestialBody"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["celestial-bodies"],
                "summary": "Remove a celestial body and its observations",
                "parameters": [
                    {"type": "integer", "description": "Celestial body ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["celestial-bodies"],
                "summary": "Update a celestial body",
                "parameters": [
                    {"type": "integer", "description": "Celestial body ID", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.UpdateCelestialBodyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.CelestialBody"}}
                }
            }
        },
        "/observations": {
            "get": {
                "produces": ["application/json"],
                "tags": ["observations"],
                "summary": "List observations, newest first",
                "parameters": [
                    {"type": "integer", "default": 20, "description": "Page size (1-100)", "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "description": "Zero-based page", "name": "page", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Page-models_ObservationDetail"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["observations"],
                "summary": "Report an observation",
                "parameters": [
                    {"description": "Observation", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.CreateObservationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.ObservationDetail"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/observations/nearby": {
            "get": {
                "produces": ["application/json"],
                "tags": ["observations"],
                "summary": "Observations within 30 km of a point",
                "parameters": [
                    {"type": "number", "description": "Longitude", "name": "lng", "in": "query", "required": true},
                    {"type": "number", "description": "Latitude", "name": "lat", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.ObservationDetail"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/observations/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["observations"],
                "summary": "Get an observation",
                "parameters": [
                    {"type": "integer", "description": "Observation ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.ObservationDetail"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["observations"],
                "summary": "Delete an observation",
                "parameters": [
                    {"type": "integer", "description": "Observation ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["observations"],
                "summary": "Edit an observation's description or visibility",
                "parameters": [
                    {"type": "integer", "description": "Observation ID", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.UpdateObservationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.ObservationDetail"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/observations/{id}/vote": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "tags": ["observations"],
                "summary": "Set, replace or clear the caller's vote",
                "parameters": [
                    {"type": "integer", "description": "Observation ID", "name": "id", "in": "path", "required": true},
                    {"description": "UPVOTE, DOWNVOTE or null", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.VoteRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/images": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Stores the image as WebP, downscaled to fit 1024px, addressed by its content hash.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["images"],
                "summary": "Upload an image",
                "parameters": [
                    {"type": "file", "description": "PNG, JPEG, GIF or WebP image", "name": "image", "in": "formData", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/service.UploadedImage"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/ws/ticket": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Browsers cannot set headers on websocket upgrades; the ticket is passed as ?ticket= on GET /api/ws instead.",
                "produces": ["application/json"],
                "tags": ["realtime"],
                "summary": "Issue a single-use websocket ticket",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.WSTicketResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/ws": {
            "get": {
                "tags": ["realtime"],
                "summary": "Notification stream",
                "parameters": [
                    {"type": "string", "description": "Ticket from POST /ws/ticket", "name": "ticket", "in": "query", "required": true}
                ],
                "responses": {}
            }
        },
        "/admin/feature-flags": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Configured feature flags and their state for the caller",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        }
    },
    "definitions": {
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "details": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "models.CelestialBody": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "id": {"type": "integer"},
                "image": {"type": "string"},
                "name": {"type": "string"},
                "updated_at": {"type": "string"},
                "validity_time": {"type": "integer"}
            }
        },
        "models.UserAchievement": {
            "type": "object",
            "properties": {
                "achievement": {"type": "string"},
                "level": {"type": "string"}
            }
        },
        "models.UserProfile": {
            "type": "object",
            "properties": {
                "achievements": {"type": "array", "items": {"$ref": "#/definitions/models.UserAchievement"}},
                "avatar": {"type": "string"},
                "biography": {"type": "string"},
                "created_at": {"type": "string"},
                "is_public": {"type": "boolean"},
                "karma": {"type": "integer"},
                "role": {"type": "string", "enum": ["USER", "ADMIN"]},
                "username": {"type": "string"}
            }
        },
        "models.SelfUser": {
            "type": "object",
            "properties": {
                "achievements": {"type": "array", "items": {"$ref": "#/definitions/models.UserAchievement"}},
                "avatar": {"type": "string"},
                "biography": {"type": "string"},
                "created_at": {"type": "string"},
                "is_public": {"type": "boolean"},
                "karma": {"type": "integer"},
                "last_position_update": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "notifications_enabled": {"type": "boolean"},
                "radius": {"type": "integer"},
                "role": {"type": "string", "enum": ["USER", "ADMIN"]},
                "username": {"type": "string"}
            }
        },
        "models.User": {
            "type": "object",
            "properties": {
                "avatar": {"type": "string"},
                "biography": {"type": "string"},
                "created_at": {"type": "string"},
                "id": {"type": "integer"},
                "is_public": {"type": "boolean"},
                "notifications_enabled": {"type": "boolean"},
                "radius": {"type": "integer"},
                "role": {"type": "string", "enum": ["USER", "ADMIN"]},
                "updated_at": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "models.PushSubscription": {
            "type": "object",
            "properties": {
                "auth": {"type": "string"},
                "created_at": {"type": "string"},
                "endpoint": {"type": "string"},
                "id": {"type": "integer"},
                "p256dh": {"type": "string"}
            }
        },
        "models.ObservationDetail": {
            "type": "object",
            "properties": {
                "author": {"type": "string"},
                "celestial_body": {"$ref": "#/definitions/models.CelestialBody"},
                "created_at": {"type": "string"},
                "current_vote": {"type": "string", "enum": ["UPVOTE", "DOWNVOTE"]},
                "description": {"type": "string"},
                "expired": {"type": "boolean"},
                "id": {"type": "integer"},
                "karma": {"type": "integer"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "orientation": {"type": "integer"},
                "timestamp": {"type": "string"},
                "visibility": {"type": "string", "enum": ["NAKED_EYE", "BINOCULARS", "TELESCOPE", "IMAGERY"]}
            }
        },
        "models.Page-models_CelestialBody": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/models.CelestialBody"}},
                "items_per_page": {"type": "integer"},
                "page": {"type": "integer"},
                "total_items": {"type": "integer"}
            }
        },
        "models.Page-models_ObservationDetail": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/models.ObservationDetail"}},
                "items_per_page": {"type": "integer"},
                "page": {"type": "integer"},
                "total_items": {"type": "integer"}
            }
        },
        "service.UploadedImage": {
            "type": "object",
            "properties": {
                "hash": {"type": "string"},
                "height": {"type": "integer"},
                "size_bytes": {"type": "integer"},
                "url": {"type": "string"},
                "width": {"type": "integer"}
            }
        },
        "server.LoginRequest": {
            "type": "object",
            "properties": {
                "password": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "server.LoginResponse": {
            "type": "object",
            "properties": {
                "expires_at": {"type": "string"},
                "token": {"type": "string"},
                "user": {"$ref": "#/definitions/models.SelfUser"}
            }
        },
        "server.RegisterRequest": {
            "type": "object",
            "properties": {
                "biography": {"type": "string"},
                "password": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "server.UpdateUserRequest": {
            "type": "object",
            "properties": {
                "avatar": {"type": "string"},
                "biography": {"type": "string"},
                "is_public": {"type": "boolean"},
                "notifications_enabled": {"type": "boolean"},
                "radius": {"type": "integer"}
            }
        },
        "server.UpdatePasswordRequest": {
            "type": "object",
            "properties": {
                "new_password": {"type": "string"},
                "old_password": {"type": "string"}
            }
        },
        "server.UpdatePositionRequest": {
            "type": "object",
            "properties": {
                "latitude": {"type": "number"},
                "longitude": {"type": "number"}
            }
        },
        "server.PushSubscriptionRequest": {
            "type": "object",
            "properties": {
                "endpoint": {"type": "string"},
                "keys": {
                    "type": "object",
                    "properties": {
                        "auth": {"type": "string"},
                        "p256dh": {"type": "string"}
                    }
                }
            }
        },
        "server.CreateCelestialBodyRequest": {
            "type": "object",
            "properties": {
                "image": {"type": "string"},
                "name": {"type": "string"},
                "validity_time": {"type": "integer"}
            }
        },
        "server.UpdateCelestialBodyRequest": {
            "type": "object",
            "properties": {
                "image": {"type": "string"},
                "name": {"type": "string"},
                "validity_time": {"type": "integer"}
            }
        },
        "server.CreateObservationRequest": {
            "type": "object",
            "properties": {
                "celestial_body_id": {"type": "integer"},
                "description": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "orientation": {"type": "integer"},
                "timestamp": {"type": "string"},
                "visibility": {"type": "string", "enum": ["NAKED_EYE", "BINOCULARS", "TELESCOPE", "IMAGERY"]}
            }
        },
        "server.UpdateObservationRequest": {
            "type": "object",
            "properties": {
                "description": {"type": "string"},
                "visibility": {"type": "string", "enum": ["NAKED_EYE", "BINOCULARS", "TELESCOPE", "IMAGERY"]}
            }
        },
        "server.VoteRequest": {
            "type": "object",
            "properties": {
                "vote": {"type": "string", "enum": ["UPVOTE", "DOWNVOTE"]}
            }
        },
        "server.WSTicketResponse": {
            "type": "object",
            "properties": {
                "expires_at": {"type": "string"},
                "ticket": {"type": "string"}
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
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Open Observatory API",
	Description:      "Crowd-sourced sightings of celestial bodies, with votes, karma and nearby alerts.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
