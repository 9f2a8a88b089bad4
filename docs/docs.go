// Package docs holds the generated OpenAPI document registered with swag.
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
        "/deals": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["deals"],
                "summary": "Open a leveraged deal at the current market price",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"},
                    "404": {"description": "Not Found"},
                    "503": {"description": "Service Unavailable"}
                }
            }
        },
        "/deals/{id}/close": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["deals"],
                "summary": "Close an open deal at the current market price",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "404": {"description": "Not Found"},
                    "503": {"description": "Service Unavailable"}
                }
            }
        },
        "/deals/{id}/risk": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["deals"],
                "summary": "Update take-profit and stop-loss of an open deal",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "404": {"description": "Not Found"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/leaderboard": {
            "get": {
                "produces": ["application/json"],
                "tags": ["rating"],
                "summary": "Top users ordered by score",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/users/{user_id}/deals": {
            "get": {
                "produces": ["application/json"],
                "tags": ["deals"],
                "summary": "List a user's deals",
                "parameters": [
                    {"type": "integer", "name": "user_id", "in": "path", "required": true},
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"}
                }
            }
        },
        "/users/{user_id}/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["rating"],
                "summary": "Aggregate trading statistics for a user",
                "parameters": [
                    {"type": "integer", "name": "user_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/users/{user_id}/rank": {
            "get": {
                "produces": ["application/json"],
                "tags": ["rating"],
                "summary": "Global leaderboard rank for a user",
                "parameters": [
                    {"type": "integer", "name": "user_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "CryptoCraze Deal Engine API",
	Description:      "Leveraged virtual deals, automatic settlement and leaderboard rating.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
