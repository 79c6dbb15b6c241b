// Package docs holds the OpenAPI document served under /swagger. It uses the
// layout swag init produces and mirrors the handler annotations.
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}},
                    "503": {"description": "Database unreachable", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}}
                }
            }
        },
        "/health/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}}
                }
            }
        },
        "/health/live": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Operator login",
                "parameters": [
                    {
                        "description": "Operator credentials",
                        "name": "credentials",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.LoginRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.LoginResponse"}},
                    "400": {"description": "Malformed request", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "503": {"description": "Login not configured", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/api/v1/status": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Scheduler state, circuit breaker, last cycle and 24h statistics",
                "produces": ["application/json"],
                "tags": ["Cycles"],
                "summary": "Scheduler status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.StatusResponse"}},
                    "401": {"description": "Missing or invalid token", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/api/v1/cycles": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Cycles"],
                "summary": "List cycles",
                "parameters": [
                    {"type": "integer", "description": "Maximum number of cycles", "name": "limit", "in": "query"},
                    {"type": "string", "description": "RFC3339 start, default 24h ago", "name": "from", "in": "query"},
                    {"type": "string", "description": "RFC3339 end, default now", "name": "to", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "cluster_id, cycles and count", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad query parameter", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "503": {"description": "History disabled", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Cycles"],
                "summary": "Trigger a cycle",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.CycleRecord"}},
                    "409": {"description": "A cycle is already running", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "503": {"description": "Circuit breaker open", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/api/v1/cycles/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Cycles"],
                "summary": "Get cycle",
                "parameters": [
                    {"type": "string", "description": "Cycle ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.CycleRecord"}},
                    "400": {"description": "Malformed cycle id", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "404": {"description": "Cycle not found", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "503": {"description": "History disabled", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "errorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "handlers.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "timestamp": {"type": "string"},
                "checks": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "handlers.LoginRequest": {
            "type": "object",
            "required": ["password", "username"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "handlers.LoginResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "expires_in": {"type": "integer"},
                "username": {"type": "string"}
            }
        },
        "handlers.StatusResponse": {
            "type": "object",
            "properties": {
                "cluster_id": {"type": "string"},
                "scheduler_running": {"type": "boolean"},
                "interval": {"type": "integer", "description": "nanoseconds"},
                "circuit_breaker": {"type": "string", "enum": ["closed", "open", "half-open"]},
                "last_cycle": {"$ref": "#/definitions/models.CycleRecord"},
                "stats_24h": {"$ref": "#/definitions/queries.CycleStats"}
            }
        },
        "models.CycleRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "cluster_id": {"type": "string"},
                "started_at": {"type": "string"},
                "finished_at": {"type": "string"},
                "prediction": {"type": "number"},
                "action": {"type": "string", "enum": ["NO_CHANGE", "SET_NODE_COUNT"]},
                "nodes_before": {"type": "integer"},
                "nodes_after": {"type": "integer"},
                "status": {"type": "string", "enum": ["success", "failed"]},
                "error_kind": {"type": "string"},
                "error_message": {"type": "string"}
            }
        },
        "queries.CycleStats": {
            "type": "object",
            "properties": {
                "cluster_id": {"type": "string"},
                "total_cycles": {"type": "integer"},
                "failed_cycles": {"type": "integer"},
                "scaling_cycles": {"type": "integer"},
                "avg_prediction": {"type": "number"},
                "last_cycle_start": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the token from /auth/login.",
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
	Title:            "Forecast Autoscaler API",
	Description:      "Status, cycle history and manual triggers for the forecast-driven node pool autoscaler.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
