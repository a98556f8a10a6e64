// Package docs holds the OpenAPI description served under /swagger when the
// server is built with -tags=swagger.
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
            "get": {"summary": "Liveness probe", "produces": ["text/plain"], "responses": {"200": {"description": "ok"}}}
        },
        "/readyz": {
            "get": {"summary": "Readiness probe; 503 until the model is loaded", "produces": ["text/plain"], "responses": {"200": {"description": "ready"}, "503": {"description": "loading"}}}
        },
        "/status": {
            "get": {"summary": "Model and server status", "produces": ["application/json"], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}}
        },
        "/models": {
            "get": {"summary": "GGUF files in the model directory", "produces": ["application/json"], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}}}}
        },
        "/model/warmup": {
            "post": {"summary": "Download if needed and load the model", "produces": ["application/json"], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}, "502": {"description": "download failed", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}, "503": {"description": "runtime unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}}
        },
        "/model/release": {
            "post": {"summary": "Unload the model", "produces": ["application/json"], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}}
        },
        "/chat": {
            "post": {
                "summary": "Stream an answer as NDJSON",
                "consumes": ["application/json"],
                "produces": ["application/x-ndjson"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/types.ChatRequest"}}],
                "responses": {"200": {"description": "token lines then a done line", "schema": {"$ref": "#/definitions/types.StreamLine"}}, "400": {"description": "bad request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}, "429": {"description": "too busy", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}
            }
        },
        "/events": {
            "get": {"summary": "Model lifecycle events as NDJSON", "produces": ["application/x-ndjson"], "responses": {"200": {"description": "one line per event", "schema": {"$ref": "#/definitions/types.EventLine"}}}}
        },
        "/history": {
            "get": {"summary": "Saved chat transcript", "produces": ["application/json"], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HistoryResponse"}}}},
            "delete": {"summary": "Clear the saved transcript", "responses": {"204": {"description": "cleared"}}}
        },
        "/documents": {
            "get": {"summary": "Open document sessions", "produces": ["application/json"], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.DocumentsResponse"}}}},
            "post": {
                "summary": "Index a document (JSON text or multipart file upload)",
                "consumes": ["application/json", "multipart/form-data"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "schema": {"$ref": "#/definitions/types.DocumentRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/types.DocumentResponse"}}, "400": {"description": "bad request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}
            }
        },
        "/documents/{id}": {
            "delete": {"summary": "Close a document session", "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}], "responses": {"204": {"description": "closed"}, "404": {"description": "not found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}}
        },
        "/documents/{id}/ask": {
            "post": {
                "summary": "Answer a question from a document as NDJSON",
                "consumes": ["application/json"],
                "produces": ["application/x-ndjson"],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}, {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/types.AskRequest"}}],
                "responses": {"200": {"description": "token lines then a done line with the passages", "schema": {"$ref": "#/definitions/types.StreamLine"}}, "400": {"description": "bad request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}, "404": {"description": "not found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}
            }
        }
    },
    "definitions": {
        "types.AskRequest": {"type": "object", "properties": {"question": {"type": "string", "example": "Who wrote the report?"}, "passages": {"type": "integer", "example": 1}}},
        "types.ChatTurn": {"type": "object", "properties": {"role": {"type": "string", "example": "user"}, "content": {"type": "string"}}},
        "types.ChatRequest": {"type": "object", "properties": {"message": {"type": "string"}, "history": {"type": "array", "items": {"$ref": "#/definitions/types.ChatTurn"}}, "use_saved_history": {"type": "boolean"}}},
        "types.ChatRecord": {"type": "object", "properties": {"text": {"type": "string"}, "isUser": {"type": "boolean"}}},
        "types.HistoryResponse": {"type": "object", "properties": {"messages": {"type": "array", "items": {"$ref": "#/definitions/types.ChatRecord"}}}},
        "types.DocumentRequest": {"type": "object", "properties": {"name": {"type": "string"}, "text": {"type": "string"}}},
        "types.DocumentResponse": {"type": "object", "properties": {"id": {"type": "string"}, "name": {"type": "string"}, "chunks": {"type": "integer"}, "warning": {"type": "string"}}},
        "types.DocumentsResponse": {"type": "object", "properties": {"documents": {"type": "array", "items": {"$ref": "#/definitions/types.DocumentResponse"}}}},
        "types.StreamLine": {"type": "object", "properties": {"token": {"type": "string"}, "done": {"type": "boolean"}, "content": {"type": "string"}, "passage": {"type": "string"}, "cutoff": {"type": "boolean"}, "error": {"type": "string"}}},
        "types.Model": {"type": "object", "properties": {"id": {"type": "string"}, "path": {"type": "string"}, "quant": {"type": "string"}, "size_bytes": {"type": "integer"}, "active": {"type": "boolean"}}},
        "types.ModelsResponse": {"type": "object", "properties": {"models": {"type": "array", "items": {"$ref": "#/definitions/types.Model"}}}},
        "types.EventLine": {"type": "object", "properties": {"event": {"type": "string", "example": "load_ready"}, "asset": {"type": "string"}, "fields": {"type": "object"}, "time_ms": {"type": "integer"}}},
        "types.ErrorResponse": {"type": "object", "properties": {"error": {"type": "string"}, "code": {"type": "integer"}}},
        "types.StatusResponse": {"type": "object", "properties": {"state": {"type": "string"}, "model": {"type": "string"}, "path": {"type": "string"}, "cached": {"type": "boolean"}, "size_bytes": {"type": "integer"}, "download_progress": {"type": "number"}, "last_error": {"type": "string"}, "loads_total": {"type": "integer"}, "loaded_at_unix": {"type": "integer"}, "queue_len": {"type": "integer"}, "inflight": {"type": "integer"}, "max_queue_depth": {"type": "integer"}, "uptime_seconds": {"type": "integer"}, "server_time_unix": {"type": "integer"}, "documents": {"type": "integer"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "sage API",
	Description:      "Local chat and document Q&A over a small on-device language model.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
