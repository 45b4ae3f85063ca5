package api

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
        "/health": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/inspect": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/octet-stream"],
                "produces": ["application/json"],
                "tags": ["chunks"],
                "summary": "Inspect a PNG",
                "parameters": [
                    {"type": "string", "description": "Comma separated chunk types to keep", "name": "type", "in": "query"},
                    {"type": "string", "description": "Comma separated record indices to keep", "name": "index", "in": "query"},
                    {"type": "integer", "description": "Maximum number of chunks", "name": "limit", "in": "query"},
                    {"type": "string", "description": "auto, strict or heuristic", "name": "mode", "in": "query"},
                    {"type": "boolean", "description": "Decode tEXt, zTXt and iTXt chunks", "name": "text", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.InspectResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/repair": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/octet-stream"],
                "produces": ["image/png"],
                "tags": ["chunks"],
                "summary": "Repair chunk CRCs",
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/images": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["images"],
                "summary": "List archived images",
                "parameters": [
                    {"type": "string", "description": "Chunk type the image must contain", "name": "type", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            },
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/octet-stream"],
                "produces": ["application/json"],
                "tags": ["images"],
                "summary": "Archive a PNG",
                "parameters": [{"type": "boolean", "description": "Decode tEXt, zTXt and iTXt chunks", "name": "text", "in": "query"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.InspectResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/images/{id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["images"],
                "summary": "Report an archived image",
                "parameters": [
                    {"type": "string", "description": "Image id", "name": "id", "in": "path", "required": true},
                    {"type": "boolean", "description": "Decode tEXt, zTXt and iTXt chunks", "name": "text", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.InspectResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["images"],
                "summary": "Delete an archived image",
                "parameters": [{"type": "string", "description": "Image id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/images/{id}/raw": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["image/png"],
                "tags": ["images"],
                "summary": "Render an archived image",
                "parameters": [
                    {"type": "string", "description": "Image id", "name": "id", "in": "path", "required": true},
                    {"type": "boolean", "description": "Recompute CRCs", "name": "repair", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/images/{id}/chunks/{index}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/octet-stream"],
                "tags": ["images"],
                "summary": "Extract one chunk",
                "parameters": [
                    {"type": "string", "description": "Image id", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Record index", "name": "index", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "api.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "error": {"type": "string"}
            }
        },
        "api.InspectResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "summary": {"type": "object"},
                "chunks": {"type": "array", "items": {"type": "object"}}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "pchunk REST API",
	Description:      "Inspect, repair and archive PNG files chunk by chunk.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
