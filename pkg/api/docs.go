package api

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
                "description": "Get the health status of the API and the supported codecs",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/api.HealthResponse"}
                    }
                }
            }
        },
        "/upload": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Upload an Avro object container file and receive its schema, codec, sync marker and records as JSON.\nDecode failures are reported as {\"error\": \"An error occurred: ...\"} with status 200.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["upload"],
                "summary": "Decode an Avro container file",
                "parameters": [
                    {
                        "type": "file",
                        "description": "Avro container file (.avro)",
                        "name": "file",
                        "in": "formData",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/result.Payload"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/result.ErrorPayload"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/result.ErrorPayload"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/result.ErrorPayload"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/result.ErrorPayload"}}
                }
            }
        }
    },
    "definitions": {
        "api.HealthResponse": {
            "type": "object",
            "properties": {
                "codecs": {"type": "array", "items": {"type": "string"}},
                "status": {"type": "string"}
            }
        },
        "result.ErrorPayload": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        },
        "result.Metadata": {
            "type": "object",
            "properties": {
                "codec": {"type": "string"},
                "sync_marker": {"type": "string"}
            }
        },
        "result.Payload": {
            "type": "object",
            "properties": {
                "metadata": {"$ref": "#/definitions/result.Metadata"},
                "records": {"type": "array", "items": {}},
                "schema": {},
                "total_records": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "avroview REST API",
	Description:      "Decodes uploaded Avro object container files into JSON.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
