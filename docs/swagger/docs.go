// Package swagger registers the OpenAPI document served under /swagger/.
// It is maintained by hand alongside the handler annotations.
package swagger

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
                "description": "Exchange the shared admin password for a bearer token valid for 24 hours.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Admin login",
                "parameters": [
                    {
                        "description": "Admin password",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/auth.loginRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            }
        },
        "/subscribers": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["subscribers"],
                "summary": "List subscribers",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            },
            "post": {
                "description": "Record an email address. Subscribing an existing address returns the existing record.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["subscribers"],
                "summary": "Subscribe to the newsletter",
                "parameters": [
                    {
                        "description": "Email address",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/subscriber.subscribeRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            }
        },
        "/subscribers/{id}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["subscribers"],
                "summary": "Remove a subscriber",
                "parameters": [
                    {"type": "string", "description": "Subscriber ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            }
        },
        "/upload": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Stores one image (field \"image\", image/*, at most 5 MiB) and returns a long-lived read URL.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["upload"],
                "summary": "Upload one image",
                "parameters": [
                    {"type": "file", "description": "Image file", "name": "image", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/upload.singleUploadData"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            }
        },
        "/upload/multiple": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Stores up to 10 images (field \"images\") concurrently. URLs are returned in input order. Any single failure fails the whole request.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["upload"],
                "summary": "Upload several images",
                "parameters": [
                    {"type": "file", "description": "Image files", "name": "images", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/upload.multipleUploadData"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            }
        }
    },
    "definitions": {
        "auth.loginRequest": {
            "type": "object",
            "properties": {"password": {"type": "string", "example": "s3cret"}}
        },
        "response.Envelope": {
            "type": "object",
            "properties": {
                "data": {},
                "message": {"type": "string"},
                "success": {"type": "boolean"}
            }
        },
        "subscriber.subscribeRequest": {
            "type": "object",
            "properties": {"email": {"type": "string", "example": "reader@example.com"}}
        },
        "upload.multipleUploadData": {
            "type": "object",
            "properties": {
                "imageUrls": {"type": "array", "items": {"type": "string"}},
                "success": {"type": "boolean", "example": true}
            }
        },
        "upload.singleUploadData": {
            "type": "object",
            "properties": {
                "imageUrl": {"type": "string"},
                "success": {"type": "boolean", "example": true}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "JWT Bearer token. Format: **Bearer {token}**",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Site API",
	Description:      "Content backend for the marketing site: media uploads, newsletter subscribers, admin login.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
