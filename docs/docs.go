// Package docs holds the OpenAPI description served at /swagger/.
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
        "/handle_push": {
            "post": {
                "description": "Accepts a Foursquare check-in push, either as form field \"checkin\" or as a raw JSON body. Always answers 200 so the sender does not retry.",
                "consumes": ["application/x-www-form-urlencoded", "application/json"],
                "produces": ["application/json"],
                "tags": ["checkins"],
                "summary": "Receive a check-in push",
                "parameters": [
                    {"type": "string", "description": "Check-in JSON", "name": "checkin", "in": "formData"},
                    {"type": "string", "description": "Push secret", "name": "secret", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "data.message is always received", "schema": {"$ref": "#/definitions/controllers.PushSuccessResponse"}},
                    "403": {"description": "error.code: forbidden", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        },
        "/me/phone": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["phone"],
                "summary": "Get my registered phone number",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.PhoneSuccessResponse"}},
                    "401": {"description": "error.code: unauthorized", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "404": {"description": "error.code: not_found", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "500": {"description": "error.code: internal_error", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "description": "Stores the E.164 phone number that check-in notifications are sent to.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["phone"],
                "summary": "Register my phone number",
                "parameters": [
                    {"description": "Phone number", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/controllers.UpdatePhoneRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.PhoneSuccessResponse"}},
                    "400": {"description": "error.code: bad_request", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "401": {"description": "error.code: unauthorized", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "500": {"description": "error.code: internal_error", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        },
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.HealthResponse"}}
                }
            }
        }
    },
    "definitions": {
        "controllers.HealthResponse": {
            "type": "object",
            "properties": {"status": {"type": "string", "example": "ok"}}
        },
        "controllers.PushResponse": {
            "type": "object",
            "properties": {"message": {"type": "string", "example": "received"}}
        },
        "controllers.PushSuccessResponse": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/controllers.PushResponse"},
                "error": {"$ref": "#/definitions/helpers.APIError"}
            }
        },
        "controllers.UpdatePhoneRequest": {
            "type": "object",
            "required": ["phone"],
            "properties": {"phone": {"type": "string", "example": "+15551234567"}}
        },
        "controllers.PhoneSuccessResponse": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/domain.ContactRecord"},
                "error": {"$ref": "#/definitions/helpers.APIError"}
            }
        },
        "domain.ContactRecord": {
            "type": "object",
            "properties": {
                "owner_id": {"type": "string"},
                "phone_number": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "helpers.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "helpers.APIResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"$ref": "#/definitions/helpers.APIError"}
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
	Title:            "meetuphere API",
	Description:      "Check-in ingestion and phone registration for Meetup venue notifications.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
