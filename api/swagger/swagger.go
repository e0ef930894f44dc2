package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Infopanel API",
        "description": "Timetable import and read API for the school infopanel",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Operator login"},
        {"name": "Events", "description": "Timetable events"},
        {"name": "Import", "description": "Timetable import from the CSV export"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events": {
            "get": {
                "tags": ["Events"],
                "summary": "List events ordered by start time",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/EventListEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Events"],
                "summary": "Create a manual event",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CreateEventRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/filter": {
            "get": {
                "tags": ["Events"],
                "summary": "Filter events by equality",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "query", "name": "department", "type": "string"},
                    {"in": "query", "name": "class_name", "type": "string"},
                    {"in": "query", "name": "subject", "type": "string"},
                    {"in": "query", "name": "teacher", "type": "string"},
                    {"in": "query", "name": "room", "type": "string"},
                    {"in": "query", "name": "building", "type": "string"},
                    {"in": "query", "name": "visible", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/EventListEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/bytime": {
            "get": {
                "tags": ["Events"],
                "summary": "Events inside a time window",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "query", "name": "from_datetime", "type": "string", "description": "from_datetime >= value, 2006-01-02T15:04:05"},
                    {"in": "query", "name": "to_datetime", "type": "string", "description": "to_datetime <= value, 2006-01-02T15:04:05"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/EventListEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/export": {
            "get": {
                "tags": ["Events"],
                "summary": "Export filtered events as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"]},
                    {"in": "query", "name": "department", "type": "string"},
                    {"in": "query", "name": "class_name", "type": "string"},
                    {"in": "query", "name": "teacher", "type": "string"},
                    {"in": "query", "name": "room", "type": "string"},
                    {"in": "query", "name": "from_datetime", "type": "string"},
                    {"in": "query", "name": "to_datetime", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{id}": {
            "get": {
                "tags": ["Events"],
                "summary": "Get event",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Events"],
                "summary": "Delete event",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/refresh": {
            "post": {
                "tags": ["Import"],
                "summary": "Re-import the timetable now",
                "description": "Always answers 200; success=false in the summary reports a failed run.",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ImportSummary"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/refresh/schedule": {
            "get": {
                "tags": ["Import"],
                "summary": "Next scheduled import",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Scheduler disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "Event": {
            "type": "object",
            "properties": {
                "event_id": {"type": "integer", "format": "int64"},
                "from_datetime": {"type": "string", "example": "2024-03-14T08:00:00"},
                "to_datetime": {"type": "string", "example": "2024-03-14T09:30:00"},
                "department": {"type": "string"},
                "class_name": {"type": "string"},
                "subject": {"type": "string"},
                "teacher": {"type": "string"},
                "room": {"type": "string"},
                "building": {"type": "string"},
                "modified_at": {"type": "string"},
                "modified_by": {"type": "string"},
                "visible": {"type": "boolean"}
            }
        },
        "CreateEventRequest": {
            "type": "object",
            "required": ["from_datetime", "to_datetime", "department", "class_name", "subject", "teacher", "room", "building"],
            "properties": {
                "from_datetime": {"type": "string"},
                "to_datetime": {"type": "string"},
                "department": {"type": "string"},
                "class_name": {"type": "string"},
                "subject": {"type": "string"},
                "teacher": {"type": "string"},
                "room": {"type": "string"},
                "building": {"type": "string"},
                "visible": {"type": "boolean"},
                "modified_by": {"type": "string"}
            }
        },
        "ImportSummary": {
            "type": "object",
            "properties": {
                "deleted_count": {"type": "integer"},
                "parsed_count": {"type": "integer"},
                "created_count": {"type": "integer"},
                "skipped_count": {"type": "integer"},
                "message": {"type": "string"},
                "success": {"type": "boolean"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        },
        "EventListEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/Event"}},
                "meta": {"type": "object", "properties": {"count": {"type": "integer"}}}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
