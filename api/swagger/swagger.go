package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CLC Timetable API",
        "description": "School timetable upload and viewing service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Programs", "description": "Program tabs"},
        {"name": "Timetables", "description": "Timetable versions"},
        {"name": "Calendar", "description": "Term and week labels"},
        {"name": "Auth", "description": "Admin session gate"}
    ],
    "paths": {
        "/programs": {
            "get": {
                "tags": ["Programs"],
                "summary": "List program tabs",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/programs/{program}/current": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Current timetable metadata",
                "parameters": [
                    {"name": "program", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No timetable uploaded yet"}
                }
            }
        },
        "/programs/{program}/current/pages": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Current timetable rendered as page images",
                "parameters": [
                    {"name": "program", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Render failed, download still available"}
                }
            }
        },
        "/programs/{program}/current/download": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Download the current timetable PDF",
                "parameters": [
                    {"name": "program", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF bytes"},
                    "404": {"description": "No timetable uploaded yet"}
                }
            }
        },
        "/programs/{program}/history": {
            "get": {
                "tags": ["Timetables"],
                "summary": "List every uploaded version",
                "parameters": [
                    {"name": "program", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/programs/{program}/history/export": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Export upload history as CSV or PDF",
                "parameters": [
                    {"name": "program", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Report bytes"}
                }
            }
        },
        "/programs/{program}/prune": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Remove old versions, keeping the newest",
                "parameters": [
                    {"name": "program", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/PruneRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Upload a new timetable version",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "program", "in": "formData", "required": true, "type": "string"},
                    {"name": "label", "in": "formData", "required": true, "type": "string"},
                    {"name": "uploadedBy", "in": "formData", "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}": {
            "delete": {
                "tags": ["Timetables"],
                "summary": "Delete one timetable version",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Version not found"}
                }
            }
        },
        "/timetables/{id}/download": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Download one exact timetable version",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "PDF bytes"},
                    "404": {"description": "Version not found"}
                }
            }
        },
        "/calendar/week-label": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Term/week label for a date",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendar/terms": {
            "get": {
                "tags": ["Calendar"],
                "summary": "List the configured school terms",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Open an admin session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Incorrect password"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Close the current admin session",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        }
    },
    "definitions": {
        "TimetableSummary": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "program": {"type": "string"},
                "filename": {"type": "string"},
                "label": {"type": "string"},
                "uploadedBy": {"type": "string"},
                "uploadedAt": {"type": "string"},
                "current": {"type": "boolean"},
                "canDelete": {"type": "boolean"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "password": {"type": "string"}
            },
            "required": ["password"]
        },
        "PruneRequest": {
            "type": "object",
            "properties": {
                "keep": {"type": "integer"}
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
