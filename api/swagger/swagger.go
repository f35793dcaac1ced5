package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "AcadFlow API",
        "description": "Role-based leave and lecture replacement management for schools",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, tokens, account lifecycle"},
        {"name": "Signups", "description": "Registration approval queue"},
        {"name": "Leaves", "description": "Teacher leave requests"},
        {"name": "Replacements", "description": "Lecture replacement offers"},
        {"name": "StudentLeaves", "description": "Student daily leave requests"},
        {"name": "Schedule", "description": "Lecture timetable"},
        {"name": "Exports", "description": "Admin data exports"}
    ],
    "paths": {
        "/auth/signup": {
            "post": {
                "tags": ["Signups"],
                "summary": "Register a new account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SignupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials or pending account"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/signups": {
            "get": {
                "tags": ["Signups"],
                "summary": "List pending signups",
                "parameters": [
                    {"name": "role", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/signups/{id}/approve": {
            "post": {
                "tags": ["Signups"],
                "summary": "Approve a pending signup",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Activated"},
                    "409": {"description": "Already reviewed"}
                }
            }
        },
        "/signups/{id}/reject": {
            "post": {
                "tags": ["Signups"],
                "summary": "Reject a pending signup",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Removed"}
                }
            }
        },
        "/leaves": {
            "get": {
                "tags": ["Leaves"],
                "summary": "List leave requests",
                "parameters": [
                    {"name": "status", "in": "query", "type": "array", "items": {"type": "string"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Leaves"],
                "summary": "Request leave for a lecture",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateLeaveRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/leaves/{id}/review": {
            "post": {
                "tags": ["Leaves"],
                "summary": "Review a leave request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Advanced one review step"},
                    "412": {"description": "No accepted replacement offer"}
                }
            }
        },
        "/leaves/{id}/reject": {
            "post": {
                "tags": ["Leaves"],
                "summary": "Reject a leave request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Denied"}
                }
            }
        },
        "/replacements": {
            "get": {
                "tags": ["Replacements"],
                "summary": "List replacement offers",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Replacements"],
                "summary": "Offer to cover a lecture",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateOfferRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/replacements/{id}/accept": {
            "post": {
                "tags": ["Replacements"],
                "summary": "Accept an offer",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Accepted, sibling offers removed"},
                    "409": {"description": "Already decided"}
                }
            }
        },
        "/replacements/{id}/approve": {
            "post": {
                "tags": ["Replacements"],
                "summary": "Approve an accepted offer",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Lecture assignments swapped"},
                    "412": {"description": "Offer not accepted yet"}
                }
            }
        },
        "/student-leaves": {
            "get": {
                "tags": ["StudentLeaves"],
                "summary": "List student leave requests",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["StudentLeaves"],
                "summary": "Request leave for today",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Already requested today"}
                }
            }
        },
        "/student-leaves/{id}/resubmit": {
            "post": {
                "tags": ["StudentLeaves"],
                "summary": "Resubmit a denied leave request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Back in review"},
                    "409": {"description": "Finalized"}
                }
            }
        },
        "/student-leaves/{id}/upload-url": {
            "get": {
                "tags": ["StudentLeaves"],
                "summary": "Get a signed upload token",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Signed token"}
                }
            }
        },
        "/schedule": {
            "get": {
                "tags": ["Schedule"],
                "summary": "List the caller's schedule",
                "parameters": [
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/leaves": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export the leave history",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Rendered file"}
                }
            }
        }
    },
    "definitions": {
        "SignupRequest": {
            "type": "object",
            "required": ["email", "password", "full_name", "role"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "full_name": {"type": "string"},
                "role": {"type": "string", "enum": ["STUDENT", "TEACHER", "HOD", "ADMIN"]}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "CreateLeaveRequest": {
            "type": "object",
            "required": ["lecture_id", "reason"],
            "properties": {
                "lecture_id": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "CreateOfferRequest": {
            "type": "object",
            "required": ["leave_request_id", "lecture_id", "accepter_id"],
            "properties": {
                "leave_request_id": {"type": "string"},
                "lecture_id": {"type": "string"},
                "accepter_id": {"type": "string"},
                "replace_lecture_id": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
