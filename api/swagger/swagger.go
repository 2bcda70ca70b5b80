package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable SA API",
        "description": "Exam timetabling by simulated annealing (traditional and hybrid variants)",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Search", "description": "Synchronous annealing runs"},
        {"name": "Jobs", "description": "Queued annealing runs"},
        {"name": "Runs", "description": "Retained results and the audit log"},
        {"name": "Exports", "description": "Student schedules and timetables as CSV or PDF"},
        {"name": "Datasets", "description": "CSV table upload"},
        {"name": "Health", "description": "Liveness"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "healthy"}}
            }
        },
        "/traditional_sa": {
            "post": {
                "tags": ["Search"],
                "summary": "Run traditional simulated annealing",
                "consumes": ["application/json"],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SearchRequest"}}],
                "responses": {
                    "200": {"description": "Result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed input", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Empty domain or duplicate identifier", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Interrupted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/hybrid_sa": {
            "post": {
                "tags": ["Search"],
                "summary": "Run hybrid simulated annealing from the feasible seed",
                "consumes": ["application/json"],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SearchRequest"}}],
                "responses": {
                    "200": {"description": "Result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed input", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Empty domain or duplicate identifier", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Interrupted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/compare": {
            "post": {
                "tags": ["Search"],
                "summary": "Run both variants with one seed",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SearchRequest"}}],
                "responses": {"200": {"description": "Both results and the winner", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/jobs/{variant}": {
            "post": {
                "tags": ["Jobs"],
                "summary": "Queue a search",
                "parameters": [
                    {"in": "path", "name": "variant", "required": true, "type": "string", "enum": ["traditional", "hybrid"]},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SearchRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Queue full or disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/runs": {
            "get": {
                "tags": ["Runs"],
                "summary": "List audited runs",
                "parameters": [
                    {"in": "query", "name": "variant", "type": "string"},
                    {"in": "query", "name": "status", "type": "string"},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "page_size", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Runs", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Audit log disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/runs/{id}": {
            "get": {
                "tags": ["Runs"],
                "summary": "Fetch a retained run",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Run", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/runs/{id}/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a run",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"]},
                    {"in": "query", "name": "view", "type": "string", "enum": ["student", "timetable"]},
                    {"in": "query", "name": "specialty", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "404": {"description": "Unknown or expired"},
                    "409": {"description": "Run not completed"}
                }
            }
        },
        "/runs/{id}/export-link": {
            "post": {
                "tags": ["Exports"],
                "summary": "Issue a signed download link",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "body", "name": "payload", "schema": {"$ref": "#/definitions/ExportQuery"}}
                ],
                "responses": {"201": {"description": "Link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download through a signed link",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [{"in": "path", "name": "token", "required": true, "type": "string"}],
                "responses": {"200": {"description": "File"}, "401": {"description": "Invalid or expired link"}}
            }
        },
        "/datasets": {
            "post": {
                "tags": ["Datasets"],
                "summary": "Parse CSV tables into a search problem",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"in": "formData", "name": "modules", "type": "file", "required": true},
                    {"in": "formData", "name": "timeslots", "type": "file", "required": true},
                    {"in": "formData", "name": "classrooms", "type": "file", "required": true},
                    {"in": "formData", "name": "instructors", "type": "file"},
                    {"in": "formData", "name": "students", "type": "file"}
                ],
                "responses": {"200": {"description": "Problem", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "SearchParams": {
            "type": "object",
            "required": ["maxIterations", "initialTemp", "coolingRate"],
            "properties": {
                "maxIterations": {"type": "integer"},
                "initialTemp": {"type": "number"},
                "coolingRate": {"type": "number"},
                "seed": {"type": "integer"}
            }
        },
        "SearchRequest": {
            "type": "object",
            "required": ["courses", "timeslots", "rooms", "instructors", "students", "params"],
            "properties": {
                "courses": {"type": "array", "items": {"type": "object"}},
                "timeslots": {"type": "array", "items": {"type": "object"}},
                "rooms": {"type": "array", "items": {"type": "object"}},
                "instructors": {"type": "array", "items": {"type": "object"}},
                "students": {"type": "array", "items": {"type": "object"}},
                "params": {"$ref": "#/definitions/SearchParams"}
            }
        },
        "ExportQuery": {
            "type": "object",
            "properties": {
                "format": {"type": "string"},
                "view": {"type": "string"},
                "specialty": {"type": "string"}
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
