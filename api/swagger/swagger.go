package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Attendance Engine API",
        "description": "Reconciliation and statistics service for biometric attendance events",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Events", "description": "Raw attendance event ingestion and audit"},
        {"name": "Attendance", "description": "Derived per-person statuses and division statistics"},
        {"name": "Metrics", "description": "Engine instrumentation"},
        {"name": "Admin", "description": "Cache maintenance actions"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Dependencies unavailable"}
                }
            }
        },
        "/events": {
            "post": {
                "tags": ["Events"],
                "summary": "Append an attendance event",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/AppendEventRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Event appended", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "200": {"description": "Duplicate collapsed onto existing event", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Events"],
                "summary": "List events for a person and date, invalidated included",
                "parameters": [
                    {"name": "personId", "in": "query", "type": "string", "required": true},
                    {"name": "date", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "Events", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{id}/invalidate": {
            "post": {
                "tags": ["Events"],
                "summary": "Soft-invalidate an event",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Event invalidated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Event not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/status": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Attendance status for one person and date",
                "parameters": [
                    {"name": "personId", "in": "query", "type": "string", "required": true},
                    {"name": "date", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "Daily status", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Person not enrolled and no events", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/history": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Attendance statuses for one person over a date range",
                "parameters": [
                    {"name": "personId", "in": "query", "type": "string", "required": true},
                    {"name": "dateFrom", "in": "query", "type": "string", "format": "date", "required": true},
                    {"name": "dateTo", "in": "query", "type": "string", "format": "date", "required": true}
                ],
                "responses": {
                    "200": {"description": "Statuses", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/summary": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Division-day attendance aggregate",
                "parameters": [
                    {"name": "divisionId", "in": "query", "type": "string", "required": true},
                    {"name": "date", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "Aggregate counts and percentage", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/trend": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Per-day aggregates for a division over a date range",
                "parameters": [
                    {"name": "divisionId", "in": "query", "type": "string", "required": true},
                    {"name": "dateFrom", "in": "query", "type": "string", "format": "date", "required": true},
                    {"name": "dateTo", "in": "query", "type": "string", "format": "date", "required": true}
                ],
                "responses": {
                    "200": {"description": "Trend", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/present": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Persons currently inside for a division",
                "parameters": [
                    {"name": "divisionId", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Present persons", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Audit view of one person's enrollment history",
                "parameters": [
                    {"name": "personId", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Enrollment records", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/engine/metrics": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Engine instrumentation snapshot",
                "responses": {
                    "200": {"description": "Snapshot", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/engine/cache/invalidate": {
            "post": {
                "tags": ["Admin"],
                "summary": "Drop every cached rollup for one division",
                "parameters": [
                    {"name": "divisionId", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Invalidated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "AppendEventRequest": {
            "type": "object",
            "required": ["person_id", "device_id", "timestamp", "kind", "source"],
            "properties": {
                "person_id": {"type": "string"},
                "device_id": {"type": "string"},
                "timestamp": {"type": "string", "format": "date-time"},
                "kind": {"type": "string", "enum": ["entry", "exit", "override"]},
                "verified": {"type": "boolean"},
                "source": {"type": "string", "enum": ["device", "manual"]},
                "override_status": {"type": "string", "enum": ["present", "late", "absent", "incomplete", "excused"]}
            }
        },
        "DailyStatus": {
            "type": "object",
            "properties": {
                "person_id": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "status": {"type": "string", "enum": ["present", "late", "absent", "incomplete", "excused"]},
                "division_id": {"type": "string"},
                "first_entry": {"type": "string", "format": "date-time"},
                "last_exit": {"type": "string", "format": "date-time"},
                "duration_minutes": {"type": "integer"},
                "verified": {"type": "boolean"},
                "overridden": {"type": "boolean"}
            }
        },
        "DivisionDayAggregate": {
            "type": "object",
            "properties": {
                "division_id": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "present": {"type": "integer"},
                "late": {"type": "integer"},
                "absent": {"type": "integer"},
                "incomplete": {"type": "integer"},
                "excused": {"type": "integer"},
                "total_enrolled": {"type": "integer"},
                "attendance_percentage": {"type": "number"}
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
