package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Timetable API",
        "description": "Conflict detection, week replication and substitutions for school timetables",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Replication", "description": "Copy a week of lectures across a date range"},
        {"name": "Substitutions", "description": "Substitute teachers for a lecture"},
        {"name": "Assignments", "description": "Single lectures"},
        {"name": "Calendar", "description": "Holidays and stages closing dates"},
        {"name": "Hour Slots", "description": "Bell schedules"},
        {"name": "Reports", "description": "Teacher hours per quota"}
    ],
    "paths": {
        "/replications/check": {
            "post": {
                "tags": ["Replication"],
                "summary": "Dry-run a week replication",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReplicationRequest"}}
                ],
                "responses": {
                    "200": {"description": "Conflict report, nothing written", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Assignment of another school", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/replications": {
            "post": {
                "tags": ["Replication"],
                "summary": "Replicate a week of assignments",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReplicationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Replicas created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflicts, data holds the conflict report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Create an assignment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAssignmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Teacher busy or room full", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments/{id}": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Get an assignment",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Assignments"],
                "summary": "Delete an assignment",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/assignments/{id}/substitutes": {
            "get": {
                "tags": ["Substitutions"],
                "summary": "List substitute teachers for an assignment",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Available and other teachers", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments/{id}/substitutes/{teacherId}": {
            "post": {
                "tags": ["Substitutions"],
                "summary": "Substitute the teacher of an assignment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "teacherId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Substitution applied", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Teacher cannot substitute", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendar/exclusions": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Check whether a date is closed for scheduling",
                "parameters": [
                    {"name": "date", "in": "query", "required": true, "type": "string"},
                    {"name": "schoolYearId", "in": "query", "type": "string"},
                    {"name": "courseId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid date", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/hour-slots-groups/{id}/index": {
            "get": {
                "tags": ["Hour Slots"],
                "summary": "Bell schedule of an hour slots group",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/hour-slots": {
            "post": {
                "tags": ["Hour Slots"],
                "summary": "Create an hour slot, optionally on several days",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateHourSlotsRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/teacher-hours": {
            "get": {
                "tags": ["Reports"],
                "summary": "Hours planned and missing per teacher quota",
                "parameters": [{"name": "schoolYearId", "in": "query", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{id}/assignments": {
            "get": {
                "tags": ["Assignments"],
                "summary": "List a teacher's lectures in a school year",
                "description": "Absent lectures are left out. Each lecture carries the hour slot of its course's group and every slot it overlaps.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "schoolYearId", "in": "query", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid query", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Teacher of another school", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ReplicationRequest": {
            "type": "object",
            "properties": {
                "assignmentIds": {"type": "array", "items": {"type": "string"}},
                "from": {"type": "string", "format": "date"},
                "to": {"type": "string", "format": "date"},
                "withoutSubstitutions": {"type": "boolean"},
                "removeExtraAssignments": {"type": "boolean"}
            },
            "required": ["assignmentIds", "from", "to"]
        },
        "CreateAssignmentRequest": {
            "type": "object",
            "properties": {
                "teacherId": {"type": "string"},
                "courseId": {"type": "string"},
                "subjectId": {"type": "string"},
                "roomId": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "hourStart": {"type": "string"},
                "hourEnd": {"type": "string"},
                "bes": {"type": "boolean"},
                "coTeaching": {"type": "boolean"},
                "substitution": {"type": "boolean"},
                "absent": {"type": "boolean"},
                "freeSubstitution": {"type": "boolean"},
                "substitutedAssignmentId": {"type": "string"}
            },
            "required": ["teacherId", "courseId", "subjectId", "date", "hourStart", "hourEnd"]
        },
        "CreateHourSlotsRequest": {
            "type": "object",
            "properties": {
                "hourSlotsGroupId": {"type": "string"},
                "hourNumber": {"type": "integer"},
                "dayOfWeek": {"type": "integer", "minimum": 0, "maximum": 6},
                "startsAt": {"type": "string"},
                "endsAt": {"type": "string"},
                "legalMinutes": {"type": "integer"},
                "replicateOnDays": {"type": "array", "items": {"type": "integer"}}
            },
            "required": ["hourSlotsGroupId", "hourNumber", "startsAt", "endsAt", "legalMinutes"]
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
