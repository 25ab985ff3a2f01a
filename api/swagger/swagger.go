package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SIA Enrollment Engine API",
        "description": "Enrollment, grading, english progression and payment approval",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "security": [
        {
            "BearerAuth": []
        }
    ],
    "tags": [
        {
            "name": "Enrollments",
            "description": "Enrollment lifecycle and grading"
        },
        {
            "name": "English",
            "description": "English level progression"
        },
        {
            "name": "Payments",
            "description": "Payment approval workflow"
        }
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {
                        "description": "Ready"
                    },
                    "503": {
                        "description": "Dependency down"
                    }
                }
            }
        },
        "/api/v1/enrollments": {
            "get": {
                "tags": [
                    "Enrollments"
                ],
                "summary": "List enrollments",
                "parameters": [
                    {
                        "name": "studentId",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "groupId",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "estatus",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "tipo",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "limit",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error"
                    },
                    "409": {
                        "description": "State or capacity error"
                    }
                }
            },
            "post": {
                "tags": [
                    "Enrollments"
                ],
                "summary": "Enroll student in a group",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateEnrollmentRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error"
                    },
                    "409": {
                        "description": "State or capacity error"
                    }
                }
            }
        },
        "/api/v1/enrollments/{id}": {
            "get": {
                "tags": [
                    "Enrollments"
                ],
                "summary": "Get enrollment",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error"
                    },
                    "409": {
                        "description": "State or capacity error"
                    }
                }
            }
        },
        "/api/v1/enrollments/{id}/status": {
            "patch": {
                "tags": [
                    "Enrollments"
                ],
                "summary": "Change enrollment status",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ChangeStatusRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error"
                    },
                    "409": {
                        "description": "State or capacity error"
                    }
                }
            }
        },
        "/api/v1/enrollments/{id}/group": {
            "patch": {
                "tags": [
                    "Enrollments"
                ],
                "summary": "Move enrollment to another group",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ChangeGroupRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error"
                    },
                    "409": {
                        "description": "State or capacity error"
                    }
                }
            }
        },
        "/api/v1/enrollments/{id}/grades": {
            "patch": {
                "tags": [
                    "Enrollments"
                ],
                "summary": "Update grades",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpdateGradesRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error"
                    },
                    "409": {
                        "description": "State or capacity error"
                    }
                }
            }
        },
        "/api/v1/enrollments/{id}/attendance": {
            "patch": {
                "tags": [
                    "Enrollments"
                ],
                "summary": "Update attendance",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpdateAttendanceRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error"
                    },
                    "409": {
                        "description": "State or capacity error"
                    }
                }
            }
        },
        "/api/v1/enrollments/{id}/observations": {
            "patch": {
                "tags": [
                    "Enrollments"
                ],
                "summary": "Update observations",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpdateObservationsRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error"
                    },
                    "409": {
                        "description": "State or capacity error"
                    }
                }
            }
        },
        "/api/v1/english/courses": {
            "post": {
                "tags": [
                    "English"
                ],
                "summary": "Enroll in an english course",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/EnrollInCourseRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error"
                    },
                    "409": {
                        "description": "State or capacity error"
                    }
                }
            }
        },
        "/api/v1/english/courses/{id}/complete": {
            "post": {
                "tags": [
                    "English"
                ],
                "summary": "Complete an english course",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CompleteCourseRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error"
                    },
                    "409": {
                        "description": "State or capacity error"
                    }
                }
            }
        },
        "/api/v1/english/exams": {
            "post": {
                "tags": [
                    "English"
                ],
                "summary": "Request a diagnostic exam",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/RequestDiagnosticExamRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error"
                    },
                    "409": {
                        "description": "State or capacity error"
                    }
                }
            }
        },
        "/api/v1/english/exams/{id}": {
            "get": {
                "tags": [
                    "English"
                ],
                "summary": "Get a diagnostic exam",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error"
                    },
                    "409": {
                        "description": "State or capacity error"
                    }
                }
            }
        },
        "/api/v1/english/exams/{id}/result": {
            "post": {
                "tags": [
                    "English"
                ],
                "summary": "Record a diagnostic exam result",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ProcessDiagnosticRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error"
                    },
                    "409": {
                        "description": "State or capacity error"
                    }
                }
            }
        },
        "/api/v1/english/progress/{studentId}": {
            "get": {
                "tags": [
                    "English"
                ],
                "summary": "Get english progress",
                "parameters": [
                    {
                        "name": "studentId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error"
                    },
                    "409": {
                        "description": "State or capacity error"
                    }
                }
            }
        },
        "/api/v1/payments/{id}": {
            "get": {
                "tags": [
                    "Payments"
                ],
                "summary": "Get payment",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error"
                    },
                    "409": {
                        "description": "State or capacity error"
                    }
                }
            }
        },
        "/api/v1/payments/{id}/proof": {
            "post": {
                "tags": [
                    "Payments"
                ],
                "summary": "Submit payment proof",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SubmitProofRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error"
                    },
                    "409": {
                        "description": "State or capacity error"
                    }
                }
            }
        },
        "/api/v1/payments/{id}/approve": {
            "post": {
                "tags": [
                    "Payments"
                ],
                "summary": "Approve payment",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ApprovePaymentRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error"
                    },
                    "409": {
                        "description": "State or capacity error"
                    }
                }
            }
        },
        "/api/v1/payments/{id}/reject": {
            "post": {
                "tags": [
                    "Payments"
                ],
                "summary": "Reject payment",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/RejectPaymentRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error"
                    },
                    "409": {
                        "description": "State or capacity error"
                    }
                }
            }
        }
    },
    "definitions": {
        "CreateEnrollmentRequest": {
            "type": "object",
            "properties": {
                "student_id": {
                    "type": "string"
                },
                "group_id": {
                    "type": "string"
                },
                "tipo_inscripcion": {
                    "type": "string",
                    "enum": [
                        "NORMAL",
                        "ESPECIAL",
                        "REPETICION",
                        "EQUIVALENCIA",
                        "CURSO_INGLES"
                    ]
                },
                "nivel_ingles": {
                    "type": "integer"
                },
                "requiere_pago": {
                    "type": "boolean"
                },
                "monto_pago": {
                    "type": "number"
                }
            }
        },
        "ChangeStatusRequest": {
            "type": "object",
            "properties": {
                "estatus": {
                    "type": "string",
                    "enum": [
                        "INSCRITO",
                        "EN_CURSO",
                        "BAJA",
                        "APROBADO",
                        "REPROBADO",
                        "CANCELADO"
                    ]
                }
            }
        },
        "ChangeGroupRequest": {
            "type": "object",
            "properties": {
                "group_id": {
                    "type": "string"
                }
            }
        },
        "UpdateGradesRequest": {
            "type": "object",
            "properties": {
                "calificacion_parcial1": {
                    "type": "number"
                },
                "calificacion_parcial2": {
                    "type": "number"
                },
                "calificacion_parcial3": {
                    "type": "number"
                },
                "calificacion_final": {
                    "type": "number"
                },
                "calificacion_extra": {
                    "type": "number"
                }
            }
        },
        "UpdateAttendanceRequest": {
            "type": "object",
            "properties": {
                "asistencias": {
                    "type": "integer"
                },
                "faltas": {
                    "type": "integer"
                },
                "retardos": {
                    "type": "integer"
                }
            }
        },
        "UpdateObservationsRequest": {
            "type": "object",
            "properties": {
                "observaciones": {
                    "type": "string"
                }
            }
        },
        "EnrollInCourseRequest": {
            "type": "object",
            "properties": {
                "student_id": {
                    "type": "string"
                },
                "group_id": {
                    "type": "string"
                },
                "nivel_ingles": {
                    "type": "integer"
                },
                "requiere_pago": {
                    "type": "boolean"
                },
                "monto_pago": {
                    "type": "number"
                }
            }
        },
        "CompleteCourseRequest": {
            "type": "object",
            "properties": {
                "calificacion": {
                    "type": "number"
                }
            }
        },
        "RequestDiagnosticExamRequest": {
            "type": "object",
            "properties": {
                "student_id": {
                    "type": "string"
                },
                "exam_type": {
                    "type": "string",
                    "enum": [
                        "DIAGNOSTICO",
                        "UBICACION"
                    ]
                },
                "requiere_pago": {
                    "type": "boolean"
                },
                "monto_pago": {
                    "type": "number"
                }
            }
        },
        "ProcessDiagnosticRequest": {
            "type": "object",
            "properties": {
                "resultado": {
                    "type": "number"
                },
                "nivel_final": {
                    "type": "integer"
                },
                "calificaciones_por_nivel": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "number"
                    }
                }
            }
        },
        "SubmitProofRequest": {
            "type": "object",
            "properties": {
                "referencia": {
                    "type": "string"
                },
                "monto_pago": {
                    "type": "number"
                }
            }
        },
        "ApprovePaymentRequest": {
            "type": "object",
            "properties": {
                "monto_pago": {
                    "type": "number"
                },
                "observaciones": {
                    "type": "string"
                }
            }
        },
        "RejectPaymentRequest": {
            "type": "object",
            "properties": {
                "motivo": {
                    "type": "string"
                }
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {
                    "type": "integer"
                },
                "page_size": {
                    "type": "integer"
                },
                "total_count": {
                    "type": "integer"
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "kind": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "pagination": {
                    "$ref": "#/definitions/Pagination"
                },
                "meta": {
                    "type": "object"
                }
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
