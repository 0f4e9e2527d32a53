package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Report Scheduler API",
        "description": "Scheduled report generation, export delivery and request rate limiting.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
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
    "tags": [
        {
            "name": "Scheduled Reports",
            "description": "Recurring report definitions and their executions"
        },
        {
            "name": "Reports",
            "description": "On-demand export, e-mail delivery and download"
        },
        {
            "name": "Rate Limits",
            "description": "Throttling statistics and identifier blocking"
        }
    ],
    "paths": {
        "/scheduled-reports": {
            "get": {
                "tags": [
                    "Scheduled Reports"
                ],
                "summary": "List scheduled reports",
                "parameters": [
                    {
                        "name": "reportType",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "frequency",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "isActive",
                        "in": "query",
                        "type": "boolean"
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "pageSize",
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
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "post": {
                "tags": [
                    "Scheduled Reports"
                ],
                "summary": "Create a scheduled report",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateScheduledReportRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/scheduled-reports/{id}": {
            "get": {
                "tags": [
                    "Scheduled Reports"
                ],
                "summary": "Get a scheduled report",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
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
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "put": {
                "tags": [
                    "Scheduled Reports"
                ],
                "summary": "Update a scheduled report",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpdateScheduledReportRequest"
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
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "delete": {
                "tags": [
                    "Scheduled Reports"
                ],
                "summary": "Delete a scheduled report",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/scheduled-reports/{id}/execute": {
            "post": {
                "tags": [
                    "Scheduled Reports"
                ],
                "summary": "Run a scheduled report now",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
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
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "429": {
                        "description": "Too Many Requests",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/scheduled-reports/{id}/history": {
            "get": {
                "tags": [
                    "Scheduled Reports"
                ],
                "summary": "List executions of a scheduled report",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
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
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/reports/export": {
            "post": {
                "tags": [
                    "Reports"
                ],
                "summary": "Generate and store a report",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ExportReportRequest"
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
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "429": {
                        "description": "Too Many Requests",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/reports/email": {
            "post": {
                "tags": [
                    "Reports"
                ],
                "summary": "Generate a report and e-mail it",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/EmailReportRequest"
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
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "429": {
                        "description": "Too Many Requests",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "502": {
                        "description": "Bad Gateway",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/reports/download/{fileName}": {
            "get": {
                "tags": [
                    "Reports"
                ],
                "summary": "Download a stored report",
                "parameters": [
                    {
                        "name": "fileName",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "File",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/rate-limits/stats": {
            "get": {
                "tags": [
                    "Rate Limits"
                ],
                "summary": "Rate limit statistics",
                "parameters": [
                    {
                        "name": "timeframe",
                        "in": "query",
                        "type": "string",
                        "enum": [
                            "hour",
                            "day",
                            "week"
                        ]
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
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/rate-limits/suspicious": {
            "get": {
                "tags": [
                    "Rate Limits"
                ],
                "summary": "Suspicious activity patterns",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/rate-limits/block": {
            "post": {
                "tags": [
                    "Rate Limits"
                ],
                "summary": "Block an identifier",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/BlockIdentifierRequest"
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
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/rate-limits/unblock": {
            "post": {
                "tags": [
                    "Rate Limits"
                ],
                "summary": "Unblock an identifier",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UnblockIdentifierRequest"
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
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        }
    },
    "definitions": {
        "CreateScheduledReportRequest": {
            "type": "object",
            "required": [
                "name",
                "reportType",
                "frequency",
                "format",
                "recipients"
            ],
            "properties": {
                "name": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "reportType": {
                    "type": "string",
                    "enum": [
                        "attendance",
                        "academic",
                        "financial",
                        "enrollment",
                        "teacher_workload",
                        "class_performance",
                        "fee_collection",
                        "student_progress",
                        "custom"
                    ]
                },
                "parameters": {
                    "type": "object"
                },
                "frequency": {
                    "type": "string",
                    "enum": [
                        "daily",
                        "weekly",
                        "monthly",
                        "quarterly",
                        "semester",
                        "annual",
                        "custom"
                    ]
                },
                "format": {
                    "type": "string",
                    "enum": [
                        "json",
                        "csv",
                        "pdf",
                        "excel"
                    ]
                },
                "recipients": {
                    "type": "array",
                    "items": {
                        "type": "string",
                        "format": "email"
                    }
                },
                "isActive": {
                    "type": "boolean"
                }
            }
        },
        "UpdateScheduledReportRequest": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "reportType": {
                    "type": "string",
                    "enum": [
                        "attendance",
                        "academic",
                        "financial",
                        "enrollment",
                        "teacher_workload",
                        "class_performance",
                        "fee_collection",
                        "student_progress",
                        "custom"
                    ]
                },
                "parameters": {
                    "type": "object"
                },
                "frequency": {
                    "type": "string",
                    "enum": [
                        "daily",
                        "weekly",
                        "monthly",
                        "quarterly",
                        "semester",
                        "annual",
                        "custom"
                    ]
                },
                "format": {
                    "type": "string",
                    "enum": [
                        "json",
                        "csv",
                        "pdf",
                        "excel"
                    ]
                },
                "recipients": {
                    "type": "array",
                    "items": {
                        "type": "string",
                        "format": "email"
                    }
                },
                "isActive": {
                    "type": "boolean"
                }
            }
        },
        "ExportReportRequest": {
            "type": "object",
            "required": [
                "reportType",
                "format"
            ],
            "properties": {
                "reportType": {
                    "type": "string",
                    "enum": [
                        "attendance",
                        "academic",
                        "financial",
                        "enrollment",
                        "teacher_workload",
                        "class_performance",
                        "fee_collection",
                        "student_progress",
                        "custom"
                    ]
                },
                "parameters": {
                    "type": "object"
                },
                "format": {
                    "type": "string",
                    "enum": [
                        "json",
                        "csv",
                        "pdf",
                        "excel"
                    ]
                }
            }
        },
        "EmailReportRequest": {
            "type": "object",
            "required": [
                "reportType",
                "format",
                "recipients"
            ],
            "properties": {
                "reportType": {
                    "type": "string",
                    "enum": [
                        "attendance",
                        "academic",
                        "financial",
                        "enrollment",
                        "teacher_workload",
                        "class_performance",
                        "fee_collection",
                        "student_progress",
                        "custom"
                    ]
                },
                "parameters": {
                    "type": "object"
                },
                "format": {
                    "type": "string",
                    "enum": [
                        "json",
                        "csv",
                        "pdf",
                        "excel"
                    ]
                },
                "recipients": {
                    "type": "array",
                    "items": {
                        "type": "string",
                        "format": "email"
                    }
                },
                "message": {
                    "type": "string"
                }
            }
        },
        "BlockIdentifierRequest": {
            "type": "object",
            "required": [
                "identifier",
                "endpoint",
                "durationMs"
            ],
            "properties": {
                "identifier": {
                    "type": "string"
                },
                "endpoint": {
                    "type": "string"
                },
                "durationMs": {
                    "type": "integer"
                },
                "reason": {
                    "type": "string"
                }
            }
        },
        "UnblockIdentifierRequest": {
            "type": "object",
            "required": [
                "identifier"
            ],
            "properties": {
                "identifier": {
                    "type": "string"
                },
                "endpoint": {
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
