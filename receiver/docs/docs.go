// Package docs регистрирует описание OpenAPI для HTTP API приемника.
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
        "/api/sessions": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Sessions"
                ],
                "summary": "Список сессий",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Размер страницы",
                        "name": "limit",
                        "in": "query",
                        "default": 50
                    },
                    {
                        "type": "integer",
                        "description": "Смещение",
                        "name": "offset",
                        "in": "query",
                        "default": 0
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    }
                }
            },
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Sessions"
                ],
                "summary": "Создать сессию мониторинга",
                "parameters": [
                    {
                        "description": "Метаданные сессии",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/session.CreateSessionRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/session.SessionResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    }
                }
            }
        },
        "/api/sessions/{id}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Sessions"
                ],
                "summary": "Сессия и ее текущие показатели",
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID сессии",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/session.SessionResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    }
                }
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Sessions"
                ],
                "summary": "Удалить сессию",
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID сессии",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    }
                }
            }
        },
        "/api/sessions/{id}/stop": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Sessions"
                ],
                "summary": "Остановить сессию",
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID сессии",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    }
                }
            }
        },
        "/api/sessions/{id}/save": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Sessions"
                ],
                "summary": "Сохранить сессию в архив",
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID сессии",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Заметки врача",
                        "name": "request",
                        "in": "body",
                        "schema": {
                            "$ref": "#/definitions/session.SaveSessionRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    }
                }
            }
        },
        "/api/sessions/{id}/metrics": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Rhythm"
                ],
                "summary": "Текущие ЧСС, R-R и состояние детектора",
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID сессии",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/session.RhythmMetrics"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    }
                }
            }
        },
        "/api/sessions/{id}/beats": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Rhythm"
                ],
                "summary": "Обнаруженные комплексы QRS",
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID сессии",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/session.BeatEvent"
                            }
                        }
                    }
                }
            }
        },
        "/api/sessions/{id}/rate": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Rhythm"
                ],
                "summary": "История пересчетов ЧСС",
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID сессии",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/session.RatePoint"
                            }
                        }
                    }
                }
            }
        },
        "/api/sessions/{id}/data": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Sessions"
                ],
                "summary": "Полные данные сессии из кэша",
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID сессии",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/session.SessionData"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "session.CreateSessionRequest": {
            "type": "object",
            "properties": {
                "patient_id": {
                    "type": "string"
                },
                "doctor_id": {
                    "type": "string"
                },
                "facility_id": {
                    "type": "string"
                },
                "notes": {
                    "type": "string"
                },
                "custom_data": {
                    "type": "object",
                    "additionalProperties": true
                },
                "created_from": {
                    "type": "string"
                }
            }
        },
        "session.SaveSessionRequest": {
            "type": "object",
            "properties": {
                "notes": {
                    "type": "string"
                }
            }
        },
        "session.Metadata": {
            "type": "object",
            "properties": {
                "patient_id": {
                    "type": "string"
                },
                "doctor_id": {
                    "type": "string"
                },
                "facility_id": {
                    "type": "string"
                },
                "notes": {
                    "type": "string"
                },
                "custom_data": {
                    "type": "object",
                    "additionalProperties": true
                },
                "created_from": {
                    "type": "string"
                }
            }
        },
        "session.Session": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "started_at": {
                    "type": "string"
                },
                "stopped_at": {
                    "type": "string"
                },
                "saved_at": {
                    "type": "string"
                },
                "total_duration_ms": {
                    "type": "integer"
                },
                "total_data_points": {
                    "type": "integer"
                },
                "total_beats": {
                    "type": "integer"
                },
                "sample_rate": {
                    "type": "number"
                },
                "metadata": {
                    "$ref": "#/definitions/session.Metadata"
                }
            }
        },
        "session.RhythmMetrics": {
            "type": "object",
            "properties": {
                "session_id": {
                    "type": "string"
                },
                "state": {
                    "type": "string"
                },
                "threshold": {
                    "type": "number"
                },
                "sample_count": {
                    "type": "integer"
                },
                "beat_count": {
                    "type": "integer"
                },
                "last_beat_index": {
                    "type": "integer"
                },
                "avg_rr": {
                    "type": "number"
                },
                "avg_hr": {
                    "type": "number"
                },
                "count_hr": {
                    "type": "number"
                },
                "min_hr": {
                    "type": "number"
                },
                "max_hr": {
                    "type": "number"
                },
                "has_extrema": {
                    "type": "boolean"
                },
                "computations": {
                    "type": "integer"
                },
                "history": {
                    "type": "array",
                    "items": {
                        "type": "number"
                    }
                },
                "updated_at": {
                    "type": "string"
                }
            }
        },
        "session.SessionResponse": {
            "type": "object",
            "properties": {
                "session": {
                    "$ref": "#/definitions/session.Session"
                },
                "metrics": {
                    "$ref": "#/definitions/session.RhythmMetrics"
                }
            }
        },
        "session.BeatEvent": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "session_id": {
                    "type": "string"
                },
                "sample_index": {
                    "type": "integer"
                },
                "time_sec": {
                    "type": "number"
                },
                "ts_ms": {
                    "type": "integer"
                },
                "rr": {
                    "type": "number"
                },
                "created_at": {
                    "type": "string"
                }
            }
        },
        "session.RatePoint": {
            "type": "object",
            "properties": {
                "session_id": {
                    "type": "string"
                },
                "computation": {
                    "type": "integer"
                },
                "time_sec": {
                    "type": "number"
                },
                "avg_rr": {
                    "type": "number"
                },
                "avg_hr": {
                    "type": "number"
                },
                "count_hr": {
                    "type": "number"
                }
            }
        },
        "session.FilteredDataPoint": {
            "type": "object",
            "properties": {
                "time_sec": {
                    "type": "number"
                },
                "value": {
                    "type": "number"
                }
            }
        },
        "session.SessionData": {
            "type": "object",
            "properties": {
                "session": {
                    "$ref": "#/definitions/session.Session"
                },
                "metrics": {
                    "$ref": "#/definitions/session.RhythmMetrics"
                },
                "beats": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/session.BeatEvent"
                    }
                },
                "rate_series": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/session.RatePoint"
                    }
                },
                "filtered_ecg": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/session.FilteredDataPoint"
                    }
                }
            }
        }
    }
}`

// SwaggerInfo содержит экспортируемую информацию Swagger
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "ECG Receiver API",
	Description:      "Сессии мониторинга ЭКГ: ЧСС, интервалы R-R и обнаруженные комплексы QRS",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
