// Package docs регистрирует описание OpenAPI для HTTP API оффлайн-сервиса.
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
        "/upload": {
            "post": {
                "description": "Загружает CSV (time,value), прогоняет запись через детектор QRS и считает спектральную оценку ЧСС",
                "consumes": [
                    "multipart/form-data"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Offline Analysis"
                ],
                "summary": "Загрузить запись ЭКГ для анализа",
                "parameters": [
                    {
                        "type": "file",
                        "description": "CSV файл с записью ЭКГ",
                        "name": "ecg_file",
                        "in": "formData",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "ID сессии (генерируется автоматически если не указан)",
                        "name": "session_id",
                        "in": "formData"
                    },
                    {
                        "type": "number",
                        "description": "Частота дискретизации, Гц (по умолчанию по столбцу времени)",
                        "name": "sample_rate",
                        "in": "formData"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Результат анализа",
                        "schema": {
                            "$ref": "#/definitions/models.UploadResponse"
                        }
                    },
                    "400": {
                        "description": "Неверный запрос",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "500": {
                        "description": "Ошибка обработки",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/decision": {
            "post": {
                "description": "Сохраняет отчет в базу данных или удаляет его из кеша",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Offline Analysis"
                ],
                "summary": "Принять решение о сохранении",
                "parameters": [
                    {
                        "description": "Решение о сохранении",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/models.SaveDecision"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Результат операции",
                        "schema": {
                            "$ref": "#/definitions/models.DecisionResponse"
                        }
                    },
                    "400": {
                        "description": "Неверный запрос",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "404": {
                        "description": "Отчет не найден",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "500": {
                        "description": "Ошибка обработки",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/session": {
            "get": {
                "description": "Возвращает отчет из кеша, а после сохранения - из базы данных",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Offline Analysis"
                ],
                "summary": "Получить отчет сессии",
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID сессии",
                        "name": "session_id",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Отчет сессии",
                        "schema": {
                            "$ref": "#/definitions/models.AnalysisSession"
                        }
                    },
                    "400": {
                        "description": "Неверный запрос",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "404": {
                        "description": "Отчет не найден",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/debug/stats": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Debug"
                ],
                "summary": "Статистика хранилищ",
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
        }
    },
    "definitions": {
        "models.ECGRecord": {
            "type": "object",
            "properties": {
                "time_sec": {
                    "type": "array",
                    "items": {
                        "type": "number"
                    }
                },
                "value": {
                    "type": "array",
                    "items": {
                        "type": "number"
                    }
                }
            }
        },
        "models.BeatPoint": {
            "type": "object",
            "properties": {
                "sample_index": {
                    "type": "integer"
                },
                "time_sec": {
                    "type": "number"
                },
                "rr": {
                    "type": "number"
                }
            }
        },
        "models.RRSummary": {
            "type": "object",
            "properties": {
                "count": {
                    "type": "integer"
                },
                "mean": {
                    "type": "number"
                },
                "std_dev": {
                    "type": "number"
                },
                "min": {
                    "type": "number"
                },
                "max": {
                    "type": "number"
                }
            }
        },
        "models.SpectralEstimate": {
            "type": "object",
            "properties": {
                "valid": {
                    "type": "boolean"
                },
                "heart_rate": {
                    "type": "number"
                },
                "frequency_hz": {
                    "type": "number"
                },
                "peak_ratio": {
                    "type": "number"
                }
            }
        },
        "models.ECGReport": {
            "type": "object",
            "properties": {
                "sample_rate": {
                    "type": "number"
                },
                "sample_count": {
                    "type": "integer"
                },
                "duration_sec": {
                    "type": "number"
                },
                "state": {
                    "type": "string"
                },
                "trained": {
                    "type": "boolean"
                },
                "threshold": {
                    "type": "number"
                },
                "beat_count": {
                    "type": "integer"
                },
                "beats": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.BeatPoint"
                    }
                },
                "rr": {
                    "$ref": "#/definitions/models.RRSummary"
                },
                "avg_hr": {
                    "type": "number"
                },
                "count_hr": {
                    "type": "number"
                },
                "avg_rr": {
                    "type": "number"
                },
                "min_hr": {
                    "type": "number"
                },
                "max_hr": {
                    "type": "number"
                },
                "rate_history": {
                    "type": "array",
                    "items": {
                        "type": "number"
                    }
                },
                "computations": {
                    "type": "integer"
                },
                "spectral": {
                    "$ref": "#/definitions/models.SpectralEstimate"
                },
                "filtered_ecg": {
                    "$ref": "#/definitions/models.ECGRecord"
                }
            }
        },
        "models.AnalysisSession": {
            "type": "object",
            "properties": {
                "session_id": {
                    "type": "string"
                },
                "report": {
                    "$ref": "#/definitions/models.ECGReport"
                },
                "created_at": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                }
            }
        },
        "models.SaveDecision": {
            "type": "object",
            "properties": {
                "session_id": {
                    "type": "string"
                },
                "save": {
                    "type": "boolean"
                }
            }
        },
        "models.UploadResponse": {
            "type": "object",
            "properties": {
                "session_id": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "report": {
                    "$ref": "#/definitions/models.ECGReport"
                },
                "message": {
                    "type": "string"
                }
            }
        },
        "models.DecisionResponse": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "data": {}
            }
        }
    }
}`

// SwaggerInfo содержит экспортируемую информацию Swagger
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8081",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Offline ECG Analysis API",
	Description:      "API для загрузки и анализа записей ЭКГ в формате CSV",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
