// Package docs holds the OpenAPI description served at /swagger.
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
        "/health": {
            "get": {"tags": ["ops"], "summary": "Liveness and request statistics", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}}}}
        },
        "/cache/stats": {
            "get": {"tags": ["ops"], "summary": "Response cache statistics", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"type": "object"}}}}
        },
        "/sessions/stats": {
            "get": {"tags": ["ops"], "summary": "Live session counts", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"type": "object"}}}}
        },
        "/v1/analyze": {
            "post": {"tags": ["analysis"], "summary": "Analyze an A/B test",
                "description": "Posteriors, Monte Carlo risk, Bayes factor, credible intervals and both frequentist tests for two arms.",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.AnalyzeRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }}
        },
        "/v1/tests": {
            "post": {"tags": ["tests"], "summary": "Create a batch Bayesian test",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"name": "request", "in": "body", "schema": {"$ref": "#/definitions/types.InferenceOptions"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }}
        },
        "/v1/tests/{id}": {
            "get": {"tags": ["tests"], "summary": "Get a batch test and its posteriors",
                "parameters": [{"$ref": "#/parameters/id"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}}},
            "delete": {"tags": ["tests"], "summary": "Drop a batch test",
                "parameters": [{"$ref": "#/parameters/id"}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}}}
        },
        "/v1/tests/{id}/risk": {
            "get": {"tags": ["tests"], "summary": "Monte Carlo risk metrics",
                "parameters": [{"$ref": "#/parameters/id"}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}}}
        },
        "/v1/tests/{id}/bayes-factor": {
            "get": {"tags": ["tests"], "summary": "Equivalence-threshold Bayes factor",
                "parameters": [{"$ref": "#/parameters/id"}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}}}
        },
        "/v1/tests/{id}/groups/{group}": {
            "put": {"tags": ["tests"], "summary": "Record a group's cumulative counts",
                "consumes": ["application/json"],
                "parameters": [{"$ref": "#/parameters/id"}, {"$ref": "#/parameters/group"},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.GroupInput"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}}}
        },
        "/v1/tests/{id}/groups/{group}/samples": {
            "get": {"tags": ["tests"], "summary": "Raw posterior draws for one group",
                "parameters": [{"$ref": "#/parameters/id"}, {"$ref": "#/parameters/group"},
                    {"name": "n", "in": "query", "type": "integer", "default": 1000}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}}}
        },
        "/v1/tests/{id}/groups/{group}/density": {
            "get": {"tags": ["tests"], "summary": "Posterior density curve and credible interval",
                "parameters": [{"$ref": "#/parameters/id"}, {"$ref": "#/parameters/group"},
                    {"name": "points", "in": "query", "type": "integer", "default": 200},
                    {"name": "level", "in": "query", "type": "number", "default": 0.95}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}}}
        },
        "/v1/sequential": {
            "post": {"tags": ["sequential"], "summary": "Create a sequential test",
                "consumes": ["application/json"],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}}}
        },
        "/v1/sequential/{id}": {
            "get": {"tags": ["sequential"], "summary": "Get a sequential test's current posteriors",
                "parameters": [{"$ref": "#/parameters/id"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}}},
            "delete": {"tags": ["sequential"], "summary": "Drop a sequential test",
                "parameters": [{"$ref": "#/parameters/id"}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}}}
        },
        "/v1/sequential/{id}/observations": {
            "post": {"tags": ["sequential"], "summary": "Add a batch to a group",
                "consumes": ["application/json"],
                "parameters": [{"$ref": "#/parameters/id"},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.ObservationRequest"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}}}
        },
        "/v1/sequential/{id}/history": {
            "get": {"tags": ["sequential"], "summary": "Observation history",
                "parameters": [{"$ref": "#/parameters/id"}, {"name": "group", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/v1/sequential/{id}/probability": {
            "get": {"tags": ["sequential"], "summary": "Current P(B > A)",
                "parameters": [{"$ref": "#/parameters/id"}, {"name": "samples", "in": "query", "type": "integer"}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/v1/sequential/{id}/curve": {
            "get": {"tags": ["sequential"], "summary": "P(B > A) after each step",
                "parameters": [{"$ref": "#/parameters/id"}, {"name": "samples", "in": "query", "type": "integer"},
                    {"name": "threshold", "in": "query", "type": "number", "default": 0.95}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/v1/sequential/{id}/simulate": {
            "post": {"tags": ["sequential"], "summary": "Replay totals as hypergeometric batches",
                "parameters": [{"$ref": "#/parameters/id"}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}}}
        },
        "/v1/frequentist/chi-squared": {
            "post": {"tags": ["frequentist"], "summary": "Chi-squared test of independence",
                "responses": {"200": {"description": "OK"}, "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}}}
        },
        "/v1/frequentist/proportion": {
            "post": {"tags": ["frequentist"], "summary": "Two-proportion z-test",
                "responses": {"200": {"description": "OK"}, "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}}}
        },
        "/v1/design/sample-size": {
            "post": {"tags": ["design"], "summary": "Required sample size per group",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}}}
        },
        "/v1/design/power": {
            "post": {"tags": ["design"], "summary": "Power at a per-group sample size",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}}}
        },
        "/v1/design/power-curve": {
            "post": {"tags": ["design"], "summary": "Power over a range of sample sizes",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}}}
        },
        "/v1/simulate/data": {
            "post": {"tags": ["simulation"], "summary": "Draw a synthetic dataset",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}}}
        },
        "/v1/simulate/scenario": {
            "post": {"tags": ["simulation"], "summary": "Compare Bayesian and frequentist decision accuracy",
                "parameters": [{"name": "runs", "in": "query", "type": "boolean", "default": false}],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }}
        }
    },
    "parameters": {
        "id": {"name": "id", "in": "path", "required": true, "type": "string"},
        "group": {"name": "group", "in": "path", "required": true, "type": "string"}
    },
    "definitions": {
        "errors.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "category": {"type": "string"},
                "details": {"type": "object"}
            }
        },
        "types.GroupInput": {
            "type": "object",
            "properties": {
                "successes": {"type": "integer", "example": 100},
                "trials": {"type": "integer", "example": 1000}
            }
        },
        "types.InferenceOptions": {
            "type": "object",
            "properties": {
                "prior": {"type": "object", "properties": {"alpha": {"type": "number"}, "beta": {"type": "number"}}},
                "samples": {"type": "integer", "example": 100000},
                "seed": {"type": "integer", "example": 42},
                "equivalence_threshold": {"type": "number", "example": 0.01}
            }
        },
        "types.AnalyzeRequest": {
            "type": "object",
            "properties": {
                "A": {"$ref": "#/definitions/types.GroupInput"},
                "B": {"$ref": "#/definitions/types.GroupInput"},
                "prior": {"type": "object", "properties": {"alpha": {"type": "number"}, "beta": {"type": "number"}}},
                "samples": {"type": "integer"},
                "seed": {"type": "integer"},
                "equivalence_threshold": {"type": "number"},
                "credible_level": {"type": "number", "example": 0.95},
                "yates": {"type": "boolean"},
                "min_uplift": {"type": "number", "example": 5}
            }
        },
        "types.ObservationRequest": {
            "type": "object",
            "required": ["group"],
            "properties": {
                "group": {"type": "string", "example": "A"},
                "successes": {"type": "integer", "example": 10},
                "trials": {"type": "integer", "example": 100}
            }
        },
        "types.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "version": {"type": "string"},
                "timestamp": {"type": "string"},
                "stats": {"type": "object"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Bayesian A/B API",
	Description:      "Bayesian and frequentist inference for two-proportion experiments.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
