package httpapi

import "encoding/json"

// OpenAPIRegistry builds the contract document served at /openapi.json.
// Plain stdlib JSON: neither the teacher nor the wider example pack
// carries a spec-generation library, so this is the justified
// standard-library exception recorded in DESIGN.md.
type OpenAPIRegistry struct{}

func NewOpenAPIRegistry() *OpenAPIRegistry { return &OpenAPIRegistry{} }

func (r *OpenAPIRegistry) Document() ([]byte, error) {
	doc := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "Transit Dispatch Scope API",
			"version": "v1",
		},
		"paths": map[string]any{
			"/api/v1/trains/scopes": map[string]any{
				"post": map[string]any{
					"summary": "Provision or reuse a viewport scope",
					"responses": map[string]any{
						"200": map[string]any{"description": "Existing scope/frame returned"},
						"201": map[string]any{"description": "New scope/frame created"},
						"400": map[string]any{"description": "Invalid viewport request"},
					},
				},
				"get": map[string]any{
					"summary": "List currently active scopes",
					"responses": map[string]any{
						"200": map[string]any{"description": "Active scope definitions"},
					},
				},
			},
			"/api/v1/trains": map[string]any{
				"get": map[string]any{
					"summary": "Fetch the latest frame for a scope",
					"parameters": []map[string]any{
						{"name": "scope", "in": "query", "required": true},
					},
					"responses": map[string]any{
						"200": map[string]any{"description": "Latest frame"},
						"400": map[string]any{"description": "Missing or invalid scope parameter"},
						"404": map[string]any{"description": "Scope not found"},
					},
				},
			},
			"/healthz": map[string]any{
				"get": map[string]any{
					"summary": "Liveness probe",
					"responses": map[string]any{"200": map[string]any{"description": "OK"}},
				},
			},
			"/metrics": map[string]any{
				"get": map[string]any{
					"summary": "Prometheus exposition",
					"responses": map[string]any{"200": map[string]any{"description": "OK"}},
				},
			},
		},
	}
	return json.Marshal(doc)
}
