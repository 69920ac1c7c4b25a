package openapi

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
)

const petstoreSpec = `{
  "openapi": "3.0.0",
  "info": {"title": "Petstore", "version": "1.0.0"},
  "paths": {
    "/pets": {
      "get": {
        "operationId": "list_pets",
        "summary": "List all pets",
        "parameters": [
          {"name": "limit", "in": "query", "required": false, "schema": {"type": "integer"}},
          {"name": "X-Tenant", "in": "header", "required": true, "schema": {"type": "string"}}
        ],
        "responses": {"200": {"description": "ok"}}
      },
      "post": {
        "operationId": "create_pet",
        "summary": "Create a pet",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "properties": {
                  "name": {"type": "string"},
                  "tag": {"type": "string"}
                },
                "required": ["name"]
              }
            }
          }
        },
        "responses": {"201": {"description": "created"}}
      }
    },
    "/pets/{petId}": {
      "get": {
        "operationId": "get_pet",
        "parameters": [
          {"name": "petId", "in": "path", "required": true, "schema": {"type": "string"}}
        ],
        "responses": {"200": {"description": "ok"}}
      },
      "delete": {
        "parameters": [
          {"name": "petId", "in": "path", "required": true, "schema": {"type": "string"}}
        ],
        "responses": {"204": {"description": "deleted"}}
      }
    }
  }
}`

func translateTestSpec(t *testing.T) *ToolSet {
	t.Helper()
	provider, err := Translate(context.Background(), []byte(petstoreSpec), "http://api.example.com/", http.DefaultClient)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	ts, ok := provider.(*ToolSet)
	if !ok {
		t.Fatalf("expected *ToolSet, got %T", provider)
	}
	return ts
}

func TestTranslateBuildsToolPerOperation(t *testing.T) {
	ts := translateTestSpec(t)

	if ts.Len() != 4 {
		t.Fatalf("expected 4 tools, got %d", ts.Len())
	}

	names := make(map[string]bool)
	for _, tool := range ts.Tools() {
		names[tool.Name] = true
	}
	for _, want := range []string{"list_pets", "create_pet", "get_pet", "delete_pets_petid"} {
		if !names[want] {
			t.Errorf("missing tool %q, have %v", want, names)
		}
	}

	for name := range names {
		if _, ok := ts.Tool(name); !ok {
			t.Errorf("listed tool %q has no invoker", name)
		}
	}
	if _, ok := ts.Tool("nonexistent"); ok {
		t.Error("lookup of an unknown tool must fail")
	}
}

func TestTranslateInputSchemas(t *testing.T) {
	ts := translateTestSpec(t)

	var listPets, createPet, getPet *toolSchema
	for _, tool := range ts.Tools() {
		schema := &toolSchema{
			props:    tool.InputSchema.Properties,
			required: tool.InputSchema.Required,
		}
		switch tool.Name {
		case "list_pets":
			listPets = schema
		case "create_pet":
			createPet = schema
		case "get_pet":
			getPet = schema
		}
	}

	if listPets == nil || createPet == nil || getPet == nil {
		t.Fatal("expected list_pets, create_pet and get_pet tools")
	}

	if _, ok := listPets.props["limit"]; !ok {
		t.Error("list_pets must expose the limit query parameter")
	}
	if !listPets.requires("X-Tenant") {
		t.Error("required header parameter must be required in the schema")
	}
	if listPets.requires("limit") {
		t.Error("optional query parameter must not be required")
	}

	// Object body properties are flattened into the tool schema.
	if _, ok := createPet.props["name"]; !ok {
		t.Error("create_pet must expose the flattened body property name")
	}
	if _, ok := createPet.props["tag"]; !ok {
		t.Error("create_pet must expose the flattened body property tag")
	}
	if !createPet.requires("name") {
		t.Error("required body property must be required in the schema")
	}
	if createPet.requires("tag") {
		t.Error("optional body property must not be required")
	}

	if !getPet.requires("petId") {
		t.Error("path parameters are always required")
	}
}

type toolSchema struct {
	props    map[string]any
	required []string
}

func (s *toolSchema) requires(name string) bool {
	for _, r := range s.required {
		if r == name {
			return true
		}
	}
	return false
}

func TestTranslateMalformedSpec(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"not JSON", "<html>not a spec</html>"},
		{"truncated JSON", `{"openapi": "3.0.0", "paths": {`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Translate(context.Background(), []byte(tt.spec), "http://api.example.com", http.DefaultClient)
			if !errors.Is(err, ErrMalformedSpec) {
				t.Errorf("expected ErrMalformedSpec, got %v", err)
			}
		})
	}
}

func TestTranslateEmptyDocument(t *testing.T) {
	provider, err := Translate(context.Background(), []byte(`{"openapi": "3.0.0", "info": {"title": "t", "version": "1"}, "paths": {}}`), "http://api.example.com", http.DefaultClient)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if got := len(provider.Tools()); got != 0 {
		t.Errorf("expected no tools for an empty document, got %d", got)
	}
}

func TestToolNameFallback(t *testing.T) {
	tests := []struct {
		method, path string
		want         string
	}{
		{"GET", "/pets/{petId}", "get_pets_petid"},
		{"POST", "/users/{id}/roles", "post_users_id_roles"},
		{"GET", "/", "get_root"},
		{"DELETE", "/a-b.c", "delete_a_b_c"},
	}

	for _, tt := range tests {
		if got := toolName(tt.method, tt.path, &openapi3.Operation{}); got != tt.want {
			t.Errorf("toolName(%s, %s) = %q, want %q", tt.method, tt.path, got, tt.want)
		}
	}
}
