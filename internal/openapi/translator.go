package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-openapi/internal/gateway"
)

// ErrMalformedSpec indicates that the fetched document could not be parsed
// as an OpenAPI 3.x specification.
var ErrMalformedSpec = fmt.Errorf("malformed OpenAPI specification")

// parameterLocation mirrors the OpenAPI "in" field values handled by the
// invoker.
const (
	inPath   = "path"
	inQuery  = "query"
	inHeader = "header"
)

// ToolSet is an immutable collection of tools translated from a single
// OpenAPI document. It implements gateway.ToolProvider.
type ToolSet struct {
	tools []mcp.Tool
	ops   map[string]*Operation
}

// Tools returns the tool definitions in a stable order.
func (ts *ToolSet) Tools() []mcp.Tool {
	return ts.tools
}

// Tool returns the invoker for the named tool.
func (ts *ToolSet) Tool(name string) (gateway.Tool, bool) {
	op, ok := ts.ops[name]
	if !ok {
		return nil, false
	}
	return op, true
}

// Len returns the number of translated operations.
func (ts *ToolSet) Len() int {
	return len(ts.tools)
}

// Translate parses an OpenAPI 3.x document and builds one tool per
// operation. Each tool is bound to apiURL and invokes through client, so
// the returned ToolSet is self-contained. It has the gateway.Builder
// signature.
func Translate(ctx context.Context, spec []byte, apiURL string, client *http.Client) (gateway.ToolProvider, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = false

	doc, err := loader.LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSpec, err)
	}
	if doc.Paths == nil {
		return &ToolSet{ops: map[string]*Operation{}}, nil
	}

	baseURL := strings.TrimRight(apiURL, "/")
	ts := &ToolSet{ops: make(map[string]*Operation)}

	// Sort paths so the tool list order is deterministic across builds.
	pathMap := doc.Paths.Map()
	paths := make([]string, 0, len(pathMap))
	for p := range pathMap {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		item := pathMap[p]
		for method, op := range item.Operations() {
			name := toolName(method, p, op)
			if _, exists := ts.ops[name]; exists {
				// Duplicate operationIds are invalid OpenAPI but do
				// occur in the wild. First one wins.
				continue
			}

			params := collectParameters(item.Parameters, op.Parameters)
			bodySchema, bodyRequired := requestBodySchema(op)

			tool, err := buildTool(name, op, params, bodySchema, bodyRequired)
			if err != nil {
				return nil, fmt.Errorf("%w: operation %s: %v", ErrMalformedSpec, name, err)
			}

			ts.tools = append(ts.tools, tool)
			ts.ops[name] = &Operation{
				name:       name,
				method:     method,
				pathTmpl:   p,
				baseURL:    baseURL,
				client:     client,
				params:     params,
				hasBody:    bodySchema != nil,
				bodyFields: bodyFieldNames(bodySchema),
			}
		}
	}

	return ts, nil
}

// toolName derives the tool name from the operationId, falling back to a
// method_path slug when the document omits one.
func toolName(method, path string, op *openapi3.Operation) string {
	if op.OperationID != "" {
		return op.OperationID
	}
	slug := strings.NewReplacer("/", "_", "{", "", "}", "", "-", "_", ".", "_").Replace(strings.Trim(path, "/"))
	if slug == "" {
		slug = "root"
	}
	return strings.ToLower(method + "_" + slug)
}

// parameter is the subset of an OpenAPI parameter the invoker needs.
type parameter struct {
	name     string
	in       string
	required bool
	schema   *openapi3.SchemaRef
}

// collectParameters merges path-item level and operation level parameters,
// with operation level definitions taking precedence. Cookie parameters are
// dropped: cookies reach the upstream only through the forwarded session
// header.
func collectParameters(itemParams, opParams openapi3.Parameters) []parameter {
	merged := make(map[string]parameter)
	order := make([]string, 0, len(itemParams)+len(opParams))

	add := func(refs openapi3.Parameters) {
		for _, ref := range refs {
			if ref == nil || ref.Value == nil {
				continue
			}
			p := ref.Value
			if p.In != inPath && p.In != inQuery && p.In != inHeader {
				continue
			}
			key := p.In + ":" + p.Name
			if _, seen := merged[key]; !seen {
				order = append(order, key)
			}
			merged[key] = parameter{
				name:     p.Name,
				in:       p.In,
				required: p.Required || p.In == inPath,
				schema:   p.Schema,
			}
		}
	}
	add(itemParams)
	add(opParams)

	out := make([]parameter, 0, len(merged))
	for _, key := range order {
		out = append(out, merged[key])
	}
	return out
}

// requestBodySchema returns the JSON request body schema, if any.
func requestBodySchema(op *openapi3.Operation) (*openapi3.Schema, bool) {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil, false
	}
	mt := op.RequestBody.Value.Content.Get("application/json")
	if mt == nil || mt.Schema == nil || mt.Schema.Value == nil {
		return nil, false
	}
	return mt.Schema.Value, op.RequestBody.Value.Required
}

// bodyFieldNames lists the top-level properties of an object body schema.
// Operations with non-object bodies accept the payload under a single
// "body" argument instead.
func bodyFieldNames(schema *openapi3.Schema) []string {
	if schema == nil || !schema.Type.Is("object") {
		return nil
	}
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// buildTool assembles the MCP tool definition. Parameters and flattened
// body properties share one input schema, matching how clients expect to
// pass arguments.
func buildTool(name string, op *openapi3.Operation, params []parameter, body *openapi3.Schema, bodyRequired bool) (mcp.Tool, error) {
	props := make(map[string]any)
	var required []string

	for _, p := range params {
		schema, err := schemaToMap(p.schema)
		if err != nil {
			return mcp.Tool{}, err
		}
		props[p.name] = schema
		if p.required {
			required = append(required, p.name)
		}
	}

	switch {
	case body != nil && body.Type.Is("object"):
		requiredBody := make(map[string]bool, len(body.Required))
		for _, r := range body.Required {
			requiredBody[r] = true
		}
		for fieldName, ref := range body.Properties {
			if _, clash := props[fieldName]; clash {
				continue
			}
			schema, err := schemaToMap(ref)
			if err != nil {
				return mcp.Tool{}, err
			}
			props[fieldName] = schema
			if requiredBody[fieldName] {
				required = append(required, fieldName)
			}
		}
	case body != nil:
		schema, err := schemaToMap(openapi3.NewSchemaRef("", body))
		if err != nil {
			return mcp.Tool{}, err
		}
		props["body"] = schema
		if bodyRequired {
			required = append(required, "body")
		}
	}

	sort.Strings(required)

	desc := op.Summary
	if desc == "" {
		desc = op.Description
	}
	if desc == "" {
		desc = name
	}

	return mcp.Tool{
		Name:        name,
		Description: desc,
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: props,
			Required:   required,
		},
	}, nil
}

// schemaToMap converts a schema reference into the generic JSON shape the
// MCP input schema carries.
func schemaToMap(ref *openapi3.SchemaRef) (map[string]any, error) {
	if ref == nil {
		return map[string]any{"type": "string"}, nil
	}
	raw, err := ref.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
