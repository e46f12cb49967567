// Package openapi serves an OpenAPI 3.0 description of the HTTP API.
package openapi

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// Operation describes one route for the generated document.
type Operation struct {
	Method      string
	Path        string
	Summary     string
	Tag         string
	Public      bool
	RequestRef  string // component schema name, empty for no body
	Responses   map[int]Response
	QueryParams []Param
	PathParams  []Param
}

// Response is a status description with an optional schema. ArrayOf wraps
// the schema in an array.
type Response struct {
	Description string
	SchemaRef   string
	ArrayOf     bool
}

type Param struct {
	Name     string
	Type     string // string or integer
	Required bool
}

// Generator builds the OpenAPI document from registered operations.
type Generator struct {
	title   string
	version string
	baseURL string
	ops     []Operation
	schemas map[string]interface{}
}

func NewGenerator(title, version, baseURL string) *Generator {
	return &Generator{title: title, version: version, baseURL: baseURL, schemas: make(map[string]interface{})}
}

// Add registers operations. Paths use echo syntax (":code"); they are
// rewritten to OpenAPI templates.
func (g *Generator) Add(ops ...Operation) {
	g.ops = append(g.ops, ops...)
}

// Schema registers a component schema by name.
func (g *Generator) Schema(name string, schema map[string]interface{}) {
	g.schemas[name] = schema
}

// GenerateSpec produces the OpenAPI 3.0 spec as a map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	paths := make(map[string]map[string]interface{})
	tagSet := make(map[string]bool)

	for _, op := range g.ops {
		p := templatePath(op.Path)
		if paths[p] == nil {
			paths[p] = make(map[string]interface{})
		}
		paths[p][strings.ToLower(op.Method)] = g.buildOperation(op)
		if op.Tag != "" {
			tagSet[op.Tag] = true
		}
	}

	tags := make([]string, 0, len(tagSet))
	for t := range tagSet {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	tagList := make([]map[string]string, len(tags))
	for i, t := range tags {
		tagList[i] = map[string]string{"name": t}
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":   g.title,
			"version": g.version,
		},
		"servers": []map[string]string{
			{"url": g.baseURL},
		},
		"tags":  tagList,
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": g.schemas,
			"securitySchemes": map[string]interface{}{
				"bearerAuth": map[string]string{
					"type":         "http",
					"scheme":       "bearer",
					"bearerFormat": "JWT",
				},
			},
		},
	}
}

func (g *Generator) buildOperation(op Operation) map[string]interface{} {
	out := map[string]interface{}{
		"summary":     op.Summary,
		"operationId": operationID(op),
		"responses":   buildResponses(op.Responses),
	}
	if op.Tag != "" {
		out["tags"] = []string{op.Tag}
	}
	if !op.Public {
		out["security"] = []map[string][]string{{"bearerAuth": {}}}
	}

	var params []map[string]interface{}
	for _, p := range op.PathParams {
		params = append(params, buildParam(p, "path", true))
	}
	for _, p := range op.QueryParams {
		params = append(params, buildParam(p, "query", p.Required))
	}
	if len(params) > 0 {
		out["parameters"] = params
	}

	if op.RequestRef != "" {
		out["requestBody"] = map[string]interface{}{
			"required": true,
			"content": map[string]interface{}{
				"application/json": map[string]interface{}{
					"schema": ref(op.RequestRef),
				},
			},
		}
	}
	return out
}

func buildResponses(rs map[int]Response) map[string]interface{} {
	out := make(map[string]interface{}, len(rs))
	for code, r := range rs {
		resp := map[string]interface{}{"description": r.Description}
		if r.SchemaRef != "" {
			schema := ref(r.SchemaRef)
			if r.ArrayOf {
				schema = map[string]interface{}{"type": "array", "items": schema}
			}
			resp["content"] = map[string]interface{}{
				"application/json": map[string]interface{}{"schema": schema},
			}
		}
		out[strconv.Itoa(code)] = resp
	}
	return out
}

func buildParam(p Param, in string, required bool) map[string]interface{} {
	typ := p.Type
	if typ == "" {
		typ = "string"
	}
	return map[string]interface{}{
		"name":     p.Name,
		"in":       in,
		"required": required,
		"schema":   map[string]string{"type": typ},
	}
}

func ref(name string) map[string]interface{} {
	return map[string]interface{}{"$ref": "#/components/schemas/" + name}
}

// templatePath turns "/icd/:code" into "/icd/{code}".
func templatePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		if strings.HasPrefix(part, ":") {
			parts[i] = "{" + part[1:] + "}"
		}
	}
	return strings.Join(parts, "/")
}

// operationID derives a stable camel-case id such as "postApiMappingsMapAyush".
func operationID(op Operation) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(op.Method))
	for _, seg := range strings.FieldsFunc(op.Path, func(r rune) bool { return r == '/' || r == '-' || r == ':' }) {
		b.WriteString(strings.ToUpper(seg[:1]) + seg[1:])
	}
	return b.String()
}

// RegisterRoutes serves the document at /openapi.json on the given group.
func (g *Generator) RegisterRoutes(group *echo.Group) {
	group.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec())
	})
}
