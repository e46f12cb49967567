package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestGenerator() *Generator {
	g := NewGenerator("Test API", "1.0.0", "http://localhost:8000")
	g.Schema("Thing", map[string]interface{}{"type": "object"})
	g.Add(
		Operation{
			Method: http.MethodGet, Path: "/api/things/:id", Summary: "Read a thing", Tag: "things",
			PathParams: []Param{{Name: "id"}},
			Responses:  map[int]Response{http.StatusOK: {Description: "ok", SchemaRef: "Thing"}},
		},
		Operation{
			Method: http.MethodPost, Path: "/api/things/", Summary: "Create a thing", Tag: "things",
			RequestRef: "Thing", Public: true,
			Responses: map[int]Response{http.StatusCreated: {Description: "created", SchemaRef: "Thing"}},
		},
		Operation{
			Method: http.MethodGet, Path: "/api/things/", Summary: "List things", Tag: "things",
			QueryParams: []Param{{Name: "limit", Type: "integer"}},
			Responses:   map[int]Response{http.StatusOK: {Description: "ok", SchemaRef: "Thing", ArrayOf: true}},
		},
	)
	return g
}

func TestGenerateSpec_Structure(t *testing.T) {
	spec := newTestGenerator().GenerateSpec()

	if spec["openapi"] != "3.0.3" {
		t.Errorf("expected openapi '3.0.3', got %v", spec["openapi"])
	}
	info, ok := spec["info"].(map[string]interface{})
	if !ok {
		t.Fatal("expected info object")
	}
	if info["title"] != "Test API" || info["version"] != "1.0.0" {
		t.Errorf("unexpected info: %v", info)
	}
	tags, ok := spec["tags"].([]map[string]string)
	if !ok || len(tags) != 1 || tags[0]["name"] != "things" {
		t.Errorf("expected single things tag, got %v", spec["tags"])
	}
}

func TestGenerateSpec_PathTemplates(t *testing.T) {
	paths := newTestGenerator().GenerateSpec()["paths"].(map[string]map[string]interface{})

	if _, ok := paths["/api/things/{id}"]; !ok {
		t.Fatalf("expected templated path, got %v", paths)
	}
	if _, ok := paths["/api/things/:id"]; ok {
		t.Error("echo path syntax should not leak into the document")
	}
	list := paths["/api/things/"]
	if _, ok := list["get"]; !ok {
		t.Error("expected GET on collection")
	}
	if _, ok := list["post"]; !ok {
		t.Error("expected POST on collection")
	}
}

func TestGenerateSpec_Security(t *testing.T) {
	paths := newTestGenerator().GenerateSpec()["paths"].(map[string]map[string]interface{})

	read := paths["/api/things/{id}"]["get"].(map[string]interface{})
	if _, ok := read["security"]; !ok {
		t.Error("expected protected operation to require bearerAuth")
	}
	create := paths["/api/things/"]["post"].(map[string]interface{})
	if _, ok := create["security"]; ok {
		t.Error("expected public operation without security")
	}
	if _, ok := create["requestBody"]; !ok {
		t.Error("expected request body on create")
	}
}

func TestGenerateSpec_ArrayResponse(t *testing.T) {
	paths := newTestGenerator().GenerateSpec()["paths"].(map[string]map[string]interface{})
	list := paths["/api/things/"]["get"].(map[string]interface{})
	responses := list["responses"].(map[string]interface{})
	ok200 := responses["200"].(map[string]interface{})
	schema := ok200["content"].(map[string]interface{})["application/json"].(map[string]interface{})["schema"].(map[string]interface{})
	if schema["type"] != "array" {
		t.Errorf("expected array schema, got %v", schema)
	}
}

func TestOperationID(t *testing.T) {
	got := operationID(Operation{Method: http.MethodPost, Path: "/api/mappings/map-ayush/"})
	if got != "postApiMappingsMapAyush" {
		t.Errorf("expected postApiMappingsMapAyush, got %s", got)
	}
	got = operationID(Operation{Method: http.MethodGet, Path: "/api/v1/terminology/icd/:code"})
	if got != "getApiV1TerminologyIcdCode" {
		t.Errorf("expected getApiV1TerminologyIcdCode, got %s", got)
	}
}

func TestRegisterRoutes(t *testing.T) {
	e := echo.New()
	newTestGenerator().RegisterRoutes(e.Group("/api"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc["openapi"] != "3.0.3" {
		t.Errorf("expected openapi 3.0.3, got %v", doc["openapi"])
	}
}
