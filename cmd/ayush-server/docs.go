package main

import (
	"net/http"

	"github.com/ayushmap/ayushmap/internal/platform/openapi"
)

// apiDocs describes every route mounted by newRouter.
func apiDocs() *openapi.Generator {
	g := openapi.NewGenerator("AYUSH Mapping API", version, "/")

	str := map[string]interface{}{"type": "string"}
	num := map[string]interface{}{"type": "number", "minimum": 0, "maximum": 100}
	fieldErrors := map[string]interface{}{
		"type":                 "object",
		"additionalProperties": map[string]interface{}{"type": "array", "items": str},
	}

	g.Schema("MapRequest", object([]string{"ayush_term"}, map[string]interface{}{
		"ayush_term": map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 255},
	}))
	g.Schema("MappingRecord", object(nil, map[string]interface{}{
		"id":           map[string]interface{}{"type": "string", "format": "uuid"},
		"ayush_term":   str,
		"icd_code":     str,
		"disease_name": str,
		"confidence":   num,
		"explanation":  str,
		"source":       str,
		"created_at":   map[string]interface{}{"type": "string", "format": "date-time"},
	}))
	g.Schema("RegisterRequest", object([]string{"email", "username", "password"}, map[string]interface{}{
		"email":        map[string]interface{}{"type": "string", "format": "email"},
		"username":     str,
		"password":     map[string]interface{}{"type": "string", "minLength": 8},
		"organization": str,
	}))
	g.Schema("User", object(nil, map[string]interface{}{
		"id":           map[string]interface{}{"type": "string", "format": "uuid"},
		"email":        str,
		"username":     str,
		"organization": str,
		"created_at":   map[string]interface{}{"type": "string", "format": "date-time"},
	}))
	g.Schema("LoginRequest", object([]string{"email", "password"}, map[string]interface{}{
		"email": str, "password": str,
	}))
	g.Schema("RefreshRequest", object([]string{"refresh"}, map[string]interface{}{"refresh": str}))
	g.Schema("TokenPair", object(nil, map[string]interface{}{"access": str, "refresh": str}))
	g.Schema("AccessToken", object(nil, map[string]interface{}{"access": str}))
	g.Schema("ICDCode", object(nil, map[string]interface{}{
		"code": str, "display": str, "chapter": str, "body_system": str, "system": str,
	}))
	g.Schema("FieldErrors", fieldErrors)
	g.Schema("Error", object(nil, map[string]interface{}{"error": str}))
	g.Schema("Detail", object(nil, map[string]interface{}{"detail": str}))

	page := []openapi.Param{{Name: "limit", Type: "integer"}, {Name: "offset", Type: "integer"}}
	unauthorized := openapi.Response{Description: "Missing or invalid access token"}

	g.Add(
		openapi.Operation{
			Method: http.MethodPost, Path: "/api/mappings/map-ayush/", Tag: "mappings",
			Summary:    "Map an AYUSH term to an ICD code and record it",
			RequestRef: "MapRequest",
			Responses: map[int]openapi.Response{
				http.StatusCreated:             {Description: "Mapping recorded", SchemaRef: "MappingRecord"},
				http.StatusBadRequest:          {Description: "Invalid input", SchemaRef: "FieldErrors"},
				http.StatusUnauthorized:        unauthorized,
				http.StatusInternalServerError: {Description: "Pipeline or storage failure", SchemaRef: "Error"},
			},
		},
		openapi.Operation{
			Method: http.MethodGet, Path: "/api/mappings/history/", Tag: "mappings",
			Summary:     "List the caller's mappings, newest first",
			QueryParams: page,
			Responses: map[int]openapi.Response{
				http.StatusOK:           {Description: "Mapping history", SchemaRef: "MappingRecord", ArrayOf: true},
				http.StatusUnauthorized: unauthorized,
			},
		},
		openapi.Operation{
			Method: http.MethodPost, Path: "/api/users/register/", Tag: "users", Public: true,
			Summary: "Create an account", RequestRef: "RegisterRequest",
			Responses: map[int]openapi.Response{
				http.StatusCreated:    {Description: "Account created", SchemaRef: "User"},
				http.StatusBadRequest: {Description: "Invalid input", SchemaRef: "FieldErrors"},
			},
		},
		openapi.Operation{
			Method: http.MethodPost, Path: "/api/users/login/", Tag: "users", Public: true,
			Summary: "Obtain an access and refresh token", RequestRef: "LoginRequest",
			Responses: map[int]openapi.Response{
				http.StatusOK:           {Description: "Token pair", SchemaRef: "TokenPair"},
				http.StatusBadRequest:   {Description: "Invalid input", SchemaRef: "FieldErrors"},
				http.StatusUnauthorized: {Description: "Bad credentials", SchemaRef: "Detail"},
			},
		},
		openapi.Operation{
			Method: http.MethodPost, Path: "/api/users/token/refresh/", Tag: "users", Public: true,
			Summary: "Exchange a refresh token for a new access token", RequestRef: "RefreshRequest",
			Responses: map[int]openapi.Response{
				http.StatusOK:           {Description: "New access token", SchemaRef: "AccessToken"},
				http.StatusUnauthorized: {Description: "Refresh token invalid, expired or revoked", SchemaRef: "Detail"},
			},
		},
		openapi.Operation{
			Method: http.MethodPost, Path: "/api/users/logout/", Tag: "users", Public: true,
			Summary: "Revoke a refresh token", RequestRef: "RefreshRequest",
			Responses: map[int]openapi.Response{
				http.StatusNoContent:    {Description: "Revoked"},
				http.StatusUnauthorized: {Description: "Refresh token invalid", SchemaRef: "Detail"},
			},
		},
		openapi.Operation{
			Method: http.MethodGet, Path: "/api/v1/terminology/icd", Tag: "terminology",
			Summary:     "Search reference ICD codes",
			QueryParams: append([]openapi.Param{{Name: "q", Required: true}}, page...),
			Responses: map[int]openapi.Response{
				http.StatusOK:           {Description: "Matching codes", SchemaRef: "ICDCode", ArrayOf: true},
				http.StatusBadRequest:   {Description: "Missing query"},
				http.StatusUnauthorized: unauthorized,
			},
		},
		openapi.Operation{
			Method: http.MethodGet, Path: "/api/v1/terminology/icd/:code", Tag: "terminology",
			Summary:    "Look up one reference ICD code",
			PathParams: []openapi.Param{{Name: "code"}},
			Responses: map[int]openapi.Response{
				http.StatusOK:           {Description: "Code found", SchemaRef: "ICDCode"},
				http.StatusNotFound:     {Description: "Unknown code"},
				http.StatusUnauthorized: unauthorized,
			},
		},
		openapi.Operation{
			Method: http.MethodGet, Path: "/health", Tag: "health", Public: true,
			Summary:   "Liveness",
			Responses: map[int]openapi.Response{http.StatusOK: {Description: "Server is up"}},
		},
		openapi.Operation{
			Method: http.MethodGet, Path: "/health/db", Tag: "health", Public: true,
			Summary: "Database connectivity and pool statistics",
			Responses: map[int]openapi.Response{
				http.StatusOK:                 {Description: "Database reachable"},
				http.StatusServiceUnavailable: {Description: "Database unreachable"},
			},
		},
	)
	return g
}

func object(required []string, props map[string]interface{}) map[string]interface{} {
	o := map[string]interface{}{"type": "object", "properties": props}
	if len(required) > 0 {
		o["required"] = required
	}
	return o
}
