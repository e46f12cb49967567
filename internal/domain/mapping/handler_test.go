package mapping

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ayushmap/ayushmap/internal/platform/auth"
)

func newRequest(method, target, body string, user uuid.UUID) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if user != uuid.Nil {
		req = req.WithContext(auth.WithUserID(req.Context(), user.String()))
	}
	return req
}

func expectStatus(t *testing.T, err error, want int) *echo.HTTPError {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != want {
		t.Errorf("expected %d, got %d", want, httpErr.Code)
	}
	return httpErr
}

func TestHandler_MapAyush_Created(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodPost, "/api/mappings/map-ayush/", `{"ayush_term":"vata imbalance"}`, uuid.New()), rec)

	if err := h.MapAyush(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["icd_code"] != "F45.8" {
		t.Errorf("expected icd_code F45.8, got %v", body["icd_code"])
	}
	for _, k := range []string{"id", "ayush_term", "disease_name", "confidence", "explanation", "source", "created_at"} {
		if _, ok := body[k]; !ok {
			t.Errorf("expected field %s in response", k)
		}
	}
	if _, ok := body["user_id"]; ok {
		t.Error("user_id should not be serialized")
	}
}

func TestHandler_MapAyush_BadInput(t *testing.T) {
	svc, repo := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	for _, body := range []string{`{}`, `{"ayush_term":""}`, `{"ayush_term":"` + strings.Repeat("x", 256) + `"}`} {
		c := e.NewContext(newRequest(http.MethodPost, "/api/mappings/map-ayush/", body, uuid.New()), httptest.NewRecorder())
		httpErr := expectStatus(t, h.MapAyush(c), http.StatusBadRequest)
		fields, ok := httpErr.Message.(map[string][]string)
		if !ok || len(fields["ayush_term"]) == 0 {
			t.Errorf("expected ayush_term field error for %s, got %v", body, httpErr.Message)
		}
	}
	if len(repo.records) != 0 {
		t.Errorf("expected nothing stored, got %d", len(repo.records))
	}
}

func TestHandler_MapAyush_StageFailure(t *testing.T) {
	repo := newMockMappingRepo()
	h := NewHandler(NewService(repo, failingRunner{}, zerolog.Nop()))
	e := echo.New()
	c := e.NewContext(newRequest(http.MethodPost, "/api/mappings/map-ayush/", `{"ayush_term":"vata"}`, uuid.New()), httptest.NewRecorder())

	httpErr := expectStatus(t, h.MapAyush(c), http.StatusInternalServerError)
	msg, _ := httpErr.Message.(map[string]string)
	if msg["error"] != "failed to process mapping" {
		t.Errorf("expected generic error body, got %v", httpErr.Message)
	}
	if httpErr.Internal == nil {
		t.Error("expected the stage error as the internal cause")
	}
	if len(repo.records) != 0 {
		t.Error("expected nothing stored")
	}
}

func TestHandler_MapAyush_PersistenceFailure(t *testing.T) {
	svc, repo := newTestService()
	repo.createErr = errors.New("disk full")
	h := NewHandler(svc)
	c := echo.New().NewContext(newRequest(http.MethodPost, "/api/mappings/map-ayush/", `{"ayush_term":"vata"}`, uuid.New()), httptest.NewRecorder())

	expectStatus(t, h.MapAyush(c), http.StatusInternalServerError)
}

func TestHandler_Unauthenticated(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	c := e.NewContext(newRequest(http.MethodPost, "/api/mappings/map-ayush/", `{"ayush_term":"vata"}`, uuid.Nil), httptest.NewRecorder())
	expectStatus(t, h.MapAyush(c), http.StatusUnauthorized)

	c = e.NewContext(newRequest(http.MethodGet, "/api/mappings/history/", "", uuid.Nil), httptest.NewRecorder())
	expectStatus(t, h.History(c), http.StatusUnauthorized)
}

func TestHandler_History(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	user := uuid.New()

	for _, term := range []string{"A", "B", "C"} {
		c := e.NewContext(newRequest(http.MethodPost, "/api/mappings/map-ayush/", `{"ayush_term":"`+term+`"}`, user), httptest.NewRecorder())
		if err := h.MapAyush(c); err != nil {
			t.Fatal(err)
		}
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodGet, "/api/mappings/history/", "", user), rec)
	if err := h.History(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var records []MappingRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 || records[0].AyushTerm != "C" || records[2].AyushTerm != "A" {
		t.Errorf("expected C,B,A, got %+v", records)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(newRequest(http.MethodGet, "/api/mappings/history/?limit=2", "", user), rec)
	if err := h.History(c); err != nil {
		t.Fatal(err)
	}
	records = nil
	json.Unmarshal(rec.Body.Bytes(), &records)
	if len(records) != 2 {
		t.Errorf("expected 2 records with limit, got %d", len(records))
	}
}

func TestHandler_History_EmptyIsArray(t *testing.T) {
	svc, _ := newTestService()
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(newRequest(http.MethodGet, "/api/mappings/history/", "", uuid.New()), rec)

	if err := NewHandler(svc).History(c); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected [], got %s", rec.Body.String())
	}
}
