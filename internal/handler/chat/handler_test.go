package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/llm-chat/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/llm-chat/backend/internal/service/chat"
)

func setupRouter() (*chi.Mux, *chatservice.Service) {
	chatSvc := chatservice.NewService()
	handler := New(chatSvc)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, chatSvc
}

func do(r http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCreateSession(t *testing.T) {
	r, _ := setupRouter()

	resp := do(r, http.MethodPost, "/session", []byte(`{"title":"  grammar help "}`))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	var session chat.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if session.ID == "" || session.Title != "grammar help" {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestCreateSessionWithoutBody(t *testing.T) {
	r, _ := setupRouter()

	resp := do(r, http.MethodPost, "/session", nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
}

func TestCreateSessionMalformedBody(t *testing.T) {
	r, _ := setupRouter()

	resp := do(r, http.MethodPost, "/session", []byte(`{"title":`))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSaveAndListMessages(t *testing.T) {
	r, chatSvc := setupRouter()
	session, err := chatSvc.CreateSession(context.Background(), "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	payload, _ := json.Marshal(map[string]string{"sessionId": session.ID, "role": "user", "content": "hello"})
	if resp := do(r, http.MethodPost, "/messages", payload); resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	resp := do(r, http.MethodGet, "/session/"+session.ID+"/messages", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var messages []chat.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(messages) != 1 || messages[0].Content != "hello" {
		t.Fatalf("unexpected transcript %+v", messages)
	}

	if resp := do(r, http.MethodDelete, "/session/"+session.ID+"/messages", nil); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}

	resp = do(r, http.MethodGet, "/session/"+session.ID+"/messages", nil)
	if resp.Body.String() != "[]\n" {
		t.Fatalf("expected empty transcript, got %q", resp.Body.String())
	}
}

func TestSaveMessageValidation(t *testing.T) {
	r, chatSvc := setupRouter()
	session, _ := chatSvc.CreateSession(context.Background(), "")

	cases := []struct {
		name string
		body map[string]string
		want int
	}{
		{"unknown session", map[string]string{"sessionId": "missing", "role": "user", "content": "x"}, http.StatusNotFound},
		{"bad role", map[string]string{"sessionId": session.ID, "role": "robot", "content": "x"}, http.StatusBadRequest},
		{"empty content", map[string]string{"sessionId": session.ID, "role": "user", "content": ""}, http.StatusBadRequest},
	}

	for _, tc := range cases {
		payload, _ := json.Marshal(tc.body)
		if resp := do(r, http.MethodPost, "/messages", payload); resp.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, resp.Code)
		}
	}
}

func TestListMessagesUnknownSession(t *testing.T) {
	r, _ := setupRouter()

	if resp := do(r, http.MethodGet, "/session/missing/messages", nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
