package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	return client, srv
}

func TestAsk_OK(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/ask" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Question != "what?" || req.K != 4 {
			t.Errorf("request not forwarded: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(Answer{
			Answer: "grounded [1]",
			Sources: []Source{
				{Index: 1, DocumentName: "paper", SourcePath: "paper.pdf", ChunkCount: 2},
			},
		})
	})

	answer, err := client.Ask(context.Background(), AskRequest{Question: "what?", K: 4})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if answer.Answer != "grounded [1]" {
		t.Errorf("answer %q", answer.Answer)
	}
	if len(answer.Sources) != 1 || answer.Sources[0].ChunkCount != 2 {
		t.Errorf("sources %+v", answer.Sources)
	}
}

func TestAsk_IndexNotFound(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"code":"index_not_found","message":"index not found"}`))
	})

	_, err := client.Ask(context.Background(), AskRequest{Question: "q"})
	if !errors.Is(err, ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected wrapped *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusServiceUnavailable || apiErr.Code != "index_not_found" {
		t.Errorf("api error %+v", apiErr)
	}
}

func TestAsk_ValidationErrorsShareSentinel(t *testing.T) {
	for _, code := range []string{"validation_failed", "unknown_generator", "invalid_model"} {
		client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"code": code, "message": code})
		})

		_, err := client.Ask(context.Background(), AskRequest{Question: "q"})
		if !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("code %s: expected ErrInvalidRequest, got %v", code, err)
		}
	}
}

func TestAsk_LoginRequired(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"code":"login_required","message":"interactive login required"}`))
	})

	_, err := client.Ask(context.Background(), AskRequest{Question: "q", Generator: "chatgpt-web"})
	if !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("expected ErrLoginRequired, got %v", err)
	}
}

func TestAsk_UnknownCodeIsPlainAPIError(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"internal_error","message":"internal error"}`))
	})

	_, err := client.Ask(context.Background(), AskRequest{Question: "q"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Code != "internal_error" {
		t.Errorf("code %q", apiErr.Code)
	}
}

func TestIndexStatusAndReload(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/index/status":
			_ = json.NewEncoder(w).Encode(IndexStatus{Loaded: true, Entries: 42, Path: "index/paperask.idx"})
		case "/api/index/load":
			if r.Method != http.MethodPost {
				t.Errorf("reload used %s", r.Method)
			}
			_ = json.NewEncoder(w).Encode(IndexStatus{Loaded: true, Entries: 42})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	status, err := client.IndexStatus(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Loaded || status.Entries != 42 {
		t.Errorf("status %+v", status)
	}

	if _, err := client.ReloadIndex(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
}

func TestProviders(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Providers{
			Default: "openai",
			Providers: []Provider{
				{Name: "openai", Models: []string{"gpt-4o-mini"}, Default: true},
			},
		})
	})

	providers, err := client.Providers(context.Background())
	if err != nil {
		t.Fatalf("providers: %v", err)
	}
	if providers.Default != "openai" || len(providers.Providers) != 1 {
		t.Errorf("providers %+v", providers)
	}
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	client, err := New("http://localhost:5001/")
	if err != nil {
		t.Fatal(err)
	}
	if client.baseURL != "http://localhost:5001" {
		t.Errorf("baseURL %q", client.baseURL)
	}
}
