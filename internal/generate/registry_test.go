package generate

import (
	"context"
	"errors"
	"testing"

	"github.com/lumora-labs/paperask/internal/domain"
)

type stubGenerator struct {
	name   string
	models []string
}

func (s *stubGenerator) Name() string { return s.name }

func (s *stubGenerator) Models() []string { return s.models }

func (s *stubGenerator) Generate(_ context.Context, _ domain.GenerateRequest) (domain.GenerateResult, error) {
	return domain.GenerateResult{Text: "stub", Model: s.name}, nil
}

func TestRegistry_GetDefault(t *testing.T) {
	r := NewRegistry("openai")
	r.Register(&stubGenerator{name: "openai"})
	r.Register(&stubGenerator{name: "chatgpt-web"})

	g, err := r.Get("")
	if err != nil {
		t.Fatalf("get default: %v", err)
	}
	if g.Name() != "openai" {
		t.Errorf("default resolved to %q", g.Name())
	}

	g, err = r.Get("chatgpt-web")
	if err != nil {
		t.Fatalf("get by name: %v", err)
	}
	if g.Name() != "chatgpt-web" {
		t.Errorf("named lookup resolved to %q", g.Name())
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry("openai")
	r.Register(&stubGenerator{name: "openai"})

	_, err := r.Get("gemini")
	if !errors.Is(err, domain.ErrUnknownGenerator) {
		t.Fatalf("expected ErrUnknownGenerator, got %v", err)
	}
}

func TestRegistry_ProvidersDefaultFirst(t *testing.T) {
	r := NewRegistry("openai")
	r.Register(&stubGenerator{name: "chatgpt-web", models: []string{"chatgpt-web"}})
	r.Register(&stubGenerator{name: "openai", models: []string{"gpt-4o-mini", "gpt-4o"}})

	providers := r.Providers()
	if len(providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(providers))
	}
	if providers[0].Name != "openai" || !providers[0].Default {
		t.Errorf("default provider not first: %+v", providers[0])
	}
	if len(providers[0].Models) != 2 || providers[0].Models[0] != "gpt-4o-mini" {
		t.Errorf("unexpected model list: %v", providers[0].Models)
	}
	if providers[1].Default {
		t.Error("non-default provider flagged as default")
	}
}
