package generate

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/lumora-labs/paperask/internal/domain"
)

func TestNewOpenAI_RequiresKey(t *testing.T) {
	_, err := NewOpenAI(OpenAIConfig{Model: "gpt-4o-mini", Logger: zap.NewNop()})
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestOpenAIGenerator_Models_DefaultFirst(t *testing.T) {
	g, err := NewOpenAI(OpenAIConfig{
		APIKey: "test-key",
		Model:  "gpt-4o-mini",
		Models: []string{"gpt-4o-mini", "gpt-4o", "gpt-3.5-turbo"},
		Logger: zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	models := g.Models()
	if models[0] != "gpt-4o-mini" {
		t.Errorf("default model not first: %v", models)
	}
	if len(models) != 3 {
		t.Errorf("expected 3 models, got %v", models)
	}
}

func TestOpenAIGenerator_RejectsUnknownModel(t *testing.T) {
	g, err := NewOpenAI(OpenAIConfig{
		APIKey: "test-key",
		Model:  "gpt-4o-mini",
		Models: []string{"gpt-4o-mini", "gpt-4o"},
		Logger: zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	_, err = g.Generate(context.Background(), domain.GenerateRequest{
		Prompt: "hello",
		Model:  "gpt-5-ultra",
	})
	if !errors.Is(err, domain.ErrInvalidModel) {
		t.Fatalf("expected ErrInvalidModel, got %v", err)
	}
}

func TestClassifyCtxErr(t *testing.T) {
	err := classifyCtxErr(context.DeadlineExceeded)
	if !errors.Is(err, domain.ErrGenerationTimeout) {
		t.Errorf("deadline not classified as timeout: %v", err)
	}

	err = classifyCtxErr(context.Canceled)
	if errors.Is(err, domain.ErrGenerationTimeout) {
		t.Errorf("cancellation wrongly classified as timeout: %v", err)
	}
}
