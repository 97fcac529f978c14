package engine_test

import (
	"errors"
	"reflect"
	"testing"

	cerrors "github.com/easyops/contextengine-go/pkg/core/errors"
	"github.com/easyops/contextengine-go/pkg/engine"
)

func TestPackSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    engine.PackSpec
		wantErr bool
	}{
		{"retriever only", engine.PackSpec{Retriever: "kb"}, false},
		{"context only", engine.PackSpec{Context: "other"}, false},
		{"neither", engine.PackSpec{}, true},
		{"both", engine.PackSpec{Retriever: "kb", Context: "other"}, true},
		{"negative limit", engine.PackSpec{Retriever: "kb", Limit: -1}, true},
		{"negative weight", engine.PackSpec{Retriever: "kb", Weight: -0.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr && !errors.Is(err, cerrors.ErrInvalidDeclaration) {
				t.Fatalf("expected ErrInvalidDeclaration, got %v", err)
			}
		})
	}
}

func TestPackSpec_Name(t *testing.T) {
	nested := engine.PackSpec{Context: "child"}
	if nested.Name() != "child" || !nested.IsNested() {
		t.Errorf("nested pack: name=%q nested=%v", nested.Name(), nested.IsNested())
	}

	flat := engine.PackSpec{Retriever: "kb"}
	if flat.Name() != "kb" || flat.IsNested() {
		t.Errorf("retriever pack: name=%q nested=%v", flat.Name(), flat.IsNested())
	}
}

func TestMessageSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    engine.MessageSpec
		wantErr bool
	}{
		{"system with content", engine.MessageSpec{Kind: engine.KindSystem, Content: "hi"}, false},
		{"unknown kind", engine.MessageSpec{Kind: "tool", Content: "hi"}, true},
		{"system without content", engine.MessageSpec{Kind: engine.KindSystem}, true},
		{"pack with config", engine.MessageSpec{Kind: engine.KindPack, Pack: &engine.PackSpec{Retriever: "kb"}}, false},
		{"pack without config", engine.MessageSpec{Kind: engine.KindPack}, true},
		{"system carrying pack", engine.MessageSpec{Kind: engine.KindSystem, Content: "hi", Pack: &engine.PackSpec{Retriever: "kb"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestContextDeclaration_Validate(t *testing.T) {
	valid := engine.ContextDeclaration{
		Name: "chat",
		Messages: []engine.MessageSpec{
			{Kind: engine.KindSystem, Content: "hi"},
		},
		Policy: engine.DefaultPolicy(),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missing := engine.ContextDeclaration{Messages: valid.Messages, Policy: valid.Policy}
	if err := missing.Validate(); !errors.Is(err, cerrors.ErrInvalidDeclaration) {
		t.Fatalf("expected ErrInvalidDeclaration for missing name, got %v", err)
	}

	empty := engine.ContextDeclaration{Name: "empty", Policy: valid.Policy}
	if err := empty.Validate(); !errors.Is(err, cerrors.ErrInvalidDeclaration) {
		t.Fatalf("expected ErrInvalidDeclaration for empty messages, got %v", err)
	}
}

func TestContextPolicy_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*engine.ContextPolicy)
	}{
		{"negative max_tokens", func(p *engine.ContextPolicy) { p.InputBudget.MaxTokens = -1 }},
		{"ratio above one", func(p *engine.ContextPolicy) { p.PackBudget.DefaultRatio = 1.5 }},
		{"unknown overflow", func(p *engine.ContextPolicy) { p.Overflow = "panic" }},
		{"negative max_pages", func(p *engine.ContextPolicy) { p.Expansion.MaxPages = -2 }},
		{"fill ratio above one", func(p *engine.ContextPolicy) { p.Expansion.MinFillRatio = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := engine.DefaultPolicy()
			tt.mutate(&policy)
			if err := policy.Validate(); !errors.Is(err, cerrors.ErrInvalidPolicy) {
				t.Fatalf("expected ErrInvalidPolicy, got %v", err)
			}
		})
	}

	policy := engine.DefaultPolicy()
	if err := policy.Validate(); err != nil {
		t.Fatalf("default policy must be valid: %v", err)
	}
}

func TestContextPolicy_ApplyDefaults(t *testing.T) {
	var policy engine.ContextPolicy
	policy.ApplyDefaults()

	def := engine.DefaultPolicy()
	if !reflect.DeepEqual(policy, def) {
		t.Fatalf("expected defaults %+v, got %+v", def, policy)
	}

	custom := engine.ContextPolicy{InputBudget: engine.InputBudget{MaxTokens: 128}}
	custom.ApplyDefaults()
	if custom.InputBudget.MaxTokens != 128 {
		t.Fatalf("explicit max_tokens overwritten: %d", custom.InputBudget.MaxTokens)
	}
	if custom.Compactor.Name != engine.CompactorTruncate {
		t.Fatalf("expected default compactor, got %q", custom.Compactor.Name)
	}
}
