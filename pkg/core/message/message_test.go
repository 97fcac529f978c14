package message_test

import (
	"errors"
	"testing"

	"github.com/easyops/contextengine-go/pkg/core/message"
)

func TestRole_IsValid(t *testing.T) {
	valid := []message.Role{message.RoleSystem, message.RoleUser, message.RoleAssistant}
	for _, role := range valid {
		if !role.IsValid() {
			t.Errorf("expected role %q to be valid", role)
		}
	}
	if message.Role("tool").IsValid() {
		t.Error("expected unknown role to be invalid")
	}
}

func TestNewMessage(t *testing.T) {
	msg := message.NewMessage(message.RoleUser, "hello")

	if msg.Role != message.RoleUser {
		t.Errorf("expected role user, got %q", msg.Role)
	}
	if msg.Content != "hello" {
		t.Errorf("expected content hello, got %q", msg.Content)
	}
	if msg.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestMessageConstructors(t *testing.T) {
	if msg := message.NewSystemMessage("s"); msg.Role != message.RoleSystem {
		t.Errorf("expected system role, got %q", msg.Role)
	}
	if msg := message.NewUserMessage("u"); msg.Role != message.RoleUser {
		t.Errorf("expected user role, got %q", msg.Role)
	}
	if msg := message.NewAssistantMessage("a"); msg.Role != message.RoleAssistant {
		t.Errorf("expected assistant role, got %q", msg.Role)
	}
}

func TestMessage_Validate(t *testing.T) {
	msg := message.NewUserMessage("hello")
	if err := msg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	invalid := message.Message{Role: "tool", Content: "hello"}
	if err := invalid.Validate(); !errors.Is(err, message.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}

	empty := message.Message{Role: message.RoleUser}
	if err := empty.Validate(); !errors.Is(err, message.ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
}
