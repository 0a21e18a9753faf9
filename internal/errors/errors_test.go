package errors

import (
	"fmt"
	"testing"
)

func TestBotError_Error(t *testing.T) {
	err := &BotError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "document not found",
	}

	expected := "NOT_FOUND: document not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("text is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "text is required" {
		t.Errorf("Message = %q, want %q", err.Message, "text is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("index.html")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["identifier"] != "index.html" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "index.html")
	}
}

func TestNewConflict(t *testing.T) {
	err := NewConflict("version changed since read")

	if err.Code != ErrConflict {
		t.Errorf("Code = %q, want %q", err.Code, ErrConflict)
	}
	if err.Status != 409 {
		t.Errorf("Status = %d, want 409", err.Status)
	}
}

func TestNewStaleSession(t *testing.T) {
	err := NewStaleSession("awaiting_link")

	if err.Code != ErrStaleSession {
		t.Errorf("Code = %q, want %q", err.Code, ErrStaleSession)
	}
	if err.Details["stage"] != "awaiting_link" {
		t.Errorf("Details[stage] = %v, want awaiting_link", err.Details["stage"])
	}
}

func TestNewMarkerMissing(t *testing.T) {
	err := NewMarkerMissing("<!-- INSERT_DEV_HERE -->")

	if err.Code != ErrMarkerMissing {
		t.Errorf("Code = %q, want %q", err.Code, ErrMarkerMissing)
	}
	if err.Status != 422 {
		t.Errorf("Status = %d, want 422", err.Status)
	}
	if err.Details["marker"] != "<!-- INSERT_DEV_HERE -->" {
		t.Errorf("Details[marker] = %v", err.Details["marker"])
	}
}

func TestNewBackend(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		err := NewBackend("huggingface/qwen", fmt.Errorf("status 429"))
		if err.Code != ErrBackend {
			t.Errorf("Code = %q, want %q", err.Code, ErrBackend)
		}
		if err.Message != "status 429" {
			t.Errorf("Message = %q, want %q", err.Message, "status 429")
		}
		if err.Details["backend"] != "huggingface/qwen" {
			t.Errorf("Details[backend] = %v", err.Details["backend"])
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewBackend("x", nil)
		if err.Message != "backend call failed" {
			t.Errorf("Message = %q, want %q", err.Message, "backend call failed")
		}
	})
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		originalErr := fmt.Errorf("database connection failed")
		err := NewInternal(originalErr)

		if err.Code != ErrInternal {
			t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
		}
		if err.Status != 500 {
			t.Errorf("Status = %d, want 500", err.Status)
		}
		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details["internal_error"] != "database connection failed" {
			t.Errorf("Details[internal_error] = %q, want %q", err.Details["internal_error"], "database connection failed")
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewInternal(nil)

		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details == nil {
			t.Error("Details should not be nil")
		}
	})
}

func TestIs(t *testing.T) {
	t.Run("matching code", func(t *testing.T) {
		err := NewNotFound("test")
		if !Is(err, ErrNotFound) {
			t.Error("Is() = false, want true")
		}
	})

	t.Run("non-matching code", func(t *testing.T) {
		err := NewNotFound("test")
		if Is(err, ErrConflict) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("non-BotError", func(t *testing.T) {
		err := fmt.Errorf("plain error")
		if Is(err, ErrNotFound) {
			t.Error("Is() = true, want false for non-BotError")
		}
	})

	t.Run("wrapped BotError", func(t *testing.T) {
		inner := NewStore(fmt.Errorf("timeout"))
		wrapped := fmt.Errorf("publish: %w", inner)
		if !Is(wrapped, ErrStore) {
			t.Error("Is() = false, want true for wrapped BotError")
		}
		if Is(wrapped, ErrConflict) {
			t.Error("Is() = true, want false for wrong code on wrapped BotError")
		}
	})
}
