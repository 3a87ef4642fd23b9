package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	sentinel := New(CodeStorageFailure, "")
	wrapped := fmt.Errorf("outer: %w", Wrap(CodeStorageFailure, stdErrors.New("boom"), "query failed"))

	if !stdErrors.Is(wrapped, sentinel) {
		t.Fatalf("expected wrapped error to match sentinel by code")
	}
	if stdErrors.Is(wrapped, New(CodeConflict, "")) {
		t.Fatalf("expected different codes not to match")
	}
	if CodeOf(wrapped) != CodeStorageFailure {
		t.Fatalf("unexpected code: %s", CodeOf(wrapped))
	}
}

func TestMessageExcludesCause(t *testing.T) {
	err := Wrap(CodeInvalidArgument, stdErrors.New("strconv failure"), "bad input")
	if err.Message() != "bad input" {
		t.Fatalf("unexpected message: %q", err.Message())
	}
	if err.Error() != "[INVALID_ARGUMENT] bad input: strconv failure" {
		t.Fatalf("unexpected error string: %q", err.Error())
	}
}

func TestDefaultMessageFromRegistry(t *testing.T) {
	err := New(CodeTimeout, "")
	if err.Message() != "operation timed out" {
		t.Fatalf("unexpected default message: %q", err.Message())
	}
}

func TestRegisterCustomCode(t *testing.T) {
	const code Code = "TEST_CUSTOM"
	Register(code, Attributes{Message: "custom", Severity: SeverityWarning, Client: true})

	err := New(code, "")
	if !IsClientError(err) {
		t.Fatalf("expected registered code to be a client error")
	}
	if SeverityOf(err) != SeverityWarning {
		t.Fatalf("unexpected severity: %s", SeverityOf(err))
	}
	if RetryableError(err) {
		t.Fatalf("expected custom code not to be retryable")
	}
}

func TestUnknownCodeFallsBack(t *testing.T) {
	attr := AttributesOf("NOT_REGISTERED")
	if attr.Message != "unknown error" {
		t.Fatalf("unexpected fallback attributes: %+v", attr)
	}
	if IsClientError(stdErrors.New("plain")) {
		t.Fatalf("plain errors must not be client errors")
	}
	if CodeOf(stdErrors.New("plain")) != CodeUnknown {
		t.Fatalf("plain errors must map to UNKNOWN")
	}
}

func TestSeverityOverride(t *testing.T) {
	err := New(CodeConflict, "dup", WithSeverity(SeverityCritical))
	if err.Severity() != SeverityCritical || SeverityOf(err) != SeverityCritical {
		t.Fatalf("severity override ignored: %s", err.Severity())
	}
	if SeverityOf(stdErrors.New("plain")) != SeverityCritical {
		t.Fatalf("plain errors should report the UNKNOWN severity")
	}
}

func TestTimeoutIsRetryableServerError(t *testing.T) {
	err := Wrap(CodeTimeout, stdErrors.New("deadline"), "")
	if !RetryableError(err) {
		t.Fatalf("timeouts should be retryable")
	}
	if IsClientError(err) {
		t.Fatalf("timeouts must not be client errors")
	}
	if RetryableError(stdErrors.New("plain")) {
		t.Fatalf("plain errors must not be retryable")
	}
}
