package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[ErrorCode]int{
		CodeInvalidParam:      http.StatusBadRequest,
		CodeProviderNotFound:  http.StatusNotFound,
		CodeSessionBusy:       http.StatusConflict,
		CodeDuplicateRequest:  http.StatusConflict,
		CodeNothingToAccept:   http.StatusUnprocessableEntity,
		CodeTooManyRequests:   http.StatusTooManyRequests,
		CodeLLMProviderError:  http.StatusBadGateway,
		CodeDatabaseError:     http.StatusInternalServerError,
		CodeCredentialInvalid: http.StatusUnprocessableEntity,
	}
	for code, want := range cases {
		if got := New(code, "x").HTTPStatus; got != want {
			t.Errorf("code %s: status = %d, want %d", code, got, want)
		}
	}
}

func TestIsCodeThroughWrapping(t *testing.T) {
	base := New(CodeSessionBusy, "busy")
	wrapped := fmt.Errorf("start: %w", base)

	if !IsCode(wrapped, CodeSessionBusy) {
		t.Fatal("IsCode should see through fmt wrapping")
	}
	if IsCode(wrapped, CodeConflict) {
		t.Fatal("IsCode matched the wrong code")
	}
	if got := AsAppError(wrapped); got != base {
		t.Fatalf("AsAppError = %v, want the original", got)
	}
	if got := AsAppError(fmt.Errorf("plain")); got.Code != CodeUnknown {
		t.Fatalf("plain error code = %s", got.Code)
	}
}

func TestUnmappedCodeIsInternal(t *testing.T) {
	if got := New(CodeUnknown, "x").HTTPStatus; got != http.StatusInternalServerError {
		t.Fatalf("unmapped status = %d", got)
	}
	if got := Wrap(fmt.Errorf("io"), CodeDatabaseError, "db").Error(); got != "[5001] db: io" {
		t.Fatalf("Error() = %q", got)
	}
}
