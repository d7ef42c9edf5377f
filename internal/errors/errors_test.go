package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	if KindOf(Unauthorized("")) != KindUnauthorized {
		t.Fatalf("expected unauthorized kind")
	}
	if KindOf(fmt.Errorf("plain")) != KindInternal {
		t.Fatalf("expected plain errors to classify as internal")
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("create driver: %w", LimitExceeded("You have reached the limit of 3 drivers."))
	if !IsKind(err, KindLimitExceeded) {
		t.Fatalf("expected wrapped error to keep its kind")
	}
	if HTTPStatus(err) != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", HTTPStatus(err))
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[error]int{
		Unauthorized(""):         http.StatusUnauthorized,
		AlreadyOnboarded():       http.StatusConflict,
		NotFound(""):             http.StatusNotFound,
		Invalid("bad payload"):   http.StatusBadRequest,
		Internal(fmt.Errorf("")): http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := HTTPStatus(err); got != want {
			t.Fatalf("status for %v: got %d, want %d", err, got, want)
		}
	}
}

func TestMessagesAreUserFacing(t *testing.T) {
	err := Internal(fmt.Errorf("pq: connection refused"))
	if err.Error() == "pq: connection refused" {
		t.Fatalf("internal detail must not leak into the user-facing message")
	}
}
