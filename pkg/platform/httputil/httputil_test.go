package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	dErrors "ingresso/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal" {
			t.Fatalf("expected error code internal, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("validation error includes description and fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeValidation, "stage rejected").
			WithField("multiplier", "must be at least 1"))

		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, w.Code)
		}

		var body struct {
			Error            string               `json:"error"`
			ErrorDescription string               `json:"error_description"`
			Fields           []dErrors.FieldError `json:"fields"`
		}
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body.Error != "validation" {
			t.Fatalf("expected error code validation, got %q", body.Error)
		}
		if body.ErrorDescription != "stage rejected" {
			t.Fatalf("expected description to be returned, got %q", body.ErrorDescription)
		}
		if len(body.Fields) != 1 || body.Fields[0].Field != "multiplier" {
			t.Fatalf("expected field detail for multiplier, got %+v", body.Fields)
		}
	})

	t.Run("conflict and invalid state map to 409", func(t *testing.T) {
		for _, code := range []dErrors.Code{dErrors.CodeConflict, dErrors.CodeInvalidState} {
			w := httptest.NewRecorder()
			WriteError(w, dErrors.New(code, "nope"))
			if w.Code != http.StatusConflict {
				t.Fatalf("code %s: expected status 409, got %d", code, w.Code)
			}
		}
	})
}
