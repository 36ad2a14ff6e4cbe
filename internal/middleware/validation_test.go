package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type testLine struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

type testMergeRequest struct {
	CartItems []testLine `json:"cart_items" validate:"required,dive"`
}

func decodeBody(t *testing.T, body string, v interface{}) error {
	t.Helper()
	req := httptest.NewRequest("POST", "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return DecodeAndValidate(req, v)
}

func TestProperty_QuantityValidation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("quantities below one are rejected", prop.ForAll(
		func(quantity int) bool {
			body, _ := json.Marshal(map[string]interface{}{
				"product_id": "7c9e6679-7425-40de-944b-e07fc1f90ae7",
				"quantity":   quantity,
			})

			req := httptest.NewRequest("POST", "/test", bytes.NewReader(body))
			var line testLine
			err := DecodeAndValidate(req, &line)

			if quantity >= 1 {
				return err == nil
			}
			return err != nil && len(FormatValidationErrors(err)) == 1
		},
		gen.IntRange(-20, 20),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestDecodeAndValidate_MergePayloadMustBeArray(t *testing.T) {
	var req testMergeRequest
	err := decodeBody(t, `{"cart_items": {"product_id": "x"}}`, &req)
	if !errors.Is(err, ErrMalformedBody) {
		t.Fatalf("Expected ErrMalformedBody, got %v", err)
	}

	err = decodeBody(t, `{}`, &req)
	if err == nil || errors.Is(err, ErrMalformedBody) {
		t.Fatalf("Expected a validation error for missing cart_items, got %v", err)
	}
}

func TestDecodeAndValidate_DivesIntoLines(t *testing.T) {
	var req testMergeRequest
	err := decodeBody(t, `{"cart_items": [{"product_id": "not-a-uuid", "quantity": 0}]}`, &req)
	if err == nil {
		t.Fatal("Expected validation error")
	}

	fields := map[string]string{}
	for _, ve := range FormatValidationErrors(err) {
		fields[ve.Field] = ve.Message
	}
	if fields["ProductID"] != "Invalid identifier" {
		t.Errorf("Unexpected ProductID message %q", fields["ProductID"])
	}
	if fields["Quantity"] != "Value must be greater than or equal to 1" {
		t.Errorf("Unexpected Quantity message %q", fields["Quantity"])
	}
}

func TestRespondWithDecodeError(t *testing.T) {
	var line testLine

	w := httptest.NewRecorder()
	RespondWithDecodeError(w, decodeBody(t, `not json`, &line))
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "invalid request body") {
		t.Errorf("Unexpected malformed body response: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	RespondWithDecodeError(w, decodeBody(t, `{"quantity": 1}`, &line))
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "validation_errors") {
		t.Errorf("Unexpected validation response: %d %s", w.Code, w.Body.String())
	}
}
