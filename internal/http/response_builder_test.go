package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/3").
		Body(MessageBody{ID: 3, Message: "ok"}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("Location"); got != "/api/transactions/3" {
		t.Errorf("Location = %q", got)
	}
	if got, want := w.Body.String(), `{"id":3,"message":"ok"}`; got != want {
		t.Errorf("Body = %q, want %q", got, want)
	}
}

func TestJSONResponseBuilder_MessageOmitsID(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Message("Transaction deleted successfully!").Write(w)

	if got, want := w.Body.String(), `{"message":"Transaction deleted successfully!"}`; got != want {
		t.Errorf("Body = %q, want %q", got, want)
	}
}

func TestJSONResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)

	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
}

func TestJSONResponseBuilder_UnencodableBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Body(make(chan int)).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *JSONResponseBuilder
		code    int
	}{
		{"bad request", BadRequestError("bad"), http.StatusBadRequest},
		{"unprocessable", UnprocessableEntityError("bad"), http.StatusUnprocessableEntity},
		{"internal", InternalServerError("bad"), http.StatusInternalServerError},
		{"not found", NotFoundError("bad"), http.StatusNotFound},
		{"rate limited", TooManyRequestsError("60"), http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.code {
				t.Errorf("Status code = %d, want %d", w.Code, tt.code)
			}
			if w.Header().Get("Content-Type") != "application/json" {
				t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
			}
		})
	}
}
