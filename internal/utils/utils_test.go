package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	t.Run("sets content-type and status", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteJSON(w, http.StatusOK, map[string]string{"key": "value"})

		if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
			t.Errorf("Content-Type = %q; want application/json; charset=utf-8", got)
		}
		if w.Code != http.StatusOK {
			t.Errorf("Code = %d; want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("encodes body as JSON", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteJSON(w, http.StatusCreated, map[string]string{"foo": "bar"})

		var got map[string]string
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("body is not valid JSON: %v", err)
		}
		if got["foo"] != "bar" {
			t.Errorf("body[foo] = %q; want bar", got["foo"])
		}
	})
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusBadRequest, "invalid input")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Code = %d; want %d", w.Code, http.StatusBadRequest)
	}
	var got ErrorBody
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if got.Error != "Bad Request" {
		t.Errorf("error = %q; want Bad Request", got.Error)
	}
	if got.Message != "invalid input" {
		t.Errorf("message = %q; want invalid input", got.Message)
	}
}

func TestWriteRendered(t *testing.T) {
	t.Run("writes body and headers", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := WriteRendered(w, http.StatusOK, "text/plain", "", func(out io.Writer) error {
			_, err := io.WriteString(out, "hello")
			return err
		})
		if err != nil {
			t.Fatalf("WriteRendered() = %v", err)
		}
		if w.Body.String() != "hello" {
			t.Errorf("body = %q; want hello", w.Body.String())
		}
		if got := w.Header().Get("Content-Length"); got != "5" {
			t.Errorf("Content-Length = %q; want 5", got)
		}
		if got := w.Header().Get("Content-Disposition"); got != "" {
			t.Errorf("Content-Disposition = %q; want empty", got)
		}
		if w.Code != http.StatusOK {
			t.Errorf("status = %d; want 200", w.Code)
		}
	})

	t.Run("non-OK status keeps the rendered body", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := WriteRendered(w, http.StatusBadRequest, "text/html", "", func(out io.Writer) error {
			_, err := io.WriteString(out, "<p>bad range</p>")
			return err
		})
		if err != nil {
			t.Fatalf("WriteRendered() = %v", err)
		}
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d; want 400", w.Code)
		}
		if w.Body.String() != "<p>bad range</p>" {
			t.Errorf("body = %q", w.Body.String())
		}
		if got := w.Header().Get("Content-Type"); got != "text/html" {
			t.Errorf("Content-Type = %q", got)
		}
	})

	t.Run("attachment filename", func(t *testing.T) {
		w := httptest.NewRecorder()
		_ = WriteRendered(w, http.StatusOK, "application/octet-stream", "report.xlsx", func(io.Writer) error { return nil })
		if got := w.Header().Get("Content-Disposition"); got != "attachment; filename=report.xlsx" {
			t.Errorf("Content-Disposition = %q", got)
		}
	})

	t.Run("render failure writes nothing", func(t *testing.T) {
		w := httptest.NewRecorder()
		want := errors.New("boom")
		err := WriteRendered(w, http.StatusOK, "text/plain", "", func(out io.Writer) error {
			_, _ = io.WriteString(out, "partial")
			return want
		})
		if !errors.Is(err, want) {
			t.Fatalf("err = %v; want %v", err, want)
		}
		if w.Body.Len() != 0 {
			t.Errorf("body = %q; want empty", w.Body.String())
		}
		if w.Header().Get("Content-Type") != "" {
			t.Error("Content-Type set on failure")
		}
	})
}
