package httputil

import (
	"errors"
	"io"
	"net/http"
	"testing"
)

func TestMockHTTPClient_QueuedResponses(t *testing.T) {
	mock := NewMockHTTPClient().
		AddResponse(http.StatusOK, `{"station": 2}`).
		AddErrorResponse(errors.New("connection refused"))

	req, _ := http.NewRequest(http.MethodGet, "http://dispatch/available", nil)

	resp, err := mock.Do(req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"station": 2}` {
		t.Errorf("Unexpected body %q", body)
	}

	if _, err := mock.Do(req); err == nil {
		t.Error("Expected queued transport error")
	}

	resp, err = mock.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Errorf("Expected default 200 response, got %v %v", resp, err)
	}
	if mock.RequestCount() != 3 {
		t.Errorf("Expected 3 recorded requests, got %d", mock.RequestCount())
	}
}

func TestNewStandardClient(t *testing.T) {
	if NewStandardClient(nil) != http.DefaultClient {
		t.Error("Expected default client for nil input")
	}
	c := &http.Client{}
	if NewStandardClient(c) != c {
		t.Error("Expected wrapped client to be returned")
	}
}
