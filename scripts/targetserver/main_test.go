package main

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTargetServerRoutes(t *testing.T) {
	srv := httptest.NewServer(newMux(rand.New(rand.NewSource(1))))
	defer srv.Close()

	tests := []struct {
		path string
		want int
	}{
		{"/", http.StatusOK},
		{"/delay?ms=5", http.StatusOK},
		{"/status/418", http.StatusTeapot},
		{"/status/abc", http.StatusBadRequest},
		{"/flaky?rate=1", http.StatusServiceUnavailable},
		{"/flaky?rate=0", http.StatusOK},
	}
	for _, tt := range tests {
		resp, err := http.Get(srv.URL + tt.path)
		if err != nil {
			t.Fatalf("GET %s: %v", tt.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, resp.StatusCode, tt.want)
		}
	}
}

func TestEchoReturnsSequence(t *testing.T) {
	srv := httptest.NewServer(newMux(rand.New(rand.NewSource(1))))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/echo", strings.NewReader("hello"))
	req.Header.Set("X-Volley-Seq", "7")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /echo: %v", err)
	}
	defer resp.Body.Close()

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["method"] != "POST" || got["sequence"] != "7" || got["body"] != "hello" {
		t.Errorf("unexpected echo %v", got)
	}
}
