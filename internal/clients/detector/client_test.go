package detector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bobmcallan/assessor/internal/common"
	"github.com/bobmcallan/assessor/internal/interfaces"
)

func TestClient_Detect_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/detect" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization header = %q", got)
		}
		var req interfaces.DetectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Text != "hello world" {
			t.Errorf("request text = %q", req.Text)
		}
		resp := interfaces.DetectionResponse{
			AIGenerated:    true,
			HumanGenerated: false,
			Results: []interfaces.DetectionResult{
				{Paragraph: "hello world", Label: "ai", Probability: 0.91},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", WithRateLimit(100))

	resp, err := client.Detect(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if !resp.AIGenerated {
		t.Error("expected AIGenerated true")
	}
	if len(resp.Results) != 1 || resp.Results[0].Label != "ai" {
		t.Errorf("unexpected results: %+v", resp.Results)
	}
}

func TestClient_Detect_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("service unavailable"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", WithRateLimit(100))

	_, err := client.Detect(context.Background(), "hello world")
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", apiErr.StatusCode)
	}
}

func TestClient_Detect_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", WithRateLimit(100))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Detect(ctx, "hello world")
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestNewClientFromConfig(t *testing.T) {
	cfg := common.DetectorConfig{
		BaseURL:   "https://detector.example.com",
		APIKey:    "key-123",
		RateLimit: 10,
	}
	client := NewClientFromConfig(cfg)
	if client.baseURL != "https://detector.example.com" {
		t.Errorf("baseURL = %q", client.baseURL)
	}
	if client.apiKey != "key-123" {
		t.Errorf("apiKey = %q", client.apiKey)
	}
}
