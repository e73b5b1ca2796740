package credit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func TestCheck_Approved(t *testing.T) {
	userID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req["userId"] != userID.String() {
			t.Errorf("Expected user ID %s, got %s", userID, req["userId"])
		}
		if req["amount"] != "6000" {
			t.Errorf("Expected amount '6000', got %s", req["amount"])
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"approved":    true,
			"creditLimit": "50000",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, zerolog.Nop())
	result, err := client.Check(context.Background(), userID, decimal.NewFromInt(6000))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !result.Approved {
		t.Error("Expected approval")
	}
	if !result.CreditLimit.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("Expected credit limit 50000, got %s", result.CreditLimit)
	}
}

func TestCheck_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"approved": false,
			"reason":   "insufficient credit history",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, zerolog.Nop())
	result, err := client.Check(context.Background(), uuid.New(), decimal.NewFromInt(6000))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Approved {
		t.Error("Expected rejection")
	}
}

func TestCheck_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, zerolog.Nop())
	if _, err := client.Check(context.Background(), uuid.New(), decimal.NewFromInt(6000)); err == nil {
		t.Fatal("Expected an error on service failure")
	}
}
