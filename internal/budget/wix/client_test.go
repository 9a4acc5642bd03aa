package wix

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agroverse/marketmaker/internal/domain"
)

func newTestClient(url string) *Client {
	return New(ClientConfig{
		APIURL:            url,
		APIKey:            "wix-api-key",
		AccountID:         "acct-1",
		SiteID:            "site-1",
		DailyBudgetItemID: "item-1",
	})
}

func TestDailyBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/item-1" {
			t.Errorf("path = %s, want /item-1", r.URL.Path)
		}
		if r.URL.Query().Get("dataCollectionId") != "ExchangeRate" {
			t.Errorf("dataCollectionId = %s", r.URL.Query().Get("dataCollectionId"))
		}
		if r.Header.Get("Authorization") != "wix-api-key" {
			t.Errorf("Authorization = %s", r.Header.Get("Authorization"))
		}
		if r.Header.Get("wix-account-id") != "acct-1" || r.Header.Get("wix-site-id") != "site-1" {
			t.Error("tenant headers missing")
		}
		io.WriteString(w, `{"dataItem": {"data": {"exchangeRate": 125.5}}}`)
	}))
	defer srv.Close()

	budget, err := newTestClient(srv.URL).DailyBudget(t.Context())
	if err != nil {
		t.Fatalf("DailyBudget: %v", err)
	}
	if budget != 125.5 {
		t.Errorf("budget = %v, want 125.5", budget)
	}
}

func TestDailyBudget_ZeroIsValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"dataItem": {"data": {"exchangeRate": 0}}}`)
	}))
	defer srv.Close()

	budget, err := newTestClient(srv.URL).DailyBudget(t.Context())
	if err != nil {
		t.Fatalf("DailyBudget: %v", err)
	}
	if budget != 0 {
		t.Errorf("budget = %v, want 0", budget)
	}
}

func TestDailyBudget_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
		want    error
	}{
		{"http error", http.StatusForbidden, `denied`, domain.ErrNetwork},
		{"not json", http.StatusOK, `<html></html>`, domain.ErrMalformedResponse},
		{"field missing", http.StatusOK, `{"dataItem": {"data": {}}}`, domain.ErrMalformedResponse},
		{"negative value", http.StatusOK, `{"dataItem": {"data": {"exchangeRate": -10}}}`, domain.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.payload)
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).DailyBudget(t.Context())
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
