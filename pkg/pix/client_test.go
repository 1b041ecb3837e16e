package pix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestCreateQRCode(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pixQrCode/create" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"data":{"id":"ch_1","status":"PENDING","brCode":"00020126","brCodeBase64":"aW1n","expiresAt":"2026-08-30T12:00:00Z"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	qr, err := c.CreateQRCode(context.Background(), 1000, "1 credit(s) for Flash Resume", 3600)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if qr.ID != "ch_1" || qr.BRCode != "00020126" || qr.Status != "PENDING" {
		t.Fatalf("unexpected qr: %+v", qr)
	}
	if qr.ExpiresAt == nil {
		t.Fatal("expiry not parsed")
	}
	if gotBody["amount"].(float64) != 1000 {
		t.Fatalf("amount = %v", gotBody["amount"])
	}
	if gotBody["expiresIn"].(float64) != 3600 {
		t.Fatalf("expiresIn = %v", gotBody["expiresIn"])
	}
}

func TestCreateQRCodeTruncatesDescription(t *testing.T) {
	var gotDesc string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotDesc, _ = body["description"].(string)
		fmt.Fprint(w, `{"data":{"id":"ch_1","status":"PENDING","brCode":"x","brCodeBase64":"y"}}`)
	}))
	defer srv.Close()

	long := strings.Repeat("credits for Flash Resume ", 4)
	c := NewClient(srv.URL, "key")
	if _, err := c.CreateQRCode(context.Background(), 1000, long, 3600); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(gotDesc) != 37 {
		t.Fatalf("description length = %d, want 37", len(gotDesc))
	}
}

func TestCreateQRCodeRetriesThenFails(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	_, err := c.CreateQRCode(context.Background(), 1000, "desc", 3600)
	if err == nil {
		t.Fatal("expected error")
	}
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Op != "create" {
		t.Fatalf("error = %v, want ProviderError{Op: create}", err)
	}
	if hits != 3 {
		t.Fatalf("attempts = %d, want 3", hits)
	}
}

func TestCreateQRCodeRecoversOnRetry(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"data":{"id":"ch_2","status":"PENDING","brCode":"x","brCodeBase64":"y"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	qr, err := c.CreateQRCode(context.Background(), 500, "desc", 3600)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if qr.ID != "ch_2" {
		t.Fatalf("id = %q", qr.ID)
	}
	if hits != 2 {
		t.Fatalf("attempts = %d, want 2", hits)
	}
}

func TestCheckStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "ch_1" {
			t.Errorf("id param = %q", r.URL.Query().Get("id"))
		}
		fmt.Fprint(w, `{"data":{"status":"PAID"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	status, err := c.CheckStatus(context.Background(), "ch_1")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if status != "PAID" {
		t.Fatalf("status = %q, want PAID", status)
	}
}

func TestCheckStatusProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	if _, err := c.CheckStatus(context.Background(), "ch_1"); err == nil {
		t.Fatal("expected error")
	}
}
