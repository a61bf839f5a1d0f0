package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSend(t *testing.T) {
	var gotPath, gotClientToken string
	var gotBody sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotClientToken = r.Header.Get("Client-Token")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{
		BaseURL:     srv.URL,
		InstanceID:  "inst1",
		Token:       "tok1",
		ClientToken: "client-secret",
	})
	if err := c.Send(context.Background(), "5511999990001", "olá"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotPath != "/inst1/token/tok1/send-text" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotClientToken != "client-secret" {
		t.Fatalf("Client-Token = %q", gotClientToken)
	}
	if gotBody.Phone != "5511999990001" || gotBody.Message != "olá" {
		t.Fatalf("body = %+v", gotBody)
	}
}

func TestSendNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, InstanceID: "i", Token: "t"})
	if err := c.Send(context.Background(), "5511999990001", "olá"); err == nil {
		t.Fatalf("Send should fail on 401")
	}
}

func TestSendContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, InstanceID: "i", Token: "t"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Send(ctx, "5511999990001", "olá"); err == nil {
		t.Fatalf("Send should fail on cancelled context")
	}
}
