package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"outfitlens/internal/domain"
	"outfitlens/internal/wizard"
)

func TestLoginStoresSession(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/login" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body["email"] != "ana@example.com" {
			t.Fatalf("email = %q, want ana@example.com", body["email"])
		}
		_ = json.NewEncoder(w).Encode(domain.AuthTokens{AccessToken: "acc", RefreshToken: "ref", TokenType: "bearer"})
	}))
	defer ts.Close()

	c := New(Options{BaseURL: ts.URL + "/"})
	if _, err := c.Login(context.Background(), "ana@example.com", "secret-pass"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if got := c.Session().AccessToken; got != "acc" {
		t.Fatalf("Session().AccessToken = %q, want %q", got, "acc")
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Locale"); got != "id" {
			t.Fatalf("X-Locale = %q, want id", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"not_found","message":"Tidak ditemukan"}`)
	}))
	defer ts.Close()

	c := New(Options{BaseURL: ts.URL, Locale: "id"})
	c.SetSession(domain.AuthTokens{AccessToken: "acc"})
	_, err := c.GetJobStatus(context.Background(), "gen_missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("GetJobStatus() error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Code != "not_found" || apiErr.Message != "Tidak ditemukan" {
		t.Fatalf("APIError = %+v", apiErr)
	}
}

func TestUploadImageMultipart(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/images/upload/clothing-photo" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer acc" {
			t.Fatalf("Authorization = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile() error = %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "shirt.png" || string(data) != "pixels" {
			t.Fatalf("upload = %s %q", header.Filename, data)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(domain.Image{ID: "img_1", Type: domain.ImageTypeGarment})
	}))
	defer ts.Close()

	c := New(Options{BaseURL: ts.URL})
	c.SetSession(domain.AuthTokens{AccessToken: "acc"})
	img, err := c.UploadImage(context.Background(), wizard.File{Name: "/tmp/shirt.png", Data: []byte("pixels")}, domain.ImageTypeGarment)
	if err != nil {
		t.Fatalf("UploadImage() error = %v", err)
	}
	if img.ID != "img_1" {
		t.Fatalf("UploadImage().ID = %q, want img_1", img.ID)
	}

	if _, err := c.UploadImage(context.Background(), wizard.File{Name: "r.png"}, domain.ImageTypeResult); err == nil {
		t.Fatalf("UploadImage(generated_result) error = nil, want error")
	}
}

func TestCallsWithoutSession(t *testing.T) {
	c := New(Options{BaseURL: "http://127.0.0.1:1"})
	if _, err := c.CreateGenerationJob(context.Background(), "a", "b"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("CreateGenerationJob() error = %v, want ErrNotAuthenticated", err)
	}
	if _, err := c.Refresh(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("Refresh() error = %v, want ErrNotAuthenticated", err)
	}
}

func TestUnauthorizedDropsSession(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"unauthorized","message":"Unauthorized"}`)
	}))
	defer ts.Close()

	c := New(Options{BaseURL: ts.URL})
	c.SetSession(domain.AuthTokens{AccessToken: "expired", RefreshToken: "r"})

	_, err := c.GetJobStatus(context.Background(), "gen_abc")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("GetJobStatus() error = %v, want 401", err)
	}
	if got := c.Session(); got.AccessToken != "" || got.RefreshToken != "" {
		t.Fatalf("Session() = %+v after 401, want cleared", got)
	}
	if _, err := c.GetJobStatus(context.Background(), "gen_abc"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("second GetJobStatus() error = %v, want ErrNotAuthenticated", err)
	}
}
