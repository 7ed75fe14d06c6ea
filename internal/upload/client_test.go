package upload

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Imrannnnn/Skillconnect-sub001/internal/chat"
)

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer func() { _ = file.Close() }()
		if header.Filename != "receipt.pdf" {
			t.Errorf("filename = %q", header.Filename)
		}
		contents, _ := io.ReadAll(file)
		if string(contents) != "pdf bytes" {
			t.Errorf("contents = %q", contents)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example.com/u/receipt.pdf"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	att, err := c.Upload(context.Background(), "receipt.pdf", strings.NewReader("pdf bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if att.URL != "https://cdn.example.com/u/receipt.pdf" {
		t.Errorf("URL = %q", att.URL)
	}
	if att.Kind != chat.AttachmentFile {
		t.Errorf("Kind = %q, want file", att.Kind)
	}
	if att.Name != "receipt.pdf" {
		t.Errorf("Name = %q", att.Name)
	}
}

func TestUploadErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too large", http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	if _, err := c.Upload(context.Background(), "big.bin", strings.NewReader("x")); err == nil {
		t.Error("expected an error for non-2xx response")
	}
}

func TestKindForName(t *testing.T) {
	tests := []struct {
		name string
		want chat.AttachmentKind
	}{
		{"photo.jpg", chat.AttachmentImage},
		{"scan.png", chat.AttachmentImage},
		{"contract.pdf", chat.AttachmentFile},
		{"notes.txt", chat.AttachmentFile},
		{"noext", chat.AttachmentFile},
	}
	for _, tt := range tests {
		if got := KindForName(tt.name); got != tt.want {
			t.Errorf("KindForName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
