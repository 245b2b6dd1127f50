package tools

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// mapCatalog resolves photos from a fixed title -> url map.
type mapCatalog struct {
	urls map[string]string
	errs map[string]error
}

func (c *mapCatalog) PhotoURL(_ context.Context, title, _ string) (string, error) {
	if err, ok := c.errs[title]; ok {
		return "", err
	}
	return c.urls[title], nil
}

func photoPayload(t *testing.T, phone string, titles ...string) json.RawMessage {
	t.Helper()
	items := make([]map[string]string, 0, len(titles))
	for _, title := range titles {
		items = append(items, map[string]string{"product_title": title, "supplier_name": "Мясной Двор"})
	}
	raw, err := json.Marshal(map[string]any{"products": items, "phone_number": phone})
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	return raw
}

func TestShowProductPhotosPartitionsDeliveredAndMissing(t *testing.T) {
	var dispatched []sendImageRequest
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req sendImageRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad gateway payload: %v", err)
		}
		dispatched = append(dispatched, req)
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	catalog := &mapCatalog{
		urls: map[string]string{"Говядина": "https://cdn.example/beef.jpg"},
		errs: map[string]error{"Баранина": errors.New("catalog down")},
	}
	tool := NewShowProductPhotos(catalog, gateway.URL, 5*time.Second)

	result, err := tool.Execute(context.Background(),
		photoPayload(t, "+79990000001", "Говядина", "Свинина", "Баранина"))
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !result.Success() {
		t.Fatalf("partition result must be success, got error %q", result.Error)
	}

	want := "Фотографии отправлены: Говядина. Без фото: Свинина, Баранина."
	if result.Output != want {
		t.Errorf("got %q, want %q", result.Output, want)
	}

	if len(dispatched) != 1 {
		t.Fatalf("expected 1 dispatch, got %d", len(dispatched))
	}
	if dispatched[0].Recipient != "+79990000001" {
		t.Errorf("unexpected recipient %q", dispatched[0].Recipient)
	}
	if dispatched[0].ImageURL != "https://cdn.example/beef.jpg" {
		t.Errorf("unexpected image url %q", dispatched[0].ImageURL)
	}
	if dispatched[0].Caption != "Говядина" {
		t.Errorf("unexpected caption %q", dispatched[0].Caption)
	}
}

func TestShowProductPhotosGatewayFailureCountsAsMissing(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer gateway.Close()

	catalog := &mapCatalog{urls: map[string]string{"Говядина": "https://cdn.example/beef.jpg"}}
	tool := NewShowProductPhotos(catalog, gateway.URL, 5*time.Second)

	result, err := tool.Execute(context.Background(), photoPayload(t, "+79990000001", "Говядина"))
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if result.Output != "Без фото: Говядина." {
		t.Errorf("got %q", result.Output)
	}
}

func TestShowProductPhotosEmptyList(t *testing.T) {
	tool := NewShowProductPhotos(&mapCatalog{}, "http://unused", time.Second)

	result, err := tool.Execute(context.Background(), photoPayload(t, "+79990000001"))
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if result.Output != "Нет товаров для отправки фотографий." {
		t.Errorf("got %q", result.Output)
	}
}

func TestShowProductPhotosValidate(t *testing.T) {
	tool := NewShowProductPhotos(&mapCatalog{}, "http://unused", time.Second)

	if err := tool.Validate(json.RawMessage(`{"products":[],"phone_number":""}`)); err == nil {
		t.Error("expected error for empty phone number")
	}
	if err := tool.Validate(json.RawMessage(`not json`)); err == nil {
		t.Error("expected error for malformed arguments")
	}
	if err := tool.Validate(photoPayload(t, "+79990000001", "Говядина")); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
