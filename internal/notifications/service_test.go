package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"courtreel/internal/notifications"
	"courtreel/internal/testsupport"
)

func TestNewServiceReturnsNoopWithoutTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	service := notifications.NewService(cfg)
	if err := service.TestNotification(context.Background()); err != nil {
		t.Fatalf("noop service should never fail: %v", err)
	}
}

func TestNtfyServiceSendsHeadersAndBody(t *testing.T) {
	type captured struct {
		title    string
		tags     string
		priority string
		body     string
	}
	var requests []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL
	service := notifications.NewService(cfg)

	if err := service.NotifyJobCompleted(context.Background(), "Saturday open play", false); err != nil {
		t.Fatalf("notify completed: %v", err)
	}
	if err := service.NotifyJobFailed(context.Background(), "Saturday open play", "upload failed"); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	if len(requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(requests))
	}
	completed := requests[0]
	if completed.title != "Courtreel - Job Complete" || completed.priority != "high" {
		t.Fatalf("unexpected completion notification: %+v", completed)
	}
	failed := requests[1]
	if failed.title != "Courtreel - Job Failed" || failed.tags != "courtreel,job,failed" {
		t.Fatalf("unexpected failure notification: %+v", failed)
	}
}

func TestNtfyServiceDegradedCompletion(t *testing.T) {
	var titles []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		titles = append(titles, r.Header.Get("Title"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL
	service := notifications.NewService(cfg)

	if err := service.NotifyJobCompleted(context.Background(), "evening match", true); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(titles) != 1 || titles[0] != "Courtreel - Job Complete (analytics only)" {
		t.Fatalf("unexpected titles: %v", titles)
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic not found", http.StatusNotFound)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL
	service := notifications.NewService(cfg)

	if err := service.NotifyJobQueued(context.Background(), "match"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
