package grpc

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func checkStatus(t *testing.T, h *Health, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := h.server.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("check %q: %v", service, err)
	}
	return resp.GetStatus()
}

func TestHealthStartsNotServing(t *testing.T) {
	h := NewHealth(nil, nil)
	if got := checkStatus(t, h, ServiceName); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING before first refresh, got %v", got)
	}
}

func TestHealthRefreshFollowsCheck(t *testing.T) {
	var failing atomic.Bool
	h := NewHealth(func(context.Context) error {
		if failing.Load() {
			return errors.New("store down")
		}
		return nil
	}, nil)

	if got := h.Refresh(context.Background()); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %v", got)
	}
	for _, service := range []string{"", ServiceName} {
		if got := checkStatus(t, h, service); got != healthpb.HealthCheckResponse_SERVING {
			t.Fatalf("service %q expected SERVING, got %v", service, got)
		}
	}

	failing.Store(true)
	h.Refresh(context.Background())
	if got := checkStatus(t, h, ServiceName); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING after failed check, got %v", got)
	}
}

func TestHealthWatchShutsDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHealth(func(context.Context) error { return nil }, nil)
	done := h.Watch(ctx, time.Hour)
	if got := checkStatus(t, h, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING while watching, got %v", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
	if got := checkStatus(t, h, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING after shutdown, got %v", got)
	}
}
