package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"courier-market-service/internal/domain"
)

func TestRedisPublisher(t *testing.T) {
	srv := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	pub := NewRedisPublisher(client, "marketplace.events")
	ctx := context.Background()

	event := domain.Event{
		ID:        "ev-1",
		Kind:      domain.EventBidPlaced,
		PackageID: "pkg-1",
		BidID:     "bid-1",
		ActorID:   "courier-1",
		At:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := pub.Publish(ctx, event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	entries, err := client.XRange(ctx, "marketplace.events", "-", "+").Result()
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 stream entry, got %d", len(entries))
	}

	values := entries[0].Values
	if values["kind"] != string(domain.EventBidPlaced) {
		t.Errorf("kind = %v, want %s", values["kind"], domain.EventBidPlaced)
	}
	if values["package_id"] != "pkg-1" {
		t.Errorf("package_id = %v, want pkg-1", values["package_id"])
	}
	if values["bid_id"] != "bid-1" {
		t.Errorf("bid_id = %v, want bid-1", values["bid_id"])
	}

	// zero-valued optional fields stay out of the entry
	if _, ok := values["deadline"]; ok {
		t.Error("deadline should be omitted when unset")
	}
}

func TestRedisPublisherStatusChange(t *testing.T) {
	srv := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	pub := NewRedisPublisher(client, "marketplace.events")

	event := domain.Event{
		ID:        "ev-2",
		Kind:      domain.EventPackageStatus,
		PackageID: "pkg-1",
		ActorID:   "sender-1",
		From:      string(domain.StatusOpenForBids),
		To:        string(domain.StatusBidSelected),
		At:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := pub.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	entries, err := client.XRange(context.Background(), "marketplace.events", "-", "+").Result()
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 stream entry, got %d", len(entries))
	}
	if entries[0].Values["from"] != string(domain.StatusOpenForBids) {
		t.Errorf("from = %v, want %s", entries[0].Values["from"], domain.StatusOpenForBids)
	}
	if entries[0].Values["to"] != string(domain.StatusBidSelected) {
		t.Errorf("to = %v, want %s", entries[0].Values["to"], domain.StatusBidSelected)
	}
}
