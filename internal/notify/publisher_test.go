// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package notify

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/palette/internal/config"
)

func sampleEvent() SnapshotPublished {
	return SnapshotPublished{
		RunID:       "run-1",
		Version:     4,
		Path:        "/data/snapshots/features.json",
		Checksum:    "abc123",
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ItemCount:   3,
		UserCount:   2,
		PairCount:   6,
		SizeBytes:   1024,
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.NotifyConfig
		want    string
		wantErr bool
	}{
		{"nil config", nil, "noop", false},
		{"disabled", &config.NotifyConfig{Enabled: false, Driver: config.DriverNATS}, "noop", false},
		{"channel", &config.NotifyConfig{Enabled: true, Driver: config.DriverChannel, Topic: "t"}, "channel", false},
		{"unknown driver", &config.NotifyConfig{Enabled: true, Driver: "kafka"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub, err := New(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("New() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer pub.Close()

			switch pub.(type) {
			case Noop:
				if tt.want != "noop" {
					t.Errorf("New() = Noop, want %s", tt.want)
				}
			case *ChannelPublisher:
				if tt.want != "channel" {
					t.Errorf("New() = ChannelPublisher, want %s", tt.want)
				}
			default:
				t.Errorf("New() returned unexpected type %T", pub)
			}
		})
	}
}

func TestNoop(t *testing.T) {
	var n Noop
	if err := n.Publish(context.Background(), sampleEvent()); err != nil {
		t.Errorf("Noop.Publish() error = %v", err)
	}
	if err := n.Close(); err != nil {
		t.Errorf("Noop.Close() error = %v", err)
	}
}

func TestChannelPublisher_Delivers(t *testing.T) {
	pub := NewChannelPublisher("")
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgs, err := pub.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := pub.Publish(ctx, sampleEvent()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-msgs:
		msg.Ack()
		got, err := DecodeSnapshotPublished(msg.Payload)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.RunID != "run-1" || got.Version != 4 || got.Checksum != "abc123" {
			t.Errorf("event = %+v, want run-1 v4 abc123", got)
		}
		if got.EventID == "" || got.EventID != msg.UUID {
			t.Errorf("EventID = %q, message UUID = %q; want equal and non-empty", got.EventID, msg.UUID)
		}
		if got.PublishedAt.IsZero() {
			t.Error("PublishedAt not set")
		}
		if msg.Metadata.Get("run_id") != "run-1" || msg.Metadata.Get("version") != "4" {
			t.Errorf("metadata = %v", msg.Metadata)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}

func TestChannelPublisher_Closed(t *testing.T) {
	pub := NewChannelPublisher(DefaultTopic)
	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := pub.Publish(context.Background(), sampleEvent()); err == nil {
		t.Error("Publish() after Close() error = nil, want error")
	}
}

func startNATSServer(t *testing.T) *server.Server {
	t.Helper()

	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   server.RANDOM_PORT,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		t.Fatalf("create NATS server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		t.Fatal("NATS server not ready within timeout")
	}
	t.Cleanup(ns.Shutdown)
	return ns
}

func TestNATSPublisher_Delivers(t *testing.T) {
	ns := startNATSServer(t)
	topic := "test.snapshot.published"

	nc, err := natsgo.Connect(ns.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()

	sub, err := nc.SubscribeSync(topic)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	pub, err := NewNATSPublisher(&config.NotifyConfig{
		Enabled: true,
		Driver:  config.DriverNATS,
		URL:     ns.ClientURL(),
		Topic:   topic,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewNATSPublisher() error = %v", err)
	}
	defer pub.Close()

	if err := pub.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	msg, err := sub.NextMsg(5 * time.Second)
	if err != nil {
		t.Fatalf("NextMsg() error = %v", err)
	}
	got, err := DecodeSnapshotPublished(msg.Data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Path != "/data/snapshots/features.json" || got.PairCount != 6 {
		t.Errorf("event = %+v", got)
	}
	if msg.Header.Get("run_id") != "run-1" {
		t.Errorf("run_id header = %q, want run-1", msg.Header.Get("run_id"))
	}
}
