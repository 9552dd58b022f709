package natskv

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/rentledger/internal/port/cache/cachetest"
)

func TestEncodeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ledger:00000000-0000-0000-0000-000000000000:t1:2024-06-01", "ledger.00000000-0000-0000-0000-000000000000.t1.2024-06-01"},
		{"idem:w:POST:/api/v1/payments:abc", "idem.w.POST./api/v1/payments.abc"},
	}
	for _, tt := range tests {
		if got := encodeKey(tt.in); got != tt.want {
			t.Errorf("encodeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEncodeKeyFallsBackToBase64(t *testing.T) {
	for _, in := range []string{"idem:w:POST:/x:key with spaces", "a::b", ":leading", "ünïcode"} {
		got := encodeKey(in)
		if !strings.HasPrefix(got, "b64.") || !validKey(got) {
			t.Errorf("encodeKey(%q) = %q, want valid base64 key", in, got)
		}
	}
}

func TestCompliance(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}
	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()
	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	bucket := "RENTLEDGER_TEST_CACHE"
	c, err := Open(ctx, js, bucket, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = js.DeleteKeyValue(ctx, bucket) }()

	cachetest.RunCompliance(t, c)
}
