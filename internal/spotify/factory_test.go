package spotify

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"cadenza/internal/core"
	"cadenza/pkg/resolve"
)

func TestNewTrackFetcher_WithoutCredentials(t *testing.T) {
	fetcher, err := NewTrackFetcher(context.Background(), &core.SpotifyConfig{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewTrackFetcher() without credentials failed: %v", err)
	}
	if _, ok := fetcher.(*resolve.EmbedFetcher); !ok {
		t.Errorf("NewTrackFetcher() without credentials returned %T, want embed fetcher", fetcher)
	}
}

func TestNewTrackFetcher_PartialCredentials(t *testing.T) {
	fetcher, err := NewTrackFetcher(context.Background(), &core.SpotifyConfig{ClientID: "id-only"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewTrackFetcher() with partial credentials failed: %v", err)
	}
	if _, ok := fetcher.(*resolve.EmbedFetcher); !ok {
		t.Errorf("NewTrackFetcher() with partial credentials returned %T, want embed fetcher", fetcher)
	}
}

func TestNewTrackFetcher_CredentialsAuthenticateEagerly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	config := &core.SpotifyConfig{ClientID: "id", ClientSecret: "secret"}
	if _, err := NewTrackFetcher(ctx, config, zap.NewNop()); err == nil {
		t.Error("NewTrackFetcher() with credentials and a dead context should fail the token exchange")
	}
}
