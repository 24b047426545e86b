package biz

import (
	"context"
	"errors"
	"strings"
	"testing"

	lotteryErrors "lottery-service/internal/errors"
)

func TestParseStoredConfig_RepairsFieldByField(t *testing.T) {
	raw := []byte(`{
		"enabled": "yes",
		"dailyDirectLimit": 500,
		"tiers": [
			{"id": "gold", "name": "Gold", "value": 50, "probability": 2, "color": "#ffd700"},
			{"id": "", "name": 42, "value": "abc", "probability": 7},
			{}
		]
	}`)
	cfg, err := ParseStoredConfig(raw)
	if err != nil {
		t.Fatalf("ParseStoredConfig failed: %v", err)
	}
	if !cfg.Enabled {
		t.Fatalf("ill-typed enabled should fall back to the default")
	}
	if cfg.DailyDirectLimit != 500 {
		t.Fatalf("unexpected limit: got=%v want=500", cfg.DailyDirectLimit)
	}
	if len(cfg.Tiers) != 3 {
		t.Fatalf("unexpected tier count: got=%d want=3", len(cfg.Tiers))
	}
	if cfg.Tiers[0].ID != "gold" || cfg.Tiers[0].Value != 50 {
		t.Fatalf("valid tier should be kept: got=%+v", cfg.Tiers[0])
	}
	second := cfg.Tiers[1]
	if second.ID != "tier_3" || second.Value != 3 || second.Probability != 7 || second.Color != "#3b82f6" {
		t.Fatalf("second tier should fall back per field to default index 1: got=%+v", second)
	}
	if cfg.Tiers[2].ID != "tier_5" {
		t.Fatalf("empty tier should fall back to default index 2: got=%+v", cfg.Tiers[2])
	}
}

func TestParseStoredConfig_MissingTiersUseDefaults(t *testing.T) {
	cfg, err := ParseStoredConfig([]byte(`{"enabled": false}`))
	if err != nil {
		t.Fatalf("ParseStoredConfig failed: %v", err)
	}
	if cfg.Enabled {
		t.Fatalf("enabled should be false")
	}
	if len(cfg.Tiers) != 6 || cfg.DailyDirectLimit != 2000 {
		t.Fatalf("expected default tiers and limit: got=%d tiers limit=%v", len(cfg.Tiers), cfg.DailyDirectLimit)
	}
}

func TestParseStoredConfig_PastDefaultsUseLastTier(t *testing.T) {
	raw := `{"tiers": [{},{},{},{},{},{},{}]}`
	cfg, err := ParseStoredConfig([]byte(raw))
	if err != nil {
		t.Fatalf("ParseStoredConfig failed: %v", err)
	}
	if got := cfg.Tiers[6].ID; got != "tier_20" {
		t.Fatalf("unexpected fallback tier: got=%s want=tier_20", got)
	}
}

func TestParseStoredConfig_Corrupt(t *testing.T) {
	for _, raw := range []string{`not json`, `[1,2]`, `null`} {
		if _, err := ParseStoredConfig([]byte(raw)); !errors.Is(err, ErrCorruptConfig) {
			t.Fatalf("expected ErrCorruptConfig for %q, got=%v", raw, err)
		}
	}
}

func TestConfigUpdate_Validate(t *testing.T) {
	limit := func(v float64) *float64 { return &v }
	enabled := true
	valid := defaultTiers()

	cases := []struct {
		name    string
		update  ConfigUpdate
		wantErr string
	}{
		{"empty", ConfigUpdate{}, "at least one"},
		{"enabled only", ConfigUpdate{Enabled: &enabled}, ""},
		{"negative limit", ConfigUpdate{DailyDirectLimit: limit(-1)}, "dailyDirectLimit"},
		{"limit too large", ConfigUpdate{DailyDirectLimit: limit(1_000_001)}, "dailyDirectLimit"},
		{"valid tiers", ConfigUpdate{Tiers: valid}, ""},
		{"no tiers", ConfigUpdate{Tiers: []PrizeTier{}}, "1 to 20"},
		{"duplicate id", ConfigUpdate{Tiers: []PrizeTier{valid[0], valid[0]}}, "duplicated"},
		{"bad color", ConfigUpdate{Tiers: []PrizeTier{{ID: "a", Name: "A", Value: 1, Probability: 1, Color: "red"}}}, "color"},
		{"zero value", ConfigUpdate{Tiers: []PrizeTier{{ID: "a", Name: "A", Value: 0, Probability: 1, Color: "#fff"}}}, "value"},
		{"probability too high", ConfigUpdate{Tiers: []PrizeTier{{ID: "a", Name: "A", Value: 1, Probability: 101, Color: "#fff"}}}, "probability"},
		{"zero weight", ConfigUpdate{Tiers: []PrizeTier{{ID: "a", Name: "A", Value: 1, Probability: 0, Color: "#ffffff80"}}}, "total tier probability"},
		{"long name", ConfigUpdate{Tiers: []PrizeTier{{ID: "a", Name: strings.Repeat("n", 65), Value: 1, Probability: 1, Color: "#fff"}}}, "name"},
	}
	for _, c := range cases {
		err := c.update.Validate()
		if c.wantErr == "" {
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", c.name, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), c.wantErr) {
			t.Fatalf("%s: got=%v want error containing %q", c.name, err, c.wantErr)
		}
	}
}

func TestConfigUseCase_GetConfigSeedsDefault(t *testing.T) {
	repo := &fakeConfigRepo{}
	uc := NewConfigUseCase(repo, testLogger())
	cfg, err := uc.GetConfig(context.Background())
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if !cfg.Enabled || len(cfg.Tiers) != 6 {
		t.Fatalf("expected default config, got=%+v", cfg)
	}
	if repo.saves != 1 || repo.cfg == nil {
		t.Fatalf("default should be written back: saves=%d", repo.saves)
	}
}

func TestConfigUseCase_GetConfigFailsClosed(t *testing.T) {
	repo := &fakeConfigRepo{getErr: errStoreDown}
	uc := NewConfigUseCase(repo, testLogger())
	if _, err := uc.GetConfig(context.Background()); !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error, got=%v", err)
	}
	if repo.saves != 0 {
		t.Fatalf("nothing should be written on read failure")
	}
}

func TestConfigUseCase_UpdateConfigMerges(t *testing.T) {
	repo := &fakeConfigRepo{cfg: DefaultLotteryConfig()}
	uc := NewConfigUseCase(repo, testLogger())
	disabled := false
	next, err := uc.UpdateConfig(context.Background(), &ConfigUpdate{Enabled: &disabled})
	if err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	if next.Enabled || next.DailyDirectLimit != 2000 || len(next.Tiers) != 6 {
		t.Fatalf("unexpected merged config: %+v", next)
	}
	if repo.cfg.Enabled {
		t.Fatalf("stored config should be disabled")
	}

	_, err = uc.UpdateConfig(context.Background(), &ConfigUpdate{})
	if !lotteryErrors.Is(err, lotteryErrors.ErrCodeInvalidArgument) {
		t.Fatalf("expected INVALID_ARGUMENT, got=%v", err)
	}
}
