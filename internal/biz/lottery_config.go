package biz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	lotteryErrors "lottery-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
)

// PrizeTier 奖品档位
type PrizeTier struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Value       float64 `json:"value"`       // 美元
	Probability float64 `json:"probability"` // 相对权重
	Color       string  `json:"color"`
}

// LotteryConfig 抽奖配置
type LotteryConfig struct {
	Enabled          bool        `json:"enabled"`
	DailyDirectLimit float64     `json:"dailyDirectLimit"`
	Tiers            []PrizeTier `json:"tiers"`
}

// ConfigUpdate is a partial update. Nil fields are left unchanged.
type ConfigUpdate struct {
	Enabled          *bool       `json:"enabled,omitempty"`
	DailyDirectLimit *float64    `json:"dailyDirectLimit,omitempty"`
	Tiers            []PrizeTier `json:"tiers,omitempty"`
}

const (
	maxDailyDirectLimit = 1_000_000
	maxTiers            = 20
	maxTierIDLen        = 64
	maxTierNameLen      = 64
	maxTierValue        = 100_000
	maxTierProbability  = 100
)

var (
	// ErrCorruptConfig is returned when the stored config is not a JSON object.
	ErrCorruptConfig = errors.New("stored lottery config is corrupt")

	colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
)

func defaultTiers() []PrizeTier {
	return []PrizeTier{
		{ID: "tier_1", Name: "$1 bonus", Value: 1, Probability: 40, Color: "#22c55e"},
		{ID: "tier_3", Name: "$3 bonus", Value: 3, Probability: 30, Color: "#3b82f6"},
		{ID: "tier_5", Name: "$5 bonus", Value: 5, Probability: 18, Color: "#f59e0b"},
		{ID: "tier_10", Name: "$10 bonus", Value: 10, Probability: 8, Color: "#ec4899"},
		{ID: "tier_15", Name: "$15 bonus", Value: 15, Probability: 3, Color: "#8b5cf6"},
		{ID: "tier_20", Name: "$20 bonus", Value: 20, Probability: 1, Color: "#ef4444"},
	}
}

// DefaultLotteryConfig returns a fresh copy of the built-in config.
func DefaultLotteryConfig() *LotteryConfig {
	return &LotteryConfig{
		Enabled:          true,
		DailyDirectLimit: 2000,
		Tiers:            defaultTiers(),
	}
}

// Clone deep-copies the config.
func (c *LotteryConfig) Clone() *LotteryConfig {
	out := *c
	out.Tiers = append([]PrizeTier(nil), c.Tiers...)
	return &out
}

// ParseStoredConfig decodes a stored config and repairs it field by field.
// Missing or ill-typed fields fall back to the default config; a tier falls back to the
// default tier at the same index, or the last default tier past the end.
func ParseStoredConfig(raw []byte) (*LotteryConfig, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return nil, ErrCorruptConfig
	}
	fallback := DefaultLotteryConfig()
	out := &LotteryConfig{
		Enabled:          fallback.Enabled,
		DailyDirectLimit: fallback.DailyDirectLimit,
		Tiers:            fallback.Tiers,
	}
	if v, ok := doc["enabled"].(bool); ok {
		out.Enabled = v
	}
	if v, ok := doc["dailyDirectLimit"].(float64); ok && v >= 0 {
		out.DailyDirectLimit = v
	}
	rawTiers, ok := doc["tiers"].([]interface{})
	if !ok || len(rawTiers) == 0 {
		return out, nil
	}
	tiers := make([]PrizeTier, 0, len(rawTiers))
	for i, item := range rawTiers {
		base := fallback.Tiers[len(fallback.Tiers)-1]
		if i < len(fallback.Tiers) {
			base = fallback.Tiers[i]
		}
		fields, _ := item.(map[string]interface{})
		tier := base
		if s, ok := fields["id"].(string); ok && strings.TrimSpace(s) != "" {
			tier.ID = s
		}
		if s, ok := fields["name"].(string); ok && strings.TrimSpace(s) != "" {
			tier.Name = s
		}
		if v, ok := fields["value"].(float64); ok && v > 0 {
			tier.Value = v
		}
		if v, ok := fields["probability"].(float64); ok && v >= 0 {
			tier.Probability = v
		}
		if s, ok := fields["color"].(string); ok && strings.TrimSpace(s) != "" {
			tier.Color = s
		}
		tiers = append(tiers, tier)
	}
	out.Tiers = tiers
	return out, nil
}

// Validate checks an admin update before it is merged.
func (u *ConfigUpdate) Validate() error {
	if u.Enabled == nil && u.DailyDirectLimit == nil && u.Tiers == nil {
		return errors.New("at least one of enabled, dailyDirectLimit, tiers is required")
	}
	if u.DailyDirectLimit != nil {
		if *u.DailyDirectLimit < 0 || *u.DailyDirectLimit > maxDailyDirectLimit {
			return fmt.Errorf("dailyDirectLimit must be between 0 and %d", maxDailyDirectLimit)
		}
	}
	if u.Tiers == nil {
		return nil
	}
	return ValidateTiers(u.Tiers)
}

// ValidateTiers checks tier count, field ranges, id uniqueness and total weight.
func ValidateTiers(tiers []PrizeTier) error {
	if len(tiers) == 0 || len(tiers) > maxTiers {
		return fmt.Errorf("tiers must contain 1 to %d entries", maxTiers)
	}
	seen := make(map[string]struct{}, len(tiers))
	total := 0.0
	for i, t := range tiers {
		id := strings.TrimSpace(t.ID)
		if id == "" || utf8.RuneCountInString(id) > maxTierIDLen {
			return fmt.Errorf("tiers[%d].id must be 1 to %d characters", i, maxTierIDLen)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("tiers[%d].id %q is duplicated", i, id)
		}
		seen[id] = struct{}{}
		name := strings.TrimSpace(t.Name)
		if name == "" || utf8.RuneCountInString(name) > maxTierNameLen {
			return fmt.Errorf("tiers[%d].name must be 1 to %d characters", i, maxTierNameLen)
		}
		if !(t.Value > 0 && t.Value <= maxTierValue) {
			return fmt.Errorf("tiers[%d].value must be in (0, %d]", i, maxTierValue)
		}
		if !(t.Probability >= 0 && t.Probability <= maxTierProbability) {
			return fmt.Errorf("tiers[%d].probability must be in [0, %d]", i, maxTierProbability)
		}
		if !colorPattern.MatchString(strings.TrimSpace(t.Color)) {
			return fmt.Errorf("tiers[%d].color must be a hex color", i)
		}
		total += t.Probability
	}
	if total <= 0 {
		return errors.New("total tier probability must be greater than 0")
	}
	return nil
}

// Apply merges the update into a copy of c.
func (u *ConfigUpdate) Apply(c *LotteryConfig) *LotteryConfig {
	out := c.Clone()
	if u.Enabled != nil {
		out.Enabled = *u.Enabled
	}
	if u.DailyDirectLimit != nil {
		out.DailyDirectLimit = *u.DailyDirectLimit
	}
	if u.Tiers != nil {
		tiers := make([]PrizeTier, len(u.Tiers))
		for i, t := range u.Tiers {
			tiers[i] = PrizeTier{
				ID:          strings.TrimSpace(t.ID),
				Name:        strings.TrimSpace(t.Name),
				Value:       t.Value,
				Probability: t.Probability,
				Color:       strings.TrimSpace(t.Color),
			}
		}
		out.Tiers = tiers
	}
	return out
}

// ConfigRepo 抽奖配置存储接口
type ConfigRepo interface {
	// Get returns found=false when nothing is stored yet.
	Get(ctx context.Context) (cfg *LotteryConfig, found bool, err error)
	Save(ctx context.Context, cfg *LotteryConfig) error
}

// ConfigUseCase 抽奖配置业务逻辑
type ConfigUseCase struct {
	repo ConfigRepo
	log  *log.Helper
}

// NewConfigUseCase 创建抽奖配置 UseCase
func NewConfigUseCase(repo ConfigRepo, logger log.Logger) *ConfigUseCase {
	return &ConfigUseCase{
		repo: repo,
		log:  log.NewHelper(logger),
	}
}

// GetConfig returns the stored config, writing the default on first access.
// Store errors are returned, never replaced by the default.
func (uc *ConfigUseCase) GetConfig(ctx context.Context) (*LotteryConfig, error) {
	cfg, found, err := uc.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get lottery config: %w", err)
	}
	if found {
		return cfg, nil
	}
	cfg = DefaultLotteryConfig()
	if err := uc.repo.Save(ctx, cfg); err != nil {
		uc.log.Warnf("seed default lottery config failed: %v", err)
	}
	return cfg, nil
}

// UpdateConfig validates and merges a partial update, last write wins.
func (uc *ConfigUseCase) UpdateConfig(ctx context.Context, update *ConfigUpdate) (*LotteryConfig, error) {
	if update == nil {
		return nil, lotteryErrors.Newf(lotteryErrors.ErrCodeInvalidArgument, "empty update")
	}
	if err := update.Validate(); err != nil {
		return nil, lotteryErrors.Newf(lotteryErrors.ErrCodeInvalidArgument, err.Error())
	}
	current, err := uc.GetConfig(ctx)
	if err != nil {
		return nil, lotteryErrors.Wrap(lotteryErrors.ErrCodeStoreUnavailable, err)
	}
	next := update.Apply(current)
	if err := uc.repo.Save(ctx, next); err != nil {
		return nil, lotteryErrors.Wrap(lotteryErrors.ErrCodeStoreUnavailable, err)
	}
	uc.log.Infof("lottery config updated: enabled=%v dailyDirectLimit=%v tiers=%d",
		next.Enabled, next.DailyDirectLimit, len(next.Tiers))
	return next, nil
}
