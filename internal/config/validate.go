package config

import (
	"fmt"
	"strings"
)

// Validate checks high-impact runtime configuration constraints.
func (c Config) Validate() error {
	mode := strings.ToLower(strings.TrimSpace(c.TradingMode))
	if mode != "" && mode != "paper" && mode != "live" {
		return fmt.Errorf("trading_mode must be 'paper' or 'live', got %q", c.TradingMode)
	}

	if strings.TrimSpace(c.Product) == "" {
		return fmt.Errorf("product must not be empty")
	}

	if c.Trade.EwmAlpha <= 0 || c.Trade.EwmAlpha > 1 {
		return fmt.Errorf("trade.ewm_alpha must be within (0,1], got %f", c.Trade.EwmAlpha)
	}
	if c.Trade.SigmaTrigger <= 0 {
		return fmt.Errorf("trade.sigma_trigger must be > 0, got %f", c.Trade.SigmaTrigger)
	}
	if c.Trade.Size.Unit <= 0 {
		return fmt.Errorf("trade.size.unit must be > 0, got %f", c.Trade.Size.Unit)
	}
	if c.Trade.Size.Max > 0 && c.Trade.Size.Max < c.Trade.Size.Unit {
		return fmt.Errorf("trade.size.max (%f) must be >= trade.size.unit (%f)", c.Trade.Size.Max, c.Trade.Size.Unit)
	}
	if c.Trade.WarmupCount < 0 {
		return fmt.Errorf("trade.warmup_count must be >= 0, got %d", c.Trade.WarmupCount)
	}
	if c.Trade.Timeout <= 0 {
		return fmt.Errorf("trade.pending_timeout must be > 0, got %v", c.Trade.Timeout)
	}

	if len(c.Risk.SFDPins) == 0 {
		return fmt.Errorf("risk.sfd_pins must not be empty")
	}
	for _, pin := range c.Risk.SFDPins {
		if pin <= 0 {
			return fmt.Errorf("risk.sfd_pins entries must be > 0, got %f", pin)
		}
	}
	if c.Risk.SkipSFDDist < 0 {
		return fmt.Errorf("risk.skip_sfd_dist must be >= 0, got %f", c.Risk.SkipSFDDist)
	}
	if c.Risk.MinKeepRate < 0 {
		return fmt.Errorf("risk.min_keep_rate must be >= 0, got %f", c.Risk.MinKeepRate)
	}

	if c.Paper.InitialCollateral <= 0 {
		return fmt.Errorf("paper.initial_collateral must be > 0, got %f", c.Paper.InitialCollateral)
	}
	if c.Paper.SlippageBps < 0 {
		return fmt.Errorf("paper.slippage_bps must be >= 0, got %f", c.Paper.SlippageBps)
	}

	if mode == "live" && !c.DryRun {
		if c.APIKey == "" || c.APISecret == "" {
			return fmt.Errorf("live mode requires api_key and api_secret")
		}
	}

	return nil
}
