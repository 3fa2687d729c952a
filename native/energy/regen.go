package energy

import "questchain/native/common"

// regenerate brings p up to date at now. One multiplier, taken from the
// boost state at now, applies to the whole elapsed time, so an expired boost
// leaves the interval at the base rate. The result is capped at MaxEnergy
// and an expired boost is cleared.
func regenerate(p *PlayerEnergy, rate, now uint64) {
	if now <= p.LastUpdate {
		return
	}
	multiplier := uint64(1)
	if p.BoostActive(now) {
		multiplier = p.ActiveBoost.Multiplier()
	}
	current := p.CurrentEnergy
	if current > p.MaxEnergy {
		current = p.MaxEnergy
	}
	p.CurrentEnergy = common.SaturatingAccrue(current, p.MaxEnergy, now-p.LastUpdate, rate, multiplier)
	p.LastUpdate = now
	if !p.BoostActive(now) {
		p.ActiveBoost = BoostNone
		p.BoostExpiresAt = 0
	}
}

// rollGifts resets the daily gift counter once its window has elapsed.
func rollGifts(p *PlayerEnergy, cfg *Config, now uint64) {
	window := cfg.giftQuota().Roll(now, common.QuotaNow{Used: p.GiftedToday, WindowStart: p.LastGiftReset})
	p.GiftedToday = window.Used
	p.LastGiftReset = window.WindowStart
}
