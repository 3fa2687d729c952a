package staking

import (
	"math/big"

	"questchain/native/common"
)

var secondsPerYear = new(big.Int).SetUint64(common.SecondsPerYear)

// PendingReward computes (staked * apyBps / 10000) * elapsed / seconds-per-year.
// The annual figure is truncated before scaling by elapsed time.
func PendingReward(staked *big.Int, apyBps uint64, elapsed uint64) *big.Int {
	if staked == nil || staked.Sign() <= 0 || elapsed == 0 || apyBps == 0 {
		return big.NewInt(0)
	}
	annual := common.MulBps(staked, apyBps)
	reward := annual.Mul(annual, new(big.Int).SetUint64(elapsed))
	return reward.Quo(reward, secondsPerYear)
}

func pendingFor(info *StakerInfo, cfg *Config, now uint64) *big.Int {
	if info == nil || cfg == nil {
		return big.NewInt(0)
	}
	return PendingReward(info.StakedAmount, cfg.APYFor(info.Tier), common.Elapsed(now, info.LastRewardClaim))
}

// penaltyFor returns amount*bps/10000 and the remainder handed back.
func penaltyFor(amount *big.Int, bps uint64) (penalty, remainder *big.Int) {
	penalty = common.MulBps(amount, bps)
	remainder = new(big.Int).Sub(amount, penalty)
	return penalty, remainder
}
