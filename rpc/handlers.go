package rpc

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"questchain/core"
	"questchain/crypto"
	"questchain/native/achievement"
	"questchain/native/common"
	"questchain/native/leaderboard"
	"questchain/native/timeattack"
	"questchain/storage/archive"
)

const defaultListLimit = 50

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func addressParam(r *http.Request, name string) ([20]byte, error) {
	addr, err := crypto.ParseAddress(chi.URLParam(r, name))
	if err != nil {
		return addr, fmt.Errorf("invalid %s: %w", name, err)
	}
	return addr, nil
}

func uintParam(r *http.Request, name string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, bits)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}

func periodParam(r *http.Request) (common.Period, error) {
	p, ok := common.ParsePeriod(strings.ToLower(chi.URLParam(r, "period")))
	if !ok {
		return 0, fmt.Errorf("invalid period %q", chi.URLParam(r, "period"))
	}
	return p, nil
}

func limitQuery(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	return n
}

// view runs fn read-only and writes its result, or the mapped error.
func (s *Server) view(w http.ResponseWriter, fn func(c *core.Contracts) (interface{}, error)) {
	var out interface{}
	err := s.runtime.View(func(c *core.Contracts) error {
		var err error
		out, err = fn(c)
		return err
	})
	if err != nil {
		writeViewError(w, err)
		return
	}
	if out == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type StatusResponse struct {
	Height        uint64 `json:"height"`
	LastTimestamp int64  `json:"lastTimestamp"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Height: s.runtime.Height(), LastTimestamp: s.runtime.LastTimestamp()})
}

type TokenResponse struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	TotalSupply string `json:"totalSupply"`
}

func (s *Server) handleToken(w http.ResponseWriter, _ *http.Request) {
	s.view(w, func(c *core.Contracts) (interface{}, error) {
		meta, err := c.RewardToken.Metadata()
		if err != nil {
			return nil, err
		}
		supply, err := c.RewardToken.TotalSupply()
		if err != nil {
			return nil, err
		}
		return TokenResponse{
			Address:     crypto.FormatAddress(c.RewardToken.Address()),
			Name:        meta.Name,
			Symbol:      meta.Symbol,
			Decimals:    meta.Decimals,
			TotalSupply: amountString(supply),
		}, nil
	})
}

type BalanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r, "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.view(w, func(c *core.Contracts) (interface{}, error) {
		bal, err := c.RewardToken.BalanceOf(addr)
		if err != nil {
			return nil, err
		}
		return BalanceResponse{Address: crypto.FormatAddress(addr), Balance: amountString(bal)}, nil
	})
}

type StakingConfigResponse struct {
	BaseAPY             uint64    `json:"baseApyBps"`
	TierBonuses         [3]uint64 `json:"tierBonusesBps"`
	TierThresholds      [3]string `json:"tierThresholds"`
	MinLockPeriod       uint64    `json:"minLockPeriod"`
	EarlyPenaltyBps     uint64    `json:"earlyPenaltyBps"`
	EmergencyPenaltyBps uint64    `json:"emergencyPenaltyBps"`
	Paused              bool      `json:"paused"`
	TotalStaked         string    `json:"totalStaked"`
	RewardPool          string    `json:"rewardPool"`
}

func (s *Server) handleStakingConfig(w http.ResponseWriter, _ *http.Request) {
	s.view(w, func(c *core.Contracts) (interface{}, error) {
		cfg, err := c.Staking.Config()
		if err != nil {
			return nil, err
		}
		total, err := c.Staking.TotalStaked()
		if err != nil {
			return nil, err
		}
		pool, err := c.Staking.RewardPool()
		if err != nil {
			return nil, err
		}
		return StakingConfigResponse{
			BaseAPY:             cfg.BaseAPY,
			TierBonuses:         [3]uint64{cfg.BronzeBonus, cfg.SilverBonus, cfg.GoldBonus},
			TierThresholds:      [3]string{amountString(cfg.BronzeThreshold), amountString(cfg.SilverThreshold), amountString(cfg.GoldThreshold)},
			MinLockPeriod:       cfg.MinLockPeriod,
			EarlyPenaltyBps:     cfg.EarlyUnstakePenaltyBps,
			EmergencyPenaltyBps: cfg.EmergencyPenaltyBps,
			Paused:              cfg.Paused,
			TotalStaked:         amountString(total),
			RewardPool:          amountString(pool),
		}, nil
	})
}

type StakerResponse struct {
	Address         string `json:"address"`
	Staked          string `json:"staked"`
	Tier            string `json:"tier"`
	APY             uint64 `json:"apyBps"`
	PendingRewards  string `json:"pendingRewards"`
	StakeTimestamp  uint64 `json:"stakeTimestamp"`
	TimeUntilUnlock uint64 `json:"timeUntilUnlock"`
}

func (s *Server) handleStaker(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r, "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.view(w, func(c *core.Contracts) (interface{}, error) {
		info, err := c.Staking.StakerInfo(addr)
		if err != nil || info == nil {
			return nil, err
		}
		pending, err := c.Staking.PendingRewards(addr)
		if err != nil {
			return nil, err
		}
		apy, err := c.Staking.CurrentAPY(addr)
		if err != nil {
			return nil, err
		}
		unlock, err := c.Staking.TimeUntilUnlock(addr)
		if err != nil {
			return nil, err
		}
		return StakerResponse{
			Address:         crypto.FormatAddress(addr),
			Staked:          amountString(info.StakedAmount),
			Tier:            info.Tier.String(),
			APY:             apy,
			PendingRewards:  amountString(pending),
			StakeTimestamp:  info.StakeTimestamp,
			TimeUntilUnlock: unlock,
		}, nil
	})
}

type EnergyResponse struct {
	Address        string `json:"address"`
	Current        uint64 `json:"current"`
	Max            uint64 `json:"max"`
	Boost          uint64 `json:"boostMultiplier"`
	BoostExpiresAt uint64 `json:"boostExpiresAt,omitempty"`
	GiftedToday    uint64 `json:"giftedToday"`
}

func (s *Server) handleEnergy(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r, "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.view(w, func(c *core.Contracts) (interface{}, error) {
		pe, err := c.Energy.PlayerEnergyView(addr)
		if err != nil || pe == nil {
			return nil, err
		}
		return EnergyResponse{
			Address:        crypto.FormatAddress(addr),
			Current:        pe.CurrentEnergy,
			Max:            pe.MaxEnergy,
			Boost:          pe.ActiveBoost.Multiplier(),
			BoostExpiresAt: pe.BoostExpiresAt,
			GiftedToday:    pe.GiftedToday,
		}, nil
	})
}

type ScoreResponse struct {
	Rank      int    `json:"rank,omitempty"`
	Player    string `json:"player"`
	Score     uint64 `json:"score"`
	Timestamp uint64 `json:"timestamp"`
	PeriodID  uint64 `json:"periodId"`
}

func scoreResponse(rank int, e leaderboard.Entry) ScoreResponse {
	return ScoreResponse{Rank: rank, Player: crypto.FormatAddress(e.Player), Score: e.Score, Timestamp: e.Timestamp, PeriodID: e.PeriodID}
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	period, err := periodParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := limitQuery(r)
	s.view(w, func(c *core.Contracts) (interface{}, error) {
		entries, err := c.Leaderboard.TopPlayers(period, uint32(limit))
		if err != nil {
			return nil, err
		}
		out := make([]ScoreResponse, 0, len(entries))
		for i, e := range entries {
			out = append(out, scoreResponse(i+1, e))
		}
		return out, nil
	})
}

func (s *Server) handlePlayerScore(w http.ResponseWriter, r *http.Request) {
	period, err := periodParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	addr, err := addressParam(r, "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.view(w, func(c *core.Contracts) (interface{}, error) {
		entry, err := c.Leaderboard.PlayerScore(addr, period)
		if err != nil || entry == nil {
			return nil, err
		}
		rank, err := c.Leaderboard.PlayerRank(addr, period)
		if err != nil {
			return nil, err
		}
		return scoreResponse(rank, *entry), nil
	})
}

type TimeRecordResponse struct {
	Rank         int    `json:"rank"`
	Player       string `json:"player"`
	CompletionMs uint64 `json:"completionMs"`
	Timestamp    uint64 `json:"timestamp"`
	ReplayHash   string `json:"replayHash"`
}

func timeRecordResponse(rank int, rec timeattack.Record) TimeRecordResponse {
	return TimeRecordResponse{
		Rank:         rank,
		Player:       crypto.FormatAddress(rec.Player),
		CompletionMs: rec.CompletionMs,
		Timestamp:    rec.Timestamp,
		ReplayHash:   "0x" + hex.EncodeToString(rec.ReplayHash[:]),
	}
}

func (s *Server) handleTimeAttack(w http.ResponseWriter, r *http.Request) {
	puzzleID, err := uintParam(r, "puzzle", 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	period, err := periodParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := limitQuery(r)
	s.view(w, func(c *core.Contracts) (interface{}, error) {
		board, err := c.TimeAttack.Leaderboard(uint32(puzzleID), period)
		if err != nil {
			return nil, err
		}
		if len(board) > limit {
			board = board[:limit]
		}
		out := make([]TimeRecordResponse, 0, len(board))
		for i, rec := range board {
			out = append(out, timeRecordResponse(i+1, rec))
		}
		return out, nil
	})
}

type BridgeConfigResponse struct {
	ChainID            uint32   `json:"chainId"`
	RequiredSignatures uint32   `json:"requiredSignatures"`
	Validators         []string `json:"validators"`
	ValidatorSetVer    uint32   `json:"validatorSetVersion"`
	BaseFeeBps         uint64   `json:"baseFeeBps"`
	MinFee             string   `json:"minFee"`
	MaxFee             string   `json:"maxFee"`
	FeeCollector       string   `json:"feeCollector"`
	Paused             bool     `json:"paused"`
}

func (s *Server) handleBridgeConfig(w http.ResponseWriter, _ *http.Request) {
	s.view(w, func(c *core.Contracts) (interface{}, error) {
		cfg, err := c.Bridge.Config()
		if err != nil {
			return nil, err
		}
		validators, err := c.Bridge.Validators()
		if err != nil {
			return nil, err
		}
		version, err := c.Bridge.ValidatorSetVersion()
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(validators))
		for _, v := range validators {
			names = append(names, crypto.FormatAddress(v))
		}
		return BridgeConfigResponse{
			ChainID:            cfg.ChainID,
			RequiredSignatures: cfg.RequiredSignatures,
			Validators:         names,
			ValidatorSetVer:    version,
			BaseFeeBps:         cfg.BaseFeeBps,
			MinFee:             amountString(cfg.MinFee),
			MaxFee:             amountString(cfg.MaxFee),
			FeeCollector:       crypto.FormatAddress(cfg.FeeCollector),
			Paused:             cfg.Paused,
		}, nil
	})
}

type BridgeMessageResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	SourceChain uint32 `json:"sourceChain"`
	DestChain   uint32 `json:"destChain"`
	Action      string `json:"action"`
	AssetType   string `json:"assetType"`
	Asset       string `json:"asset"`
	Amount      string `json:"amount"`
	Sender      string `json:"sender"`
	Recipient   string `json:"recipient"`
	Fee         string `json:"fee"`
	Timestamp   uint64 `json:"timestamp"`
	Nonce       uint64 `json:"nonce"`
	Signatures  int    `json:"signatures"`
}

func (s *Server) handleBridgeMessage(w http.ResponseWriter, r *http.Request) {
	raw, err := hex.DecodeString(strings.TrimPrefix(chi.URLParam(r, "id"), "0x"))
	if err != nil || len(raw) != 32 {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	var id [32]byte
	copy(id[:], raw)
	s.view(w, func(c *core.Contracts) (interface{}, error) {
		msg, err := c.Bridge.Message(id)
		if err != nil || msg == nil {
			return nil, err
		}
		status, _, err := c.Bridge.MessageStatus(id)
		if err != nil {
			return nil, err
		}
		sigs, err := c.Bridge.MessageSignatures(id)
		if err != nil {
			return nil, err
		}
		return BridgeMessageResponse{
			ID:          "0x" + hex.EncodeToString(msg.ID[:]),
			Status:      status.String(),
			SourceChain: msg.SourceChain,
			DestChain:   msg.DestChain,
			Action:      msg.Action.String(),
			AssetType:   msg.AssetType.String(),
			Asset:       crypto.FormatAddress(msg.Asset),
			Amount:      amountString(msg.Amount),
			Sender:      crypto.FormatAddress(msg.Sender),
			Recipient:   "0x" + hex.EncodeToString(msg.Recipient),
			Fee:         amountString(msg.Fee),
			Timestamp:   msg.Timestamp,
			Nonce:       msg.Nonce,
			Signatures:  len(sigs),
		}, nil
	})
}

type GuildResponse struct {
	Name      string   `json:"name"`
	Disbanded bool     `json:"disbanded"`
	Treasury  string   `json:"treasury"`
	Members   []string `json:"members"`
}

func (s *Server) handleGuild(w http.ResponseWriter, _ *http.Request) {
	s.view(w, func(c *core.Contracts) (interface{}, error) {
		info, err := c.Guild.Info()
		if err != nil {
			return nil, err
		}
		members, err := c.Guild.Members()
		if err != nil {
			return nil, err
		}
		out := GuildResponse{Name: info.Name, Disbanded: info.Disbanded, Treasury: amountString(info.Treasury), Members: make([]string, 0, len(members))}
		for _, m := range members {
			out.Members = append(out.Members, crypto.FormatAddress(m))
		}
		return out, nil
	})
}

type TournamentResponse struct {
	State        string   `json:"state"`
	EntryFee     string   `json:"entryFee"`
	PrizePool    string   `json:"prizePool"`
	Participants []string `json:"participants"`
}

func (s *Server) handleTournament(w http.ResponseWriter, _ *http.Request) {
	s.view(w, func(c *core.Contracts) (interface{}, error) {
		cfg, err := c.Tournament.Config()
		if err != nil {
			return nil, err
		}
		state, err := c.Tournament.State()
		if err != nil {
			return nil, err
		}
		pool, err := c.Tournament.PrizePool()
		if err != nil {
			return nil, err
		}
		players, err := c.Tournament.Participants()
		if err != nil {
			return nil, err
		}
		out := TournamentResponse{State: state.String(), EntryFee: amountString(cfg.EntryFee), PrizePool: amountString(pool), Participants: make([]string, 0, len(players))}
		for _, p := range players {
			out.Participants = append(out.Participants, crypto.FormatAddress(p))
		}
		return out, nil
	})
}

type AchievementResponse struct {
	TokenID   uint64 `json:"tokenId"`
	Owner     string `json:"owner"`
	PuzzleID  uint32 `json:"puzzleId"`
	Metadata  string `json:"metadata"`
	Timestamp uint64 `json:"timestamp"`
}

func achievementResponse(a *achievement.Achievement) AchievementResponse {
	return AchievementResponse{TokenID: a.TokenID, Owner: crypto.FormatAddress(a.Owner), PuzzleID: a.PuzzleID, Metadata: a.Metadata, Timestamp: a.Timestamp}
}

func (s *Server) handleAchievement(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id", 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.view(w, func(c *core.Contracts) (interface{}, error) {
		a, err := c.Achievement.Achievement(id)
		if err != nil || a == nil {
			return nil, err
		}
		return achievementResponse(a), nil
	})
}

func (s *Server) handleAchievementsOf(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r, "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.view(w, func(c *core.Contracts) (interface{}, error) {
		ids, err := c.Achievement.TokensOf(addr)
		if err != nil {
			return nil, err
		}
		out := make([]AchievementResponse, 0, len(ids))
		for _, id := range ids {
			a, err := c.Achievement.Achievement(id)
			if err != nil {
				return nil, err
			}
			if a != nil {
				out = append(out, achievementResponse(a))
			}
		}
		return out, nil
	})
}

type PuzzleProgressResponse struct {
	PuzzleID  uint32 `json:"puzzleId"`
	Player    string `json:"player"`
	Solved    bool   `json:"solved"`
	Claimable bool   `json:"claimable"`
}

func (s *Server) handlePuzzleProgress(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id", 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	addr, err := addressParam(r, "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.view(w, func(c *core.Contracts) (interface{}, error) {
		solved, err := c.Puzzle.IsCompleted(addr, uint32(id))
		if err != nil {
			return nil, err
		}
		claimable, err := c.Achievement.IsPuzzleCompleted(addr, uint32(id))
		if err != nil {
			return nil, err
		}
		return PuzzleProgressResponse{PuzzleID: uint32(id), Player: crypto.FormatAddress(addr), Solved: solved, Claimable: claimable}, nil
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	feed := s.runtime.Feed()
	if feed == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, feed.Recent(limitQuery(r), r.URL.Query().Get("type")))
}

// ScopeEventHistory grants access to the archived event history.
const ScopeEventHistory = "events:history"

// ArchivedEventResponse is one row of the event archive.
type ArchivedEventResponse struct {
	ID           uint              `json:"id"`
	InvocationID string            `json:"invocationId,omitempty"`
	Timestamp    int64             `json:"timestamp"`
	Type         string            `json:"type"`
	Attributes   map[string]string `json:"attributes"`
}

// EventHistoryResponse pages through the archive.
type EventHistoryResponse struct {
	Total  int64                   `json:"total"`
	Events []ArchivedEventResponse `json:"events"`
}

func int64Query(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}

func (s *Server) handleEventHistory(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusNotFound, "event archive disabled")
		return
	}
	from, err := int64Query(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := int64Query(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := int64Query(r, "offset")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter := archive.Filter{
		Type:          r.URL.Query().Get("type"),
		InvocationID:  r.URL.Query().Get("invocation"),
		FromTimestamp: from,
		ToTimestamp:   to,
		Limit:         limitQuery(r),
		Offset:        int(offset),
	}
	total, err := s.archive.Count(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rows, err := s.archive.Query(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := EventHistoryResponse{Total: total, Events: make([]ArchivedEventResponse, 0, len(rows))}
	for _, row := range rows {
		attrs, err := row.Decode()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Events = append(resp.Events, ArchivedEventResponse{
			ID:           row.ID,
			InvocationID: row.InvocationID,
			Timestamp:    row.Timestamp,
			Type:         row.Type,
			Attributes:   attrs,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
