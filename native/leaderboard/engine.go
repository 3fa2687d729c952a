package leaderboard

import (
	"fmt"
	"time"

	"questchain/core/events"
	"questchain/core/types"
	"questchain/native/common"
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

var (
	configKey       = []byte("leaderboard/config")
	totalPlayersKey = []byte("leaderboard/total-players")
)

func scoreKey(player [20]byte, period common.Period, bucket uint64) []byte {
	return []byte(fmt.Sprintf("leaderboard/score/%d/%d/%s", period, bucket, common.AddrHex(player)))
}

func topKey(period common.Period, bucket uint64) []byte {
	return []byte(fmt.Sprintf("leaderboard/top/%d/%d", period, bucket))
}

func allTimeKey(player [20]byte) []byte {
	return []byte("leaderboard/alltime/" + common.AddrHex(player))
}

func highScoreKey(period common.Period) []byte {
	return []byte(fmt.Sprintf("leaderboard/high/%d", period))
}

func verifierKey(addr [20]byte) []byte {
	return []byte("leaderboard/verifier/" + common.AddrHex(addr))
}

// Engine maintains cumulative per-period scores and bounded top lists.
type Engine struct {
	state   engineState
	emitter events.Emitter
	auth    common.Authorizer
	nowFn   func() int64
}

// NewEngine creates a leaderboard engine with default collaborators.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetAuthorizer configures the invocation authorization oracle.
func (e *Engine) SetAuthorizer(auth common.Authorizer) { e.auth = auth }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

func (e *Engine) now() uint64 {
	ts := time.Now().Unix()
	if e != nil && e.nowFn != nil {
		ts = e.nowFn()
	}
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// Initialize creates the config. A zero maxTopEntries selects the default.
func (e *Engine) Initialize(admin [20]byte, maxTopEntries uint32) error {
	if err := common.RequireAuth(e.auth, admin); err != nil {
		return ErrUnauthorized
	}
	ok, err := e.state.KVGet(configKey, nil)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}
	if maxTopEntries == 0 {
		maxTopEntries = DefaultMaxTopEntries
	}
	cfg := &Config{
		Admin:         admin,
		MaxTopEntries: maxTopEntries,
		DailyPeriod:   common.SecondsPerDay,
		WeeklyPeriod:  common.SecondsPerWeek,
	}
	if err := e.state.KVPut(configKey, cfg); err != nil {
		return err
	}
	return e.state.KVPut(totalPlayersKey, uint64(0))
}

// Config returns the stored config.
func (e *Engine) Config() (*Config, error) {
	cfg := new(Config)
	ok, err := e.state.KVGet(configKey, cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return cfg, nil
}

func (e *Engine) adminConfig(admin [20]byte) (*Config, error) {
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	if err := common.RequireAdmin(e.auth, cfg.Admin, admin); err != nil {
		return nil, ErrUnauthorized
	}
	return cfg, nil
}

func (e *Engine) storeConfig(cfg *Config, field string) error {
	if err := e.state.KVPut(configKey, cfg); err != nil {
		return err
	}
	e.emit(ConfigUpdatedEvent(field))
	return nil
}

// AddVerifier allows verifier to submit scores.
func (e *Engine) AddVerifier(admin, verifier [20]byte) error {
	if _, err := e.adminConfig(admin); err != nil {
		return err
	}
	if err := e.state.KVPut(verifierKey(verifier), true); err != nil {
		return err
	}
	e.emit(VerifierUpdatedEvent(verifier, true))
	return nil
}

// RemoveVerifier revokes verifier.
func (e *Engine) RemoveVerifier(admin, verifier [20]byte) error {
	if _, err := e.adminConfig(admin); err != nil {
		return err
	}
	if err := e.state.KVDelete(verifierKey(verifier)); err != nil {
		return err
	}
	e.emit(VerifierUpdatedEvent(verifier, false))
	return nil
}

// IsVerifier reports whether addr may submit scores.
func (e *Engine) IsVerifier(addr [20]byte) (bool, error) {
	var ok bool
	if _, err := e.state.KVGet(verifierKey(addr), &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// SetPaused toggles the emergency pause.
func (e *Engine) SetPaused(admin [20]byte, paused bool) error {
	cfg, err := e.adminConfig(admin)
	if err != nil {
		return err
	}
	cfg.Paused = paused
	return e.storeConfig(cfg, "paused")
}

// UpdatePeriodLengths changes the daily and weekly bucket lengths. Existing
// buckets are not migrated; the next submission lands in the bucket derived
// from the new length.
func (e *Engine) UpdatePeriodLengths(admin [20]byte, daily, weekly uint64) error {
	cfg, err := e.adminConfig(admin)
	if err != nil {
		return err
	}
	if daily == 0 || weekly == 0 {
		return ErrInvalidPeriodLen
	}
	cfg.DailyPeriod = daily
	cfg.WeeklyPeriod = weekly
	return e.storeConfig(cfg, "periods")
}

// UpdateMaxEntries changes the top list capacity.
func (e *Engine) UpdateMaxEntries(admin [20]byte, maxTopEntries uint32) error {
	cfg, err := e.adminConfig(admin)
	if err != nil {
		return err
	}
	if maxTopEntries == 0 {
		return ErrInvalidMaxEntries
	}
	cfg.MaxTopEntries = maxTopEntries
	return e.storeConfig(cfg, "max_entries")
}

// SubmitScore adds score to player's daily, weekly and all-time buckets and
// to the player's cumulative total. Only the admin and verifiers may submit.
func (e *Engine) SubmitScore(submitter, player [20]byte, score uint64) error {
	cfg, err := e.Config()
	if err != nil {
		return err
	}
	if err := common.RequireAuth(e.auth, submitter); err != nil {
		return ErrUnauthorized
	}
	if err := common.Guard(cfg); err != nil {
		return ErrPaused
	}
	if submitter != cfg.Admin {
		ok, err := e.IsVerifier(submitter)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotVerifier
		}
	}

	now := e.now()
	lengths := cfg.lengths()
	for _, period := range common.Periods {
		if err := e.accumulate(cfg, player, score, period, lengths.BucketFor(period, now), now); err != nil {
			return err
		}
	}

	var total uint64
	known, err := e.state.KVGet(allTimeKey(player), &total)
	if err != nil {
		return err
	}
	if err := e.state.KVPut(allTimeKey(player), common.SaturatingAdd(total, score)); err != nil {
		return err
	}
	if !known {
		players, err := e.TotalPlayers()
		if err != nil {
			return err
		}
		if err := e.state.KVPut(totalPlayersKey, players+1); err != nil {
			return err
		}
	}
	e.emit(ScoreSubmittedEvent(player, score, now))
	return nil
}

// UpdateScore overwrites player's score in the current bucket of period.
// It is an admin correction path and does not touch cumulative totals.
func (e *Engine) UpdateScore(admin, player [20]byte, score uint64, period common.Period) error {
	cfg, err := e.adminConfig(admin)
	if err != nil {
		return err
	}
	if !period.Valid() {
		return ErrInvalidPeriod
	}
	now := e.now()
	entry := Entry{
		Player:    player,
		Score:     score,
		Timestamp: now,
		Period:    period,
		PeriodID:  cfg.lengths().BucketFor(period, now),
	}
	if err := e.state.KVPut(scoreKey(player, period, entry.PeriodID), &entry); err != nil {
		return err
	}
	return e.rerank(cfg, entry)
}

func (e *Engine) accumulate(cfg *Config, player [20]byte, score uint64, period common.Period, bucket, now uint64) error {
	entry := Entry{Player: player, Period: period, PeriodID: bucket}
	if _, err := e.state.KVGet(scoreKey(player, period, bucket), &entry); err != nil {
		return err
	}
	entry.Score = common.SaturatingAdd(entry.Score, score)
	entry.Timestamp = now
	if err := e.state.KVPut(scoreKey(player, period, bucket), &entry); err != nil {
		return err
	}
	if err := e.rerank(cfg, entry); err != nil {
		return err
	}

	high, err := e.HighScore(period)
	if err != nil {
		return err
	}
	if entry.Score > high {
		if err := e.state.KVPut(highScoreKey(period), entry.Score); err != nil {
			return err
		}
		e.emit(HighScoreEvent(period, player, entry.Score))
	}
	return nil
}

// rerank moves entry's player to its sorted position in the bucket's top list.
func (e *Engine) rerank(cfg *Config, entry Entry) error {
	key := topKey(entry.Period, entry.PeriodID)
	var list []Entry
	if _, err := e.state.KVGet(key, &list); err != nil {
		return err
	}
	oldRank := 0
	if idx := common.IndexOf(list, func(x Entry) bool { return x.Player == entry.Player }); idx >= 0 {
		oldRank = idx + 1
		list = common.RemoveAt(list, idx)
	}
	list, newRank := common.InsertBounded(list, entry, higherScore, int(cfg.MaxTopEntries))
	if err := e.state.KVPut(key, list); err != nil {
		return err
	}
	if newRank > 0 && newRank != oldRank {
		e.emit(RankChangedEvent(entry.Period, entry.Player, oldRank, newRank))
	}
	return nil
}

func (e *Engine) currentTop(period common.Period) (*Config, []Entry, error) {
	cfg, err := e.Config()
	if err != nil {
		return nil, nil, err
	}
	if !period.Valid() {
		return nil, nil, ErrInvalidPeriod
	}
	var list []Entry
	if _, err := e.state.KVGet(topKey(period, cfg.lengths().BucketFor(period, e.now())), &list); err != nil {
		return nil, nil, err
	}
	// Lists stored before UpdateMaxEntries lowered the cap read as trimmed.
	if len(list) > int(cfg.MaxTopEntries) {
		list = list[:cfg.MaxTopEntries]
	}
	return cfg, list, nil
}

// TopPlayers returns up to limit entries of the current bucket's top list.
func (e *Engine) TopPlayers(period common.Period, limit uint32) ([]Entry, error) {
	cfg, list, err := e.currentTop(period)
	if err != nil {
		return nil, err
	}
	if limit > cfg.MaxTopEntries {
		limit = cfg.MaxTopEntries
	}
	if int(limit) < len(list) {
		list = list[:limit]
	}
	return list, nil
}

// PlayerRank returns player's 1-indexed position in the current bucket's top
// list. Zero means the player is not listed, whether or not they have a score.
func (e *Engine) PlayerRank(player [20]byte, period common.Period) (int, error) {
	_, list, err := e.currentTop(period)
	if err != nil {
		return 0, err
	}
	return common.IndexOf(list, func(x Entry) bool { return x.Player == player }) + 1, nil
}

// PlayerScore returns player's entry in the current bucket, or nil.
func (e *Engine) PlayerScore(player [20]byte, period common.Period) (*Entry, error) {
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	if !period.Valid() {
		return nil, ErrInvalidPeriod
	}
	entry := new(Entry)
	ok, err := e.state.KVGet(scoreKey(player, period, cfg.lengths().BucketFor(period, e.now())), entry)
	if err != nil || !ok {
		return nil, err
	}
	return entry, nil
}

// PlayerAllTimeTotal returns the sum of every score submitted for player.
func (e *Engine) PlayerAllTimeTotal(player [20]byte) (uint64, error) {
	var total uint64
	if _, err := e.state.KVGet(allTimeKey(player), &total); err != nil {
		return 0, err
	}
	return total, nil
}

// HighScore returns the record score seen for period across all buckets.
func (e *Engine) HighScore(period common.Period) (uint64, error) {
	var high uint64
	if _, err := e.state.KVGet(highScoreKey(period), &high); err != nil {
		return 0, err
	}
	return high, nil
}

// TotalPlayers returns how many distinct players have submitted.
func (e *Engine) TotalPlayers() (uint64, error) {
	var total uint64
	if _, err := e.state.KVGet(totalPlayersKey, &total); err != nil {
		return 0, err
	}
	return total, nil
}

// CurrentPeriodID returns the active bucket index of period.
func (e *Engine) CurrentPeriodID(period common.Period) (uint64, error) {
	cfg, err := e.Config()
	if err != nil {
		return 0, err
	}
	if !period.Valid() {
		return 0, ErrInvalidPeriod
	}
	return cfg.lengths().BucketFor(period, e.now()), nil
}
