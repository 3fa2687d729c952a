package timeattack

import (
	"encoding/hex"
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
	TempGet(key []byte, now uint64, out interface{}) (bool, error)
	TempPut(key []byte, value interface{}, expiresAt uint64) error
}

var adminKey = []byte("timeattack/admin")

// resetWindows lists the periods cleared by the explicit reset check and the
// elapsed time that triggers it.
var resetWindows = []struct {
	period common.Period
	length uint64
}{
	{common.PeriodDaily, common.SecondsPerDay},
	{common.PeriodWeekly, common.SecondsPerWeek},
}

func boardKey(puzzleID uint32, period common.Period) []byte {
	return []byte(fmt.Sprintf("timeattack/board/%d/%d", puzzleID, period))
}

func bestKey(puzzleID uint32, period common.Period) []byte {
	return []byte(fmt.Sprintf("timeattack/best/%d/%d", puzzleID, period))
}

func lastResetKey(puzzleID uint32, period common.Period) []byte {
	return []byte(fmt.Sprintf("timeattack/last-reset/%d/%d", puzzleID, period))
}

func lastSubmitKey(player [20]byte) []byte {
	return []byte("timeattack/last-submit/" + common.AddrHex(player))
}

func replayKey(hash [32]byte) []byte {
	return []byte("timeattack/replay/" + hex.EncodeToString(hash[:]))
}

// Engine ranks puzzle completion times, fastest first. Puzzle id 0 is the
// global scope.
type Engine struct {
	state   engineState
	emitter events.Emitter
	auth    common.Authorizer
	nowFn   func() int64
}

// NewEngine creates a time attack engine with default collaborators.
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

// Initialize records the admin.
func (e *Engine) Initialize(admin [20]byte) error {
	ok, err := e.state.KVGet(adminKey, nil)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}
	if err := common.RequireAuth(e.auth, admin); err != nil {
		return ErrUnauthorized
	}
	return e.state.KVPut(adminKey, admin)
}

// Admin returns the admin address.
func (e *Engine) Admin() ([20]byte, error) {
	var admin [20]byte
	ok, err := e.state.KVGet(adminKey, &admin)
	if err != nil {
		return admin, err
	}
	if !ok {
		return admin, ErrNotInitialized
	}
	return admin, nil
}

// SubmitTime records a completion of puzzleID by player.
func (e *Engine) SubmitTime(player [20]byte, puzzleID uint32, completionMs uint64, replayHash [32]byte) error {
	if _, err := e.Admin(); err != nil {
		return err
	}
	if err := common.RequireAuth(e.auth, player); err != nil {
		return ErrUnauthorized
	}
	now := e.now()
	if err := e.verify(player, completionMs, replayHash, now); err != nil {
		return err
	}

	rec := Record{Player: player, CompletionMs: completionMs, Timestamp: now, ReplayHash: replayHash}
	if err := e.resetExpired(puzzleID, now); err != nil {
		return err
	}
	for _, period := range []common.Period{common.PeriodAllTime, common.PeriodDaily, common.PeriodWeekly} {
		if err := e.insert(puzzleID, period, rec); err != nil {
			return err
		}
		if err := e.improveBest(puzzleID, period, rec); err != nil {
			return err
		}
	}

	if err := e.state.TempPut(lastSubmitKey(player), now, now+LastSubmitTTL); err != nil {
		return err
	}
	if err := e.state.TempPut(replayKey(replayHash), true, now+ReplayTTL); err != nil {
		return err
	}
	e.emit(SubmittedEvent(puzzleID, rec))
	return nil
}

func (e *Engine) verify(player [20]byte, completionMs uint64, replayHash [32]byte, now uint64) error {
	if completionMs < MinCompletionMs || completionMs > MaxCompletionMs {
		return ErrInvalidTime
	}
	var last uint64
	ok, err := e.state.TempGet(lastSubmitKey(player), now, &last)
	if err != nil {
		return err
	}
	if ok && common.Elapsed(now, last) < MinSubmitInterval {
		return ErrTooFrequent
	}
	used, err := e.state.TempGet(replayKey(replayHash), now, nil)
	if err != nil {
		return err
	}
	if used {
		return ErrDuplicateReplay
	}
	return nil
}

// resetExpired clears each periodic board and best record once its window
// has elapsed since the last reset. The first call only records a baseline.
func (e *Engine) resetExpired(puzzleID uint32, now uint64) error {
	for _, w := range resetWindows {
		var last uint64
		ok, err := e.state.KVGet(lastResetKey(puzzleID, w.period), &last)
		if err != nil {
			return err
		}
		if ok && common.Elapsed(now, last) < w.length {
			continue
		}
		if ok {
			if err := e.state.KVPut(boardKey(puzzleID, w.period), []Record{}); err != nil {
				return err
			}
			if err := e.state.KVDelete(bestKey(puzzleID, w.period)); err != nil {
				return err
			}
			e.emit(BoardResetEvent(puzzleID, w.period, now))
		}
		if err := e.state.KVPut(lastResetKey(puzzleID, w.period), now); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) insert(puzzleID uint32, period common.Period, rec Record) error {
	key := boardKey(puzzleID, period)
	var board []Record
	if _, err := e.state.KVGet(key, &board); err != nil {
		return err
	}
	board, _ = common.InsertBounded(board, rec, faster, BoardSize)
	return e.state.KVPut(key, board)
}

func (e *Engine) improveBest(puzzleID uint32, period common.Period, rec Record) error {
	current, err := e.best(puzzleID, period)
	if err != nil {
		return err
	}
	if current != nil && rec.CompletionMs >= current.CompletionMs {
		return nil
	}
	if err := e.state.KVPut(bestKey(puzzleID, period), &rec); err != nil {
		return err
	}
	e.emit(NewBestEvent(puzzleID, period, rec))
	return nil
}

func (e *Engine) best(puzzleID uint32, period common.Period) (*Record, error) {
	rec := new(Record)
	ok, err := e.state.KVGet(bestKey(puzzleID, period), rec)
	if err != nil || !ok {
		return nil, err
	}
	return rec, nil
}

// BestTime returns the all-time record of puzzleID, or nil.
func (e *Engine) BestTime(puzzleID uint32) (*Record, error) {
	return e.best(puzzleID, common.PeriodAllTime)
}

// PeriodBest returns the record of puzzleID within the current window of
// period, or nil.
func (e *Engine) PeriodBest(puzzleID uint32, period common.Period) (*Record, error) {
	if !period.Valid() {
		return nil, ErrInvalidPeriod
	}
	return e.best(puzzleID, period)
}

// Leaderboard returns the board of puzzleID for period, fastest first.
func (e *Engine) Leaderboard(puzzleID uint32, period common.Period) ([]Record, error) {
	if !period.Valid() {
		return nil, ErrInvalidPeriod
	}
	board := []Record{}
	if _, err := e.state.KVGet(boardKey(puzzleID, period), &board); err != nil {
		return nil, err
	}
	return board, nil
}
