package puzzle

import (
	"fmt"

	"lukechampine.com/blake3"

	"questchain/core/events"
	"questchain/core/types"
	"questchain/native/common"
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var adminKey = []byte("puzzle/admin")

func solutionKey(id uint32) []byte { return []byte(fmt.Sprintf("puzzle/solution/%d", id)) }

func completedKey(player [20]byte, id uint32) []byte {
	return []byte(fmt.Sprintf("puzzle/completed/%s/%d", common.AddrHex(player), id))
}

// SolutionHash is the canonical digest clients submit for a solution.
func SolutionHash(solution []byte) [32]byte {
	return blake3.Sum256(solution)
}

// Engine checks submitted solution hashes against the canonical hash of
// each puzzle. A player completes a puzzle at most once.
type Engine struct {
	state   engineState
	emitter events.Emitter
	auth    common.Authorizer
}

// NewEngine creates a puzzle engine.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

func (e *Engine) SetState(state engineState)           { e.state = state }
func (e *Engine) SetAuthorizer(auth common.Authorizer) { e.auth = auth }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

// Initialize records the admin allowed to publish puzzles.
func (e *Engine) Initialize(admin [20]byte) error {
	if err := common.RequireAuth(e.auth, admin); err != nil {
		return ErrUnauthorized
	}
	ok, err := e.state.KVGet(adminKey, nil)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}
	return e.state.KVPut(adminKey, admin)
}

// Admin returns the puzzle publisher.
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

// SetPuzzle publishes or replaces the canonical solution hash of a puzzle.
func (e *Engine) SetPuzzle(admin [20]byte, id uint32, hash [32]byte) error {
	stored, err := e.Admin()
	if err != nil {
		return err
	}
	if err := common.RequireAdmin(e.auth, stored, admin); err != nil {
		return ErrUnauthorized
	}
	if hash == ([32]byte{}) {
		return ErrEmptyHash
	}
	return e.state.KVPut(solutionKey(id), hash)
}

// PuzzleHash returns the canonical solution hash of a puzzle.
func (e *Engine) PuzzleHash(id uint32) ([32]byte, error) {
	var hash [32]byte
	ok, err := e.state.KVGet(solutionKey(id), &hash)
	if err != nil {
		return hash, err
	}
	if !ok {
		return hash, ErrPuzzleNotFound
	}
	return hash, nil
}

// VerifySolution compares hash with the puzzle's canonical hash and marks
// the puzzle completed for player on a match. A wrong hash returns false
// without error. Any attempt after completion fails.
func (e *Engine) VerifySolution(player [20]byte, id uint32, hash [32]byte) (bool, error) {
	if _, err := e.Admin(); err != nil {
		return false, err
	}
	if err := common.RequireAuth(e.auth, player); err != nil {
		return false, ErrUnauthorized
	}
	done, err := e.IsCompleted(player, id)
	if err != nil {
		return false, err
	}
	if done {
		return false, ErrAlreadyCompleted
	}
	expected, err := e.PuzzleHash(id)
	if err != nil {
		return false, err
	}
	if hash != expected {
		return false, nil
	}
	if err := e.state.KVPut(completedKey(player, id), true); err != nil {
		return false, err
	}
	e.emit(SolvedEvent(player, id))
	return true, nil
}

// IsCompleted reports whether player has solved the puzzle.
func (e *Engine) IsCompleted(player [20]byte, id uint32) (bool, error) {
	return e.state.KVGet(completedKey(player, id), nil)
}
