package puzzle

import (
	"strconv"

	"questchain/core/types"
	"questchain/crypto"
)

const EventTypeSolved = "puzzle.solved"

// SolvedEvent reports a first correct solution.
func SolvedEvent(player [20]byte, id uint32) *types.Event {
	return &types.Event{
		Type: EventTypeSolved,
		Attributes: map[string]string{
			"player":   crypto.FormatAddress(player),
			"puzzleId": strconv.FormatUint(uint64(id), 10),
		},
	}
}
