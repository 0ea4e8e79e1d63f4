package state

import (
	"fmt"

	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/common"
)

var voteMarker = []byte{1}

// VoteLedger records which investors voted on which proposal.
type VoteLedger struct {
	s *State
}

func voteKey(voter common.Address, id uint64) string {
	return fmt.Sprintf(KeyVote, id, voter.Bytes())
}

func (l *VoteLedger) HasVoted(voter common.Address, id uint64) (bool, error) {
	return l.s.db.Has([]byte(voteKey(voter, id)))
}

func (l *VoteLedger) MarkVoted(voter common.Address, id uint64) error {
	voted, err := l.HasVoted(voter, id)
	if err != nil {
		return err
	}
	if voted {
		return types.ErrDuplicateVote
	}
	_, err = l.s.db.Set([]byte(voteKey(voter, id)), voteMarker)
	return err
}

// Voters lists everyone who voted on proposal id.
func (l *VoteLedger) Voters(id uint64) (voters []common.Address, err error) {
	prefix := fmt.Sprintf("v%020d", id)
	err = l.s.iterate(prefix, func(key, _ []byte) error {
		voters = append(voters, common.HexToAddress(string(key[len(prefix):])))
		return nil
	})
	return
}
