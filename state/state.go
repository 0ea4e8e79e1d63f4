package state

import (
	"encoding/json"
	"fmt"

	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	KeyConfig        = "c"
	KeyTreasury      = "t"
	KeyTotalShares   = "ts"
	KeyShareBody     = "s%x"
	KeyProposalBody  = "p%020d"
	KeyProposalIndex = "pi"
	KeyVote          = "v%020d%x"
	KeyNonce         = "n%x"
)

// State is the working view over the ledger tree. Every write lands in the
// uncommitted working tree and becomes durable only on StateDB.Commit.
type State struct {
	logger cmtlog.Logger
	db     *iavl.MutableTree

	shares    *ShareLedger
	treasury  *Treasury
	votes     *VoteLedger
	proposals *ProposalRegistry
}

func newState(db *iavl.MutableTree, logger cmtlog.Logger) *State {
	s := &State{
		logger: logger,
		db:     db,
	}
	s.shares = &ShareLedger{s}
	s.treasury = &Treasury{s}
	s.votes = &VoteLedger{s}
	s.proposals = &ProposalRegistry{s}
	return s
}

func (s *State) Shares() *ShareLedger {
	return s.shares
}

func (s *State) Treasury() *Treasury {
	return s.treasury
}

func (s *State) Votes() *VoteLedger {
	return s.votes
}

func (s *State) Proposals() *ProposalRegistry {
	return s.proposals
}

// Config returns the DAO configuration, or ErrNotInitialized before
// initialization.
func (s *State) Config() (cfg *types.DaoConfig, err error) {
	val, err := s.db.Get([]byte(KeyConfig))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, types.ErrNotInitialized
	}
	cfg = new(types.DaoConfig)
	if err = json.Unmarshal(val, cfg); err != nil {
		return nil, fmt.Errorf("decode dao config: %w", err)
	}
	if !cfg.Initialized {
		return nil, types.ErrNotInitialized
	}
	return
}

// SetConfig stores the configuration. It refuses to overwrite an initialized one.
func (s *State) SetConfig(cfg *types.DaoConfig) error {
	has, err := s.db.Has([]byte(KeyConfig))
	if err != nil {
		return err
	}
	if has {
		return types.ErrAlreadyInitialized
	}
	val, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = s.db.Set([]byte(KeyConfig), val)
	return err
}

func (s *State) Nonce(addr common.Address) (nonce uint64, err error) {
	_, err = s.getUint(fmt.Sprintf(KeyNonce, addr.Bytes()), &nonce)
	return
}

func (s *State) IncNonce(addr common.Address) (err error) {
	nonce, err := s.Nonce(addr)
	if err != nil {
		return
	}
	return s.setUint(fmt.Sprintf(KeyNonce, addr.Bytes()), nonce+1)
}

// VerifyNonce checks that nonce is the next one expected from addr.
func (s *State) VerifyNonce(addr common.Address, nonce uint64) error {
	cur, err := s.Nonce(addr)
	if err != nil {
		return err
	}
	if cur != nonce {
		return fmt.Errorf("%w: expected %d got %d", tx.ErrTxNonceInvalid, cur, nonce)
	}
	return nil
}

func (s *State) getUint(key string, v *uint64) (found bool, err error) {
	val, err := s.db.Get([]byte(key))
	if err != nil || val == nil {
		return
	}
	if err = rlp.DecodeBytes(val, v); err != nil {
		return
	}
	found = true
	return
}

func (s *State) setUint(key string, v uint64) error {
	val, err := rlp.EncodeToBytes(v)
	if err != nil {
		return err
	}
	_, err = s.db.Set([]byte(key), val)
	return err
}

func (s *State) remove(key string) error {
	_, _, err := s.db.Remove([]byte(key))
	return err
}

// iterate walks every key with the given prefix in ascending order.
func (s *State) iterate(prefix string, fn func(key, value []byte) error) (err error) {
	if s.db.Size() == 0 {
		return nil
	}
	start := []byte(prefix)
	it, err := s.db.Iterator(start, PrefixEndBytes(start), true)
	if err != nil {
		return
	}
	defer it.Close()
	for ; it.Valid(); it.Next() {
		if err = fn(it.Key(), it.Value()); err != nil {
			return
		}
	}
	return it.Error()
}

func calcHash(rootHash []byte) common.Hash {
	return crypto.Keccak256Hash(rootHash)
}

func PrefixEndBytes(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}

	end := make([]byte, len(prefix))
	copy(end, prefix)

	for {
		if end[len(end)-1] != byte(255) {
			end[len(end)-1]++
			break
		}

		end = end[:len(end)-1]

		if len(end) == 0 {
			end = nil
			break
		}
	}

	return end
}
