package state

import (
	"fmt"
	"math"

	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/rlp"
)

// Treasury tracks the funds the DAO holds on the payment rail, split into
// what is free to spend and what is reserved by open proposals.
type Treasury struct {
	s *State
}

func (t *Treasury) State() (st types.TreasuryState, err error) {
	val, err := t.s.db.Get([]byte(KeyTreasury))
	if err != nil || val == nil {
		return
	}
	err = rlp.DecodeBytes(val, &st)
	return
}

func (t *Treasury) put(st types.TreasuryState) error {
	val, err := rlp.EncodeToBytes(&st)
	if err != nil {
		return err
	}
	_, err = t.s.db.Set([]byte(KeyTreasury), val)
	return err
}

// Lock moves amount from available to locked funds.
func (t *Treasury) Lock(amount uint64) error {
	st, err := t.State()
	if err != nil {
		return err
	}
	if st.AvailableFunds < amount {
		return types.ErrInsufficientFunds
	}
	st.AvailableFunds -= amount
	st.LockedFunds += amount
	return t.put(st)
}

// Release returns locked funds to the available pool.
func (t *Treasury) Release(amount uint64) error {
	st, err := t.State()
	if err != nil {
		return err
	}
	if st.LockedFunds < amount {
		return types.ErrInsufficientLocked
	}
	st.LockedFunds -= amount
	st.AvailableFunds += amount
	return t.put(st)
}

// PayOut removes locked funds that left the treasury.
func (t *Treasury) PayOut(amount uint64) error {
	st, err := t.State()
	if err != nil {
		return err
	}
	if st.LockedFunds < amount {
		return types.ErrInsufficientLocked
	}
	st.LockedFunds -= amount
	return t.put(st)
}

func (t *Treasury) Credit(amount uint64) error {
	st, err := t.State()
	if err != nil {
		return err
	}
	if st.Total() > math.MaxUint64-amount {
		return fmt.Errorf("%w: treasury overflow", types.ErrInvalidAmount)
	}
	st.AvailableFunds += amount
	return t.put(st)
}

func (t *Treasury) Debit(amount uint64) error {
	st, err := t.State()
	if err != nil {
		return err
	}
	if st.AvailableFunds < amount {
		return types.ErrInsufficientFunds
	}
	st.AvailableFunds -= amount
	return t.put(st)
}
