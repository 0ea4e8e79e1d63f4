package app

import (
	"fmt"

	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/common"
)

// holds are reservations taken while a payment rail call is outstanding.
// They are never persisted.
type holds struct {
	shares map[common.Address]uint64
	funds  uint64
	busy   map[uint64]bool
}

func newHolds() *holds {
	return &holds{
		shares: make(map[common.Address]uint64),
		busy:   make(map[uint64]bool),
	}
}

func (h *holds) reserve(addr common.Address, shares, funds uint64) {
	h.shares[addr] += shares
	h.funds += funds
}

func (h *holds) release(addr common.Address, shares, funds uint64) {
	if h.shares[addr] <= shares {
		delete(h.shares, addr)
	} else {
		h.shares[addr] -= shares
	}
	if h.funds <= funds {
		h.funds = 0
	} else {
		h.funds -= funds
	}
}

// freeShares is the part of bal not promised to an outstanding redeem.
func (h *holds) freeShares(addr common.Address, bal uint64) uint64 {
	held := h.shares[addr]
	if held >= bal {
		return 0
	}
	return bal - held
}

func (h *holds) freeFunds(available uint64) uint64 {
	if h.funds >= available {
		return 0
	}
	return available - h.funds
}

// verify checks that the ledgers still cover every reservation.
func (h *holds) verify(st *state.State) error {
	tr, err := st.Treasury().State()
	if err != nil {
		return err
	}
	if tr.AvailableFunds < h.funds {
		return fmt.Errorf("%w: available funds %d below reserved %d", types.ErrInvariantViolation, tr.AvailableFunds, h.funds)
	}
	for addr, held := range h.shares {
		bal, err := st.Shares().BalanceOf(addr)
		if err != nil {
			return err
		}
		if bal < held {
			return fmt.Errorf("%w: %s holds %d shares, %d reserved", types.ErrInvariantViolation, addr.Hex(), bal, held)
		}
	}
	return nil
}
