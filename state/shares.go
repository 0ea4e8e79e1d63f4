package state

import (
	"fmt"
	"math"

	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// ShareLedger maps investors to share balances. An entry exists only while
// its balance is positive, and the entries always sum to TotalShares.
type ShareLedger struct {
	s *State
}

func shareKey(addr common.Address) string {
	return fmt.Sprintf(KeyShareBody, addr.Bytes())
}

// Lookup reports the balance of addr and whether it holds an entry at all.
func (l *ShareLedger) Lookup(addr common.Address) (uint64, bool, error) {
	var bal uint64
	found, err := l.s.getUint(shareKey(addr), &bal)
	return bal, found, err
}

func (l *ShareLedger) BalanceOf(addr common.Address) (uint64, error) {
	bal, _, err := l.Lookup(addr)
	return bal, err
}

func (l *ShareLedger) TotalShares() (total uint64, err error) {
	_, err = l.s.getUint(KeyTotalShares, &total)
	return
}

func (l *ShareLedger) Credit(addr common.Address, amount uint64) error {
	if amount == 0 {
		return types.ErrInvalidAmount
	}
	bal, err := l.BalanceOf(addr)
	if err != nil {
		return err
	}
	total, err := l.TotalShares()
	if err != nil {
		return err
	}
	if bal > math.MaxUint64-amount || total > math.MaxUint64-amount {
		return fmt.Errorf("%w: share balance overflow", types.ErrInvalidAmount)
	}
	if err = l.s.setUint(shareKey(addr), bal+amount); err != nil {
		return err
	}
	return l.s.setUint(KeyTotalShares, total+amount)
}

func (l *ShareLedger) Debit(addr common.Address, amount uint64) error {
	if amount == 0 {
		return types.ErrInvalidAmount
	}
	bal, err := l.BalanceOf(addr)
	if err != nil {
		return err
	}
	if bal < amount {
		return types.ErrInsufficientShares
	}
	total, err := l.TotalShares()
	if err != nil {
		return err
	}
	if total < amount {
		return fmt.Errorf("%w: total shares below holder balance", types.ErrInvariantViolation)
	}
	if bal == amount {
		err = l.s.remove(shareKey(addr))
	} else {
		err = l.s.setUint(shareKey(addr), bal-amount)
	}
	if err != nil {
		return err
	}
	return l.s.setUint(KeyTotalShares, total-amount)
}

// Transfer moves shares between holders. Total shares are unchanged.
func (l *ShareLedger) Transfer(from, to common.Address, amount uint64) error {
	if amount == 0 {
		return types.ErrInvalidAmount
	}
	fromBal, err := l.BalanceOf(from)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return types.ErrInsufficientShares
	}
	if from == to {
		return nil
	}
	toBal, err := l.BalanceOf(to)
	if err != nil {
		return err
	}
	if toBal > math.MaxUint64-amount {
		return fmt.Errorf("%w: share balance overflow", types.ErrInvalidAmount)
	}
	if fromBal == amount {
		err = l.s.remove(shareKey(from))
	} else {
		err = l.s.setUint(shareKey(from), fromBal-amount)
	}
	if err != nil {
		return err
	}
	return l.s.setUint(shareKey(to), toBal+amount)
}

// Holders lists every investor entry in key order.
func (l *ShareLedger) Holders() (holders []types.Holding, err error) {
	prefix := KeyShareBody[:1]
	err = l.s.iterate(prefix, func(key, value []byte) error {
		var bal uint64
		if err := rlp.DecodeBytes(value, &bal); err != nil {
			return err
		}
		holders = append(holders, types.Holding{
			Investor: common.HexToAddress(string(key[len(prefix):])),
			Shares:   bal,
		})
		return nil
	})
	return
}
