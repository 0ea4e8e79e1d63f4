package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

const FaucetAmount uint64 = 100

var (
	keyWallet  = "w%x"
	keyReceipt = "r%s"
)

var _ PaymentGateway = &Local{}

// Local is a development token rail kept in goleveldb. It holds a balance per
// wallet plus the treasury account balance and dedupes requests by
// idempotency key.
type Local struct {
	mtx      sync.Mutex
	logger   cmtlog.Logger
	db       *leveldb.DB
	treasury common.Address
}

func NewLocal(dir string, treasury common.Address, logger cmtlog.Logger) (*Local, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, err
	}
	return newLocal(db, treasury, logger), nil
}

// NewMemLocal opens a rail that lives only in memory.
func NewMemLocal(treasury common.Address, logger cmtlog.Logger) (*Local, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return newLocal(db, treasury, logger), nil
}

func newLocal(db *leveldb.DB, treasury common.Address, logger cmtlog.Logger) *Local {
	return &Local{
		logger:   logger.With("module", "localrail"),
		db:       db,
		treasury: treasury,
	}
}

func (l *Local) Close() error {
	return l.db.Close()
}

func (l *Local) Treasury() common.Address {
	return l.treasury
}

func (l *Local) Deposit(ctx context.Context, req DepositRequest) (Receipt, error) {
	return l.move(ctx, req.From, l.treasury, req.Amount, req.IdempotencyKey)
}

func (l *Local) Transfer(ctx context.Context, req TransferRequest) (Receipt, error) {
	return l.move(ctx, l.treasury, req.To, req.Amount, req.IdempotencyKey)
}

func (l *Local) BalanceOf(ctx context.Context, addr common.Address) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.balance(addr)
}

// Mint creates amount out of thin air in addr's wallet.
func (l *Local) Mint(ctx context.Context, addr common.Address, amount uint64) (bal uint64, err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.mint(addr, amount)
}

// Faucet tops up an empty wallet with FaucetAmount tokens.
func (l *Local) Faucet(ctx context.Context, addr common.Address) (bal uint64, err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()
	bal, err = l.balance(addr)
	if err != nil {
		return
	}
	if bal > 0 {
		return bal, ErrFaucetWalletFunded
	}
	return l.mint(addr, FaucetAmount)
}

func (l *Local) mint(addr common.Address, amount uint64) (bal uint64, err error) {
	bal, err = l.balance(addr)
	if err != nil {
		return
	}
	if bal > math.MaxUint64-amount {
		return bal, fmt.Errorf("%w: balance overflow", ErrRejected)
	}
	bal += amount
	val, err := rlp.EncodeToBytes(bal)
	if err != nil {
		return
	}
	err = l.db.Put([]byte(fmt.Sprintf(keyWallet, addr.Bytes())), val, nil)
	l.logger.Info("mint", "account", addr, "amount", amount, "balance", bal)
	return
}

func (l *Local) move(ctx context.Context, from, to common.Address, amount uint64, key string) (receipt Receipt, err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	if amount == 0 {
		return receipt, fmt.Errorf("%w: zero amount", ErrRejected)
	}
	if key == "" {
		key = NewIdempotencyKey()
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()

	receiptKey := []byte(fmt.Sprintf(keyReceipt, key))
	val, err := l.db.Get(receiptKey, nil)
	switch {
	case err == nil:
		if err = json.Unmarshal(val, &receipt); err != nil {
			return
		}
		receipt.Replayed = true
		return
	case !errors.Is(err, leveldb.ErrNotFound):
		return
	}

	fromBal, err := l.balance(from)
	if err != nil {
		return
	}
	if fromBal < amount {
		return receipt, fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientBalance, from.Hex(), fromBal, amount)
	}
	toBal, err := l.balance(to)
	if err != nil {
		return
	}
	if from != to && toBal > math.MaxUint64-amount {
		return receipt, fmt.Errorf("%w: balance overflow", ErrRejected)
	}

	batch := new(leveldb.Batch)
	if from != to {
		if err = putBalance(batch, from, fromBal-amount); err != nil {
			return
		}
		if err = putBalance(batch, to, toBal+amount); err != nil {
			return
		}
	}
	receipt = Receipt{ID: NewIdempotencyKey(), Account: counterparty(from, to, l.treasury), Amount: amount}
	val, err = json.Marshal(receipt)
	if err != nil {
		return
	}
	batch.Put(receiptKey, val)
	if err = l.db.Write(batch, nil); err != nil {
		return Receipt{}, err
	}
	l.logger.Debug("move", "from", from, "to", to, "amount", amount, "key", key)
	return
}

func (l *Local) balance(addr common.Address) (bal uint64, err error) {
	val, err := l.db.Get([]byte(fmt.Sprintf(keyWallet, addr.Bytes())), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return 0, nil
		}
		return
	}
	err = rlp.DecodeBytes(val, &bal)
	return
}

func putBalance(batch *leveldb.Batch, addr common.Address, bal uint64) error {
	val, err := rlp.EncodeToBytes(bal)
	if err != nil {
		return err
	}
	batch.Put([]byte(fmt.Sprintf(keyWallet, addr.Bytes())), val)
	return nil
}

func counterparty(from, to, treasury common.Address) common.Address {
	if from == treasury {
		return to
	}
	return from
}
