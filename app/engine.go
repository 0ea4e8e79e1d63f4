package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/calehh/hac-dao/gateway"
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/tx/handler"
	"github.com/calehh/hac-dao/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrOneActionInFlight = errors.New("caller already has a transaction in flight")
)

// EventSink receives the events of every committed operation.
type EventSink interface {
	Publish(ctx context.Context, events []abcitypes.Event)
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithBackoff(cfg gateway.BackoffConfig) Option {
	return func(e *Engine) { e.backoff = cfg }
}

func WithEventSink(sink EventSink) Option {
	return func(e *Engine) { e.sinks = append(e.sinks, sink) }
}

func WithChainID(chainID string) Option {
	return func(e *Engine) { e.chainID = chainID }
}

// WithNetwork ties the engine to the network its rail serves. The DAO may
// only be initialized for that network.
func WithNetwork(network types.Network) Option {
	return func(e *Engine) { e.network = network }
}

var _ handler.Governance = &Engine{}

// Engine sequences every governance operation over the ledgers. The mutex
// guards ledger reads and commits and is never held across a payment rail
// call; holds cover the gap.
type Engine struct {
	mtx    sync.Mutex
	logger cmtlog.Logger

	db      *state.StateDB
	rail    gateway.PaymentGateway
	holds   *holds
	sinks   []EventSink
	now     func() time.Time
	backoff gateway.BackoffConfig
	chainID string
	network types.Network

	// lifetime bounds rail calls, which outlive the requests that start them
	lifetime context.Context
	shutdown context.CancelFunc

	txHdlrs  map[tx.DAOTxType]handler.TxHandler
	inflight sync.Map
}

func NewEngine(db *state.StateDB, rail gateway.PaymentGateway, logger cmtlog.Logger, opts ...Option) *Engine {
	e := &Engine{
		logger:  logger.With("module", "engine"),
		db:      db,
		rail:    rail,
		holds:   newHolds(),
		now:     time.Now,
		backoff: gateway.DefaultBackoffConfig(),
	}
	e.lifetime, e.shutdown = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(e)
	}
	e.registerTxHandler()
	return e
}

// CheckNetwork fails when the DAO was initialized for a different network
// than the engine's rail serves.
func (e *Engine) CheckNetwork(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mtx.Lock()
	defer e.mtx.Unlock()
	cfg, err := e.config(e.db.State())
	if errors.Is(err, types.ErrNotInitialized) {
		return nil
	}
	if err != nil {
		return err
	}
	return e.matchNetwork(cfg.Network)
}

func (e *Engine) matchNetwork(network types.Network) error {
	if e.network == "" || network == e.network {
		return nil
	}
	return fmt.Errorf("%w: dao runs on the %s network, node rail is %s", types.ErrInvalidConfig, network, e.network)
}

// Close stops rail calls still waiting for a definite answer. Their
// operations return ErrTransferPending and leave the ledgers as they were.
func (e *Engine) Close() {
	e.shutdown()
}

func (e *Engine) registerTxHandler() {
	e.txHdlrs = map[tx.DAOTxType]handler.TxHandler{
		tx.DAOTxTypeInit:           handler.NewInitTxHandler(e.logger),
		tx.DAOTxTypeJoin:           handler.NewJoinTxHandler(e.logger),
		tx.DAOTxTypeRedeem:         handler.NewRedeemTxHandler(e.logger),
		tx.DAOTxTypeTransferShares: handler.NewTransferSharesTxHandler(e.logger),
		tx.DAOTxTypeProposal:       handler.NewProposalTxHandler(e.logger),
		tx.DAOTxTypeVote:           handler.NewVoteTxHandler(e.logger),
		tx.DAOTxTypeExecute:        handler.NewExecuteTxHandler(e.logger),
	}
}

func (e *Engine) ChainID() string {
	return e.chainID
}

func (e *Engine) Rail() gateway.PaymentGateway {
	return e.rail
}

// InitGenesis initializes the DAO from the genesis document on first start.
func (e *Engine) InitGenesis(ctx context.Context, genDoc *types.GenesisDoc) error {
	if genDoc.Dao == nil {
		return nil
	}
	err := e.Initialize(ctx, genDoc.AdminAddress(), *genDoc.Dao)
	if errors.Is(err, types.ErrAlreadyInitialized) {
		return nil
	}
	return err
}

// commit applies fn to the working ledgers and saves the result as one
// version. Any error discards every write fn made.
func (e *Engine) commit(ctx context.Context, fn func(st *state.State) ([]abcitypes.Event, error)) (err error) {
	st := e.db.State()
	var events []abcitypes.Event
	defer func() {
		if err != nil {
			e.db.Rollback()
		}
	}()
	if err = e.consumeNonce(ctx, st); err != nil {
		return
	}
	if events, err = fn(st); err != nil {
		return
	}
	if err = e.holds.verify(st); err != nil {
		e.logger.Error("ledger check fail", "err", err)
		return
	}
	if _, err = e.db.Commit(); err != nil {
		e.logger.Error("commit state fail", "err", err)
		return
	}
	e.emit(ctx, events)
	return
}

func (e *Engine) emit(ctx context.Context, events []abcitypes.Event) {
	if len(events) == 0 {
		return
	}
	if rec, ok := ctx.Value(eventsKey{}).(*eventRecorder); ok {
		rec.events = append(rec.events, events...)
	}
	for _, sink := range e.sinks {
		sink.Publish(ctx, events)
	}
}

type eventsKey struct{}

type eventRecorder struct {
	events []abcitypes.Event
}

func recordEvents(ctx context.Context) (context.Context, *eventRecorder) {
	rec := &eventRecorder{}
	return context.WithValue(ctx, eventsKey{}, rec), rec
}

type txNonceKey struct{}

type txNonce struct {
	caller common.Address
	nonce  uint64
}

func withTxNonce(ctx context.Context, caller common.Address, nonce uint64) context.Context {
	return context.WithValue(ctx, txNonceKey{}, &txNonce{caller: caller, nonce: nonce})
}

// consumeNonce advances the signer's nonce in the same version as the
// operation the transaction carried.
func (e *Engine) consumeNonce(ctx context.Context, st *state.State) error {
	n, ok := ctx.Value(txNonceKey{}).(*txNonce)
	if !ok {
		return nil
	}
	if err := st.VerifyNonce(n.caller, n.nonce); err != nil {
		return err
	}
	return st.IncNonce(n.caller)
}

// settle runs a rail call to a definite answer. It ignores the caller's
// cancellation: once funds may have moved, only the rail decides the outcome.
func (e *Engine) settle(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	rctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	stop := context.AfterFunc(e.lifetime, cancel)
	defer stop()
	err := gateway.Settle(rctx, e.backoff, e.logger, op, fn)
	if errors.Is(err, gateway.ErrOutcomeUnknown) {
		return fmt.Errorf("%w: %w", types.ErrTransferPending, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", types.ErrExternalTransferFailed, op, err)
	}
	return nil
}

func (e *Engine) config(st *state.State) (*types.DaoConfig, error) {
	cfg, err := st.Config()
	if err != nil && !errors.Is(err, types.ErrNotInitialized) {
		return nil, fmt.Errorf("load dao config: %w", err)
	}
	return cfg, err
}
