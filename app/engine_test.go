package app

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/calehh/hac-dao/gateway"
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin    = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob      = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	xavier   = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	treasury = common.HexToAddress("0x000000000000000000000000000000000000da00")
)

const testChainID = "dao-test"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testRail wraps the local rail with failure injection and call tracking.
type testRail struct {
	*gateway.Local

	mu               sync.Mutex
	depositFailures  int
	transferFailures int
	transferErr      error
	lostReplies      int
	gate             chan struct{}
	entered          chan struct{}
	depositKeys      []string
	transfers        []gateway.TransferRequest
}

func (r *testRail) Deposit(ctx context.Context, req gateway.DepositRequest) (gateway.Receipt, error) {
	r.mu.Lock()
	r.depositKeys = append(r.depositKeys, req.IdempotencyKey)
	if r.depositFailures > 0 {
		r.depositFailures--
		r.mu.Unlock()
		return gateway.Receipt{}, gateway.ErrUnavailable
	}
	r.mu.Unlock()
	return r.Local.Deposit(ctx, req)
}

func (r *testRail) Transfer(ctx context.Context, req gateway.TransferRequest) (gateway.Receipt, error) {
	r.mu.Lock()
	gate, entered := r.gate, r.entered
	r.mu.Unlock()
	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		<-gate
	}
	r.mu.Lock()
	if r.transferErr != nil {
		err := r.transferErr
		r.mu.Unlock()
		return gateway.Receipt{}, err
	}
	if r.transferFailures > 0 {
		r.transferFailures--
		r.mu.Unlock()
		return gateway.Receipt{}, gateway.ErrUnavailable
	}
	r.mu.Unlock()
	receipt, err := r.Local.Transfer(ctx, req)
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil && !receipt.Replayed {
		r.transfers = append(r.transfers, req)
	}
	if err == nil && r.lostReplies > 0 {
		r.lostReplies--
		return gateway.Receipt{}, gateway.ErrUnavailable
	}
	return receipt, err
}

type sinkRecorder struct {
	mu     sync.Mutex
	events []abcitypes.Event
}

func (s *sinkRecorder) Publish(ctx context.Context, events []abcitypes.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
}

func (s *sinkRecorder) eventTypes() (tps []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		tps = append(tps, ev.Type)
	}
	return
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	e     *Engine
	db    *state.StateDB
	rail  *testRail
	clock *clock
	sink  *sinkRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := cmtlog.NewNopLogger()
	db, err := state.NewMemStateDB(logger)
	require.NoError(t, err)
	local, err := gateway.NewMemLocal(treasury, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
		local.Close()
	})
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		db:    db,
		rail:  &testRail{Local: local},
		clock: &clock{now: time.Unix(1_700_000_000, 0).UTC()},
		sink:  &sinkRecorder{},
	}
	f.e = NewEngine(db, f.rail, logger,
		WithClock(f.clock.Now),
		WithBackoff(gateway.BackoffConfig{Attempts: 3}),
		WithEventSink(f.sink),
		WithChainID(testChainID),
	)
	return f
}

func (f *fixture) init(quorum uint64) {
	f.t.Helper()
	require.NoError(f.t, f.e.Initialize(f.ctx, admin, types.InitParams{
		Quorum:           quorum,
		VoteDuration:     100 * time.Second,
		ContributionTime: 1000 * time.Second,
	}))
}

func (f *fixture) join(addr common.Address, amount uint64) {
	f.t.Helper()
	_, err := f.rail.Mint(f.ctx, addr, amount)
	require.NoError(f.t, err)
	require.NoError(f.t, f.e.Join(f.ctx, addr, amount))
}

func (f *fixture) shares(addr common.Address) uint64 {
	f.t.Helper()
	bal, err := f.e.GetShares(f.ctx, addr)
	require.NoError(f.t, err)
	return bal
}

func (f *fixture) wallet(addr common.Address) uint64 {
	f.t.Helper()
	bal, err := f.rail.BalanceOf(f.ctx, addr)
	require.NoError(f.t, err)
	return bal
}

func (f *fixture) summary() *types.DaoSummary {
	f.t.Helper()
	s, err := f.e.GetDaoSummary(f.ctx)
	require.NoError(f.t, err)
	return s
}

// checkLedgers asserts the share and treasury conservation laws and that
// the treasury matches what the rail holds for it.
func (f *fixture) checkLedgers() {
	f.t.Helper()
	holders, err := f.e.Holders(f.ctx)
	require.NoError(f.t, err)
	var sum uint64
	for _, h := range holders {
		assert.NotZero(f.t, h.Shares)
		sum += h.Shares
	}
	s := f.summary()
	assert.Equal(f.t, s.TotalShares, sum, "sum of holdings")
	assert.Equal(f.t, f.wallet(treasury), s.AvailableFunds+s.LockedFunds, "treasury on rail")
}

func (f *fixture) assertUnchanged(before state.Header) {
	f.t.Helper()
	assert.Equal(f.t, before, f.db.Header())
	assert.Equal(f.t, before.Hash, f.db.WorkingHash())
}

func TestInitialize(t *testing.T) {
	f := newFixture(t)

	err := f.e.Join(f.ctx, alice, 10)
	require.ErrorIs(t, err, types.ErrNotInitialized)
	s := f.summary()
	assert.False(t, s.Initialized)

	require.ErrorIs(t, f.e.Initialize(f.ctx, admin, types.InitParams{Quorum: 101, VoteDuration: time.Second}), types.ErrInvalidConfig)
	require.ErrorIs(t, f.e.Initialize(f.ctx, admin, types.InitParams{Quorum: 50}), types.ErrInvalidConfig)

	f.init(50)
	require.ErrorIs(t, f.e.Initialize(f.ctx, alice, types.InitParams{Quorum: 10, VoteDuration: time.Second}), types.ErrAlreadyInitialized)

	s = f.summary()
	assert.True(t, s.Initialized)
	assert.Equal(t, admin, s.Admin)
	assert.Equal(t, uint64(50), s.Quorum)
	assert.Equal(t, 100*time.Second, s.VoteTime)
	assert.True(t, f.clock.Now().Add(1000*time.Second).Equal(s.ContributionEnds))
	assert.Equal(t, types.NetworkLocal, s.Network)
	assert.Zero(t, s.TotalShares)
	assert.Zero(t, s.NextProposalID)
	assert.Equal(t, []string{types.EventInitType}, f.sink.eventTypes())
}

func TestJoin(t *testing.T) {
	f := newFixture(t)
	f.init(50)

	require.ErrorIs(t, f.e.Join(f.ctx, alice, 0), types.ErrInvalidAmount)

	f.join(alice, 100)
	assert.Equal(t, uint64(100), f.shares(alice))
	s := f.summary()
	assert.Equal(t, uint64(100), s.TotalShares)
	assert.Equal(t, uint64(100), s.AvailableFunds)
	f.checkLedgers()

	t.Run("retries deposit with the same key", func(t *testing.T) {
		f.rail.mu.Lock()
		f.rail.depositFailures = 2
		f.rail.depositKeys = nil
		f.rail.mu.Unlock()
		f.join(bob, 40)
		require.Len(t, f.rail.depositKeys, 3)
		assert.Equal(t, f.rail.depositKeys[0], f.rail.depositKeys[2])
		assert.Equal(t, uint64(40), f.shares(bob))
		f.checkLedgers()
	})

	t.Run("failed deposit changes nothing", func(t *testing.T) {
		before := f.db.Header()
		err := f.e.Join(f.ctx, xavier, 10)
		require.ErrorIs(t, err, types.ErrExternalTransferFailed)
		require.ErrorIs(t, err, gateway.ErrInsufficientBalance)
		f.assertUnchanged(before)
		assert.Zero(t, f.shares(xavier))
	})

	t.Run("contribution window closed", func(t *testing.T) {
		f.clock.Advance(1001 * time.Second)
		before := f.db.Header()
		require.ErrorIs(t, f.e.Join(f.ctx, alice, 1), types.ErrContributionWindowClosed)
		f.assertUnchanged(before)
	})
}

func TestRedeem(t *testing.T) {
	f := newFixture(t)
	f.init(50)
	f.join(alice, 100)
	f.join(bob, 100)

	before := f.db.Header()
	require.ErrorIs(t, f.e.Redeem(f.ctx, alice, 101, alice), types.ErrInsufficientShares)
	require.ErrorIs(t, f.e.Redeem(f.ctx, alice, 0, alice), types.ErrInvalidAmount)
	f.assertUnchanged(before)

	require.NoError(t, f.e.Redeem(f.ctx, alice, 60, xavier))
	assert.Equal(t, uint64(40), f.shares(alice))
	assert.Equal(t, uint64(60), f.wallet(xavier))
	s := f.summary()
	assert.Equal(t, uint64(140), s.TotalShares)
	assert.Equal(t, uint64(140), s.AvailableFunds)
	f.checkLedgers()

	t.Run("transfer failure changes nothing", func(t *testing.T) {
		f.rail.mu.Lock()
		f.rail.transferErr = gateway.ErrRejected
		f.rail.mu.Unlock()
		defer func() {
			f.rail.mu.Lock()
			f.rail.transferErr = nil
			f.rail.mu.Unlock()
		}()
		before := f.db.Header()
		err := f.e.Redeem(f.ctx, alice, 10, alice)
		require.ErrorIs(t, err, types.ErrExternalTransferFailed)
		f.assertUnchanged(before)
		assert.Equal(t, uint64(40), f.shares(alice))
	})

	t.Run("locked funds are not redeemable", func(t *testing.T) {
		_, err := f.e.CreateProposal(f.ctx, bob, "grant", 100, xavier)
		require.NoError(t, err)
		require.ErrorIs(t, f.e.Redeem(f.ctx, bob, 50, bob), types.ErrInsufficientFunds)
		require.NoError(t, f.e.Redeem(f.ctx, bob, 40, bob))
		f.checkLedgers()
	})
}

func TestTransferShares(t *testing.T) {
	f := newFixture(t)
	f.init(50)
	f.join(alice, 100)

	require.ErrorIs(t, f.e.TransferShares(f.ctx, alice, 0, bob), types.ErrInvalidAmount)
	require.ErrorIs(t, f.e.TransferShares(f.ctx, bob, 1, alice), types.ErrInsufficientShares)
	require.NoError(t, f.e.TransferShares(f.ctx, alice, 30, bob))
	assert.Equal(t, uint64(70), f.shares(alice))
	assert.Equal(t, uint64(30), f.shares(bob))
	require.NoError(t, f.e.TransferShares(f.ctx, bob, 30, alice))
	assert.Zero(t, f.shares(bob))
	assert.Equal(t, uint64(100), f.summary().TotalShares)
	f.checkLedgers()
}

func TestCreateProposal(t *testing.T) {
	f := newFixture(t)
	f.init(50)
	f.join(alice, 100)

	before := f.db.Header()
	_, err := f.e.CreateProposal(f.ctx, alice, "too much", 101, xavier)
	require.ErrorIs(t, err, types.ErrInsufficientFunds)
	_, err = f.e.CreateProposal(f.ctx, bob, "not a member", 10, xavier)
	require.ErrorIs(t, err, types.ErrNotAMember)
	_, err = f.e.CreateProposal(f.ctx, alice, "", 10, xavier)
	require.ErrorIs(t, err, types.ErrInvalidProposal)
	f.assertUnchanged(before)

	id, err := f.e.CreateProposal(f.ctx, alice, "pay xavier", 40, xavier)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)
	id, err = f.e.CreateProposal(f.ctx, alice, "pay xavier again", 60, xavier)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	s := f.summary()
	assert.Equal(t, uint64(0), s.AvailableFunds)
	assert.Equal(t, uint64(100), s.LockedFunds)
	assert.Equal(t, uint64(2), s.NextProposalID)

	p, err := f.e.GetProposal(f.ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "pay xavier", p.Title)
	assert.Equal(t, alice, p.Proposer)
	assert.True(t, f.clock.Now().Add(100*time.Second).Equal(p.Ends))
	assert.Equal(t, types.ProposalStatusOpen, p.Status())

	list, err := f.e.ListProposals(f.ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, uint64(1), list[1].ID)

	_, err = f.e.GetProposal(f.ctx, 2)
	require.ErrorIs(t, err, types.ErrProposalNotFound)
}

func TestVote(t *testing.T) {
	f := newFixture(t)
	f.init(50)
	f.join(alice, 100)
	f.join(bob, 100)
	id, err := f.e.CreateProposal(f.ctx, alice, "pay xavier", 50, xavier)
	require.NoError(t, err)

	require.ErrorIs(t, f.e.Vote(f.ctx, xavier, id), types.ErrNotAMember)
	require.ErrorIs(t, f.e.Vote(f.ctx, bob, 9), types.ErrProposalNotFound)
	require.NoError(t, f.e.Vote(f.ctx, bob, id))

	before := f.db.Header()
	require.ErrorIs(t, f.e.Vote(f.ctx, bob, id), types.ErrDuplicateVote)
	f.assertUnchanged(before)

	p, err := f.e.GetProposal(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), p.Votes)
	voters, err := f.e.Voters(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{bob}, voters)

	f.clock.Advance(100 * time.Second)
	require.NoError(t, f.e.Vote(f.ctx, alice, id), "deadline itself still accepts votes")
	f.clock.Advance(time.Second)
	require.ErrorIs(t, f.e.Vote(f.ctx, alice, id), types.ErrDuplicateVote)

	id2, err := f.e.CreateProposal(f.ctx, alice, "late", 10, xavier)
	require.NoError(t, err)
	f.clock.Advance(101 * time.Second)
	require.ErrorIs(t, f.e.Vote(f.ctx, bob, id2), types.ErrProposalExpired)
}

func TestExecuteProposal(t *testing.T) {
	setup := func(t *testing.T) (*fixture, uint64) {
		f := newFixture(t)
		f.init(50)
		f.join(alice, 100)
		f.join(bob, 100)
		id, err := f.e.CreateProposal(f.ctx, alice, "pay xavier", 50, xavier)
		require.NoError(t, err)
		return f, id
	}

	t.Run("passes with quorum and pays once", func(t *testing.T) {
		f, id := setup(t)
		require.NoError(t, f.e.Vote(f.ctx, bob, id))
		f.clock.Advance(101 * time.Second)

		p, err := f.e.ExecuteProposal(f.ctx, admin, id)
		require.NoError(t, err)
		assert.True(t, p.Ended)
		assert.True(t, p.Executed)
		assert.Equal(t, types.ProposalStatusPassed, p.Status())

		s := f.summary()
		assert.Zero(t, s.LockedFunds)
		assert.Equal(t, uint64(150), s.AvailableFunds)
		assert.Equal(t, uint64(50), f.wallet(xavier))
		require.Len(t, f.rail.transfers, 1)
		assert.Equal(t, gateway.TransferRequest{To: xavier, Amount: 50, IdempotencyKey: f.rail.transfers[0].IdempotencyKey}, f.rail.transfers[0])
		f.checkLedgers()

		_, err = f.e.ExecuteProposal(f.ctx, admin, id)
		require.ErrorIs(t, err, types.ErrProposalAlreadyEnded)
		assert.Len(t, f.rail.transfers, 1)
	})

	t.Run("exactly half of the shares meets a fifty percent quorum", func(t *testing.T) {
		f, id := setup(t)
		require.NoError(t, f.e.Vote(f.ctx, alice, id))
		f.clock.Advance(101 * time.Second)
		p, err := f.e.ExecuteProposal(f.ctx, admin, id)
		require.NoError(t, err)
		assert.True(t, p.Executed)
	})

	t.Run("rejected without quorum releases funds", func(t *testing.T) {
		f, id := setup(t)
		f.clock.Advance(101 * time.Second)
		p, err := f.e.ExecuteProposal(f.ctx, admin, id)
		require.NoError(t, err)
		assert.True(t, p.Ended)
		assert.False(t, p.Executed)
		assert.Equal(t, types.ProposalStatusRejected, p.Status())
		s := f.summary()
		assert.Zero(t, s.LockedFunds)
		assert.Equal(t, uint64(200), s.AvailableFunds)
		assert.Empty(t, f.rail.transfers)

		_, err = f.e.ExecuteProposal(f.ctx, admin, id)
		require.ErrorIs(t, err, types.ErrProposalAlreadyEnded)
	})

	t.Run("not yet ended", func(t *testing.T) {
		f, id := setup(t)
		before := f.db.Header()
		_, err := f.e.ExecuteProposal(f.ctx, admin, id)
		require.ErrorIs(t, err, types.ErrProposalNotYetEnded)
		f.assertUnchanged(before)
	})

	t.Run("admin only", func(t *testing.T) {
		f, id := setup(t)
		f.clock.Advance(101 * time.Second)
		_, err := f.e.ExecuteProposal(f.ctx, alice, id)
		require.ErrorIs(t, err, types.ErrUnauthorized)
		_, err = f.e.ExecuteProposal(f.ctx, admin, 5)
		require.ErrorIs(t, err, types.ErrProposalNotFound)
	})

	t.Run("payout failure finalizes as not executed", func(t *testing.T) {
		f, id := setup(t)
		require.NoError(t, f.e.Vote(f.ctx, bob, id))
		f.clock.Advance(101 * time.Second)
		f.rail.mu.Lock()
		f.rail.transferErr = gateway.ErrRejected
		f.rail.mu.Unlock()

		p, err := f.e.ExecuteProposal(f.ctx, admin, id)
		require.ErrorIs(t, err, types.ErrExternalTransferFailed)
		require.NotNil(t, p)
		assert.True(t, p.Ended)
		assert.False(t, p.Executed)
		s := f.summary()
		assert.Zero(t, s.LockedFunds)
		assert.Equal(t, uint64(200), s.AvailableFunds)
		assert.Zero(t, f.wallet(xavier))
		f.checkLedgers()
	})

	t.Run("transient payout failure is retried", func(t *testing.T) {
		f, id := setup(t)
		require.NoError(t, f.e.Vote(f.ctx, bob, id))
		f.clock.Advance(101 * time.Second)
		f.rail.mu.Lock()
		f.rail.transferFailures = 1
		f.rail.mu.Unlock()

		p, err := f.e.ExecuteProposal(f.ctx, admin, id)
		require.NoError(t, err)
		assert.True(t, p.Executed)
		assert.Len(t, f.rail.transfers, 1)
	})
}

func TestQuorumReached(t *testing.T) {
	tests := []struct {
		votes, total, quorum uint64
		want                 bool
	}{
		{100, 200, 50, true},
		{99, 200, 50, false},
		{0, 0, 0, true},
		{0, 0, 50, true},
		{0, 10, 0, true},
		{10, 10, 100, true},
		{9, 10, 100, false},
		{math.MaxUint64, math.MaxUint64, 100, true},
		{math.MaxUint64 - 1, math.MaxUint64, 100, false},
		{math.MaxUint64 / 2, math.MaxUint64, 50, false},
		{math.MaxUint64/2 + 1, math.MaxUint64, 50, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QuorumReached(tt.votes, tt.total, tt.quorum), "%d/%d at %d%%", tt.votes, tt.total, tt.quorum)
	}
}

func TestRedeemHoldsShares(t *testing.T) {
	f := newFixture(t)
	f.init(50)
	f.join(alice, 100)
	f.join(bob, 100)
	id, err := f.e.CreateProposal(f.ctx, bob, "grant", 10, xavier)
	require.NoError(t, err)

	f.rail.mu.Lock()
	f.rail.gate = make(chan struct{})
	f.rail.entered = make(chan struct{}, 1)
	gate := f.rail.gate
	f.rail.mu.Unlock()

	errCh := make(chan error, 1)
	go func() { errCh <- f.e.Redeem(f.ctx, alice, 80, alice) }()
	<-f.rail.entered

	// only the shares alice keeps count
	require.NoError(t, f.e.Vote(f.ctx, alice, id))
	p, err := f.e.GetProposal(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), p.Votes)

	require.ErrorIs(t, f.e.TransferShares(f.ctx, alice, 30, bob), types.ErrInsufficientShares)
	require.ErrorIs(t, f.e.Redeem(f.ctx, alice, 30, alice), types.ErrInsufficientShares)
	_, err = f.e.CreateProposal(f.ctx, bob, "drain", 150, xavier)
	require.ErrorIs(t, err, types.ErrInsufficientFunds)
	require.NoError(t, f.e.TransferShares(f.ctx, alice, 20, bob))

	f.rail.mu.Lock()
	f.rail.gate = nil
	f.rail.entered = nil
	f.rail.mu.Unlock()
	close(gate)
	require.NoError(t, <-errCh)

	assert.Zero(t, f.shares(alice))
	assert.Equal(t, uint64(120), f.shares(bob))
	assert.Equal(t, uint64(110), f.summary().AvailableFunds)
	f.checkLedgers()
}

func TestExecuteMarksProposalBusy(t *testing.T) {
	f := newFixture(t)
	f.init(50)
	f.join(alice, 100)
	f.join(bob, 100)
	id, err := f.e.CreateProposal(f.ctx, alice, "pay xavier", 50, xavier)
	require.NoError(t, err)
	require.NoError(t, f.e.Vote(f.ctx, bob, id))
	f.clock.Advance(100 * time.Second)

	f.rail.mu.Lock()
	f.rail.gate = make(chan struct{})
	f.rail.entered = make(chan struct{}, 1)
	gate := f.rail.gate
	f.rail.mu.Unlock()

	type outcome struct {
		p   *types.Proposal
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		p, err := f.e.ExecuteProposal(f.ctx, admin, id)
		done <- outcome{p, err}
	}()
	<-f.rail.entered

	require.ErrorIs(t, f.e.Vote(f.ctx, alice, id), types.ErrProposalBusy)
	_, err = f.e.ExecuteProposal(f.ctx, admin, id)
	require.ErrorIs(t, err, types.ErrProposalBusy)

	f.rail.mu.Lock()
	f.rail.gate = nil
	f.rail.entered = nil
	f.rail.mu.Unlock()
	close(gate)
	out := <-done
	require.NoError(t, out.err)
	assert.True(t, out.p.Executed)
	assert.Len(t, f.rail.transfers, 1)
}

func TestDeliverTx(t *testing.T) {
	f := newFixture(t)
	f.init(50)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	investor := crypto.PubkeyToAddress(key.PublicKey)
	_, err = f.rail.Mint(f.ctx, investor, 100)
	require.NoError(t, err)

	sign := func(btx *tx.DAOTx) []byte {
		require.NoError(t, btx.Sign(key, []byte(testChainID)))
		dat, err := tx.MarshalDAOTx(btx)
		require.NoError(t, err)
		return dat
	}

	join := sign(&tx.DAOTx{Type: tx.DAOTxTypeJoin, Nonce: 0, Tx: tx.JoinTx{Amount: 40}})
	res, btx, err := f.e.DeliverTx(f.ctx, join)
	require.NoError(t, err)
	assert.Equal(t, investor, btx.Caller)
	require.Len(t, res.Events, 1)
	ev := types.DecodeEventJoin(res.Events[0])
	require.NotNil(t, ev)
	assert.Equal(t, investor, ev.Investor)
	assert.Equal(t, uint64(40), ev.Shares)
	assert.Equal(t, uint64(40), f.shares(investor))

	nonce, err := f.e.Nonce(f.ctx, investor)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), nonce)

	t.Run("replay", func(t *testing.T) {
		_, _, err := f.e.DeliverTx(f.ctx, join)
		require.ErrorIs(t, err, tx.ErrTxNonceInvalid)
		assert.Equal(t, uint64(40), f.shares(investor))
	})

	t.Run("failed operation keeps nonce", func(t *testing.T) {
		dat := sign(&tx.DAOTx{Type: tx.DAOTxTypeTransferShares, Nonce: 1, Tx: tx.TransferSharesTx{Amount: 41, To: bob}})
		_, _, err := f.e.DeliverTx(f.ctx, dat)
		require.ErrorIs(t, err, types.ErrInsufficientShares)
		nonce, err := f.e.Nonce(f.ctx, investor)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), nonce)
	})

	t.Run("payload check", func(t *testing.T) {
		dat := sign(&tx.DAOTx{Type: tx.DAOTxTypeJoin, Nonce: 1, Tx: tx.JoinTx{}})
		_, _, err := f.e.DeliverTx(f.ctx, dat)
		require.ErrorIs(t, err, types.ErrInvalidAmount)
	})

	t.Run("forged caller", func(t *testing.T) {
		btx := &tx.DAOTx{Type: tx.DAOTxTypeTransferShares, Nonce: 1, Tx: tx.TransferSharesTx{Amount: 1, To: bob}}
		require.NoError(t, btx.Sign(key, []byte(testChainID)))
		btx.Caller = alice
		dat, err := tx.MarshalDAOTx(btx)
		require.NoError(t, err)
		_, _, err = f.e.DeliverTx(f.ctx, dat)
		require.ErrorIs(t, err, tx.ErrTxSigInvalid)
	})

	t.Run("proposal result", func(t *testing.T) {
		dat := sign(&tx.DAOTx{Type: tx.DAOTxTypeProposal, Nonce: 1, Tx: tx.ProposalTx{Title: "t", Amount: 10, Recipient: xavier}})
		res, _, err := f.e.DeliverTx(f.ctx, dat)
		require.NoError(t, err)
		assert.JSONEq(t, `{"proposal":0}`, string(res.Data))
		require.Len(t, res.Events, 1)
		assert.Equal(t, types.EventProposalType, res.Events[0].Type)
	})
}

func TestOneActionInFlight(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.e.beginTx(alice))
	require.False(t, f.e.beginTx(alice))
	require.True(t, f.e.beginTx(bob))
	f.e.endTx(alice)
	require.True(t, f.e.beginTx(alice))
}

func TestInitGenesis(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.e.InitGenesis(f.ctx, &types.GenesisDoc{ChainID: testChainID}))
	assert.False(t, f.summary().Initialized)

	genDoc := &types.GenesisDoc{
		ChainID: testChainID,
		Admin:   admin.Hex(),
		Dao:     &types.InitParams{Quorum: 60, VoteDuration: time.Minute},
	}
	require.NoError(t, f.e.InitGenesis(f.ctx, genDoc))
	require.NoError(t, f.e.InitGenesis(f.ctx, genDoc))
	s := f.summary()
	assert.True(t, s.Initialized)
	assert.Equal(t, uint64(60), s.Quorum)
	require.ErrorIs(t, f.e.Initialize(f.ctx, admin, *genDoc.Dao), types.ErrAlreadyInitialized)
}

func TestCallerCancelKeepsRailOutcome(t *testing.T) {
	f := newFixture(t)
	logger := cmtlog.NewNopLogger()
	router := gateway.NewServer(f.rail.Local, logger).Router()
	var delay atomic.Int64
	// the rail finishes its work before the slow reply leaves
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, r)
		time.Sleep(time.Duration(delay.Load()))
		for k, v := range rec.Header() {
			w.Header()[k] = v
		}
		w.WriteHeader(rec.Code)
		_, _ = w.Write(rec.Body.Bytes())
	}))
	t.Cleanup(srv.Close)
	f.e = NewEngine(f.db, gateway.NewHTTPClient(srv.URL, 5*time.Second, logger), logger,
		WithClock(f.clock.Now),
		WithBackoff(gateway.BackoffConfig{Attempts: 3}),
		WithEventSink(f.sink),
		WithChainID(testChainID),
	)
	f.init(50)
	f.join(alice, 100)
	f.join(bob, 100)
	delay.Store(int64(300 * time.Millisecond))

	impatient := func() context.Context {
		ctx, cancel := context.WithTimeout(f.ctx, 100*time.Millisecond)
		t.Cleanup(cancel)
		return ctx
	}

	t.Run("redeem", func(t *testing.T) {
		require.NoError(t, f.e.Redeem(impatient(), alice, 100, xavier))
		assert.Equal(t, uint64(100), f.wallet(xavier))
		assert.Zero(t, f.shares(alice))
		assert.Equal(t, uint64(100), f.summary().AvailableFunds)
		f.checkLedgers()
	})

	t.Run("execute", func(t *testing.T) {
		id, err := f.e.CreateProposal(f.ctx, bob, "pay xavier", 50, xavier)
		require.NoError(t, err)
		require.NoError(t, f.e.Vote(f.ctx, bob, id))
		f.clock.Advance(101 * time.Second)
		p, err := f.e.ExecuteProposal(impatient(), admin, id)
		require.NoError(t, err)
		assert.True(t, p.Executed)
		assert.Equal(t, uint64(150), f.wallet(xavier))
		assert.Zero(t, f.summary().LockedFunds)
		f.checkLedgers()
	})

	t.Run("join", func(t *testing.T) {
		_, err := f.rail.Mint(f.ctx, bob, 30)
		require.NoError(t, err)
		require.NoError(t, f.e.Join(impatient(), bob, 30))
		assert.Equal(t, uint64(130), f.shares(bob))
		f.checkLedgers()
	})
}

func TestLostRepliesAreReplayed(t *testing.T) {
	f := newFixture(t)
	f.init(50)
	f.join(alice, 100)

	// more lost replies than attempts in one round
	f.rail.mu.Lock()
	f.rail.lostReplies = 4
	f.rail.mu.Unlock()
	require.NoError(t, f.e.Redeem(f.ctx, alice, 40, xavier))
	require.Len(t, f.rail.transfers, 1)
	assert.Equal(t, uint64(40), f.wallet(xavier))
	assert.Equal(t, uint64(60), f.shares(alice))
	f.checkLedgers()
}

func TestCloseLeavesOutcomePending(t *testing.T) {
	f := newFixture(t)
	f.init(50)
	f.join(alice, 100)
	f.join(bob, 100)
	id, err := f.e.CreateProposal(f.ctx, bob, "pay xavier", 50, xavier)
	require.NoError(t, err)
	require.NoError(t, f.e.Vote(f.ctx, bob, id))
	f.clock.Advance(101 * time.Second)

	f.rail.mu.Lock()
	f.rail.transferErr = gateway.ErrUnavailable
	f.rail.entered = make(chan struct{}, 1)
	f.rail.mu.Unlock()

	errCh := make(chan error, 1)
	go func() { errCh <- f.e.Redeem(f.ctx, alice, 60, alice) }()
	<-f.rail.entered
	f.e.Close()
	require.ErrorIs(t, <-errCh, types.ErrTransferPending)

	// the reservation outlives the unknown outcome
	assert.Equal(t, uint64(100), f.shares(alice))
	require.ErrorIs(t, f.e.TransferShares(f.ctx, alice, 41, bob), types.ErrInsufficientShares)

	p, err := f.e.ExecuteProposal(f.ctx, admin, id)
	require.ErrorIs(t, err, types.ErrTransferPending)
	assert.Nil(t, p)
	require.ErrorIs(t, f.e.Vote(f.ctx, alice, id), types.ErrProposalBusy)
	_, err = f.e.ExecuteProposal(f.ctx, admin, id)
	require.ErrorIs(t, err, types.ErrProposalBusy)

	s := f.summary()
	assert.Equal(t, uint64(50), s.LockedFunds)
	assert.Equal(t, uint64(150), s.AvailableFunds)
	f.checkLedgers()
}

func TestNetworkMismatch(t *testing.T) {
	f := newFixture(t)
	logger := cmtlog.NewNopLogger()
	remote := NewEngine(f.db, f.rail, logger, WithClock(f.clock.Now), WithNetwork(types.NetworkRemote))

	require.NoError(t, remote.CheckNetwork(f.ctx))
	err := remote.Initialize(f.ctx, admin, types.InitParams{Quorum: 50, VoteDuration: time.Second})
	require.ErrorIs(t, err, types.ErrInvalidConfig)
	assert.False(t, f.summary().Initialized)

	f.init(50)
	require.ErrorIs(t, remote.CheckNetwork(f.ctx), types.ErrInvalidConfig)
	local := NewEngine(f.db, f.rail, logger, WithNetwork(types.NetworkLocal))
	require.NoError(t, local.CheckNetwork(f.ctx))
}
