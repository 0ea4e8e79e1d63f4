package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calehh/hac-dao/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var ErrUndecodableEvent = errors.New("cannot decode event")

// Indexer keeps a queryable history of governance events in sqlite.
type Indexer struct {
	logger        cmtlog.Logger
	db            *gorm.DB
	now           func() time.Time
	eventHandlers map[string]eventHandler
}

type eventHandler func(ctx context.Context, event abci.Event) error

func NewIndexer(logger cmtlog.Logger, dbPath string) (*Indexer, error) {
	logger.Info("NewIndexer", "dbPath", dbPath)
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers, and ":memory:" is private to one connection.
	db.DB().SetMaxOpenConns(1)
	if err := db.AutoMigrate(&Proposal{}, &ProposalVote{}, &Activity{}).Error; err != nil {
		db.Close()
		return nil, err
	}
	c := &Indexer{
		logger: logger.With("module", "indexer"),
		db:     db,
		now:    time.Now,
	}
	c.eventHandlers = map[string]eventHandler{
		types.EventInitType:            c.handleEventInit,
		types.EventJoinType:            c.handleEventJoin,
		types.EventRedeemType:          c.handleEventRedeem,
		types.EventTransferSharesType:  c.handleEventTransferShares,
		types.EventProposalType:        c.handleEventProposal,
		types.EventVoteType:            c.handleEventVote,
		types.EventExecuteProposalType: c.handleEventExecuteProposal,
	}
	return c, nil
}

func (c *Indexer) Close() error {
	return c.db.Close()
}

// Publish indexes committed events. Failures are logged and never reach the
// operation that produced the events.
func (c *Indexer) Publish(ctx context.Context, events []abci.Event) {
	if err := c.Index(ctx, events); err != nil {
		c.logger.Error("index events fail", "err", err)
	}
}

func (c *Indexer) Index(ctx context.Context, events []abci.Event) error {
	var errs []error
	for _, event := range events {
		h, ok := c.eventHandlers[event.Type]
		if !ok {
			continue
		}
		if err := h(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", event.Type, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Indexer) saveActivity(kind string, investor, counterparty common.Address, amount uint64) error {
	act := Activity{
		Kind:      kind,
		Investor:  investor.Hex(),
		Amount:    amount,
		Timestamp: c.now().Unix(),
	}
	if counterparty != (common.Address{}) {
		act.Counterparty = counterparty.Hex()
	}
	return c.db.Create(&act).Error
}

func (c *Indexer) handleEventInit(ctx context.Context, event abci.Event) error {
	ev := types.DecodeEventInit(event)
	if ev == nil {
		return ErrUndecodableEvent
	}
	return c.saveActivity(types.EventInitType, ev.Admin, common.Address{}, 0)
}

func (c *Indexer) handleEventJoin(ctx context.Context, event abci.Event) error {
	ev := types.DecodeEventJoin(event)
	if ev == nil {
		return ErrUndecodableEvent
	}
	return c.saveActivity(types.EventJoinType, ev.Investor, common.Address{}, ev.Amount)
}

func (c *Indexer) handleEventRedeem(ctx context.Context, event abci.Event) error {
	ev := types.DecodeEventRedeem(event)
	if ev == nil {
		return ErrUndecodableEvent
	}
	return c.saveActivity(types.EventRedeemType, ev.Investor, ev.Destination, ev.Amount)
}

func (c *Indexer) handleEventTransferShares(ctx context.Context, event abci.Event) error {
	ev := types.DecodeEventTransferShares(event)
	if ev == nil {
		return ErrUndecodableEvent
	}
	return c.saveActivity(types.EventTransferSharesType, ev.From, ev.To, ev.Amount)
}

func (c *Indexer) handleEventProposal(ctx context.Context, event abci.Event) error {
	ev := types.DecodeEventProposal(event)
	if ev == nil {
		return ErrUndecodableEvent
	}
	proposal := Proposal{
		ProposalId:       ev.ProposalID,
		Title:            ev.Title,
		ProposerAddress:  ev.Proposer.Hex(),
		RecipientAddress: ev.Recipient.Hex(),
		Amount:           ev.Amount,
		Status:           uint64(types.ProposalStatusOpen),
		CreateTimestamp:  c.now().Unix(),
		ExpireTimestamp:  ev.Ends,
	}
	return c.db.Create(&proposal).Error
}

func (c *Indexer) handleEventVote(ctx context.Context, event abci.Event) error {
	ev := types.DecodeEventVote(event)
	if ev == nil {
		return ErrUndecodableEvent
	}
	vote := ProposalVote{
		Proposal:     ev.ProposalID,
		VoterAddress: ev.Voter.Hex(),
		Weight:       ev.Weight,
		Timestamp:    c.now().Unix(),
	}
	tx := c.db.Begin()
	if err := tx.Create(&vote).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Model(&Proposal{}).Where("proposal_id = ?", ev.ProposalID).Update("votes", ev.Votes).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func (c *Indexer) handleEventExecuteProposal(ctx context.Context, event abci.Event) error {
	ev := types.DecodeEventExecuteProposal(event)
	if ev == nil {
		return ErrUndecodableEvent
	}
	var proposal Proposal
	if err := c.db.Where("proposal_id = ?", ev.ProposalID).First(&proposal).Error; err != nil {
		return err
	}
	proposal.Status = uint64(types.ProposalStatusRejected)
	if ev.Executed {
		proposal.Status = uint64(types.ProposalStatusPassed)
	}
	proposal.Votes = ev.Votes
	proposal.TotalShares = ev.TotalShares
	proposal.TransferError = ev.TransferError
	proposal.SettleTimestamp = c.now().Unix()
	return c.db.Save(&proposal).Error
}

func normPage(page, pageSize int) (int, int) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

func normAddress(addr string) string {
	return common.HexToAddress(addr).Hex()
}

// GetProposals pages through proposals newest first, optionally only those
// made by proposer.
func (c *Indexer) GetProposals(proposer string, page int, pageSize int) ([]Proposal, uint64, error) {
	page, pageSize = normPage(page, pageSize)
	query := c.db.Model(&Proposal{})
	if proposer != "" {
		query = query.Where("proposer_address = ?", normAddress(proposer))
	}
	var total uint64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	proposals := make([]Proposal, 0)
	err := query.Order("proposal_id desc").Offset(page * pageSize).Limit(pageSize).Find(&proposals).Error
	if err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

func (c *Indexer) GetProposalsByStatus(status types.ProposalStatus, page int, pageSize int) ([]Proposal, error) {
	page, pageSize = normPage(page, pageSize)
	proposals := make([]Proposal, 0)
	err := c.db.Where("status = ?", uint64(status)).Order("proposal_id desc").Offset(page * pageSize).Limit(pageSize).Find(&proposals).Error
	if err != nil {
		return nil, err
	}
	return proposals, nil
}

func (c *Indexer) GetProposal(id uint64) (*Proposal, error) {
	var proposal Proposal
	err := c.db.Where("proposal_id = ?", id).First(&proposal).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, types.ErrProposalNotFound
	}
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

func (c *Indexer) GetVotesByProposal(proposal uint64, page int, pageSize int) ([]ProposalVote, uint64, error) {
	return c.getVotes(c.db.Where("proposal = ?", proposal), page, pageSize)
}

func (c *Indexer) GetVotesByVoter(voter string, page int, pageSize int) ([]ProposalVote, uint64, error) {
	return c.getVotes(c.db.Where("voter_address = ?", normAddress(voter)), page, pageSize)
}

func (c *Indexer) getVotes(query *gorm.DB, page int, pageSize int) ([]ProposalVote, uint64, error) {
	page, pageSize = normPage(page, pageSize)
	var total uint64
	if err := query.Model(&ProposalVote{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	votes := make([]ProposalVote, 0)
	err := query.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&votes).Error
	if err != nil {
		return nil, 0, err
	}
	return votes, total, nil
}

// GetActivities pages through the membership history of investor, or of
// everyone when investor is empty.
func (c *Indexer) GetActivities(investor string, page int, pageSize int) ([]Activity, uint64, error) {
	page, pageSize = normPage(page, pageSize)
	query := c.db.Model(&Activity{})
	if investor != "" {
		addr := normAddress(investor)
		query = query.Where("investor = ? OR counterparty = ?", addr, addr)
	}
	var total uint64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	acts := make([]Activity, 0)
	err := query.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&acts).Error
	if err != nil {
		return nil, 0, err
	}
	return acts, total, nil
}
