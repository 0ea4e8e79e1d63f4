package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/calehh/hac-dao/app"
	"github.com/calehh/hac-dao/gateway"
	"github.com/calehh/hac-dao/indexer"
	"github.com/calehh/hac-dao/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

type Service struct {
	engine     *gin.Engine
	dao        *app.Engine
	indexer    *indexer.Indexer
	logger     cmtlog.Logger
	listenAddr string
}

// NewService serves the node API. idx may be nil, in which case history
// queries fall back to the ledgers or are refused.
func NewService(listenAddr string, dao *app.Engine, idx *indexer.Indexer, logger cmtlog.Logger) *Service {
	r := gin.New()
	r.Use(gin.Recovery())
	s := &Service{
		engine:     r,
		dao:        dao,
		indexer:    idx,
		logger:     logger.With("module", "api"),
		listenAddr: listenAddr,
	}
	s.engine.POST("/tx", s.handleTx)
	s.engine.POST("/getDaoData", s.handleGetDaoData)
	s.engine.POST("/getShares", s.handleGetShares)
	s.engine.POST("/getProposals", s.handleGetProposals)
	s.engine.POST("/getProposal", s.handleGetProposal)
	s.engine.POST("/getVotes", s.handleGetVotes)
	s.engine.POST("/getActivities", s.handleGetActivities)
	s.engine.POST("/getNonce", s.handleGetNonce)
	s.engine.POST("/walletBalance", s.handleWalletBalance)
	s.engine.POST("/faucet", s.handleFaucet)
	return s
}

func (s *Service) Router() *gin.Engine {
	return s.engine
}

func (s *Service) Start() error {
	s.logger.Info("api listening", "addr", s.listenAddr)
	return s.engine.Run(s.listenAddr)
}

type ErrorResponse struct {
	Error  string      `json:"error"`
	Result *TxResponse `json:"result,omitempty"`
}

func (s *Service) writeError(c *gin.Context, err error) {
	status := StatusCode(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request fail", "path", c.FullPath(), "err", err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, ErrInvalidAddress
	}
	return common.HexToAddress(s), nil
}

type TxResponse struct {
	Code   uint32            `json:"code"`
	Data   json.RawMessage   `json:"data,omitempty"`
	Log    string            `json:"log,omitempty"`
	Events []abcitypes.Event `json:"events"`
	Caller common.Address    `json:"caller"`
	Nonce  uint64            `json:"nonce"`
}

// handleTx runs one signed transaction. The body is the JSON encoded DAOTx.
func (s *Service) handleTx(c *gin.Context) {
	dat, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	res, btx, err := s.dao.DeliverTx(c.Request.Context(), dat)
	var response *TxResponse
	if res != nil {
		response = &TxResponse{
			Code:   res.Code,
			Log:    res.Log,
			Events: res.Events,
		}
		if len(res.Data) > 0 {
			response.Data = res.Data
		}
		if response.Events == nil {
			response.Events = make([]abcitypes.Event, 0)
		}
		if btx != nil {
			response.Caller = btx.Caller
			response.Nonce = btx.Nonce
		}
	}
	if err != nil {
		c.JSON(StatusCode(err), ErrorResponse{Error: err.Error(), Result: response})
		return
	}
	c.JSON(http.StatusOK, response)
}

func (s *Service) handleGetDaoData(c *gin.Context) {
	summary, err := s.dao.GetDaoSummary(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type AddressReq struct {
	Address string `json:"address"`
	// Caller stands in for an empty Address.
	Caller string `json:"caller"`
}

func (r AddressReq) target() (common.Address, error) {
	if r.Address == "" {
		return parseAddress(r.Caller)
	}
	return parseAddress(r.Address)
}

type SharesResponse struct {
	Address common.Address `json:"address"`
	Shares  uint64         `json:"shares"`
}

func (s *Service) handleGetShares(c *gin.Context) {
	var requestData AddressReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	addr, err := requestData.target()
	if err != nil {
		s.writeError(c, err)
		return
	}
	shares, err := s.dao.GetShares(c.Request.Context(), addr)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SharesResponse{Address: addr, Shares: shares})
}

type GetProposalsReq struct {
	ProposerAddress string `json:"proposer"`
	Page            int    `json:"page"`
	PageSize        int    `json:"pageSize"`
}

type GetProposalsResponse struct {
	Proposals []*types.Proposal `json:"proposals"`
	Total     uint64            `json:"total"`
}

// handleGetProposals pages through proposals newest first. The indexer picks
// the page, the ledgers supply the current state of each proposal.
func (s *Service) handleGetProposals(c *gin.Context) {
	var requestData GetProposalsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if requestData.ProposerAddress != "" && !common.IsHexAddress(requestData.ProposerAddress) {
		s.writeError(c, ErrInvalidAddress)
		return
	}
	ctx := c.Request.Context()
	response := GetProposalsResponse{Proposals: make([]*types.Proposal, 0)}

	if s.indexer == nil {
		all, err := s.dao.ListProposals(ctx)
		if err != nil {
			s.writeError(c, err)
			return
		}
		matched := make([]*types.Proposal, 0, len(all))
		for i := len(all) - 1; i >= 0; i-- {
			if requestData.ProposerAddress == "" || all[i].Proposer == common.HexToAddress(requestData.ProposerAddress) {
				matched = append(matched, all[i])
			}
		}
		page, pageSize := pageBounds(requestData.Page, requestData.PageSize)
		response.Total = uint64(len(matched))
		if start := page * pageSize; start < len(matched) {
			end := min(start+pageSize, len(matched))
			response.Proposals = matched[start:end]
		}
		c.JSON(http.StatusOK, response)
		return
	}

	proposals, total, err := s.indexer.GetProposals(requestData.ProposerAddress, requestData.Page, requestData.PageSize)
	if err != nil {
		s.writeError(c, err)
		return
	}
	response.Total = total
	for _, proposal := range proposals {
		p, err := s.dao.GetProposal(ctx, proposal.ProposalId)
		if err != nil {
			s.writeError(c, err)
			return
		}
		response.Proposals = append(response.Proposals, p)
	}
	c.JSON(http.StatusOK, response)
}

func pageBounds(page, pageSize int) (int, int) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = indexer.DefaultPageSize
	}
	return page, min(pageSize, indexer.MaxPageSize)
}

type ProposalReq struct {
	ProposalId uint64 `json:"proposalId"`
}

type ProposalInfo struct {
	Proposal *types.Proposal  `json:"proposal"`
	Status   string           `json:"status"`
	Voters   []common.Address `json:"voters"`
}

func (s *Service) handleGetProposal(c *gin.Context) {
	var requestData ProposalReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	ctx := c.Request.Context()
	p, err := s.dao.GetProposal(ctx, requestData.ProposalId)
	if err != nil {
		s.writeError(c, err)
		return
	}
	voters, err := s.dao.Voters(ctx, requestData.ProposalId)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if voters == nil {
		voters = make([]common.Address, 0)
	}
	c.JSON(http.StatusOK, ProposalInfo{Proposal: p, Status: p.Status().String(), Voters: voters})
}

type GetVotesReq struct {
	ProposalId *uint64 `json:"proposalId"`
	Voter      string  `json:"voter"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
}

type GetVotesResponse struct {
	Votes []indexer.ProposalVote `json:"votes"`
	Total uint64                 `json:"total"`
}

func (s *Service) handleGetVotes(c *gin.Context) {
	var requestData GetVotesReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if s.indexer == nil {
		s.writeError(c, ErrIndexerDisabled)
		return
	}
	var (
		votes []indexer.ProposalVote
		total uint64
		err   error
	)
	switch {
	case requestData.ProposalId != nil:
		if _, err = s.dao.GetProposal(c.Request.Context(), *requestData.ProposalId); err != nil {
			s.writeError(c, err)
			return
		}
		votes, total, err = s.indexer.GetVotesByProposal(*requestData.ProposalId, requestData.Page, requestData.PageSize)
	case requestData.Voter != "":
		if !common.IsHexAddress(requestData.Voter) {
			s.writeError(c, ErrInvalidAddress)
			return
		}
		votes, total, err = s.indexer.GetVotesByVoter(requestData.Voter, requestData.Page, requestData.PageSize)
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "proposalId or voter is required"})
		return
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, GetVotesResponse{Votes: votes, Total: total})
}

type GetActivitiesReq struct {
	Investor string `json:"investor"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

type GetActivitiesResponse struct {
	Activities []indexer.Activity `json:"activities"`
	Total      uint64             `json:"total"`
}

func (s *Service) handleGetActivities(c *gin.Context) {
	var requestData GetActivitiesReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if s.indexer == nil {
		s.writeError(c, ErrIndexerDisabled)
		return
	}
	if requestData.Investor != "" && !common.IsHexAddress(requestData.Investor) {
		s.writeError(c, ErrInvalidAddress)
		return
	}
	acts, total, err := s.indexer.GetActivities(requestData.Investor, requestData.Page, requestData.PageSize)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, GetActivitiesResponse{Activities: acts, Total: total})
}

type NonceResponse struct {
	Address common.Address `json:"address"`
	Nonce   uint64         `json:"nonce"`
}

func (s *Service) handleGetNonce(c *gin.Context) {
	var requestData AddressReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	addr, err := requestData.target()
	if err != nil {
		s.writeError(c, err)
		return
	}
	nonce, err := s.dao.Nonce(c.Request.Context(), addr)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NonceResponse{Address: addr, Nonce: nonce})
}

type BalanceResponse struct {
	Address common.Address `json:"address"`
	Balance uint64         `json:"balance"`
}

func (s *Service) handleWalletBalance(c *gin.Context) {
	var requestData AddressReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	addr, err := requestData.target()
	if err != nil {
		s.writeError(c, err)
		return
	}
	bal, err := s.dao.Rail().BalanceOf(c.Request.Context(), addr)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{Address: addr, Balance: bal})
}

// handleFaucet credits an empty wallet with test tokens. Only a node running
// its own local rail can mint.
func (s *Service) handleFaucet(c *gin.Context) {
	var requestData AddressReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	addr, err := requestData.target()
	if err != nil {
		s.writeError(c, err)
		return
	}
	local, ok := s.dao.Rail().(*gateway.Local)
	if !ok {
		s.writeError(c, gateway.ErrFaucetDisabled)
		return
	}
	ctx := c.Request.Context()
	summary, err := s.dao.GetDaoSummary(ctx)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if summary.Initialized && summary.Network != types.NetworkLocal {
		s.writeError(c, gateway.ErrFaucetDisabled)
		return
	}
	bal, err := local.Faucet(ctx, addr)
	if err != nil {
		if !errors.Is(err, gateway.ErrFaucetWalletFunded) {
			s.logger.Error("faucet fail", "address", addr, "err", err)
		}
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{Address: addr, Balance: bal})
}
