package gateway

import (
	"errors"
	"net/http"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// Server exposes a Local rail over HTTP so remote DAO nodes can use it.
type Server struct {
	rail   *Local
	logger cmtlog.Logger
}

func NewServer(rail *Local, logger cmtlog.Logger) *Server {
	return &Server{rail: rail, logger: logger.With("module", "railserver")}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.POST("/deposit", s.deposit)
	r.POST("/transfer", s.transfer)
	r.GET("/balance/:addr", s.balance)
	r.POST("/faucet", s.faucet)
	return r
}

func (s *Server) Run(addr string) error {
	s.logger.Info("payment rail listening", "addr", addr, "treasury", s.rail.Treasury())
	return s.Router().Run(addr)
}

func (s *Server) deposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: errCodeRejected})
		return
	}
	receipt, err := s.rail.Deposit(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (s *Server) transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: errCodeRejected})
		return
	}
	receipt, err := s.rail.Transfer(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (s *Server) balance(c *gin.Context) {
	addr := c.Param("addr")
	if !common.IsHexAddress(addr) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid address", Code: errCodeRejected})
		return
	}
	bal, err := s.rail.BalanceOf(c.Request.Context(), common.HexToAddress(addr))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, balanceResponse{Address: common.HexToAddress(addr), Balance: bal})
}

func (s *Server) faucet(c *gin.Context) {
	var req struct {
		Address common.Address `json:"address"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: errCodeRejected})
		return
	}
	bal, err := s.rail.Faucet(c.Request.Context(), req.Address)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, balanceResponse{Address: req.Address, Balance: bal})
}

func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error(), Code: errCodeInsufficientBalance})
	case errors.Is(err, ErrRejected), errors.Is(err, ErrFaucetWalletFunded):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: errCodeRejected})
	default:
		s.logger.Error("rail request fail", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
