package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

const (
	errCodeInsufficientBalance = "insufficient_balance"
	errCodeRejected            = "rejected"
)

var _ PaymentGateway = &HTTPClient{}

// HTTPClient talks to a payment rail over JSON/HTTP.
type HTTPClient struct {
	Url    string
	cli    *http.Client
	logger cmtlog.Logger
}

func NewHTTPClient(url string, timeout time.Duration, logger cmtlog.Logger) *HTTPClient {
	return &HTTPClient{
		Url:    url,
		cli:    &http.Client{Timeout: timeout},
		logger: logger.With("module", "rail"),
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type balanceResponse struct {
	Address common.Address `json:"address"`
	Balance uint64         `json:"balance"`
}

func (c *HTTPClient) Deposit(ctx context.Context, req DepositRequest) (receipt Receipt, err error) {
	err = c.post(ctx, "/deposit", req, &receipt)
	return
}

func (c *HTTPClient) Transfer(ctx context.Context, req TransferRequest) (receipt Receipt, err error) {
	err = c.post(ctx, "/transfer", req, &receipt)
	return
}

func (c *HTTPClient) BalanceOf(ctx context.Context, addr common.Address) (uint64, error) {
	railUrl, err := url.JoinPath(c.Url, "/balance", addr.Hex())
	if err != nil {
		return 0, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, railUrl, nil)
	if err != nil {
		return 0, err
	}
	var res balanceResponse
	if err = c.do(httpReq, &res); err != nil {
		return 0, err
	}
	return res.Balance, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body any, out any) error {
	railUrl, err := url.JoinPath(c.Url, path)
	if err != nil {
		return err
	}
	dat, err := json.Marshal(body)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, railUrl, bytes.NewBuffer(dat))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.do(httpReq, out)
}

func (c *HTTPClient) do(httpReq *http.Request, out any) error {
	res, err := c.cli.Do(httpReq)
	if err != nil {
		c.logger.Error("call rail fail", "url", httpReq.URL.String(), "err", err)
		if ctxErr := httpReq.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	buf, err := io.ReadAll(res.Body)
	if err != nil {
		c.logger.Error("read response body fail", "err", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res.StatusCode != http.StatusOK {
		var e errorResponse
		_ = json.Unmarshal(buf, &e)
		switch {
		case e.Code == errCodeInsufficientBalance:
			return fmt.Errorf("%w: %s", ErrInsufficientBalance, e.Error)
		case res.StatusCode >= 400 && res.StatusCode < 500:
			return fmt.Errorf("%w: %s", ErrRejected, e.Error)
		}
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, res.StatusCode, e.Error)
	}
	if err = json.Unmarshal(buf, out); err != nil {
		c.logger.Error("unmarshal response body fail", "err", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
