package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/calehh/hac-dao/api"
	"github.com/calehh/hac-dao/crypto"
	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/types"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// post sends body as JSON to the node and decodes a 200 answer into out.
// Other answers come back as the error the node reported.
func post(url, path string, body any, out any) error {
	dat, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return postRaw(url, path, dat, out)
}

func postRaw(url, path string, dat []byte, out any) error {
	resp, err := httpClient.Post(strings.TrimRight(url, "/")+path, "application/json", bytes.NewReader(dat))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respDat, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respDat, &errResp); err != nil || errResp.Error == "" {
			return fmt.Errorf("%s: %s", resp.Status, string(respDat))
		}
		return fmt.Errorf("%s: %s", resp.Status, errResp.Error)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(respDat, out)
}

func queryDaoSummary(url string) (*types.DaoSummary, error) {
	var summary types.DaoSummary
	if err := post(url, "/getDaoData", struct{}{}, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func queryNonce(url string, address string) (uint64, error) {
	var res api.NonceResponse
	if err := post(url, "/getNonce", api.AddressReq{Address: address}, &res); err != nil {
		return 0, err
	}
	return res.Nonce, nil
}

type txArguments struct {
	Url   string
	Skey  string
	Nonce int64
}

// sendTx signs stx with the key at args.Skey for the node's chain and
// submits it. A negative nonce is looked up on the node.
func sendTx(args txArguments, txType tx.DAOTxType, stx any) (*api.TxResponse, error) {
	pv, err := crypto.LoadFilePV(args.Skey)
	if err != nil {
		return nil, fmt.Errorf("load key: %w", err)
	}
	summary, err := queryDaoSummary(args.Url)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	if summary.ChainID == "" {
		return nil, errors.New("node reported no chain id")
	}
	var nonce uint64
	if args.Nonce < 0 {
		nonce, err = queryNonce(args.Url, pv.Address().Hex())
		if err != nil {
			return nil, fmt.Errorf("get nonce: %w", err)
		}
	} else {
		nonce = uint64(args.Nonce)
	}
	btx := &tx.DAOTx{
		Version: tx.DAOTxVersion0,
		Type:    txType,
		Nonce:   nonce,
		Tx:      stx,
	}
	if err := pv.SignTx(btx, summary.ChainID); err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	dat, err := tx.MarshalDAOTx(btx)
	if err != nil {
		return nil, fmt.Errorf("encode tx: %w", err)
	}
	var res api.TxResponse
	if err := postRaw(args.Url, "/tx", dat, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func printJSON(v any) {
	dat, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("encode result err:%v\n", err)
		return
	}
	fmt.Println(string(dat))
}

