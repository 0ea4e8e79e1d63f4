package types

import (
	"fmt"
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
)

const (
	EventInitType            = "init"
	EventJoinType            = "join"
	EventRedeemType          = "redeem"
	EventTransferSharesType  = "transfer_shares"
	EventProposalType        = "proposal"
	EventVoteType            = "vote"
	EventExecuteProposalType = "execute_proposal"
)

type EventInit struct {
	Admin            common.Address `json:"admin"`
	Quorum           uint64         `json:"quorum"`
	VoteDuration     int64          `json:"voteDuration"`
	ContributionEnds int64          `json:"contributionEnds"`
	Network          string         `json:"network"`
}

func EncodeEventInit(event *EventInit) abci.Event {
	return abci.Event{
		Type: EventInitType,
		Attributes: []abci.EventAttribute{
			{Key: "admin", Value: event.Admin.Hex(), Index: true},
			{Key: "quorum", Value: fmt.Sprintf("%v", event.Quorum), Index: false},
			{Key: "voteDuration", Value: fmt.Sprintf("%v", event.VoteDuration), Index: false},
			{Key: "contributionEnds", Value: fmt.Sprintf("%v", event.ContributionEnds), Index: false},
			{Key: "network", Value: event.Network, Index: false},
		},
	}
}

func DecodeEventInit(originEvent abci.Event) *EventInit {
	event := &EventInit{}
	for _, v := range originEvent.Attributes {
		var err error
		switch v.Key {
		case "admin":
			event.Admin, err = parseAddress(v.Value)
		case "quorum":
			event.Quorum, err = strconv.ParseUint(v.Value, 10, 64)
		case "voteDuration":
			event.VoteDuration, err = strconv.ParseInt(v.Value, 10, 64)
		case "contributionEnds":
			event.ContributionEnds, err = strconv.ParseInt(v.Value, 10, 64)
		case "network":
			event.Network = v.Value
		}
		if err != nil {
			return nil
		}
	}
	return event
}

type EventJoin struct {
	Investor common.Address `json:"investor"`
	Amount   uint64         `json:"amount"`
	Shares   uint64         `json:"shares"`
}

func EncodeEventJoin(event *EventJoin) abci.Event {
	return abci.Event{
		Type: EventJoinType,
		Attributes: []abci.EventAttribute{
			{Key: "investor", Value: event.Investor.Hex(), Index: true},
			{Key: "amount", Value: fmt.Sprintf("%v", event.Amount), Index: false},
			{Key: "shares", Value: fmt.Sprintf("%v", event.Shares), Index: false},
		},
	}
}

func DecodeEventJoin(originEvent abci.Event) *EventJoin {
	event := &EventJoin{}
	for _, v := range originEvent.Attributes {
		var err error
		switch v.Key {
		case "investor":
			event.Investor, err = parseAddress(v.Value)
		case "amount":
			event.Amount, err = strconv.ParseUint(v.Value, 10, 64)
		case "shares":
			event.Shares, err = strconv.ParseUint(v.Value, 10, 64)
		}
		if err != nil {
			return nil
		}
	}
	return event
}

type EventRedeem struct {
	Investor    common.Address `json:"investor"`
	Destination common.Address `json:"destination"`
	Amount      uint64         `json:"amount"`
	Shares      uint64         `json:"shares"`
}

func EncodeEventRedeem(event *EventRedeem) abci.Event {
	return abci.Event{
		Type: EventRedeemType,
		Attributes: []abci.EventAttribute{
			{Key: "investor", Value: event.Investor.Hex(), Index: true},
			{Key: "destination", Value: event.Destination.Hex(), Index: false},
			{Key: "amount", Value: fmt.Sprintf("%v", event.Amount), Index: false},
			{Key: "shares", Value: fmt.Sprintf("%v", event.Shares), Index: false},
		},
	}
}

func DecodeEventRedeem(originEvent abci.Event) *EventRedeem {
	event := &EventRedeem{}
	for _, v := range originEvent.Attributes {
		var err error
		switch v.Key {
		case "investor":
			event.Investor, err = parseAddress(v.Value)
		case "destination":
			event.Destination, err = parseAddress(v.Value)
		case "amount":
			event.Amount, err = strconv.ParseUint(v.Value, 10, 64)
		case "shares":
			event.Shares, err = strconv.ParseUint(v.Value, 10, 64)
		}
		if err != nil {
			return nil
		}
	}
	return event
}

type EventTransferShares struct {
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Amount uint64         `json:"amount"`
}

func EncodeEventTransferShares(event *EventTransferShares) abci.Event {
	return abci.Event{
		Type: EventTransferSharesType,
		Attributes: []abci.EventAttribute{
			{Key: "from", Value: event.From.Hex(), Index: true},
			{Key: "to", Value: event.To.Hex(), Index: true},
			{Key: "amount", Value: fmt.Sprintf("%v", event.Amount), Index: false},
		},
	}
}

func DecodeEventTransferShares(originEvent abci.Event) *EventTransferShares {
	event := &EventTransferShares{}
	for _, v := range originEvent.Attributes {
		var err error
		switch v.Key {
		case "from":
			event.From, err = parseAddress(v.Value)
		case "to":
			event.To, err = parseAddress(v.Value)
		case "amount":
			event.Amount, err = strconv.ParseUint(v.Value, 10, 64)
		}
		if err != nil {
			return nil
		}
	}
	return event
}

type EventProposal struct {
	ProposalID uint64         `json:"proposal"`
	Proposer   common.Address `json:"proposer"`
	Recipient  common.Address `json:"recipient"`
	Amount     uint64         `json:"amount"`
	Ends       int64          `json:"ends"`
	Title      string         `json:"title"`
}

func EncodeEventProposal(event *EventProposal) abci.Event {
	return abci.Event{
		Type: EventProposalType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", event.ProposalID), Index: true},
			{Key: "proposer", Value: event.Proposer.Hex(), Index: true},
			{Key: "recipient", Value: event.Recipient.Hex(), Index: false},
			{Key: "amount", Value: fmt.Sprintf("%v", event.Amount), Index: false},
			{Key: "ends", Value: fmt.Sprintf("%v", event.Ends), Index: false},
			{Key: "title", Value: event.Title, Index: false},
		},
	}
}

func DecodeEventProposal(originEvent abci.Event) *EventProposal {
	event := &EventProposal{}
	for _, v := range originEvent.Attributes {
		var err error
		switch v.Key {
		case "proposal":
			event.ProposalID, err = strconv.ParseUint(v.Value, 10, 64)
		case "proposer":
			event.Proposer, err = parseAddress(v.Value)
		case "recipient":
			event.Recipient, err = parseAddress(v.Value)
		case "amount":
			event.Amount, err = strconv.ParseUint(v.Value, 10, 64)
		case "ends":
			event.Ends, err = strconv.ParseInt(v.Value, 10, 64)
		case "title":
			event.Title = v.Value
		}
		if err != nil {
			return nil
		}
	}
	return event
}

type EventVote struct {
	ProposalID uint64         `json:"proposal"`
	Voter      common.Address `json:"voter"`
	Weight     uint64         `json:"weight"`
	Votes      uint64         `json:"votes"`
}

func EncodeEventVote(event *EventVote) abci.Event {
	return abci.Event{
		Type: EventVoteType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", event.ProposalID), Index: true},
			{Key: "voter", Value: event.Voter.Hex(), Index: true},
			{Key: "weight", Value: fmt.Sprintf("%v", event.Weight), Index: false},
			{Key: "votes", Value: fmt.Sprintf("%v", event.Votes), Index: false},
		},
	}
}

func DecodeEventVote(originEvent abci.Event) *EventVote {
	event := &EventVote{}
	for _, v := range originEvent.Attributes {
		var err error
		switch v.Key {
		case "proposal":
			event.ProposalID, err = strconv.ParseUint(v.Value, 10, 64)
		case "voter":
			event.Voter, err = parseAddress(v.Value)
		case "weight":
			event.Weight, err = strconv.ParseUint(v.Value, 10, 64)
		case "votes":
			event.Votes, err = strconv.ParseUint(v.Value, 10, 64)
		}
		if err != nil {
			return nil
		}
	}
	return event
}

type EventExecuteProposal struct {
	ProposalID    uint64         `json:"proposal"`
	Recipient     common.Address `json:"recipient"`
	Amount        uint64         `json:"amount"`
	Votes         uint64         `json:"votes"`
	TotalShares   uint64         `json:"totalShares"`
	Executed      bool           `json:"executed"`
	TransferError string         `json:"transferError"`
}

func EncodeEventExecuteProposal(event *EventExecuteProposal) abci.Event {
	return abci.Event{
		Type: EventExecuteProposalType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", event.ProposalID), Index: true},
			{Key: "recipient", Value: event.Recipient.Hex(), Index: false},
			{Key: "amount", Value: fmt.Sprintf("%v", event.Amount), Index: false},
			{Key: "votes", Value: fmt.Sprintf("%v", event.Votes), Index: false},
			{Key: "totalShares", Value: fmt.Sprintf("%v", event.TotalShares), Index: false},
			{Key: "executed", Value: fmt.Sprintf("%v", event.Executed), Index: false},
			{Key: "transferError", Value: event.TransferError, Index: false},
		},
	}
}

func DecodeEventExecuteProposal(originEvent abci.Event) *EventExecuteProposal {
	event := &EventExecuteProposal{}
	for _, v := range originEvent.Attributes {
		var err error
		switch v.Key {
		case "proposal":
			event.ProposalID, err = strconv.ParseUint(v.Value, 10, 64)
		case "recipient":
			event.Recipient, err = parseAddress(v.Value)
		case "amount":
			event.Amount, err = strconv.ParseUint(v.Value, 10, 64)
		case "votes":
			event.Votes, err = strconv.ParseUint(v.Value, 10, 64)
		case "totalShares":
			event.TotalShares, err = strconv.ParseUint(v.Value, 10, 64)
		case "executed":
			event.Executed, err = strconv.ParseBool(v.Value)
		case "transferError":
			event.TransferError = v.Value
		}
		if err != nil {
			return nil
		}
	}
	return event
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}
