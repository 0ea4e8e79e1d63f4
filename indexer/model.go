package indexer

// sqlite models

type Proposal struct {
	Id               uint64 `gorm:"primaryKey" json:"-"`
	ProposalId       uint64 `gorm:"unique_index" json:"id"`
	Title            string `json:"title"`
	ProposerAddress  string `json:"proposer_address"`
	RecipientAddress string `json:"recipient_address"`
	Amount           uint64 `json:"amount"`
	Votes            uint64 `json:"votes"`
	TotalShares      uint64 `json:"total_shares"`
	Status           uint64 `json:"status"`
	TransferError    string `json:"transfer_error"`
	CreateTimestamp  int64  `json:"create_timestamp"`
	ExpireTimestamp  int64  `json:"expire_timestamp"`
	SettleTimestamp  int64  `json:"settle_timestamp"`
}

type ProposalVote struct {
	Id           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Proposal     uint64 `gorm:"index" json:"proposal"`
	VoterAddress string `gorm:"index" json:"voter_address"`
	Weight       uint64 `json:"weight"`
	Timestamp    int64  `json:"timestamp"`
}

// Activity is one membership change: init, join, redeem or share transfer.
type Activity struct {
	Id           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind         string `json:"kind"`
	Investor     string `gorm:"index" json:"investor"`
	Counterparty string `json:"counterparty"`
	Amount       uint64 `json:"amount"`
	Timestamp    int64  `json:"timestamp"`
}
