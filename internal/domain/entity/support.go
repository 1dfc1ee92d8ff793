package entity

import "math/big"

// StakeBalances is what the chain knows about an account's stake token.
type StakeBalances struct {
	Account string
	// Balance is the full stake token balance.
	Balance *big.Int
	// Staked is the part already committed to other proposals.
	Staked *big.Int
}

// SupportForm is the derived state of the "support this proposal" form.
type SupportForm struct {
	Account            string `json:"account"`
	Value              string `json:"value"`
	Amount             string `json:"amount,omitempty"`
	Error              string `json:"error,omitempty"`
	CanSubmit          bool   `json:"canSubmit"`
	TokenSymbol        string `json:"tokenSymbol"`
	Decimals           uint8  `json:"decimals"`
	Available          string `json:"available"`
	Staked             string `json:"staked"`
	FormattedAvailable string `json:"formattedAvailable"`
	FormattedStaked    string `json:"formattedStaked"`
	AvailablePercent   int    `json:"availablePercent"`
	StakedPercent      int    `json:"stakedPercent"`
}

// PreparedCall is an unsigned contract call ready to be signed by a wallet.
type PreparedCall struct {
	To         string `json:"to"`
	Data       string `json:"data"`
	Method     string `json:"method"`
	ProposalID string `json:"proposalId"`
	Amount     string `json:"amount"`
}
