package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"conviction_voting/internal/domain/entity"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// ERC20 ABI minimal part for balanceOf
const erc20ABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}]`

// Conviction voting ABI minimal part for staking and stake totals.
const convictionVotingABI = `[
{"constant":false,"inputs":[{"name":"_proposalId","type":"uint256"},{"name":"_amount","type":"uint256"}],"name":"stakeToProposal","outputs":[],"payable":false,"stateMutability":"nonpayable","type":"function"},
{"constant":true,"inputs":[{"name":"_voter","type":"address"}],"name":"getTotalVoterStake","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}
]`

const (
	methodBalanceOf          = "balanceOf"
	methodGetTotalVoterStake = "getTotalVoterStake"
	methodStakeToProposal    = "stakeToProposal"
)

// ErrEmptyCallResult means a view call returned no data, usually because the
// configured address holds no contract.
var ErrEmptyCallResult = errors.New("empty call result")

var (
	parsedERC20ABI abi.ABI
	parsedCVABI    abi.ABI
	parseABIOnce   sync.Once
)

func initParsedABIs() {
	parseABIOnce.Do(func() {
		var err error
		parsedERC20ABI, err = abi.JSON(strings.NewReader(erc20ABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse ERC20 ABI: %v", err))
		}
		parsedCVABI, err = abi.JSON(strings.NewReader(convictionVotingABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse conviction voting ABI: %v", err))
		}
	})
}

// ConvictionVotingClient reads stake positions from a conviction voting app
// and prepares stake calls against it. It implements port.StakeReader and
// port.StakingAPI.
type ConvictionVotingClient struct {
	evm      *EVMClient
	contract common.Address
	token    common.Address
}

// NewConvictionVotingClient binds evm to the app at contractAddress whose
// stake token lives at tokenAddress.
func NewConvictionVotingClient(evm *EVMClient, contractAddress, tokenAddress string) (*ConvictionVotingClient, error) {
	initParsedABIs()
	if !common.IsHexAddress(contractAddress) {
		return nil, fmt.Errorf("invalid conviction voting address %q", contractAddress)
	}
	if !common.IsHexAddress(tokenAddress) {
		return nil, fmt.Errorf("invalid stake token address %q", tokenAddress)
	}
	return &ConvictionVotingClient{
		evm:      evm,
		contract: common.HexToAddress(contractAddress),
		token:    common.HexToAddress(tokenAddress),
	}, nil
}

type viewCall struct {
	to     common.Address
	abi    *abi.ABI
	method string
	args   []any
}

// callViews runs every view call in a single JSON-RPC batch and unpacks
// each uint256 result.
func (c *ConvictionVotingClient) callViews(ctx context.Context, calls []viewCall) ([]*big.Int, error) {
	batchElems := make([]rpc.BatchElem, len(calls))
	for i, vc := range calls {
		data, err := vc.abi.Pack(vc.method, vc.args...)
		if err != nil {
			return nil, fmt.Errorf("failed to pack %s: %w", vc.method, err)
		}
		callArgs := map[string]interface{}{
			"to":   vc.to,
			"data": hexutil.Bytes(data),
		}
		batchElems[i] = rpc.BatchElem{
			Method: "eth_call",
			Args:   []interface{}{callArgs, "latest"},
			Result: new(hexutil.Bytes),
		}
	}

	if err := c.evm.BatchCall(ctx, batchElems); err != nil {
		return nil, err
	}

	results := make([]*big.Int, len(calls))
	for i, elem := range batchElems {
		if elem.Error != nil {
			return nil, fmt.Errorf("%s on %s: %w", calls[i].method, calls[i].to.Hex(), elem.Error)
		}
		raw, ok := elem.Result.(*hexutil.Bytes)
		if !ok || raw == nil || len(*raw) == 0 {
			// An account without code answers eth_call with "0x".
			return nil, fmt.Errorf("%s on %s: %w", calls[i].method, calls[i].to.Hex(), ErrEmptyCallResult)
		}
		unpacked, err := calls[i].abi.Unpack(calls[i].method, *raw)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack %s result: %w. Raw: %s", calls[i].method, err, hexutil.Encode(*raw))
		}
		if len(unpacked) == 0 {
			return nil, fmt.Errorf("%s unpack returned no data", calls[i].method)
		}
		value, ok := unpacked[0].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("failed to assert %s result to *big.Int. Got: %T", calls[i].method, unpacked[0])
		}
		results[i] = value
	}
	return results, nil
}

func (c *ConvictionVotingClient) balanceOfCall(account common.Address) viewCall {
	return viewCall{to: c.token, abi: &parsedERC20ABI, method: methodBalanceOf, args: []any{account}}
}

func (c *ConvictionVotingClient) totalStakeCall(account common.Address) viewCall {
	return viewCall{to: c.contract, abi: &parsedCVABI, method: methodGetTotalVoterStake, args: []any{account}}
}

func parseAccount(account string) (common.Address, error) {
	if !common.IsHexAddress(account) {
		return common.Address{}, fmt.Errorf("invalid account address %q", account)
	}
	return common.HexToAddress(account), nil
}

// TokenBalance returns the account's stake token balance.
func (c *ConvictionVotingClient) TokenBalance(ctx context.Context, account string) (*big.Int, error) {
	addr, err := parseAccount(account)
	if err != nil {
		return nil, err
	}
	res, err := c.callViews(ctx, []viewCall{c.balanceOfCall(addr)})
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

// TotalStaked returns the amount the account has staked across all proposals.
func (c *ConvictionVotingClient) TotalStaked(ctx context.Context, account string) (*big.Int, error) {
	addr, err := parseAccount(account)
	if err != nil {
		return nil, err
	}
	res, err := c.callViews(ctx, []viewCall{c.totalStakeCall(addr)})
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

// StakeBalances reads the balance and the staked total in one round trip.
func (c *ConvictionVotingClient) StakeBalances(ctx context.Context, account string) (*entity.StakeBalances, error) {
	addr, err := parseAccount(account)
	if err != nil {
		return nil, err
	}
	res, err := c.callViews(ctx, []viewCall{c.balanceOfCall(addr), c.totalStakeCall(addr)})
	if err != nil {
		return nil, err
	}
	return &entity.StakeBalances{Account: addr.Hex(), Balance: res[0], Staked: res[1]}, nil
}

// StakeToProposal encodes an unsigned stakeToProposal call. amount is the
// scaled integer amount in base-10.
func (c *ConvictionVotingClient) StakeToProposal(_ context.Context, proposalID *big.Int, amount string) (*entity.PreparedCall, error) {
	if proposalID == nil || proposalID.Sign() < 0 {
		return nil, fmt.Errorf("invalid proposal id %v", proposalID)
	}
	value, ok := new(big.Int).SetString(amount, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("invalid stake amount %q", amount)
	}

	data, err := parsedCVABI.Pack(methodStakeToProposal, proposalID, value)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", methodStakeToProposal, err)
	}

	return &entity.PreparedCall{
		To:         c.contract.Hex(),
		Data:       hexutil.Encode(data),
		Method:     methodStakeToProposal,
		ProposalID: proposalID.String(),
		Amount:     value.String(),
	}, nil
}
