package blockchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"payable":false,"stateMutability":"view","type":"function"}
]`

// TokenInfo identifies an ERC-20 contract
type TokenInfo struct {
	Symbol           string
	Address          common.Address
	FallbackDecimals uint8
}

// TokenBalance retrieves the ERC-20 balance of wallet. When the contract
// does not answer decimals(), FallbackDecimals is used.
func (c *Client) TokenBalance(ctx context.Context, wallet common.Address, token TokenInfo) (Balance, error) {
	rpcCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	result := Balance{Symbol: token.Symbol, Decimals: token.FallbackDecimals}

	var balanceResult []any
	err := c.retryWithBackoff(rpcCtx, func(backend Backend) error {
		balanceResult = nil
		contract := bind.NewBoundContract(token.Address, c.parsedABI, backend, nil, nil)
		return contract.Call(&bind.CallOpts{Context: rpcCtx}, &balanceResult, "balanceOf", wallet)
	})
	if err != nil {
		return result, fmt.Errorf("balanceOf %s: %w", token.Symbol, err)
	}
	raw, ok := balanceResult[0].(*big.Int)
	if !ok {
		return result, fmt.Errorf("balanceOf %s: unexpected result type %T", token.Symbol, balanceResult[0])
	}
	result.Raw = raw

	// decimals() is a single attempt; the configured fallback covers failures
	backend, _, err := c.failoverClient.GetClient(rpcCtx)
	if err == nil {
		var decimalsResult []any
		contract := bind.NewBoundContract(token.Address, c.parsedABI, backend, nil, nil)
		if err := contract.Call(&bind.CallOpts{Context: rpcCtx}, &decimalsResult, "decimals"); err == nil {
			if d, ok := decimalsResult[0].(uint8); ok {
				result.Decimals = d
			}
		}
	}

	return result, nil
}
