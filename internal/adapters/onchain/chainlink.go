// Package onchain reads the Chainlink BTC/USD price feed directly off
// Polygon, used as a strike-latch fallback and as a fallback when
// the spot WebSocket feed stalls. Read-only: no signing, no transactions,
// no token approvals. Grounded on the teacher's ABI-JSON-literal init and
// ethclient.CallContract/abi Pack-Unpack pattern for read-only contract
// calls.
package onchain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// aggregatorABI is the subset of the Chainlink AggregatorV3Interface this
// bot needs: latestRoundData() and decimals().
const aggregatorABI = `[
	{
		"inputs": [],
		"name": "latestRoundData",
		"outputs": [
			{"internalType": "uint80", "name": "roundId", "type": "uint80"},
			{"internalType": "int256", "name": "answer", "type": "int256"},
			{"internalType": "uint256", "name": "startedAt", "type": "uint256"},
			{"internalType": "uint256", "name": "updatedAt", "type": "uint256"},
			{"internalType": "uint80", "name": "answeredInRound", "type": "uint80"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "decimals",
		"outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

var parsedAggregatorABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(aggregatorABI))
	if err != nil {
		panic(fmt.Sprintf("onchain: invalid aggregator ABI: %v", err))
	}
	parsedAggregatorABI = parsed
}

// maxStale bounds how old a round's updatedAt may be before its price is
// rejected as stale rather than silently served.
const maxStale = 5 * time.Minute

// ChainlinkFeed reads the BTC/USD Chainlink aggregator on Polygon via a
// plain eth_call, with no wallet and no private key anywhere in the
// process. Implements ports.OnChainFeed.
type ChainlinkFeed struct {
	client     *ethclient.Client
	aggregator common.Address
	decimals   *uint8
}

// NewChainlinkFeed dials rpcURL (an HTTP or WS Polygon RPC endpoint) and
// targets the aggregator at aggregatorAddr.
func NewChainlinkFeed(ctx context.Context, rpcURL string, aggregatorAddr string) (*ChainlinkFeed, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("onchain.NewChainlinkFeed: dial %s: %w", rpcURL, err)
	}
	return &ChainlinkFeed{
		client:     client,
		aggregator: common.HexToAddress(aggregatorAddr),
	}, nil
}

// Close releases the underlying RPC connection.
func (f *ChainlinkFeed) Close() {
	f.client.Close()
}

type latestRoundData struct {
	RoundID         *big.Int
	Answer          *big.Int
	StartedAt       *big.Int
	UpdatedAt       *big.Int
	AnsweredInRound *big.Int
}

// LatestPrice implements ports.OnChainFeed: calls latestRoundData(),
// scales the integer answer by the feed's decimals, and rejects a round
// whose updatedAt is older than maxStale.
func (f *ChainlinkFeed) LatestPrice(ctx context.Context) (float64, error) {
	decimals, err := f.fetchDecimals(ctx)
	if err != nil {
		return 0, fmt.Errorf("onchain.LatestPrice: %w", err)
	}

	data, err := parsedAggregatorABI.Pack("latestRoundData")
	if err != nil {
		return 0, fmt.Errorf("onchain.LatestPrice: pack call: %w", err)
	}

	raw, err := f.client.CallContract(ctx, ethereum.CallMsg{
		To:   &f.aggregator,
		Data: data,
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("onchain.LatestPrice: call contract: %w", err)
	}

	var round latestRoundData
	if err := parsedAggregatorABI.UnpackIntoInterface(&round, "latestRoundData", raw); err != nil {
		return 0, fmt.Errorf("onchain.LatestPrice: unpack result: %w", err)
	}

	updatedAt := time.Unix(round.UpdatedAt.Int64(), 0)
	if time.Since(updatedAt) > maxStale {
		return 0, fmt.Errorf("onchain.LatestPrice: stale round, updated %s ago", time.Since(updatedAt))
	}
	if round.Answer.Sign() <= 0 {
		return 0, fmt.Errorf("onchain.LatestPrice: non-positive answer %s", round.Answer)
	}

	scale := new(big.Float).SetFloat64(pow10(decimals))
	price := new(big.Float).Quo(new(big.Float).SetInt(round.Answer), scale)
	f64, _ := price.Float64()
	return f64, nil
}

func (f *ChainlinkFeed) fetchDecimals(ctx context.Context) (uint8, error) {
	if f.decimals != nil {
		return *f.decimals, nil
	}

	data, err := parsedAggregatorABI.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("pack decimals call: %w", err)
	}
	raw, err := f.client.CallContract(ctx, ethereum.CallMsg{
		To:   &f.aggregator,
		Data: data,
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("call decimals: %w", err)
	}
	var d uint8
	if err := parsedAggregatorABI.UnpackIntoInterface(&d, "decimals", raw); err != nil {
		return 0, fmt.Errorf("unpack decimals: %w", err)
	}
	f.decimals = &d
	return d, nil
}

func pow10(n uint8) float64 {
	v := 1.0
	for i := uint8(0); i < n; i++ {
		v *= 10
	}
	return v
}
