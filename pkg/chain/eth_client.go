package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"acmeramp/pkg/logger"
)

// tokenABI covers the treasury-controlled stablecoin surface we need: mint
// and burn with an audit memo, balance reads, and the Transfer event.
const tokenABI = `[
	{"type":"function","name":"mint","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"},{"name":"memo","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"burn","inputs":[{"name":"amount","type":"uint256"},{"name":"memo","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"balanceOf","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
]`

var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// EthClient signs mint/burn transactions with the treasury key and verifies
// inbound transfers by receipt inspection.
type EthClient struct {
	client         *ethclient.Client
	token          common.Address
	treasuryKey    *ecdsa.PrivateKey
	treasuryAddr   common.Address
	chainID        *big.Int
	abi            abi.ABI
	receiptTimeout time.Duration
}

func NewEthClient(rpcURL, tokenAddress, treasuryPrivateKey string, receiptTimeout time.Duration) (*EthClient, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(treasuryPrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("chain: invalid treasury key: %w", err)
	}
	chainID, err := client.ChainID(context.Background())
	if err != nil {
		return nil, fmt.Errorf("chain: chain id: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		return nil, err
	}
	if receiptTimeout <= 0 {
		receiptTimeout = 90 * time.Second
	}
	return &EthClient{
		client:         client,
		token:          common.HexToAddress(tokenAddress),
		treasuryKey:    key,
		treasuryAddr:   crypto.PubkeyToAddress(key.PublicKey),
		chainID:        chainID,
		abi:            parsed,
		receiptTimeout: receiptTimeout,
	}, nil
}

func (c *EthClient) Close() {
	c.client.Close()
}

func (c *EthClient) TreasuryAddress() string {
	return strings.ToLower(c.treasuryAddr.Hex())
}

// memoWord packs a memo string into a bytes32, truncating if needed.
func memoWord(memo string) [32]byte {
	var w [32]byte
	copy(w[:], memo)
	return w
}

func (c *EthClient) Mint(ctx context.Context, toAddress string, amount *big.Int, memo string) (string, error) {
	data, err := c.abi.Pack("mint", common.HexToAddress(toAddress), amount, memoWord(memo))
	if err != nil {
		return "", err
	}
	return c.submit(ctx, data, memo)
}

func (c *EthClient) Burn(ctx context.Context, amount *big.Int, memo string) (string, error) {
	data, err := c.abi.Pack("burn", amount, memoWord(memo))
	if err != nil {
		return "", err
	}
	return c.submit(ctx, data, memo)
}

// submit signs, sends, and waits for a treasury transaction. A send failure
// is a plain error; a confirmation timeout after a successful send is
// ErrOutcomeUnknown, since the transaction may still be mined.
func (c *EthClient) submit(ctx context.Context, calldata []byte, memo string) (string, error) {
	nonce, err := c.client.PendingNonceAt(ctx, c.treasuryAddr)
	if err != nil {
		return "", fmt.Errorf("chain: nonce: %w", err)
	}
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("chain: gas price: %w", err)
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.token,
		Value:    big.NewInt(0),
		Gas:      200000,
		GasPrice: gasPrice,
		Data:     calldata,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.treasuryKey)
	if err != nil {
		return "", err
	}
	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("chain: send: %w", err)
	}
	hash := signed.Hash()
	logger.WithFields(map[string]interface{}{
		"tx_hash": hash.Hex(),
		"memo":    memo,
	}).Info("submitted treasury transaction")

	waitCtx, cancel := context.WithTimeout(ctx, c.receiptTimeout)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, c.client, signed)
	if err != nil {
		return hash.Hex(), fmt.Errorf("%w: %s not confirmed: %v", ErrOutcomeUnknown, hash.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return hash.Hex(), fmt.Errorf("chain: transaction %s reverted", hash.Hex())
	}
	return hash.Hex(), nil
}

func (c *EthClient) VerifyTransferToTreasury(ctx context.Context, txHash string, expected *big.Int) (bool, error) {
	receipt, err := c.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		// No receipt is a definitive verification failure, not an outage:
		// the hash was never mined and retrying cannot change that.
		if errors.Is(err, ethereum.NotFound) {
			return false, nil
		}
		return false, fmt.Errorf("chain: receipt %s: %w", txHash, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return false, nil
	}
	for _, lg := range receipt.Logs {
		if lg.Address != c.token || len(lg.Topics) < 3 || lg.Topics[0] != transferTopic {
			continue
		}
		to := common.BytesToAddress(lg.Topics[2].Bytes())
		if to != c.treasuryAddr {
			continue
		}
		amount := new(big.Int).SetBytes(lg.Data)
		if amount.Cmp(expected) >= 0 {
			return true, nil
		}
	}
	return false, nil
}

func (c *EthClient) TreasuryBalance(ctx context.Context) (*big.Int, error) {
	data, err := c.abi.Pack("balanceOf", c.treasuryAddr)
	if err != nil {
		return nil, err
	}
	out, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &c.token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: balanceOf: %w", err)
	}
	results, err := c.abi.Unpack("balanceOf", out)
	if err != nil {
		return nil, err
	}
	balance, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("chain: unexpected balanceOf result")
	}
	return balance, nil
}
