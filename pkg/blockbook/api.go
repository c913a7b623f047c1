// Package blockbook defines the public API contracts for the Blockbook client.
package blockbook

import (
	"context"
	"encoding/json"
)

// DetailLevel selects how much data an address or xpub query returns.
type DetailLevel string

// Supported detail levels for account queries.
const (
	DetailBasic         DetailLevel = "basic"
	DetailTokens        DetailLevel = "tokens"
	DetailTokenBalances DetailLevel = "tokenBalances"
	DetailTxids         DetailLevel = "txids"
	DetailTxs           DetailLevel = "txs"
)

// DefaultDetailLevel is used when a caller passes an empty detail level.
const DefaultDetailLevel = DetailTxids

// Valid reports whether the detail level is one of the supported values.
func (d DetailLevel) Valid() bool {
	switch d {
	case DetailBasic, DetailTokens, DetailTokenBalances, DetailTxids, DetailTxs:
		return true
	}
	return false
}

// Vin represents a transaction input as reported by Blockbook.
type Vin struct {
	Txid      string   `json:"txid,omitempty"`
	Vout      uint32   `json:"vout,omitempty"`
	Sequence  int64    `json:"sequence,omitempty"`
	N         int      `json:"n"`
	Addresses []string `json:"addresses,omitempty"`
	IsAddress bool     `json:"isAddress"`
	Value     string   `json:"value,omitempty"`
	Hex       string   `json:"hex,omitempty"`
	Coinbase  string   `json:"coinbase,omitempty"`
}

// Vout represents a transaction output as reported by Blockbook.
type Vout struct {
	Value     string   `json:"value,omitempty"`
	N         int      `json:"n"`
	Spent     bool     `json:"spent,omitempty"`
	Hex       string   `json:"hex,omitempty"`
	Addresses []string `json:"addresses,omitempty"`
	IsAddress bool     `json:"isAddress"`
}

// Transaction is the normalized transaction shape returned by Blockbook.
type Transaction struct {
	Txid          string `json:"txid" validate:"required"`
	Version       int32  `json:"version,omitempty"`
	Vin           []Vin  `json:"vin"`
	Vout          []Vout `json:"vout"`
	BlockHash     string `json:"blockHash,omitempty"`
	BlockHeight   int64  `json:"blockHeight"`
	Confirmations int64  `json:"confirmations"`
	BlockTime     int64  `json:"blockTime"`
	Value         string `json:"value"`
	ValueIn       string `json:"valueIn,omitempty"`
	Fees          string `json:"fees,omitempty"`
	Hex           string `json:"hex,omitempty"`
}

// Token describes a token (or derived address group) attached to an account.
type Token struct {
	Type      string `json:"type"`
	Name      string `json:"name"`
	Path      string `json:"path,omitempty"`
	Contract  string `json:"contract,omitempty"`
	Transfers int    `json:"transfers"`
	Decimals  int    `json:"decimals,omitempty"`
	Balance   string `json:"balance,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
}

// AccountInfo is the union of all detail-level responses for an address or
// xpub query. Sections beyond the basic fields are populated only when the
// requested detail level includes them.
type AccountInfo struct {
	Address            string        `json:"address" validate:"required"`
	Balance            string        `json:"balance" validate:"required"`
	TotalReceived      string        `json:"totalReceived,omitempty"`
	TotalSent          string        `json:"totalSent,omitempty"`
	UnconfirmedBalance string        `json:"unconfirmedBalance,omitempty"`
	UnconfirmedTxs     int           `json:"unconfirmedTxs,omitempty"`
	Txs                int           `json:"txs"`
	ItemsOnPage        int           `json:"itemsOnPage,omitempty"`
	Page               int           `json:"page,omitempty"`
	TotalPages         int           `json:"totalPages,omitempty"`
	Tokens             []Token       `json:"tokens,omitempty"`
	Txids              []string      `json:"txids,omitempty"`
	Transactions       []Transaction `json:"transactions,omitempty"`
}

// UTXO is one unspent output of an address or xpub.
type UTXO struct {
	Txid          string `json:"txid" validate:"required"`
	Vout          uint32 `json:"vout"`
	Value         string `json:"value" validate:"required"`
	Height        int64  `json:"height,omitempty"`
	Confirmations int64  `json:"confirmations"`
	Coinbase      bool   `json:"coinbase,omitempty"`
	Path          string `json:"path,omitempty"`
}

// Block is a full block as returned by the HTTP block endpoint.
type Block struct {
	Hash              string        `json:"hash" validate:"required"`
	PreviousBlockHash string        `json:"previousBlockHash,omitempty"`
	NextBlockHash     string        `json:"nextBlockHash,omitempty"`
	Height            int64         `json:"height"`
	Confirmations     int64         `json:"confirmations"`
	Size              int           `json:"size,omitempty"`
	Time              int64         `json:"time,omitempty"`
	Version           json.Number   `json:"version,omitempty"`
	MerkleRoot        string        `json:"merkleRoot,omitempty"`
	Nonce             string        `json:"nonce,omitempty"`
	Bits              string        `json:"bits,omitempty"`
	Difficulty        string        `json:"difficulty,omitempty"`
	TxCount           int           `json:"txCount"`
	Txs               []Transaction `json:"txs,omitempty"`
}

// SystemInfo is the WebSocket getInfo response.
type SystemInfo struct {
	Name       string `json:"name" validate:"required"`
	Shortcut   string `json:"shortcut"`
	Decimals   int    `json:"decimals"`
	Version    string `json:"version,omitempty"`
	BestHeight int64  `json:"bestHeight"`
	BestHash   string `json:"bestHash,omitempty"`
	Block0Hash string `json:"block0Hash,omitempty"`
	Testnet    bool   `json:"testnet"`
}

// StatusInfo is the HTTP status response. Its shape is distinct from the
// WebSocket getInfo response and the two are not interchangeable.
type StatusInfo struct {
	Blockbook struct {
		Coin            string `json:"coin" validate:"required"`
		Host            string `json:"host,omitempty"`
		Version         string `json:"version,omitempty"`
		BestHeight      int64  `json:"bestHeight"`
		InSync          bool   `json:"inSync"`
		InSyncMempool   bool   `json:"inSyncMempool"`
		LastBlockTime   string `json:"lastBlockTime,omitempty"`
		LastMempoolTime string `json:"lastMempoolTime,omitempty"`
	} `json:"blockbook"`
	Backend struct {
		Chain         string `json:"chain,omitempty"`
		Blocks        int64  `json:"blocks"`
		BestBlockHash string `json:"bestBlockHash,omitempty"`
		Difficulty    string `json:"difficulty,omitempty"`
		Version       string `json:"version,omitempty"`
	} `json:"backend"`
}

// FeeEstimate is the estimated fee per kilobyte for a confirmation target.
type FeeEstimate struct {
	FeePerUnit string `json:"feePerUnit,omitempty"`
	FeePerTx   string `json:"feePerTx,omitempty"`
	Result     string `json:"result,omitempty"`
}

// SendResult carries the txid of a successfully broadcast transaction.
type SendResult struct {
	Result string `json:"result" validate:"required"`
}

// BalanceHistoryEntry is one aggregation bucket of an account's history.
type BalanceHistoryEntry struct {
	Time       int64              `json:"time"`
	Txs        int                `json:"txs"`
	Received   string             `json:"received"`
	Sent       string             `json:"sent"`
	SentToSelf string             `json:"sentToSelf,omitempty"`
	FiatRates  map[string]float64 `json:"rates,omitempty"`
}

// BalanceHistoryOptions narrows a balance history query.
type BalanceHistoryOptions struct {
	From     int64
	To       int64
	GroupBy  int
	Currency string
}

// BlockNotification is pushed for every new block on the chain.
type BlockNotification struct {
	Height int64  `json:"height"`
	Hash   string `json:"hash"`
}

// AddressNotification is pushed when a watched address appears in a
// transaction.
type AddressNotification struct {
	Address string          `json:"address"`
	Tx      json.RawMessage `json:"tx"`
}

// BlockHandler receives new-block notifications.
type BlockHandler func(n BlockNotification)

// TransactionHandler receives new-transaction notifications.
type TransactionHandler func(tx json.RawMessage)

// AddressHandler receives notifications for watched addresses.
type AddressHandler func(n AddressNotification)

// Client defines the public interface of the Blockbook client. Query methods
// prefer the WebSocket session when it is connected and fall back to HTTP
// otherwise; subscription methods and GetInfo require a connected session,
// and GetBlock/GetStatus are HTTP-only.
type Client interface {
	// Connect opens the WebSocket session to the next pooled node. It is a
	// no-op when already connected. Subscriptions never survive a
	// reconnect; callers must resubscribe after every successful Connect.
	Connect(ctx context.Context) error

	// Disconnect closes the WebSocket session. It is a no-op when not
	// connected.
	Disconnect(ctx context.Context) error

	// IsConnected reports whether the WebSocket session is live.
	IsConnected() bool

	// GetBlockHash returns the hash of the block at the given height.
	GetBlockHash(ctx context.Context, height uint64) (string, error)

	// GetBlock fetches a block by height or hash. HTTP-only.
	GetBlock(ctx context.Context, heightOrHash string) (*Block, error)

	// GetTransaction fetches the normalized form of a transaction.
	GetTransaction(ctx context.Context, txid string) (*Transaction, error)

	// GetTransactionSpecific fetches the backend-specific raw form of a
	// transaction.
	GetTransactionSpecific(ctx context.Context, txid string) (json.RawMessage, error)

	// GetAccountInfo fetches address or xpub details at the given detail
	// level. An empty level means DefaultDetailLevel.
	GetAccountInfo(ctx context.Context, descriptor string, level DetailLevel) (*AccountInfo, error)

	// GetUTXOs lists the unspent outputs of an address or xpub.
	GetUTXOs(ctx context.Context, descriptor string) ([]UTXO, error)

	// GetBalanceHistory returns aggregated balance history for an address
	// or xpub.
	GetBalanceHistory(ctx context.Context, descriptor string, opts *BalanceHistoryOptions) ([]BalanceHistoryEntry, error)

	// EstimateFee estimates the fee for confirmation within the given
	// number of blocks.
	EstimateFee(ctx context.Context, blocks int) (*FeeEstimate, error)

	// SendTransaction broadcasts a raw transaction given as a hex string.
	SendTransaction(ctx context.Context, txHex string) (*SendResult, error)

	// GetInfo returns chain information over the WebSocket session. It
	// fails with a precondition error when the session is not connected;
	// GetStatus is the HTTP status call with a different shape.
	GetInfo(ctx context.Context) (*SystemInfo, error)

	// GetStatus returns the HTTP status page of a node.
	GetStatus(ctx context.Context) (*StatusInfo, error)

	// SubscribeNewBlock registers fn for every new block.
	SubscribeNewBlock(ctx context.Context, fn BlockHandler) error

	// UnsubscribeNewBlock cancels the new-block subscription.
	UnsubscribeNewBlock(ctx context.Context) error

	// SubscribeNewTransaction registers fn for every new mempool
	// transaction.
	SubscribeNewTransaction(ctx context.Context, fn TransactionHandler) error

	// UnsubscribeNewTransaction cancels the new-transaction subscription.
	UnsubscribeNewTransaction(ctx context.Context) error

	// SubscribeAddresses registers fn for transactions touching any of the
	// given addresses. Calling it again replaces the watched set.
	SubscribeAddresses(ctx context.Context, addresses []string, fn AddressHandler) error

	// UnsubscribeAddresses cancels the address subscription.
	UnsubscribeAddresses(ctx context.Context) error
}
