// Package application implements the Blockbook query facade: every domain
// operation picks the WebSocket session while it is connected, falls back
// to one-shot HTTP otherwise, and funnels the raw result through the schema
// validator.
package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"blockbookclient/internal/adapters/rest"
	"blockbookclient/internal/adapters/wsrpc"
	"blockbookclient/internal/core/domain"
	"blockbookclient/internal/core/domain/client"
	"blockbookclient/internal/logger"
	"blockbookclient/pkg/blockbook"
)

// Config holds the construction-time configuration of the client.
type Config struct {
	// Nodes is the ordered, non-empty list of Blockbook endpoints.
	Nodes []string

	// DisableTypeValidation switches the response validator to permissive
	// mode for the lifetime of the client.
	DisableTypeValidation bool

	// RequestTimeout bounds every WebSocket request. Zero means the
	// session default (5 s).
	RequestTimeout time.Duration

	// PingInterval spaces the liveness probes. Zero means the session
	// default (25 s).
	PingInterval time.Duration

	// HTTPTimeout bounds every one-shot HTTP call. Zero means the REST
	// adapter default.
	HTTPTimeout time.Duration

	// Logger receives session and dispatch diagnostics. Nil discards them.
	Logger logger.AppLogger
}

// BlockbookService implements the blockbook.Client interface.
type BlockbookService struct {
	pool    *domain.NodePool
	http    client.HTTPRequester
	session client.SocketSession
	schemas *SchemaValidator
	logger  logger.AppLogger
}

// Compile-time check to ensure BlockbookService implements blockbook.Client
var _ blockbook.Client = (*BlockbookService)(nil)

// NewBlockbookService builds a client from configuration, wiring the
// default REST and WebSocket transports over one shared node pool.
func NewBlockbookService(cfg Config) (*BlockbookService, error) {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}

	pool, err := domain.NewNodePool(cfg.Nodes, &domain.Counter{})
	if err != nil {
		return nil, err
	}

	httpTimeout := cfg.HTTPTimeout
	if httpTimeout <= 0 {
		httpTimeout = rest.DefaultRequestTimeout
	}
	httpTransport := rest.NewBlockbookAdapter(&http.Client{Timeout: httpTimeout}, cfg.Logger)

	session := wsrpc.NewSession(pool, wsrpc.Options{
		RequestTimeout: cfg.RequestTimeout,
		PingInterval:   cfg.PingInterval,
		Logger:         cfg.Logger,
	})

	return NewBlockbookServiceWith(pool, httpTransport, session, cfg.DisableTypeValidation, cfg.Logger)
}

// NewBlockbookServiceWith wires explicit collaborators. Tests use it to
// substitute transports.
func NewBlockbookServiceWith(
	pool *domain.NodePool,
	httpTransport client.HTTPRequester,
	session client.SocketSession,
	disableTypeValidation bool,
	appLogger logger.AppLogger,
) (*BlockbookService, error) {
	if appLogger == nil {
		appLogger = logger.NewNopLogger()
	}
	if pool == nil {
		return nil, errors.New("NewBlockbookServiceWith: pool is nil")
	}
	if httpTransport == nil {
		return nil, errors.New("NewBlockbookServiceWith: httpTransport is nil")
	}
	if session == nil {
		return nil, errors.New("NewBlockbookServiceWith: session is nil")
	}

	return &BlockbookService{
		pool:    pool,
		http:    httpTransport,
		session: session,
		schemas: NewSchemaValidator(!disableTypeValidation),
		logger:  appLogger,
	}, nil
}

// Connect opens the WebSocket session; see client.SocketSession.Connect.
func (s *BlockbookService) Connect(ctx context.Context) error {
	return s.session.Connect(ctx)
}

// Disconnect closes the WebSocket session.
func (s *BlockbookService) Disconnect(ctx context.Context) error {
	return s.session.Disconnect(ctx)
}

// IsConnected reports whether the WebSocket session is live.
func (s *BlockbookService) IsConnected() bool {
	return s.session.IsConnected()
}

// call dispatches one query to the preferred transport: the WebSocket
// session while connected, otherwise HTTP against the next pooled node.
func (s *BlockbookService) call(
	ctx context.Context,
	wsMethod string,
	wsParams any,
	httpMethod, httpPath string,
	query url.Values,
	body []byte,
) (json.RawMessage, error) {
	if s.session.IsConnected() {
		return s.session.Request(ctx, "", wsMethod, wsParams)
	}
	return s.http.Request(ctx, httpMethod, s.pool.Next(), httpPath, query, body)
}

// GetBlockHash returns the hash of the block at the given height.
func (s *BlockbookService) GetBlockHash(ctx context.Context, height uint64) (string, error) {
	raw, err := s.call(ctx,
		"getBlockHash", map[string]any{"height": height},
		http.MethodGet, fmt.Sprintf("/api/v2/block-index/%d", height), nil, nil,
	)
	if err != nil {
		return "", fmt.Errorf("getBlockHash failed: %w", err)
	}

	var result struct {
		BlockHash string `json:"blockHash" validate:"required"`
	}
	if err := s.schemas.Decode(schemaBlockHash, raw, &result); err != nil {
		return "", err
	}
	return result.BlockHash, nil
}

// GetBlock fetches a block by height or hash. There is no WebSocket
// equivalent; this call always goes over HTTP.
func (s *BlockbookService) GetBlock(ctx context.Context, heightOrHash string) (*blockbook.Block, error) {
	raw, err := s.http.Request(ctx, http.MethodGet, s.pool.Next(), "/api/v2/block/"+heightOrHash, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("getBlock failed: %w", err)
	}

	var block blockbook.Block
	if err := s.schemas.Decode(schemaBlock, raw, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

// GetTransaction fetches the normalized form of a transaction.
func (s *BlockbookService) GetTransaction(ctx context.Context, txid string) (*blockbook.Transaction, error) {
	raw, err := s.call(ctx,
		"getTransaction", map[string]any{"txid": txid},
		http.MethodGet, "/api/v2/tx/"+txid, nil, nil,
	)
	if err != nil {
		return nil, fmt.Errorf("getTransaction failed: %w", err)
	}

	var tx blockbook.Transaction
	if err := s.schemas.Decode(schemaTransaction, raw, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetTransactionSpecific fetches the backend-specific raw form of a
// transaction. The shape depends on the backend coin daemon, so it is
// returned unvalidated.
func (s *BlockbookService) GetTransactionSpecific(ctx context.Context, txid string) (json.RawMessage, error) {
	raw, err := s.call(ctx,
		"getTransactionSpecific", map[string]any{"txid": txid},
		http.MethodGet, "/api/v2/tx-specific/"+txid, nil, nil,
	)
	if err != nil {
		return nil, fmt.Errorf("getTransactionSpecific failed: %w", err)
	}
	return raw, nil
}

// GetAccountInfo fetches address or xpub details at the given detail level.
// The schema is selected from the detail-level table; an empty level means
// blockbook.DefaultDetailLevel.
func (s *BlockbookService) GetAccountInfo(
	ctx context.Context,
	descriptor string,
	level blockbook.DetailLevel,
) (*blockbook.AccountInfo, error) {
	if level == "" {
		level = blockbook.DefaultDetailLevel
	}
	if !level.Valid() {
		return nil, &domain.ConfigError{Reason: fmt.Sprintf("unknown detail level %q", level)}
	}

	basePath := "/api/v2/address/"
	if isExtendedKey(descriptor) {
		basePath = "/api/v2/xpub/"
	}
	query := url.Values{"details": []string{string(level)}}

	raw, err := s.call(ctx,
		"getAccountInfo", map[string]any{"descriptor": descriptor, "details": string(level)},
		http.MethodGet, basePath+descriptor, query, nil,
	)
	if err != nil {
		return nil, fmt.Errorf("getAccountInfo failed: %w", err)
	}

	var info blockbook.AccountInfo
	if err := s.schemas.Decode(accountSchemas[level], raw, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetUTXOs lists the unspent outputs of an address or xpub.
func (s *BlockbookService) GetUTXOs(ctx context.Context, descriptor string) ([]blockbook.UTXO, error) {
	raw, err := s.call(ctx,
		"getAccountUtxo", map[string]any{"descriptor": descriptor},
		http.MethodGet, "/api/v2/utxo/"+descriptor, nil, nil,
	)
	if err != nil {
		return nil, fmt.Errorf("getAccountUtxo failed: %w", err)
	}
	return decodeSlice[blockbook.UTXO](s.schemas, schemaUTXO, raw)
}

// GetBalanceHistory returns aggregated balance history for an address or
// xpub.
func (s *BlockbookService) GetBalanceHistory(
	ctx context.Context,
	descriptor string,
	opts *blockbook.BalanceHistoryOptions,
) ([]blockbook.BalanceHistoryEntry, error) {
	params := map[string]any{"descriptor": descriptor}
	query := url.Values{}
	if opts != nil {
		if opts.From > 0 {
			params["from"] = opts.From
			query.Set("from", strconv.FormatInt(opts.From, 10))
		}
		if opts.To > 0 {
			params["to"] = opts.To
			query.Set("to", strconv.FormatInt(opts.To, 10))
		}
		if opts.GroupBy > 0 {
			params["groupBy"] = opts.GroupBy
			query.Set("groupBy", strconv.Itoa(opts.GroupBy))
		}
		if opts.Currency != "" {
			params["currencies"] = []string{opts.Currency}
			query.Set("fiatcurrency", opts.Currency)
		}
	}

	raw, err := s.call(ctx,
		"getBalanceHistory", params,
		http.MethodGet, "/api/v2/balancehistory/"+descriptor, query, nil,
	)
	if err != nil {
		return nil, fmt.Errorf("getBalanceHistory failed: %w", err)
	}
	return decodeSlice[blockbook.BalanceHistoryEntry](s.schemas, schemaBalanceHistory, raw)
}

// EstimateFee estimates the fee for confirmation within the given number of
// blocks.
func (s *BlockbookService) EstimateFee(ctx context.Context, blocks int) (*blockbook.FeeEstimate, error) {
	if s.session.IsConnected() {
		raw, err := s.session.Request(ctx, "", "estimateFee", map[string]any{"blocks": []int{blocks}})
		if err != nil {
			return nil, fmt.Errorf("estimateFee failed: %w", err)
		}
		estimates, err := decodeSlice[blockbook.FeeEstimate](s.schemas, schemaFeeEstimate, raw)
		if err != nil {
			return nil, err
		}
		if len(estimates) == 0 {
			if s.schemas.strict {
				return nil, &domain.ValidationError{
					Schema: schemaFeeEstimate,
					Value:  string(raw),
					Err:    errors.New("empty estimate list"),
				}
			}
			return &blockbook.FeeEstimate{}, nil
		}
		return &estimates[0], nil
	}

	raw, err := s.http.Request(ctx, http.MethodGet, s.pool.Next(), "/api/v2/estimatefee/"+strconv.Itoa(blocks), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("estimateFee failed: %w", err)
	}
	var estimate blockbook.FeeEstimate
	if err := s.schemas.Decode(schemaFeeEstimate, raw, &estimate); err != nil {
		return nil, err
	}
	return &estimate, nil
}

// SendTransaction broadcasts a raw transaction. The HTTP fallback POSTs the
// hex as a raw body to the trailing-slash sendtx path; the GET variant is
// not used because large transactions exceed URL limits.
func (s *BlockbookService) SendTransaction(ctx context.Context, txHex string) (*blockbook.SendResult, error) {
	raw, err := s.call(ctx,
		"sendTransaction", map[string]any{"hex": txHex},
		http.MethodPost, "/api/v2/sendtx/", nil, []byte(txHex),
	)
	if err != nil {
		return nil, fmt.Errorf("sendTransaction failed: %w", err)
	}

	var result blockbook.SendResult
	if err := s.schemas.Decode(schemaSendResult, raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetInfo returns chain information over the WebSocket session. It fails
// fast with a precondition error while disconnected and never falls back to
// HTTP: the status call is a different operation with a different shape.
func (s *BlockbookService) GetInfo(ctx context.Context) (*blockbook.SystemInfo, error) {
	raw, err := s.session.Request(ctx, "", "getInfo", nil)
	if err != nil {
		return nil, fmt.Errorf("getInfo failed: %w", err)
	}

	var info blockbook.SystemInfo
	if err := s.schemas.Decode(schemaSystemInfo, raw, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetStatus returns the HTTP status page of a node.
func (s *BlockbookService) GetStatus(ctx context.Context) (*blockbook.StatusInfo, error) {
	raw, err := s.http.Request(ctx, http.MethodGet, s.pool.Next(), "/api/", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("getStatus failed: %w", err)
	}

	var status blockbook.StatusInfo
	if err := s.schemas.Decode(schemaStatus, raw, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SubscribeNewBlock registers fn for every new block.
func (s *BlockbookService) SubscribeNewBlock(ctx context.Context, fn blockbook.BlockHandler) error {
	return s.session.SubscribeNewBlock(ctx, func(data json.RawMessage) {
		var n blockbook.BlockNotification
		if err := json.Unmarshal(data, &n); err != nil {
			s.logger.Warn("Failed to decode newBlock push", "error", err)
			return
		}
		fn(n)
	})
}

// UnsubscribeNewBlock cancels the new-block subscription.
func (s *BlockbookService) UnsubscribeNewBlock(ctx context.Context) error {
	return s.session.UnsubscribeNewBlock(ctx)
}

// SubscribeNewTransaction registers fn for every new mempool transaction.
func (s *BlockbookService) SubscribeNewTransaction(ctx context.Context, fn blockbook.TransactionHandler) error {
	return s.session.SubscribeNewTransaction(ctx, func(data json.RawMessage) {
		fn(data)
	})
}

// UnsubscribeNewTransaction cancels the new-transaction subscription.
func (s *BlockbookService) UnsubscribeNewTransaction(ctx context.Context) error {
	return s.session.UnsubscribeNewTransaction(ctx)
}

// SubscribeAddresses registers fn for transactions touching any of the
// given addresses, replacing any previously watched set.
func (s *BlockbookService) SubscribeAddresses(ctx context.Context, addresses []string, fn blockbook.AddressHandler) error {
	return s.session.SubscribeAddresses(ctx, addresses, func(data json.RawMessage) {
		var n blockbook.AddressNotification
		if err := json.Unmarshal(data, &n); err != nil {
			s.logger.Warn("Failed to decode address push", "error", err)
			return
		}
		fn(n)
	})
}

// UnsubscribeAddresses cancels the address subscription.
func (s *BlockbookService) UnsubscribeAddresses(ctx context.Context) error {
	return s.session.UnsubscribeAddresses(ctx)
}

// extendedKeyPrefixes covers the BIP32 serializations Blockbook routes to
// its xpub endpoint.
var extendedKeyPrefixes = []string{"xpub", "ypub", "zpub", "tpub", "upub", "vpub", "Ltub", "Mtub"}

// isExtendedKey reports whether the descriptor is an extended public key
// rather than a plain address.
func isExtendedKey(descriptor string) bool {
	for _, prefix := range extendedKeyPrefixes {
		if strings.HasPrefix(descriptor, prefix) {
			return true
		}
	}
	return false
}
