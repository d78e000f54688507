package solana

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	sol "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/magicblock-labs/ephemeral-conjunto/internal/cache"
	"github.com/magicblock-labs/ephemeral-conjunto/internal/config"
)

const (
	DefaultProxyURL = "http://127.0.0.1:9899"
	DefaultEphemURL = "http://127.0.0.1:8899"

	ProxyName = "proxy"
	EphemName = "ephemeral"
)

// Connection binds one RPC endpoint to one commitment level.
type Connection struct {
	Name       string
	Endpoint   string
	WSEndpoint string
	Commitment rpc.CommitmentType
	RPC        RPC

	blockhashes *cache.Cache
}

// NewConnection returns a fresh handle for endpoint. Nothing is dialed until
// the first call. An empty commitment means confirmed.
func NewConnection(name, endpoint string, commitment rpc.CommitmentType) *Connection {
	return NewConnectionWithRPC(name, endpoint, commitment, rpc.New(endpoint))
}

// NewConnectionWithRPC is NewConnection over an existing RPC implementation.
func NewConnectionWithRPC(name, endpoint string, commitment rpc.CommitmentType, client RPC) *Connection {
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	ws, err := WSURL(endpoint)
	if err != nil {
		ws = ""
	}
	return &Connection{
		Name:        name,
		Endpoint:    endpoint,
		WSEndpoint:  ws,
		Commitment:  commitment,
		RPC:         client,
		blockhashes: cache.New(0),
	}
}

// ProxyConnection returns a new handle on the local proxy validator.
func ProxyConnection() *Connection {
	return NewConnection(ProxyName, DefaultProxyURL, rpc.CommitmentConfirmed)
}

// EphemConnection returns a new handle on the local ephemeral validator.
func EphemConnection() *Connection {
	return NewConnection(EphemName, DefaultEphemURL, rpc.CommitmentConfirmed)
}

// ProxyConnectionFromConfig builds the proxy handle from cfg.
func ProxyConnectionFromConfig(cfg config.Config) *Connection {
	return fromConfig(ProxyName, cfg.ProxyURL, cfg.ProxyWSURL, cfg)
}

// EphemConnectionFromConfig builds the ephemeral handle from cfg.
func EphemConnectionFromConfig(cfg config.Config) *Connection {
	return fromConfig(EphemName, cfg.EphemURL, cfg.EphemWSURL, cfg)
}

func fromConfig(name, endpoint, ws string, cfg config.Config) *Connection {
	c := NewConnection(name, endpoint, rpc.CommitmentType(cfg.Commitment))
	if ws != "" {
		c.WSEndpoint = ws
	}
	c.blockhashes = cache.New(cfg.BlockhashCacheTTL)
	return c
}

// WithBlockhashCache replaces the blockhash cache; ttl 0 only coalesces.
func (c *Connection) WithBlockhashCache(ttl time.Duration) *Connection {
	c.blockhashes = cache.New(ttl)
	return c
}

func (c *Connection) String() string { return c.Name + "(" + c.Endpoint + ")" }

// LatestBlockhash fetches the latest blockhash at the connection commitment.
// Concurrent callers share one request.
func (c *Connection) LatestBlockhash(ctx context.Context) (cache.Value, error) {
	if c.blockhashes == nil {
		c.blockhashes = cache.New(0)
	}
	v, _, err := c.blockhashes.GetOrFetch(ctx, c.Endpoint, func(ctx context.Context) (cache.Value, error) {
		res, err := c.RPC.GetLatestBlockhash(ctx, c.Commitment)
		if err != nil {
			return cache.Value{}, err
		}
		if res == nil || res.Value == nil {
			return cache.Value{}, errors.New("empty getLatestBlockhash result")
		}
		return cache.Value{
			Blockhash:            res.Value.Blockhash,
			LastValidBlockHeight: res.Value.LastValidBlockHeight,
			FetchedAt:            time.Now().UTC(),
		}, nil
	})
	if err != nil {
		return cache.Value{}, fmt.Errorf("%s: get latest blockhash: %w", c.Name, err)
	}
	return v, nil
}

// ForgetBlockhash drops the cached blockhash so the next LatestBlockhash
// asks the endpoint.
func (c *Connection) ForgetBlockhash() {
	if c.blockhashes != nil {
		c.blockhashes.Invalidate(c.Endpoint)
	}
}

// Balance returns the lamports held by pubkey at the connection commitment.
func (c *Connection) Balance(ctx context.Context, pubkey sol.PublicKey) (uint64, error) {
	res, err := c.RPC.GetBalance(ctx, pubkey, c.Commitment)
	if err != nil {
		return 0, fmt.Errorf("%s: get balance %s: %w", c.Name, pubkey, err)
	}
	return res.Value, nil
}

// WSURL derives the pubsub endpoint for an RPC endpoint: http becomes ws,
// https becomes wss and an explicit port is incremented by one.
func WSURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		return endpoint, nil
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if port := u.Port(); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return "", fmt.Errorf("bad port %q: %w", port, err)
		}
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(n+1))
	}
	return u.String(), nil
}
