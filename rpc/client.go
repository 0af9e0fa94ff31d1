package rpc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

const defaultAPIPort = "3000"

// HTTPRPCClient implements RPCClient over the nodes' regular HTTP API.
type HTTPRPCClient struct {
	httpClient *http.Client
	timeout    time.Duration
	apiPort    string
	logger     *zap.Logger
}

// NewHTTPRPCClient creates an RPC client that reaches peers on the
// given HTTP API port. An empty port falls back to 3000.
func NewHTTPRPCClient(logger *zap.Logger, apiPort string) *HTTPRPCClient {
	if apiPort == "" {
		apiPort = defaultAPIPort
	}
	return &HTTPRPCClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout: 10 * time.Second,
		apiPort: apiPort,
		logger:  logger,
	}
}

// httpAddr rewrites a Raft transport address to the peer's HTTP API
// address. Nodes expose both on the same host.
func (c *HTTPRPCClient) httpAddr(raftAddr string) string {
	host, _, err := net.SplitHostPort(raftAddr)
	if err != nil {
		return raftAddr
	}
	return net.JoinHostPort(host, c.apiPort)
}

// ForwardRequest replays a captured request against the leader node.
func (c *HTTPRPCClient) ForwardRequest(ctx context.Context, leaderRaftAddr string, req *ForwardedRequest) (*ForwardedResponse, error) {
	addr := c.httpAddr(leaderRaftAddr)

	target := url.URL{
		Scheme: "http",
		Host:   addr,
		Path:   req.Path,
	}
	if len(req.QueryParams) > 0 {
		q := url.Values{}
		for key, value := range req.QueryParams {
			q.Set(key, value)
		}
		target.RawQuery = q.Encode()
	}

	c.logger.Debug("Forwarding request to leader",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.String("leader", addr),
	)

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("Failed to forward request",
			zap.Error(err),
			zap.String("leader", addr),
		)
		return nil, fmt.Errorf("failed to forward request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("Request forwarding completed",
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	respHeaders := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		respHeaders[key] = resp.Header.Get(key)
	}

	return &ForwardedResponse{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Headers:    respHeaders,
	}, nil
}

// ClusterJoin asks a peer to add this node as a voter. The peer
// forwards the call to its leader if it is not the leader itself.
func (c *HTTPRPCClient) ClusterJoin(ctx context.Context, peerRaftAddr, nodeID, addr, masterKey string) error {
	peer := c.httpAddr(peerRaftAddr)

	payload, err := sonic.Marshal(map[string]string{
		"node_id": nodeID,
		"addr":    addr,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal join request: %w", err)
	}

	target := fmt.Sprintf("http://%s/cluster/join", peer)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create join request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if masterKey != "" {
		req.Header.Set("Authorization", "Bearer "+masterKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Failed to contact peer",
			zap.String("peer", peer),
			zap.Error(err),
		)
		return fmt.Errorf("failed to contact peer: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Join request rejected",
			zap.String("peer", peer),
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(body)),
		)
		return fmt.Errorf("join request failed with status %d: %s", resp.StatusCode, string(body))
	}

	c.logger.Info("Joined cluster",
		zap.String("peer", peer),
		zap.String("node_id", nodeID),
	)
	return nil
}
