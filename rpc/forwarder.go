package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ForwardToLeader replays the current request against the leader and
// relays the leader's response to the original client. The follower
// stays invisible to the caller.
func ForwardToLeader(c *fiber.Ctx, rpcClient RPCClient, leaderRaftAddr string) error {
	if rpcClient == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "RPC client not initialized",
		})
	}

	req := &ForwardedRequest{
		Method:      c.Method(),
		Path:        c.Path(),
		Body:        c.Body(),
		Headers:     make(map[string]string),
		QueryParams: make(map[string]string),
	}

	// Auth and content negotiation must survive the hop
	if auth := c.Get(fiber.HeaderAuthorization); auth != "" {
		req.Headers[fiber.HeaderAuthorization] = auth
	}
	if contentType := c.Get(fiber.HeaderContentType); contentType != "" {
		req.Headers[fiber.HeaderContentType] = contentType
	}

	for key, value := range c.Request().URI().QueryArgs().All() {
		req.QueryParams[string(key)] = string(value)
	}

	timeout := 10 * time.Second
	if httpClient, ok := rpcClient.(*HTTPRPCClient); ok {
		timeout = httpClient.timeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := rpcClient.ForwardRequest(ctx, leaderRaftAddr, req)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"code":    "CLUSTER_UNAVAILABLE",
			"message": fmt.Sprintf("Failed to forward request to leader: %v", err),
			"leader":  leaderRaftAddr,
		})
	}

	for key, value := range resp.Headers {
		// Fiber computes these itself
		if key == fiber.HeaderContentLength || key == fiber.HeaderTransferEncoding {
			continue
		}
		c.Set(key, value)
	}

	return c.Status(resp.StatusCode).Send(resp.Body)
}
