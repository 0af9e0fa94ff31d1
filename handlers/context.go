package handlers

import (
	"lumen/config"
	"lumen/raft"
	"lumen/rpc"
	"lumen/store"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// HandlerContext holds dependencies needed by handlers
type HandlerContext struct {
	Store         *store.CollectionStore
	RaftNode      *raft.RaftNode
	RPCClient     rpc.RPCClient
	Config        *config.Config
	Logger        *zap.Logger
	SourceManager SourceManager
}

const contextKey = "handler_context"

// SetContext stores the HandlerContext in the Fiber context
func SetContext(c *fiber.Ctx, ctx *HandlerContext) {
	c.Locals(contextKey, ctx)
}

// GetContext retrieves the HandlerContext from the Fiber context
func GetContext(c *fiber.Ctx) *HandlerContext {
	return c.Locals(contextKey).(*HandlerContext)
}

// IsRaftEnabled returns true if Raft is enabled in this deployment
func IsRaftEnabled(c *fiber.Ctx) bool {
	ctx := GetContext(c)
	return ctx.RaftNode != nil
}

// IsLeader returns true if this node is the current Raft leader
func IsLeader(c *fiber.Ctx) bool {
	ctx := GetContext(c)
	return ctx.RaftNode != nil && ctx.RaftNode.IsLeader()
}

// forwardOrRedirect handles a write that arrived on a follower.
// With an RPC client configured the request is transparently proxied to
// the leader; otherwise the client is redirected with the leader
// address.
func forwardOrRedirect(c *fiber.Ctx) error {
	ctx := GetContext(c)
	leader := ctx.RaftNode.LeaderAddr()
	if ctx.RPCClient != nil && leader != "" {
		return rpc.ForwardToLeader(c, ctx.RPCClient, leader)
	}
	return TemporaryRedirect(c, leader)
}
