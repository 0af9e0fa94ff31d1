package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ClusterStatus handles GET /cluster/status
func ClusterStatus(c *fiber.Ctx) error {
	ctx := GetContext(c)

	if !IsRaftEnabled(c) {
		return c.JSON(fiber.Map{
			"mode":    "standalone",
			"healthy": true,
		})
	}

	cfg := ctx.RaftNode.GetConfig()
	state := "follower"
	if IsLeader(c) {
		state = "leader"
	}

	return c.JSON(fiber.Map{
		"mode":    "clustered",
		"node_id": cfg.NodeID,
		"state":   state,
		"leader":  ctx.RaftNode.LeaderAddr(),
		"bind":    cfg.RaftBind,
	})
}

// JoinCluster handles POST /cluster/join. Only the leader can add
// voters; followers answer with the leader address so the joiner can
// retry there.
func JoinCluster(c *fiber.Ctx) error {
	var req struct {
		NodeID string `json:"node_id"`
		Addr   string `json:"addr"`
	}
	if err := c.BodyParser(&req); err != nil {
		return BadRequest(c, ErrorCodeInvalidRequestBody, "invalid request body")
	}
	if req.NodeID == "" || req.Addr == "" {
		return BadRequest(c, ErrorCodeMissingParameter, "node_id and addr are required")
	}

	ctx := GetContext(c)

	if !IsLeader(c) {
		return ForbiddenWithLeader(c, ErrorCodeLeaderOnlyOperation, "only leader can add nodes", ctx.RaftNode.LeaderAddr())
	}

	if err := ctx.RaftNode.Join(req.NodeID, req.Addr); err != nil {
		return InternalErrorWithDetails(c, ErrorCodeClusterUnavailable, "failed to join node to cluster", err.Error())
	}

	ctx.Logger.Info("Node joined cluster",
		zap.String("node_id", req.NodeID),
		zap.String("addr", req.Addr),
	)
	return c.JSON(fiber.Map{
		"status":  "joined",
		"node_id": req.NodeID,
	})
}
