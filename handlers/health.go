package handlers

import "github.com/gofiber/fiber/v2"

// Health handles GET /health
func Health(c *fiber.Ctx) error {
	ctx := GetContext(c)

	status := fiber.Map{
		"status":      "ok",
		"collections": ctx.Store.CollectionCount(),
	}
	if ctx.RaftNode != nil {
		status["cluster"] = fiber.Map{
			"node_id":   ctx.RaftNode.GetConfig().NodeID,
			"is_leader": ctx.RaftNode.IsLeader(),
		}
	}
	return c.JSON(status)
}
