package activity

import (
	"squadup-backend/internal/auth"
	"squadup-backend/internal/database"
	"squadup-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// GET /api/groups/:id/activity?entity_type=expense&limit=50
func ListGroupActivityHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		groupID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid group ID")
		}

		var memberCount int64
		database.DB.Model(&models.GroupMember{}).
			Where("group_id = ? AND user_id = ?", groupID, userID).
			Count(&memberCount)
		if memberCount == 0 {
			return fiber.NewError(fiber.StatusForbidden, "You are not a member of this group")
		}

		dbq := database.DB.Model(&models.ActivityLog{}).Where("group_id = ?", groupID)

		if entityType := c.Query("entity_type"); entityType != "" {
			dbq = dbq.Where("entity_type = ?", entityType)
		}
		if actorStr := c.Query("user_id"); actorStr != "" {
			actorID, err := uuid.Parse(actorStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid user_id filter")
			}
			dbq = dbq.Where("user_id = ?", actorID)
		}

		limit := c.QueryInt("limit", 50)
		if limit < 1 || limit > 200 {
			limit = 50
		}

		var logs []models.ActivityLog
		if err := dbq.Order("created_at desc").Limit(limit).Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list activity")
		}

		return c.JSON(logs)
	}
}
