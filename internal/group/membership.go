package group

import (
	"squadup-backend/internal/database"
	"squadup-backend/internal/models"

	"github.com/google/uuid"
)

// IsMember reports whether the user belongs to the group.
func IsMember(groupID, userID uuid.UUID) bool {
	var count int64
	database.DB.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count)
	return count > 0
}

// IsAdmin reports whether the user is an admin of the group.
func IsAdmin(groupID, userID uuid.UUID) bool {
	var count int64
	database.DB.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ? AND role = ?", groupID, userID, models.RoleAdmin).
		Count(&count)
	return count > 0
}

func adminCount(groupID uuid.UUID) int64 {
	var count int64
	database.DB.Model(&models.GroupMember{}).
		Where("group_id = ? AND role = ?", groupID, models.RoleAdmin).
		Count(&count)
	return count
}

func memberCount(groupID uuid.UUID) int64 {
	var count int64
	database.DB.Model(&models.GroupMember{}).
		Where("group_id = ?", groupID).
		Count(&count)
	return count
}
