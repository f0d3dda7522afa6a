package group

import (
	"errors"
	"strings"

	"squadup-backend/internal/activity"
	"squadup-backend/internal/auth"
	"squadup-backend/internal/config"
	"squadup-backend/internal/database"
	"squadup-backend/internal/ledger"
	"squadup-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateGroupRequest struct {
	Name      string      `json:"name"`
	MemberIDs []uuid.UUID `json:"member_ids"`
}

type UpdateGroupRequest struct {
	Name string `json:"name"`
}

type AddMemberRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
}

type MemberResponse struct {
	UserID uuid.UUID         `json:"user_id"`
	Name   string            `json:"name"`
	Email  string            `json:"email"`
	Role   models.MemberRole `json:"role"`
}

type GroupResponse struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	CreatedBy uuid.UUID        `json:"created_by"`
	CreatedAt string           `json:"created_at"`
	Members   []MemberResponse `json:"members,omitempty"`
}

func groupMembers(groupID uuid.UUID) ([]MemberResponse, error) {
	var members []MemberResponse
	err := database.DB.Table("group_members").
		Select("group_members.user_id, users.name, users.email, group_members.role").
		Joins("JOIN users ON users.id = group_members.user_id").
		Where("group_members.group_id = ?", groupID).
		Order("users.name asc").
		Scan(&members).Error
	return members, err
}

func userName(userID uuid.UUID) string {
	var user models.User
	if err := database.DB.Select("name").First(&user, "id = ?", userID).Error; err != nil {
		return ""
	}
	return user.Name
}

// POST /api/groups
func CreateGroupHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body CreateGroupRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Group name is required")
		}
		if len(body.Name) > 100 {
			return fiber.NewError(fiber.StatusBadRequest, "Group name must be at most 100 characters")
		}

		// Creator joins as admin; member_ids is the rest of the roster.
		seen := map[uuid.UUID]bool{userID: true}
		extra := make([]uuid.UUID, 0, len(body.MemberIDs))
		for _, id := range body.MemberIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			extra = append(extra, id)
		}
		if len(extra)+1 > cfg.MaxGroupMembers {
			return fiber.NewError(fiber.StatusBadRequest, "Too many group members")
		}

		if len(extra) > 0 {
			var count int64
			database.DB.Model(&models.User{}).Where("id IN ?", extra).Count(&count)
			if count != int64(len(extra)) {
				return fiber.NewError(fiber.StatusBadRequest, "One or more member IDs do not exist")
			}
		}

		grp := models.Group{Name: body.Name, CreatedBy: userID}
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&grp).Error; err != nil {
				return err
			}
			members := []models.GroupMember{{GroupID: grp.ID, UserID: userID, Role: models.RoleAdmin}}
			for _, id := range extra {
				members = append(members, models.GroupMember{GroupID: grp.ID, UserID: id, Role: models.RoleMember})
			}
			return tx.Create(&members).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create group")
		}

		_ = activity.Write(activity.LogOptions{
			GroupID:     &grp.ID,
			UserID:      userID,
			UserName:    userName(userID),
			EntityType:  "group",
			EntityID:    grp.ID,
			Action:      models.ActivityActionCreate,
			Description: "Created group " + grp.Name,
			After:       grp,
		})

		members, _ := groupMembers(grp.ID)
		return c.Status(fiber.StatusCreated).JSON(GroupResponse{
			ID:        grp.ID,
			Name:      grp.Name,
			CreatedBy: grp.CreatedBy,
			CreatedAt: grp.CreatedAt.Format("2006-01-02 15:04:05"),
			Members:   members,
		})
	}
}

// GET /api/groups
func ListGroupsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var groups []models.Group
		if err := database.DB.
			Joins("JOIN group_members ON group_members.group_id = groups.id").
			Where("group_members.user_id = ?", userID).
			Order("groups.created_at desc").
			Find(&groups).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list groups")
		}

		resp := make([]GroupResponse, 0, len(groups))
		for _, g := range groups {
			resp = append(resp, GroupResponse{
				ID:        g.ID,
				Name:      g.Name,
				CreatedBy: g.CreatedBy,
				CreatedAt: g.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return c.JSON(resp)
	}
}

// GET /api/groups/:id
func GetGroupHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		groupID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid group ID")
		}
		if !IsMember(groupID, userID) {
			return fiber.NewError(fiber.StatusForbidden, "You are not a member of this group")
		}

		var grp models.Group
		if err := database.DB.First(&grp, "id = ?", groupID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Group not found")
		}

		members, err := groupMembers(groupID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load members")
		}

		return c.JSON(GroupResponse{
			ID:        grp.ID,
			Name:      grp.Name,
			CreatedBy: grp.CreatedBy,
			CreatedAt: grp.CreatedAt.Format("2006-01-02 15:04:05"),
			Members:   members,
		})
	}
}

// PUT /api/groups/:id
func UpdateGroupHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		groupID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid group ID")
		}

		var body UpdateGroupRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" || len(body.Name) > 100 {
			return fiber.NewError(fiber.StatusBadRequest, "Group name must be 1-100 characters")
		}

		var grp models.Group
		if err := database.DB.First(&grp, "id = ?", groupID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Group not found")
		}
		if !IsAdmin(groupID, userID) {
			return fiber.NewError(fiber.StatusForbidden, "Only group admins can update the group")
		}

		before := grp
		grp.Name = body.Name
		if err := database.DB.Model(&grp).Update("name", grp.Name).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update group")
		}

		_ = activity.Write(activity.LogOptions{
			GroupID:     &grp.ID,
			UserID:      userID,
			UserName:    userName(userID),
			EntityType:  "group",
			EntityID:    grp.ID,
			Action:      models.ActivityActionUpdate,
			Description: "Renamed group to " + grp.Name,
			Before:      before,
			After:       grp,
		})

		return c.JSON(fiber.Map{"message": "Group updated"})
	}
}

// DELETE /api/groups/:id
func DeleteGroupHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		groupID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid group ID")
		}

		var grp models.Group
		if err := database.DB.First(&grp, "id = ?", groupID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Group not found")
		}
		if !IsAdmin(groupID, userID) {
			return fiber.NewError(fiber.StatusForbidden, "Only group admins can delete the group")
		}

		// The group row goes away for good, so its expenses, their debt
		// records and the membership roster go with it. Leaving the records
		// behind would keep dead debt settleable through the pair-based
		// payment path.
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var expenseIDs []uuid.UUID
			if err := tx.Unscoped().Model(&models.Expense{}).
				Where("group_id = ?", groupID).
				Pluck("id", &expenseIDs).Error; err != nil {
				return err
			}
			if len(expenseIDs) > 0 {
				if err := tx.Where("expense_id IN ?", expenseIDs).Delete(&models.DebtRecord{}).Error; err != nil {
					return err
				}
				if err := tx.Unscoped().Where("group_id = ?", groupID).Delete(&models.Expense{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupMember{}).Error; err != nil {
				return err
			}
			return tx.Delete(&grp).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete group")
		}

		_ = activity.Write(activity.LogOptions{
			GroupID:     &groupID,
			UserID:      userID,
			UserName:    userName(userID),
			EntityType:  "group",
			EntityID:    groupID,
			Action:      models.ActivityActionDelete,
			Description: "Deleted group " + grp.Name,
			Before:      grp,
		})

		return c.JSON(fiber.Map{"message": "Group deleted"})
	}
}

// POST /api/groups/:id/members
func AddMemberHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		groupID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid group ID")
		}

		var body AddMemberRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if body.UserID == uuid.Nil {
			return fiber.NewError(fiber.StatusBadRequest, "user_id is required")
		}

		role := models.RoleMember
		if body.Role != "" {
			role = models.MemberRole(body.Role)
			if role != models.RoleAdmin && role != models.RoleMember {
				return fiber.NewError(fiber.StatusBadRequest, "Role must be 'admin' or 'member'")
			}
		}

		var grp models.Group
		if err := database.DB.First(&grp, "id = ?", groupID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Group not found")
		}
		if !IsAdmin(groupID, userID) {
			return fiber.NewError(fiber.StatusForbidden, "Only group admins can add members")
		}

		var user models.User
		if err := database.DB.First(&user, "id = ?", body.UserID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		if IsMember(groupID, body.UserID) {
			return fiber.NewError(fiber.StatusConflict, "User is already a member")
		}
		if memberCount(groupID) >= int64(cfg.MaxGroupMembers) {
			return fiber.NewError(fiber.StatusBadRequest, "Group is full")
		}

		gm := models.GroupMember{GroupID: groupID, UserID: body.UserID, Role: role}
		if err := database.DB.Create(&gm).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not add member")
		}

		_ = activity.Write(activity.LogOptions{
			GroupID:     &groupID,
			UserID:      userID,
			UserName:    userName(userID),
			EntityType:  "group_member",
			EntityID:    gm.ID,
			Action:      models.ActivityActionCreate,
			Description: "Added " + user.Name + " to the group",
			After:       gm,
		})

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Member added"})
	}
}

// DELETE /api/groups/:id/members/:userId
//
// Admins can remove anyone but the creator; a regular member may only remove
// themselves (leave). The last admin cannot leave.
func RemoveMemberHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		groupID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid group ID")
		}
		targetID, err := uuid.Parse(c.Params("userId"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid user ID")
		}

		var grp models.Group
		if err := database.DB.First(&grp, "id = ?", groupID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Group not found")
		}

		var gm models.GroupMember
		if err := database.DB.First(&gm, "group_id = ? AND user_id = ?", groupID, targetID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "User is not a member of this group")
		}

		if targetID != userID && !IsAdmin(groupID, userID) {
			return fiber.NewError(fiber.StatusForbidden, "Only group admins can remove other members")
		}
		if targetID == grp.CreatedBy {
			return fiber.NewError(fiber.StatusBadRequest, "The group creator cannot be removed")
		}
		if gm.Role == models.RoleAdmin && adminCount(groupID) == 1 {
			return fiber.NewError(fiber.StatusBadRequest, "The last admin cannot leave the group")
		}

		if err := database.DB.Delete(&gm).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not remove member")
		}

		_ = activity.Write(activity.LogOptions{
			GroupID:     &groupID,
			UserID:      userID,
			UserName:    userName(userID),
			EntityType:  "group_member",
			EntityID:    gm.ID,
			Action:      models.ActivityActionDelete,
			Description: "Removed " + userName(targetID) + " from the group",
			Before:      gm,
		})

		return c.JSON(fiber.Map{"message": "Member removed"})
	}
}

// GET /api/groups/:id/balances
func BalancesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		groupID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid group ID")
		}
		if !IsMember(groupID, userID) {
			return fiber.NewError(fiber.StatusForbidden, "You are not a member of this group")
		}

		balances, err := ledger.ComputeBalances(database.DB, groupID)
		if err != nil {
			switch {
			case errors.Is(err, ledger.ErrGroupNotFound):
				return fiber.NewError(fiber.StatusNotFound, "Group not found")
			case errors.Is(err, ledger.ErrNoMembers):
				return fiber.NewError(fiber.StatusNotFound, "Group has no members")
			default:
				return fiber.NewError(fiber.StatusInternalServerError, "Could not compute balances")
			}
		}
		return c.JSON(balances)
	}
}

// GET /api/groups/:id/settle-up
func SettleUpHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		groupID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid group ID")
		}
		if !IsMember(groupID, userID) {
			return fiber.NewError(fiber.StatusForbidden, "You are not a member of this group")
		}

		balances, err := ledger.ComputeBalances(database.DB, groupID)
		if err != nil {
			if errors.Is(err, ledger.ErrGroupNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Group not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Could not compute balances")
		}

		return c.JSON(fiber.Map{
			"transactions": ledger.PlanSettlement(balances),
		})
	}
}
