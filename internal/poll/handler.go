package poll

import (
	"strings"
	"time"

	"squadup-backend/internal/activity"
	"squadup-backend/internal/auth"
	"squadup-backend/internal/database"
	"squadup-backend/internal/group"
	"squadup-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreatePollRequest struct {
	GroupID uuid.UUID `json:"group_id"`
	Title   string    `json:"title"`
	Type    string    `json:"type"`
	Options []string  `json:"options"`
}

type UpdatePollRequest struct {
	Title *string `json:"title"`
}

type ClosePollRequest struct {
	CorrectOptionID *uuid.UUID `json:"correct_option_id"`
}

type VoteRequest struct {
	OptionID uuid.UUID `json:"option_id"`
}

type OptionResponse struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	VoteCount int       `json:"vote_count"`
}

type PollResponse struct {
	ID              uuid.UUID         `json:"id"`
	GroupID         uuid.UUID         `json:"group_id"`
	Title           string            `json:"title"`
	Type            models.PollType   `json:"type"`
	Status          models.PollStatus `json:"status"`
	CorrectOptionID *uuid.UUID        `json:"correct_option_id,omitempty"`
	CreatedBy       uuid.UUID         `json:"created_by"`
	CreatedAt       string            `json:"created_at"`
	ClosedAt        *string           `json:"closed_at,omitempty"`
	Options         []OptionResponse  `json:"options"`
	MyVote          *uuid.UUID        `json:"my_vote,omitempty"`
}

func toResponse(p *models.Poll, myVote *uuid.UUID) PollResponse {
	resp := PollResponse{
		ID:              p.ID,
		GroupID:         p.GroupID,
		Title:           p.Title,
		Type:            p.Type,
		Status:          p.Status,
		CorrectOptionID: p.CorrectOptionID,
		CreatedBy:       p.CreatedBy,
		CreatedAt:       p.CreatedAt.Format("2006-01-02 15:04:05"),
		Options:         make([]OptionResponse, 0, len(p.Options)),
		MyVote:          myVote,
	}
	if p.ClosedAt != nil {
		formatted := p.ClosedAt.Format("2006-01-02 15:04:05")
		resp.ClosedAt = &formatted
	}
	for _, o := range p.Options {
		resp.Options = append(resp.Options, OptionResponse{ID: o.ID, Text: o.Text, VoteCount: o.VoteCount})
	}
	return resp
}

// POST /api/polls
func CreatePollHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body CreatePollRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.GroupID == uuid.Nil {
			return fiber.NewError(fiber.StatusBadRequest, "group_id is required")
		}
		body.Title = strings.TrimSpace(body.Title)
		if body.Title == "" || len(body.Title) > 255 {
			return fiber.NewError(fiber.StatusBadRequest, "Title must be 1-255 characters")
		}

		pollType := models.PollType(body.Type)
		if pollType != models.PollTypeVoting && pollType != models.PollTypeBetting {
			return fiber.NewError(fiber.StatusBadRequest, "Type must be 'voting' or 'betting'")
		}

		if len(body.Options) < 2 || len(body.Options) > 10 {
			return fiber.NewError(fiber.StatusBadRequest, "Polls need between 2 and 10 options")
		}
		for i := range body.Options {
			body.Options[i] = strings.TrimSpace(body.Options[i])
			if body.Options[i] == "" || len(body.Options[i]) > 255 {
				return fiber.NewError(fiber.StatusBadRequest, "Each option must be 1-255 characters")
			}
		}

		if !group.IsAdmin(body.GroupID, userID) {
			return fiber.NewError(fiber.StatusForbidden, "Only group admins can create polls")
		}

		p := models.Poll{
			GroupID:   body.GroupID,
			Title:     body.Title,
			Type:      pollType,
			Status:    models.PollStatusActive,
			CreatedBy: userID,
		}
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			options := make([]models.PollOption, 0, len(body.Options))
			for _, text := range body.Options {
				options = append(options, models.PollOption{PollID: p.ID, Text: text})
			}
			if err := tx.Create(&options).Error; err != nil {
				return err
			}
			p.Options = options
			return nil
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create poll")
		}

		_ = activity.Write(activity.LogOptions{
			GroupID:     &p.GroupID,
			UserID:      userID,
			UserName:    userName(userID),
			EntityType:  "poll",
			EntityID:    p.ID,
			Action:      models.ActivityActionCreate,
			Description: "Created poll " + p.Title,
			After:       p,
		})

		return c.Status(fiber.StatusCreated).JSON(toResponse(&p, nil))
	}
}

// GET /api/groups/:id/polls
func ListGroupPollsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		groupID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid group ID")
		}
		if !group.IsMember(groupID, userID) {
			return fiber.NewError(fiber.StatusForbidden, "You are not a member of this group")
		}

		var polls []models.Poll
		if err := database.DB.Preload("Options").
			Where("group_id = ?", groupID).
			Order("created_at desc").
			Find(&polls).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list polls")
		}

		resp := make([]PollResponse, 0, len(polls))
		for i := range polls {
			resp = append(resp, toResponse(&polls[i], nil))
		}
		return c.JSON(resp)
	}
}

// GET /api/polls/:id
func GetPollHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		p, err := loadPoll(c)
		if err != nil {
			return err
		}
		if !group.IsMember(p.GroupID, userID) {
			return fiber.NewError(fiber.StatusForbidden, "You are not a member of this group")
		}

		var myVote *uuid.UUID
		var vote models.PollVote
		if err := database.DB.First(&vote, "poll_id = ? AND user_id = ?", p.ID, userID).Error; err == nil {
			myVote = &vote.OptionID
		}

		return c.JSON(toResponse(p, myVote))
	}
}

// PUT /api/polls/:id
func UpdatePollHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		p, err := loadPoll(c)
		if err != nil {
			return err
		}
		if p.CreatedBy != userID && !group.IsAdmin(p.GroupID, userID) {
			return fiber.NewError(fiber.StatusForbidden, "Only the creator or a group admin can update this poll")
		}
		if p.Status == models.PollStatusClosed {
			return fiber.NewError(fiber.StatusBadRequest, "Closed polls cannot be updated")
		}

		var body UpdatePollRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if body.Title == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Nothing to update")
		}

		before := *p
		title := strings.TrimSpace(*body.Title)
		if title == "" || len(title) > 255 {
			return fiber.NewError(fiber.StatusBadRequest, "Title must be 1-255 characters")
		}
		p.Title = title
		if err := database.DB.Model(p).Update("title", p.Title).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update poll")
		}

		_ = activity.Write(activity.LogOptions{
			GroupID:     &p.GroupID,
			UserID:      userID,
			UserName:    userName(userID),
			EntityType:  "poll",
			EntityID:    p.ID,
			Action:      models.ActivityActionUpdate,
			Description: "Updated poll " + p.Title,
			Before:      before,
			After:       p,
		})

		return c.JSON(toResponse(p, nil))
	}
}

// POST /api/polls/:id/close
//
// Betting polls must name the winning option when they close; voting polls
// just stop accepting votes.
func ClosePollHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		p, err := loadPoll(c)
		if err != nil {
			return err
		}
		if p.CreatedBy != userID && !group.IsAdmin(p.GroupID, userID) {
			return fiber.NewError(fiber.StatusForbidden, "Only the creator or a group admin can close this poll")
		}
		if p.Status == models.PollStatusClosed {
			return fiber.NewError(fiber.StatusBadRequest, "Poll is already closed")
		}

		var body ClosePollRequest
		if err := c.BodyParser(&body); err != nil && len(c.Body()) > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if p.Type == models.PollTypeBetting {
			if body.CorrectOptionID == nil {
				return fiber.NewError(fiber.StatusBadRequest, "Betting polls need a correct_option_id to close")
			}
			if !optionBelongsTo(p, *body.CorrectOptionID) {
				return fiber.NewError(fiber.StatusBadRequest, "correct_option_id does not belong to this poll")
			}
			p.CorrectOptionID = body.CorrectOptionID
		} else if body.CorrectOptionID != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Voting polls have no correct option")
		}

		now := time.Now()
		p.Status = models.PollStatusClosed
		p.ClosedAt = &now
		if err := database.DB.Model(p).Updates(map[string]interface{}{
			"status":            p.Status,
			"closed_at":         p.ClosedAt,
			"correct_option_id": p.CorrectOptionID,
		}).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not close poll")
		}

		_ = activity.Write(activity.LogOptions{
			GroupID:     &p.GroupID,
			UserID:      userID,
			UserName:    userName(userID),
			EntityType:  "poll",
			EntityID:    p.ID,
			Action:      models.ActivityActionUpdate,
			Description: "Closed poll " + p.Title,
			After:       p,
		})

		return c.JSON(toResponse(p, nil))
	}
}

// DELETE /api/polls/:id
func DeletePollHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		p, err := loadPoll(c)
		if err != nil {
			return err
		}
		if p.CreatedBy != userID && !group.IsAdmin(p.GroupID, userID) {
			return fiber.NewError(fiber.StatusForbidden, "Only the creator or a group admin can delete this poll")
		}

		if err := database.DB.Delete(p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete poll")
		}

		_ = activity.Write(activity.LogOptions{
			GroupID:     &p.GroupID,
			UserID:      userID,
			UserName:    userName(userID),
			EntityType:  "poll",
			EntityID:    p.ID,
			Action:      models.ActivityActionDelete,
			Description: "Deleted poll " + p.Title,
			Before:      p,
		})

		return c.JSON(fiber.Map{"message": "Poll deleted"})
	}
}

// POST /api/polls/:id/votes
func VoteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		p, err := loadPoll(c)
		if err != nil {
			return err
		}
		if !group.IsMember(p.GroupID, userID) {
			return fiber.NewError(fiber.StatusForbidden, "You are not a member of this group")
		}
		if p.Status != models.PollStatusActive {
			return fiber.NewError(fiber.StatusBadRequest, "Poll is closed")
		}

		var body VoteRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if !optionBelongsTo(p, body.OptionID) {
			return fiber.NewError(fiber.StatusBadRequest, "Option does not belong to this poll")
		}

		var existing int64
		database.DB.Model(&models.PollVote{}).
			Where("poll_id = ? AND user_id = ?", p.ID, userID).
			Count(&existing)
		if existing > 0 {
			return fiber.NewError(fiber.StatusConflict, "You have already voted in this poll")
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			vote := models.PollVote{PollID: p.ID, OptionID: body.OptionID, UserID: userID}
			if err := tx.Create(&vote).Error; err != nil {
				return err
			}
			return tx.Model(&models.PollOption{}).
				Where("id = ?", body.OptionID).
				Update("vote_count", gorm.Expr("vote_count + 1")).Error
		})
		if err != nil {
			// The unique index also rejects a concurrent duplicate vote.
			return fiber.NewError(fiber.StatusConflict, "Could not record vote")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Vote recorded"})
	}
}

func loadPoll(c *fiber.Ctx) (*models.Poll, error) {
	pollID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid poll ID")
	}
	var p models.Poll
	if err := database.DB.Preload("Options").First(&p, "id = ?", pollID).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Poll not found")
	}
	return &p, nil
}

func optionBelongsTo(p *models.Poll, optionID uuid.UUID) bool {
	for _, o := range p.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

func userName(userID uuid.UUID) string {
	var user models.User
	if err := database.DB.Select("name").First(&user, "id = ?", userID).Error; err != nil {
		return ""
	}
	return user.Name
}
