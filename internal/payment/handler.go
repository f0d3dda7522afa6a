package payment

import (
	"errors"

	"squadup-backend/internal/activity"
	"squadup-backend/internal/auth"
	"squadup-backend/internal/config"
	"squadup-backend/internal/database"
	"squadup-backend/internal/group"
	"squadup-backend/internal/ledger"
	"squadup-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreatePaymentRequest struct {
	GroupID   uuid.UUID  `json:"group_id"`
	ToUserID  uuid.UUID  `json:"to_user_id"`
	Amount    float64    `json:"amount"`
	ExpenseID *uuid.UUID `json:"expense_id"`
}

type PaymentResponse struct {
	ID         uuid.UUID  `json:"id"`
	GroupID    uuid.UUID  `json:"group_id"`
	FromUserID uuid.UUID  `json:"from_user_id"`
	ToUserID   uuid.UUID  `json:"to_user_id"`
	Amount     float64    `json:"amount"`
	ExpenseID  *uuid.UUID `json:"expense_id,omitempty"`
	CreatedAt  string     `json:"created_at"`
}

func toResponse(p *models.Payment) PaymentResponse {
	return PaymentResponse{
		ID:         p.ID,
		GroupID:    p.GroupID,
		FromUserID: p.FromUserID,
		ToUserID:   p.ToUserID,
		Amount:     p.Amount,
		ExpenseID:  p.ExpenseID,
		CreatedAt:  p.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// POST /api/payments
//
// The caller is always the paying side. The payment is recorded and then
// allocated against the pair's open debt, oldest record first.
func CreatePaymentHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body CreatePaymentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.GroupID == uuid.Nil || body.ToUserID == uuid.Nil {
			return fiber.NewError(fiber.StatusBadRequest, "group_id and to_user_id are required")
		}
		if body.Amount <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Amount must be greater than zero")
		}
		if body.Amount > cfg.MaxExpenseAmount {
			return fiber.NewError(fiber.StatusBadRequest, "Amount exceeds the allowed limit")
		}
		if body.ToUserID == userID {
			return fiber.NewError(fiber.StatusBadRequest, "You cannot pay yourself")
		}

		if !group.IsMember(body.GroupID, userID) {
			return fiber.NewError(fiber.StatusForbidden, "You are not a member of this group")
		}
		if !group.IsMember(body.GroupID, body.ToUserID) {
			return fiber.NewError(fiber.StatusBadRequest, "Recipient is not a member of this group")
		}

		if body.ExpenseID != nil {
			var count int64
			database.DB.Model(&models.Expense{}).
				Where("id = ? AND group_id = ?", *body.ExpenseID, body.GroupID).
				Count(&count)
			if count == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Referenced expense does not exist in this group")
			}
		}

		pmt := models.Payment{
			GroupID:    body.GroupID,
			FromUserID: userID,
			ToUserID:   body.ToUserID,
			Amount:     body.Amount,
			ExpenseID:  body.ExpenseID,
		}

		if err := ledger.ApplyPayment(database.DB, &pmt, cfg.OverpaymentPolicy); err != nil {
			if errors.Is(err, ledger.ErrOverpayment) {
				return fiber.NewError(fiber.StatusBadRequest, "Payment exceeds what you owe this user")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Could not record payment")
		}

		_ = activity.Write(activity.LogOptions{
			GroupID:     &pmt.GroupID,
			UserID:      userID,
			UserName:    userName(userID),
			EntityType:  "payment",
			EntityID:    pmt.ID,
			Action:      models.ActivityActionCreate,
			Description: "Recorded a payment to " + userName(pmt.ToUserID),
			After:       pmt,
		})

		return c.Status(fiber.StatusCreated).JSON(toResponse(&pmt))
	}
}

// GET /api/groups/:id/payments
func ListGroupPaymentsHandler() fiber.Handler {
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

		var payments []models.Payment
		if err := database.DB.
			Where("group_id = ?", groupID).
			Order("created_at desc").
			Find(&payments).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list payments")
		}

		resp := make([]PaymentResponse, 0, len(payments))
		for i := range payments {
			resp = append(resp, toResponse(&payments[i]))
		}
		return c.JSON(resp)
	}
}

func userName(userID uuid.UUID) string {
	var user models.User
	if err := database.DB.Select("name").First(&user, "id = ?", userID).Error; err != nil {
		return ""
	}
	return user.Name
}
