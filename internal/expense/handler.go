package expense

import (
	"errors"
	"strings"
	"time"

	"squadup-backend/internal/activity"
	"squadup-backend/internal/auth"
	"squadup-backend/internal/config"
	"squadup-backend/internal/database"
	"squadup-backend/internal/group"
	"squadup-backend/internal/ledger"
	"squadup-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateExpenseRequest struct {
	GroupID        uuid.UUID   `json:"group_id"`
	PayerID        *uuid.UUID  `json:"payer_id"`
	Amount         float64     `json:"amount"`
	Description    string      `json:"description"`
	Category       string      `json:"category"`
	ExpenseDate    *time.Time  `json:"expense_date"`
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
}

type UpdateExpenseRequest struct {
	Amount         *float64    `json:"amount"`
	Description    *string     `json:"description"`
	Category       *string     `json:"category"`
	ExpenseDate    *time.Time  `json:"expense_date"`
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
}

type ExpenseResponse struct {
	ID          uuid.UUID `json:"id"`
	GroupID     uuid.UUID `json:"group_id"`
	PayerID     uuid.UUID `json:"payer_id"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	ExpenseDate string    `json:"expense_date"`
	CreatedAt   string    `json:"created_at"`
}

func toResponse(e *models.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:          e.ID,
		GroupID:     e.GroupID,
		PayerID:     e.PayerID,
		Amount:      e.Amount,
		Description: e.Description,
		Category:    e.Category,
		ExpenseDate: e.ExpenseDate.Format("2006-01-02"),
		CreatedAt:   e.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// ledgerError translates ledger sentinels into HTTP errors; anything
// unrecognized is a persistence failure.
func ledgerError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrNoParticipants),
		errors.Is(err, ledger.ErrTooManyParticipants),
		errors.Is(err, ledger.ErrDuplicateParticipant),
		errors.Is(err, ledger.ErrPayerNotParticipant):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrNotGroupMember):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "Could not save expense")
	}
}

// POST /api/expenses
func CreateExpenseHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body CreateExpenseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.GroupID == uuid.Nil {
			return fiber.NewError(fiber.StatusBadRequest, "group_id is required")
		}
		body.Description = strings.TrimSpace(body.Description)
		if body.Description == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Description is required")
		}
		if len(body.Description) > 500 {
			return fiber.NewError(fiber.StatusBadRequest, "Description must be at most 500 characters")
		}
		if len(body.Category) > 100 {
			return fiber.NewError(fiber.StatusBadRequest, "Category must be at most 100 characters")
		}

		if !group.IsMember(body.GroupID, userID) {
			return fiber.NewError(fiber.StatusForbidden, "You are not a member of this group")
		}

		payerID := userID
		if body.PayerID != nil {
			payerID = *body.PayerID
		}

		expenseDate := time.Now()
		if body.ExpenseDate != nil {
			expenseDate = *body.ExpenseDate
		}

		exp := models.Expense{
			GroupID:     body.GroupID,
			PayerID:     payerID,
			Amount:      body.Amount,
			Description: body.Description,
			Category:    body.Category,
			ExpenseDate: expenseDate,
		}

		limits := ledger.Limits{MaxAmount: cfg.MaxExpenseAmount, MaxParticipants: cfg.MaxParticipants}
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&exp).Error; err != nil {
				return err
			}
			_, err := ledger.SplitExpense(tx, &exp, body.ParticipantIDs, limits)
			return err
		})
		if err != nil {
			return ledgerError(err)
		}

		_ = activity.Write(activity.LogOptions{
			GroupID:     &exp.GroupID,
			UserID:      userID,
			UserName:    userName(userID),
			EntityType:  "expense",
			EntityID:    exp.ID,
			Action:      models.ActivityActionCreate,
			Description: "Added expense " + exp.Description,
			After:       exp,
		})

		return c.Status(fiber.StatusCreated).JSON(toResponse(&exp))
	}
}

// GET /api/expenses/:id
func GetExpenseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		expenseID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid expense ID")
		}

		var exp models.Expense
		if err := database.DB.Preload("DebtRecords").First(&exp, "id = ?", expenseID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Expense not found")
		}
		if !group.IsMember(exp.GroupID, userID) {
			return fiber.NewError(fiber.StatusForbidden, "You are not a member of this group")
		}

		resp := toResponse(&exp)
		type debtEntry struct {
			DebtorID   uuid.UUID `json:"debtor_id"`
			CreditorID uuid.UUID `json:"creditor_id"`
			Amount     float64   `json:"amount"`
			AmountPaid float64   `json:"amount_paid"`
		}
		debts := make([]debtEntry, 0, len(exp.DebtRecords))
		for _, r := range exp.DebtRecords {
			debts = append(debts, debtEntry{r.DebtorID, r.CreditorID, r.Amount, r.AmountPaid})
		}
		return c.JSON(fiber.Map{"expense": resp, "debt_records": debts})
	}
}

// GET /api/groups/:id/expenses?category=food&payer_id=...&participant_id=...&from=2026-01-01&to=2026-02-01
func ListGroupExpensesHandler() fiber.Handler {
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

		dbq := database.DB.Model(&models.Expense{}).Where("group_id = ?", groupID)

		if category := c.Query("category"); category != "" {
			dbq = dbq.Where("category = ?", category)
		}
		if payerStr := c.Query("payer_id"); payerStr != "" {
			payerID, err := uuid.Parse(payerStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid payer_id filter")
			}
			dbq = dbq.Where("payer_id = ?", payerID)
		}
		if participantStr := c.Query("participant_id"); participantStr != "" {
			participantID, err := uuid.Parse(participantStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid participant_id filter")
			}
			// The payer has no debt record of their own, so they match via
			// payer_id. Debtors match while their share is still open.
			dbq = dbq.Where(
				"(expenses.payer_id = ? OR EXISTS (SELECT 1 FROM debt_records WHERE debt_records.expense_id = expenses.id AND debt_records.debtor_id = ?))",
				participantID, participantID,
			)
		}
		if from := c.Query("from"); from != "" {
			t, err := time.Parse("2006-01-02", from)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid 'from' date, expected YYYY-MM-DD")
			}
			dbq = dbq.Where("expense_date >= ?", t)
		}
		if to := c.Query("to"); to != "" {
			t, err := time.Parse("2006-01-02", to)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid 'to' date, expected YYYY-MM-DD")
			}
			dbq = dbq.Where("expense_date <= ?", t)
		}

		var expenses []models.Expense
		if err := dbq.Order("expense_date desc, created_at desc").Find(&expenses).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list expenses")
		}

		resp := make([]ExpenseResponse, 0, len(expenses))
		for i := range expenses {
			resp = append(resp, toResponse(&expenses[i]))
		}
		return c.JSON(resp)
	}
}

// PUT /api/expenses/:id
//
// A participant change regenerates the split from scratch. An amount-only
// change rescales the surviving records so partial payments keep their
// progress.
func UpdateExpenseHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		expenseID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid expense ID")
		}

		var body UpdateExpenseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		var exp models.Expense
		if err := database.DB.First(&exp, "id = ?", expenseID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Expense not found")
		}
		if exp.PayerID != userID && !group.IsAdmin(exp.GroupID, userID) {
			return fiber.NewError(fiber.StatusForbidden, "Only the payer or a group admin can update this expense")
		}

		before := exp

		if body.Description != nil {
			desc := strings.TrimSpace(*body.Description)
			if desc == "" || len(desc) > 500 {
				return fiber.NewError(fiber.StatusBadRequest, "Description must be 1-500 characters")
			}
			exp.Description = desc
		}
		if body.Category != nil {
			if len(*body.Category) > 100 {
				return fiber.NewError(fiber.StatusBadRequest, "Category must be at most 100 characters")
			}
			exp.Category = *body.Category
		}
		if body.ExpenseDate != nil {
			exp.ExpenseDate = *body.ExpenseDate
		}

		amountChanged := false
		if body.Amount != nil && *body.Amount != exp.Amount {
			if *body.Amount <= 0 || *body.Amount > cfg.MaxExpenseAmount {
				return fiber.NewError(fiber.StatusBadRequest, "Amount must be greater than zero and within the allowed limit")
			}
			exp.Amount = *body.Amount
			amountChanged = true
		}

		limits := ledger.Limits{MaxAmount: cfg.MaxExpenseAmount, MaxParticipants: cfg.MaxParticipants}
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(&exp).Error; err != nil {
				return err
			}
			if len(body.ParticipantIDs) > 0 {
				_, err := ledger.RegenerateSplit(tx, &exp, body.ParticipantIDs, limits)
				return err
			}
			if amountChanged {
				return ledger.RescaleSplit(tx, &exp)
			}
			return nil
		})
		if err != nil {
			return ledgerError(err)
		}

		_ = activity.Write(activity.LogOptions{
			GroupID:     &exp.GroupID,
			UserID:      userID,
			UserName:    userName(userID),
			EntityType:  "expense",
			EntityID:    exp.ID,
			Action:      models.ActivityActionUpdate,
			Description: "Updated expense " + exp.Description,
			Before:      before,
			After:       exp,
		})

		return c.JSON(toResponse(&exp))
	}
}

// DELETE /api/expenses/:id
func DeleteExpenseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		expenseID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid expense ID")
		}

		var exp models.Expense
		if err := database.DB.First(&exp, "id = ?", expenseID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Expense not found")
		}
		if exp.PayerID != userID && !group.IsAdmin(exp.GroupID, userID) {
			return fiber.NewError(fiber.StatusForbidden, "Only the payer or a group admin can delete this expense")
		}

		// Deleting the expense also forgives its open IOUs.
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("expense_id = ?", exp.ID).Delete(&models.DebtRecord{}).Error; err != nil {
				return err
			}
			return tx.Delete(&exp).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete expense")
		}

		_ = activity.Write(activity.LogOptions{
			GroupID:     &exp.GroupID,
			UserID:      userID,
			UserName:    userName(userID),
			EntityType:  "expense",
			EntityID:    exp.ID,
			Action:      models.ActivityActionDelete,
			Description: "Deleted expense " + exp.Description,
			Before:      exp,
		})

		return c.JSON(fiber.Map{"message": "Expense deleted"})
	}
}

func userName(userID uuid.UUID) string {
	var user models.User
	if err := database.DB.Select("name").First(&user, "id = ?", userID).Error; err != nil {
		return ""
	}
	return user.Name
}
