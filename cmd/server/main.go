package main

import (
	"log/slog"
	"os"
	"strings"

	"squadup-backend/internal/activity"
	"squadup-backend/internal/auth"
	"squadup-backend/internal/config"
	"squadup-backend/internal/database"
	"squadup-backend/internal/expense"
	"squadup-backend/internal/group"
	"squadup-backend/internal/payment"
	"squadup-backend/internal/poll"
	"squadup-backend/pkg/logging"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	logging.Setup()

	cfg := config.Load()
	database.Init(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			slog.Error("unexpected error", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Unexpected server error",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register", auth.RegisterHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Groups and membership
	protected.Post("/groups", group.CreateGroupHandler(cfg))
	protected.Get("/groups", group.ListGroupsHandler())
	protected.Get("/groups/:id", group.GetGroupHandler())
	protected.Put("/groups/:id", group.UpdateGroupHandler())
	protected.Delete("/groups/:id", group.DeleteGroupHandler())
	protected.Post("/groups/:id/members", group.AddMemberHandler(cfg))
	protected.Delete("/groups/:id/members/:userId", group.RemoveMemberHandler())

	// Balances and settle-up suggestions
	protected.Get("/groups/:id/balances", group.BalancesHandler())
	protected.Get("/groups/:id/settle-up", group.SettleUpHandler())

	// Activity feed
	protected.Get("/groups/:id/activity", activity.ListGroupActivityHandler())

	// Expenses
	protected.Post("/expenses", expense.CreateExpenseHandler(cfg))
	protected.Get("/expenses/:id", expense.GetExpenseHandler())
	protected.Put("/expenses/:id", expense.UpdateExpenseHandler(cfg))
	protected.Delete("/expenses/:id", expense.DeleteExpenseHandler())
	protected.Get("/groups/:id/expenses", expense.ListGroupExpensesHandler())

	// Payments
	protected.Post("/payments", payment.CreatePaymentHandler(cfg))
	protected.Get("/groups/:id/payments", payment.ListGroupPaymentsHandler())

	// Polls
	protected.Post("/polls", poll.CreatePollHandler())
	protected.Get("/polls/:id", poll.GetPollHandler())
	protected.Put("/polls/:id", poll.UpdatePollHandler())
	protected.Delete("/polls/:id", poll.DeletePollHandler())
	protected.Post("/polls/:id/votes", poll.VoteHandler())
	protected.Post("/polls/:id/close", poll.ClosePollHandler())
	protected.Get("/groups/:id/polls", poll.ListGroupPollsHandler())

	slog.Info("server listening", "port", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
