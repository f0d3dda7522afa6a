package ledger

import (
	"testing"
	"time"

	"squadup-backend/internal/database"
	"squadup-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := models.User{Name: name, Email: name + "@test.local", PasswordHash: "x"}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return &u
}

func createGroup(t *testing.T, db *gorm.DB, creator *models.User, members ...*models.User) *models.Group {
	t.Helper()
	g := models.Group{Name: "test group", CreatedBy: creator.ID}
	if err := db.Create(&g).Error; err != nil {
		t.Fatalf("create group: %v", err)
	}
	addMember(t, db, g.ID, creator, models.RoleAdmin)
	for _, m := range members {
		addMember(t, db, g.ID, m, models.RoleMember)
	}
	return &g
}

func addMember(t *testing.T, db *gorm.DB, groupID uuid.UUID, u *models.User, role models.MemberRole) {
	t.Helper()
	gm := models.GroupMember{GroupID: groupID, UserID: u.ID, Role: role}
	if err := db.Create(&gm).Error; err != nil {
		t.Fatalf("add member: %v", err)
	}
}

func createExpense(t *testing.T, db *gorm.DB, groupID, payerID uuid.UUID, amount float64) *models.Expense {
	t.Helper()
	e := models.Expense{
		GroupID:     groupID,
		PayerID:     payerID,
		Amount:      amount,
		Description: "test expense",
		ExpenseDate: time.Now(),
	}
	if err := db.Create(&e).Error; err != nil {
		t.Fatalf("create expense: %v", err)
	}
	return &e
}

// createDebt inserts a debt record with an explicit creation time so tests
// can pin the settlement order.
func createDebt(t *testing.T, db *gorm.DB, expenseID, debtorID, creditorID uuid.UUID, amount float64, createdAt time.Time) *models.DebtRecord {
	t.Helper()
	r := models.DebtRecord{
		ExpenseID:  expenseID,
		DebtorID:   debtorID,
		CreditorID: creditorID,
		Amount:     amount,
		CreatedAt:  createdAt,
	}
	if err := db.Create(&r).Error; err != nil {
		t.Fatalf("create debt record: %v", err)
	}
	return &r
}

func outstanding(t *testing.T, db *gorm.DB, debtorID, creditorID uuid.UUID) float64 {
	t.Helper()
	var records []models.DebtRecord
	if err := db.Where("debtor_id = ? AND creditor_id = ?", debtorID, creditorID).Find(&records).Error; err != nil {
		t.Fatalf("load debt records: %v", err)
	}
	var sum float64
	for _, r := range records {
		sum += r.Amount - r.AmountPaid
	}
	return sum
}
