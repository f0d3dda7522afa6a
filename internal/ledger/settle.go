package ledger

import (
	"log/slog"

	"squadup-backend/internal/config"
	"squadup-backend/internal/models"

	"gorm.io/gorm"
)

// ApplyPayment records a payment and allocates it against the open debt
// records from the payer to the recipient, oldest first. Fully discharged
// records are deleted; a partially covered record keeps the running total in
// amount_paid. The payment row itself is immutable audit history and is
// written regardless of how much debt it actually cleared.
//
// Debts are matched by the user pair alone, so a payment settles what the
// payer owes the recipient across all groups.
func ApplyPayment(db *gorm.DB, payment *models.Payment, policy config.OverpaymentPolicy) error {
	unlock := lockPair(payment.FromUserID, payment.ToUserID)
	defer unlock()

	return db.Transaction(func(tx *gorm.DB) error {
		var records []models.DebtRecord
		if err := tx.
			Where("debtor_id = ? AND creditor_id = ? AND amount_paid < amount", payment.FromUserID, payment.ToUserID).
			Order("created_at asc, id asc").
			Find(&records).Error; err != nil {
			return err
		}

		if policy == config.OverpaymentReject {
			var outstanding float64
			for _, r := range records {
				outstanding += r.Amount - r.AmountPaid
			}
			if payment.Amount-outstanding > settleEpsilon {
				return ErrOverpayment
			}
		}

		if err := tx.Create(payment).Error; err != nil {
			return err
		}

		remaining := payment.Amount
		for i := range records {
			if remaining <= 0 {
				break
			}
			owed := records[i].Amount - records[i].AmountPaid
			if remaining >= owed {
				if err := tx.Delete(&records[i]).Error; err != nil {
					return err
				}
				remaining -= owed
				continue
			}
			records[i].AmountPaid += remaining
			if err := tx.Model(&records[i]).Update("amount_paid", records[i].AmountPaid).Error; err != nil {
				return err
			}
			remaining = 0
		}

		if remaining > settleEpsilon {
			slog.Warn("payment exceeds outstanding debt, surplus discarded",
				"payment_id", payment.ID,
				"from", payment.FromUserID,
				"to", payment.ToUserID,
				"surplus", remaining)
		}
		return nil
	})
}
