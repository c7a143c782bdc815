package persistence

import (
	"context"
	"fmt"

	"github.com/bizsuite/backend/internal/domain/sales"
	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/bizsuite/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StatusRPC implements sales.StatusUpdater as a server-side transaction.
// A call that is already applied, or that would move the status backwards,
// succeeds without writing, so replaying it is harmless.
type StatusRPC struct {
	repo
	logger *zap.Logger
}

// NewStatusRPC creates a new StatusRPC
func NewStatusRPC(db *gorm.DB, guard *CallGuard, logger *zap.Logger) *StatusRPC {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusRPC{repo: repo{db: db, guard: guard}, logger: logger}
}

// UpdateSalePaymentStatus advances a sale's status and ORs its verified flag
func (r *StatusRPC) UpdateSalePaymentStatus(ctx context.Context, saleID uuid.UUID, status sales.Status, verified bool) error {
	if !status.IsValid() {
		return shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("Invalid status %q", status))
	}

	return r.do(ctx, "update_sales_payment_status", func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			var row models.SaleModel
			if err := tx.Select("id", "status", "verified").Where("id = ?", saleID).First(&row).Error; err != nil {
				return err
			}

			current := sales.Status(row.Status)
			next := current
			if status.Rank() > current.Rank() {
				next = status
			}
			nextVerified := row.Verified || verified
			if next == current && nextVerified == row.Verified {
				r.logger.Debug("status call already applied",
					zap.String("sale_id", saleID.String()),
					zap.String("status", string(current)),
				)
				return nil
			}

			result := tx.Model(&models.SaleModel{}).
				Where("id = ? AND status = ?", saleID, row.Status).
				Updates(map[string]any{
					"status":   string(next),
					"verified": nextVerified,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return shared.WrapDomainError(shared.CodeRemoteWrite, shared.ErrRemoteWrite.Message,
					fmt.Errorf("sale %s changed during status update", saleID))
			}
			return nil
		})
	})
}

// Ensure StatusRPC implements StatusUpdater
var _ sales.StatusUpdater = (*StatusRPC)(nil)
