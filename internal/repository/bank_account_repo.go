package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"statement-reconciliation-backend/internal/apperrors"
	"statement-reconciliation-backend/internal/models"
)

type BankAccountRepository struct {
	db *gorm.DB
}

func NewBankAccountRepository(db *gorm.DB) *BankAccountRepository {
	return &BankAccountRepository{db: db}
}

func (r *BankAccountRepository) DB() *gorm.DB {
	return r.db
}

// Create inserts the account. A second account with the same IBAN is a DUPLICATE_IBAN conflict.
func (r *BankAccountRepository) Create(ctx context.Context, acc *models.BankAccount) error {
	if err := r.db.WithContext(ctx).Create(acc).Error; err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict(apperrors.CodeDuplicateIBAN, "bank account with IBAN %s already exists", acc.IBAN)
		}
		return apperrors.Internal("create bank account", err)
	}
	return nil
}

func (r *BankAccountRepository) List(ctx context.Context) ([]models.BankAccount, error) {
	var accounts []models.BankAccount
	if err := r.db.WithContext(ctx).Order("name ASC, iban ASC").Find(&accounts).Error; err != nil {
		return nil, apperrors.Internal("list bank accounts", err)
	}
	return accounts, nil
}

func (r *BankAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BankAccount, error) {
	var acc models.BankAccount
	if err := r.db.WithContext(ctx).First(&acc, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, apperrors.CodeAccountNotFound, "bank account", id)
	}
	return &acc, nil
}

func (r *BankAccountRepository) ExistsByIBAN(ctx context.Context, iban string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.BankAccount{}).Where("iban = ?", iban).Count(&count).Error; err != nil {
		return false, apperrors.Internal("check iban", err)
	}
	return count > 0, nil
}
