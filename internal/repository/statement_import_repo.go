package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"statement-reconciliation-backend/internal/apperrors"
	"statement-reconciliation-backend/internal/models"
)

type StatementImportRepository struct {
	db *gorm.DB
}

func NewStatementImportRepository(db *gorm.DB) *StatementImportRepository {
	return &StatementImportRepository{db: db}
}

func (r *StatementImportRepository) DB() *gorm.DB {
	return r.db
}

// WithTx binds the repository to an open transaction.
func (r *StatementImportRepository) WithTx(tx *gorm.DB) *StatementImportRepository {
	return &StatementImportRepository{db: tx}
}

// Create inserts the import row. The unique index on file_hash turns a concurrent upload of the
// same file into DUPLICATE_IMPORT.
func (r *StatementImportRepository) Create(ctx context.Context, imp *models.StatementImport) error {
	if err := r.db.WithContext(ctx).Create(imp).Error; err != nil {
		if isUniqueViolation(err) {
			return DuplicateImport(imp.FileHash)
		}
		return apperrors.Internal("create statement import", err)
	}
	return nil
}

func (r *StatementImportRepository) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.StatementImport{}).Where("file_hash = ?", hash).Count(&count).Error
	if err != nil {
		return false, apperrors.Internal("check file hash", err)
	}
	return count > 0, nil
}

func (r *StatementImportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StatementImport, error) {
	var imp models.StatementImport
	if err := r.db.WithContext(ctx).First(&imp, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, apperrors.CodeImportNotFound, "statement import", id)
	}
	return &imp, nil
}

// DuplicateImport is the error returned for a file whose hash is already stored.
func DuplicateImport(hash string) error {
	return apperrors.Conflict(apperrors.CodeDuplicateImport, "this statement file was already imported").
		WithContext("file_hash", hash)
}
