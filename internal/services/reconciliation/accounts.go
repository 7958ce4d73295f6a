package reconciliation

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jbub/banking/iban"

	"statement-reconciliation-backend/internal/apperrors"
	"statement-reconciliation-backend/internal/audit"
	"statement-reconciliation-backend/internal/models"
)

var currencyShape = regexp.MustCompile(`^[A-Z]{3}$`)

type NewBankAccount struct {
	Name     string `json:"name"`
	IBAN     string `json:"iban"`
	BankName string `json:"bank_name"`
	Currency string `json:"currency"`
	Actor    string `json:"-"`
}

func (s *ReconciliationService) ListBankAccounts(ctx context.Context) ([]models.BankAccount, error) {
	accounts, err := s.accountRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []models.BankAccount{}
	}
	return accounts, nil
}

// CreateBankAccount registers an account. The IBAN is stored upper-case without spaces.
func (s *ReconciliationService) CreateBankAccount(ctx context.Context, in NewBankAccount) (*models.BankAccount, error) {
	name := strings.TrimSpace(in.Name)
	normalized := NormalizeIBAN(in.IBAN)
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))

	switch {
	case name == "":
		return nil, apperrors.Validation("name is required")
	case !ValidIBAN(normalized):
		return nil, apperrors.Validation("invalid IBAN %q", in.IBAN)
	case !currencyShape.MatchString(currency):
		return nil, apperrors.Validation("currency must be a 3-letter ISO code")
	}

	exists, err := s.accountRepo.ExistsByIBAN(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.Conflict(apperrors.CodeDuplicateIBAN, "bank account with IBAN %s already exists", normalized)
	}

	acc := &models.BankAccount{
		ID:       uuid.New(),
		Name:     name,
		IBAN:     normalized,
		BankName: strings.TrimSpace(in.BankName),
		Currency: currency,
	}
	if err := s.accountRepo.Create(ctx, acc); err != nil {
		return nil, err
	}

	s.sink.Record(ctx, audit.Event{
		Action:       audit.ActionAccountCreate,
		ResourceType: "bank_account",
		ResourceID:   acc.ID.String(),
		AfterState:   acc,
		ActorID:      actorOrSystem(in.Actor),
		Timestamp:    time.Now().UTC(),
	})
	return acc, nil
}

func NormalizeIBAN(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// ValidIBAN checks a normalized IBAN against its country's length and BBAN layout and the mod-97 check digits.
func ValidIBAN(s string) bool {
	return iban.Validate(s) == nil
}
