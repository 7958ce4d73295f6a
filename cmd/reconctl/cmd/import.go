package cmd

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"statement-reconciliation-backend/internal/apperrors"
	"statement-reconciliation-backend/internal/services/importer"
)

const dateLayout = "2006-01-02"

func newImportCmd(opts *options) *cobra.Command {
	var (
		file        string
		bankCode    string
		accountID   string
		periodStart string
		periodEnd   string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a bank statement file (text, PDF or XLSX)",
		Long: `Import parses a statement with the parser of the given bank and stores its
transactions. Re-importing the same file is rejected; transactions already known
for the account are skipped.

Examples:
  reconctl import --file extras-ian.pdf --bank BT --account <account-id>
  reconctl import --file ing.txt --bank ING --account <account-id> \
    --period-start 2024-01-01 --period-end 2024-01-31`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuid.Parse(accountID)
			if err != nil {
				return apperrors.Validation("invalid --account %q", accountID)
			}
			period, err := parsePeriod(periodStart, periodEnd)
			if err != nil {
				return err
			}
			body, err := os.ReadFile(file)
			if err != nil {
				return apperrors.Validation("cannot read %s: %v", file, err)
			}

			rt, err := opts.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.svc.ImportStatement(cmd.Context(), importer.Request{
				FileBytes:      body,
				Filename:       filepath.Base(file),
				BankCode:       bankCode,
				BankAccountID:  id,
				DeclaredPeriod: period,
				Actor:          opts.actor,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "statement file (required)")
	cmd.Flags().StringVarP(&bankCode, "bank", "b", "", "bank code: BT or ING (required)")
	cmd.Flags().StringVarP(&accountID, "account", "a", "", "bank account id (required)")
	cmd.Flags().StringVar(&periodStart, "period-start", "", "declared period start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&periodEnd, "period-end", "", "declared period end (YYYY-MM-DD)")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("bank")
	cmd.MarkFlagRequired("account")
	return cmd
}

func parsePeriod(start, end string) (*importer.Period, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return nil, apperrors.Validation("--period-start must be YYYY-MM-DD")
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return nil, apperrors.Validation("--period-end must be YYYY-MM-DD")
	}
	return &importer.Period{Start: s, End: e}, nil
}
