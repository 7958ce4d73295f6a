package cmd

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"statement-reconciliation-backend/internal/apperrors"
	"statement-reconciliation-backend/internal/services/matching"
	service "statement-reconciliation-backend/internal/services/reconciliation"
)

func newSuggestCmd(opts *options) *cobra.Command {
	var (
		accountID     string
		transactionID string
		limit         int
		record        bool
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Rank candidate documents for unmatched incoming transactions",
		Long: `Suggest scores invoices, proformas and orders against unmatched incoming
transactions. With --record the best candidate of every transaction is stored as
a suggestion that can later be confirmed or rejected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := matching.BatchFilter{Limit: limit}
			var err error
			if filter.BankAccountID, err = optionalUUID("--account", accountID); err != nil {
				return err
			}
			if filter.TransactionID, err = optionalUUID("--transaction", transactionID); err != nil {
				return err
			}

			rt, err := opts.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			suggestions, err := rt.svc.SuggestMatches(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if record {
				for _, s := range suggestions {
					if len(s.Suggestions) == 0 {
						continue
					}
					top := s.Suggestions[0]
					if _, err := rt.svc.RecordSuggestion(cmd.Context(), service.SuggestionRequest{
						TransactionID: s.TransactionID,
						MatchType:     top.MatchType,
						CandidateID:   top.CandidateID,
						Amount:        top.TotalAmount,
						Confidence:    top.Score,
						Actor:         opts.actor,
					}); err != nil {
						return err
					}
				}
			}
			return printJSON(cmd.OutOrStdout(), suggestions)
		},
	}

	cmd.Flags().StringVarP(&accountID, "account", "a", "", "only transactions of this bank account")
	cmd.Flags().StringVarP(&transactionID, "transaction", "t", "", "only this transaction")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum transactions to score (default from config)")
	cmd.Flags().BoolVar(&record, "record", false, "store the best candidate of each transaction as a suggestion")
	return cmd
}

func optionalUUID(flag, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperrors.Validation("invalid %s %q", flag, raw)
	}
	return &id, nil
}
