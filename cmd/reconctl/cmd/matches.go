package cmd

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"statement-reconciliation-backend/internal/apperrors"
	"statement-reconciliation-backend/internal/models"
	service "statement-reconciliation-backend/internal/services/reconciliation"
)

func newMatchesCmd(opts *options) *cobra.Command {
	matches := &cobra.Command{
		Use:   "matches",
		Short: "Inspect, confirm or reject payment matches",
	}
	matches.AddCommand(newMatchesListCmd(opts), newConfirmCmd(opts), newRejectCmd(opts))
	return matches
}

func newMatchesListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list <transaction-id>",
		Short: "List every match recorded for a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return apperrors.Validation("invalid transaction id %q", args[0])
			}
			rt, err := opts.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			list, err := rt.svc.ListMatches(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		},
	}
}

func newConfirmCmd(opts *options) *cobra.Command {
	var matchID, transactionID, matchType, candidateID, amount string

	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirm a match between a transaction and a document",
		Long: `Confirm links a transaction to an invoice, proforma or order. Pass --match to
confirm a stored suggestion, or --type, --candidate and --amount to confirm directly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := service.ConfirmRequest{MatchType: models.MatchType(matchType), Actor: opts.actor}

			var err error
			if req.TransactionID, err = uuid.Parse(transactionID); err != nil {
				return apperrors.Validation("invalid --transaction %q", transactionID)
			}
			if req.MatchID, err = optionalUUID("--match", matchID); err != nil {
				return err
			}
			if candidateID != "" {
				if req.CandidateID, err = uuid.Parse(candidateID); err != nil {
					return apperrors.Validation("invalid --candidate %q", candidateID)
				}
			}
			if amount != "" {
				if req.Amount, err = decimal.NewFromString(amount); err != nil {
					return apperrors.Validation("invalid --amount %q", amount)
				}
			}

			rt, err := opts.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			id, err := rt.svc.ConfirmMatch(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{"match_id": id, "status": models.MatchStatusConfirmed})
		},
	}

	cmd.Flags().StringVarP(&transactionID, "transaction", "t", "", "bank transaction id (required)")
	cmd.Flags().StringVarP(&matchID, "match", "m", "", "stored suggestion to confirm")
	cmd.Flags().StringVar(&matchType, "type", "", "invoice, proforma or order")
	cmd.Flags().StringVarP(&candidateID, "candidate", "c", "", "document id")
	cmd.Flags().StringVar(&amount, "amount", "", "matched amount")
	cmd.MarkFlagRequired("transaction")
	return cmd
}

func newRejectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <match-id>",
		Short: "Reject a stored suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return apperrors.Validation("invalid match id %q", args[0])
			}
			rt, err := opts.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			if _, err := rt.svc.RejectMatch(cmd.Context(), id, opts.actor); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{"match_id": id, "status": models.MatchStatusRejected})
		},
	}
}
