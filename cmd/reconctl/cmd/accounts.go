package cmd

import (
	"github.com/spf13/cobra"

	service "statement-reconciliation-backend/internal/services/reconciliation"
)

func newAccountsCmd(opts *options) *cobra.Command {
	accounts := &cobra.Command{
		Use:   "accounts",
		Short: "List or register bank accounts",
	}

	accounts.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered bank accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			list, err := rt.svc.ListBankAccounts(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		},
	})

	var in service.NewBankAccount
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a bank account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			in.Actor = opts.actor
			acc, err := rt.svc.CreateBankAccount(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), acc)
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "account name (required)")
	create.Flags().StringVar(&in.IBAN, "iban", "", "IBAN, spaces allowed (required)")
	create.Flags().StringVar(&in.BankName, "bank", "", "bank name")
	create.Flags().StringVar(&in.Currency, "currency", "RON", "ISO 4217 currency")
	create.MarkFlagRequired("name")
	create.MarkFlagRequired("iban")
	accounts.AddCommand(create)

	return accounts
}
