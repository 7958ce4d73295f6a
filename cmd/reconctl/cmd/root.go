package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"statement-reconciliation-backend/internal/apperrors"
	"statement-reconciliation-backend/internal/audit"
	"statement-reconciliation-backend/internal/config"
	service "statement-reconciliation-backend/internal/services/reconciliation"
	"statement-reconciliation-backend/pkg/logger"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	cfgFile string
	verbose bool
	actor   string
}

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "reconctl",
		Short: "Bank statement reconciliation tool",
		Long: `reconctl imports bank statements, suggests matching invoices, proformas and
orders for incoming payments and records confirmations, against the same database
the HTTP API uses.

Examples:
  reconctl migrate
  reconctl accounts create --name Operating --iban RO49AAAA1B31007593840000 --currency RON
  reconctl import --file extras.pdf --bank BT --account <account-id>
  reconctl suggest --account <account-id> --record
  reconctl matches confirm --transaction <tx-id> --type invoice --candidate <invoice-id> --amount 4500.00
  reconctl serve`,
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (optional)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVar(&opts.actor, "actor", "", "actor recorded in the audit log (default system)")

	root.AddCommand(
		newMigrateCmd(opts),
		newAccountsCmd(opts),
		newImportCmd(opts),
		newSuggestCmd(opts),
		newMatchesCmd(opts),
		newServeCmd(opts),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

func versionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}

// ReportError prints err for a terminal user and returns the exit code.
func ReportError(w io.Writer, err error) int {
	if appErr, ok := apperrors.As(err); ok {
		fmt.Fprintf(w, "Error [%s]: %s\n", appErr.Code, appErr.Message)
		if appErr.Category == apperrors.CategoryValidation {
			return 2
		}
		return 1
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	return 1
}

// runtime is everything a subcommand needs once config and database are up.
type runtime struct {
	cfg *config.Config
	log logger.Logger
	db  *gorm.DB
	svc *service.ReconciliationService
}

func (o *options) open() (*runtime, error) {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return nil, err
	}
	if o.verbose {
		cfg.Log.Level = logger.DebugLevel
	}

	log, err := logger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, err
	}
	logger.SetGlobalLogger(log)

	db, err := config.InitDB(cfg.Database)
	if err != nil {
		return nil, err
	}

	sink := audit.Multi{audit.NewGormSink(db, log), audit.NewLogSink(log)}
	return &runtime{
		cfg: cfg,
		log: log.WithComponent("cli"),
		db:  db,
		svc: service.NewReconciliationService(db, cfg, sink, log),
	}, nil
}

func (r *runtime) Close() {
	if sqlDB, err := r.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
