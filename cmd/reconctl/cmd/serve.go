package cmd

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"statement-reconciliation-backend/internal/config"
	"statement-reconciliation-backend/internal/routes"
	"statement-reconciliation-backend/pkg/logger"
)

func newServeCmd(opts *options) *cobra.Command {
	var addr string
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			if migrate {
				if err := config.Migrate(rt.db); err != nil {
					return err
				}
			}
			if addr != "" {
				rt.cfg.Server.Addr = addr
			}
			if rt.cfg.Log.Level != logger.DebugLevel {
				gin.SetMode(gin.ReleaseMode)
			}

			r := routes.NewRouter(rt.cfg.Server, rt.svc, logger.GetGlobalLogger())
			rt.log.WithField("addr", rt.cfg.Server.Addr).Infof("Starting reconciliation API")
			return r.Run(rt.cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "migrate the schema before serving")
	return cmd
}
