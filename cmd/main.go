// main.go
package main

import (
	"os"

	"github.com/Abraxas-365/talentledger/pkg/config"
	"github.com/Abraxas-365/talentledger/pkg/logx"
	"github.com/spf13/cobra"
)

var cfg *config.Config

func main() {
	root := &cobra.Command{
		Use:           "talentledger",
		Short:         "Staffing pipeline: candidate imports, assignments and demand reconciliation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded

			logx.SetFormat(cfg.Server.LogFormat)
			logx.SetLevel(logx.ParseLevel(cfg.Server.LogLevel))
			return nil
		},
	}

	root.AddCommand(
		serveCommand(),
		migrateCommand(),
		importCommand(),
		assignmentsCommand(),
		hiresCommand(),
		tokenCommand(),
	)

	if err := root.Execute(); err != nil {
		logx.Errorf("%v", err)
		logx.Sync()
		os.Exit(1)
	}
}
