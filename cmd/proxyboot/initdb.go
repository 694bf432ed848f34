package main

import (
	"fmt"
	"time"

	"github.com/loykin/proxyboot/internal/common"
	"github.com/loykin/proxyboot/internal/env"
	"github.com/loykin/proxyboot/internal/schemasync"
	"github.com/spf13/cobra"
)

func (a *app) newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Push the proxy database schema once and exit 0 on success, 1 on failure",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.loadDoc()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := common.GetLogger().WithComponent("init-db")
			cfg := doc.StartupConfig()

			logger.Info("initializing database schema", "schema", cfg.SchemaPath)
			res := schemasync.New(doc.SyncConfig()).Synchronize(ctx, schemasync.Request{
				SchemaPath:     cfg.SchemaPath,
				AcceptDataLoss: cfg.AcceptDataLoss,
				Env:            env.FromOS(),
			})
			if st := openHistory(ctx, doc); st != nil {
				if err := st.RecordSync(ctx, res); err != nil {
					logger.Warn("failed to record schema sync result", "error", err)
				}
				_ = st.Close()
			}

			out := cmd.OutOrStdout()
			if !res.OK() {
				_, _ = fmt.Fprintf(out, "database initialization failed: %v\n", res.Err())
				return withExitCode(1, fmt.Errorf("init-db: %w", res.Err()))
			}
			_, _ = fmt.Fprintf(out, "database schema %s (%s)\n", res.Outcome, res.Duration.Round(time.Millisecond))
			return nil
		},
	}
}
