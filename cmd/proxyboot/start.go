package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/loykin/proxyboot/internal/common"
	"github.com/loykin/proxyboot/internal/dbwait"
	"github.com/loykin/proxyboot/internal/env"
	"github.com/loykin/proxyboot/internal/schemasync"
	"github.com/loykin/proxyboot/internal/startup"
	"github.com/loykin/proxyboot/internal/store"
	"github.com/spf13/cobra"
)

// launcher is replaced in tests.
var launcher startup.Launcher = startup.ExecLauncher{}

func (a *app) newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Check the master key, sync the database schema and start the proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.loadDoc()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e := env.FromOS()
			opts := []startup.Option{startup.WithEnv(e), startup.WithOutput(cmd.ErrOrStderr())}
			if doc.Database.Wait {
				w := dbwait.New(doc.DBWaitConfig(), dbwait.WithEnv(e))
				if w.URL() != "" {
					opts = append(opts, startup.WithWaiter(w))
				}
			}
			// the store is opened only after the key gates pass
			opts = append(opts, startup.WithRecorderOpener(func(ctx context.Context) (startup.Recorder, func()) {
				st := openHistory(ctx, doc)
				if st == nil {
					return nil, nil
				}
				return st, func() { _ = st.Close() }
			}))

			seq := startup.New(doc.StartupConfig(), schemasync.New(doc.SyncConfig()), launcher, opts...)
			return withExitCode(seq.Run(ctx))
		},
	}
}

// openHistory opens the optional history store. Failures are warnings: the
// store never blocks startup.
func openHistory(ctx context.Context, doc *ConfigDoc) *store.Store {
	cfg, err := doc.StoreConfig()
	if err != nil {
		common.LogWarn("history store disabled", "error", err)
		return nil
	}
	if cfg == nil {
		return nil
	}
	st, err := store.Open(ctx, *cfg)
	if err != nil {
		common.LogWarn("history store unavailable", "error", err, "driver", cfg.Driver)
		return nil
	}
	return st
}
