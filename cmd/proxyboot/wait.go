package main

import (
	"fmt"

	"github.com/loykin/proxyboot/internal/health"
	"github.com/spf13/cobra"
)

func (a *app) newWaitCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Poll the proxy health endpoint until it reports healthy",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.loadDoc()
			if err != nil {
				return err
			}
			cfg, client := doc.HealthConfig()
			probe := health.New(cfg, client)
			if once {
				err = probe.Check(cmd.Context())
			} else {
				err = probe.Wait(cmd.Context())
			}
			if err != nil {
				return withExitCode(1, err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "healthy")
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "check a single time instead of polling (container healthcheck)")
	return cmd
}
