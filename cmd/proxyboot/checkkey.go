package main

import (
	"fmt"

	"github.com/loykin/proxyboot/internal/env"
	"github.com/loykin/proxyboot/internal/startup"
	"github.com/spf13/cobra"
)

func (a *app) newCheckKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-key",
		Short: "Validate the proxy master key without starting anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.loadDoc()
			if err != nil {
				return err
			}
			seq := startup.New(doc.StartupConfig(), nil, nil,
				startup.WithEnv(env.FromOS()),
				startup.WithOutput(cmd.ErrOrStderr()))
			if _, err := seq.CheckKeys(); err != nil {
				return withExitCode(1, err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s is set and well-formed\n", doc.KeyPolicy().EnvName)
			return nil
		},
	}
}
