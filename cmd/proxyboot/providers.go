package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/loykin/proxyboot/internal/providers"
	"github.com/spf13/cobra"
)

func (a *app) newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the custom providers and models of the proxy config",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.loadDoc()
			if err != nil {
				return err
			}
			rep, err := providers.Load(doc.StartupConfig().ProxyConfigPath)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintf(tw, "config:\t%s\n", rep.Path)
			if len(rep.Providers) == 0 {
				_, _ = fmt.Fprintln(tw, "providers:\tnone (no custom_provider_map)")
			}
			for _, p := range rep.Providers {
				_, _ = fmt.Fprintf(tw, "provider:\t%s\t%s\n", p.Name, p.Handler)
			}
			for _, m := range rep.Models {
				_, _ = fmt.Fprintf(tw, "model:\t%s\t%s\n", m.Name, m.Model)
			}
			return tw.Flush()
		},
	}
}
