package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/loykin/proxyboot/internal/constants"
	"github.com/loykin/proxyboot/internal/store"
	"github.com/spf13/cobra"
)

func (a *app) newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded schema sync runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.loadDoc()
			if err != nil {
				return err
			}
			cfg, err := doc.StoreConfig()
			if err != nil {
				return err
			}
			if cfg == nil {
				return errors.New("no history store configured (set store.type)")
			}
			st, err := store.Open(cmd.Context(), *cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			runs, err := st.ListSyncs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tSTARTED\tOUTCOME\tEXIT\tDURATION\tFAILURE\tSCHEMA")
			for _, r := range runs {
				failure := r.FailureKind
				if failure == "" {
					failure = "-"
				}
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
					r.ID, r.StartedAt.Format(time.RFC3339), r.Outcome, r.ExitCode,
					time.Duration(r.DurationMS)*time.Millisecond, failure, r.SchemaPath)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", constants.DefaultHistoryLimit, "number of runs to show (0 = all)")
	return cmd
}
