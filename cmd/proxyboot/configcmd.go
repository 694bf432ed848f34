package main

import (
	"strings"

	"github.com/loykin/proxyboot/internal/common"
	"github.com/spf13/cobra"
)

func (a *app) newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.loadDoc()
			if err != nil {
				return err
			}
			var sb strings.Builder
			if err := doc.WriteYAML(&sb); err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write([]byte(common.MaskSensitiveData(sb.String())))
			return err
		},
	}
}
