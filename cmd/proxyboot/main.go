package main

import (
	"errors"
	"strings"

	"github.com/loykin/proxyboot/internal/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the viper instance shared by one command tree.
type app struct {
	v *viper.Viper
}

// loadDoc decodes the configuration and installs the logger.
func (a *app) loadDoc() (*ConfigDoc, error) {
	doc, err := LoadConfig(a.v)
	if err != nil {
		return nil, err
	}
	if err := doc.SetupLogging(); err != nil {
		return nil, err
	}
	return doc, nil
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	setDefaults(v)
	// PROXYBOOT_CONFIG, PROXYBOOT_SYNC_TIMEOUT, PROXYBOOT_STORE_TYPE, ...
	v.SetEnvPrefix("PROXYBOOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	a := &app{v: v}
	root := &cobra.Command{
		Use:           "proxyboot",
		Short:         "Prepare the proxy database and hand off to the proxy server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", v.GetString("config"), "path to a proxyboot config yaml")
	root.PersistentFlags().String("log-level", "", "log level: error, warn, info, debug")
	root.PersistentFlags().String("log-format", "", "log format: text, json, color")
	_ = v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("logging.level", root.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("logging.format", root.PersistentFlags().Lookup("log-format"))

	root.AddCommand(
		a.newStartCmd(),
		a.newInitDBCmd(),
		a.newCheckKeyCmd(),
		a.newProvidersCmd(),
		a.newHistoryCmd(),
		a.newWaitCmd(),
		a.newConfigCmd(),
	)
	return root
}

func main() {
	err := newRootCmd().Execute()
	var ec *exitCodeError
	if errors.As(err, &ec) {
		if ec.err != nil {
			common.GetLogger().WithComponent("main").Debug("exiting", "code", ec.code, "error", ec.err)
		}
		exitHandler.Exit(ec.code)
		return
	}
	if err != nil {
		exitHandler.LogFatalError(err, "command execution failed")
	}
}
