// Команда modctl - утилита обслуживания: список друзей, сохранённая
// конфигурация модулей и выпуск токенов для REST API.
package main

import (
	"fmt"
	"os"

	"github.com/annel0/modrt/internal/config"
	"github.com/annel0/modrt/internal/logging"
	"github.com/spf13/cobra"
)

// cli хранит общие флаги и загруженную конфигурацию.
type cli struct {
	configPath string
	verbose    bool
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "modctl",
		Short:         "Обслуживание modrt",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts := logging.DefaultOptions()
			opts.ConsoleLevel = logging.WARN
			if c.verbose {
				opts.ConsoleLevel = logging.DEBUG
			}
			opts.Console = cmd.ErrOrStderr()
			if err := logging.InitDefaultLogger("modctl", opts); err != nil {
				return err
			}

			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "путь к YAML-конфигурации (по умолчанию MODRT_CONFIG)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "подробные логи")

	root.AddCommand(c.friendsCmd(), c.modulesCmd(), c.tokenCmd())
	return root
}

func main() {
	err := newRootCmd().Execute()
	logging.CloseDefaultLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
