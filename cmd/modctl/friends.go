package main

import (
	"fmt"

	"github.com/annel0/modrt/internal/namelist"
	"github.com/spf13/cobra"
)

func (c *cli) friendsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "friends",
		Short: "Список друзей, которых не атакует IgnoreList",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Показать список",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := namelist.Open(c.cfg.Friends.Path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if store.Len() == 0 {
				fmt.Fprintln(out, "Список пуст")
				return nil
			}
			for _, name := range store.List() {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <имя>...",
		Short: "Добавить имена",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := namelist.Open(c.cfg.Friends.Path)
			if err != nil {
				return err
			}
			for _, name := range args {
				if store.Add(name) {
					fmt.Fprintf(cmd.OutOrStdout(), "✅ %s добавлен\n", name)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s уже в списке\n", name)
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <имя>...",
		Short: "Удалить имена",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := namelist.Open(c.cfg.Friends.Path)
			if err != nil {
				return err
			}
			missing := 0
			for _, name := range args {
				if store.Remove(name) {
					fmt.Fprintf(cmd.OutOrStdout(), "✅ %s удалён\n", name)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s не найден\n", name)
					missing++
				}
			}
			if missing == len(args) {
				return fmt.Errorf("ни одно имя не найдено в %s", store.Path())
			}
			return nil
		},
	})
	return cmd
}
