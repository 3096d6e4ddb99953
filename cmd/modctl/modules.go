package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/annel0/modrt/internal/module"
	"github.com/annel0/modrt/internal/modules"
	"github.com/annel0/modrt/internal/runtime"
	"github.com/annel0/modrt/internal/storage"
	"github.com/spf13/cobra"
)

func (c *cli) modulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "Сохранённая конфигурация модулей (демон должен быть остановлен)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Показать модули и их сохранённое состояние",
		Args:  cobra.NoArgs,
		RunE:  c.runModulesList,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "enable <модуль>",
		Short: "Включить модуль",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.mutate(cmd, args[0], func(m module.Module) error { m.SetEnabled(true); return nil })
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "disable <модуль>",
		Short: "Выключить модуль",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.mutate(cmd, args[0], func(m module.Module) error { m.SetEnabled(false); return nil })
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <модуль> <настройка> <значение>",
		Short: "Изменить значение настройки",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.mutate(cmd, args[0], func(m module.Module) error {
				s := m.Setting(args[1])
				if s == nil {
					return fmt.Errorf("у модуля %s нет настройки %q", m.Name(), args[1])
				}
				prev := s.Serialize()
				if err := s.Deserialize(args[2]); err != nil {
					// Deserialize сбросил значение к умолчанию, возвращаем прежнее.
					_ = s.Deserialize(prev)
					return err
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset-keybinds",
		Short: "Вернуть всем модулям клавиши по умолчанию",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := c.openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			rt.Manager.ResetAllKeybinds()
			if err := rt.Shutdown(context.Background()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Клавиши сброшены у %d модулей\n", len(rt.Manager.All()))
			return nil
		},
	})
	return cmd
}

func (c *cli) openRuntime(ctx context.Context) (*runtime.Runtime, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := storage.Open(ctx, c.cfg.StorageOptions())
	if err != nil {
		return nil, err
	}
	rt, err := runtime.New(ctx, runtime.Options{Store: store})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return rt, nil
}

// mutate применяет fn к модулю и сохраняет снимок при остановке runtime.
// Команда выполняется в своём потоке, поэтому он и есть управляющий.
func (c *cli) mutate(cmd *cobra.Command, name string, fn func(module.Module) error) error {
	rt, err := c.openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	m := rt.Manager.Get(name)
	if m == nil {
		return errors.Join(fmt.Errorf("модуль %q не найден", name), rt.Shutdown(context.Background()))
	}
	if err := fn(m); err != nil {
		return errors.Join(err, rt.Shutdown(context.Background()))
	}
	if err := rt.Shutdown(context.Background()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ %s: включён=%t, клавиша=%s\n", m.Name(), m.Enabled(), module.KeyName(m.Keybind()))
	return nil
}

// runModulesList читает хранилище без сборки runtime, чтобы ничего не записать.
func (c *cli) runModulesList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := storage.Open(ctx, c.cfg.StorageOptions())
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := store.Load(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "МОДУЛЬ\tКАТЕГОРИЯ\tВКЛ\tКЛАВИША\tНАСТРОЙКИ")
	for _, m := range module.Discover(modules.Catalog()) {
		rec, saved := snap.Lookup(m.Name())

		keybind := m.DefaultKeybind()
		if saved && rec.Keybind != nil {
			keybind = *rec.Keybind
		}
		values := make(map[string]string)
		for _, s := range m.Settings() {
			values[s.Name()] = s.Serialize()
		}
		for k, v := range rec.Settings {
			if _, known := values[k]; known {
				values[k] = v
			}
		}

		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n",
			m.Name(), m.Category(), saved && rec.Enabled, module.KeyName(keybind), formatSettings(values))
	}
	return w.Flush()
}

func formatSettings(values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, values[k]))
	}
	return strings.Join(parts, "; ")
}
