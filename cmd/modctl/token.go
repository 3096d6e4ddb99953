package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/annel0/modrt/internal/auth"
	"github.com/spf13/cobra"
)

func (c *cli) tokenCmd() *cobra.Command {
	var (
		subject string
		admin   bool
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Выпустить Bearer-токен для REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg.API.JWTSecret == "" {
				return errors.New("api.jwt_secret не задан: авторизация API выключена")
			}
			signer, err := auth.NewSigner(c.cfg.API.JWTSecret)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = c.cfg.API.TokenTTL
			}
			token, err := signer.Generate(subject, admin, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "владелец токена")
	cmd.Flags().BoolVar(&admin, "admin", true, "права администратора")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "срок действия (по умолчанию api.token_ttl)")

	cmd.AddCommand(&cobra.Command{
		Use:   "secret",
		Short: "Сгенерировать новый секрет для api.jwt_secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), auth.GenerateSecureSecret())
			return nil
		},
	})
	return cmd
}
