package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vaidashi/order-status-sync/internal/auth"
	"github.com/vaidashi/order-status-sync/internal/service"
)

func newPingCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the order store is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app) error {
				n, err := a.orders.Ping(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "store reachable (%s), %d document(s) read\n", c.cfg.DB.Driver, n)
				return nil
			})
		},
	}
}

func newTrackingCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "tracking <tracking-id>",
		Short: "Show the customer-facing tracking record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app) error {
				t, err := a.tracking.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Tracking %s for order %s\n", t.TrackingID, t.Folio)
				fmt.Fprintf(out, "  status:   %s (%d%%)\n", colorStatus(t.Status), service.Progress(t.Status))
				fmt.Fprintf(out, "  method:   %s\n", t.Method)
				fmt.Fprintf(out, "  total:    %.2f\n", t.Total)
				if t.ReadyBy != nil {
					fmt.Fprintf(out, "  ready by: %s\n", *t.ReadyBy)
				}
				return nil
			})
		},
	}
}

func newTokenCmd(c *cli) *cobra.Command {
	var (
		subject string
		email   string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator bearer token signed with the configured secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			authn, err := auth.NewAuthenticator(c.cfg.Auth.JWTSecret, c.cfg.Auth.JWTIssuer)
			if err != nil {
				return err
			}

			token, err := authn.GenerateToken(subject, email, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Operator id (required)")
	cmd.Flags().StringVar(&email, "email", "", "Operator email")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}
