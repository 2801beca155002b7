package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vaidashi/order-status-sync/internal/models"
	"github.com/vaidashi/order-status-sync/internal/service"
	"github.com/vaidashi/order-status-sync/internal/view"
	apperrors "github.com/vaidashi/order-status-sync/pkg/errors"
)

func newOrdersCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders and change their status",
	}

	cmd.AddCommand(newOrdersListCmd(c))
	cmd.AddCommand(newOrdersAddCmd(c))
	cmd.AddCommand(newOrdersAdvanceCmd(c))
	cmd.AddCommand(newOrdersCancelCmd(c))
	cmd.AddCommand(newOrdersSetStatusCmd(c))

	return cmd
}

// withApp runs fn against a freshly wired app and closes it afterwards
func (c *cli) withApp(ctx context.Context, fn func(a *app) error) error {
	a, err := newApp(ctx, c.cfg, c.log, cliConnectAttempts, true)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	return fn(a)
}

func newOrdersListCmd(c *cli) *cobra.Command {
	var (
		status string
		search string
		sortBy string
		dir    string
		page   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show one page of orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := models.Status(status)
			if filter != "" && !filter.Valid() {
				return apperrors.NewInvalidInputError("unknown status " + status)
			}
			key, err := view.ParseSortKey(sortBy)
			if err != nil {
				return err
			}
			direction, err := view.ParseDirection(dir)
			if err != nil {
				return err
			}

			return c.withApp(cmd.Context(), func(a *app) error {
				orders, err := a.orders.Query(cmd.Context(), filter)
				if err != nil {
					return err
				}

				p := view.Project(orders, view.Query{
					Search:    search,
					SortKey:   key,
					Direction: direction,
					Page:      page,
					PageSize:  c.cfg.Feed.PageSize,
				})
				renderOrders(cmd.OutOrStdout(), p)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Only orders with this status")
	cmd.Flags().StringVar(&search, "search", "", "Match folio, customer or note")
	cmd.Flags().StringVar(&sortBy, "sort", "date", "Sort by date, total or status")
	cmd.Flags().StringVar(&dir, "dir", "desc", "Sort direction, asc or desc")
	cmd.Flags().IntVar(&page, "page", 1, "Page to show")

	return cmd
}

func newOrdersAddCmd(c *cli) *cobra.Command {
	var order models.Order
	var method, status string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an order",
		RunE: func(cmd *cobra.Command, args []string) error {
			order.Method = models.FulfillmentMethod(method)
			if order.Method != models.MethodPickup && order.Method != models.MethodDelivery {
				return apperrors.NewInvalidInputError("method must be pickup or delivery")
			}
			order.Status = models.Status(status)
			if !order.Status.Valid() {
				return apperrors.NewInvalidInputError("unknown status " + status)
			}
			if order.Date == "" {
				order.Date = time.Now().Format(time.DateOnly)
			}
			if order.Total == 0 {
				order.Total = order.Subtotal + order.ShippingCost
			}

			return c.withApp(cmd.Context(), func(a *app) error {
				id, err := a.orders.Create(cmd.Context(), &order)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created order %s as %s\n", order.Folio, id)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&order.Folio, "folio", "", "Order folio shown to customers (required)")
	f.StringVar(&order.Date, "date", "", "Order date, YYYY-MM-DD (default today)")
	f.StringVar(&order.ReadyBy, "ready-by", "", "Promised ready time")
	f.IntVar(&order.Quantity, "quantity", 1, "Number of items")
	f.Float64Var(&order.Subtotal, "subtotal", 0, "Subtotal")
	f.Float64Var(&order.ShippingCost, "shipping", 0, "Shipping cost")
	f.Float64Var(&order.Total, "total", 0, "Total (default subtotal + shipping)")
	f.StringVar(&order.CustomerName, "customer", "", "Customer name")
	f.StringVar(&method, "method", string(models.MethodPickup), "pickup or delivery")
	f.StringVar(&order.Address, "address", "", "Delivery address")
	f.StringVar(&order.Note, "note", "", "Free-text note")
	f.StringVar(&order.TrackingID, "tracking-id", "", "Tracking id mirrored for customers")
	f.StringVar(&status, "status", string(models.StatusNew), "Initial status")
	_ = cmd.MarkFlagRequired("folio")

	return cmd
}

func newOrdersAdvanceCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "advance <order-id>",
		Short: "Move an order to its next status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.changeStatus(cmd, args[0], func(s *service.StatusService, o *models.Order) (*service.Result, error) {
				return s.Advance(cmd.Context(), o)
			})
		},
	}
}

func newOrdersCancelCmd(c *cli) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "cancel <order-id>",
		Short: "Cancel an order after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.changeStatus(cmd, args[0], func(s *service.StatusService, o *models.Order) (*service.Result, error) {
				return s.Cancel(cmd.Context(), o, func() bool {
					return yes || confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
						fmt.Sprintf("Cancel order %s?", o.Folio))
				})
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}

func newOrdersSetStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <order-id> <status>",
		Short: "Write an explicit status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, ok := models.ParseStatus(args[1])
			if !ok {
				return apperrors.NewInvalidInputError("unknown status " + args[1])
			}
			return c.changeStatus(cmd, args[0], func(s *service.StatusService, o *models.Order) (*service.Result, error) {
				return s.SetStatus(cmd.Context(), o, status)
			})
		},
	}
}

type statusChange func(s *service.StatusService, o *models.Order) (*service.Result, error)

func (c *cli) changeStatus(cmd *cobra.Command, id string, change statusChange) error {
	out := cmd.OutOrStdout()

	return c.withApp(cmd.Context(), func(a *app) error {
		order, err := a.orders.Get(cmd.Context(), id)
		if err != nil {
			return err
		}

		result, err := change(a.statusService(printNotifier{w: out}), order)
		if result == nil && err == nil {
			fmt.Fprintf(out, "Order %s unchanged (%s)\n", order.Folio, colorStatus(order.CurrentStatus()))
			return nil
		}
		if result != nil {
			fmt.Fprintf(out, "tracking: %s\n", result.Tracking)
		}
		return err
	})
}

// confirm asks a yes/no question; anything but y or yes declines
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func renderOrders(out io.Writer, p view.Page) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFOLIO\tDATE\tCUSTOMER\tTOTAL\tPROGRESS\tSTATUS")

	for _, o := range p.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%d%%\t%s\n",
			o.DocID, o.Folio, o.Date, o.CustomerName, o.Total,
			service.Progress(o.Status), colorStatus(o.CurrentStatus()))
	}
	w.Flush()

	fmt.Fprintf(out, "\nPage %d/%d, %d orders\n", p.Page, p.TotalPages, p.TotalCount)
}

func colorStatus(s models.Status) string {
	attr := color.FgWhite
	switch s {
	case models.StatusNew:
		attr = color.FgCyan
	case models.StatusConfirmed, models.StatusPreparing:
		attr = color.FgYellow
	case models.StatusReady:
		attr = color.FgBlue
	case models.StatusDelivered:
		attr = color.FgGreen
	case models.StatusCancelled:
		attr = color.FgRed
	}
	return color.New(attr).Sprint(string(s))
}
