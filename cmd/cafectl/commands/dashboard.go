package commands

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"cafepanel/internal/models"
	"cafepanel/internal/printer"
	"cafepanel/internal/resource"

	"github.com/spf13/cobra"
)

func newDashboardCmd(a *app) *cobra.Command {
	var (
		since  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show today's KPIs",
		Long:  "Show order, revenue and table KPIs since --since (RFC 3339 or YYYY-MM-DD). Defaults to the start of the UTC day.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			query := url.Values{}
			if since != "" {
				at, err := parseSince(since)
				if err != nil {
					return printer.Error("Invalid --since", err.Error(), []string{"Use 2026-03-01 or 2026-03-01T08:00:00Z"})
				}
				query.Set("since", at.UTC().Format(time.RFC3339))
			}

			dash, err := resource.New[models.Dashboard](a.cfg.APIURL, "dashboard",
				resource.WithRequestEditor(a.manager.RequestEditor())).Fetch(ctx, query)
			if err != nil {
				return requestError("load the dashboard", err)
			}
			if asJSON {
				return printer.JSON(dash)
			}
			printer.KeyValues(dashboardPairs(dash))
			return nil
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "start of the reporting window")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw summary as JSON")
	return cmd
}

func parseSince(raw string) (time.Time, error) {
	if at, err := time.Parse(time.RFC3339, raw); err == nil {
		return at, nil
	}
	at, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither RFC 3339 nor YYYY-MM-DD", raw)
	}
	return at, nil
}

func dashboardPairs(d models.Dashboard) map[string]string {
	pairs := map[string]string{
		"since":           d.Since.Local().Format(time.RFC1123),
		"orders":          strconv.Itoa(d.OrdersCount),
		"revenue":         strconv.FormatFloat(d.Revenue, 'f', 2, 64),
		"open orders":     strconv.Itoa(d.OpenOrders),
		"occupied tables": fmt.Sprintf("%d / %d", d.OccupiedTables, d.TableCount),
		"products":        strconv.Itoa(d.ProductCount),
	}
	statuses := make([]string, 0, len(d.OrdersByStatus))
	for status := range d.OrdersByStatus {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		pairs["orders "+status] = strconv.Itoa(d.OrdersByStatus[status])
	}
	return pairs
}
