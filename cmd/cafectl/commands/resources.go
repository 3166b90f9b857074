package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cafepanel/internal/crud"
	"cafepanel/internal/models"
	"cafepanel/internal/printer"
	"cafepanel/internal/resource"

	"github.com/spf13/cobra"
)

func resourceCommands(a *app) []*cobra.Command {
	return []*cobra.Command{
		newResourceCmd[models.Category](a, "categories", "Menu categories"),
		newResourceCmd[models.Product](a, "products", "Menu products"),
		newResourceCmd[models.Table](a, "tables", "Dining tables"),
		newResourceCmd[models.Order](a, "orders", "Orders"),
		newResourceCmd[models.Cafe](a, "cafes", "Cafés (platform admins)"),
	}
}

// client builds the REST client for name, decorated with the session's
// auth and tenant headers.
func client[T any](a *app, name string) *resource.Client[T] {
	return resource.New[T](a.cfg.APIURL, name, resource.WithRequestEditor(a.manager.RequestEditor()))
}

func newResourceCmd[T crud.Record[T]](a *app, name, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		newListCmd[T](a, name),
		newGetCmd[T](a, name),
		newCreateCmd[T](a, name),
		newUpdateCmd[T](a, name),
		newDeleteCmd[T](a, name),
	)
	return cmd
}

func newListCmd[T crud.Record[T]](a *app, name string) *cobra.Command {
	var (
		q        string
		page     int
		pageSize int
		filters  []string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List " + name,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			parsed, err := parseFilters(filters)
			if err != nil {
				return printer.Error("Invalid filter", err.Error(), []string{"Use --filter key=value, e.g. --filter status=Active"})
			}
			if pageSize <= 0 {
				pageSize = a.cfg.PageSize
			}

			s := crud.New[T](ctx, client[T](a, name),
				crud.WithQuery(q),
				crud.WithPage(page),
				crud.WithPageSize(pageSize),
				crud.WithFilters(parsed),
			)
			defer s.Close()

			snap := s.Snapshot()
			if snap.Err != nil {
				return requestError("list "+name, snap.Err)
			}
			if asJSON {
				return printer.JSON(resource.Page[T]{Items: snap.Items, Total: snap.Total, Page: snap.Page, PageSize: snap.PageSize})
			}
			if err := printer.Records(snap.Items); err != nil {
				return err
			}
			printer.Info("\npage %d of %d (%d total)", snap.Page, pageCount(snap.Total, snap.PageSize), snap.Total)
			return nil
		},
	}
	cmd.Flags().StringVarP(&q, "query", "q", "", "free-text search")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "records per page (default from config)")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "filter as key=value, repeatable")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw page as JSON")
	return cmd
}

func newGetCmd[T crud.Record[T]](a *app, name string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			record, err := client[T](a, name).Get(ctx, resource.ID(args[0]))
			if err != nil {
				return requestError("get "+name+" "+args[0], err)
			}
			return printer.JSON(record)
		},
	}
}

func newCreateCmd[T crud.Record[T]](a *app, name string) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a record from JSON",
		Example: fmt.Sprintf("  cafectl %s create --data '%s'", name, exampleBody(name)),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			var record T
			if err := decodeData(data, &record); err != nil {
				return printer.Error("Invalid --data", err.Error(), nil)
			}

			s := mutationStore[T](ctx, a, name)
			defer s.Close()

			printer.Step("Creating in %s", name)
			created, err := s.Add(ctx, record)
			if err != nil {
				return requestError("create "+name, err)
			}
			printer.Success("Created %s %s", singular(name), created.RecordID())
			return printer.JSON(created)
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "record as a JSON object")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func newUpdateCmd[T crud.Record[T]](a *app, name string) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Apply a partial JSON update",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			var patch resource.Patch
			if err := decodeData(data, &patch); err != nil {
				return printer.Error("Invalid --data", err.Error(), nil)
			}
			if len(patch) == 0 {
				return printer.Error("Nothing to update", "--data must name at least one field.", nil)
			}

			s := mutationStore[T](ctx, a, name)
			defer s.Close()

			printer.Step("Updating %s %s", singular(name), args[0])
			updated, err := s.Update(ctx, resource.ID(args[0]), patch)
			if err != nil {
				return requestError("update "+name+" "+args[0], err)
			}
			printer.Success("Updated %s %s", singular(name), updated.RecordID())
			return printer.JSON(updated)
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "fields to change as a JSON object")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func newDeleteCmd[T crud.Record[T]](a *app, name string) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a record",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			s := mutationStore[T](ctx, a, name)
			defer s.Close()

			if err := s.Remove(ctx, resource.ID(args[0])); err != nil {
				return requestError("delete "+name+" "+args[0], err)
			}
			printer.Success("Deleted %s %s", singular(name), args[0])
			return nil
		},
	}
}

// mutationStore opens a store for a single mutation. Only the first
// record is fetched; a failed fetch is not fatal since the mutation itself
// reports what the server thinks.
func mutationStore[T crud.Record[T]](ctx context.Context, a *app, name string) *crud.Store[T] {
	return crud.New[T](ctx, client[T](a, name), crud.WithPageSize(1))
}

func decodeData(data string, v any) error {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode JSON: %w", err)
	}
	if dec.More() {
		return errors.New("decode JSON: trailing data after the object")
	}
	return nil
}

func parseFilters(raw []string) (map[string]any, error) {
	filters := make(map[string]any, len(raw))
	for _, entry := range raw {
		key, value, ok := strings.Cut(entry, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%q is not key=value", entry)
		}
		filters[key] = value
	}
	return filters, nil
}

func pageCount(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

func singular(name string) string {
	switch name {
	case "categories":
		return "category"
	default:
		return strings.TrimSuffix(name, "s")
	}
}

func exampleBody(name string) string {
	switch name {
	case "categories":
		return `{"name":"Espresso Bar","type":"Coffee"}`
	case "products":
		return `{"categoryId":1,"name":"Flat White","price":3.5,"status":"Active"}`
	case "tables":
		return `{"name":"T1","seats":4,"status":"available"}`
	case "orders":
		return `{"tableId":1,"items":[{"productId":1,"quantity":2}]}`
	default:
		return `{"name":"Kadıköy","address":"Moda Cd. 1"}`
	}
}

// requestError turns a store or client error into a printed, actionable
// message.
func requestError(action string, err error) error {
	var validation *crud.ValidationError
	if errors.As(err, &validation) {
		return printer.Error("Invalid record", validation.Error(), nil)
	}
	switch resource.StatusCode(err) {
	case 0:
		return printer.Error("Could not "+action, err.Error(), []string{
			"Check that the API is reachable (--api-url or CAFEPANEL_API_URL)",
		})
	case http.StatusUnauthorized:
		return printer.Error("Session rejected", "The server no longer accepts this session.", []string{"Sign in again: cafectl login"})
	case http.StatusForbidden:
		return printer.Error("Not allowed", "Your role cannot "+action+".", nil)
	case http.StatusNotFound:
		return printer.Error("Not found", "Nothing matched: "+action+".", nil)
	default:
		return printer.Error("Could not "+action, err.Error(), nil)
	}
}
