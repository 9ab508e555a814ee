package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/bi-triage-agent/internal/domain"
	"github.com/spec-kit/bi-triage-agent/internal/repository"
)

const dateLayout = "2006-01-02"

func newTicketsCmd(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "Ticket management commands",
	}

	cmd.AddCommand(newTicketsListCmd(env))
	cmd.AddCommand(newTicketsGetCmd(env))
	cmd.AddCommand(newTicketsUpdateCmd(env))
	cmd.AddCommand(newTicketsHistoryCmd(env))
	return cmd
}

func newTicketsListCmd(env *environment) *cobra.Command {
	var (
		statuses []string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tickets, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := env.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			filter := repository.TicketFilter{Limit: limit}
			for _, st := range statuses {
				filter.Statuses = append(filter.Statuses, domain.TicketStatus(st))
			}
			tickets, err := s.services.Tickets.ListTickets(cmd.Context(), filter)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NUMBER\tSTATUS\tPRI\tDIFF\tTYPE\tREQUESTER\tOWNER\tCREATED")
			for _, t := range tickets {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					t.TicketNumber, t.Status, t.Priority, t.Difficulty, t.RequestType,
					t.RequesterName, orDash(t.TicketOwner), t.CreatedDate.Format(dateLayout))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "only these statuses (repeatable, e.g. --status New --status \"In Progress\")")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows (0 = all)")
	return cmd
}

func newTicketsGetCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "get <ticket-number>",
		Short: "Show one ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := env.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			t, err := s.services.Tickets.GetTicket(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printTicket(cmd, t)
			return nil
		},
	}
}

func newTicketsUpdateCmd(env *environment) *cobra.Command {
	var (
		status string
		owner  string
		start  string
		end    string
		actor  string
	)

	cmd := &cobra.Command{
		Use:   "update <ticket-id>",
		Short: "Update status, owner or estimated dates",
		Long:  "Only flags that are passed are changed. Dates use YYYY-MM-DD.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var update domain.TicketUpdate
			flags := cmd.Flags()
			if flags.Changed("status") {
				st := domain.TicketStatus(status)
				update.Status = &st
			}
			if flags.Changed("owner") {
				update.TicketOwner = &owner
			}
			if flags.Changed("start") {
				d, err := time.Parse(dateLayout, start)
				if err != nil {
					return fmt.Errorf("--start: %w", err)
				}
				update.EstimatedStartDate = &d
			}
			if flags.Changed("end") {
				d, err := time.Parse(dateLayout, end)
				if err != nil {
					return fmt.Errorf("--end: %w", err)
				}
				update.EstimatedEndDate = &d
			}
			if update.Empty() {
				return fmt.Errorf("nothing to update: pass --status, --owner, --start or --end")
			}

			s, err := env.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			t, err := s.services.Tickets.UpdateTicket(cmd.Context(), args[0], actor, update)
			if err != nil {
				return err
			}
			printTicket(cmd, t)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "New, In Progress, On Hold, Completed or Closed")
	cmd.Flags().StringVar(&owner, "owner", "", "ticket owner")
	cmd.Flags().StringVar(&start, "start", "", "estimated start date")
	cmd.Flags().StringVar(&end, "end", "", "estimated end date")
	cmd.Flags().StringVar(&actor, "actor", "triagectl", "name recorded in the ticket history")
	return cmd
}

func newTicketsHistoryCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "history <ticket-id>",
		Short: "Show the change history of a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := env.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.services.Tickets.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tBY\tFIELD\tFROM\tTO")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					e.CreatedAt.Format(time.RFC3339), e.ChangedBy, e.Field, dash(e.OldValue), dash(e.NewValue))
			}
			return w.Flush()
		},
	}
}

func printTicket(cmd *cobra.Command, t *domain.Ticket) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Ticket:     %s (%s)\n", t.TicketNumber, t.ID)
	fmt.Fprintf(out, "Status:     %s\n", t.Status)
	fmt.Fprintf(out, "Priority:   %s\n", t.Priority)
	fmt.Fprintf(out, "Difficulty: %s\n", t.Difficulty)
	fmt.Fprintf(out, "Type:       %s\n", t.RequestType)
	fmt.Fprintf(out, "Requester:  %s (%s)\n", t.RequesterName, t.RequesterID)
	fmt.Fprintf(out, "Owner:      %s\n", orDash(t.TicketOwner))
	fmt.Fprintf(out, "Estimate:   %s .. %s\n", dateOrDash(t.EstimatedStartDate), dateOrDash(t.EstimatedEndDate))
	fmt.Fprintf(out, "Summary:    %s\n", t.Summary)
	if links := strings.TrimSpace(t.Links); links != "" {
		fmt.Fprintf(out, "Links:      %s\n", links)
	}
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return dash(*s)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func dateOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(dateLayout)
}
