package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/IntakeDesk/internal/model"
	"github.com/dharsanguruparan/IntakeDesk/internal/view"
)

func newOrdersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List, create and delete intake orders",
	}
	cmd.AddCommand(
		newOrdersListCmd(a),
		newOrdersCreateCmd(a),
		newOrdersDeleteCmd(a),
	)
	return cmd
}

func newOrdersListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show every order, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.requestContext(cmd)
			defer cancel()
			c := a.ordersController()
			defer c.Close()
			if err := c.Activate(ctx); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), view.Orders(c.State()).String())
			return nil
		},
	}
}

func newOrdersCreateCmd(a *app) *cobra.Command {
	var draft model.OrderDraft
	var status string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an order and print the refreshed list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := model.ParseStatus(status)
			if err != nil {
				return err
			}
			draft.Status = st
			if err := draft.Validate(); err != nil {
				return err
			}
			ctx, cancel := a.requestContext(cmd)
			defer cancel()
			c := a.ordersController()
			defer c.Close()
			c.UpdateDraft(func(d *model.OrderDraft) { *d = draft })
			if err := c.Submit(ctx); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), view.Orders(c.State()).String())
			return nil
		},
	}
	cmd.Flags().StringVar(&draft.PatientFirstName, "first", "", "Patient first name (required)")
	cmd.Flags().StringVar(&draft.PatientLastName, "last", "", "Patient last name (required)")
	cmd.Flags().StringVar(&draft.DOB, "dob", "", "Date of birth, YYYY-MM-DD")
	cmd.Flags().StringVar(&status, "status", string(model.StatusNew), "new, processing or complete")
	_ = cmd.MarkFlagRequired("first")
	_ = cmd.MarkFlagRequired("last")
	return cmd
}

func newOrdersDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an order by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid order id %q", args[0])
			}
			ctx, cancel := a.requestContext(cmd)
			defer cancel()
			c := a.ordersController()
			defer c.Close()
			if err := c.Remove(ctx, id); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), view.Orders(c.State()).String())
			return nil
		},
	}
}
