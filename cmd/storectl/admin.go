package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/storefront/internal/client"
	"github.com/sakif/storefront/internal/model"
)

// adminCmd groups the back-office commands. The server enforces the admin
// role; these only call the endpoints.
func (a *app) adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Back-office commands (admin accounts only)",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "orders",
			Short: "List every order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				orders, err := a.client.AdminOrders(cmd.Context())
				if err != nil {
					return err
				}
				return a.printOrders(orders)
			},
		},
		&cobra.Command{
			Use:   "users",
			Short: "List accounts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				users, err := a.client.AdminUsers(cmd.Context())
				if err != nil {
					return err
				}
				return a.printUsers(users)
			},
		},
		&cobra.Command{
			Use:   "contact",
			Short: "List contact messages",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				msgs, err := a.client.AdminContact(cmd.Context())
				if err != nil {
					return err
				}
				return a.printMessages(msgs)
			},
		},
		&cobra.Command{
			Use:   "status <orderID> <status>",
			Short: "Set an order's status",
			Long:  "Set an order's status: pending, processing, shipped, delivered or cancelled.",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				o, err := a.client.UpdateOrderStatus(cmd.Context(), args[0], model.OrderStatus(args[1]))
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Order %s is now %s\n", o.ID, o.Status)
				return nil
			},
		},
		a.adminProductCmd(),
		a.adminCategoryCmd(),
	)
	return cmd
}

func (a *app) adminProductCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Create or delete products",
	}

	var (
		req        client.ProductRequest
		price      string
		categoryID string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePrice("price", price)
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("--price is required")
			}
			req.Price = *p
			if categoryID != "" {
				req.CategoryID = &categoryID
			}
			created, err := a.client.CreateProduct(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created product %s\n", created.ID)
			return nil
		},
	}
	f := create.Flags()
	f.StringVar(&req.Name, "name", "", "product name")
	f.StringVar(&req.Description, "description", "", "description")
	f.StringVar(&price, "price", "", "price, e.g. 12.50")
	f.StringVar(&req.ImageURL, "image-url", "", "image URL")
	f.StringVar(&categoryID, "category", "", "category ID")
	f.BoolVar(&req.Featured, "featured", false, "feature on the home page")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Deactivate a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.DeleteProduct(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deactivated %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(create, del)
	return cmd
}

func (a *app) adminCategoryCmd() *cobra.Command {
	var description string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client.CreateCategory(cmd.Context(), args[0], description)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created category %s\n", c.ID)
			return nil
		},
	}
	create.Flags().StringVar(&description, "description", "", "description")

	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage categories",
	}
	cmd.AddCommand(create)
	return cmd
}

