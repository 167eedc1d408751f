package main

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sakif/storefront/internal/client"
	"github.com/sakif/storefront/internal/model"
)

// ---- session ----

func (a *app) loginCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Print the Google login URL, or adopt a session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				fmt.Fprintf(a.out, "Open this URL in a browser and sign in:\n\n  %s\n\n", a.client.LoginURL())
				fmt.Fprintf(a.out, "Then copy the %q cookie and run: storectl login --token <value>\n", sessionCookie)
				return nil
			}
			a.client.SetCookie(sessionCookie, token)
			user, err := a.client.User(cmd.Context())
			if err != nil {
				return fmt.Errorf("token rejected: %w", err)
			}
			fmt.Fprintf(a.out, "Logged in as %s\n", user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "session cookie value from the browser")
	return cmd
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.client.User(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(user)
			}
			role := "customer"
			if user.IsAdmin {
				role = "admin"
			}
			fmt.Fprintf(a.out, "%s %s <%s> (%s)\n", user.FirstName, user.LastName, user.Email, role)
			return nil
		},
	}
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out successfully")
			return nil
		},
	}
}

// ---- catalog ----

func (a *app) productsCmd() *cobra.Command {
	var (
		q                  client.ProductQuery
		minPrice, maxPrice string
	)
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if q.MinPrice, err = parsePrice("min-price", minPrice); err != nil {
				return err
			}
			if q.MaxPrice, err = parsePrice("max-price", maxPrice); err != nil {
				return err
			}
			products, err := a.client.Products(cmd.Context(), q)
			if err != nil {
				return err
			}
			return a.printProducts(products)
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.Search, "search", "", "match name or description")
	f.StringVar(&q.CategoryID, "category", "", "category ID")
	f.StringVar(&minPrice, "min-price", "", "lowest price")
	f.StringVar(&maxPrice, "max-price", "", "highest price")
	f.BoolVar(&q.Featured, "featured", false, "featured products only")
	f.BoolVar(&q.IncludeInactive, "all", false, "include inactive products (admin)")
	return cmd
}

func (a *app) productCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "product <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.client.Product(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(p)
		},
	}
}

func (a *app) categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := a.client.Categories(cmd.Context())
			if err != nil {
				return err
			}
			return a.printCategories(cats)
		},
	}
}

// ---- cart ----

func (a *app) cartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.client.Cart(cmd.Context())
			if err != nil {
				return err
			}
			return a.printCart(items)
		},
	}

	var qty int
	add := &cobra.Command{
		Use:   "add <productID>",
		Short: "Add a product, or increase its quantity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := a.client.AddToCart(cmd.Context(), args[0], qty)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s x%d in cart (item %s)\n", args[0], item.Quantity, item.ID)
			return nil
		},
	}
	add.Flags().IntVar(&qty, "qty", 1, "quantity to add")

	update := &cobra.Command{
		Use:   "update <itemID> <quantity>",
		Short: "Set a line's quantity; 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity must be a whole number, got %q", args[1])
			}
			item, err := a.client.UpdateCartItem(cmd.Context(), args[0], n)
			if err != nil {
				return err
			}
			if item == nil {
				fmt.Fprintf(a.out, "Removed %s\n", args[0])
				return nil
			}
			fmt.Fprintf(a.out, "%s now x%d\n", item.ID, item.Quantity)
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <itemID>",
		Short: "Remove a line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.RemoveFromCart(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Removed %s\n", args[0])
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.ClearCart(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Cart cleared")
			return nil
		},
	}

	cmd.AddCommand(add, update, remove, clearCmd)
	return cmd
}

// ---- orders ----

func (a *app) checkoutCmd() *cobra.Command {
	var addr model.ShippingAddress
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Turn the cart into an order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := a.client.Checkout(cmd.Context(), addr)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(order)
			}
			fmt.Fprintf(a.out, "Order %s placed: %d items, total %s\n",
				order.ID, len(order.Items), order.Total.StringFixed(2))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr.FirstName, "first-name", "", "recipient first name")
	f.StringVar(&addr.LastName, "last-name", "", "recipient last name")
	f.StringVar(&addr.Address, "address", "", "street address")
	f.StringVar(&addr.City, "city", "", "city")
	f.StringVar(&addr.State, "state", "", "state or region")
	f.StringVar(&addr.ZipCode, "zip", "", "postal code")
	f.StringVar(&addr.Country, "country", "", "country")
	return cmd
}

func (a *app) ordersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List your orders, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orders, err := a.client.Orders(cmd.Context())
			if err != nil {
				return err
			}
			return a.printOrders(orders)
		},
	}
}

func (a *app) orderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "order <id>",
		Short: "Show one of your orders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.client.Order(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(o)
		},
	}
}

// ---- contact ----

func (a *app) contactCmd() *cobra.Command {
	var req client.ContactRequest
	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Send a message to the shop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.client.SendContact(cmd.Context(), req); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Message sent")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Name, "name", "", "your name")
	f.StringVar(&req.Email, "email", "", "reply address")
	f.StringVar(&req.Subject, "subject", "", "subject")
	f.StringVar(&req.Message, "message", "", "message body")
	return cmd
}

// parsePrice reads an optional decimal flag.
func parsePrice(flag, s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("--%s: %q is not a number", flag, s)
	}
	return &d, nil
}
