package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"carrethree/internal/cart"
	"carrethree/internal/config"
	"carrethree/internal/domain"
	"carrethree/internal/inventory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// execute runs one shopper command and releases local storage afterwards
func execute(ctx context.Context, args []string, out io.Writer) error {
	var current *app
	defer func() {
		if current != nil {
			current.Close()
		}
	}()

	root := rootCmd(&current)
	root.SetArgs(args)
	root.SetOut(out)
	return root.ExecuteContext(ctx)
}

func rootCmd(current **app) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:           "shopper",
		Short:         "Browse the grocery catalog and manage your cart",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), config.LoadClient(), verbose)
			if err != nil {
				return err
			}
			*current = a
			return nil
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	get := func() *app { return *current }
	cmd.AddCommand(productsCmd(get), cartCmd(get), loginCmd(get), registerCmd(get), logoutCmd(get), whoamiCmd(get))
	return cmd
}

func productsCmd(get func() *app) *cobra.Command {
	var filter domain.ProductFilter

	cmd := &cobra.Command{
		Use:   "products",
		Short: "List catalog products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			products, err := a.api.ListProducts(cmd.Context(), filter)
			if err != nil {
				return err
			}
			lines, err := a.session.Lines(cmd.Context())
			if err != nil {
				return err
			}

			inCart := make(map[uuid.UUID]int, len(lines))
			for _, line := range lines {
				inCart[line.ProductID] = line.Quantity
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK\tIN CART\tSTATE")
			for _, p := range products {
				state := inventory.StateOf(p.StockCount, inCart[p.ID])
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
					p.ID, p.Name, p.Category, p.Price.StringFixed(2), p.StockCount, inCart[p.ID], state)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&filter.Keyword, "keyword", "k", "", "Case-insensitive name search")
	cmd.Flags().StringVarP(&filter.Category, "category", "c", "", "Only this category")
	return cmd
}

func cartCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show or change the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showCart(cmd, get())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the cart and its totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showCart(cmd, get())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <product-id> [quantity]",
		Short: "Add a product, limited by the remaining stock",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			quantity := 1
			if len(args) == 2 {
				if quantity, err = parseQuantity(args[1]); err != nil {
					return err
				}
			}
			a := get()
			if err := a.session.AddLine(cmd.Context(), productID, quantity); err != nil {
				return err
			}
			return showCart(cmd, a)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <product-id> <quantity>",
		Short: "Set the quantity of a line; 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			quantity, err := parseQuantity(args[1])
			if err != nil {
				return err
			}
			a := get()
			if err := a.session.SetQuantity(cmd.Context(), productID, quantity); err != nil {
				return err
			}
			return showCart(cmd, a)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			a := get()
			if err := a.session.RemoveLine(cmd.Context(), productID); err != nil {
				return err
			}
			return showCart(cmd, a)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := get().session.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cart cleared.")
			return nil
		},
	})

	return cmd
}

func showCart(cmd *cobra.Command, a *app) error {
	lines, err := a.session.Lines(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(lines) == 0 {
		fmt.Fprintln(out, "Your cart is empty.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tQTY\tPRICE\tSUBTOTAL\tSTATE")
	for _, line := range lines {
		if !line.Available {
			name := line.Product.Name
			if name == "" {
				name = "(removed from catalog)"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t-\t-\tunavailable\n", line.ProductID, name, line.Quantity)
			continue
		}
		subtotal := line.Product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			line.ProductID, line.Product.Name, line.Quantity,
			line.Product.Price.StringFixed(2), subtotal.StringFixed(2), line.State)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	totals := a.session.Totals()
	fmt.Fprintf(out, "\nItems: %d  Total: %s\n", totals.Items, totals.Price.StringFixed(2))
	if err := totals.Err(); err != nil {
		fmt.Fprintf(out, "Warning: %v\n", err)
	}
	return nil
}

func loginCmd(get func() *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and merge the guest cart into your account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id, err := a.api.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := a.signIn(cmd.Context(), id); err != nil {
				return err
			}
			return reportSignIn(cmd, a, id)
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", os.Getenv("SHOPPER_PASSWORD"), "Account password (or SHOPPER_PASSWORD)")
	cmd.MarkFlagRequired("email")
	return cmd
}

func registerCmd(get func() *app) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id, err := a.api.Register(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			if err := a.signIn(cmd.Context(), id); err != nil {
				return err
			}
			return reportSignIn(cmd, a, id)
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", os.Getenv("SHOPPER_PASSWORD"), "Account password (or SHOPPER_PASSWORD)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	return cmd
}

func reportSignIn(cmd *cobra.Command, a *app, id cart.Identity) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Signed in as %s <%s>.\n", id.Name, id.Email)
	if err := a.session.MergeErr(); err != nil {
		fmt.Fprintf(out, "Your guest cart could not be merged and was kept for the next sign-in: %v\n", err)
	}
	totals := a.session.Totals()
	fmt.Fprintf(out, "Cart: %d item(s), total %s\n", totals.Items, totals.Price.StringFixed(2))
	return nil
}

func logoutCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and return to the guest cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := get().signOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func whoamiCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, ok := get().session.Identity()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Shopping as guest.")
				return nil
			}
			role := "customer"
			if id.IsAdmin {
				role = "admin"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s)\n", id.Name, id.Email, role)
			return nil
		},
	}
}

func parseProductID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid product id %q", cart.ErrValidation, raw)
	}
	return id, nil
}

func parseQuantity(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid quantity %q", cart.ErrValidation, raw)
	}
	return n, nil
}
