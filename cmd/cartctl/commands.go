package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/config"
	"github.com/natededev/de-commerce/internal/domain"
	"github.com/natededev/de-commerce/internal/localcart"
)

// skipSession marks commands that run without resuming or merging the stored
// session, so they work even when the server rejects it.
const skipSession = "cartctl/skip-session"

func newRootCmd() *cobra.Command {
	var (
		a       *app
		apiURL  string
		logLvl  string
		storeIn string
	)

	root := &cobra.Command{
		Use:          "cartctl",
		Short:        "Manage the storefront cart",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.ClientFromEnv()
			if apiURL != "" {
				cfg.APIBaseURL = apiURL
			}
			cfg.LogLevel = logLvl
			if storeIn != "" {
				cfg.StoreDir = storeIn
			}
			var err error
			if a, err = newApp(cfg); err != nil {
				return err
			}
			if cmd.Annotations[skipSession] != "" {
				a.rec.Start(cmd.Context())
				return nil
			}
			return a.start(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a != nil {
				a.close()
			}
		},
	}
	root.PersistentFlags().StringVar(&apiURL, "api", "", "API base URL (overrides API_BASE_URL)")
	root.PersistentFlags().StringVar(&logLvl, "log-level", "warn", "log level")
	root.PersistentFlags().StringVar(&storeIn, "store-dir", "", "local cart directory (overrides CART_STORE_DIR)")
	root.PersistentFlags().String("config", "", "config file")

	current := func() *app { return a }
	root.AddCommand(
		loginCmd(current),
		logoutCmd(current),
		showCmd(current),
		addCmd(current),
		removeCmd(current),
		setCmd(current),
		clearCmd(current),
		productsCmd(current),
	)
	return root
}

func loginCmd(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Sign in and merge the local cart into the server cart",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a().client.Login(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			sess := localcart.NewSession(s.Token, s.User, s.ExpiresIn, time.Now())
			if err := a().sessions.Save(ctx, sess); err != nil {
				return err
			}
			if err := a().merge(ctx, sess); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", s.User.Email)
			return printCart(cmd.OutOrStdout(), a().rec.Cart())
		},
	}
}

func logoutCmd(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:         "logout",
		Short:       "Sign out, keeping the last cart locally",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSession: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, signedIn, err := a().sessions.Load(cmd.Context())
			if err != nil {
				a().logger.Warn("read session", zap.Error(err))
			}
			if signedIn {
				if err := a().client.Logout(cmd.Context()); err != nil {
					a().logger.Warn("server logout failed", zap.Error(err))
				}
			}
			if err := a().sessions.Clear(cmd.Context()); err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), a().rec.Logout(cmd.Context()))
		},
	}
}

func showCmd(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Session: %s\n", a().rec.State())
			return printCart(cmd.OutOrStdout(), a().rec.Cart())
		},
	}
}

func addCmd(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <productID> [quantity]",
		Short: "Add a product to the cart",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty := 1
			if len(args) == 2 {
				var err error
				if qty, err = parseQuantity(args[1]); err != nil {
					return err
				}
			}
			product, err := a().client.GetProduct(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cart, err := a().rec.Add(cmd.Context(), product, qty)
			if err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), cart)
		},
	}
}

func removeCmd(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <productID>",
		Short: "Remove a product from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cart, err := a().rec.Remove(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), cart)
		},
	}
}

func setCmd(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <productID> <quantity>",
		Short: "Set a line's quantity; 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return domain.Invalid("quantity", "must be an integer")
			}
			cart, err := a().rec.UpdateQuantity(cmd.Context(), args[0], qty)
			if err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), cart)
		},
	}
}

func clearCmd(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every line from the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cart, err := a().rec.Clear(cmd.Context())
			if err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), cart)
		},
	}
}

func productsCmd(a func() *app) *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List catalog products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a().client.ListProducts(cmd.Context(), page, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCK")
			for _, p := range res.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", p.ID, p.Name, p.Price.StringFixed(2), p.StockCount)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "page %d, %d of %d products\n", res.Page, len(res.Items), res.Total)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 10, "page size")
	return cmd
}

func parseQuantity(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, domain.Invalid("quantity", "must be a positive integer")
	}
	return n, nil
}

func printCart(out io.Writer, cart domain.Cart) error {
	if cart.IsEmpty() {
		_, err := fmt.Fprintln(out, "Cart is empty")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tNAME\tQTY\tPRICE\tSUBTOTAL")
	for _, l := range cart.Lines {
		sub := l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", l.ProductID, l.Product.Name, l.Quantity, l.Product.Price.StringFixed(2), sub.StringFixed(2))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "Items: %d  Total: %s\n", cart.ItemCount, cart.Total.StringFixed(2))
	return err
}
