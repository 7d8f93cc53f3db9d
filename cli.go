package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"rekubricks/entities"
	"rekubricks/models"
	"rekubricks/repository"
	"rekubricks/services"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cartSession   string
	assumeYes     bool
	handoffsSince time.Duration
	listSearch    string
	listCategory  string
	listShown     int
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Catalog maintenance",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Load a YAML piece list into the catalog database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Catalog.Driver == "" {
			return errors.New("catalog import needs catalog.driver and catalog.dsn")
		}
		src, err := repository.NewFileCatalog(args[0], logger)
		if err != nil {
			return err
		}
		catalog, _, closeCatalog, err := openCatalog()
		if err != nil {
			return err
		}
		defer closeCatalog()
		dst, ok := catalog.(services.PieceImporter)
		if !ok {
			return errors.New("catalog backend does not accept imports")
		}
		n, err := services.Import(src, dst, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Se cargaron %d piezas.\n", n)
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the pieces a storefront visitor would see",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, _, closeCatalog, err := openCatalog()
		if err != nil {
			return err
		}
		defer closeCatalog()
		cas := services.NewCatalogService(catalog, logger)
		fs, err := cas.NewFilter(services.WithPageSize(cfg.Catalog.PageSize))
		if err != nil {
			return err
		}
		fs.SetSearchTerm(listSearch)
		fs.SetCategory(listCategory)
		if listShown > 0 {
			fs.ShowAtLeast(listShown)
		}
		printPieces(cmd.OutOrStdout(), fs.Visible(), fs.View())
		return nil
	},
}

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Inspect and edit a cart session from the terminal",
}

var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCart(cmd, func(cs *services.CartService, _ repository.CatalogRepository, _ repository.HandoffRepository) error {
			printCart(cmd.OutOrStdout(), cs)
			return nil
		})
	},
}

var cartAddCmd = &cobra.Command{
	Use:   "add <piece-id>",
	Short: "Add one unit of a catalog piece",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCart(cmd, func(cs *services.CartService, catalog repository.CatalogRepository, _ repository.HandoffRepository) error {
			p, ok, err := catalog.GetPieceById(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: piece %s", models.ErrNotFoundError, args[0])
			}
			err = cs.Add(services.AddRequestFor(p))
			if err == nil {
				printCart(cmd.OutOrStdout(), cs)
			}
			return err
		})
	},
}

var cartSetCmd = &cobra.Command{
	Use:   "set <id> <quantity|+n|-n>",
	Short: "Set a quantity, or step it with a signed delta",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		change := parseChange(args[1])
		return withCart(cmd, func(cs *services.CartService, _ repository.CatalogRepository, _ repository.HandoffRepository) error {
			err := cs.SetQuantity(args[0], change)
			printCart(cmd.OutOrStdout(), cs)
			return err
		})
	},
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a line item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCart(cmd, func(cs *services.CartService, _ repository.CatalogRepository, _ repository.HandoffRepository) error {
			if _, ok := cs.Item(args[0]); !ok {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s no está en el carrito.\n", args[0])
				return nil
			}
			err := cs.Remove(args[0])
			if errors.Is(err, models.ErrCancelled) {
				return nil
			}
			if err == nil {
				printCart(cmd.OutOrStdout(), cs)
			}
			return err
		})
	},
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCart(cmd, func(cs *services.CartService, _ repository.CatalogRepository, _ repository.HandoffRepository) error {
			err := cs.Clear()
			if errors.Is(err, models.ErrCancelled) {
				return nil
			}
			return err
		})
	},
}

var cartOrderCmd = &cobra.Command{
	Use:   "order",
	Short: "Print the WhatsApp link for the cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCart(cmd, func(cs *services.CartService, _ repository.CatalogRepository, handoffs repository.HandoffRepository) error {
			var hr repository.HandoffRepository
			if cfg.Order.LogHandoffs {
				hr = handoffs
			}
			ors := services.NewOrderService(cfg.Order.WhatsAppPhone, hr, logger)
			h, err := ors.Handoff(cartSession, cs.Snapshot(), newTerminalPrompter(cmd.InOrStdin(), cmd.ErrOrStderr(), assumeYes))
			if err != nil {
				if errors.Is(err, models.ErrEmptyCart) {
					return nil
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h.Link)
			return nil
		})
	},
}

var handoffsCmd = &cobra.Command{
	Use:   "handoffs",
	Short: "Inspect the log of orders sent to WhatsApp",
}

var handoffsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List handoffs recorded since a given age",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, hr, closeCatalog, err := openCatalog()
		if err != nil {
			return err
		}
		defer closeCatalog()
		if hr == nil {
			return errors.New("handoff log needs catalog.driver and catalog.dsn")
		}
		list, err := hr.ListHandoffs(time.Now().Add(-handoffsSince))
		if err != nil {
			return err
		}
		printHandoffs(cmd.OutOrStdout(), list)
		return nil
	},
}

func init() {
	catalogListCmd.Flags().StringVarP(&listSearch, "query", "q", "", "search term")
	catalogListCmd.Flags().StringVar(&listCategory, "category", models.CategoryAll, "category, or all")
	catalogListCmd.Flags().IntVar(&listShown, "shown", 0, "show at least this many matches")
	catalogCmd.AddCommand(catalogImportCmd, catalogListCmd)
	handoffsListCmd.Flags().DurationVar(&handoffsSince, "since", 24*time.Hour, "how far back to list")
	handoffsCmd.AddCommand(handoffsListCmd)
	cartCmd.PersistentFlags().StringVarP(&cartSession, "session", "s", "", "cart session id (empty for the default cart)")
	cartCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to confirmations")
	cartCmd.AddCommand(cartShowCmd, cartAddCmd, cartSetCmd, cartRemoveCmd, cartClearCmd, cartOrderCmd)
}

func withCart(cmd *cobra.Command, fn func(*services.CartService, repository.CatalogRepository, repository.HandoffRepository) error) error {
	kv, closeKV, err := openCartStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeKV()
	catalog, handoffs, closeCatalog, err := openCatalog()
	if err != nil {
		return err
	}
	defer closeCatalog()
	cartRepo, err := repository.NewCartRepository(kv, cartSession, logger)
	if err != nil {
		return err
	}
	prompt := newTerminalPrompter(cmd.InOrStdin(), cmd.ErrOrStderr(), assumeYes)
	cs, err := services.NewCartService(cartRepo, prompt, logger)
	if err != nil {
		return err
	}
	logger.Debug("cart opened", zap.String("key", cartRepo.Key()), zap.Int("items", len(cs.Items())))
	return fn(cs, catalog, handoffs)
}

func parseChange(arg string) services.QuantityChange {
	if strings.HasPrefix(arg, "+") || strings.HasPrefix(arg, "-") {
		if n, err := strconv.Atoi(arg); err == nil {
			return services.Delta(n)
		}
	}
	return services.Absolute(arg)
}

func printCart(w io.Writer, cs *services.CartService) {
	items := cs.Items()
	if len(items) == 0 {
		fmt.Fprintln(w, models.MsgEmptyCart)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNOMBRE\tCOLOR\tCANT.\tPRECIO")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", item.Id, item.Name, item.Color, item.Quantity, services.FormatMoney(item.LinePrice()))
	}
	tw.Flush()
	fmt.Fprintf(w, "Subtotal: %s (%d piezas)\n", services.FormatMoney(cs.Subtotal()), cs.Count())
}

func printPieces(w io.Writer, pieces []entities.Piece, view entities.GridView) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNOMBRE\tCOLOR\tCATEGORIA\tPRECIO")
	for _, p := range pieces {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Id, p.Name, p.Color, p.Category, services.FormatMoney(p.Price))
	}
	tw.Flush()
	fmt.Fprintf(w, "%d de %d piezas\n", view.Shown, view.Matching)
}

func printHandoffs(w io.Writer, list []entities.Handoff) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No hay pedidos registrados.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FECHA\tSESION\tPIEZAS\tSUBTOTAL\tID")
	for _, h := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", h.Date.Local().Format("2006-01-02 15:04"), h.CartSessionId, h.Items, services.FormatMoney(h.Subtotal), h.Id)
	}
	tw.Flush()
}

// terminalPrompter asks y/n questions on a terminal.
type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
	yes bool
}

func newTerminalPrompter(in io.Reader, out io.Writer, yes bool) *terminalPrompter {
	return &terminalPrompter{in: bufio.NewReader(in), out: out, yes: yes}
}

func (t *terminalPrompter) Confirm(message string) bool {
	if t.yes {
		return true
	}
	fmt.Fprintf(t.out, "%s [s/N] ", message)
	line, _ := t.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "s", "si", "sí", "y", "yes":
		return true
	}
	return false
}

func (t *terminalPrompter) Alert(message string) {
	fmt.Fprintln(t.out, message)
}
