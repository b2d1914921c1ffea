package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/domain"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/normalize"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/api"
)

var (
	productCategory string
	productLimit    int
	productSort     string
)

var productsCmd = &cobra.Command{
	Use:   "products [id]",
	Short: "List catalog products, or show one by id",
	Args:  cobra.MaximumNArgs(1),
	Run:   runProducts,
}

func init() {
	productsCmd.Flags().StringVar(&productCategory, "category", "", "filter by category name")
	productsCmd.Flags().IntVar(&productLimit, "limit", 0, "maximum number of products")
	productsCmd.Flags().StringVar(&productSort, "sort", "", "newest, oldest or name")
	addClientFlags(productsCmd)
	rootCmd.AddCommand(productsCmd)
}

func runProducts(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	client := newAPIClient(cfg)
	defer func() {
		_ = client.Close()
	}()

	products := api.NewProductClient(client, normalize.New())
	ctx := context.Background()

	if len(args) == 1 {
		res := products.Get(ctx, args[0])
		if !res.Success {
			fail(res.Error)
		}
		printProducts(os.Stdout, []domain.Product{res.Data})
		return
	}

	res := products.List(ctx, api.ProductQuery{
		Category: productCategory,
		Limit:    productLimit,
		Sort:     productSort,
	})
	if !res.Success {
		fail(res.Error)
	}
	printProducts(os.Stdout, res.Data)
}

func printProducts(out io.Writer, products []domain.Product) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK\tSTATUS")
	for _, p := range products {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%d\t%s\n",
			p.ID, p.Name, p.Category.Name, p.Price, p.Stock, p.Status)
	}
	_ = w.Flush()
}
