package commands

import (
	"context"
	"fmt"

	"github.com/grocerypos/pos_backend/config"
	"github.com/grocerypos/pos_backend/models"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	seedEmail    string
	seedPassword string
	seedPhone    string
)

type demoProduct struct {
	name     string
	category string
	cost     string
	price    string
	stock    int
}

var demoProducts = []demoProduct{
	{"Basmati Rice 5kg", "Grains", "380", "450", 40},
	{"Toor Dal 1kg", "Pulses", "120", "145", 25},
	{"Sunflower Oil 1L", "Oils", "130", "160", 30},
	{"Milk 500ml", "Dairy", "24", "28", 60},
	{"Salt 1kg", "Essentials", "18", "24", 4},
}

var seedDemoCmd = &cobra.Command{
	Use:   "seed-demo",
	Short: "Create a demo store with an owner and a small catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := connect(); err != nil {
			return err
		}
		if err := models.Migrate(config.GetDB()); err != nil {
			return err
		}
		ctx := context.Background()

		result, err := models.Signup(ctx, &models.NewSignup{
			StoreName:     "Demo Grocery",
			ContactPhone:  seedPhone,
			Address:       "1 Market Road",
			City:          "Pune",
			State:         "MH",
			FirstName:     "Demo",
			LastName:      "Owner",
			Email:         seedEmail,
			Password:      seedPassword,
			TermsAccepted: true,
		})
		if err != nil {
			return fmt.Errorf("create demo store: %w", err)
		}

		for _, p := range demoProducts {
			_, err := models.CreateProduct(ctx, result.StoreId, &models.NewProduct{
				Name:          p.name,
				Category:      p.category,
				CostPrice:     decimal.RequireFromString(p.cost),
				SellingPrice:  decimal.RequireFromString(p.price),
				StockQuantity: p.stock,
			})
			if err != nil {
				return fmt.Errorf("create product %q: %w", p.name, err)
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "store id:   %s\n", result.StoreId)
		fmt.Fprintf(out, "store code: %s\n", result.StoreCode)
		fmt.Fprintf(out, "login:      %s / %s\n", seedEmail, seedPassword)
		fmt.Fprintf(out, "products:   %d\n", len(demoProducts))
		return nil
	},
}

func init() {
	seedDemoCmd.Flags().StringVar(&seedEmail, "email", "owner@demo.grocery", "Owner email")
	seedDemoCmd.Flags().StringVar(&seedPassword, "password", "Demo@1234", "Owner password")
	seedDemoCmd.Flags().StringVar(&seedPhone, "phone", "+919876543210", "Store contact phone")
	rootCmd.AddCommand(seedDemoCmd)
}
