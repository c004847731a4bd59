package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/fjod/oil_storefront/internal/catalog"
	"github.com/fjod/oil_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

func (c *CLI) products(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: products list|add|update|delete", ErrUsage)
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "list":
		return c.listProducts(ctx, rest)
	case "add":
		if err := c.requireAdmin(ctx); err != nil {
			return err
		}
		return c.addProduct(ctx, rest)
	case "update":
		if err := c.requireAdmin(ctx); err != nil {
			return err
		}
		return c.updateProduct(ctx, rest)
	case "delete":
		if err := c.requireAdmin(ctx); err != nil {
			return err
		}
		if len(rest) != 1 {
			return fmt.Errorf("%w: products delete ID", ErrUsage)
		}
		if err := c.app.Catalog.Remove(ctx, rest[0]); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "deleted %s\n", rest[0])
		return nil
	}
	return fmt.Errorf("%w: unknown products command %q", ErrUsage, joinArgs(args))
}

func (c *CLI) listProducts(ctx context.Context, args []string) error {
	fs := newFlagSet("products list")
	search := fs.String("search", "", "name contains")
	if err := parse(fs, args); err != nil {
		return err
	}

	products, err := c.app.Catalog.Search(ctx, *search)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tUNIT\tAVAILABLE\tDESCRIPTION")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Name, p.Price.StringFixed(2), p.Unit, availability(p), p.Description)
	}
	return tw.Flush()
}

func availability(p domain.Product) string {
	if p.Quantity == 0 {
		return "out of stock"
	}
	return fmt.Sprintf("%d", p.Quantity)
}

func (c *CLI) addProduct(ctx context.Context, args []string) error {
	fs := newFlagSet("products add")
	name := fs.String("name", "", "product name")
	quantity := fs.Int("quantity", 0, "available quantity")
	price := fs.String("price", "", "price per unit")
	unit := fs.String("unit", string(domain.UnitBarrel), "Barrel or MMBTU")
	description := fs.String("description", "", "description")
	if err := parse(fs, args); err != nil {
		return err
	}

	p, err := decimal.NewFromString(*price)
	if err != nil {
		return fmt.Errorf("%w: --price %q is not a number", ErrUsage, *price)
	}
	product, err := c.app.Catalog.Add(ctx, catalog.ProductInput{
		Name:        *name,
		Quantity:    *quantity,
		Price:       p,
		Unit:        domain.Unit(*unit),
		Description: *description,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "added %s %s\n", product.ID, product.Name)
	return nil
}

func (c *CLI) updateProduct(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: products update ID [flags]", ErrUsage)
	}
	id := args[0]

	fs := newFlagSet("products update")
	name := fs.String("name", "", "product name")
	quantity := fs.Int("quantity", 0, "available quantity")
	price := fs.String("price", "", "price per unit")
	unit := fs.String("unit", "", "Barrel or MMBTU")
	description := fs.String("description", "", "description")
	if err := parse(fs, args[1:]); err != nil {
		return err
	}

	var patch catalog.ProductPatch
	if fs.Changed("name") {
		patch.Name = name
	}
	if fs.Changed("quantity") {
		patch.Quantity = quantity
	}
	if fs.Changed("price") {
		p, err := decimal.NewFromString(*price)
		if err != nil {
			return fmt.Errorf("%w: --price %q is not a number", ErrUsage, *price)
		}
		patch.Price = &p
	}
	if fs.Changed("unit") {
		u := domain.Unit(*unit)
		patch.Unit = &u
	}
	if fs.Changed("description") {
		patch.Description = description
	}

	product, err := c.app.Catalog.Update(ctx, id, patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "updated %s %s\n", product.ID, product.Name)
	return nil
}
