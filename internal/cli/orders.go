package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/fjod/oil_storefront/internal/domain"
)

func (c *CLI) cart(ctx context.Context, args []string) error {
	user, err := c.requireCustomer(ctx)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		args = []string{"show"}
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "show":
		return c.showCart(ctx, user)
	case "add":
		if len(rest) == 0 {
			return fmt.Errorf("%w: cart add ID [--quantity Q]", ErrUsage)
		}
		fs := newFlagSet("cart add")
		quantity := fs.Int("quantity", 1, "units to add")
		if err := parse(fs, rest[1:]); err != nil {
			return err
		}
		product, err := c.app.Catalog.Get(ctx, rest[0])
		if err != nil {
			return err
		}
		if err := c.app.Carts.Add(ctx, user.ID, product, *quantity); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "added %d x %s\n", *quantity, product.Name)
		return nil
	case "set":
		if len(rest) != 2 {
			return fmt.Errorf("%w: cart set ID QUANTITY", ErrUsage)
		}
		qty, err := strconv.Atoi(rest[1])
		if err != nil {
			return fmt.Errorf("%w: quantity %q is not a number", ErrUsage, rest[1])
		}
		return c.app.Carts.SetQuantity(ctx, user.ID, rest[0], qty)
	case "remove":
		if len(rest) != 1 {
			return fmt.Errorf("%w: cart remove ID", ErrUsage)
		}
		return c.app.Carts.Remove(ctx, user.ID, rest[0])
	case "clear":
		return c.app.Carts.Clear(ctx, user.ID)
	}
	return fmt.Errorf("%w: unknown cart command %q", ErrUsage, joinArgs(args))
}

func (c *CLI) showCart(ctx context.Context, user domain.AuthUser) error {
	items, err := c.app.Carts.Items(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(c.out, "cart is empty")
		return nil
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE\tSUBTOTAL")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			item.Product.ID, item.Product.Name, item.Quantity,
			item.Product.Price.StringFixed(2), item.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(tw, "\t\t%d\tTOTAL\t%s\n", domain.CartCount(items), domain.CartTotal(items).StringFixed(2))
	return tw.Flush()
}

func (c *CLI) checkout(ctx context.Context, args []string) error {
	user, err := c.requireCustomer(ctx)
	if err != nil {
		return err
	}
	fs := newFlagSet("checkout")
	notes := fs.String("notes", "", "delivery notes")
	if err := parse(fs, args); err != nil {
		return err
	}

	order, err := c.app.Checkout.Checkout(ctx, user, *notes)
	if order.ID != "" {
		fmt.Fprintf(c.out, "placed %s total %s (%s)\n", order.ID, order.TotalAmount.StringFixed(2), order.Status)
	}
	return err
}

func (c *CLI) orders(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: orders list|approve|reject", ErrUsage)
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "list":
		return c.listOrders(ctx, rest)
	case "approve", "reject":
		if err := c.requireAdmin(ctx); err != nil {
			return err
		}
		if len(rest) != 1 {
			return fmt.Errorf("%w: orders %s ID", ErrUsage, sub)
		}
		status := domain.OrderStatusApproved
		if sub == "reject" {
			status = domain.OrderStatusRejected
		}
		order, err := c.app.Ledger.SetStatus(ctx, rest[0], status)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s is now %s\n", order.ID, order.Status)
		return nil
	}
	return fmt.Errorf("%w: unknown orders command %q", ErrUsage, joinArgs(args))
}

func (c *CLI) listOrders(ctx context.Context, args []string) error {
	user, err := c.requireUser(ctx)
	if err != nil {
		return err
	}
	fs := newFlagSet("orders list")
	status := fs.String("status", "", "pending, approved or rejected")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *status != "" && !domain.OrderStatus(*status).Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrUsage, *status)
	}

	var orders []domain.Order
	if user.IsAdmin() {
		orders, err = c.app.Ledger.ListAll(ctx)
	} else {
		orders, err = c.app.Ledger.ListFor(ctx, user.ID)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCUSTOMER\tDATE\tITEMS\tTOTAL\tSTATUS\tNOTES")
	for _, o := range orders {
		if *status != "" && o.Status != domain.OrderStatus(*status) {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			o.ID, o.CustomerName, o.OrderDate.Format("2006-01-02 15:04"), domain.CartCount(o.Products),
			o.TotalAmount.StringFixed(2), o.Status, o.Notes)
	}
	return tw.Flush()
}
