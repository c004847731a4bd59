package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fjod/oil_storefront/internal/app"
	"github.com/fjod/oil_storefront/internal/auth"
	"github.com/fjod/oil_storefront/internal/domain"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/fjod/oil_storefront/internal/cli")

var (
	ErrUsage       = errors.New("usage")
	ErrNotLoggedIn = errors.New("not logged in")
	ErrForbidden   = errors.New("admin session required")
	ErrAdminCart   = errors.New("carts belong to customers; log in as a customer")
)

const usage = `usage: storefront <command> [flags]

commands:
  login --email E --password P [--role admin|customer]
  logout
  whoami
  register --name N --email E --password P [--phone X] [--address A]
  products list [--search TERM]
  products add --name N --quantity Q --price P --unit Barrel|MMBTU [--description D]
  products update ID [--name N] [--quantity Q] [--price P] [--unit U] [--description D]
  products delete ID
  cart show | add ID [--quantity Q] | set ID Q | remove ID | clear
  checkout [--notes TEXT]
  orders list [--status pending|approved|rejected]
  orders approve ID | reject ID
  customers list [--search TERM]
  summary
  cleaner
`

type CLI struct {
	app *app.App
	out io.Writer
}

func New(a *app.App, out io.Writer) *CLI {
	return &CLI{app: a, out: out}
}

// Run executes one command line against the storefront.
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(c.out, usage)
		return ErrUsage
	}
	cmd, rest := args[0], args[1:]
	if cmd != "cleaner" {
		// the cleaner opens one span per consumed event instead
		var span trace.Span
		ctx, span = tracer.Start(ctx, "storefront "+cmd)
		defer span.End()
	}
	switch cmd {
	case "login":
		return c.login(ctx, rest)
	case "logout":
		if err := c.app.Auth.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "logged out")
		return nil
	case "whoami":
		return c.whoami(ctx)
	case "register":
		return c.register(ctx, rest)
	case "products":
		return c.products(ctx, rest)
	case "cart":
		return c.cart(ctx, rest)
	case "checkout":
		return c.checkout(ctx, rest)
	case "orders":
		return c.orders(ctx, rest)
	case "customers":
		return c.customers(ctx, rest)
	case "summary":
		return c.summary(ctx)
	case "cleaner":
		c.app.RunCartCleaner(ctx)
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(c.out, usage)
		return nil
	}
	return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUsage, fs.Name(), err)
	}
	return nil
}

func (c *CLI) requireUser(ctx context.Context) (domain.AuthUser, error) {
	user, err := c.app.Auth.CurrentUser(ctx)
	if errors.Is(err, auth.ErrNoSession) {
		return domain.AuthUser{}, ErrNotLoggedIn
	}
	return user, err
}

func (c *CLI) requireAdmin(ctx context.Context) error {
	user, err := c.requireUser(ctx)
	if err != nil {
		return err
	}
	if !user.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func (c *CLI) requireCustomer(ctx context.Context) (domain.AuthUser, error) {
	user, err := c.requireUser(ctx)
	if err != nil {
		return domain.AuthUser{}, err
	}
	if user.IsAdmin() {
		return domain.AuthUser{}, ErrAdminCart
	}
	return user, nil
}

func (c *CLI) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	role := fs.String("role", string(domain.RoleCustomer), "admin or customer")
	if err := parse(fs, args); err != nil {
		return err
	}
	if !domain.Role(*role).Valid() {
		return fmt.Errorf("%w: role must be admin or customer", ErrUsage)
	}

	user, err := c.app.Auth.Login(ctx, *email, *password, domain.Role(*role))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "logged in as %s (%s)\n", user.Name, user.Role)
	return nil
}

func (c *CLI) whoami(ctx context.Context) error {
	user, err := c.requireUser(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s <%s> %s %s\n", user.Name, user.Email, user.Role, user.ID)
	return nil
}

func (c *CLI) register(ctx context.Context, args []string) error {
	fs := newFlagSet("register")
	var req auth.RegisterRequest
	fs.StringVar(&req.Name, "name", "", "full name")
	fs.StringVar(&req.Email, "email", "", "email")
	fs.StringVar(&req.Password, "password", "", "password")
	fs.StringVar(&req.Phone, "phone", "", "phone")
	fs.StringVar(&req.Address, "address", "", "address")
	if err := parse(fs, args); err != nil {
		return err
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return fmt.Errorf("%w: register needs --name, --email and --password", ErrUsage)
	}

	customer, err := c.app.Auth.Register(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "registered %s as %s; log in to continue\n", customer.Email, customer.ID)
	return nil
}

func (c *CLI) customers(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] != "list" {
		return fmt.Errorf("%w: customers list [--search TERM]", ErrUsage)
	}
	if err := c.requireAdmin(ctx); err != nil {
		return err
	}
	fs := newFlagSet("customers list")
	search := fs.String("search", "", "name or email contains")
	if err := parse(fs, args[1:]); err != nil {
		return err
	}

	customers, err := c.app.Auth.SearchCustomers(ctx, *search)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPHONE\tADDRESS\tREGISTERED")
	for _, cu := range customers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			cu.ID, cu.Name, cu.Email, cu.Phone, cu.Address, cu.RegisteredAt.Format("2006-01-02"))
	}
	return tw.Flush()
}

func (c *CLI) summary(ctx context.Context) error {
	user, err := c.requireUser(ctx)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		sum, err := c.app.Dashboard.Admin(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "products: %d\npending orders: %d\ncustomers: %d\n",
			sum.Products, sum.PendingOrders, sum.Customers)
		return nil
	}

	sum, err := c.app.Dashboard.Customer(ctx, user.ID)
	if err != nil {
		return err
	}
	count, err := c.app.Carts.Count(ctx, user.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "orders: %d\npending: %d\napproved: %d\nrejected: %d\ncart items: %d\n",
		sum.Orders, sum.Pending, sum.Approved, sum.Rejected, count)
	return nil
}

func joinArgs(args []string) string {
	return strings.Join(args, " ")
}
