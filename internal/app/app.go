// Package app wires configuration, storage, the API client, and the
// session store into the trison command's subcommands.
package app

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/you/trisonapp/domain"
	"github.com/you/trisonapp/internal/api"
	"github.com/you/trisonapp/internal/config"
	"github.com/you/trisonapp/internal/logging"
	"github.com/you/trisonapp/internal/navigation"
	"github.com/you/trisonapp/internal/session"
	"github.com/you/trisonapp/internal/storage"
)

const usage = `usage: trison <command> [args]

commands:
  login <phone>       request an OTP and sign in
  register <phone>    create an account and sign in
  status              show the session state
  me                  show the signed-in profile
  points              show points balance and summary
  history             show QR scan history
  scan <code>         submit a QR code for points
  products            list the product catalog
  logout              sign out and clear stored credentials
`

// Run executes one subcommand against a freshly bootstrapped session.
func Run(cfg *config.Config, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("a command is required")
	}

	log := logging.New(os.Stderr, cfg.LogLevel)
	tokens, err := storage.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}
	defer tokens.Close()

	client := api.New(api.Options{BaseURL: cfg.APIBaseURL, Timeout: cfg.APITimeout, Logger: log})
	store := session.New(client, tokens, log)
	rewards := session.NewRewards(store, client)

	ctx := context.Background()
	result := store.Bootstrap(ctx, cfg.BootstrapTimeout)
	log.Debug("session bootstrapped", "result", result.String())

	cmd := &command{store: store, rewards: rewards, stdin: stdin, stdout: stdout}
	switch args[0] {
	case "login":
		return cmd.login(ctx, args[1:])
	case "register":
		return cmd.register(ctx, args[1:])
	case "status":
		return cmd.status(result)
	case "me":
		return cmd.me(ctx)
	case "points":
		return cmd.points(ctx)
	case "history":
		return cmd.history(ctx)
	case "scan":
		return cmd.scan(ctx, args[1:])
	case "products":
		return cmd.products(ctx)
	case "logout":
		return cmd.logout(ctx)
	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

type command struct {
	store   *session.Store
	rewards *session.Rewards
	stdin   io.Reader
	stdout  io.Writer
}

func (c *command) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	otp := fs.String("otp", "", "OTP code; omitted means prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: trison login <phone>")
	}
	phone := fs.Arg(0)

	msg, err := c.store.SendOTP(ctx, phone)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, msg)

	code := *otp
	if code == "" {
		code, err = c.prompt("OTP: ")
		if err != nil {
			return err
		}
	}
	if err := c.store.Login(ctx, phone, code); err != nil {
		return err
	}
	return c.whoami()
}

func (c *command) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	first := fs.String("first-name", "", "first name")
	last := fs.String("last-name", "", "last name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "account password")
	referral := fs.String("referral", "", "referral code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: trison register <phone>")
	}

	err := c.store.Register(ctx, &domain.RegisterRequest{
		PhoneNumber:  fs.Arg(0),
		FirstName:    *first,
		LastName:     *last,
		Email:        *email,
		Password:     *password,
		ReferralCode: *referral,
	})
	if err != nil {
		return err
	}
	return c.whoami()
}

func (c *command) status(result session.BootstrapResult) error {
	sess := c.store.Snapshot()
	fmt.Fprintf(c.stdout, "bootstrap: %s\n", result)
	fmt.Fprintf(c.stdout, "route:     %s\n", navigation.Resolve(sess))
	if sess.User != nil {
		fmt.Fprintf(c.stdout, "account:   %s (%s)\n", sess.User.PhoneNumber, sess.User.Role)
		fmt.Fprintf(c.stdout, "home:      %s\n", navigation.Home(sess.User.Role))
		guard, err := navigation.NewGuard()
		if err != nil {
			return err
		}
		screens, err := guard.Screens(sess.User.Role)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "screens:   %s\n", strings.Join(screens, ", "))
	}
	if sess.Error != "" {
		fmt.Fprintf(c.stdout, "error:     %s\n", sess.Error)
	}
	return nil
}

func (c *command) me(ctx context.Context) error {
	user, err := c.store.GetCurrentUser(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "phone:    %s\n", user.PhoneNumber)
	fmt.Fprintf(c.stdout, "role:     %s\n", user.Role)
	if user.FirstName != "" || user.LastName != "" {
		fmt.Fprintf(c.stdout, "name:     %s\n", strings.TrimSpace(user.FirstName+" "+user.LastName))
	}
	if user.Email != "" {
		fmt.Fprintf(c.stdout, "email:    %s\n", user.Email)
	}
	fmt.Fprintf(c.stdout, "verified: %v\n", user.IsVerified)
	fmt.Fprintf(c.stdout, "points:   %d\n", user.TotalPoints)
	return nil
}

func (c *command) points(ctx context.Context) error {
	balance, err := c.rewards.Balance(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "balance: %d\n", balance)

	summary, err := c.rewards.Summary(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "earned:  %d\n", summary.TotalPointsEarned)
	fmt.Fprintf(c.stdout, "spent:   %d\n", summary.TotalPointsSpent)
	fmt.Fprintf(c.stdout, "expired: %d\n", summary.TotalPointsExpired)
	return nil
}

func (c *command) history(ctx context.Context) error {
	page, err := c.rewards.History(ctx, 20, 0)
	if err != nil {
		return err
	}
	if page.Total == 0 {
		fmt.Fprintln(c.stdout, "no scans yet")
		return nil
	}
	for _, scan := range page.Scans {
		fmt.Fprintf(c.stdout, "%s  +%d points\n", scan.ScannedAt.Format("2006-01-02 15:04"), scan.PointsEarned)
	}
	fmt.Fprintf(c.stdout, "total: %d\n", page.Total)
	return nil
}

func (c *command) scan(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: trison scan <code>")
	}
	result, err := c.rewards.Scan(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "earned %d points", result.PointsEarned)
	if result.ProductName != "" {
		fmt.Fprintf(c.stdout, " for %s", result.ProductName)
	}
	fmt.Fprintln(c.stdout)
	return nil
}

func (c *command) products(ctx context.Context) error {
	products, err := c.rewards.Products(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		fmt.Fprintf(c.stdout, "%-30s %8d PKR  %d points\n", p.Name, p.Price, p.PointsReward)
	}
	return nil
}

func (c *command) logout(ctx context.Context) error {
	if err := c.store.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "signed out")
	return nil
}

func (c *command) whoami() error {
	sess := c.store.Snapshot()
	if sess.User != nil {
		fmt.Fprintf(c.stdout, "signed in as %s (%s)\n", sess.User.PhoneNumber, sess.User.Role)
	} else {
		fmt.Fprintln(c.stdout, "signed in")
	}
	return nil
}

func (c *command) prompt(label string) (string, error) {
	fmt.Fprint(c.stdout, label)
	r := bufio.NewReader(c.stdin)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
