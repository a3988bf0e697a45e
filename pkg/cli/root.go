package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/adminapi"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/config"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/notify"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/observability"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/rbac"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(ctx context.Context, args []string) error
	Subcommands map[string]*Command
}

// App carries what every command needs
type App struct {
	API       *adminapi.Client
	Console   config.ConsoleConfig
	Catalogue *rbac.Catalogue
	Labels    *rbac.Labels
	Logger    *observability.Logger
	Metrics   *observability.Metrics

	In  io.Reader
	Out io.Writer
	Err io.Writer
}

func (a *App) defaults() {
	if a.Catalogue == nil {
		a.Catalogue = rbac.DefaultCatalogue()
	}
	if a.Labels == nil {
		a.Labels = rbac.DefaultLabels()
	}
	if a.Logger == nil {
		a.Logger = observability.NopLogger()
	}
	if a.In == nil {
		a.In = os.Stdin
	}
	if a.Out == nil {
		a.Out = os.Stdout
	}
	if a.Err == nil {
		a.Err = os.Stderr
	}
}

// notifier prints notifications for the operator and logs them
func (a *App) notifier() notify.Notifier {
	return notify.Multi(
		notify.Func(func(n notify.Notification) {
			fmt.Fprintf(a.Err, "[%s] %s\n", n.Level, n.Message)
		}),
		notify.LogNotifier{Logger: a.Logger, Metrics: a.Metrics},
	)
}

// NewRootCommand creates the root command
func NewRootCommand(app *App) *Command {
	app.defaults()
	root := &Command{
		Name:        "roleadmin",
		Description: "Fooddie role administration",
		Subcommands: make(map[string]*Command),
	}

	root.Subcommands["roles"] = newRolesCommand(app)
	root.Subcommands["role"] = newRoleCommand(app)
	root.Subcommands["permissions"] = newPermissionsCommand(app)
	root.Subcommands["assign"] = newAssignCommand(app)
	root.Subcommands["members"] = newMembersCommand(app)

	return root
}

// Execute runs the command selected by args
func (c *Command) Execute(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 || isHelp(args[0]) {
		return c.usage(out)
	}

	if sub, ok := c.Subcommands[args[0]]; ok {
		if len(sub.Subcommands) > 0 {
			return sub.Execute(ctx, args[1:], out)
		}
		return sub.Run(ctx, args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

func isHelp(arg string) bool {
	return strings.EqualFold(arg, "-h") || strings.EqualFold(arg, "--help")
}

// usage prints the command usage
func (c *Command) usage(out io.Writer) error {
	fmt.Fprintf(out, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(out, "Commands:\n")
	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.Err)
	return fs
}

// resolveRole accepts a role ID or a role name
func (a *App) resolveRole(ctx context.Context, ref string) (*rbac.Role, error) {
	if ref == "" {
		return nil, errors.New("--role is required")
	}
	role, err := a.API.GetRole(ctx, ref)
	if err == nil {
		return role, nil
	}
	if !adminapi.IsNotFound(err) {
		return nil, err
	}

	roles, listErr := a.API.ListRoles(ctx)
	if listErr != nil {
		return nil, fmt.Errorf("failed to list roles: %w", listErr)
	}
	for i := range roles {
		if strings.EqualFold(roles[i].Name, ref) {
			return &roles[i], nil
		}
	}
	return nil, fmt.Errorf("role %q not found", ref)
}

// promptConfirmer asks on the terminal; assumeYes skips the prompt
type promptConfirmer struct {
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
}

func (a *App) confirmer(assumeYes bool) *promptConfirmer {
	return &promptConfirmer{in: bufio.NewReader(a.In), out: a.Err, assumeYes: assumeYes}
}

func (p *promptConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	if p.assumeYes {
		return true, nil
	}
	fmt.Fprintf(p.out, "%s [y/N] ", prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// stringList is a repeatable or comma separated flag
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}
