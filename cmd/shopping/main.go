package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nicolagi/shopping"
	"github.com/nicolagi/shopping/blob"
	"github.com/nicolagi/shopping/config"
	"github.com/nicolagi/shopping/export"
	"github.com/nicolagi/shopping/web"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitFailure     = 1
	exitNotFound    = 2
	exitConfig      = 3
	exitUnavailable = 4
)

var (
	settings     *config.Config
	service      *shopping.Service
	closeService func() error
)

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// classify turns errors from the list operations into exit codes.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ee *exitErr
	switch {
	case errors.As(err, &ee):
		return err
	case errors.Is(err, shopping.ErrNotFound), errors.Is(err, shopping.ErrAmbiguous),
		errors.Is(err, blob.ErrNotFound):
		return codeError(exitNotFound, "%v", err)
	case errors.Is(err, export.ErrUnavailable):
		return codeError(exitUnavailable, "%v", err)
	default:
		return codeError(exitFailure, "%v", err)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the exit code. The list storage is released whether or not the
// command succeeded.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	_ = teardown()
	if err == nil {
		return 0
	}
	_, _ = fmt.Fprintln(stderr, "Error:", err)
	var ee *exitErr
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFailure
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "shopping",
		Short:         "Shared family shopping list",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Configuration file")
	root.AddCommand(
		newAddCmd(),
		newListCmd(),
		newDoneCmd(),
		newRmCmd(),
		newClearDoneCmd(),
		newArchiveCmd(),
		newArchivesCmd(),
		newExportCmd(),
		newCategorizeCmd(),
		newServeCmd(),
		newAcmeCmd(),
	)
	return root
}

func setup(ctx context.Context, path string) error {
	_ = teardown()
	c, err := config.LoadFromFile(path)
	if err != nil {
		return codeError(exitConfig, "%v", err)
	}
	c.ApplyEnv()
	if err := c.Validate(); err != nil {
		return codeError(exitConfig, "invalid configuration: %v", err)
	}
	log.SetLevel(c.LogLevel())
	s, closeFn, err := c.NewService(ctx)
	if err != nil {
		return codeError(exitConfig, "%v", err)
	}
	settings, service, closeService = c, s, closeFn
	return nil
}

func teardown() error {
	if closeService == nil {
		return nil
	}
	err := closeService()
	closeService = nil
	if err != nil {
		log.WithField("cause", err).Warning("Could not close the list storage")
	}
	return nil
}

func groupFlag(value string) (shopping.GroupKey, error) {
	key, ok := shopping.ParseGroupKey(value)
	if !ok {
		return key, codeError(exitFailure, "unknown grouping %q, want store or category", value)
	}
	return key, nil
}

func newAddCmd() *cobra.Command {
	var d shopping.Draft
	cmd := &cobra.Command{
		Use:   "add NAME...",
		Short: "Put a product on the list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d.Name = strings.Join(args, " ")
			item, err := service.Add(cmd.Context(), d)
			if errors.Is(err, shopping.ErrEmptyName) {
				return codeError(exitFailure, "Bitte einen Produktnamen eingeben.")
			}
			if err != nil {
				return classify(err)
			}
			name := item.Name
			if item.Symbol != "" {
				name = item.Symbol + " " + name
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s hinzugefügt (%s, %s)\n",
				shopping.ShortID(item.ID), name, item.Category, item.Store)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&d.Quantity, "qty", shopping.DefaultQuantity, "Quantity, free text")
	f.StringVar(&d.Store, "store", "", "Store to buy it at")
	f.StringVar(&d.Category, "category", "", "Category; derived from the name when empty")
	f.StringVar(&d.OrderedBy, "by", "", "Who asked for it")
	f.StringVar(&d.Symbol, "symbol", "", "Symbol shown next to the name")
	return cmd
}

func newListCmd() *cobra.Command {
	var group, expr string
	var pending bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the list grouped by store or category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := groupFlag(group)
			if err != nil {
				return err
			}
			l, err := service.List(cmd.Context())
			if err != nil {
				return classify(err)
			}
			items := l.Items()
			if expr != "" {
				items = search(l, expr)
			}
			if pending {
				items = shopping.NewList(items).SearchItems().WithDone(false).Results()
			}
			printList(cmd.OutOrStdout(), items, key, groupOrder(key))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&group, "group", "store", "Group by store or category")
	f.BoolVar(&pending, "pending", false, "Leave out completed items")
	f.StringVar(&expr, "search", "", "Only items matching a search expression, e.g., @Rewe:-!")
	return cmd
}

// groupOrder is the order of the configured stores when grouping by store; categories follow the rule table.
func groupOrder(key shopping.GroupKey) []string {
	if key == shopping.ByCategory {
		return service.Categorizer().Categories()
	}
	return settings.Stores
}

func newDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done ID",
		Short: "Toggle whether an item was bought",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := service.Resolve(cmd.Context(), args[0])
			if err != nil {
				return classify(err)
			}
			item, err := service.Toggle(cmd.Context(), id)
			if err != nil {
				return classify(err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", shopping.ShortID(item.ID), checkbox(item.Done), item.Name)
			return nil
		},
	}
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Remove an item from the list",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := service.Resolve(cmd.Context(), args[0])
			if err != nil {
				return classify(err)
			}
			return classify(service.Delete(cmd.Context(), id))
		},
	}
}

func newClearDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-done",
		Short: "Remove all completed items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := service.ClearDone(cmd.Context())
			if err != nil {
				return classify(err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d erledigte Einträge entfernt\n", n)
			return nil
		},
	}
}

func newArchiveCmd() *cobra.Command {
	var clear bool
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Store a snapshot of the list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := service.Archive(cmd.Context(), clear)
			if err != nil {
				return classify(err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Archiviert als %s\n", info.Name())
			return nil
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "Empty the list after archiving")
	return cmd
}

func newArchivesCmd() *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "archives [NAME]",
		Short: "List archived lists, or print one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				archives, err := service.Archives(cmd.Context())
				if err != nil {
					return classify(err)
				}
				printArchives(cmd.OutOrStdout(), archives)
				return nil
			}
			key, err := groupFlag(group)
			if err != nil {
				return err
			}
			items, err := service.ArchiveItems(cmd.Context(), args[0])
			if err != nil {
				return classify(err)
			}
			printList(cmd.OutOrStdout(), items, key, groupOrder(key))
			return nil
		},
	}
	cmd.Flags().StringVar(&group, "group", "store", "Group by store or category")
	return cmd
}

type exportFlags struct {
	format  string
	out     string
	group   string
	title   string
	pending bool
	pretty  bool
	width   int
}

func newExportCmd() *cobra.Command {
	var flags exportFlags
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the list as markdown, JSON or PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.format, "format", "md", "Output format: md, json or pdf")
	f.StringVar(&flags.out, "out", "", "Write output to file instead of stdout")
	f.StringVar(&flags.group, "group", "store", "Group by store or category")
	f.StringVar(&flags.title, "title", export.DefaultTitle, "Document title")
	f.BoolVar(&flags.pending, "pending", false, "Leave out completed items")
	f.BoolVar(&flags.pretty, "pretty", false, "Render markdown for the terminal")
	f.IntVar(&flags.width, "width", 80, "Word wrap width for --pretty")
	return cmd
}

func runExport(ctx context.Context, stdout io.Writer, flags exportFlags) error {
	key, err := groupFlag(flags.group)
	if err != nil {
		return err
	}
	renderer, err := export.NewRenderer(flags.format)
	if errors.Is(err, export.ErrUnavailable) {
		return codeError(exitUnavailable, "%s export is not available in this build", flags.format)
	}
	if err != nil {
		return codeError(exitFailure, "%v", err)
	}
	items, err := service.Items(ctx)
	if err != nil {
		return classify(err)
	}
	data, err := renderer.Render(items, export.Options{
		Title:   flags.title,
		Group:   key,
		Order:   groupOrder(key),
		Pending: flags.pending,
		Created: time.Now(),
	})
	if err != nil {
		return classify(err)
	}
	if flags.pretty {
		if renderer.Extension() != ".md" {
			return codeError(exitFailure, "--pretty only applies to markdown")
		}
		s, err := export.Pretty(data, flags.width)
		if err != nil {
			return classify(err)
		}
		data = []byte(s)
	}
	if flags.out == "" {
		_, err = io.Copy(stdout, bytes.NewReader(data))
		return err
	}
	if err := os.WriteFile(flags.out, data, 0644); err != nil {
		return codeError(exitFailure, "writing output: %v", err)
	}
	return nil
}

func newCategorizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categorize NAME...",
		Short: "Show the category a product name gets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := service.Categorizer()
			for _, name := range args {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, c.Categorize(name))
			}
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the password-protected web interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen == "" {
				listen = settings.Web.Listen
			}
			srv, err := web.New(service, settings.Web.Password,
				web.WithStores(settings.Stores...),
				web.WithSymbols(settings.Symbols...))
			if err != nil {
				return codeError(exitConfig, "%v", err)
			}
			return classify(srv.ListenAndServe(cmd.Context(), listen))
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Address to listen on; defaults to web.listen")
	return cmd
}

func newAcmeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "acme",
		Short: "Edit the list in acme windows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runAcme(cmd.Context())
			return nil
		},
	}
}
