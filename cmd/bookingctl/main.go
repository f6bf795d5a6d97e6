// Command bookingctl is the command line client of the booking service.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"teslabooking/internal/apiclient"
	"teslabooking/internal/i18n"
	"teslabooking/internal/localstore"
	"teslabooking/internal/logging"
	"teslabooking/internal/session"
)

const (
	defaultAPIURL = "http://localhost:8080"
	stateFile     = "bookingctl.db"
)

// app holds the per-run stores. They are built once before a command runs
// and torn down by close.
type app struct {
	apiURL   string
	stateDir string
	logLevel string
	out      io.Writer

	local     *localstore.Store
	localizer *i18n.Localizer
	client    *apiclient.Client
	sessions  *session.Store
}

func (a *app) open(ctx context.Context) error {
	if err := os.MkdirAll(a.stateDir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	local, err := localstore.Open(filepath.Join(a.stateDir, stateFile))
	if err != nil {
		return err
	}
	a.local = local
	a.localizer = i18n.NewLocalizer(local)
	a.client = apiclient.New(a.apiURL, local, apiclient.WithLanguage(a.localizer.Language))
	a.sessions = session.New(a.client, a.client, local, a.localizer, slog.Default())
	return a.sessions.Start(ctx)
}

// close detaches the session store, applies the remember-me policy and
// closes the local store.
func (a *app) close() {
	if a.sessions != nil {
		a.sessions.Close()
		a.sessions.HandleUnload()
	}
	if a.local != nil {
		if err := a.local.Close(); err != nil {
			slog.Warn("close local store failed", "error", err)
		}
	}
}

func (a *app) t() *i18n.Table {
	return a.localizer.Table()
}

func (a *app) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "bookingctl",
		Short:         "Book and manage Tesla service appointments",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(a.logLevel)
			a.out = cmd.OutOrStdout()
			return a.open(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.apiURL, "api-url", envOr("BOOKING_API_URL", defaultAPIURL), "booking API base URL")
	root.PersistentFlags().StringVar(&a.stateDir, "state-dir", envOr("BOOKING_STATE_DIR", defaultStateDir()), "directory of the local state file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "log level")

	root.AddCommand(
		newSignupCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newLangCmd(a),
		newBookCmd(a),
		newHistoryCmd(a),
		newAdminCmd(a),
		newChatCmd(a),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "bookingctl")
	}
	return ".bookingctl"
}

func run(ctx context.Context, args []string, out io.Writer) error {
	a := &app{out: out}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(out)
	return root.ExecuteContext(ctx)
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
