package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/balkashynov/defectctl/internal/api"
	"github.com/balkashynov/defectctl/internal/config"
	"github.com/balkashynov/defectctl/internal/db"
	"github.com/balkashynov/defectctl/internal/httpclient"
	"github.com/balkashynov/defectctl/internal/logging"
	"github.com/balkashynov/defectctl/internal/models"
	"github.com/balkashynov/defectctl/internal/session"
	"github.com/balkashynov/defectctl/internal/telemetry"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// persistent flags
var (
	apiURLFlag   string
	dataDirFlag  string
	logLevelFlag string
	jsonFlag     bool
)

// offline marks commands that never touch the backend or local storage.
const offline = "offline"

// app is everything a command needs once setup has run.
type app struct {
	cfg      config.Config
	logger   *log.Logger
	store    *db.Store
	api      *api.API
	session  *session.Manager
	nav      session.Navigator
	shutdown func(context.Context) error
}

var current *app

var rootCmd = &cobra.Command{
	Use:   "defectctl",
	Short: "A terminal client for the defect tracker",
	Long: `defectctl talks to the defect tracker backend from the terminal.
Sign in, file and triage defects, discuss them, attach files, and pull reports.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version information",
	Annotations: map[string]string{offline: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "defectctl %s (commit %s, built %s)\n", version, commit, date)
	},
}

// setup loads config, opens storage, builds the client stack and restores the session.
func setup(cmd *cobra.Command, _ []string) error {
	if isOffline(cmd) {
		return nil
	}

	cfg := config.Load()
	if apiURLFlag != "" {
		cfg.APIURL = strings.TrimRight(apiURLFlag, "/")
	}
	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel)
	shutdown := telemetry.Setup(cfg.ServiceName, logger)

	store, err := db.Open(cfg.DatabasePath(), cfg.KeyPath())
	if err != nil {
		shutdown(context.Background())
		return err
	}

	opts := []httpclient.Option{
		httpclient.WithRequestHook(httpclient.RequestID()),
		httpclient.WithRequestHook(httpclient.BearerToken(store)),
		httpclient.WithResponseHook(httpclient.LogFailures(logger)),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, httpclient.WithTimeout(cfg.Timeout))
	}
	client, err := httpclient.New(cfg.APIURL, opts...)
	if err != nil {
		store.Close()
		shutdown(context.Background())
		return err
	}

	facade := api.New(client)
	nav := navigator{w: cmd.ErrOrStderr()}
	if cmd == loginCmd {
		// a stale token is about to be replaced; pointing at login would be noise
		nav.mute = session.RouteLogin
	}
	mgr := session.NewManager(facade, store, nav, logger)

	current = &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		api:      facade,
		session:  mgr,
		nav:      nav,
		shutdown: shutdown,
	}

	state := mgr.Initialize(cmd.Context())
	logger.Debug("session restored", "state", state, "api", cfg.APIURL)
	return nil
}

// isOffline reports whether cmd or one of its parents is marked offline. Shell
// completion never needs a session either.
func isOffline(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[offline] == "true" {
			return true
		}
		switch c.Name() {
		case "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return true
		}
	}
	return false
}

// teardown releases what setup acquired. Safe to call when setup never ran.
func teardown() {
	if current == nil {
		return
	}
	if err := current.store.Close(); err != nil {
		current.logger.Warn("closing store", "err", err)
	}
	if err := current.shutdown(context.Background()); err != nil {
		current.logger.Warn("telemetry shutdown", "err", err)
	}
	current = nil
}

// navigator prints the next step a session transition points at.
type navigator struct {
	w    io.Writer
	mute session.Route
}

func (n navigator) Navigate(route session.Route) {
	if route == n.mute {
		return
	}
	if hint := routeHint(route); hint != "" {
		fmt.Fprintln(n.w, hintStyle.Render(hint))
	}
}

func routeHint(route session.Route) string {
	switch route {
	case session.RouteLogin:
		return "Run 'defectctl login' to sign in."
	case session.RouteHome:
		return "Run 'defectctl defect ls' to see defects."
	}

	parts := strings.Split(strings.Trim(string(route), "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	var noun string
	switch parts[0] {
	case "projects":
		noun = "project"
	case "defects":
		noun = "defect"
	default:
		return ""
	}
	if len(parts) == 3 && parts[2] == "edit" {
		return fmt.Sprintf("Edit it with 'defectctl %s edit %s'.", noun, parts[1])
	}
	return fmt.Sprintf("View it with 'defectctl %s show %s'.", noun, parts[1])
}

var errNotInitialized = errors.New("client not initialized")

// loadApp returns the state built by setup.
func loadApp() (*app, error) {
	if current == nil {
		return nil, errNotInitialized
	}
	return current, nil
}

// requireUser fails unless someone is logged in and holds one of roles.
func requireUser(roles ...models.Role) (*app, error) {
	if current == nil {
		return nil, errNotInitialized
	}
	if err := current.session.RequireRole(roles...); err != nil {
		if errors.Is(err, session.ErrNotAuthenticated) {
			return nil, fmt.Errorf("%w: run 'defectctl login' first", err)
		}
		return nil, err
	}
	return current, nil
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command. Cancelling ctx aborts in-flight requests.
func Execute(ctx context.Context) error {
	defer teardown()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "Backend base URL (env DEFECTCTL_API_URL)")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Directory for local session storage (env DEFECTCTL_DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error (env DEFECTCTL_LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Print results as JSON")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(defectCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(attachmentCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.SetHelpCommand(helpCmd)
}
