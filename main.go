// Command brepfacade evaluates modeling scripts against a geometry kernel
// and reports the bounding box, fitted plane and mesh size of every object
// they build.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/chazu/brepfacade/pkg/config"
	"github.com/chazu/brepfacade/pkg/output"
)

var (
	// Global flags
	flagConfig  string
	flagKernel  string
	flagVerbose bool

	// run flags
	flagMetrics     bool
	flagMetricsAddr string

	cfg *config.Config
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "brepfacade",
	Short: "Evaluate and measure solid modeling scripts",
	Long: `brepfacade runs Lisp modeling scripts that build named shapes and move
them with translate, rotate, scale, mirror and transform.

Settings come from the config file, then BREP_* environment variables,
then flags.`,
	PersistentPreRunE: initializeGlobals,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Evaluate a script and print a report of its objects",
	Args:  cobra.ExactArgs(1),
	RunE:  runScript,
}

var kernelsCmd = &cobra.Command{
	Use:   "kernels",
	Short: "List the available geometry kernels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, name := range config.Kernels {
			marker := " "
			if name == cfg.Kernel {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().StringVarP(&flagKernel, "kernel", "k", "", "geometry kernel (env: BREP_KERNEL)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log facade operations")

	runCmd.Flags().BoolVar(&flagMetrics, "metrics", false, "print operation counters after the report")
	runCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "after the report, serve /metrics on this address until interrupted")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(kernelsCmd)
}

// initializeGlobals sets up logging and loads the configuration.
func initializeGlobals(_ *cobra.Command, _ []string) error {
	output.SetupLogging(flagVerbose)

	loader := config.NewLoader()
	if flagKernel != "" {
		loader.Set("kernel", flagKernel)
	}
	c, err := loader.Load(flagConfig)
	if err != nil {
		return err
	}
	cfg = c
	output.Debug("configuration loaded", "kernel", cfg.Kernel, "file", flagConfig)
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}

	app, err := NewApp(cfg, output.Logger)
	if err != nil {
		return err
	}

	rep, err := app.Evaluate(string(source))
	if err != nil {
		return err
	}
	for _, w := range rep.Warnings {
		output.Warn(w.Message, "object", w.Object)
	}
	if !rep.OK() {
		for _, e := range rep.Errors {
			output.Error(e.Message, "line", e.Line)
		}
		return fmt.Errorf("%s: %d error(s)", args[0], len(rep.Errors))
	}

	output.Info("script evaluated", "script", args[0], "objects", len(rep.Objects), "triangles", rep.Triangles)

	w := cmd.OutOrStdout()
	if err := output.WriteReport(w, app.Kernel().Name(), rep.Objects); err != nil {
		return err
	}
	if flagMetrics {
		if err := writeCounts(cmd, app); err != nil {
			return err
		}
	}
	if flagMetricsAddr != "" {
		return serveMetrics(cmd.Context(), flagMetricsAddr, app.Metrics().Handler(), func(a net.Addr) {
			output.Info("serving metrics", "url", "http://"+a.String()+"/metrics")
		})
	}
	return nil
}

// serveMetrics serves h at /metrics on addr until ctx is done. ready, when
// set, receives the bound address once the listener is open.
func serveMetrics(ctx context.Context, addr string, h http.Handler, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	if ready != nil {
		ready(ln.Addr())
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func writeCounts(cmd *cobra.Command, app *App) error {
	counts, err := app.Metrics().Counts()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "\noperations:")
	for _, k := range keys {
		fmt.Fprintf(w, "  %-24s %g\n", k, counts[k])
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
