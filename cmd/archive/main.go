package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Rrens/chat-archive/internal/browser"
	"github.com/Rrens/chat-archive/internal/connection"
	"github.com/spf13/cobra"
)

// Options carries the dependencies a command runs with (allows injection in tests)
type Options struct {
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
	HTTPClient *http.Client
	Opener     browser.Opener
	// Network defaults to polling the host's interfaces.
	Network connection.NetworkStatus
}

func (o Options) withDefaults() Options {
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{}
	}
	if o.Opener == nil {
		o.Opener = browser.System{}
	}
	return o
}

func newRootCmd(opts Options) *cobra.Command {
	opts = opts.withDefaults()

	var (
		configPath string
		noBrowser  bool
	)
	root := &cobra.Command{
		Use:           "archive",
		Short:         "archive - browse and organize your AI chat history",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to client config (defaults to CONFIG_PATH or ./configs/client.yaml)")
	root.PersistentFlags().BoolVar(&noBrowser, "no-browser", false, "print sign-in URLs instead of opening a browser")
	root.SetIn(opts.Stdin)
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	run := func(fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			o := opts
			if noBrowser {
				o.Opener = browser.Printer{Print: func(url string) {
					fmt.Fprintf(o.Stderr, "Open this URL to continue: %s\n", url)
				}}
			}
			a, err := newApp(configPath, o)
			if err != nil {
				return err
			}
			defer a.close()
			return fn(cmd.Context(), a, cmd, args)
		}
	}

	root.AddCommand(
		statusCmd(run),
		watchCmd(run),
		loginCmd(run, false),
		loginCmd(run, true),
		logoutCmd(run),
		whoamiCmd(run),
		oauthCmd(run),
		servicesCmd(run),
		foldersCmd(run),
		chatsCmd(run),
		profileCmd(run),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(Options{})
	if err := root.ExecuteContext(ctx); err != nil {
		root.PrintErrln("Error:", err)
		stop()
		os.Exit(1)
	}
}
