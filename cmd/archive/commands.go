package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Rrens/chat-archive/internal/archive"
	"github.com/Rrens/chat-archive/internal/authui"
	"github.com/Rrens/chat-archive/internal/connection"
	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type runner func(fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	badColor  = color.New(color.FgRed)
)

func statusColor(s connection.Status) *color.Color {
	switch s {
	case connection.StatusConnected:
		return okColor
	case connection.StatusPartial, connection.StatusTesting:
		return warnColor
	default:
		return badColor
	}
}

func printView(w io.Writer, v authui.ViewState) {
	statusColor(v.Status).Fprintf(w, "[%s]", v.Status)
	fmt.Fprintf(w, " %s\n", v.Headline)
}

func statusCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Test the connection to the archive backend",
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			if _, err := a.settle(ctx); err != nil {
				return fmt.Errorf("connection test did not finish: %w", err)
			}
			out := cmd.OutOrStdout()
			printView(out, a.surface.View())

			if session := a.client.Session(); session != nil && session.User != nil {
				fmt.Fprintf(out, "Signed in as %s\n", session.User.Email)
			}
			return nil
		}),
	}
}

func watchCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Show connection changes as they happen (r to retry or cancel, q to quit)",
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			var (
				mu   sync.Mutex
				last authui.ViewState
			)
			unsub := a.surface.Subscribe(func(v authui.ViewState) {
				mu.Lock()
				defer mu.Unlock()
				if v.Status == last.Status && v.Headline == last.Headline {
					return
				}
				last = v
				printView(out, v)
			})
			defer unsub()

			a.surface.Open(ctx)

			ctx, stop := context.WithCancel(ctx)
			defer stop()
			lines := readLines(ctx, cmd.InOrStdin())

			for {
				select {
				case <-ctx.Done():
					return nil
				case line, ok := <-lines:
					if !ok {
						return nil
					}
					switch line {
					case "r", "retry":
						a.surface.Retry()
					case "q", "quit", "exit":
						return nil
					}
				}
			}
		}),
	}
}

// readLines streams trimmed lines from r until EOF or until ctx is done
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func loginCmd(run runner, signUp bool) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
	}
	mode := authui.ModeSignIn
	if signUp {
		cmd.Use = "signup"
		cmd.Short = "Create an account"
		mode = authui.ModeSignUp
	}

	cmd.RunE = run(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
		in := bufio.NewReader(cmd.InOrStdin())
		var err error
		if email == "" {
			if email, err = prompt(in, cmd.ErrOrStderr(), "Email: "); err != nil {
				return err
			}
		}
		if password == "" {
			if password, err = prompt(in, cmd.ErrOrStderr(), "Password: "); err != nil {
				return err
			}
		}

		if _, err := a.settle(ctx); err != nil {
			return fmt.Errorf("connection test did not finish: %w", err)
		}
		a.surface.SetMode(mode)

		view := a.surface.View()
		if !view.FormEnabled {
			printView(cmd.ErrOrStderr(), view)
			return errors.New(orMessage(view.Message, "not connected to server"))
		}
		return a.surface.Submit(ctx, email, password)
	})
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when empty)")
	return cmd
}

func logoutCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the local session",
		RunE: run(func(ctx context.Context, a *app, _ *cobra.Command, _ []string) error {
			return a.auth.SignOut(ctx)
		}),
	}
}

func whoamiCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			a.auth.Init(ctx)
			session := a.auth.Session()
			out := cmd.OutOrStdout()

			switch {
			case session.User != nil:
				fmt.Fprintln(out, session.User.Email)
			case !session.IsConnected:
				return errors.New("could not reach the archive backend")
			default:
				fmt.Fprintln(out, "Not signed in")
			}
			return nil
		}),
	}
}

func oauthCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "oauth <provider>",
		Short: "Sign in with an identity provider in the browser",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, a *app, _ *cobra.Command, args []string) error {
			return a.auth.SignInWithProvider(ctx, args[0])
		}),
	}
}

func servicesCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "services",
		Short: "List and connect AI chat services",
	}

	printServices := func(w io.Writer, services []domain.AIService) {
		for _, s := range services {
			state := badColor.Sprint("disconnected")
			if s.IsConnected {
				state = okColor.Sprint("connected")
			}
			fmt.Fprintf(w, "%s %-11s %s\n", s.Icon, s.Name, state)
		}
	}

	withService := func(fn func(ctx context.Context, a *app, name domain.ServiceName) (domain.AIService, error)) func(*cobra.Command, []string) error {
		return run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			name, err := domain.ParseServiceName(args[0])
			if err != nil {
				return err
			}
			if err := a.settings.Load(ctx); err != nil {
				return a.dataError("Failed to load services", err)
			}
			svc, err := fn(ctx, a, name)
			if err != nil {
				return err
			}
			printServices(cmd.OutOrStdout(), []domain.AIService{svc})
			return nil
		})
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show every service and whether it is connected",
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			if err := a.settings.Load(ctx); err != nil {
				return a.dataError("Failed to load services", err)
			}
			printServices(cmd.OutOrStdout(), a.settings.Services())
			return nil
		}),
	}
	toggle := &cobra.Command{
		Use:   "toggle <service>",
		Short: "Flip a service's connection flag",
		Args:  cobra.ExactArgs(1),
		RunE: withService(func(ctx context.Context, a *app, name domain.ServiceName) (domain.AIService, error) {
			return a.settings.Toggle(ctx, name)
		}),
	}
	connect := &cobra.Command{
		Use:   "connect <service>",
		Short: "Open the service's sign-in page and mark it connected",
		Args:  cobra.ExactArgs(1),
		RunE: withService(func(ctx context.Context, a *app, name domain.ServiceName) (domain.AIService, error) {
			return a.settings.Connect(ctx, name)
		}),
	}

	cmd.AddCommand(list, toggle, connect)
	return cmd
}

func printFolders(w io.Writer, folders []domain.TopicFolder) {
	if len(folders) == 0 {
		fmt.Fprintln(w, "No folders found")
		return
	}
	for _, f := range folders {
		okColor.Fprintf(w, "%s", f.Name)
		fmt.Fprintf(w, " (%d)\n  %s\n", len(f.Chats), f.Summary)
		for _, c := range f.Chats {
			fmt.Fprintf(w, "  - %s [%s, %s]\n", c.Title, c.Source, c.Date)
		}
	}
}

func foldersCmd(run runner) *cobra.Command {
	var (
		query string
		demo  bool
	)
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "Show chats grouped into topic folders",
	}
	online := run(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
		folders, err := a.client.ListFolders(ctx, query)
		if err != nil {
			return a.dataError("Failed to load folders", err)
		}
		printFolders(cmd.OutOrStdout(), folders)
		return nil
	})
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if demo {
			folders := archive.FilterFolders(archive.DeriveFolders(archive.SampleChats()), query)
			printFolders(cmd.OutOrStdout(), folders)
			return nil
		}
		return online(cmd, args)
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by folder name or chat title")
	cmd.Flags().BoolVar(&demo, "demo", false, "show the built-in sample archive without contacting the backend")
	return cmd
}

func chatsCmd(run runner) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List archived chats",
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			chats, err := a.client.ListChats(ctx, query)
			if err != nil {
				return a.dataError("Failed to load chats", err)
			}

			out := cmd.OutOrStdout()
			if len(chats) == 0 {
				fmt.Fprintln(out, "No chats found")
				return nil
			}
			for _, c := range chats {
				fmt.Fprintf(out, "%s  %-10s %s  %s\n", c.Date, c.Source, c.Title, strings.Join(c.Tags, ", "))
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by title or tag")

	var input domain.ChatCreate
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import a captured conversation",
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			chat, err := a.client.CreateChat(ctx, &input)
			if err != nil {
				return a.dataError("Failed to import chat", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %q (%s)\n", chat.Title, chat.ID)
			return nil
		}),
	}
	importCmd.Flags().StringVar(&input.Title, "title", "", "chat title")
	importCmd.Flags().StringVar(&input.Source, "source", "", "ChatGPT, Claude, Gemini or Perplexity")
	importCmd.Flags().StringVar(&input.Preview, "preview", "", "short excerpt")
	importCmd.Flags().StringVar(&input.Date, "date", "", "conversation date (YYYY-MM-DD, defaults to today)")
	importCmd.Flags().StringSliceVar(&input.Tags, "tags", nil, "comma separated tags")
	_ = importCmd.MarkFlagRequired("title")
	_ = importCmd.MarkFlagRequired("source")

	cmd.AddCommand(importCmd)
	return cmd
}

func profileCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
	}

	printProfile := func(w io.Writer, p *domain.Profile) {
		fmt.Fprintf(w, "Name:   %s\n", orMessage(deref(p.FullName), "-"))
		fmt.Fprintf(w, "Avatar: %s\n", orMessage(deref(p.AvatarURL), "-"))
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show your profile",
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			profile, err := a.client.GetProfile(ctx)
			if err != nil {
				return a.dataError("Failed to load profile", err)
			}
			printProfile(cmd.OutOrStdout(), profile)
			return nil
		}),
	}

	var name, avatar string
	set := &cobra.Command{
		Use:   "set",
		Short: "Update your profile",
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			update := &domain.ProfileUpdate{}
			if cmd.Flags().Changed("name") {
				update.FullName = &name
			}
			if cmd.Flags().Changed("avatar") {
				update.AvatarURL = &avatar
			}
			profile, err := a.client.UpdateProfile(ctx, update)
			if err != nil {
				return a.dataError("Failed to update profile", err)
			}
			printProfile(cmd.OutOrStdout(), profile)
			return nil
		}),
	}
	set.Flags().StringVar(&name, "name", "", "display name")
	set.Flags().StringVar(&avatar, "avatar", "", "avatar URL")

	cmd.AddCommand(show, set)
	return cmd
}

func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(line), nil
}

func orMessage(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
