package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fastygo/wishgift/domain"
	"github.com/fastygo/wishgift/internal/app"
	"github.com/fastygo/wishgift/internal/config"
	"github.com/fastygo/wishgift/internal/gateway"
	"github.com/fastygo/wishgift/pkg/logger"
)

var errNotSignedIn = errors.New("not signed in, run 'wishgift login' first")

func main() {
	root := &cobra.Command{
		Use:           "wishgift",
		Short:         "Command-line client for wishgift gift exchange groups",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		loginCmd(),
		registerCmd(),
		logoutCmd(),
		whoamiCmd(),
		avatarCmd(),
		acceptCmd(),
		groupsCmd(),
		membersCmd(),
		createGroupCmd(),
		inviteCmd(),
		wishesCmd(),
		addWishCmd(),
		reserveCmd(),
		unreserveCmd(),
		watchCmd(),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run builds the application context, restores the persisted session and
// hands both to fn. Pending notifications are printed afterwards.
func run(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
		Output:   cfg.Logger.Output,
	})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer zapLogger.Sync()

	// One request id per invocation ties its API calls together in the logs.
	ctx := logger.ContextWithRequestID(cmd.Context(), uuid.NewString())
	a, err := app.New(ctx, cfg, logger.WithRequestID(ctx, zapLogger))
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			zapLogger.Warn("close", zap.Error(err))
		}
	}()

	a.Session.RestoreSession(ctx)
	err = fn(ctx, a)
	printNotifications(cmd.OutOrStdout(), a)
	return userError(err)
}

// authenticated is run for commands that need a live session.
func authenticated(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	return run(cmd, func(ctx context.Context, a *app.App) error {
		if !a.Session.IsAuthenticated() {
			return errNotSignedIn
		}
		return fn(ctx, a)
	})
}

func printNotifications(w io.Writer, a *app.App) {
	for _, n := range a.Notifications.List() {
		fmt.Fprintf(w, "[%s] %s\n", n.Kind, n.Message)
	}
}

// userError replaces wrapped causes with the message meant for display.
func userError(err error) error {
	if err == nil {
		return nil
	}
	var dErr *domain.Error
	if errors.As(err, &dErr) {
		return errors.New(dErr.Message)
	}
	if gateway.StatusCode(err) != 0 {
		return errors.New(gateway.MessageOf(err, err.Error()))
	}
	return err
}
