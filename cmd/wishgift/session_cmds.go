package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fastygo/wishgift/internal/app"
	"github.com/fastygo/wishgift/internal/navigation"
)

func credentialFlags(cmd *cobra.Command, email, password *string) {
	cmd.Flags().StringVarP(email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
}

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as a group administrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Session.Login(ctx, email, password); err != nil {
					return err
				}
				a.Notifications.Success("signed in as " + a.Session.User().DisplayName())
				return nil
			})
		},
	}
	credentialFlags(cmd, &email, &password)
	return cmd
}

func registerCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an administrator account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Session.Register(ctx, email, password); err != nil {
					return err
				}
				a.Notifications.Success("account created for " + email)
				return nil
			})
		},
	}
	credentialFlags(cmd, &email, &password)
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Session.Logout(ctx); err != nil {
					return err
				}
				a.Notifications.Info("signed out")
				return nil
			})
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return authenticated(cmd, func(ctx context.Context, a *app.App) error {
				user := a.Session.User()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "name:   %s\n", user.DisplayName())
				fmt.Fprintf(out, "email:  %s\n", user.Email)
				fmt.Fprintf(out, "id:     %s\n", user.ID)
				roles := make([]string, 0, len(user.Roles))
				for _, r := range user.Roles {
					roles = append(roles, string(r))
				}
				fmt.Fprintf(out, "roles:  %s\n", strings.Join(roles, ","))
				fmt.Fprintf(out, "groups: %s\n", strings.Join(user.GroupIDs, ","))
				if claims, err := a.Session.Claims(); err == nil {
					fmt.Fprintf(out, "expires: %s\n", claims.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
				}
				return nil
			})
		},
	}
}

func avatarCmd() *cobra.Command {
	var avatarID, pseudo string
	cmd := &cobra.Command{
		Use:   "avatar",
		Short: "Change avatar or display pseudo",
		RunE: func(cmd *cobra.Command, args []string) error {
			return authenticated(cmd, func(ctx context.Context, a *app.App) error {
				var avatarPtr, pseudoPtr *string
				if cmd.Flags().Changed("avatar") {
					avatarPtr = &avatarID
				}
				if cmd.Flags().Changed("pseudo") {
					pseudoPtr = &pseudo
				}
				if err := a.Session.UpdateAvatar(ctx, avatarPtr, pseudoPtr); err != nil {
					return err
				}
				a.Notifications.Success("profile saved, shown as " + a.Session.User().DisplayName())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&avatarID, "avatar", "", "avatar identifier")
	cmd.Flags().StringVar(&pseudo, "pseudo", "", "display pseudo")
	return cmd
}

func acceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept <invitation-token>",
		Short: "Join a group through an invitation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Session.AcceptInvitation(ctx, strings.TrimPrefix(args[0], "/invite/")); err != nil {
					return err
				}
				a.Notifications.Success("welcome " + a.Session.User().DisplayName())
				return nil
			})
		},
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stay online and sign out as soon as the session expires",
		RunE: func(cmd *cobra.Command, args []string) error {
			return authenticated(cmd, func(ctx context.Context, a *app.App) error {
				ctx, stop := a.Lifecycle.WithSignals(ctx)
				defer stop()

				expired := make(chan struct{}, 1)
				a.Router.OnChange(func(_, to navigation.Location) {
					fmt.Fprintf(cmd.OutOrStdout(), "-> %s\n", to)
					select {
					case expired <- struct{}{}:
					default:
					}
				})

				w, err := a.NewExpiryWatcher()
				if err != nil {
					return err
				}
				w.Start()
				fmt.Fprintf(cmd.OutOrStdout(), "watching session of %s\n", a.Session.User().DisplayName())

				select {
				case <-ctx.Done():
				case <-expired:
				}
				return nil
			})
		},
	}
}
