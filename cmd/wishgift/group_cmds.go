package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fastygo/wishgift/api/transport"
	"github.com/fastygo/wishgift/domain"
	"github.com/fastygo/wishgift/internal/app"
)

func groupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List your groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return authenticated(cmd, func(ctx context.Context, a *app.App) error {
				var err error
				if a.Session.IsAdmin() {
					err = a.Groups.FetchAdminGroups(ctx)
				} else {
					err = a.Groups.FetchMyGroups(ctx)
				}
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tTYPE")
				for _, g := range a.Groups.Groups() {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", g.ID, g.Name, g.Type)
				}
				return tw.Flush()
			})
		},
	}
}

func membersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members <group-id>",
		Short: "List the members of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return authenticated(cmd, func(ctx context.Context, a *app.App) error {
				members, err := a.Groups.FetchGroupMembers(ctx, args[0])
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tADMIN")
				for _, m := range members {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", m.ID, m.DisplayName(), m.Email, m.IsAdmin)
				}
				return tw.Flush()
			})
		},
	}
}

func createGroupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-group <name>",
		Short: "Create a group you administer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return authenticated(cmd, func(ctx context.Context, a *app.App) error {
				g, err := a.Groups.CreateGroup(ctx, args[0])
				if err != nil {
					return err
				}
				a.Notifications.Success(fmt.Sprintf("group %q created (%s)", g.Name, g.ID))
				return nil
			})
		},
	}
}

func inviteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invite <group-id> <email>",
		Short: "Invite someone into a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return authenticated(cmd, func(ctx context.Context, a *app.App) error {
				inv, err := a.Groups.InviteUser(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "invitation for %s: %s\n", inv.Email, inv.InvitationLink)
				return nil
			})
		},
	}
}

func wishesCmd() *cobra.Command {
	var mine bool
	var userID string
	cmd := &cobra.Command{
		Use:   "wishes <group-id>",
		Short: "List the wishes of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return authenticated(cmd, func(ctx context.Context, a *app.App) error {
				var (
					list []domain.Wish
					err  error
				)
				switch {
				case mine:
					list, err = a.Wishes.FetchMyWishes(ctx, args[0])
				case userID != "":
					list, err = a.Wishes.FetchUserWishes(ctx, args[0], userID)
				default:
					list, err = a.Wishes.FetchGroupWishes(ctx, args[0])
				}
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tGIFT\tOWNER\tPRICE\tRESERVED")
				for _, w := range list {
					price := "-"
					if w.Price != nil {
						price = strconv.FormatFloat(*w.Price, 'f', 2, 64)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", w.ID, w.GiftName, w.UserID, price, w.IsReserved())
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "only your own wishes")
	cmd.Flags().StringVar(&userID, "user", "", "only the wishes of this member")
	return cmd
}

func addWishCmd() *cobra.Command {
	var description, link string
	var price float64
	cmd := &cobra.Command{
		Use:   "add-wish <group-id> <gift-name>",
		Short: "Add a wish to a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return authenticated(cmd, func(ctx context.Context, a *app.App) error {
				req := transport.WishRequest{GiftName: args[1]}
				if cmd.Flags().Changed("description") {
					req.Description = &description
				}
				if cmd.Flags().Changed("url") {
					req.URL = &link
				}
				if cmd.Flags().Changed("price") {
					req.Price = &price
				}
				w, err := a.Wishes.AddWish(ctx, args[0], req)
				if err != nil {
					return err
				}
				a.Notifications.Success(fmt.Sprintf("wish %q added (%s)", w.GiftName, w.ID))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "free text description")
	cmd.Flags().StringVar(&link, "url", "", "where to buy it")
	cmd.Flags().Float64Var(&price, "price", 0, "indicative price")
	return cmd
}

func reserveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reserve <group-id> <wish-id>",
		Short: "Reserve a gift for someone else",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return authenticated(cmd, func(ctx context.Context, a *app.App) error {
				w, err := a.Wishes.ReserveWish(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				a.Notifications.Success(fmt.Sprintf("%q reserved", w.GiftName))
				return nil
			})
		},
	}
}

func unreserveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unreserve <group-id> <wish-id>",
		Short: "Release a reservation you made",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return authenticated(cmd, func(ctx context.Context, a *app.App) error {
				w, err := a.Wishes.UnreserveWish(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				a.Notifications.Info(fmt.Sprintf("%q is available again", w.GiftName))
				return nil
			})
		},
	}
}
