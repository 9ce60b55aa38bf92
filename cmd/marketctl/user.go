package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"go-gin-marketplace/internal/app"
	"go-gin-marketplace/internal/domain"
	"go-gin-marketplace/internal/feature/user"
)

func (c *cli) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List users, newest first",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, a *app.App, _ []string) error {
			return c.runUserList(cmd, a, limit)
		}),
	}
	list.Flags().IntVar(&limit, "limit", 50, "max users to show")

	cmd.AddCommand(
		list,
		&cobra.Command{
			Use:   "confirm [email]",
			Short: "Mark an account's email as confirmed",
			Args:  cobra.ExactArgs(1),
			RunE:  c.withApp(c.runUserConfirm),
		},
		&cobra.Command{
			Use:   "promote [email]",
			Short: "Grant the admin role",
			Args:  cobra.ExactArgs(1),
			RunE:  c.withApp(c.runUserPromote),
		},
		&cobra.Command{
			Use:   "ban [email]",
			Short: "Soft-delete an account",
			Args:  cobra.ExactArgs(1),
			RunE:  c.withApp(c.runUserBan),
		},
	)
	return cmd
}

func findUser(cmd *cobra.Command, a *app.App, email string) (*domain.User, error) {
	u, err := a.Users.FindByEmail(cmd.Context(), user.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %s not found", email)
	}
	return u, nil
}

func (c *cli) runUserConfirm(cmd *cobra.Command, a *app.App, args []string) error {
	u, err := findUser(cmd, a, args[0])
	if err != nil {
		return err
	}
	if u.Confirmed() {
		fmt.Fprintf(c.out, "%s already confirmed\n", u.Email)
		return nil
	}
	if err := a.Users.MarkConfirmed(cmd.Context(), u.ID, time.Now()); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s confirmed\n", u.Email)
	return nil
}

func (c *cli) runUserPromote(cmd *cobra.Command, a *app.App, args []string) error {
	u, err := findUser(cmd, a, args[0])
	if err != nil {
		return err
	}
	if err := a.Users.SetRole(cmd.Context(), u.ID, user.RoleAdmin); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s is now admin\n", u.Email)
	return nil
}

func (c *cli) runUserBan(cmd *cobra.Command, a *app.App, args []string) error {
	u, err := findUser(cmd, a, args[0])
	if err != nil {
		return err
	}
	if err := a.Users.SoftDelete(cmd.Context(), u.ID); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s banned\n", u.Email)
	return nil
}

func (c *cli) runUserList(cmd *cobra.Command, a *app.App, limit int) error {
	us, total, err := a.Users.List(cmd.Context(), 0, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL\tNAME\tROLE\tCONFIRMED\tJOINED")
	for _, u := range us {
		confirmed := "no"
		if u.Confirmed() {
			confirmed = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.Email, u.Name, u.Role, confirmed, humanize.Time(u.CreatedAt))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%d of %d users\n", len(us), total)
	return nil
}
