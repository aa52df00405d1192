package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/user"
)

func (cli *commandLine) addUserCmd() *cobra.Command {
	var (
		name, uname, email string
		roles              []string
		isAdmin            bool
	)
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a staff user, or update the one with the same username or email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if uname == "" && email == "" {
				return errors.New("one of --username or --email is required")
			}
			if isAdmin {
				roles = []string{user.RoleAdminOwner}
			}
			for _, role := range roles {
				if user.RolePriority(role) == 0 {
					return errors.Errorf("unknown role %q", role)
				}
			}
			pwd, err := cli.promptPassword(cmd)
			if err != nil {
				return err
			}
			usr, err := cli.addUser(cmd.Context(), name, uname, email, pwd, roles)
			if err != nil {
				return err
			}
			cmd.Printf("user %s saved (id %s)\n", usr.Username, usr.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "Full name")
	f.StringVar(&uname, "username", "", "Username")
	f.StringVar(&email, "email", "", "Email address")
	f.StringSliceVar(&roles, "role", nil, "Role to grant (repeatable): admin:, admin:owner, admin:pastor, teacher:, usher:")
	f.BoolVar(&isAdmin, "admin", false, "Grant the owner role")
	return cmd
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(ctx context.Context, name, uname, email, pwd string, roles []string) (user.User, error) {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	now := core.NowFunc().UTC()

	lookup := uname
	if lookup == "" {
		lookup = email
	}
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: lookup})
	found := err == nil
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		return user.User{}, err
	}
	if !found {
		usr = user.User{Username: uname, Email: email, CreatedAt: now}
	}
	if name = core.CleanName(name); name != "" {
		usr.Name = name
	}
	if len(roles) > 0 {
		usr.Roles = roles
	}
	usr.SetActive(true)
	if err = usr.SetPassword(pwd); err != nil {
		return user.User{}, err
	}
	usr.UpdatedAt = now

	if found {
		return cli.usrRepo.UpdateUser(ctx, usr)
	}
	return cli.usrRepo.CreateUser(ctx, usr)
}
