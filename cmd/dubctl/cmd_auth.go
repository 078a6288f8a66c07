package main

import (
	"errors"
	"fmt"

	"github.com/nao1215/dubbing/internal/gateway"
	"github.com/spf13/cobra"
)

// errNotLoggedIn はトークンが保存されていないことを表す。
var errNotLoggedIn = errors.New("not logged in, run `dubctl login` first")

func newLoginCommand(a *app) *cobra.Command {
	var (
		c             credentials
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if passwordStdin {
				p, err := readPasswordLine(a.in)
				if err != nil {
					return err
				}
				c.Password = p
			}
			if err := promptLogin(&c, a.in, a.out); err != nil {
				return err
			}

			user, err := a.silentClient().Login(cmd.Context(), c.Email, c.Password)
			if err != nil {
				return errors.New(gateway.UserMessage(err, gateway.MsgLoginFailed))
			}
			fmt.Fprintf(a.out, "Logged in as %s\n", user.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVarP(&c.Email, "email", "e", "", "Account email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newRegisterCommand(a *app) *cobra.Command {
	var (
		c             credentials
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if passwordStdin {
				p, err := readPasswordLine(a.in)
				if err != nil {
					return err
				}
				c.Password = p
				c.ConfirmPassword = p
			}
			if err := promptRegister(&c, a.in, a.out); err != nil {
				return err
			}

			err := a.silentClient().Register(cmd.Context(), gateway.RegisterInput{
				FullName:        c.FullName,
				Username:        c.Email,
				Password:        c.Password,
				ConfirmPassword: c.ConfirmPassword,
			})
			if err != nil {
				return errors.New(gateway.UserMessage(err, gateway.MsgRequestFailed))
			}
			fmt.Fprintf(a.out, "Registered %s. Run `dubctl login` to sign in.\n", c.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&c.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVar(&c.FullName, "name", "", "Full name")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.silentClient().Logout(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged out, credentials removed from %s\n", a.storage.Path())
			return nil
		},
	}
}

func newWhoamiCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gw := a.silentClient()
			ok, err := gw.Authenticated()
			if err != nil {
				return err
			}
			if !ok {
				return errNotLoggedIn
			}
			user, err := gw.CurrentUser()
			if err != nil {
				return err
			}
			if user == nil {
				fmt.Fprintln(a.out, "Logged in")
				return nil
			}
			if name := user.DisplayName(); name != user.Email {
				fmt.Fprintf(a.out, "%s <%s>\n", name, user.Email)
				return nil
			}
			fmt.Fprintln(a.out, user.Email)
			return nil
		},
	}
}
