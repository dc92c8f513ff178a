package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmeshcher/freight-storefront/internal/app"
	"github.com/mmeshcher/freight-storefront/internal/model"
	"github.com/mmeshcher/freight-storefront/internal/validation"
)

func (c *cli) loginCommand() *cobra.Command {
	var creds model.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds.Password = passwordFromEnv(creds.Password)
			return c.withApp(cmd, func(a *app.App) error {
				err := a.Store.Auth.Login(cmd.Context(), creds)
				if err != nil {
					return failure(err, a.Store.Auth.Snapshot().Error)
				}
				printUser(cmd, a.Store.Auth.Snapshot().User)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&creds.Login, "login", "l", "", "login")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "password (or FREIGHTCTL_PASSWORD)")
	return cmd
}

func (c *cli) registerCommand() *cobra.Command {
	var form validation.RegistrationForm

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			form.Password = passwordFromEnv(form.Password)
			if form.PasswordConfirm == "" {
				form.PasswordConfirm = form.Password
			}
			return c.withApp(cmd, func(a *app.App) error {
				err := a.Store.Auth.Register(cmd.Context(), form)
				if err != nil {
					return failure(err, a.Store.Auth.Snapshot().Error)
				}
				printUser(cmd, a.Store.Auth.Snapshot().User)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&form.Login, "login", "l", "", "login")
	f.StringVar(&form.Email, "email", "", "email")
	f.StringVar(&form.Name, "name", "", "display name")
	f.StringVarP(&form.Password, "password", "p", "", "password (or FREIGHTCTL_PASSWORD)")
	f.StringVar(&form.PasswordConfirm, "confirm", "", "password confirmation (defaults to --password)")
	f.StringVar(&form.Phone, "phone", "", "phone")
	f.StringVar(&form.Role, "role", "", "role: buyer, manager or admin")
	return cmd
}

func (c *cli) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				if err := a.Store.Auth.Logout(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "signed out")
				return nil
			})
		},
	}
}

func (c *cli) whoamiCommand() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				if !a.Store.Auth.Snapshot().IsAuthenticated {
					return errors.New("not signed in")
				}
				if refresh {
					if err := a.Store.Auth.FetchProfile(cmd.Context()); err != nil {
						return failure(err, a.Store.Auth.Snapshot().Error)
					}
				}
				printUser(cmd, a.Store.Auth.Snapshot().User)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "reload the profile from the backend")
	return cmd
}

func (c *cli) profileCommand() *cobra.Command {
	var name, email, phone string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update profile fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var p model.ProfileUpdate
			if cmd.Flags().Changed("name") {
				p.Name = &name
			}
			if cmd.Flags().Changed("email") {
				p.Email = &email
			}
			if cmd.Flags().Changed("phone") {
				p.Phone = &phone
			}

			return c.withApp(cmd, func(a *app.App) error {
				if err := a.Store.Auth.UpdateProfile(cmd.Context(), p); err != nil {
					return failure(err, a.Store.Auth.Snapshot().Error)
				}
				printUser(cmd, a.Store.Auth.Snapshot().User)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&phone, "phone", "", "phone")
	return cmd
}

func (c *cli) serverCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Manage the remote server address used in desktop mode",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set-address <addr>",
		Short: "Persist the remote server address (empty string resets it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				return a.Sessions.SetServerAddress(cmd.Context(), args[0])
			})
		},
	})
	return cmd
}
