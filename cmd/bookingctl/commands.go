package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"teslabooking/internal/apiclient"
	"teslabooking/internal/booking"
	"teslabooking/internal/i18n"
	"teslabooking/internal/model"
	"teslabooking/internal/validation"
)

type credentials struct {
	email    string
	password string
}

func (c *credentials) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.email, "email", "", "account email")
	cmd.Flags().StringVar(&c.password, "password", envOr("BOOKING_PASSWORD", ""), "account password (or BOOKING_PASSWORD)")
}

func newSignupCmd(a *app) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			values := map[string]string{
				validation.FieldEmail:    model.NormalizeEmail(creds.email),
				validation.FieldPassword: creds.password,
			}
			if errs := validation.Signup(a.t()).Validate(values); !errs.OK() {
				return errs
			}
			if err := a.sessions.SignUp(cmd.Context(), creds.email, creds.password); err != nil {
				return err
			}
			printIdentity(a)
			return nil
		},
	}
	creds.bind(cmd)
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var (
		creds    credentials
		remember bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			values := map[string]string{
				validation.FieldEmail:    model.NormalizeEmail(creds.email),
				validation.FieldPassword: creds.password,
			}
			if errs := validation.Login(a.t()).Validate(values); !errs.OK() {
				return errs
			}
			if err := a.sessions.SignIn(cmd.Context(), creds.email, creds.password, remember); err != nil {
				return err
			}
			printIdentity(a)
			return nil
		},
	}
	creds.bind(cmd)
	cmd.Flags().BoolVar(&remember, "remember", true, "keep the session after this run")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sessions.SignOut(cmd.Context()); err != nil {
				// Local state is already cleared.
				cmd.PrintErrln("warning:", err)
			}
			a.println(a.t().T(i18n.KeySignedOut))
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.sessions.Principal() == nil {
				return errors.New(a.t().T(i18n.KeyUnauthorized))
			}
			printIdentity(a)
			return nil
		},
	}
}

func printIdentity(a *app) {
	snap := a.sessions.Snapshot()
	if snap.Principal == nil {
		return
	}
	role := "customer"
	if snap.IsAdmin {
		role = model.RoleAdmin
	}
	a.println(snap.Principal.Email, "("+role+")")
}

func newLangCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lang [code]",
		Short: "Show or change the interface language (hu, en)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				a.println(a.localizer.Language())
				return nil
			}
			if err := a.localizer.SetLanguage(strings.ToLower(args[0])); err != nil {
				if errors.Is(err, i18n.ErrUnsupportedLanguage) {
					return fmt.Errorf("%s: %s", a.t().T(i18n.KeyUnsupportedLang), args[0])
				}
				return err
			}
			a.println(a.t().T(i18n.KeyLanguageChanged))
			return nil
		},
	}
}

func newBookCmd(a *app) *cobra.Command {
	var sel booking.Selection
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book a service appointment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sel.Email == "" {
				if p := a.sessions.Principal(); p != nil {
					sel.Email = p.Email
				}
			}

			w := booking.NewWizard(a.client, nil)
			steps := []func() error{
				func() error { return w.SetService(sel.Service) },
				w.Next,
				func() error { return w.SetVehicle(strings.TrimSpace(sel.Vehicle)) },
				w.Next,
				func() error { return w.SetSchedule(sel.Date, sel.Time, sel.Location) },
				w.Next,
				func() error { return w.SetContact(sel.Email) },
			}
			for _, step := range steps {
				if err := step(); err != nil {
					return fmt.Errorf("%s: %w", a.t().T(i18n.KeyBookingIncomplete), err)
				}
			}

			appt, err := w.Submit(cmd.Context())
			if err != nil {
				return fmt.Errorf("%s: %w", a.t().T(i18n.KeyBookingFailed), err)
			}
			a.println(a.t().T(i18n.KeyBookingConfirmed))
			printAppointments(a, []model.Appointment{*appt})
			return nil
		},
	}
	cmd.Flags().StringVar(&sel.Service, "service", "", "service ("+strings.Join(model.Services, ", ")+")")
	cmd.Flags().StringVar(&sel.Vehicle, "vehicle", "", "vehicle model")
	cmd.Flags().StringVar(&sel.Date, "date", "", "date, YYYY-MM-DD")
	cmd.Flags().StringVar(&sel.Time, "time", "", "time slot ("+strings.Join(model.TimeSlots, ", ")+")")
	cmd.Flags().StringVar(&sel.Location, "location", "", "service center ("+strings.Join(model.Locations, ", ")+")")
	cmd.Flags().StringVar(&sel.Email, "email", "", "contact email (defaults to the signed-in account)")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List your bookings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.sessions.Principal() == nil {
				return errors.New(a.t().T(i18n.KeyUnauthorized))
			}
			list, err := a.client.History(cmd.Context(), email)
			if err != nil {
				return describe(err)
			}
			if len(list) == 0 {
				a.println(a.t().T(i18n.KeyHistoryEmpty))
				return nil
			}
			printAppointments(a, list)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "another address (admins only)")
	return cmd
}

func newAdminCmd(a *app) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Service center dashboard",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			if !a.sessions.IsAdmin() {
				return errors.New(a.t().T(i18n.KeyAdminOnly))
			}
			return nil
		},
	}

	var (
		status string
		limit  int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List every appointment",
		RunE: func(cmd *cobra.Command, args []string) error {
			appts, err := a.client.AdminList(cmd.Context(), status, limit)
			if err != nil {
				return describe(err)
			}
			printAppointments(a, appts)
			return nil
		},
	}
	list.Flags().StringVar(&status, "status", "", "only this status")
	list.Flags().IntVar(&limit, "limit", 0, "maximum rows")

	setStatus := &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Change the status of an appointment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			appt, err := a.client.UpdateStatus(cmd.Context(), args[0], args[1])
			if err != nil {
				return describe(err)
			}
			printAppointments(a, []model.Appointment{*appt})
			return nil
		},
	}

	admin.AddCommand(list, setStatus)
	return admin
}

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask the service assistant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msgs := []model.ChatMessage{{Role: model.ChatRoleUser, Content: strings.Join(args, " ")}}
			_, err := a.client.Chat(cmd.Context(), msgs, a.localizer.Language(), func(delta string) {
				fmt.Fprint(a.out, delta)
			})
			a.println()
			if err != nil {
				return describe(err)
			}
			return nil
		},
	}
}

// describe prefers the server's localized message over the raw error.
func describe(err error) error {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return errors.New(apiErr.Message)
	}
	return err
}

func printAppointments(a *app, list []model.Appointment) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTIME\tSERVICE\tVEHICLE\tLOCATION\tSTATUS")
	for _, ap := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			ap.ID, ap.Date, ap.AppointmentTime, ap.Service, ap.Vehicle, ap.Location, ap.Status)
	}
	tw.Flush()
}
