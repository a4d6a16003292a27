package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/garyjia/po-approval/internal/application/guard"
	"github.com/garyjia/po-approval/internal/application/lifecycle"
	"github.com/garyjia/po-approval/internal/application/session"
	"github.com/garyjia/po-approval/internal/container"
	"github.com/garyjia/po-approval/internal/domain/entity"
	"github.com/garyjia/po-approval/internal/domain/event"
)

// Exit codes
const (
	exitOK = iota
	exitFailure
	exitUsage
	exitLoginRequired
	exitForbidden
)

const usage = `usage: pocli [-config FILE] COMMAND [ARGS]

commands:
  login -email EMAIL [-password PASSWORD]
  logout
  whoami
  list
  show ID [ID...]
  submit -item NAME -qty N -cost AMOUNT -vendor NAME [-desc TEXT]
  approve ID [-comment TEXT]
  reject ID [-comment TEXT]
  history ID
`

type command func(ctx context.Context, a *app, args []string) int

var commands = map[string]command{
	"login":   runLogin,
	"logout":  runLogout,
	"whoami":  runWhoami,
	"list":    runList,
	"show":    runShow,
	"submit":  runSubmit,
	"approve": decideCommand(entity.StatusApproved),
	"reject":  decideCommand(entity.StatusRejected),
	"history": runHistory,
}

// app is one invocation of the client
type app struct {
	client         *container.Client
	out            io.Writer
	errOut         io.Writer
	in             io.Reader
	getenv         func(string) string
	expiryInterval time.Duration
}

func (a *app) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(a.errOut, usage)
		return exitUsage
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(a.errOut, "unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	name := a.client.Dispatcher.Subscribe(event.TypeTokenExpired, func(ctx context.Context, evt *event.Event) error {
		fmt.Fprintln(a.errOut, "session expired, run `pocli login` to sign in again")
		return nil
	})
	defer a.client.Dispatcher.Unsubscribe(event.TypeTokenExpired, name)

	if a.expiryInterval > 0 {
		go a.client.Session.WatchExpiry(ctx, a.expiryInterval)
	}

	return cmd(ctx, a, args[1:])
}

// enter restores the stored session and asks the guard whether route may be
// shown. It prints the reason and returns a nonzero exit code when not.
func (a *app) enter(ctx context.Context, route string) (session.Snapshot, int) {
	snap, err := a.client.Session.Restore(ctx)
	switch {
	case errors.Is(err, session.ErrTokenInvalid):
		fmt.Fprintln(a.errOut, "stored session was unreadable and has been cleared")
	case errors.Is(err, session.ErrTokenExpired):
		// the expiry subscriber already told the user
	case err != nil:
		fmt.Fprintf(a.errOut, "failed to restore session: %v\n", err)
		return snap, exitFailure
	}

	decision := guard.Check(snap, route)
	switch decision.Kind {
	case guard.Allow:
		return snap, exitOK
	case guard.RedirectLogin:
		fmt.Fprintf(a.errOut, "not signed in: run `pocli login` to open %s\n", decision.Route)
		return snap, exitLoginRequired
	case guard.Deny:
		fmt.Fprintf(a.errOut, "access denied: %s\n", decision.Reason)
		return snap, exitForbidden
	case guard.RedirectAuthenticatedHome:
		fmt.Fprintf(a.out, "already signed in as %s\n", snap.Identity())
		return snap, exitOK
	default:
		fmt.Fprintf(a.errOut, "unexpected route decision %s\n", decision.Kind)
		return snap, exitFailure
	}
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// fail prints err the way the user should see it
func (a *app) fail(err error) int {
	var (
		validation *lifecycle.ValidationError
		authErr    *session.AuthError
	)
	switch {
	case errors.As(err, &validation):
		fmt.Fprintln(a.errOut, "invalid purchase order:")
		for _, f := range validation.Fields {
			fmt.Fprintf(a.errOut, "  %s: %s\n", f.Field, f.Rule)
		}
		return exitUsage
	case errors.As(err, &authErr):
		fmt.Fprintln(a.errOut, authErr.Message)
		return exitFailure
	case errors.Is(err, lifecycle.ErrTransitionRejected):
		fmt.Fprintln(a.errOut, err)
		return exitForbidden
	default:
		fmt.Fprintln(a.errOut, err)
		return exitFailure
	}
}

func (a *app) readPassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := a.getenv("PO_PASSWORD"); env != "" {
		return env, nil
	}

	fmt.Fprint(a.errOut, "password: ")
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogin(ctx context.Context, a *app, args []string) int {
	fs := a.flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (defaults to $PO_PASSWORD, then stdin)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	snap, code := a.enter(ctx, guard.LoginRoute)
	if code != exitOK || snap.Authenticated() {
		return code
	}

	if *email == "" {
		fmt.Fprintln(a.errOut, "login requires -email")
		return exitUsage
	}
	secret, err := a.readPassword(*password)
	if err != nil {
		return a.fail(err)
	}

	snap, err = a.client.Session.Login(ctx, *email, secret)
	if err != nil {
		return a.fail(err)
	}

	fmt.Fprintf(a.out, "signed in as %s (%s)\n", snap.Identity(), snap.Role())
	return exitOK
}

func runLogout(ctx context.Context, a *app, args []string) int {
	if err := a.client.Session.Logout(ctx); err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.out, "signed out")
	return exitOK
}

func runWhoami(ctx context.Context, a *app, args []string) int {
	snap, code := a.enter(ctx, guard.HomeRoute)
	if code != exitOK {
		return code
	}

	fmt.Fprintf(a.out, "%s (%s)\n", snap.Identity(), snap.Role())
	if snap.Claims != nil {
		fmt.Fprintf(a.out, "expires %s\n", time.Unix(snap.Claims.ExpiresAt, 0).UTC().Format(time.RFC3339))
	}
	return exitOK
}

func runList(ctx context.Context, a *app, args []string) int {
	if _, code := a.enter(ctx, guard.HomeRoute); code != exitOK {
		return code
	}

	orders, err := a.client.Lifecycle.FetchAll(ctx)
	if err != nil {
		return a.fail(err)
	}
	if len(orders) == 0 {
		fmt.Fprintln(a.out, "no purchase orders")
		return exitOK
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tITEM\tQTY\tCOST\tVENDOR\tSTATUS")
	for _, o := range orders {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%s\t%s\n", o.ID, o.ItemName, o.Quantity, o.Cost, o.VendorName, o.Status)
	}
	if err := tw.Flush(); err != nil {
		return a.fail(err)
	}
	return exitOK
}

func runShow(ctx context.Context, a *app, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(a.errOut, "show requires at least one order id")
		return exitUsage
	}
	for _, id := range args {
		if !a.checkOrderID(id) {
			return exitUsage
		}
	}
	for _, id := range args {
		if _, code := a.enter(ctx, guard.OrderDetailPath(id)); code != exitOK {
			return code
		}
	}

	orders, err := a.client.Lifecycle.FetchMany(ctx, args)
	if err != nil {
		return a.fail(err)
	}

	for i, o := range orders {
		if i > 0 {
			fmt.Fprintln(a.out)
		}
		printOrder(a.out, o)
	}
	return exitOK
}

func runSubmit(ctx context.Context, a *app, args []string) int {
	fs := a.flags("submit")
	var sub entity.Submission
	fs.StringVar(&sub.ItemName, "item", "", "item name")
	fs.IntVar(&sub.Quantity, "qty", 0, "quantity")
	fs.Float64Var(&sub.Cost, "cost", 0, "total cost")
	fs.StringVar(&sub.VendorName, "vendor", "", "vendor name")
	fs.StringVar(&sub.Description, "desc", "", "free text description")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if _, code := a.enter(ctx, guard.NewOrderRoute); code != exitOK {
		return code
	}

	order, err := a.client.Lifecycle.Submit(ctx, sub)
	if err != nil {
		return a.fail(err)
	}

	fmt.Fprintf(a.out, "submitted %s (%s)\n", order.ID, order.Status)
	return exitOK
}

func decideCommand(outcome entity.Status) command {
	return func(ctx context.Context, a *app, args []string) int {
		if len(args) == 0 || strings.HasPrefix(args[0], "-") {
			fmt.Fprintf(a.errOut, "%s requires an order id\n", verbFor(outcome))
			return exitUsage
		}
		id := args[0]
		if !a.checkOrderID(id) {
			return exitUsage
		}

		fs := a.flags(verbFor(outcome))
		comment := fs.String("comment", "", "note recorded with the decision")
		if err := fs.Parse(args[1:]); err != nil {
			return exitUsage
		}

		snap, code := a.enter(ctx, guard.OrderDetailPath(id))
		if code != exitOK {
			return code
		}

		order, err := a.client.Lifecycle.Decide(ctx, id, outcome, *comment, snap)
		switch {
		case errors.Is(err, lifecycle.ErrInvalidState):
			fmt.Fprintf(a.errOut, "order %s has already been decided\n", id)
			return exitFailure
		case errors.Is(err, lifecycle.ErrConflict):
			fmt.Fprintf(a.errOut, "order %s was decided by another reviewer\n", id)
			return exitFailure
		case err != nil:
			return a.fail(err)
		}

		fmt.Fprintf(a.out, "order %s %s\n", order.ID, order.Status)
		return exitOK
	}
}

func runHistory(ctx context.Context, a *app, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(a.errOut, "history requires exactly one order id")
		return exitUsage
	}
	if !a.checkOrderID(args[0]) {
		return exitUsage
	}
	if _, code := a.enter(ctx, guard.OrderDetailPath(args[0])); code != exitOK {
		return code
	}

	entries, err := a.client.Lifecycle.FetchHistory(ctx, args[0])
	if err != nil {
		return a.fail(err)
	}
	printHistory(a.out, entries)
	return exitOK
}

// checkOrderID rejects ids that would resolve to a route other than the
// order detail page
func (a *app) checkOrderID(id string) bool {
	if id == "" || id == "new" || strings.Contains(id, "/") {
		fmt.Fprintf(a.errOut, "invalid order id %q\n", id)
		return false
	}
	return true
}

func printOrder(w io.Writer, o *entity.PurchaseOrder) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", o.ID)
	fmt.Fprintf(tw, "Item\t%s\n", o.ItemName)
	fmt.Fprintf(tw, "Quantity\t%d\n", o.Quantity)
	fmt.Fprintf(tw, "Cost\t%.2f\n", o.Cost)
	fmt.Fprintf(tw, "Vendor\t%s\n", o.VendorName)
	if o.Description != "" {
		fmt.Fprintf(tw, "Description\t%s\n", o.Description)
	}
	fmt.Fprintf(tw, "Status\t%s\n", o.Status)
	fmt.Fprintf(tw, "Submitted\t%s\n", o.CreatedAt.Format(time.RFC3339))
	tw.Flush()

	if len(o.ApprovalHistory) > 0 {
		fmt.Fprintln(w)
		printHistory(w, o.ApprovalHistory)
	}
}

func printHistory(w io.Writer, entries []entity.ApprovalEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no decisions recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tSTATUS\tREVIEWER\tCOMMENT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Date.Format(time.RFC3339), e.Status, e.Reviewer, e.Comment)
	}
	tw.Flush()
}

func verbFor(outcome entity.Status) string {
	if outcome == entity.StatusApproved {
		return "approve"
	}
	return "reject"
}

func newApp(client *container.Client, expiryInterval time.Duration) *app {
	return &app{
		client:         client,
		out:            os.Stdout,
		errOut:         os.Stderr,
		in:             os.Stdin,
		getenv:         os.Getenv,
		expiryInterval: expiryInterval,
	}
}
