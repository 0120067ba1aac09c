package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/services"
)

type app struct {
	ledger   *services.LedgerService
	exporter *services.ExportService
	out      io.Writer
	today    func() core.Date
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "add":
		return a.add(ctx, args)
	case "delete":
		return a.remove(ctx, args)
	case "edit":
		return a.edit(ctx, args)
	case "list":
		return a.list(ctx, args)
	case "recent":
		return a.recent(ctx, args)
	case "balance":
		return a.balance(ctx, args)
	case "summary":
		return a.summary(ctx, args)
	case "budget":
		return a.budget(ctx, args)
	case "users":
		return a.users(ctx, args)
	case "export":
		return a.export(ctx, args)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func (a *app) userFlag(fs *flag.FlagSet) *int64 {
	return fs.Int64("user", a.ledger.DefaultUserID(), "user id")
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := a.flagSet("add")
	user := a.userFlag(fs)
	amount := fs.String("amount", "", "signed amount, negative for expenses")
	category := fs.String("category", "", "category")
	date := fs.String("date", a.today().String(), "date as YYYY-MM-DD")
	desc := fs.String("desc", "", "description")
	if err := fs.Parse(args); err != nil {
		return err
	}

	amt, err := core.ParseAmount(*amount)
	if err != nil {
		return err
	}

	res, err := a.ledger.RecordTransaction(ctx, core.NewTransaction{
		UserID:      *user,
		Amount:      amt,
		Category:    *category,
		DateText:    *date,
		Description: *desc,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "saved transaction %d\n", res.TransactionID)
	if res.PreAlert != nil && res.PreAlert.IsAlert() {
		fmt.Fprintf(a.out, "impact: %s\n", *res.PreAlert)
	}
	if res.PostStatus != nil {
		fmt.Fprintf(a.out, "status: %s\n", *res.PostStatus)
	}
	return nil
}

func (a *app) remove(ctx context.Context, args []string) error {
	fs := a.flagSet("delete")
	user := a.userFlag(fs)
	id := fs.Int64("id", 0, "transaction id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ok, err := a.ledger.RemoveTransaction(ctx, *id, *user)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("transaction %d: %w", *id, core.ErrNotFound)
	}
	fmt.Fprintf(a.out, "deleted transaction %d\n", *id)
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := a.flagSet("edit")
	user := a.userFlag(fs)
	id := fs.Int64("id", 0, "transaction id")
	amount := fs.String("amount", "", "new signed amount")
	category := fs.String("category", "", "new category")
	date := fs.String("date", "", "new date as YYYY-MM-DD")
	desc := fs.String("desc", "", "new description")
	if err := fs.Parse(args); err != nil {
		return err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var upd core.TransactionUpdate
	if set["amount"] {
		amt, err := core.ParseAmount(*amount)
		if err != nil {
			return err
		}
		upd.Amount = &amt
	}
	if set["category"] {
		upd.Category = category
	}
	if set["date"] {
		d, err := core.ParseDate(*date)
		if err != nil {
			return err
		}
		upd.Date = &d
	}
	if set["desc"] {
		upd.Description = desc
	}

	ok, err := a.ledger.EditTransaction(ctx, *id, *user, upd)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("transaction %d: %w", *id, core.ErrNotFound)
	}
	fmt.Fprintf(a.out, "updated transaction %d\n", *id)
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := a.flagSet("list")
	user := a.userFlag(fs)
	month := fs.Int("month", 0, "month 1-12, requires -year")
	year := fs.Int("year", 0, "year")
	current := fs.Bool("current", false, "only the current month")
	if err := fs.Parse(args); err != nil {
		return err
	}

	period := core.Period{Month: *month, Year: *year}
	if *current {
		if !period.IsAllTime() {
			return &core.ValidationError{Field: "current", Reason: "cannot be combined with -month or -year"}
		}
		period = core.MonthOf(a.today())
	}

	txs, err := a.ledger.ListTransactions(ctx, *user, period)
	if err != nil {
		return err
	}
	a.printTransactions(txs)
	return nil
}

func (a *app) recent(ctx context.Context, args []string) error {
	fs := a.flagSet("recent")
	user := a.userFlag(fs)
	n := fs.Int("n", 0, "number of transactions (configured default when 0)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	txs, err := a.ledger.RecentTransactions(ctx, *user, *n)
	if err != nil {
		return err
	}
	a.printTransactions(txs)
	return nil
}

func (a *app) printTransactions(txs []core.Transaction) {
	if len(txs) == 0 {
		fmt.Fprintln(a.out, "no transactions")
		return
	}
	income, expenses := decimal.Zero, decimal.Zero
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tAMOUNT\tDESCRIPTION")
	for _, t := range txs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.Date, t.Category, core.FormatMoney(t.Amount), t.Description)
		if t.IsExpense() {
			expenses = expenses.Add(t.Amount.Abs())
		} else {
			income = income.Add(t.Amount)
		}
	}
	tw.Flush()
	fmt.Fprintf(a.out, "income %s, expenses %s\n", core.FormatMoney(income), core.FormatMoney(expenses))
}

func (a *app) balance(ctx context.Context, args []string) error {
	fs := a.flagSet("balance")
	user := a.userFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "balance: %s\n", core.FormatMoney(a.ledger.AccountBalance(ctx, *user)))
	return nil
}

func (a *app) summary(ctx context.Context, args []string) error {
	fs := a.flagSet("summary")
	user := a.userFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	rows, err := a.ledger.BudgetSummary(ctx, *user)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(a.out, "no transactions")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tLIMIT\tSPENT\tSTATUS")
	for _, r := range rows {
		limit := "-"
		if r.Limit != nil {
			limit = core.FormatMoney(*r.Limit)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Category, limit, core.FormatMoney(r.Spent), r.Status)
	}
	tw.Flush()
	return nil
}

func (a *app) budget(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("budget: missing action (set, update, replace, remove, list, status)")
	}
	action := args[0]

	fs := a.flagSet("budget " + action)
	user := a.userFlag(fs)
	category := fs.String("category", "", "category")
	amount := fs.String("amount", "", "monthly limit")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	limit := func() (decimal.Decimal, error) { return core.ParseLimit(*amount) }

	switch action {
	case "set":
		l, err := limit()
		if err != nil {
			return err
		}
		ok, err := a.ledger.SetNewBudget(ctx, *user, *category, l)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("budget for %s already exists, use budget update", strings.TrimSpace(*category))
		}
	case "update":
		l, err := limit()
		if err != nil {
			return err
		}
		ok, err := a.ledger.ChangeBudget(ctx, *user, *category, l)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no budget for %s, use budget set", strings.TrimSpace(*category))
		}
	case "replace":
		l, err := limit()
		if err != nil {
			return err
		}
		if err := a.ledger.ReplaceBudget(ctx, *user, *category, l); err != nil {
			return err
		}
	case "remove":
		ok, err := a.ledger.RemoveBudget(ctx, *user, *category)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("budget %s: %w", strings.TrimSpace(*category), core.ErrNotFound)
		}
	case "list":
		budgets, err := a.ledger.ListBudgets(ctx, *user)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(budgets))
		for name := range budgets {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(a.out, "%s: %s\n", name, core.FormatMoney(budgets[name]))
		}
		return nil
	case "status":
		st, err := a.ledger.CategoryStatus(ctx, *user, *category)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s: spent %s, status %s", st.Category, core.FormatMoney(st.Spent), st.Status)
		if st.HasBudget() {
			fmt.Fprintf(a.out, ", remaining %s", core.FormatMoney(st.Remaining()))
		}
		fmt.Fprintln(a.out)
		return nil
	default:
		return fmt.Errorf("budget: unknown action %q", action)
	}

	fmt.Fprintf(a.out, "budget %s: %s\n", action, strings.TrimSpace(*category))
	return nil
}

func (a *app) users(ctx context.Context, args []string) error {
	fs := a.flagSet("users")
	name := fs.String("name", "", "create a user with this name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name != "" {
		u, err := a.ledger.CreateUser(ctx, *name)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "created user %d (%s)\n", u.ID, u.Name)
		return nil
	}

	users, err := a.ledger.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		marker := ""
		if u.ID == a.ledger.DefaultUserID() {
			marker = " (default)"
		}
		fmt.Fprintf(a.out, "%d\t%s%s\n", u.ID, u.Name, marker)
	}
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := a.flagSet("export")
	user := a.userFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if a.exporter == nil {
		return errors.New("export: GOOGLE_SPREADSHEET_ID is not configured")
	}
	if err := a.exporter.Export(ctx, *user); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "export complete")
	return nil
}
