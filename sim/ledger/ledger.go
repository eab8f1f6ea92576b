// Package ledger implements the double-entry accounting engine behind
// the simulation's finance phase. Every money movement is a balanced
// transaction; the ledger can prove at any moment that its books
// balance and that the accounting equation holds.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Bender1011001/FBA-Bench-Enterprise-sub001/sim/metrics"
)

// Validation failure classes surfaced by Post. Callers branch with
// errors.Is.
var (
	ErrDuplicateAccount      = errors.New("account already exists")
	ErrUnknownAccount        = errors.New("unknown account")
	ErrAlreadyPosted         = errors.New("transaction already posted")
	ErrDuplicateTransaction  = errors.New("duplicate transaction id")
	ErrUnbalancedTransaction = errors.New("transaction does not balance")
	ErrEmptyTransaction      = errors.New("transaction has no entries")
	ErrNegativeAmount        = errors.New("negative entry amount")
)

// Standard chart of accounts for a marketplace seller.
const (
	AccountCash               = "cash"
	AccountInventory          = "inventory"
	AccountAccountsReceivable = "accounts_receivable"
	AccountAccountsPayable    = "accounts_payable"
	AccountOwnerEquity        = "owner_equity"
	AccountSalesRevenue       = "sales_revenue"
	AccountCOGS               = "cogs"
	AccountFeesExpense        = "fees_expense"
	AccountShippingExpense    = "shipping_expense"
)

// CategoryTotals are the per-class balance sums used by the integrity
// check and exposed by Snapshot.
type CategoryTotals struct {
	Assets      Money
	Liabilities Money
	Equity      Money
	Revenue     Money
	Expenses    Money
}

// IntegrityError reports a violated ledger invariant together with the
// totals that expose it.
type IntegrityError struct {
	Reason      string
	Totals      CategoryTotals
	DebitTotal  Money
	CreditTotal Money
	Difference  Money
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("ledger integrity violated: %s (difference %s)", e.Reason, e.Difference)
}

// Ledger is an in-memory double-entry ledger. A single mutex guards
// all state; posts are serialized, so a transaction either applies
// completely or leaves no trace.
//
// In strict mode (the usual configuration) every post re-verifies the
// full books afterwards and rolls the post back if verification fails.
// Non-strict mode skips the post-time audit and tolerates negative
// entry amounts, for hosts that deliberately corrupt state to exercise
// verification.
type Ledger struct {
	mu       sync.Mutex
	strict   bool
	accounts map[string]*Account
	posted   map[string]bool
	log      []*Transaction
	now      func() time.Time
}

// NewLedger creates an empty ledger with no accounts.
func NewLedger(strict bool) *Ledger {
	return &Ledger{
		strict:   strict,
		accounts: make(map[string]*Account),
		posted:   make(map[string]bool),
		now:      time.Now,
	}
}

// WithClock overrides the posting timestamp source for tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Strict reports whether post-time auditing is enabled.
func (l *Ledger) Strict() bool { return l.strict }

// InitializeChartOfAccounts creates the standard marketplace accounts.
// Idempotent: accounts that already exist are left untouched, balances
// included.
func (l *Ledger) InitializeChartOfAccounts() {
	standard := []Account{
		{ID: AccountCash, Name: "Cash", Class: Asset},
		{ID: AccountInventory, Name: "Inventory", Class: Asset},
		{ID: AccountAccountsReceivable, Name: "Accounts Receivable", Class: Asset},
		{ID: AccountAccountsPayable, Name: "Accounts Payable", Class: Liability},
		{ID: AccountOwnerEquity, Name: "Owner Equity", Class: Equity},
		{ID: AccountSalesRevenue, Name: "Sales Revenue", Class: Revenue},
		{ID: AccountCOGS, Name: "Cost of Goods Sold", Class: Expense},
		{ID: AccountFeesExpense, Name: "Fees Expense", Class: Expense},
		{ID: AccountShippingExpense, Name: "Shipping Expense", Class: Expense},
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, acct := range standard {
		if _, ok := l.accounts[acct.ID]; ok {
			continue
		}
		a := acct
		l.accounts[a.ID] = &a
	}
}

// CreateAccount adds an account with a zero balance.
func (l *Ledger) CreateAccount(id, name string, class Class) error {
	if id == "" {
		return fmt.Errorf("create account: id must not be empty")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.accounts[id]; ok {
		return fmt.Errorf("create account %q: %w", id, ErrDuplicateAccount)
	}
	l.accounts[id] = &Account{ID: id, Name: name, Class: class}
	return nil
}

// Post validates and applies a transaction atomically. On success the
// transaction is marked posted and appended to the log. On any
// validation failure the ledger is untouched. In strict mode the full
// books are verified after applying; if verification fails the applied
// balances are restored exactly and the post is rejected.
func (l *Ledger) Post(t *Transaction) error {
	if t == nil {
		panic("ledger: Post called with nil transaction")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.validateLocked(t); err != nil {
		metrics.LedgerPosts.WithLabelValues("rejected").Inc()
		return err
	}

	// Snapshot touched balances so a failed strict audit can restore
	// them exactly.
	before := make(map[string]Money, len(t.Debits)+len(t.Credits))
	for _, e := range t.Debits {
		before[e.Account] = l.accounts[e.Account].Balance
	}
	for _, e := range t.Credits {
		before[e.Account] = l.accounts[e.Account].Balance
	}

	l.applyLocked(t)

	if l.strict {
		if ierr := l.verifyLocked(); ierr != nil {
			for id, bal := range before {
				l.accounts[id].Balance = bal
			}
			metrics.LedgerPosts.WithLabelValues("rolled_back").Inc()
			logrus.Errorf("ledger: transaction %s rolled back: %v", t.ID, ierr)
			return fmt.Errorf("post transaction %s: %w", t.ID, ierr)
		}
	}

	t.Posted = true
	t.PostedAt = l.now()
	l.posted[t.ID] = true
	l.log = append(l.log, t.clone())
	metrics.LedgerPosts.WithLabelValues("posted").Inc()
	logrus.Debugf("ledger: posted %s type=%s debits=%s credits=%s", t.ID, t.Type, t.TotalDebits(), t.TotalCredits())
	return nil
}

func (l *Ledger) validateLocked(t *Transaction) error {
	if t.ID == "" {
		return fmt.Errorf("post transaction: id must not be empty")
	}
	if t.Posted {
		return fmt.Errorf("post transaction %s: %w", t.ID, ErrAlreadyPosted)
	}
	if l.posted[t.ID] {
		return fmt.Errorf("post transaction %s: %w", t.ID, ErrDuplicateTransaction)
	}
	if len(t.Debits) == 0 || len(t.Credits) == 0 {
		return fmt.Errorf("post transaction %s: %w", t.ID, ErrEmptyTransaction)
	}
	for _, e := range append(append([]Entry(nil), t.Debits...), t.Credits...) {
		if _, ok := l.accounts[e.Account]; !ok {
			return fmt.Errorf("post transaction %s: account %q: %w", t.ID, e.Account, ErrUnknownAccount)
		}
		if e.Amount < 0 {
			if l.strict {
				return fmt.Errorf("post transaction %s: account %q amount %s: %w", t.ID, e.Account, e.Amount, ErrNegativeAmount)
			}
			logrus.Warnf("ledger: transaction %s entry on %q has negative amount %s", t.ID, e.Account, e.Amount)
		}
		if e.Amount == 0 {
			logrus.Warnf("ledger: transaction %s entry on %q has zero amount", t.ID, e.Account)
		}
	}
	if !t.Balanced() {
		return fmt.Errorf("post transaction %s: debits %s != credits %s: %w",
			t.ID, t.TotalDebits(), t.TotalCredits(), ErrUnbalancedTransaction)
	}
	return nil
}

func (l *Ledger) applyLocked(t *Transaction) {
	for _, e := range t.Debits {
		acct := l.accounts[e.Account]
		if acct.Class.NormalSide() == Debit {
			acct.Balance += e.Amount
		} else {
			acct.Balance -= e.Amount
		}
	}
	for _, e := range t.Credits {
		acct := l.accounts[e.Account]
		if acct.Class.NormalSide() == Credit {
			acct.Balance += e.Amount
		} else {
			acct.Balance -= e.Amount
		}
	}
}

// AccountBalance returns the balance of one account in normal-side
// terms.
func (l *Ledger) AccountBalance(id string) (Money, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[id]
	if !ok {
		return 0, fmt.Errorf("balance of %q: %w", id, ErrUnknownAccount)
	}
	return acct.Balance, nil
}

// AllBalances returns a copy of every account balance keyed by id.
func (l *Ledger) AllBalances() map[string]Money {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]Money, len(l.accounts))
	for id, acct := range l.accounts {
		out[id] = acct.Balance
	}
	return out
}

// Accounts returns copies of every account, sorted by id.
func (l *Ledger) Accounts() []Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Account, 0, len(l.accounts))
	for _, acct := range l.accounts {
		out = append(out, *acct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TrialBalance sums every account balance onto its column: positive
// balances land on the account's normal side, negative balances on the
// opposite side.
func (l *Ledger) TrialBalance() (debitTotal, creditTotal Money) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.trialBalanceLocked()
}

func (l *Ledger) trialBalanceLocked() (debitTotal, creditTotal Money) {
	for _, acct := range l.accounts {
		side := acct.Class.NormalSide()
		amount := acct.Balance
		if amount < 0 {
			amount = -amount
			if side == Debit {
				side = Credit
			} else {
				side = Debit
			}
		}
		if side == Debit {
			debitTotal += amount
		} else {
			creditTotal += amount
		}
	}
	return debitTotal, creditTotal
}

// TrialBalanceBalanced reports whether the two columns agree.
func (l *Ledger) TrialBalanceBalanced() bool {
	debit, credit := l.TrialBalance()
	return debit == credit
}

// Snapshot returns the per-class balance totals.
func (l *Ledger) Snapshot() CategoryTotals {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalsLocked()
}

func (l *Ledger) totalsLocked() CategoryTotals {
	var ct CategoryTotals
	for _, acct := range l.accounts {
		switch acct.Class {
		case Asset:
			ct.Assets += acct.Balance
		case Liability:
			ct.Liabilities += acct.Balance
		case Equity:
			ct.Equity += acct.Balance
		case Revenue:
			ct.Revenue += acct.Balance
		case Expense:
			ct.Expenses += acct.Balance
		}
	}
	return ct
}

// verifyLocked checks the two ledger invariants: the trial balance
// columns agree, and Assets == Liabilities + Equity + (Revenue −
// Expenses).
func (l *Ledger) verifyLocked() *IntegrityError {
	debit, credit := l.trialBalanceLocked()
	totals := l.totalsLocked()
	if debit != credit {
		return &IntegrityError{
			Reason:      "trial balance mismatch",
			Totals:      totals,
			DebitTotal:  debit,
			CreditTotal: credit,
			Difference:  debit - credit,
		}
	}
	rhs := totals.Liabilities + totals.Equity + (totals.Revenue - totals.Expenses)
	if totals.Assets != rhs {
		return &IntegrityError{
			Reason:      "accounting equation violated",
			Totals:      totals,
			DebitTotal:  debit,
			CreditTotal: credit,
			Difference:  totals.Assets - rhs,
		}
	}
	return nil
}

// VerifyIntegrity audits the full books. On success it returns nil; on
// failure it logs the complete diagnostic and returns the
// *IntegrityError. It never panics; callers that want a hard stop use
// MustVerifyIntegrity.
func (l *Ledger) VerifyIntegrity() error {
	l.mu.Lock()
	ierr := l.verifyLocked()
	l.mu.Unlock()
	if ierr == nil {
		logrus.Debug("ledger: integrity verified")
		return nil
	}
	logrus.Errorf("ledger: %s: assets=%s liabilities=%s equity=%s revenue=%s expenses=%s debits=%s credits=%s",
		ierr.Reason, ierr.Totals.Assets, ierr.Totals.Liabilities, ierr.Totals.Equity,
		ierr.Totals.Revenue, ierr.Totals.Expenses, ierr.DebitTotal, ierr.CreditTotal)
	return ierr
}

// MustVerifyIntegrity panics if the books do not balance. For hosts
// that treat inconsistency as unrecoverable.
func (l *Ledger) MustVerifyIntegrity() {
	if err := l.VerifyIntegrity(); err != nil {
		panic(err)
	}
}

// InjectEquity records seed capital: debit cash, credit owner equity.
// The only sanctioned way to introduce money from outside the books.
func (l *Ledger) InjectEquity(amount Money, memo string) (*Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("inject equity: amount must be positive, got %s", amount)
	}
	t := NewTransaction("equity_injection", memo).
		AddDebit(AccountCash, amount, memo).
		AddCredit(AccountOwnerEquity, amount, memo)
	if err := l.Post(t); err != nil {
		return nil, err
	}
	return t, nil
}

// RecordInventoryPurchase books stock received on supplier credit:
// debit inventory, credit accounts payable.
func (l *Ledger) RecordInventoryPurchase(amount Money, memo string) (*Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("record inventory purchase: amount must be positive, got %s", amount)
	}
	t := NewTransaction("inventory_purchase", memo).
		AddDebit(AccountInventory, amount, memo).
		AddCredit(AccountAccountsPayable, amount, memo)
	if err := l.Post(t); err != nil {
		return nil, err
	}
	return t, nil
}

// RecordSale books a cash sale and its cost of goods in one balanced
// transaction: debit cash / credit sales revenue for the sale price,
// debit COGS / credit inventory for the cost.
func (l *Ledger) RecordSale(revenue, cost Money, memo string) (*Transaction, error) {
	if revenue <= 0 {
		return nil, fmt.Errorf("record sale: revenue must be positive, got %s", revenue)
	}
	if cost < 0 {
		return nil, fmt.Errorf("record sale: cost must not be negative, got %s", cost)
	}
	t := NewTransaction("sale", memo).
		AddDebit(AccountCash, revenue, memo)
	if cost > 0 {
		t.AddDebit(AccountCOGS, cost, memo)
	}
	t.AddCredit(AccountSalesRevenue, revenue, memo)
	if cost > 0 {
		t.AddCredit(AccountInventory, cost, memo)
	}
	if err := l.Post(t); err != nil {
		return nil, err
	}
	return t, nil
}

// TransactionLog returns deep copies of every posted transaction in
// posting order.
func (l *Ledger) TransactionLog() []*Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Transaction, len(l.log))
	for i, t := range l.log {
		out[i] = t.clone()
	}
	return out
}
