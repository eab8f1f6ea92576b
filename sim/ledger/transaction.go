package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one leg of a transaction: an amount applied to one account
// on one side.
type Entry struct {
	Account string
	Amount  Money
	Memo    string
}

// Transaction is a set of debit and credit entries that posts
// atomically. A transaction is balanced when its debit and credit
// totals are equal; only balanced transactions post. Once posted a
// transaction is immutable.
type Transaction struct {
	ID       string
	Type     string
	Memo     string
	Debits   []Entry
	Credits  []Entry
	Posted   bool
	PostedAt time.Time
}

// NewTransaction starts an unposted transaction with a fresh id.
func NewTransaction(txType, memo string) *Transaction {
	return &Transaction{
		ID:   uuid.NewString(),
		Type: txType,
		Memo: memo,
	}
}

// AddDebit appends a debit entry. Returns the transaction for
// chaining.
func (t *Transaction) AddDebit(account string, amount Money, memo string) *Transaction {
	t.Debits = append(t.Debits, Entry{Account: account, Amount: amount, Memo: memo})
	return t
}

// AddCredit appends a credit entry. Returns the transaction for
// chaining.
func (t *Transaction) AddCredit(account string, amount Money, memo string) *Transaction {
	t.Credits = append(t.Credits, Entry{Account: account, Amount: amount, Memo: memo})
	return t
}

// TotalDebits sums the debit column.
func (t *Transaction) TotalDebits() Money {
	var total Money
	for _, e := range t.Debits {
		total += e.Amount
	}
	return total
}

// TotalCredits sums the credit column.
func (t *Transaction) TotalCredits() Money {
	var total Money
	for _, e := range t.Credits {
		total += e.Amount
	}
	return total
}

// Balanced reports whether debits equal credits.
func (t *Transaction) Balanced() bool {
	return t.TotalDebits() == t.TotalCredits()
}

// clone returns a deep copy so callers of the transaction log cannot
// mutate posted history.
func (t *Transaction) clone() *Transaction {
	cp := *t
	cp.Debits = append([]Entry(nil), t.Debits...)
	cp.Credits = append([]Entry(nil), t.Credits...)
	return &cp
}
