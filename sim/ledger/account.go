package ledger

// Class partitions accounts by their role in the accounting equation
// (Assets = Liabilities + Equity + Revenue − Expenses).
type Class int

const (
	Asset Class = iota
	Liability
	Equity
	Revenue
	Expense
)

var classNames = map[Class]string{
	Asset:     "asset",
	Liability: "liability",
	Equity:    "equity",
	Revenue:   "revenue",
	Expense:   "expense",
}

func (c Class) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return "unknown"
}

// Side is one of the two columns of double-entry bookkeeping.
type Side int

const (
	Debit Side = iota
	Credit
)

func (s Side) String() string {
	if s == Debit {
		return "debit"
	}
	return "credit"
}

// NormalSide returns the side on which balances of this class grow:
// debit for assets and expenses, credit for liabilities, equity and
// revenue.
func (c Class) NormalSide() Side {
	switch c {
	case Asset, Expense:
		return Debit
	default:
		return Credit
	}
}

// Account is one ledger account. Balance is signed in normal-side
// terms: an entry on the account's normal side increases it, an entry
// on the opposite side decreases it.
type Account struct {
	ID      string
	Name    string
	Class   Class
	Balance Money
}
