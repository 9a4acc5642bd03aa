package domain

import "time"

// OrderSide indicates whether this is a buy or a sell, using the exchange's
// wire values.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType distinguishes limit from market orders. It is derived from the
// presence of a price, never supplied by callers.
type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

// OrderCondition is the time-in-force policy accepted by the exchange.
type OrderCondition string

const (
	ConditionGoodTillCancelled OrderCondition = "GOOD_TILL_CANCELLED"
	ConditionImmediateOrCancel OrderCondition = "IMMEDIATE_OR_CANCEL"
	ConditionFillOrKill        OrderCondition = "FILL_OR_KILL"
)

// OrderRequest describes one order to be signed and submitted. BaseCurrency
// and QuoteCurrency are the exchange's asset identifiers (UUIDs for LATOKEN),
// not tickers. Price == 0 means a market order; any positive price makes it a
// limit order. Timestamp is Unix milliseconds at signing time.
type OrderRequest struct {
	BaseCurrency  string
	QuoteCurrency string
	Side          OrderSide
	Condition     OrderCondition
	Quantity      float64
	Price         float64
	ClientOrderID string
	Timestamp     int64
}

// Type derives the order type from the request: LIMIT when a price is
// present, MARKET otherwise.
func (r OrderRequest) Type() OrderType {
	if r.Price > 0 {
		return OrderTypeLimit
	}
	return OrderTypeMarket
}

// OrderResult is the exchange's acknowledgement of a submitted order.
type OrderResult struct {
	OrderID string
	Status  string
	Message string
}

// CycleRecord is one persisted cycle row as read back for archival. Report
// holds the serialized CycleReport exactly as it was stored.
type CycleRecord struct {
	ID        int64
	Pair      string
	StartedAt time.Time
	Report    []byte
}

// CycleReport summarises one scheduler cycle for logging, auditing, and
// archival. SubmittedIDs is empty when submission was skipped (zero plan,
// dry run, or an upstream failure).
type CycleReport struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	Budget       float64
	BudgetOK     bool
	BookLevels   int
	Plan         PurchasePlan
	Submitted    bool
	SubmittedIDs []string
	Err          string
}
