package latoken

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/agroverse/marketmaker/internal/domain"
)

// flexNumber decodes a JSON value that the exchange renders either as a bare
// number or as a quoted decimal string, depending on API version.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("numeric field %q: %w", s, err)
	}
	*n = flexNumber(v)
	return nil
}

// apiLevel is one price level as returned by the book endpoint.
type apiLevel struct {
	Price    flexNumber `json:"price"`
	Quantity flexNumber `json:"quantity"`
}

// apiBook is the raw book payload. Older API versions return the level lists
// under singular "ask"/"bid" keys; current ones use "asks"/"bids". Both are
// accepted here, at the fetch boundary, so everything downstream sees only
// the canonical shape. This is a compatibility shim for LATOKEN v2 and is
// deliberately not repeated deeper in the call chain.
type apiBook struct {
	Asks      []apiLevel `json:"asks"`
	Bids      []apiLevel `json:"bids"`
	LegacyAsk []apiLevel `json:"ask"`
	LegacyBid []apiLevel `json:"bid"`
}

// toDomain normalizes the payload into a domain.OrderBook, preferring the
// canonical keys when both spellings are present.
func (b apiBook) toDomain(now time.Time) domain.OrderBook {
	asks := b.Asks
	if asks == nil {
		asks = b.LegacyAsk
	}
	bids := b.Bids
	if bids == nil {
		bids = b.LegacyBid
	}

	book := domain.OrderBook{
		Asks:      make([]domain.PriceLevel, 0, len(asks)),
		Bids:      make([]domain.PriceLevel, 0, len(bids)),
		Timestamp: now,
	}
	for _, l := range asks {
		book.Asks = append(book.Asks, domain.PriceLevel{Price: float64(l.Price), Quantity: float64(l.Quantity)})
	}
	for _, l := range bids {
		book.Bids = append(book.Bids, domain.PriceLevel{Price: float64(l.Price), Quantity: float64(l.Quantity)})
	}
	return book
}

// apiOrderResult is the acknowledgement payload from the order placement
// endpoint.
type apiOrderResult struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (r apiOrderResult) toDomain() domain.OrderResult {
	msg := r.Message
	if msg == "" {
		msg = r.Error
	}
	return domain.OrderResult{
		OrderID: r.ID,
		Status:  r.Status,
		Message: msg,
	}
}
