// Package feed streams live order book snapshots over websocket for monitor
// mode.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agroverse/marketmaker/internal/domain"
)

// BookHandler is invoked for every decoded book snapshot.
type BookHandler func(ctx context.Context, book domain.OrderBook)

const (
	dialTimeout      = 15 * time.Second
	readLimit        = 1 << 20 // 1 MiB per frame is plenty for a book snapshot
	reconnectBackoff = 2 * time.Second
)

// BookFeed subscribes to the book channel for one pair and invokes the
// handler on each snapshot. It reconnects with backoff until its context is
// cancelled.
type BookFeed struct {
	wsURL     string
	pair      string
	onBook    BookHandler
	logger    *slog.Logger
	closeOnce sync.Once
	done      chan struct{}
}

// NewBookFeed creates a feed for the given websocket URL and pair.
func NewBookFeed(wsURL, pair string, onBook BookHandler, logger *slog.Logger) *BookFeed {
	return &BookFeed{
		wsURL:  wsURL,
		pair:   pair,
		onBook: onBook,
		logger: logger.With(slog.String("component", "book_feed")),
		done:   make(chan struct{}),
	}
}

// Run connects and streams until ctx is cancelled or Close is called.
func (f *BookFeed) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("book feed disconnected, reconnecting",
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(reconnectBackoff):
		}
	}
}

// Close stops the feed.
func (f *BookFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}

func (f *BookFeed) runConnection(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, f.wsURL, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w", f.wsURL, err)
	}
	defer conn.Close()
	conn.SetReadLimit(readLimit)

	sub := subscribeMessage{Type: "subscribe", Channel: "book", Pair: f.pair}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("feed: subscribe %s: %w", f.pair, err)
	}
	f.logger.Info("book feed subscribed", slog.String("pair", f.pair))

	// Unblock ReadMessage when the context is cancelled.
	go func() {
		select {
		case <-ctx.Done():
		case <-f.done:
		}
		_ = conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			select {
			case <-f.done:
				return nil
			default:
			}
			return fmt.Errorf("feed: read: %w", err)
		}

		book, ok, err := decodeBookMessage(payload)
		if err != nil {
			f.logger.Warn("book feed message skipped",
				slog.String("error", err.Error()),
			)
			continue
		}
		if !ok {
			continue
		}
		if f.onBook != nil {
			f.onBook(ctx, book)
		}
	}
}

type subscribeMessage struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	Pair    string `json:"pair"`
}

type wsLevel struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

type wsBookMessage struct {
	Channel string    `json:"channel"`
	Asks    []wsLevel `json:"asks"`
	Bids    []wsLevel `json:"bids"`
}

// decodeBookMessage parses a frame and reports whether it carried a book
// snapshot. Frames on other channels (pings, acks) return ok=false.
func decodeBookMessage(payload []byte) (domain.OrderBook, bool, error) {
	var msg wsBookMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return domain.OrderBook{}, false, fmt.Errorf("decode frame: %w", err)
	}
	if msg.Channel != "" && msg.Channel != "book" {
		return domain.OrderBook{}, false, nil
	}
	if len(msg.Asks) == 0 && len(msg.Bids) == 0 {
		return domain.OrderBook{}, false, nil
	}

	book := domain.OrderBook{Timestamp: time.Now()}
	var err error
	if book.Asks, err = toLevels(msg.Asks); err != nil {
		return domain.OrderBook{}, false, fmt.Errorf("asks: %w", err)
	}
	if book.Bids, err = toLevels(msg.Bids); err != nil {
		return domain.OrderBook{}, false, fmt.Errorf("bids: %w", err)
	}
	return book, true, nil
}

func toLevels(in []wsLevel) ([]domain.PriceLevel, error) {
	out := make([]domain.PriceLevel, 0, len(in))
	for _, lv := range in {
		price, err := strconv.ParseFloat(lv.Price, 64)
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", lv.Price, err)
		}
		qty, err := strconv.ParseFloat(lv.Quantity, 64)
		if err != nil {
			return nil, fmt.Errorf("parse quantity %q: %w", lv.Quantity, err)
		}
		out = append(out, domain.PriceLevel{Price: price, Quantity: qty})
	}
	return out, nil
}
