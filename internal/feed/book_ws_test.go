package feed

import (
	"testing"
)

func TestDecodeBookMessage(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantOK   bool
		wantErr  bool
		wantAsks int
		wantBids int
	}{
		{
			name:     "book snapshot",
			payload:  `{"channel":"book","asks":[{"price":"0.0011","quantity":"500"}],"bids":[{"price":"0.0009","quantity":"250"},{"price":"0.0008","quantity":"100"}]}`,
			wantOK:   true,
			wantAsks: 1,
			wantBids: 2,
		},
		{
			name:    "other channel ignored",
			payload: `{"channel":"trade","asks":[],"bids":[]}`,
			wantOK:  false,
		},
		{
			name:    "empty snapshot ignored",
			payload: `{"channel":"book","asks":[],"bids":[]}`,
			wantOK:  false,
		},
		{
			name:    "ack frame ignored",
			payload: `{"type":"subscribed"}`,
			wantOK:  false,
		},
		{
			name:    "invalid json",
			payload: `{"channel":`,
			wantErr: true,
		},
		{
			name:    "bad price",
			payload: `{"channel":"book","asks":[{"price":"abc","quantity":"1"}]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book, ok, err := decodeBookMessage([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if len(book.Asks) != tt.wantAsks || len(book.Bids) != tt.wantBids {
				t.Errorf("levels = %d asks / %d bids, want %d / %d",
					len(book.Asks), len(book.Bids), tt.wantAsks, tt.wantBids)
			}
		})
	}
}

func TestDecodeBookMessage_Values(t *testing.T) {
	payload := `{"channel":"book","asks":[{"price":"0.0011","quantity":"500"}],"bids":[]}`
	book, ok, err := decodeBookMessage([]byte(payload))
	if err != nil || !ok {
		t.Fatalf("decode: ok=%v err=%v", ok, err)
	}
	if book.Asks[0].Price != 0.0011 || book.Asks[0].Quantity != 500 {
		t.Errorf("ask level = %+v", book.Asks[0])
	}
	if book.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}
