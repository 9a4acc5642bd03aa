package redis

import (
	"errors"
	"strings"
	"testing"

	"github.com/agroverse/marketmaker/internal/domain"
)

func TestRefreshOutcome(t *testing.T) {
	if err := refreshOutcome(1, "TDG/USDT"); err != nil {
		t.Errorf("matching token should refresh cleanly: %v", err)
	}

	// Token mismatch: the lock expired and may belong to a rival now.
	err := refreshOutcome(0, "TDG/USDT")
	if !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("token mismatch must surface ErrLockHeld, got %v", err)
	}
	if !strings.Contains(err.Error(), "TDG/USDT") {
		t.Errorf("error does not name the pair: %v", err)
	}
}

func TestLockScripts_CheckTokenBeforeActing(t *testing.T) {
	// Both mutations are guarded by a GET-compare on the holder's token so
	// an expired holder can never touch a rival's lock.
	for name, script := range map[string]string{
		"unlock":  unlockLua,
		"refresh": refreshLua,
	} {
		if !strings.Contains(script, "redis.call('GET', KEYS[1]) == ARGV[1]") {
			t.Errorf("%s script does not compare the holder token", name)
		}
	}
	if !strings.Contains(refreshLua, "PEXPIRE") {
		t.Error("refresh script does not extend the TTL")
	}
	if !strings.Contains(unlockLua, "DEL") {
		t.Error("unlock script does not delete the key")
	}
}

func TestLockKey(t *testing.T) {
	if got := lockKey("TDG/USDT"); got != "marketmaker:lock:TDG/USDT" {
		t.Errorf("lockKey = %q", got)
	}
}
