package state

import (
	"sync"
	"testing"
	"time"
)

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	cache, err := NewCacheStore(CacheOptions{Capacity: 128, TTL: time.Hour})
	if err != nil {
		t.Fatalf("cache store: %v", err)
	}
	t.Cleanup(cache.Close)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"cache":  cache,
	}
}

func TestStoreGetMissingIsIdle(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		sess := store.Get(42)
		if sess.Current() != StateIdle || sess.Menu != nil || sess.Invoice != nil {
			t.Fatalf("%s: unexpected session %+v", name, sess)
		}
	}
}

func TestStoreUpsertCreatesAndReturnsCopy(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		got := store.Upsert(7, func(s *Session) {
			s.State = StateMenuShown
			s.Menu = &MessageRef{ChatID: 7, MessageID: 10}
		})
		if got.Menu == nil || got.Menu.MessageID != 10 {
			t.Fatalf("%s: upsert result %+v", name, got)
		}
		got.Menu.MessageID = 99
		if again := store.Get(7); again.Menu.MessageID != 10 {
			t.Fatalf("%s: stored ref mutated through copy: %+v", name, again.Menu)
		}
		if store.Len() != 1 {
			t.Fatalf("%s: len = %d", name, store.Len())
		}
	}
}

func TestSessionCurrentDerivesInvoiceIssued(t *testing.T) {
	sess := Session{State: StateMenuShown, Invoice: &MessageRef{ChatID: 1, MessageID: 2}}
	if sess.Current() != StateInvoiceIssued {
		t.Fatalf("current = %q", sess.Current())
	}
	sess.State = StateAwaitingCustomAmount
	if sess.Current() != StateAwaitingCustomAmount {
		t.Fatalf("awaiting with invoice = %q", sess.Current())
	}
	if (Session{}).Current() != StateIdle {
		t.Fatal("zero session must be idle")
	}
}

func TestStoreUpsertIsAtomic(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				store.Upsert(5, func(s *Session) {
					id := 0
					if s.Menu != nil {
						id = s.Menu.MessageID
					}
					s.Menu = &MessageRef{ChatID: 5, MessageID: id + 1}
				})
			}()
		}
		wg.Wait()
		if got := store.Get(5).Menu.MessageID; got != 50 {
			t.Fatalf("%s: counter = %d, want 50", name, got)
		}
	}
}

func TestNewCacheStoreRejectsBadOptions(t *testing.T) {
	if _, err := NewCacheStore(CacheOptions{Capacity: 0, TTL: time.Hour}); err == nil {
		t.Fatal("expected capacity error")
	}
	if _, err := NewCacheStore(CacheOptions{Capacity: 10}); err == nil {
		t.Fatal("expected ttl error")
	}
}

func TestMessageRefSig(t *testing.T) {
	id, chat := MessageRef{ChatID: -100, MessageID: 33}.MessageSig()
	if id != "33" || chat != -100 {
		t.Fatalf("sig = %q %d", id, chat)
	}
}
