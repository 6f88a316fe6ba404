package realtime

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

type fakeChannel struct {
	mu       sync.Mutex
	payloads []interface{}
	fail     bool
}

func (f *fakeChannel) Send(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("channel closed")
	}
	f.payloads = append(f.payloads, v)
	return nil
}

func (f *fakeChannel) received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func TestRouteWithNoChannels(t *testing.T) {
	r := NewRegistry()

	if delivered := r.Route("user-1", "hello"); delivered {
		t.Fatal("expected delivered=false for user with no live channels")
	}
}

func TestRouteReachesAllDevices(t *testing.T) {
	r := NewRegistry()
	phone := &fakeChannel{}
	laptop := &fakeChannel{}

	r.Register("user-1", phone)
	r.Register("user-1", laptop)

	if delivered := r.Route("user-1", "hello"); !delivered {
		t.Fatal("expected delivered=true")
	}
	if phone.received() != 1 || laptop.received() != 1 {
		t.Fatalf("expected both devices to receive, got %d and %d", phone.received(), laptop.received())
	}
}

func TestRouteDoesNotCrossUsers(t *testing.T) {
	r := NewRegistry()
	mine := &fakeChannel{}
	theirs := &fakeChannel{}

	r.Register("user-1", mine)
	r.Register("user-2", theirs)

	r.Route("user-1", "hello")

	if theirs.received() != 0 {
		t.Fatalf("expected no cross-user delivery, got %d", theirs.received())
	}
}

func TestUnregisterRemovesChannel(t *testing.T) {
	r := NewRegistry()
	ch := &fakeChannel{}

	r.Register("user-1", ch)
	r.Unregister(ch)

	if r.Connected("user-1") {
		t.Fatal("expected user to be disconnected after unregister")
	}
	if delivered := r.Route("user-1", "hello"); delivered {
		t.Fatal("expected delivered=false after unregister")
	}
}

func TestRegisterMovesChannelToNewUser(t *testing.T) {
	r := NewRegistry()
	ch := &fakeChannel{}

	r.Register("user-1", ch)
	r.Register("user-2", ch)

	if r.Connected("user-1") {
		t.Fatal("expected old mapping to be removed on rebind")
	}
	if !r.Connected("user-2") {
		t.Fatal("expected channel to be live under the new user")
	}
	if delivered := r.Route("user-2", "hello"); !delivered {
		t.Fatal("expected delivery under the new user")
	}
}

func TestDeadChannelIsPruned(t *testing.T) {
	r := NewRegistry()
	dead := &fakeChannel{fail: true}
	live := &fakeChannel{}

	r.Register("user-1", dead)
	r.Register("user-1", live)

	if delivered := r.Route("user-1", "hello"); !delivered {
		t.Fatal("expected the live channel to still deliver")
	}

	// The failed channel must be gone; only the live one remains.
	r.Unregister(live)
	if r.Connected("user-1") {
		t.Fatal("expected dead channel to have been pruned on send failure")
	}
}

func TestRouteAllDeadReportsUndelivered(t *testing.T) {
	r := NewRegistry()
	dead := &fakeChannel{fail: true}

	r.Register("user-1", dead)

	if delivered := r.Route("user-1", "hello"); delivered {
		t.Fatal("expected delivered=false when every channel fails")
	}
	if r.Connected("user-1") {
		t.Fatal("expected user key removed once the last channel is pruned")
	}
}

func TestConcurrentRegisterRouteUnregister(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", i%8)
			ch := &fakeChannel{}
			r.Register(user, ch)
			r.Route(user, i)
			r.Unregister(ch)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		if r.Connected(fmt.Sprintf("user-%d", i)) {
			t.Fatalf("expected user-%d to have no channels left", i)
		}
	}
}
