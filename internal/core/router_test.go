package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quentinlc/lobbychat/internal/domain"
)

type fakeConn struct {
	received [][]byte
	fail     bool
}

func (f *fakeConn) TrySend(p []byte) error {
	if f.fail {
		return errors.New("dead session")
	}
	f.received = append(f.received, p)
	return nil
}

func (f *fakeConn) Close() {}

func TestPublishReachesOnlySubscribers(t *testing.T) {
	req := require.New(t)
	r := NewRouter()
	lobby := domain.LobbyID("l1")

	a, b, c := &fakeConn{}, &fakeConn{}, &fakeConn{}
	r.Attach("a", a)
	r.Attach("b", b)
	r.Attach("c", c)
	r.Subscribe("a", lobby)
	r.Subscribe("b", lobby)

	sent := r.Publish(lobby, []byte("hello"))
	req.Equal(2, sent)
	req.Len(a.received, 1)
	req.Len(b.received, 1)
	req.Empty(c.received)
}

func TestSubscribeIsIdempotent(t *testing.T) {
	req := require.New(t)
	r := NewRouter()
	lobby := domain.LobbyID("l1")

	a := &fakeConn{}
	r.Attach("a", a)
	r.Subscribe("a", lobby)
	r.Subscribe("a", lobby)

	req.Equal(1, r.Subscribers(lobby))
	req.Equal(1, r.Publish(lobby, []byte("once")))
	req.Len(a.received, 1)
}

func TestUnsubscribeUnknownPairIsNoop(t *testing.T) {
	req := require.New(t)
	r := NewRouter()
	lobby := domain.LobbyID("l1")

	a := &fakeConn{}
	r.Attach("a", a)
	r.Subscribe("a", lobby)

	r.Unsubscribe("ghost", lobby)
	r.Unsubscribe("a", domain.LobbyID("other"))

	req.Equal(1, r.Publish(lobby, []byte("still here")))
	req.Len(a.received, 1)
}

func TestDropSessionRemovesEveryTrace(t *testing.T) {
	req := require.New(t)
	r := NewRouter()
	l1, l2 := domain.LobbyID("l1"), domain.LobbyID("l2")

	a, b := &fakeConn{}, &fakeConn{}
	r.Attach("a", a)
	r.Attach("b", b)
	r.Subscribe("a", l1)
	r.Subscribe("a", l2)
	r.Subscribe("b", l1)

	r.DropSession("a")

	req.Equal(1, r.Publish(l1, []byte("x")))
	req.Equal(0, r.Publish(l2, []byte("y")))
	req.Empty(a.received)
	req.Len(b.received, 1)

	// dropping twice is harmless
	r.DropSession("a")
}

func TestDeadRecipientDoesNotAffectOthers(t *testing.T) {
	req := require.New(t)
	r := NewRouter()
	lobby := domain.LobbyID("l1")

	dead := &fakeConn{fail: true}
	live := &fakeConn{}
	r.Attach("dead", dead)
	r.Attach("live", live)
	r.Subscribe("dead", lobby)
	r.Subscribe("live", lobby)

	sent := r.Publish(lobby, []byte("hi"))
	req.Equal(1, sent)
	req.Len(live.received, 1)
}

func TestPerStreamOrderFollowsPublishOrder(t *testing.T) {
	req := require.New(t)
	r := NewRouter()
	lobby := domain.LobbyID("l1")

	a := &fakeConn{}
	r.Attach("a", a)
	r.Subscribe("a", lobby)

	r.Publish(lobby, []byte("m1"))
	r.Publish(lobby, []byte("m2"))

	req.Equal([][]byte{[]byte("m1"), []byte("m2")}, a.received)
}
