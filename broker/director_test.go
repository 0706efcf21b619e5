package broker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ripplemq/ripplemq/auth"
	"github.com/ripplemq/ripplemq/packets"
	"github.com/ripplemq/ripplemq/store"
	memstore "github.com/ripplemq/ripplemq/store/memory"
	"github.com/ripplemq/ripplemq/topicmatcher"
)

// fakeChannel is an in-memory Channel used by tests to capture what the
// director writes back, without any real network I/O.
type fakeChannel struct {
	mu       sync.Mutex
	written  []packets.ControlPacket
	writable bool
	closed   bool
}

func newFakeChannel() *fakeChannel { return &fakeChannel{writable: true} }

func (c *fakeChannel) WritePacket(pkt packets.ControlPacket) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, pkt)
	return nil
}

func (c *fakeChannel) Writable() bool { c.mu.Lock(); defer c.mu.Unlock(); return c.writable && !c.closed }
func (c *fakeChannel) Flush() error   { return nil }
func (c *fakeChannel) Close() error   { c.mu.Lock(); defer c.mu.Unlock(); c.closed = true; return nil }
func (c *fakeChannel) RemoteAddr() string { return "fake" }

func (c *fakeChannel) packets() []packets.ControlPacket {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]packets.ControlPacket, len(c.written))
	copy(out, c.written)
	return out
}

func newTestDirector(t *testing.T) *Director {
	t.Helper()
	return NewDirector(Config{
		Matcher:               topicmatcher.New(),
		Messages:              memstore.New(),
		Wills:                 memstore.NewWillStore(),
		Authenticator:         nil,
		Authorizer:            auth.AllowAll{},
		AllowAnonymous:        true,
		AllowZeroByteClientID: true,
	})
}

func connectClient(t *testing.T, d *Director, clientID string, clean bool) (*ConnectionDescriptor, *fakeChannel) {
	t.Helper()
	ch := newFakeChannel()
	res, err := d.HandleConnect(ch, &packets.Connect{
		ProtocolVersion: packets.V311,
		ClientID:        clientID,
		CleanSession:    clean,
	})
	require.NoError(t, err)
	require.Equal(t, packets.ConnAccepted, res.ReturnCode)
	return res.Descriptor, ch
}

func TestHandleConnectAssignsGeneratedClientID(t *testing.T) {
	d := newTestDirector(t)
	ch := newFakeChannel()
	res, err := d.HandleConnect(ch, &packets.Connect{
		ProtocolVersion: packets.V311,
		ClientID:        "",
		CleanSession:    true,
	})
	require.NoError(t, err)
	require.Equal(t, packets.ConnAccepted, res.ReturnCode)
	require.NotEmpty(t, res.Descriptor.ClientID)
}

func TestHandleConnectRejectsZeroByteClientIDWithoutCleanSession(t *testing.T) {
	d := newTestDirector(t)
	ch := newFakeChannel()
	_, err := d.HandleConnect(ch, &packets.Connect{
		ProtocolVersion: packets.V311,
		ClientID:        "",
		CleanSession:    false,
	})
	require.ErrorIs(t, err, ErrProtocolViolation)
}

func TestPublishQoS0FansOutToSubscriber(t *testing.T) {
	d := newTestDirector(t)
	pubDesc, _ := connectClient(t, d, "pub", true)
	_, subCh := connectClient(t, d, "sub", true)

	require.NoError(t, d.handleSubscribe(subCtx(d, "sub"), &packets.Subscribe{
		ID:     1,
		Topics: []packets.Topic{{Name: "a/b", QoS: 0}},
	}))

	pub := &packets.Publish{TopicName: "a/b", Payload: []byte("hi")}
	pub.QoS = 0
	require.NoError(t, d.handlePublish(pubDesc, pub))

	var found bool
	for _, pkt := range subCh.packets() {
		if p, ok := pkt.(*packets.Publish); ok && p.TopicName == "a/b" {
			found = true
			require.Equal(t, []byte("hi"), p.Payload)
		}
	}
	require.True(t, found, "expected subscriber to receive the published message")
}

func TestPublishQoS1SendsPubAck(t *testing.T) {
	d := newTestDirector(t)
	pubDesc, pubCh := connectClient(t, d, "pub", true)

	pub := &packets.Publish{TopicName: "a/b", Payload: []byte("hi"), ID: 7}
	pub.QoS = 1
	require.NoError(t, d.handlePublish(pubDesc, pub))

	acked := false
	for _, pkt := range pubCh.packets() {
		if a, ok := pkt.(*packets.PubAck); ok && a.ID == 7 {
			acked = true
		}
	}
	require.True(t, acked)
}

func TestPublishQoS2CompletesOnPubRel(t *testing.T) {
	d := newTestDirector(t)
	pubDesc, pubCh := connectClient(t, d, "pub", true)
	_, subCh := connectClient(t, d, "sub", true)
	require.NoError(t, d.handleSubscribe(subCtx(d, "sub"), &packets.Subscribe{
		ID:     1,
		Topics: []packets.Topic{{Name: "x", QoS: 2}},
	}))

	pub := &packets.Publish{TopicName: "x", Payload: []byte("v"), ID: 9}
	pub.QoS = 2
	require.NoError(t, d.handlePublish(pubDesc, pub))

	recd := false
	for _, pkt := range pubCh.packets() {
		if r, ok := pkt.(*packets.PubRec); ok && r.ID == 9 {
			recd = true
		}
	}
	require.True(t, recd, "expected PUBREC after QoS2 PUBLISH")

	rel := &packets.PubRel{}
	rel.ID = 9
	require.NoError(t, d.handlePubRel(pubDesc, rel))

	comp := false
	for _, pkt := range pubCh.packets() {
		if c, ok := pkt.(*packets.PubComp); ok && c.ID == 9 {
			comp = true
		}
	}
	require.True(t, comp, "expected PUBCOMP after PUBREL")

	delivered := false
	for _, pkt := range subCh.packets() {
		if p, ok := pkt.(*packets.Publish); ok && p.TopicName == "x" {
			delivered = true
		}
	}
	require.True(t, delivered, "expected fan-out after PUBREL")
}

func TestPubRelRetransmitResendsPubCompInsteadOfClosing(t *testing.T) {
	d := newTestDirector(t)
	pubDesc, pubCh := connectClient(t, d, "pub", true)

	pub := &packets.Publish{TopicName: "x", Payload: []byte("v"), ID: 9}
	pub.QoS = 2
	require.NoError(t, d.handlePublish(pubDesc, pub))

	rel := &packets.PubRel{}
	rel.ID = 9
	require.NoError(t, d.handlePubRel(pubDesc, rel))

	// A lost PUBCOMP makes the client retransmit PUBREL; the receiving
	// entry for packet 9 is already gone at this point.
	require.NoError(t, d.handlePubRel(pubDesc, rel))

	comps := 0
	for _, pkt := range pubCh.packets() {
		if c, ok := pkt.(*packets.PubComp); ok && c.ID == 9 {
			comps++
		}
	}
	require.Equal(t, 2, comps, "expected PUBCOMP to be re-sent on PUBREL retransmit")
}

func TestSubscribeReplaysRetained(t *testing.T) {
	d := newTestDirector(t)
	pubDesc, _ := connectClient(t, d, "pub", true)

	pub := &packets.Publish{TopicName: "r/1", Payload: []byte("keep")}
	pub.QoS = 0
	pub.Retain = true
	require.NoError(t, d.handlePublish(pubDesc, pub))

	_, subCh := connectClient(t, d, "sub", true)
	require.NoError(t, d.handleSubscribe(subCtx(d, "sub"), &packets.Subscribe{
		ID:     2,
		Topics: []packets.Topic{{Name: "r/1", QoS: 0}},
	}))

	found := false
	for _, pkt := range subCh.packets() {
		if p, ok := pkt.(*packets.Publish); ok && p.TopicName == "r/1" {
			found = true
			require.Equal(t, []byte("keep"), p.Payload)
		}
	}
	require.True(t, found, "expected retained message replay on SUBSCRIBE")
}

func TestUnsubscribeInvalidFilterIsProtocolViolation(t *testing.T) {
	d := newTestDirector(t)
	desc, _ := connectClient(t, d, "c", true)
	err := d.handleUnsubscribe(desc, &packets.Unsubscribe{ID: 1, Topics: []string{"a/#/b"}})
	require.ErrorIs(t, err, ErrProtocolViolation)
}

func TestHandleDisconnectWipesCleanSession(t *testing.T) {
	d := newTestDirector(t)
	desc, ch := connectClient(t, d, "c", true)
	require.NoError(t, d.handleSubscribe(desc, &packets.Subscribe{
		ID:     1,
		Topics: []packets.Topic{{Name: "a", QoS: 0}},
	}))

	require.NoError(t, d.HandleDisconnect(desc))
	require.True(t, ch.closed)

	_, ok := d.Sessions.SessionForClient("c")
	require.False(t, ok, "clean session should be removed on disconnect")

	_, stillRegistered := d.Registry.Get("c")
	require.False(t, stillRegistered)
}

func TestConnectionLostPublishesWill(t *testing.T) {
	d := newTestDirector(t)
	desc, _ := connectClient(t, d, "willer", true)
	d.Wills.Put("willer", mustWill())

	_, subCh := connectClient(t, d, "watcher", true)
	require.NoError(t, d.handleSubscribe(subCtx(d, "watcher"), &packets.Subscribe{
		ID:     1,
		Topics: []packets.Topic{{Name: "last/gasp", QoS: 0}},
	}))

	require.NoError(t, d.HandleConnectionLost(desc))

	found := false
	for _, pkt := range subCh.packets() {
		if p, ok := pkt.(*packets.Publish); ok && p.TopicName == "last/gasp" {
			found = true
		}
	}
	require.True(t, found, "expected will to be published on connection loss")

	_, stillHasWill := d.Wills.Get("willer")
	require.False(t, stillHasWill)
}

func TestDrainSessionFlushesQueuedMessagesOnceWritable(t *testing.T) {
	d := newTestDirector(t)
	pubDesc, _ := connectClient(t, d, "pub", true)
	subDesc, subCh := connectClient(t, d, "sub", true)
	require.NoError(t, d.handleSubscribe(subCtx(d, "sub"), &packets.Subscribe{
		ID:     1,
		Topics: []packets.Topic{{Name: "q", QoS: 1}},
	}))

	subCh.mu.Lock()
	subCh.writable = false
	subCh.mu.Unlock()

	pub := &packets.Publish{TopicName: "q", Payload: []byte("queued"), ID: 3}
	pub.QoS = 1
	require.NoError(t, d.handlePublish(pubDesc, pub))

	for _, pkt := range subCh.packets() {
		_, isPublish := pkt.(*packets.Publish)
		require.False(t, isPublish, "message must not be delivered while the channel is unwritable")
	}

	subCh.mu.Lock()
	subCh.writable = true
	subCh.mu.Unlock()
	d.DrainSession(subDesc)

	delivered := false
	for _, pkt := range subCh.packets() {
		if p, ok := pkt.(*packets.Publish); ok && p.TopicName == "q" {
			delivered = true
			require.Equal(t, []byte("queued"), p.Payload)
		}
	}
	require.True(t, delivered, "expected DrainSession to flush the queued message once writable")
}

func TestHandleConnectDisplacesExistingAbandonsNewOne(t *testing.T) {
	d := newTestDirector(t)
	desc1, ch1 := connectClient(t, d, "dup", true)

	ch2 := newFakeChannel()
	res, err := d.HandleConnect(ch2, &packets.Connect{
		ProtocolVersion: packets.V311,
		ClientID:        "dup",
		CleanSession:    true,
	})
	require.ErrorIs(t, err, ErrConnectionDisplaced)
	require.Nil(t, res.Descriptor)

	require.True(t, ch1.closed, "the displaced descriptor's channel must be aborted")

	current, ok := d.Registry.Get("dup")
	require.True(t, ok)
	require.Same(t, desc1, current, "the original descriptor stays registered; the abandoned CONNECT is never seated")
}

func TestConnectionLostSkipsWillWhenReconnecting(t *testing.T) {
	d := newTestDirector(t)
	desc, _ := connectClient(t, d, "flaky", true)
	d.Wills.Put("flaky", mustWill())

	// A second CONNECT for the same clientID displaces the first: it is
	// abandoned, but Admit still marks the clientID as reconnecting before
	// returning.
	ch2 := newFakeChannel()
	_, err := d.HandleConnect(ch2, &packets.Connect{
		ProtocolVersion: packets.V311,
		ClientID:        "flaky",
		CleanSession:    true,
	})
	require.ErrorIs(t, err, ErrConnectionDisplaced)

	require.NoError(t, d.HandleConnectionLost(desc))
	_, hasWill := d.Wills.Get("flaky")
	require.True(t, hasWill, "will must survive a reconnect-triggered loss")
}

func subCtx(d *Director, clientID string) *ConnectionDescriptor {
	desc, _ := d.Registry.Get(clientID)
	return desc
}

func mustWill() store.WillMessage {
	return store.WillMessage{Topic: "last/gasp", Payload: []byte("bye")}
}
