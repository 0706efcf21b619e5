package packets

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectRoundTrip(t *testing.T) {
	c := &Connect{
		FixedHeader:     FixedHeader{PacketType: ConnectType},
		ProtocolName:    "MQTT",
		ProtocolVersion: V311,
		CleanSession:    true,
		KeepAlive:       60,
		ClientID:        "client-1",
		UsernameFlag:    true,
		Username:        "alice",
		PasswordFlag:    true,
		Password:        []byte("secret"),
	}

	cp, err := ReadPacket(bytes.NewReader(c.Encode()))
	require.NoError(t, err)

	got, ok := cp.(*Connect)
	require.True(t, ok)
	require.Equal(t, c.ProtocolName, got.ProtocolName)
	require.Equal(t, c.ClientID, got.ClientID)
	require.Equal(t, c.Username, got.Username)
	require.Equal(t, c.Password, got.Password)
	require.True(t, got.CleanSession)
}

func TestPublishRoundTripQoS1(t *testing.T) {
	p := &Publish{
		FixedHeader: FixedHeader{PacketType: PublishType, QoS: 1},
		TopicName:   "sensors/temp",
		ID:          42,
		Payload:     []byte("21.5"),
	}

	cp, err := ReadPacket(bytes.NewReader(p.Encode()))
	require.NoError(t, err)

	got, ok := cp.(*Publish)
	require.True(t, ok)
	require.Equal(t, p.TopicName, got.TopicName)
	require.Equal(t, p.ID, got.ID)
	require.Equal(t, p.Payload, got.Payload)
	require.Equal(t, byte(1), got.QoS)
}

func TestPublishRoundTripQoS0NoID(t *testing.T) {
	p := &Publish{
		FixedHeader: FixedHeader{PacketType: PublishType, QoS: 0},
		TopicName:   "a/b",
		Payload:     []byte("x"),
	}

	cp, err := ReadPacket(bytes.NewReader(p.Encode()))
	require.NoError(t, err)

	got := cp.(*Publish)
	require.Equal(t, uint16(0), got.ID)
	require.Equal(t, []byte("x"), got.Payload)
}

func TestSubscribeRoundTrip(t *testing.T) {
	s := &Subscribe{
		FixedHeader: FixedHeader{PacketType: SubscribeType, QoS: 1},
		ID:          7,
		Topics: []Topic{
			{Name: "a/+/c", QoS: 0},
			{Name: "a/#", QoS: 1},
		},
	}

	cp, err := ReadPacket(bytes.NewReader(s.Encode()))
	require.NoError(t, err)

	got := cp.(*Subscribe)
	require.Equal(t, s.ID, got.ID)
	require.Len(t, got.Topics, 2)
	require.Equal(t, s.Topics, got.Topics)
}

func TestVBIRoundTrip(t *testing.T) {
	for _, n := range []int{0, 127, 128, 16383, 16384, 2097151, 268435455} {
		buf := EncodeVBI(n)
		got, err := DecodeVBI(bytes.NewReader(buf))
		require.NoError(t, err)
		require.Equal(t, n, got)
	}
}

func TestPubAckRoundTrip(t *testing.T) {
	a := &PubAck{ackPacket{FixedHeader: FixedHeader{PacketType: PubAckType}, ID: 99}}
	cp, err := ReadPacket(bytes.NewReader(a.Encode()))
	require.NoError(t, err)
	got := cp.(*PubAck)
	require.Equal(t, uint16(99), got.ID)
}
