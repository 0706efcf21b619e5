package packets

import (
	"bytes"
	"fmt"
	"io"
)

// NewControlPacket allocates the zero-value struct for a packet type,
// setting its fixed-header type byte.
func NewControlPacket(packetType byte) (ControlPacket, error) {
	var cp ControlPacket
	switch packetType {
	case ConnectType:
		cp = &Connect{}
	case ConnAckType:
		cp = &ConnAck{}
	case PublishType:
		cp = &Publish{}
	case PubAckType:
		cp = &PubAck{}
	case PubRecType:
		cp = &PubRec{}
	case PubRelType:
		cp = &PubRel{}
	case PubCompType:
		cp = &PubComp{}
	case SubscribeType:
		cp = &Subscribe{}
	case SubAckType:
		cp = &SubAck{}
	case UnsubscribeType:
		cp = &Unsubscribe{}
	case UnsubAckType:
		cp = &UnsubAck{}
	case PingReqType:
		cp = &PingReq{}
	case PingRespType:
		cp = &PingResp{}
	case DisconnectType:
		cp = &Disconnect{}
	default:
		return nil, fmt.Errorf("packets: unknown packet type %d", packetType)
	}
	return cp, nil
}

// ReadPacket reads one complete MQTT control packet from r: the fixed
// header, then exactly RemainingLength bytes handed to the packet's Unpack.
func ReadPacket(r io.Reader) (ControlPacket, error) {
	first := make([]byte, 1)
	if _, err := io.ReadFull(r, first); err != nil {
		return nil, err
	}

	var fh FixedHeader
	if err := fh.Decode(first[0], r); err != nil {
		return nil, err
	}

	body := make([]byte, fh.RemainingLength)
	if fh.RemainingLength > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, err
		}
	}

	cp, err := NewControlPacket(fh.PacketType)
	if err != nil {
		return nil, err
	}
	setFixedHeader(cp, fh)

	if err := cp.Unpack(bytes.NewReader(body)); err != nil {
		return nil, fmt.Errorf("packets: unpack %s: %w", PacketNames[fh.PacketType], err)
	}
	return cp, nil
}

// setFixedHeader copies the decoded fixed header into the concrete packet
// so flag bits (Dup, QoS, Retain) survive past Decode into Unpack.
func setFixedHeader(cp ControlPacket, fh FixedHeader) {
	switch p := cp.(type) {
	case *Connect:
		p.FixedHeader = fh
	case *ConnAck:
		p.FixedHeader = fh
	case *Publish:
		p.FixedHeader = fh
	case *PubAck:
		p.FixedHeader = fh
	case *PubRec:
		p.FixedHeader = fh
	case *PubRel:
		p.FixedHeader = fh
	case *PubComp:
		p.FixedHeader = fh
	case *Subscribe:
		p.FixedHeader = fh
	case *SubAck:
		p.FixedHeader = fh
	case *Unsubscribe:
		p.FixedHeader = fh
	case *UnsubAck:
		p.FixedHeader = fh
	case *PingReq:
		p.FixedHeader = fh
	case *PingResp:
		p.FixedHeader = fh
	case *Disconnect:
		p.FixedHeader = fh
	}
}
