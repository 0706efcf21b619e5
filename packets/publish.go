package packets

import (
	"fmt"
	"io"
)

// Publish represents the MQTT PUBLISH packet.
type Publish struct {
	FixedHeader
	TopicName string
	ID        uint16
	Payload   []byte
}

func (p *Publish) String() string {
	return fmt.Sprintf("%s topic=%q id=%d payloadLen=%d", p.FixedHeader, p.TopicName, p.ID, len(p.Payload))
}

func (p *Publish) Type() byte { return PublishType }

func (p *Publish) Details() Details {
	return Details{Type: PublishType, ID: p.ID, QoS: p.QoS}
}

func (p *Publish) Encode() []byte {
	var body []byte
	body = append(body, EncodeString(p.TopicName)...)
	if p.QoS > 0 {
		body = append(body, EncodeUint16(p.ID)...)
	}
	body = append(body, p.Payload...)

	p.RemainingLength = len(body)
	return append(p.FixedHeader.Encode(), body...)
}

func (p *Publish) Unpack(r io.Reader) error {
	var err error
	if p.TopicName, err = DecodeString(r); err != nil {
		return err
	}
	if p.QoS > 0 {
		if p.ID, err = DecodeUint16(r); err != nil {
			return err
		}
	}
	// Remaining length minus what was consumed above is the payload; callers
	// hand Unpack a reader already bounded to RemainingLength bytes, so we
	// read until EOF.
	payload, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	p.Payload = payload
	return nil
}

func (p *Publish) Pack(w io.Writer) error {
	_, err := w.Write(p.Encode())
	return err
}

// ackPacket is the shared shape of PUBACK, PUBREC, PUBREL and PUBCOMP: a
// fixed header plus a single packet identifier.
type ackPacket struct {
	FixedHeader
	ID uint16
}

func (a *ackPacket) Details() Details {
	return Details{Type: a.PacketType, ID: a.ID}
}

func (a *ackPacket) encode() []byte {
	a.RemainingLength = 2
	return append(a.FixedHeader.Encode(), EncodeUint16(a.ID)...)
}

func (a *ackPacket) unpack(r io.Reader) error {
	id, err := DecodeUint16(r)
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

// PubAck acknowledges a QoS 1 PUBLISH.
type PubAck struct{ ackPacket }

func (p *PubAck) String() string { return fmt.Sprintf("%s id=%d", p.FixedHeader, p.ID) }
func (p *PubAck) Type() byte     { return PubAckType }
func (p *PubAck) Encode() []byte { return p.encode() }
func (p *PubAck) Unpack(r io.Reader) error { return p.unpack(r) }
func (p *PubAck) Pack(w io.Writer) error {
	_, err := w.Write(p.Encode())
	return err
}

// PubRec is the first acknowledgement of a QoS 2 PUBLISH.
type PubRec struct{ ackPacket }

func (p *PubRec) String() string { return fmt.Sprintf("%s id=%d", p.FixedHeader, p.ID) }
func (p *PubRec) Type() byte     { return PubRecType }
func (p *PubRec) Encode() []byte { return p.encode() }
func (p *PubRec) Unpack(r io.Reader) error { return p.unpack(r) }
func (p *PubRec) Pack(w io.Writer) error {
	_, err := w.Write(p.Encode())
	return err
}

// PubRel continues the QoS 2 flow after PUBREC.
type PubRel struct{ ackPacket }

func (p *PubRel) String() string { return fmt.Sprintf("%s id=%d", p.FixedHeader, p.ID) }
func (p *PubRel) Type() byte      { return PubRelType }
func (p *PubRel) Encode() []byte {
	p.QoS = 1 // PUBREL's fixed header flags are always 0b0010
	return p.encode()
}
func (p *PubRel) Unpack(r io.Reader) error { return p.unpack(r) }
func (p *PubRel) Pack(w io.Writer) error {
	_, err := w.Write(p.Encode())
	return err
}

// PubComp completes the QoS 2 flow.
type PubComp struct{ ackPacket }

func (p *PubComp) String() string { return fmt.Sprintf("%s id=%d", p.FixedHeader, p.ID) }
func (p *PubComp) Type() byte     { return PubCompType }
func (p *PubComp) Encode() []byte { return p.encode() }
func (p *PubComp) Unpack(r io.Reader) error { return p.unpack(r) }
func (p *PubComp) Pack(w io.Writer) error {
	_, err := w.Write(p.Encode())
	return err
}
