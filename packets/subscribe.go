package packets

import (
	"fmt"
	"io"
)

// Topic is a single SUBSCRIBE filter/QoS pair.
type Topic struct {
	Name string
	QoS  byte
}

// Subscribe represents the MQTT SUBSCRIBE packet.
type Subscribe struct {
	FixedHeader
	ID     uint16
	Topics []Topic
}

func (s *Subscribe) String() string {
	return fmt.Sprintf("%s id=%d topics=%d", s.FixedHeader, s.ID, len(s.Topics))
}

func (s *Subscribe) Type() byte { return SubscribeType }

func (s *Subscribe) Details() Details {
	return Details{Type: SubscribeType, ID: s.ID}
}

func (s *Subscribe) Encode() []byte {
	var body []byte
	body = append(body, EncodeUint16(s.ID)...)
	for _, t := range s.Topics {
		body = append(body, EncodeString(t.Name)...)
		body = append(body, t.QoS)
	}
	s.RemainingLength = len(body)
	return append(s.FixedHeader.Encode(), body...)
}

func (s *Subscribe) Unpack(r io.Reader) error {
	var err error
	if s.ID, err = DecodeUint16(r); err != nil {
		return err
	}
	for {
		name, err := DecodeString(r)
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		qos, err := DecodeByte(r)
		if err != nil {
			return err
		}
		s.Topics = append(s.Topics, Topic{Name: name, QoS: qos})
	}
	return nil
}

func (s *Subscribe) Pack(w io.Writer) error {
	_, err := w.Write(s.Encode())
	return err
}

// SubAck acknowledges a SUBSCRIBE, one return code per requested topic.
type SubAck struct {
	FixedHeader
	ID          uint16
	ReturnCodes []byte
}

func (s *SubAck) String() string {
	return fmt.Sprintf("%s id=%d codes=%v", s.FixedHeader, s.ID, s.ReturnCodes)
}

func (s *SubAck) Type() byte { return SubAckType }

func (s *SubAck) Details() Details {
	return Details{Type: SubAckType, ID: s.ID}
}

func (s *SubAck) Encode() []byte {
	body := EncodeUint16(s.ID)
	body = append(body, s.ReturnCodes...)
	s.RemainingLength = len(body)
	return append(s.FixedHeader.Encode(), body...)
}

func (s *SubAck) Unpack(r io.Reader) error {
	var err error
	if s.ID, err = DecodeUint16(r); err != nil {
		return err
	}
	codes, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.ReturnCodes = codes
	return nil
}

func (s *SubAck) Pack(w io.Writer) error {
	_, err := w.Write(s.Encode())
	return err
}

// Unsubscribe represents the MQTT UNSUBSCRIBE packet.
type Unsubscribe struct {
	FixedHeader
	ID     uint16
	Topics []string
}

func (u *Unsubscribe) String() string {
	return fmt.Sprintf("%s id=%d topics=%d", u.FixedHeader, u.ID, len(u.Topics))
}

func (u *Unsubscribe) Type() byte { return UnsubscribeType }

func (u *Unsubscribe) Details() Details {
	return Details{Type: UnsubscribeType, ID: u.ID}
}

func (u *Unsubscribe) Encode() []byte {
	var body []byte
	body = append(body, EncodeUint16(u.ID)...)
	for _, t := range u.Topics {
		body = append(body, EncodeString(t)...)
	}
	u.RemainingLength = len(body)
	return append(u.FixedHeader.Encode(), body...)
}

func (u *Unsubscribe) Unpack(r io.Reader) error {
	var err error
	if u.ID, err = DecodeUint16(r); err != nil {
		return err
	}
	for {
		name, err := DecodeString(r)
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		u.Topics = append(u.Topics, name)
	}
	return nil
}

func (u *Unsubscribe) Pack(w io.Writer) error {
	_, err := w.Write(u.Encode())
	return err
}

// UnsubAck acknowledges an UNSUBSCRIBE.
type UnsubAck struct {
	FixedHeader
	ID uint16
}

func (u *UnsubAck) String() string { return fmt.Sprintf("%s id=%d", u.FixedHeader, u.ID) }
func (u *UnsubAck) Type() byte     { return UnsubAckType }

func (u *UnsubAck) Details() Details {
	return Details{Type: UnsubAckType, ID: u.ID}
}

func (u *UnsubAck) Encode() []byte {
	u.RemainingLength = 2
	return append(u.FixedHeader.Encode(), EncodeUint16(u.ID)...)
}

func (u *UnsubAck) Unpack(r io.Reader) error {
	id, err := DecodeUint16(r)
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func (u *UnsubAck) Pack(w io.Writer) error {
	_, err := w.Write(u.Encode())
	return err
}
