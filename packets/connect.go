package packets

import (
	"fmt"
	"io"
)

// Connect represents the MQTT v3.1/v3.1.1 CONNECT packet.
type Connect struct {
	FixedHeader
	ProtocolName    string
	ProtocolVersion byte

	UsernameFlag bool
	PasswordFlag bool
	WillRetain   bool
	WillQoS      byte
	WillFlag     bool
	CleanSession bool
	KeepAlive    uint16

	ClientID    string
	WillTopic   string
	WillMessage []byte
	Username    string
	Password    []byte
}

func (c *Connect) String() string {
	return fmt.Sprintf("%s clientID=%q clean=%t keepAlive=%d", c.FixedHeader, c.ClientID, c.CleanSession, c.KeepAlive)
}

func (c *Connect) Type() byte { return ConnectType }

func (c *Connect) Encode() []byte {
	var body []byte
	body = append(body, EncodeString(c.ProtocolName)...)
	body = append(body, c.ProtocolVersion)

	var flags byte
	if c.UsernameFlag {
		flags |= 1 << 7
	}
	if c.PasswordFlag {
		flags |= 1 << 6
	}
	if c.WillRetain {
		flags |= 1 << 5
	}
	flags |= (c.WillQoS & 0x03) << 3
	if c.WillFlag {
		flags |= 1 << 2
	}
	if c.CleanSession {
		flags |= 1 << 1
	}
	body = append(body, flags)
	body = append(body, EncodeUint16(c.KeepAlive)...)

	body = append(body, EncodeString(c.ClientID)...)
	if c.WillFlag {
		body = append(body, EncodeString(c.WillTopic)...)
		body = append(body, EncodeBytes(c.WillMessage)...)
	}
	if c.UsernameFlag {
		body = append(body, EncodeString(c.Username)...)
	}
	if c.PasswordFlag {
		body = append(body, EncodeBytes(c.Password)...)
	}

	c.RemainingLength = len(body)
	return append(c.FixedHeader.Encode(), body...)
}

func (c *Connect) Unpack(r io.Reader) error {
	var err error
	if c.ProtocolName, err = DecodeString(r); err != nil {
		return err
	}
	if c.ProtocolVersion, err = DecodeByte(r); err != nil {
		return err
	}

	flags, err := DecodeByte(r)
	if err != nil {
		return err
	}
	c.UsernameFlag = flags&(1<<7) > 0
	c.PasswordFlag = flags&(1<<6) > 0
	c.WillRetain = flags&(1<<5) > 0
	c.WillQoS = (flags >> 3) & 0x03
	c.WillFlag = flags&(1<<2) > 0
	c.CleanSession = flags&(1<<1) > 0

	if c.KeepAlive, err = DecodeUint16(r); err != nil {
		return err
	}
	if c.ClientID, err = DecodeString(r); err != nil {
		return err
	}
	if c.WillFlag {
		if c.WillTopic, err = DecodeString(r); err != nil {
			return err
		}
		if c.WillMessage, err = DecodeBytes(r); err != nil {
			return err
		}
	}
	if c.UsernameFlag {
		if c.Username, err = DecodeString(r); err != nil {
			return err
		}
	}
	if c.PasswordFlag {
		if c.Password, err = DecodeBytes(r); err != nil {
			return err
		}
	}
	return nil
}

func (c *Connect) Pack(w io.Writer) error {
	_, err := w.Write(c.Encode())
	return err
}

// ConnAck represents the MQTT CONNACK packet.
type ConnAck struct {
	FixedHeader
	SessionPresent bool
	ReturnCode     byte
}

func (c *ConnAck) String() string {
	return fmt.Sprintf("%s sessionPresent=%t rc=%d", c.FixedHeader, c.SessionPresent, c.ReturnCode)
}

func (c *ConnAck) Type() byte { return ConnAckType }

func (c *ConnAck) Encode() []byte {
	var flags byte
	if c.SessionPresent {
		flags = 0x01
	}
	body := []byte{flags, c.ReturnCode}
	c.RemainingLength = len(body)
	return append(c.FixedHeader.Encode(), body...)
}

func (c *ConnAck) Unpack(r io.Reader) error {
	flags, err := DecodeByte(r)
	if err != nil {
		return err
	}
	c.SessionPresent = flags&0x01 > 0
	c.ReturnCode, err = DecodeByte(r)
	return err
}

func (c *ConnAck) Pack(w io.Writer) error {
	_, err := w.Write(c.Encode())
	return err
}
