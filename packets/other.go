package packets

import "io"

// PingReq carries no variable header or payload.
type PingReq struct{ FixedHeader }

func (p *PingReq) String() string       { return p.FixedHeader.String() }
func (p *PingReq) Type() byte           { return PingReqType }
func (p *PingReq) Encode() []byte       { p.RemainingLength = 0; return p.FixedHeader.Encode() }
func (p *PingReq) Unpack(r io.Reader) error { return nil }
func (p *PingReq) Pack(w io.Writer) error {
	_, err := w.Write(p.Encode())
	return err
}

// PingResp carries no variable header or payload.
type PingResp struct{ FixedHeader }

func (p *PingResp) String() string       { return p.FixedHeader.String() }
func (p *PingResp) Type() byte           { return PingRespType }
func (p *PingResp) Encode() []byte       { p.RemainingLength = 0; return p.FixedHeader.Encode() }
func (p *PingResp) Unpack(r io.Reader) error { return nil }
func (p *PingResp) Pack(w io.Writer) error {
	_, err := w.Write(p.Encode())
	return err
}

// Disconnect carries no variable header or payload.
type Disconnect struct{ FixedHeader }

func (d *Disconnect) String() string       { return d.FixedHeader.String() }
func (d *Disconnect) Type() byte           { return DisconnectType }
func (d *Disconnect) Encode() []byte       { d.RemainingLength = 0; return d.FixedHeader.Encode() }
func (d *Disconnect) Unpack(r io.Reader) error { return nil }
func (d *Disconnect) Pack(w io.Writer) error {
	_, err := w.Write(d.Encode())
	return err
}
