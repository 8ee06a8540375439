// File: internal/h2/hpack.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Header compression is delegated entirely to golang.org/x/net/http2/hpack;
// this file only adapts its Encoder/Decoder to the {name, value} pairs the
// session and stream types pass around.

package h2

import (
	"bytes"

	"golang.org/x/net/http2/hpack"
)

// Header is one decoded or to-be-encoded HTTP/2 header field.
type Header struct {
	Name      string
	Value     string
	Sensitive bool
}

// headerCodec bundles one HPACK encoder and one HPACK decoder for a
// session, since HTTP/2 keeps one dynamic table per direction.
type headerCodec struct {
	encBuf *bytes.Buffer
	enc    *hpack.Encoder
	dec    *hpack.Decoder
}

func newHeaderCodec(maxTableSize uint32, onDecoded func(Header)) *headerCodec {
	buf := &bytes.Buffer{}
	enc := hpack.NewEncoder(buf)
	dec := hpack.NewDecoder(maxTableSize, func(f hpack.HeaderField) {
		onDecoded(Header{Name: f.Name, Value: f.Value, Sensitive: f.Sensitive})
	})
	return &headerCodec{encBuf: buf, enc: enc, dec: dec}
}

func (c *headerCodec) SetMaxDynamicTableSize(v uint32) {
	c.enc.SetMaxDynamicTableSize(v)
}

func (c *headerCodec) SetMaxDecodedTableSize(v uint32) {
	c.dec.SetMaxDynamicTableSize(v)
}

// Encode serializes headers as one header-block fragment, ready to be
// chopped into HEADERS/CONTINUATION frames by the caller.
func (c *headerCodec) Encode(headers []Header) ([]byte, error) {
	c.encBuf.Reset()
	for _, h := range headers {
		if err := c.enc.WriteField(hpack.HeaderField{
			Name:      h.Name,
			Value:     h.Value,
			Sensitive: h.Sensitive,
		}); err != nil {
			return nil, err
		}
	}
	out := make([]byte, c.encBuf.Len())
	copy(out, c.encBuf.Bytes())
	return out, nil
}

// Decode feeds one header-block fragment through the decoder; onDecoded
// (passed at construction) is invoked once per field as it resolves.
func (c *headerCodec) Decode(block []byte) error {
	_, err := c.dec.Write(block)
	return err
}

func (c *headerCodec) Close() error {
	return c.dec.Close()
}
