// File: cluster/framing.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Length-prefixed HELLO/GENERAL framing over any io.Reader/Writer (a
// cluster broker's net.Conn, but deliberately not coupled to it, so the
// same codec works for both TransferPipe and TransferIPC). Optional
// compression (api.Compressor) and cipher (api.Cipher) layers apply in
// compress-then-encrypt order, matching spec §6's declared payload
// pipeline. Grounded on original_source/src/cluster/cluster.cpp's frame
// header (type + length) and the compress/cipher ordering referenced in
// spec §6's Design Notes.

package cluster

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"

	"github.com/momentics/corenet/api"
)

// MessageType distinguishes the initial handshake frame from ordinary
// application payloads.
type MessageType uint8

const (
	// MessageHello is sent once by a worker immediately after connecting,
	// carrying its pid so the master can correlate broker and process.
	MessageHello MessageType = iota
	// MessageGeneral carries application payloads in either direction.
	MessageGeneral
)

const frameHeaderLen = 5 // 1 byte type + 4 byte big-endian length

// ErrFrameTooLarge guards against a corrupt or hostile length prefix.
var ErrFrameTooLarge = errors.New("cluster: frame exceeds maximum size")

// MaxFrameSize bounds a single decoded frame's payload.
const MaxFrameSize = 64 * 1024 * 1024

// Encoder writes length-prefixed frames, optionally compressing then
// encrypting each payload.
type Encoder struct {
	w    io.Writer
	comp api.Compressor
	ciph api.Cipher
}

// NewEncoder wraps w. comp/ciph may be nil to skip that stage.
func NewEncoder(w io.Writer, comp api.Compressor, ciph api.Cipher) *Encoder {
	return &Encoder{w: w, comp: comp, ciph: ciph}
}

// Encode writes one frame of the given type carrying payload.
func (e *Encoder) Encode(mt MessageType, payload []byte) error {
	body := payload
	var err error
	if e.comp != nil {
		body, err = e.comp.Compress(nil, body)
		if err != nil {
			return err
		}
	}
	if e.ciph != nil {
		body, err = e.ciph.Seal(nil, body)
		if err != nil {
			return err
		}
	}

	header := make([]byte, frameHeaderLen)
	header[0] = byte(mt)
	binary.BigEndian.PutUint32(header[1:], uint32(len(body)))

	if _, err := e.w.Write(header); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := e.w.Write(body); err != nil {
			return err
		}
	}
	return nil
}

// Decoder reads length-prefixed frames written by an Encoder, reversing the
// cipher-then-decompress stages.
type Decoder struct {
	r    *bufio.Reader
	comp api.Compressor
	ciph api.Cipher
}

// NewDecoder wraps r. comp/ciph must match the peer Encoder's settings.
func NewDecoder(r io.Reader, comp api.Compressor, ciph api.Cipher) *Decoder {
	return &Decoder{r: bufio.NewReader(r), comp: comp, ciph: ciph}
}

// Decode reads and returns the next frame.
func (d *Decoder) Decode() (MessageType, []byte, error) {
	header := make([]byte, frameHeaderLen)
	if _, err := io.ReadFull(d.r, header); err != nil {
		return 0, nil, err
	}
	mt := MessageType(header[0])
	length := binary.BigEndian.Uint32(header[1:])
	if length > MaxFrameSize {
		return 0, nil, ErrFrameTooLarge
	}

	body := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(d.r, body); err != nil {
			return 0, nil, err
		}
	}

	var err error
	if d.ciph != nil {
		body, err = d.ciph.Open(nil, body)
		if err != nil {
			return 0, nil, err
		}
	}
	if d.comp != nil {
		body, err = d.comp.Decompress(nil, body)
		if err != nil {
			return 0, nil, err
		}
	}
	return mt, body, nil
}
