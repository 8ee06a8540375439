// File: cluster/framing_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package cluster

import (
	"bytes"
	"testing"

	"github.com/momentics/corenet/api"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTripNoCodec(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, nil, nil)
	dec := NewDecoder(&buf, nil, nil)

	require.NoError(t, enc.Encode(MessageHello, []byte("hello")))
	require.NoError(t, enc.Encode(MessageGeneral, []byte("payload-one")))

	mt, payload, err := dec.Decode()
	require.NoError(t, err)
	require.Equal(t, MessageHello, mt)
	require.Equal(t, "hello", string(payload))

	mt, payload, err = dec.Decode()
	require.NoError(t, err)
	require.Equal(t, MessageGeneral, mt)
	require.Equal(t, "payload-one", string(payload))
}

func TestEncodeDecodeWithZstdAndCipher(t *testing.T) {
	comp, err := NewZstdCompressor()
	require.NoError(t, err)
	cipherEnc := NewAESGCMCipher(api.CipherAES256)
	cipherEnc.SetPassword("correct horse battery staple")
	cipherEnc.SetSalt("static-salt")
	cipherDec := NewAESGCMCipher(api.CipherAES256)
	cipherDec.SetPassword("correct horse battery staple")
	cipherDec.SetSalt("static-salt")

	var buf bytes.Buffer
	enc := NewEncoder(&buf, comp, cipherEnc)
	dec := NewDecoder(&buf, comp, cipherDec)

	payload := bytes.Repeat([]byte("the quick brown fox "), 64)
	require.NoError(t, enc.Encode(MessageGeneral, payload))

	mt, got, err := dec.Decode()
	require.NoError(t, err)
	require.Equal(t, MessageGeneral, mt)
	require.Equal(t, payload, got)
}

func TestEncodeDecodeWithLZ4(t *testing.T) {
	comp := NewLZ4Compressor()
	var buf bytes.Buffer
	enc := NewEncoder(&buf, comp, nil)
	dec := NewDecoder(&buf, comp, nil)

	payload := bytes.Repeat([]byte("lz4-roundtrip-data-"), 32)
	require.NoError(t, enc.Encode(MessageGeneral, payload))

	_, got, err := dec.Decode()
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestFrameTooLargeRejected(t *testing.T) {
	var buf bytes.Buffer
	header := make([]byte, frameHeaderLen)
	header[0] = byte(MessageGeneral)
	// encode an absurd length prefix directly
	header[1], header[2], header[3], header[4] = 0xFF, 0xFF, 0xFF, 0xFF
	buf.Write(header)

	dec := NewDecoder(&buf, nil, nil)
	_, _, err := dec.Decode()
	require.ErrorIs(t, err, ErrFrameTooLarge)
}
