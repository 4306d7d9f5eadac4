// Package encoding holds compact text encodings for diagnostic dumps.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeMask run-length encodes a cell mask into base64(varint runs).
// Runs alternate starting with true, so a mask that opens with false
// begins with a zero-length run.
func EncodeMask(cells []bool) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	cur := true
	i := 0
	for i < len(cells) {
		run := 0
		for i+run < len(cells) && cells[i+run] == cur {
			run++
		}
		n := binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])
		i += run
		cur = !cur
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeMask reverses EncodeMask. size is the expected cell count.
func DecodeMask(b64 string, size int) ([]bool, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	out := make([]bool, 0, size)
	cur := true
	for i := 0; i < len(raw); {
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if uint64(len(out))+run > uint64(size) {
			return nil, fmt.Errorf("mask overruns %d cells", size)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, cur)
		}
		cur = !cur
	}
	if len(out) != size {
		return nil, fmt.Errorf("mask has %d cells, want %d", len(out), size)
	}
	return out, nil
}
