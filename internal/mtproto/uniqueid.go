package mtproto

import (
	"encoding/base64"
	"encoding/binary"
)

// Bot API file_unique_id values are a base64url encoding (padding stripped,
// zero runs run-length compressed) of a little-endian (int32 kind, int64 id)
// pair. Computing the same encoding from the raw MTProto media id is what
// lets the coordinator correlate its mirrored copy of a message with the
// context the Bot API handler registered.

const (
	uniquePhoto    = 1
	uniqueDocument = 2
)

func documentUniqueID(id int64) string {
	return packUniqueID(uniqueDocument, id)
}

func photoUniqueID(id int64) string {
	return packUniqueID(uniquePhoto, id)
}

func packUniqueID(kind int32, id int64) string {
	var raw [12]byte
	binary.LittleEndian.PutUint32(raw[0:4], uint32(kind))
	binary.LittleEndian.PutUint64(raw[4:12], uint64(id))
	return base64.RawURLEncoding.EncodeToString(rleEncode(raw[:]))
}

// rleEncode compresses runs of zero bytes to (0x00, count), the same scheme
// Telegram applies to file identifiers before base64.
func rleEncode(data []byte) []byte {
	out := make([]byte, 0, len(data))
	var run byte
	for _, b := range data {
		if b == 0 {
			run++
			if run == 0xFF {
				out = append(out, 0, run)
				run = 0
			}
			continue
		}
		if run > 0 {
			out = append(out, 0, run)
			run = 0
		}
		out = append(out, b)
	}
	if run > 0 {
		out = append(out, 0, run)
	}
	return out
}
