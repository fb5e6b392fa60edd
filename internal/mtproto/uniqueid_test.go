package mtproto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentUniqueIDPrefix(t *testing.T) {
	// Real document unique ids all start with this marker: kind byte 2
	// followed by three compressed zero bytes.
	for _, id := range []int64{1, 0x1234567890ab, -1234567890123456789} {
		uid := documentUniqueID(id)
		assert.True(t, strings.HasPrefix(uid, "AgAD"), "id %d produced %q", id, uid)
	}
}

func TestPhotoUniqueIDPrefix(t *testing.T) {
	for _, id := range []int64{1, 0x1234567890ab} {
		uid := photoUniqueID(id)
		assert.True(t, strings.HasPrefix(uid, "AQAD"), "id %d produced %q", id, uid)
	}
}

func TestUniqueIDDeterministic(t *testing.T) {
	assert.Equal(t, documentUniqueID(42), documentUniqueID(42))
	assert.NotEqual(t, documentUniqueID(42), documentUniqueID(43))
	assert.NotEqual(t, documentUniqueID(42), photoUniqueID(42))
}

func TestRLEEncode(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"no zeros", []byte{1, 2, 3}, []byte{1, 2, 3}},
		{"single run", []byte{1, 0, 0, 0, 2}, []byte{1, 0, 3, 2}},
		{"trailing run", []byte{1, 0, 0}, []byte{1, 0, 2}},
		{"leading run", []byte{0, 0, 1}, []byte{0, 2, 1}},
		{"all zeros", []byte{0, 0, 0, 0}, []byte{0, 4}},
		{"empty", nil, []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rleEncode(tt.in))
		})
	}
}
