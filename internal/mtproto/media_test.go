package mtproto

import (
	"testing"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDocument(t *testing.T) {
	doc := &tg.Document{
		ID:         123,
		AccessHash: 456,
		Size:       1 << 30,
		Attributes: []tg.DocumentAttributeClass{
			&tg.DocumentAttributeVideo{},
			&tg.DocumentAttributeFilename{FileName: "movie.mkv"},
		},
	}
	mm := &tg.MessageMediaDocument{}
	mm.SetDocument(doc)

	med, ok := extractMedia(&tg.Message{Media: mm})
	require.True(t, ok)
	assert.Equal(t, int64(1<<30), med.size)
	assert.Equal(t, "movie.mkv", med.filename)
	assert.Equal(t, documentUniqueID(123), med.uniqueID)

	loc, ok := med.location().(*tg.InputDocumentFileLocation)
	require.True(t, ok)
	assert.Equal(t, int64(123), loc.ID)
	assert.Equal(t, int64(456), loc.AccessHash)
}

func TestExtractDocumentWithoutFilename(t *testing.T) {
	mm := &tg.MessageMediaDocument{}
	mm.SetDocument(&tg.Document{ID: 7, Size: 100})

	med, ok := extractMedia(&tg.Message{Media: mm})
	require.True(t, ok)
	assert.Empty(t, med.filename)
}

func TestExtractPhotoPicksLargestSize(t *testing.T) {
	photo := &tg.Photo{
		ID:         555,
		AccessHash: 666,
		Sizes: []tg.PhotoSizeClass{
			&tg.PhotoSize{Type: "s", Size: 1000},
			&tg.PhotoSize{Type: "y", Size: 90000},
			&tg.PhotoSize{Type: "m", Size: 30000},
		},
	}
	mm := &tg.MessageMediaPhoto{}
	mm.SetPhoto(photo)

	med, ok := extractMedia(&tg.Message{Media: mm})
	require.True(t, ok)
	assert.Equal(t, int64(90000), med.size)
	assert.Equal(t, "photo_555.jpg", med.filename)
	assert.Equal(t, photoUniqueID(555), med.uniqueID)

	loc, ok := med.location().(*tg.InputPhotoFileLocation)
	require.True(t, ok)
	assert.Equal(t, "y", loc.ThumbSize)
}

func TestExtractPhotoProgressiveSizes(t *testing.T) {
	photo := &tg.Photo{
		ID: 9,
		Sizes: []tg.PhotoSizeClass{
			&tg.PhotoSize{Type: "s", Size: 1000},
			&tg.PhotoSizeProgressive{Type: "w", Sizes: []int{5000, 200000}},
		},
	}
	mm := &tg.MessageMediaPhoto{}
	mm.SetPhoto(photo)

	med, ok := extractMedia(&tg.Message{Media: mm})
	require.True(t, ok)
	assert.Equal(t, int64(200000), med.size)
	assert.Equal(t, "w", med.thumb)
}

func TestExtractNonMedia(t *testing.T) {
	_, ok := extractMedia(&tg.Message{})
	assert.False(t, ok)

	_, ok = extractMedia(&tg.Message{Media: &tg.MessageMediaGeo{}})
	assert.False(t, ok)

	// Document flag unset (expiring media) carries nothing downloadable.
	_, ok = extractMedia(&tg.Message{Media: &tg.MessageMediaDocument{}})
	assert.False(t, ok)
}
