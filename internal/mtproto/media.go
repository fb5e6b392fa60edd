package mtproto

import (
	"fmt"

	"github.com/gotd/td/tg"
)

// media is the downloadable payload of one mirrored message, normalized over
// documents (which cover video, audio and voice on the wire) and photos.
type media struct {
	doc      *tg.Document
	photo    *tg.Photo
	thumb    string // photo size type to fetch
	size     int64
	uniqueID string
	filename string
}

// location builds the input location for the downloader.
func (m media) location() tg.InputFileLocationClass {
	if m.doc != nil {
		return &tg.InputDocumentFileLocation{
			ID:            m.doc.ID,
			AccessHash:    m.doc.AccessHash,
			FileReference: m.doc.FileReference,
		}
	}
	return &tg.InputPhotoFileLocation{
		ID:            m.photo.ID,
		AccessHash:    m.photo.AccessHash,
		FileReference: m.photo.FileReference,
		ThumbSize:     m.thumb,
	}
}

func extractMedia(msg *tg.Message) (media, bool) {
	switch mm := msg.Media.(type) {
	case *tg.MessageMediaDocument:
		docClass, ok := mm.GetDocument()
		if !ok {
			return media{}, false
		}
		doc, ok := docClass.AsNotEmpty()
		if !ok {
			return media{}, false
		}
		return media{
			doc:      doc,
			size:     doc.Size,
			uniqueID: documentUniqueID(doc.ID),
			filename: documentFilename(doc),
		}, true
	case *tg.MessageMediaPhoto:
		photoClass, ok := mm.GetPhoto()
		if !ok {
			return media{}, false
		}
		photo, ok := photoClass.AsNotEmpty()
		if !ok {
			return media{}, false
		}
		thumb, size := largestPhotoSize(photo.Sizes)
		if thumb == "" {
			return media{}, false
		}
		return media{
			photo:    photo,
			thumb:    thumb,
			size:     size,
			uniqueID: photoUniqueID(photo.ID),
			filename: fmt.Sprintf("photo_%d.jpg", photo.ID),
		}, true
	}
	return media{}, false
}

func documentFilename(doc *tg.Document) string {
	for _, attr := range doc.Attributes {
		if name, ok := attr.(*tg.DocumentAttributeFilename); ok {
			return name.FileName
		}
	}
	return ""
}

func largestPhotoSize(sizes []tg.PhotoSizeClass) (string, int64) {
	var (
		thumb string
		best  int64
	)
	for _, s := range sizes {
		switch size := s.(type) {
		case *tg.PhotoSize:
			if int64(size.Size) >= best {
				best = int64(size.Size)
				thumb = size.Type
			}
		case *tg.PhotoSizeProgressive:
			if len(size.Sizes) == 0 {
				continue
			}
			max := int64(size.Sizes[len(size.Sizes)-1])
			if max >= best {
				best = max
				thumb = size.Type
			}
		}
	}
	return thumb, best
}
