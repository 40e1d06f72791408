package utils

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GenerateETag derives a weak validator from a document's id and last update.
// extra carries state computed at read time, such as a derived status.
func GenerateETag(id primitive.ObjectID, updatedAt time.Time, extra ...string) string {
	key := fmt.Sprintf("%s:%d", id.Hex(), updatedAt.UnixNano())
	for _, e := range extra {
		key += ":" + e
	}
	sum := sha1.Sum([]byte(key))
	return `W/"` + hex.EncodeToString(sum[:]) + `"`
}
