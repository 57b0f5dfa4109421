package cache

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/riptide-engine/riptide/internal/models"
)

var defaultJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONCodec (de)serializes cache entries with json-iterator, the same
// serialization library the streaming API uses, so cached bytes and wire
// bytes share one encoder's behavior.
type JSONCodec struct{}

func (JSONCodec) Encode(entry models.CacheEntry) ([]byte, error) {
	return defaultJSON.Marshal(entry)
}

func (JSONCodec) Decode(raw []byte) (models.CacheEntry, error) {
	var entry models.CacheEntry
	err := defaultJSON.Unmarshal(raw, &entry)
	return entry, err
}
