package pathstore

import (
	"fmt"
	"strings"
)

// Root is the key namespace owned by docanchor.
const Root = "docanchor/users"

func UserPrefix(userID string) string {
	return fmt.Sprintf("%s/%s", Root, userID)
}

// DocumentPrefix holds a document's meta node and its locations.
func DocumentPrefix(userID, docID string) string {
	return fmt.Sprintf("%s/documents/%s", UserPrefix(userID), docID)
}

// LocationKey is the key of location i of a document.
func LocationKey(userID, docID string, i int) string {
	return fmt.Sprintf("%s/locations/%05d", DocumentPrefix(userID, docID), i)
}

// HashKey indexes a document by content hash for dedup.
func HashKey(userID, hash, docID string) string {
	return fmt.Sprintf("%s/hashes/%s/%s", UserPrefix(userID), hash, docID)
}

// BookmarkPrefix holds a user's bookmarks in one document.
func BookmarkPrefix(userID, docID string) string {
	return fmt.Sprintf("%s/bookmarks/%s", UserPrefix(userID), docID)
}

// LastSegment returns the final component of a key path as returned by a
// prefix scan, which may use either '/' or '.' as separator.
func LastSegment(key string) string {
	if i := strings.LastIndexAny(key, "/."); i >= 0 {
		return key[i+1:]
	}
	return key
}
