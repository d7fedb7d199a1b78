// Package fileid provides deterministic point IDs for the vector index.
package fileid

import "github.com/google/uuid"

// namespace for awase point IDs (UUIDv5).
var namespace = uuid.MustParse("7b1d9a6e-4c1f-4b7a-9f3e-2d8c5a0e6f41")

// PointID returns a stable UUID for the (user, title, source) triple.
// Same triple always yields the same ID, so re-embedding the same unit
// upserts the same point instead of creating a duplicate.
func PointID(userID, title, source string) string {
	return uuid.NewSHA1(namespace, []byte(userID+"|"+title+"|"+source)).String()
}
