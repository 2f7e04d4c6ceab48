// Package keys defines the Redis key formats used by internal/store/redisstore.
package keys

import "fmt"

// Row is the key of the full row payload: row:{h3id}:{pk_and_model}.
func Row(h3ID, pkAndModel string) string {
	return fmt.Sprintf("row:%s:%s", h3ID, pkAndModel)
}

// Cell is the reverse index: a set of pk_and_model values touching h3ID.
func Cell(h3ID string) string {
	return fmt.Sprintf("cell:%s", h3ID)
}

// AOI is the forward (secondary) index: a set of h3_id values for pkAndModel.
func AOI(pkAndModel string) string {
	return fmt.Sprintf("aoi:%s", pkAndModel)
}
