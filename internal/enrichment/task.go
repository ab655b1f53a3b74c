package enrichment

import (
	"github.com/bwmarrin/snowflake"
	providerdomain "github.com/pricedex/pricedex/internal/provider/domain"
)

type TaskKind string

const (
	// TaskFetch pulls price and media for an already-mapped provider.
	TaskFetch TaskKind = "fetch"
	// TaskSearch resolves a title to an external id, creates the mapping
	// and follows up with a fetch.
	TaskSearch TaskKind = "search"
)

// Task is one unit of provider work queued onto that provider's
// dispatch queue.
type Task struct {
	Kind        TaskKind
	ProviderKey string
	GameID      snowflake.ID
	Title       string
	Mapping     *providerdomain.ProviderMapping
}
