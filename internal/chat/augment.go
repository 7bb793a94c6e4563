package chat

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bytecraft/aira/internal/history"
	"github.com/bytecraft/aira/internal/retrieval"
)

// viewTurn is one entry of the history view handed to the model. Roles are
// already normalized to the two-role vocabulary.
type viewTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// viewFromTurns projects stored turns onto the model-facing view.
func viewFromTurns(turns []history.Turn) []viewTurn {
	view := make([]viewTurn, len(turns))
	for i, t := range turns {
		view[i] = viewTurn{Role: t.Role, Text: t.Content}
	}
	return view
}

// augmentView folds knowledge hits into the history view as one synthetic
// model turn. Pure: the input slice is never modified.
//
// Empty hits return the view unchanged. When the serialized payload exceeds
// maxBytes, the lowest-scoring hits are dropped first; if nothing fits, the
// view is returned unchanged rather than failing.
func augmentView(view []viewTurn, userID string, hits []retrieval.Hit, maxBytes int) []viewTurn {
	if len(hits) == 0 {
		return view
	}

	kept := make([]retrieval.Hit, len(hits))
	copy(kept, hits)
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })

	var payload []byte
	for len(kept) > 0 {
		data, err := json.Marshal(kept)
		if err != nil {
			// Hits come from our own store; a marshal failure means a hit
			// carries something unserializable, so skip augmentation
			return view
		}
		if len(data) <= maxBytes {
			payload = data
			break
		}
		kept = kept[:len(kept)-1]
	}
	if payload == nil {
		return view
	}

	augmented := make([]viewTurn, len(view), len(view)+1)
	copy(augmented, view)
	return append(augmented, viewTurn{
		Role: history.RoleModel,
		Text: fmt.Sprintf("more context of the query from the database comes out to be %s and userId is %s", payload, userID),
	})
}
