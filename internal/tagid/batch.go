package tagid

// Rejected describes a batch input that is neither a valid tag nor a numeric id.
type Rejected struct {
	Input  string `json:"input"`
	Reason string `json:"reason"`
}

// Batch is a list of raw tokens split by kind.
// Tags and IDs keep first-seen order and contain no duplicates.
type Batch struct {
	Tags     []string
	IDs      []int64
	Rejected []Rejected
}

// Empty reports whether the batch has nothing to look up.
func (b Batch) Empty() bool {
	return len(b.Tags) == 0 && len(b.IDs) == 0
}

// Partition classifies every raw token. Malformed entries do not fail the
// batch; they are collected in Rejected instead.
func Partition(raws []string) Batch {
	var b Batch

	seenTags := make(map[string]struct{}, len(raws))
	seenIDs := make(map[int64]struct{}, len(raws))

	for _, raw := range raws {
		tok := Classify(raw)
		switch tok.Kind {
		case KindNumericID:
			if _, ok := seenIDs[tok.ID]; ok {
				continue
			}
			seenIDs[tok.ID] = struct{}{}
			b.IDs = append(b.IDs, tok.ID)
		case KindTag:
			if _, ok := seenTags[tok.Tag]; ok {
				continue
			}
			seenTags[tok.Tag] = struct{}{}
			b.Tags = append(b.Tags, tok.Tag)
		default:
			b.Rejected = append(b.Rejected, Rejected{Input: raw, Reason: tok.Err.Error()})
		}
	}

	return b
}
