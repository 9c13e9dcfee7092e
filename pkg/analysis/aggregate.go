package analysis

// AggregatedWord summarizes every occurrence of one (basic, pos) pair.
type AggregatedWord struct {
	Basic     string `json:"basic"`
	POS       string `json:"pos"`
	Reading   string `json:"reading"`
	Count     int    `json:"count"`
	Positions []int  `json:"positions"`
}

// FirstPosition returns the ordinal of the first occurrence.
func (w AggregatedWord) FirstPosition() int {
	if len(w.Positions) == 0 {
		return -1
	}
	return w.Positions[0]
}

type wordKey struct {
	basic string
	pos   string
}

// Aggregate groups occurrences by (basic form, POS) in arrival order.
//
// The reading of a group is taken from its first occurrence and is never
// replaced by later ones, even when they differ.
func Aggregate(occurrences []ContentWordOccurrence) []AggregatedWord {
	index := make(map[wordKey]int, len(occurrences))
	out := []AggregatedWord{}

	for _, o := range occurrences {
		key := wordKey{basic: o.Basic, pos: o.POS}
		if i, ok := index[key]; ok {
			out[i].Count++
			out[i].Positions = append(out[i].Positions, o.Ordinal)
			continue
		}
		index[key] = len(out)
		out = append(out, AggregatedWord{
			Basic:     o.Basic,
			POS:       o.POS,
			Reading:   o.Reading,
			Count:     1,
			Positions: []int{o.Ordinal},
		})
	}
	return out
}
