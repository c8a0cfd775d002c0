package result

import (
	"fmt"

	"github.com/wildrank/wrscout/internal/model"
)

// Snapshot is the serialisable form of a result's submissions, keyed by
// scouting mode. The three maps hold one entry per submission, index aligned.
type Snapshot struct {
	FileNames map[string][]string               `json:"file_names"`
	Meta      map[string][]model.SubmissionMeta `json:"meta"`
	Results   map[string][]map[string]any       `json:"results"`
}

// Snapshot captures the submissions of b.
func (b *Base) Snapshot() Snapshot {
	s := Snapshot{
		FileNames: make(map[string][]string),
		Meta:      make(map[string][]model.SubmissionMeta),
		Results:   make(map[string][]map[string]any),
	}
	for mode, subs := range b.submissions {
		for _, sub := range subs {
			s.FileNames[mode] = append(s.FileNames[mode], sub.SourceID)
			s.Meta[mode] = append(s.Meta[mode], sub.Meta)
			s.Results[mode] = append(s.Results[mode], sub.Values)
		}
	}
	return s
}

// Restore replaces the submissions of b with those in s.
func (b *Base) Restore(s Snapshot) error {
	subs := make(map[string][]model.Submission, len(s.Results))
	for mode, values := range s.Results {
		names, metas := s.FileNames[mode], s.Meta[mode]
		if len(names) != len(values) || len(metas) != len(values) {
			return fmt.Errorf("restore %s: %d file names, %d meta, %d results", mode, len(names), len(metas), len(values))
		}
		for i := range values {
			subs[mode] = append(subs[mode], model.Submission{
				SourceID: names[i],
				Meta:     metas[i],
				Values:   values[i],
			})
		}
	}
	b.submissions = subs
	return nil
}
