package model

// PlayoffDoubleElim is the TBA playoff_type of the 8-alliance double
// elimination bracket.
const PlayoffDoubleElim = 10

// EventRecord is the stored event metadata blob.
type EventRecord struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	ShortName   string `json:"short_name"`
	Year        int    `json:"year"`
	EventType   int    `json:"event_type"`
	PlayoffType int    `json:"playoff_type"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

// TeamRecord is one entry of the stored team list.
type TeamRecord struct {
	Key        string `json:"key"`
	TeamNumber int    `json:"team_number"`
	Nickname   string `json:"nickname"`
	Name       string `json:"name"`
	City       string `json:"city"`
	StateProv  string `json:"state_prov"`
	Country    string `json:"country"`
}

// AllianceRecord is one side of a match record.
type AllianceRecord struct {
	TeamKeys []string `json:"team_keys"`
	Score    int      `json:"score"`
}

// MatchRecord is one entry of the stored match list.
type MatchRecord struct {
	Key         string    `json:"key"`
	CompLevel   CompLevel `json:"comp_level"`
	SetNumber   int       `json:"set_number"`
	MatchNumber int       `json:"match_number"`
	Alliances   struct {
		Red  AllianceRecord `json:"red"`
		Blue AllianceRecord `json:"blue"`
	} `json:"alliances"`
	Time           int64 `json:"time"`
	ActualTime     int64 `json:"actual_time"`
	PredictedTime  int64 `json:"predicted_time"`
	PostResultTime int64 `json:"post_result_time"`
	// ScoreBreakdown is keyed by alliance colour.
	ScoreBreakdown map[string]map[string]any `json:"score_breakdown"`
}

// BestTime returns the actual start time, else the predicted one, else the
// scheduled one (unix seconds, 0 if unknown).
func (m *MatchRecord) BestTime() int64 {
	switch {
	case m.ActualTime > 0:
		return m.ActualTime
	case m.PredictedTime > 0:
		return m.PredictedTime
	default:
		return m.Time
	}
}

// Complete reports whether results were posted for the match.
func (m *MatchRecord) Complete() bool {
	return m.PostResultTime > 0
}
