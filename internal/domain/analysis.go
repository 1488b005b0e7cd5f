package domain

// PositionStats is the summary the engine prints about one search.
// Every field is optional: engines omit lines, and book positions carry
// only BookMoves, Positions and Chosen.
type PositionStats struct {
	Winrate   *float64 `json:"winrate,omitempty" bson:"winrate,omitempty"`
	MCWinrate *float64 `json:"mc_winrate,omitempty" bson:"mc_winrate,omitempty"`
	NNWinrate *float64 `json:"nn_winrate,omitempty" bson:"nn_winrate,omitempty"`
	Margin    *string  `json:"margin,omitempty" bson:"margin,omitempty"`
	Visits    *int     `json:"visits,omitempty" bson:"visits,omitempty"`
	Best      *Move    `json:"best,omitempty" bson:"best,omitempty"`
	Chosen    *Move    `json:"chosen,omitempty" bson:"chosen,omitempty"`
	BookMoves *int     `json:"bookmoves,omitempty" bson:"bookmoves,omitempty"`
	Positions *int     `json:"positions,omitempty" bson:"positions,omitempty"`
}

func (s PositionStats) IsBook() bool {
	return s.BookMoves != nil
}

func (s PositionStats) VisitCount() int {
	if s.Visits == nil {
		return 0
	}
	return *s.Visits
}

type CandidateMove struct {
	Pos        Move    `json:"pos" bson:"pos"`
	Color      Color   `json:"color,omitempty" bson:"color,omitempty"`
	Visits     int     `json:"visits" bson:"visits"`
	Winrate    float64 `json:"winrate" bson:"winrate"`
	MCWinrate  float64 `json:"mc_winrate,omitempty" bson:"mc_winrate,omitempty"`
	NNWinrate  float64 `json:"nn_winrate,omitempty" bson:"nn_winrate,omitempty"`
	NNCount    int     `json:"nn_count,omitempty" bson:"nn_count,omitempty"`
	PolicyProb float64 `json:"policy_prob" bson:"policy_prob"`
	PV         []Move  `json:"pv,omitempty" bson:"pv,omitempty"`
	IsBook     bool    `json:"is_book,omitempty" bson:"is_book,omitempty"`
}

// Annotation is what gets written onto a record node.
type Annotation struct {
	Comment   string
	Labels    []string
	Triangles []Move
}

func Ptr[T any](v T) *T {
	return &v
}
