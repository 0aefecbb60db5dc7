package scorer

type Scorecard struct {
	Identity string  `json:"identity"`
	Rating   float64 `json:"rating"`
	Count    int64   `json:"count"`
}
