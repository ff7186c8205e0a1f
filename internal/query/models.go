package query

// Row maps a signal path to its value in one cycle.
type Row map[string]string

// CycleSet is the result of FetchAllCycles: rising-edge and falling-edge
// cycles kept apart, each in capture order.
type CycleSet struct {
	PosResult []Row `json:"pos_result"`
	NegResult []Row `json:"neg_result"`
}

// Snapshot is one cycle with its metadata, used by reports and the browser.
type Snapshot struct {
	Index     int    `json:"index"`
	Timestamp uint64 `json:"timestamp"`
	Edge      string `json:"edge"`
	Values    Row    `json:"values"`
}

// SignalSummary describes one column of the cycle table.
type SignalSummary struct {
	Path  string
	ID    string
	Kind  string
	Width int
	Alias bool
	// Toggles counts value changes between consecutive rising-edge cycles.
	Toggles int
}
