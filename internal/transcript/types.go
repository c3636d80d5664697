package transcript

// Result is one recognition hypothesis delivered by a recognition source.
type Result struct {
	// IsFinal reports whether the source has committed to this text.
	// Final results never change; interim results may be revised by
	// later events.
	IsFinal bool `json:"isFinal" yaml:"final"`

	// Text is the recognized text for this result
	Text string `json:"text" yaml:"text"`
}

// Event is a batch of results delivered by a recognition source.
//
// Results before ResultIndex were already delivered by earlier events
// and must not be applied again.
type Event struct {
	ResultIndex int      `json:"resultIndex" yaml:"result_index"`
	Results     []Result `json:"results" yaml:"results"`
}

// NewResults returns the results at or after ResultIndex.
// A negative index is treated as zero and an index past the end yields
// no results.
func (e Event) NewResults() []Result {
	start := e.ResultIndex
	if start < 0 {
		start = 0
	}
	if start >= len(e.Results) {
		return nil
	}
	return e.Results[start:]
}
