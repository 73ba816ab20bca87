package model

// LineError records an instruction line that could not be decoded.
type LineError struct {
	Line  int    `json:"line"`
	Seq   uint64 `json:"seq,omitempty"`
	Error string `json:"error"`
}
