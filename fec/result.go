package fec

// Result reports the outcome of a codec operation.
type Result int

const (
	// Win means the operation completed and output can be generated.
	Win Result = iota
	// MoreBlocks means the decoder cannot solve yet and needs more blocks.
	MoreBlocks
	// BadInput means the parameters are malformed or the block count is
	// outside the supported schedule.
	BadInput
	// OutOfMemory means a workspace allocation could not be sized.
	OutOfMemory
)

func (r Result) String() string {
	switch r {
	case Win:
		return "Win"
	case MoreBlocks:
		return "MoreBlocks"
	case BadInput:
		return "BadInput"
	case OutOfMemory:
		return "OutOfMemory"
	default:
		return "UnknownResult"
	}
}
