package fec

import "errors"

var (
	// ErrBadInput reports malformed parameters or a block count outside the
	// supported schedule.
	ErrBadInput = errors.New("fec: bad input")
	// ErrMoreBlocks reports that the decoder needs additional blocks.
	ErrMoreBlocks = errors.New("fec: more blocks needed")
	// ErrOutOfMemory reports a failed workspace allocation.
	ErrOutOfMemory = errors.New("fec: out of memory")
	// ErrNotReady reports a reconstruction attempt before the decode solved.
	ErrNotReady = errors.New("fec: decoder not ready")
)

// err maps a Result onto the sentinel errors; Win maps to nil.
func (r Result) err() error {
	switch r {
	case Win:
		return nil
	case MoreBlocks:
		return ErrMoreBlocks
	case OutOfMemory:
		return ErrOutOfMemory
	default:
		return ErrBadInput
	}
}

// Encoder produces an unbounded stream of coded blocks for one message. The
// first BlockCount ids reproduce the source blocks verbatim; higher ids are
// repair blocks.
type Encoder struct {
	codec Codec
}

// NewEncoder builds an encoder over message, split into blockBytes-sized
// blocks. The message is aliased, not copied; it must stay alive and
// unmodified for the life of the encoder. The block count derived from the
// sizes must be in the supported schedule.
func NewEncoder(message []byte, blockBytes int) (*Encoder, error) {
	e := &Encoder{}
	if r := e.codec.InitEncoder(len(message), blockBytes); r != Win {
		return nil, r.err()
	}
	if r := e.codec.EncodeFeed(message); r != Win {
		return nil, r.err()
	}
	return e, nil
}

// BlockCount returns K, the number of source blocks.
func (e *Encoder) BlockCount() int { return e.codec.BlockCount() }

// BlockBytes returns the block size in bytes.
func (e *Encoder) BlockBytes() int { return e.codec.BlockBytes() }

// Encode writes the block with the given id into out, which must hold at
// least BlockBytes bytes.
func (e *Encoder) Encode(id uint32, out []byte) { e.codec.Encode(id, out) }
