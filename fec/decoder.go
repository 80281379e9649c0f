package fec

// Decoder reassembles one message from (id, block) pairs in any order. The
// source blocks 0..BlockCount-1 alone always decode. A set of exactly
// BlockCount distinct blocks that includes repair blocks decodes only in a
// minority of cases; typically a few blocks beyond BlockCount are needed.
type Decoder struct {
	codec  Codec
	msgLen int
	solved bool
}

// NewDecoder builds a decoder for a message of messageBytes bytes carried in
// blockBytes-sized blocks.
func NewDecoder(messageBytes, blockBytes int) (*Decoder, error) {
	d := &Decoder{msgLen: messageBytes}
	if r := d.codec.InitDecoder(messageBytes, blockBytes); r != Win {
		return nil, r.err()
	}
	return d, nil
}

// BlockCount returns K, the number of source blocks.
func (d *Decoder) BlockCount() int { return d.codec.BlockCount() }

// BlockBytes returns the block size in bytes.
func (d *Decoder) BlockBytes() int { return d.codec.BlockBytes() }

// AddBlock feeds one received block and reports whether the message is now
// solved. Blocks fed after that are ignored.
func (d *Decoder) AddBlock(id uint32, block []byte) (bool, error) {
	if d.solved {
		return true, nil
	}
	if len(block) != d.codec.BlockBytes() {
		return false, ErrBadInput
	}

	switch r := d.codec.DecodeFeed(id, block); r {
	case Win:
		d.solved = true
		return true, nil
	case MoreBlocks:
		return false, nil
	default:
		return false, r.err()
	}
}

// Reconstruct returns the decoded message once AddBlock has reported success.
func (d *Decoder) Reconstruct() ([]byte, error) {
	if !d.solved {
		return nil, ErrNotReady
	}
	out := make([]byte, d.msgLen)
	d.codec.ReconstructOutput(out)
	return out, nil
}
