package fountainudp

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/observe-l/fountain/fec"
	"github.com/observe-l/fountain/internal/dropper"
	"github.com/observe-l/fountain/internal/fecwire"
)

// One-generation fountain file transfer over unreliable datagrams. The
// sender pads the payload up to a supported block count, streams meta and
// symbol datagrams, and never needs feedback; the receiver feeds whatever
// arrives into the decoder until it solves.

const (
	DefaultBlockBytes = 1200
	defaultMetaEvery  = 64
	defaultOverhead   = 0.1
)

// DatagramWriter is the unreliable channel half the sender writes into.
type DatagramWriter interface {
	WriteDatagram(p []byte) error
}

// SendOptions control Send.
type SendOptions struct {
	BlockBytes int
	Generation uint16
	// Overhead is the fraction of repair symbols sent beyond the block
	// count. With no return channel the sender must overshoot the loss rate.
	Overhead float64
	// MetaEvery resends the file header after this many symbols.
	MetaEvery int
	// PaceEach sleeps between datagrams; zero sends full speed.
	PaceEach time.Duration
	// Drop simulates channel loss on symbol datagrams.
	Drop dropper.Dropper
}

// Send encodes data and writes meta plus symbol datagrams to w.
func Send(w DatagramWriter, data []byte, opts SendOptions) error {
	blockBytes := opts.BlockBytes
	if blockBytes <= 0 {
		blockBytes = DefaultBlockBytes
	}
	metaEvery := opts.MetaEvery
	if metaEvery <= 0 {
		metaEvery = defaultMetaEvery
	}
	overhead := opts.Overhead
	if overhead <= 0 {
		overhead = defaultOverhead
	}

	blocks := (len(data) + blockBytes - 1) / blockBytes
	k := fec.NextSupportedBlockCount(blocks)
	if k == 0 {
		return fmt.Errorf("fountainudp: %d blocks of %d bytes exceed the schedule", blocks, blockBytes)
	}

	// Pad up to the supported block count; the receiver trims by FileSize.
	padded := make([]byte, k*blockBytes)
	copy(padded, data)

	enc, err := fec.NewEncoder(padded, blockBytes)
	if err != nil {
		return err
	}

	sum, _, err := ComputeSHA256(bytes.NewReader(data))
	if err != nil {
		return err
	}
	fh := FileHeader{
		Version:    1,
		FileSize:   uint64(len(data)),
		SHA256:     sum,
		BlockBytes: uint32(blockBytes),
	}
	metaPayload := fh.MarshalBinary()

	hdr := fecwire.Header{
		Version:    1,
		Generation: opts.Generation,
		BlockCount: uint32(k),
		BlockBytes: uint32(blockBytes),
	}

	writeMeta := func() error {
		hdr.Flags = fecwire.FlagMeta
		hdr.ID = 0
		hdr.PayloadLen = uint32(len(metaPayload))
		buf := make([]byte, 0, fecwire.HeaderLen+len(metaPayload))
		buf = append(buf, hdr.MarshalBinary(nil)...)
		buf = append(buf, metaPayload...)
		return w.WriteDatagram(buf)
	}

	if err := writeMeta(); err != nil {
		return err
	}

	total := k + int(float64(k)*overhead)
	if total < k+4 {
		total = k + 4
	}

	block := make([]byte, blockBytes)
	for id := 0; id < total; id++ {
		if id > 0 && id%metaEvery == 0 {
			if err := writeMeta(); err != nil {
				return err
			}
		}

		enc.Encode(uint32(id), block)

		if opts.Drop != nil && opts.Drop.Drop() {
			continue
		}

		hdr.Flags = 0
		hdr.ID = uint32(id)
		hdr.PayloadLen = uint32(blockBytes)
		buf := make([]byte, 0, fecwire.HeaderLen+blockBytes)
		buf = append(buf, hdr.MarshalBinary(nil)...)
		buf = append(buf, block...)
		if err := w.WriteDatagram(buf); err != nil {
			return err
		}

		if opts.PaceEach > 0 {
			time.Sleep(opts.PaceEach)
		}
	}
	return nil
}

// Receiver reassembles one transfer from datagrams in any order. Symbols
// arriving before the first meta datagram are dropped and counted; the
// sender resends meta often enough that this costs little.
type Receiver struct {
	metrics *Metrics

	haveMeta   bool
	generation uint16
	fh         FileHeader
	blockCount int

	dec    *fec.Decoder
	seen   map[uint32]struct{}
	start  time.Time
	solved bool
}

func NewReceiver(m *Metrics) *Receiver {
	return &Receiver{metrics: m, seen: make(map[uint32]struct{})}
}

// Feed consumes one datagram and reports whether the transfer is decoded.
func (r *Receiver) Feed(p []byte) (bool, error) {
	var hdr fecwire.Header
	if !hdr.UnmarshalBinary(p) || hdr.Version != 1 {
		return r.solved, errors.New("fountainudp: malformed datagram")
	}
	payload := p[fecwire.HeaderLen:]
	if len(payload) < int(hdr.PayloadLen) {
		return r.solved, errors.New("fountainudp: truncated datagram")
	}
	payload = payload[:hdr.PayloadLen]

	r.metrics.datagramReceived()
	if r.start.IsZero() {
		r.start = time.Now()
	}

	if hdr.Flags&fecwire.FlagMeta != 0 {
		r.metrics.metaDatagram()
		if r.haveMeta {
			return r.solved, nil
		}
		var fh FileHeader
		if err := fh.UnmarshalBinary(payload); err != nil {
			return r.solved, err
		}
		if fh.BlockBytes != hdr.BlockBytes {
			return r.solved, errors.New("fountainudp: header block size mismatch")
		}

		dec, err := fec.NewDecoder(int(hdr.BlockCount)*int(hdr.BlockBytes), int(hdr.BlockBytes))
		if err != nil {
			return r.solved, err
		}
		r.fh = fh
		r.generation = hdr.Generation
		r.blockCount = int(hdr.BlockCount)
		r.dec = dec
		r.haveMeta = true
		return r.solved, nil
	}

	if !r.haveMeta {
		r.metrics.symbolOrphaned()
		return false, nil
	}
	if hdr.Generation != r.generation || int(hdr.BlockBytes) != r.dec.BlockBytes() {
		return r.solved, nil
	}
	if r.solved {
		return true, nil
	}
	if _, dup := r.seen[hdr.ID]; dup {
		r.metrics.symbolDuplicate()
		return false, nil
	}
	r.seen[hdr.ID] = struct{}{}

	r.metrics.symbolFed()
	done, err := r.dec.AddBlock(hdr.ID, payload)
	if err != nil {
		return false, err
	}
	if done {
		r.solved = true
		r.metrics.transferDecoded(time.Since(r.start))
	}
	return r.solved, nil
}

// Message returns the decoded payload, trimmed to the original size and
// verified against the transfer digest.
func (r *Receiver) Message() ([]byte, error) {
	if !r.solved {
		return nil, fec.ErrNotReady
	}
	padded, err := r.dec.Reconstruct()
	if err != nil {
		return nil, err
	}
	if uint64(len(padded)) < r.fh.FileSize {
		return nil, errors.New("fountainudp: decoded payload shorter than file size")
	}
	data := padded[:r.fh.FileSize]
	sum, _, err := ComputeSHA256(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if sum != r.fh.SHA256 {
		return nil, errors.New("fountainudp: sha256 mismatch")
	}
	return data, nil
}

// udpWriter adapts a connected UDP socket to DatagramWriter.
type udpWriter struct {
	conn net.Conn
}

func (w udpWriter) WriteDatagram(p []byte) error {
	_, err := w.conn.Write(p)
	return err
}

// SendFile streams path to addr over UDP.
func SendFile(addr, path string, opts SendOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	return Send(udpWriter{conn: conn}, data, opts)
}

// ReceiveFile listens on conn until one transfer decodes or the deadline
// passes, then writes the payload into outDir with an atomic rename.
func ReceiveFile(conn net.PacketConn, outDir, baseName string, m *Metrics, timeout time.Duration) (string, error) {
	recv := NewReceiver(m)
	buf := make([]byte, 64*1024)

	deadline := time.Now().Add(timeout)
	for {
		if timeout > 0 {
			if err := conn.SetReadDeadline(deadline); err != nil {
				return "", err
			}
		}
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			return "", err
		}
		done, err := recv.Feed(buf[:n])
		if err != nil {
			// Keep listening: a corrupt datagram must not kill the transfer.
			continue
		}
		if done {
			break
		}
	}

	data, err := recv.Message()
	if err != nil {
		return "", err
	}

	if baseName == "" {
		baseName = "fountain_recv.bin"
	}
	finalPath := filepath.Join(outDir, baseName)
	tmpPath := finalPath + ".part"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", err
	}
	return finalPath, nil
}
