package tracer

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/graycon/graycon/internal/branch"
)

// ErrShortRead is returned when a tracer response is truncated at any
// point in the frame; the exchange is aborted and the caller treats the
// candidate as [Error] (spec.md §4.9).
var ErrShortRead = errors.New("tracer: short read on response frame")

const (
	headerSize      = 12 // record_count uint32, output_len uint32, status int32, all LE
	recordSize      = 8 + 1 + 1 + 1 + 1 + 8 + 8 + 8 + 1 + 1 + 32
	distanceMagSize = 32
)

// header is the fixed 12-byte prefix of a tracer response (spec.md §4.1a).
type header struct {
	RecordCount uint32
	OutputLen   uint32
	Status      int32
}

// response is one decoded tracer exchange: the branch records observed
// along this execution and whatever the target wrote to stdout/stderr.
type response struct {
	Infos  []branch.Info
	Output []byte
	Status int32
}

// decodeResponse reads one tracer response frame from r per spec.md §4.1a:
// a 12-byte header, record_count fixed-size branch records, then
// output_len raw bytes. A short read at any point returns [ErrShortRead].
func decodeResponse(r io.Reader) (response, error) {
	br := bufio.NewReaderSize(r, headerSize+recordSize*8)

	var hdr header
	if err := binary.Read(br, binary.LittleEndian, &hdr); err != nil {
		return response{}, fmt.Errorf("%w: header: %v", ErrShortRead, err) //nolint:errorlint // wrapping is intentional
	}

	infos := make([]branch.Info, 0, hdr.RecordCount)

	for i := uint32(0); i < hdr.RecordCount; i++ {
		info, err := decodeRecord(br)
		if err != nil {
			return response{}, fmt.Errorf("%w: record %d: %v", ErrShortRead, i, err) //nolint:errorlint
		}

		info.VisitIndex = countVisits(infos, info.Addr)
		infos = append(infos, info)
	}

	output := make([]byte, hdr.OutputLen)
	if _, err := io.ReadFull(br, output); err != nil {
		return response{}, fmt.Errorf("%w: output: %v", ErrShortRead, err) //nolint:errorlint
	}

	return response{Infos: infos, Output: output, Status: hdr.Status}, nil
}

func countVisits(seen []branch.Info, addr uint64) int {
	n := 0

	for _, i := range seen {
		if i.Addr == addr {
			n++
		}
	}

	return n
}

// wireRecord is the fixed-layout on-wire branch record (spec.md §4.1a).
type wireRecord struct {
	Addr           uint64
	CompareKind    uint8
	TryValueWidth  uint8
	OperandWidth   uint8
	_              uint8
	TryValueBytes  [8]byte
	Operand1Bytes  [8]byte
	Operand2Bytes  [8]byte
	DistanceSign   int8
	DistanceLen    uint8
	DistanceMag    [distanceMagSize]byte
}

func decodeRecord(r io.Reader) (branch.Info, error) {
	var w wireRecord
	if err := binary.Read(r, binary.LittleEndian, &w); err != nil {
		return branch.Info{}, err
	}

	signed := w.CompareKind != uint8(branch.UnsignedSize)

	tryValue := leSignedMagnitude(w.TryValueBytes[:w.TryValueWidth], signed)
	op1 := leSignedMagnitude(w.Operand1Bytes[:w.OperandWidth], signed)
	op2 := leSignedMagnitude(w.Operand2Bytes[:w.OperandWidth], signed)

	distance := new(big.Int).SetBytes(w.DistanceMag[distanceMagSize-int(w.DistanceLen):])
	if w.DistanceSign < 0 {
		distance.Neg(distance)
	}

	return branch.Info{
		Addr:     w.Addr,
		Compare:  branch.CompareKind(w.CompareKind),
		TryValue: tryValue,
		Width:    int(w.OperandWidth),
		Operand1: op1,
		Operand2: op2,
		Distance: distance,
	}, nil
}

// leSignedMagnitude interprets b (little-endian on the wire) as a
// two's-complement integer when signed, per spec.md §4.1.
func leSignedMagnitude(b []byte, signed bool) *big.Int {
	be := make([]byte, len(b))
	for i, c := range b {
		be[len(b)-1-i] = c
	}

	v := new(big.Int).SetBytes(be)
	if !signed || len(be) == 0 || be[0]&0x80 == 0 {
		return v
	}

	bound := new(big.Int).Lsh(big.NewInt(1), uint(len(be))*8) //nolint:gosec // len bounded by wire record width

	return v.Sub(v, bound)
}
