package xdmcp

import (
	"encoding/binary"
	"math"

	"golang.org/x/xerrors"
)

//Writer appends XDMCP primitive types to a byte slice
type Writer struct {
	b []byte
}

func (w *Writer) WriteCARD8(v uint8) {
	w.b = append(w.b, v)
}

func (w *Writer) WriteCARD16(v uint16) {
	w.b = append(w.b, byte(v>>8), byte(v))
}

func (w *Writer) WriteCARD32(v uint32) {
	w.b = append(w.b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

//WriteARRAY8 writes a CARD16 length followed by the bytes
func (w *Writer) WriteARRAY8(v []byte) error {
	if len(v) > math.MaxUint16 {
		return xerrors.Errorf("ARRAY8 of %d bytes: %w", len(v), ErrTooLong)
	}
	w.WriteCARD16(uint16(len(v)))
	w.b = append(w.b, v...)
	return nil
}

//WriteARRAYofARRAY8 writes a CARD8 count followed by each ARRAY8
func (w *Writer) WriteARRAYofARRAY8(v [][]byte) error {
	if len(v) > math.MaxUint8 {
		return xerrors.Errorf("ARRAYofARRAY8 of %d entries: %w", len(v), ErrTooLong)
	}
	w.WriteCARD8(uint8(len(v)))
	for _, a := range v {
		if err := w.WriteARRAY8(a); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) Len() int { return len(w.b) }

func (w *Writer) Bytes() []byte { return w.b }

//Reader consumes XDMCP primitive types from a byte slice
type Reader struct {
	b   []byte
	off int
}

func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

//Remaining reports how many unread bytes are left
func (r *Reader) Remaining() int { return len(r.b) - r.off }

func (r *Reader) next(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, xerrors.Errorf("need %d bytes at offset %d, have %d: %w", n, r.off, r.Remaining(), ErrShort)
	}
	b := r.b[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) ReadCARD8() (uint8, error) {
	b, err := r.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadCARD16() (uint16, error) {
	b, err := r.next(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *Reader) ReadCARD32() (uint32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

//ReadARRAY8 returns a copy of the next length-prefixed byte array
func (r *Reader) ReadARRAY8() ([]byte, error) {
	n, err := r.ReadCARD16()
	if err != nil {
		return nil, err
	}
	b, err := r.next(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (r *Reader) ReadARRAYofARRAY8() ([][]byte, error) {
	n, err := r.ReadCARD8()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, n)
	for i := 0; i < int(n); i++ {
		a, err := r.ReadARRAY8()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
