// Package mixed simulates open quantum systems as density matrices.
//
// The state of an n wire system is a tensor of 2n axes of dimension 2.
// The first n axes index the row (ket) half of the density matrix and the
// last n axes the column (bra) half, in the same wire order. Noise channels
// are applied by contracting their Kraus matrices against the wire axes,
// rho' = sum_k K_k rho K_k^H; diagonal unitaries take an elementwise fast
// path.
//
// References:
//   - Quantum Computation and Quantum Information, Nielsen and Chuang, chapter 8.
package mixed

import (
	"fmt"
	"math"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"

	"github.com/fumin/qmixed/ops"
)

// ErrDimension is returned when a Kraus matrix's shape is incompatible with
// the wires it is applied on.
var ErrDimension = errors.New("dimension mismatch")

// tol is the tolerance for checking physical invariants.
// It is loose relative to the 0x1p-23 machine precision since errors
// accumulate over long operation lists.
const tol = 1e-6

// Simulator simulates a fixed number of wires.
// A Simulator exclusively owns its state and is not safe for concurrent
// use; callers needing concurrency must serialize access externally.
type Simulator struct {
	numWires int
	state    *tensor.Dense

	bufs [3]*tensor.Dense
}

// New returns a simulator initialized to the pure state |0...0><0...0|.
func New(numWires int) *Simulator {
	s := &Simulator{numWires: numWires}
	s.state = s.CreateBasisState(0)
	for i := range s.bufs {
		s.bufs[i] = tensor.Zeros(1)
	}
	return s
}

// NumWires returns the number of wires.
func (s *Simulator) NumWires() int { return s.numWires }

// CreateBasisState returns the density matrix |index><index| as a tensor of
// shape [2]*2n. index must satisfy 0 <= index < 2^n.
func (s *Simulator) CreateBasisState(index int) *tensor.Dense {
	shape := make([]int, 2*s.numWires)
	for i := range shape {
		shape[i] = 2
	}
	t := tensor.Zeros(shape...)

	digits := make([]int, 2*s.numWires)
	indexBits(digits[:s.numWires], index)
	copy(digits[s.numWires:], digits[:s.numWires])
	t.SetAt(digits, 1)
	return t
}

// SetMatrix overwrites the state with the given 2^n x 2^n density matrix.
// The matrix is copied; callers keep ownership of dense.
func (s *Simulator) SetMatrix(dense [][]complex64) error {
	n := s.numWires
	dim := 1 << n
	if len(dense) != dim {
		return errors.Wrap(ErrDimension, fmt.Sprintf("%d %d", len(dense), dim))
	}

	t := tensor.Zeros(s.state.Shape()...)
	digits := make([]int, 2*n)
	for i, row := range dense {
		if len(row) != dim {
			return errors.Wrap(ErrDimension, fmt.Sprintf("%d %d", len(row), dim))
		}
		indexBits(digits[:n], i)
		for j, v := range row {
			if v == 0 {
				continue
			}
			indexBits(digits[n:], j)
			t.SetAt(digits, v)
		}
	}
	s.state = t
	return nil
}

// Reset reinitializes the state to |0...0><0...0|.
func (s *Simulator) Reset() {
	s.state = s.CreateBasisState(0)
}

// Matrix returns a copy of the state reshaped to a 2^n x 2^n density matrix.
func (s *Simulator) Matrix() *tensor.Dense {
	dim := 1 << s.numWires
	return resetCopy(tensor.Zeros(1), s.state).Reshape(dim, dim)
}

// Apply applies operations to the state in list order.
// Operation order is significant since channel composition does not
// commute. The first failing operation aborts the remaining list.
func (s *Simulator) Apply(operations []ops.Op) error {
	for i, op := range operations {
		kraus, err := ops.Resolve(op)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("%d", i))
		}

		switch {
		case kraus.Diag != nil:
			err = s.applyDiagonal(kraus.Diag, op.Wires)
		default:
			err = s.applyChannel(kraus.Mats, op.Wires)
		}
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("%d %s", i, op.Name))
		}
	}
	return nil
}

// applyChannel contracts the Kraus matrices against the state,
// rho' = sum_k K_k rho K_k^H, where each K_k acts as K_k x I on the wires
// outside wires.
func (s *Simulator) applyChannel(mats [][][]complex64, wires []int) error {
	w := len(wires)
	dim := 1 << w
	for _, k := range mats {
		if len(k) != dim {
			return errors.Wrap(ErrDimension, fmt.Sprintf("%d %d", len(k), dim))
		}
		for _, row := range k {
			if len(row) != dim {
				return errors.Wrap(ErrDimension, fmt.Sprintf("%d %d", len(row), dim))
			}
		}
	}

	kShape := make([]int, 2*w)
	for i := range kShape {
		kShape[i] = 2
	}
	// Pairs contracting K's column axes against the state's wire axes.
	rowAxes := make([][2]int, w)
	colAxes := make([][2]int, w)
	for j, wire := range wires {
		rowAxes[j] = [2]int{w + j, wire}
		colAxes[j] = [2]int{w + j, s.numWires + wire}
	}
	perm := channelPerm(s.numWires, wires)

	for ki, kMat := range mats {
		k := tensor.T2(kMat).Reshape(kShape...)

		// km is of shape {kRow...} ++ {state axes except the contracted row axes}.
		km := tensor.Product(s.bufs[0], k, s.state, rowAxes)
		// kmk is of shape {kRow.conj...} ++ {kRow...} ++ {untouched state axes}.
		kmk := tensor.Product(s.bufs[1], k.Conj(), km, colAxes)

		term := kmk.Transpose(perm...)
		switch {
		case len(mats) == 1:
			resetCopy(s.state, term)
		case ki == 0:
			resetCopy(s.bufs[2], term)
		default:
			acc := s.bufs[2]
			for ijk, v := range term.All() {
				acc.SetAt(ijk, acc.At(ijk...)+v)
			}
		}
	}
	if len(mats) > 1 {
		resetCopy(s.state, s.bufs[2])
	}
	return nil
}

// channelPerm returns the permutation moving the contracted axes of a
// channel application back to their original wire positions.
func channelPerm(n int, wires []int) []int {
	w := len(wires)
	contracted := make(map[int]int, 2*w)
	for j, wire := range wires {
		contracted[wire] = w + j
		contracted[n+wire] = j
	}

	perm := make([]int, 0, 2*n)
	rank := 0
	for p := 0; p < 2*n; p++ {
		ax, ok := contracted[p]
		if !ok {
			ax = 2*w + rank
			rank++
		}
		perm = append(perm, ax)
	}
	return perm
}

// applyDiagonal scales the state elementwise by d[row] * conj(d[col]),
// where row and col are the basis indices of the addressed wires.
// This is equivalent to applyChannel with the single matrix diag(d), but
// avoids the full tensor contraction.
func (s *Simulator) applyDiagonal(d []complex64, wires []int) error {
	w := len(wires)
	if len(d) != 1<<w {
		return errors.Wrap(ErrDimension, fmt.Sprintf("%d %d", len(d), 1<<w))
	}

	for ijk, v := range s.state.All() {
		var row, col int
		for _, wire := range wires {
			row = row<<1 | ijk[wire]
			col = col<<1 | ijk[s.numWires+wire]
		}
		s.state.SetAt(ijk, v*d[row]*conj(d[col]))
	}
	return nil
}

// Probabilities returns the computational basis probabilities, the real
// diagonal of the density matrix. Index i corresponds to the basis state
// whose big-endian binary expansion over the wires equals i.
func (s *Simulator) Probabilities() []float64 {
	n := s.numWires
	probs := make([]float64, 1<<n)
	digits := make([]int, 2*n)
	for i := range probs {
		indexBits(digits[:n], i)
		copy(digits[n:], digits[:n])
		probs[i] = float64(real(s.state.At(digits...)))
	}
	return probs
}

// Purity returns tr(rho^2), which is 1 for pure states and 1/2^n for the
// maximally mixed state. For Hermitian rho this equals the squared
// Frobenius norm.
func (s *Simulator) Purity() float64 {
	var p float64
	for _, v := range s.state.All() {
		p += float64(real(v))*float64(real(v)) + float64(imag(v))*float64(imag(v))
	}
	return p
}

// CheckState reports whether the state is still a physical density matrix,
// with unit trace and Hermitian within tolerance. A violation indicates an
// unphysical Kraus set upstream rather than an applicator bug, and is
// diagnostic: Apply never fails on it.
func (s *Simulator) CheckState() error {
	m := s.Matrix()
	dim := 1 << s.numWires

	var trace complex64
	for i := 0; i < dim; i++ {
		trace += m.At(i, i)
	}
	if math.Abs(float64(real(trace))-1) > tol || math.Abs(float64(imag(trace))) > tol {
		return errors.Errorf("trace %v", trace)
	}

	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			v, vT := m.At(i, j), m.At(j, i)
			if abs(v-conj(vT)) > tol {
				return errors.Errorf("%d %d %v %v", i, j, v, vT)
			}
		}
	}
	return nil
}

// indexBits fills digits with the big-endian binary expansion of index.
func indexBits(digits []int, index int) {
	for i := len(digits) - 1; i >= 0; i-- {
		digits[i] = index & 1
		index >>= 1
	}
}

func resetCopy(dst, src *tensor.Dense) *tensor.Dense {
	shape := src.Shape()
	zeroDigit := make([]int, len(shape))
	dst.Reset(shape...).Set(zeroDigit, src)
	return dst
}

func conj(x complex64) complex64 {
	return complex(real(x), -imag(x))
}

func abs(x complex64) float64 {
	re, im := float64(real(x)), float64(imag(x))
	return math.Sqrt(re*re + im*im)
}
