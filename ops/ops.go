// Package ops defines quantum operation descriptors and their Kraus
// operator representations.
//
// An operation is one of three closed variants: a unitary gate, a diagonal
// unitary gate, or a parametrized noise channel. Resolve computes the Kraus
// representation of any operation from its parameters.
package ops

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"

	"github.com/fumin/qmixed/mat"
)

// ErrUnsupported is returned by Resolve for unrecognized operations.
var ErrUnsupported = errors.New("unsupported operation")

// Kind classifies an operation.
type Kind int

const (
	// Unitary is a gate with a single dense unitary matrix.
	Unitary Kind = iota
	// Diagonal is a unitary gate diagonal in the computational basis.
	Diagonal
	// Channel is a trace-preserving noise channel with multiple Kraus matrices.
	Channel
)

// Op describes a quantum operation on an ordered list of wires.
// An Op is immutable once constructed.
type Op struct {
	Name   string
	Kind   Kind
	Params []float64
	Wires  []int

	// U is the explicit matrix of a QubitUnitary.
	U [][]complex64
}

// Kraus is the Kraus operator representation of an operation.
// Exactly one of Diag and Mats is set. Diag holds the eigenvalues of a
// single diagonal unitary, enabling the elementwise fast path.
type Kraus struct {
	Diag []complex64
	Mats [][][]complex64
}

var (
	identity = [][]complex64{
		{1, 0},
		{0, 1},
	}
	hadamard = [][]complex64{
		{invSqrt2, invSqrt2},
		{invSqrt2, -invSqrt2},
	}
	cnot     = controlled(mat.PauliX)
	swapGate = pauliExchange()
)

const invSqrt2 complex64 = complex(float32(math.Sqrt2/2), 0)

// controlled returns the two-wire gate applying u on the second wire when
// the first wire is set: P0 x I + P1 x u.
func controlled(u [][]complex64) [][]complex64 {
	g := mat.M(mat.Proj0)
	g.Kron(mat.COOIdentity(2))

	target := mat.M(mat.Proj1)
	target.Kron(mat.M(u))

	g.Add(1, target)
	return g.Dense()
}

// pauliExchange builds SWAP as (I x I + X x X + Y x Y + Z x Z) / 2.
func pauliExchange() [][]complex64 {
	g := mat.COOZeros(4, 4)
	for _, p := range [][][]complex64{identity, mat.PauliX, mat.PauliY, mat.PauliZ} {
		term := mat.M(p)
		term.Kron(mat.M(p))
		g.Add(0.5, term)
	}
	return g.Dense()
}

func PauliX(wire int) Op {
	return Op{Name: "PauliX", Kind: Unitary, Wires: []int{wire}}
}

func PauliY(wire int) Op {
	return Op{Name: "PauliY", Kind: Unitary, Wires: []int{wire}}
}

func Hadamard(wire int) Op {
	return Op{Name: "Hadamard", Kind: Unitary, Wires: []int{wire}}
}

func CNOT(control, target int) Op {
	return Op{Name: "CNOT", Kind: Unitary, Wires: []int{control, target}}
}

func SWAP(wire0, wire1 int) Op {
	return Op{Name: "SWAP", Kind: Unitary, Wires: []int{wire0, wire1}}
}

// QubitUnitary applies a caller-supplied unitary matrix of shape
// 2^len(wires) x 2^len(wires).
func QubitUnitary(u [][]complex64, wires ...int) Op {
	return Op{Name: "QubitUnitary", Kind: Unitary, Wires: wires, U: u}
}

func PauliZ(wire int) Op {
	return Op{Name: "PauliZ", Kind: Diagonal, Wires: []int{wire}}
}

func CZ(wire0, wire1 int) Op {
	return Op{Name: "CZ", Kind: Diagonal, Wires: []int{wire0, wire1}}
}

// PhaseShift rotates the relative phase of |1> by phi.
func PhaseShift(phi float64, wire int) Op {
	return Op{Name: "PhaseShift", Kind: Diagonal, Params: []float64{phi}, Wires: []int{wire}}
}

// RZ rotates around the Z axis by theta.
func RZ(theta float64, wire int) Op {
	return Op{Name: "RZ", Kind: Diagonal, Params: []float64{theta}, Wires: []int{wire}}
}

// AmplitudeDamping is the energy dissipation channel with damping
// probability gamma.
func AmplitudeDamping(gamma float64, wire int) Op {
	return Op{Name: "AmplitudeDamping", Kind: Channel, Params: []float64{gamma}, Wires: []int{wire}}
}

// GeneralizedAmplitudeDamping dissipates energy into an environment at
// finite temperature, with damping probability gamma and excitation
// probability 1-p.
func GeneralizedAmplitudeDamping(gamma, p float64, wire int) Op {
	return Op{Name: "GeneralizedAmplitudeDamping", Kind: Channel, Params: []float64{gamma, p}, Wires: []int{wire}}
}

// PhaseDamping loses quantum information without losing energy, with
// damping probability gamma.
func PhaseDamping(gamma float64, wire int) Op {
	return Op{Name: "PhaseDamping", Kind: Channel, Params: []float64{gamma}, Wires: []int{wire}}
}

// DepolarizingChannel symmetrically depolarizes with probability p.
func DepolarizingChannel(p float64, wire int) Op {
	return Op{Name: "DepolarizingChannel", Kind: Channel, Params: []float64{p}, Wires: []int{wire}}
}

// BitFlip flips the qubit with probability p.
func BitFlip(p float64, wire int) Op {
	return Op{Name: "BitFlip", Kind: Channel, Params: []float64{p}, Wires: []int{wire}}
}

// PhaseFlip applies a phase error with probability p.
func PhaseFlip(p float64, wire int) Op {
	return Op{Name: "PhaseFlip", Kind: Channel, Params: []float64{p}, Wires: []int{wire}}
}

// Resolve computes the Kraus representation of op.
// It is deterministic and has no side effects.
func Resolve(op Op) (Kraus, error) {
	switch op.Kind {
	case Unitary:
		return resolveUnitary(op)
	case Diagonal:
		return resolveDiagonal(op)
	case Channel:
		return resolveChannel(op)
	default:
		return Kraus{}, errors.Wrap(ErrUnsupported, op.Name)
	}
}

func resolveUnitary(op Op) (Kraus, error) {
	switch op.Name {
	case "PauliX":
		return Kraus{Mats: [][][]complex64{mat.PauliX}}, nil
	case "PauliY":
		return Kraus{Mats: [][][]complex64{mat.PauliY}}, nil
	case "Hadamard":
		return Kraus{Mats: [][][]complex64{hadamard}}, nil
	case "CNOT":
		return Kraus{Mats: [][][]complex64{cnot}}, nil
	case "SWAP":
		return Kraus{Mats: [][][]complex64{swapGate}}, nil
	case "QubitUnitary":
		// Shape is validated against the wires at application time.
		return Kraus{Mats: [][][]complex64{op.U}}, nil
	default:
		return Kraus{}, errors.Wrap(ErrUnsupported, op.Name)
	}
}

func resolveDiagonal(op Op) (Kraus, error) {
	switch op.Name {
	case "PauliZ":
		return Kraus{Diag: []complex64{1, -1}}, nil
	case "CZ":
		return Kraus{Diag: []complex64{1, 1, 1, -1}}, nil
	case "PhaseShift":
		return Kraus{Diag: []complex64{1, expi(op.Params[0])}}, nil
	case "RZ":
		return Kraus{Diag: []complex64{expi(-op.Params[0] / 2), expi(op.Params[0] / 2)}}, nil
	default:
		return Kraus{}, errors.Wrap(ErrUnsupported, op.Name)
	}
}

func resolveChannel(op Op) (Kraus, error) {
	switch op.Name {
	case "AmplitudeDamping":
		gamma, err := probability(op.Params[0])
		if err != nil {
			return Kraus{}, errors.Wrap(err, op.Name)
		}
		k0 := [][]complex64{
			{1, 0},
			{0, sqrt(1 - gamma)},
		}
		k1 := [][]complex64{
			{0, sqrt(gamma)},
			{0, 0},
		}
		return Kraus{Mats: [][][]complex64{k0, k1}}, nil
	case "GeneralizedAmplitudeDamping":
		gamma, err := probability(op.Params[0])
		if err != nil {
			return Kraus{}, errors.Wrap(err, op.Name)
		}
		p, err := probability(op.Params[1])
		if err != nil {
			return Kraus{}, errors.Wrap(err, op.Name)
		}
		k0 := scale(sqrt(p), [][]complex64{
			{1, 0},
			{0, sqrt(1 - gamma)},
		})
		k1 := scale(sqrt(p)*sqrt(gamma), [][]complex64{
			{0, 1},
			{0, 0},
		})
		k2 := scale(sqrt(1-p), [][]complex64{
			{sqrt(1 - gamma), 0},
			{0, 1},
		})
		k3 := scale(sqrt(1-p)*sqrt(gamma), [][]complex64{
			{0, 0},
			{1, 0},
		})
		return Kraus{Mats: [][][]complex64{k0, k1, k2, k3}}, nil
	case "PhaseDamping":
		gamma, err := probability(op.Params[0])
		if err != nil {
			return Kraus{}, errors.Wrap(err, op.Name)
		}
		k0 := [][]complex64{
			{1, 0},
			{0, sqrt(1 - gamma)},
		}
		k1 := [][]complex64{
			{0, 0},
			{0, sqrt(gamma)},
		}
		return Kraus{Mats: [][][]complex64{k0, k1}}, nil
	case "DepolarizingChannel":
		p, err := probability(op.Params[0])
		if err != nil {
			return Kraus{}, errors.Wrap(err, op.Name)
		}
		ks := [][][]complex64{scale(sqrt(1-p), identity)}
		for _, pauli := range [][][]complex64{mat.PauliX, mat.PauliY, mat.PauliZ} {
			ks = append(ks, scale(sqrt(p/3), pauli))
		}
		return Kraus{Mats: ks}, nil
	case "BitFlip":
		p, err := probability(op.Params[0])
		if err != nil {
			return Kraus{}, errors.Wrap(err, op.Name)
		}
		return Kraus{Mats: [][][]complex64{scale(sqrt(1-p), identity), scale(sqrt(p), mat.PauliX)}}, nil
	case "PhaseFlip":
		p, err := probability(op.Params[0])
		if err != nil {
			return Kraus{}, errors.Wrap(err, op.Name)
		}
		return Kraus{Mats: [][][]complex64{scale(sqrt(1-p), identity), scale(sqrt(p), mat.PauliZ)}}, nil
	default:
		return Kraus{}, errors.Wrap(ErrUnsupported, op.Name)
	}
}

func probability(p float64) (float64, error) {
	if p < 0 || p > 1 {
		return 0, errors.Errorf("%f", p)
	}
	return p, nil
}

func sqrt(x float64) complex64 {
	return complex(float32(math.Sqrt(x)), 0)
}

func expi(theta float64) complex64 {
	return complex64(cmplx.Exp(complex(0, theta)))
}

func scale(c complex64, x [][]complex64) [][]complex64 {
	s := mat.COOZeros(1, 1)
	s.Scalar(c)

	m := mat.M(x)
	m.Mul(s)
	return m.Dense()
}
