// Command run sweeps noise channels over a parameter grid.
//
// For every channel kind and noise strength, it prepares an entangled state,
// applies the channel on every wire, and records the measurement
// probabilities under the run directory and the final density matrix in a
// sqlite archive. Finished runs are skipped, so an interrupted sweep can be
// resumed. At the end all results are gathered and printed as CSV.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/fumin/qmixed"
	"github.com/fumin/qmixed/mixed"
	"github.com/fumin/qmixed/ops"
	"github.com/fumin/qmixed/store"
	"github.com/fumin/qmixed/util"
)

const (
	fnameProbs = "probs.csv"
	fnameDone  = "done.txt"
	fnameStore = "states.sqlite"

	numWires = 2
)

var (
	runDir = flag.String("d", filepath.Join("runs", "qmixed"), "run directory")
)

type Config struct {
	name    string
	param   float64
	channel func(p float64, wire int) ops.Op
}

func newConfigs() []Config {
	kinds := []struct {
		name    string
		channel func(p float64, wire int) ops.Op
	}{
		{name: "AmplitudeDamping", channel: ops.AmplitudeDamping},
		{name: "PhaseDamping", channel: ops.PhaseDamping},
		{name: "DepolarizingChannel", channel: ops.DepolarizingChannel},
		{name: "BitFlip", channel: ops.BitFlip},
		{name: "PhaseFlip", channel: ops.PhaseFlip},
	}
	params := []float64{0, 0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.75, 1}

	configs := make([]Config, 0, len(kinds)*len(params))
	for _, k := range kinds {
		for _, p := range params {
			configs = append(configs, Config{name: k.name, param: p, channel: k.channel})
		}
	}
	return configs
}

// newCircuit prepares the Bell style entangler followed by the noise
// channel on every wire.
func newCircuit(c Config) (*qmixed.Circuit, error) {
	circuit := qmixed.NewCircuit(numWires)
	if err := circuit.Append(ops.Hadamard(0)); err != nil {
		return nil, errors.Wrap(err, "")
	}
	for w := 1; w < numWires; w++ {
		if err := circuit.Append(ops.CNOT(w-1, w)); err != nil {
			return nil, errors.Wrap(err, "")
		}
	}
	for w := 0; w < numWires; w++ {
		if err := circuit.Append(c.channel(c.param, w)); err != nil {
			return nil, errors.Wrap(err, "")
		}
	}
	return circuit, nil
}

func solve(dir string, db *store.Store, c Config) error {
	donePath := filepath.Join(dir, fnameDone)
	if _, err := os.Stat(donePath); err == nil {
		return nil
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}

	circuit, err := newCircuit(c)
	if err != nil {
		return errors.Wrap(err, "")
	}
	sim := mixed.New(numWires)
	if err := sim.Apply(circuit.Ops()); err != nil {
		return errors.Wrap(err, "")
	}
	if err := sim.CheckState(); err != nil {
		return errors.Wrap(err, "")
	}

	if err := writeProbs(dir, sim.Probabilities()); err != nil {
		return errors.Wrap(err, "")
	}
	if err := db.Put(runName(c), dense(sim)); err != nil {
		return errors.Wrap(err, "")
	}

	if err := os.WriteFile(donePath, nil, 0644); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func runName(c Config) string {
	return fmt.Sprintf("%s/%f", c.name, c.param)
}

func dense(sim *mixed.Simulator) [][]complex64 {
	m := sim.Matrix()
	dim := 1 << sim.NumWires()
	d := make([][]complex64, dim)
	for i := range d {
		d[i] = make([]complex64, dim)
		for j := range d[i] {
			d[i][j] = m.At(i, j)
		}
	}
	return d
}

func writeProbs(dir string, probs []float64) error {
	f, err := os.Create(filepath.Join(dir, fnameProbs))
	if err != nil {
		return errors.Wrap(err, "")
	}
	w := csv.NewWriter(f)

	row := make([]string, len(probs))
	for i, p := range probs {
		row[i] = strconv.FormatFloat(p, 'f', -1, 64)
	}
	if err1 := w.Write(row); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}

	w.Flush()
	if err1 := w.Error(); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}
	if err1 := f.Close(); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}
	return err
}

func readProbs(dir string) ([]float64, error) {
	f, err := os.Open(filepath.Join(dir, fnameProbs))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer f.Close()

	record, err := csv.NewReader(f).Read()
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	probs := make([]float64, len(record))
	for i, s := range record {
		probs[i], err = strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
	}
	return probs, nil
}

type Result struct {
	name   string
	param  float64
	purity float64
	probs  []float64
}

func gather(dir string, db *store.Store) ([]Result, error) {
	results := make([]Result, 0)
	nameEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	for _, nent := range nameEntries {
		if !nent.IsDir() {
			continue
		}
		ndir := filepath.Join(dir, nent.Name())
		paramEntries, err := os.ReadDir(ndir)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%#v", nent))
		}
		for _, pent := range paramEntries {
			param, err := strconv.ParseFloat(pent.Name(), 64)
			if err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("%#v %#v", nent, pent))
			}

			probs, err := readProbs(filepath.Join(ndir, pent.Name()))
			if err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("%#v %#v", nent, pent))
			}
			m, err := db.Get(fmt.Sprintf("%s/%s", nent.Name(), pent.Name()))
			if err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("%#v %#v", nent, pent))
			}

			results = append(results, Result{name: nent.Name(), param: param, purity: purity(m), probs: probs})
		}
	}
	return results, nil
}

// purity computes tr(m^2) as the squared Frobenius norm, valid since
// density matrices are Hermitian.
func purity(m [][]complex64) float64 {
	var p float64
	for _, row := range m {
		for _, v := range row {
			p += float64(real(v))*float64(real(v)) + float64(imag(v))*float64(imag(v))
		}
	}
	return p
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	if err := os.MkdirAll(*runDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}
	db, err := store.Open(filepath.Join(*runDir, fnameStore))
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer db.Close()

	configs := newConfigs()
	throttler := util.NewSkipThrottler(3 * time.Second)
	for i, c := range configs {
		dir := filepath.Join(*runDir, c.name, fmt.Sprintf("%f", c.param))
		if err := solve(dir, db, c); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%s %f", c.name, c.param))
		}
		if throttler.Ok() {
			log.Printf("%d/%d %s %f", i+1, len(configs), c.name, c.param)
		}
	}

	results, err := gather(*runDir, db)
	if err != nil {
		return errors.Wrap(err, "")
	}
	fmt.Printf("name,param,purity,p00,p01,p10,p11\n")
	for _, r := range results {
		fmt.Printf("%s,%f,%f", r.name, r.param, r.purity)
		for _, p := range r.probs {
			fmt.Printf(",%f", p)
		}
		fmt.Printf("\n")
	}
	return nil
}
