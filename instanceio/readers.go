// Package instanceio implements the file-format readers and JSON codecs
// named in spec.md §4.1/§6: line-oriented text grammars for flow-shop,
// vallada2008 flow-shop, job-shop, and flexible-job-shop instances, plus
// JSON encode/decode for Instance and Solution validated against the
// authoritative schema with gojsonschema.
package instanceio

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/fontanf/shopschedulingsolver/instance"
)

// ErrMalformedInput indicates a file that does not match the expected
// grammar (spec.md §7 InvalidInput).
var ErrMalformedInput = errors.New("instanceio: malformed input")

// tokenScanner reads whitespace-separated tokens (across lines) from r.
type tokenScanner struct {
	sc *bufio.Scanner
}

func newTokenScanner(r io.Reader) *tokenScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	return &tokenScanner{sc: sc}
}

func (t *tokenScanner) nextInt() (int64, error) {
	if !t.sc.Scan() {
		if err := t.sc.Err(); err != nil {
			return 0, err
		}

		return 0, io.EOF
	}
	v, err := strconv.ParseInt(t.sc.Text(), 10, 64)
	if err != nil {
		return 0, ErrMalformedInput
	}

	return v, nil
}

// ReadFlowShop parses the flow-shop grammar (spec.md §4.1): first line
// `nJ nM`, then for each machine a row of nJ processing times. Sets the
// Makespan objective.
func ReadFlowShop(r io.Reader) (*instance.Builder, error) {
	ts := newTokenScanner(r)
	nJobs, err := ts.nextInt()
	if err != nil {
		return nil, err
	}
	nMachines, err := ts.nextInt()
	if err != nil {
		return nil, err
	}
	if nJobs <= 0 || nMachines <= 0 {
		return nil, ErrMalformedInput
	}

	b := instance.NewBuilder().SetObjective(instance.Makespan)
	if _, err := b.SetNumberOfMachines(int(nMachines)); err != nil {
		return nil, err
	}
	jobs := make([]instance.JobID, nJobs)
	for j := range jobs {
		jobs[j] = b.AddJob()
	}

	// The grammar lists, per machine, a row of nJ processing times; add one
	// operation per job per machine row so operation id == machine id,
	// matching flow_shop's derivation rule.
	for m := int64(0); m < nMachines; m++ {
		for j := int64(0); j < nJobs; j++ {
			pt, err := ts.nextInt()
			if err != nil {
				return nil, err
			}
			if pt <= 0 {
				return nil, ErrMalformedInput
			}
			opID, err := b.AddOperation(jobs[j])
			if err != nil {
				return nil, err
			}
			if err := b.AddAlternative(jobs[j], opID, instance.MachineID(m), pt); err != nil {
				return nil, err
			}
		}
	}

	return b, nil
}

// ReadValladaFlowShop parses the vallada2008 flow-shop grammar (spec.md
// §4.1): nJ nM, then per job (machine_id, processing_time) pairs, then a
// trailing block of due dates. Sets the TotalTardiness objective.
func ReadValladaFlowShop(r io.Reader) (*instance.Builder, error) {
	ts := newTokenScanner(r)
	nJobs, err := ts.nextInt()
	if err != nil {
		return nil, err
	}
	nMachines, err := ts.nextInt()
	if err != nil {
		return nil, err
	}
	if nJobs <= 0 || nMachines <= 0 {
		return nil, ErrMalformedInput
	}

	b := instance.NewBuilder().SetObjective(instance.TotalTardiness)
	if _, err := b.SetNumberOfMachines(int(nMachines)); err != nil {
		return nil, err
	}

	jobs := make([]instance.JobID, nJobs)
	for j := range jobs {
		jobs[j] = b.AddJob()
		for m := int64(0); m < nMachines; m++ {
			machineID, err := ts.nextInt()
			if err != nil {
				return nil, err
			}
			pt, err := ts.nextInt()
			if err != nil {
				return nil, err
			}
			if machineID < 0 || machineID >= nMachines || pt <= 0 {
				return nil, ErrMalformedInput
			}
			opID, err := b.AddOperation(jobs[j])
			if err != nil {
				return nil, err
			}
			if err := b.AddAlternative(jobs[j], opID, instance.MachineID(machineID), pt); err != nil {
				return nil, err
			}
		}
	}

	for j := range jobs {
		due, err := ts.nextInt()
		if err != nil {
			return nil, err
		}
		if err := b.SetJobDueDate(jobs[j], due); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// ReadJobShop parses the job-shop grammar (spec.md §4.1): nJ nM, then per
// job nM pairs (machine_id, p). Sets the Makespan objective.
func ReadJobShop(r io.Reader) (*instance.Builder, error) {
	ts := newTokenScanner(r)
	nJobs, err := ts.nextInt()
	if err != nil {
		return nil, err
	}
	nMachines, err := ts.nextInt()
	if err != nil {
		return nil, err
	}
	if nJobs <= 0 || nMachines <= 0 {
		return nil, ErrMalformedInput
	}

	b := instance.NewBuilder().SetObjective(instance.Makespan)
	if _, err := b.SetNumberOfMachines(int(nMachines)); err != nil {
		return nil, err
	}

	for j := int64(0); j < nJobs; j++ {
		job := b.AddJob()
		for m := int64(0); m < nMachines; m++ {
			machineID, err := ts.nextInt()
			if err != nil {
				return nil, err
			}
			pt, err := ts.nextInt()
			if err != nil {
				return nil, err
			}
			if machineID < 0 || machineID >= nMachines || pt <= 0 {
				return nil, ErrMalformedInput
			}
			opID, err := b.AddOperation(job)
			if err != nil {
				return nil, err
			}
			if err := b.AddAlternative(job, opID, instance.MachineID(machineID), pt); err != nil {
				return nil, err
			}
		}
	}

	return b, nil
}

// ReadFlexibleJobShop parses the flexible-job-shop grammar (spec.md §4.1):
// nJ nM _, then per job `k` (operation count) followed by k blocks, each
// starting with an alternative count then that many (machine, p) pairs.
// Machine indices in the source grammar are 1-indexed; ReadFlexibleJobShop
// converts them to 0-indexed. Sets the Makespan objective.
func ReadFlexibleJobShop(r io.Reader) (*instance.Builder, error) {
	ts := newTokenScanner(r)
	nJobs, err := ts.nextInt()
	if err != nil {
		return nil, err
	}
	nMachines, err := ts.nextInt()
	if err != nil {
		return nil, err
	}
	if _, err := ts.nextInt(); err != nil { // unused trailing field in the header row
		return nil, err
	}
	if nJobs <= 0 || nMachines <= 0 {
		return nil, ErrMalformedInput
	}

	b := instance.NewBuilder().SetObjective(instance.Makespan)
	if _, err := b.SetNumberOfMachines(int(nMachines)); err != nil {
		return nil, err
	}

	for j := int64(0); j < nJobs; j++ {
		job := b.AddJob()
		nOps, err := ts.nextInt()
		if err != nil {
			return nil, err
		}
		for o := int64(0); o < nOps; o++ {
			opID, err := b.AddOperation(job)
			if err != nil {
				return nil, err
			}
			nAlts, err := ts.nextInt()
			if err != nil {
				return nil, err
			}
			if nAlts <= 0 {
				return nil, ErrMalformedInput
			}
			for a := int64(0); a < nAlts; a++ {
				machineOneIndexed, err := ts.nextInt()
				if err != nil {
					return nil, err
				}
				pt, err := ts.nextInt()
				if err != nil {
					return nil, err
				}
				machineID := machineOneIndexed - 1
				if machineID < 0 || machineID >= nMachines || pt <= 0 {
					return nil, ErrMalformedInput
				}
				if err := b.AddAlternative(job, opID, instance.MachineID(machineID), pt); err != nil {
					return nil, err
				}
			}
		}
	}

	return b, nil
}

// ReadPermutation parses the text permutation format (spec.md §6):
// space-separated job ids, one per position.
func ReadPermutation(r io.Reader) ([]instance.JobID, error) {
	ts := newTokenScanner(r)
	var perm []instance.JobID
	for {
		v, err := ts.nextInt()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, err
		}
		perm = append(perm, instance.JobID(v))
	}

	return perm, nil
}

// WritePermutation writes perm in the text permutation format.
func WritePermutation(w io.Writer, perm []instance.JobID) error {
	var sb strings.Builder
	for i, job := range perm {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.Itoa(job))
	}
	sb.WriteByte('\n')
	_, err := io.WriteString(w, sb.String())

	return err
}
