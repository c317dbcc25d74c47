package instanceio

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fontanf/shopschedulingsolver/instance"
	"github.com/fontanf/shopschedulingsolver/solution"
)

// instanceSchema is the authoritative Instance JSON Schema from spec.md §6.
const instanceSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["machines", "jobs"],
  "properties": {
    "objective": {"type": "string"},
    "permutation": {"type": "boolean"},
    "operations_arbitrary_order": {"type": "boolean"},
    "no_wait": {"type": "boolean"},
    "blocking": {"type": "boolean"},
    "machines": {
      "type": "array",
      "items": {"type": "object", "properties": {"no_idle": {"type": "boolean"}}}
    },
    "jobs": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["operations"],
        "properties": {
          "release_date": {"type": "integer"},
          "due_date": {"type": "integer"},
          "weight": {"type": "integer"},
          "operations": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["alternatives"],
              "properties": {
                "alternatives": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "required": ["machine", "processing_time"],
                    "properties": {
                      "machine": {"type": "integer"},
                      "processing_time": {"type": "integer"}
                    }
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

// solutionSchema is the authoritative Solution JSON Schema from spec.md §6.
const solutionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["number_of_machines", "number_of_jobs", "number_of_operations", "operations"],
  "properties": {
    "number_of_machines": {"type": "integer"},
    "number_of_jobs": {"type": "integer"},
    "number_of_operations": {"type": "integer"},
    "operations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["job_id", "job_position", "operation_id", "alternative_id", "machine_id", "machine_position", "start", "processing_time", "end"],
        "properties": {
          "job_id": {"type": "integer"},
          "job_position": {"type": "integer"},
          "operation_id": {"type": "integer"},
          "alternative_id": {"type": "integer"},
          "machine_id": {"type": "integer"},
          "machine_position": {"type": "integer"},
          "start": {"type": "integer"},
          "processing_time": {"type": "integer"},
          "end": {"type": "integer"}
        }
      }
    }
  }
}`

func validate(schema string, doc []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(schema)
	docLoader := gojsonschema.NewBytesLoader(doc)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("instanceio: %w: %v", instance.ErrInvalidArgument, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}

		return fmt.Errorf("instanceio: %w: %v", instance.ErrInvalidArgument, msgs)
	}

	return nil
}

type jsonAlternative struct {
	Machine        int   `json:"machine"`
	ProcessingTime int64 `json:"processing_time"`
}

type jsonOperation struct {
	Alternatives []jsonAlternative `json:"alternatives"`
}

type jsonMachine struct {
	NoIdle bool `json:"no_idle"`
}

type jsonJob struct {
	ReleaseDate int64           `json:"release_date"`
	DueDate     int64           `json:"due_date"`
	Weight      int64           `json:"weight"`
	Operations  []jsonOperation `json:"operations"`
}

type jsonInstance struct {
	Objective                string        `json:"objective"`
	Permutation               bool          `json:"permutation"`
	OperationsArbitraryOrder  bool          `json:"operations_arbitrary_order"`
	NoWait                    bool          `json:"no_wait"`
	Blocking                  bool          `json:"blocking"`
	Machines                  []jsonMachine `json:"machines"`
	Jobs                      []jsonJob     `json:"jobs"`
}

// ReadJSON decodes and validates an Instance JSON document against the
// authoritative schema, then returns a populated Builder ready for Build().
func ReadJSON(r io.Reader) (*instance.Builder, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := validate(instanceSchema, data); err != nil {
		return nil, err
	}

	var doc jsonInstance
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("instanceio: %w: %v", instance.ErrInvalidArgument, err)
	}

	objective := instance.Makespan
	if doc.Objective != "" {
		objective, err = instance.ParseObjective(doc.Objective)
		if err != nil {
			return nil, err
		}
	}

	b := instance.NewBuilder().SetObjective(objective)
	b.SetOperationsArbitraryOrder(doc.OperationsArbitraryOrder)
	b.SetNoWait(doc.NoWait)
	b.SetBlocking(doc.Blocking)
	b.SetPermutation(doc.Permutation)

	if _, err := b.SetNumberOfMachines(len(doc.Machines)); err != nil {
		return nil, err
	}
	for i, m := range doc.Machines {
		if err := b.SetMachineNoIdle(i, m.NoIdle); err != nil {
			return nil, err
		}
	}

	for _, j := range doc.Jobs {
		job := b.AddJob()
		if err := b.SetJobReleaseDate(job, j.ReleaseDate); err != nil {
			return nil, err
		}
		due := j.DueDate
		if due == 0 {
			due = -1
		}
		if err := b.SetJobDueDate(job, due); err != nil {
			return nil, err
		}
		weight := j.Weight
		if weight == 0 {
			weight = 1
		}
		if err := b.SetJobWeight(job, weight); err != nil {
			return nil, err
		}
		for _, o := range j.Operations {
			opID, err := b.AddOperation(job)
			if err != nil {
				return nil, err
			}
			for _, alt := range o.Alternatives {
				if err := b.AddAlternative(job, opID, alt.Machine, alt.ProcessingTime); err != nil {
					return nil, err
				}
			}
		}
	}

	return b, nil
}

// WriteJSON encodes inst per the Instance JSON schema.
func WriteJSON(w io.Writer, inst *instance.Instance) error {
	doc := jsonInstance{
		Objective:                inst.Objective().String(),
		Permutation:              inst.Permutation(),
		OperationsArbitraryOrder: inst.OperationsArbitraryOrder(),
		NoWait:                   inst.NoWait(),
		Blocking:                 inst.Blocking(),
	}
	for m := 0; m < inst.NumberOfMachines(); m++ {
		doc.Machines = append(doc.Machines, jsonMachine{NoIdle: inst.Machine(m).NoIdle})
	}
	for j := 0; j < inst.NumberOfJobs(); j++ {
		job := inst.Job(j)
		jj := jsonJob{ReleaseDate: job.ReleaseDate, DueDate: job.DueDate, Weight: job.Weight}
		for _, op := range job.Operations {
			jo := jsonOperation{}
			for _, alt := range op.Alternatives {
				jo.Alternatives = append(jo.Alternatives, jsonAlternative{Machine: alt.MachineID, ProcessingTime: alt.ProcessingTime})
			}
			jj.Operations = append(jj.Operations, jo)
		}
		doc.Jobs = append(doc.Jobs, jj)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(doc)
}

type jsonScheduledOperation struct {
	JobID           int   `json:"job_id"`
	JobPosition     int   `json:"job_position"`
	OperationID     int   `json:"operation_id"`
	AlternativeID   int   `json:"alternative_id"`
	MachineID       int   `json:"machine_id"`
	MachinePosition int   `json:"machine_position"`
	Start           int64 `json:"start"`
	ProcessingTime  int64 `json:"processing_time"`
	End             int64 `json:"end"`
}

type jsonSolution struct {
	NumberOfMachines   int                      `json:"number_of_machines"`
	NumberOfJobs       int                      `json:"number_of_jobs"`
	NumberOfOperations int                      `json:"number_of_operations"`
	Operations         []jsonScheduledOperation `json:"operations"`
}

// WriteSolutionJSON encodes sol per the Solution JSON schema.
func WriteSolutionJSON(w io.Writer, sol *solution.Solution) error {
	inst := sol.Instance()
	doc := jsonSolution{
		NumberOfMachines:   inst.NumberOfMachines(),
		NumberOfJobs:       inst.NumberOfJobs(),
		NumberOfOperations: sol.NumberOfOperations(),
	}
	for id := 0; id < sol.NumberOfOperations(); id++ {
		op := sol.Operation(id)
		doc.Operations = append(doc.Operations, jsonScheduledOperation{
			JobID: op.JobID, JobPosition: op.JobPosition, OperationID: op.OperationID,
			AlternativeID: op.AlternativeID, MachineID: op.MachineID, MachinePosition: op.MachinePosition,
			Start: op.Start, ProcessingTime: op.ProcessingTime, End: op.End(),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(doc)
}

// ReadSolutionJSON decodes and validates a Solution JSON document against
// the authoritative schema, then replays it into a solution.Builder bound
// to inst (the caller must supply the Instance the document was produced
// against, since Solution JSON does not embed job/operation definitions).
func ReadSolutionJSON(r io.Reader, inst *instance.Instance) (*solution.Builder, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := validate(solutionSchema, data); err != nil {
		return nil, err
	}

	var doc jsonSolution
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("instanceio: %w: %v", instance.ErrInvalidArgument, err)
	}

	sb, err := solution.NewBuilder(inst)
	if err != nil {
		return nil, err
	}
	for _, op := range doc.Operations {
		if _, err := sb.AppendOperation(op.JobID, op.OperationID, op.AlternativeID, op.Start); err != nil {
			return nil, err
		}
	}
	sb.SortMachines()
	sb.SortJobs()

	return sb, nil
}
