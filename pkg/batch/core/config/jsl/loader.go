package jsl

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/switchprep/pkg/batch/support/util/logger"
)

const loaderModule = "jsl_loader"

// Definitions holds the loaded JSL job definitions keyed by job id.
type Definitions struct {
	jobs map[string]Job
}

// NewDefinitions creates an empty definition set.
func NewDefinitions() *Definitions {
	return &Definitions{jobs: make(map[string]Job)}
}

// LoadFromBytes parses one JSL document, validates it and adds it to the set.
func (d *Definitions) LoadFromBytes(data []byte) error {
	var jobDef Job
	if err := yaml.Unmarshal(data, &jobDef); err != nil {
		return exception.NewBatchError(loaderModule, "Failed to parse JSL file", err)
	}
	if err := validateJob(&jobDef); err != nil {
		return err
	}
	if _, exists := d.jobs[jobDef.ID]; exists {
		return exception.NewBatchErrorf(loaderModule, "JSL Job ID '%s' is duplicated", jobDef.ID)
	}
	d.jobs[jobDef.ID] = jobDef
	logger.Debugf("Loaded JSL job '%s' with %d step(s).", jobDef.ID, len(jobDef.Flow.Elements))
	return nil
}

// Get retrieves a job definition by id.
func (d *Definitions) Get(jobID string) (Job, bool) {
	job, ok := d.jobs[jobID]
	return job, ok
}

// IDs returns the loaded job ids in sorted order.
func (d *Definitions) IDs() []string {
	ids := make([]string, 0, len(d.jobs))
	for id := range d.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func validateJob(jobDef *Job) error {
	if jobDef.ID == "" {
		return exception.NewBatchError(loaderModule, "'id' is not defined in JSL file", nil)
	}
	if jobDef.Name == "" {
		return exception.NewBatchErrorf(loaderModule, "JSL job '%s' does not have 'name' defined", jobDef.ID)
	}
	if jobDef.Flow.StartElement == "" {
		return exception.NewBatchErrorf(loaderModule, "JSL job '%s' flow does not have 'start-element' defined", jobDef.ID)
	}
	if len(jobDef.Flow.Elements) == 0 {
		return exception.NewBatchErrorf(loaderModule, "JSL job '%s' flow does not have 'elements' defined", jobDef.ID)
	}
	if _, ok := jobDef.Flow.Elements[jobDef.Flow.StartElement]; !ok {
		return exception.NewBatchErrorf(loaderModule, "JSL job '%s' start-element '%s' is not an element", jobDef.ID, jobDef.Flow.StartElement)
	}
	for key, step := range jobDef.Flow.Elements {
		if step.ID == "" {
			step.ID = key
			jobDef.Flow.Elements[key] = step
		} else if step.ID != key {
			return exception.NewBatchErrorf(loaderModule, "JSL job '%s': element key '%s' does not match step id '%s'", jobDef.ID, key, step.ID)
		}
		if step.Tasklet.Ref == "" {
			return exception.NewBatchErrorf(loaderModule, "JSL job '%s': step '%s' has no tasklet ref", jobDef.ID, key)
		}
		for _, t := range step.Transitions {
			if err := validateTransition(key, t, jobDef.Flow.Elements); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateTransition checks that a transition names exactly one outcome and that its target exists.
func validateTransition(fromElementID string, t Transition, allElements map[string]Step) error {
	if t.On == "" {
		return exception.NewBatchErrorf(loaderModule, "Transition rule for flow element '%s' is missing 'on'", fromElementID)
	}
	exclusiveCount := 0
	for _, set := range []bool{t.End, t.Fail, t.Stop, t.To != ""} {
		if set {
			exclusiveCount++
		}
	}
	if exclusiveCount != 1 {
		return exception.NewBatchError(loaderModule,
			fmt.Sprintf("Transition rule for flow element '%s' (on: '%s') must define exactly one of 'to', 'end', 'fail', or 'stop'", fromElementID, t.On), nil)
	}
	if t.To != "" {
		if _, ok := allElements[t.To]; !ok {
			return exception.NewBatchErrorf(loaderModule, "Target element '%s' of transition (on: '%s') from '%s' not found", t.To, t.On, fromElementID)
		}
	}
	return nil
}
