// Package jsl defines the Job Specification Language: YAML job definitions
// made of tasklet steps linked by transitions.
package jsl

import (
	port "github.com/tigerroll/switchprep/pkg/batch/core/application/port"
	config "github.com/tigerroll/switchprep/pkg/batch/core/config"
)

// JSLDefinitionBytes is the raw content of one embedded JSL file.
type JSLDefinitionBytes []byte

// Job is the top-level JSL document.
type Job struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Flow        Flow           `yaml:"flow"`
	Listeners   []ComponentRef `yaml:"listeners,omitempty"`
}

// Flow is the execution graph of a job.
type Flow struct {
	// StartElement is the id of the first step.
	StartElement string `yaml:"start-element"`
	// Elements maps step ids to step definitions.
	Elements map[string]Step `yaml:"elements"`
}

// Step is a tasklet step.
type Step struct {
	ID          string         `yaml:"id"`
	Description string         `yaml:"description,omitempty"`
	Tasklet     ComponentRef   `yaml:"tasklet"`
	Transitions []Transition   `yaml:"transitions,omitempty"`
	Listeners   []ComponentRef `yaml:"listeners,omitempty"`
}

// ComponentRef names a registered component and the properties it is built with.
type ComponentRef struct {
	Ref        string            `yaml:"ref"`
	Properties map[string]string `yaml:"properties,omitempty"`
}

// Transition selects the next element from a step's exit status.
// Exactly one of To, End, Fail or Stop must be set. On "*" matches any status.
type Transition struct {
	On   string `yaml:"on"`
	To   string `yaml:"to,omitempty"`
	End  bool   `yaml:"end,omitempty"`
	Fail bool   `yaml:"fail,omitempty"`
	Stop bool   `yaml:"stop,omitempty"`
}

// ComponentBuilder builds a component (usually a port.Tasklet) from resolved JSL properties.
type ComponentBuilder func(cfg *config.Config, properties map[string]string) (interface{}, error)

// JobExecutionListenerBuilder builds a job listener from JSL properties.
type JobExecutionListenerBuilder func(cfg *config.Config, properties map[string]string) (port.JobExecutionListener, error)

// StepExecutionListenerBuilder builds a step listener from JSL properties.
type StepExecutionListenerBuilder func(cfg *config.Config, properties map[string]string) (port.StepExecutionListener, error)
