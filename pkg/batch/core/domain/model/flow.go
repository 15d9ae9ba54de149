package model

import "fmt"

// Transition defines a transition rule from a flow element to the next one.
type Transition struct {
	On   string
	To   string
	End  bool
	Fail bool
	Stop bool
}

// TransitionRule is a Transition bound to its source element.
type TransitionRule struct {
	From       string
	Transition Transition
}

// FlowDefinition defines the execution graph of a job.
type FlowDefinition struct {
	StartElement    string
	Elements        map[string]interface{} // interface{} avoids an import cycle with port.Step
	TransitionRules []TransitionRule
}

// NewFlowDefinition creates a new instance of FlowDefinition.
func NewFlowDefinition(startElement string) *FlowDefinition {
	return &FlowDefinition{
		StartElement:    startElement,
		Elements:        make(map[string]interface{}),
		TransitionRules: make([]TransitionRule, 0),
	}
}

// AddElement adds a step to the flow.
func (fd *FlowDefinition) AddElement(id string, element interface{}) error {
	if _, exists := fd.Elements[id]; exists {
		return fmt.Errorf("flow element ID '%s' already exists", id)
	}
	fd.Elements[id] = element
	return nil
}

// AddTransitionRule adds a transition rule.
func (fd *FlowDefinition) AddTransitionRule(from string, t Transition) {
	fd.TransitionRules = append(fd.TransitionRules, TransitionRule{From: from, Transition: t})
}

// GetTransitionRule returns the first rule from the element whose On matches the exit status or is "*".
func (fd *FlowDefinition) GetTransitionRule(from string, exitStatus ExitStatus) (TransitionRule, bool) {
	for _, rule := range fd.TransitionRules {
		if rule.From == from && (rule.Transition.On == string(exitStatus) || rule.Transition.On == "*") {
			return rule, true
		}
	}
	return TransitionRule{}, false
}
