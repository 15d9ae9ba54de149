package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ExecutionContext is a key-value store for sharing state across job and step executions.
type ExecutionContext map[string]interface{}

// NewExecutionContext creates a new empty ExecutionContext.
func NewExecutionContext() ExecutionContext {
	return make(ExecutionContext)
}

// Put sets a value in the ExecutionContext.
func (ec ExecutionContext) Put(key string, value interface{}) {
	ec[key] = value
}

// Get retrieves the value for the specified key.
func (ec ExecutionContext) Get(key string) (interface{}, bool) {
	val, ok := ec[key]
	return val, ok
}

// GetString retrieves the value for the specified key as a string.
func (ec ExecutionContext) GetString(key string) (string, bool) {
	val, ok := ec[key]
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// GetInt retrieves the value for the specified key as an int.
func (ec ExecutionContext) GetInt(key string) (int, bool) {
	val, ok := ec[key]
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

// Copy creates a shallow copy of the ExecutionContext.
func (ec ExecutionContext) Copy() ExecutionContext {
	newEC := make(ExecutionContext, len(ec))
	for k, v := range ec {
		newEC[k] = v
	}
	return newEC
}

// JobParameters holds the string parameters a job was launched with (--param key=value).
type JobParameters struct {
	Params map[string]string
}

// NewJobParameters creates a new instance of JobParameters.
func NewJobParameters() JobParameters {
	return JobParameters{Params: make(map[string]string)}
}

// Put sets a parameter.
func (jp JobParameters) Put(key, value string) {
	jp.Params[key] = value
}

// Get retrieves a parameter.
func (jp JobParameters) Get(key string) (string, bool) {
	v, ok := jp.Params[key]
	return v, ok
}

// ParseJobParameters parses "key=value" pairs. Later pairs override earlier ones.
func ParseJobParameters(pairs []string) (JobParameters, error) {
	jp := NewJobParameters()
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return jp, fmt.Errorf("invalid job parameter %q: expected key=value", p)
		}
		jp.Put(key, value)
	}
	return jp, nil
}

// String returns the parameters as JSON with sorted keys.
func (jp JobParameters) String() string {
	keys := make([]string, 0, len(jp.Params))
	for k := range jp.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := make([]string, 0, len(keys))
	for _, k := range keys {
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(jp.Params[k])
		ordered = append(ordered, string(kb)+":"+string(vb))
	}
	return "{" + strings.Join(ordered, ",") + "}"
}

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}
