package agent

import (
	"errors"
	"strings"
)

// Spec describes an agent's identity. It is copied into the Agent at
// construction and never changes afterwards.
type Spec struct {
	Name        string `json:"name"`
	Specialty   string `json:"specialty"`
	Description string `json:"description"`
}

// Validate checks the fields required to build an agent.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("agent spec: name is required")
	}
	if strings.TrimSpace(s.Specialty) == "" {
		return errors.New("agent spec: specialty is required")
	}
	return nil
}
