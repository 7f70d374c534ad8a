package protocol

import (
	"slices"

	"github.com/hivegate/hivegate/pkg/herr"
)

// ResourceLimitRemediation is the human-readable message attached to a
// rejection caused by the terminal priority sentinel.
const ResourceLimitRemediation = "The resources you requested exceed the limit in the admission rules. " +
	"Please reduce the SKU count or wait for your running jobs to finish."

// Validate parses and validates a raw protocol document in one step.
func Validate(raw []byte) (*Spec, error) {
	spec, err := Parse(raw)
	if err != nil {
		return nil, herr.Newf(herr.CodeInvalidSpecification, "malformed protocol document: %v", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Validate checks the spec against the protocol schema, normalizes the
// list-shaped prerequisites and deployments sections into name-keyed
// mappings, verifies every cross reference, and applies the terminal
// priority policy. Normalization happens once; re-validating an
// already-validated spec only re-runs the schema, reference and policy
// checks.
func (s *Spec) Validate() error {
	if err := s.checkSchema(); err != nil {
		return err
	}
	if !s.normalized {
		if err := s.normalize(); err != nil {
			return err
		}
	}
	if err := s.checkReferences(); err != nil {
		return err
	}
	// Terminal policy: the fail sentinel means an admission rule already
	// rejected this submission.
	if s.PriorityClass() == PriorityFail {
		return herr.Newf(herr.CodeResourceLimit, "%s", ResourceLimitRemediation)
	}
	return nil
}

func (s *Spec) checkSchema() error {
	if s.Name == "" {
		return herr.Newf(herr.CodeInvalidSpecification, "name is required")
	}
	if s.Type != "job" {
		return herr.Newf(herr.CodeInvalidSpecification, "type must be %q, got %q", "job", s.Type)
	}
	if len(s.TaskRoles) == 0 {
		return herr.Newf(herr.CodeInvalidSpecification, "at least one task role is required")
	}
	for name, role := range s.TaskRoles {
		if role == nil {
			return herr.Newf(herr.CodeInvalidSpecification, "task role %q is empty", name)
		}
		if role.Instances < 0 {
			return herr.Newf(herr.CodeInvalidSpecification, "task role %q: instances must not be negative", name)
		}
		if role.DockerImage == "" {
			return herr.Newf(herr.CodeInvalidSpecification, "task role %q: dockerImage is required", name)
		}
		if len(role.Commands) == 0 {
			return herr.Newf(herr.CodeInvalidSpecification, "task role %q: commands must not be empty", name)
		}
		if role.ResourcePerInstance.GPU < 0 || role.ResourcePerInstance.CPU < 0 || role.ResourcePerInstance.MemoryMB < 0 {
			return herr.Newf(herr.CodeInvalidSpecification, "task role %q: resource requests must not be negative", name)
		}
	}
	for _, prereq := range s.Prerequisites {
		if prereq.Name == "" {
			return herr.Newf(herr.CodeInvalidSpecification, "prerequisite without a name")
		}
		if !slices.Contains(PrereqTypes, prereq.Type) {
			return herr.Newf(herr.CodeInvalidSpecification, "prerequisite %q: unknown type %q", prereq.Name, prereq.Type)
		}
	}
	for _, deployment := range s.Deployments {
		if deployment.Name == "" {
			return herr.Newf(herr.CodeInvalidSpecification, "deployment without a name")
		}
	}
	if priority := s.PriorityClass(); priority != "" && !slices.Contains(PriorityClasses, priority) {
		return herr.Newf(herr.CodeInvalidSpecification, "unknown job priority class %q", priority)
	}
	return nil
}

// normalize builds the name-keyed views over prerequisites and
// deployments, rejecting duplicates. One-way: the flag prevents a second
// pass over already-normalized input.
func (s *Spec) normalize() error {
	s.prereqIndex = make(map[string]map[string]*Prerequisite, len(PrereqTypes))
	for _, prereqType := range PrereqTypes {
		s.prereqIndex[prereqType] = make(map[string]*Prerequisite)
	}
	for _, prereq := range s.Prerequisites {
		byName := s.prereqIndex[prereq.Type]
		if _, exists := byName[prereq.Name]; exists {
			return herr.Newf(herr.CodeDuplicatePrereq, "duplicate %s prerequisite %q", prereq.Type, prereq.Name)
		}
		byName[prereq.Name] = prereq
	}

	s.deployIndex = make(map[string]*Deployment, len(s.Deployments))
	for _, deployment := range s.Deployments {
		if _, exists := s.deployIndex[deployment.Name]; exists {
			return herr.Newf(herr.CodeDuplicateDeployment, "duplicate deployment %q", deployment.Name)
		}
		s.deployIndex[deployment.Name] = deployment
	}

	s.normalized = true
	return nil
}

func (s *Spec) checkReferences() error {
	// Any prerequisite name, regardless of type, satisfies a task role's
	// prerequisites list.
	names := make(map[string]bool)
	for _, byName := range s.prereqIndex {
		for name := range byName {
			names[name] = true
		}
	}

	for roleName, role := range s.TaskRoles {
		for _, prereq := range role.Prerequisites {
			if !names[prereq] {
				return herr.Newf(herr.CodeMissingReference, "task role %q: prerequisite %q does not exist", roleName, prereq)
			}
		}
		refs := []struct {
			prereqType string
			name       string
		}{
			{PrereqScript, role.Script},
			{PrereqOutput, role.Output},
			{PrereqData, role.Data},
			{PrereqDockerImage, role.DockerImage},
		}
		for _, ref := range refs {
			if ref.name == "" {
				continue
			}
			if _, ok := s.prereqIndex[ref.prereqType][ref.name]; !ok {
				return herr.Newf(herr.CodeMissingReference, "task role %q: %s prerequisite %q does not exist", roleName, ref.prereqType, ref.name)
			}
		}
	}

	if s.Defaults != nil && s.Defaults.Deployment != "" {
		if _, ok := s.deployIndex[s.Defaults.Deployment]; !ok {
			return herr.Newf(herr.CodeMissingReference, "default deployment %q does not exist", s.Defaults.Deployment)
		}
	}
	return nil
}
