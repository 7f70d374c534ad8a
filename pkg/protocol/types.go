// Package protocol implements parsing, validation and rendering of the
// YAML job protocol accepted by the gateway.
package protocol

import (
	"gopkg.in/yaml.v3"
)

// Priority classes understood by the scheduler extras block. Fail is a
// terminal sentinel: a submission carrying it has exceeded an admission
// rule and is rejected, never scheduled.
const (
	PriorityTest    = "test"
	PriorityDefault = "default"
	PriorityProd    = "prod"
	PriorityFail    = "fail"
)

// PriorityClasses lists the values accepted in
// extras.hivedScheduler.jobPriorityClass (the field may also be absent).
var PriorityClasses = []string{PriorityTest, PriorityDefault, PriorityProd, PriorityFail}

// Prerequisite types. PrereqFields maps the task-role reference fields
// onto the prerequisite type each must resolve against.
const (
	PrereqScript      = "script"
	PrereqOutput      = "output"
	PrereqData        = "data"
	PrereqDockerImage = "dockerimage"
)

// PrereqTypes is the closed set of prerequisite types.
var PrereqTypes = []string{PrereqScript, PrereqOutput, PrereqData, PrereqDockerImage}

// Spec is the in-memory form of a job submission. It is built fresh per
// request from raw YAML, mutated in place through the pipeline, and
// discarded after handoff.
type Spec struct {
	// ProtocolVersion is 2 in current documents but has historically been
	// a string; accept either.
	ProtocolVersion any `yaml:"protocolVersion,omitempty"`
	Name            string `yaml:"name"`
	Type            string `yaml:"type"`
	Version         string `yaml:"version,omitempty"`
	Contributor     string `yaml:"contributor,omitempty"`
	Description     string `yaml:"description,omitempty"`

	Prerequisites []*Prerequisite `yaml:"prerequisites,omitempty"`

	// Parameters can be referenced by command templates via $parameters.
	Parameters map[string]any `yaml:"parameters,omitempty"`

	// Secrets are only ever exposed to docker-image credential
	// rendering, never to command rendering.
	Secrets map[string]any `yaml:"secrets,omitempty"`

	TaskRoles   map[string]*TaskRole `yaml:"taskRoles"`
	Deployments []*Deployment        `yaml:"deployments,omitempty"`
	Defaults    *Defaults            `yaml:"defaults,omitempty"`
	Extras      *Extras              `yaml:"extras,omitempty"`

	// prereqIndex and deployIndex are the normalized, name-keyed views
	// over the list-shaped sections, built by Validate. Normalization is
	// one-way; the flag lets re-validation of an already-normalized spec
	// skip it.
	prereqIndex map[string]map[string]*Prerequisite
	deployIndex map[string]*Deployment
	normalized  bool
}

// Prerequisite is a named, typed artifact referenced by task roles.
// URI may be a single string or a sequence (data prerequisites commonly
// carry several locations, addressed positionally in templates).
type Prerequisite struct {
	Type        string            `yaml:"type"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Contributor string            `yaml:"contributor,omitempty"`
	URI         any               `yaml:"uri,omitempty"`
	Auth        map[string]string `yaml:"auth,omitempty"`
}

// templateContext exposes the whole prerequisite record to the renderer
// as a plain map, the shape path lookups understand. Commands may
// reference any field, not just the uri.
func (p *Prerequisite) templateContext() map[string]any {
	if p == nil {
		return nil
	}
	ctx := map[string]any{
		"type": p.Type,
		"name": p.Name,
	}
	if p.Description != "" {
		ctx["description"] = p.Description
	}
	if p.Contributor != "" {
		ctx["contributor"] = p.Contributor
	}
	if p.URI != nil {
		ctx["uri"] = p.URI
	}
	if p.Auth != nil {
		ctx["auth"] = p.Auth
	}
	return ctx
}

// TaskRole describes one homogeneous group of task instances.
type TaskRole struct {
	Instances       int      `yaml:"instances,omitempty"`
	CompletionCount int      `yaml:"completion,omitempty"`
	DockerImage     string   `yaml:"dockerImage"`
	Script          string   `yaml:"script,omitempty"`
	Output          string   `yaml:"output,omitempty"`
	Data            string   `yaml:"data,omitempty"`
	Prerequisites   []string `yaml:"prerequisites,omitempty"`

	ResourcePerInstance Resource `yaml:"resourcePerInstance"`

	Commands []string `yaml:"commands"`

	// Entrypoint is produced by rendering: overlay-merged, substituted,
	// line-trimmed commands joined with newlines.
	Entrypoint string `yaml:"entrypoint,omitempty"`
}

// Resource is the per-instance resource request of a task role.
type Resource struct {
	CPU      int            `yaml:"cpu"`
	MemoryMB int            `yaml:"memoryMB"`
	GPU      int            `yaml:"gpu"`
	Ports    map[string]int `yaml:"ports,omitempty"`
}

// Deployment is a named overlay of pre/post command fragments merged
// into task-role commands at render time.
type Deployment struct {
	Name      string                        `yaml:"name"`
	TaskRoles map[string]*DeploymentOverlay `yaml:"taskRoles"`
}

// DeploymentOverlay holds the command fragments a deployment contributes
// to one task role.
type DeploymentOverlay struct {
	PreCommands  []string `yaml:"preCommands,omitempty"`
	PostCommands []string `yaml:"postCommands,omitempty"`
}

// Defaults selects the submission-wide virtual cluster and, optionally,
// the deployment overlay applied to all task roles.
type Defaults struct {
	VirtualCluster string `yaml:"virtualCluster,omitempty"`
	Deployment     string `yaml:"deployment,omitempty"`
}

// Extras carries scheduler-specific extensions. Only the hived scheduler
// block is interpreted by the gateway; everything else passes through.
type Extras struct {
	HivedScheduler *HivedScheduler `yaml:"hivedScheduler,omitempty"`
	SubmitFrom     string          `yaml:"submitFrom,omitempty"`
}

// HivedScheduler is the priority block the admission engine reads and
// rewrites.
type HivedScheduler struct {
	JobPriorityClass string `yaml:"jobPriorityClass,omitempty"`
}

// Parse unmarshals a raw protocol document. Schema and referential
// checks happen in Validate.
func Parse(raw []byte) (*Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Marshal serializes the spec back to YAML.
func (s *Spec) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// PriorityClass returns the current priority class, or the empty string
// when the extras block is absent or does not set one.
func (s *Spec) PriorityClass() string {
	if s.Extras == nil || s.Extras.HivedScheduler == nil {
		return ""
	}
	return s.Extras.HivedScheduler.JobPriorityClass
}

// SetPriorityClass sets the priority class, synthesizing the extras
// block when absent so the schema validator always finds the field.
func (s *Spec) SetPriorityClass(priority string) {
	if s.Extras == nil {
		s.Extras = &Extras{}
	}
	if s.Extras.HivedScheduler == nil {
		s.Extras.HivedScheduler = &HivedScheduler{}
	}
	s.Extras.HivedScheduler.JobPriorityClass = priority
}

// VirtualCluster returns the targeted virtual cluster, or the empty
// string when defaults are absent.
func (s *Spec) VirtualCluster() string {
	if s.Defaults == nil {
		return ""
	}
	return s.Defaults.VirtualCluster
}

// RequestedGPU sums instances times per-instance GPUs over all task
// roles: the GPU count this submission asks the cluster for.
func (s *Spec) RequestedGPU() int64 {
	var total int64
	for _, role := range s.TaskRoles {
		instances := role.Instances
		if instances == 0 {
			instances = 1
		}
		total += int64(instances) * int64(role.ResourcePerInstance.GPU)
	}
	return total
}

// Prerequisite returns the normalized prerequisite record of the given
// type and name. Only meaningful after Validate.
func (s *Spec) Prerequisite(prereqType, name string) *Prerequisite {
	if s.prereqIndex == nil {
		return nil
	}
	return s.prereqIndex[prereqType][name]
}

// DefaultDeployment returns the deployment selected by defaults, or nil.
// Only meaningful after Validate.
func (s *Spec) DefaultDeployment() *Deployment {
	if s.Defaults == nil || s.Defaults.Deployment == "" || s.deployIndex == nil {
		return nil
	}
	return s.deployIndex[s.Defaults.Deployment]
}
