package protocol

import (
	"strings"
	"testing"
)

const renderDoc = `
protocolVersion: 2
name: bert-finetune
type: job
prerequisites:
  - type: dockerimage
    name: nvcr
    uri: nvcr.io/nvidia/pytorch:21.02
    auth:
      username: <% $secrets.registryUser %>
      password: <% $secrets.registryPass %>
      registryuri: nvcr.io
  - type: script
    name: finetune
    uri: https://example.com/finetune.sh
secrets:
  registryUser: svc-user
  registryPass: hunter2
parameters:
  lr: 0.001
taskRoles:
  trainer:
    instances: 1
    dockerImage: nvcr
    script: finetune
    resourcePerInstance:
      cpu: 8
      memoryMB: 16384
      gpu: 2
    commands:
      - "  bash <% $script.uri %> --lr <% $parameters.lr %>  "
      - echo trained
deployments:
  - name: nfs
    taskRoles:
      trainer:
        preCommands:
          - mount /nfs
        postCommands:
          - umount /nfs
defaults:
  virtualCluster: default
  deployment: nfs
extras:
  hivedScheduler:
    jobPriorityClass: test
`

func renderSpec(t *testing.T, doc string) *Spec {
	t.Helper()
	spec, err := Validate([]byte(doc))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	return spec.Render()
}

func TestRender_EntrypointMergesOverlayAndTrims(t *testing.T) {
	spec := renderSpec(t, renderDoc)

	want := strings.Join([]string{
		"mount /nfs",
		"bash https://example.com/finetune.sh --lr 0.001",
		"echo trained",
		"umount /nfs",
	}, "\n")
	if got := spec.TaskRoles["trainer"].Entrypoint; got != want {
		t.Errorf("Entrypoint = %q, want %q", got, want)
	}
}

func TestRender_DockerAuthResolvesSecrets(t *testing.T) {
	spec := renderSpec(t, renderDoc)

	auth := spec.Prerequisite(PrereqDockerImage, "nvcr").Auth
	if auth["username"] != "svc-user" || auth["password"] != "hunter2" {
		t.Errorf("auth not rendered from secrets: %v", auth)
	}
	if auth["registryuri"] != "nvcr.io" {
		t.Errorf("plain auth field changed: %v", auth["registryuri"])
	}
}

func TestRender_SecretsNotExposedToCommands(t *testing.T) {
	doc := strings.Replace(renderDoc,
		"- echo trained",
		"- echo <% $secrets.registryPass %>", 1)
	spec := renderSpec(t, doc)

	entrypoint := spec.TaskRoles["trainer"].Entrypoint
	if strings.Contains(entrypoint, "hunter2") {
		t.Fatalf("secret leaked into entrypoint: %q", entrypoint)
	}
	if !strings.Contains(entrypoint, "<% $secrets.registryPass %>") {
		t.Errorf("secret expression should stay unresolved, got %q", entrypoint)
	}
}

func TestRender_PrerequisiteMetadataResolvable(t *testing.T) {
	doc := strings.Replace(renderDoc,
		"  - type: script\n    name: finetune\n    uri: https://example.com/finetune.sh",
		"  - type: script\n    name: finetune\n    uri: https://example.com/finetune.sh\n    description: nightly-runner\n    contributor: infra-team", 1)
	doc = strings.Replace(doc,
		"- echo trained",
		"- echo <% $script.description %> by <% $script.contributor %>", 1)
	spec := renderSpec(t, doc)

	entrypoint := spec.TaskRoles["trainer"].Entrypoint
	if !strings.Contains(entrypoint, "echo nightly-runner by infra-team") {
		t.Errorf("prerequisite metadata not resolved in %q", entrypoint)
	}
}

func TestRender_UnresolvedExpressionPreserved(t *testing.T) {
	doc := strings.Replace(renderDoc,
		"- echo trained",
		"- echo <% $parameters.missing %>", 1)
	spec := renderSpec(t, doc)

	entrypoint := spec.TaskRoles["trainer"].Entrypoint
	if !strings.Contains(entrypoint, "<% $parameters.missing %>") {
		t.Errorf("unresolved expression dropped from %q", entrypoint)
	}
}

func TestRender_NoOverlayWhenDefaultsAbsent(t *testing.T) {
	doc := strings.Replace(renderDoc,
		"defaults:\n  virtualCluster: default\n  deployment: nfs\n", "", 1)
	spec := renderSpec(t, doc)

	entrypoint := spec.TaskRoles["trainer"].Entrypoint
	if strings.Contains(entrypoint, "mount /nfs") {
		t.Errorf("overlay applied without a default deployment: %q", entrypoint)
	}
}

func TestRender_IdempotentWhenNothingLeftToResolve(t *testing.T) {
	spec := renderSpec(t, renderDoc)
	first := spec.TaskRoles["trainer"].Entrypoint

	// Entrypoints are rebuilt from the original commands, so a second
	// render must produce identical output.
	spec.Render()
	if second := spec.TaskRoles["trainer"].Entrypoint; second != first {
		t.Errorf("re-render changed entrypoint: %q -> %q", first, second)
	}
}
