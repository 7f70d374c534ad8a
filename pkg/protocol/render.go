package protocol

import (
	"strings"

	"github.com/hivegate/hivegate/pkg/template"
)

// Render resolves template expressions in place and assembles each task
// role's entrypoint. It must run on a validated (normalized) spec and
// has no failure path: unresolved expressions stay in the output
// verbatim. Rendering an already-rendered spec with nothing left to
// resolve is a no-op.
func (s *Spec) Render() *Spec {
	renderer := template.New(template.DefaultOpen, template.DefaultClose)

	// Docker image credentials resolve against $secrets only. Secrets
	// are kept away from command rendering so they cannot leak into
	// logs or container manifests.
	for _, image := range s.prereqIndex[PrereqDockerImage] {
		if image.Auth == nil {
			continue
		}
		secretsRoot := map[string]any{"$secrets": s.Secrets}
		for key, value := range image.Auth {
			image.Auth[key] = renderer.Render(value, secretsRoot)
		}
	}

	deployment := s.DefaultDeployment()
	for roleName, role := range s.TaskRoles {
		commands := role.Commands
		if deployment != nil {
			if overlay := deployment.TaskRoles[roleName]; overlay != nil {
				merged := make([]string, 0, len(overlay.PreCommands)+len(commands)+len(overlay.PostCommands))
				merged = append(merged, overlay.PreCommands...)
				merged = append(merged, commands...)
				merged = append(merged, overlay.PostCommands...)
				commands = merged
			}
		}

		trimmed := make([]string, len(commands))
		for i, command := range commands {
			trimmed[i] = strings.TrimSpace(command)
		}

		roots := map[string]any{
			"$parameters": s.Parameters,
			"$script":     s.Prerequisite(PrereqScript, role.Script).templateContext(),
			"$output":     s.Prerequisite(PrereqOutput, role.Output).templateContext(),
			"$data":       s.Prerequisite(PrereqData, role.Data).templateContext(),
		}
		role.Entrypoint = renderer.Render(strings.Join(trimmed, "\n"), roots)
	}
	return s
}
