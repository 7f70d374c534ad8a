package schemas

// User is the authenticated principal extracted from the bearer token.
type User struct {
	Username string `json:"username" doc:"Submitter username"`
	Email    string `json:"email,omitempty" doc:"Submitter email"`
}

// SubmissionResponse is the result of an accepted submission.
type SubmissionResponse struct {
	ID                string `json:"id" doc:"Submission ID"`
	Name              string `json:"name" doc:"Job name"`
	EffectivePriority string `json:"effectivePriority" doc:"Priority class the job was admitted at"`
	Protocol          string `json:"protocol" doc:"Validated, rendered protocol document (YAML)"`
}
