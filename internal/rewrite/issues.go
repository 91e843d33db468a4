package rewrite

import "fmt"

// IssueKind classifies a handled problem. Handled problems never abort a run.
type IssueKind string

const (
	IssueFileNotFound        IssueKind = "file-not-found"
	IssueAmbiguousRelativity IssueKind = "ambiguous-relativity"
	IssueMalformedReference  IssueKind = "malformed-reference"
	IssueScriptSyntax        IssueKind = "script-syntax"
)

// Issue is one handled problem recorded during a run.
type Issue struct {
	File    string    `json:"file"`
	Kind    IssueKind `json:"kind"`
	Message string    `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Kind, i.File, i.Message)
}
