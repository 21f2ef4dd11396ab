package submit

import (
	"fmt"

	"github.com/matzehuels/pipewright/pkg/errors"
)

// OutcomeKind classifies what the user is told after a submission.
type OutcomeKind string

const (
	// OutcomeResult is a successful analysis, DAG or not.
	OutcomeResult OutcomeKind = "result"
	// OutcomeInvalid is a submission refused before any request (empty graph).
	OutcomeInvalid OutcomeKind = "invalid"
	// OutcomeFailure is any transport, status or response failure.
	OutcomeFailure OutcomeKind = "failure"
)

// Outcome is the presentation-neutral record of a finished submission.
type Outcome struct {
	Kind         OutcomeKind
	Title        string
	Message      string
	NumNodes     int
	NumEdges     int
	IsDAG        bool
	Code         errors.Code // set for invalid and failure outcomes
	SubmissionID string
}

// Interpret folds the result of Client.Submit into one Outcome. No raw error
// value escapes; the message carries its user-facing text.
func Interpret(res Result, err error) Outcome {
	if err == nil {
		title := "Pipeline is a DAG"
		if !res.IsDAG {
			title = "Not a DAG"
		}
		return Outcome{
			Kind:         OutcomeResult,
			Title:        title,
			Message:      fmt.Sprintf("%s, %s", plural(res.NumNodes, "node"), plural(res.NumEdges, "edge")),
			NumNodes:     res.NumNodes,
			NumEdges:     res.NumEdges,
			IsDAG:        res.IsDAG,
			SubmissionID: res.SubmissionID,
		}
	}

	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	out := Outcome{Kind: OutcomeFailure, Title: "Submission failed", Code: code}
	switch code {
	case errors.ErrCodeEmptyGraph:
		out.Kind = OutcomeInvalid
		out.Title = "Nothing to submit"
		out.Message = "Add at least one node before running the pipeline."
	case errors.ErrCodeServiceUnreachable:
		out.Message = "The validation service could not be reached."
	case errors.ErrCodeHTTPStatus:
		out.Message = "The validation service returned an error."
		var se *errors.HTTPStatusError
		if errors.As(err, &se) {
			out.Message = fmt.Sprintf("The validation service returned HTTP %d.", se.StatusCode)
		}
	case errors.ErrCodeMalformedResponse:
		out.Message = "The validation service sent an unexpected response."
	default:
		out.Message = errors.UserMessage(err)
	}
	return out
}

// Failed reports whether the outcome is not a service result.
func (o Outcome) Failed() bool { return o.Kind != OutcomeResult }

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
