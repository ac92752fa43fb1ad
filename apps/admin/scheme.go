package main

import (
	"context"
	"fmt"
)

// checkScheme prints the effective scheme of a subject and fails when it is invalid.
func (cli *commandLine) checkScheme(ctx context.Context, subjectID string) error {
	scheme, err := cli.curricula.Scheme(ctx, subjectID)
	if err != nil {
		return err
	}

	source := "stored"
	if scheme.IsDefault {
		source = "default"
	}
	fmt.Fprintf(cli.out, "scheme %s (%s)\n", scheme.SubjectID, source)
	fmt.Fprintf(cli.out, "  weights: coursework %g, exam %g\n", scheme.Weights.Coursework, scheme.Weights.Exam)
	fmt.Fprintf(cli.out, "  boundaries: %s\n", scheme.Boundaries)

	if err := scheme.Validate(); err != nil {
		fmt.Fprintln(cli.out, "  invalid")
		return err
	}
	fmt.Fprintln(cli.out, "  ok")
	return nil
}
