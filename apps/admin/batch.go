package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) recomputeBatch(ctx context.Context, id string) error {
	b, err := cli.batches.RecomputeStatus(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "batch %s (%s / %s / %s)\n", b.ID, b.ClassID, b.Term, b.ExamType)
	fmt.Fprintf(cli.out, "  status: %s\n", b.Status)
	fmt.Fprintf(cli.out, "  progress: %d/%d (%.0f%%)\n", b.GradesEntered, b.TotalStudents, b.Progress()*100)
	return nil
}
