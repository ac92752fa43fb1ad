package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/trezcool/gradebook/core/batch"
	"github.com/trezcool/gradebook/core/curriculum"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db        *sql.DB
	batches   batch.ServiceInterface
	curricula curriculum.ServiceInterface
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  recomputebatch -id ID - refresh a batch's status and progress from its grades")
	fmt.Fprintln(cli.out, "  checkscheme -subject ID - print and validate the grading scheme of a subject")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	recomputeCmd := flag.NewFlagSet("recomputebatch", flag.ContinueOnError)
	recomputeID := recomputeCmd.String("id", "", "The batch ID.")

	checkSchemeCmd := flag.NewFlagSet("checkscheme", flag.ContinueOnError)
	checkSchemeSubject := checkSchemeCmd.String("subject", "", "The subject ID.")

	ctx := context.Background()

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "recomputebatch":
		recomputeCmd.SetOutput(cli.out)
		if err := recomputeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *recomputeID == "" {
			recomputeCmd.Usage()
			return errHelp
		}
		return cli.recomputeBatch(ctx, *recomputeID)
	case "checkscheme":
		checkSchemeCmd.SetOutput(cli.out)
		if err := checkSchemeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *checkSchemeSubject == "" {
			checkSchemeCmd.Usage()
			return errHelp
		}
		return cli.checkScheme(ctx, *checkSchemeSubject)
	default:
		cli.printUsage()
		return errHelp
	}
}
