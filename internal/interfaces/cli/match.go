package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	apperrors "github.com/trialsync/trialsync/pkg/errors"
)

type matchOptions struct {
	patientID string
	trialID   string
	all       bool
	future    bool
	minScore  int
}

func newMatchCmd() *cobra.Command {
	opts := &matchOptions{minScore: -1}

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Run eligibility matching",
		Long: "Matches one patient against all trials (--patient), one trial against\n" +
			"all patients (--trial), or everything against everything (--all).\n" +
			"With --patient and --future, predicts condition progression and\n" +
			"computes future eligibility instead.",
		Example: `  trialsync match --patient 3f2a... --min-score 60
  trialsync match --trial NCT01234567
  trialsync match --all
  trialsync match --patient 3f2a... --future`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMatch(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.patientID, "patient", "", "patient ID to match")
	f.StringVar(&opts.trialID, "trial", "", "trial ID or NCT ID to match")
	f.BoolVar(&opts.all, "all", false, "match every patient and every trial")
	f.BoolVar(&opts.future, "future", false, "predict progression and match future eligibility (requires --patient)")
	f.IntVar(&opts.minScore, "min-score", -1, "eligibility threshold override (0-100)")

	return cmd
}

func runMatch(cmd *cobra.Command, opts *matchOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	if cliCtx.Client == nil {
		return apperrors.New(apperrors.ErrCodeServiceUnavailable, "API client is not configured")
	}

	modes := 0
	if opts.patientID != "" {
		modes++
	}
	if opts.trialID != "" {
		modes++
	}
	if opts.all {
		modes++
	}
	if modes != 1 {
		return apperrors.InvalidParam("exactly one of --patient, --trial, or --all is required")
	}
	if opts.future && opts.patientID == "" {
		return apperrors.InvalidParam("--future requires --patient")
	}

	var minScore *int
	if opts.minScore >= 0 {
		minScore = &opts.minScore
	}

	ctx := cmd.Context()
	match := cliCtx.Client.Match()

	switch {
	case opts.all:
		out, err := match.All(ctx, minScore)
		if err != nil {
			return err
		}
		if err := PrintResult(cmd, out); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "matched %d patients and %d trials (%d failures)\n",
			out.PatientsMatched, out.TrialsMatched, out.Failures)
		return nil

	case opts.future:
		out, err := match.Future(ctx, opts.patientID)
		if err != nil {
			return err
		}
		return PrintResult(cmd, out)

	case opts.patientID != "":
		out, err := match.Patient(ctx, opts.patientID, minScore)
		if err != nil {
			return err
		}
		return PrintResult(cmd, out)

	default:
		out, err := match.Trial(ctx, opts.trialID, minScore)
		if err != nil {
			return err
		}
		return PrintResult(cmd, out)
	}
}
