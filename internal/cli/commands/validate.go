package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/zonehop/internal/cli/output"
	"github.com/leapstack-labs/zonehop/internal/location"
	"github.com/leapstack-labs/zonehop/internal/validate"
	"github.com/spf13/cobra"
)

// ValidateOptions holds options for the validate command.
type ValidateOptions struct {
	Reference string
	Candidate string
	Types     []string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Compare two dataset locations without running a job",
		Long: `Compare per-column non-null counts between a reference and a candidate
dataset. With --type, the reference columns are also checked against their
declared types.`,
		Example: `  zonehop validate --reference s3://raw/sales/2024/01 --candidate s3://land/sales/2024/01
  zonehop validate --reference s3://staging/sales --candidate s3://raw/sales \
    --type amount=DecimalType,2 --type email=StringType`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Reference, "reference", "", "URI of the reference dataset")
	cmd.Flags().StringVar(&opts.Candidate, "candidate", "", "URI of the candidate dataset")
	cmd.Flags().StringArrayVar(&opts.Types, "type", nil, "Declared column type as column=Kind[,precision] (repeatable)")
	_ = cmd.MarkFlagRequired("reference")
	_ = cmd.MarkFlagRequired("candidate")

	return cmd
}

// parseTypeFlags turns column=Kind[,precision] values into sorted specs.
func parseTypeFlags(values []string) ([]validate.ColumnTypeSpec, error) {
	specs := make([]validate.ColumnTypeSpec, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		col, raw, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --type %q: want column=Kind[,precision]", v)
		}
		col = strings.TrimSpace(col)
		if seen[col] {
			return nil, fmt.Errorf("invalid --type %q: column %q declared twice", v, col)
		}
		seen[col] = true
		spec, err := validate.ParseColumnTypeSpec(col, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid --type %q: %w", v, err)
		}
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Column < specs[j].Column })
	return specs, nil
}

func runValidate(cmd *cobra.Command, opts *ValidateOptions) error {
	e, err := resolveEnv(cmd)
	if err != nil {
		return err
	}
	specs, err := parseTypeFlags(opts.Types)
	if err != nil {
		return err
	}
	refLoc, err := location.Parse(opts.Reference)
	if err != nil {
		return err
	}
	candLoc, err := location.Parse(opts.Candidate)
	if err != nil {
		return err
	}

	rs, err := openReaderStack(e)
	if err != nil {
		return err
	}
	defer func() { _ = rs.Close() }()

	ctx := cmd.Context()
	ref, err := rs.reader.Read(ctx, refLoc)
	if err != nil {
		return fmt.Errorf("read reference %s: %w", refLoc, err)
	}
	cand, err := rs.reader.Read(ctx, candLoc)
	if err != nil {
		return fmt.Errorf("read candidate %s: %w", candLoc, err)
	}

	counts, countErr := validate.CountParity(ref, cand)
	var types *validate.Result
	var typeErr error
	if len(specs) > 0 {
		var vopts []validate.Option
		if e.cfg.Validation.StrictDecimal {
			vopts = append(vopts, validate.WithStrictDecimal())
		}
		types, typeErr = validate.Datatypes(ref, specs, vopts...)
	}

	report := validate.NewReport(refLoc.String(), candLoc.String(), counts, types)
	if err := e.renderer.Render(report, func(w io.Writer) error {
		renderReport(w, "Validation", report)
		return nil
	}); err != nil {
		return err
	}

	if countErr != nil {
		return countErr
	}
	return typeErr
}

// renderReport prints one row per column and check.
func renderReport(w io.Writer, title string, r *validate.Report) {
	status := "passed"
	if !r.Passed {
		status = "FAILED"
	}
	var rows []table.Row
	for _, res := range r.Results {
		for _, c := range res.Columns {
			rows = append(rows, table.Row{res.Check, c.Column, passMark(c.Passed), intOrDash(c.Reference), intOrDash(c.Candidate), c.Reason})
		}
	}
	title = fmt.Sprintf("%s %s: %s vs %s", title, status, r.Reference, r.Candidate)
	output.Table(w, title, table.Row{"Check", "Column", "Result", "Reference", "Candidate", "Reason"}, rows)
}

func passMark(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAIL"
}

func intOrDash(n *int) string {
	if n == nil {
		return "-"
	}
	return fmt.Sprint(*n)
}
