package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/johny-c/lagom/internal/domain"
	"github.com/johny-c/lagom/internal/lint"
	"github.com/johny-c/lagom/internal/reqfile"
)

var lintDisabled []string

var lintCmd = &cobra.Command{
	Use:   "lint [file...]",
	Short: "Lint requirements manifests",
	Long: `Parses each manifest and reports grammar errors, conflicting version
constraints, duplicate entries, non-canonical names, and unbounded
requirements. Exits non-zero if any error-severity finding is reported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLint,
}

func init() {
	lintCmd.Flags().StringSliceVar(&lintDisabled, "disable", nil, "Rule IDs to skip (grammar and conflict cannot be disabled)")
}

func runLint(cmd *cobra.Command, args []string) error {
	linter := lint.New(lintDisabled)
	totalErrors := 0

	for _, path := range args {
		m, err := reqfile.Load(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}

		findings := linter.Run(m)
		counts := domain.CountBySeverity(findings)
		totalErrors += counts[domain.SeverityError]

		printReport(path, m, findings, counts)
	}

	if totalErrors > 0 {
		os.Exit(1)
	}
	return nil
}

func printReport(path string, m *domain.Manifest, findings []*domain.Finding, counts map[domain.Severity]int) {
	fmt.Printf("%s: %d requirements\n", color.CyanString(path), len(m.Requirements))

	for _, f := range findings {
		sev := color.YellowString("warning")
		if f.Severity == domain.SeverityError {
			sev = color.RedString("error")
		}
		pkg := ""
		if f.Package != "" {
			pkg = " " + color.HiBlackString("("+f.Package+")")
		}
		fmt.Printf("  %s:%d %s %s %s%s\n", path, f.Line, sev, color.HiBlackString(f.Rule), f.Message, pkg)
	}

	if counts[domain.SeverityError] == 0 && counts[domain.SeverityWarning] == 0 {
		fmt.Printf("  %s\n", color.GreenString("ok"))
		return
	}
	fmt.Printf("  %d errors, %d warnings\n", counts[domain.SeverityError], counts[domain.SeverityWarning])
}

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Show the merged version constraints per package",
	Long: `Folds every specifier clause in the manifest into one constraint set
per package and prints the effective interval, pins, and exclusions.
Unsatisfiable sets are flagged.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	m, err := reqfile.Load(args[0])
	if err != nil {
		return fmt.Errorf("load %s: %w", args[0], err)
	}

	byName := make(map[string][]*domain.Requirement)
	for _, r := range m.Requirements {
		byName[r.Canonical] = append(byName[r.Canonical], r)
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	conflicts := 0
	for _, name := range names {
		cs := lint.Merge(name, byName[name])
		if ok, reason := cs.Check(); !ok {
			conflicts++
			fmt.Printf("%s: %s %s\n", color.CyanString(name), cs, color.RedString("unsatisfiable: "+reason))
			continue
		}
		fmt.Printf("%s: %s\n", color.CyanString(name), cs)
	}

	if conflicts > 0 {
		fmt.Printf("\n%d unsatisfiable packages\n", conflicts)
		os.Exit(1)
	}
	return nil
}

var fmtWrite bool

var fmtCmd = &cobra.Command{
	Use:   "fmt [file...]",
	Short: "Rewrite manifests in normalized form",
	Long: `Reprints each manifest with normalized version numbers, one requirement
per line, grouped under its comment headers. Without -w the result is
written to stdout.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFmt,
}

func init() {
	fmtCmd.Flags().BoolVarP(&fmtWrite, "write", "w", false, "Write result back to the source file instead of stdout")
}

func runFmt(cmd *cobra.Command, args []string) error {
	for _, path := range args {
		m, err := reqfile.Load(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		if len(m.Invalid) > 0 {
			return fmt.Errorf("%s:%d: cannot format manifest with invalid lines: %s",
				path, m.Invalid[0].Line, m.Invalid[0].Reason)
		}

		if fmtWrite {
			if err := reqfile.Save(path, m); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			continue
		}
		if err := reqfile.Write(os.Stdout, m); err != nil {
			return err
		}
	}
	return nil
}
