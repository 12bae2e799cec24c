package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"repofix/internal/archive"
	"repofix/internal/fileset"
	"repofix/internal/fixer"
	"repofix/internal/gateway/app"
	"repofix/internal/llm"
	"repofix/internal/prompt"
	"repofix/internal/safeio"
)

type fixFlags struct {
	instructions  string
	lint          bool
	comments      bool
	out           string
	skipBinary    bool
	includeHidden bool
}

func newFixCmd(c *cli) *cobra.Command {
	f := &fixFlags{}
	cmd := &cobra.Command{
		Use:   "fix DIR",
		Short: "Fix a local project directory and write the result as a zip",
		Example: `  repofix fix ./myapp --instructions "the login form never submits" --lint
  repofix fix . --out /tmp/fixed.zip --skip-binary`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFix(cmd, c, f, args[0])
		},
	}
	cmd.Flags().StringVarP(&f.instructions, "instructions", "i", "", "what is wrong and what to change")
	cmd.Flags().BoolVar(&f.lint, "lint", false, "also ask for linting fixes")
	cmd.Flags().BoolVar(&f.comments, "comments", false, "also ask for explanatory comments")
	cmd.Flags().StringVarP(&f.out, "out", "o", archive.DefaultFilename, "archive to write")
	cmd.Flags().BoolVar(&f.skipBinary, "skip-binary", false, "leave out files that are not UTF-8 instead of failing")
	cmd.Flags().BoolVar(&f.includeHidden, "include-hidden", false, "include dot-files and dot-directories")
	return cmd
}

func runFix(cmd *cobra.Command, c *cli, f *fixFlags, dir string) error {
	ctx := cmd.Context()
	root, err := safeio.NewSafeFS(dir)
	if err != nil {
		return fmt.Errorf("open %s: %w", dir, err)
	}
	files, report, err := fileset.LoadDir(root, fileset.LoadOptions{
		IncludeHidden: f.includeHidden,
		SkipBinary:    f.skipBinary,
	})
	if err != nil {
		return fmt.Errorf("load %s: %w", dir, err)
	}
	for _, p := range report.SkippedBinary {
		c.logger.Warn("skipping non-UTF-8 file", zap.String("path", p))
	}

	client, err := llm.New(ctx, app.LLMOptions(*c.cfg), c.logger)
	if err != nil {
		return err
	}
	defer client.Close()

	svc := fixer.New(client, app.FixerLimits(*c.cfg), c.logger)
	res, err := svc.Fix(ctx, files, prompt.Options{
		Instructions: f.instructions,
		FixLint:      f.lint,
		AddComments:  f.comments,
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.out, res.Archive, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.out, err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "wrote %s: %d files, %d changed\n", f.out, res.Files.Len(), len(res.Report.Changed))
	for _, p := range res.Report.Changed {
		fmt.Fprintf(w, "  M %s\n", p)
	}
	for _, p := range res.Report.Dropped {
		fmt.Fprintf(w, "  ? %s (not in upload, ignored)\n", p)
	}
	return nil
}
