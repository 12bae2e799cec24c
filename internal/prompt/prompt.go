// Package prompt renders an uploaded project and the user's fix request
// into the single text prompt sent to the model.
package prompt

import (
	"strings"

	"repofix/internal/fileset"
)

// Literal markers of the reply protocol. The reply parser depends on the
// exact same strings.
const (
	StartMarker = "START_FILE: "
	EndMarker   = "END_FILE"
)

const defaultInstructions = "No specific instructions provided. Please analyze and fix any obvious bugs."

// Options are the user's fix flags for one request.
type Options struct {
	Instructions string
	FixLint      bool
	AddComments  bool
}

// Build assembles the prompt. Files are rendered in insertion order.
func Build(files *fileset.FileSet, opts Options) string {
	parts := []string{
		"You are an expert AI code-fixing agent, BugFixer.ai.",
		"A user has uploaded a project with the following files and structure.",
		"Your task is to fix the bug(s) described in their instructions, preserving the exact file structure.",
		"\n--- USER INSTRUCTIONS ---",
		instructionsOrDefault(opts.Instructions),
		"\n--- OPTIONAL OPTIMIZATIONS ---",
		"- Fix Linting Errors: " + yesNo(opts.FixLint),
		"- Add Explanatory Comments: " + yesNo(opts.AddComments),
		"\n--- PROJECT FILES ---",
	}

	files.Range(func(path, content string) bool {
		parts = append(parts,
			"\n--- File: "+path+" ---",
			content,
			"--- End of File ---",
		)
		return true
	})

	parts = append(parts,
		"\n--- YOUR TASK ---",
		"Generate the corrected code for all files that need changes. "+
			"For each file you modify, you MUST provide the output in the following format, "+
			"and only this format:",
		StartMarker+"[full/path/to/file.js]\n"+
			"[... the complete, corrected code for this file ...]\n"+
			EndMarker,
		"If a file does not need any changes, do not include it in your response.",
	)
	return strings.Join(parts, "\n")
}

func instructionsOrDefault(s string) string {
	if strings.TrimSpace(s) == "" {
		return defaultInstructions
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
