package elaborate

import (
	"fmt"
	"strings"

	"codereport/internal/model"
)

const summarySystemPrompt = `You are an assistant summarizing commit activity from multiple repositories. ` +
	`Based on the following elaborated commits, give an overall summary grouped by categories like: ` +
	`features added, bugs fixed, refactoring, documentation, tests, etc. Be concise but informative.`

func elaborationPrompt(message string) string {
	return fmt.Sprintf("Explain the commit message in 40 words: %s", message)
}

func summaryPrompt(commits []model.ElaboratedCommit) string {
	var b strings.Builder
	for i, commit := range commits {
		fmt.Fprintf(&b, "Commit %d:\n", i+1)
		fmt.Fprintf(&b, "Repository: %s\n", commit.Repo)
		fmt.Fprintf(&b, "Date: %s\n", commit.Date)
		fmt.Fprintf(&b, "Elaboration: %s\n", commit.Elaboration)
		fmt.Fprintf(&b, "Additions: %d, Deletions: %d\n", commit.Additions, commit.Deletions)
		if len(commit.LanguageDistribution) > 0 {
			fmt.Fprintf(&b, "Languages Used: %v\n", commit.LanguageDistribution)
		}
		if len(commit.LOCPerLanguage) > 0 {
			fmt.Fprintf(&b, "LOC Per Language: %v\n", commit.LOCPerLanguage)
		}
		b.WriteString("\n")
	}
	return b.String()
}
