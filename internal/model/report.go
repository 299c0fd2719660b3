package model

// LanguageLOC is an estimated lines-of-code split for one language within a
// commit. The backend derives it from repository language ratios, so the
// numbers are estimates, not exact per-commit counts.
type LanguageLOC struct {
	EstimatedAdditions int `json:"estimated_additions"`
	EstimatedDeletions int `json:"estimated_deletions"`
}

// CommitRecord is one unit of work fetched for a reporting window.
type CommitRecord struct {
	Message   string `json:"message"`
	Repo      string `json:"repo"`
	Date      string `json:"date"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`

	// Optional; absent when the backend cannot attribute languages.
	LOCPerLanguage map[string]LanguageLOC `json:"loc_per_language,omitempty"`

	// Percentage share per language. Values are floating estimates and are
	// not guaranteed to sum to 100.
	LanguageDistribution map[string]float64 `json:"language_distribution,omitempty"`
}

// ElaboratedCommit is a commit after elaboration. All numeric and
// per-language fields are carried through from the source CommitRecord.
type ElaboratedCommit struct {
	Original    string `json:"original"`
	Elaboration string `json:"elaboration"`
	Repo        string `json:"repo"`
	Date        string `json:"date"`
	Additions   int    `json:"additions"`
	Deletions   int    `json:"deletions"`

	LOCPerLanguage       map[string]LanguageLOC `json:"loc_per_language,omitempty"`
	LanguageDistribution map[string]float64     `json:"language_distribution,omitempty"`
}

// Report is the result of elaborating a commit list. ElaboratedCommits keeps
// the order of the commits submitted for generation.
type Report struct {
	ElaboratedCommits []ElaboratedCommit `json:"elaborated_commits"`
	Summary           string             `json:"summary,omitempty"`
}

// User is the identity returned by the auth status endpoint.
type User struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}
