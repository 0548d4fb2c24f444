package output

// MacroInfo describes one catalogued macro.
type MacroInfo struct {
	Name      string   `json:"name" yaml:"name"`
	File      string   `json:"file" yaml:"file"`
	Line      int      `json:"line" yaml:"line"`
	Formals   []string `json:"formals" yaml:"formals"`
	BodyLines int      `json:"body_lines" yaml:"body_lines"`
	UpdatedAt string   `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// ListOutput is the structured result of the list command.
type ListOutput struct {
	Macros []MacroInfo `json:"macros" yaml:"macros"`
	Total  int         `json:"total" yaml:"total"`
}

// DiscoverFile summarizes the macros found in one source file.
type DiscoverFile struct {
	File        string           `json:"file" yaml:"file"`
	Macros      []string         `json:"macros" yaml:"macros"`
	Diagnostics []DiagnosticInfo `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// DiscoverOutput is the structured result of the discover command.
type DiscoverOutput struct {
	Files       []DiscoverFile `json:"files" yaml:"files"`
	TotalMacros int            `json:"total_macros" yaml:"total_macros"`
	CatalogPath string         `json:"catalog_path" yaml:"catalog_path"`
}

// DiagnosticInfo is one reported problem.
type DiagnosticInfo struct {
	File     string `json:"file" yaml:"file"`
	Line     int    `json:"line" yaml:"line"`
	Where    string `json:"where" yaml:"where"`
	Severity string `json:"severity" yaml:"severity"`
	Message  string `json:"message" yaml:"message"`
}

// ExpandFile summarizes the expansion of one source file.
type ExpandFile struct {
	File        string           `json:"file" yaml:"file"`
	Output      string           `json:"output,omitempty" yaml:"output,omitempty"` // path written with --out-dir
	Text        string           `json:"text,omitempty" yaml:"text,omitempty"`     // expanded source otherwise
	Lines       int              `json:"lines" yaml:"lines"`
	Expansions  int              `json:"expansions" yaml:"expansions"`
	Definitions int              `json:"definitions" yaml:"definitions"`
	Repeats     int              `json:"repeats" yaml:"repeats"`
	Diagnostics []DiagnosticInfo `json:"diagnostics" yaml:"diagnostics"`
}

// ExpandOutput is the structured result of the expand command.
type ExpandOutput struct {
	RunID  string       `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Files  []ExpandFile `json:"files" yaml:"files"`
	Errors int          `json:"errors" yaml:"errors"`
}

// RunInfo describes one recorded expansion run.
type RunInfo struct {
	ID          string   `json:"id" yaml:"id"`
	Status      string   `json:"status" yaml:"status"`
	Files       []string `json:"files" yaml:"files"`
	Expansions  int      `json:"expansions" yaml:"expansions"`
	Diagnostics int      `json:"diagnostics" yaml:"diagnostics"`
	Error       *string  `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt   string   `json:"started_at" yaml:"started_at"`
	CompletedAt string   `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}
