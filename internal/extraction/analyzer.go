package extraction

// Analyzer defines the interface for the external document analysis service
type Analyzer interface {
	// AnalyzeExpense runs field detection on a stored document and returns
	// the analyzed-expense payload, one expense document per page
	AnalyzeExpense(document []byte, contentType string) (*AnalyzedExpense, error)
	// Close closes the analyzer and releases resources
	Close() error
}
