package contracts

import "context"

// ResultSink receives the output of one run.
// Implementations must write the ledger and the optional summary atomically.
type ResultSink interface {
	SaveRun(ctx context.Context, market string, ledger []TradeLedgerRow, summary *SummaryRow) error
	// ClearRun deletes the ledger and summary of one (market, stock, method) key
	ClearRun(ctx context.Context, market, stockID string, method Method) error
}

// Outcome classifies how a run ended when it did not fail
type Outcome string

const (
	// OutcomeCompleted ledger and summary were produced
	OutcomeCompleted Outcome = "completed"
	// OutcomeNoSignals no bar carried a buy signal; earlier rows of the key are removed
	OutcomeNoSignals Outcome = "no_signals"
	// OutcomeShortHistory ledger only; elapsed time too short to annualize
	OutcomeShortHistory Outcome = "short_history"
	// OutcomeInvalidState ledger only; the summary was undefined
	OutcomeInvalidState Outcome = "invalid_state"
)
