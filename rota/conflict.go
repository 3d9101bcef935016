package rota

// =============================================================================
// CONFLICT CLASSIFIER - Dialog outcome for existing records
// =============================================================================

// DialogKind is the three-way conflict policy for a period's existing records.
type DialogKind int

const (
	// EmptySchedule: no existing records; generation may proceed directly.
	EmptySchedule DialogKind = iota

	// UnprocessedRecordsReplace: only unprocessed records exist; the caller
	// may proceed after explicit confirmation, deleting them first.
	UnprocessedRecordsReplace

	// ProcessedRecordsBlock: at least one processed record exists; the run
	// must not proceed, even with replace confirmed.
	ProcessedRecordsBlock
)

func (k DialogKind) String() string {
	switch k {
	case EmptySchedule:
		return "empty"
	case UnprocessedRecordsReplace:
		return "replace"
	case ProcessedRecordsBlock:
		return "blocked"
	default:
		return "unknown"
	}
}

// DialogOutcome is the classification result. Exactly one kind per call;
// the counts are meaningful per kind (Count for replace, ProcessedCount
// and TotalCount for block).
type DialogOutcome struct {
	Kind           DialogKind
	Count          int
	ProcessedCount int
	TotalCount     int
}

// Classify inspects existing records and produces the dialog outcome. Pure
// function of the record set; callers filter with FilterForContract first.
func Classify(records []ExistingRecord) DialogOutcome {
	if len(records) == 0 {
		return DialogOutcome{Kind: EmptySchedule}
	}

	processed := 0
	for _, r := range records {
		if r.Processed() {
			processed++
		}
	}

	// Processed records always block, regardless of how many unprocessed
	// records sit alongside them.
	if processed > 0 {
		return DialogOutcome{
			Kind:           ProcessedRecordsBlock,
			ProcessedCount: processed,
			TotalCount:     len(records),
		}
	}
	return DialogOutcome{Kind: UnprocessedRecordsReplace, Count: len(records)}
}

// FilterForContract drops deleted records and, when contractID is given,
// records referencing a different contract. Records with no contract
// reference are retained.
func FilterForContract(records []ExistingRecord, contractID string) []ExistingRecord {
	out := make([]ExistingRecord, 0, len(records))
	for _, r := range records {
		if r.Deleted {
			continue
		}
		if contractID != "" && r.ContractID != "" && r.ContractID != contractID {
			continue
		}
		out = append(out, r)
	}
	return out
}
