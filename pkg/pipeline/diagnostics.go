package pipeline

// Diagnostics accumulates the non-fatal problems a run encountered:
// rejected Stage 1 windows, constraint passes that didn't converge,
// speaker-merge clamps. None of these abort the run; all of them are
// worth surfacing to an operator.
type Diagnostics struct {
	RejectedWindows     []RejectedWindow
	SpeakerMerges       int
	ReconcileConverged  bool
	ReconcileIterations int
}

// RejectedWindow records why one Stage 1 window's patch was not applied.
type RejectedWindow struct {
	WindowID int
	Reason   string
}
