package domain

import "strings"

type Stage string

const (
	StageNormalize Stage = "normalize"
	StageRetrieve  Stage = "retrieve"
	StageFuse      Stage = "fuse"
	StageRerank    Stage = "rerank"
	StageAssemble  Stage = "assemble"
)

// Status is "ok", "degraded:<reason>" or "failed:<reason>". Degraded runs
// still carry results; only failed runs return empty result lists.
type Status string

const StatusOK Status = "ok"

const (
	ReasonChannelTimeout       = "channel_timeout"
	ReasonChannelError         = "channel_error"
	ReasonRerankUnavailable    = "rerank_unavailable"
	ReasonRetrievalUnavailable = "retrieval_unavailable"
	ReasonDeadline             = "deadline"
)

func DegradedStatus(reason string) Status {
	return Status("degraded:" + reason)
}

func FailedStatus(parts ...string) Status {
	return Status("failed:" + strings.Join(parts, ":"))
}

func (s Status) IsDegraded() bool {
	return strings.HasPrefix(string(s), "degraded:")
}

func (s Status) IsFailed() bool {
	return strings.HasPrefix(string(s), "failed:")
}

// Class reduces a status to its metric label: ok, degraded or failed.
func (s Status) Class() string {
	if i := strings.IndexByte(string(s), ':'); i > 0 {
		return string(s)[:i]
	}
	return string(s)
}

type StageTiming struct {
	Stage      Stage   `json:"stage"`
	DurationMS float64 `json:"duration_ms"`
}

// PipelineOutcome is the orchestrator's return value for one invocation.
// Results may be shorter than the requested k when the deadline or an
// upstream failure truncated work.
type PipelineOutcome struct {
	Results         []RankedResult `json:"results"`
	Status          Status         `json:"status"`
	DegradedReasons []string       `json:"degraded_reasons,omitempty"`
	Timings         []StageTiming  `json:"timings"`
}
