package lsp

type Kind string

const (
	Begin  Kind = "begin"
	Report Kind = "report"
	End    Kind = "end"
)

type WorkDoneProgressCreateParams struct {
	// The token to be used to report progress.
	Token ProgressToken `json:"token,omitempty"`
}

type WorkDoneProgressCancelParams struct {
	Token ProgressToken `json:"token"`
}

type WorkDoneProgressBeginParams struct {
	Token ProgressToken               `json:"token"`
	Value *WorkDoneProgressBeginValue `json:"value"`
}

type WorkDoneProgressBeginValue struct {
	Kind        Kind   `json:"kind"`
	Title       string `json:"title"`
	Cancellable bool   `json:"cancellable,omitempty"`
	Message     string `json:"message,omitempty"`
}

type WorkDoneProgressReportParams struct {
	Token ProgressToken                `json:"token"`
	Value *WorkDoneProgressReportValue `json:"value"`
}

type WorkDoneProgressReportValue struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message,omitempty"`
	// Percentage is between 0 and 100.
	Percentage *uint32 `json:"percentage,omitempty"`
}
