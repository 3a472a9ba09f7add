package ipc

// CommandRequest carries one operator command line.
type CommandRequest struct {
	Line string `json:"line"`
}

// CommandResponse is the dispatcher reply.
type CommandResponse struct {
	Command string `json:"command"`
	Text    string `json:"text"`
	Stop    bool   `json:"stop"`
}

// StatusRequest fetches the session status.
type StatusRequest struct{}

// StatusResponse is the wire form of pipeline.Status.
type StatusResponse struct {
	SessionID     string  `json:"session_id"`
	Phase         string  `json:"phase"`
	Paused        bool    `json:"paused"`
	StopReason    string  `json:"stop_reason"`
	ElapsedMillis int64   `json:"elapsed_ms"`
	Captured      uint64  `json:"captured"`
	Accepted      uint64  `json:"accepted"`
	Saved         uint64  `json:"saved"`
	Skipped       uint64  `json:"skipped"`
	Dropped       uint64  `json:"dropped"`
	Similarity    float64 `json:"similarity"`
	CaptureQueue  int     `json:"capture_queue"`
	EncodeQueue   int     `json:"encode_queue"`
	Destination   string  `json:"destination"`
	PID           int     `json:"pid"`
}
