package workflow

import "time"

// HTTPRequestPayload carries the request that fired an http trigger.
type HTTPRequestPayload struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Query   map[string]string `json:"query,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    []byte            `json:"body,omitempty"`
}

// EmailPayload carries the message that fired an email trigger.
type EmailPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// QueueMessagePayload carries the message that fired a queue trigger.
type QueueMessagePayload struct {
	QueueID string `json:"queueId"`
	Body    []byte `json:"body"`
}

// CronPayload carries the tick that fired a cron trigger.
type CronPayload struct {
	ScheduledAt time.Time `json:"scheduledAt"`
}

// TriggerPayload is the optional per-run trigger data. At most one
// field is set, matching the workflow's trigger type.
type TriggerPayload struct {
	HTTP  *HTTPRequestPayload  `json:"http,omitempty"`
	Email *EmailPayload        `json:"email,omitempty"`
	Queue *QueueMessagePayload `json:"queue,omitempty"`
	Cron  *CronPayload         `json:"cron,omitempty"`
}

// ExecutionContext is the immutable per-run context: the workflow, its
// computed plan, and the identifiers and trigger data of this run.
// It is created once by the runtime and never mutated afterwards.
type ExecutionContext struct {
	Workflow       *Workflow
	Levels         [][]string
	NodeOrder      []string
	WorkflowID     string
	OrganizationID string
	ExecutionID    string
	DeploymentID   string
	Trigger        *TriggerPayload
	MonitorSession string
}
