// internal/models/records.go
package models

import "reflect"

// Sentinel is the single-character token the ELB access log format uses for
// absent or inapplicable fields.
const Sentinel = "-"

// Record is one log line's worth of ingestion output: a top-level _time plus
// flat string attributes. Implemented by ParsedRecord and FailureRecord.
type Record interface {
	isRecord()
}

// ParsedRecord is a successfully parsed ELB access log line. Every attribute
// is a string; absent fields are empty, never the sentinel literal.
type ParsedRecord struct {
	Time                   string `json:"_time"`
	Type                   string `json:"type"`
	Client                 string `json:"client"`
	ClientPort             string `json:"client_port"`
	Target                 string `json:"target"`
	TargetPort             string `json:"target_port"`
	RequestProcessingTime  string `json:"request_processing_time"`
	TargetProcessingTime   string `json:"target_processing_time"`
	ResponseProcessingTime string `json:"response_processing_time"`
	ELBStatusCode          string `json:"elb_status_code"`
	TargetStatusCode       string `json:"target_status_code"`
	ReceivedBytes          string `json:"received_bytes"`
	SentBytes              string `json:"sent_bytes"`
	Method                 string `json:"method"`
	URL                    string `json:"url"`
	Protocol               string `json:"protocol"`
	UserAgent              string `json:"user_agent"`
	SSLCipher              string `json:"ssl_cipher"`
	SSLProtocol            string `json:"ssl_protocol"`
	TraceID                string `json:"trace_id"`
	DomainName             string `json:"domain_name"`
	MatchedRulePriority    string `json:"matched_rule_priority"`
	RequestCreationTime    string `json:"request_creation_time"`
	ActionsExecuted        string `json:"actions_executed"`
	RedirectURL            string `json:"redirect_url"`
	ErrorReason            string `json:"error_reason"`
	TargetPortList         string `json:"target_port_list"`
	TargetStatusCodeList   string `json:"target_status_code_list"`
	Classification         string `json:"classification"`
	ClassificationReason   string `json:"classification_reason"`
	TID                    string `json:"tid"`
	Service                string `json:"service"`
	RawLog                 string `json:"raw_log"`
}

func (*ParsedRecord) isRecord() {}

// FailureRecord marks a line that did not match the access log grammar. The
// line is counted and forwarded so consumers see an explicit gap rather than
// a silently dropped record.
type FailureRecord struct {
	Time  string `json:"_time"`
	Error string `json:"error"`
}

func (*FailureRecord) isRecord() {}

// NormalizeSentinels replaces the sentinel with the empty string in every
// declared string field. Sweeping the whole struct keeps the no-sentinel
// invariant independent of how individual fields were populated.
func (r *ParsedRecord) NormalizeSentinels() {
	v := reflect.ValueOf(r).Elem()
	for i := 0; i < v.NumField(); i++ {
		if f := v.Field(i); f.Kind() == reflect.String && f.String() == Sentinel {
			f.SetString("")
		}
	}
}
