// internal/processor/parser.go
package processor

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/ThourayaBchir/elb-lambda-axiom/internal/models"
)

// ingressPath matches per-instance load balancer resource paths. Kubernetes
// appends hash suffixes to the ingress controller's ALB name; collapsing them
// keeps otherwise-identical lines identical across controller restarts.
var ingressPath = regexp.MustCompile(`app/k8s-default-ingressn-[a-z0-9]+/[a-z0-9]+`)

const canonicalIngress = "app/k8s-default-ingress"

// Placeholders substituted for redaction secrets in raw log copies.
const (
	certPlaceholder    = "CERT_ARN"
	accountPlaceholder = "ACCOUNT_ID"
)

// Parser converts ELB access log lines into ingestion records. Parsing is a
// pure function of the line and the two redaction secrets, so a Parser is
// safe for concurrent use.
type Parser struct {
	certARN   string
	accountID string
}

// NewParser creates a Parser. certARN and accountID are the secrets scrubbed
// from raw log copies; empty secrets are skipped during redaction.
func NewParser(certARN, accountID string) *Parser {
	return &Parser{certARN: certARN, accountID: accountID}
}

// Parse maps one raw log line to a ParsedRecord, or to a FailureRecord when
// the line does not match the access log grammar. Grammar mismatch never
// yields partial extraction.
func (p *Parser) Parse(line string) models.Record {
	canonical := ingressPath.ReplaceAllString(line, canonicalIngress)

	f := &fields{rest: canonical}
	rec := &models.ParsedRecord{}

	rec.Type = f.next("type")
	timeTok := f.next("time")
	f.next("elb") // load balancer resource name, not retained
	clientTok := f.next("client:port")
	targetTok := f.next("target:port")
	rec.RequestProcessingTime = f.expect("request_processing_time", isDuration)
	rec.TargetProcessingTime = f.expect("target_processing_time", isDuration)
	rec.ResponseProcessingTime = f.expect("response_processing_time", isDuration)
	rec.ELBStatusCode = f.expect("elb_status_code", isOptionalCount)
	rec.TargetStatusCode = f.next("target_status_code")
	rec.ReceivedBytes = f.expect("received_bytes", isOptionalCount)
	rec.SentBytes = f.expect("sent_bytes", isDigits)
	request := f.quoted("request")
	rec.UserAgent = f.quoted("user_agent")
	rec.SSLCipher = f.next("ssl_cipher")
	rec.SSLProtocol = f.next("ssl_protocol")
	targetGroup := f.next("target_group_arn")
	rec.TraceID = f.quoted("trace_id")
	rec.DomainName = f.quoted("domain_name")
	f.next("chosen_cert_arn") // not retained
	rec.MatchedRulePriority = f.next("matched_rule_priority")
	rec.RequestCreationTime = f.next("request_creation_time")
	rec.ActionsExecuted = f.quoted("actions_executed")
	rec.RedirectURL = f.quoted("redirect_url")
	rec.ErrorReason = f.quoted("error_reason")
	rec.TargetPortList = f.quoted("target_port_list")
	rec.TargetStatusCodeList = f.quoted("target_status_code_list")
	rec.Classification = f.quoted("classification")
	rec.ClassificationReason = f.quoted("classification_reason")
	rec.TID = f.next("tid")

	if f.err == nil {
		rec.Method, rec.URL, rec.Protocol, f.err = splitRequest(request)
	}
	if f.err != nil {
		return &models.FailureRecord{
			Error: fmt.Sprintf("failed to parse log line: %v", f.err),
		}
	}

	rec.Time = formatTimestamp(timeTok)
	rec.Client, rec.ClientPort = splitAddr(clientTok)
	rec.Target, rec.TargetPort = splitAddr(targetTok)
	rec.Service = serviceName(targetGroup)

	rec.NormalizeSentinels()

	// Redaction applies to the original line, not the canonicalized one.
	rec.RawLog = p.redact(line)
	return rec
}

// ParseStream parses every line of r in order. Parse failures become
// FailureRecords in the output; only a broken stream is an error.
func (p *Parser) ParseStream(r io.Reader) ([]models.Record, error) {
	scanner := bufio.NewScanner(r)

	// Increase buffer size for potentially long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var records []models.Record
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		records = append(records, p.Parse(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning log stream: %w", err)
	}
	return records, nil
}

// CountFailures reports how many of the records are parse failures.
func CountFailures(records []models.Record) int {
	n := 0
	for _, r := range records {
		if _, ok := r.(*models.FailureRecord); ok {
			n++
		}
	}
	return n
}

func (p *Parser) redact(line string) string {
	if p.certARN != "" {
		line = strings.ReplaceAll(line, p.certARN, certPlaceholder)
	}
	if p.accountID != "" {
		line = strings.ReplaceAll(line, p.accountID, accountPlaceholder)
	}
	return line
}

// fields consumes one whitespace-delimited grammar slot at a time. The first
// mismatch sticks in err and short-circuits the remaining reads, so Parse can
// report exactly which field broke.
type fields struct {
	rest string
	err  error
}

// next returns the next space-delimited token.
func (f *fields) next(name string) string {
	if f.err != nil {
		return ""
	}
	if f.rest == "" {
		f.err = fmt.Errorf("missing field %s", name)
		return ""
	}
	tok, rest, _ := strings.Cut(f.rest, " ")
	if tok == "" {
		f.err = fmt.Errorf("field %s: empty", name)
		return ""
	}
	f.rest = rest
	return tok
}

// expect returns the next token, requiring it to satisfy ok.
func (f *fields) expect(name string, ok func(string) bool) string {
	tok := f.next(name)
	if f.err == nil && !ok(tok) {
		f.err = fmt.Errorf("field %s: malformed value %q", name, tok)
	}
	return tok
}

// quoted returns the body of the next double-quoted field, which may contain
// spaces. The format does not escape quotes inside quoted fields.
func (f *fields) quoted(name string) string {
	if f.err != nil {
		return ""
	}
	if !strings.HasPrefix(f.rest, `"`) {
		f.err = fmt.Errorf("field %s: expected opening quote", name)
		return ""
	}
	body := f.rest[1:]
	i := strings.IndexByte(body, '"')
	if i < 0 {
		f.err = fmt.Errorf("field %s: unterminated quote", name)
		return ""
	}
	rest := body[i+1:]
	if rest != "" && !strings.HasPrefix(rest, " ") {
		f.err = fmt.Errorf("field %s: missing separator after closing quote", name)
		return ""
	}
	f.rest = strings.TrimPrefix(rest, " ")
	return body[:i]
}

// splitRequest decomposes the quoted request field into its three
// space-separated sub-tokens.
func splitRequest(request string) (method, url, protocol string, err error) {
	parts := strings.Split(request, " ")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("field request: malformed value %q", request)
	}
	return parts[0], parts[1], parts[2], nil
}

// splitAddr splits an address:port pair on the last colon. Without a colon
// the whole value is the address and the port is empty.
func splitAddr(s string) (addr, port string) {
	if i := strings.LastIndex(s, ":"); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

// serviceName extracts the short target group name, the final slash segment
// of the target group ARN.
func serviceName(arn string) string {
	if arn == models.Sentinel {
		return ""
	}
	return arn[strings.LastIndex(arn, "/")+1:]
}

// elbTimeLayout is the timestamp format ELB writes: UTC, fractional seconds.
// time.Parse accepts the fraction without it appearing in the layout.
const elbTimeLayout = "2006-01-02T15:04:05Z"

// formatTimestamp reformats the ELB timestamp as an ISO-8601 instant with an
// explicit UTC marker, omitting a zero sub-second part. Tokens that do not
// match the source layout pass through unchanged; timestamp drift degrades
// the record, it must not abort ingestion.
func formatTimestamp(tok string) string {
	t, err := time.Parse(elbTimeLayout, tok)
	if err != nil {
		return tok
	}
	if t.Nanosecond() == 0 {
		return t.Format("2006-01-02T15:04:05") + "Z"
	}
	return t.Format("2006-01-02T15:04:05.000000") + "Z"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// isOptionalCount accepts a run of digits or the absence sentinel.
func isOptionalCount(s string) bool {
	return s == models.Sentinel || isDigits(s)
}

// isDuration accepts an optionally signed decimal number of seconds, or the
// absence sentinel.
func isDuration(s string) bool {
	if s == models.Sentinel {
		return true
	}
	s = strings.TrimPrefix(s, "-")
	whole, frac, hasFrac := strings.Cut(s, ".")
	if !isDigits(whole) {
		return false
	}
	return !hasFrac || isDigits(frac)
}
