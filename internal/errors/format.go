package errors

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// FormatForCLI renders err for stderr. Coded errors show their hint and
// code; debug appends the underlying cause. Plain errors print as-is.
func FormatForCLI(err error, debug bool) string {
	if err == nil {
		return ""
	}

	ae, ok := as(err)
	if !ok {
		return "Error: " + err.Error() + "\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", ae.Message)
	if ae.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", ae.Suggestion)
	}
	fmt.Fprintf(&sb, "  Code: %s\n", ae.Code)
	if debug && ae.Cause != nil {
		fmt.Fprintf(&sb, "  Cause: %s\n", ae.Cause.Error())
	}
	return sb.String()
}

// LogAttrs returns slog attributes describing err. Details are emitted in
// key order as detail_<key>.
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}

	ae, ok := as(err)
	if !ok {
		return []any{slog.String("error", err.Error())}
	}

	attrs := []any{
		slog.String("error", err.Error()),
		slog.String("error_code", ae.Code),
		slog.String("category", string(ae.Category)),
		slog.String("severity", string(ae.Severity)),
		slog.Bool("retryable", ae.Retryable),
	}
	if ae.Cause != nil {
		attrs = append(attrs, slog.String("cause", ae.Cause.Error()))
	}

	keys := make([]string, 0, len(ae.Details))
	for k := range ae.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.String("detail_"+k, ae.Details[k]))
	}
	return attrs
}
