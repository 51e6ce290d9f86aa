// Package audit votes on other nodes' submissions and schedules the
// periodic alteration check.
//
// An audit never fails: every problem with a submission (unfetchable,
// malformed, bad signature, unreadable article list, resampled records
// that do not match) becomes a rejecting Verdict with a reason. Only
// infrastructure problems on the auditing node, such as a failure to
// persist verdicts, are returned as errors.
package audit
