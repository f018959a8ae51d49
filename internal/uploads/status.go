package uploads

// Lifecycle stages of an upload record. Transitions are forward-moving in
// the happy path: uploaded -> extraction_started -> extraction_complete.
// A re-submission against a completed record resets it to
// extraction_started; see the service for the policy.
const (
	StatusUploaded           = "uploaded"
	StatusExtractionStarted  = "extraction_started"
	StatusExtractionComplete = "extraction_complete"
)

// NormalizeStatus classifies a record's lifecycle stage from its stored
// metadata alone, without contacting the extraction service. Priority:
//  1. an explicit "extraction_status" tag,
//  2. presence of a "data_extraction" payload implies extraction_complete
//     (records written before the tag existed),
//  3. otherwise uploaded.
func NormalizeStatus(metadata map[string]any) string {
	if metadata != nil {
		if tag, ok := metadata["extraction_status"].(string); ok && tag != "" {
			return tag
		}
		if _, ok := metadata["data_extraction"]; ok {
			return StatusExtractionComplete
		}
	}
	return StatusUploaded
}
