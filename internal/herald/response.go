package herald

// StatusAvailable is the sentinel Herald reports when an extraction has
// finished and its structured results can be read. Any other value is
// treated as still pending; the full status enumeration is undocumented.
const StatusAvailable = "available"

// Herald response shapes vary between endpoints and API revisions: the same
// field can appear at the top level or nested under "file" (uploads) or
// "data_extraction" (extractions). Each reader below encodes one explicit
// priority order over those shapes.

// FileID extracts the service-assigned file identifier from an upload
// response. Priority: top-level "id", top-level "fileId", "file.id".
func FileID(body map[string]any) string {
	if id := stringField(body, "id"); id != "" {
		return id
	}
	if id := stringField(body, "fileId"); id != "" {
		return id
	}
	return stringField(nested(body, "file"), "id")
}

// ExtractionID extracts the extraction-job identifier used for polling.
// Priority: "data_extraction.id", top-level "id".
func ExtractionID(body map[string]any) string {
	if id := stringField(nested(body, "data_extraction"), "id"); id != "" {
		return id
	}
	return stringField(body, "id")
}

// Status resolves the extraction status. Priority: "data_extraction.status",
// top-level "status".
func Status(body map[string]any) string {
	if status := stringField(nested(body, "data_extraction"), "status"); status != "" {
		return status
	}
	return stringField(body, "status")
}

// ExtractionFileID resolves the file identifier inside a poll response,
// used to join back to the upload record. Priority:
// "data_extraction.file_id", top-level "file_id".
func ExtractionFileID(body map[string]any) string {
	if id := stringField(nested(body, "data_extraction"), "file_id"); id != "" {
		return id
	}
	return stringField(body, "file_id")
}

// ExtractionPayload returns the structured extraction object: the nested
// "data_extraction" sub-object when present, otherwise the whole body.
func ExtractionPayload(body map[string]any) map[string]any {
	if payload := nested(body, "data_extraction"); payload != nil {
		return payload
	}
	return body
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func nested(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	if sub, ok := m[key].(map[string]any); ok {
		return sub
	}
	return nil
}
