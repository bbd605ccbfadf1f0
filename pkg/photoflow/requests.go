package photoflow

// IssueUploadCredentialRequest contains parameters for issuing an upload
// credential. The caller (API layer) generates the photo id and builds the
// storage key from it via OriginalKey and ExtensionForContentType.
type IssueUploadCredentialRequest struct {
	PhotoID     string
	StorageKey  string
	ContentType string
}

// CreatePendingRecordRequest contains parameters for creating a provisional
// photo record.
type CreatePendingRecordRequest struct {
	PhotoID     string
	Filename    string
	Size        int64
	ContentType string
	StorageKey  string
}
