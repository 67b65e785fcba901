package queue

const TypeDocumentSummarize = "document:summarize"

type DocumentSummarizePayload struct {
	DocumentID string `json:"document_id"`
	Provider   string `json:"provider,omitempty"`
	Model      string `json:"model,omitempty"`
}
