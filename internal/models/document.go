package models

import (
	"time"
)

type Document struct {
	ID            string    `json:"id"`
	Filename      string    `json:"filename"`
	UploadTime    time.Time `json:"upload_time"`
	ExtractedText string    `json:"extracted_text"`
	ObjectURI     string    `json:"object_uri"`
	Status        string    `json:"status"`
	FailedStage   string    `json:"failed_stage,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	PageCount     int       `json:"page_count"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	Summary       string    `json:"summary,omitempty"`
}

// IsReady reports whether both the locator and the extracted text are populated.
func (d *Document) IsReady() bool {
	return d.ObjectURI != "" && d.ExtractedText != ""
}

// DocumentPatch is a partial update. Nil fields are left untouched.
type DocumentPatch struct {
	ExtractedText *string
	ObjectURI     *string
	Status        *string
	FailedStage   *string
	FailureReason *string
	PageCount     *int
	Summary       *string
}

func (p DocumentPatch) IsEmpty() bool {
	return p.ExtractedText == nil && p.ObjectURI == nil && p.Status == nil &&
		p.FailedStage == nil && p.FailureReason == nil && p.PageCount == nil && p.Summary == nil
}

// Apply copies the set fields of p onto d.
func (p DocumentPatch) Apply(d *Document) {
	if p.ExtractedText != nil {
		d.ExtractedText = *p.ExtractedText
	}
	if p.ObjectURI != nil {
		d.ObjectURI = *p.ObjectURI
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	if p.FailedStage != nil {
		d.FailedStage = *p.FailedStage
	}
	if p.FailureReason != nil {
		d.FailureReason = *p.FailureReason
	}
	if p.PageCount != nil {
		d.PageCount = *p.PageCount
	}
	if p.Summary != nil {
		d.Summary = *p.Summary
	}
}

const (
	DocStatusPending = "pending"
	DocStatusReady   = "ready"
	DocStatusFailed  = "failed"
)

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    int64(page)*int64(limit) < total,
		HasPrev:    page > 1,
	}
}
