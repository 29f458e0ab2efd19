package models

import "time"

type Verification struct {
	Code      string
	FileRef   string
	FileName  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (v *Verification) IsExpired() bool {
	return v.ExpiresAt.Before(time.Now())
}

type DownloadToken struct {
	Token      string    `json:"token"`
	FileRef    string    `json:"file_ref"`
	FileName   string    `json:"file_name"`
	SourceCode string    `json:"source_code"`
	IssuedAt   time.Time `json:"issued_at"`
}

// FileLocation is what a successful redemption resolves to. The HTTP layer
// redirects to FileRef; FileName is kept for display only.
type FileLocation struct {
	FileRef  string
	FileName string
}

// FileStored is the intake message the bot publishes after it has durably
// stored an upload.
type FileStored struct {
	FileRef  string `json:"file_url"`
	FileName string `json:"file_name"`
	ReplyTo  string `json:"reply_to"`
}

// CodeIssued is the notification message the bot turns into a DM.
type CodeIssued struct {
	ReplyTo   string `json:"reply_to"`
	Code      string `json:"code"`
	VerifyURL string `json:"verify_url"`
}
