package dto

// BlockIdentifierRequest captures POST /rate-limits/block payload.
type BlockIdentifierRequest struct {
	Identifier string `json:"identifier" validate:"required,max=255"`
	Endpoint   string `json:"endpoint" validate:"required,max=255"`
	DurationMs int64  `json:"durationMs" validate:"required,min=1000"`
	Reason     string `json:"reason" validate:"omitempty,max=500"`
}

// UnblockIdentifierRequest captures POST /rate-limits/unblock payload. An empty endpoint unblocks all endpoints.
type UnblockIdentifierRequest struct {
	Identifier string `json:"identifier" validate:"required,max=255"`
	Endpoint   string `json:"endpoint" validate:"omitempty,max=255"`
}
