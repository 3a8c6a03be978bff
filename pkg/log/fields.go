package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Relay
	FieldSessionID   = "session_id"
	FieldRoomID      = "room_id"
	FieldBroadcastID = "broadcast_id"
	FieldMessageType = "message_type"
	FieldCount       = "listener_count"
	FieldReason      = "reason"

	// Service
	FieldService = "service"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
